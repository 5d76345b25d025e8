//go:build linux || darwin || freebsd || netbsd || openbsd

package mmap

import (
	"golang.org/x/sys/unix"
)

func osMapAnon(size int, flags Flag) ([]byte, func([]byte) error, error) {
	prot := unix.PROT_READ | unix.PROT_WRITE
	mapFlags := unix.MAP_ANON | unix.MAP_PRIVATE
	if flags&NoReserve != 0 {
		mapFlags |= noReserveFlag
	}

	data, err := unix.Mmap(-1, 0, size, prot, mapFlags)
	if err != nil {
		return nil, nil, err
	}

	return data, unix.Munmap, nil
}

func osLock(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return unix.Mlock(data)
}

func osUnlock(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return unix.Munlock(data)
}

func osAdvise(data []byte, pattern AccessPattern) error {
	if len(data) == 0 {
		return nil
	}

	var advice int
	switch pattern {
	case AccessSequential:
		advice = unix.MADV_SEQUENTIAL
	case AccessRandom:
		advice = unix.MADV_RANDOM
	case AccessWillNeed:
		advice = unix.MADV_WILLNEED
	case AccessDontNeed:
		advice = unix.MADV_DONTNEED
	default:
		advice = unix.MADV_NORMAL
	}

	// madvise requires page-aligned addresses. Regions are not, and the
	// hint is advisory, so alignment failures are swallowed.
	err := unix.Madvise(data, advice)
	if err == unix.EINVAL {
		return nil
	}
	return err
}
