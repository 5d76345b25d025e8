//go:build windows

package mmap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

func osMapAnon(size int, flags Flag) ([]byte, func([]byte) error, error) {
	// MEM_RESERVE|MEM_COMMIT reserves the address range and charges it
	// against the commit limit in one step. NoReserve has no equivalent.
	_ = flags
	addr, err := windows.VirtualAlloc(0, uintptr(size),
		windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return nil, nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)

	return data, func(b []byte) error {
		// MEM_RELEASE requires size 0 and frees the whole reservation.
		return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
	}, nil
}

func osLock(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return windows.VirtualLock(uintptr(unsafe.Pointer(&data[0])), uintptr(len(data)))
}

func osUnlock(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return windows.VirtualUnlock(uintptr(unsafe.Pointer(&data[0])), uintptr(len(data)))
}

func osAdvise(data []byte, pattern AccessPattern) error {
	// PrefetchVirtualMemory could back AccessWillNeed, but it needs a
	// process handle and Windows 8+. The page touch in the arena warm-up
	// already faults everything in.
	_ = data
	_ = pattern
	return nil
}
