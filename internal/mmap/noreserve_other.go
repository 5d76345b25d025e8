//go:build darwin || freebsd || netbsd || openbsd

package mmap

// Only Linux honours MAP_NORESERVE; elsewhere anonymous mappings are
// already lazily committed.
const noReserveFlag = 0
