package mmap

import "golang.org/x/sys/unix"

const noReserveFlag = unix.MAP_NORESERVE
