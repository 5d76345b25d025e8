// Command blockalloc builds the allocator as a C shared library:
//
//	go build -buildmode=c-shared -o libblockalloc.so ./cmd/blockalloc
//
// Loading the library attaches a process-wide allocator configured from the
// BLOCKALLOC_* environment variables (see blockalloc.ConfigFromEnv); a
// failed attach aborts the process. Unloading it releases the arena.
//
// Every entry point carries the Mem prefix (MemAlloc, MemFree, MemSize,
// MemTotalCommitted, ...) because that is the symbol table the allocator
// benchmark harness resolves; EnableHugePages is the one unprefixed export.
// Each export forwards to the Allocator method of the same name without the
// prefix, with the A suffix mapping to the aligned variants.
package main

// #include <stdint.h>
// #include <stdbool.h>
import "C"

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"unsafe"

	"github.com/hupe1980/blockalloc"
)

// alloc is written once by init and read-only afterwards.
var alloc *blockalloc.Allocator

func init() {
	a, err := attach()
	if err != nil {
		panic(fmt.Sprintf("blockalloc: attach: %v", err))
	}
	alloc = a
}

func attach() (*blockalloc.Allocator, error) {
	cfg, err := blockalloc.ConfigFromEnv(blockalloc.DefaultEnvPrefix)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if v := os.Getenv(blockalloc.DefaultEnvPrefix + "LOG_LEVEL"); v != "" {
		if level, err = blockalloc.ParseLogLevel(v); err != nil {
			return nil, err
		}
	}

	return blockalloc.New(context.Background(), cfg,
		blockalloc.WithLogger(blockalloc.NewTextLogger(level)),
	)
}

//export blockallocDetach
func blockallocDetach() {
	if alloc != nil {
		_ = alloc.Close()
	}
}

//export MemTotalCommitted
func MemTotalCommitted() C.uint64_t {
	return C.uint64_t(alloc.TotalCommitted())
}

//export MemTotalReserved
func MemTotalReserved() C.uint64_t {
	return C.uint64_t(alloc.TotalReserved())
}

//export MemFlushCache
func MemFlushCache(h C.uint64_t) C.uint64_t {
	return C.uint64_t(alloc.FlushCache(uint64(h)))
}

//export MemFlushCacheAll
func MemFlushCacheAll() {
	alloc.FlushCacheAll()
}

//export MemSize
func MemSize(p unsafe.Pointer) C.uint64_t {
	return C.uint64_t(alloc.Size(p))
}

//export MemAlloc
func MemAlloc(size C.uint64_t) unsafe.Pointer {
	return alloc.Alloc(uint64(size))
}

//export MemFree
func MemFree(p unsafe.Pointer) {
	alloc.Free(p)
}

//export MemSizeA
func MemSizeA(p unsafe.Pointer, alignment C.uint64_t) C.uint64_t {
	return C.uint64_t(alloc.SizeAligned(p, uint64(alignment)))
}

//export MemAllocA
func MemAllocA(size, alignment C.uint64_t) unsafe.Pointer {
	return alloc.AllocAligned(uint64(size), uint64(alignment))
}

//export MemFreeA
func MemFreeA(p unsafe.Pointer) {
	alloc.FreeAligned(p)
}

//export EnableHugePages
func EnableHugePages(enable C.bool) {
	alloc.EnableHugePages(bool(enable))
}

func main() {}
