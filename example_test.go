package blockalloc_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/hupe1980/blockalloc"
)

func newExampleAllocator() *blockalloc.Allocator {
	cfg := blockalloc.DefaultConfig()
	cfg.HeapSize = 4096
	cfg.Pin = blockalloc.PinNever

	a, err := blockalloc.New(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}
	return a
}

// Example_alloc demonstrates the pointer API.
func Example_alloc() {
	a := newExampleAllocator()
	defer a.Close()

	p := a.Alloc(100)
	fmt.Println("usable size:", a.Size(p))

	a.Free(p)
	fmt.Println("free blocks:", a.Stats().FreeBlocks)
	// Output:
	// usable size: 104
	// free blocks: 512
}

// Example_handles demonstrates the handle API and first-fit placement.
func Example_handles() {
	a := newExampleAllocator()
	defer a.Close()

	ctx := context.Background()

	h1, _ := a.AllocHandle(ctx, 100) // 13 blocks
	h2, _ := a.AllocHandle(ctx, 10)  // 2 blocks
	fmt.Println(h1.Block(), h2.Block())

	a.FreeHandle(h1)
	h3, _ := a.AllocHandle(ctx, 8)
	fmt.Println(h3.Block())
	// Output:
	// 0 13
	// 0
}

// Example_exhaustion demonstrates an allocation that cannot be satisfied.
func Example_exhaustion() {
	a := newExampleAllocator()
	defer a.Close()

	_, err := a.AllocHandle(context.Background(), 8192)
	fmt.Println(errors.Is(err, blockalloc.ErrOutOfMemory))
	fmt.Println(a.Alloc(8192) == nil)
	// Output:
	// true
	// true
}

// Example_snapshot demonstrates writing and reading an allocation snapshot.
func Example_snapshot() {
	a := newExampleAllocator()
	defer a.Close()

	_ = a.Alloc(64)

	var buf bytes.Buffer
	if err := a.WriteSnapshot(&buf, blockalloc.CompressionZSTD); err != nil {
		log.Fatal(err)
	}

	s, err := blockalloc.ReadSnapshot(&buf)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(s.FreeBlocks(), s.LiveBlocks(), s.Check() == nil)
	// Output: 504 8 true
}
