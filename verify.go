package blockalloc

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/blockalloc/internal/audit"
	"github.com/hupe1980/blockalloc/internal/fs"
)

// Snapshot is an occupancy map of the arena: one bit per block in a free
// and a live bitmap.
type Snapshot = audit.Snapshot

// Compression selects how WriteSnapshot compresses its output.
type Compression = audit.Compression

const (
	CompressionNone = audit.CompressionNone
	CompressionLZ4  = audit.CompressionLZ4
	CompressionZSTD = audit.CompressionZSTD
)

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	return audit.ParseCompression(s)
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	return audit.Decode(r)
}

// Snapshot captures which blocks are free and which are live.
//
// The free list and the registry are read one after the other, so the
// result is only coherent when no allocate or free is in flight.
func (a *Allocator) Snapshot() (*Snapshot, error) {
	s, err := audit.NewSnapshot(a.numBlocks)
	if err != nil {
		return nil, err
	}
	a.free.Each(func(start, end uint64) bool {
		s.AddFree(start, end)
		return true
	})
	a.live.Each(func(start, count uint64) bool {
		s.AddLive(start, count)
		return true
	})
	return s, nil
}

// Verify checks that every block is either free or owned by exactly one
// live allocation, and that free plus live blocks equal NumBlocks. Like
// Snapshot it must run while the allocator is quiescent.
func (a *Allocator) Verify() error {
	s, err := a.Snapshot()
	if err != nil {
		return err
	}

	var starts []uint64
	a.free.Each(func(start, _ uint64) bool {
		starts = append(starts, start)
		return true
	})
	for _, start := range starts {
		if a.live.Contains(start) {
			return fmt.Errorf("%w: block %d starts both a free run and a live allocation", audit.ErrOverlap, start)
		}
	}

	if err := s.Check(); err != nil {
		return err
	}
	if free, live := a.free.Free(), a.live.Blocks(); free+live != a.numBlocks {
		return fmt.Errorf("%w: %d free + %d live != %d blocks", audit.ErrLeak, free, live, a.numBlocks)
	}
	return nil
}

// SaveSnapshot writes a Snapshot to path. The file is replaced atomically.
func (a *Allocator) SaveSnapshot(path string, c Compression) error {
	return a.saveSnapshot(fs.Default, path, c)
}

func (a *Allocator) saveSnapshot(fsys fs.FileSystem, path string, c Compression) error {
	s, err := a.Snapshot()
	if err != nil {
		return err
	}
	return fs.WriteFileAtomic(fsys, path, 0o644, func(w io.Writer) error {
		return s.Encode(w, c)
	})
}

// LoadSnapshot reads a snapshot file written by SaveSnapshot.
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSnapshot(bufio.NewReader(f))
}

// WriteSnapshot encodes a Snapshot to w.
func (a *Allocator) WriteSnapshot(w io.Writer, c Compression) error {
	s, err := a.Snapshot()
	if err != nil {
		return err
	}
	return s.Encode(w, c)
}
