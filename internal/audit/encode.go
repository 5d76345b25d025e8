package audit

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/blockalloc/internal/conv"
	"github.com/hupe1980/blockalloc/internal/hash"
)

// Compression selects how a snapshot payload is compressed.
type Compression uint8

const (
	// CompressionNone stores the bitmaps as-is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 frames (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses zstd (better ratio).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("audit: unknown compression %q", s)
	}
}

// Format: [magic "BLKS"][version u8][compression u8][numBlocks u64]
// followed by the (possibly compressed) payload
// [len u32][free bitmap][len u32][live bitmap][crc32c u32].
// The checksum covers the payload bytes before it.
var magic = [4]byte{'B', 'L', 'K', 'S'}

const version = 1

var (
	// ErrBadMagic is returned when decoding something that is not a snapshot.
	ErrBadMagic = errors.New("audit: not a block snapshot")
	// ErrVersion is returned for snapshots written by a newer encoder.
	ErrVersion = errors.New("audit: unsupported snapshot version")
	// ErrChecksum is returned when the payload does not match its checksum.
	ErrChecksum = errors.New("audit: snapshot checksum mismatch")
	// ErrCorrupt is returned when a length field cannot belong to a valid
	// snapshot or the payload ends early.
	ErrCorrupt = errors.New("audit: corrupt snapshot")
)

// maxBitmapSize bounds the serialized size of a run-optimized bitmap holding
// values below numBlocks: cookie and count, run flags, then per 64Ki
// container a descriptor, an offset and at most 8 KiB of data.
func maxBitmapSize(numBlocks uint64) uint64 {
	containers := (numBlocks + 1<<16 - 1) >> 16
	return 8 + (containers+7)/8 + containers*(8+8192)
}

// Encode writes the snapshot to w using the given compression.
func (s *Snapshot) Encode(w io.Writer, c Compression) error {
	var hdr [14]byte
	copy(hdr[:4], magic[:])
	hdr[4] = version
	hdr[5] = byte(c)
	binary.LittleEndian.PutUint64(hdr[6:], s.NumBlocks)
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	switch c {
	case CompressionNone:
		return s.writePayload(w)
	case CompressionLZ4:
		zw := lz4.NewWriter(w)
		if err := s.writePayload(zw); err != nil {
			return err
		}
		return zw.Close()
	case CompressionZSTD:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		if err := s.writePayload(zw); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	default:
		return fmt.Errorf("audit: unknown compression %d", c)
	}
}

func (s *Snapshot) writePayload(dst io.Writer) error {
	h := hash.NewCRC32C()
	w := io.MultiWriter(dst, h)
	for _, bm := range []*roaring.Bitmap{s.Free, s.Live} {
		// Keeps every container within the size Decode accepts.
		bm.RunOptimize()
		data, err := bm.MarshalBinary()
		if err != nil {
			return err
		}
		size, err := conv.Uint64ToUint32(uint64(len(data)))
		if err != nil {
			return err
		}
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], size)
		if _, err := w.Write(n[:]); err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	var sum [4]byte
	binary.LittleEndian.PutUint32(sum[:], h.Sum32())
	_, err := dst.Write(sum[:])
	return err
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (*Snapshot, error) {
	var hdr [14]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if [4]byte(hdr[:4]) != magic {
		return nil, ErrBadMagic
	}
	if hdr[4] != version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, hdr[4])
	}

	s, err := NewSnapshot(binary.LittleEndian.Uint64(hdr[6:]))
	if err != nil {
		return nil, err
	}

	var payload io.Reader
	switch Compression(hdr[5]) {
	case CompressionNone:
		payload = bufio.NewReader(r)
	case CompressionLZ4:
		payload = lz4.NewReader(r)
	case CompressionZSTD:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		payload = zr
	default:
		return nil, fmt.Errorf("audit: unknown compression %d", hdr[5])
	}

	h := hash.NewCRC32C()
	body := io.TeeReader(payload, h)
	limit := maxBitmapSize(s.NumBlocks)
	for _, bm := range []*roaring.Bitmap{s.Free, s.Live} {
		var n [4]byte
		if _, err := io.ReadFull(body, n[:]); err != nil {
			return nil, fmt.Errorf("audit: read bitmap length: %w", err)
		}
		size := uint64(binary.LittleEndian.Uint32(n[:]))
		if size > limit {
			return nil, fmt.Errorf("%w: bitmap of %d bytes exceeds %d for %d blocks", ErrCorrupt, size, limit, s.NumBlocks)
		}
		// ReadAll grows with the bytes actually present, so a short input
		// fails before the declared size is allocated.
		data, err := io.ReadAll(io.LimitReader(body, int64(size))) //nolint:gosec // size <= limit
		if err != nil {
			return nil, fmt.Errorf("audit: read bitmap: %w", err)
		}
		if uint64(len(data)) != size {
			return nil, fmt.Errorf("%w: bitmap truncated at %d of %d bytes", ErrCorrupt, len(data), size)
		}
		if err := bm.UnmarshalBinary(data); err != nil {
			return nil, fmt.Errorf("audit: decode bitmap: %w", err)
		}
	}

	var sum [4]byte
	if _, err := io.ReadFull(payload, sum[:]); err != nil {
		return nil, fmt.Errorf("audit: read checksum: %w", err)
	}
	if got, want := h.Sum32(), binary.LittleEndian.Uint32(sum[:]); got != want {
		return nil, fmt.Errorf("%w: got %08x, want %08x", ErrChecksum, got, want)
	}
	return s, nil
}
