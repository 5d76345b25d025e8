// Package hash provides the CRC32-Castagnoli checksum that guards occupancy
// snapshot payloads.
//
// The checksum is computed while the payload streams through:
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	checksum := h.Sum32()
//
// Go's crc32 package uses the SSE4.2 and ARM CRC instructions when the CPU
// has them.
package hash
