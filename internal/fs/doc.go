// Package fs provides the filesystem abstraction used to persist occupancy
// snapshots, plus fault injection for testing it.
//
//   - [FileSystem]: open, remove, rename and stat
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test wrapper that fails writes, syncs, closes or renames
//   - [WriteFileAtomic]: write-to-temp, sync, rename
//
// Production code should use fs.Default (which is [LocalFS]):
//
//	err := fs.WriteFileAtomic(fs.Default, path, 0o644, func(w io.Writer) error {
//	    return snap.Encode(w, audit.CompressionZSTD)
//	})
//
// Tests can inject [FaultyFS] to simulate failures:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".tmp", fs.Fault{FailAfterBytes: 16})
package fs
