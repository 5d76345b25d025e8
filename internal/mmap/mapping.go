package mmap

import "sync/atomic"

// Mapping represents an anonymous read-write memory mapping.
// It owns the underlying byte slice and is responsible for unmapping it.
type Mapping struct {
	data   []byte
	size   int
	closed atomic.Bool
	locked atomic.Bool
	// unmap is the platform-specific function to release the memory.
	unmap func([]byte) error
}

// MapAnon reserves and commits size bytes of zeroed, read-write memory that
// is not backed by a file and not managed by the Go garbage collector.
func MapAnon(size int, flags Flag) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	data, unmapFunc, err := osMapAnon(size, flags)
	if err != nil {
		return nil, err
	}

	return &Mapping{
		data:  data,
		size:  size,
		unmap: unmapFunc,
	}, nil
}

// Close unlocks (if locked) and unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil // Already closed
	}
	var firstErr error
	if m.locked.Swap(false) {
		firstErr = osUnlock(m.data)
	}
	if m.unmap != nil && m.data != nil {
		if err := m.unmap(m.data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Bytes returns the underlying byte slice.
// Warning: The slice is valid only until Close() is called.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the size of the mapping in bytes.
func (m *Mapping) Size() int {
	return m.size
}

// Lock pins the mapping into physical memory so it cannot be swapped out.
// Locking an already locked mapping is a no-op.
func (m *Mapping) Lock() error {
	if m.closed.Load() {
		return ErrClosed
	}
	if m.locked.Load() {
		return nil
	}
	if err := osLock(m.data); err != nil {
		return err
	}
	m.locked.Store(true)
	return nil
}

// Unlock releases a previous Lock. Unlocking an unlocked mapping is a no-op.
func (m *Mapping) Unlock() error {
	if m.closed.Load() {
		return ErrClosed
	}
	if !m.locked.Swap(false) {
		return nil
	}
	return osUnlock(m.data)
}

// Locked reports whether the mapping is currently pinned.
func (m *Mapping) Locked() bool {
	return m.locked.Load()
}

// Advise provides hints to the kernel about how the memory will be accessed.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	return osAdvise(m.data, pattern)
}
