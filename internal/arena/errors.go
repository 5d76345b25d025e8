package arena

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when using an arena after Close.
	ErrClosed = errors.New("arena: closed")
	// ErrInvalidConfig is returned for a zero size or a bad page size.
	ErrInvalidConfig = errors.New("arena: invalid config")
)

// Stage names the bootstrap step that failed.
type Stage string

const (
	StageMap      Stage = "map"
	StagePin      Stage = "pin"
	StagePrefault Stage = "prefault"
)

// BootstrapError reports that the environment could not provide the arena.
// It is not retryable: the requested size either fits the host or it does not.
type BootstrapError struct {
	Stage Stage
	Size  uint64
	Err   error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("arena: %s of %d bytes failed: %v", e.Stage, e.Size, e.Err)
}

func (e *BootstrapError) Unwrap() error { return e.Err }
