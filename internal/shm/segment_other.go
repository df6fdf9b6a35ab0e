//go:build !unix

package shm

import (
	"errors"
	"fmt"
)

// Segment is unavailable on this platform.
type Segment struct{}

// Dir returns "" on platforms without shared segments.
func Dir() string { return "" }

// Create reports errors.ErrUnsupported.
func Create(size int) (*Segment, error) {
	return nil, fmt.Errorf("shared segment of %d bytes: %w", size, errors.ErrUnsupported)
}

// Open reports errors.ErrUnsupported.
func Open(path string, _ int) (*Segment, error) {
	return nil, fmt.Errorf("shared segment %s: %w", path, errors.ErrUnsupported)
}

// Path returns "".
func (s *Segment) Path() string { return "" }

// Bytes returns nil.
func (s *Segment) Bytes() []byte { return nil }

// Close is a no-op.
func (s *Segment) Close() error { return nil }
