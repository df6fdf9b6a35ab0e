//go:build unix

package shm

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// Segment is a memory-mapped file other processes can map by path.
type Segment struct {
	path  string
	data  []byte
	owner bool
	mu    sync.Mutex
}

// Dir returns the directory segments are created in: /dev/shm when it
// exists, the temp dir otherwise.
func Dir() string {
	if fi, err := os.Stat("/dev/shm"); err == nil && fi.IsDir() {
		return "/dev/shm"
	}
	return os.TempDir()
}

// Create allocates a writable segment of size bytes.
func Create(size int) (*Segment, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	path := filepath.Join(Dir(), newName())

	//nolint:gosec // G304: path is generated by this package
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create segment: %w", err)
	}
	defer f.Close()

	if err := f.Truncate(int64(size)); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to size segment: %w", err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED) //nolint:gosec // G115: fd fits in int
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("mmap failed: %w", err)
	}

	return &Segment{path: path, data: data, owner: true}, nil
}

// Open maps an existing segment read-only. size must not exceed the file.
func Open(path string, size int) (*Segment, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	//nolint:gosec // G304: path comes from a descriptor produced by Create
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open segment: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat segment: %w", err)
	}
	if fi.Size() < int64(size) {
		return nil, fmt.Errorf("%w: segment has %d bytes, need %d", ErrInvalidSize, fi.Size(), size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED) //nolint:gosec // G115: fd fits in int
	if err != nil {
		return nil, fmt.Errorf("mmap failed: %w", err)
	}

	return &Segment{path: path, data: data}, nil
}

// Path returns the segment's file path.
func (s *Segment) Path() string { return s.path }

// Bytes returns the mapped memory, or nil once closed.
func (s *Segment) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Close unmaps the segment; the creating side also removes the file.
// Closing twice is a no-op.
func (s *Segment) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return nil
	}
	err := unix.Munmap(s.data)
	s.data = nil
	if s.owner {
		if rmErr := os.Remove(s.path); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}
