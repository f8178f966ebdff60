// Package share implements the on-disk container format for a single
// immutable share: a 12-byte versioned header followed by an append-only,
// random-access payload region.
//
// Layout (big-endian):
//
//	offset 0  size 4  version            must equal 1
//	offset 4  size 4  data_length_hint   saturated at 2^32-1, informational only
//	offset 8  size 4  num_leases         always written as 0
//	offset 12 ...     payload
//
// There is no trailer. Historical files may carry legacy lease records
// past the payload; this implementation never parses them, and reads that
// run past the end of the payload are simply truncated at EOF rather than
// treated as an error (overread is tolerated, matching the original
// container format this one replaces).
package share

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	// HeaderSize is the fixed size of the container header in bytes.
	HeaderSize = 12

	// CurrentVersion is the only header version this implementation writes
	// or accepts.
	CurrentVersion uint32 = 1

	maxUint32 = uint32(1<<32 - 1)
)

// Container is a single share file: a validated header plus an open file
// handle positioned for random-access payload reads and writes.
//
// A Container returned by Create is writable (the bucket writer state
// machine enforces that writes only happen before commit); a Container
// returned by Open is read-only from the caller's perspective, matching
// the bucket reader's read-only contract.
type Container struct {
	path     string
	file     *os.File
	maxSize  uint64
	readOnly bool // set by Open; WriteAt's maxSize check does not apply
}

// Create creates a new share container at path. It fails with
// ErrAlreadyExists if a file is already there, and creates any missing
// parent directories first. maxSize bounds future WriteAt calls; the
// on-disk hint field saturates at 2^32-1 when maxSize exceeds that.
func Create(path string, maxSize uint64) (*Container, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("share: create parent dirs for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
		}
		return nil, fmt.Errorf("share: create %s: %w", path, err)
	}

	hint := maxUint32
	if maxSize < uint64(maxUint32) {
		hint = uint32(maxSize)
	}

	var header [HeaderSize]byte
	binary.BigEndian.PutUint32(header[0:4], CurrentVersion)
	binary.BigEndian.PutUint32(header[4:8], hint)
	binary.BigEndian.PutUint32(header[8:12], 0)

	if _, err := f.Write(header[:]); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("share: write header for %s: %w", path, err)
	}

	return &Container{path: path, file: f, maxSize: maxSize}, nil
}

// Open opens an existing committed share container for reading, validating
// the header version.
func Open(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("share: open %s: %w", path, err)
	}

	var header [HeaderSize]byte
	if _, err := f.ReadAt(header[:], 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("share: read header of %s: %w", path, err)
	}

	version := binary.BigEndian.Uint32(header[0:4])
	if version != CurrentVersion {
		f.Close()
		return nil, fmt.Errorf("%w: %s had version %d", ErrUnknownVersion, path, version)
	}

	return &Container{path: path, file: f, readOnly: true}, nil
}

// Path returns the filesystem path backing this container.
func (c *Container) Path() string {
	return c.path
}

// ReadAt returns up to length bytes of payload starting at offset. Reads
// past the end of the payload are truncated (not an error); an offset at
// or past EOF yields an empty, non-nil slice.
func (c *Container) ReadAt(offset uint64, length int) ([]byte, error) {
	if length <= 0 {
		return nil, nil
	}

	buf := make([]byte, length)
	n, err := c.file.ReadAt(buf, int64(HeaderSize)+int64(offset))
	if n > 0 {
		return buf[:n], nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("share: read %s at %d: %w", c.path, offset, err)
	}
	return buf[:0], nil
}

// WriteAt writes data into the payload region at the given absolute
// offset. Writes are order-independent: the final on-disk byte at a given
// offset depends only on the last WriteAt that touched it. Fails with
// ErrDataTooLarge (no partial effect) when offset+len(data) exceeds the
// max size given to Create.
func (c *Container) WriteAt(offset uint64, data []byte) error {
	if !c.readOnly && offset+uint64(len(data)) > c.maxSize {
		return fmt.Errorf("%w: offset=%d len=%d max=%d", ErrDataTooLarge, offset, len(data), c.maxSize)
	}

	if _, err := c.file.WriteAt(data, int64(HeaderSize)+int64(offset)); err != nil {
		return fmt.Errorf("share: write %s at %d: %w", c.path, offset, err)
	}
	return nil
}

// Size returns the current on-disk file size, header included.
func (c *Container) Size() (int64, error) {
	info, err := c.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("share: stat %s: %w", c.path, err)
	}
	return info.Size(), nil
}

// Sync flushes buffered writes to stable storage.
func (c *Container) Sync() error {
	return c.file.Sync()
}

// Close releases the underlying file handle. It does not remove or rename
// the file; that is the bucket writer's responsibility.
func (c *Container) Close() error {
	return c.file.Close()
}

