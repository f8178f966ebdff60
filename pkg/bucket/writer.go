// Package bucket implements the staged-ingestion state machine for a
// single share: an OPEN writer accepting random-access writes, committed
// by renaming the staged file into place or aborted by unlinking it, and
// a stateless reader over the committed file.
package bucket

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/public/tahoe-lafs/internal/logger"
	"github.com/public/tahoe-lafs/pkg/share"
	"github.com/public/tahoe-lafs/pkg/storageindex"
)

// State is one of the three states a Writer passes through. Once COMMITTED
// or ABORTED, every method rejects further calls.
type State int

const (
	StateOpen State = iota
	StateCommitted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ErrClosed is returned by any call made after the writer has left the
// OPEN state.
var ErrClosed = errors.New("bucket: writer is no longer open")

// CommitObserver is notified when a writer leaves the OPEN state. size is
// the final committed length on commit, or 0 on abort. Implementations
// typically register the starter lease in the lease database (spec.md
// §4.2) and record façade latency/counters.
type CommitObserver interface {
	BucketWriterClosed(si storageindex.StorageIndex, shnum storageindex.ShareNumber, size int64, committed bool) error
}

// Writer drives one share through OPEN -> COMMITTED|ABORTED. Its
// state-changing methods are serialized by an internal mutex, so a
// disconnect notification arriving on another goroutine cannot race a
// WriteAt, Close or Abort.
type Writer struct {
	mu       sync.Mutex
	state    State
	layout   share.Layout
	si       storageindex.StorageIndex
	shnum    storageindex.ShareNumber
	allocSz  uint64
	container *share.Container
	observer CommitObserver
	token    DisconnectToken
}

// New stages a new share container and subscribes to the canary's
// disconnect notification; losing the connection before Close triggers
// Abort (spec.md §4.2, "peer disconnect").
func New(layout share.Layout, si storageindex.StorageIndex, shnum storageindex.ShareNumber, allocatedSize uint64, canary Canary, observer CommitObserver) (*Writer, error) {
	container, err := share.Create(layout.IncomingPath(si, shnum), allocatedSize)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		state:     StateOpen,
		layout:    layout,
		si:        si,
		shnum:     shnum,
		allocSz:   allocatedSize,
		container: container,
		observer:  observer,
	}
	w.token = canary.NotifyOnDisconnect(w.onDisconnect)
	return w, nil
}

// AllocatedSize reports the size the writer was allocated, independent of
// bytes actually written so far.
func (w *Writer) AllocatedSize() uint64 {
	return w.allocSz
}

// WriteAt forwards to the staged container. Fails with ErrClosed once the
// writer has committed or aborted, or with share.ErrDataTooLarge if the
// write would exceed AllocatedSize; in the latter case no bytes are
// written.
func (w *Writer) WriteAt(offset uint64, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateOpen {
		return ErrClosed
	}
	return w.container.WriteAt(offset, data)
}

// Close commits the share: renames the staged file into its final path,
// best-effort removes now-empty staging parent directories, and reports
// the final length to the observer. After Close the writer must not be
// called again.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateOpen {
		return ErrClosed
	}

	incoming := w.layout.IncomingPath(w.si, w.shnum)
	final := w.layout.FinalPath(w.si, w.shnum)

	if err := w.container.Sync(); err != nil {
		return fmt.Errorf("bucket: sync before commit: %w", err)
	}
	if err := w.container.Close(); err != nil {
		return fmt.Errorf("bucket: close staged container: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(final), 0755); err != nil {
		return fmt.Errorf("bucket: create final dir: %w", err)
	}
	if err := os.Rename(incoming, final); err != nil {
		return fmt.Errorf("bucket: commit rename: %w", err)
	}

	rmdirBestEffort(filepath.Dir(incoming))
	rmdirBestEffort(filepath.Dir(filepath.Dir(incoming)))

	info, err := os.Stat(final)
	if err != nil {
		return fmt.Errorf("bucket: stat committed share: %w", err)
	}

	w.token.Unsubscribe()
	w.state = StateCommitted
	w.container = nil

	if w.observer != nil {
		return w.observer.BucketWriterClosed(w.si, w.shnum, info.Size(), true)
	}
	return nil
}

// Abort discards the staged share: unlinks the staged file and
// best-effort removes the now-empty staging parent directory, reporting a
// zero-length close to the observer.
func (w *Writer) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.abortLocked()
}

func (w *Writer) abortLocked() error {
	if w.state != StateOpen {
		return ErrClosed
	}

	incoming := w.layout.IncomingPath(w.si, w.shnum)

	if w.container != nil {
		w.container.Close()
		w.container = nil
	}
	if err := os.Remove(incoming); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("bucket: abort unlink: %w", err)
	}

	rmdirBestEffort(filepath.Dir(incoming))

	w.token.Unsubscribe()
	w.state = StateAborted

	if w.observer != nil {
		return w.observer.BucketWriterClosed(w.si, w.shnum, 0, false)
	}
	return nil
}

// onDisconnect is the canary callback: abort if still open, otherwise a
// no-op (a writer that already committed or aborted ignores a late
// disconnect notification).
func (w *Writer) onDisconnect() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateOpen {
		return
	}
	if err := w.abortLocked(); err != nil {
		logger.Warn("bucket writer: abort on disconnect failed", logger.StorageIndex(w.si.String()), logger.ShareNumber(uint64(w.shnum)), "error", err)
	}
}

// rmdirBestEffort removes dir if empty, silently absorbing the expected
// "directory not empty" case (another in-flight share shares the prefix).
// Never recurses; other errors are logged but not propagated, matching
// spec.md §4.2's "best-effort" contract.
func rmdirBestEffort(dir string) {
	err := os.Remove(dir)
	if err == nil || os.IsNotExist(err) {
		return
	}
	if isDirNotEmpty(err) {
		return
	}
	logger.Debug("bucket: best-effort rmdir failed", logger.KeyPath, dir, "error", err)
}
