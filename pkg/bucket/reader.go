package bucket

import (
	"fmt"

	"github.com/public/tahoe-lafs/pkg/share"
	"github.com/public/tahoe-lafs/pkg/storageindex"
)

// CorruptionObserver receives corruption advisories forwarded from a
// Reader. The façade implements this by logging and surfacing the report
// to operators; spec.md §4.3 keys each advisory by (share_type,
// storage_index, shnum).
type CorruptionObserver interface {
	AdviseCorruptShare(shareType string, si storageindex.StorageIndex, shnum storageindex.ShareNumber, reason string) error
}

// Reader is a stateless, read-only view over one committed share. Unlike
// Writer it has no state machine: every call is valid for the Reader's
// entire lifetime, ended only by Close.
type Reader struct {
	si        storageindex.StorageIndex
	shnum     storageindex.ShareNumber
	container *share.Container
	observer  CorruptionObserver
}

// Open opens the committed share at layout.FinalPath(si, shnum) for
// reading. It fails with share.ErrUnknownVersion if the header version is
// not 1.
func Open(layout share.Layout, si storageindex.StorageIndex, shnum storageindex.ShareNumber, observer CorruptionObserver) (*Reader, error) {
	container, err := share.Open(layout.FinalPath(si, shnum))
	if err != nil {
		return nil, err
	}
	return &Reader{si: si, shnum: shnum, container: container, observer: observer}, nil
}

// ReadAt delegates to the underlying container; see share.Container.ReadAt
// for truncation/EOF semantics.
func (r *Reader) ReadAt(offset uint64, length int) ([]byte, error) {
	return r.container.ReadAt(offset, length)
}

// AdviseCorruptShare forwards a corruption report to the observer, keyed
// by (share_type="immutable", storage index, share number).
func (r *Reader) AdviseCorruptShare(reason string) error {
	if r.observer == nil {
		return nil
	}
	if err := r.observer.AdviseCorruptShare("immutable", r.si, r.shnum, reason); err != nil {
		return fmt.Errorf("bucket: advise corrupt share: %w", err)
	}
	return nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.container.Close()
}
