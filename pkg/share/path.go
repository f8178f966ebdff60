package share

import (
	"path/filepath"
	"strconv"

	"github.com/public/tahoe-lafs/pkg/storageindex"
)

// Layout resolves the staged and committed paths for a share, rooted at a
// base directory. It is the only place in the codebase that knows the
// on-disk directory structure described in spec.md §6.
type Layout struct {
	Base string
}

// NewLayout returns a Layout rooted at base.
func NewLayout(base string) Layout {
	return Layout{Base: base}
}

// IncomingPath returns the staging path:
// <base>/shares/incoming/<prefix>/<storage_index>/<shnum>
func (l Layout) IncomingPath(si storageindex.StorageIndex, shnum storageindex.ShareNumber) string {
	return filepath.Join(l.Base, "shares", "incoming", si.Prefix(), si.String(), strconv.FormatUint(uint64(shnum), 10))
}

// FinalPath returns the committed path:
// <base>/shares/<prefix>/<storage_index>/<shnum>
func (l Layout) FinalPath(si storageindex.StorageIndex, shnum storageindex.ShareNumber) string {
	return filepath.Join(l.Base, "shares", si.Prefix(), si.String(), strconv.FormatUint(uint64(shnum), 10))
}

// PrefixDir returns the committed-share directory for a given two-character
// prefix: <base>/shares/<prefix>
func (l Layout) PrefixDir(prefix string) string {
	return filepath.Join(l.Base, "shares", prefix)
}

// StorageIndexDir returns the committed directory holding every share of
// one storage index: <base>/shares/<prefix>/<storage_index>
func (l Layout) StorageIndexDir(si storageindex.StorageIndex) string {
	return filepath.Join(l.Base, "shares", si.Prefix(), si.String())
}

// AccountsDir returns <base>/accounts.
func (l Layout) AccountsDir() string {
	return filepath.Join(l.Base, "accounts")
}
