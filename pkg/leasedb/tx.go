package leasedb

import (
	"time"

	"gorm.io/gorm"

	"github.com/public/tahoe-lafs/pkg/storageindex"
)

// Tx exposes the subset of DB's write operations that must commit
// together as a single transaction, for callers (the crawler's per-prefix
// reconciliation) that need spec.md §5's guarantee that lease database
// updates within one crawler slice are atomic.
type Tx struct {
	gdb *gorm.DB
}

// Transact runs fn inside a single database transaction. If fn returns a
// non-nil error, every write fn made through tx is rolled back.
func (db *DB) Transact(fn func(tx *Tx) error) error {
	return db.gdb.Transaction(func(gtx *gorm.DB) error {
		return fn(&Tx{gdb: gtx})
	})
}

// AddShare is Tx's transaction-scoped equivalent of DB.AddShare.
func (tx *Tx) AddShare(si storageindex.StorageIndex, shnum storageindex.ShareNumber, size int64) error {
	return addShare(tx.gdb, si, shnum, size)
}

// RemoveDeletedShares is Tx's transaction-scoped equivalent of
// DB.RemoveDeletedShares.
func (tx *Tx) RemoveDeletedShares(si storageindex.StorageIndex, shnums []storageindex.ShareNumber) error {
	return removeDeletedShares(tx.gdb, si, shnums)
}

// ExpireLeases is Tx's transaction-scoped equivalent of DB.ExpireLeases.
func (tx *Tx) ExpireLeases(si storageindex.StorageIndex, shnum storageindex.ShareNumber, cutoff time.Time) (remaining int64, err error) {
	return expireLeases(tx.gdb, si, shnum, cutoff)
}
