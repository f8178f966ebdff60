package leasedb

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/public/tahoe-lafs/pkg/storageindex"
)

// ShareInfo is a (storage_index, shnum, size) row as returned to the
// crawler during reconciliation.
type ShareInfo struct {
	StorageIndex storageindex.StorageIndex
	Shnum        storageindex.ShareNumber
	Size         int64
}

// GetSharesForPrefix returns every share row whose storage index begins
// with prefix, for the crawler to diff against what it finds on disk.
func (db *DB) GetSharesForPrefix(prefix string) ([]ShareInfo, error) {
	var rows []shareRow
	if err := db.gdb.Where("prefix = ?", prefix).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("leasedb: get shares for prefix %q: %w", prefix, err)
	}
	out := make([]ShareInfo, len(rows))
	for i, r := range rows {
		si, err := storageindex.Parse(r.StorageIndex)
		if err != nil {
			return nil, fmt.Errorf("leasedb: corrupt storage index %q in row %d: %w", r.StorageIndex, r.ID, err)
		}
		out[i] = ShareInfo{StorageIndex: si, Shnum: storageindex.ShareNumber(r.Shnum), Size: r.Size}
	}
	return out, nil
}

// AddShare inserts the (storage_index, shnum) row and, atomically with it,
// a starter lease under StarterLeaseAccountID expiring StarterLeaseDuration
// from now (spec.md §3, §8 invariant 3). Returns ErrShareExists if the pair
// is already present.
func (db *DB) AddShare(si storageindex.StorageIndex, shnum storageindex.ShareNumber, size int64) error {
	return db.gdb.Transaction(func(tx *gorm.DB) error {
		return addShare(tx, si, shnum, size)
	})
}

func addShare(tx *gorm.DB, si storageindex.StorageIndex, shnum storageindex.ShareNumber, size int64) error {
	row := shareRow{
		Prefix:       si.Prefix(),
		StorageIndex: si.String(),
		Shnum:        uint32(shnum),
		Size:         size,
	}
	if err := tx.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrShareExists
		}
		return fmt.Errorf("leasedb: add share: %w", err)
	}

	lease := leaseRow{
		ShareID:        row.ID,
		AccountID:      StarterLeaseAccountID,
		ExpirationTime: time.Now().Add(StarterLeaseDuration).Unix(),
	}
	if err := tx.Create(&lease).Error; err != nil {
		return fmt.Errorf("leasedb: insert starter lease: %w", err)
	}
	return nil
}

// RemoveDeletedShares deletes the rows for shares no longer present on
// disk, along with their leases. The crawler calls this once per prefix
// reconciliation pass with the share numbers it failed to find.
func (db *DB) RemoveDeletedShares(si storageindex.StorageIndex, shnums []storageindex.ShareNumber) error {
	if len(shnums) == 0 {
		return nil
	}
	return db.gdb.Transaction(func(tx *gorm.DB) error {
		return removeDeletedShares(tx, si, shnums)
	})
}

func removeDeletedShares(tx *gorm.DB, si storageindex.StorageIndex, shnums []storageindex.ShareNumber) error {
	if len(shnums) == 0 {
		return nil
	}
	var ids []uint64
	if err := tx.Model(&shareRow{}).
		Where("storage_index = ? AND shnum IN ?", si.String(), shnums).
		Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("leasedb: find shares to remove: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("share_id IN ?", ids).Delete(&leaseRow{}).Error; err != nil {
		return fmt.Errorf("leasedb: remove leases: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&shareRow{}).Error; err != nil {
		return fmt.Errorf("leasedb: remove shares: %w", err)
	}
	return nil
}

// ChangeShareSize updates the recorded size of an existing share. The
// crawler does not call it: a share row keeps the size recorded when it
// was added, even if the file's on-disk size later differs.
func (db *DB) ChangeShareSize(si storageindex.StorageIndex, shnum storageindex.ShareNumber, newSize int64) error {
	res := db.gdb.Model(&shareRow{}).
		Where("storage_index = ? AND shnum = ?", si.String(), shnum).
		Update("size", newSize)
	if res.Error != nil {
		return fmt.Errorf("leasedb: change share size: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("leasedb: change share size: %s/%d: %w", si, shnum, gorm.ErrRecordNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
