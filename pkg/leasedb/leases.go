package leasedb

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/public/tahoe-lafs/pkg/storageindex"
)

// AddOrRenewLease inserts a lease for (si, shnum) under ownerNum, or
// renews an existing one if renewSecret already names a lease on that
// share (spec.md §4.2 add_lease/renew_lease share one code path: renewal
// is just "add a lease whose secrets match an existing one").
func (db *DB) AddOrRenewLease(si storageindex.StorageIndex, shnum storageindex.ShareNumber, ownerNum int64, renewSecret, cancelSecret string, expiration time.Time) error {
	return db.gdb.Transaction(func(tx *gorm.DB) error {
		var share shareRow
		if err := tx.Where("storage_index = ? AND shnum = ?", si.String(), shnum).First(&share).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("leasedb: add lease: no such share %s/%d", si, shnum)
			}
			return fmt.Errorf("leasedb: add lease: %w", err)
		}

		var existing leaseRow
		err := tx.Where("share_id = ? AND renew_secret = ?", share.ID, renewSecret).First(&existing).Error
		switch {
		case err == nil:
			existing.ExpirationTime = expiration.Unix()
			return tx.Save(&existing).Error
		case err == gorm.ErrRecordNotFound:
			lease := leaseRow{
				ShareID:        share.ID,
				AccountID:      ownerNum,
				ExpirationTime: expiration.Unix(),
				RenewSecret:    renewSecret,
				CancelSecret:   cancelSecret,
			}
			return tx.Create(&lease).Error
		default:
			return fmt.Errorf("leasedb: add lease: lookup existing: %w", err)
		}
	})
}

// CancelLease removes the lease on (si, shnum) matching cancelSecret. It
// is a no-op, not an error, if no such lease exists: spec.md §4.2 notes
// cancellation races with expiration are expected and harmless.
func (db *DB) CancelLease(si storageindex.StorageIndex, shnum storageindex.ShareNumber, cancelSecret string) error {
	err := db.gdb.
		Where("cancel_secret = ? AND share_id IN (?)", cancelSecret,
			db.gdb.Model(&shareRow{}).Select("id").Where("storage_index = ? AND shnum = ?", si.String(), shnum)).
		Delete(&leaseRow{}).Error
	if err != nil {
		return fmt.Errorf("leasedb: cancel lease: %w", err)
	}
	return nil
}

// ExpiredShareLeases returns the account ids of every lease on the given
// share whose expiration_time is before cutoff, without deleting them.
// The crawler's lease-expiration pass uses ExpireLeases instead.
func (db *DB) ExpiredShareLeases(si storageindex.StorageIndex, shnum storageindex.ShareNumber, cutoff time.Time) ([]int64, error) {
	var accountIDs []int64
	err := db.gdb.Model(&leaseRow{}).
		Joins("JOIN shares ON shares.id = leases.share_id").
		Where("shares.storage_index = ? AND shares.shnum = ? AND leases.expiration_time < ?", si.String(), shnum, cutoff.Unix()).
		Pluck("leases.account_id", &accountIDs).Error
	if err != nil {
		return nil, fmt.Errorf("leasedb: expired leases for %s/%d: %w", si, shnum, err)
	}
	return accountIDs, nil
}

// ExpireLeases deletes every lease row on (si, shnum) whose
// expiration_time is before cutoff, and reports whether any lease remains
// on the share afterward. The crawler uses the remaining count to decide
// whether the share itself should be deleted.
func (db *DB) ExpireLeases(si storageindex.StorageIndex, shnum storageindex.ShareNumber, cutoff time.Time) (remaining int64, err error) {
	err = db.gdb.Transaction(func(tx *gorm.DB) error {
		remaining, err = expireLeases(tx, si, shnum, cutoff)
		return err
	})
	return remaining, err
}

func expireLeases(tx *gorm.DB, si storageindex.StorageIndex, shnum storageindex.ShareNumber, cutoff time.Time) (remaining int64, err error) {
	var share shareRow
	if txErr := tx.Where("storage_index = ? AND shnum = ?", si.String(), shnum).First(&share).Error; txErr != nil {
		return 0, fmt.Errorf("leasedb: expire leases: %w", txErr)
	}
	if txErr := tx.Where("share_id = ? AND expiration_time < ?", share.ID, cutoff.Unix()).Delete(&leaseRow{}).Error; txErr != nil {
		return 0, fmt.Errorf("leasedb: expire leases: delete: %w", txErr)
	}
	if txErr := tx.Model(&leaseRow{}).Where("share_id = ?", share.ID).Count(&remaining).Error; txErr != nil {
		return 0, txErr
	}
	return remaining, nil
}

// LeasesForShare lists every lease on (si, shnum), for get_buckets-style
// queries that report lease metadata alongside share presence.
func (db *DB) LeasesForShare(si storageindex.StorageIndex, shnum storageindex.ShareNumber) ([]LeaseInfo, error) {
	var rows []leaseRow
	err := db.gdb.
		Joins("JOIN shares ON shares.id = leases.share_id").
		Where("shares.storage_index = ? AND shares.shnum = ?", si.String(), shnum).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("leasedb: leases for %s/%d: %w", si, shnum, err)
	}
	out := make([]LeaseInfo, len(rows))
	for i, r := range rows {
		out[i] = LeaseInfo{
			AccountID:      r.AccountID,
			ExpirationTime: time.Unix(r.ExpirationTime, 0).UTC(),
		}
	}
	return out, nil
}

// LeaseInfo is a lease as surfaced outside the package, with
// ExpirationTime decoded to a time.Time.
type LeaseInfo struct {
	AccountID      int64
	ExpirationTime time.Time
}
