package leasedb

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// AccountInfo is a row from the accounts table as surfaced to operators
// via sharenodectl and the admin API.
type AccountInfo struct {
	OwnerNum     int64
	Name         string
	CreationTime time.Time
}

// GetOrAllocateOwnernum returns the owner number for the account named by
// pubkeyString (spec.md §4.5's stable pubkey-string identity), creating
// the row on first sight. The anonymous name always resolves to
// AnonymousAccountID without touching the database.
func (db *DB) GetOrAllocateOwnernum(pubkeyString string) (int64, error) {
	if pubkeyString == AnonymousAccountName {
		return AnonymousAccountID, nil
	}

	var row accountRow
	err := db.gdb.Where("name = ?", pubkeyString).First(&row).Error
	if err == nil {
		return row.ID, nil
	}
	if err != gorm.ErrRecordNotFound {
		return 0, fmt.Errorf("leasedb: lookup account %q: %w", pubkeyString, err)
	}

	row = accountRow{Name: pubkeyString, CreationTime: time.Now().Unix()}
	if err := db.gdb.Create(&row).Error; err != nil {
		// Lost a race with a concurrent first-sight of the same account;
		// re-read rather than surface a spurious uniqueness error.
		if isUniqueViolation(err) {
			if err := db.gdb.Where("name = ?", pubkeyString).First(&row).Error; err != nil {
				return 0, fmt.Errorf("leasedb: reread account %q after race: %w", pubkeyString, err)
			}
			return row.ID, nil
		}
		return 0, fmt.Errorf("leasedb: create account %q: %w", pubkeyString, err)
	}
	return row.ID, nil
}

// GetAllAccounts lists every account row, for sharenodectl's "account
// list" and the admin API's /accounts endpoint.
func (db *DB) GetAllAccounts() ([]AccountInfo, error) {
	var rows []accountRow
	if err := db.gdb.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("leasedb: list accounts: %w", err)
	}
	out := make([]AccountInfo, len(rows))
	for i, r := range rows {
		out[i] = AccountInfo{OwnerNum: r.ID, Name: r.Name, CreationTime: time.Unix(r.CreationTime, 0).UTC()}
	}
	return out, nil
}

// GetAccountUsage returns the total size, in bytes, of every share for
// which ownerNum holds a lease. Shares held by more than one account are
// counted once per holder, matching spec.md §4.5's "what is this account
// keeping alive" framing rather than a storage-server-wide total.
func (db *DB) GetAccountUsage(ownerNum int64) (int64, error) {
	var total int64
	err := db.gdb.Model(&leaseRow{}).
		Joins("JOIN shares ON shares.id = leases.share_id").
		Where("leases.account_id = ?", ownerNum).
		Select("COALESCE(SUM(shares.size), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("leasedb: account usage for owner %d: %w", ownerNum, err)
	}
	return total, nil
}

// GetAccountAttribute reads a single string attribute previously set by
// SetAccountAttribute. ok is false if no value has been set.
func (db *DB) GetAccountAttribute(ownerNum int64, key string) (value string, ok bool, err error) {
	var row accountAttributeRow
	err = db.gdb.Where("owner_num = ? AND key = ?", ownerNum, key).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("leasedb: get attribute %q for owner %d: %w", key, ownerNum, err)
	}
	return row.Value, true, nil
}

// SetAccountAttribute upserts a single string attribute for ownerNum, e.g.
// nickname, last_connected_from, last_seen (spec.md §4.5).
func (db *DB) SetAccountAttribute(ownerNum int64, key, value string) error {
	row := accountAttributeRow{OwnerNum: ownerNum, Key: key, Value: value}
	err := db.gdb.Clauses(onConflictUpdateValue()).Create(&row).Error
	if err != nil {
		return fmt.Errorf("leasedb: set attribute %q for owner %d: %w", key, ownerNum, err)
	}
	return nil
}
