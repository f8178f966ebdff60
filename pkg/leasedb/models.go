package leasedb

import "time"

// CurrentSchemaVersion is the only schema version this implementation
// creates or accepts (spec.md §4.4: "initialized with schema version 1").
const CurrentSchemaVersion = 1

// AnonymousAccountID is account id 0, reserved for anonymous wire callers.
// It is never assigned a starter lease; it exists purely so
// get_or_allocate_ownernum("anonymous") and owner-number-0 wire callers
// resolve to a stable row.
const AnonymousAccountID = 0

// StarterLeaseAccountID is account id 1, the owner of every starter lease
// inserted by AddShare (spec.md §3, §8 invariant 3).
const StarterLeaseAccountID = 1

// AnonymousAccountName is the reserved name that always maps to account id 0.
const AnonymousAccountName = "anonymous"

// StarterLeaseDuration is 60 days, per spec.md §3.
const StarterLeaseDuration = 60 * 24 * time.Hour

// schemaVersionRow is the single-row version table.
type schemaVersionRow struct {
	ID      uint `gorm:"primaryKey"`
	Version int
}

func (schemaVersionRow) TableName() string { return "schema_version" }

// shareRow mirrors spec.md §3's shares table: unique on (storage_index,
// shnum), indexed on prefix.
type shareRow struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Prefix       string `gorm:"size:2;index"`
	StorageIndex string `gorm:"size:26;uniqueIndex:ux_share_id"`
	Shnum        uint32 `gorm:"uniqueIndex:ux_share_id"`
	Size         int64
}

func (shareRow) TableName() string { return "shares" }

// leaseRow mirrors spec.md §3's leases table.
type leaseRow struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	ShareID        uint64 `gorm:"index"`
	AccountID      int64  `gorm:"index"`
	ExpirationTime int64  `gorm:"index"`
	RenewSecret    string `gorm:"size:52"`
	CancelSecret   string `gorm:"size:52"`
}

func (leaseRow) TableName() string { return "leases" }

// accountRow mirrors spec.md §3's accounts table. Name is unique so
// GetOrAllocateOwnernum can look accounts up by their pubkey string.
type accountRow struct {
	ID           int64  `gorm:"primaryKey"`
	Name         string `gorm:"uniqueIndex"`
	CreationTime int64
}

func (accountRow) TableName() string { return "accounts" }

// accountAttributeRow is per-account string-valued key/value metadata
// (spec.md §4.4 get/set_account_attribute).
type accountAttributeRow struct {
	OwnerNum int64  `gorm:"primaryKey;autoIncrement:false;uniqueIndex:ux_attr"`
	Key      string `gorm:"primaryKey;autoIncrement:false;uniqueIndex:ux_attr"`
	Value    string
}

func (accountAttributeRow) TableName() string { return "account_attributes" }

func allModels() []any {
	return []any{
		&schemaVersionRow{},
		&shareRow{},
		&leaseRow{},
		&accountRow{},
		&accountAttributeRow{},
	}
}
