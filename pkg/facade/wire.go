package facade

import (
	"time"

	"github.com/public/tahoe-lafs/pkg/accountant"
	"github.com/public/tahoe-lafs/pkg/bucket"
	"github.com/public/tahoe-lafs/pkg/storageindex"
)

// ClientLeaseDuration is how long a lease explicitly established by a
// caller (through allocate_buckets, add_lease, or renew_lease) lasts
// before it must be renewed, distinct from the starter lease every
// AddShare inserts automatically.
const ClientLeaseDuration = 31 * 24 * time.Hour

// AllocateBucketsRequest is the validated form of the allocate_buckets
// wire call (spec.md §6).
type AllocateBucketsRequest struct {
	StorageIndex  storageindex.StorageIndex  `validate:"required"`
	RenewSecret   string                     `validate:"required,len=52"`
	CancelSecret  string                     `validate:"required,len=52"`
	ShareNumbers  []storageindex.ShareNumber `validate:"required,min=1"`
	AllocatedSize uint64                     `validate:"required,gt=0"`
	Canary        bucket.Canary
}

// AllocateBucketsResponse reports which requested shares already exist
// (no writer is returned for those) and a writer for each newly
// allocated one.
type AllocateBucketsResponse struct {
	AlreadyHave []storageindex.ShareNumber
	Writers     map[storageindex.ShareNumber]*bucket.Writer
}

// LeaseRequest is add_lease's wire shape. RenewLease takes its arguments
// directly rather than through this struct.
type LeaseRequest struct {
	StorageIndex storageindex.StorageIndex `validate:"required"`
	RenewSecret  string                    `validate:"required,len=52"`
	CancelSecret string                    `validate:"required"`
}

// CancelLeaseRequest is cancel_lease's wire shape.
type CancelLeaseRequest struct {
	StorageIndex storageindex.StorageIndex `validate:"required"`
	CancelSecret string                    `validate:"required"`
}

// AdviseCorruptShareRequest is advise_corrupt_share's wire shape.
type AdviseCorruptShareRequest struct {
	ShareType    string                    `validate:"required"`
	StorageIndex storageindex.StorageIndex `validate:"required"`
	ShareNumber  storageindex.ShareNumber
	Reason       string `validate:"required"`
}

// VersionInfo answers get_version.
type VersionInfo struct {
	ApplicationVersion        string
	MaximumImmutableShareSize uint64
	AvailableSpace            int64
}

// Status answers get_status: live push state plus connection history.
type Status struct {
	AccountStatus accountant.AccountStatus
	Connection    accountant.ConnectionStatus
}
