// Package facade is the single entry point an RPC transport calls into:
// it ties together share storage (pkg/bucket, pkg/share), the lease
// database (pkg/leasedb), and account resolution (pkg/accountant) behind
// the wire operations spec.md §6 names. The wire transport itself
// (Foolscap in the original, something else here) is out of scope per
// spec.md's Non-goals; this package assumes requests arrive already
// deserialized and owner-resolved.
package facade

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/public/tahoe-lafs/internal/logger"
	"github.com/public/tahoe-lafs/pkg/accountant"
	"github.com/public/tahoe-lafs/pkg/bucket"
	"github.com/public/tahoe-lafs/pkg/leasedb"
	"github.com/public/tahoe-lafs/pkg/share"
	"github.com/public/tahoe-lafs/pkg/storageindex"
)

// ApplicationVersion is reported by GetVersion; set at build time via
// -ldflags in production builds, left as a default for tests.
var ApplicationVersion = "dev"

// Facade is safe for concurrent use; every method it exposes may be
// called from many connection-handling goroutines at once.
type Facade struct {
	layout   share.Layout
	db       *leasedb.DB
	metrics  *Metrics
	validate *validator.Validate
}

// New constructs a Facade rooted at layout and backed by db. Pass a nil
// *Metrics (via NewMetrics(nil)) to disable instrumentation.
func New(layout share.Layout, db *leasedb.DB, metrics *Metrics) *Facade {
	return &Facade{
		layout:   layout,
		db:       db,
		metrics:  metrics,
		validate: validator.New(),
	}
}

// AllocateBuckets implements allocate_buckets: for each requested share
// number, either reports it as already present or opens a new staged
// Writer for it. Shares reported already-have, and shares newly
// committed through the returned writers, both get (or renew) a lease
// for ownerNum using the given secrets.
func (f *Facade) AllocateBuckets(ownerNum int64, req AllocateBucketsRequest) (resp AllocateBucketsResponse, err error) {
	start := time.Now()
	defer func() { f.metrics.observe("allocate_buckets", start, err) }()

	if err = f.validate.Struct(req); err != nil {
		return resp, fmt.Errorf("facade: allocate_buckets: %w", err)
	}

	resp.Writers = make(map[storageindex.ShareNumber]*bucket.Writer, len(req.ShareNumbers))
	expiration := time.Now().Add(ClientLeaseDuration)

	for _, shnum := range req.ShareNumbers {
		finalPath := f.layout.FinalPath(req.StorageIndex, shnum)
		if _, statErr := os.Stat(finalPath); statErr == nil {
			resp.AlreadyHave = append(resp.AlreadyHave, shnum)
			if leaseErr := f.db.AddOrRenewLease(req.StorageIndex, shnum, ownerNum, req.RenewSecret, req.CancelSecret, expiration); leaseErr != nil {
				logger.Warn("facade: lease on already-present share failed", logger.StorageIndex(req.StorageIndex.String()), logger.ShareNumber(uint64(shnum)), "error", leaseErr)
			}
			continue
		}

		observer := &commitObserver{facade: f, ownerNum: ownerNum, renewSecret: req.RenewSecret, cancelSecret: req.CancelSecret, expiration: expiration}
		writer, werr := bucket.New(f.layout, req.StorageIndex, shnum, req.AllocatedSize, req.Canary, observer)
		if werr != nil {
			return resp, fmt.Errorf("facade: allocate_buckets: open writer for shnum %d: %w", shnum, werr)
		}
		resp.Writers[shnum] = writer
	}

	return resp, nil
}

// AddLease implements add_lease: establish (or refresh) a lease for
// ownerNum on an already-committed share.
func (f *Facade) AddLease(ownerNum int64, req LeaseRequest) (err error) {
	start := time.Now()
	defer func() { f.metrics.observe("add_lease", start, err) }()

	if err = f.validate.Struct(req); err != nil {
		return fmt.Errorf("facade: add_lease: %w", err)
	}

	expiration := time.Now().Add(ClientLeaseDuration)
	for shnum := storageindex.ShareNumber(0); shnum < maxShareNumberScan; shnum++ {
		if _, statErr := os.Stat(f.layout.FinalPath(req.StorageIndex, shnum)); statErr != nil {
			continue
		}
		if leaseErr := f.db.AddOrRenewLease(req.StorageIndex, shnum, ownerNum, req.RenewSecret, req.CancelSecret, expiration); leaseErr != nil {
			err = fmt.Errorf("facade: add_lease: shnum %d: %w", shnum, leaseErr)
			return err
		}
	}
	return nil
}

// RenewLease implements renew_lease: callers present only the renew
// secret, matching the original RSA-free scheme where the secret alone
// authorizes the renewal.
func (f *Facade) RenewLease(ownerNum int64, si storageindex.StorageIndex, shnum storageindex.ShareNumber, renewSecret string) (err error) {
	start := time.Now()
	defer func() { f.metrics.observe("renew_lease", start, err) }()

	expiration := time.Now().Add(ClientLeaseDuration)
	if err = f.db.AddOrRenewLease(si, shnum, ownerNum, renewSecret, "", expiration); err != nil {
		return fmt.Errorf("facade: renew_lease: %w", err)
	}
	return nil
}

// CancelLease implements cancel_lease.
func (f *Facade) CancelLease(si storageindex.StorageIndex, cancelSecret string) (err error) {
	start := time.Now()
	defer func() { f.metrics.observe("cancel_lease", start, err) }()

	// cancel_lease is keyed by (storage_index, cancel_secret) alone in
	// the wire protocol; it cancels the lease on every share number of
	// that storage index that the secret matches.
	for shnum := storageindex.ShareNumber(0); shnum < maxShareNumberScan; shnum++ {
		path := f.layout.FinalPath(si, shnum)
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		if cancelErr := f.db.CancelLease(si, shnum, cancelSecret); cancelErr != nil {
			err = cancelErr
			return err
		}
	}
	return nil
}

// maxShareNumberScan bounds the share-number scan of add_lease,
// cancel_lease and get_buckets; spec.md's
// erasure-coded share sets are always small (well under 256 shares).
const maxShareNumberScan = 256

// GetBuckets implements get_buckets: open a Reader for every share
// number of si that actually exists on disk.
func (f *Facade) GetBuckets(si storageindex.StorageIndex, observer bucket.CorruptionObserver) (readers map[storageindex.ShareNumber]*bucket.Reader, err error) {
	start := time.Now()
	defer func() { f.metrics.observe("get_buckets", start, err) }()

	readers = make(map[storageindex.ShareNumber]*bucket.Reader)
	for shnum := storageindex.ShareNumber(0); shnum < maxShareNumberScan; shnum++ {
		path := f.layout.FinalPath(si, shnum)
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		reader, openErr := bucket.Open(f.layout, si, shnum, observer)
		if openErr != nil {
			err = openErr
			return nil, fmt.Errorf("facade: get_buckets: open shnum %d: %w", shnum, openErr)
		}
		readers[shnum] = reader
	}
	return readers, nil
}

// AdviseCorruptShare implements advise_corrupt_share: log the report.
// spec.md §7 treats this as advisory only; it never mutates share state
// on its own.
func (f *Facade) AdviseCorruptShare(req AdviseCorruptShareRequest) (err error) {
	start := time.Now()
	defer func() { f.metrics.observe("advise_corrupt_share", start, err) }()

	if err = f.validate.Struct(req); err != nil {
		return fmt.Errorf("facade: advise_corrupt_share: %w", err)
	}
	logger.Warn("facade: corruption advisory",
		"share_type", req.ShareType,
		logger.StorageIndex(req.StorageIndex.String()),
		logger.ShareNumber(uint64(req.ShareNumber)),
		"reason", req.Reason)
	return nil
}

// GetVersion implements get_version.
func (f *Facade) GetVersion() VersionInfo {
	return VersionInfo{
		ApplicationVersion:        ApplicationVersion,
		MaximumImmutableShareSize: ^uint64(0),
		AvailableSpace:            -1,
	}
}

// GetStatus implements get_status: the account's currently pushed
// permission set plus its connection history.
func (f *Facade) GetStatus(acct *accountant.Account) (Status, error) {
	conn, err := acct.ConnectionStatus()
	if err != nil {
		return Status{}, fmt.Errorf("facade: get_status: %w", err)
	}
	return Status{AccountStatus: acct.Status(), Connection: conn}, nil
}

// GetAccountMessage implements get_account_message.
func (f *Facade) GetAccountMessage(acct *accountant.Account) accountant.AccountMessage {
	return acct.Message()
}

// GetCurrentUsage implements get_current_usage.
func (f *Facade) GetCurrentUsage(acct *accountant.Account) (int64, error) {
	usage, err := acct.CurrentUsage()
	if err != nil {
		return 0, fmt.Errorf("facade: get_current_usage: %w", err)
	}
	return usage, nil
}

// commitObserver implements bucket.CommitObserver for one allocation: on
// commit it records the share (inserting the starter lease) and
// registers the requesting account's own lease; on abort it does
// nothing, since no share row was ever created.
type commitObserver struct {
	facade       *Facade
	ownerNum     int64
	renewSecret  string
	cancelSecret string
	expiration   time.Time
}

func (o *commitObserver) BucketWriterClosed(si storageindex.StorageIndex, shnum storageindex.ShareNumber, size int64, committed bool) error {
	if !committed {
		return nil
	}

	if err := o.facade.db.AddShare(si, shnum, size); err != nil && err != leasedb.ErrShareExists {
		return fmt.Errorf("facade: record committed share: %w", err)
	}
	if err := o.facade.db.AddOrRenewLease(si, shnum, o.ownerNum, o.renewSecret, o.cancelSecret, o.expiration); err != nil {
		return fmt.Errorf("facade: lease committed share: %w", err)
	}
	return nil
}
