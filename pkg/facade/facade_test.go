package facade

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/public/tahoe-lafs/pkg/bucket"
	"github.com/public/tahoe-lafs/pkg/leasedb"
	"github.com/public/tahoe-lafs/pkg/share"
	"github.com/public/tahoe-lafs/pkg/storageindex"
)

func newTestFacade(t *testing.T) (*Facade, *leasedb.DB, share.Layout) {
	t.Helper()
	base := t.TempDir()
	layout := share.NewLayout(base)
	db, err := leasedb.Open(leasedb.Config{Driver: leasedb.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(layout, db, nil), db, layout
}

func secret(fill byte, n int) string {
	return strings.Repeat(string(fill), n)
}

func TestAllocateBuckets_NewShareGetsWriterAndStarterLease(t *testing.T) {
	f, db, _ := newTestFacade(t)
	si := testSI(t, "aaaaaaaaaaaaaaaaaaaaaaaaaa")

	resp, err := f.AllocateBuckets(42, AllocateBucketsRequest{
		StorageIndex:  si,
		RenewSecret:   secret('r', 52),
		CancelSecret:  secret('c', 52),
		ShareNumbers:  []storageindex.ShareNumber{0, 1},
		AllocatedSize: 1024,
		Canary:        bucket.NoCanary(),
	})
	require.NoError(t, err)
	assert.Empty(t, resp.AlreadyHave)
	require.Len(t, resp.Writers, 2)

	writer := resp.Writers[0]
	require.NoError(t, writer.WriteAt(0, []byte("hello")))
	require.NoError(t, writer.Close())

	shares, err := db.GetSharesForPrefix(si.Prefix())
	require.NoError(t, err)
	require.Len(t, shares, 1)

	leases, err := db.LeasesForShare(si, 0)
	require.NoError(t, err)
	require.Len(t, leases, 2) // starter + requesting account
	accountIDs := []int64{leases[0].AccountID, leases[1].AccountID}
	assert.Contains(t, accountIDs, int64(42))
	assert.Contains(t, accountIDs, int64(leasedb.StarterLeaseAccountID))
}

func TestAllocateBuckets_ExistingShareReportedAlreadyHave(t *testing.T) {
	f, db, layout := newTestFacade(t)
	si := testSI(t, "bbbbbbbbbbbbbbbbbbbbbbbbbb")
	require.NoError(t, db.AddShare(si, 0, 10))

	// AllocateBuckets decides "already have" from the committed file on
	// disk, so the share must exist there, not only as a database row.
	writer, err := bucket.New(layout, si, 0, 10, bucket.NoCanary(), noopObserver{})
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := f.AllocateBuckets(7, AllocateBucketsRequest{
		StorageIndex:  si,
		RenewSecret:   secret('r', 52),
		CancelSecret:  secret('c', 52),
		ShareNumbers:  []storageindex.ShareNumber{0},
		AllocatedSize: 10,
		Canary:        bucket.NoCanary(),
	})
	require.NoError(t, err)
	assert.Equal(t, []storageindex.ShareNumber{0}, resp.AlreadyHave)
	assert.Empty(t, resp.Writers)
}

func TestAllocateBuckets_RejectsInvalidRequest(t *testing.T) {
	f, _, _ := newTestFacade(t)
	si := testSI(t, "cccccccccccccccccccccccccc")

	_, err := f.AllocateBuckets(1, AllocateBucketsRequest{
		StorageIndex: si,
		ShareNumbers: []storageindex.ShareNumber{0},
	})
	assert.Error(t, err)
}

func TestGetBuckets_OnlyReturnsExistingShares(t *testing.T) {
	f, _, layout := newTestFacade(t)
	si := testSI(t, "dddddddddddddddddddddddddd")

	writer, err := bucket.New(layout, si, 0, 10, bucket.NoCanary(), noopObserver{})
	require.NoError(t, err)
	require.NoError(t, writer.WriteAt(0, []byte("0123456789")))
	require.NoError(t, writer.Close())

	readers, err := f.GetBuckets(si, nil)
	require.NoError(t, err)
	require.Len(t, readers, 1)
	_, ok := readers[0]
	assert.True(t, ok)
}

func TestCancelLease(t *testing.T) {
	f, db, _ := newTestFacade(t)
	si := testSI(t, "eeeeeeeeeeeeeeeeeeeeeeeeee")
	require.NoError(t, db.AddShare(si, 0, 10))

	require.NoError(t, f.AddLease(9, LeaseRequest{
		StorageIndex: si,
		RenewSecret:  secret('r', 52),
		CancelSecret: "my-cancel-secret",
	}))

	require.NoError(t, f.CancelLease(si, "my-cancel-secret"))

	leases, err := db.LeasesForShare(si, 0)
	require.NoError(t, err)
	require.Len(t, leases, 1) // starter lease remains
	assert.Equal(t, int64(leasedb.StarterLeaseAccountID), leases[0].AccountID)
}

type noopObserver struct{}

func (noopObserver) BucketWriterClosed(storageindex.StorageIndex, storageindex.ShareNumber, int64, bool) error {
	return nil
}

func testSI(t *testing.T, s string) storageindex.StorageIndex {
	t.Helper()
	si, err := storageindex.Parse(s)
	require.NoError(t, err)
	return si
}
