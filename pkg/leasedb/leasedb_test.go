package leasedb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/public/tahoe-lafs/pkg/storageindex"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testSI(t *testing.T, s string) storageindex.StorageIndex {
	t.Helper()
	si, err := storageindex.Parse(s)
	require.NoError(t, err)
	return si
}

func TestOpen_SeedsAnonymousAndStarterAccounts(t *testing.T) {
	db := openTestDB(t)

	accounts, err := db.GetAllAccounts()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, int64(AnonymousAccountID), accounts[0].OwnerNum)
	assert.Equal(t, int64(StarterLeaseAccountID), accounts[1].OwnerNum)
}

func TestOpen_RejectsSchemaMismatch(t *testing.T) {
	db := openTestDB(t)

	err := db.gdb.Model(&schemaVersionRow{}).Where("1 = 1").Update("version", CurrentSchemaVersion+1).Error
	require.NoError(t, err)

	err = db.migrate()
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestAddShare_InsertsStarterLease(t *testing.T) {
	db := openTestDB(t)
	si := testSI(t, "aaaaaaaaaaaaaaaaaaaaaaaaaa")

	require.NoError(t, db.AddShare(si, 0, 1024))

	shares, err := db.GetSharesForPrefix(si.Prefix())
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, int64(1024), shares[0].Size)

	leases, err := db.LeasesForShare(si, 0)
	require.NoError(t, err)
	require.Len(t, leases, 1)
	assert.Equal(t, int64(StarterLeaseAccountID), leases[0].AccountID)
	assert.WithinDuration(t, time.Now().Add(StarterLeaseDuration), leases[0].ExpirationTime, time.Minute)
}

func TestAddShare_DuplicateRejected(t *testing.T) {
	db := openTestDB(t)
	si := testSI(t, "bbbbbbbbbbbbbbbbbbbbbbbbbb")

	require.NoError(t, db.AddShare(si, 0, 100))
	err := db.AddShare(si, 0, 200)
	assert.ErrorIs(t, err, ErrShareExists)
}

func TestRemoveDeletedShares(t *testing.T) {
	db := openTestDB(t)
	si := testSI(t, "cccccccccccccccccccccccccc")

	require.NoError(t, db.AddShare(si, 0, 100))
	require.NoError(t, db.AddShare(si, 1, 100))

	require.NoError(t, db.RemoveDeletedShares(si, []storageindex.ShareNumber{0}))

	shares, err := db.GetSharesForPrefix(si.Prefix())
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, storageindex.ShareNumber(1), shares[0].Shnum)

	leases, err := db.LeasesForShare(si, 0)
	require.NoError(t, err)
	assert.Empty(t, leases)
}

func TestGetOrAllocateOwnernum(t *testing.T) {
	db := openTestDB(t)

	anon, err := db.GetOrAllocateOwnernum(AnonymousAccountName)
	require.NoError(t, err)
	assert.Equal(t, int64(AnonymousAccountID), anon)

	id1, err := db.GetOrAllocateOwnernum("pubkey-abc")
	require.NoError(t, err)
	id2, err := db.GetOrAllocateOwnernum("pubkey-abc")
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "repeated lookup of the same key must return the same owner number")

	id3, err := db.GetOrAllocateOwnernum("pubkey-def")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}

func TestAccountAttributes_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	owner, err := db.GetOrAllocateOwnernum("pubkey-ghi")
	require.NoError(t, err)

	_, ok, err := db.GetAccountAttribute(owner, "nickname")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.SetAccountAttribute(owner, "nickname", "alice"))
	value, ok, err := db.GetAccountAttribute(owner, "nickname")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", value)

	require.NoError(t, db.SetAccountAttribute(owner, "nickname", "alice2"))
	value, ok, err = db.GetAccountAttribute(owner, "nickname")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice2", value)
}

func TestAddOrRenewLease(t *testing.T) {
	db := openTestDB(t)
	si := testSI(t, "dddddddddddddddddddddddddd")
	require.NoError(t, db.AddShare(si, 0, 100))
	owner, err := db.GetOrAllocateOwnernum("pubkey-jkl")
	require.NoError(t, err)

	exp := time.Now().Add(24 * time.Hour)
	require.NoError(t, db.AddOrRenewLease(si, 0, owner, "renew-1", "cancel-1", exp))

	leases, err := db.LeasesForShare(si, 0)
	require.NoError(t, err)
	require.Len(t, leases, 2) // starter + this one

	renewed := exp.Add(48 * time.Hour)
	require.NoError(t, db.AddOrRenewLease(si, 0, owner, "renew-1", "cancel-1", renewed))

	leases, err = db.LeasesForShare(si, 0)
	require.NoError(t, err)
	require.Len(t, leases, 2, "renewing an existing lease must not add a new row")
}

func TestCancelLease(t *testing.T) {
	db := openTestDB(t)
	si := testSI(t, "eeeeeeeeeeeeeeeeeeeeeeeeee")
	require.NoError(t, db.AddShare(si, 0, 100))
	owner, err := db.GetOrAllocateOwnernum("pubkey-mno")
	require.NoError(t, err)
	require.NoError(t, db.AddOrRenewLease(si, 0, owner, "renew-2", "cancel-2", time.Now().Add(time.Hour)))

	require.NoError(t, db.CancelLease(si, 0, "cancel-2"))

	leases, err := db.LeasesForShare(si, 0)
	require.NoError(t, err)
	require.Len(t, leases, 1)
	assert.Equal(t, int64(StarterLeaseAccountID), leases[0].AccountID)

	// Cancelling again is a no-op, not an error.
	assert.NoError(t, db.CancelLease(si, 0, "cancel-2"))
}

func TestExpireLeases(t *testing.T) {
	db := openTestDB(t)
	si := testSI(t, "ffffffffffffffffffffffffff")
	require.NoError(t, db.AddShare(si, 0, 100))

	past := time.Now().Add(-time.Hour)
	remaining, err := db.ExpireLeases(si, 0, past)
	require.NoError(t, err)
	assert.Equal(t, int64(1), remaining, "starter lease expires 60 days out, not yet expired")

	future := time.Now().Add(StarterLeaseDuration + time.Hour)
	remaining, err = db.ExpireLeases(si, 0, future)
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)
}

func TestGetAccountUsage(t *testing.T) {
	db := openTestDB(t)
	si1 := testSI(t, "gggggggggggggggggggggggggg")
	si2 := testSI(t, "hhhhhhhhhhhhhhhhhhhhhhhhhh")
	owner, err := db.GetOrAllocateOwnernum("pubkey-pqr")
	require.NoError(t, err)

	require.NoError(t, db.AddShare(si1, 0, 1000))
	require.NoError(t, db.AddShare(si2, 0, 2000))
	require.NoError(t, db.AddOrRenewLease(si1, 0, owner, "r1", "c1", time.Now().Add(time.Hour)))
	require.NoError(t, db.AddOrRenewLease(si2, 0, owner, "r2", "c2", time.Now().Add(time.Hour)))

	usage, err := db.GetAccountUsage(owner)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), usage)
}
