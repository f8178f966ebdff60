//go:build integration

package leasedb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/public/tahoe-lafs/pkg/storageindex"
)

// sharedPostgresDSN points at the Postgres container started once in
// TestMain and reused by every test in this file, matching the teacher's
// shared-container pattern for Postgres-backed store tests.
var sharedPostgresDSN string

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "sharenode_test",
			"POSTGRES_USER":     "sharenode_test",
			"POSTGRES_PASSWORD": "sharenode_test",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("5432/tcp"),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container port: %v\n", err)
		os.Exit(1)
	}

	sharedPostgresDSN = fmt.Sprintf(
		"host=%s port=%s user=sharenode_test password=sharenode_test dbname=sharenode_test sslmode=disable",
		host, port.Port(),
	)

	exitCode := m.Run()

	if err := container.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to terminate container: %v\n", err)
	}
	os.Exit(exitCode)
}

func openTestPostgresDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{Driver: DriverPostgres, DSN: sharedPostgresDSN})
	require.NoError(t, err)
	t.Cleanup(func() {
		// Leave the seeded schema in place but clear rows so tests in this
		// file don't see each other's shares, leases, and accounts.
		db.gdb.Exec("DELETE FROM leases")
		db.gdb.Exec("DELETE FROM shares")
		db.gdb.Exec("DELETE FROM account_attributes")
		db.gdb.Exec("DELETE FROM accounts WHERE id NOT IN (?, ?)", AnonymousAccountID, StarterLeaseAccountID)
		_ = db.Close()
	})
	return db
}

func TestPostgres_OpenSeedsAnonymousAndStarterAccounts(t *testing.T) {
	db := openTestPostgresDB(t)

	accounts, err := db.GetAllAccounts()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, int64(AnonymousAccountID), accounts[0].OwnerNum)
	assert.Equal(t, int64(StarterLeaseAccountID), accounts[1].OwnerNum)
}

func TestPostgres_AddShareInsertsStarterLease(t *testing.T) {
	db := openTestPostgresDB(t)
	si, err := storageindex.Parse("bbbbbbbbbbbbbbbbbbbbbbbbbb")
	require.NoError(t, err)

	require.NoError(t, db.AddShare(si, 0, 2048))

	shares, err := db.GetSharesForPrefix(si.Prefix())
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, int64(2048), shares[0].Size)

	leases, err := db.LeasesForShare(si, 0)
	require.NoError(t, err)
	require.Len(t, leases, 1)
	assert.Equal(t, int64(StarterLeaseAccountID), leases[0].AccountID)
}

func TestPostgres_AddOrRenewLeaseIsIdempotentPerAccount(t *testing.T) {
	db := openTestPostgresDB(t)
	si, err := storageindex.Parse("cccccccccccccccccccccccccc")
	require.NoError(t, err)
	require.NoError(t, db.AddShare(si, 0, 1024))

	ownerNum, err := db.GetOrAllocateOwnernum("pub-v0-postgrestestkey")
	require.NoError(t, err)

	expires := time.Now().Add(31 * 24 * time.Hour)
	require.NoError(t, db.AddOrRenewLease(si, 0, ownerNum, "renew-secret", "cancel-secret", expires))
	require.NoError(t, db.AddOrRenewLease(si, 0, ownerNum, "renew-secret", "cancel-secret", expires.Add(time.Hour)))

	leases, err := db.LeasesForShare(si, 0)
	require.NoError(t, err)

	count := 0
	for _, l := range leases {
		if l.AccountID == ownerNum {
			count++
		}
	}
	assert.Equal(t, 1, count, "renewing a lease for the same account must update, not duplicate")
}

func TestPostgres_CancelLeaseRemovesOnlyThatAccountsLease(t *testing.T) {
	db := openTestPostgresDB(t)
	si, err := storageindex.Parse("dddddddddddddddddddddddddd")
	require.NoError(t, err)
	require.NoError(t, db.AddShare(si, 0, 1024))

	ownerNum, err := db.GetOrAllocateOwnernum("pub-v0-anothertestkey")
	require.NoError(t, err)
	expires := time.Now().Add(24 * time.Hour)
	require.NoError(t, db.AddOrRenewLease(si, 0, ownerNum, "renew-secret", "cancel-secret", expires))

	require.NoError(t, db.CancelLease(si, 0, "cancel-secret"))

	leases, err := db.LeasesForShare(si, 0)
	require.NoError(t, err)
	for _, l := range leases {
		assert.NotEqual(t, ownerNum, l.AccountID, "canceled lease should be gone")
	}
	// The starter lease inserted by AddShare must survive an unrelated cancel.
	found := false
	for _, l := range leases {
		if l.AccountID == int64(StarterLeaseAccountID) {
			found = true
		}
	}
	assert.True(t, found, "starter lease should be untouched by a different account's cancel")
}
