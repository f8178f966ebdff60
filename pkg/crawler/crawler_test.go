package crawler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/public/tahoe-lafs/pkg/diskusage"
	"github.com/public/tahoe-lafs/pkg/leasedb"
	"github.com/public/tahoe-lafs/pkg/share"
	"github.com/public/tahoe-lafs/pkg/storageindex"
)

func newTestCrawler(t *testing.T) (*Crawler, share.Layout, *leasedb.DB) {
	t.Helper()
	base := t.TempDir()
	layout := share.NewLayout(base)
	db, err := leasedb.Open(leasedb.Config{Driver: leasedb.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	opts := DefaultOptions()
	opts.SlowStart = 0
	opts.StatePath = filepath.Join(base, "crawler-state.json")
	return New(layout, db, opts), layout, db
}

func writeShareFile(t *testing.T, layout share.Layout, si storageindex.StorageIndex, shnum storageindex.ShareNumber, size int) {
	t.Helper()
	path := layout.FinalPath(si, shnum)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
}

func TestRunCycle_AddsDiskOnlyShareToDatabase(t *testing.T) {
	c, layout, db := newTestCrawler(t)
	si := testSI(t, "aaaaaaaaaaaaaaaaaaaaaaaaaa")
	writeShareFile(t, layout, si, 0, 100)

	// The crawler records on-disk block usage (diskusage.SizeOfDiskFile),
	// not the file's logical length, so a 100-byte file may be recorded
	// as a full block's worth of bytes on filesystems that round up.
	wantSize, err := diskusage.SizeOfDiskFile(layout.FinalPath(si, 0))
	require.NoError(t, err)

	stats, err := c.RunCycle(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SharesAdded)

	shares, err := db.GetSharesForPrefix(si.Prefix())
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, wantSize, shares[0].Size)
	assert.GreaterOrEqual(t, shares[0].Size, int64(100), "disk usage must be at least the logical size")
}

func TestRunCycle_RemovesDBOnlyShare(t *testing.T) {
	c, _, db := newTestCrawler(t)
	si := testSI(t, "bbbbbbbbbbbbbbbbbbbbbbbbbb")
	require.NoError(t, db.AddShare(si, 0, 100))

	stats, err := c.RunCycle(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SharesRemoved)

	shares, err := db.GetSharesForPrefix(si.Prefix())
	require.NoError(t, err)
	assert.Empty(t, shares)
}

func TestRunCycle_PersistsStateAcrossCycles(t *testing.T) {
	c, _, _ := newTestCrawler(t)

	_, err := c.RunCycle(t.Context())
	require.NoError(t, err)

	state, err := loadState(c.options.StatePath)
	require.NoError(t, err)
	assert.Equal(t, 2, state.CycleNumber)
	assert.Equal(t, 0, state.NextPrefixIndex)
	assert.WithinDuration(t, time.Now(), state.LastCycleFinished, time.Minute)
}

func TestRunCycle_ExpiresSharesWithNoLeasesRemaining(t *testing.T) {
	c, layout, db := newTestCrawler(t)
	si := testSI(t, "cccccccccccccccccccccccccc")
	writeShareFile(t, layout, si, 0, 50)
	require.NoError(t, db.AddShare(si, 0, 50))

	c.SetLeaseExpiration(true, time.Now().Add(leasedb.StarterLeaseDuration+time.Hour))

	stats, err := c.RunCycle(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.LeasesExpired)

	_, err = os.Stat(layout.FinalPath(si, 0))
	assert.True(t, os.IsNotExist(err))

	shares, err := db.GetSharesForPrefix(si.Prefix())
	require.NoError(t, err)
	assert.Empty(t, shares)
}

func testSI(t *testing.T, s string) storageindex.StorageIndex {
	t.Helper()
	si, err := storageindex.Parse(s)
	require.NoError(t, err)
	return si
}
