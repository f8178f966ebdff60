// Package crawler implements spec.md §4.6's accounting crawler: a
// background walk over every two-character share-directory prefix that
// keeps the lease database's view of the world consistent with what is
// actually on disk, and (opt-in) deletes shares whose leases have all
// expired.
//
// The algorithm and pacing knobs are grounded on Tahoe-LAFS's
// AccountingCrawler/ShareCrawler (slow_start, minimum_cycle_time,
// allowed_cpu_percentage, one-prefix-at-a-time with persisted resume
// state); the stats/options shape of the Go code follows
// pkg/payload/gc's CollectGarbage.
package crawler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/public/tahoe-lafs/internal/logger"
	"github.com/public/tahoe-lafs/pkg/diskusage"
	"github.com/public/tahoe-lafs/pkg/leasedb"
	"github.com/public/tahoe-lafs/pkg/share"
	"github.com/public/tahoe-lafs/pkg/storageindex"
)

// Stats summarizes one RunCycle call's effect, surfaced by the admin API
// and sharenodectl's "crawler status".
type Stats struct {
	CycleID         string
	PrefixesVisited int
	SharesAdded     int
	SharesRemoved   int
	LeasesExpired   int
	Errors          int
}

// Crawler walks the share tree rooted at layout, reconciling it against db.
type Crawler struct {
	layout  share.Layout
	db      *leasedb.DB
	options Options

	mu        sync.Mutex
	lastStats Stats
	running   bool
}

// Status summarizes a Crawler's progress for operational surfaces such
// as the admin API and sharenodectl's "crawler status" command.
type Status struct {
	CycleNumber       int       `json:"cycle_number"`
	NextPrefixIndex   int       `json:"next_prefix_index"`
	TotalPrefixes     int       `json:"total_prefixes"`
	LastCycleFinished time.Time `json:"last_cycle_finished"`
	LastCycleStarted  time.Time `json:"last_cycle_started"`
	Running           bool      `json:"running"`
	LastStats         Stats     `json:"last_stats"`
}

// Status reports the crawler's persisted progress plus the stats from
// its most recently completed RunCycle call.
func (c *Crawler) Status() (Status, error) {
	state, err := c.loadState()
	if err != nil {
		return Status{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		CycleNumber:       state.CycleNumber,
		NextPrefixIndex:   state.NextPrefixIndex,
		TotalPrefixes:     len(allPrefixes()),
		LastCycleFinished: state.LastCycleFinished,
		LastCycleStarted:  state.LastCycleStarted,
		Running:           c.running,
		LastStats:         c.lastStats,
	}, nil
}

// New constructs a Crawler. If options.StatePath is empty, state is not
// kept at all: every RunCycle begins at prefix zero of cycle 1, and
// Status always reports that fresh state.
func New(layout share.Layout, db *leasedb.DB, options Options) *Crawler {
	return &Crawler{layout: layout, db: db, options: options}
}

// Run blocks, executing cycles until ctx is cancelled. It honors
// SlowStart before the first cycle and MinimumCycleTime between cycles.
func (c *Crawler) Run(ctx context.Context) error {
	select {
	case <-time.After(c.options.SlowStart):
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		started := time.Now()
		stats, err := c.RunCycle(ctx)
		if err != nil {
			return err
		}
		logger.Info("crawler: cycle complete",
			logger.Operation("crawler_cycle"),
			logger.CycleID(stats.CycleID),
			"prefixes_visited", stats.PrefixesVisited,
			"shares_added", stats.SharesAdded,
			"shares_removed", stats.SharesRemoved,
			"leases_expired", stats.LeasesExpired,
			"errors", stats.Errors)

		elapsed := time.Since(started)
		if remaining := c.options.MinimumCycleTime - elapsed; remaining > 0 {
			select {
			case <-time.After(remaining):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// RunCycle walks every remaining prefix in the current cycle to
// completion, persisting state after each one, and returns aggregate
// stats. A resumed process picks up at state.NextPrefixIndex rather than
// restarting prefix zero.
func (c *Crawler) RunCycle(ctx context.Context) (Stats, error) {
	var stats Stats

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.lastStats = stats
		c.mu.Unlock()
	}()

	state, err := c.loadState()
	if err != nil {
		return stats, err
	}
	if state.LastCycleStarted.IsZero() || state.NextPrefixIndex == 0 {
		state.LastCycleStarted = time.Now()
		state.CycleID = uuid.New().String()
	}
	stats.CycleID = state.CycleID

	prefixes := allPrefixes()
	cpuBudget := newCPUThrottle(c.options.AllowedCPUPercentage)

	for i := state.NextPrefixIndex; i < len(prefixes); i++ {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		prefix := prefixes[i]
		pstats, err := c.reconcilePrefix(prefix)
		stats.PrefixesVisited++
		stats.SharesAdded += pstats.SharesAdded
		stats.SharesRemoved += pstats.SharesRemoved
		stats.LeasesExpired += pstats.LeasesExpired
		if err != nil {
			stats.Errors++
			logger.Error("crawler: reconcile prefix failed", logger.Prefix(prefix), logger.CycleID(state.CycleID), "error", err)
		}

		state.NextPrefixIndex = i + 1
		if err := c.saveState(state); err != nil {
			return stats, err
		}

		cpuBudget.pauseIfOverBudget()
	}

	state.NextPrefixIndex = 0
	state.CycleNumber++
	state.LastCycleFinished = time.Now()
	if err := c.saveState(state); err != nil {
		return stats, err
	}
	return stats, nil
}

type prefixStats struct {
	SharesAdded   int
	SharesRemoved int
	LeasesExpired int
}

// reconcilePrefix diffs one prefix's on-disk shares against the lease
// database: disk shares missing from the database are added (with a
// starter lease, via AddShare); database rows with no corresponding disk
// file are removed. Rows present on both sides are left as they are; their
// recorded size is not compared with the disk. If lease expiration is
// enabled, shares whose leases
// have all expired are deleted from both disk and the database. Every
// database write for the prefix commits as one transaction (spec.md §5:
// "lease database updates within a single crawler slice are atomic"), so
// a crash mid-prefix leaves either the previous or the fully-reconciled
// state, never a partial one.
func (c *Crawler) reconcilePrefix(prefix string) (prefixStats, error) {
	var stats prefixStats

	onDisk, err := c.scanDisk(prefix)
	if err != nil {
		return stats, fmt.Errorf("crawler: scan disk for prefix %s: %w", prefix, err)
	}

	inDB, err := c.db.GetSharesForPrefix(prefix)
	if err != nil {
		return stats, fmt.Errorf("crawler: read db shares for prefix %s: %w", prefix, err)
	}
	dbSet := make(map[diskKey]leasedb.ShareInfo, len(inDB))
	for _, s := range inDB {
		dbSet[diskKey{s.StorageIndex, s.Shnum}] = s
	}

	err = c.db.Transact(func(tx *leasedb.Tx) error {
		for key, size := range onDisk {
			if _, ok := dbSet[key]; ok {
				continue
			}
			if err := tx.AddShare(key.si, key.shnum, size); err != nil {
				logger.Warn("crawler: add share failed", logger.StorageIndex(key.si.String()), logger.ShareNumber(uint64(key.shnum)), "error", err)
				continue
			}
			stats.SharesAdded++
		}

		toRemove := make(map[storageindex.StorageIndex][]storageindex.ShareNumber)
		for key := range dbSet {
			if _, ok := onDisk[key]; ok {
				continue
			}
			toRemove[key.si] = append(toRemove[key.si], key.shnum)
			stats.SharesRemoved++
		}
		for si, shnums := range toRemove {
			if err := tx.RemoveDeletedShares(si, shnums); err != nil {
				logger.Warn("crawler: remove deleted shares failed", logger.StorageIndex(si.String()), "error", err)
			}
		}

		if enabled, cutoff := c.leaseExpirationSettings(); enabled {
			expired, err := c.expireLeases(tx, onDisk, cutoff)
			stats.LeasesExpired += expired
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("crawler: reconcile prefix %s: %w", prefix, err)
	}

	return stats, nil
}

type diskKey struct {
	si    storageindex.StorageIndex
	shnum storageindex.ShareNumber
}

func (c *Crawler) expireLeases(tx *leasedb.Tx, onDisk map[diskKey]int64, cutoff time.Time) (int, error) {
	expiredCount := 0
	for key := range onDisk {
		remaining, err := tx.ExpireLeases(key.si, key.shnum, cutoff)
		if err != nil {
			logger.Warn("crawler: expire leases failed", logger.StorageIndex(key.si.String()), "error", err)
			continue
		}
		if remaining == 0 {
			path := c.layout.FinalPath(key.si, key.shnum)
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				logger.Warn("crawler: delete expired share failed", logger.Path(path), "error", err)
				continue
			}
			if err := tx.RemoveDeletedShares(key.si, []storageindex.ShareNumber{key.shnum}); err != nil {
				logger.Warn("crawler: remove expired share row failed", logger.StorageIndex(key.si.String()), "error", err)
				continue
			}
			expiredCount++
		}
	}
	return expiredCount, nil
}

// scanDisk lists every committed share under one prefix directory and
// returns its size in bytes, keyed by (storage index, share number).
func (c *Crawler) scanDisk(prefix string) (map[diskKey]int64, error) {
	result := make(map[diskKey]int64)
	prefixDir := c.layout.PrefixDir(prefix)

	siEntries, err := os.ReadDir(prefixDir)
	if os.IsNotExist(err) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	for _, siEntry := range siEntries {
		if !siEntry.IsDir() {
			continue
		}
		si, err := storageindex.Parse(siEntry.Name())
		if err != nil {
			logger.Warn("crawler: skipping malformed storage index directory", logger.Path(prefixDir), "name", siEntry.Name())
			continue
		}

		shareEntries, err := os.ReadDir(filepath.Join(prefixDir, siEntry.Name()))
		if err != nil {
			return nil, err
		}
		for _, shareEntry := range shareEntries {
			if shareEntry.IsDir() {
				continue
			}
			shnum, err := strconv.ParseUint(shareEntry.Name(), 10, 32)
			if err != nil {
				continue
			}
			size, err := diskusage.SizeOfDiskFile(filepath.Join(prefixDir, siEntry.Name(), shareEntry.Name()))
			if err != nil {
				return nil, err
			}
			result[diskKey{si, storageindex.ShareNumber(shnum)}] = size
		}
	}
	return result, nil
}

func (c *Crawler) loadState() (State, error) {
	if c.options.StatePath == "" {
		return State{CycleNumber: 1}, nil
	}
	return loadState(c.options.StatePath)
}

func (c *Crawler) saveState(s State) error {
	if c.options.StatePath == "" {
		return nil
	}
	return saveState(c.options.StatePath, s)
}
