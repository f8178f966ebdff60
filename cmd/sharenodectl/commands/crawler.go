package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/public/tahoe-lafs/pkg/crawler"
)

var (
	crawlerForce             bool
	crawlerExpireLeases      bool
	crawlerExpireLeasesOlder time.Duration
)

var crawlerCmd = &cobra.Command{
	Use:   "crawler",
	Short: "Inspect and drive the accounting crawler",
}

var crawlerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the crawler's persisted cycle progress",
	RunE:  runCrawlerStatus,
}

var crawlerForceCycleCmd = &cobra.Command{
	Use:   "force-cycle",
	Short: "Run one crawler cycle immediately, blocking until it finishes",
	Long: `Run one full accounting-crawler cycle synchronously. This walks every
share prefix, reconciling disk against the lease database, and — if
lease expiration is enabled (by config, or by --expire-leases below) —
deletes shares whose leases have all expired. It competes with a running
sharenoded's own crawler for CPU and disk I/O; confirm before running it
against a live node.

--expire-leases only affects this one forced cycle: sharenodectl
builds its own short-lived Crawler for the run rather than reaching into a
live sharenoded process, so it cannot toggle a running daemon's policy —
change config.yaml's crawler.lease_expiration_enabled for that.`,
	RunE: runCrawlerForceCycle,
}

func init() {
	crawlerForceCycleCmd.Flags().BoolVar(&crawlerForce, "force", false, "skip the confirmation prompt")
	crawlerForceCycleCmd.Flags().BoolVar(&crawlerExpireLeases, "expire-leases", false, "delete shares with no unexpired leases during this forced cycle")
	crawlerForceCycleCmd.Flags().DurationVar(&crawlerExpireLeasesOlder, "expire-leases-older-than", 0, "lease age threshold for --expire-leases (e.g. 2160h); defaults to now")
	crawlerCmd.AddCommand(crawlerStatusCmd)
	crawlerCmd.AddCommand(crawlerForceCycleCmd)
}

func newCrawler() (*crawler.Crawler, func() error, error) {
	db, cfg, err := openDB()
	if err != nil {
		return nil, nil, err
	}

	opts := crawler.Options{
		SlowStart:              0,
		MinimumCycleTime:       cfg.Crawler.MinimumCycleTime,
		AllowedCPUPercentage:   cfg.Crawler.AllowedCPUPercentage,
		StatePath:              cfg.Crawler.StatePath,
		LeaseExpirationEnabled: cfg.Crawler.LeaseExpirationEnabled,
	}
	return crawler.New(openLayout(cfg), db, opts), db.Close, nil
}

func runCrawlerStatus(cmd *cobra.Command, args []string) error {
	cr, closeDB, err := newCrawler()
	if err != nil {
		return err
	}
	defer func() { _ = closeDB() }()

	status, err := cr.Status()
	if err != nil {
		return fmt.Errorf("crawler status: %w", err)
	}

	fmt.Printf("Cycle:              %d\n", status.CycleNumber)
	fmt.Printf("Progress:           %d/%d prefixes\n", status.NextPrefixIndex, status.TotalPrefixes)
	fmt.Printf("Running:            %t\n", status.Running)
	fmt.Printf("Last cycle started:  %s\n", formatTime(status.LastCycleStarted))
	fmt.Printf("Last cycle finished: %s\n", formatTime(status.LastCycleFinished))
	fmt.Printf("Last run stats:      +%d shares, -%d shares, %d leases expired, %d errors\n",
		status.LastStats.SharesAdded, status.LastStats.SharesRemoved,
		status.LastStats.LeasesExpired, status.LastStats.Errors)
	return nil
}

func runCrawlerForceCycle(cmd *cobra.Command, args []string) error {
	if !crawlerForce {
		ok, err := confirmForceCycle()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cr, closeDB, err := newCrawler()
	if err != nil {
		return err
	}
	defer func() { _ = closeDB() }()

	if crawlerExpireLeases {
		cutoff := time.Now()
		if crawlerExpireLeasesOlder > 0 {
			cutoff = cutoff.Add(-crawlerExpireLeasesOlder)
		}
		cr.SetLeaseExpiration(true, cutoff)
	}

	stats, err := cr.RunCycle(context.Background())
	if err != nil {
		return fmt.Errorf("run crawler cycle: %w", err)
	}

	fmt.Printf("Cycle complete: %d prefixes visited, +%d shares, -%d shares, %d leases expired, %d errors\n",
		stats.PrefixesVisited, stats.SharesAdded, stats.SharesRemoved, stats.LeasesExpired, stats.Errors)
	return nil
}

func confirmForceCycle() (bool, error) {
	prompt := promptui.Prompt{
		Label:     "Run a crawler cycle now, competing with sharenoded's own crawler",
		IsConfirm: true,
	}
	_, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrAbort {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}
