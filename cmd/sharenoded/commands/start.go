package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/public/tahoe-lafs/internal/adminapi"
	"github.com/public/tahoe-lafs/internal/config"
	"github.com/public/tahoe-lafs/internal/logger"
	"github.com/public/tahoe-lafs/pkg/accountant"
	"github.com/public/tahoe-lafs/pkg/crawler"
	"github.com/public/tahoe-lafs/pkg/facade"
	"github.com/public/tahoe-lafs/pkg/leasedb"
	"github.com/public/tahoe-lafs/pkg/share"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the storage accounting core",
	Long: `Start the accounting core in the foreground: the lease database, the
accounting crawler, and the admin HTTP surface. The wire transport that
accepts client requests and calls into the façade is not part of this
process; it is expected to be embedded by whatever RPC layer fronts it.

Examples:
  sharenoded start
  sharenoded start --config /etc/sharenode/config.yaml`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := os.MkdirAll(cfg.BaseDir, 0755); err != nil {
		return fmt.Errorf("create base dir: %w", err)
	}

	db, err := leasedb.Open(leasedb.Config{
		Driver: leasedb.Driver(cfg.LeaseDB.Driver),
		DSN:    cfg.LeaseDB.DSN,
	})
	if err != nil {
		return fmt.Errorf("open lease database: %w", err)
	}
	defer func() { _ = db.Close() }()

	layout := share.NewLayout(cfg.BaseDir)
	reg := prometheus.NewRegistry()

	fc := facade.New(layout, db, facade.NewMetrics(reg))
	_ = fc // held by whatever wire transport is embedded; constructed here so its metrics register at startup

	acct := accountant.New(db, 0)

	crawlerOpts := crawler.Options{
		SlowStart:              cfg.Crawler.SlowStart,
		MinimumCycleTime:       cfg.Crawler.MinimumCycleTime,
		AllowedCPUPercentage:   cfg.Crawler.AllowedCPUPercentage,
		StatePath:              cfg.Crawler.StatePath,
		LeaseExpirationEnabled: cfg.Crawler.LeaseExpirationEnabled,
	}
	cr := crawler.New(layout, db, crawlerOpts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	crawlerDone := make(chan error, 1)
	go func() { crawlerDone <- cr.Run(ctx) }()

	var adminSrv *http.Server
	if cfg.AdminAPI.Enabled {
		adminSrv = &http.Server{
			Addr: cfg.AdminAPI.Address,
			Handler: adminapi.NewRouter(adminapi.Deps{
				Accountant: acct,
				Crawler:    cr,
				Registry:   reg,
			}),
		}
		go func() {
			logger.Info("admin api listening", "address", cfg.AdminAPI.Address)
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("admin api server error", "error", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("sharenoded running", "base_dir", cfg.BaseDir)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received")
		cancel()
		<-crawlerDone
	case err := <-crawlerDone:
		if err != nil && err != context.Canceled {
			logger.Error("crawler stopped with error", "error", err)
		}
	}

	if adminSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := adminSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("admin api shutdown error", "error", err)
		}
	}

	logger.Info("sharenoded stopped")
	return nil
}
