// Package leasedb is the relational store backing spec.md §4.4: an index
// from (storage_index, shnum) to on-disk share, and from share to the
// leases keeping it alive. The share files on disk are authoritative; the
// crawler (pkg/crawler) rewrites this index to match them. The façade
// (pkg/facade) records committed shares and reads and writes leases here,
// while it finds which shares exist by checking the share files on disk.
//
// Two backends are supported, selected by Config.Driver: a pure-Go SQLite
// file (the default, matching spec.md §6's "single relational store
// file") and Postgres, for operators who already run an HA Postgres
// cluster and would rather not manage a second storage engine for the
// lease metadata. Both go through the same GORM models.
package leasedb

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Driver selects the lease database's backing SQL engine.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Config configures Open.
type Config struct {
	Driver Driver
	// DSN is a filesystem path for DriverSQLite, or a libpq connection
	// string for DriverPostgres.
	DSN string
}

// DB wraps a *gorm.DB with the accounting core's query surface. All
// exported methods are safe for concurrent use; GORM pools connections
// internally and SQLite writes serialize through database/sql's pool.
type DB struct {
	gdb *gorm.DB
}

// Open opens (creating if absent) the lease database and validates its
// schema version. A freshly created database is stamped with
// CurrentSchemaVersion and seeded with the anonymous and starter-lease
// account rows. An existing database whose stamped version does not match
// CurrentSchemaVersion fails with ErrSchemaMismatch: spec.md treats schema
// drift as fatal at startup rather than something to migrate silently.
func Open(cfg Config) (*DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("leasedb: open %s: %w", cfg.Driver, err)
	}

	db := &DB{gdb: gdb}
	if err := db.migrate(); err != nil {
		return nil, err
	}
	return db, nil
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	case DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("leasedb: unknown driver %q", cfg.Driver)
	}
}

func (db *DB) migrate() error {
	var version schemaVersionRow
	err := db.gdb.First(&version).Error
	switch {
	case err == nil:
		if version.Version != CurrentSchemaVersion {
			return fmt.Errorf("%w: on-disk version %d, expected %d", ErrSchemaMismatch, version.Version, CurrentSchemaVersion)
		}
		return nil
	case err == gorm.ErrRecordNotFound:
		return db.createSchema()
	default:
		// Table doesn't exist yet: brand-new database file.
		return db.createSchema()
	}
}

func (db *DB) createSchema() error {
	if err := db.gdb.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("leasedb: migrate schema: %w", err)
	}

	return db.gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&schemaVersionRow{Version: CurrentSchemaVersion}).Error; err != nil {
			return err
		}
		now := time.Now().Unix()
		seed := []accountRow{
			{ID: AnonymousAccountID, Name: AnonymousAccountName, CreationTime: now},
			{ID: StarterLeaseAccountID, Name: "starter", CreationTime: now},
		}
		for i := range seed {
			if err := tx.FirstOrCreate(&seed[i], accountRow{ID: seed[i].ID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
