package leasedb

import "errors"

var (
	// ErrSchemaMismatch is returned by Open when the database file exists
	// but its version row does not match CurrentSchemaVersion.
	ErrSchemaMismatch = errors.New("leasedb: schema version mismatch")

	// ErrShareExists is returned by AddShare when the (storage_index,
	// shnum) pair is already present; callers must check first (spec.md
	// §4.4 treats the uniqueness violation as a programming error).
	ErrShareExists = errors.New("leasedb: share already exists")

	// ErrAccountNotFound is returned when an owner number has no matching
	// account row.
	ErrAccountNotFound = errors.New("leasedb: account not found")
)
