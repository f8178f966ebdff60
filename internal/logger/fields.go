package logger

import "log/slog"

// Standard structured-logging keys for the accounting core. Keep log
// statements consistent across packages so log aggregation and querying
// works without per-caller guesswork about field names.
const (
	KeyStorageIndex = "storage_index"
	KeyPrefix       = "prefix"
	KeyShareNumber  = "shnum"
	KeyOwnerNum     = "owner_num"
	KeyAccountName  = "account"
	KeyPath         = "path"
	KeySize         = "size"
	KeyOffset       = "offset"
	KeyCycleID      = "cycle_id"
	KeyDurationMs   = "duration_ms"
	KeyError        = "error"
	KeyOperation    = "operation"
)

// StorageIndex returns a slog.Attr for the storage index key.
func StorageIndex(si string) slog.Attr { return slog.String(KeyStorageIndex, si) }

// Prefix returns a slog.Attr for the two-character directory prefix.
func Prefix(p string) slog.Attr { return slog.String(KeyPrefix, p) }

// ShareNumber returns a slog.Attr for a share number.
func ShareNumber(shnum uint64) slog.Attr { return slog.Uint64(KeyShareNumber, shnum) }

// OwnerNum returns a slog.Attr for an account's integer owner number.
func OwnerNum(n int64) slog.Attr { return slog.Int64(KeyOwnerNum, n) }

// CycleID returns a slog.Attr for a crawler cycle identifier.
func CycleID(id string) slog.Attr { return slog.String(KeyCycleID, id) }

// Operation returns a slog.Attr naming the façade operation being logged.
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

// Path returns a slog.Attr for a filesystem path.
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }
