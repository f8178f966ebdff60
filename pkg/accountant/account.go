package accountant

import (
	"fmt"
	"sync"
	"time"

	"github.com/public/tahoe-lafs/pkg/leasedb"
)

// Attribute keys persisted per account in the lease database's
// account_attributes table (see leasedb.SetAccountAttribute). Using the
// relational store here, rather than per-account files as in the
// original implementation, keeps every durable write behind one
// transactional engine instead of two.
const (
	attrNickname          = "nickname"
	attrCreated           = "created"
	attrLastConnectedFrom = "last_connected_from"
	attrLastSeen          = "last_seen"
)

// AccountStatus reports what operations the server currently permits an
// account to perform, pushed to the client on connect and whenever it
// changes (spec.md §4.5).
type AccountStatus struct {
	Write bool `json:"write"`
	Read  bool `json:"read"`
	Save  bool `json:"save"`
}

// AccountMessage is arbitrary operator-set text pushed to clients
// alongside AccountStatus (e.g. quota notices, maintenance windows).
type AccountMessage struct {
	Message string `json:"message"`
	Extra   string `json:"extra,omitempty"`
}

// ConnectionStatus summarizes an account's current and historical
// connection state for admin/diagnostic surfaces.
type ConnectionStatus struct {
	Connected         bool
	ConnectedSince    time.Time
	LastConnectedFrom string
	LastSeen          time.Time
	Created           time.Time
}

// Account is a connected or previously-connected named client. Every
// durable field (nickname, last-seen bookkeeping) is persisted through db
// so it survives process restarts; everything else (live connection
// state, pushed status/message) is in-memory only and resets to zero on
// restart, matching spec.md's treatment of connection state as ephemeral.
type Account struct {
	mu sync.Mutex

	ownerNum int64
	name     string
	db       *leasedb.DB

	connected         bool
	connectedSince    time.Time
	lastAccess        time.Time
	status            AccountStatus
	message           AccountMessage
	disconnectWatcher func()
}

func newAccount(ownerNum int64, name string, db *leasedb.DB) *Account {
	return &Account{
		ownerNum:   ownerNum,
		name:       name,
		db:         db,
		lastAccess: time.Now(),
	}
}

// OwnerNum is the stable integer identity used by the lease database and
// wire protocol.
func (a *Account) OwnerNum() int64 { return a.ownerNum }

// Name is the account's pubkey string.
func (a *Account) Name() string { return a.name }

// SetNickname persists a client-chosen display name, overwriting any
// previous value.
func (a *Account) SetNickname(nickname string) error {
	if len(nickname) > 1000 {
		return fmt.Errorf("accountant: nickname too long (%d bytes)", len(nickname))
	}
	return a.db.SetAccountAttribute(a.ownerNum, attrNickname, nickname)
}

// Nickname returns the persisted nickname, or "" if none was ever set.
func (a *Account) Nickname() (string, error) {
	value, ok, err := a.db.GetAccountAttribute(a.ownerNum, attrNickname)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return value, nil
}

// CurrentUsage returns the total bytes held alive by this account's
// leases, per leasedb.GetAccountUsage.
func (a *Account) CurrentUsage() (int64, error) {
	return a.db.GetAccountUsage(a.ownerNum)
}

// ConnectionFrom records that a client identifying as this account has
// connected from remoteAddr, and registers onDisconnect to run (at
// most once) when the connection ends.
func (a *Account) ConnectionFrom(remoteAddr string, onDisconnect func()) error {
	a.mu.Lock()
	a.connected = true
	a.connectedSince = time.Now()
	a.lastAccess = a.connectedSince
	a.disconnectWatcher = onDisconnect
	a.mu.Unlock()

	return a.db.SetAccountAttribute(a.ownerNum, attrLastConnectedFrom, remoteAddr)
}

// Disconnected marks the account as no longer connected and persists the
// disconnect time as last_seen. Idempotent: a second call is a no-op.
func (a *Account) Disconnected() error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return nil
	}
	a.connected = false
	a.connectedSince = time.Time{}
	a.lastAccess = time.Now()
	watcher := a.disconnectWatcher
	a.disconnectWatcher = nil
	a.mu.Unlock()

	if watcher != nil {
		watcher()
	}
	return a.db.SetAccountAttribute(a.ownerNum, attrLastSeen, fmt.Sprintf("%d", time.Now().Unix()))
}

// SetStatus updates the permissions pushed to the client.
func (a *Account) SetStatus(status AccountStatus) {
	a.mu.Lock()
	a.status = status
	a.mu.Unlock()
}

// Status returns the currently pushed permission set.
func (a *Account) Status() AccountStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// SetMessage updates the operator message pushed to the client.
func (a *Account) SetMessage(msg AccountMessage) {
	a.mu.Lock()
	a.message = msg
	a.mu.Unlock()
}

// Message returns the currently pushed operator message.
func (a *Account) Message() AccountMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.message
}

// ConnectionStatus reports the account's connection history for
// diagnostics.
func (a *Account) ConnectionStatus() (ConnectionStatus, error) {
	a.mu.Lock()
	cs := ConnectionStatus{Connected: a.connected, ConnectedSince: a.connectedSince}
	a.mu.Unlock()

	if v, ok, err := a.db.GetAccountAttribute(a.ownerNum, attrLastConnectedFrom); err != nil {
		return cs, err
	} else if ok {
		cs.LastConnectedFrom = v
	}
	if v, ok, err := a.db.GetAccountAttribute(a.ownerNum, attrLastSeen); err != nil {
		return cs, err
	} else if ok {
		var unix int64
		if _, err := fmt.Sscanf(v, "%d", &unix); err == nil {
			cs.LastSeen = time.Unix(unix, 0).UTC()
		}
	}
	if v, ok, err := a.db.GetAccountAttribute(a.ownerNum, attrCreated); err != nil {
		return cs, err
	} else if ok {
		var unix int64
		if _, err := fmt.Sscanf(v, "%d", &unix); err == nil {
			cs.Created = time.Unix(unix, 0).UTC()
		}
	}
	return cs, nil
}

func (a *Account) touch() {
	a.mu.Lock()
	a.lastAccess = time.Now()
	a.mu.Unlock()
}

func (a *Account) idleSince() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastAccess
}
