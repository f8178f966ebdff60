package accountant

import "github.com/public/tahoe-lafs/pkg/leasedb"

// AnonymousAccount is the fixed identity used by callers that never
// present a signed account message (spec.md §4.5): every operation it
// performs is billed to leasedb.AnonymousAccountID, and it carries none
// of the named-account bookkeeping (nickname, connection history,
// pushed status/message) since there is no stable client to persist
// those against.
type AnonymousAccount struct {
	db *leasedb.DB
}

// OwnerNum is always leasedb.AnonymousAccountID.
func (a *AnonymousAccount) OwnerNum() int64 { return leasedb.AnonymousAccountID }

// CurrentUsage reports bytes held alive by leases under the anonymous
// account, i.e. shares on which an anonymous caller holds a lease.
// Starter leases belong to leasedb.StarterLeaseAccountID and are not
// counted here.
func (a *AnonymousAccount) CurrentUsage() (int64, error) {
	return a.db.GetAccountUsage(leasedb.AnonymousAccountID)
}
