package accountant

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/public/tahoe-lafs/pkg/leasedb"
)

func newTestAccountant(t *testing.T) *Accountant {
	t.Helper()
	db, err := leasedb.Open(leasedb.Config{Driver: leasedb.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, time.Minute)
}

func TestValidateAccountName_RejectsBadCharacters(t *testing.T) {
	assert.NoError(t, ValidateAccountName("pub-v0-abc123"))
	assert.ErrorIs(t, ValidateAccountName("has/a/slash"), ErrBadAccountName)
	assert.ErrorIs(t, ValidateAccountName("has.a.dot"), ErrBadAccountName)
}

func TestGetAccount_SameNameReturnsSameHandle(t *testing.T) {
	a := newTestAccountant(t)

	acct1, err := a.GetAccount("pub-v0-somekey")
	require.NoError(t, err)
	acct2, err := a.GetAccount("pub-v0-somekey")
	require.NoError(t, err)

	assert.Same(t, acct1, acct2)
	assert.Equal(t, acct1.OwnerNum(), acct2.OwnerNum())
}

func TestGetAccount_RejectsBadName(t *testing.T) {
	a := newTestAccountant(t)
	_, err := a.GetAccount("bad/name")
	assert.ErrorIs(t, err, ErrBadAccountName)
}

func TestGetAnonymousAccount_IsAccountZero(t *testing.T) {
	a := newTestAccountant(t)
	assert.Equal(t, int64(leasedb.AnonymousAccountID), a.GetAnonymousAccount().OwnerNum())
}

func TestAccount_NicknameRoundTrip(t *testing.T) {
	a := newTestAccountant(t)
	acct, err := a.GetAccount("pub-v0-nickname-test")
	require.NoError(t, err)

	n, err := acct.Nickname()
	require.NoError(t, err)
	assert.Empty(t, n)

	require.NoError(t, acct.SetNickname("alice"))
	n, err = acct.Nickname()
	require.NoError(t, err)
	assert.Equal(t, "alice", n)
}

func TestAccount_ConnectionLifecycle(t *testing.T) {
	a := newTestAccountant(t)
	acct, err := a.GetAccount("pub-v0-conn-test")
	require.NoError(t, err)

	disconnectCalled := false
	require.NoError(t, acct.ConnectionFrom("127.0.0.1:1234", func() { disconnectCalled = true }))

	status, err := acct.ConnectionStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, "127.0.0.1:1234", status.LastConnectedFrom)

	require.NoError(t, acct.Disconnected())
	assert.True(t, disconnectCalled)

	status, err = acct.ConnectionStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.NotZero(t, status.LastSeen)
}

func TestResolveSignedAccount(t *testing.T) {
	a := newTestAccountant(t)
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	name := EncodePubkeyString(pub)

	message := []byte(`{"nickname":"bob"}`)
	sig := ed25519.Sign(priv, message)

	acct, err := a.ResolveSignedAccount(name, message, sig)
	require.NoError(t, err)
	assert.Equal(t, name, acct.Name())

	_, err = a.ResolveSignedAccount(name, message, []byte("not-a-real-signature-000000000000000000000000000000000000000000000000"))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestAccount_CurrentUsage(t *testing.T) {
	a := newTestAccountant(t)
	acct, err := a.GetAccount("pub-v0-usage-test")
	require.NoError(t, err)

	usage, err := acct.CurrentUsage()
	require.NoError(t, err)
	assert.Zero(t, usage)
}
