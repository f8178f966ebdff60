package accountant

import (
	"crypto/ed25519"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
)

// pubkeyPrefix matches the "pub-v0-" convention Tahoe-LAFS uses for
// ed25519 verifying keys encoded as account names.
const pubkeyPrefix = "pub-v0-"

// ErrInvalidSignature is returned by ResolveSignedAccount when the
// signature does not verify against the claimed public key.
var ErrInvalidSignature = errors.New("accountant: invalid account signature")

// ErrMalformedPubkey is returned when an account name claims the
// pub-v0- prefix but does not decode to a valid ed25519 public key.
var ErrMalformedPubkey = errors.New("accountant: malformed public key")

var pubkeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ResolveSignedAccount is the Go-native analogue of Tahoe-LAFS's
// AccountantWindow.remote_get_account(msg, sig, pubkey_vs): it verifies
// that signature is a valid ed25519 signature over message under the
// public key claimed by pubkeyString, and only then resolves (or
// creates) the corresponding Account. This is the sole path by which a
// caller proves ownership of an account name rather than merely
// asserting it.
func (a *Accountant) ResolveSignedAccount(pubkeyString string, message, signature []byte) (*Account, error) {
	if err := ValidateAccountName(pubkeyString); err != nil {
		return nil, err
	}

	pub, err := parsePubkeyString(pubkeyString)
	if err != nil {
		return nil, err
	}

	if !ed25519.Verify(pub, message, signature) {
		return nil, fmt.Errorf("%w: account %q", ErrInvalidSignature, pubkeyString)
	}

	return a.GetAccount(pubkeyString)
}

func parsePubkeyString(pubkeyString string) (ed25519.PublicKey, error) {
	if !strings.HasPrefix(pubkeyString, pubkeyPrefix) {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrMalformedPubkey, pubkeyPrefix)
	}
	raw, err := pubkeyEncoding.DecodeString(strings.ToUpper(strings.TrimPrefix(pubkeyString, pubkeyPrefix)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPubkey, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedPubkey, ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

// EncodePubkeyString formats an ed25519 public key as a "pub-v0-..."
// account name, the inverse of parsePubkeyString. Exposed for tests and
// for CLI tooling that provisions test accounts.
func EncodePubkeyString(pub ed25519.PublicKey) string {
	return pubkeyPrefix + strings.ToLower(pubkeyEncoding.EncodeToString(pub))
}
