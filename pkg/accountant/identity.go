package accountant

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrBadAccountName is returned when a pubkey string contains characters
// outside the accepted set. Tahoe-LAFS's accountant.py rejects '.' and
// '/' specifically because the pubkey string becomes a directory name;
// this implementation keeps the same character class even though
// accounts are now rows, not directories, so that existing pubkey
// strings remain valid identifiers across a migration.
var ErrBadAccountName = errors.New("accountant: unacceptable characters in account name")

var pubkeyPattern = regexp.MustCompile(`^[A-Za-z0-9+\-_]+$`)

// ValidateAccountName checks a claimed pubkey string against the
// accepted character class before it is ever used as a database key.
func ValidateAccountName(name string) error {
	if !pubkeyPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrBadAccountName, name)
	}
	return nil
}
