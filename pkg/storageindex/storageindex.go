// Package storageindex defines the opaque content-addressed identifier used
// to key every share on disk and in the lease database.
package storageindex

import (
	"fmt"
	"regexp"
)

// Length is the fixed length of a storage index: 26 characters in the
// base-32 alphabet (RFC 4648, lowercase, no padding).
const Length = 26

// PrefixLength is the number of leading characters used for directory
// sharding.
const PrefixLength = 2

var base32Pattern = regexp.MustCompile(`^[a-z2-7]+$`)

// StorageIndex is an opaque identifier for one immutable object. It is not
// a Go array so callers pass it by value cheaply while comparisons and map
// keys still work as expected.
type StorageIndex string

// Parse validates that s has the correct length and alphabet, returning it
// as a StorageIndex.
func Parse(s string) (StorageIndex, error) {
	if len(s) != Length {
		return "", fmt.Errorf("storage index %q: want %d characters, got %d", s, Length, len(s))
	}
	if !base32Pattern.MatchString(s) {
		return "", fmt.Errorf("storage index %q: not base32", s)
	}
	return StorageIndex(s), nil
}

// Prefix returns the two-character directory-sharding prefix.
func (si StorageIndex) Prefix() string {
	return string(si)[:PrefixLength]
}

// String implements fmt.Stringer.
func (si StorageIndex) String() string {
	return string(si)
}

// ShareNumber identifies one erasure-coded share within a storage index.
type ShareNumber uint32
