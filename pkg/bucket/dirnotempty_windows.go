//go:build windows

package bucket

import "strings"

// isDirNotEmpty reports whether err is the expected "directory not empty"
// failure from os.Remove. Windows does not expose a typed errno here via
// the standard library the way syscall.ENOTEMPTY does on Unix, so this
// falls back to a message match.
func isDirNotEmpty(err error) bool {
	return strings.Contains(err.Error(), "directory is not empty") ||
		strings.Contains(err.Error(), "not empty")
}
