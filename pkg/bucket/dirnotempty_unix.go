//go:build !windows

package bucket

import (
	"errors"
	"syscall"
)

// isDirNotEmpty reports whether err is the expected "directory not empty"
// failure from os.Remove, which rmdirBestEffort treats as a normal
// consequence of a concurrent sibling share rather than a real error.
func isDirNotEmpty(err error) bool {
	return errors.Is(err, syscall.ENOTEMPTY) || errors.Is(err, syscall.EEXIST)
}
