// Package diskusage measures how much space a share file actually
// occupies on disk, as opposed to its logical byte length, so lease
// accounting reflects real block allocation rather than a sparse-file
// illusion of compactness.
package diskusage

import (
	"fmt"
	"os"
)

// SizeOfDiskFile returns the number of bytes path occupies on disk.
// Where the platform reports block counts (st_blocks, in 512-byte
// units), that figure is used; otherwise the logical size (st_size) is
// returned as a fallback, per the original implementation's documented
// behavior for platforms without block-count stats.
func SizeOfDiskFile(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("diskusage: stat %s: %w", path, err)
	}
	if blocks, ok := blockBytes(info); ok {
		return blocks, nil
	}
	return info.Size(), nil
}
