// Package preflight runs cheap system checks before an indexing run, so a
// doomed index attempt fails fast with an actionable message instead of
// partway through a long scan. Trimmed from the teacher's broader
// preflight suite (memory/file-descriptor/daemon-marker checks) to just
// the one check that still applies to a server-less, single-invocation
// CLI: disk space at the data directory.
package preflight

import (
	"fmt"
	"syscall"
)

// MinDiskSpaceBytes is the minimum free space required at the data
// directory before indexing begins.
const MinDiskSpaceBytes = 100 * 1024 * 1024

// CheckDiskSpace reports whether path's filesystem has at least
// MinDiskSpaceBytes free. A stat failure is reported as an error rather
// than silently treated as "enough space."
func CheckDiskSpace(path string) error {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return fmt.Errorf("failed to check disk space at %s: %w", path, err)
	}

	available := stat.Bavail * uint64(stat.Bsize)
	if available < MinDiskSpaceBytes {
		return fmt.Errorf("only %s free at %s, need at least %s",
			formatBytes(available), path, formatBytes(MinDiskSpaceBytes))
	}
	return nil
}

func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
