package table

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// tempDirName is the subdirectory used when falling back to the home or working directory.
const tempDirName = ".pagesort"

var (
	// Pre-computed directory choice
	diskPreferredDir string
	dirDiscoveryOnce sync.Once
)

// TempDir returns the directory file tables should live in.
// If dir is non-empty and usable it is returned as is. Otherwise a directory
// likely to be disk-backed is chosen once per process and cached: sorted runs
// can be as large as the source table, so tmpfs is avoided where possible.
func TempDir(dir string) string {
	if dir != "" && isDirectoryUsable(dir) {
		return dir
	}
	dirDiscoveryOnce.Do(func() {
		diskPreferredDir = findBestDirectory()
	})
	return diskPreferredDir
}

// findBestDirectory returns the first usable candidate, falling back to os.TempDir().
func findBestDirectory() string {
	for _, candidate := range buildCandidateList() {
		if isDirectoryUsable(candidate) {
			return candidate
		}
	}
	return os.TempDir()
}

// buildCandidateList returns temporary directory candidates in priority order.
func buildCandidateList() []string {
	var candidates []string

	switch runtime.GOOS {
	case "linux", "darwin", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris":
		// /var/tmp is traditionally disk-backed, unlike /tmp which may be tmpfs
		candidates = append(candidates, "/var/tmp")
		if runtime.GOOS == "darwin" {
			candidates = append(candidates, "/private/var/tmp")
		}
	}

	candidates = append(candidates, os.TempDir())

	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, tempDirName))
	}
	if workDir, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(workDir, tempDirName))
	}
	return candidates
}

// isDirectoryUsable checks if a directory exists, or does not exist yet and may be created.
// Writability is not tested here; creating the table file will report it.
func isDirectoryUsable(dir string) bool {
	stat, err := os.Stat(dir)
	if err != nil {
		return os.IsNotExist(err)
	}
	return stat.IsDir()
}
