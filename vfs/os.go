package vfs

import (
	"fmt"
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// OS implements FS against the real filesystem. It additionally implements
// Mapper (memory-mapped on unix, whole-file read elsewhere).
type OS struct{}

// NewOS returns the real-filesystem implementation.
func NewOS() *OS {
	return &OS{}
}

// Stat implements FS.Stat.
func (*OS) Stat(name string) (os.FileInfo, error) {
	info, err := os.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("vfs: stat %q: %w", name, err)
	}
	return info, nil
}

// Lstat implements FS.Lstat.
func (*OS) Lstat(name string) (os.FileInfo, error) {
	info, err := os.Lstat(name)
	if err != nil {
		return nil, fmt.Errorf("vfs: lstat %q: %w", name, err)
	}
	return info, nil
}

// ReadDir implements FS.ReadDir. Entries whose metadata disappears between
// the listing and the stat (deletion races) are dropped from the result.
func (*OS) ReadDir(name string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(name)
	if err != nil {
		return nil, fmt.Errorf("vfs: readdir %q: %w", name, err)
	}
	infos := make([]os.FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Open implements FS.Open.
func (*OS) Open(name string) (File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("vfs: open %q: %w", name, err)
	}
	return f, nil
}

// Canonical implements FS.Canonical via filepath.EvalSymlinks.
func (*OS) Canonical(name string) (string, error) {
	resolved, err := filepath.EvalSymlinks(name)
	if err != nil {
		return "", fmt.Errorf("vfs: canonical %q: %w", name, err)
	}
	return resolved, nil
}

// SecureJoin implements FS.SecureJoin. Symlinks in unsafePath are resolved
// such that the result stays under root.
func (*OS) SecureJoin(root, unsafePath string) (string, error) {
	joined, err := securejoin.SecureJoin(root, unsafePath)
	if err != nil {
		return "", fmt.Errorf("vfs: securejoin %q under %q: %w", unsafePath, root, err)
	}
	return joined, nil
}

// Join implements FS.Join.
func (*OS) Join(elem ...string) string {
	return filepath.Join(elem...)
}
