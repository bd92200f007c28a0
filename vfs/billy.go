package vfs

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
)

// maxSymlinkHops bounds symlink resolution, matching the kernel's limit.
const maxSymlinkHops = 40

var errTooManyLinks = errors.New("too many levels of symbolic links")

// Billy implements FS over any go-billy filesystem. It does not implement
// Mapper, so resource reads on it fall back to the buffered path.
type Billy struct {
	fs billy.Filesystem
}

// NewBilly wraps the given go-billy filesystem.
func NewBilly(fsys billy.Filesystem) *Billy {
	return &Billy{fs: fsys}
}

// NewMemory returns an in-memory filesystem with symlink support, useful for
// tests and for scanning synthetic classpath trees.
func NewMemory() *Billy {
	return &Billy{fs: memfs.New()}
}

// Raw returns the underlying go-billy filesystem.
//
//nolint:ireturn // returning the interface is intentional to expose the adapter target.
func (b *Billy) Raw() billy.Filesystem {
	return b.fs
}

// Stat implements FS.Stat.
func (b *Billy) Stat(name string) (os.FileInfo, error) {
	info, err := b.fs.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("vfs: stat %q: %w", name, err)
	}
	return info, nil
}

// Lstat implements FS.Lstat.
func (b *Billy) Lstat(name string) (os.FileInfo, error) {
	info, err := b.fs.Lstat(name)
	if err != nil {
		return nil, fmt.Errorf("vfs: lstat %q: %w", name, err)
	}
	return info, nil
}

// ReadDir implements FS.ReadDir.
func (b *Billy) ReadDir(name string) ([]os.FileInfo, error) {
	infos, err := b.fs.ReadDir(name)
	if err != nil {
		return nil, fmt.Errorf("vfs: readdir %q: %w", name, err)
	}
	return infos, nil
}

// Open implements FS.Open.
func (b *Billy) Open(name string) (File, error) {
	f, err := b.fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("vfs: open %q: %w", name, err)
	}
	return f, nil
}

// Canonical implements FS.Canonical by resolving symlinks component-wise.
func (b *Billy) Canonical(name string) (string, error) {
	resolved, err := b.canonical(name, 0)
	if err != nil {
		return "", fmt.Errorf("vfs: canonical %q: %w", name, err)
	}
	return resolved, nil
}

func (b *Billy) canonical(name string, hops int) (string, error) {
	if hops > maxSymlinkHops {
		return "", errTooManyLinks
	}
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if clean == "/" || clean == "." {
		return clean, nil
	}
	rooted := strings.HasPrefix(clean, "/")
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")

	resolved := ""
	if rooted {
		resolved = "/"
	}
	for i, part := range parts {
		cur := b.fs.Join(resolved, part)
		info, err := b.fs.Lstat(cur)
		if err != nil {
			return "", err
		}
		if info.Mode()&os.ModeSymlink == 0 {
			resolved = cur
			continue
		}
		target, err := b.fs.Readlink(cur)
		if err != nil {
			return "", err
		}
		if !strings.HasPrefix(target, "/") {
			target = b.fs.Join(resolved, target)
		}
		// Restart resolution from the link target plus what is left.
		rest := append([]string{target}, parts[i+1:]...)
		return b.canonical(b.fs.Join(rest...), hops+1)
	}
	return resolved, nil
}

// SecureJoin implements FS.SecureJoin lexically: the untrusted path is
// cleaned as if rooted, so ".." components cannot climb above root.
func (b *Billy) SecureJoin(root, unsafePath string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(unsafePath, "\\", "/"))
	return b.fs.Join(root, clean), nil
}

// Join implements FS.Join.
func (b *Billy) Join(elem ...string) string {
	return b.fs.Join(elem...)
}
