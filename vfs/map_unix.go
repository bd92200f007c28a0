//go:build unix

package vfs

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	cgerrors "github.com/torstenkuhnhenne/classgraph/errors"
)

const maxMapLen = int64(^uint(0) >> 1)

// Map implements Mapper by memory-mapping the file read-only over its full
// span. The file descriptor is closed before returning; the mapping outlives
// it. Zero-length files yield an empty view without a mapping, since mmap
// rejects zero-length requests.
func (*OS) Map(name string) (*Mapping, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("vfs: map %q: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("vfs: map %q: %w", name, err)
	}
	size := info.Size()
	if size == 0 {
		return &Mapping{data: []byte{}}, nil
	}
	if size > maxMapLen {
		return nil, fmt.Errorf("vfs: map %q: %w", name, cgerrors.ErrTooLarge)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("vfs: map %q: %w", name, err)
	}
	return &Mapping{data: data, unmap: unix.Munmap}, nil
}
