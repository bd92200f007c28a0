//go:build !unix

package vfs

import (
	"fmt"
	"os"
)

// Map implements Mapper on platforms without a maintained mmap path by
// reading the full file into a heap buffer. The Mapping contract is
// unchanged; Close simply drops the buffer.
func (*OS) Map(name string) (*Mapping, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("vfs: map %q: %w", name, err)
	}
	return &Mapping{data: data}, nil
}
