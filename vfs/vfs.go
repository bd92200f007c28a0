// Package vfs abstracts the filesystem operations needed by classpath
// scanning: metadata queries, directory listing, read-only opens, symlink
// canonicalization and safe joining of untrusted relative paths.
//
// Two implementations are provided: OS for the real filesystem (with a
// memory-mapping capability on unix) and Billy for any go-billy filesystem,
// including in-memory trees for tests and embedded classpaths.
package vfs

import (
	"io"
	"os"
)

// File is a readable, closable view onto one file.
type File interface {
	io.Reader
	io.Closer
}

// FS is the read-only filesystem surface used by the scanner.
// Implementations must behave consistently with the standard library.
type FS interface {
	// Stat returns file metadata, following symlinks.
	Stat(name string) (os.FileInfo, error)

	// Lstat returns file metadata without following symlinks.
	Lstat(name string) (os.FileInfo, error)

	// ReadDir lists a directory. Order is unspecified; callers sort.
	ReadDir(name string) ([]os.FileInfo, error)

	// Open opens a file for reading.
	Open(name string) (File, error)

	// Canonical resolves all symlinks in name, yielding the path used as
	// the filesystem identity for cycle detection.
	Canonical(name string) (string, error)

	// SecureJoin joins an untrusted relative path to root such that the
	// result cannot escape root.
	SecureJoin(root, unsafePath string) (string, error)

	// Join joins path elements using this filesystem's separator.
	Join(elem ...string) string
}

// Mapper is an optional FS capability: producing read-only memory mappings
// of whole files. Filesystems without it force resource reads onto the
// buffered path.
type Mapper interface {
	Map(name string) (*Mapping, error)
}

// Mapping is a read-only view of one file's full span. On unix the view is
// a live memory mapping and Close unmaps it; elsewhere it is a heap buffer.
type Mapping struct {
	data  []byte
	unmap func([]byte) error
}

// Bytes returns the mapped view. The slice is only valid until Close.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Close releases the mapping. It is safe to call more than once.
func (m *Mapping) Close() error {
	data, unmap := m.data, m.unmap
	m.data, m.unmap = nil, nil
	if unmap == nil || data == nil {
		return nil
	}
	return unmap(data)
}
