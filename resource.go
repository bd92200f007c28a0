package classgraph

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"io/fs"
	"runtime/debug"
	"sync"
	"time"

	cgerrors "github.com/torstenkuhnhenne/classgraph/errors"
	"github.com/torstenkuhnhenne/classgraph/vfs"
)

// backend identifies which content backend a resource currently holds.
// Transitions only move forward and Closed is absorbing.
type backend int

const (
	backendUnopened backend = iota
	backendStreamed
	backendMapped
	backendMaterialized
	backendClosed
)

// Resource is a lazily-opened, closable handle onto one selected file.
//
// A resource holds at most one live backend at a time: a buffered stream, a
// read-only memory mapping, or a fully materialized buffer. All operations on
// one resource serialize on its lock; operations on distinct resources never
// block each other.
type Resource struct {
	elt     *Element
	relPath string
	absPath string

	mu      sync.Mutex
	kind    backend
	length  int64
	modTime time.Time
	perm    fs.FileMode
	hasPerm bool
	mapping *vfs.Mapping
	stream  vfs.File
	view    []byte
}

// Path returns the resource's path relative to its root element.
func (r *Resource) Path() string {
	return r.relPath
}

// PathRelativeToRoot returns the resource's path relative to its root
// element. For directory roots this equals Path.
func (r *Resource) PathRelativeToRoot() string {
	return r.relPath
}

// Element returns the root element that owns this resource.
func (r *Resource) Element() *Element {
	return r.elt
}

// Length returns the resource's byte length. After Read or Load it reflects
// the actual content length observed.
func (r *Resource) Length() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.length
}

// ModTime returns the file's last-modified timestamp as recorded at
// selection time.
func (r *Resource) ModTime() time.Time {
	return r.modTime
}

// PosixPerms returns the file's POSIX permission bits if the platform
// supports them. On platforms without POSIX semantics ok is false.
func (r *Resource) PosixPerms() (perm fs.FileMode, ok bool) {
	return r.perm, r.hasPerm
}

// String returns the resource's location for error messages.
func (r *Resource) String() string {
	return r.elt.dir + "!" + r.relPath
}

// Read maps the full file span read-only and returns the zero-copy view.
// Repeated calls before Close return the same view. On filesystems without a
// mapping capability the view is a whole-file read instead.
//
// A failed mapping triggers one best-effort reclamation hint and one retry;
// a second failure closes the handle and surfaces a read error.
func (r *Resource) Read() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readLocked()
}

func (r *Resource) readLocked() ([]byte, error) {
	switch r.kind {
	case backendMapped:
		return r.view, nil
	case backendClosed:
		return nil, cgerrors.NewResourceError("read", r.elt.dir, r.relPath, cgerrors.ErrClosed)
	case backendStreamed, backendMaterialized:
		return nil, cgerrors.NewResourceError("read", r.elt.dir, r.relPath, cgerrors.ErrAlreadyOpen)
	}
	if r.elt.skip.Load() {
		return nil, cgerrors.NewResourceError("read", r.elt.dir, r.relPath, cgerrors.ErrRootSkipped)
	}
	view, mapping, err := r.mapContent()
	if err != nil {
		r.closeLocked()
		return nil, cgerrors.NewResourceError("read", r.elt.dir, r.relPath, err)
	}
	r.mapping = mapping
	r.view = view
	r.length = int64(len(view))
	r.kind = backendMapped
	return view, nil
}

// mapContent produces the mapped view, retrying a failed mapping once after
// nudging the runtime to release unreferenced mappings. There is a hard OS
// limit on the number of live mappings per process.
func (r *Resource) mapContent() ([]byte, *vfs.Mapping, error) {
	mapper, ok := r.elt.fsys.(vfs.Mapper)
	if !ok {
		view, err := r.readFull()
		return view, nil, err
	}
	m, err := mapper.Map(r.absPath)
	if err == nil {
		return m.Bytes(), m, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, err
	}
	debug.FreeOSMemory()
	m, err = mapper.Map(r.absPath)
	if err != nil {
		return nil, nil, err
	}
	return m.Bytes(), m, nil
}

// readFull reads the whole file through the filesystem, for filesystems that
// cannot memory-map.
func (r *Resource) readFull() ([]byte, error) {
	f, err := r.elt.fsys.Open(r.absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readAllSized(f, r.length)
}

// Open returns a byte stream over the resource's content. Below the stream
// threshold this is a buffered file stream; at or above it the content is
// mapped via Read and exposed through a reader. Closing the returned stream
// closes the resource.
func (r *Resource) Open() (io.ReadCloser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.kind {
	case backendClosed:
		return nil, cgerrors.NewResourceError("open", r.elt.dir, r.relPath, cgerrors.ErrClosed)
	case backendStreamed, backendMapped, backendMaterialized:
		return nil, cgerrors.NewResourceError("open", r.elt.dir, r.relPath, cgerrors.ErrAlreadyOpen)
	}
	if r.length >= r.elt.threshold {
		view, err := r.readLocked()
		if err != nil {
			return nil, err
		}
		return &resourceReader{r: r, rd: bytes.NewReader(view)}, nil
	}
	if r.elt.skip.Load() {
		return nil, cgerrors.NewResourceError("open", r.elt.dir, r.relPath, cgerrors.ErrRootSkipped)
	}
	f, err := r.elt.fsys.Open(r.absPath)
	if err != nil {
		r.closeLocked()
		return nil, cgerrors.NewResourceError("open", r.elt.dir, r.relPath, err)
	}
	r.stream = f
	r.kind = backendStreamed
	return &resourceReader{r: r, rd: bufio.NewReader(f)}, nil
}

// Load materializes the entire content into an owned buffer, updates the
// recorded length to the actual bytes read, and closes the handle before
// returning, on success and failure alike. Callers never need a separate
// Close after Load.
func (r *Resource) Load() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.closeLocked()

	switch r.kind {
	case backendClosed:
		return nil, cgerrors.NewResourceError("load", r.elt.dir, r.relPath, cgerrors.ErrClosed)
	case backendStreamed, backendMapped, backendMaterialized:
		return nil, cgerrors.NewResourceError("load", r.elt.dir, r.relPath, cgerrors.ErrAlreadyOpen)
	}

	if r.length >= r.elt.threshold {
		view, err := r.readLocked()
		if err != nil {
			return nil, err
		}
		// The mapping is released by the deferred close; hand the caller
		// an owned copy.
		buf := make([]byte, len(view))
		copy(buf, view)
		r.kind = backendMaterialized
		r.length = int64(len(buf))
		return buf, nil
	}

	if r.elt.skip.Load() {
		return nil, cgerrors.NewResourceError("load", r.elt.dir, r.relPath, cgerrors.ErrRootSkipped)
	}
	f, err := r.elt.fsys.Open(r.absPath)
	if err != nil {
		return nil, cgerrors.NewResourceError("load", r.elt.dir, r.relPath, err)
	}
	r.stream = f
	r.kind = backendMaterialized
	buf, err := readAllSized(f, r.length)
	if err != nil {
		return nil, cgerrors.NewResourceError("load", r.elt.dir, r.relPath, err)
	}
	r.length = int64(len(buf))
	return buf, nil
}

// Close releases the stream, mapping and any native handle. It is safe to
// call any number of times, from any goroutine, in any state, and never
// fails.
func (r *Resource) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

func (r *Resource) closeLocked() {
	if r.kind == backendClosed {
		return
	}
	if r.stream != nil {
		_ = r.stream.Close()
		r.stream = nil
	}
	if r.mapping != nil {
		_ = r.mapping.Close()
		r.mapping = nil
	}
	r.view = nil
	r.kind = backendClosed
}

// resourceReader adapts a resource backend to io.ReadCloser; closing it
// closes the owning resource.
type resourceReader struct {
	r  *Resource
	rd io.Reader
}

func (rr *resourceReader) Read(p []byte) (int, error) {
	return rr.rd.Read(p)
}

func (rr *resourceReader) Close() error {
	rr.r.Close()
	return nil
}

// readAllSized reads r to EOF, preallocating for the expected size. The file
// may have changed size since it was selected, so the expected size is a
// hint, not a bound.
func readAllSized(r io.Reader, size int64) ([]byte, error) {
	if size < 0 {
		size = 0
	}
	buf := bytes.NewBuffer(make([]byte, 0, size+1))
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
