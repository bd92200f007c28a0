package classgraph

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/torstenkuhnhenne/classgraph/scanspec"
	"github.com/torstenkuhnhenne/classgraph/vfs"
)

// Reserved subpaths probed during nested-root discovery. Library dirs
// contribute their jars as child work units; package roots become child work
// units themselves.
var (
	autoLibDirs      = []string{"lib", "ext", "BOOT-INF/lib", "WEB-INF/lib", "WEB-INF/lib-provided"}
	autoPackageRoots = []string{"BOOT-INF/classes", "WEB-INF/classes"}
)

// versionedPathPrefix marks multi-release sections. They are only meaningful
// inside archive containers, so exploded directories never descend into them.
const versionedPathPrefix = "META-INF/versions/"

// moduleDescriptorName is the reserved top-level descriptor selected
// unconditionally when binary-metadata scanning is enabled.
const moduleDescriptorName = "module-info.class"

// archiveExt is the extension recognized for nested library archives.
const archiveExt = ".jar"

// ctrl is the result of one recursive traversal step.
type ctrl int

const (
	ctrlContinue ctrl = iota
	ctrlStopRoot
)

// Element is one configured root directory of a classpath. It owns the
// resources selected beneath it and the bookkeeping of one scan: the
// visited-canonical-path set, the last-modified records and the sticky skip
// flag.
//
// Open and Scan are each one-shot. The traversal itself is single-threaded;
// distinct elements may be scanned concurrently.
type Element struct {
	dir       string
	loader    any
	spec      *scanspec.Spec
	fsys      vfs.FS
	log       *zap.Logger
	threshold int64

	// prefixLen strips the root dir (plus separator) off child paths when
	// relativizing them.
	prefixLen int

	scanned atomic.Bool
	skip    atomic.Bool

	visited        map[string]struct{}
	lastModified   map[string]time.Time
	nestedRoots    map[string]struct{}
	nestedArchives map[string]struct{}
	resources      []*Resource
}

// NewElement creates a root element for the given directory.
func NewElement(dir string, opts ...Option) *Element {
	return newElement(newConfig(opts...), dir, nil)
}

func newElement(cfg *config, dir string, loader any) *Element {
	if loader == nil {
		loader = cfg.loader
	}
	dir = cfg.fsys.Join(dir)
	return &Element{
		dir:          dir,
		loader:       loader,
		spec:         cfg.spec,
		fsys:         cfg.fsys,
		log:          cfg.log.Named("classgraph").With(zap.String("root", dir)),
		threshold:    cfg.threshold,
		prefixLen:    len(dir) + 1,
		visited:        make(map[string]struct{}),
		lastModified:   make(map[string]time.Time),
		nestedRoots:    make(map[string]struct{}),
		nestedArchives: make(map[string]struct{}),
	}
}

// Dir returns the root directory of this element.
func (e *Element) Dir() string {
	return e.dir
}

// Loader returns the opaque loader reference attached to this element.
func (e *Element) Loader() any {
	return e.loader
}

// Skipped reports whether this element has been skipped. Once set, the flag
// never clears and no further resources are produced from this root.
func (e *Element) Skipped() bool {
	return e.skip.Load()
}

// Resources returns the resources selected by Scan, in traversal order.
func (e *Element) Resources() []*Resource {
	return e.resources
}

// LastModified returns the last-modified timestamps recorded for every file
// and directory visited during the scan, keyed by path. The map is owned by
// the element and must not be mutated.
func (e *Element) LastModified() map[string]time.Time {
	return e.lastModified
}

// Open runs nested-root discovery once, before any path scanning: reserved
// library subpaths contribute their archives as work units and reserved
// package-root subpaths become work units themselves, with densely increasing
// order indices per this parent.
//
// A permission failure during probing skips the whole element and submits
// nothing further. If directory scanning is disabled, the element is skipped
// without probing.
func (e *Element) Open(queue Submitter) {
	if !e.spec.ScanDirs() {
		e.log.Debug("skipping root element, directory scanning is disabled")
		e.skip.Store(true)
		return
	}
	order := 0
	for _, sub := range autoLibDirs {
		libDir := e.joinRel(sub)
		infos, err := e.fsys.ReadDir(libDir)
		if err != nil {
			if isPermission(err) {
				e.log.Warn("cannot access root element, skipping", zap.Error(err))
				e.skip.Store(true)
				return
			}
			continue
		}
		sortByName(infos)
		for _, info := range infos {
			if !info.Mode().IsRegular() || !strings.HasSuffix(info.Name(), archiveExt) {
				continue
			}
			jar := e.fsys.Join(libDir, info.Name())
			e.log.Debug("found lib jar", zap.String("path", jar))
			e.nestedArchives[sub+"/"+info.Name()] = struct{}{}
			queue.Submit(WorkUnit{Path: jar, Loader: e.loader, Parent: e, Order: order})
			order++
		}
	}
	for _, sub := range autoPackageRoots {
		rootDir := e.joinRel(sub)
		info, err := e.fsys.Stat(rootDir)
		if err != nil {
			if isPermission(err) {
				e.log.Warn("cannot access root element, skipping", zap.Error(err))
				e.skip.Store(true)
				return
			}
			continue
		}
		if !info.IsDir() {
			continue
		}
		e.log.Debug("found package root", zap.String("path", rootDir))
		e.nestedRoots[sub+"/"] = struct{}{}
		queue.Submit(WorkUnit{Path: rootDir, Loader: e.loader, Parent: e, Order: order})
		order++
	}
}

// Scan walks the directory tree once, selecting resources per the scan spec.
// It returns the selected resources in deterministic order: files of a
// directory in name order, then its subdirectories in name order.
//
// Scanning an already-scanned element is a caller contract violation and
// panics. All filesystem failures degrade to logged subtree or root skips.
func (e *Element) Scan() []*Resource {
	if e.skip.Load() {
		return nil
	}
	if e.scanned.Swap(true) {
		panic("classgraph: root element already scanned: " + e.dir)
	}
	info, err := e.fsys.Stat(e.dir)
	if err != nil || !info.IsDir() {
		e.log.Debug("root element is not a readable directory", zap.Error(err))
		return nil
	}
	e.scanDir(e.dir, info)
	return e.resources
}

// Resource returns a handle for the file at the given path relative to this
// root, or nil if no regular file exists there. The relative path is joined
// safely, so it cannot address files outside the root.
func (e *Element) Resource(relPath string) *Resource {
	abs, err := e.fsys.SecureJoin(e.dir, relPath)
	if err != nil {
		return nil
	}
	info, err := e.fsys.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	rel := strings.Trim(filepath.ToSlash(relPath), "/")
	return e.newResource(rel, abs, info)
}

// dirEntry pairs a directory entry's name with its metadata. For symlinks
// the metadata is that of the target, so link-to-dir entries recurse and
// link-to-file entries can be selected.
type dirEntry struct {
	name string
	info os.FileInfo
}

// scanDir is one recursive traversal step for dir, whose metadata is info.
// It returns ctrlStopRoot when the sticky skip flag was set and the whole
// root must unwind.
func (e *Element) scanDir(dir string, info os.FileInfo) ctrl {
	canonical, err := e.fsys.Canonical(dir)
	if err != nil {
		e.log.Debug("could not canonicalize path, skipping subtree",
			zap.String("dir", dir), zap.Error(err))
		return ctrlContinue
	}
	if _, seen := e.visited[canonical]; seen {
		e.log.Debug("reached symlink cycle, stopping recursion", zap.String("dir", dir))
		return ctrlContinue
	}
	e.visited[canonical] = struct{}{}

	rel := e.relDir(dir)
	if _, nested := e.nestedRoots[rel]; nested {
		e.log.Debug("reached nested root, stopping recursion to avoid duplicate scanning",
			zap.String("path", rel))
		return ctrlContinue
	}
	if strings.HasPrefix(rel, versionedPathPrefix) {
		e.log.Debug("found versioned entry in directory root, skipping", zap.String("path", rel))
		return ctrlContinue
	}

	if e.spec.RejectsResource(rel) {
		e.log.Info("reached rejected resource path, skipping root element", zap.String("path", rel))
		e.skip.Store(true)
		return ctrlStopRoot
	}

	status := e.spec.ClassifyDir(rel)
	switch status {
	case scanspec.HasExcludedPathPrefix:
		e.log.Debug("reached excluded directory, stopping recursive scan", zap.String("path", rel))
		return ctrlContinue
	case scanspec.NotWithinIncluded:
		return ctrlContinue
	}

	infos, err := e.fsys.ReadDir(dir)
	if err != nil {
		e.log.Debug("cannot list directory, skipping subtree",
			zap.String("dir", dir), zap.Error(err))
		return ctrlContinue
	}
	entries := e.resolveEntries(dir, infos)

	// Preorder: files before subdirectories, to reduce filesystem cache
	// churn between listing and reading.
	if status != scanspec.AncestorOfIncluded {
		for _, entry := range entries {
			if !entry.info.Mode().IsRegular() {
				continue
			}
			frel := relFile(rel, entry.name)
			if e.spec.RejectsResource(frel) {
				e.log.Info("reached rejected resource path, skipping root element",
					zap.String("path", frel))
				e.skip.Store(true)
				return ctrlStopRoot
			}
			fabs := e.fsys.Join(dir, entry.name)
			if _, nested := e.nestedArchives[frel]; nested {
				// Already scheduled as its own work unit.
				e.log.Debug("skipping nested archive", zap.String("path", frel))
				e.lastModified[fabs] = entry.info.ModTime()
				continue
			}
			if e.selectsFile(frel, status) {
				e.resources = append(e.resources, e.newResource(frel, fabs, entry.info))
			} else {
				e.log.Debug("skipping file not in include policy", zap.String("path", frel))
			}
			e.lastModified[fabs] = entry.info.ModTime()
		}
	} else if e.spec.EnableClassInfo() && rel == "/" {
		// The module descriptor in the package root is selected even when
		// the root itself is not included.
		for _, entry := range entries {
			if entry.name != moduleDescriptorName || !entry.info.Mode().IsRegular() {
				continue
			}
			fabs := e.fsys.Join(dir, entry.name)
			e.resources = append(e.resources, e.newResource(moduleDescriptorName, fabs, entry.info))
			e.lastModified[fabs] = entry.info.ModTime()
		}
	}

	for _, entry := range entries {
		if !entry.info.IsDir() {
			continue
		}
		if e.scanDir(e.fsys.Join(dir, entry.name), entry.info) == ctrlStopRoot {
			return ctrlStopRoot
		}
		if e.skip.Load() {
			return ctrlStopRoot
		}
	}

	e.lastModified[dir] = info.ModTime()
	return ctrlContinue
}

// selectsFile reports whether a file is selected given its directory's match
// status.
func (e *Element) selectsFile(frel string, status scanspec.MatchStatus) bool {
	switch status {
	case scanspec.AtIncludedPath, scanspec.HasIncludedPathPrefix:
		return true
	case scanspec.AtIncludedPackageWithFileFilter:
		return e.spec.ClassifyFile(frel, status)
	default:
		return false
	}
}

// resolveEntries sorts the listing by name and follows symlinked entries to
// their targets. Broken links are dropped.
func (e *Element) resolveEntries(dir string, infos []os.FileInfo) []dirEntry {
	sortByName(infos)
	entries := make([]dirEntry, 0, len(infos))
	for _, info := range infos {
		resolved := info
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := e.fsys.Stat(e.fsys.Join(dir, info.Name()))
			if err != nil {
				e.log.Debug("skipping broken symlink",
					zap.String("path", e.fsys.Join(dir, info.Name())), zap.Error(err))
				continue
			}
			resolved = target
		}
		entries = append(entries, dirEntry{name: info.Name(), info: resolved})
	}
	return entries
}

// newResource creates a resource handle for a selected file. POSIX
// permission bits are captured best-effort; their absence is not an error.
func (e *Element) newResource(rel, abs string, info os.FileInfo) *Resource {
	perm, hasPerm := posixPerms(info)
	return &Resource{
		elt:     e,
		relPath: rel,
		absPath: abs,
		length:  info.Size(),
		modTime: info.ModTime(),
		perm:    perm,
		hasPerm: hasPerm,
	}
}

// relDir returns dir's path relative to the root: "/" for the root itself,
// "sub/dir/" below it.
func (e *Element) relDir(dir string) string {
	if e.prefixLen > len(dir) {
		return "/"
	}
	return filepath.ToSlash(dir[e.prefixLen:]) + "/"
}

// relFile joins a file name onto its directory's relative path.
func relFile(dirRel, name string) string {
	if dirRel == "/" || dirRel == "" {
		return name
	}
	return dirRel + name
}

// joinRel joins a slash-separated reserved subpath onto the root dir using
// the filesystem's separator.
func (e *Element) joinRel(rel string) string {
	parts := append([]string{e.dir}, strings.Split(rel, "/")...)
	return e.fsys.Join(parts...)
}

func sortByName(infos []os.FileInfo) {
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
}

func isPermission(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}
