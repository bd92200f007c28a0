// Package scanspec defines the include/exclude policy that drives classpath
// directory scanning. A Spec classifies relative paths into match statuses
// that tell the traverser whether to prune a subtree, recurse without
// selecting files, or select files at that level.
//
// Paths are slash-separated and relative to the root element. Directory
// paths carry a trailing slash, with the root itself written as "/".
package scanspec

import (
	"sort"
	"strings"
)

// MatchStatus is the classifier's verdict for a relative path.
type MatchStatus int

const (
	// NotWithinIncluded means the path is neither inside nor above any
	// included path. Neither recursion nor file selection happens there.
	NotWithinIncluded MatchStatus = iota

	// HasExcludedPathPrefix means the path is under an excluded prefix.
	// The subtree is pruned regardless of any include match.
	HasExcludedPathPrefix

	// AncestorOfIncluded means the path itself is not included, but some
	// descendant is. Recursion continues; no files are selected here.
	AncestorOfIncluded

	// AtIncludedPath means the path is exactly an included path.
	AtIncludedPath

	// HasIncludedPathPrefix means the path is under a recursively included
	// prefix.
	HasIncludedPathPrefix

	// AtIncludedPackageWithFileFilter means the path is the package of one
	// or more specifically included files. Only those files are selected.
	AtIncludedPackageWithFileFilter
)

// String returns a human-readable name for the match status.
func (m MatchStatus) String() string {
	switch m {
	case HasExcludedPathPrefix:
		return "has-excluded-path-prefix"
	case AncestorOfIncluded:
		return "ancestor-of-included"
	case AtIncludedPath:
		return "at-included-path"
	case HasIncludedPathPrefix:
		return "has-included-path-prefix"
	case AtIncludedPackageWithFileFilter:
		return "at-included-package-with-file-filter"
	default:
		return "not-within-included"
	}
}

// Spec is an immutable include/exclude policy plus the global scan toggles.
// Build one with New and functional options; a nil option list includes
// everything.
type Spec struct {
	scanDirs        bool
	enableClassInfo bool

	includePrefixes []string            // recursive includes, "com/example/"
	includePaths    map[string]struct{} // non-recursive includes, "com/example/"
	includeFiles    map[string]struct{} // specifically included files
	includeFileDirs map[string]struct{} // parent dirs of includeFiles
	excludePrefixes []string
	rejectPaths     map[string]struct{} // element-level resource rejects
}

// Option configures a Spec under construction.
type Option func(*Spec)

// New builds a Spec from the given options. With no include options the spec
// includes every path under the root.
func New(opts ...Option) *Spec {
	s := &Spec{
		scanDirs:        true,
		enableClassInfo: true,
		includePaths:    make(map[string]struct{}),
		includeFiles:    make(map[string]struct{}),
		includeFileDirs: make(map[string]struct{}),
		rejectPaths:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.includePrefixes) == 0 && len(s.includePaths) == 0 && len(s.includeFiles) == 0 {
		// Empty include set means "include everything".
		s.includePrefixes = []string{""}
	}
	sort.Strings(s.includePrefixes)
	sort.Strings(s.excludePrefixes)
	return s
}

// WithIncludePackages recursively includes the given package paths
// (e.g. "com/example"): the paths themselves and everything below them.
func WithIncludePackages(pkgs ...string) Option {
	return func(s *Spec) {
		for _, p := range pkgs {
			s.includePrefixes = append(s.includePrefixes, normDir(p))
		}
	}
}

// WithIncludePaths includes the given directory paths non-recursively:
// files directly in them are selected, but subdirectories are not.
func WithIncludePaths(paths ...string) Option {
	return func(s *Spec) {
		for _, p := range paths {
			s.includePaths[normDir(p)] = struct{}{}
		}
	}
}

// WithIncludeFiles includes the given individual files
// (e.g. "com/example/App.class"). Their parent directories classify as
// AtIncludedPackageWithFileFilter.
func WithIncludeFiles(files ...string) Option {
	return func(s *Spec) {
		for _, f := range files {
			f = normFile(f)
			if f == "" {
				continue
			}
			s.includeFiles[f] = struct{}{}
			s.includeFileDirs[parentDir(f)] = struct{}{}
		}
	}
}

// WithExcludePackages excludes the given package paths and everything below
// them. Exclusion wins over any include match.
func WithExcludePackages(pkgs ...string) Option {
	return func(s *Spec) {
		for _, p := range pkgs {
			s.excludePrefixes = append(s.excludePrefixes, normDir(p))
		}
	}
}

// WithRejectResourcePaths marks resource paths that must never appear in a
// scanned root. Encountering one skips the entire root element, not just the
// subtree.
func WithRejectResourcePaths(paths ...string) Option {
	return func(s *Spec) {
		for _, p := range paths {
			s.rejectPaths[normFile(p)] = struct{}{}
		}
	}
}

// WithDirScanning toggles directory scanning. When disabled, root elements
// are skipped at open time without error.
func WithDirScanning(enabled bool) Option {
	return func(s *Spec) {
		s.scanDirs = enabled
	}
}

// WithClassInfo toggles binary-metadata scanning. When enabled, the reserved
// module descriptor at the package root is selected even outside the include
// set.
func WithClassInfo(enabled bool) Option {
	return func(s *Spec) {
		s.enableClassInfo = enabled
	}
}

// ScanDirs reports whether directory scanning is enabled.
func (s *Spec) ScanDirs() bool {
	return s.scanDirs
}

// EnableClassInfo reports whether binary-metadata scanning is enabled.
func (s *Spec) EnableClassInfo() bool {
	return s.enableClassInfo
}

// ClassifyDir classifies a directory path relative to the root ("/" for the
// root itself, "sub/dir/" otherwise).
//
// Precedence: exclusion is checked first and is terminal. Among include
// statuses, an exact match and a recursive-prefix match both permit file
// selection; the package-of-included-file status permits selection of the
// filtered files only; an ancestor permits recursion but no selection.
func (s *Spec) ClassifyDir(rel string) MatchStatus {
	p := normDir(rel)
	for _, ex := range s.excludePrefixes {
		if strings.HasPrefix(p, ex) {
			return HasExcludedPathPrefix
		}
	}
	if _, ok := s.includePaths[p]; ok {
		return AtIncludedPath
	}
	for _, in := range s.includePrefixes {
		if strings.HasPrefix(p, in) {
			return HasIncludedPathPrefix
		}
	}
	if _, ok := s.includeFileDirs[p]; ok {
		return AtIncludedPackageWithFileFilter
	}
	if s.isAncestor(p) {
		return AncestorOfIncluded
	}
	return NotWithinIncluded
}

// ClassifyFile reports whether a file at the given relative path is selected,
// given its parent directory's match status.
func (s *Spec) ClassifyFile(rel string, parent MatchStatus) bool {
	switch parent {
	case AtIncludedPath, HasIncludedPathPrefix:
		return true
	case AtIncludedPackageWithFileFilter:
		_, ok := s.includeFiles[normFile(rel)]
		return ok
	default:
		return false
	}
}

// RejectsResource reports whether the given resource path is on the
// element-level reject list. A hit means the whole root element must be
// skipped.
func (s *Spec) RejectsResource(rel string) bool {
	if len(s.rejectPaths) == 0 {
		return false
	}
	_, ok := s.rejectPaths[normFile(rel)]
	return ok
}

// isAncestor reports whether p is a proper ancestor of any include target.
func (s *Spec) isAncestor(p string) bool {
	for _, in := range s.includePrefixes {
		if in != p && strings.HasPrefix(in, p) {
			return true
		}
	}
	for in := range s.includePaths {
		if in != p && strings.HasPrefix(in, p) {
			return true
		}
	}
	for in := range s.includeFileDirs {
		if in != p && strings.HasPrefix(in, p) {
			return true
		}
	}
	return false
}

// normDir normalizes a directory path to the internal "a/b/" form, with the
// root as "".
func normDir(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// normFile normalizes a file or resource path to the internal "a/b" form.
func normFile(p string) string {
	return strings.Trim(p, "/")
}

// parentDir returns the normalized directory containing the given file path.
func parentDir(file string) string {
	i := strings.LastIndexByte(file, '/')
	if i < 0 {
		return ""
	}
	return file[:i+1]
}
