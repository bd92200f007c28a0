package classgraph

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torstenkuhnhenne/classgraph/scanspec"
	"github.com/torstenkuhnhenne/classgraph/vfs"
)

// writeTree materializes a file tree in a fresh temp dir and returns its root.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
	return root
}

// recorder collects submitted work units.
type recorder struct {
	mu    sync.Mutex
	units []WorkUnit
}

func (r *recorder) Submit(u WorkUnit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units = append(r.units, u)
}

func resourcePaths(resources []*Resource) []string {
	paths := make([]string, 0, len(resources))
	for _, res := range resources {
		paths = append(paths, res.Path())
	}
	return paths
}

func TestScan_SelectsEveryFileInNameOrder(t *testing.T) {
	root := writeTree(t, map[string]string{
		"zzz.txt":     "z",
		"aaa/x.txt":   "x",
		"aaa/y.txt":   "y",
		"bbb/c/d.txt": "d",
	})

	resources := NewElement(root).Scan()

	// Files of a directory come before its subdirectories, both in name order.
	assert.Equal(t,
		[]string{"zzz.txt", "aaa/x.txt", "aaa/y.txt", "bbb/c/d.txt"},
		resourcePaths(resources))
}

func TestScan_IncludePolicySelectsAndPrunes(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkg/inner/x.class": "x",
		"pkg/other/y.class": "y",
		"other/z.class":     "z",
	})

	elt := NewElement(root, WithSpec(scanspec.New(scanspec.WithIncludePackages("pkg/inner"))))
	resources := elt.Scan()

	assert.Equal(t, []string{"pkg/inner/x.class"}, resourcePaths(resources))
	assert.False(t, elt.Skipped())
}

func TestScan_ExcludedPrefixPrunesSubtreeOnly(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.txt":        "a",
		"secret/x.txt": "x",
	})

	elt := NewElement(root, WithSpec(scanspec.New(scanspec.WithExcludePackages("secret"))))
	resources := elt.Scan()

	assert.Equal(t, []string{"a.txt"}, resourcePaths(resources))
	assert.False(t, elt.Skipped())
}

func TestScan_RejectedResourceSkipsWholeRoot(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a/z.txt":         "z",
		"b/forbidden.txt": "no",
		"c/x.txt":         "x",
	})

	elt := NewElement(root,
		WithSpec(scanspec.New(scanspec.WithRejectResourcePaths("b/forbidden.txt"))))
	resources := elt.Scan()

	// The scan unwinds at the reject hit; c/ is never visited even though it
	// would have been included.
	assert.Equal(t, []string{"a/z.txt"}, resourcePaths(resources))
	assert.True(t, elt.Skipped())
}

func TestScan_SymlinkCycleVisitedOnce(t *testing.T) {
	fsys := vfs.NewMemory()
	mem := fsys.Raw()
	require.NoError(t, util.WriteFile(mem, "/app/sub/file.txt", []byte("f"), 0o644))
	require.NoError(t, mem.Symlink("/app", "/app/loop"))

	elt := NewElement("/app", WithFilesystem(fsys))
	resources := elt.Scan()

	assert.Equal(t, []string{"sub/file.txt"}, resourcePaths(resources))
}

func TestScan_ModuleDescriptorSelectedOutsideIncludes(t *testing.T) {
	root := writeTree(t, map[string]string{
		"module-info.class": "m",
		"other.txt":         "o",
		"com/x/a.class":     "a",
	})

	elt := NewElement(root, WithSpec(scanspec.New(scanspec.WithIncludePackages("com/x"))))
	resources := elt.Scan()

	assert.Equal(t, []string{"module-info.class", "com/x/a.class"}, resourcePaths(resources))
}

func TestScan_ModuleDescriptorNotSelectedWithoutClassInfo(t *testing.T) {
	root := writeTree(t, map[string]string{
		"module-info.class": "m",
		"com/x/a.class":     "a",
	})

	elt := NewElement(root, WithSpec(scanspec.New(
		scanspec.WithIncludePackages("com/x"),
		scanspec.WithClassInfo(false),
	)))
	resources := elt.Scan()

	assert.Equal(t, []string{"com/x/a.class"}, resourcePaths(resources))
}

func TestScan_VersionedSubtreeSkipped(t *testing.T) {
	root := writeTree(t, map[string]string{
		"META-INF/other.txt":            "o",
		"META-INF/versions/9/Foo.class": "f",
	})

	resources := NewElement(root).Scan()

	assert.Equal(t, []string{"META-INF/other.txt"}, resourcePaths(resources))
}

func TestScan_PanicsOnRescan(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "a"})
	elt := NewElement(root)
	elt.Scan()

	require.Panics(t, func() { elt.Scan() })
}

func TestScan_RecordsLastModifiedForVisitedEntries(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.txt":     "a",
		"sub/b.txt": "b",
	})

	elt := NewElement(root)
	elt.Scan()

	mods := elt.LastModified()
	assert.Contains(t, mods, filepath.Join(root, "a.txt"))
	assert.Contains(t, mods, filepath.Join(root, "sub", "b.txt"))
	assert.Contains(t, mods, filepath.Join(root, "sub"))
	assert.Contains(t, mods, root)
	assert.Len(t, mods, 4)
}

func TestOpen_DiscoversLibJarsAndPackageRoots(t *testing.T) {
	root := writeTree(t, map[string]string{
		"lib/b.jar":                "jar-b",
		"lib/a.jar":                "jar-a",
		"lib/readme.txt":           "r",
		"BOOT-INF/classes/x.class": "x",
	})

	elt := NewElement(root)
	rec := &recorder{}
	elt.Open(rec)

	require.Len(t, rec.units, 3)
	assert.Equal(t, filepath.Join(root, "lib", "a.jar"), rec.units[0].Path)
	assert.Equal(t, 0, rec.units[0].Order)
	assert.Equal(t, filepath.Join(root, "lib", "b.jar"), rec.units[1].Path)
	assert.Equal(t, 1, rec.units[1].Order)
	assert.Equal(t, filepath.Join(root, "BOOT-INF", "classes"), rec.units[2].Path)
	assert.Equal(t, 2, rec.units[2].Order)
	for _, u := range rec.units {
		assert.Same(t, elt, u.Parent)
	}

	// The scan neither descends into the scheduled package root nor
	// re-selects the scheduled jars.
	resources := elt.Scan()
	assert.Equal(t, []string{"lib/readme.txt"}, resourcePaths(resources))
}

// deniedDirFS refuses to list one directory with a permission error and
// delegates everything else.
type deniedDirFS struct {
	*vfs.OS
	denied string
}

func (d *deniedDirFS) ReadDir(name string) ([]os.FileInfo, error) {
	if name == d.denied {
		return nil, fmt.Errorf("vfs: readdir %q: %w", name, fs.ErrPermission)
	}
	return d.OS.ReadDir(name)
}

func TestOpen_PermissionFailureSkipsRootAndSubmitsNothing(t *testing.T) {
	root := writeTree(t, map[string]string{
		"lib/a.jar":                "a",
		"BOOT-INF/classes/x.class": "x",
	})
	fsys := &deniedDirFS{OS: vfs.NewOS(), denied: filepath.Join(root, "lib")}

	elt := NewElement(root, WithFilesystem(fsys))
	rec := &recorder{}
	elt.Open(rec)

	// Probing aborts at the denied lib dir; the package root that would have
	// followed is never submitted either.
	assert.True(t, elt.Skipped())
	assert.Empty(t, rec.units)
	assert.Nil(t, elt.Scan())
}

func TestOpen_SkipsElementWhenDirScanningDisabled(t *testing.T) {
	root := writeTree(t, map[string]string{"lib/a.jar": "a"})

	elt := NewElement(root, WithSpec(scanspec.New(scanspec.WithDirScanning(false))))
	rec := &recorder{}
	elt.Open(rec)

	assert.True(t, elt.Skipped())
	assert.Empty(t, rec.units)
	assert.Nil(t, elt.Scan())
}

func TestElementResource_Lookup(t *testing.T) {
	root := writeTree(t, map[string]string{"sub/data.txt": "payload"})
	elt := NewElement(root)

	res := elt.Resource("sub/data.txt")
	require.NotNil(t, res)
	content, err := res.Load()
	require.NoError(t, err)
	assert.Equal(t, "payload", string(content))

	assert.Nil(t, elt.Resource("missing.txt"))
	assert.Nil(t, elt.Resource("sub"))
	// Escapes are clamped under the root and thus not found.
	assert.Nil(t, elt.Resource("../../etc/passwd"))
}
