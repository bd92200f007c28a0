package vfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSMap_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	content := []byte("mapped content bytes")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	fsys := NewOS()
	m, err := fsys.Map(path)
	require.NoError(t, err)
	assert.Equal(t, content, m.Bytes())

	require.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())
	// Close is idempotent.
	require.NoError(t, m.Close())
}

func TestOSMap_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	m, err := NewOS().Map(path)
	require.NoError(t, err)
	assert.Empty(t, m.Bytes())
	require.NoError(t, m.Close())
}

func TestOSMap_Missing(t *testing.T) {
	_, err := NewOS().Map(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestOSCanonical_ResolvesSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	require.NoError(t, os.Mkdir(target, 0o755))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(target, link))

	fsys := NewOS()
	canonTarget, err := fsys.Canonical(target)
	require.NoError(t, err)
	canonLink, err := fsys.Canonical(link)
	require.NoError(t, err)
	assert.Equal(t, canonTarget, canonLink)
}

func TestOSSecureJoin_CannotEscapeRoot(t *testing.T) {
	root := t.TempDir()
	joined, err := NewOS().SecureJoin(root, "../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(joined, root))
}

func TestBillyCanonical_FollowsSymlinkChain(t *testing.T) {
	fsys := NewMemory()
	mem := fsys.Raw()
	require.NoError(t, util.WriteFile(mem, "/app/classes/a.txt", []byte("a"), 0o644))
	require.NoError(t, mem.Symlink("/app/classes", "/app/link1"))
	require.NoError(t, mem.Symlink("/app/link1", "/app/link2"))

	canon, err := fsys.Canonical("/app/link2")
	require.NoError(t, err)
	direct, err := fsys.Canonical("/app/classes")
	require.NoError(t, err)
	assert.Equal(t, direct, canon)

	// Components after the link resolve too.
	canonFile, err := fsys.Canonical("/app/link2/a.txt")
	require.NoError(t, err)
	directFile, err := fsys.Canonical("/app/classes/a.txt")
	require.NoError(t, err)
	assert.Equal(t, directFile, canonFile)
}

func TestBillyCanonical_SymlinkLoop(t *testing.T) {
	fsys := NewMemory()
	mem := fsys.Raw()
	require.NoError(t, mem.Symlink("/b", "/a"))
	require.NoError(t, mem.Symlink("/a", "/b"))

	_, err := fsys.Canonical("/a")
	require.Error(t, err)
	assert.ErrorIs(t, err, errTooManyLinks)
}

func TestBillySecureJoin_CleansEscapes(t *testing.T) {
	fsys := NewMemory()
	joined, err := fsys.SecureJoin("/app", "../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, "/app/etc/passwd", joined)
}

func TestBillyReadDirAndOpen(t *testing.T) {
	fsys := NewMemory()
	mem := fsys.Raw()
	require.NoError(t, util.WriteFile(mem, "/app/a.txt", []byte("hello"), 0o644))
	require.NoError(t, util.WriteFile(mem, "/app/b.txt", []byte("world"), 0o644))

	infos, err := fsys.ReadDir("/app")
	require.NoError(t, err)
	assert.Len(t, infos, 2)

	f, err := fsys.Open("/app/a.txt")
	require.NoError(t, err)
	defer f.Close()
	buf := make([]byte, 5)
	n, err := f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}
