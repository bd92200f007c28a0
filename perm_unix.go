//go:build unix

package classgraph

import (
	"io/fs"
	"os"
)

// posixPerms extracts POSIX permission bits from file metadata.
func posixPerms(info os.FileInfo) (perm fs.FileMode, ok bool) {
	return info.Mode().Perm(), true
}
