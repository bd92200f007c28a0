//go:build !unix

package classgraph

import (
	"io/fs"
	"os"
)

// posixPerms reports no permission bits on platforms without POSIX
// semantics. This is not an error; the permission set is simply absent.
func posixPerms(_ os.FileInfo) (perm fs.FileMode, ok bool) {
	return 0, false
}
