// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package tsmap

import (
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Materialize writes every entry under root, in order, creating parent
// directories on demand and overwriting whatever is there. onWrite runs
// after each successful write. The first failure stops the loop.
func Materialize(fs billy.Filesystem, root string, entries []ClassifiedEntry, onWrite func(ClassifiedEntry)) error {
	for _, e := range entries {
		dst := filepath.Join(root, filepath.FromSlash(e.Path))
		if err := fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return &FilesystemError{Op: "create dir", Path: filepath.Dir(dst), Err: err}
		}
		if err := util.WriteFile(fs, dst, []byte(e.Content), 0o644); err != nil {
			return &FilesystemError{Op: "write file", Path: dst, Err: err}
		}
		if onWrite != nil {
			onWrite(e)
		}
	}
	return nil
}
