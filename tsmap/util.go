// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package tsmap

import (
	"path"
	"strings"
)

// joinMaybe prefixes p with the map's sourceRoot, unless p is already a URL.
func joinMaybe(root, p string) string {
	if strings.TrimSpace(root) == "" || strings.Contains(p, "://") {
		return p
	}
	// garder "webpack:///" intact
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return root + strings.TrimLeft(p, "/\\")
}

// cleanDots removes "." segments and folds "dir/.." pairs. Leading ".."
// segments and a leading "/" survive so the escape check still sees them.
func cleanDots(p string) string {
	if p == "" {
		return ""
	}
	c := path.Clean(p)
	if c == "." {
		return ""
	}
	return c
}

// stripQuery drops a loader query such as "?a1b2c3" when it sits in the
// extension part of the path (or anywhere, if there is no extension).
func stripQuery(p string) string {
	ext := p
	if i := strings.LastIndexByte(p, '.'); i >= 0 {
		ext = p[i+1:]
	}
	if !strings.Contains(ext, "?") {
		return p
	}
	return p[:strings.IndexByte(p, '?')]
}

// escapesRoot reports whether p would land outside the unpack root.
func escapesRoot(p string) bool {
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\") {
		return true
	}
	// chemins Windows (C:...)
	if len(p) >= 2 && p[1] == ':' {
		return true
	}
	for _, seg := range strings.FieldsFunc(p, isSep) {
		if seg == ".." {
			return true
		}
	}
	return false
}

func isSep(r rune) bool { return r == '/' || r == '\\' }
