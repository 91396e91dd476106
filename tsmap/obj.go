// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package tsmap

// sourceMap is the subset of a revision 3 source map the decoder cares about.
type sourceMap struct {
	Version        int
	File           string
	SourceRoot     string
	Sources        []string
	SourcesContent []*string
	Mappings       string
	Sections       []sourceMap
}

// SourceEntry is one original file listed by a map.
// Content is nil when the map embeds no original source for it,
// which is not the same as an empty file.
type SourceEntry struct {
	Source  string
	Content *string
}

// ClassifiedEntry is a source that will be written to Path, relative to
// the unpack root and always slash separated.
type ClassifiedEntry struct {
	Path    string
	Content string
}
