// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package tsmap

import "strings"

// WebpackPrefix is the scheme webpack puts in front of every source.
const WebpackPrefix = "webpack:///"

// Classifier decides which map sources are project files and where they go.
type Classifier struct {
	// Prefix is cut from every source by length, not by match.
	Prefix string
	// Excluded lists path prefixes of sources that are not project code.
	Excluded []string
}

// DefaultClassifier skips externals, webpack runtime modules and node_modules.
func DefaultClassifier() Classifier {
	return Classifier{
		Prefix:   WebpackPrefix,
		Excluded: []string{"external", "webpack", "node_modules"},
	}
}

// Classify returns the destination of e, or a *SkipError saying why it
// will not be written.
func (c Classifier) Classify(e SourceEntry) (ClassifiedEntry, error) {
	skip := func(reason error) (ClassifiedEntry, error) {
		return ClassifiedEntry{}, &SkipError{Source: e.Source, Reason: reason}
	}

	if len(e.Source) < len(c.Prefix) {
		return skip(ErrMalformedPath)
	}
	p := cleanDots(e.Source[len(c.Prefix):])
	if p == "" {
		return skip(ErrMalformedPath)
	}

	for _, m := range c.Excluded {
		if strings.HasPrefix(p, m) {
			return skip(ErrNonProjectSource)
		}
	}

	p = cleanDots(stripQuery(p))
	if p == "" {
		return skip(ErrMalformedPath)
	}
	if escapesRoot(p) {
		return skip(ErrPathEscapesRoot)
	}

	if e.Content == nil {
		return skip(ErrNoEmbeddedContent)
	}
	return ClassifiedEntry{Path: p, Content: *e.Content}, nil
}
