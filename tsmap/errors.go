// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package tsmap

import (
	"errors"
	"fmt"
)

// Skip reasons. A classification failure wraps exactly one of them.
var (
	ErrMalformedPath     = errors.New("malformed path")
	ErrNonProjectSource  = errors.New("not project source")
	ErrPathEscapesRoot   = errors.New("path escapes root")
	ErrNoEmbeddedContent = errors.New("no embedded content")
)

// ErrRootExists is returned when the unpack root is already present.
var ErrRootExists = errors.New("target directory already exists")

// MapFormatError reports a map document that could not be decoded.
type MapFormatError struct {
	Msg string
	Err error
}

func (e *MapFormatError) Error() string {
	if e.Err != nil {
		return "invalid source map: " + e.Msg + ": " + e.Err.Error()
	}
	return "invalid source map: " + e.Msg
}

func (e *MapFormatError) Unwrap() error { return e.Err }

func formatErr(format string, a ...any) error {
	return &MapFormatError{Msg: fmt.Sprintf(format, a...)}
}

// SkipError is the outcome of a source that will not be written.
type SkipError struct {
	Source string
	Reason error
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skipped %q: %v", e.Source, e.Reason)
}

func (e *SkipError) Unwrap() error { return e.Reason }

// FilesystemError is a failed directory creation, write or rename.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *FilesystemError) Unwrap() error { return e.Err }
