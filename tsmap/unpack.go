// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package tsmap

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Reporter is told about every written file and every skipped source.
// Paths are relative to the unpack root.
type Reporter interface {
	Unpacked(path string)
	Skipped(err *SkipError)
}

type nopReporter struct{}

func (nopReporter) Unpacked(string) {}
func (nopReporter) Skipped(*SkipError) {}

// Result summarizes one run.
type Result struct {
	Written int
	// Skipped counts skipped sources by reason (ErrMalformedPath, ...).
	Skipped map[error]int
}

// SkippedTotal is the number of sources that were not written.
func (r Result) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

// Unpacker rebuilds a source tree from a map into a directory of FS.
type Unpacker struct {
	FS         billy.Filesystem
	Classifier Classifier
	Reporter   Reporter
}

// NewUnpacker returns an Unpacker using the default classifier.
func NewUnpacker(fs billy.Filesystem, r Reporter) *Unpacker {
	return &Unpacker{FS: fs, Classifier: DefaultClassifier(), Reporter: r}
}

// Unpack decodes mapText and writes its project sources under root, which
// must not exist yet. Files are staged in a hidden sibling directory that
// is renamed to root only once every write succeeded; on failure nothing
// is left behind.
func (u *Unpacker) Unpack(root, mapText string) (Result, error) {
	res := Result{Skipped: map[error]int{}}
	rep := u.Reporter
	if rep == nil {
		rep = nopReporter{}
	}

	root = filepath.Clean(root)
	if base := filepath.Base(root); base == "." || base == ".." || base == string(filepath.Separator) {
		return res, fmt.Errorf("invalid unpack root %q", root)
	}
	if err := u.checkAbsent(root); err != nil {
		return res, err
	}

	entries, err := Decode(mapText)
	if err != nil {
		return res, err
	}

	keep := make([]ClassifiedEntry, 0, len(entries))
	for _, e := range entries {
		ce, err := u.Classifier.Classify(e)
		if err != nil {
			var skip *SkipError
			if !errors.As(err, &skip) {
				return res, err
			}
			res.Skipped[skip.Reason]++
			rep.Skipped(skip)
			continue
		}
		keep = append(keep, ce)
	}

	stage, err := u.stagingDir(root)
	if err != nil {
		return res, err
	}

	err = Materialize(u.FS, stage, keep, func(e ClassifiedEntry) {
		res.Written++
		rep.Unpacked(e.Path)
	})
	if err == nil {
		err = u.checkAbsent(root)
	}
	if err == nil {
		if rerr := u.FS.Rename(stage, root); rerr != nil {
			err = &FilesystemError{Op: "rename", Path: stage, Err: rerr}
		}
	}
	if err != nil {
		_ = util.RemoveAll(u.FS, stage)
		res.Written = 0
		return res, err
	}
	return res, nil
}

// stagingDir creates an empty hidden directory next to root.
func (u *Unpacker) stagingDir(root string) (string, error) {
	parent := filepath.Dir(root)
	for range 8 {
		name := filepath.Join(parent, fmt.Sprintf(".%s.unpack-%08x", filepath.Base(root), rand.Uint32()))
		if _, err := u.FS.Stat(name); err == nil {
			continue
		}
		if err := u.FS.MkdirAll(name, 0o755); err != nil {
			return "", &FilesystemError{Op: "create staging dir", Path: name, Err: err}
		}
		return name, nil
	}
	return "", &FilesystemError{Op: "create staging dir in", Path: parent, Err: os.ErrExist}
}

func (u *Unpacker) checkAbsent(root string) error {
	_, err := u.FS.Stat(root)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrRootExists, root)
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return &FilesystemError{Op: "stat", Path: root, Err: err}
	}
}
