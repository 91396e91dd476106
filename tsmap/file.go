// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package tsmap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
)

// UnpackOptions are the inputs of the unpack command. Relative paths are
// resolved against WorkDir.
type UnpackOptions struct {
	WorkDir    string
	ProjectDir string
	MapPath    string
	Out        io.Writer
}

// RunUnpack checks the command line paths, then rebuilds the project
// tree from the map file. Every failure is printed to Out before it is
// returned.
func RunUnpack(o UnpackOptions) error {
	c := newConsole(o.Out)

	project := o.ProjectDir
	if !filepath.IsAbs(project) {
		project = filepath.Join(o.WorkDir, project)
	}
	mapPath := o.MapPath
	if !filepath.IsAbs(mapPath) {
		mapPath = filepath.Join(o.WorkDir, mapPath)
	}

	if _, err := os.Lstat(project); err == nil {
		c.errorf("Project folder already exists at: %s", project)
		return fmt.Errorf("%w: %s", ErrRootExists, project)
	}
	if _, err := os.Stat(mapPath); err != nil {
		c.errorf("Can't find map file under : %s", mapPath)
		return fmt.Errorf("map file: %w", err)
	}

	raw, err := os.ReadFile(mapPath)
	if err != nil {
		c.errorf("Read .map: %v", err)
		return err
	}

	fmt.Fprintln(c.w, c.grn.Render("Unpacking your source maps"))
	c.root = project
	u := NewUnpacker(osfs.New(filepath.Dir(project)), c)
	res, err := u.Unpack(filepath.Base(project), string(raw))
	if err != nil {
		var mfe *MapFormatError
		if errors.As(err, &mfe) {
			c.errorf("Oops! Something is wrong with the source map")
			fmt.Fprintln(c.w, c.red.Render("Make sure .min.js is correctly placed under the path specified in .map file"))
		} else {
			c.errorf("Unpacking failed, nothing was written to %s", project)
		}
		fmt.Fprintln(c.w, err)
		return err
	}

	c.summary(res)
	fmt.Fprintln(c.w, c.grn.Render("All done! Enjoy exploring your code"))
	return nil
}
