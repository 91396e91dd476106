// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package tsmap

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
)

// console prints progress for a terminal. Colors are only emitted when w
// is a color-capable TTY.
type console struct {
	w    io.Writer
	root string

	red, grn, yel, cyn, blu lipgloss.Style
}

func newConsole(w io.Writer) *console {
	r := lipgloss.NewRenderer(w)
	return &console{
		w:   w,
		red: r.NewStyle().Foreground(lipgloss.Color("1")),
		grn: r.NewStyle().Foreground(lipgloss.Color("2")),
		yel: r.NewStyle().Foreground(lipgloss.Color("3")),
		blu: r.NewStyle().Foreground(lipgloss.Color("4")),
		cyn: r.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

func (c *console) Unpacked(p string) {
	fmt.Fprintln(c.w, c.grn.Render("Unpacking "+filepath.Join(c.root, filepath.FromSlash(p))))
}

func (c *console) Skipped(err *SkipError) {
	fmt.Fprintf(c.w, "%s (%v): %s\n", c.yel.Render("Skipped"), err.Reason, err.Source)
}

func (c *console) summary(res Result) {
	fmt.Fprintf(c.w, "\n%s: %d written, %d skipped\n", c.cyn.Render("Summary"), res.Written, res.SkippedTotal())
}

func (c *console) errorf(format string, a ...any) {
	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, c.red.Render(fmt.Sprintf(format, a...)))
	fmt.Fprintln(c.w)
}
