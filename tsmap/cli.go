// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package tsmap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
)

var errUsage = errors.New("missing arguments")

// Execute runs the command line and returns the process exit code.
// workDir stands in for the process working directory.
func Execute(ctx context.Context, args []string, workDir string, stdout, stderr io.Writer) int {
	root := newRootCmd(workDir, stdout)
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		var done *reportedError
		if !errors.As(err, &done) {
			fmt.Fprintln(stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

// reportedError marks a failure that was already printed.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func usage(w io.Writer) {
	c := newConsole(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: unpack", c.grn.Render("<project-directory> <path-to-map-file>"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, c.blu.Render("*Note:   Minified file should be placed under path specified in .map file."))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "       unpack crawl --url <page>   Crawl a page, find JS and unpack their .map sources")
	fmt.Fprintln(w)
}

func newRootCmd(workDir string, stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "unpack <project-directory> <path-to-map-file>",
		Short:         "Rebuild a project's source tree from a webpack source map",
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				usage(stdout)
				return &reportedError{errUsage}
			}
			err := RunUnpack(UnpackOptions{
				WorkDir:    workDir,
				ProjectDir: args[0],
				MapPath:    args[1],
				Out:        stdout,
			})
			if err != nil {
				return &reportedError{err}
			}
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(newCrawlCmd(workDir, stdout))
	return root
}

func newCrawlCmd(workDir string, stdout io.Writer) *cobra.Command {
	o := CrawlOptions{Out: stdout}
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a page, find JS and unpack their .map sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.URL == "" {
				return errors.New("missing --url")
			}
			if !filepath.IsAbs(o.OutDir) {
				o.OutDir = filepath.Join(workDir, o.OutDir)
			}
			if err := RunCrawl(cmd.Context(), o); err != nil {
				return &reportedError{err}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.URL, "url", "", "Root page URL to crawl (required)")
	f.StringVar(&o.OutDir, "out", "recovered", "Output base directory")
	f.IntVar(&o.Concurrency, "concurrency", 4, "Parallel downloads")
	f.StringVar(&o.UserAgent, "user-agent", "tsmap-crawl/1.0", "User-Agent header")
	f.StringVar(&o.Proxy, "proxy", "", "Proxy URL (e.g. http://127.0.0.1:8080)")
	f.BoolVar(&o.Insecure, "insecure", false, "Skip TLS verification, useful with Burp Suite")
	return cmd
}
