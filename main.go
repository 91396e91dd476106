// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package main

import (
	"context"
	"fmt"
	"os"

	"sourcemap-unpack.safepic.fr/tsmap"
)

func main() {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	os.Exit(tsmap.Execute(context.Background(), os.Args[1:], wd, os.Stdout, os.Stderr))
}
