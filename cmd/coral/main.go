// Command coral runs Coral programs: an interactive REPL, batch evaluation of
// script files and a parse-only mode that prints the canonical form.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "!!", err)
		os.Exit(1)
	}
}
