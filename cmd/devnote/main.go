// Command devnote is the command-line companion of the devnote server: it
// converts rich text to Markdown, audits brace balance in source files,
// mints API tokens and imports into or exports from the notebook database.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
