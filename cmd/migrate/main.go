// Command migrate applies and authors the versioned schema migrations of
// the purchase order store.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
