// kwtag tags dictionary keywords in text.
// Single binary: one-shot annotation, an HTTP API, and a vocabulary store.
package main

import (
	"fmt"
	"os"

	"github.com/kwtag/kwtag/cmd/kwtag/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
