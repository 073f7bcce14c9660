// Command daybook is a personal and small-team task diary. Mutations apply
// locally at once and a debounced scheduler reconciles them with the
// configured store in the background.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
