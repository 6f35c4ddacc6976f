// Command flagctl creates, inspects and renders persisted flag grids.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "flagctl:", err)
		os.Exit(1)
	}
}
