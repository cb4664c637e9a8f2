// Package main is the entry point for the two-port ARP-resolving router.
package main

import (
	"errors"
	"fmt"
	"os"

	"firestige.xyz/router/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, cmd.ErrUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
