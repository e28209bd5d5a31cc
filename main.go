// Package main is the entry point for the pcapbench capture compression benchmark.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/pcapbench/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
