package main

import (
	"fmt"
	"os"

	"github.com/buzzlang/buzz/cmd/buzz/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
