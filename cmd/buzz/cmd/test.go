package cmd

import (
	"fmt"
	"os"

	"github.com/buzzlang/buzz/pkg/buzz"
)

func runTestMode(engine *buzz.Engine, source, filename string) error {
	res, names, err := engine.RunTests(source, filename)
	printDiagnostics(res.Diagnostics)
	if err != nil {
		if res.RuntimeErr != nil {
			fmt.Fprintln(os.Stderr, res.RuntimeErr.Error())
		}
		for _, name := range names {
			fmt.Printf("✗ %s\n", name)
		}
		return fmt.Errorf("tests failed")
	}
	for _, name := range names {
		fmt.Printf("✓ %s\n", name)
	}
	return nil
}
