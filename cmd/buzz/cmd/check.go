package cmd

import (
	"fmt"
	"os"

	"github.com/buzzlang/buzz/pkg/buzz"
)

func runCheck(engine *buzz.Engine, source, filename string) error {
	res := engine.Check(source, filename)
	printDiagnostics(res.Diagnostics)
	if !res.Success {
		return fmt.Errorf("%s: compilation failed", filename)
	}
	fmt.Fprintf(os.Stderr, "%s: ok\n", filename)
	return nil
}
