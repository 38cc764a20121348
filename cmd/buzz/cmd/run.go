package cmd

import (
	"fmt"
	"os"

	"github.com/buzzlang/buzz/internal/errors"
	"github.com/buzzlang/buzz/pkg/buzz"
)

func runScript(engine *buzz.Engine, path string, args []string) error {
	res, err := engine.EvalFile(path, args)
	printDiagnostics(res.Diagnostics)
	if err != nil {
		if res.RuntimeErr != nil {
			fmt.Fprintln(os.Stderr, res.RuntimeErr.Error())
		}
		return fmt.Errorf("%s failed", path)
	}
	return nil
}

func printDiagnostics(diags []*errors.Diagnostic) {
	for _, d := range diags {
		fmt.Fprint(os.Stderr, d.Format(false))
	}
}
