package oslib_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/buzzlang/buzz/pkg/buzz"
	"github.com/buzzlang/buzz/stdlib/oslib"
)

func TestGetenvReadsProcessEnvironment(t *testing.T) {
	t.Setenv("BUZZ_OSLIB_TEST_VAR", "hi")

	var out bytes.Buffer
	e, err := buzz.New(buzz.WithOutput(&out))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := e.Eval(`print(getenv("BUZZ_OSLIB_TEST_VAR"));`)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if out.String() != "hi\n" {
		t.Errorf("stdout = %q, want %q", out.String(), "hi\n")
	}
}

func TestGetenvUnsetReturnsEmptyString(t *testing.T) {
	var out bytes.Buffer
	e, err := buzz.New(buzz.WithOutput(&out))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := e.Eval(`print("[{getenv("BUZZ_OSLIB_DOES_NOT_EXIST")}]");`)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if out.String() != "[]\n" {
		t.Errorf("stdout = %q, want %q", out.String(), "[]\n")
	}
}

func TestScriptArgsReflectsEvalFileArgs(t *testing.T) {
	var out bytes.Buffer
	e, err := buzz.New(buzz.WithOutput(&out))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	dir := t.TempDir()
	path := dir + "/main.buzz"
	if werr := os.WriteFile(path, []byte(`[str] a = scriptArgs(); print("{a.len()}");`), 0o644); werr != nil {
		t.Fatalf("os.WriteFile error = %v", werr)
	}
	res, err := e.EvalFile(path, []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("EvalFile() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if out.String() != "3\n" {
		t.Errorf("stdout = %q, want %q", out.String(), "3\n")
	}
}

func TestClockIsPositive(t *testing.T) {
	var out bytes.Buffer
	e, err := buzz.New(buzz.WithOutput(&out))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := e.Eval(`print("{clock() > 0.0}");`)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if out.String() != "true\n" {
		t.Errorf("stdout = %q, want %q", out.String(), "true\n")
	}
	_ = oslib.Args
}
