package mathlib_test

import (
	"bytes"
	"testing"

	"github.com/buzzlang/buzz/pkg/buzz"
)

func evalPrint(t *testing.T, source string) string {
	t.Helper()
	var out bytes.Buffer
	e, err := buzz.New(buzz.WithOutput(&out))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := e.Eval(source)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	return out.String()
}

func TestAbs(t *testing.T) {
	if out := evalPrint(t, `print("{abs(-3.5)}");`); out != "3.5\n" {
		t.Errorf("stdout = %q, want %q", out, "3.5\n")
	}
}

func TestCeil(t *testing.T) {
	if out := evalPrint(t, `print("{ceil(1.1)}");`); out != "2\n" {
		t.Errorf("stdout = %q, want %q", out, "2\n")
	}
}

func TestRound(t *testing.T) {
	if out := evalPrint(t, `print("{round(2.5)}");`); out != "3\n" {
		t.Errorf("stdout = %q, want %q", out, "3\n")
	}
}

func TestSinCosIdentityAtZero(t *testing.T) {
	if out := evalPrint(t, `print("{sin(0.0)} {cos(0.0)}");`); out != "0 1\n" {
		t.Errorf("stdout = %q, want %q", out, "0 1\n")
	}
}

func TestPowAcceptsIntegerArgs(t *testing.T) {
	if out := evalPrint(t, `print("{pow(2.0, 10.0)}");`); out != "1024\n" {
		t.Errorf("stdout = %q, want %q", out, "1024\n")
	}
}
