package iolib_test

import (
	"bytes"
	"testing"

	"github.com/buzzlang/buzz/pkg/buzz"
)

func TestWriteHasNoTrailingNewline(t *testing.T) {
	var out bytes.Buffer
	e, err := buzz.New(buzz.WithOutput(&out))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := e.Eval(`write("a"); write("b"); print("c");`)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if out.String() != "abc\n" {
		t.Errorf("stdout = %q, want %q", out.String(), "abc\n")
	}
}

func TestPrintEmptyStringStillWritesNewline(t *testing.T) {
	var out bytes.Buffer
	e, err := buzz.New(buzz.WithOutput(&out))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := e.Eval(`print("");`)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if out.String() != "\n" {
		t.Errorf("stdout = %q, want %q", out.String(), "\n")
	}
}
