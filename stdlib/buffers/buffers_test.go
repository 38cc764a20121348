package buffers_test

import (
	"bytes"
	"testing"

	"github.com/buzzlang/buzz/pkg/buzz"
)

func TestBufferWriteByteThenString(t *testing.T) {
	var out bytes.Buffer
	e, err := buzz.New(buzz.WithOutput(&out))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	source := `
[int] buf = bufferNew();
bufferWriteByte(buf, 104);
bufferWriteString(buf, "i");
print(bufferToString(buf));
print("{buf.len()}");
`
	res, err := e.Eval(source)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if out.String() != "hi\n2\n" {
		t.Errorf("stdout = %q, want %q", out.String(), "hi\n2\n")
	}
}

func TestEmptyBufferToStringIsEmpty(t *testing.T) {
	var out bytes.Buffer
	e, err := buzz.New(buzz.WithOutput(&out))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := e.Eval(`[int] buf = bufferNew(); print("[{bufferToString(buf)}]");`)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if out.String() != "[]\n" {
		t.Errorf("stdout = %q, want %q", out.String(), "[]\n")
	}
}
