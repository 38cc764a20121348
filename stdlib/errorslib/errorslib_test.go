package errorslib_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/buzzlang/buzz/pkg/buzz"
)

func TestFailThrowsItsMessage(t *testing.T) {
	var out bytes.Buffer
	e, err := buzz.New(buzz.WithOutput(&out))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := e.Eval(`fail("nope");`)
	if err == nil {
		t.Fatal("Eval() of fail(...) = nil error, want a runtime error")
	}
	if res.RuntimeErr == nil || !strings.Contains(res.RuntimeErr.Message, "nope") {
		t.Errorf("RuntimeErr = %+v, want message to contain %q", res.RuntimeErr, "nope")
	}
}

func TestAssertPassingConditionContinues(t *testing.T) {
	var out bytes.Buffer
	e, err := buzz.New(buzz.WithOutput(&out))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := e.Eval(`assert(1 == 1, message: "unreachable"); print("ok");`)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if out.String() != "ok\n" {
		t.Errorf("stdout = %q, want %q", out.String(), "ok\n")
	}
}

// Call-site catch clauses (`risky() catch (str e) { ... }`) aren't wired
// into the parser yet (see DESIGN.md, CallExpr.Catches is always empty),
// so an unhandled fail() still aborts the whole script; there is nothing
// to assert about catch recovery until that lands.
func TestFailAbortsScriptWhenUncaught(t *testing.T) {
	var out bytes.Buffer
	e, err := buzz.New(buzz.WithOutput(&out))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	source := `
fun risky() > void {
	fail("boom");
}
risky();
print("never reached");
`
	res, err := e.Eval(source)
	if err == nil {
		t.Fatal("Eval() of an unhandled fail() = nil error, want a runtime error")
	}
	if res.RuntimeErr == nil || !strings.Contains(res.RuntimeErr.Message, "boom") {
		t.Errorf("RuntimeErr = %+v, want message to contain %q", res.RuntimeErr, "boom")
	}
	if out.String() != "" {
		t.Errorf("stdout = %q, want empty (execution aborts before the print)", out.String())
	}
}
