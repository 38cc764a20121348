package parser

import (
	"testing"

	"github.com/buzzlang/buzz/internal/ast"
	"github.com/buzzlang/buzz/internal/errors"
	"github.com/buzzlang/buzz/internal/types"
)

func parse(t *testing.T, src string) (*ast.Program, *errors.Diagnostics) {
	t.Helper()
	reg := types.NewRegistry()
	diags := errors.NewDiagnostics(src, "<test>")
	prog := ParseSource(src, "<test>", reg, diags, nil)
	return prog, diags
}

func TestParseVarDeclarationResolvesType(t *testing.T) {
	prog, diags := parse(t, `int x = 1 + 2;`)
	if diags.HasErrors() {
		t.Fatalf("diagnostics: %v", diags.All())
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("Statements = %d, want 1", len(prog.Statements))
	}
}

func TestParseUndefinedNameReportsResolutionError(t *testing.T) {
	_, diags := parse(t, `print(missing);`)
	if !diags.HasErrors() {
		t.Fatal("HasErrors() = false, want true for an undefined name")
	}
	found := false
	for _, d := range diags.All() {
		if d.Kind == errors.ResolutionError {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics = %v, want a ResolutionError", diags.All())
	}
}

func TestParseFunctionDeclarationAndCall(t *testing.T) {
	src := `
fun add(int a, int b) > int {
	return a + b;
}
int sum = add(1, 2);
`
	prog, diags := parse(t, src)
	if diags.HasErrors() {
		t.Fatalf("diagnostics: %v", diags.All())
	}
	if len(prog.Statements) != 2 {
		t.Fatalf("Statements = %d, want 2", len(prog.Statements))
	}
}

func TestParseObjectFieldAndMethod(t *testing.T) {
	src := `
object Point {
	int x = 0;
	int y = 0;
	fun sum() > int { return self.x + self.y; }
}
Point p = Point{x: 1, y: 2};
int s = p.sum();
`
	_, diags := parse(t, src)
	if diags.HasErrors() {
		t.Fatalf("diagnostics: %v", diags.All())
	}
}

func TestParseForwardReferenceResolves(t *testing.T) {
	src := `
object A {
	B? next = null;
}
object B {
	int v = 0;
}
`
	_, diags := parse(t, src)
	if diags.HasErrors() {
		t.Fatalf("diagnostics: %v", diags.All())
	}
}

func TestParseUnresolvedForwardReferenceReportsError(t *testing.T) {
	src := `
object A {
	Nonexistent? next = null;
}
`
	_, diags := parse(t, src)
	if !diags.HasErrors() {
		t.Fatal("HasErrors() = false, want true for an unresolved forward reference")
	}
}

func TestParseMapAndListTypeAnnotations(t *testing.T) {
	src := `
[int] xs = [1, 2, 3];
{str, int} m = {"a": 1};
`
	_, diags := parse(t, src)
	if diags.HasErrors() {
		t.Fatalf("diagnostics: %v", diags.All())
	}
}

func TestParseEnumDeclarationAndMember(t *testing.T) {
	src := `
enum Color { Red, Green, Blue }
Color c = Color.Green;
`
	_, diags := parse(t, src)
	if diags.HasErrors() {
		t.Fatalf("diagnostics: %v", diags.All())
	}
}

func TestParseMismatchedAssignmentReportsTypeError(t *testing.T) {
	_, diags := parse(t, `int x = "not an int";`)
	if !diags.HasErrors() {
		t.Fatal("HasErrors() = false, want true for a type mismatch")
	}
	found := false
	for _, d := range diags.All() {
		if d.Kind == errors.TypeError {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics = %v, want a TypeError", diags.All())
	}
}

func TestParseClosureCapturesEnclosingLocal(t *testing.T) {
	src := `
fun makeAdder(int base) > fun(int)>int {
	fun add(int n) > int { return n + base; }
	return add;
}
fun(int)>int adder = makeAdder(10);
int r = adder(5);
`
	_, diags := parse(t, src)
	if diags.HasErrors() {
		t.Fatalf("diagnostics: %v", diags.All())
	}
}
