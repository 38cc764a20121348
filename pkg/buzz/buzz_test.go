package buzz

import (
	"bytes"
	"strings"
	"testing"
)

func run(t *testing.T, source string) (string, Result, error) {
	t.Helper()
	var out bytes.Buffer
	e, err := New(WithOutput(&out))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := e.Eval(source)
	return out.String(), res, err
}

// spec.md §8 scenario 1.
func TestEvalPrintHello(t *testing.T) {
	out, res, err := run(t, `print("hello");`)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if !res.Success {
		t.Fatalf("Result.Success = false, diagnostics: %v", res.Diagnostics)
	}
	if out != "hello\n" {
		t.Errorf("stdout = %q, want %q", out, "hello\n")
	}
}

// spec.md §8 scenario 4 and 5: foreach over a range in both directions.
func TestEvalForeachAscendingRange(t *testing.T) {
	out, res, err := run(t, `int s = 0; foreach (int n in 0..10) { s = s + n; } print("{s}");`)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if out != "45\n" {
		t.Errorf("stdout = %q, want %q", out, "45\n")
	}
}

func TestEvalForeachDescendingRange(t *testing.T) {
	out, res, err := run(t, `int s = 0; foreach (int n in 10..0) { s = s + n; } print("{s}");`)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if out != "55\n" {
		t.Errorf("stdout = %q, want %q", out, "55\n")
	}
}

// A single loop variable over a list binds the element, not the index,
// even though FOREACH still pushes an index key underneath it at runtime
// (compiler_stmt.go foreachHasKey).
func TestEvalForeachSingleVarOverListBindsElement(t *testing.T) {
	out, res, err := run(t, `str s = ""; foreach (int n in [10, 20, 30]) { s = s + "{n} "; } print(s);`)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if out != "10 20 30 \n" {
		t.Errorf("stdout = %q, want %q", out, "10 20 30 \n")
	}
}

// Same as above, over a string: each loop variable must bind the
// codepoint, not its position.
func TestEvalForeachSingleVarOverStringBindsCharacter(t *testing.T) {
	out, res, err := run(t, `str s = ""; foreach (str c in "abc") { s = s + c; } print(s);`)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if out != "abc\n" {
		t.Errorf("stdout = %q, want %q", out, "abc\n")
	}
}

// spec.md §8 scenario 3: list fields default-clone per instance.
func TestEvalObjectFieldDefaultsAreClonedPerInstance(t *testing.T) {
	source := `
object A { [int] xs = [1, 2, 3] }
A a = A{}; A b = A{};
a.xs.append(4);
print("{a.xs.len()} {b.xs.len()}");
`
	out, res, err := run(t, source)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if out != "4 3\n" {
		t.Errorf("stdout = %q, want %q", out, "4 3\n")
	}
}

func TestEvalIntegerOverflowThrows(t *testing.T) {
	source := `int x = 2147483647; int y = x + 1; print("{y}");`
	_, res, err := run(t, source)
	if err == nil {
		t.Fatal("Eval() of an overflowing add = nil error, want a runtime error")
	}
	if res.RuntimeErr == nil {
		t.Errorf("Result.RuntimeErr = nil, want a populated overflow error")
	}
}

func TestEvalUnhandledThrowFails(t *testing.T) {
	_, res, err := run(t, `throw "boom";`)
	if err == nil {
		t.Fatal("Eval() of an unhandled throw = nil error, want an error")
	}
	if res.RuntimeErr == nil || !res.RuntimeErr.HasThrown {
		t.Errorf("RuntimeErr = %+v, want HasThrown true", res.RuntimeErr)
	}
}

func TestEvalRecursiveFunctionCall(t *testing.T) {
	source := `
fun fact(int n) > int {
	if (n <= 1) { return 1; }
	return n * fact(n - 1);
}
print("{fact(5)}");
`
	out, res, err := run(t, source)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if out != "120\n" {
		t.Errorf("stdout = %q, want %q", out, "120\n")
	}
}

func TestEvalMathBuiltins(t *testing.T) {
	out, res, err := run(t, `print("{sqrt(4.0)} {floor(1.9)} {pow(2.0, 3.0)}");`)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if out != "2 1 8\n" {
		t.Errorf("stdout = %q, want %q", out, "2 1 8\n")
	}
}

func TestEvalBufferRoundTrip(t *testing.T) {
	source := `
[int] buf = bufferNew();
bufferWriteString(buf, "ab");
bufferWriteByte(buf, 99);
print(bufferToString(buf));
`
	out, res, err := run(t, source)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if out != "abc\n" {
		t.Errorf("stdout = %q, want %q", out, "abc\n")
	}
}

func TestEvalAssertFailureThrows(t *testing.T) {
	_, res, err := run(t, `assert(1 == 2, message: "mismatch");`)
	if err == nil {
		t.Fatal("Eval() of a failing assert = nil error, want an error")
	}
	if res.RuntimeErr == nil || !strings.Contains(res.RuntimeErr.Message, "mismatch") {
		t.Errorf("RuntimeErr = %+v, want message to contain %q", res.RuntimeErr, "mismatch")
	}
}

func TestEvalParseErrorReportsDiagnostics(t *testing.T) {
	_, res, err := run(t, `int x = ;`)
	if err == nil {
		t.Fatal("Eval() of malformed source = nil error, want a compile error")
	}
	if len(res.Diagnostics) == 0 {
		t.Error("Diagnostics is empty, want at least one parse diagnostic")
	}
}

func TestEvalEmptyScriptProducesNoOutput(t *testing.T) {
	out, res, err := run(t, ``)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if out != "" {
		t.Errorf("stdout = %q, want empty", out)
	}
}

func TestEvalMapAddIsRightBiasedMerge(t *testing.T) {
	// Open Question (b): duplicate keys on map `+` overwrite left with right.
	source := `
{str, int} a = {"x": 1, "y": 2};
{str, int} b = {"y": 99};
{str, int} merged = a + b;
print("{merged["y"]}");
`
	out, res, err := run(t, source)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if out != "99\n" {
		t.Errorf("stdout = %q, want %q", out, "99\n")
	}
}

func TestCheckReportsSuccessWithoutRunning(t *testing.T) {
	var out bytes.Buffer
	e, _ := New(WithOutput(&out))
	res := e.Check(`print("unreachable");`, "<check>")
	if !res.Success {
		t.Fatalf("Check().Success = false, diagnostics: %v", res.Diagnostics)
	}
	if out.Len() != 0 {
		t.Errorf("Check() ran the script; stdout = %q, want empty", out.String())
	}
}

func TestRunTestsReportsDeclaredNames(t *testing.T) {
	var out bytes.Buffer
	e, _ := New(WithOutput(&out))
	res, names, err := e.RunTests(`test "add" { assert(1 + 2 == 3, message: "ok"); }`, "<test>")
	if err != nil {
		t.Fatalf("RunTests() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	if len(names) != 1 || names[0] != "add" {
		t.Errorf("names = %v, want [\"add\"]", names)
	}
}

// spec.md §8 scenario 6: build a balanced tree, hash it bottom-up from two
// independent builds, and check the roots agree.
func TestEvalMerkleBenchmarkRootsMatch(t *testing.T) {
	source := `
object TreeNode {
	int value = 0;
	TreeNode? left = null;
	TreeNode? right = null;
}

fun buildTree(int depth, int seed) > TreeNode {
	TreeNode node = TreeNode{value: seed};
	if (depth > 0) {
		node.left = buildTree(depth - 1, seed * 2 + 1);
		node.right = buildTree(depth - 1, seed * 2 + 2);
	}
	return node;
}

fun combine(int h, int v) > int {
	return (h * 31 + v) % 1000003;
}

// Folds through combine() rather than a raw sum-of-products so every
// intermediate stays well under the 32-bit range the VM's overflow-checked
// multiply enforces (spec.md §8 "integer ops throw on overflow"), no
// matter how deep the tree grows.
fun hashTree(TreeNode? node) > int {
	if (node == null) { return 7; }
	int h = combine(1, node.value);
	h = combine(h, hashTree(node.left));
	h = combine(h, hashTree(node.right));
	return h;
}

fun countNodes(TreeNode? node) > int {
	if (node == null) { return 0; }
	return 1 + countNodes(node.left) + countNodes(node.right);
}

int depth = 6;
TreeNode stretch = buildTree(depth, 1);
TreeNode longLived = buildTree(depth, 1);
print("stretch tree of depth {depth} check: {countNodes(stretch)}");
print("long-lived tree of depth {depth} check: {countNodes(longLived)}");
print("root hashes match: {hashTree(stretch) == hashTree(longLived)}");
`
	out, res, err := run(t, source)
	if err != nil {
		t.Fatalf("Eval() error = %v, diagnostics: %v", err, res.Diagnostics)
	}
	want := "stretch tree of depth 6 check: 127\n" +
		"long-lived tree of depth 6 check: 127\n" +
		"root hashes match: true\n"
	if out != want {
		t.Errorf("stdout = %q, want %q", out, want)
	}
}

func TestWithCycleLimitAbortsLongLoops(t *testing.T) {
	var out bytes.Buffer
	e, _ := New(WithOutput(&out), WithCycleLimit(10))
	source := `int i = 0; while (i < 1000000) { i = i + 1; }`
	_, err := e.Eval(source)
	if err == nil {
		t.Fatal("Eval() under a tiny cycle limit = nil error, want a cycle-limit RuntimeError")
	}
}
