// Package buzz is the embeddable facade over Buzz's lex/parse/compile/run
// pipeline, following the teacher's pkg/dwscript functional-options engine
// (New(options...), WithTypeCheck, WithOutput) so a host never has to wire
// internal/lexer, internal/parser, internal/bytecode, and internal/module
// together by hand (spec.md §2 "System overview").
package buzz

import (
	"fmt"
	"io"
	"os"

	"github.com/buzzlang/buzz/internal/ast"
	"github.com/buzzlang/buzz/internal/bytecode"
	"github.com/buzzlang/buzz/internal/errors"
	"github.com/buzzlang/buzz/internal/lexer"
	"github.com/buzzlang/buzz/internal/module"
	"github.com/buzzlang/buzz/internal/native"
	"github.com/buzzlang/buzz/internal/parser"
	"github.com/buzzlang/buzz/internal/types"
	"github.com/buzzlang/buzz/stdlib/buffers"
	"github.com/buzzlang/buzz/stdlib/errorslib"
	"github.com/buzzlang/buzz/stdlib/iolib"
	"github.com/buzzlang/buzz/stdlib/mathlib"
	"github.com/buzzlang/buzz/stdlib/oslib"
)

// Engine owns one shared type registry, string interner, and GC, so every
// unit it compiles (the entry script plus everything it imports) agrees on
// type identity and string interning (spec.md §3 invariant).
type Engine struct {
	output     io.Writer
	typeCheck  bool
	libPaths   []string
	libraryDir string
	cycleLimit int
}

// Option configures an Engine built by New.
type Option func(*Engine)

// WithOutput redirects the VM's print-family output away from os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) { e.output = w }
}

// WithTypeCheck toggles compile-time type checking. Buzz's parser and type
// checker are a single pass (unlike the teacher's separate semantic.Analyzer
// stage), so WithTypeCheck(false) cannot skip checking outright; it instead
// only suppresses TypeError diagnostics from aborting compilation, letting
// a caller inspect a best-effort AST the way dwscript.WithTypeCheck(false)
// lets through units whose symbols aren't available until runtime.
func WithTypeCheck(enabled bool) Option {
	return func(e *Engine) { e.typeCheck = enabled }
}

// WithLibPath adds a -L search directory for import resolution (spec.md
// §6). Repeatable.
func WithLibPath(path string) Option {
	return func(e *Engine) { e.libPaths = append(e.libPaths, path) }
}

// WithLibraryDir sets the built-in library directory, tried last in
// import resolution (spec.md §6).
func WithLibraryDir(dir string) Option {
	return func(e *Engine) { e.libraryDir = dir }
}

// WithCycleLimit bounds how many instructions a single Run/RunTests may
// dispatch before aborting (spec.md §5 "Cancellation"). Zero (the
// default) means unlimited.
func WithCycleLimit(n int) Option {
	return func(e *Engine) { e.cycleLimit = n }
}

// New builds an Engine from options, mirroring dwscript.New(options...)'s
// (*Engine, error) shape even though Buzz's construction never itself
// fails; the error return stays for API parity and room to grow.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{output: os.Stdout, typeCheck: true}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Result is what Eval/Run report back: whether compilation and execution
// succeeded, and the diagnostics or runtime error that explain a failure.
type Result struct {
	Success     bool
	Diagnostics []*errors.Diagnostic
	RuntimeErr  *bytecode.RuntimeError
	Value       bytecode.Value
}

func (e *Engine) stdlibBuiltins(reg *types.Registry) []native.Builtin {
	var all []native.Builtin
	all = append(all, mathlib.Builtins(reg)...)
	all = append(all, buffers.Builtins(reg)...)
	all = append(all, oslib.Builtins(reg)...)
	all = append(all, errorslib.Builtins(reg)...)
	all = append(all, iolib.Builtins(reg)...)
	return all
}

// compile lexes, binds the native stdlib, parses, and (unless the caller
// asked to skip it) type-checks source, handing back a ready-to-run
// Function plus the VM it must run on (natives are bound to specific VM
// global slots, so compiling and running share one VM per call), along
// with the name of every top-level `test "..."` declaration in source
// order.
func (e *Engine) compile(source, filename string, testMode bool) (*bytecode.Function, *bytecode.VM, []string, []*errors.Diagnostic, error) {
	reg := types.NewRegistry()
	interner := bytecode.NewInterner()
	gc := bytecode.NewCollector(1<<16, 2.0)
	vm := bytecode.NewVMWithOutput(interner, gc, e.output)
	vm.SetCycleLimit(e.cycleLimit)

	resolver := module.NewResolver(e.libPaths, e.libraryDir)
	cache := module.NewCache(resolver, reg)

	diags := errors.NewDiagnostics(source, filename)
	toks, lexErrs := lexer.Tokenize(source, lexer.WithFile(filename))
	for _, le := range lexErrs {
		diags.Add(errors.LexError, le.Pos, "%s", le.Message)
	}

	p := parser.New(toks, reg, diags, cache)
	native.Bind(p, vm, reg, e.stdlibBuiltins(reg))

	prog := p.Parse()
	for _, d := range diags.All() {
		if e.typeCheck || d.Kind != errors.TypeError {
			return nil, nil, nil, diags.All(), diags
		}
	}

	var names []string
	for _, s := range prog.Statements {
		if td, ok := s.(*ast.TestDeclaration); ok {
			names = append(names, td.Name)
		}
	}

	compiler := bytecode.NewCompiler(interner)
	fn := compiler.Compile(prog, filename, testMode)
	return fn, vm, names, diags.All(), nil
}

// Eval compiles and runs source as a throwaway script (CLI's `buzz
// <script>`, spec.md §6).
func (e *Engine) Eval(source string) (Result, error) {
	oslib.Args = nil
	return e.run(source, "<script>", false)
}

// EvalFile compiles and runs a script file (CLI's `buzz <script>`).
func (e *Engine) EvalFile(path string, args []string) (Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("buzz: reading %s: %w", path, err)
	}
	oslib.Args = args
	return e.run(string(src), path, false)
}

// RunTests compiles source in test mode, inlining every top-level `test
// "..."` block in source order (spec.md §6 `-t`), and reports each test's
// name. Buzz's compiler turns each test body into its own Function and
// calls it in place from the script chunk's own instruction stream
// (compiler_stmt.go compileTestDecl); the runner gets no handle to call a
// test on its own, so a throw from any one test aborts the whole chunk: this runner can report
// pass/fail for the chunk as a whole, not isolate which single test of
// several failed. See DESIGN.md.
func (e *Engine) RunTests(source, filename string) (Result, []string, error) {
	fn, vm, names, diagList, err := e.compile(source, filename, true)
	if err != nil {
		return Result{Diagnostics: diagList}, nil, err
	}
	res, rerr := e.execute(vm, fn)
	return res, names, rerr
}

// Check compiles source without running it (CLI's `buzz -c`, spec.md §6),
// reporting only whether compilation succeeded.
func (e *Engine) Check(source, filename string) Result {
	_, _, _, diagList, err := e.compile(source, filename, false)
	if err != nil {
		return Result{Diagnostics: diagList}
	}
	return Result{Success: true, Diagnostics: diagList}
}

func (e *Engine) run(source, filename string, testMode bool) (Result, error) {
	fn, vm, _, diagList, err := e.compile(source, filename, testMode)
	if err != nil {
		return Result{Diagnostics: diagList}, err
	}
	return e.execute(vm, fn)
}

func (e *Engine) execute(vm *bytecode.VM, fn *bytecode.Function) (Result, error) {
	val, err := vm.Run(fn)
	if err != nil {
		if rerr, ok := err.(*bytecode.RuntimeError); ok {
			return Result{RuntimeErr: rerr}, rerr
		}
		return Result{}, err
	}
	return Result{Success: true, Value: val}, nil
}
