package bytecode

// NativeFn is the signature of an externally implemented function invoked
// through the Native ABI (spec.md §4.6). It receives a NativeCtx, reads its
// arguments with Peek, optionally pushes one return value with Push, and
// reports how many values it pushed (0 or 1).
type NativeFn func(ctx *NativeCtx) (int, error)

// NativeCtx is the contract a native function uses to interact with the
// calling VM without reaching into its internals. Native functions must
// not retain Values returned by Peek after the call returns: the VM offers
// no way to root them, so nothing keeps them alive for the collector
// (spec.md §4.6).
type NativeCtx struct {
	vm    *VM
	base  int
	nargs int
}

// Peek returns the nth argument (0-indexed) passed to this call.
func (c *NativeCtx) Peek(n int) Value {
	if n < 0 || n >= c.nargs {
		return Null()
	}
	return c.vm.stack[c.base+n]
}

// Argc reports how many arguments were passed.
func (c *NativeCtx) Argc() int { return c.nargs }

// Push stages this native call's single return value.
func (c *NativeCtx) Push(v Value) { c.vm.nativeReturn = v }

// VM exposes the owning VM for natives that need to allocate (intern a
// string, build a list) using the VM's interner/collector.
func (c *NativeCtx) VM() *VM { return c.vm }

// Throw lets a native function surface failure as a Buzz-level exception
// rather than a Go error, per spec.md §4.6 ("Native functions surface
// failures by throwing").
func (c *NativeCtx) Throw(v Value) error { return &ThrownValue{Value: v} }

// ThrownValue wraps a Value thrown from Buzz code or a native function so
// it can travel through Go's error-returning call chain until the VM's
// exception-unwinding logic catches it.
type ThrownValue struct{ Value Value }

func (t *ThrownValue) Error() string { return "thrown: " + t.Value.String() }
