package bytecode

import "fmt"

// throwf interns a formatted message and throws it, the VM's own faults
// (bad subscript, missing property, division by zero, ...) going through
// the exact same call-site-scoped catch mechanism a THROW from Buzz source
// does (spec.md glossary, "Catch clause"). Buzz has no dedicated exception
// object in its Value variants, so a descriptive interned string stands in
// for one — matching how a native's Throw already takes a plain Value.
func (vm *VM) throwf(format string, args ...interface{}) error {
	return vm.throwValue(Obj(vm.interner.Intern(fmt.Sprintf(format, args...))))
}

// matchCatch reports whether frame has a catch closure willing to handle a
// throw. CallExpr.Catches is always empty at every call site compiled
// today (no catch-clause syntax reaches finishCall yet — see DESIGN.md),
// so this is a forward-looking catch-all: the first attached closure
// always matches, rather than type-matching its declared parameter against
// the thrown value's runtime type.
func matchCatch(frame Frame) (*Closure, bool) {
	if len(frame.catches) == 0 {
		return nil, false
	}
	return frame.catches[0], true
}

// throwValue unwinds the call stack looking for a frame whose catch list
// will take thrown. A match replaces that frame with a fresh call to the
// catch closure — same base/resultSlot, so its eventual RETURN lands
// exactly where the original call's result would have (spec.md glossary,
// "Catch clause": "receives any value thrown from within the call").
// Failing to find any match anywhere returns a RuntimeError carrying the
// stack trace captured before unwinding began.
func (vm *VM) throwValue(thrown Value) error {
	trace := vm.buildStackTrace()
	for len(vm.frames) > 0 {
		idx := len(vm.frames) - 1
		frame := vm.frames[idx]
		if closure, ok := matchCatch(frame); ok {
			vm.closeUpvalues(frame.base)
			vm.stack = vm.stack[:frame.resultSlot]
			vm.push(Obj(closure))
			vm.push(thrown)
			vm.frames = vm.frames[:idx]
			vm.frames = append(vm.frames, Frame{closure: closure, base: frame.resultSlot + 1, resultSlot: frame.resultSlot})
			return nil
		}
		vm.closeUpvalues(frame.base)
		vm.stack = vm.stack[:frame.resultSlot]
		vm.frames = vm.frames[:idx]
	}
	return &RuntimeError{
		Message:   fmt.Sprintf("unhandled throw: %s", thrown.String()),
		Thrown:    thrown,
		HasThrown: true,
		Trace:     trace,
	}
}

// popCatches pops n catch closures trailing a CALL's arguments, restoring
// their original left-to-right order (they were compiled in source order,
// landing on the stack with the last one compiled on top).
func (vm *VM) popCatches(n int) []*Closure {
	if n == 0 {
		return nil
	}
	catches := make([]*Closure, n)
	for i := n - 1; i >= 0; i-- {
		v := vm.pop()
		if cl, ok := v.Obj.(*Closure); ok {
			catches[i] = cl
		}
	}
	return catches
}

// pushCallFrame opens a new call frame for closure, enforcing spec.md
// §4.4's maximum call depth.
func (vm *VM) pushCallFrame(closure *Closure, base, resultSlot int, catches []*Closure) error {
	if len(vm.frames) >= maxFrames {
		return &RuntimeError{Message: "call stack overflow", Trace: vm.buildStackTrace()}
	}
	vm.frames = append(vm.frames, Frame{closure: closure, base: base, resultSlot: resultSlot, catches: catches})
	return nil
}

// invokeValue dispatches a plain CALL's callee, already resolved to a
// Value sitting at calleeSlot on the stack.
func (vm *VM) invokeValue(callee Value, calleeSlot, argc int, catches []*Closure) error {
	switch fn := callee.Obj.(type) {
	case *Closure:
		return vm.pushCallFrame(fn, calleeSlot+1, calleeSlot, catches)
	case *NativeFunction:
		return vm.callNative(fn, calleeSlot+1, argc, calleeSlot)
	default:
		return vm.throwf("cannot call a value of type %s", runtimeTypeName(callee))
	}
}

// execCall implements CALL: callee and its args are already on the stack
// (args above, catch closures — always none today — above those).
func (vm *VM) execCall(argc, ncatch int) error {
	catches := vm.popCatches(ncatch)
	calleeSlot := len(vm.stack) - argc - 1
	callee := vm.stack[calleeSlot]
	return vm.invokeValue(callee, calleeSlot, argc, catches)
}

// execInvoke implements INVOKE: the receiver occupies the slot args sit
// above, and becomes local slot 0 of the method's own frame (spec.md §4.2
// "Scoping": self is bound like any other method parameter).
func (vm *VM) execInvoke(name string, argc int) error {
	recvSlot := len(vm.stack) - argc - 1
	receiver := vm.stack[recvSlot]

	if handled, err := vm.invokeContainerMethod(receiver, recvSlot, name, argc); handled {
		return err
	}

	oi, ok := receiver.Obj.(*ObjectInstance)
	if !ok {
		return vm.throwf("cannot invoke %q on a %s", name, runtimeTypeName(receiver))
	}
	closure, ok := oi.Class.LookupMethod(name)
	if !ok {
		return vm.throwf("undefined method %q on %s", name, oi.Class.Name)
	}
	return vm.pushCallFrame(closure, recvSlot, recvSlot, nil)
}

// invokeContainerMethod dispatches the handful of built-in methods List,
// Map, and String expose directly (parser/expressions.go inferDot types
// these the same as a user-defined method, so INVOKE is how they reach the
// VM too). Unlike a Buzz method these run synchronously with no new call
// frame, truncating the stack back to recvSlot and pushing their result,
// the same shape callNative uses for a native function. The bool return
// reports whether receiver was a container type INVOKE should have
// recognized at all, so an unhandled method name on a recognized type still
// reports "undefined method" instead of "cannot invoke".
func (vm *VM) invokeContainerMethod(receiver Value, recvSlot int, name string, argc int) (bool, error) {
	switch r := receiver.Obj.(type) {
	case *List:
		switch name {
		case "len":
			vm.stack = vm.stack[:recvSlot]
			vm.push(Int(int32(len(r.Items))))
			return true, nil
		case "append":
			item := vm.stack[recvSlot+1]
			r.Items = append(r.Items, item)
			vm.stack = vm.stack[:recvSlot]
			vm.push(Null())
			return true, nil
		}
		return true, vm.throwf("undefined method %q on list", name)
	case *Map:
		if name == "len" {
			vm.stack = vm.stack[:recvSlot]
			vm.push(Int(int32(r.Len())))
			return true, nil
		}
		return true, vm.throwf("undefined method %q on map", name)
	case *String:
		if name == "len" {
			vm.stack = vm.stack[:recvSlot]
			vm.push(Int(int32(len([]rune(r.Value)))))
			return true, nil
		}
		return true, vm.throwf("undefined method %q on str", name)
	}
	_ = argc
	return false, nil
}

// execSuperInvoke implements SUPER_INVOKE: the same call shape as INVOKE,
// but method lookup starts one level above self's own class. No surface
// syntax reaches this yet (no `super` keyword is lexed — see DESIGN.md);
// it is implemented so the opcode set is complete once that lands.
func (vm *VM) execSuperInvoke(name string, argc int) error {
	fi := len(vm.frames) - 1
	self := vm.stack[vm.frames[fi].base]
	oi, ok := self.Obj.(*ObjectInstance)
	if !ok {
		return vm.throwf("'super' used outside a method body")
	}
	if oi.Class.Parent == nil {
		return vm.throwf("%s has no parent class", oi.Class.Name)
	}
	closure, ok := oi.Class.Parent.LookupMethod(name)
	if !ok {
		return vm.throwf("undefined method %q on %s", name, oi.Class.Parent.Name)
	}
	recvSlot := len(vm.stack) - argc - 1
	return vm.pushCallFrame(closure, recvSlot, recvSlot, nil)
}

// callNative runs a native function synchronously: natives never push
// their own Frame, since they cannot themselves be interrupted mid-call
// by the bytecode loop (spec.md §4.6).
func (vm *VM) callNative(nf *NativeFunction, base, argc, calleeSlot int) error {
	ctx := &NativeCtx{vm: vm, base: base, nargs: argc}
	vm.nativeReturn = Null()
	n, err := nf.Fn(ctx)
	if err != nil {
		if tv, ok := err.(*ThrownValue); ok {
			vm.stack = vm.stack[:calleeSlot]
			return vm.throwValue(tv.Value)
		}
		return err
	}
	result := Null()
	if n > 0 {
		result = vm.nativeReturn
	}
	vm.stack = vm.stack[:calleeSlot]
	vm.push(result)
	return nil
}

// callClosureSync invokes cl with args and runs it to completion before
// returning, used by field-default thunks (spec.md §4.2 "Default values")
// which need a value back mid-instruction rather than across the main
// dispatch loop's next iteration.
func (vm *VM) callClosureSync(cl *Closure, args []Value) (Value, error) {
	base := len(vm.stack)
	vm.push(Obj(cl))
	for _, a := range args {
		vm.push(a)
	}
	depth := len(vm.frames)
	if err := vm.pushCallFrame(cl, base+1, base, nil); err != nil {
		return Null(), err
	}
	return vm.loop(depth)
}

// makeClosure builds a runtime Closure for fn, resolving each upvalue
// capture against the currently executing frame: a local capture reaches
// into that frame's own stack slots, a non-local capture reuses an
// upvalue already held by that frame's own closure (spec.md §3 "Upvalue").
func (vm *VM) makeClosure(fn *Function, captures []uint32) *Closure {
	fi := len(vm.frames) - 1
	base := vm.frames[fi].base
	enclosing := vm.frames[fi].closure
	upvalues := make([]*Upvalue, len(captures))
	for i, word := range captures {
		isLocal := word&0x80000000 != 0
		index := int(word & 0x7FFFFFFF)
		if isLocal {
			upvalues[i] = vm.captureUpvalue(base + index)
		} else {
			upvalues[i] = enclosing.Upvalues[index]
		}
	}
	cl := &Closure{Fn: fn, Upvalues: upvalues}
	vm.gc.Track(cl)
	return cl
}
