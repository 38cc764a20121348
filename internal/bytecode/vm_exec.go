package bytecode

// loop is the VM's single fetch-decode-dispatch engine. It serves both
// Run's top-level execution (stopDepth 0) and a synchronous nested call
// such as a field-default thunk (stopDepth set to the frame depth just
// before the nested call's frame was pushed): it keeps dispatching until
// the frame stack has unwound back to stopDepth, then returns whatever the
// innermost RETURN produced (spec.md §4.4 "Main loop").
//
// Every iteration re-reads the current frame by index rather than holding
// a pointer or a copy across a handler call, since CALL/INVOKE/THROW can
// append to or truncate vm.frames (and append can reallocate its backing
// array) in the course of handling a single instruction.
func (vm *VM) loop(stopDepth int) (Value, error) {
	for {
		vm.maybeCollect()

		if vm.cycleLimit > 0 {
			vm.cycles++
			if vm.cycles > vm.cycleLimit {
				return Null(), &RuntimeError{Message: "cycle limit exceeded", Trace: vm.buildStackTrace()}
			}
		}

		fi := len(vm.frames) - 1
		chunk := vm.frames[fi].closure.Fn.Chunk
		ip := vm.frames[fi].ip
		instr := chunk.Code[ip]
		ip++
		vm.frames[fi].ip = ip
		arg := instr.Arg()
		base := vm.frames[fi].base

		// nextWord reads one trailing word (CALL/INVOKE's second argument,
		// one CLOSURE capture), advancing past it.
		nextWord := func() uint32 {
			w := uint32(chunk.Code[vm.frames[fi].ip])
			vm.frames[fi].ip++
			return w
		}

		var err error

		switch instr.Op() {
		case OpConstant:
			vm.push(chunk.Constants[arg])

		case OpPop:
			vm.pop()

		case OpCopy:
			vm.push(vm.peek(0))

		case OpSwap:
			a := vm.pop()
			b := vm.pop()
			vm.push(a)
			vm.push(b)

		case OpGetGlobal:
			vm.push(vm.getGlobal(int(arg)))

		case OpSetGlobal:
			vm.setGlobal(int(arg), vm.pop())

		case OpDefineGlobal:
			vm.setGlobal(int(arg), vm.pop())

		case OpGetLocal:
			vm.push(vm.stack[base+int(arg)])

		case OpSetLocal:
			vm.stack[base+int(arg)] = vm.pop()

		case OpGetUpvalue:
			vm.push(vm.frames[fi].closure.Upvalues[arg].Get())

		case OpSetUpvalue:
			vm.frames[fi].closure.Upvalues[arg].Set(vm.pop())

		case OpCloseUpvalue:
			vm.closeUpvalues(base + int(arg))

		case OpGetProperty:
			err = vm.execGetProperty(constString(chunk, arg))

		case OpSetProperty:
			err = vm.execSetProperty(constString(chunk, arg))

		case OpGetSubscript:
			err = vm.execGetSubscript()

		case OpSetSubscript:
			err = vm.execSetSubscript()

		case OpList:
			l := &List{}
			vm.gc.Track(l)
			vm.push(Obj(l))

		case OpAppendList:
			item := vm.pop()
			l := vm.peek(0).Obj.(*List)
			l.Items = append(l.Items, item)

		case OpMap:
			m := NewMap(nil, nil)
			vm.gc.Track(m)
			vm.push(Obj(m))

		case OpSetMap:
			value := vm.pop()
			key := vm.pop()
			m := vm.peek(0).Obj.(*Map)
			m.Set(key, value)

		case OpAdd:
			err = vm.execAdd()

		case OpSubtract:
			err = vm.execSubtract()

		case OpMultiply:
			err = vm.execMultiply()

		case OpDivide:
			err = vm.execDivide()

		case OpMod:
			err = vm.execMod()

		case OpNegate:
			err = vm.execNegate()

		case OpNot:
			v := vm.pop()
			vm.push(Bool(!v.IsTruthy()))

		case OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(Bool(a.Equal(b)))

		case OpGreater:
			err = vm.execGreater()

		case OpLess:
			err = vm.execLess()

		case OpIs:
			v := vm.pop()
			vm.push(Bool(isInstanceOf(v, constString(chunk, arg))))

		case OpJump:
			vm.frames[fi].ip = int(arg)

		case OpJumpIfFalse:
			if !vm.peek(0).IsTruthy() {
				vm.frames[fi].ip = int(arg)
			}

		case OpLoop:
			vm.frames[fi].ip = int(arg)

		case OpNull:
			vm.push(Null())

		case OpUnwrap:
			v := vm.pop()
			if v.Kind == KNull {
				err = vm.throwf("NullReferenceError: forced unwrap of a null value")
			} else {
				vm.push(v)
			}

		case OpNullOr:
			// Unreachable: NullCoalesceExpr compiles to an explicit
			// copy/compare/jump sequence instead (see DESIGN.md). Kept for
			// opcode-set completeness.
			b := vm.pop()
			a := vm.pop()
			if a.Kind != KNull {
				vm.push(a)
			} else {
				vm.push(b)
			}

		case OpCall:
			argc := int(arg)
			ncatch := int(nextWord())
			err = vm.execCall(argc, ncatch)

		case OpInvoke:
			name := constString(chunk, arg)
			argc := int(nextWord())
			err = vm.execInvoke(name, argc)

		case OpSuperInvoke:
			// Unreachable: no `super` keyword is lexed yet (see DESIGN.md).
			name := constString(chunk, arg)
			argc := int(nextWord())
			err = vm.execSuperInvoke(name, argc)

		case OpClosure:
			fn := chunk.Constants[arg].Obj.(*Function)
			captures := make([]uint32, fn.UpvalueCount)
			for i := range captures {
				captures[i] = nextWord()
			}
			vm.push(Obj(vm.makeClosure(fn, captures)))

		case OpReturn:
			result := vm.pop()
			frame := vm.frames[fi]
			vm.closeUpvalues(frame.base)
			vm.stack = vm.stack[:frame.resultSlot]
			vm.frames = vm.frames[:fi]
			if len(vm.frames) <= stopDepth {
				return result, nil
			}
			vm.push(result)

		case OpVoid:
			vm.push(Null())

		case OpObject:
			err = vm.execObject(arg)

		case OpInherit:
			err = vm.execInherit()

		case OpMethod:
			err = vm.execMethod(constString(chunk, arg))

		case OpProperty:
			err = vm.execProperty(constString(chunk, arg))

		case OpStaticProperty:
			err = vm.execStaticProperty(constString(chunk, arg))

		case OpInstance:
			err = vm.execInstance()

		case OpEnum:
			err = vm.execEnum(constString(chunk, arg))

		case OpEnumCase:
			err = vm.execEnumCase(constString(chunk, arg))

		case OpGetEnumCase:
			// Unreachable: GET_PROPERTY handles enum-case access generically
			// today (see DESIGN.md). Kept for opcode-set completeness.
			err = vm.execGetEnumCase(constString(chunk, arg))

		case OpGetEnumCaseValue:
			// Unreachable, same reason as OpGetEnumCase.
			err = vm.execGetEnumCaseValue()

		case OpToString:
			v := vm.pop()
			vm.push(Obj(vm.interner.Intern(v.String())))

		case OpStringConcat:
			b := vm.pop()
			a := vm.pop()
			as, _ := asString(a)
			bs, _ := asString(b)
			vm.push(Obj(vm.interner.Intern(as + bs)))

		case OpForeach:
			cursor := vm.pop()
			container := vm.pop()
			value, key, newCursor, hasKey, exhausted := vm.foreachStep(container, cursor)
			if exhausted {
				vm.frames[fi].ip = int(arg)
			} else {
				vm.push(value)
				if hasKey {
					vm.push(key)
				}
				vm.push(newCursor)
			}

		case OpImport, OpExport:
			// Unreachable: module wiring and export visibility are resolved
			// ahead of bytecode execution (internal/module), so these
			// opcodes never reach the compiled chunk (see DESIGN.md).

		case OpThrow:
			err = vm.throwValue(vm.pop())

		case OpRange:
			high := vm.pop()
			low := vm.pop()
			r := &Range{Low: low.I, High: high.I}
			vm.gc.Track(r)
			vm.push(Obj(r))

		default:
			err = vm.throwf("unimplemented opcode %s", instr.Op())
		}

		if err != nil {
			return Null(), err
		}
	}
}
