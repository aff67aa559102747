package vm

import (
	"github.com/vertexvm/vertexvm/instance"
	"github.com/vertexvm/vertexvm/opcode"
	"github.com/vertexvm/vertexvm/value"
	"github.com/vertexvm/vertexvm/wasm"
)

// funcType resolves a BlockType to the parameter/result signature it
// denotes, consulting the module's type section for the indexed form.
func (v *VM) funcType(bt wasm.BlockType) wasm.FuncType {
	switch bt.Kind {
	case wasm.BlockEmpty:
		return wasm.FuncType{}
	case wasm.BlockValue:
		return wasm.FuncType{Results: []wasm.ValueType{bt.ValType}}
	default:
		return v.module.Types[bt.TypeIdx]
	}
}

// enterBlock pushes a new label frame for a block/loop/if body. Params
// are already sitting on top of the operand stack; the frame's SP
// records the depth below them, so a branch or normal exit can
// truncate back to exactly that point before restoring results (or,
// for a loop branch, the next iteration's arguments).
func (v *VM) enterBlock(kind LabelKind, body *wasm.Expr, ft wasm.FuncType) {
	numParams := len(ft.Params)
	sp := len(v.operands) - numParams
	v.frames.push(Frame{
		Kind:   kind,
		Expr:   body,
		SP:     sp,
		Arity:  len(ft.Results),
		ArgNum: numParams,
	})
	if v.frames.depth() > v.cfg.Limits.MaxFrames {
		panic(ErrFrameOverflow)
	}
}

// exitFrame completes a label normally, whether it fell off the end of
// its body or (for a Call frame) returned: its Arity result values are
// already the top of the operand stack, so they're saved, the stack is
// truncated back to the label's entry point, and then restored.
func (v *VM) exitFrame() {
	f := v.frames.pop()
	vals := v.popN(f.Arity)
	v.operands = v.operands[:f.SP]
	v.pushN(vals)
}

// br implements branching to the l-th enclosing label (0 = innermost).
// Branching to a loop resets it to its first instruction and keeps the
// branch operands as its next-iteration arguments; branching to any
// other label exits it, exactly like falling off its end.
func (v *VM) br(l int) {
	depth := v.frames.depth()
	if l < 0 || l >= depth {
		panic(ErrInvalidBreakDepth)
	}
	idx := depth - 1 - l
	target := v.frames.frames[idx]

	arity := target.Arity
	if target.Kind == LabelLoop {
		arity = target.ArgNum
	}
	vals := v.popN(arity)
	v.operands = v.operands[:target.SP]
	v.pushN(vals)

	if target.Kind == LabelLoop {
		v.frames.frames = v.frames.frames[:idx+1]
		v.frames.frames[idx].PC = 0
	} else {
		v.frames.frames = v.frames.frames[:idx]
	}
}

// invokeIndex calls the function at the given index in the module's
// function index space, dispatching to host code for FuncOuter
// instances and to the bytecode interpreter for FuncInner ones.
func (v *VM) invokeIndex(idx int, args []value.Val) ([]value.Val, error) {
	if idx < 0 || idx >= len(v.funcs) {
		return nil, ErrFuncNotFound
	}
	f := v.funcs[idx]
	if len(args) != len(f.Type.Params) {
		return nil, ErrWrongNumberOfArgs
	}
	if f.Kind == instance.FuncOuter {
		imp, ok := v.registry.Lookup(f.Importer)
		if !ok {
			return nil, &Trap{message: "import resolution lost its importer: " + f.Importer}
		}
		return imp.CallByName(f.ImportName, args)
	}
	return v.callInner(f, args), nil
}

// call is the in-loop instruction handler: it pushes args already on
// the operand stack as a Call frame and runs the interpreter loop
// until that frame (and everything nested in it) has returned.
func (v *VM) call(idx uint32) {
	f := v.funcs[idx]
	if f.Kind == instance.FuncOuter {
		args := v.popN(len(f.Type.Params))
		imp, ok := v.registry.Lookup(f.Importer)
		if !ok {
			panic(NewTrap("import resolution lost its importer: " + f.Importer))
		}
		results, err := imp.CallByName(f.ImportName, args)
		if err != nil {
			panic(NewTrap(err.Error()))
		}
		v.pushN(results)
		return
	}
	v.pushCallFrame(f)
}

// callInner drives a full, self-contained invocation of a module-local
// function: push its frame, run until it returns, and collect results.
// Used both by the public Invoke entry point and by the start function.
func (v *VM) callInner(f *instance.Func, args []value.Val) []value.Val {
	base := len(v.operands)
	v.pushN(args)
	v.pushCallFrame(f)
	return v.popN(len(v.operands) - base)
}

// pushCallFrame allocates a Call frame for f, consuming its parameters
// (already on top of the operand stack) as its first locals and
// zero-initializing the rest, then runs the loop to completion and
// leaves its results on the stack.
func (v *VM) pushCallFrame(f *instance.Func) {
	numParams := len(f.Type.Params)
	localBase := len(v.operands) - numParams
	for _, le := range f.Code.Locals {
		for i := uint32(0); i < le.Count; i++ {
			v.push(value.Zero(le.Type))
		}
	}
	target := v.frames.depth()
	v.frames.push(Frame{
		Kind:      LabelCall,
		Expr:      &f.Code.Body,
		SP:        localBase,
		Arity:     len(f.Type.Results),
		ArgNum:    numParams,
		LocalBase: localBase,
	})
	if v.frames.depth() > v.cfg.Limits.MaxFrames {
		panic(ErrFrameOverflow)
	}
	v.run(target)
}

// run executes instructions until the frame stack depth drops back to
// target, i.e. until the frame that was on top when run was called (and
// everything it pushed) has exited.
func (v *VM) run(target int) {
	for v.frames.depth() > target {
		f := v.frames.top()
		if f.PC >= len(f.Expr.Instrs) {
			v.exitFrame()
			continue
		}
		instr := f.Expr.Instrs[f.PC]
		f.PC++
		v.chargeGas(instr)
		v.dispatch(instr)
	}
}

func (v *VM) chargeGas(instr wasm.Instruction) {
	if v.cfg.GasPolicy == nil {
		return
	}
	cost := v.cfg.GasPolicy.GetCostForOp(instr.Op)
	v.gas.Used += cost
	if v.gas.Limit > 0 && v.gas.Used > v.gas.Limit {
		panic(ErrGasExhausted)
	}
}

// dispatch executes a single decoded instruction.
func (v *VM) dispatch(instr wasm.Instruction) {
	switch instr.Op {
	case opcode.Unreachable:
		panic(ErrUnreachable)
	case opcode.Nop:

	case opcode.Block:
		imm := instr.Imm.(wasm.BlockImm)
		v.enterBlock(LabelBlock, &imm.Body, v.funcType(imm.Type))
	case opcode.Loop:
		imm := instr.Imm.(wasm.BlockImm)
		v.enterBlock(LabelLoop, &imm.Body, v.funcType(imm.Type))
	case opcode.If:
		imm := instr.Imm.(wasm.IfImm)
		cond := v.popBool()
		body := &imm.Else
		if cond {
			body = &imm.Then
		}
		v.enterBlock(LabelIf, body, v.funcType(imm.Type))

	case opcode.Br:
		v.br(int(instr.Imm.(wasm.IdxImm).Idx))
	case opcode.BrIf:
		l := int(instr.Imm.(wasm.IdxImm).Idx)
		if v.popBool() {
			v.br(l)
		}
	case opcode.BrTable:
		imm := instr.Imm.(wasm.BrTableImm)
		idx := v.popU32()
		l := imm.Default
		if int(idx) < len(imm.Labels) {
			l = imm.Labels[idx]
		}
		v.br(int(l))
	case opcode.Return:
		_, distance, ok := v.frames.topCall()
		if !ok {
			panic(ErrCallFrameNotFound)
		}
		v.br(distance)

	case opcode.Call:
		v.call(instr.Imm.(wasm.IdxImm).Idx)
	case opcode.CallIndirect:
		v.callIndirect(instr.Imm.(wasm.CallIndirectImm))

	case opcode.Drop:
		v.pop()
	case opcode.Select:
		cond := v.popBool()
		b := v.pop()
		a := v.pop()
		if cond {
			v.push(a)
		} else {
			v.push(b)
		}
	case opcode.SelectT:
		cond := v.popBool()
		b := v.pop()
		a := v.pop()
		if cond {
			v.push(a)
		} else {
			v.push(b)
		}

	case opcode.LocalGet:
		v.push(v.local(int(instr.Imm.(wasm.IdxImm).Idx)))
	case opcode.LocalSet:
		v.setLocal(int(instr.Imm.(wasm.IdxImm).Idx), v.pop())
	case opcode.LocalTee:
		val := v.pop()
		v.push(val)
		v.setLocal(int(instr.Imm.(wasm.IdxImm).Idx), val)
	case opcode.GlobalGet:
		idx := instr.Imm.(wasm.IdxImm).Idx
		v.push(v.globals[idx].Value())
	case opcode.GlobalSet:
		idx := instr.Imm.(wasm.IdxImm).Idx
		if err := v.globals[idx].Set(v.pop()); err != nil {
			panic(ErrGlobalVarConst)
		}

	case opcode.TableGet:
		idx := instr.Imm.(wasm.IdxImm).Idx
		elemIdx := v.popU32()
		val, ok := v.tables[idx].Get(elemIdx)
		if !ok {
			panic(ErrOutOfBoundTableAccess)
		}
		v.push(val)
	case opcode.TableSet:
		idx := instr.Imm.(wasm.IdxImm).Idx
		val := v.pop()
		elemIdx := v.popU32()
		if !v.tables[idx].Set(elemIdx, val) {
			panic(ErrOutOfBoundTableAccess)
		}

	case opcode.RefNull:
		rt := instr.Imm.(wasm.RefNullImm).RefType
		if rt == wasm.RefTypeExtern {
			v.push(value.NullExternRef())
		} else {
			v.push(value.NullFuncRef())
		}
	case opcode.RefIsNull:
		v.pushBool(!v.pop().AsBool())
	case opcode.RefFunc:
		v.push(value.FuncRefVal(instr.Imm.(wasm.IdxImm).Idx))

	case opcode.PrefixFC:
		v.dispatchFC(instr)
	case opcode.PrefixFD:
		v.dispatchFD(instr)

	default:
		v.dispatchNumericOrMemory(instr)
	}
}

// callIndirect resolves a funcref out of a table slot, checks its
// signature against the declared type index, and calls it exactly
// like a direct call once validated.
func (v *VM) callIndirect(imm wasm.CallIndirectImm) {
	elemIdx := v.popU32()
	table := v.tables[imm.TableIdx]
	ref, ok := table.Get(elemIdx)
	if !ok {
		panic(ErrOutOfBoundTableAccess)
	}
	if !ref.AsBool() {
		panic(ErrUninitTableElem)
	}
	funcIdx := ref.Ref.Idx
	if int(funcIdx) >= len(v.funcs) {
		panic(ErrInvalidRef)
	}
	f := v.funcs[funcIdx]
	want := v.module.Types[imm.TypeIdx]
	if !funcTypeEqual(f.Type, want) {
		panic(ErrMismatchedFuncSig)
	}
	if f.Kind == instance.FuncOuter {
		args := v.popN(len(f.Type.Params))
		imp, ok := v.registry.Lookup(f.Importer)
		if !ok {
			panic(NewTrap("import resolution lost its importer: " + f.Importer))
		}
		results, err := imp.CallByName(f.ImportName, args)
		if err != nil {
			panic(NewTrap(err.Error()))
		}
		v.pushN(results)
		return
	}
	v.pushCallFrame(f)
}

func funcTypeEqual(a, b wasm.FuncType) bool {
	if len(a.Params) != len(b.Params) || len(a.Results) != len(b.Results) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	for i := range a.Results {
		if a.Results[i] != b.Results[i] {
			return false
		}
	}
	return true
}
