//go:build amd64
// +build amd64

package jit

import (
	"fmt"

	"github.com/miragevm/mirage/internal/asm"
	"github.com/miragevm/mirage/internal/asm/amd64"
	"github.com/miragevm/mirage/ir"
)

// Register pools. X0 is reserved: the blend instructions take it as an
// implicit operand, so emitters name it directly and the allocator must
// never hand it out. R15 holds the guest state pointer; SP and BP belong to
// the host stack. R14 is never allocatable: the Go runtime's register ABI
// keeps the current goroutine pointer there, and the scalar fallbacks call
// straight into Go code, so it must survive every emitted sequence.
var (
	allocatableXmmRegisters = []asm.Register{
		amd64.RegX1, amd64.RegX2, amd64.RegX3, amd64.RegX4, amd64.RegX5,
		amd64.RegX6, amd64.RegX7, amd64.RegX8, amd64.RegX9, amd64.RegX10,
		amd64.RegX11, amd64.RegX12, amd64.RegX13, amd64.RegX14, amd64.RegX15,
	}
	allocatableGprRegisters = []asm.Register{
		amd64.RegAX, amd64.RegCX, amd64.RegDX, amd64.RegBX,
		amd64.RegSI, amd64.RegDI, amd64.RegR8, amd64.RegR9,
		amd64.RegR10, amd64.RegR11, amd64.RegR12, amd64.RegR13,
	}
)

// regAlloc tracks which physical register (or spill slot) holds each live
// IR value while a block is being emitted. It distinguishes read-only
// reservations (use) from writable ones (useScratch/scratch): a use
// register is never written between reservation and scope end, and a
// scratch never aliases a live use of a different value.
//
// All reservations acquired while emitting one instruction are dropped by
// endOfAllocScope, which also retires argument values that reached their
// last use.
type regAlloc struct {
	a      *amd64.Assembler
	layout StateLayout

	// bindings maps a register to the IR value it currently holds.
	bindings map[asm.Register]*ir.Inst
	// spilled maps an IR value to its spill slot in the state record.
	spilled map[*ir.Inst]int
	// remaining counts the uses of a value not yet consumed.
	remaining map[*ir.Inst]int
	defined   map[*ir.Inst]bool

	spillSlotUsed []bool

	// Per-emission-scope state.
	pinned    map[asm.Register]bool // read-only reservations
	scratches map[asm.Register]bool // writable reservations
	scopeArgs []*ir.Inst            // values consumed this scope
}

func newRegAlloc(a *amd64.Assembler, layout StateLayout) *regAlloc {
	return &regAlloc{
		a:             a,
		layout:        layout,
		bindings:      map[asm.Register]*ir.Inst{},
		spilled:       map[*ir.Inst]int{},
		remaining:     map[*ir.Inst]int{},
		defined:       map[*ir.Inst]bool{},
		spillSlotUsed: make([]bool, layout.SpillSlots),
		pinned:        map[asm.Register]bool{},
		scratches:     map[asm.Register]bool{},
	}
}

func (r *regAlloc) registerOf(inst *ir.Inst) (asm.Register, bool) {
	for reg, v := range r.bindings {
		if v == inst {
			return reg, true
		}
	}
	return asm.NilRegister, false
}

func (r *regAlloc) allocSpillSlot() int {
	for i, used := range r.spillSlotUsed {
		if !used {
			r.spillSlotUsed[i] = true
			return i
		}
	}
	panic("bug in compiler: out of spill slots")
}

// takeFreeRegister hands out an unoccupied register of the requested kind,
// spilling the first stealable value if every register is taken.
func (r *regAlloc) takeFreeRegister(xmm bool) asm.Register {
	pool := allocatableGprRegisters
	if xmm {
		pool = allocatableXmmRegisters
	}
	for _, reg := range pool {
		if r.bindings[reg] == nil && !r.pinned[reg] && !r.scratches[reg] {
			return reg
		}
	}
	// Steal: spill the first bound value whose register is not reserved in
	// this scope.
	for _, reg := range pool {
		inst := r.bindings[reg]
		if inst == nil || r.pinned[reg] || r.scratches[reg] {
			continue
		}
		slot := r.allocSpillSlot()
		if xmm {
			r.a.CompileRegisterToMemory(amd64.MOVDQA, reg, reservedRegisterForState, r.layout.spillSlotOffset(slot))
		} else {
			r.a.CompileRegisterToMemory(amd64.MOVQ, reg, reservedRegisterForState, r.layout.spillSlotOffset(slot))
		}
		r.spilled[inst] = slot
		delete(r.bindings, reg)
		return reg
	}
	panic("bug in compiler: no allocatable register")
}

// materialize brings the value into a register of the requested kind,
// reloading from its spill slot or crossing the XMM/GPR boundary (via MOVQ)
// if needed.
func (r *regAlloc) materialize(inst *ir.Inst, xmm bool) asm.Register {
	if r.remaining[inst] == 0 {
		panic(fmt.Sprintf("bug in compiler: %s used before definition or after last use", inst))
	}
	if reg, ok := r.registerOf(inst); ok {
		if amd64.IsXmmRegister(reg) == xmm {
			return reg
		}
		// The value lives on the other side; move it across and rebind.
		wasPinned := r.pinned[reg]
		r.pinned[reg] = true
		moved := r.takeFreeRegister(xmm)
		r.pinned[reg] = wasPinned
		r.a.CompileRegisterToRegister(amd64.MOVQ, reg, moved)
		delete(r.bindings, reg)
		r.bindings[moved] = inst
		return moved
	}
	slot, ok := r.spilled[inst]
	if !ok {
		panic(fmt.Sprintf("bug in compiler: %s has no location", inst))
	}
	reg := r.takeFreeRegister(xmm)
	if xmm {
		r.a.CompileMemoryToRegister(amd64.MOVDQA, reservedRegisterForState, r.layout.spillSlotOffset(slot), reg)
	} else {
		r.a.CompileMemoryToRegister(amd64.MOVQ, reservedRegisterForState, r.layout.spillSlotOffset(slot), reg)
	}
	delete(r.spilled, inst)
	r.spillSlotUsed[slot] = false
	r.bindings[reg] = inst
	return reg
}

func (r *regAlloc) use(arg ir.Arg, xmm bool) asm.Register {
	if arg.IsImmediate() {
		panic("bug in compiler: use of an immediate argument as a value")
	}
	reg := r.materialize(arg.Inst, xmm)
	r.pinned[reg] = true
	r.scopeArgs = append(r.scopeArgs, arg.Inst)
	return reg
}

func (r *regAlloc) useScratch(arg ir.Arg, xmm bool) asm.Register {
	if arg.IsImmediate() {
		panic("bug in compiler: use of an immediate argument as a value")
	}
	inst := arg.Inst
	reg := r.materialize(inst, xmm)
	if r.remaining[inst] == 1 && !r.pinned[reg] {
		// Last use: take the register over, no copy.
		delete(r.bindings, reg)
		delete(r.remaining, inst)
		r.scratches[reg] = true
		return reg
	}
	wasPinned := r.pinned[reg]
	r.pinned[reg] = true
	copied := r.takeFreeRegister(xmm)
	r.pinned[reg] = wasPinned
	if xmm {
		r.a.CompileRegisterToRegister(amd64.MOVDQA, reg, copied)
	} else {
		r.a.CompileRegisterToRegister(amd64.MOVQ, reg, copied)
	}
	r.scratches[copied] = true
	r.scopeArgs = append(r.scopeArgs, inst)
	return copied
}

func (r *regAlloc) scratch(xmm bool) asm.Register {
	reg := r.takeFreeRegister(xmm)
	r.scratches[reg] = true
	return reg
}

// useXmm reserves a read-only XMM holding arg's value.
func (r *regAlloc) useXmm(arg ir.Arg) asm.Register { return r.use(arg, true) }

// useScratchXmm reserves a writable XMM holding arg's value, reusing the
// original register when this is the value's last use.
func (r *regAlloc) useScratchXmm(arg ir.Arg) asm.Register { return r.useScratch(arg, true) }

// scratchXmm reserves a writable XMM with undefined contents.
func (r *regAlloc) scratchXmm() asm.Register { return r.scratch(true) }

// useGpr, useScratchGpr, scratchGpr mirror the XMM side.
func (r *regAlloc) useGpr(arg ir.Arg) asm.Register        { return r.use(arg, false) }
func (r *regAlloc) useScratchGpr(arg ir.Arg) asm.Register { return r.useScratch(arg, false) }
func (r *regAlloc) scratchGpr() asm.Register              { return r.scratch(false) }

// defineValue binds reg as inst's result. Exactly one definition per value.
func (r *regAlloc) defineValue(inst *ir.Inst, reg asm.Register) {
	if r.defined[inst] {
		panic(fmt.Sprintf("bug in compiler: %s defined twice", inst))
	}
	if v := r.bindings[reg]; v != nil {
		panic(fmt.Sprintf("bug in compiler: defining %s in a register still owned by %s", inst, v))
	}
	r.defined[inst] = true
	delete(r.scratches, reg)
	delete(r.pinned, reg)
	if inst.UseCount() == 0 {
		return // dead value, the register stays free
	}
	r.bindings[reg] = inst
	r.remaining[inst] = inst.UseCount()
}

// defineValueFromArg binds inst's result to the location arg already
// occupies, copying only if arg has further uses.
func (r *regAlloc) defineValueFromArg(inst *ir.Inst, arg ir.Arg) {
	if arg.IsImmediate() {
		panic("bug in compiler: defining a value from an immediate")
	}
	src := arg.Inst
	if r.remaining[src] == 1 {
		// Transfer the location wholesale.
		if r.defined[inst] {
			panic(fmt.Sprintf("bug in compiler: %s defined twice", inst))
		}
		r.defined[inst] = true
		delete(r.remaining, src)
		if reg, ok := r.registerOf(src); ok {
			delete(r.bindings, reg)
			if inst.UseCount() > 0 {
				r.bindings[reg] = inst
			}
		} else if slot, ok := r.spilled[src]; ok {
			delete(r.spilled, src)
			if inst.UseCount() > 0 {
				r.spilled[inst] = slot
			} else {
				r.spillSlotUsed[slot] = false
			}
		} else {
			panic(fmt.Sprintf("bug in compiler: %s has no location", src))
		}
		if inst.UseCount() > 0 {
			r.remaining[inst] = inst.UseCount()
		}
		return
	}
	xmm := true
	if reg, ok := r.registerOf(src); ok {
		xmm = amd64.IsXmmRegister(reg)
	}
	copied := r.useScratch(arg, xmm)
	r.defineValue(inst, copied)
}

// release drops a reservation before the scope ends; uses acquired for the
// value remain accounted for at scope end.
func (r *regAlloc) release(reg asm.Register) {
	delete(r.scratches, reg)
	delete(r.pinned, reg)
}

// endOfAllocScope drops every reservation acquired during the current
// instruction's emission and retires values that reached their last use.
func (r *regAlloc) endOfAllocScope() {
	for _, inst := range r.scopeArgs {
		if n, ok := r.remaining[inst]; ok {
			n--
			if n > 0 {
				r.remaining[inst] = n
				continue
			}
			delete(r.remaining, inst)
			if reg, ok := r.registerOf(inst); ok {
				delete(r.bindings, reg)
			}
			if slot, ok := r.spilled[inst]; ok {
				delete(r.spilled, inst)
				r.spillSlotUsed[slot] = false
			}
		}
	}
	r.scopeArgs = r.scopeArgs[:0]
	for reg := range r.pinned {
		delete(r.pinned, reg)
	}
	for reg := range r.scratches {
		delete(r.scratches, reg)
	}
}

// hostCall spills every live value to the state spill area: the Go
// internal ABI the fallbacks are called under has no callee-saved
// registers. Register contents are left intact, so reservations taken
// before the call may still be read until the CALL itself.
func (r *regAlloc) hostCall() {
	for _, pool := range [][]asm.Register{allocatableXmmRegisters, allocatableGprRegisters} {
		for _, reg := range pool {
			inst := r.bindings[reg]
			if inst == nil {
				continue
			}
			slot := r.allocSpillSlot()
			if amd64.IsXmmRegister(reg) {
				r.a.CompileRegisterToMemory(amd64.MOVDQA, reg, reservedRegisterForState, r.layout.spillSlotOffset(slot))
			} else {
				r.a.CompileRegisterToMemory(amd64.MOVQ, reg, reservedRegisterForState, r.layout.spillSlotOffset(slot))
			}
			r.spilled[inst] = slot
			delete(r.bindings, reg)
		}
	}
}
