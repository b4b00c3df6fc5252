//go:build amd64
// +build amd64

package jit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/miragevm/mirage/internal/asm"
	"github.com/miragevm/mirage/internal/asm/amd64"
	"github.com/miragevm/mirage/ir"
)

func newTestRegAlloc(t *testing.T) *regAlloc {
	t.Helper()
	a, err := amd64.NewAssembler()
	require.NoError(t, err)
	return newRegAlloc(a, DefaultStateLayout())
}

// defineFresh simulates an emitted instruction producing a value.
func defineFresh(r *regAlloc, inst *ir.Inst) asm.Register {
	reg := r.scratchXmm()
	r.defineValue(inst, reg)
	r.endOfAllocScope()
	return reg
}

func TestRegAllocUseIsStable(t *testing.T) {
	r := newTestRegAlloc(t)
	b := &ir.Block{}
	v := b.Append(ir.OpZeroVector)
	b.Append(ir.OpVectorAdd8, ir.Value(v), ir.Value(v))

	reg := defineFresh(r, v)
	require.Equal(t, reg, r.useXmm(ir.Value(v)))
	require.Equal(t, reg, r.useXmm(ir.Value(v)))
}

func TestRegAllocUseScratchReusesOnLastUse(t *testing.T) {
	r := newTestRegAlloc(t)
	b := &ir.Block{}
	v := b.Append(ir.OpZeroVector)
	b.Append(ir.OpVectorNot, ir.Value(v)) // single use

	reg := defineFresh(r, v)
	got := r.useScratch(ir.Value(v), true)
	require.Equal(t, reg, got)
}

func TestRegAllocUseScratchCopiesWhenLive(t *testing.T) {
	r := newTestRegAlloc(t)
	b := &ir.Block{}
	v := b.Append(ir.OpZeroVector)
	b.Append(ir.OpVectorAdd8, ir.Value(v), ir.Value(v)) // two uses

	reg := defineFresh(r, v)
	got := r.useScratchXmm(ir.Value(v))
	require.NotEqual(t, reg, got)
	// The original binding is still intact for the second use.
	require.Equal(t, reg, r.useXmm(ir.Value(v)))
}

func TestRegAllocScratchNeverAliasesLiveUse(t *testing.T) {
	r := newTestRegAlloc(t)
	b := &ir.Block{}
	v := b.Append(ir.OpZeroVector)
	b.Append(ir.OpVectorNot, ir.Value(v))

	reg := defineFresh(r, v)
	used := r.useXmm(ir.Value(v))
	require.Equal(t, reg, used)
	seen := map[asm.Register]bool{used: true}
	for i := 0; i < 5; i++ {
		s := r.scratchXmm()
		require.False(t, seen[s], "scratch %s aliases a previous reservation", amd64.RegisterName(s))
		seen[s] = true
	}
}

func TestRegAllocDefineValueTwicePanics(t *testing.T) {
	r := newTestRegAlloc(t)
	b := &ir.Block{}
	v := b.Append(ir.OpZeroVector)
	b.Append(ir.OpVectorNot, ir.Value(v))

	defineFresh(r, v)
	require.Panics(t, func() {
		r.defineValue(v, r.scratchXmm())
	})
}

func TestRegAllocLastUseFreesRegister(t *testing.T) {
	r := newTestRegAlloc(t)
	b := &ir.Block{}
	v := b.Append(ir.OpZeroVector)
	b.Append(ir.OpVectorNot, ir.Value(v))

	reg := defineFresh(r, v)
	r.useXmm(ir.Value(v))
	r.endOfAllocScope()

	require.Nil(t, r.bindings[reg])
	require.Panics(t, func() { r.useXmm(ir.Value(v)) })
}

func TestRegAllocHostCallSpillsAndReloads(t *testing.T) {
	r := newTestRegAlloc(t)
	b := &ir.Block{}
	v := b.Append(ir.OpZeroVector)
	b.Append(ir.OpVectorAdd8, ir.Value(v), ir.Value(v))

	defineFresh(r, v)

	// The internal ABI has no callee-saved registers: every binding moves
	// to a spill slot.
	r.hostCall()
	_, inReg := r.registerOf(v)
	require.False(t, inReg)
	_, onSlot := r.spilled[v]
	require.True(t, onSlot)

	// The value is still reachable afterwards.
	got := r.useXmm(ir.Value(v))
	require.True(t, amd64.IsXmmRegister(got))
}

func TestRegAllocSpillsUnderPressure(t *testing.T) {
	r := newTestRegAlloc(t)
	b := &ir.Block{}

	// Define more live values than there are allocatable XMMs.
	var values []*ir.Inst
	for i := 0; i < len(allocatableXmmRegisters)+3; i++ {
		v := b.Append(ir.OpZeroVector)
		b.Append(ir.OpVectorNot, ir.Value(v))
		values = append(values, v)
	}
	for _, v := range values {
		defineFresh(r, v)
	}

	spilled := 0
	for _, v := range values {
		if _, ok := r.spilled[v]; ok {
			spilled++
		}
	}
	require.Equal(t, 3, spilled)

	// Every value can still be materialized.
	for _, v := range values {
		require.True(t, amd64.IsXmmRegister(r.useXmm(ir.Value(v))))
		r.endOfAllocScope()
	}
}

func TestRegAllocNeverHandsOutReservedRegisters(t *testing.T) {
	for _, reg := range allocatableGprRegisters {
		require.NotEqual(t, amd64.RegR14, reg) // goroutine pointer under the Go register ABI
		require.NotEqual(t, amd64.RegR15, reg) // guest state pointer
		require.NotEqual(t, amd64.RegSP, reg)
		require.NotEqual(t, amd64.RegBP, reg)
	}
	for _, reg := range allocatableXmmRegisters {
		require.NotEqual(t, amd64.RegX0, reg) // implicit blend operand
	}
}

func TestRegAllocCrossesXmmGprBoundary(t *testing.T) {
	r := newTestRegAlloc(t)
	b := &ir.Block{}
	v := b.Append(ir.OpZeroVector)
	b.Append(ir.OpVectorNot, ir.Value(v))
	b.Append(ir.OpVectorNot, ir.Value(v))

	defineFresh(r, v)
	gpr := r.useGpr(ir.Value(v))
	require.False(t, amd64.IsXmmRegister(gpr))
	r.endOfAllocScope()
	xmm := r.useXmm(ir.Value(v))
	require.True(t, amd64.IsXmmRegister(xmm))
}
