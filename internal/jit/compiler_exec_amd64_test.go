//go:build amd64 && (linux || darwin)
// +build amd64
// +build linux darwin

package jit

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/miragevm/mirage/internal/platform"
	"github.com/miragevm/mirage/ir"
)

// newState returns a 16-byte-aligned State. MOVDQA requires the alignment
// and the Go allocator only guarantees 8 bytes for heap objects.
func newState(t *testing.T) *State {
	t.Helper()
	buf := make([]byte, int(unsafe.Sizeof(State{}))+15)
	addr := (uintptr(unsafe.Pointer(&buf[0])) + 15) &^ 15
	t.Cleanup(func() { runtime.KeepAlive(buf) })
	return (*State)(unsafe.Pointer(addr))
}

// execBlock compiles the block under feats and runs it against st.
func execBlock(t *testing.T, feats platform.Feature, b *ir.Block, st *State) {
	t.Helper()
	c, err := NewCompiler(feats, DefaultStateLayout())
	require.NoError(t, err)
	code, err := c.Compile(b)
	require.NoError(t, err)
	seg, err := mmapCodeSegment(code)
	require.NoError(t, err)
	stateCall(uintptr(unsafe.Pointer(&seg[0])), st)
}

// distinctEffectiveSubsets intersects the test feature generations with
// what the host actually has, keeping one representative per distinct
// lowering environment.
func distinctEffectiveSubsets() map[string]platform.Feature {
	host := platform.CpuFeatures()
	out := map[string]platform.Feature{}
	seen := map[platform.Feature]bool{}
	for name, mask := range featureSubsets {
		eff := host & mask
		if !seen[eff] {
			seen[eff] = true
			out[name] = eff
		}
	}
	return out
}

func TestExecuteAddThenNot(t *testing.T) {
	st := newState(t)
	st.Vec[0] = [2]uint64{0x0807060504030201, 0x100F0E0D0C0B0A09}
	st.Vec[1] = [2]uint64{0x1111111111111111, 0x2222222222222222}

	b := &ir.Block{}
	x := b.Append(ir.OpLoadVector, ir.Imm(0))
	y := b.Append(ir.OpLoadVector, ir.Imm(16))
	sum := b.Append(ir.OpVectorAdd8, ir.Value(x), ir.Value(y))
	n := b.Append(ir.OpVectorNot, ir.Value(sum))
	b.Append(ir.OpStoreVector, ir.Imm(32), ir.Value(n))

	execBlock(t, 0, b, st)
	require.Equal(t, [2]uint64{^uint64(0x1918171615141312), ^uint64(0x3231302F2E2D2C2B)}, st.Vec[2])
}

// Scenario: 0xFF.. plus 0x01.. halves to 0x80.. without overflow. The
// lowering goes through pavgb and a pool constant, so this also proves the
// RIP-relative constant pool end to end.
func TestExecuteHalvingAddU8(t *testing.T) {
	for name, feats := range distinctEffectiveSubsets() {
		t.Run(name, func(t *testing.T) {
			st := newState(t)
			st.Vec[0] = [2]uint64{0xFFFFFFFFFFFFFFFF, 0xFFFFFFFFFFFFFFFF}
			st.Vec[1] = [2]uint64{0x0101010101010101, 0x0101010101010101}

			b := &ir.Block{}
			x := b.Append(ir.OpLoadVector, ir.Imm(0))
			y := b.Append(ir.OpLoadVector, ir.Imm(16))
			res := b.Append(ir.OpVectorHalvingAddU8, ir.Value(x), ir.Value(y))
			b.Append(ir.OpStoreVector, ir.Imm(32), ir.Value(res))

			execBlock(t, feats, b, st)
			require.Equal(t, [2]uint64{0x8080808080808080, 0x8080808080808080}, st.Vec[2])
		})
	}
}

// Scenario: equal quadwords compare to all-ones on both the pcmpeqq and
// the pcmpeqd+pshufd emulation paths.
func TestExecuteEqual64CrossPaths(t *testing.T) {
	for name, feats := range distinctEffectiveSubsets() {
		t.Run(name, func(t *testing.T) {
			st := newState(t)
			st.Vec[0] = [2]uint64{0x0807060504030201, 0x100F0E0D0C0B0A09}
			st.Vec[1] = [2]uint64{0x0807060504030201, 0xDEADBEEF0C0B0A09}

			b := &ir.Block{}
			x := b.Append(ir.OpLoadVector, ir.Imm(0))
			y := b.Append(ir.OpLoadVector, ir.Imm(16))
			res := b.Append(ir.OpVectorEqual64, ir.Value(x), ir.Value(y))
			b.Append(ir.OpStoreVector, ir.Imm(32), ir.Value(res))

			execBlock(t, feats, b, st)
			require.Equal(t, [2]uint64{^uint64(0), 0}, st.Vec[2])
		})
	}
}

// Scenario: {-1, 1} > {0, 0} is {0, all-ones}; without SSE4.2 this runs
// through the scalar fallback, so the generated Go-ABI call is executed.
func TestExecuteGreaterS64CrossPaths(t *testing.T) {
	for name, feats := range distinctEffectiveSubsets() {
		t.Run(name, func(t *testing.T) {
			st := newState(t)
			st.Vec[0] = [2]uint64{0xFFFFFFFFFFFFFFFF, 1}
			st.Vec[1] = [2]uint64{0, 0}

			b := &ir.Block{}
			x := b.Append(ir.OpLoadVector, ir.Imm(0))
			y := b.Append(ir.OpLoadVector, ir.Imm(16))
			res := b.Append(ir.OpVectorGreaterS64, ir.Value(x), ir.Value(y))
			b.Append(ir.OpStoreVector, ir.Imm(32), ir.Value(res))

			execBlock(t, feats, b, st)
			require.Equal(t, [2]uint64{0, ^uint64(0)}, st.Vec[2])
		})
	}
}

// Scenario: negating {0x8000, 1, ..., 7} saturates the first lane and sets
// the sticky flag; the flag is OR-ed, never cleared.
func TestExecuteSignedSaturatedNeg16(t *testing.T) {
	build := func() *ir.Block {
		b := &ir.Block{}
		x := b.Append(ir.OpLoadVector, ir.Imm(0))
		res := b.Append(ir.OpVectorSignedSaturatedNeg16, ir.Value(x))
		b.Append(ir.OpStoreVector, ir.Imm(32), ir.Value(res))
		return b
	}

	st := newState(t)
	st.Vec[0] = [2]uint64{0x0003000200018000, 0x0007000600050004}
	execBlock(t, platform.CpuFeatures(), build(), st)
	require.Equal(t, [2]uint64{0xFFFDFFFEFFFF7FFF, 0xFFF9FFFAFFFBFFFC}, st.Vec[2])
	require.Equal(t, byte(1), st.FpsrQC)

	// No saturation: the flag is untouched...
	st = newState(t)
	st.Vec[0] = [2]uint64{0x0004000300020001, 0x0008000700060005}
	execBlock(t, platform.CpuFeatures(), build(), st)
	require.Equal(t, byte(0), st.FpsrQC)

	// ...and an already-set flag survives a non-saturating block.
	st.FpsrQC = 1
	execBlock(t, platform.CpuFeatures(), build(), st)
	require.Equal(t, byte(1), st.FpsrQC)
}

// The polynomial multiply always takes the two-argument scalar fallback:
// (x+1)(x^2+1) = x^3+x^2+x+1 in every byte lane.
func TestExecuteFallbackPolynomialMultiply8(t *testing.T) {
	st := newState(t)
	st.Vec[0] = [2]uint64{0x0303030303030303, 0x0303030303030303}
	st.Vec[1] = [2]uint64{0x0505050505050505, 0x0505050505050505}

	b := &ir.Block{}
	x := b.Append(ir.OpLoadVector, ir.Imm(0))
	y := b.Append(ir.OpLoadVector, ir.Imm(16))
	res := b.Append(ir.OpVectorPolynomialMultiply8, ir.Value(x), ir.Value(y))
	b.Append(ir.OpStoreVector, ir.Imm(32), ir.Value(res))

	execBlock(t, platform.CpuFeatures(), b, st)
	require.Equal(t, [2]uint64{0x0F0F0F0F0F0F0F0F, 0x0F0F0F0F0F0F0F0F}, st.Vec[2])
}

// A saturating one-argument fallback: the byte returned in AX is OR-ed
// into the flag by the generated code.
func TestExecuteFallbackUnsignedSaturatedNarrow16(t *testing.T) {
	st := newState(t)
	st.Vec[0] = [2]uint64{0x00030002000101FF, 0x0007000600050004}

	b := &ir.Block{}
	x := b.Append(ir.OpLoadVector, ir.Imm(0))
	res := b.Append(ir.OpVectorUnsignedSaturatedNarrow16, ir.Value(x))
	b.Append(ir.OpStoreVector, ir.Imm(32), ir.Value(res))

	execBlock(t, platform.CpuFeatures(), b, st)
	require.Equal(t, [2]uint64{0x07060504030201FF, 0}, st.Vec[2])
	require.Equal(t, byte(1), st.FpsrQC)
}

// Scenario: zero defaults, one table vector 00 11 ... FF; identity indices
// select it unchanged, an out-of-range selector yields the zero default.
// Exercised on the pshufb path and the scalar-helper path.
func TestExecuteTableLookupCrossPaths(t *testing.T) {
	for name, feats := range distinctEffectiveSubsets() {
		t.Run(name, func(t *testing.T) {
			st := newState(t)
			st.Vec[0] = [2]uint64{0x7766554433221100, 0xFFEEDDCCBBAA9988}
			st.Vec[1] = [2]uint64{0x0706050403250100, 0x0F0E0D0C0B0A0908} // selector 2 out of range

			b := &ir.Block{}
			t0 := b.Append(ir.OpLoadVector, ir.Imm(0))
			table := b.Append(ir.OpVectorTable, ir.Value(t0))
			defaults := b.Append(ir.OpZeroVector)
			indices := b.Append(ir.OpLoadVector, ir.Imm(16))
			res := b.Append(ir.OpVectorTableLookup, ir.Value(defaults), ir.Value(table), ir.Value(indices))
			b.Append(ir.OpStoreVector, ir.Imm(32), ir.Value(res))

			execBlock(t, feats, b, st)
			require.Equal(t, [2]uint64{0x7766554433001100, 0xFFEEDDCCBBAA9988}, st.Vec[2])
		})
	}
}
