//go:build amd64
// +build amd64

package jit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/miragevm/mirage/internal/platform"
	"github.com/miragevm/mirage/ir"
)

// featureSubsets are the CPU generations every lowering must emit under.
var featureSubsets = map[string]platform.Feature{
	"sse2":   0,
	"ssse3":  platform.SSE3 | platform.SSSE3,
	"sse41":  platform.SSE3 | platform.SSSE3 | platform.SSE41,
	"sse42":  platform.SSE3 | platform.SSSE3 | platform.SSE41 | platform.SSE42,
	"avx":    platform.SSE3 | platform.SSSE3 | platform.SSE41 | platform.SSE42 | platform.AVX,
	"avx2":   platform.SSE3 | platform.SSSE3 | platform.SSE41 | platform.SSE42 | platform.AVX | platform.AVX2,
	"avx512": platform.SSE3 | platform.SSSE3 | platform.SSE41 | platform.SSE42 | platform.AVX | platform.AVX2 | platform.AVX512F | platform.AVX512VL | platform.AVX512BW | platform.AVX512DQ | platform.AVX512BITALG,
}

var unaryVectorOpcodes = []ir.Opcode{
	ir.OpVectorZeroUpper,
	ir.OpVectorNot,
	ir.OpVectorAbs8, ir.OpVectorAbs16, ir.OpVectorAbs32, ir.OpVectorAbs64,
	ir.OpVectorNarrow16, ir.OpVectorNarrow32, ir.OpVectorNarrow64,
	ir.OpVectorSignExtend8, ir.OpVectorSignExtend16, ir.OpVectorSignExtend32, ir.OpVectorSignExtend64,
	ir.OpVectorZeroExtend8, ir.OpVectorZeroExtend16, ir.OpVectorZeroExtend32, ir.OpVectorZeroExtend64,
	ir.OpVectorSignedSaturatedAbs8, ir.OpVectorSignedSaturatedAbs16,
	ir.OpVectorSignedSaturatedAbs32, ir.OpVectorSignedSaturatedAbs64,
	ir.OpVectorSignedSaturatedNeg8, ir.OpVectorSignedSaturatedNeg16,
	ir.OpVectorSignedSaturatedNeg32, ir.OpVectorSignedSaturatedNeg64,
	ir.OpVectorSignedSaturatedNarrowToSigned16, ir.OpVectorSignedSaturatedNarrowToSigned32,
	ir.OpVectorSignedSaturatedNarrowToSigned64,
	ir.OpVectorSignedSaturatedNarrowToUnsigned16, ir.OpVectorSignedSaturatedNarrowToUnsigned32,
	ir.OpVectorSignedSaturatedNarrowToUnsigned64,
	ir.OpVectorUnsignedSaturatedNarrow16, ir.OpVectorUnsignedSaturatedNarrow32,
	ir.OpVectorUnsignedSaturatedNarrow64,
	ir.OpVectorBroadcast8, ir.OpVectorBroadcast16, ir.OpVectorBroadcast32, ir.OpVectorBroadcast64,
	ir.OpVectorBroadcastLower8, ir.OpVectorBroadcastLower16, ir.OpVectorBroadcastLower32,
	ir.OpVectorPairedAddSignedWiden8, ir.OpVectorPairedAddSignedWiden16, ir.OpVectorPairedAddSignedWiden32,
	ir.OpVectorPairedAddUnsignedWiden8, ir.OpVectorPairedAddUnsignedWiden16, ir.OpVectorPairedAddUnsignedWiden32,
	ir.OpVectorPopulationCount,
	ir.OpVectorReverseBits,
}

var binaryVectorOpcodes = []ir.Opcode{
	ir.OpVectorAnd, ir.OpVectorOr, ir.OpVectorEor,
	ir.OpVectorAdd8, ir.OpVectorAdd16, ir.OpVectorAdd32, ir.OpVectorAdd64,
	ir.OpVectorSub8, ir.OpVectorSub16, ir.OpVectorSub32, ir.OpVectorSub64,
	ir.OpVectorEqual8, ir.OpVectorEqual16, ir.OpVectorEqual32, ir.OpVectorEqual64, ir.OpVectorEqual128,
	ir.OpVectorGreaterS8, ir.OpVectorGreaterS16, ir.OpVectorGreaterS32, ir.OpVectorGreaterS64,
	ir.OpVectorLogicalVShiftS8, ir.OpVectorLogicalVShiftS16, ir.OpVectorLogicalVShiftS32, ir.OpVectorLogicalVShiftS64,
	ir.OpVectorLogicalVShiftU8, ir.OpVectorLogicalVShiftU16, ir.OpVectorLogicalVShiftU32, ir.OpVectorLogicalVShiftU64,
	ir.OpVectorHalvingAddS8, ir.OpVectorHalvingAddS16, ir.OpVectorHalvingAddS32,
	ir.OpVectorHalvingAddU8, ir.OpVectorHalvingAddU16, ir.OpVectorHalvingAddU32,
	ir.OpVectorHalvingSubS8, ir.OpVectorHalvingSubS16, ir.OpVectorHalvingSubS32,
	ir.OpVectorHalvingSubU8, ir.OpVectorHalvingSubU16, ir.OpVectorHalvingSubU32,
	ir.OpVectorRoundingHalvingAddS8, ir.OpVectorRoundingHalvingAddS16, ir.OpVectorRoundingHalvingAddS32,
	ir.OpVectorRoundingHalvingAddU8, ir.OpVectorRoundingHalvingAddU16, ir.OpVectorRoundingHalvingAddU32,
	ir.OpVectorRoundingShiftLeftS8, ir.OpVectorRoundingShiftLeftS16,
	ir.OpVectorRoundingShiftLeftS32, ir.OpVectorRoundingShiftLeftS64,
	ir.OpVectorRoundingShiftLeftU8, ir.OpVectorRoundingShiftLeftU16,
	ir.OpVectorRoundingShiftLeftU32, ir.OpVectorRoundingShiftLeftU64,
	ir.OpVectorMaxS8, ir.OpVectorMaxS16, ir.OpVectorMaxS32, ir.OpVectorMaxS64,
	ir.OpVectorMaxU8, ir.OpVectorMaxU16, ir.OpVectorMaxU32, ir.OpVectorMaxU64,
	ir.OpVectorMinS8, ir.OpVectorMinS16, ir.OpVectorMinS32, ir.OpVectorMinS64,
	ir.OpVectorMinU8, ir.OpVectorMinU16, ir.OpVectorMinU32, ir.OpVectorMinU64,
	ir.OpVectorMultiply8, ir.OpVectorMultiply16, ir.OpVectorMultiply32, ir.OpVectorMultiply64,
	ir.OpVectorSignedSaturatedDoublingMultiplyReturnHigh16,
	ir.OpVectorSignedSaturatedDoublingMultiplyReturnHigh32,
	ir.OpVectorPairedAdd8, ir.OpVectorPairedAdd16, ir.OpVectorPairedAdd32, ir.OpVectorPairedAdd64,
	ir.OpVectorPairedAddLower8, ir.OpVectorPairedAddLower16, ir.OpVectorPairedAddLower32,
	ir.OpVectorPairedMaxS8, ir.OpVectorPairedMaxS16, ir.OpVectorPairedMaxS32,
	ir.OpVectorPairedMaxU8, ir.OpVectorPairedMaxU16, ir.OpVectorPairedMaxU32,
	ir.OpVectorPairedMinS8, ir.OpVectorPairedMinS16, ir.OpVectorPairedMinS32,
	ir.OpVectorPairedMinU8, ir.OpVectorPairedMinU16, ir.OpVectorPairedMinU32,
	ir.OpVectorDeinterleaveEven8, ir.OpVectorDeinterleaveEven16,
	ir.OpVectorDeinterleaveEven32, ir.OpVectorDeinterleaveEven64,
	ir.OpVectorDeinterleaveOdd8, ir.OpVectorDeinterleaveOdd16,
	ir.OpVectorDeinterleaveOdd32, ir.OpVectorDeinterleaveOdd64,
	ir.OpVectorInterleaveLower8, ir.OpVectorInterleaveLower16,
	ir.OpVectorInterleaveLower32, ir.OpVectorInterleaveLower64,
	ir.OpVectorInterleaveUpper8, ir.OpVectorInterleaveUpper16,
	ir.OpVectorInterleaveUpper32, ir.OpVectorInterleaveUpper64,
	ir.OpVectorPolynomialMultiply8, ir.OpVectorPolynomialMultiplyLong8,
	ir.OpVectorPolynomialMultiplyLong64,
	ir.OpVectorSignedAbsoluteDifference8, ir.OpVectorSignedAbsoluteDifference16,
	ir.OpVectorSignedAbsoluteDifference32,
	ir.OpVectorUnsignedAbsoluteDifference8, ir.OpVectorUnsignedAbsoluteDifference16,
	ir.OpVectorUnsignedAbsoluteDifference32,
}

var shiftImmediateOpcodes = []ir.Opcode{
	ir.OpVectorLogicalShiftLeft8, ir.OpVectorLogicalShiftLeft16,
	ir.OpVectorLogicalShiftLeft32, ir.OpVectorLogicalShiftLeft64,
	ir.OpVectorLogicalShiftRight8, ir.OpVectorLogicalShiftRight16,
	ir.OpVectorLogicalShiftRight32, ir.OpVectorLogicalShiftRight64,
	ir.OpVectorArithmeticShiftRight8, ir.OpVectorArithmeticShiftRight16,
	ir.OpVectorArithmeticShiftRight32, ir.OpVectorArithmeticShiftRight64,
	ir.OpVectorShuffleHighHalfwords, ir.OpVectorShuffleLowHalfwords, ir.OpVectorShuffleWords,
}

func compileBlock(t *testing.T, feats platform.Feature, b *ir.Block) []byte {
	t.Helper()
	c, err := NewCompiler(feats, DefaultStateLayout())
	require.NoError(t, err)
	code, err := c.Compile(b)
	require.NoError(t, err)
	require.NotEmpty(t, code)
	return code
}

// emitOnly drives emission without encoding, so the lowering paths for
// every feature subset are exercised even where golang-asm would reject an
// exotic encoding at assembly time.
func emitOnly(t *testing.T, feats platform.Feature, b *ir.Block) {
	t.Helper()
	c, err := NewCompiler(feats, DefaultStateLayout())
	require.NoError(t, err)
	for _, inst := range b.Instructions {
		require.NoError(t, c.compileInstruction(inst))
		c.ra.endOfAllocScope()
	}
}

func TestCompileUnaryOpcodesAllFeatureSets(t *testing.T) {
	for name, feats := range featureSubsets {
		for _, op := range unaryVectorOpcodes {
			t.Run(name+"/"+op.String(), func(t *testing.T) {
				b := &ir.Block{}
				v := b.Append(ir.OpLoadVector, ir.Imm(0))
				res := b.Append(op, ir.Value(v))
				b.Append(ir.OpStoreVector, ir.Imm(16), ir.Value(res))
				emitOnly(t, feats, b)
			})
		}
	}
}

func TestCompileBinaryOpcodesAllFeatureSets(t *testing.T) {
	for name, feats := range featureSubsets {
		for _, op := range binaryVectorOpcodes {
			t.Run(name+"/"+op.String(), func(t *testing.T) {
				b := &ir.Block{}
				x := b.Append(ir.OpLoadVector, ir.Imm(0))
				y := b.Append(ir.OpLoadVector, ir.Imm(16))
				res := b.Append(op, ir.Value(x), ir.Value(y))
				b.Append(ir.OpStoreVector, ir.Imm(32), ir.Value(res))
				emitOnly(t, feats, b)
			})
		}
	}
}

func TestCompileShiftImmediateOpcodesAllFeatureSets(t *testing.T) {
	for name, feats := range featureSubsets {
		for _, op := range shiftImmediateOpcodes {
			for _, amount := range []uint64{0, 1, 3, 7} {
				t.Run(name+"/"+op.String(), func(t *testing.T) {
					b := &ir.Block{}
					v := b.Append(ir.OpLoadVector, ir.Imm(0))
					res := b.Append(op, ir.Value(v), ir.Imm(amount))
					b.Append(ir.OpStoreVector, ir.Imm(16), ir.Value(res))
					emitOnly(t, feats, b)
				})
			}
		}
	}
}

func TestCompileElementAccessAllFeatureSets(t *testing.T) {
	for name, feats := range featureSubsets {
		t.Run(name, func(t *testing.T) {
			for _, esize := range []struct {
				get, set ir.Opcode
				lanes    uint64
			}{
				{ir.OpVectorGetElement8, ir.OpVectorSetElement8, 16},
				{ir.OpVectorGetElement16, ir.OpVectorSetElement16, 8},
				{ir.OpVectorGetElement32, ir.OpVectorSetElement32, 4},
				{ir.OpVectorGetElement64, ir.OpVectorSetElement64, 2},
			} {
				for _, index := range []uint64{0, 1, esize.lanes - 1} {
					b := &ir.Block{}
					v := b.Append(ir.OpLoadVector, ir.Imm(0))
					elem := b.Append(esize.get, ir.Value(v), ir.Imm(index))
					w := b.Append(ir.OpLoadVector, ir.Imm(16))
					res := b.Append(esize.set, ir.Value(w), ir.Imm(index), ir.Value(elem))
					b.Append(ir.OpStoreVector, ir.Imm(32), ir.Value(res))
					emitOnly(t, feats, b)
				}
			}
		})
	}
}

func TestCompileExtractAllFeatureSets(t *testing.T) {
	for name, feats := range featureSubsets {
		t.Run(name, func(t *testing.T) {
			for _, pos := range []uint64{0, 8, 64, 120} {
				for _, op := range []ir.Opcode{ir.OpVectorExtract, ir.OpVectorExtractLower} {
					b := &ir.Block{}
					x := b.Append(ir.OpLoadVector, ir.Imm(0))
					y := b.Append(ir.OpLoadVector, ir.Imm(16))
					res := b.Append(op, ir.Value(x), ir.Value(y), ir.Imm(pos))
					b.Append(ir.OpStoreVector, ir.Imm(32), ir.Value(res))
					emitOnly(t, feats, b)
				}
			}
		})
	}
}

func TestCompileTableLookupAllShapes(t *testing.T) {
	for name, feats := range featureSubsets {
		for _, zeroDefaults := range []bool{true, false} {
			for tableSize := 1; tableSize <= 4; tableSize++ {
				t.Run(name, func(t *testing.T) {
					b := &ir.Block{}
					var tableArgs []ir.Arg
					for i := 0; i < tableSize; i++ {
						tableArgs = append(tableArgs, ir.Value(b.Append(ir.OpLoadVector, ir.Imm(uint64(i)*16))))
					}
					table := b.Append(ir.OpVectorTable, tableArgs...)
					var defaults *ir.Inst
					if zeroDefaults {
						defaults = b.Append(ir.OpZeroVector)
					} else {
						defaults = b.Append(ir.OpLoadVector, ir.Imm(64))
					}
					indices := b.Append(ir.OpLoadVector, ir.Imm(80))
					res := b.Append(ir.OpVectorTableLookup, ir.Value(defaults), ir.Value(table), ir.Value(indices))
					b.Append(ir.OpStoreVector, ir.Imm(96), ir.Value(res))
					emitOnly(t, feats, b)
				})
			}
		}
	}
}

// End-to-end through the encoder with baseline mnemonics.
func TestCompileAndAssembleBaselineBlock(t *testing.T) {
	b := &ir.Block{}
	x := b.Append(ir.OpLoadVector, ir.Imm(0))
	y := b.Append(ir.OpLoadVector, ir.Imm(16))
	sum := b.Append(ir.OpVectorAdd8, ir.Value(x), ir.Value(y))
	notted := b.Append(ir.OpVectorNot, ir.Value(sum))
	b.Append(ir.OpStoreVector, ir.Imm(32), ir.Value(notted))

	code := compileBlock(t, 0, b)
	require.NotEmpty(t, code)
}

func TestCompileDeduplicatesConstants(t *testing.T) {
	b := &ir.Block{}
	x := b.Append(ir.OpLoadVector, ir.Imm(0))
	y := b.Append(ir.OpLoadVector, ir.Imm(16))
	s1 := b.Append(ir.OpVectorLogicalShiftLeft8, ir.Value(x), ir.Imm(4))
	s2 := b.Append(ir.OpVectorLogicalShiftLeft8, ir.Value(y), ir.Imm(4))
	b.Append(ir.OpStoreVector, ir.Imm(32), ir.Value(s1))
	b.Append(ir.OpStoreVector, ir.Imm(48), ir.Value(s2))

	c, err := NewCompiler(0, DefaultStateLayout())
	require.NoError(t, err)
	for _, inst := range b.Instructions {
		require.NoError(t, c.compileInstruction(inst))
		c.ra.endOfAllocScope()
	}
	// Both shifts mask with ((0xFF << 4) & 0xFF) replicated; one entry.
	require.Len(t, c.asm.ConstPool().Consts(), 1)
}

func TestCompileRejectsUnknownOpcode(t *testing.T) {
	b := &ir.Block{}
	b.Append(ir.OpInvalid)
	c, err := NewCompiler(0, DefaultStateLayout())
	require.NoError(t, err)
	_, err = c.Compile(b)
	require.Error(t, err)
}

func TestVectorTableMultipleUsesPanics(t *testing.T) {
	b := &ir.Block{}
	v := b.Append(ir.OpLoadVector, ir.Imm(0))
	table := b.Append(ir.OpVectorTable, ir.Value(v))
	d := b.Append(ir.OpZeroVector)
	idx := b.Append(ir.OpLoadVector, ir.Imm(16))
	b.Append(ir.OpVectorTableLookup, ir.Value(d), ir.Value(table), ir.Value(idx))
	b.Append(ir.OpVectorTableLookup, ir.Value(d), ir.Value(table), ir.Value(idx))

	c, err := NewCompiler(platform.SSSE3|platform.SSE41, DefaultStateLayout())
	require.NoError(t, err)
	require.Panics(t, func() {
		for _, inst := range b.Instructions {
			_ = c.compileInstruction(inst)
			c.ra.endOfAllocScope()
		}
	})
}
