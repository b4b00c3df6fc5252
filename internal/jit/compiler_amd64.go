//go:build amd64
// +build amd64

package jit

// This file implements the x86-64 vector lowering backend. Please refer to
// https://www.felixcloutier.com/x86/index.html if unfamiliar with the
// instructions used here.

import (
	"fmt"

	"github.com/miragevm/mirage/internal/asm"
	"github.com/miragevm/mirage/internal/asm/amd64"
	"github.com/miragevm/mirage/internal/platform"
	"github.com/miragevm/mirage/ir"
)

// compiler lowers one basic block of vector IR to amd64 machine code.
type compiler struct {
	asm    *amd64.Assembler
	ra     *regAlloc
	feats  platform.Feature
	layout StateLayout
}

// NewCompiler returns a compiler for one basic block. Lowering decisions
// are static per emission: feats is consulted at emit time only.
func NewCompiler(feats platform.Feature, layout StateLayout) (*Compiler, error) {
	a, err := amd64.NewAssembler()
	if err != nil {
		return nil, fmt.Errorf("failed to create an assembler: %w", err)
	}
	return &Compiler{&compiler{
		asm:    a,
		ra:     newRegAlloc(a, layout),
		feats:  feats,
		layout: layout,
	}}, nil
}

// Compiler is the public handle; one instance per basic block.
type Compiler struct {
	*compiler
}

// Compile emits the block in order and returns the machine code with the
// constant pool appended. A Compiler is single use.
func (c *Compiler) Compile(block *ir.Block) ([]byte, error) {
	for _, inst := range block.Instructions {
		if err := c.compileInstruction(inst); err != nil {
			return nil, err
		}
		c.ra.endOfAllocScope()
	}
	c.asm.CompileStandAlone(amd64.RET)
	code, err := c.asm.Assemble()
	if err != nil {
		return nil, fmt.Errorf("failed to assemble the block: %w", err)
	}
	return code, nil
}

func (c *compiler) supports(f platform.Feature) bool { return c.feats.Has(f) }

func (c *compiler) compileInstruction(inst *ir.Inst) error {
	switch inst.Opcode {
	case ir.OpLoadVector:
		c.compileLoadVector(inst)
	case ir.OpStoreVector:
		c.compileStoreVector(inst)
	case ir.OpZeroVector:
		c.compileZeroVector(inst)
	case ir.OpVectorZeroUpper:
		c.compileVectorZeroUpper(inst)

	case ir.OpVectorGetElement8:
		c.compileVectorGetElement8(inst)
	case ir.OpVectorGetElement16:
		c.compileVectorGetElement16(inst)
	case ir.OpVectorGetElement32:
		c.compileVectorGetElement32(inst)
	case ir.OpVectorGetElement64:
		c.compileVectorGetElement64(inst)
	case ir.OpVectorSetElement8:
		c.compileVectorSetElement8(inst)
	case ir.OpVectorSetElement16:
		c.compileVectorSetElement16(inst)
	case ir.OpVectorSetElement32:
		c.compileVectorSetElement32(inst)
	case ir.OpVectorSetElement64:
		c.compileVectorSetElement64(inst)

	case ir.OpVectorAnd:
		c.emitVectorOp(inst, amd64.PAND)
	case ir.OpVectorOr:
		c.emitVectorOp(inst, amd64.POR)
	case ir.OpVectorEor:
		c.emitVectorOp(inst, amd64.PXOR)
	case ir.OpVectorNot:
		c.compileVectorNot(inst)

	case ir.OpVectorAdd8:
		c.emitVectorOp(inst, amd64.PADDB)
	case ir.OpVectorAdd16:
		c.emitVectorOp(inst, amd64.PADDW)
	case ir.OpVectorAdd32:
		c.emitVectorOp(inst, amd64.PADDD)
	case ir.OpVectorAdd64:
		c.emitVectorOp(inst, amd64.PADDQ)
	case ir.OpVectorSub8:
		c.emitVectorOp(inst, amd64.PSUBB)
	case ir.OpVectorSub16:
		c.emitVectorOp(inst, amd64.PSUBW)
	case ir.OpVectorSub32:
		c.emitVectorOp(inst, amd64.PSUBD)
	case ir.OpVectorSub64:
		c.emitVectorOp(inst, amd64.PSUBQ)

	case ir.OpVectorEqual8:
		c.emitVectorOp(inst, amd64.PCMPEQB)
	case ir.OpVectorEqual16:
		c.emitVectorOp(inst, amd64.PCMPEQW)
	case ir.OpVectorEqual32:
		c.emitVectorOp(inst, amd64.PCMPEQD)
	case ir.OpVectorEqual64:
		c.compileVectorEqual64(inst)
	case ir.OpVectorEqual128:
		c.compileVectorEqual128(inst)
	case ir.OpVectorGreaterS8:
		c.emitVectorOp(inst, amd64.PCMPGTB)
	case ir.OpVectorGreaterS16:
		c.emitVectorOp(inst, amd64.PCMPGTW)
	case ir.OpVectorGreaterS32:
		c.emitVectorOp(inst, amd64.PCMPGTD)
	case ir.OpVectorGreaterS64:
		c.compileVectorGreaterS64(inst)

	case ir.OpVectorAbs8:
		c.compileVectorAbs(inst, 8)
	case ir.OpVectorAbs16:
		c.compileVectorAbs(inst, 16)
	case ir.OpVectorAbs32:
		c.compileVectorAbs(inst, 32)
	case ir.OpVectorAbs64:
		c.compileVectorAbs(inst, 64)

	case ir.OpVectorLogicalShiftLeft8:
		c.compileVectorLogicalShiftLeft8(inst)
	case ir.OpVectorLogicalShiftLeft16:
		c.emitShiftByImmediate(inst, amd64.PSLLW)
	case ir.OpVectorLogicalShiftLeft32:
		c.emitShiftByImmediate(inst, amd64.PSLLD)
	case ir.OpVectorLogicalShiftLeft64:
		c.emitShiftByImmediate(inst, amd64.PSLLQ)
	case ir.OpVectorLogicalShiftRight8:
		c.compileVectorLogicalShiftRight8(inst)
	case ir.OpVectorLogicalShiftRight16:
		c.emitShiftByImmediate(inst, amd64.PSRLW)
	case ir.OpVectorLogicalShiftRight32:
		c.emitShiftByImmediate(inst, amd64.PSRLD)
	case ir.OpVectorLogicalShiftRight64:
		c.emitShiftByImmediate(inst, amd64.PSRLQ)
	case ir.OpVectorArithmeticShiftRight8:
		c.compileVectorArithmeticShiftRight8(inst)
	case ir.OpVectorArithmeticShiftRight16:
		c.emitShiftByImmediate(inst, amd64.PSRAW)
	case ir.OpVectorArithmeticShiftRight32:
		c.emitShiftByImmediate(inst, amd64.PSRAD)
	case ir.OpVectorArithmeticShiftRight64:
		c.compileVectorArithmeticShiftRight64(inst)

	case ir.OpVectorLogicalVShiftS8:
		c.emitTwoArgumentFallback(inst, fallbackLogicalVShiftS8)
	case ir.OpVectorLogicalVShiftS16:
		c.emitTwoArgumentFallback(inst, fallbackLogicalVShiftS16)
	case ir.OpVectorLogicalVShiftS32:
		c.emitTwoArgumentFallback(inst, fallbackLogicalVShiftS32)
	case ir.OpVectorLogicalVShiftS64:
		c.emitTwoArgumentFallback(inst, fallbackLogicalVShiftS64)
	case ir.OpVectorLogicalVShiftU8:
		c.emitTwoArgumentFallback(inst, fallbackLogicalVShiftU8)
	case ir.OpVectorLogicalVShiftU16:
		c.emitTwoArgumentFallback(inst, fallbackLogicalVShiftU16)
	case ir.OpVectorLogicalVShiftU32:
		c.emitTwoArgumentFallback(inst, fallbackLogicalVShiftU32)
	case ir.OpVectorLogicalVShiftU64:
		c.emitTwoArgumentFallback(inst, fallbackLogicalVShiftU64)

	case ir.OpVectorHalvingAddS8, ir.OpVectorHalvingAddS16, ir.OpVectorHalvingAddS32:
		c.compileVectorHalvingAddSigned(inst)
	case ir.OpVectorHalvingAddU8, ir.OpVectorHalvingAddU16, ir.OpVectorHalvingAddU32:
		c.compileVectorHalvingAddUnsigned(inst)
	case ir.OpVectorHalvingSubS8, ir.OpVectorHalvingSubS16, ir.OpVectorHalvingSubS32:
		c.compileVectorHalvingSubSigned(inst)
	case ir.OpVectorHalvingSubU8, ir.OpVectorHalvingSubU16, ir.OpVectorHalvingSubU32:
		c.compileVectorHalvingSubUnsigned(inst)
	case ir.OpVectorRoundingHalvingAddS8, ir.OpVectorRoundingHalvingAddS16, ir.OpVectorRoundingHalvingAddS32:
		c.compileVectorRoundingHalvingAddSigned(inst)
	case ir.OpVectorRoundingHalvingAddU8, ir.OpVectorRoundingHalvingAddU16, ir.OpVectorRoundingHalvingAddU32:
		c.compileVectorRoundingHalvingAddUnsigned(inst)

	case ir.OpVectorRoundingShiftLeftS8:
		c.emitTwoArgumentFallback(inst, fallbackRoundingShiftLeftS8)
	case ir.OpVectorRoundingShiftLeftS16:
		c.emitTwoArgumentFallback(inst, fallbackRoundingShiftLeftS16)
	case ir.OpVectorRoundingShiftLeftS32:
		c.emitTwoArgumentFallback(inst, fallbackRoundingShiftLeftS32)
	case ir.OpVectorRoundingShiftLeftS64:
		c.emitTwoArgumentFallback(inst, fallbackRoundingShiftLeftS64)
	case ir.OpVectorRoundingShiftLeftU8:
		c.emitTwoArgumentFallback(inst, fallbackRoundingShiftLeftU8)
	case ir.OpVectorRoundingShiftLeftU16:
		c.emitTwoArgumentFallback(inst, fallbackRoundingShiftLeftU16)
	case ir.OpVectorRoundingShiftLeftU32:
		c.emitTwoArgumentFallback(inst, fallbackRoundingShiftLeftU32)
	case ir.OpVectorRoundingShiftLeftU64:
		c.emitTwoArgumentFallback(inst, fallbackRoundingShiftLeftU64)

	case ir.OpVectorMaxS8:
		c.compileVectorMaxS8(inst)
	case ir.OpVectorMaxS16:
		c.emitVectorOp(inst, amd64.PMAXSW)
	case ir.OpVectorMaxS32:
		c.compileVectorMaxS32(inst)
	case ir.OpVectorMaxS64:
		c.compileVectorMaxS64(inst)
	case ir.OpVectorMaxU8:
		c.emitVectorOp(inst, amd64.PMAXUB)
	case ir.OpVectorMaxU16:
		c.compileVectorMaxU16(inst)
	case ir.OpVectorMaxU32:
		c.compileVectorMaxU32(inst)
	case ir.OpVectorMaxU64:
		c.compileVectorMaxU64(inst)
	case ir.OpVectorMinS8:
		c.compileVectorMinS8(inst)
	case ir.OpVectorMinS16:
		c.emitVectorOp(inst, amd64.PMINSW)
	case ir.OpVectorMinS32:
		c.compileVectorMinS32(inst)
	case ir.OpVectorMinS64:
		c.compileVectorMinS64(inst)
	case ir.OpVectorMinU8:
		c.emitVectorOp(inst, amd64.PMINUB)
	case ir.OpVectorMinU16:
		c.compileVectorMinU16(inst)
	case ir.OpVectorMinU32:
		c.compileVectorMinU32(inst)
	case ir.OpVectorMinU64:
		c.compileVectorMinU64(inst)

	case ir.OpVectorMultiply8:
		c.compileVectorMultiply8(inst)
	case ir.OpVectorMultiply16:
		c.emitVectorOp(inst, amd64.PMULLW)
	case ir.OpVectorMultiply32:
		c.compileVectorMultiply32(inst)
	case ir.OpVectorMultiply64:
		c.compileVectorMultiply64(inst)

	case ir.OpVectorSignedSaturatedDoublingMultiplyReturnHigh16:
		c.compileVectorSignedSaturatedDoublingMultiplyReturnHigh16(inst)
	case ir.OpVectorSignedSaturatedDoublingMultiplyReturnHigh32:
		c.compileVectorSignedSaturatedDoublingMultiplyReturnHigh32(inst)

	case ir.OpVectorNarrow16:
		c.compileVectorNarrow16(inst)
	case ir.OpVectorNarrow32:
		c.compileVectorNarrow32(inst)
	case ir.OpVectorNarrow64:
		c.compileVectorNarrow64(inst)
	case ir.OpVectorSignExtend8:
		c.compileVectorSignExtend8(inst)
	case ir.OpVectorSignExtend16:
		c.compileVectorSignExtend16(inst)
	case ir.OpVectorSignExtend32:
		c.compileVectorSignExtend32(inst)
	case ir.OpVectorSignExtend64:
		c.compileVectorSignExtend64(inst)
	case ir.OpVectorZeroExtend8:
		c.compileVectorZeroExtend8(inst)
	case ir.OpVectorZeroExtend16:
		c.compileVectorZeroExtend16(inst)
	case ir.OpVectorZeroExtend32:
		c.compileVectorZeroExtend32(inst)
	case ir.OpVectorZeroExtend64:
		c.compileVectorZeroExtend64(inst)

	case ir.OpVectorSignedSaturatedAbs8:
		c.compileVectorSignedSaturatedAbs(inst, 8)
	case ir.OpVectorSignedSaturatedAbs16:
		c.compileVectorSignedSaturatedAbs(inst, 16)
	case ir.OpVectorSignedSaturatedAbs32:
		c.compileVectorSignedSaturatedAbs(inst, 32)
	case ir.OpVectorSignedSaturatedAbs64:
		c.compileVectorSignedSaturatedAbs64(inst)
	case ir.OpVectorSignedSaturatedNeg8:
		c.compileVectorSignedSaturatedNeg(inst, 8)
	case ir.OpVectorSignedSaturatedNeg16:
		c.compileVectorSignedSaturatedNeg(inst, 16)
	case ir.OpVectorSignedSaturatedNeg32:
		c.compileVectorSignedSaturatedNeg(inst, 32)
	case ir.OpVectorSignedSaturatedNeg64:
		c.compileVectorSignedSaturatedNeg64(inst)

	case ir.OpVectorSignedSaturatedNarrowToSigned16:
		c.compileVectorSignedSaturatedNarrowToSigned(inst, 16)
	case ir.OpVectorSignedSaturatedNarrowToSigned32:
		c.compileVectorSignedSaturatedNarrowToSigned(inst, 32)
	case ir.OpVectorSignedSaturatedNarrowToSigned64:
		c.emitOneArgumentFallbackWithSaturation(inst, fallbackSignedSaturatedNarrowToSigned64)
	case ir.OpVectorSignedSaturatedNarrowToUnsigned16:
		c.compileVectorSignedSaturatedNarrowToUnsigned(inst, 16)
	case ir.OpVectorSignedSaturatedNarrowToUnsigned32:
		c.compileVectorSignedSaturatedNarrowToUnsigned32(inst)
	case ir.OpVectorSignedSaturatedNarrowToUnsigned64:
		c.emitOneArgumentFallbackWithSaturation(inst, fallbackSignedSaturatedNarrowToUnsigned64)
	case ir.OpVectorUnsignedSaturatedNarrow16:
		c.emitOneArgumentFallbackWithSaturation(inst, fallbackUnsignedSaturatedNarrow16)
	case ir.OpVectorUnsignedSaturatedNarrow32:
		c.emitOneArgumentFallbackWithSaturation(inst, fallbackUnsignedSaturatedNarrow32)
	case ir.OpVectorUnsignedSaturatedNarrow64:
		c.emitOneArgumentFallbackWithSaturation(inst, fallbackUnsignedSaturatedNarrow64)

	case ir.OpVectorPairedAdd8:
		c.compileVectorPairedAdd8(inst)
	case ir.OpVectorPairedAdd16:
		c.compileVectorPairedAdd16(inst)
	case ir.OpVectorPairedAdd32:
		c.compileVectorPairedAdd32(inst)
	case ir.OpVectorPairedAdd64:
		c.compileVectorPairedAdd64(inst)
	case ir.OpVectorPairedAddLower8:
		c.compileVectorPairedAddLower8(inst)
	case ir.OpVectorPairedAddLower16:
		c.compileVectorPairedAddLower16(inst)
	case ir.OpVectorPairedAddLower32:
		c.compileVectorPairedAddLower32(inst)
	case ir.OpVectorPairedAddSignedWiden8:
		c.compileVectorPairedAddSignedWiden8(inst)
	case ir.OpVectorPairedAddSignedWiden16:
		c.compileVectorPairedAddSignedWiden16(inst)
	case ir.OpVectorPairedAddSignedWiden32:
		c.compileVectorPairedAddSignedWiden32(inst)
	case ir.OpVectorPairedAddUnsignedWiden8:
		c.compileVectorPairedAddUnsignedWiden8(inst)
	case ir.OpVectorPairedAddUnsignedWiden16:
		c.compileVectorPairedAddUnsignedWiden16(inst)
	case ir.OpVectorPairedAddUnsignedWiden32:
		c.compileVectorPairedAddUnsignedWiden32(inst)

	case ir.OpVectorPairedMaxS8:
		c.emitTwoArgumentFallback(inst, fallbackPairedMaxS8)
	case ir.OpVectorPairedMaxS16:
		c.emitTwoArgumentFallback(inst, fallbackPairedMaxS16)
	case ir.OpVectorPairedMaxS32:
		c.compileVectorPairedMinMaxS32(inst, true)
	case ir.OpVectorPairedMaxU8:
		c.emitTwoArgumentFallback(inst, fallbackPairedMaxU8)
	case ir.OpVectorPairedMaxU16:
		c.emitTwoArgumentFallback(inst, fallbackPairedMaxU16)
	case ir.OpVectorPairedMaxU32:
		c.compileVectorPairedMinMaxU32(inst, true)
	case ir.OpVectorPairedMinS8:
		c.emitTwoArgumentFallback(inst, fallbackPairedMinS8)
	case ir.OpVectorPairedMinS16:
		c.emitTwoArgumentFallback(inst, fallbackPairedMinS16)
	case ir.OpVectorPairedMinS32:
		c.compileVectorPairedMinMaxS32(inst, false)
	case ir.OpVectorPairedMinU8:
		c.emitTwoArgumentFallback(inst, fallbackPairedMinU8)
	case ir.OpVectorPairedMinU16:
		c.emitTwoArgumentFallback(inst, fallbackPairedMinU16)
	case ir.OpVectorPairedMinU32:
		c.compileVectorPairedMinMaxU32(inst, false)

	case ir.OpVectorDeinterleaveEven8:
		c.compileVectorDeinterleaveEven8(inst)
	case ir.OpVectorDeinterleaveEven16:
		c.compileVectorDeinterleaveEven16(inst)
	case ir.OpVectorDeinterleaveEven32:
		c.compileVectorDeinterleaveEven32(inst)
	case ir.OpVectorDeinterleaveEven64:
		c.compileVectorDeinterleaveEven64(inst)
	case ir.OpVectorDeinterleaveOdd8:
		c.compileVectorDeinterleaveOdd8(inst)
	case ir.OpVectorDeinterleaveOdd16:
		c.compileVectorDeinterleaveOdd16(inst)
	case ir.OpVectorDeinterleaveOdd32:
		c.compileVectorDeinterleaveOdd32(inst)
	case ir.OpVectorDeinterleaveOdd64:
		c.compileVectorDeinterleaveOdd64(inst)

	case ir.OpVectorInterleaveLower8:
		c.emitVectorOp(inst, amd64.PUNPCKLBW)
	case ir.OpVectorInterleaveLower16:
		c.emitVectorOp(inst, amd64.PUNPCKLWD)
	case ir.OpVectorInterleaveLower32:
		c.emitVectorOp(inst, amd64.PUNPCKLDQ)
	case ir.OpVectorInterleaveLower64:
		c.emitVectorOp(inst, amd64.PUNPCKLQDQ)
	case ir.OpVectorInterleaveUpper8:
		c.emitVectorOp(inst, amd64.PUNPCKHBW)
	case ir.OpVectorInterleaveUpper16:
		c.emitVectorOp(inst, amd64.PUNPCKHWD)
	case ir.OpVectorInterleaveUpper32:
		c.emitVectorOp(inst, amd64.PUNPCKHDQ)
	case ir.OpVectorInterleaveUpper64:
		c.emitVectorOp(inst, amd64.PUNPCKHQDQ)

	case ir.OpVectorBroadcast8:
		c.compileVectorBroadcast8(inst)
	case ir.OpVectorBroadcast16:
		c.compileVectorBroadcast16(inst)
	case ir.OpVectorBroadcast32:
		c.compileVectorBroadcast32(inst)
	case ir.OpVectorBroadcast64:
		c.compileVectorBroadcast64(inst)
	case ir.OpVectorBroadcastLower8:
		c.compileVectorBroadcastLower8(inst)
	case ir.OpVectorBroadcastLower16:
		c.compileVectorBroadcastLower16(inst)
	case ir.OpVectorBroadcastLower32:
		c.compileVectorBroadcastLower32(inst)

	case ir.OpVectorShuffleHighHalfwords:
		c.emitVectorShuffle(inst, amd64.PSHUFHW)
	case ir.OpVectorShuffleLowHalfwords:
		c.emitVectorShuffle(inst, amd64.PSHUFLW)
	case ir.OpVectorShuffleWords:
		c.emitVectorShuffle(inst, amd64.PSHUFD)

	case ir.OpVectorExtract:
		c.compileVectorExtract(inst)
	case ir.OpVectorExtractLower:
		c.compileVectorExtractLower(inst)

	case ir.OpVectorPolynomialMultiply8:
		c.emitTwoArgumentFallback(inst, fallbackPolynomialMultiply8)
	case ir.OpVectorPolynomialMultiplyLong8:
		c.emitTwoArgumentFallback(inst, fallbackPolynomialMultiplyLong8)
	case ir.OpVectorPolynomialMultiplyLong64:
		c.emitTwoArgumentFallback(inst, fallbackPolynomialMultiplyLong64)

	case ir.OpVectorPopulationCount:
		c.compileVectorPopulationCount(inst)
	case ir.OpVectorReverseBits:
		c.compileVectorReverseBits(inst)

	case ir.OpVectorSignedAbsoluteDifference8:
		c.compileVectorSignedAbsoluteDifference(inst, 8)
	case ir.OpVectorSignedAbsoluteDifference16:
		c.compileVectorSignedAbsoluteDifference(inst, 16)
	case ir.OpVectorSignedAbsoluteDifference32:
		c.compileVectorSignedAbsoluteDifference(inst, 32)
	case ir.OpVectorUnsignedAbsoluteDifference8:
		c.compileVectorUnsignedAbsoluteDifference(inst, 8)
	case ir.OpVectorUnsignedAbsoluteDifference16:
		c.compileVectorUnsignedAbsoluteDifference(inst, 16)
	case ir.OpVectorUnsignedAbsoluteDifference32:
		c.compileVectorUnsignedAbsoluteDifference(inst, 32)

	case ir.OpVectorTable:
		c.compileVectorTable(inst)
	case ir.OpVectorTableLookup:
		c.compileVectorTableLookup(inst)

	default:
		return fmt.Errorf("unsupported opcode: %s", inst.Opcode)
	}
	return nil
}

// emitVectorOp lowers a plain two-operand op: a = op(a, b).
func (c *compiler) emitVectorOp(inst *ir.Inst, op asm.Instruction) {
	xmmA := c.ra.useScratchXmm(inst.Args[0])
	xmmB := c.ra.useXmm(inst.Args[1])
	c.asm.CompileRegisterToRegister(op, xmmB, xmmA)
	c.ra.defineValue(inst, xmmA)
}

// emitAVXVectorOp lowers a two-operand op through its three-operand
// VEX/EVEX form: a = op(a, b).
func (c *compiler) emitAVXVectorOp(inst *ir.Inst, op asm.Instruction) {
	xmmA := c.ra.useScratchXmm(inst.Args[0])
	xmmB := c.ra.useXmm(inst.Args[1])
	c.asm.CompileTwoRegistersToRegister(op, xmmB, xmmA, xmmA)
	c.ra.defineValue(inst, xmmA)
}

// emitShiftByImmediate lowers a lane shift by a statically known amount.
func (c *compiler) emitShiftByImmediate(inst *ir.Inst, op asm.Instruction) {
	result := c.ra.useScratchXmm(inst.Args[0])
	shiftAmount := inst.Args[1].ImmediateU8()
	c.asm.CompileConstToRegister(op, int64(shiftAmount), result)
	c.ra.defineValue(inst, result)
}

// emitVectorShuffle lowers PSHUFD-shaped ops: result = op(operand, imm8).
func (c *compiler) emitVectorShuffle(inst *ir.Inst, op asm.Instruction) {
	operand := c.ra.useXmm(inst.Args[0])
	result := c.ra.scratchXmm()
	mask := inst.Args[1].ImmediateU8()
	c.asm.CompileRegisterToRegisterWithArg(op, operand, result, mask)
	c.ra.defineValue(inst, result)
}

// emitSetQCFromMovMask sets fpsr_qc if any of the lanes selected by
// testMask is set in maskXmm's byte mask.
func (c *compiler) emitSetQCFromMovMask(maskXmm asm.Register, testMask uint32) {
	bit := c.ra.scratchGpr()
	c.asm.CompileRegisterToRegister(amd64.PMOVMSKB, maskXmm, bit)
	c.asm.CompileConstToRegister(amd64.TESTL, int64(testMask), bit)
	c.asm.CompileNoneToRegister(amd64.SETNE, bit)
	c.asm.CompileRegisterToMemory(amd64.ORB, bit, reservedRegisterForState, c.layout.FpsrQCOffset)
}

func (c *compiler) compileLoadVector(inst *ir.Inst) {
	offset := int64(inst.Args[0].Imm)
	reg := c.ra.scratchXmm()
	c.asm.CompileMemoryToRegister(amd64.MOVDQA, reservedRegisterForState, c.layout.VecOffset+offset, reg)
	c.ra.defineValue(inst, reg)
}

func (c *compiler) compileStoreVector(inst *ir.Inst) {
	offset := int64(inst.Args[0].Imm)
	reg := c.ra.useXmm(inst.Args[1])
	c.asm.CompileRegisterToMemory(amd64.MOVDQA, reg, reservedRegisterForState, c.layout.VecOffset+offset)
}

func (c *compiler) compileZeroVector(inst *ir.Inst) {
	reg := c.ra.scratchXmm()
	c.asm.CompileRegisterToRegister(amd64.PXOR, reg, reg)
	c.ra.defineValue(inst, reg)
}

func (c *compiler) compileVectorZeroUpper(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	c.asm.CompileRegisterToRegister(amd64.MOVQ, a, a) // zeroes the upper 64 bits
	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorNot(inst *ir.Inst) {
	xmmA := c.ra.useScratchXmm(inst.Args[0])
	xmmB := c.ra.scratchXmm()
	c.asm.CompileRegisterToRegister(amd64.PCMPEQW, xmmB, xmmB)
	c.asm.CompileRegisterToRegister(amd64.PXOR, xmmB, xmmA)
	c.ra.defineValue(inst, xmmA)
}
