//go:build amd64
// +build amd64

package jit

import (
	"github.com/miragevm/mirage/internal/asm"
	"github.com/miragevm/mirage/internal/asm/amd64"
	"github.com/miragevm/mirage/internal/platform"
	"github.com/miragevm/mirage/ir"
)

// signBitConst returns the per-lane INT_MIN bit pattern for esize.
func signBitConst(esize uint) (lo, hi uint64) {
	switch esize {
	case 8:
		return 0x8080808080808080, 0x8080808080808080
	case 16:
		return 0x8000800080008000, 0x8000800080008000
	case 32:
		return 0x8000000080000000, 0x8000000080000000
	case 64:
		return 0x8000000000000000, 0x8000000000000000
	}
	panic("bug in compiler: invalid element size for sign mask")
}

// movMaskTestBits selects one pmovmskb bit per lane of width esize.
func movMaskTestBits(esize uint) uint32 {
	switch esize {
	case 8:
		return 0b1111_1111_1111_1111
	case 16:
		return 0b1010_1010_1010_1010
	case 32:
		return 0b1000_1000_1000_1000
	case 64:
		return 0b10000000_10000000
	}
	panic("bug in compiler: invalid element size for test mask")
}

func vectorEqualityInstruction(esize uint) asm.Instruction {
	switch esize {
	case 8:
		return amd64.PCMPEQB
	case 16:
		return amd64.PCMPEQW
	case 32:
		return amd64.PCMPEQD
	case 64:
		return amd64.PCMPEQQ
	}
	panic("bug in compiler: invalid element size for equality")
}

func (c *compiler) compileVectorSignedSaturatedAbs(inst *ir.Inst, esize uint) {
	data := c.ra.useScratchXmm(inst.Args[0])
	dataTest := c.ra.scratchXmm()
	sign := c.ra.scratchXmm()
	lo, hi := signBitConst(esize)
	mask := c.asm.MConst(lo, hi)
	eq := vectorEqualityInstruction(esize)

	// Keep a copy of the initial data for deciding the Q flag.
	c.asm.CompileRegisterToRegister(amd64.MOVDQA, data, dataTest)

	c.emitVectorAbs(esize, data)

	// Clamp INT_MIN to INT_MAX: lanes still equal to the sign bit after
	// abs get all their lower bits flipped.
	c.asm.CompileStaticConstToRegister(amd64.MOVDQA, mask, sign)
	c.asm.CompileRegisterToRegister(eq, data, sign)
	c.asm.CompileRegisterToRegister(amd64.PXOR, sign, data)

	// Q is set if any input lane was INT_MIN.
	c.asm.CompileStaticConstToRegister(amd64.MOVDQA, mask, sign)
	c.asm.CompileRegisterToRegister(eq, sign, dataTest)
	c.emitSetQCFromMovMask(dataTest, movMaskTestBits(esize))

	c.ra.defineValue(inst, data)
}

func (c *compiler) compileVectorSignedSaturatedAbs64(inst *ir.Inst) {
	if c.supports(platform.SSE41) {
		c.compileVectorSignedSaturatedAbs(inst, 64)
		return
	}
	c.emitOneArgumentFallbackWithSaturation(inst, fallbackSignedSaturatedAbs64)
}

func (c *compiler) compileVectorSignedSaturatedNeg(inst *ir.Inst, esize uint) {
	data := c.ra.useXmm(inst.Args[0])
	zero := c.ra.scratchXmm()
	tmp := c.ra.scratchXmm()
	lo, hi := signBitConst(esize)

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, data, tmp)
	c.asm.CompileStaticConstToRegister(vectorEqualityInstruction(esize), c.asm.MConst(lo, hi), tmp)

	// Negate; the saturating psubs handles the INT_MIN lanes for 8/16,
	// the xor against the mask fixes them up for 32/64.
	c.asm.CompileRegisterToRegister(amd64.PXOR, zero, zero)
	switch esize {
	case 8:
		c.asm.CompileRegisterToRegister(amd64.PSUBSB, data, zero)
	case 16:
		c.asm.CompileRegisterToRegister(amd64.PSUBSW, data, zero)
	case 32:
		c.asm.CompileRegisterToRegister(amd64.PSUBD, data, zero)
		c.asm.CompileRegisterToRegister(amd64.PXOR, tmp, zero)
	case 64:
		c.asm.CompileRegisterToRegister(amd64.PSUBQ, data, zero)
		c.asm.CompileRegisterToRegister(amd64.PXOR, tmp, zero)
	default:
		panic("bug in compiler: invalid element size for saturated negate")
	}

	// Q is set if any lane matched INT_MIN before saturation.
	c.emitSetQCFromMovMask(tmp, movMaskTestBits(esize))

	c.ra.defineValue(inst, zero)
}

func (c *compiler) compileVectorSignedSaturatedNeg64(inst *ir.Inst) {
	if c.supports(platform.SSE41) {
		c.compileVectorSignedSaturatedNeg(inst, 64)
		return
	}
	c.emitOneArgumentFallbackWithSaturation(inst, fallbackSignedSaturatedNeg64)
}

// Q15 fixed-point doubling multiply, high half: saturates only for
// 0x8000 * 0x8000.
func (c *compiler) compileVectorSignedSaturatedDoublingMultiplyReturnHigh16(inst *ir.Inst) {
	x := c.ra.useScratchXmm(inst.Args[0])
	y := c.ra.useScratchXmm(inst.Args[1])
	tmp := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, x, tmp)
	c.asm.CompileRegisterToRegister(amd64.PMULHW, y, tmp)
	c.asm.CompileRegisterToRegister(amd64.PADDW, tmp, tmp)
	c.asm.CompileRegisterToRegister(amd64.PMULLW, x, y)
	c.asm.CompileConstToRegister(amd64.PSRLW, 15, y)
	c.asm.CompileRegisterToRegister(amd64.POR, tmp, y)

	c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(0x8000800080008000, 0x8000800080008000), x)
	c.asm.CompileRegisterToRegister(amd64.PCMPEQW, y, x)
	c.asm.CompileRegisterToRegister(amd64.MOVDQA, x, tmp)
	c.asm.CompileRegisterToRegister(amd64.PXOR, y, x)

	// Q is set if any product was 0x8000 before saturating.
	c.emitSetQCFromMovMask(tmp, movMaskTestBits(16))

	c.ra.defineValue(inst, x)
}

func (c *compiler) compileVectorSignedSaturatedDoublingMultiplyReturnHigh32(inst *ir.Inst) {
	x := c.ra.useScratchXmm(inst.Args[0])
	y := c.ra.useScratchXmm(inst.Args[1])
	tmp1 := c.ra.scratchXmm()
	tmp2 := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, x, tmp1)
	c.asm.CompileRegisterToRegister(amd64.PUNPCKLDQ, y, tmp1)

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, y, tmp2)
	c.asm.CompileRegisterToRegister(amd64.PUNPCKLDQ, x, tmp2)

	c.asm.CompileRegisterToRegister(amd64.PMULDQ, tmp1, tmp2)
	c.asm.CompileRegisterToRegister(amd64.PADDQ, tmp2, tmp2)

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, x, tmp1)
	c.asm.CompileRegisterToRegister(amd64.PUNPCKHDQ, y, tmp1)
	c.asm.CompileRegisterToRegister(amd64.PUNPCKHDQ, x, y)

	c.asm.CompileRegisterToRegister(amd64.PMULDQ, tmp1, y)
	c.asm.CompileRegisterToRegister(amd64.PADDQ, y, y)

	c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFD, tmp2, tmp1, 0b11101101)
	c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFD, y, x, 0b11101101)
	c.asm.CompileRegisterToRegister(amd64.PUNPCKLQDQ, x, tmp1)

	c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(0x8000000080000000, 0x8000000080000000), x)
	c.asm.CompileRegisterToRegister(amd64.PCMPEQD, tmp1, x)
	c.asm.CompileRegisterToRegister(amd64.MOVDQA, x, tmp2)
	c.asm.CompileRegisterToRegister(amd64.PXOR, tmp1, x)

	c.emitSetQCFromMovMask(tmp2, movMaskTestBits(32))

	c.ra.defineValue(inst, x)
}

// emitSetQCFromReconstruction sets Q if the widened reconstruction differs
// from the source anywhere.
func (c *compiler) emitSetQCFromReconstruction(reconstructed, src asm.Register) {
	bit := c.ra.scratchGpr()
	if c.supports(platform.SSE41) {
		c.asm.CompileRegisterToRegister(amd64.PXOR, src, reconstructed)
		c.asm.CompileRegisterToRegister(amd64.PTEST, reconstructed, reconstructed)
	} else {
		c.asm.CompileRegisterToRegister(amd64.PCMPEQD, src, reconstructed)
		c.asm.CompileRegisterToRegister(amd64.MOVMSKPS, reconstructed, bit)
		c.asm.CompileRegisterToConst(amd64.CMPL, bit, 0xF)
	}
	c.asm.CompileNoneToRegister(amd64.SETNE, bit)
	c.asm.CompileRegisterToMemory(amd64.ORB, bit, reservedRegisterForState, c.layout.FpsrQCOffset)
}

func (c *compiler) compileVectorSignedSaturatedNarrowToSigned(inst *ir.Inst, originalEsize uint) {
	src := c.ra.useXmm(inst.Args[0])
	dest := c.ra.scratchXmm()
	reconstructed := c.ra.scratchXmm()
	sign := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, src, dest)

	switch originalEsize {
	case 16:
		c.asm.CompileRegisterToRegister(amd64.PACKSSWB, dest, dest)
		c.asm.CompileRegisterToRegister(amd64.MOVDQA, src, sign)
		c.asm.CompileConstToRegister(amd64.PSRAW, 15, sign)
		c.asm.CompileRegisterToRegister(amd64.PACKSSWB, sign, sign)
		c.asm.CompileRegisterToRegister(amd64.MOVDQA, dest, reconstructed)
		c.asm.CompileRegisterToRegister(amd64.PUNPCKLBW, sign, reconstructed)
	case 32:
		c.asm.CompileRegisterToRegister(amd64.PACKSSDW, dest, dest)
		c.asm.CompileRegisterToRegister(amd64.MOVDQA, dest, reconstructed)
		c.asm.CompileRegisterToRegister(amd64.MOVDQA, dest, sign)
		c.asm.CompileConstToRegister(amd64.PSRAW, 15, sign)
		c.asm.CompileRegisterToRegister(amd64.PUNPCKLWD, sign, reconstructed)
	default:
		panic("bug in compiler: invalid element size for saturated narrow")
	}

	c.emitSetQCFromReconstruction(reconstructed, src)

	c.ra.defineValue(inst, dest)
}

func (c *compiler) compileVectorSignedSaturatedNarrowToUnsigned(inst *ir.Inst, originalEsize uint) {
	src := c.ra.useXmm(inst.Args[0])
	dest := c.ra.scratchXmm()
	reconstructed := c.ra.scratchXmm()
	zero := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, src, dest)
	c.asm.CompileRegisterToRegister(amd64.PXOR, zero, zero)

	switch originalEsize {
	case 16:
		c.asm.CompileRegisterToRegister(amd64.PACKUSWB, dest, dest)
		c.asm.CompileRegisterToRegister(amd64.MOVDQA, dest, reconstructed)
		c.asm.CompileRegisterToRegister(amd64.PUNPCKLBW, zero, reconstructed)
	case 32:
		if !c.supports(platform.SSE41) {
			panic("bug in compiler: packusdw requires SSE4.1")
		}
		c.asm.CompileRegisterToRegister(amd64.PACKUSDW, dest, dest)
		c.asm.CompileRegisterToRegister(amd64.MOVDQA, dest, reconstructed)
		c.asm.CompileRegisterToRegister(amd64.PUNPCKLWD, zero, reconstructed)
	default:
		panic("bug in compiler: invalid element size for saturated narrow")
	}

	c.emitSetQCFromReconstruction(reconstructed, src)

	c.ra.defineValue(inst, dest)
}

func (c *compiler) compileVectorSignedSaturatedNarrowToUnsigned32(inst *ir.Inst) {
	if c.supports(platform.SSE41) {
		c.compileVectorSignedSaturatedNarrowToUnsigned(inst, 32)
		return
	}
	c.emitOneArgumentFallbackWithSaturation(inst, fallbackSignedSaturatedNarrowToUnsigned32)
}

func (c *compiler) compileVectorPopulationCount(inst *ir.Inst) {
	if c.supports(platform.AVX512BITALG) {
		data := c.ra.useScratchXmm(inst.Args[0])
		c.asm.CompileRegisterToRegister(amd64.VPOPCNTB, data, data)
		c.ra.defineValue(inst, data)
		return
	}

	if c.supports(platform.SSSE3) {
		// Nibble population counts via a pshufb lookup table.
		lowA := c.ra.useScratchXmm(inst.Args[0])
		highA := c.ra.scratchXmm()
		tmp1 := c.ra.scratchXmm()
		tmp2 := c.ra.scratchXmm()

		c.asm.CompileRegisterToRegister(amd64.MOVDQA, lowA, highA)
		c.asm.CompileConstToRegister(amd64.PSRLW, 4, highA)
		c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(0x0F0F0F0F0F0F0F0F, 0x0F0F0F0F0F0F0F0F), tmp1)
		c.asm.CompileRegisterToRegister(amd64.PAND, tmp1, highA) // high nibbles
		c.asm.CompileRegisterToRegister(amd64.PAND, tmp1, lowA)  // low nibbles

		c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(0x0302020102010100, 0x0403030203020201), tmp1)
		c.asm.CompileRegisterToRegister(amd64.MOVDQA, tmp1, tmp2)
		c.asm.CompileRegisterToRegister(amd64.PSHUFB, lowA, tmp1)
		c.asm.CompileRegisterToRegister(amd64.PSHUFB, highA, tmp2)

		c.asm.CompileRegisterToRegister(amd64.PADDB, tmp2, tmp1)

		c.ra.defineValue(inst, tmp1)
		return
	}

	c.emitOneArgumentFallback(inst, fallbackPopulationCount)
}

func (c *compiler) compileVectorReverseBits(inst *ir.Inst) {
	data := c.ra.useScratchXmm(inst.Args[0])
	highNibble := c.ra.scratchXmm()

	c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(0xF0F0F0F0F0F0F0F0, 0xF0F0F0F0F0F0F0F0), highNibble)
	c.asm.CompileRegisterToRegister(amd64.PAND, data, highNibble)
	c.asm.CompileRegisterToRegister(amd64.PXOR, highNibble, data)
	c.asm.CompileConstToRegister(amd64.PSRLD, 4, highNibble)

	if c.supports(platform.SSSE3) {
		// Nibble-reversal lookup tables, high and low.
		highReversed := c.ra.scratchXmm()
		c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(0xE060A020C0408000, 0xF070B030D0509010), highReversed)
		c.asm.CompileRegisterToRegister(amd64.PSHUFB, data, highReversed)

		c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(0x0E060A020C040800, 0x0F070B030D050901), data)
		c.asm.CompileRegisterToRegister(amd64.PSHUFB, highNibble, data)
		c.asm.CompileRegisterToRegister(amd64.POR, highReversed, data)
	} else {
		// Knuth bit swaps: 4-bit groups done above, then 2-bit, then 1-bit.
		c.asm.CompileConstToRegister(amd64.PSLLD, 4, data)
		c.asm.CompileRegisterToRegister(amd64.POR, highNibble, data)

		c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(0xCCCCCCCCCCCCCCCC, 0xCCCCCCCCCCCCCCCC), highNibble)
		c.asm.CompileRegisterToRegister(amd64.PAND, data, highNibble)
		c.asm.CompileRegisterToRegister(amd64.PXOR, highNibble, data)
		c.asm.CompileConstToRegister(amd64.PSRLD, 2, highNibble)
		c.asm.CompileConstToRegister(amd64.PSLLD, 2, data)
		c.asm.CompileRegisterToRegister(amd64.POR, highNibble, data)

		c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(0xAAAAAAAAAAAAAAAA, 0xAAAAAAAAAAAAAAAA), highNibble)
		c.asm.CompileRegisterToRegister(amd64.PAND, data, highNibble)
		c.asm.CompileRegisterToRegister(amd64.PXOR, highNibble, data)
		c.asm.CompileConstToRegister(amd64.PSRLD, 1, highNibble)
		c.asm.CompileRegisterToRegister(amd64.PADDD, data, data)
		c.asm.CompileRegisterToRegister(amd64.POR, highNibble, data)
	}

	c.ra.defineValue(inst, data)
}

// compileVectorTable emits nothing: the instruction exists to hold a
// refcount on its operands so VectorTableLookup can consume them.
func (c *compiler) compileVectorTable(inst *ir.Inst) {
	if inst.UseCount() != 1 {
		panic("bug in compiler: table cannot be used multiple times")
	}
}

func (c *compiler) compileVectorTableLookup(inst *ir.Inst) {
	tableArg := inst.Args[1]
	if tableArg.IsImmediate() || tableArg.Inst.Opcode != ir.OpVectorTable {
		panic("bug in compiler: table lookup requires a VectorTable argument")
	}
	table := tableArg.Inst
	tableSize := len(table.Args)
	if tableSize < 1 || tableSize > 4 {
		panic("bug in compiler: table must hold one to four vectors")
	}

	defaultsArg := inst.Args[0]
	isDefaultsZero := !defaultsArg.IsImmediate() && defaultsArg.Inst.Opcode == ir.OpZeroVector

	biasConst := func() *asm.StaticConst {
		return c.asm.MConst(0x7070707070707070, 0x7070707070707070)
	}

	if c.supports(platform.SSSE3) && isDefaultsZero && tableSize == 1 {
		// Saturate the indices so everything >= 16 selects zero.
		indices := c.ra.useScratchXmm(inst.Args[2])
		xmmTable0 := c.ra.useScratchXmm(table.Args[0])

		c.asm.CompileStaticConstToRegister(amd64.PADDUSB, biasConst(), indices)
		c.asm.CompileRegisterToRegister(amd64.PSHUFB, indices, xmmTable0)

		c.ra.defineValue(inst, xmmTable0)
		return
	}

	if c.supports(platform.SSE41) && tableSize == 1 {
		indices := c.ra.useXmm(inst.Args[2])
		defaults := c.ra.useXmm(defaultsArg)
		xmmTable0 := c.ra.useScratchXmm(table.Args[0])

		if c.supports(platform.AVX) {
			c.asm.CompileStaticConstAndRegisterToRegister(amd64.VPADDUSB, biasConst(), indices, amd64.RegX0)
		} else {
			c.asm.CompileRegisterToRegister(amd64.MOVAPS, indices, amd64.RegX0)
			c.asm.CompileStaticConstToRegister(amd64.PADDUSB, biasConst(), amd64.RegX0)
		}
		c.asm.CompileRegisterToRegister(amd64.PSHUFB, indices, xmmTable0)
		c.asm.CompileRegisterToRegister(amd64.PBLENDVB, defaults, xmmTable0)

		c.ra.defineValue(inst, xmmTable0)
		return
	}

	if c.supports(platform.SSE41) && isDefaultsZero && tableSize == 2 {
		indices := c.ra.useScratchXmm(inst.Args[2])
		xmmTable0 := c.ra.useScratchXmm(table.Args[0])
		xmmTable1 := c.ra.useScratchXmm(table.Args[1])

		if c.supports(platform.AVX) {
			c.asm.CompileStaticConstAndRegisterToRegister(amd64.VPADDUSB, biasConst(), indices, amd64.RegX0)
		} else {
			c.asm.CompileRegisterToRegister(amd64.MOVAPS, indices, amd64.RegX0)
			c.asm.CompileStaticConstToRegister(amd64.PADDUSB, biasConst(), amd64.RegX0)
		}
		c.asm.CompileStaticConstToRegister(amd64.PADDUSB, c.asm.MConst(0x6060606060606060, 0x6060606060606060), indices)
		c.asm.CompileRegisterToRegister(amd64.PSHUFB, amd64.RegX0, xmmTable0)
		c.asm.CompileRegisterToRegister(amd64.PSHUFB, indices, xmmTable1)
		c.asm.CompileRegisterToRegister(amd64.PBLENDVB, xmmTable1, xmmTable0)

		c.ra.defineValue(inst, xmmTable0)
		return
	}

	if c.supports(platform.SSE41) {
		indices := c.ra.useXmm(inst.Args[2])
		result := c.ra.useScratchXmm(defaultsArg)
		masked := c.ra.scratchXmm()

		c.asm.CompileStaticConstToRegister(amd64.MOVAPS, c.asm.MConst(0xF0F0F0F0F0F0F0F0, 0xF0F0F0F0F0F0F0F0), masked)
		c.asm.CompileRegisterToRegister(amd64.PAND, indices, masked)

		for i := 0; i < tableSize; i++ {
			xmmTable := c.ra.useScratchXmm(table.Args[i])
			tableIndex := replicateByte(uint8(i * 16))

			if tableIndex == 0 {
				c.asm.CompileRegisterToRegister(amd64.PXOR, amd64.RegX0, amd64.RegX0)
				c.asm.CompileRegisterToRegister(amd64.PCMPEQB, masked, amd64.RegX0)
			} else if c.supports(platform.AVX) {
				c.asm.CompileStaticConstAndRegisterToRegister(amd64.VPCMPEQB, c.asm.MConst(tableIndex, tableIndex), masked, amd64.RegX0)
			} else {
				c.asm.CompileStaticConstToRegister(amd64.MOVAPS, c.asm.MConst(tableIndex, tableIndex), amd64.RegX0)
				c.asm.CompileRegisterToRegister(amd64.PCMPEQB, masked, amd64.RegX0)
			}
			c.asm.CompileRegisterToRegister(amd64.PSHUFB, indices, xmmTable)
			c.asm.CompileRegisterToRegister(amd64.PBLENDVB, xmmTable, result)

			c.ra.release(xmmTable)
		}

		c.ra.defineValue(inst, result)
		return
	}

	// Spill everything to stack buffers and run the scalar helper:
	// fn(table, result_preloaded_with_defaults, indices, table_size).
	// RSP carries no 16-byte alignment guarantee here, so the buffers are
	// accessed with unaligned moves.
	stackSpace := int64(tableSize+2) * 16
	c.asm.CompileConstToRegister(amd64.SUBQ, stackSpace+abiShadowSpace, amd64.RegSP)
	for i := 0; i < tableSize; i++ {
		tableValue := c.ra.useXmm(table.Args[i])
		c.asm.CompileRegisterToMemory(amd64.MOVDQU, tableValue, amd64.RegSP, abiShadowSpace+int64(i)*16)
		c.ra.release(tableValue)
	}
	defaults := c.ra.useXmm(defaultsArg)
	indices := c.ra.useXmm(inst.Args[2])
	result := c.ra.scratchXmm()
	c.ra.endOfAllocScope()
	c.ra.hostCall()

	c.asm.CompileMemoryToRegister(amd64.LEAQ, amd64.RegSP, abiShadowSpace, abiParamRegisters[0])
	c.asm.CompileMemoryToRegister(amd64.LEAQ, amd64.RegSP, abiShadowSpace+int64(tableSize)*16, abiParamRegisters[1])
	c.asm.CompileMemoryToRegister(amd64.LEAQ, amd64.RegSP, abiShadowSpace+int64(tableSize+1)*16, abiParamRegisters[2])
	c.asm.CompileConstToRegister(amd64.MOVL, int64(tableSize), abiParamRegisters[3])
	c.asm.CompileRegisterToMemory(amd64.MOVDQU, defaults, amd64.RegSP, abiShadowSpace+int64(tableSize)*16)
	c.asm.CompileRegisterToMemory(amd64.MOVDQU, indices, amd64.RegSP, abiShadowSpace+int64(tableSize+1)*16)

	// The internal ABI designates X15 as the fixed zero register.
	c.asm.CompileRegisterToRegister(amd64.PXOR, amd64.RegX15, amd64.RegX15)
	c.asm.CompileCallFunctionPointer(funcAddr(scalarTableLookup), abiCallScratchRegister)

	c.asm.CompileMemoryToRegister(amd64.MOVDQU, amd64.RegSP, abiShadowSpace+int64(tableSize)*16, result)
	c.asm.CompileConstToRegister(amd64.ADDQ, stackSpace+abiShadowSpace, amd64.RegSP)

	c.ra.defineValue(inst, result)
}
