//go:build amd64
// +build amd64

package jit

import (
	"github.com/miragevm/mirage/internal/asm"
	"github.com/miragevm/mirage/internal/asm/amd64"
	"github.com/miragevm/mirage/internal/platform"
	"github.com/miragevm/mirage/ir"
)

func (c *compiler) compileVectorEqual64(inst *ir.Inst) {
	if c.supports(platform.SSE41) {
		c.emitVectorOp(inst, amd64.PCMPEQQ)
		return
	}

	// Both dword halves must match: pcmpeqd, then AND with the mask of the
	// swapped halves.
	xmmA := c.ra.useScratchXmm(inst.Args[0])
	xmmB := c.ra.useXmm(inst.Args[1])
	tmp := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.PCMPEQD, xmmB, xmmA)
	c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFD, xmmA, tmp, 0b10110001)
	c.asm.CompileRegisterToRegister(amd64.PAND, tmp, xmmA)

	c.ra.defineValue(inst, xmmA)
}

func (c *compiler) compileVectorEqual128(inst *ir.Inst) {
	xmmA := c.ra.useScratchXmm(inst.Args[0])
	xmmB := c.ra.useXmm(inst.Args[1])
	tmp := c.ra.scratchXmm()

	if c.supports(platform.SSE41) {
		c.asm.CompileRegisterToRegister(amd64.PCMPEQQ, xmmB, xmmA)
		c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFD, xmmA, tmp, 0b01001110)
		c.asm.CompileRegisterToRegister(amd64.PAND, tmp, xmmA)
	} else {
		c.asm.CompileRegisterToRegister(amd64.PCMPEQD, xmmB, xmmA)
		c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFD, xmmA, tmp, 0b10110001)
		c.asm.CompileRegisterToRegister(amd64.PAND, tmp, xmmA)
		c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFD, xmmA, tmp, 0b01001110)
		c.asm.CompileRegisterToRegister(amd64.PAND, tmp, xmmA)
	}

	c.ra.defineValue(inst, xmmA)
}

func (c *compiler) compileVectorGreaterS64(inst *ir.Inst) {
	if c.supports(platform.SSE42) {
		c.emitVectorOp(inst, amd64.PCMPGTQ)
		return
	}
	c.emitTwoArgumentFallback(inst, fallbackGreaterS64)
}

// emitVectorAbs negates in place; data must be writable.
func (c *compiler) emitVectorAbs(esize uint, data asm.Register) {
	switch esize {
	case 8:
		if c.supports(platform.SSSE3) {
			c.asm.CompileRegisterToRegister(amd64.PABSB, data, data)
		} else {
			temp := c.ra.scratchXmm()
			c.asm.CompileRegisterToRegister(amd64.PXOR, temp, temp)
			c.asm.CompileRegisterToRegister(amd64.PSUBB, data, temp)
			c.asm.CompileRegisterToRegister(amd64.PMINUB, temp, data)
		}
	case 16:
		if c.supports(platform.SSSE3) {
			c.asm.CompileRegisterToRegister(amd64.PABSW, data, data)
		} else {
			temp := c.ra.scratchXmm()
			c.asm.CompileRegisterToRegister(amd64.PXOR, temp, temp)
			c.asm.CompileRegisterToRegister(amd64.PSUBW, data, temp)
			c.asm.CompileRegisterToRegister(amd64.PMAXSW, temp, data)
		}
	case 32:
		if c.supports(platform.SSSE3) {
			c.asm.CompileRegisterToRegister(amd64.PABSD, data, data)
		} else {
			temp := c.ra.scratchXmm()
			c.asm.CompileRegisterToRegister(amd64.MOVDQA, data, temp)
			c.asm.CompileConstToRegister(amd64.PSRAD, 31, temp)
			c.asm.CompileRegisterToRegister(amd64.PXOR, temp, data)
			c.asm.CompileRegisterToRegister(amd64.PSUBD, temp, data)
		}
	case 64:
		if c.supports(platform.AVX512VL) {
			c.asm.CompileRegisterToRegister(amd64.VPABSQ, data, data)
		} else {
			temp := c.ra.scratchXmm()
			c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFD, data, temp, 0b11110101)
			c.asm.CompileConstToRegister(amd64.PSRAD, 31, temp)
			c.asm.CompileRegisterToRegister(amd64.PXOR, temp, data)
			c.asm.CompileRegisterToRegister(amd64.PSUBQ, temp, data)
		}
	default:
		panic("bug in compiler: invalid element size for abs")
	}
}

func (c *compiler) compileVectorAbs(inst *ir.Inst, esize uint) {
	data := c.ra.useScratchXmm(inst.Args[0])
	c.emitVectorAbs(esize, data)
	c.ra.defineValue(inst, data)
}

// emitArithmeticShiftRightByte splits into sign-extended words, shifts, and
// repacks; there is no psrab.
func (c *compiler) emitArithmeticShiftRightByte(result asm.Register, shiftAmount uint8) {
	tmp := c.ra.scratchXmm()
	c.asm.CompileRegisterToRegister(amd64.PUNPCKHBW, result, tmp)
	c.asm.CompileRegisterToRegister(amd64.PUNPCKLBW, result, result)
	c.asm.CompileConstToRegister(amd64.PSRAW, int64(8+shiftAmount), tmp)
	c.asm.CompileConstToRegister(amd64.PSRAW, int64(8+shiftAmount), result)
	c.asm.CompileRegisterToRegister(amd64.PACKSSWB, tmp, result)
}

func (c *compiler) compileVectorArithmeticShiftRight8(inst *ir.Inst) {
	result := c.ra.useScratchXmm(inst.Args[0])
	shiftAmount := inst.Args[1].ImmediateU8()
	c.emitArithmeticShiftRightByte(result, shiftAmount)
	c.ra.defineValue(inst, result)
}

func (c *compiler) compileVectorArithmeticShiftRight64(inst *ir.Inst) {
	result := c.ra.useScratchXmm(inst.Args[0])
	shiftAmount := inst.Args[1].ImmediateU8()
	if shiftAmount > 63 {
		shiftAmount = 63
	}

	if c.supports(platform.AVX512VL) {
		c.asm.CompileRegisterToRegisterWithArg(amd64.VPSRAQ, result, result, shiftAmount)
		c.ra.defineValue(inst, result)
		return
	}

	// Shift logically, then subtract the masked sign bits from zero to
	// smear them across the vacated positions.
	tmp1 := c.ra.scratchXmm()
	tmp2 := c.ra.scratchXmm()
	signBit := uint64(0x8000000000000000) >> shiftAmount

	c.asm.CompileRegisterToRegister(amd64.PXOR, tmp2, tmp2)
	c.asm.CompileConstToRegister(amd64.PSRLQ, int64(shiftAmount), result)
	c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(signBit, signBit), tmp1)
	c.asm.CompileRegisterToRegister(amd64.PAND, result, tmp1)
	c.asm.CompileRegisterToRegister(amd64.PSUBQ, tmp1, tmp2)
	c.asm.CompileRegisterToRegister(amd64.POR, tmp2, result)

	c.ra.defineValue(inst, result)
}

// replicateByte broadcasts an 8-bit pattern across a 64-bit literal.
func replicateByte(b uint8) uint64 {
	return uint64(b) * 0x0101010101010101
}

func (c *compiler) compileVectorLogicalShiftLeft8(inst *ir.Inst) {
	result := c.ra.useScratchXmm(inst.Args[0])
	shiftAmount := inst.Args[1].ImmediateU8()

	if shiftAmount == 1 {
		c.asm.CompileRegisterToRegister(amd64.PADDB, result, result)
	} else if shiftAmount > 0 {
		mask := replicateByte(uint8(0xFF << shiftAmount))
		c.asm.CompileConstToRegister(amd64.PSLLW, int64(shiftAmount), result)
		c.asm.CompileStaticConstToRegister(amd64.PAND, c.asm.MConst(mask, mask), result)
	}

	c.ra.defineValue(inst, result)
}

func (c *compiler) compileVectorLogicalShiftRight8(inst *ir.Inst) {
	result := c.ra.useScratchXmm(inst.Args[0])
	shiftAmount := inst.Args[1].ImmediateU8()

	if shiftAmount > 0 {
		mask := replicateByte(0xFE >> shiftAmount)
		c.asm.CompileConstToRegister(amd64.PSRLW, int64(shiftAmount), result)
		c.asm.CompileStaticConstToRegister(amd64.PAND, c.asm.MConst(mask, mask), result)
	}

	c.ra.defineValue(inst, result)
}

// Halving adds: (a+b)>>1 without intermediate overflow, via
// (a AND b) + ((a XOR b) >> 1).

func (c *compiler) compileVectorHalvingAddSigned(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	b := c.ra.useScratchXmm(inst.Args[1])
	tmp := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, b, tmp)
	c.asm.CompileRegisterToRegister(amd64.PAND, a, tmp)
	c.asm.CompileRegisterToRegister(amd64.PXOR, b, a)

	switch inst.Opcode {
	case ir.OpVectorHalvingAddS8:
		c.emitArithmeticShiftRightByte(a, 1)
		c.asm.CompileRegisterToRegister(amd64.PADDB, tmp, a)
	case ir.OpVectorHalvingAddS16:
		c.asm.CompileConstToRegister(amd64.PSRAW, 1, a)
		c.asm.CompileRegisterToRegister(amd64.PADDW, tmp, a)
	case ir.OpVectorHalvingAddS32:
		c.asm.CompileConstToRegister(amd64.PSRAD, 1, a)
		c.asm.CompileRegisterToRegister(amd64.PADDD, tmp, a)
	}

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorHalvingAddUnsigned(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	b := c.ra.useScratchXmm(inst.Args[1])
	tmp := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, b, tmp)

	switch inst.Opcode {
	case ir.OpVectorHalvingAddU8:
		// pavgb rounds up; subtract the carry bit (a XOR b) AND 1.
		c.asm.CompileRegisterToRegister(amd64.PAVGB, a, tmp)
		c.asm.CompileRegisterToRegister(amd64.PXOR, b, a)
		lsb := replicateByte(0x01)
		c.asm.CompileStaticConstToRegister(amd64.PAND, c.asm.MConst(lsb, lsb), a)
		c.asm.CompileRegisterToRegister(amd64.PSUBB, a, tmp)
	case ir.OpVectorHalvingAddU16:
		c.asm.CompileRegisterToRegister(amd64.PAVGW, a, tmp)
		c.asm.CompileRegisterToRegister(amd64.PXOR, b, a)
		c.asm.CompileStaticConstToRegister(amd64.PAND, c.asm.MConst(0x0001000100010001, 0x0001000100010001), a)
		c.asm.CompileRegisterToRegister(amd64.PSUBW, a, tmp)
	case ir.OpVectorHalvingAddU32:
		c.asm.CompileRegisterToRegister(amd64.PAND, a, tmp)
		c.asm.CompileRegisterToRegister(amd64.PXOR, b, a)
		c.asm.CompileConstToRegister(amd64.PSRLD, 1, a)
		c.asm.CompileRegisterToRegister(amd64.PADDD, a, tmp)
	}

	c.ra.defineValue(inst, tmp)
}

func (c *compiler) compileVectorHalvingSubSigned(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	b := c.ra.useScratchXmm(inst.Args[1])

	switch inst.Opcode {
	case ir.OpVectorHalvingSubS8:
		// Bias into unsigned space, then reuse the unsigned path.
		tmp := c.ra.scratchXmm()
		bias := replicateByte(0x80)
		c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(bias, bias), tmp)
		c.asm.CompileRegisterToRegister(amd64.PXOR, tmp, a)
		c.asm.CompileRegisterToRegister(amd64.PXOR, tmp, b)
		c.asm.CompileRegisterToRegister(amd64.PAVGB, a, b)
		c.asm.CompileRegisterToRegister(amd64.PSUBB, b, a)
	case ir.OpVectorHalvingSubS16:
		tmp := c.ra.scratchXmm()
		c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(0x8000800080008000, 0x8000800080008000), tmp)
		c.asm.CompileRegisterToRegister(amd64.PXOR, tmp, a)
		c.asm.CompileRegisterToRegister(amd64.PXOR, tmp, b)
		c.asm.CompileRegisterToRegister(amd64.PAVGW, a, b)
		c.asm.CompileRegisterToRegister(amd64.PSUBW, b, a)
	case ir.OpVectorHalvingSubS32:
		c.asm.CompileRegisterToRegister(amd64.PXOR, b, a)
		c.asm.CompileRegisterToRegister(amd64.PAND, a, b)
		c.asm.CompileConstToRegister(amd64.PSRAD, 1, a)
		c.asm.CompileRegisterToRegister(amd64.PSUBD, b, a)
	}

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorHalvingSubUnsigned(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	b := c.ra.useScratchXmm(inst.Args[1])

	switch inst.Opcode {
	case ir.OpVectorHalvingSubU8:
		c.asm.CompileRegisterToRegister(amd64.PAVGB, a, b)
		c.asm.CompileRegisterToRegister(amd64.PSUBB, b, a)
	case ir.OpVectorHalvingSubU16:
		c.asm.CompileRegisterToRegister(amd64.PAVGW, a, b)
		c.asm.CompileRegisterToRegister(amd64.PSUBW, b, a)
	case ir.OpVectorHalvingSubU32:
		c.asm.CompileRegisterToRegister(amd64.PXOR, b, a)
		c.asm.CompileRegisterToRegister(amd64.PAND, a, b)
		c.asm.CompileConstToRegister(amd64.PSRLD, 1, a)
		c.asm.CompileRegisterToRegister(amd64.PSUBD, b, a)
	}

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorRoundingHalvingAddSigned(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	b := c.ra.useScratchXmm(inst.Args[1])

	switch inst.Opcode {
	case ir.OpVectorRoundingHalvingAddS8:
		// pavg is unsigned; bias both operands by 0x80 around it.
		bias := c.ra.scratchXmm()
		pattern := replicateByte(0x80)
		c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(pattern, pattern), bias)
		c.asm.CompileRegisterToRegister(amd64.PADDB, bias, a)
		c.asm.CompileRegisterToRegister(amd64.PADDB, bias, b)
		c.asm.CompileRegisterToRegister(amd64.PAVGB, b, a)
		c.asm.CompileRegisterToRegister(amd64.PADDB, bias, a)
	case ir.OpVectorRoundingHalvingAddS16:
		bias := c.ra.scratchXmm()
		c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(0x8000800080008000, 0x8000800080008000), bias)
		c.asm.CompileRegisterToRegister(amd64.PADDW, bias, a)
		c.asm.CompileRegisterToRegister(amd64.PADDW, bias, b)
		c.asm.CompileRegisterToRegister(amd64.PAVGW, b, a)
		c.asm.CompileRegisterToRegister(amd64.PADDW, bias, a)
	case ir.OpVectorRoundingHalvingAddS32:
		// (a>>1) + (b>>1) + ((a|b) & 1), all in signed arithmetic.
		tmp1 := c.ra.scratchXmm()
		c.asm.CompileRegisterToRegister(amd64.MOVDQA, a, tmp1)
		c.asm.CompileRegisterToRegister(amd64.POR, b, a)
		c.asm.CompileConstToRegister(amd64.PSRAD, 1, tmp1)
		c.asm.CompileConstToRegister(amd64.PSRAD, 1, b)
		c.asm.CompileConstToRegister(amd64.PSLLD, 31, a)
		c.asm.CompileRegisterToRegister(amd64.PADDD, tmp1, b)
		c.asm.CompileConstToRegister(amd64.PSRLD, 31, a)
		c.asm.CompileRegisterToRegister(amd64.PADDD, b, a)
	}

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorRoundingHalvingAddUnsigned(inst *ir.Inst) {
	switch inst.Opcode {
	case ir.OpVectorRoundingHalvingAddU8:
		c.emitVectorOp(inst, amd64.PAVGB)
	case ir.OpVectorRoundingHalvingAddU16:
		c.emitVectorOp(inst, amd64.PAVGW)
	case ir.OpVectorRoundingHalvingAddU32:
		a := c.ra.useScratchXmm(inst.Args[0])
		b := c.ra.useScratchXmm(inst.Args[1])
		tmp1 := c.ra.scratchXmm()

		c.asm.CompileRegisterToRegister(amd64.MOVDQA, a, tmp1)
		c.asm.CompileRegisterToRegister(amd64.POR, b, a)
		c.asm.CompileConstToRegister(amd64.PSRLD, 1, tmp1)
		c.asm.CompileConstToRegister(amd64.PSRLD, 1, b)
		c.asm.CompileConstToRegister(amd64.PSLLD, 31, a)
		c.asm.CompileRegisterToRegister(amd64.PADDD, tmp1, b)
		c.asm.CompileConstToRegister(amd64.PSRLD, 31, a)
		c.asm.CompileRegisterToRegister(amd64.PADDD, b, a)

		c.ra.defineValue(inst, a)
	}
}

// Min/max. The pre-SSE4.1 patterns are compare-and-blend with pand/pandn.

func (c *compiler) compileVectorMaxS8(inst *ir.Inst) {
	if c.supports(platform.SSE41) {
		c.emitVectorOp(inst, amd64.PMAXSB)
		return
	}

	a := c.ra.useScratchXmm(inst.Args[0])
	b := c.ra.useScratchXmm(inst.Args[1])
	tmpB := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, b, tmpB)
	c.asm.CompileRegisterToRegister(amd64.PCMPGTB, a, tmpB)
	c.asm.CompileRegisterToRegister(amd64.PAND, tmpB, b)
	c.asm.CompileRegisterToRegister(amd64.PANDN, a, tmpB)
	c.asm.CompileRegisterToRegister(amd64.POR, b, tmpB)

	c.ra.defineValue(inst, tmpB)
}

func (c *compiler) compileVectorMaxS32(inst *ir.Inst) {
	if c.supports(platform.SSE41) {
		c.emitVectorOp(inst, amd64.PMAXSD)
		return
	}

	a := c.ra.useScratchXmm(inst.Args[0])
	b := c.ra.useScratchXmm(inst.Args[1])
	tmpB := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, b, tmpB)
	c.asm.CompileRegisterToRegister(amd64.PCMPGTD, a, tmpB)
	c.asm.CompileRegisterToRegister(amd64.PAND, tmpB, b)
	c.asm.CompileRegisterToRegister(amd64.PANDN, a, tmpB)
	c.asm.CompileRegisterToRegister(amd64.POR, b, tmpB)

	c.ra.defineValue(inst, tmpB)
}

func (c *compiler) compileVectorMaxS64(inst *ir.Inst) {
	if c.supports(platform.AVX512VL) {
		c.emitAVXVectorOp(inst, amd64.VPMAXSQ)
		return
	}

	if c.supports(platform.AVX) {
		x := c.ra.useScratchXmm(inst.Args[0])
		y := c.ra.useXmm(inst.Args[1])
		c.asm.CompileTwoRegistersToRegister(amd64.VPCMPGTQ, x, y, amd64.RegX0)
		c.asm.CompileRegisterToRegister(amd64.PBLENDVB, y, x)
		c.ra.defineValue(inst, x)
		return
	}

	c.emitTwoArgumentFallback(inst, fallbackMaxS64)
}

func (c *compiler) compileVectorMaxU16(inst *ir.Inst) {
	if c.supports(platform.SSE41) {
		c.emitVectorOp(inst, amd64.PMAXUW)
		return
	}

	// max(a, b) == (a -sat b) + b.
	a := c.ra.useScratchXmm(inst.Args[0])
	b := c.ra.useXmm(inst.Args[1])
	c.asm.CompileRegisterToRegister(amd64.PSUBUSW, b, a)
	c.asm.CompileRegisterToRegister(amd64.PADDW, b, a)
	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorMaxU32(inst *ir.Inst) {
	if c.supports(platform.SSE41) {
		c.emitVectorOp(inst, amd64.PMAXUD)
		return
	}

	// Bias both operands by 0x80000000 and compare signed.
	a := c.ra.useScratchXmm(inst.Args[0])
	b := c.ra.useXmm(inst.Args[1])
	tmp := c.ra.scratchXmm()
	tmpB := c.ra.scratchXmm()

	c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(0x8000000080000000, 0x8000000080000000), tmp)
	c.asm.CompileRegisterToRegister(amd64.MOVDQA, b, tmpB)
	c.asm.CompileRegisterToRegister(amd64.PXOR, tmp, tmpB)
	c.asm.CompileRegisterToRegister(amd64.PXOR, a, tmp)
	c.asm.CompileRegisterToRegister(amd64.PCMPGTD, tmpB, tmp)
	c.asm.CompileRegisterToRegister(amd64.PAND, tmp, a)
	c.asm.CompileRegisterToRegister(amd64.PANDN, b, tmp)
	c.asm.CompileRegisterToRegister(amd64.POR, tmp, a)

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorMaxU64(inst *ir.Inst) {
	if c.supports(platform.AVX512VL) {
		c.emitAVXVectorOp(inst, amd64.VPMAXUQ)
		return
	}

	if c.supports(platform.AVX) {
		x := c.ra.useScratchXmm(inst.Args[0])
		y := c.ra.useXmm(inst.Args[1])
		tmp := c.ra.scratchXmm()

		c.asm.CompileStaticConstToRegister(amd64.VMOVDQA, c.asm.MConst(0x8000000000000000, 0x8000000000000000), amd64.RegX0)
		c.asm.CompileTwoRegistersToRegister(amd64.VPSUBQ, amd64.RegX0, y, tmp)
		c.asm.CompileTwoRegistersToRegister(amd64.VPSUBQ, amd64.RegX0, x, amd64.RegX0)
		c.asm.CompileTwoRegistersToRegister(amd64.VPCMPGTQ, amd64.RegX0, tmp, amd64.RegX0)
		c.asm.CompileRegisterToRegister(amd64.PBLENDVB, y, x)

		c.ra.defineValue(inst, x)
		return
	}

	c.emitTwoArgumentFallback(inst, fallbackMaxU64)
}

func (c *compiler) compileVectorMinS8(inst *ir.Inst) {
	if c.supports(platform.SSE41) {
		c.emitVectorOp(inst, amd64.PMINSB)
		return
	}

	a := c.ra.useScratchXmm(inst.Args[0])
	b := c.ra.useXmm(inst.Args[1])
	tmpB := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, b, tmpB)
	c.asm.CompileRegisterToRegister(amd64.PCMPGTB, a, tmpB)
	c.asm.CompileRegisterToRegister(amd64.PAND, tmpB, a)
	c.asm.CompileRegisterToRegister(amd64.PANDN, b, tmpB)
	c.asm.CompileRegisterToRegister(amd64.POR, tmpB, a)

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorMinS32(inst *ir.Inst) {
	if c.supports(platform.SSE41) {
		c.emitVectorOp(inst, amd64.PMINSD)
		return
	}

	a := c.ra.useScratchXmm(inst.Args[0])
	b := c.ra.useXmm(inst.Args[1])
	tmpB := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, b, tmpB)
	c.asm.CompileRegisterToRegister(amd64.PCMPGTD, a, tmpB)
	c.asm.CompileRegisterToRegister(amd64.PAND, tmpB, a)
	c.asm.CompileRegisterToRegister(amd64.PANDN, b, tmpB)
	c.asm.CompileRegisterToRegister(amd64.POR, tmpB, a)

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorMinS64(inst *ir.Inst) {
	if c.supports(platform.AVX512VL) {
		c.emitAVXVectorOp(inst, amd64.VPMINSQ)
		return
	}

	if c.supports(platform.AVX) {
		x := c.ra.useXmm(inst.Args[0])
		y := c.ra.useScratchXmm(inst.Args[1])
		c.asm.CompileTwoRegistersToRegister(amd64.VPCMPGTQ, x, y, amd64.RegX0)
		c.asm.CompileRegisterToRegister(amd64.PBLENDVB, x, y)
		c.ra.defineValue(inst, y)
		return
	}

	c.emitTwoArgumentFallback(inst, fallbackMinS64)
}

func (c *compiler) compileVectorMinU16(inst *ir.Inst) {
	if c.supports(platform.SSE41) {
		c.emitVectorOp(inst, amd64.PMINUW)
		return
	}

	// min(a, b) == b - (b -sat a).
	a := c.ra.useXmm(inst.Args[0])
	b := c.ra.useScratchXmm(inst.Args[1])
	tmpB := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, b, tmpB)
	c.asm.CompileRegisterToRegister(amd64.PSUBUSW, a, tmpB)
	c.asm.CompileRegisterToRegister(amd64.PSUBW, tmpB, b)

	c.ra.defineValue(inst, b)
}

func (c *compiler) compileVectorMinU32(inst *ir.Inst) {
	if c.supports(platform.SSE41) {
		c.emitVectorOp(inst, amd64.PMINUD)
		return
	}

	a := c.ra.useScratchXmm(inst.Args[0])
	b := c.ra.useXmm(inst.Args[1])

	sintMaxPlusOne := c.ra.scratchXmm()
	c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(0x8000000080000000, 0x8000000080000000), sintMaxPlusOne)

	tmpA := c.ra.scratchXmm()
	c.asm.CompileRegisterToRegister(amd64.MOVDQA, a, tmpA)
	c.asm.CompileRegisterToRegister(amd64.PSUBD, sintMaxPlusOne, tmpA)

	tmpB := c.ra.scratchXmm()
	c.asm.CompileRegisterToRegister(amd64.MOVDQA, b, tmpB)
	c.asm.CompileRegisterToRegister(amd64.PSUBD, sintMaxPlusOne, tmpB)

	c.asm.CompileRegisterToRegister(amd64.PCMPGTD, tmpA, tmpB)
	c.asm.CompileRegisterToRegister(amd64.PAND, tmpB, a)
	c.asm.CompileRegisterToRegister(amd64.PANDN, b, tmpB)
	c.asm.CompileRegisterToRegister(amd64.POR, tmpB, a)

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorMinU64(inst *ir.Inst) {
	if c.supports(platform.AVX512VL) {
		c.emitAVXVectorOp(inst, amd64.VPMINUQ)
		return
	}

	if c.supports(platform.AVX) {
		x := c.ra.useXmm(inst.Args[0])
		y := c.ra.useScratchXmm(inst.Args[1])
		tmp := c.ra.scratchXmm()

		c.asm.CompileStaticConstToRegister(amd64.VMOVDQA, c.asm.MConst(0x8000000000000000, 0x8000000000000000), amd64.RegX0)
		c.asm.CompileTwoRegistersToRegister(amd64.VPSUBQ, amd64.RegX0, y, tmp)
		c.asm.CompileTwoRegistersToRegister(amd64.VPSUBQ, amd64.RegX0, x, amd64.RegX0)
		c.asm.CompileTwoRegistersToRegister(amd64.VPCMPGTQ, amd64.RegX0, tmp, amd64.RegX0)
		c.asm.CompileRegisterToRegister(amd64.PBLENDVB, x, y)

		c.ra.defineValue(inst, y)
		return
	}

	c.emitTwoArgumentFallback(inst, fallbackMinU64)
}

// Multiplies.

func (c *compiler) compileVectorMultiply8(inst *ir.Inst) {
	// Two pmullw over the even and odd bytes, recombined.
	a := c.ra.useScratchXmm(inst.Args[0])
	b := c.ra.useScratchXmm(inst.Args[1])
	tmpA := c.ra.scratchXmm()
	tmpB := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, a, tmpA)
	c.asm.CompileRegisterToRegister(amd64.MOVDQA, b, tmpB)
	c.asm.CompileRegisterToRegister(amd64.PMULLW, b, a)
	c.asm.CompileConstToRegister(amd64.PSRLW, 8, tmpA)
	c.asm.CompileConstToRegister(amd64.PSRLW, 8, tmpB)
	c.asm.CompileRegisterToRegister(amd64.PMULLW, tmpB, tmpA)
	c.asm.CompileStaticConstToRegister(amd64.PAND, c.asm.MConst(0x00FF00FF00FF00FF, 0x00FF00FF00FF00FF), a)
	c.asm.CompileConstToRegister(amd64.PSLLW, 8, tmpA)
	c.asm.CompileRegisterToRegister(amd64.POR, tmpA, a)

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorMultiply32(inst *ir.Inst) {
	if c.supports(platform.SSE41) {
		c.emitVectorOp(inst, amd64.PMULLD)
		return
	}

	// pmuludq on the even and odd dword pairs, recombined with pshufd.
	a := c.ra.useScratchXmm(inst.Args[0])
	b := c.ra.useScratchXmm(inst.Args[1])
	tmp := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, a, tmp)
	c.asm.CompileConstToRegister(amd64.PSRLQ, 32, a)
	c.asm.CompileRegisterToRegister(amd64.PMULUDQ, b, tmp)
	c.asm.CompileConstToRegister(amd64.PSRLQ, 32, b)
	c.asm.CompileRegisterToRegister(amd64.PMULUDQ, b, a)
	c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFD, tmp, tmp, 0b00001000)
	c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFD, a, b, 0b00001000)
	c.asm.CompileRegisterToRegister(amd64.PUNPCKLDQ, b, tmp)

	c.ra.defineValue(inst, tmp)
}

func (c *compiler) compileVectorMultiply64(inst *ir.Inst) {
	if c.supports(platform.AVX512DQ | platform.AVX512VL) {
		c.emitAVXVectorOp(inst, amd64.VPMULLQ)
		return
	}

	if c.supports(platform.SSE41) {
		// Unrolled per-lane imul through the GPRs.
		a := c.ra.useScratchXmm(inst.Args[0])
		b := c.ra.useXmm(inst.Args[1])
		tmp1 := c.ra.scratchGpr()
		tmp2 := c.ra.scratchGpr()

		c.asm.CompileRegisterToRegister(amd64.MOVQ, a, tmp1)
		c.asm.CompileRegisterToRegister(amd64.MOVQ, b, tmp2)
		c.asm.CompileRegisterToRegister(amd64.IMULQ, tmp1, tmp2)
		c.asm.CompileRegisterToRegisterWithArg(amd64.PEXTRQ, a, tmp1, 1)
		c.asm.CompileRegisterToRegister(amd64.MOVQ, tmp2, a)
		c.asm.CompileRegisterToRegisterWithArg(amd64.PEXTRQ, b, tmp2, 1)
		c.asm.CompileRegisterToRegister(amd64.IMULQ, tmp2, tmp1)
		c.asm.CompileRegisterToRegisterWithArg(amd64.PINSRQ, tmp1, a, 1)

		c.ra.defineValue(inst, a)
		return
	}

	// Schoolbook 64x64 from three 32x32 products.
	a := c.ra.useXmm(inst.Args[0])
	b := c.ra.useScratchXmm(inst.Args[1])
	tmp1 := c.ra.scratchXmm()
	tmp2 := c.ra.scratchXmm()
	tmp3 := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, a, tmp1)
	c.asm.CompileRegisterToRegister(amd64.MOVDQA, a, tmp2)
	c.asm.CompileRegisterToRegister(amd64.MOVDQA, b, tmp3)

	c.asm.CompileConstToRegister(amd64.PSRLQ, 32, tmp1)
	c.asm.CompileConstToRegister(amd64.PSRLQ, 32, tmp3)

	c.asm.CompileRegisterToRegister(amd64.PMULUDQ, b, tmp2)
	c.asm.CompileRegisterToRegister(amd64.PMULUDQ, a, tmp3)
	c.asm.CompileRegisterToRegister(amd64.PMULUDQ, tmp1, b)

	c.asm.CompileRegisterToRegister(amd64.PADDQ, tmp3, b)
	c.asm.CompileConstToRegister(amd64.PSLLQ, 32, b)
	c.asm.CompileRegisterToRegister(amd64.PADDQ, b, tmp2)

	c.ra.defineValue(inst, tmp2)
}

// Absolute differences.

func (c *compiler) compileVectorSignedAbsoluteDifference(inst *ir.Inst, esize uint) {
	x := c.ra.useScratchXmm(inst.Args[0])
	y := c.ra.useXmm(inst.Args[1])
	mask := c.ra.scratchXmm()
	tmp1 := c.ra.scratchXmm()
	tmp2 := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, x, mask)
	c.asm.CompileRegisterToRegister(amd64.MOVDQA, y, tmp1)

	switch esize {
	case 8:
		c.asm.CompileRegisterToRegister(amd64.PCMPGTB, y, mask)
		c.asm.CompileRegisterToRegister(amd64.PSUBB, x, tmp1)
		c.asm.CompileRegisterToRegister(amd64.PSUBB, y, x)
	case 16:
		c.asm.CompileRegisterToRegister(amd64.PCMPGTW, y, mask)
		c.asm.CompileRegisterToRegister(amd64.PSUBW, x, tmp1)
		c.asm.CompileRegisterToRegister(amd64.PSUBW, y, x)
	case 32:
		c.asm.CompileRegisterToRegister(amd64.PCMPGTD, y, mask)
		c.asm.CompileRegisterToRegister(amd64.PSUBD, x, tmp1)
		c.asm.CompileRegisterToRegister(amd64.PSUBD, y, x)
	default:
		panic("bug in compiler: invalid element size for signed absolute difference")
	}

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, mask, tmp2)
	c.asm.CompileRegisterToRegister(amd64.PAND, mask, x)
	c.asm.CompileRegisterToRegister(amd64.PANDN, tmp1, tmp2)
	c.asm.CompileRegisterToRegister(amd64.POR, tmp2, x)

	c.ra.defineValue(inst, x)
}

func (c *compiler) compileVectorUnsignedAbsoluteDifference(inst *ir.Inst, esize uint) {
	temp := c.ra.scratchXmm()

	switch esize {
	case 8:
		x := c.ra.useXmm(inst.Args[0])
		y := c.ra.useScratchXmm(inst.Args[1])
		c.asm.CompileRegisterToRegister(amd64.MOVDQA, x, temp)
		c.asm.CompileRegisterToRegister(amd64.PSUBUSB, y, temp)
		c.asm.CompileRegisterToRegister(amd64.PSUBUSB, x, y)
		c.asm.CompileRegisterToRegister(amd64.POR, y, temp)
	case 16:
		x := c.ra.useXmm(inst.Args[0])
		y := c.ra.useScratchXmm(inst.Args[1])
		c.asm.CompileRegisterToRegister(amd64.MOVDQA, x, temp)
		c.asm.CompileRegisterToRegister(amd64.PSUBUSW, y, temp)
		c.asm.CompileRegisterToRegister(amd64.PSUBUSW, x, y)
		c.asm.CompileRegisterToRegister(amd64.POR, y, temp)
	case 32:
		if c.supports(platform.SSE41) {
			x := c.ra.useScratchXmm(inst.Args[0])
			y := c.ra.useXmm(inst.Args[1])
			c.asm.CompileRegisterToRegister(amd64.MOVDQA, x, temp)
			c.asm.CompileRegisterToRegister(amd64.PMINUD, y, x)
			c.asm.CompileRegisterToRegister(amd64.PMAXUD, y, temp)
			c.asm.CompileRegisterToRegister(amd64.PSUBD, x, temp)
		} else {
			x := c.ra.useScratchXmm(inst.Args[0])
			y := c.ra.useScratchXmm(inst.Args[1])
			c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(0x8000000080000000, 0x8000000080000000), temp)
			c.asm.CompileRegisterToRegister(amd64.PXOR, temp, x)
			c.asm.CompileRegisterToRegister(amd64.PXOR, temp, y)
			c.asm.CompileRegisterToRegister(amd64.MOVDQA, x, temp)
			c.asm.CompileRegisterToRegister(amd64.PSUBD, y, temp)
			c.asm.CompileRegisterToRegister(amd64.PCMPGTD, x, y)
			c.asm.CompileConstToRegister(amd64.PSRLD, 1, y)
			c.asm.CompileRegisterToRegister(amd64.PXOR, y, temp)
			c.asm.CompileRegisterToRegister(amd64.PSUBD, y, temp)
		}
	default:
		panic("bug in compiler: invalid element size for unsigned absolute difference")
	}

	c.ra.defineValue(inst, temp)
}
