//go:build amd64
// +build amd64

package jit

import (
	"github.com/miragevm/mirage/internal/asm/amd64"
	"github.com/miragevm/mirage/internal/platform"
	"github.com/miragevm/mirage/ir"
)

// Narrowing truncations.

func (c *compiler) compileVectorNarrow16(inst *ir.Inst) {
	if c.supports(platform.AVX512VL | platform.AVX512BW) {
		a := c.ra.useXmm(inst.Args[0])
		result := c.ra.scratchXmm()
		c.asm.CompileRegisterToRegister(amd64.VPMOVWB, a, result)
		c.ra.defineValue(inst, result)
		return
	}

	a := c.ra.useScratchXmm(inst.Args[0])
	zeros := c.ra.scratchXmm()
	c.asm.CompileRegisterToRegister(amd64.PXOR, zeros, zeros)
	c.asm.CompileStaticConstToRegister(amd64.PAND, c.asm.MConst(0x00FF00FF00FF00FF, 0x00FF00FF00FF00FF), a)
	c.asm.CompileRegisterToRegister(amd64.PACKUSWB, zeros, a)
	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorNarrow32(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	zeros := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.PXOR, zeros, zeros)
	if c.supports(platform.SSE41) {
		c.asm.CompileRegisterToRegisterWithArg(amd64.PBLENDW, zeros, a, 0b10101010)
		c.asm.CompileRegisterToRegister(amd64.PACKUSDW, zeros, a)
	} else {
		c.asm.CompileConstToRegister(amd64.PSLLD, 16, a)
		c.asm.CompileConstToRegister(amd64.PSRAD, 16, a)
		c.asm.CompileRegisterToRegister(amd64.PACKSSDW, zeros, a)
	}

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorNarrow64(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	zeros := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.PXOR, zeros, zeros)
	c.asm.CompileRegisterToRegisterWithArg(amd64.SHUFPS, zeros, a, 0b00001000)

	c.ra.defineValue(inst, a)
}

// Widening extensions of the lower half.

func (c *compiler) compileVectorSignExtend8(inst *ir.Inst) {
	if c.supports(platform.SSE41) {
		a := c.ra.useScratchXmm(inst.Args[0])
		c.asm.CompileRegisterToRegister(amd64.PMOVSXBW, a, a)
		c.ra.defineValue(inst, a)
		return
	}

	a := c.ra.useXmm(inst.Args[0])
	result := c.ra.scratchXmm()
	c.asm.CompileRegisterToRegister(amd64.PXOR, result, result)
	c.asm.CompileRegisterToRegister(amd64.PUNPCKLBW, a, result)
	c.asm.CompileConstToRegister(amd64.PSRAW, 8, result)
	c.ra.defineValue(inst, result)
}

func (c *compiler) compileVectorSignExtend16(inst *ir.Inst) {
	if c.supports(platform.SSE41) {
		a := c.ra.useScratchXmm(inst.Args[0])
		c.asm.CompileRegisterToRegister(amd64.PMOVSXWD, a, a)
		c.ra.defineValue(inst, a)
		return
	}

	a := c.ra.useXmm(inst.Args[0])
	result := c.ra.scratchXmm()
	c.asm.CompileRegisterToRegister(amd64.PXOR, result, result)
	c.asm.CompileRegisterToRegister(amd64.PUNPCKLWD, a, result)
	c.asm.CompileConstToRegister(amd64.PSRAD, 16, result)
	c.ra.defineValue(inst, result)
}

func (c *compiler) compileVectorSignExtend32(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	if c.supports(platform.SSE41) {
		c.asm.CompileRegisterToRegister(amd64.PMOVSXDQ, a, a)
	} else {
		tmp := c.ra.scratchXmm()
		c.asm.CompileRegisterToRegister(amd64.MOVAPS, a, tmp)
		c.asm.CompileConstToRegister(amd64.PSRAD, 31, tmp)
		c.asm.CompileRegisterToRegister(amd64.PUNPCKLDQ, tmp, a)
	}
	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorSignExtend64(inst *ir.Inst) {
	data := c.ra.useScratchXmm(inst.Args[0])
	gprTmp := c.ra.scratchGpr()

	c.asm.CompileRegisterToRegister(amd64.MOVQ, data, gprTmp)
	c.asm.CompileConstToRegister(amd64.SARQ, 63, gprTmp)

	if c.supports(platform.SSE41) {
		c.asm.CompileRegisterToRegisterWithArg(amd64.PINSRQ, gprTmp, data, 1)
	} else {
		xmmTmp := c.ra.scratchXmm()
		c.asm.CompileRegisterToRegister(amd64.MOVQ, gprTmp, xmmTmp)
		c.asm.CompileRegisterToRegister(amd64.PUNPCKLQDQ, xmmTmp, data)
	}

	c.ra.defineValue(inst, data)
}

func (c *compiler) compileVectorZeroExtend8(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	if c.supports(platform.SSE41) {
		c.asm.CompileRegisterToRegister(amd64.PMOVZXBW, a, a)
	} else {
		zeros := c.ra.scratchXmm()
		c.asm.CompileRegisterToRegister(amd64.PXOR, zeros, zeros)
		c.asm.CompileRegisterToRegister(amd64.PUNPCKLBW, zeros, a)
	}
	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorZeroExtend16(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	if c.supports(platform.SSE41) {
		c.asm.CompileRegisterToRegister(amd64.PMOVZXWD, a, a)
	} else {
		zeros := c.ra.scratchXmm()
		c.asm.CompileRegisterToRegister(amd64.PXOR, zeros, zeros)
		c.asm.CompileRegisterToRegister(amd64.PUNPCKLWD, zeros, a)
	}
	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorZeroExtend32(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	if c.supports(platform.SSE41) {
		c.asm.CompileRegisterToRegister(amd64.PMOVZXDQ, a, a)
	} else {
		zeros := c.ra.scratchXmm()
		c.asm.CompileRegisterToRegister(amd64.PXOR, zeros, zeros)
		c.asm.CompileRegisterToRegister(amd64.PUNPCKLDQ, zeros, a)
	}
	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorZeroExtend64(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	zeros := c.ra.scratchXmm()
	c.asm.CompileRegisterToRegister(amd64.PXOR, zeros, zeros)
	c.asm.CompileRegisterToRegister(amd64.PUNPCKLQDQ, zeros, a)
	c.ra.defineValue(inst, a)
}

// Broadcasts of lane 0.

func (c *compiler) compileVectorBroadcast8(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])

	if c.supports(platform.AVX2) {
		c.asm.CompileRegisterToRegister(amd64.VPBROADCASTB, a, a)
	} else if c.supports(platform.SSSE3) {
		tmp := c.ra.scratchXmm()
		c.asm.CompileRegisterToRegister(amd64.PXOR, tmp, tmp)
		c.asm.CompileRegisterToRegister(amd64.PSHUFB, tmp, a)
	} else {
		c.asm.CompileRegisterToRegister(amd64.PUNPCKLBW, a, a)
		c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFLW, a, a, 0)
		c.asm.CompileRegisterToRegister(amd64.PUNPCKLQDQ, a, a)
	}

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorBroadcast16(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])

	if c.supports(platform.AVX2) {
		c.asm.CompileRegisterToRegister(amd64.VPBROADCASTW, a, a)
	} else {
		c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFLW, a, a, 0)
		c.asm.CompileRegisterToRegister(amd64.PUNPCKLQDQ, a, a)
	}

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorBroadcast32(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])

	if c.supports(platform.AVX2) {
		c.asm.CompileRegisterToRegister(amd64.VPBROADCASTD, a, a)
	} else {
		c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFD, a, a, 0)
	}

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorBroadcast64(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])

	if c.supports(platform.AVX2) {
		c.asm.CompileRegisterToRegister(amd64.VPBROADCASTQ, a, a)
	} else {
		c.asm.CompileRegisterToRegister(amd64.PUNPCKLQDQ, a, a)
	}

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorBroadcastLower8(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])

	if c.supports(platform.AVX2) {
		c.asm.CompileRegisterToRegister(amd64.VPBROADCASTB, a, a)
		c.asm.CompileRegisterToRegister(amd64.VMOVQ, a, a)
	} else if c.supports(platform.SSSE3) {
		tmp := c.ra.scratchXmm()
		c.asm.CompileRegisterToRegister(amd64.PXOR, tmp, tmp)
		c.asm.CompileRegisterToRegister(amd64.PSHUFB, tmp, a)
		c.asm.CompileRegisterToRegister(amd64.MOVQ, a, a)
	} else {
		c.asm.CompileRegisterToRegister(amd64.PUNPCKLBW, a, a)
		c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFLW, a, a, 0)
		c.asm.CompileRegisterToRegister(amd64.MOVQ, a, a)
	}

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorBroadcastLower16(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFLW, a, a, 0)
	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorBroadcastLower32(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFLW, a, a, 0b01000100)
	c.ra.defineValue(inst, a)
}

// Deinterleaves: every other lane of (lhs, rhs).

func (c *compiler) compileVectorDeinterleaveEven8(inst *ir.Inst) {
	lhs := c.ra.useScratchXmm(inst.Args[0])
	rhs := c.ra.useScratchXmm(inst.Args[1])
	tmp := c.ra.scratchXmm()

	c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(0x00FF00FF00FF00FF, 0x00FF00FF00FF00FF), tmp)
	c.asm.CompileRegisterToRegister(amd64.PAND, tmp, lhs)
	c.asm.CompileRegisterToRegister(amd64.PAND, tmp, rhs)
	c.asm.CompileRegisterToRegister(amd64.PACKUSWB, rhs, lhs)

	c.ra.defineValue(inst, lhs)
}

func (c *compiler) compileVectorDeinterleaveEven16(inst *ir.Inst) {
	lhs := c.ra.useScratchXmm(inst.Args[0])
	rhs := c.ra.useScratchXmm(inst.Args[1])

	c.asm.CompileConstToRegister(amd64.PSLLD, 16, lhs)
	c.asm.CompileConstToRegister(amd64.PSRAD, 16, lhs)

	c.asm.CompileConstToRegister(amd64.PSLLD, 16, rhs)
	c.asm.CompileConstToRegister(amd64.PSRAD, 16, rhs)

	c.asm.CompileRegisterToRegister(amd64.PACKSSDW, rhs, lhs)

	c.ra.defineValue(inst, lhs)
}

func (c *compiler) compileVectorDeinterleaveEven32(inst *ir.Inst) {
	lhs := c.ra.useScratchXmm(inst.Args[0])
	rhs := c.ra.useScratchXmm(inst.Args[1])

	c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFD, lhs, lhs, 0b10001000)
	c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFD, rhs, rhs, 0b10001000)

	if c.supports(platform.SSE41) {
		c.asm.CompileRegisterToRegisterWithArg(amd64.PBLENDW, rhs, lhs, 0b11110000)
	} else {
		c.asm.CompileRegisterToRegister(amd64.PUNPCKLQDQ, rhs, lhs)
	}

	c.ra.defineValue(inst, lhs)
}

func (c *compiler) compileVectorDeinterleaveEven64(inst *ir.Inst) {
	lhs := c.ra.useScratchXmm(inst.Args[0])
	rhs := c.ra.useScratchXmm(inst.Args[1])

	c.asm.CompileRegisterToRegister(amd64.MOVQ, lhs, lhs)
	c.asm.CompileConstToRegister(amd64.PSLLDQ, 8, rhs)
	c.asm.CompileRegisterToRegister(amd64.POR, rhs, lhs)

	c.ra.defineValue(inst, lhs)
}

func (c *compiler) compileVectorDeinterleaveOdd8(inst *ir.Inst) {
	lhs := c.ra.useScratchXmm(inst.Args[0])
	rhs := c.ra.useScratchXmm(inst.Args[1])

	c.asm.CompileConstToRegister(amd64.PSRAW, 8, lhs)
	c.asm.CompileConstToRegister(amd64.PSRAW, 8, rhs)
	c.asm.CompileRegisterToRegister(amd64.PACKSSWB, rhs, lhs)

	c.ra.defineValue(inst, lhs)
}

func (c *compiler) compileVectorDeinterleaveOdd16(inst *ir.Inst) {
	lhs := c.ra.useScratchXmm(inst.Args[0])
	rhs := c.ra.useScratchXmm(inst.Args[1])

	c.asm.CompileConstToRegister(amd64.PSRAD, 16, lhs)
	c.asm.CompileConstToRegister(amd64.PSRAD, 16, rhs)
	c.asm.CompileRegisterToRegister(amd64.PACKSSDW, rhs, lhs)

	c.ra.defineValue(inst, lhs)
}

func (c *compiler) compileVectorDeinterleaveOdd32(inst *ir.Inst) {
	lhs := c.ra.useScratchXmm(inst.Args[0])
	rhs := c.ra.useScratchXmm(inst.Args[1])

	c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFD, lhs, lhs, 0b11011101)
	c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFD, rhs, rhs, 0b11011101)

	if c.supports(platform.SSE41) {
		c.asm.CompileRegisterToRegisterWithArg(amd64.PBLENDW, rhs, lhs, 0b11110000)
	} else {
		c.asm.CompileRegisterToRegister(amd64.PUNPCKLQDQ, rhs, lhs)
	}

	c.ra.defineValue(inst, lhs)
}

func (c *compiler) compileVectorDeinterleaveOdd64(inst *ir.Inst) {
	lhs := c.ra.useScratchXmm(inst.Args[0])
	rhs := c.ra.useXmm(inst.Args[1])
	c.asm.CompileRegisterToRegister(amd64.PUNPCKHQDQ, rhs, lhs)
	c.ra.defineValue(inst, lhs)
}

// 128-bit windowed extraction over v2:v1.

func (c *compiler) compileVectorExtract(inst *ir.Inst) {
	xmmA := c.ra.useScratchXmm(inst.Args[0])

	position := inst.Args[2].ImmediateU8()
	if position%8 != 0 {
		panic("bug in compiler: extract position must be byte aligned")
	}

	if position != 0 {
		xmmB := c.ra.useScratchXmm(inst.Args[1])
		c.asm.CompileConstToRegister(amd64.PSRLDQ, int64(position/8), xmmA)
		c.asm.CompileConstToRegister(amd64.PSLLDQ, int64((128-int(position))/8), xmmB)
		c.asm.CompileRegisterToRegister(amd64.POR, xmmB, xmmA)
	}

	c.ra.defineValue(inst, xmmA)
}

func (c *compiler) compileVectorExtractLower(inst *ir.Inst) {
	xmmA := c.ra.useScratchXmm(inst.Args[0])

	position := inst.Args[2].ImmediateU8()
	if position%8 != 0 {
		panic("bug in compiler: extract position must be byte aligned")
	}

	if position != 0 {
		xmmB := c.ra.useXmm(inst.Args[1])
		c.asm.CompileRegisterToRegister(amd64.PUNPCKLQDQ, xmmB, xmmA)
		c.asm.CompileConstToRegister(amd64.PSRLDQ, int64(position/8), xmmA)
	}
	c.asm.CompileRegisterToRegister(amd64.MOVQ, xmmA, xmmA)

	c.ra.defineValue(inst, xmmA)
}

// Paired (horizontal) adds.

func (c *compiler) compileVectorPairedAdd8(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	b := c.ra.useScratchXmm(inst.Args[1])
	tmpA := c.ra.scratchXmm()
	tmpB := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, a, tmpA)
	c.asm.CompileRegisterToRegister(amd64.MOVDQA, b, tmpB)
	c.asm.CompileConstToRegister(amd64.PSLLW, 8, a)
	c.asm.CompileConstToRegister(amd64.PSLLW, 8, b)
	c.asm.CompileRegisterToRegister(amd64.PADDW, tmpA, a)
	c.asm.CompileRegisterToRegister(amd64.PADDW, tmpB, b)
	c.asm.CompileConstToRegister(amd64.PSRLW, 8, a)
	c.asm.CompileConstToRegister(amd64.PSRLW, 8, b)
	c.asm.CompileRegisterToRegister(amd64.PACKUSWB, b, a)

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorPairedAdd16(inst *ir.Inst) {
	if c.supports(platform.SSSE3) {
		a := c.ra.useScratchXmm(inst.Args[0])
		b := c.ra.useXmm(inst.Args[1])
		c.asm.CompileRegisterToRegister(amd64.PHADDW, b, a)
		c.ra.defineValue(inst, a)
		return
	}

	a := c.ra.useScratchXmm(inst.Args[0])
	b := c.ra.useScratchXmm(inst.Args[1])
	tmpA := c.ra.scratchXmm()
	tmpB := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, a, tmpA)
	c.asm.CompileRegisterToRegister(amd64.MOVDQA, b, tmpB)
	c.asm.CompileConstToRegister(amd64.PSLLD, 16, a)
	c.asm.CompileConstToRegister(amd64.PSLLD, 16, b)
	c.asm.CompileRegisterToRegister(amd64.PADDD, tmpA, a)
	c.asm.CompileRegisterToRegister(amd64.PADDD, tmpB, b)
	c.asm.CompileConstToRegister(amd64.PSRAD, 16, a)
	c.asm.CompileConstToRegister(amd64.PSRAD, 16, b)
	c.asm.CompileRegisterToRegister(amd64.PACKSSDW, b, a)

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorPairedAdd32(inst *ir.Inst) {
	if c.supports(platform.SSSE3) {
		a := c.ra.useScratchXmm(inst.Args[0])
		b := c.ra.useXmm(inst.Args[1])
		c.asm.CompileRegisterToRegister(amd64.PHADDD, b, a)
		c.ra.defineValue(inst, a)
		return
	}

	a := c.ra.useScratchXmm(inst.Args[0])
	b := c.ra.useScratchXmm(inst.Args[1])
	tmpA := c.ra.scratchXmm()
	tmpB := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, a, tmpA)
	c.asm.CompileRegisterToRegister(amd64.MOVDQA, b, tmpB)
	c.asm.CompileConstToRegister(amd64.PSLLQ, 32, a)
	c.asm.CompileConstToRegister(amd64.PSLLQ, 32, b)
	c.asm.CompileRegisterToRegister(amd64.PADDQ, tmpA, a)
	c.asm.CompileRegisterToRegister(amd64.PADDQ, tmpB, b)
	c.asm.CompileRegisterToRegisterWithArg(amd64.SHUFPS, b, a, 0b11011101)

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorPairedAdd64(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	b := c.ra.useXmm(inst.Args[1])
	tmp := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, a, tmp)
	c.asm.CompileRegisterToRegister(amd64.PUNPCKLQDQ, b, a)
	c.asm.CompileRegisterToRegister(amd64.PUNPCKHQDQ, b, tmp)
	c.asm.CompileRegisterToRegister(amd64.PADDQ, tmp, a)

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorPairedAddLower8(inst *ir.Inst) {
	xmmA := c.ra.useScratchXmm(inst.Args[0])
	xmmB := c.ra.useXmm(inst.Args[1])
	tmp := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.PUNPCKLQDQ, xmmB, xmmA)
	c.asm.CompileRegisterToRegister(amd64.MOVDQA, xmmA, tmp)
	c.asm.CompileConstToRegister(amd64.PSLLW, 8, xmmA)
	c.asm.CompileRegisterToRegister(amd64.PADDW, tmp, xmmA)
	c.asm.CompileRegisterToRegister(amd64.PXOR, tmp, tmp)
	c.asm.CompileConstToRegister(amd64.PSRLW, 8, xmmA)
	c.asm.CompileRegisterToRegister(amd64.PACKUSWB, tmp, xmmA)

	c.ra.defineValue(inst, xmmA)
}

func (c *compiler) compileVectorPairedAddLower16(inst *ir.Inst) {
	xmmA := c.ra.useScratchXmm(inst.Args[0])
	xmmB := c.ra.useXmm(inst.Args[1])
	tmp := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.PUNPCKLQDQ, xmmB, xmmA)
	if c.supports(platform.SSSE3) {
		c.asm.CompileRegisterToRegister(amd64.PXOR, tmp, tmp)
		c.asm.CompileRegisterToRegister(amd64.PHADDW, tmp, xmmA)
	} else {
		c.asm.CompileRegisterToRegister(amd64.MOVDQA, xmmA, tmp)
		c.asm.CompileConstToRegister(amd64.PSLLD, 16, xmmA)
		c.asm.CompileRegisterToRegister(amd64.PADDD, tmp, xmmA)
		c.asm.CompileRegisterToRegister(amd64.PXOR, tmp, tmp)
		c.asm.CompileConstToRegister(amd64.PSRAD, 16, xmmA)
		// packusdw is SSE4.1, hence the arithmetic shift above.
		c.asm.CompileRegisterToRegister(amd64.PACKSSDW, tmp, xmmA)
	}

	c.ra.defineValue(inst, xmmA)
}

func (c *compiler) compileVectorPairedAddLower32(inst *ir.Inst) {
	xmmA := c.ra.useScratchXmm(inst.Args[0])
	xmmB := c.ra.useXmm(inst.Args[1])
	tmp := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.PUNPCKLQDQ, xmmB, xmmA)
	if c.supports(platform.SSSE3) {
		c.asm.CompileRegisterToRegister(amd64.PXOR, tmp, tmp)
		c.asm.CompileRegisterToRegister(amd64.PHADDD, tmp, xmmA)
	} else {
		c.asm.CompileRegisterToRegister(amd64.MOVDQA, xmmA, tmp)
		c.asm.CompileConstToRegister(amd64.PSLLQ, 32, xmmA)
		c.asm.CompileRegisterToRegister(amd64.PADDQ, tmp, xmmA)
		c.asm.CompileConstToRegister(amd64.PSRLQ, 32, xmmA)
		c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFD, xmmA, xmmA, 0b11011000)
	}

	c.ra.defineValue(inst, xmmA)
}

// Pair-sum into the next wider lane.

func (c *compiler) compileVectorPairedAddSignedWiden8(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	tmp := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, a, tmp)
	c.asm.CompileConstToRegister(amd64.PSLLW, 8, a)
	c.asm.CompileConstToRegister(amd64.PSRAW, 8, tmp)
	c.asm.CompileConstToRegister(amd64.PSRAW, 8, a)
	c.asm.CompileRegisterToRegister(amd64.PADDW, tmp, a)

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorPairedAddSignedWiden16(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	tmp := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, a, tmp)
	c.asm.CompileConstToRegister(amd64.PSLLD, 16, a)
	c.asm.CompileConstToRegister(amd64.PSRAD, 16, tmp)
	c.asm.CompileConstToRegister(amd64.PSRAD, 16, a)
	c.asm.CompileRegisterToRegister(amd64.PADDD, tmp, a)

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorPairedAddSignedWiden32(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	tmp := c.ra.scratchXmm()

	if c.supports(platform.AVX512VL) {
		c.asm.CompileRegisterToRegisterWithArg(amd64.VPSRAQ, a, tmp, 32)
		c.asm.CompileRegisterToRegisterWithArg(amd64.VPSLLQ, a, a, 32)
		c.asm.CompileRegisterToRegisterWithArg(amd64.VPSRAQ, a, a, 32)
		c.asm.CompileTwoRegistersToRegister(amd64.VPADDQ, tmp, a, a)
	} else {
		// There is no psraq; reconstruct the sign bits via masks.
		tmp1 := c.ra.scratchXmm()
		tmp2 := c.ra.scratchXmm()

		c.asm.CompileRegisterToRegister(amd64.MOVDQA, a, tmp)
		c.asm.CompileConstToRegister(amd64.PSLLQ, 32, a)
		c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(0x8000000000000000, 0x8000000000000000), tmp1)
		c.asm.CompileRegisterToRegister(amd64.MOVDQA, tmp1, tmp2)
		c.asm.CompileRegisterToRegister(amd64.PAND, a, tmp1)
		c.asm.CompileRegisterToRegister(amd64.PAND, tmp, tmp2)
		c.asm.CompileConstToRegister(amd64.PSRLQ, 32, a)
		c.asm.CompileConstToRegister(amd64.PSRLQ, 32, tmp)
		c.asm.CompileConstToRegister(amd64.PSRAD, 31, tmp1)
		c.asm.CompileConstToRegister(amd64.PSRAD, 31, tmp2)
		c.asm.CompileRegisterToRegister(amd64.POR, tmp1, a)
		c.asm.CompileRegisterToRegister(amd64.POR, tmp2, tmp)
		c.asm.CompileRegisterToRegister(amd64.PADDQ, tmp, a)
	}

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorPairedAddUnsignedWiden8(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	tmp := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, a, tmp)
	c.asm.CompileConstToRegister(amd64.PSLLW, 8, a)
	c.asm.CompileConstToRegister(amd64.PSRLW, 8, tmp)
	c.asm.CompileConstToRegister(amd64.PSRLW, 8, a)
	c.asm.CompileRegisterToRegister(amd64.PADDW, tmp, a)

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorPairedAddUnsignedWiden16(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	tmp := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, a, tmp)
	c.asm.CompileConstToRegister(amd64.PSLLD, 16, a)
	c.asm.CompileConstToRegister(amd64.PSRLD, 16, tmp)
	c.asm.CompileConstToRegister(amd64.PSRLD, 16, a)
	c.asm.CompileRegisterToRegister(amd64.PADDD, tmp, a)

	c.ra.defineValue(inst, a)
}

func (c *compiler) compileVectorPairedAddUnsignedWiden32(inst *ir.Inst) {
	a := c.ra.useScratchXmm(inst.Args[0])
	tmp := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, a, tmp)
	c.asm.CompileConstToRegister(amd64.PSLLQ, 32, a)
	c.asm.CompileConstToRegister(amd64.PSRLQ, 32, tmp)
	c.asm.CompileConstToRegister(amd64.PSRLQ, 32, a)
	c.asm.CompileRegisterToRegister(amd64.PADDQ, tmp, a)

	c.ra.defineValue(inst, a)
}

// Paired min/max over dwords: shufps interleaves the pair halves, then an
// element-wise min/max (native on SSE4.1, compare-blend otherwise).

func (c *compiler) compileVectorPairedMinMaxS32(inst *ir.Inst, max bool) {
	x := c.ra.useScratchXmm(inst.Args[0])
	y := c.ra.useXmm(inst.Args[1])
	tmp := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, x, tmp)
	c.asm.CompileRegisterToRegisterWithArg(amd64.SHUFPS, y, tmp, 0b10001000)
	c.asm.CompileRegisterToRegisterWithArg(amd64.SHUFPS, y, x, 0b11011101)

	if c.supports(platform.SSE41) {
		op := amd64.PMINSD
		if max {
			op = amd64.PMAXSD
		}
		c.asm.CompileRegisterToRegister(op, tmp, x)
		c.ra.defineValue(inst, x)
		return
	}

	tmp2 := c.ra.scratchXmm()
	if max {
		c.asm.CompileRegisterToRegister(amd64.MOVDQA, tmp, tmp2)
		c.asm.CompileRegisterToRegister(amd64.PCMPGTD, x, tmp2)
		c.asm.CompileRegisterToRegister(amd64.PAND, tmp2, tmp)
		c.asm.CompileRegisterToRegister(amd64.PANDN, x, tmp2)
		c.asm.CompileRegisterToRegister(amd64.POR, tmp, tmp2)
	} else {
		c.asm.CompileRegisterToRegister(amd64.MOVAPS, x, tmp2)
		c.asm.CompileRegisterToRegister(amd64.PCMPGTD, tmp, tmp2)
		c.asm.CompileRegisterToRegister(amd64.PAND, tmp2, tmp)
		c.asm.CompileRegisterToRegister(amd64.PANDN, x, tmp2)
		c.asm.CompileRegisterToRegister(amd64.POR, tmp, tmp2)
	}

	c.ra.defineValue(inst, tmp2)
}

func (c *compiler) compileVectorPairedMinMaxU32(inst *ir.Inst, max bool) {
	x := c.ra.useScratchXmm(inst.Args[0])
	y := c.ra.useXmm(inst.Args[1])
	tmp1 := c.ra.scratchXmm()

	c.asm.CompileRegisterToRegister(amd64.MOVDQA, x, tmp1)
	c.asm.CompileRegisterToRegisterWithArg(amd64.SHUFPS, y, tmp1, 0b10001000)
	c.asm.CompileRegisterToRegisterWithArg(amd64.SHUFPS, y, x, 0b11011101)

	if c.supports(platform.SSE41) {
		op := amd64.PMINUD
		if max {
			op = amd64.PMAXUD
		}
		c.asm.CompileRegisterToRegister(op, tmp1, x)
		c.ra.defineValue(inst, x)
		return
	}

	tmp3 := c.ra.scratchXmm()
	c.asm.CompileStaticConstToRegister(amd64.MOVDQA, c.asm.MConst(0x8000000080000000, 0x8000000080000000), tmp3)

	tmp2 := c.ra.scratchXmm()
	if max {
		c.asm.CompileRegisterToRegister(amd64.MOVDQA, x, tmp2)
		c.asm.CompileRegisterToRegister(amd64.PXOR, tmp3, tmp2)
		c.asm.CompileRegisterToRegister(amd64.PXOR, tmp1, tmp3)
		c.asm.CompileRegisterToRegister(amd64.PCMPGTD, tmp2, tmp3)
		c.asm.CompileRegisterToRegister(amd64.PAND, tmp3, tmp1)
		c.asm.CompileRegisterToRegister(amd64.PANDN, x, tmp3)
		c.asm.CompileRegisterToRegister(amd64.POR, tmp3, tmp1)
	} else {
		c.asm.CompileRegisterToRegister(amd64.MOVDQA, tmp1, tmp2)
		c.asm.CompileRegisterToRegister(amd64.PXOR, tmp3, tmp2)
		c.asm.CompileRegisterToRegister(amd64.PXOR, x, tmp3)
		c.asm.CompileRegisterToRegister(amd64.PCMPGTD, tmp2, tmp3)
		c.asm.CompileRegisterToRegister(amd64.PAND, tmp3, tmp1)
		c.asm.CompileRegisterToRegister(amd64.PANDN, x, tmp3)
		c.asm.CompileRegisterToRegister(amd64.POR, tmp3, tmp1)
	}

	c.ra.defineValue(inst, tmp1)
}
