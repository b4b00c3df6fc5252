//go:build amd64
// +build amd64

package jit

import (
	"github.com/miragevm/mirage/internal/asm/amd64"
	"github.com/miragevm/mirage/internal/platform"
	"github.com/miragevm/mirage/ir"
)

// Lane reads. Lane 0 needs no code at all: the value binding is reused.

func (c *compiler) compileVectorGetElement8(inst *ir.Inst) {
	index := inst.Args[1].ImmediateU8()
	if index == 0 {
		c.ra.defineValueFromArg(inst, inst.Args[0])
		return
	}

	if c.supports(platform.SSE41) {
		source := c.ra.useXmm(inst.Args[0])
		dest := c.ra.scratchGpr()
		c.asm.CompileRegisterToRegisterWithArg(amd64.PEXTRB, source, dest, index)
		c.ra.defineValue(inst, dest)
		return
	}

	source := c.ra.useXmm(inst.Args[0])
	dest := c.ra.scratchGpr()
	c.asm.CompileRegisterToRegisterWithArg(amd64.PEXTRW, source, dest, index/2)
	if index%2 == 1 {
		c.asm.CompileConstToRegister(amd64.SHRL, 8, dest)
	} else {
		c.asm.CompileConstToRegister(amd64.ANDL, 0xFF, dest)
	}
	c.ra.defineValue(inst, dest)
}

func (c *compiler) compileVectorGetElement16(inst *ir.Inst) {
	index := inst.Args[1].ImmediateU8()
	if index == 0 {
		c.ra.defineValueFromArg(inst, inst.Args[0])
		return
	}

	source := c.ra.useXmm(inst.Args[0])
	dest := c.ra.scratchGpr()
	c.asm.CompileRegisterToRegisterWithArg(amd64.PEXTRW, source, dest, index)
	c.ra.defineValue(inst, dest)
}

func (c *compiler) compileVectorGetElement32(inst *ir.Inst) {
	index := inst.Args[1].ImmediateU8()
	if index == 0 {
		c.ra.defineValueFromArg(inst, inst.Args[0])
		return
	}

	dest := c.ra.scratchGpr()
	if c.supports(platform.SSE41) {
		source := c.ra.useXmm(inst.Args[0])
		c.asm.CompileRegisterToRegisterWithArg(amd64.PEXTRD, source, dest, index)
	} else {
		source := c.ra.useScratchXmm(inst.Args[0])
		c.asm.CompileRegisterToRegisterWithArg(amd64.PSHUFD, source, source, index)
		c.asm.CompileRegisterToRegister(amd64.MOVL, source, dest)
	}
	c.ra.defineValue(inst, dest)
}

func (c *compiler) compileVectorGetElement64(inst *ir.Inst) {
	index := inst.Args[1].ImmediateU8()
	if index == 0 {
		c.ra.defineValueFromArg(inst, inst.Args[0])
		return
	}

	dest := c.ra.scratchGpr()
	if c.supports(platform.SSE41) {
		source := c.ra.useXmm(inst.Args[0])
		c.asm.CompileRegisterToRegisterWithArg(amd64.PEXTRQ, source, dest, 1)
	} else {
		source := c.ra.useScratchXmm(inst.Args[0])
		c.asm.CompileRegisterToRegister(amd64.PUNPCKHQDQ, source, source)
		c.asm.CompileRegisterToRegister(amd64.MOVQ, source, dest)
	}
	c.ra.defineValue(inst, dest)
}

// Lane writes.

func (c *compiler) compileVectorSetElement8(inst *ir.Inst) {
	index := inst.Args[1].ImmediateU8()
	sourceVector := c.ra.useScratchXmm(inst.Args[0])

	if c.supports(platform.SSE41) {
		sourceElem := c.ra.useGpr(inst.Args[2])
		c.asm.CompileRegisterToRegisterWithArg(amd64.PINSRB, sourceElem, sourceVector, index)
		c.ra.defineValue(inst, sourceVector)
		return
	}

	// Read the surrounding word, splice the byte in, write it back.
	sourceElem := c.ra.useScratchGpr(inst.Args[2])
	tmp := c.ra.scratchGpr()
	c.asm.CompileRegisterToRegisterWithArg(amd64.PEXTRW, sourceVector, tmp, index/2)
	if index%2 == 0 {
		c.asm.CompileConstToRegister(amd64.ANDL, 0xFF00, tmp)
		c.asm.CompileConstToRegister(amd64.ANDL, 0x00FF, sourceElem)
		c.asm.CompileRegisterToRegister(amd64.ORL, sourceElem, tmp)
	} else {
		c.asm.CompileConstToRegister(amd64.ANDL, 0x00FF, tmp)
		c.asm.CompileConstToRegister(amd64.SHLL, 8, sourceElem)
		c.asm.CompileRegisterToRegister(amd64.ORL, sourceElem, tmp)
	}
	c.asm.CompileRegisterToRegisterWithArg(amd64.PINSRW, tmp, sourceVector, index/2)
	c.ra.defineValue(inst, sourceVector)
}

func (c *compiler) compileVectorSetElement16(inst *ir.Inst) {
	index := inst.Args[1].ImmediateU8()
	sourceVector := c.ra.useScratchXmm(inst.Args[0])
	sourceElem := c.ra.useGpr(inst.Args[2])
	c.asm.CompileRegisterToRegisterWithArg(amd64.PINSRW, sourceElem, sourceVector, index)
	c.ra.defineValue(inst, sourceVector)
}

func (c *compiler) compileVectorSetElement32(inst *ir.Inst) {
	index := inst.Args[1].ImmediateU8()
	sourceVector := c.ra.useScratchXmm(inst.Args[0])

	if c.supports(platform.SSE41) {
		sourceElem := c.ra.useGpr(inst.Args[2])
		c.asm.CompileRegisterToRegisterWithArg(amd64.PINSRD, sourceElem, sourceVector, index)
		c.ra.defineValue(inst, sourceVector)
		return
	}

	// Write the dword as two halfwords.
	sourceElem := c.ra.useScratchGpr(inst.Args[2])
	c.asm.CompileRegisterToRegisterWithArg(amd64.PINSRW, sourceElem, sourceVector, index*2)
	c.asm.CompileConstToRegister(amd64.SHRL, 16, sourceElem)
	c.asm.CompileRegisterToRegisterWithArg(amd64.PINSRW, sourceElem, sourceVector, index*2+1)
	c.ra.defineValue(inst, sourceVector)
}

func (c *compiler) compileVectorSetElement64(inst *ir.Inst) {
	index := inst.Args[1].ImmediateU8()
	sourceVector := c.ra.useScratchXmm(inst.Args[0])

	if c.supports(platform.SSE41) {
		sourceElem := c.ra.useGpr(inst.Args[2])
		c.asm.CompileRegisterToRegisterWithArg(amd64.PINSRQ, sourceElem, sourceVector, index)
		c.ra.defineValue(inst, sourceVector)
		return
	}

	sourceElem := c.ra.useGpr(inst.Args[2])
	tmp := c.ra.scratchXmm()
	c.asm.CompileRegisterToRegister(amd64.MOVQ, sourceElem, tmp)
	if index == 0 {
		c.asm.CompileRegisterToRegister(amd64.MOVSD, tmp, sourceVector)
	} else {
		c.asm.CompileRegisterToRegister(amd64.PUNPCKLQDQ, tmp, sourceVector)
	}
	c.ra.defineValue(inst, sourceVector)
}
