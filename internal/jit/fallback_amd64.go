//go:build amd64
// +build amd64

package jit

import (
	"reflect"

	"github.com/miragevm/mirage/internal/asm"
	"github.com/miragevm/mirage/internal/asm/amd64"
	"github.com/miragevm/mirage/ir"
)

// The scalar fallback runtime: spill the 128-bit operands to stack
// buffers, call a host function over the lane arrays, reload the result.
// Saturating variants OR the callee's byte return into fpsr_qc.
//
// Callbacks take pointers to 16-byte buffers: (result, arg1[, arg2]).
// They must be top-level nosplit functions: the call site follows Go's
// internal amd64 ABI (arguments in AX/BX/CX, result in AX, X15 zeroed, g
// intact in R14), but the emitted frame is invisible to the runtime, so
// the callee must not grow the stack. funcAddr takes the code entry point.

type fallback1 = func(result, arg1 *vec)
type fallback1Sat = func(result, arg1 *vec) byte
type fallback2 = func(result, arg1, arg2 *vec)

func funcAddr(fn interface{}) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// emitOneArgumentFallback reserves two 16-byte stack buffers (result,
// arg1), stores arg1, calls fn(&result, &arg1) and reloads the result.
func (c *compiler) emitOneArgumentFallback(inst *ir.Inst, fn fallback1) {
	c.emitFallback(inst, funcAddr(fn), ir.Arg{}, false)
}

// emitOneArgumentFallbackWithSaturation additionally ORs the returned byte
// into the saturation flag.
func (c *compiler) emitOneArgumentFallbackWithSaturation(inst *ir.Inst, fn fallback1Sat) {
	c.emitFallback(inst, funcAddr(fn), ir.Arg{}, true)
}

// emitTwoArgumentFallback reserves three buffers (result, arg1, arg2).
func (c *compiler) emitTwoArgumentFallback(inst *ir.Inst, fn fallback2) {
	c.emitFallback(inst, funcAddr(fn), inst.Args[1], false)
}

func (c *compiler) emitFallback(inst *ir.Inst, fn uintptr, arg2 ir.Arg, saturating bool) {
	twoArgs := arg2.Inst != nil

	arg1Xmm := c.ra.useXmm(inst.Args[0])
	var arg2Xmm asm.Register
	if twoArgs {
		arg2Xmm = c.ra.useXmm(arg2)
	}
	result := c.ra.scratchXmm()
	c.ra.endOfAllocScope()
	c.ra.hostCall()

	stackSpace := int64(2 * 16)
	if twoArgs {
		stackSpace = 3 * 16
	}
	c.asm.CompileConstToRegister(amd64.SUBQ, stackSpace+abiShadowSpace, amd64.RegSP)
	c.asm.CompileMemoryToRegister(amd64.LEAQ, amd64.RegSP, abiShadowSpace+0*16, abiParamRegisters[0])
	c.asm.CompileMemoryToRegister(amd64.LEAQ, amd64.RegSP, abiShadowSpace+1*16, abiParamRegisters[1])
	if twoArgs {
		c.asm.CompileMemoryToRegister(amd64.LEAQ, amd64.RegSP, abiShadowSpace+2*16, abiParamRegisters[2])
	}

	// RSP carries no 16-byte alignment guarantee here, so the buffers are
	// accessed with unaligned moves.
	c.asm.CompileRegisterToMemory(amd64.MOVDQU, arg1Xmm, amd64.RegSP, abiShadowSpace+1*16)
	if twoArgs {
		c.asm.CompileRegisterToMemory(amd64.MOVDQU, arg2Xmm, amd64.RegSP, abiShadowSpace+2*16)
	}
	// The internal ABI designates X15 as the fixed zero register.
	c.asm.CompileRegisterToRegister(amd64.PXOR, amd64.RegX15, amd64.RegX15)
	c.asm.CompileCallFunctionPointer(fn, abiCallScratchRegister)
	c.asm.CompileMemoryToRegister(amd64.MOVDQU, amd64.RegSP, abiShadowSpace+0*16, result)

	c.asm.CompileConstToRegister(amd64.ADDQ, stackSpace+abiShadowSpace, amd64.RegSP)

	if saturating {
		c.asm.CompileRegisterToMemory(amd64.ORB, abiReturnRegister, reservedRegisterForState, c.layout.FpsrQCOffset)
	}

	c.ra.defineValue(inst, result)
}

// Named callback wrappers. Each binds a lane width and signedness to the
// shared scalar loop so the emitted CALL targets a plain function.

//go:nosplit
func fallbackGreaterS64(out, a, b *vec) { scalarGreaterS64(out, a, b) }

//go:nosplit
func fallbackLogicalVShiftS8(out, a, b *vec) { scalarLogicalVShift(out, a, b, 8, true) }
//go:nosplit
func fallbackLogicalVShiftS16(out, a, b *vec) { scalarLogicalVShift(out, a, b, 16, true) }
//go:nosplit
func fallbackLogicalVShiftS32(out, a, b *vec) { scalarLogicalVShift(out, a, b, 32, true) }
//go:nosplit
func fallbackLogicalVShiftS64(out, a, b *vec) { scalarLogicalVShift(out, a, b, 64, true) }
//go:nosplit
func fallbackLogicalVShiftU8(out, a, b *vec) { scalarLogicalVShift(out, a, b, 8, false) }
//go:nosplit
func fallbackLogicalVShiftU16(out, a, b *vec) { scalarLogicalVShift(out, a, b, 16, false) }
//go:nosplit
func fallbackLogicalVShiftU32(out, a, b *vec) { scalarLogicalVShift(out, a, b, 32, false) }
//go:nosplit
func fallbackLogicalVShiftU64(out, a, b *vec) { scalarLogicalVShift(out, a, b, 64, false) }

//go:nosplit
func fallbackRoundingShiftLeftS8(out, a, b *vec) { scalarRoundingShiftLeft(out, a, b, 8, true) }
//go:nosplit
func fallbackRoundingShiftLeftS16(out, a, b *vec) { scalarRoundingShiftLeft(out, a, b, 16, true) }
//go:nosplit
func fallbackRoundingShiftLeftS32(out, a, b *vec) { scalarRoundingShiftLeft(out, a, b, 32, true) }
//go:nosplit
func fallbackRoundingShiftLeftS64(out, a, b *vec) { scalarRoundingShiftLeft(out, a, b, 64, true) }
//go:nosplit
func fallbackRoundingShiftLeftU8(out, a, b *vec) { scalarRoundingShiftLeft(out, a, b, 8, false) }
//go:nosplit
func fallbackRoundingShiftLeftU16(out, a, b *vec) { scalarRoundingShiftLeft(out, a, b, 16, false) }
//go:nosplit
func fallbackRoundingShiftLeftU32(out, a, b *vec) { scalarRoundingShiftLeft(out, a, b, 32, false) }
//go:nosplit
func fallbackRoundingShiftLeftU64(out, a, b *vec) { scalarRoundingShiftLeft(out, a, b, 64, false) }

//go:nosplit
func fallbackPairedMaxS8(out, a, b *vec) { scalarPairedMinMax(out, a, b, 8, true, true) }
//go:nosplit
func fallbackPairedMaxS16(out, a, b *vec) { scalarPairedMinMax(out, a, b, 16, true, true) }
//go:nosplit
func fallbackPairedMaxU8(out, a, b *vec) { scalarPairedMinMax(out, a, b, 8, false, true) }
//go:nosplit
func fallbackPairedMaxU16(out, a, b *vec) { scalarPairedMinMax(out, a, b, 16, false, true) }
//go:nosplit
func fallbackPairedMinS8(out, a, b *vec) { scalarPairedMinMax(out, a, b, 8, true, false) }
//go:nosplit
func fallbackPairedMinS16(out, a, b *vec) { scalarPairedMinMax(out, a, b, 16, true, false) }
//go:nosplit
func fallbackPairedMinU8(out, a, b *vec) { scalarPairedMinMax(out, a, b, 8, false, false) }
//go:nosplit
func fallbackPairedMinU16(out, a, b *vec) { scalarPairedMinMax(out, a, b, 16, false, false) }

//go:nosplit
func fallbackMaxS64(out, a, b *vec) { scalarMinMax64(out, a, b, true, true) }
//go:nosplit
func fallbackMaxU64(out, a, b *vec) { scalarMinMax64(out, a, b, false, true) }
//go:nosplit
func fallbackMinS64(out, a, b *vec) { scalarMinMax64(out, a, b, true, false) }
//go:nosplit
func fallbackMinU64(out, a, b *vec) { scalarMinMax64(out, a, b, false, false) }

//go:nosplit
func fallbackPolynomialMultiply8(out, a, b *vec)      { scalarPolynomialMultiply8(out, a, b) }
//go:nosplit
func fallbackPolynomialMultiplyLong8(out, a, b *vec) { scalarPolynomialMultiplyLong8(out, a, b) }
//go:nosplit
func fallbackPolynomialMultiplyLong64(out, a, b *vec) { scalarPolynomialMultiplyLong64(out, a, b) }

//go:nosplit
func fallbackPopulationCount(out, a *vec) { scalarPopulationCount(out, a) }

//go:nosplit
func fallbackSignedSaturatedAbs64(out, a *vec) byte { return scalarSignedSaturatedAbs64(out, a) }
//go:nosplit
func fallbackSignedSaturatedNeg64(out, a *vec) byte { return scalarSignedSaturatedNeg64(out, a) }

//go:nosplit
func fallbackSignedSaturatedNarrowToSigned64(out, a *vec) byte {
	return scalarSignedSaturatedNarrowToSigned64(out, a)
}
//go:nosplit
func fallbackSignedSaturatedNarrowToUnsigned32(out, a *vec) byte {
	return scalarSignedSaturatedNarrowToUnsigned32(out, a)
}
//go:nosplit
func fallbackSignedSaturatedNarrowToUnsigned64(out, a *vec) byte {
	return scalarSignedSaturatedNarrowToUnsigned64(out, a)
}
//go:nosplit
func fallbackUnsignedSaturatedNarrow16(out, a *vec) byte { return scalarUnsignedSaturatedNarrow(out, a, 16) }
//go:nosplit
func fallbackUnsignedSaturatedNarrow32(out, a *vec) byte { return scalarUnsignedSaturatedNarrow(out, a, 32) }
//go:nosplit
func fallbackUnsignedSaturatedNarrow64(out, a *vec) byte { return scalarUnsignedSaturatedNarrow(out, a, 64) }
