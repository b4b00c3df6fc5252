//go:build amd64
// +build amd64

package jit

import (
	"runtime"

	"github.com/miragevm/mirage/internal/asm"
	"github.com/miragevm/mirage/internal/asm/amd64"
)

// Calling convention used by the scalar fallback runtime.
//
// The fallback helpers are ordinary Go functions in this process, so the
// emitted call site lays its operands out per Go's internal amd64 ABI, the
// way JITs that call host Go code directly do (cf. cloudwego's pgen
// generators): pointer arguments in the integer argument registers AX, BX,
// CX, DI, the byte result back in AX, X15 zeroed at the call boundary, and
// the goroutine pointer intact in R14 (the register allocator never hands
// R14 out). The internal ABI has no callee-saved registers, so a host call
// spills every live binding first.
var (
	// abiParamRegisters holds the integer argument registers in order.
	abiParamRegisters = []asm.Register{amd64.RegAX, amd64.RegBX, amd64.RegCX, amd64.RegDI}
	// abiReturnRegister receives the callee's result.
	abiReturnRegister = amd64.RegAX
	// abiCallScratchRegister carries the callee entry address; it is not
	// an argument register.
	abiCallScratchRegister = amd64.RegR12
	// abiShadowSpace is reserved below the operand buffers before a call.
	abiShadowSpace int64
)

func init() {
	if runtime.GOOS == "windows" {
		abiShadowSpace = 32
	}
}
