//go:build amd64
// +build amd64

package amd64

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssembleSimpleSequence(t *testing.T) {
	a, err := NewAssembler()
	require.NoError(t, err)

	a.CompileConstToRegister(MOVQ, 1, RegAX)
	a.CompileRegisterToRegister(PADDB, RegX1, RegX2)
	a.CompileStandAlone(RET)

	code, err := a.Assemble()
	require.NoError(t, err)
	require.NotEmpty(t, code)
}

func TestMConstDedup(t *testing.T) {
	a, err := NewAssembler()
	require.NoError(t, err)

	c1 := a.MConst(0x8000800080008000, 0x8000800080008000)
	c2 := a.MConst(0x8000800080008000, 0x8000800080008000)
	c3 := a.MConst(0x0101010101010101, 0x0101010101010101)
	require.Same(t, c1, c2)
	require.NotSame(t, c1, c3)
	require.Len(t, a.ConstPool().Consts(), 2)
}

func TestStaticConstRIPRelativePatch(t *testing.T) {
	a, err := NewAssembler()
	require.NoError(t, err)

	c := a.MConst(0x1122334455667788, 0x99aabbccddeeff00)
	a.CompileStaticConstToRegister(MOVDQA, c, RegX0)
	a.CompileStandAlone(RET)

	code, err := a.Assemble()
	require.NoError(t, err)

	// movdqa xmm0, [rip+disp32] encodes as 66 0F 6F 05 disp32.
	require.GreaterOrEqual(t, len(code), 9)
	require.Equal(t, []byte{0x66, 0x0f, 0x6f, 0x05}, code[0:4])

	disp := int64(int32(binary.LittleEndian.Uint32(code[4:8])))
	end := int64(8) // end of the movdqa instruction
	require.Equal(t, c.OffsetInBinary, end+disp)

	// The pool slot itself is 16-byte aligned and holds the literal.
	require.Equal(t, int64(0), c.OffsetInBinary%16)
	require.Equal(t, c.Bytes(), code[c.OffsetInBinary:c.OffsetInBinary+16])
}

func TestInstructionAndRegisterNames(t *testing.T) {
	require.Equal(t, "PSHUFB", InstructionName(PSHUFB))
	require.Equal(t, "VPOPCNTB", InstructionName(VPOPCNTB))
	require.Equal(t, "Unknown", InstructionName(instructionEnd))
	require.Equal(t, "X15", RegisterName(RegX15))
	require.Equal(t, "R15", RegisterName(RegR15))
	require.Equal(t, "nil", RegisterName(0))
}
