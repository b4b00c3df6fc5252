package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockUseCounts(t *testing.T) {
	b := &Block{}
	a := b.Append(OpLoadVector, Imm(0))
	c := b.Append(OpLoadVector, Imm(16))
	sum := b.Append(OpVectorAdd8, Value(a), Value(c))
	b.Append(OpVectorAdd8, Value(a), Value(sum))

	require.Equal(t, 2, a.UseCount())
	require.Equal(t, 1, c.UseCount())
	require.Equal(t, 1, sum.UseCount())
}

func TestArgImmediate(t *testing.T) {
	arg := Imm(0x2a)
	require.True(t, arg.IsImmediate())
	require.Equal(t, uint8(0x2a), arg.ImmediateU8())

	b := &Block{}
	v := b.Append(OpZeroVector)
	require.False(t, Value(v).IsImmediate())
	require.Panics(t, func() { Value(v).ImmediateU8() })
}

func TestOpcodeString(t *testing.T) {
	require.Equal(t, "VectorHalvingAddU8", OpVectorHalvingAddU8.String())
	require.Equal(t, "Unknown", OpInvalid.String())
}

func TestEveryOpcodeNamed(t *testing.T) {
	for op := OpInvalid + 1; op < opcodeEnd; op++ {
		require.NotEqual(t, "Unknown", op.String(), "opcode %d has no name", op)
	}
}
