package asm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstPoolDedup(t *testing.T) {
	p := NewConstPool()
	a := p.Add(0x00FF00FF00FF00FF, 0x00FF00FF00FF00FF)
	b := p.Add(0x00FF00FF00FF00FF, 0x00FF00FF00FF00FF)
	c := p.Add(0x8000800080008000, 0x8000800080008000)

	require.Same(t, a, b)
	require.NotSame(t, a, c)
	require.Len(t, p.Consts(), 2)
}

func TestConstPoolFlushAlignment(t *testing.T) {
	p := NewConstPool()
	lo, hi := uint64(0x0102030405060708), uint64(0x090a0b0c0d0e0f10)
	c := p.Add(lo, hi)

	code := make([]byte, 7) // deliberately misaligned
	out := p.Flush(code)

	require.Equal(t, int64(16), c.OffsetInBinary)
	require.Equal(t, 32, len(out))
	require.Equal(t, c.Bytes(), out[16:32])
	require.Equal(t, byte(0x08), out[16])
	require.Equal(t, byte(0x10), out[31])
}

func TestConstPoolFlushEmpty(t *testing.T) {
	p := NewConstPool()
	code := []byte{0x90}
	require.Equal(t, code, p.Flush(code))
}
