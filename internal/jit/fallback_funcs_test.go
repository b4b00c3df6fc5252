package jit

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func vecOf64(lo, hi uint64) vec {
	var v vec
	binary.LittleEndian.PutUint64(v[0:], lo)
	binary.LittleEndian.PutUint64(v[8:], hi)
	return v
}

func TestScalarGreaterS64(t *testing.T) {
	a := vecOf64(0xFFFFFFFFFFFFFFFF, 1) // {-1, 1}
	b := vecOf64(0, 0)
	var out vec
	scalarGreaterS64(&out, &a, &b)
	require.Equal(t, vecOf64(0, 0xFFFFFFFFFFFFFFFF), out)
}

func TestScalarLogicalVShift(t *testing.T) {
	tests := []struct {
		name     string
		esize    uint
		signed   bool
		x, shift uint64
		expected uint64
	}{
		{"left", 8, false, 0x81, 1, 0x02},
		{"left signed wraps", 8, true, 0x41, 2, 0x04},
		{"right", 8, false, 0x80, 0xFF, 0x40}, // shift -1
		{"right signed propagates", 8, true, 0x80, 0xFF, 0xC0},
		{"unsigned full width is zero", 8, false, 0xFF, 8, 0},
		{"unsigned full negative is zero", 8, false, 0xFF, 0xF8, 0}, // shift -8
		{"signed full width is zero", 8, true, 0x7F, 8, 0},
		{"signed saturating right", 8, true, 0x80, 0xF8, 0xFF}, // shift -8: sign fill
		{"signed saturating right positive", 8, true, 0x7F, 0xF0, 0},
		{"wide lane right", 32, false, 0x80000000, 0xFF, 0x40000000},
		{"wide lane left", 64, true, 1, 63, 0x8000000000000000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var lhs, rhs, out vec
			setLane(&lhs, tc.esize, 0, tc.x)
			setLane(&rhs, tc.esize, 0, tc.shift)
			scalarLogicalVShift(&out, &lhs, &rhs, tc.esize, tc.signed)
			require.Equal(t, tc.expected, lane(&out, tc.esize, 0))
		})
	}
}

func TestScalarLogicalVShiftAllLanes(t *testing.T) {
	var lhs, rhs, out vec
	for i := 0; i < 16; i++ {
		lhs[i] = 1
		rhs[i] = byte(i)
	}
	scalarLogicalVShift(&out, &lhs, &rhs, 8, false)
	for i := 0; i < 8; i++ {
		require.Equal(t, byte(1<<i), out[i], "lane %d", i)
	}
	for i := 8; i < 16; i++ {
		require.Equal(t, byte(0), out[i], "lane %d", i)
	}
}

func TestScalarRoundingShiftLeft(t *testing.T) {
	tests := []struct {
		name     string
		esize    uint
		signed   bool
		x, shift uint64
		expected uint64
	}{
		{"plain left", 8, false, 0x01, 3, 0x08},
		{"left overflow zero", 8, false, 0xFF, 8, 0},
		{"round up", 8, false, 0x01, 0xFF, 0x01},  // (1>>1)+1 = 1
		{"round even", 8, false, 0x04, 0xFF, 0x02}, // (4>>1)+0 = 2
		{"boundary unsigned", 8, false, 0x80, 0xF8, 0x01}, // shift -8: just the rounding bit
		{"past boundary unsigned", 8, false, 0xFF, 0xF7, 0},
		{"boundary signed zero", 8, true, 0x80, 0xF8, 0},
		{"signed right rounds", 8, true, 0x85, 0xFF, 0xC3}, // (-123>>1)+1
		{"wide", 32, false, 3, 0xFF, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var lhs, rhs, out vec
			setLane(&lhs, tc.esize, 0, tc.x)
			setLane(&rhs, tc.esize, 0, tc.shift)
			scalarRoundingShiftLeft(&out, &lhs, &rhs, tc.esize, tc.signed)
			require.Equal(t, tc.expected, lane(&out, tc.esize, 0))
		})
	}
}

func TestScalarPairedMinMax(t *testing.T) {
	var x, y, out vec
	// x pairs: (1,2) (3,4) ... ; y pairs: (16,15) (14,13) ...
	for i := 0; i < 16; i++ {
		x[i] = byte(i + 1)
		y[i] = byte(16 - i)
	}
	scalarPairedMinMax(&out, &x, &y, 8, false, true)
	require.Equal(t, byte(2), out[0])
	require.Equal(t, byte(4), out[1])
	require.Equal(t, byte(16), out[8])
	require.Equal(t, byte(14), out[9])

	scalarPairedMinMax(&out, &x, &y, 8, false, false)
	require.Equal(t, byte(1), out[0])
	require.Equal(t, byte(15), out[8])

	// Signed: compare across the sign boundary.
	var sx vec
	sx[0], sx[1] = 0x80, 0x01 // -128 vs 1
	scalarPairedMinMax(&out, &sx, &sx, 8, true, true)
	require.Equal(t, byte(0x01), out[0])
	scalarPairedMinMax(&out, &sx, &sx, 8, true, false)
	require.Equal(t, byte(0x80), out[0])
}

func TestScalarMinMax64(t *testing.T) {
	a := vecOf64(0xFFFFFFFFFFFFFFFF, 5) // {-1, 5} signed; {max, 5} unsigned
	b := vecOf64(1, 3)
	var out vec

	scalarMinMax64(&out, &a, &b, true, true)
	require.Equal(t, vecOf64(1, 5), out)
	scalarMinMax64(&out, &a, &b, true, false)
	require.Equal(t, vecOf64(0xFFFFFFFFFFFFFFFF, 3), out)
	scalarMinMax64(&out, &a, &b, false, true)
	require.Equal(t, vecOf64(0xFFFFFFFFFFFFFFFF, 5), out)
	scalarMinMax64(&out, &a, &b, false, false)
	require.Equal(t, vecOf64(1, 3), out)
}

func TestPolynomialMultiply(t *testing.T) {
	// (x+1)(x^2+1) = x^3+x^2+x+1.
	require.Equal(t, uint64(0b1111), polynomialMultiply(0b11, 0b101, 8))
	// Carry-less: 3*3 = 5 over GF(2).
	require.Equal(t, uint64(0b101), polynomialMultiply(0b11, 0b11, 8))
}

func TestScalarPolynomialMultiplyLong64(t *testing.T) {
	a := vecOf64(0x8000000000000001, 0xdeadbeef) // high half must be ignored
	b := vecOf64(0x0000000000000003, 0xcafebabe)
	var out vec
	scalarPolynomialMultiplyLong64(&out, &a, &b)
	// (x^63 + 1) * (x + 1) = x^64 + x^63 + x + 1.
	require.Equal(t, uint64(0x8000000000000003), lane(&out, 64, 0))
	require.Equal(t, uint64(1), lane(&out, 64, 1))
}

func TestScalarPopulationCount(t *testing.T) {
	var a, out vec
	a[0], a[1], a[2], a[15] = 0x00, 0xFF, 0x0F, 0xA5
	scalarPopulationCount(&out, &a)
	require.Equal(t, byte(0), out[0])
	require.Equal(t, byte(8), out[1])
	require.Equal(t, byte(4), out[2])
	require.Equal(t, byte(4), out[15])
}

func TestScalarSignedSaturatedNeg64(t *testing.T) {
	a := vecOf64(0x8000000000000000, 5)
	var out vec
	qc := scalarSignedSaturatedNeg64(&out, &a)
	require.Equal(t, byte(1), qc)
	require.Equal(t, vecOf64(0x7FFFFFFFFFFFFFFF, 0xFFFFFFFFFFFFFFFB), out)

	a = vecOf64(1, 2)
	qc = scalarSignedSaturatedNeg64(&out, &a)
	require.Equal(t, byte(0), qc)
	require.Equal(t, vecOf64(0xFFFFFFFFFFFFFFFF, 0xFFFFFFFFFFFFFFFE), out)
}

func TestScalarSignedSaturatedAbs64(t *testing.T) {
	a := vecOf64(0x8000000000000000, 0xFFFFFFFFFFFFFFFF)
	var out vec
	qc := scalarSignedSaturatedAbs64(&out, &a)
	require.Equal(t, byte(1), qc)
	require.Equal(t, vecOf64(0x7FFFFFFFFFFFFFFF, 1), out)
}

func TestScalarSaturatedNarrows(t *testing.T) {
	var out vec

	a := vecOf64(0x00000000FFFFFFFF, 0x0000000000000010) // {2^32-1, 16}
	qc := scalarSignedSaturatedNarrowToSigned64(&out, &a)
	require.Equal(t, byte(1), qc)
	require.Equal(t, uint64(0x7FFFFFFF), lane(&out, 32, 0))
	require.Equal(t, uint64(0x10), lane(&out, 32, 1))
	require.Equal(t, uint64(0), lane(&out, 64, 1)) // upper half zeroed

	a = vecOf64(0x0000000500000004, 0)
	qc = scalarSignedSaturatedNarrowToUnsigned32(&out, &a)
	require.Equal(t, byte(0), qc)
	require.Equal(t, uint64(4), lane(&out, 16, 0))
	require.Equal(t, uint64(5), lane(&out, 16, 1))

	var in vec
	setLane(&in, 32, 0, 0xFFFFFFFF) // -1 -> clamps to 0, saturates
	qc = scalarSignedSaturatedNarrowToUnsigned32(&out, &in)
	require.Equal(t, byte(1), qc)
	require.Equal(t, uint64(0), lane(&out, 16, 0))

	var u vec
	setLane(&u, 16, 0, 0x1FF)
	setLane(&u, 16, 1, 0x7F)
	qc = scalarUnsignedSaturatedNarrow(&out, &u, 16)
	require.Equal(t, byte(1), qc)
	require.Equal(t, uint64(0xFF), lane(&out, 8, 0))
	require.Equal(t, uint64(0x7F), lane(&out, 8, 1))
}

// Scenario: defaults zero, one table vector 00 11 22 ... FF, identity
// indices select the table unchanged; an out-of-range index keeps the
// preloaded default.
func TestScalarTableLookup(t *testing.T) {
	var table [4]vec
	for i := 0; i < 16; i++ {
		table[0][i] = byte(i * 0x11)
	}
	var result, indices vec
	for i := 0; i < 16; i++ {
		indices[i] = byte(i)
	}
	scalarTableLookup(&table, &result, &indices, 1)
	for i := 0; i < 16; i++ {
		require.Equal(t, byte(i*0x11), result[i])
	}

	result = vec{}
	result[3] = 0x77 // preloaded default survives
	indices[3] = 0x25
	scalarTableLookup(&table, &result, &indices, 1)
	require.Equal(t, byte(0x77), result[3])

	// With two tables the same selector lands in table[1].
	table[1][5] = 0xAB
	indices[3] = 0x15
	scalarTableLookup(&table, &result, &indices, 2)
	require.Equal(t, byte(0xAB), result[3])
}

func TestLaneRoundTrip(t *testing.T) {
	var v vec
	for _, esize := range []uint{8, 16, 32, 64} {
		for i := 0; i < int(128/esize); i++ {
			setLane(&v, esize, i, uint64(i)+1)
		}
		for i := 0; i < int(128/esize); i++ {
			require.Equal(t, uint64(i)+1, lane(&v, esize, i))
		}
	}
	require.Equal(t, int64(-1), signExtend(0xFF, 8))
	require.Equal(t, int64(127), signExtend(0x7F, 8))
	require.Equal(t, int64(-0x8000), signExtend(0x8000, 16))
}
