package jit

import (
	"encoding/binary"
	"math/bits"
)

// vec is a 128-bit value spilled to memory for a scalar fallback, in
// little-endian lane order.
type vec = [16]byte

//go:nosplit
func lane(v *vec, esize uint, i int) uint64 {
	switch esize {
	case 8:
		return uint64(v[i])
	case 16:
		return uint64(binary.LittleEndian.Uint16(v[i*2:]))
	case 32:
		return uint64(binary.LittleEndian.Uint32(v[i*4:]))
	case 64:
		return binary.LittleEndian.Uint64(v[i*8:])
	}
	panic("jit: invalid element size")
}

//go:nosplit
func setLane(v *vec, esize uint, i int, x uint64) {
	switch esize {
	case 8:
		v[i] = byte(x)
	case 16:
		binary.LittleEndian.PutUint16(v[i*2:], uint16(x))
	case 32:
		binary.LittleEndian.PutUint32(v[i*4:], uint32(x))
	case 64:
		binary.LittleEndian.PutUint64(v[i*8:], x)
	}
}

// signExtend interprets the low bits of x as a signed integer.
//go:nosplit
func signExtend(x uint64, bits uint) int64 {
	shift := 64 - bits
	return int64(x<<shift) >> shift
}

//go:nosplit
func laneMask(esize uint) uint64 {
	if esize == 64 {
		return ^uint64(0)
	}
	return (1 << esize) - 1
}

// scalarGreaterS64 writes the all-ones/all-zeros mask of a > b per lane.
//go:nosplit
func scalarGreaterS64(out, a, b *vec) {
	for i := 0; i < 2; i++ {
		var m uint64
		if int64(lane(a, 64, i)) > int64(lane(b, 64, i)) {
			m = ^uint64(0)
		}
		setLane(out, 64, i, m)
	}
}

// scalarLogicalVShift shifts each lane of lhs by the signed byte in the
// corresponding lane of rhs. Positive shifts go left, negative right;
// shifts past the lane width produce zero, except that a signed right
// shift saturates to full sign propagation.
//go:nosplit
func scalarLogicalVShift(out, lhs, rhs *vec, esize uint, signed bool) {
	bitSize := int64(esize)
	for i := 0; i < int(128/esize); i++ {
		x := lane(lhs, esize, i)
		shift := signExtend(lane(rhs, esize, i)&0xFF, 8)

		var result uint64
		switch {
		case signed && shift >= bitSize:
			result = 0
		case signed && shift <= -bitSize:
			result = uint64(signExtend(x, esize)>>(esize-1)) & laneMask(esize)
		case !signed && (shift <= -bitSize || shift >= bitSize):
			result = 0
		case shift < 0:
			if signed {
				result = uint64(signExtend(x, esize)>>uint(-shift)) & laneMask(esize)
			} else {
				result = x >> uint(-shift)
			}
		default:
			result = (x << uint(shift)) & laneMask(esize)
		}
		setLane(out, esize, i, result)
	}
}

// scalarRoundingShiftLeft is the dynamic shift that rounds the last bit
// discarded by a right shift back into the result.
//go:nosplit
func scalarRoundingShiftLeft(out, lhs, rhs *vec, esize uint, signed bool) {
	bitSize := int64(esize)
	for i := 0; i < int(128/esize); i++ {
		x := lane(lhs, esize, i)
		shift := signExtend(lane(rhs, esize, i)&0xFF, 8)

		var result uint64
		switch {
		case shift >= 0:
			if shift >= bitSize {
				result = 0
			} else {
				result = (x << uint(shift)) & laneMask(esize)
			}
		case (!signed && shift < -bitSize) || (signed && shift <= -bitSize):
			result = 0
		default:
			shiftValue := uint(-shift - 1)
			rounding := (x >> shiftValue) & 1
			if shift == -bitSize {
				result = rounding
			} else if signed {
				result = (uint64(signExtend(x, esize)>>uint(-shift)) + rounding) & laneMask(esize)
			} else {
				result = ((x >> uint(-shift)) + rounding) & laneMask(esize)
			}
		}
		setLane(out, esize, i, result)
	}
}

// scalarPairedMinMax computes sequential pairwise min/max: the low half of
// the result comes from x's pairs, the high half from y's.
//go:nosplit
func scalarPairedMinMax(out, x, y *vec, esize uint, signed, max bool) {
	pick := func(a, b uint64) uint64 {
		var gt bool
		if signed {
			gt = signExtend(a, esize) > signExtend(b, esize)
		} else {
			gt = a > b
		}
		if gt == max {
			return a
		}
		return b
	}
	n := int(128 / esize)
	half := n / 2
	var tmp vec
	for i := 0; i < half; i++ {
		setLane(&tmp, esize, i, pick(lane(x, esize, 2*i), lane(x, esize, 2*i+1)))
	}
	for i := 0; i < half; i++ {
		setLane(&tmp, esize, half+i, pick(lane(y, esize, 2*i), lane(y, esize, 2*i+1)))
	}
	*out = tmp
}

// scalarMinMax64 is the element-wise 64-bit min/max used when neither
// AVX-512 nor the AVX compare-blend path is available.
//go:nosplit
func scalarMinMax64(out, a, b *vec, signed, max bool) {
	for i := 0; i < 2; i++ {
		x, y := lane(a, 64, i), lane(b, 64, i)
		var gt bool
		if signed {
			gt = int64(x) > int64(y)
		} else {
			gt = x > y
		}
		if gt == max {
			setLane(out, 64, i, x)
		} else {
			setLane(out, 64, i, y)
		}
	}
}

// polynomialMultiply is the carry-less product over GF(2)[x]:
// for each set bit i of lhs, result ^= rhs << i.
//go:nosplit
func polynomialMultiply(lhs, rhs uint64, bitSize uint) uint64 {
	var res uint64
	for i := uint(0); i < bitSize; i++ {
		if lhs&(1<<i) != 0 {
			res ^= rhs << i
		}
	}
	return res
}

//go:nosplit
func scalarPolynomialMultiply8(out, a, b *vec) {
	for i := 0; i < 16; i++ {
		out[i] = byte(polynomialMultiply(uint64(a[i]), uint64(b[i]), 8))
	}
}

// scalarPolynomialMultiplyLong8 widens: the low 8 bytes of each operand
// produce 8 halfword products.
//go:nosplit
func scalarPolynomialMultiplyLong8(out, a, b *vec) {
	var tmp vec
	for i := 0; i < 8; i++ {
		setLane(&tmp, 16, i, polynomialMultiply(uint64(a[i]), uint64(b[i]), 8)&0xFFFF)
	}
	*out = tmp
}

// scalarPolynomialMultiplyLong64 produces the full 128-bit carry-less
// product of the low quadwords.
//go:nosplit
func scalarPolynomialMultiplyLong64(out, a, b *vec) {
	lhs, rhs := lane(a, 64, 0), lane(b, 64, 0)
	lo := polynomialMultiply(lhs, rhs, 64)
	var hi uint64
	for i := uint(1); i < 64; i++ {
		if lhs&(1<<i) != 0 {
			hi ^= rhs >> (64 - i)
		}
	}
	setLane(out, 64, 0, lo)
	setLane(out, 64, 1, hi)
}

//go:nosplit
func scalarPopulationCount(out, a *vec) {
	for i := 0; i < 16; i++ {
		out[i] = byte(bits.OnesCount8(a[i]))
	}
}

//go:nosplit
func scalarSignedSaturatedAbs64(out, a *vec) byte {
	var qc byte
	for i := 0; i < 2; i++ {
		x := int64(lane(a, 64, i))
		switch {
		case uint64(x) == 0x8000000000000000:
			setLane(out, 64, i, 0x7FFFFFFFFFFFFFFF)
			qc = 1
		case x < 0:
			setLane(out, 64, i, uint64(-x))
		default:
			setLane(out, 64, i, uint64(x))
		}
	}
	return qc
}

//go:nosplit
func scalarSignedSaturatedNeg64(out, a *vec) byte {
	var qc byte
	for i := 0; i < 2; i++ {
		x := int64(lane(a, 64, i))
		if uint64(x) == 0x8000000000000000 {
			setLane(out, 64, i, 0x7FFFFFFFFFFFFFFF)
			qc = 1
		} else {
			setLane(out, 64, i, uint64(-x))
		}
	}
	return qc
}

//go:nosplit
func clampS64(x, lo, hi int64) int64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

//go:nosplit
func scalarSignedSaturatedNarrowToSigned64(out, a *vec) byte {
	var qc byte
	var tmp vec
	for i := 0; i < 2; i++ {
		x := int64(lane(a, 64, i))
		saturated := clampS64(x, -0x80000000, 0x7FFFFFFF)
		if saturated != x {
			qc = 1
		}
		setLane(&tmp, 32, i, uint64(uint32(int32(saturated))))
	}
	*out = tmp
	return qc
}

//go:nosplit
func scalarSignedSaturatedNarrowToUnsigned32(out, a *vec) byte {
	var qc byte
	var tmp vec
	for i := 0; i < 4; i++ {
		x := int64(int32(lane(a, 32, i)))
		saturated := clampS64(x, 0, 0xFFFF)
		if saturated != x {
			qc = 1
		}
		setLane(&tmp, 16, i, uint64(uint16(saturated)))
	}
	*out = tmp
	return qc
}

//go:nosplit
func scalarSignedSaturatedNarrowToUnsigned64(out, a *vec) byte {
	var qc byte
	var tmp vec
	for i := 0; i < 2; i++ {
		x := int64(lane(a, 64, i))
		saturated := clampS64(x, 0, 0xFFFFFFFF)
		if saturated != x {
			qc = 1
		}
		setLane(&tmp, 32, i, uint64(uint32(saturated)))
	}
	*out = tmp
	return qc
}

//go:nosplit
func scalarUnsignedSaturatedNarrow(out, a *vec, esize uint) byte {
	var qc byte
	var tmp vec
	narrow := esize / 2
	max := laneMask(narrow)
	for i := 0; i < int(128/esize); i++ {
		x := lane(a, esize, i)
		saturated := x
		if saturated > max {
			saturated = max
			qc = 1
		}
		setLane(&tmp, narrow, i, saturated)
	}
	*out = tmp
	return qc
}

// scalarTableLookup implements the general table lookup: for each result
// byte, indices[i]/16 selects the table vector and indices[i]%16 the byte
// within it; out-of-range selectors leave the preloaded default in place.
//go:nosplit
func scalarTableLookup(table *[4]vec, result, indices *vec, tableSize uint64) {
	for i := 0; i < 16; i++ {
		index := uint64(indices[i] / 16)
		elem := indices[i] % 16
		if index < tableSize {
			result[i] = table[index][elem]
		}
	}
}
