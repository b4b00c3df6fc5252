// Package asm holds the architecture-independent assembler types shared by
// the backend: abstract registers and instructions, assembled-node handles,
// and the per-block static constant pool.
package asm

import "encoding/binary"

// Register represents a physical register of the host.
type Register byte

// NilRegister is the zero value, representing an invalid register.
const NilRegister Register = 0

// Instruction represents a host mnemonic. Concrete values live in the
// architecture packages.
type Instruction uint16

// ConstantValue is an immediate operand.
type ConstantValue = int64

// Node is a handle onto one emitted instruction, available once emitted and
// resolvable to its offset after Assemble.
type Node interface {
	// OffsetInBinary returns the offset of this instruction in the
	// assembled binary. Only valid after Assemble.
	OffsetInBinary() int64
}

// StaticConst is one 16-byte literal interned in a block's constant pool.
// Equal literals share one StaticConst (and therefore one pool slot).
type StaticConst struct {
	Lo, Hi uint64

	// OffsetInBinary is the pool slot's offset from the start of the
	// assembled binary, assigned when the pool is flushed.
	OffsetInBinary int64
}

// Bytes returns the literal in little-endian memory order.
func (c *StaticConst) Bytes() []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b[0:], c.Lo)
	binary.LittleEndian.PutUint64(b[8:], c.Hi)
	return b
}

// ConstPool interns 16-byte literals, deduplicated by bit pattern. The pool
// is append-only while a block is being emitted and frozen afterwards.
type ConstPool struct {
	consts map[[2]uint64]*StaticConst
	// Ordered for deterministic flushing.
	ordered []*StaticConst
}

// NewConstPool returns an empty pool.
func NewConstPool() *ConstPool {
	return &ConstPool{consts: map[[2]uint64]*StaticConst{}}
}

// Add interns the literal (lo, hi) and returns its pool entry. Equal
// literals return the same entry.
func (p *ConstPool) Add(lo, hi uint64) *StaticConst {
	key := [2]uint64{lo, hi}
	if c, ok := p.consts[key]; ok {
		return c
	}
	c := &StaticConst{Lo: lo, Hi: hi}
	p.consts[key] = c
	p.ordered = append(p.ordered, c)
	return c
}

// Consts returns the interned literals in insertion order.
func (p *ConstPool) Consts() []*StaticConst { return p.ordered }

// Empty reports whether nothing was interned.
func (p *ConstPool) Empty() bool { return len(p.ordered) == 0 }

// Flush appends the pool to code, 16-byte aligned, assigning each entry's
// OffsetInBinary. It returns the extended buffer.
func (p *ConstPool) Flush(code []byte) []byte {
	if p.Empty() {
		return code
	}
	for len(code)%16 != 0 {
		code = append(code, 0)
	}
	for _, c := range p.ordered {
		c.OffsetInBinary = int64(len(code))
		code = append(code, c.Bytes()...)
	}
	return code
}
