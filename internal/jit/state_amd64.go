//go:build amd64
// +build amd64

package jit

import (
	"unsafe"

	"github.com/miragevm/mirage/internal/asm/amd64"
)

// reservedRegisterForState R15: pointer to the guest State record. Every
// state access — vector loads and stores, spill slots, the saturation
// flag — is an offset off this register.
const reservedRegisterForState = amd64.RegR15

// State is the guest CPU state record addressed by the reserved register.
// Emitted code never sees this type; it sees the byte offsets derived below.
type State struct {
	// Vec holds the guest 128-bit vector registers.
	Vec [32][2]uint64
	// FpsrQC is the sticky saturation flag. Emitted code only ever ORs
	// into it; clearing is the runtime's responsibility.
	FpsrQC byte

	_ [15]byte // keep Spill 16-byte aligned

	// Spill is the register allocator's scratch area. XMM values spilled
	// across host calls or under register pressure land here.
	Spill [32][2]uint64
}

// StateLayout carries the offsets emitted code uses relative to the state
// base register.
type StateLayout struct {
	VecOffset    int64
	FpsrQCOffset int64
	SpillOffset  int64
	SpillSlots   int
}

// DefaultStateLayout describes State above.
func DefaultStateLayout() StateLayout {
	var s State
	return StateLayout{
		VecOffset:    int64(unsafe.Offsetof(s.Vec)),
		FpsrQCOffset: int64(unsafe.Offsetof(s.FpsrQC)),
		SpillOffset:  int64(unsafe.Offsetof(s.Spill)),
		SpillSlots:   len(s.Spill),
	}
}

func (l StateLayout) spillSlotOffset(slot int) int64 {
	return l.SpillOffset + int64(slot)*16
}
