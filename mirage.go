// Package mirage is a dynamic binary translator backend: it lowers an
// architecture-neutral stream of 128-bit vector micro-operations (package
// ir) to native host machine code.
//
// Only x86-64 hosts are supported. Lowering decisions are made statically
// at emission time from the host CPU feature set; every feature path of an
// opcode produces bit-identical results.
package mirage

import "github.com/miragevm/mirage/internal/platform"

// HostFeatures describes the host CPU capabilities the backend multiplexes
// its lowerings on, as a printable string (e.g. "SSSE3|SSE4.1|AVX").
func HostFeatures() string {
	return platform.CpuFeatures().String()
}
