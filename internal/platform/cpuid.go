// Package platform answers static questions about the host CPU. The answers
// never change after process start, so emitters may branch on them freely
// while staying deterministic per emission.
package platform

import (
	"strings"

	"golang.org/x/sys/cpu"
)

// Feature is a bitset of the host CPU capabilities the backend multiplexes
// lowerings on.
type Feature uint32

const (
	SSE3 Feature = 1 << iota
	SSSE3
	SSE41
	SSE42
	AVX
	AVX2
	AVX512F
	AVX512VL
	AVX512BW
	AVX512DQ
	AVX512BITALG
)

var featureNames = []struct {
	f    Feature
	name string
}{
	{SSE3, "SSE3"},
	{SSSE3, "SSSE3"},
	{SSE41, "SSE4.1"},
	{SSE42, "SSE4.2"},
	{AVX, "AVX"},
	{AVX2, "AVX2"},
	{AVX512F, "AVX512F"},
	{AVX512VL, "AVX512VL"},
	{AVX512BW, "AVX512BW"},
	{AVX512DQ, "AVX512DQ"},
	{AVX512BITALG, "AVX512_BITALG"},
}

// Has reports whether every feature in f is present in the set.
func (s Feature) Has(f Feature) bool { return s&f == f }

func (s Feature) String() string {
	var names []string
	for _, fn := range featureNames {
		if s.Has(fn.f) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}

// CpuFeatures reads the host feature set once via CPUID.
func CpuFeatures() Feature {
	var s Feature
	x := cpu.X86
	if x.HasSSE3 {
		s |= SSE3
	}
	if x.HasSSSE3 {
		s |= SSSE3
	}
	if x.HasSSE41 {
		s |= SSE41
	}
	if x.HasSSE42 {
		s |= SSE42
	}
	if x.HasAVX {
		s |= AVX
	}
	if x.HasAVX2 {
		s |= AVX2
	}
	if x.HasAVX512F {
		s |= AVX512F
	}
	if x.HasAVX512VL {
		s |= AVX512VL
	}
	if x.HasAVX512BW {
		s |= AVX512BW
	}
	if x.HasAVX512DQ {
		s |= AVX512DQ
	}
	if x.HasAVX512BITALG {
		s |= AVX512BITALG
	}
	return s
}
