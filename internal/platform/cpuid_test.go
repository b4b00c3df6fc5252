package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeatureHas(t *testing.T) {
	s := SSSE3 | SSE41 | AVX
	require.True(t, s.Has(SSSE3))
	require.True(t, s.Has(SSSE3|SSE41))
	require.False(t, s.Has(SSE42))
	require.False(t, s.Has(AVX512DQ|AVX512VL))
	require.True(t, Feature(0).Has(0))
}

func TestFeatureString(t *testing.T) {
	require.Equal(t, "SSSE3|AVX512_BITALG", (SSSE3 | AVX512BITALG).String())
	require.Equal(t, "", Feature(0).String())
}

func TestCpuFeaturesMonotone(t *testing.T) {
	// Whatever the host is, SSE4.2 implies SSE4.1 on every CPU we run on;
	// mostly this pins that CpuFeatures does not invent bits.
	s := CpuFeatures()
	if s.Has(AVX2) {
		require.True(t, s.Has(AVX))
	}
	if s.Has(SSE42) {
		require.True(t, s.Has(SSE41))
	}
}
