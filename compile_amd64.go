//go:build amd64
// +build amd64

package mirage

import (
	"github.com/miragevm/mirage/internal/jit"
	"github.com/miragevm/mirage/internal/platform"
	"github.com/miragevm/mirage/ir"
)

// CompileVectorBlock lowers one basic block of vector IR to x86-64 machine
// code, using the host's CPU features. The returned bytes are the
// instruction stream with the block's 16-byte-aligned constant pool
// appended; the code expects the guest state pointer in R15.
func CompileVectorBlock(block *ir.Block) ([]byte, error) {
	c, err := jit.NewCompiler(platform.CpuFeatures(), jit.DefaultStateLayout())
	if err != nil {
		return nil, err
	}
	return c.Compile(block)
}
