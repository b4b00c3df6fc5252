//go:build amd64 && (linux || darwin)
// +build amd64
// +build linux darwin

package jit

import "syscall"

// mmapCodeSegment copies the code into an executable region and returns
// the byte slice of the region.
func mmapCodeSegment(code []byte) ([]byte, error) {
	mmapFunc, err := syscall.Mmap(
		-1,
		0,
		len(code),
		syscall.PROT_READ|syscall.PROT_WRITE|syscall.PROT_EXEC, syscall.MAP_PRIVATE|syscall.MAP_ANON,
	)
	if err != nil {
		return nil, err
	}
	copy(mmapFunc, code)
	return mmapFunc, nil
}
