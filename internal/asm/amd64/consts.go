package amd64

import "github.com/miragevm/mirage/internal/asm"

// amd64 registers.
//
// Note: naming convention matches the Go assembler: https://go.dev/doc/asm
const (
	RegAX asm.Register = asm.NilRegister + 1 + iota
	RegCX
	RegDX
	RegBX
	RegSP
	RegBP
	RegSI
	RegDI
	RegR8
	RegR9
	RegR10
	RegR11
	RegR12
	RegR13
	RegR14
	RegR15
	RegX0
	RegX1
	RegX2
	RegX3
	RegX4
	RegX5
	RegX6
	RegX7
	RegX8
	RegX9
	RegX10
	RegX11
	RegX12
	RegX13
	RegX14
	RegX15
)

// IsXmmRegister reports whether reg names one of the 128-bit registers.
func IsXmmRegister(reg asm.Register) bool { return reg >= RegX0 && reg <= RegX15 }

var registerNames = [...]string{
	RegAX: "AX", RegCX: "CX", RegDX: "DX", RegBX: "BX",
	RegSP: "SP", RegBP: "BP", RegSI: "SI", RegDI: "DI",
	RegR8: "R8", RegR9: "R9", RegR10: "R10", RegR11: "R11",
	RegR12: "R12", RegR13: "R13", RegR14: "R14", RegR15: "R15",
	RegX0: "X0", RegX1: "X1", RegX2: "X2", RegX3: "X3",
	RegX4: "X4", RegX5: "X5", RegX6: "X6", RegX7: "X7",
	RegX8: "X8", RegX9: "X9", RegX10: "X10", RegX11: "X11",
	RegX12: "X12", RegX13: "X13", RegX14: "X14", RegX15: "X15",
}

// RegisterName returns the Go assembler name of reg.
func RegisterName(reg asm.Register) string {
	if int(reg) < len(registerNames) && registerNames[reg] != "" {
		return registerNames[reg]
	}
	return "nil"
}

// amd64 instructions used by the vector backend.
// https://www.felixcloutier.com/x86/index.html
//
// Note: we only define the instructions this backend emits. Naming follows
// the Go assembler, with the Intel dword suffix (D) kept where the Go name
// differs only by the L/D convention; the golang-asm mapping table in
// impl.go is the single source of truth for the encoding.
const (
	NONE asm.Instruction = iota
	NOP
	RET
	CALL

	// General purpose.
	MOVB
	MOVL
	MOVQ
	MOVBLZX
	MOVWLZX
	LEAQ
	ADDQ
	SUBQ
	IMULQ
	ANDL
	ORL
	ORB
	SHLL
	SHRL
	SARQ
	TESTL
	CMPL
	SETNE

	// 128-bit moves.
	MOVDQA
	MOVDQU
	MOVAPS
	MOVSD

	// SSE2 packed integer.
	PADDB
	PADDW
	PADDD
	PADDQ
	PSUBB
	PSUBW
	PSUBD
	PSUBQ
	PADDSB
	PADDSW
	PSUBSB
	PSUBSW
	PADDUSB
	PADDUSW
	PSUBUSB
	PSUBUSW
	PAND
	PANDN
	POR
	PXOR
	PAVGB
	PAVGW
	PCMPEQB
	PCMPEQW
	PCMPEQD
	PCMPGTB
	PCMPGTW
	PCMPGTD
	PMAXSW
	PMAXUB
	PMINSW
	PMINUB
	PMULLW
	PMULHW
	PMULUDQ
	PMADDWD
	PACKSSWB
	PACKSSDW
	PACKUSWB
	PUNPCKLBW
	PUNPCKLWD
	PUNPCKLDQ
	PUNPCKLQDQ
	PUNPCKHBW
	PUNPCKHWD
	PUNPCKHDQ
	PUNPCKHQDQ
	PSLLW
	PSLLD
	PSLLQ
	PSRLW
	PSRLD
	PSRLQ
	PSRAW
	PSRAD
	PSLLDQ
	PSRLDQ
	PSHUFD
	PSHUFHW
	PSHUFLW
	SHUFPS
	PMOVMSKB
	MOVMSKPS
	PINSRW
	PEXTRW

	// SSSE3.
	PSHUFB
	PABSB
	PABSW
	PABSD
	PHADDW
	PHADDD

	// SSE4.1.
	PTEST
	PBLENDW
	PBLENDVB
	PEXTRB
	PEXTRD
	PEXTRQ
	PINSRB
	PINSRD
	PINSRQ
	PMOVSXBW
	PMOVSXWD
	PMOVSXDQ
	PMOVZXBW
	PMOVZXWD
	PMOVZXDQ
	PACKUSDW
	PMULLD
	PMULDQ
	PCMPEQQ
	PMAXSB
	PMAXSD
	PMAXUW
	PMAXUD
	PMINSB
	PMINSD
	PMINUW
	PMINUD

	// SSE4.2.
	PCMPGTQ

	// VEX encodings.
	VMOVQ
	VMOVDQA
	VPSUBQ
	VPADDUSB
	VPCMPEQB
	VPCMPGTQ
	VPBROADCASTB
	VPBROADCASTW
	VPBROADCASTD
	VPBROADCASTQ

	// EVEX encodings (AVX-512).
	VPABSQ
	VPSRAQ
	VPSLLQ
	VPADDQ
	VPMAXSQ
	VPMAXUQ
	VPMINSQ
	VPMINUQ
	VPMULLQ
	VPMOVWB
	VPOPCNTB

	instructionEnd
)

var instructionNames = [...]string{
	NOP: "NOP", RET: "RET", CALL: "CALL",
	MOVB: "MOVB", MOVL: "MOVL", MOVQ: "MOVQ", MOVBLZX: "MOVBLZX", MOVWLZX: "MOVWLZX",
	LEAQ: "LEAQ", ADDQ: "ADDQ", SUBQ: "SUBQ", IMULQ: "IMULQ",
	ANDL: "ANDL", ORL: "ORL", ORB: "ORB", SHLL: "SHLL", SHRL: "SHRL", SARQ: "SARQ",
	TESTL: "TESTL", CMPL: "CMPL", SETNE: "SETNE",
	MOVDQA: "MOVDQA", MOVDQU: "MOVDQU", MOVAPS: "MOVAPS", MOVSD: "MOVSD",
	PADDB: "PADDB", PADDW: "PADDW", PADDD: "PADDD", PADDQ: "PADDQ",
	PSUBB: "PSUBB", PSUBW: "PSUBW", PSUBD: "PSUBD", PSUBQ: "PSUBQ",
	PADDSB: "PADDSB", PADDSW: "PADDSW", PSUBSB: "PSUBSB", PSUBSW: "PSUBSW",
	PADDUSB: "PADDUSB", PADDUSW: "PADDUSW", PSUBUSB: "PSUBUSB", PSUBUSW: "PSUBUSW",
	PAND: "PAND", PANDN: "PANDN", POR: "POR", PXOR: "PXOR",
	PAVGB: "PAVGB", PAVGW: "PAVGW",
	PCMPEQB: "PCMPEQB", PCMPEQW: "PCMPEQW", PCMPEQD: "PCMPEQD",
	PCMPGTB: "PCMPGTB", PCMPGTW: "PCMPGTW", PCMPGTD: "PCMPGTD",
	PMAXSW: "PMAXSW", PMAXUB: "PMAXUB", PMINSW: "PMINSW", PMINUB: "PMINUB",
	PMULLW: "PMULLW", PMULHW: "PMULHW", PMULUDQ: "PMULUDQ", PMADDWD: "PMADDWD",
	PACKSSWB: "PACKSSWB", PACKSSDW: "PACKSSDW", PACKUSWB: "PACKUSWB",
	PUNPCKLBW: "PUNPCKLBW", PUNPCKLWD: "PUNPCKLWD", PUNPCKLDQ: "PUNPCKLDQ", PUNPCKLQDQ: "PUNPCKLQDQ",
	PUNPCKHBW: "PUNPCKHBW", PUNPCKHWD: "PUNPCKHWD", PUNPCKHDQ: "PUNPCKHDQ", PUNPCKHQDQ: "PUNPCKHQDQ",
	PSLLW: "PSLLW", PSLLD: "PSLLD", PSLLQ: "PSLLQ",
	PSRLW: "PSRLW", PSRLD: "PSRLD", PSRLQ: "PSRLQ", PSRAW: "PSRAW", PSRAD: "PSRAD",
	PSLLDQ: "PSLLDQ", PSRLDQ: "PSRLDQ",
	PSHUFD: "PSHUFD", PSHUFHW: "PSHUFHW", PSHUFLW: "PSHUFLW", SHUFPS: "SHUFPS",
	PMOVMSKB: "PMOVMSKB", MOVMSKPS: "MOVMSKPS", PINSRW: "PINSRW", PEXTRW: "PEXTRW",
	PSHUFB: "PSHUFB", PABSB: "PABSB", PABSW: "PABSW", PABSD: "PABSD",
	PHADDW: "PHADDW", PHADDD: "PHADDD",
	PTEST: "PTEST", PBLENDW: "PBLENDW", PBLENDVB: "PBLENDVB",
	PEXTRB: "PEXTRB", PEXTRD: "PEXTRD", PEXTRQ: "PEXTRQ",
	PINSRB: "PINSRB", PINSRD: "PINSRD", PINSRQ: "PINSRQ",
	PMOVSXBW: "PMOVSXBW", PMOVSXWD: "PMOVSXWD", PMOVSXDQ: "PMOVSXDQ",
	PMOVZXBW: "PMOVZXBW", PMOVZXWD: "PMOVZXWD", PMOVZXDQ: "PMOVZXDQ",
	PACKUSDW: "PACKUSDW", PMULLD: "PMULLD", PMULDQ: "PMULDQ",
	PCMPEQQ: "PCMPEQQ", PCMPGTQ: "PCMPGTQ",
	PMAXSB: "PMAXSB", PMAXSD: "PMAXSD", PMAXUW: "PMAXUW", PMAXUD: "PMAXUD",
	PMINSB: "PMINSB", PMINSD: "PMINSD", PMINUW: "PMINUW", PMINUD: "PMINUD",
	VMOVQ: "VMOVQ", VMOVDQA: "VMOVDQA", VPSUBQ: "VPSUBQ", VPADDUSB: "VPADDUSB",
	VPCMPEQB: "VPCMPEQB", VPCMPGTQ: "VPCMPGTQ",
	VPBROADCASTB: "VPBROADCASTB", VPBROADCASTW: "VPBROADCASTW",
	VPBROADCASTD: "VPBROADCASTD", VPBROADCASTQ: "VPBROADCASTQ",
	VPABSQ: "VPABSQ", VPSRAQ: "VPSRAQ", VPSLLQ: "VPSLLQ", VPADDQ: "VPADDQ",
	VPMAXSQ: "VPMAXSQ", VPMAXUQ: "VPMAXUQ", VPMINSQ: "VPMINSQ", VPMINUQ: "VPMINUQ",
	VPMULLQ: "VPMULLQ", VPMOVWB: "VPMOVWB", VPOPCNTB: "VPOPCNTB",
}

// InstructionName returns the mnemonic of inst.
func InstructionName(inst asm.Instruction) string {
	if int(inst) < len(instructionNames) && instructionNames[inst] != "" {
		return instructionNames[inst]
	}
	return "Unknown"
}
