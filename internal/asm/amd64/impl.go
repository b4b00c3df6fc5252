package amd64

import (
	"encoding/binary"
	"fmt"

	goasm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/miragevm/mirage/internal/asm"
)

// node implements asm.Node for golang-asm programs.
type node struct {
	prog *obj.Prog
}

// OffsetInBinary implements asm.Node. Only valid after Assemble.
func (n *node) OffsetInBinary() int64 { return n.prog.Pc }

// Assembler emits amd64 machine code through the golang-asm builder and
// owns the block's static constant pool. Static-const memory operands are
// emitted RIP-relative: while building we encode them against a BP base
// with a displacement placeholder, and Assemble rewrites each use site into
// the RIP-relative form pointing into the pool appended after the code.
type Assembler struct {
	b    *goasm.Builder
	pool *asm.ConstPool

	staticConstUses []staticConstUse

	// onGenerateCallbacks run against the final binary, after the pool is
	// flushed and const uses are patched.
	onGenerateCallbacks []func(code []byte) error
}

type staticConstUse struct {
	prog *obj.Prog
	c    *asm.StaticConst
}

// NewAssembler returns an assembler with an empty buffer and pool.
func NewAssembler() (*Assembler, error) {
	b, err := goasm.NewBuilder("amd64", 1024)
	if err != nil {
		return nil, fmt.Errorf("failed to create a new assembly builder: %w", err)
	}
	return &Assembler{b: b, pool: asm.NewConstPool()}, nil
}

// MConst interns the 16-byte literal (lo, hi) in the block's constant pool.
// Equal literals share one entry.
func (a *Assembler) MConst(lo, hi uint64) *asm.StaticConst { return a.pool.Add(lo, hi) }

// ConstPool exposes the pool, mainly so tests can assert deduplication.
func (a *Assembler) ConstPool() *asm.ConstPool { return a.pool }

func (a *Assembler) newProg() *obj.Prog {
	return a.b.NewProg()
}

func (a *Assembler) addInstruction(p *obj.Prog) {
	a.b.AddInstruction(p)
}

// AddOnGenerateCallBack registers a hook run against the assembled binary.
func (a *Assembler) AddOnGenerateCallBack(cb func(code []byte) error) {
	a.onGenerateCallbacks = append(a.onGenerateCallbacks, cb)
}

// CompileStandAlone emits an operand-less instruction.
func (a *Assembler) CompileStandAlone(inst asm.Instruction) asm.Node {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[inst]
	a.addInstruction(p)
	return &node{prog: p}
}

// CompileRegisterToRegister emits "inst from, to".
func (a *Assembler) CompileRegisterToRegister(inst asm.Instruction, from, to asm.Register) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[inst]
	p.From.Type = obj.TYPE_REG
	p.From.Reg = castAsGolangAsmRegister[from]
	p.To.Type = obj.TYPE_REG
	p.To.Reg = castAsGolangAsmRegister[to]
	a.addInstruction(p)
}

// CompileRegisterToRegisterWithArg emits "inst $arg, from, to", the form
// used by the imm8-carrying SSE instructions (PSHUFD, PEXTR*, PINSR*,
// PBLENDW, SHUFPS, VPSRAQ, ...).
func (a *Assembler) CompileRegisterToRegisterWithArg(inst asm.Instruction, from, to asm.Register, arg byte) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[inst]
	p.From.Type = obj.TYPE_CONST
	p.From.Offset = int64(arg)
	p.RestArgs = append(p.RestArgs,
		obj.Addr{Type: obj.TYPE_REG, Reg: castAsGolangAsmRegister[from]})
	p.To.Type = obj.TYPE_REG
	p.To.Reg = castAsGolangAsmRegister[to]
	a.addInstruction(p)
}

// CompileTwoRegistersToRegister emits the three-operand VEX/EVEX form
// "inst src2, src1, dst" (e.g. VPSUBQ: dst = src1 - src2).
func (a *Assembler) CompileTwoRegistersToRegister(inst asm.Instruction, src2, src1, dst asm.Register) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[inst]
	p.From.Type = obj.TYPE_REG
	p.From.Reg = castAsGolangAsmRegister[src2]
	p.RestArgs = append(p.RestArgs,
		obj.Addr{Type: obj.TYPE_REG, Reg: castAsGolangAsmRegister[src1]})
	p.To.Type = obj.TYPE_REG
	p.To.Reg = castAsGolangAsmRegister[dst]
	a.addInstruction(p)
}

// CompileConstToRegister emits "inst $value, to".
func (a *Assembler) CompileConstToRegister(inst asm.Instruction, value asm.ConstantValue, to asm.Register) asm.Node {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[inst]
	p.From.Type = obj.TYPE_CONST
	p.From.Offset = value
	p.To.Type = obj.TYPE_REG
	p.To.Reg = castAsGolangAsmRegister[to]
	a.addInstruction(p)
	return &node{prog: p}
}

// CompileRegisterToConst emits "inst from, $value" (CMP/TEST style).
func (a *Assembler) CompileRegisterToConst(inst asm.Instruction, from asm.Register, value asm.ConstantValue) asm.Node {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[inst]
	p.From.Type = obj.TYPE_REG
	p.From.Reg = castAsGolangAsmRegister[from]
	p.To.Type = obj.TYPE_CONST
	p.To.Offset = value
	a.addInstruction(p)
	return &node{prog: p}
}

// CompileNoneToRegister emits "inst to" (SETcc style).
func (a *Assembler) CompileNoneToRegister(inst asm.Instruction, to asm.Register) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[inst]
	p.To.Type = obj.TYPE_REG
	p.To.Reg = castAsGolangAsmRegister[to]
	a.addInstruction(p)
}

// CompileMemoryToRegister emits "inst offset(base), to".
func (a *Assembler) CompileMemoryToRegister(inst asm.Instruction, base asm.Register, offset asm.ConstantValue, to asm.Register) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[inst]
	p.From.Type = obj.TYPE_MEM
	p.From.Reg = castAsGolangAsmRegister[base]
	p.From.Offset = offset
	p.To.Type = obj.TYPE_REG
	p.To.Reg = castAsGolangAsmRegister[to]
	a.addInstruction(p)
}

// CompileRegisterToMemory emits "inst from, offset(base)".
func (a *Assembler) CompileRegisterToMemory(inst asm.Instruction, from, base asm.Register, offset asm.ConstantValue) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[inst]
	p.From.Type = obj.TYPE_REG
	p.From.Reg = castAsGolangAsmRegister[from]
	p.To.Type = obj.TYPE_MEM
	p.To.Reg = castAsGolangAsmRegister[base]
	p.To.Offset = offset
	a.addInstruction(p)
}

// staticConstPlaceholder forces the widest displacement encoding so a
// const use site always ends in ModRM + disp32 that Assemble can rewrite.
const staticConstPlaceholder = 0xffff

// CompileStaticConstToRegister emits "inst [pool constant], to".
func (a *Assembler) CompileStaticConstToRegister(inst asm.Instruction, c *asm.StaticConst, to asm.Register) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[inst]
	p.From.Type = obj.TYPE_MEM
	p.From.Reg = x86.REG_BP
	p.From.Offset = staticConstPlaceholder
	p.To.Type = obj.TYPE_REG
	p.To.Reg = castAsGolangAsmRegister[to]
	a.addInstruction(p)
	a.staticConstUses = append(a.staticConstUses, staticConstUse{prog: p, c: c})
}

// CompileStaticConstAndRegisterToRegister emits the three-operand VEX form
// "inst [pool constant], src1, dst" (e.g. VPADDUSB).
func (a *Assembler) CompileStaticConstAndRegisterToRegister(inst asm.Instruction, c *asm.StaticConst, src1, dst asm.Register) {
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[inst]
	p.From.Type = obj.TYPE_MEM
	p.From.Reg = x86.REG_BP
	p.From.Offset = staticConstPlaceholder
	p.RestArgs = append(p.RestArgs,
		obj.Addr{Type: obj.TYPE_REG, Reg: castAsGolangAsmRegister[src1]})
	p.To.Type = obj.TYPE_REG
	p.To.Reg = castAsGolangAsmRegister[dst]
	a.addInstruction(p)
	a.staticConstUses = append(a.staticConstUses, staticConstUse{prog: p, c: c})
}

// CompileCallFunctionPointer emits an absolute call through tmp:
// MOVQ $fn, tmp; CALL tmp. The caller is responsible for the platform
// calling convention (parameter registers, shadow space).
func (a *Assembler) CompileCallFunctionPointer(fn uintptr, tmp asm.Register) {
	a.CompileConstToRegister(MOVQ, int64(fn), tmp)
	p := a.newProg()
	p.As = castAsGolangAsmInstruction[CALL]
	p.To.Type = obj.TYPE_REG
	p.To.Reg = castAsGolangAsmRegister[tmp]
	a.addInstruction(p)
}

// Assemble finalises the block: encodes the instruction stream, appends the
// 16-byte-aligned constant pool, patches every static-const use site into
// its RIP-relative form, and runs the registered callbacks.
func (a *Assembler) Assemble() ([]byte, error) {
	code := a.b.Assemble()
	codeLen := int64(len(code))
	code = a.pool.Flush(code)

	for _, use := range a.staticConstUses {
		end := codeLen
		if use.prog.Link != nil {
			end = use.prog.Link.Pc
		}
		if end < 6 || end > int64(len(code)) {
			return nil, fmt.Errorf("static constant use site out of range at %#x", end)
		}
		// The BP-based operand encodes as mod=10 reg base=101 followed by
		// disp32; clearing the top mod bit turns it into the RIP-relative
		// form, which differs in that single ModRM bit.
		code[end-5] &= 0b0111_1111
		disp := use.c.OffsetInBinary - end
		binary.LittleEndian.PutUint32(code[end-4:end], uint32(disp))
	}

	for _, cb := range a.onGenerateCallbacks {
		if err := cb(code); err != nil {
			return nil, err
		}
	}
	return code, nil
}

// castAsGolangAsmRegister maps our registers to golang-asm register values.
var castAsGolangAsmRegister = [...]int16{
	RegAX: x86.REG_AX, RegCX: x86.REG_CX, RegDX: x86.REG_DX, RegBX: x86.REG_BX,
	RegSP: x86.REG_SP, RegBP: x86.REG_BP, RegSI: x86.REG_SI, RegDI: x86.REG_DI,
	RegR8: x86.REG_R8, RegR9: x86.REG_R9, RegR10: x86.REG_R10, RegR11: x86.REG_R11,
	RegR12: x86.REG_R12, RegR13: x86.REG_R13, RegR14: x86.REG_R14, RegR15: x86.REG_R15,
	RegX0: x86.REG_X0, RegX1: x86.REG_X1, RegX2: x86.REG_X2, RegX3: x86.REG_X3,
	RegX4: x86.REG_X4, RegX5: x86.REG_X5, RegX6: x86.REG_X6, RegX7: x86.REG_X7,
	RegX8: x86.REG_X8, RegX9: x86.REG_X9, RegX10: x86.REG_X10, RegX11: x86.REG_X11,
	RegX12: x86.REG_X12, RegX13: x86.REG_X13, RegX14: x86.REG_X14, RegX15: x86.REG_X15,
}

// castAsGolangAsmInstruction maps our instruction enum to golang-asm
// opcodes. This table is the single place where the Go assembler's L suffix
// convention for dwords is reconciled with the Intel mnemonics.
var castAsGolangAsmInstruction = [...]obj.As{
	NOP:  obj.ANOP,
	RET:  obj.ARET,
	CALL: obj.ACALL,

	MOVB:    x86.AMOVB,
	MOVL:    x86.AMOVL,
	MOVQ:    x86.AMOVQ,
	MOVBLZX: x86.AMOVBLZX,
	MOVWLZX: x86.AMOVWLZX,
	LEAQ:    x86.ALEAQ,
	ADDQ:    x86.AADDQ,
	SUBQ:    x86.ASUBQ,
	IMULQ:   x86.AIMULQ,
	ANDL:    x86.AANDL,
	ORL:     x86.AORL,
	ORB:     x86.AORB,
	SHLL:    x86.ASHLL,
	SHRL:    x86.ASHRL,
	SARQ:    x86.ASARQ,
	TESTL:   x86.ATESTL,
	CMPL:    x86.ACMPL,
	SETNE:   x86.ASETNE,

	MOVDQA: x86.AMOVO,
	MOVDQU: x86.AMOVOU,
	MOVAPS: x86.AMOVAPS,
	MOVSD:  x86.AMOVSD,

	PADDB:   x86.APADDB,
	PADDW:   x86.APADDW,
	PADDD:   x86.APADDL,
	PADDQ:   x86.APADDQ,
	PSUBB:   x86.APSUBB,
	PSUBW:   x86.APSUBW,
	PSUBD:   x86.APSUBL,
	PSUBQ:   x86.APSUBQ,
	PADDSB:  x86.APADDSB,
	PADDSW:  x86.APADDSW,
	PSUBSB:  x86.APSUBSB,
	PSUBSW:  x86.APSUBSW,
	PADDUSB: x86.APADDUSB,
	PADDUSW: x86.APADDUSW,
	PSUBUSB: x86.APSUBUSB,
	PSUBUSW: x86.APSUBUSW,
	PAND:    x86.APAND,
	PANDN:   x86.APANDN,
	POR:     x86.APOR,
	PXOR:    x86.APXOR,
	PAVGB:   x86.APAVGB,
	PAVGW:   x86.APAVGW,
	PCMPEQB: x86.APCMPEQB,
	PCMPEQW: x86.APCMPEQW,
	PCMPEQD: x86.APCMPEQL,
	PCMPGTB: x86.APCMPGTB,
	PCMPGTW: x86.APCMPGTW,
	PCMPGTD: x86.APCMPGTL,
	PMAXSW:  x86.APMAXSW,
	PMAXUB:  x86.APMAXUB,
	PMINSW:  x86.APMINSW,
	PMINUB:  x86.APMINUB,
	PMULLW:  x86.APMULLW,
	PMULHW:  x86.APMULHW,
	PMULUDQ: x86.APMULULQ,
	PMADDWD: x86.APMADDWL,

	PACKSSWB: x86.APACKSSWB,
	PACKSSDW: x86.APACKSSLW,
	PACKUSWB: x86.APACKUSWB,

	PUNPCKLBW:  x86.APUNPCKLBW,
	PUNPCKLWD:  x86.APUNPCKLWL,
	PUNPCKLDQ:  x86.APUNPCKLLQ,
	PUNPCKLQDQ: x86.APUNPCKLQDQ,
	PUNPCKHBW:  x86.APUNPCKHBW,
	PUNPCKHWD:  x86.APUNPCKHWL,
	PUNPCKHDQ:  x86.APUNPCKHLQ,
	PUNPCKHQDQ: x86.APUNPCKHQDQ,

	PSLLW:  x86.APSLLW,
	PSLLD:  x86.APSLLL,
	PSLLQ:  x86.APSLLQ,
	PSRLW:  x86.APSRLW,
	PSRLD:  x86.APSRLL,
	PSRLQ:  x86.APSRLQ,
	PSRAW:  x86.APSRAW,
	PSRAD:  x86.APSRAL,
	PSLLDQ: x86.APSLLO,
	PSRLDQ: x86.APSRLO,

	PSHUFD:   x86.APSHUFD,
	PSHUFHW:  x86.APSHUFHW,
	PSHUFLW:  x86.APSHUFLW,
	SHUFPS:   x86.ASHUFPS,
	PMOVMSKB: x86.APMOVMSKB,
	MOVMSKPS: x86.AMOVMSKPS,
	PINSRW:   x86.APINSRW,
	PEXTRW:   x86.APEXTRW,

	PSHUFB: x86.APSHUFB,
	PABSB:  x86.APABSB,
	PABSW:  x86.APABSW,
	PABSD:  x86.APABSD,
	PHADDW: x86.APHADDW,
	PHADDD: x86.APHADDD,

	PTEST:    x86.APTEST,
	PBLENDW:  x86.APBLENDW,
	PBLENDVB: x86.APBLENDVB,
	PEXTRB:   x86.APEXTRB,
	PEXTRD:   x86.APEXTRD,
	PEXTRQ:   x86.APEXTRQ,
	PINSRB:   x86.APINSRB,
	PINSRD:   x86.APINSRD,
	PINSRQ:   x86.APINSRQ,
	PMOVSXBW: x86.APMOVSXBW,
	PMOVSXWD: x86.APMOVSXWD,
	PMOVSXDQ: x86.APMOVSXDQ,
	PMOVZXBW: x86.APMOVZXBW,
	PMOVZXWD: x86.APMOVZXWD,
	PMOVZXDQ: x86.APMOVZXDQ,
	PACKUSDW: x86.APACKUSDW,
	PMULLD:   x86.APMULLD,
	PMULDQ:   x86.APMULDQ,
	PCMPEQQ:  x86.APCMPEQQ,
	PCMPGTQ:  x86.APCMPGTQ,
	PMAXSB:   x86.APMAXSB,
	PMAXSD:   x86.APMAXSD,
	PMAXUW:   x86.APMAXUW,
	PMAXUD:   x86.APMAXUD,
	PMINSB:   x86.APMINSB,
	PMINSD:   x86.APMINSD,
	PMINUW:   x86.APMINUW,
	PMINUD:   x86.APMINUD,

	VMOVQ:        x86.AVMOVQ,
	VMOVDQA:      x86.AVMOVDQA,
	VPSUBQ:       x86.AVPSUBQ,
	VPADDUSB:     x86.AVPADDUSB,
	VPCMPEQB:     x86.AVPCMPEQB,
	VPCMPGTQ:     x86.AVPCMPGTQ,
	VPBROADCASTB: x86.AVPBROADCASTB,
	VPBROADCASTW: x86.AVPBROADCASTW,
	VPBROADCASTD: x86.AVPBROADCASTD,
	VPBROADCASTQ: x86.AVPBROADCASTQ,

	VPABSQ:   x86.AVPABSQ,
	VPSRAQ:   x86.AVPSRAQ,
	VPSLLQ:   x86.AVPSLLQ,
	VPADDQ:   x86.AVPADDQ,
	VPMAXSQ:  x86.AVPMAXSQ,
	VPMAXUQ:  x86.AVPMAXUQ,
	VPMINSQ:  x86.AVPMINSQ,
	VPMINUQ:  x86.AVPMINUQ,
	VPMULLQ:  x86.AVPMULLQ,
	VPMOVWB:  x86.AVPMOVWB,
	VPOPCNTB: x86.AVPOPCNTB,
}
