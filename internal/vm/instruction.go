package vm

import "github.com/empower1/evmsim/internal/evmcore"

// Instruction is a single decoded step: an opcode plus, for PUSH, its
// immediate operand.
type Instruction struct {
	PC     uint64
	Op     OpCode
	Pushed []byte // immediate bytes for PUSH1..PUSH32; nil otherwise
}

// PC walks a code buffer one instruction at a time, advancing past PUSH
// immediates the way a real program counter does.
type PC struct {
	code   evmcore.Bytes
	offset uint64
}

// NewPC returns a program counter positioned at the start of code.
func NewPC(code evmcore.Bytes) *PC {
	return &PC{code: code}
}

// Offset returns the current byte offset into code.
func (p *PC) Offset() uint64 { return p.offset }

// AtEnd reports whether the counter has walked off the end of code.
func (p *PC) AtEnd() bool { return p.offset >= uint64(len(p.code)) }

// Jump moves the counter to an arbitrary offset, as JUMP/JUMPI do. No
// JUMPDEST validation is performed: a jump past the end of code simply
// ends the run on the next AtEnd check, matching the permissive jump
// semantics this simulator's instruction set documents.
func (p *PC) Jump(to uint64) { p.offset = to }

// Next decodes the instruction at the current offset and advances past it.
// A byte with no PUSH width decodes as-is, including unassigned opcodes,
// which the VM dispatch loop treats as INVALID.
func (p *PC) Next() Instruction {
	at := p.offset
	op := OpCode(p.code[at])
	inst := Instruction{PC: at, Op: op}

	if n, ok := op.IsPush(); ok {
		start := at + 1
		end := start + uint64(n)
		inst.Pushed = evmcore.Bytes(p.code).Slice(start, uint64(n))
		p.offset = end
		return inst
	}

	p.offset = at + 1
	return inst
}
