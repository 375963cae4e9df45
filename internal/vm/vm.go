// Package vm implements the bytecode interpreter: a 256-bit stack machine
// that executes deployed contract code against an Ext bridge into world
// state.
package vm

import (
	"fmt"

	"github.com/empower1/evmsim/internal/evmcore"
)

// ResultKind tags what a VM run produced.
type ResultKind int

const (
	ResultOk ResultKind = iota
	ResultStop
	ResultReturn
)

// Result is the outcome of a successful run (no VMError). Ok carries no
// payload; Stop means the contract halted explicitly; Return carries the
// bytes handed back by the RETURN instruction.
type Result struct {
	Kind ResultKind
	Data evmcore.Bytes
}

// ErrorKind classifies why a run aborted.
type ErrorKind int

const (
	ErrKindStackUnderflow ErrorKind = iota
	ErrKindStackOverflow
	// ErrKindInvalidInstruction is reserved: unassigned opcodes halt the run
	// the same way INVALID does and never raise it.
	ErrKindInvalidInstruction
	// ErrKindInvalidJumpDest is reserved for a stricter JUMP/JUMPI policy;
	// the default policy never raises it, since JUMPDEST validation is
	// explicitly not required and an out-of-range jump simply ends the run.
	ErrKindInvalidJumpDest
	ErrKindNotExistedAddress
	// ErrKindNotExistedStorageKey is reserved for a stricter SLOAD policy;
	// the default policy reads missing keys as zero and never raises it.
	ErrKindNotExistedStorageKey
	ErrKindRevert
)

// Error reports an aborted run: which instruction, at which PC, and why.
type Error struct {
	PC          uint64
	Instruction OpCode
	Kind        ErrorKind
	cause       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("vm error at pc=%d (%s): %v", e.PC, e.Instruction, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

func abort(pc uint64, op OpCode, kind ErrorKind, cause error) *Error {
	return &Error{PC: pc, Instruction: op, Kind: kind, cause: cause}
}

// VM drives the fetch-decode-execute loop over one contract invocation.
type VM struct {
	stack  *Stack
	memory *Memory
	code   evmcore.Bytes
	ext    *Ext
}

// New returns a VM ready to execute code against ext.
func New(code evmcore.Bytes, ext *Ext) *VM {
	return &VM{
		stack:  NewStack(),
		memory: NewMemory(),
		code:   code,
		ext:    ext,
	}
}

// Run executes the VM's code from offset 0 until STOP, RETURN, REVERT, or
// running off the end of code (which yields ResultOk), or until an
// instruction aborts the run.
func (m *VM) Run() (*Result, *Error) {
	pc := NewPC(m.code)

	for !pc.AtEnd() {
		inst := pc.Next()

		if n, ok := inst.Op.IsPush(); ok {
			v := new(evmcore.U256).SetBytes(inst.Pushed)
			if err := m.stack.Push(v); err != nil {
				return nil, abort(inst.PC, inst.Op, ErrKindStackOverflow, err)
			}
			_ = n
			continue
		}
		if n, ok := inst.Op.IsDup(); ok {
			if err := m.stack.Dup(n); err != nil {
				return nil, abort(inst.PC, inst.Op, ErrKindStackUnderflow, err)
			}
			continue
		}
		if n, ok := inst.Op.IsSwap(); ok {
			if err := m.stack.Swap(n); err != nil {
				return nil, abort(inst.PC, inst.Op, ErrKindStackUnderflow, err)
			}
			continue
		}
		if topics, ok := inst.Op.IsLog(); ok {
			if verr := m.execLog(topics); verr != nil {
				return nil, abort(inst.PC, inst.Op, ErrKindStackUnderflow, verr)
			}
			continue
		}

		res, jumped, verr := m.step(inst, pc)
		if verr != nil {
			return nil, verr
		}
		if res != nil {
			return res, nil
		}
		if jumped {
			continue
		}
	}

	return &Result{Kind: ResultOk}, nil
}

func (m *VM) execLog(topics int) error {
	if _, err := m.stack.Pop(); err != nil { // offset
		return err
	}
	if _, err := m.stack.Pop(); err != nil { // length
		return err
	}
	for i := 0; i < topics; i++ {
		if _, err := m.stack.Pop(); err != nil {
			return err
		}
	}
	return nil
}

// step executes one non-PUSH/DUP/SWAP/LOG instruction. It returns a
// non-nil Result when the instruction halts the run, jumped=true when it
// already moved pc itself (JUMP/JUMPI), and a *Error on failure.
func (m *VM) step(inst Instruction, pc *PC) (*Result, bool, *Error) {
	s := m.stack

	fail := func(kind ErrorKind, err error) (*Result, bool, *Error) {
		return nil, false, abort(inst.PC, inst.Op, kind, err)
	}

	switch inst.Op {
	case STOP:
		return &Result{Kind: ResultStop}, false, nil

	case ADD:
		x, y, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(new(evmcore.U256).Add(x, y)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case MUL:
		x, y, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(new(evmcore.U256).Mul(x, y)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case SUB:
		x, y, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(new(evmcore.U256).Sub(x, y)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case DIV:
		x, y, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(new(evmcore.U256).Div(x, y)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case SDIV:
		x, y, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(new(evmcore.U256).SDiv(x, y)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case MOD:
		x, y, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(new(evmcore.U256).Mod(x, y)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case SMOD:
		x, y, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(new(evmcore.U256).SMod(x, y)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case ADDMOD:
		x, y, z, err := s.Op3()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(new(evmcore.U256).AddMod(x, y, z)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case MULMOD:
		x, y, z, err := s.Op3()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(new(evmcore.U256).MulMod(x, y, z)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case EXP:
		x, y, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(new(evmcore.U256).Exp(x, y)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case SIGNEXTEND:
		byteNum, value, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(new(evmcore.U256).ExtendSign(value, byteNum)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}

	case LT:
		x, y, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(boolWord(x.Lt(y))); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case GT:
		x, y, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(boolWord(x.Gt(y))); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case SLT:
		x, y, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(boolWord(x.Slt(y))); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case SGT:
		x, y, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(boolWord(x.Sgt(y))); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case EQ:
		x, y, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(boolWord(x.Eq(y))); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case ISZERO:
		x, err := s.Op1()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(boolWord(x.IsZero())); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case AND:
		x, y, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(new(evmcore.U256).And(x, y)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case OR:
		x, y, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(new(evmcore.U256).Or(x, y)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case XOR:
		x, y, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(new(evmcore.U256).Xor(x, y)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case NOT:
		x, err := s.Op1()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(new(evmcore.U256).Not(x)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case BYTE:
		i, x, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(x.Byte(i)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case SHL:
		shiftAmount, value, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(new(evmcore.U256).Lsh(value, uint(shiftAmount.Uint64()))); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case SHR:
		shiftAmount, value, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(new(evmcore.U256).Rsh(value, uint(shiftAmount.Uint64()))); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case SAR:
		shiftAmount, value, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(new(evmcore.U256).SRsh(value, uint(shiftAmount.Uint64()))); err != nil {
			return fail(ErrKindStackOverflow, err)
		}

	case ADDRESS:
		if err := s.Push(evmcore.AddressToH256(m.ext.Address()).U256()); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case BALANCE:
		a, err := s.Op1()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		addr := evmcore.U256ToH256(a).Address()
		bal, berr := m.ext.Balance(addr)
		if berr != nil {
			return fail(ErrKindNotExistedAddress, berr)
		}
		if err := s.Push(evmcore.U256FromUint64(bal)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case ORIGIN:
		if err := s.Push(evmcore.AddressToH256(m.ext.Origin).U256()); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case CALLER:
		if err := s.Push(evmcore.AddressToH256(m.ext.Caller).U256()); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case CALLVALUE:
		if err := s.Push(evmcore.U256FromUint64(m.ext.CallValue)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case CALLDATALOAD:
		off, err := s.Op1()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		word := m.ext.CallDataSlice(off.Uint64(), 32)
		if err := s.Push(new(evmcore.U256).SetBytes(word)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case CALLDATASIZE:
		if err := s.Push(evmcore.U256FromUint64(m.ext.CallDataSize())); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case CALLDATACOPY:
		destOff, off, length, perr := s.popThree()
		if perr != nil {
			return fail(ErrKindStackUnderflow, perr)
		}
		data := m.ext.CallDataSlice(off, length)
		m.memory.Write(destOff, data)
	case CODESIZE:
		if err := s.Push(evmcore.U256FromUint64(m.ext.CodeSize())); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case CODECOPY:
		destOff, off, length, perr := s.popThree()
		if perr != nil {
			return fail(ErrKindStackUnderflow, perr)
		}
		data := m.ext.CodeSlice(off, length)
		m.memory.Write(destOff, data)
	case GASPRICE:
		if err := s.Push(evmcore.U256FromUint64(m.ext.GasPrice)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case EXTCODESIZE:
		a, err := s.Op1()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		size, eerr := m.ext.ExtCodeSize(evmcore.U256ToH256(a).Address())
		if eerr != nil {
			return fail(ErrKindNotExistedAddress, eerr)
		}
		if err := s.Push(evmcore.U256FromUint64(size)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case EXTCODECOPY:
		addrWord, err := s.Op1()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		destOff, off, length, perr := s.popThree()
		if perr != nil {
			return fail(ErrKindStackUnderflow, perr)
		}
		data, eerr := m.ext.ExtCodeSlice(evmcore.U256ToH256(addrWord).Address(), off, length)
		if eerr != nil {
			return fail(ErrKindNotExistedAddress, eerr)
		}
		m.memory.Write(destOff, data)
	case EXTCODEHASH:
		a, err := s.Op1()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		hash, eerr := m.ext.ExtCodeHash(evmcore.U256ToH256(a).Address())
		if eerr != nil {
			return fail(ErrKindNotExistedAddress, eerr)
		}
		if err := s.Push(hash.U256()); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case RETURNDATASIZE:
		if err := s.Push(evmcore.NewU256()); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case RETURNDATACOPY:
		if _, _, _, perr := s.popThree(); perr != nil {
			return fail(ErrKindStackUnderflow, perr)
		}
	case CHAINID:
		if err := s.Push(evmcore.U256FromUint64(ChainID)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}

	case BLOCKHASH:
		if _, err := s.Op1(); err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(evmcore.NewU256()); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case COINBASE, TIMESTAMP, NUMBER, DIFFICULTY, GASLIMIT, BASEFEE:
		if err := s.Push(evmcore.NewU256()); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case SELFBALANCE:
		if err := s.Push(evmcore.U256FromUint64(m.ext.Self.GetBalance())); err != nil {
			return fail(ErrKindStackOverflow, err)
		}

	case POP:
		if _, err := s.Pop(); err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
	case MLOAD:
		off, err := s.Op1()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		word := m.memory.Read(off.Uint64(), 32)
		if err := s.Push(new(evmcore.U256).SetBytes(word)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case MSTORE:
		off, v, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		b := v.Bytes32()
		m.memory.Write(off.Uint64(), b[:])
	case MSTORE8:
		off, v, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		m.memory.WriteByte(off.Uint64(), byte(v.Uint64()))
	case SLOAD:
		key, err := s.Op1()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		val := m.ext.SLoad(evmcore.U256ToH256(key))
		if err := s.Push(val.U256()); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case SSTORE:
		key, val, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		m.ext.SStore(evmcore.U256ToH256(key), evmcore.U256ToH256(val))
	case JUMP:
		dest, err := s.Op1()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		pc.Jump(dest.Uint64())
		return nil, true, nil
	case JUMPI:
		dest, cond, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		if !cond.IsZero() {
			pc.Jump(dest.Uint64())
			return nil, true, nil
		}
	case PCOp:
		if err := s.Push(evmcore.U256FromUint64(inst.PC)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case MSIZE:
		if err := s.Push(evmcore.U256FromUint64(m.memory.Size())); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case GAS:
		if err := s.Push(evmcore.U256FromUint64(GasLimit)); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case JUMPDEST:
		// no-op marker

	case PUSH0:
		if err := s.Push(evmcore.NewU256()); err != nil {
			return fail(ErrKindStackOverflow, err)
		}

	case RETURN:
		off, length, err := s.Op2()
		if err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		data := m.memory.Read(off.Uint64(), length.Uint64())
		return &Result{Kind: ResultReturn, Data: data}, false, nil

	case REVERT:
		if _, _, err := s.Op2(); err != nil {
			return fail(ErrKindStackUnderflow, err)
		}
		return &Result{Kind: ResultStop}, false, nil

	case INVALID:
		return &Result{Kind: ResultStop}, false, nil

	case CREATE:
		if _, _, _, perr := s.popThree(); perr != nil { // value, offset, length
			return fail(ErrKindStackUnderflow, perr)
		}
		if err := s.Push(evmcore.NewU256()); err != nil { // no contract created
			return fail(ErrKindStackOverflow, err)
		}
	case CREATE2:
		if _, _, _, perr := s.popThree(); perr != nil { // value, offset, length
			return fail(ErrKindStackUnderflow, perr)
		}
		if _, err := s.Op1(); err != nil { // salt
			return fail(ErrKindStackUnderflow, err)
		}
		if err := s.Push(evmcore.NewU256()); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case CALL, CALLCODE:
		for i := 0; i < 7; i++ { // gas, addr, value, argsOff, argsLen, retOff, retLen
			if _, err := s.Pop(); err != nil {
				return fail(ErrKindStackUnderflow, err)
			}
		}
		if err := s.Push(evmcore.NewU256()); err != nil { // success=0, no re-entrant calls
			return fail(ErrKindStackOverflow, err)
		}
	case DELEGATECALL, STATICCALL:
		for i := 0; i < 6; i++ { // gas, addr, argsOff, argsLen, retOff, retLen
			if _, err := s.Pop(); err != nil {
				return fail(ErrKindStackUnderflow, err)
			}
		}
		if err := s.Push(evmcore.NewU256()); err != nil {
			return fail(ErrKindStackOverflow, err)
		}
	case SELFDESTRUCT:
		if _, err := s.Op1(); err != nil { // beneficiary
			return fail(ErrKindStackUnderflow, err)
		}
		return &Result{Kind: ResultStop}, false, nil

	default:
		// Unassigned opcodes decode as INVALID and halt the same way.
		return &Result{Kind: ResultStop}, false, nil
	}

	return nil, false, nil
}

func (s *Stack) popThree() (a, b, c uint64, err error) {
	x, y, z, err := s.Op3()
	if err != nil {
		return 0, 0, 0, err
	}
	return x.Uint64(), y.Uint64(), z.Uint64(), nil
}

func boolWord(b bool) *evmcore.U256 {
	if b {
		return evmcore.U256FromUint64(1)
	}
	return evmcore.NewU256()
}
