package vm

import (
	"testing"

	"github.com/empower1/evmsim/internal/evmcore"
	"github.com/empower1/evmsim/internal/evmhash"
)

type fakeAccount struct {
	addr    evmcore.Address
	code    evmcore.Bytes
	balance uint64
	storage map[evmcore.H256]evmcore.H256
}

func newFakeAccount(addr evmcore.Address, code evmcore.Bytes, balance uint64) *fakeAccount {
	return &fakeAccount{addr: addr, code: code, balance: balance, storage: map[evmcore.H256]evmcore.H256{}}
}

func (a *fakeAccount) GetAddress() evmcore.Address { return a.addr }
func (a *fakeAccount) GetCode() evmcore.Bytes      { return a.code }
func (a *fakeAccount) GetCodeHash() evmcore.H256   { return evmhash.Keccak256H(a.code) }
func (a *fakeAccount) GetBalance() uint64          { return a.balance }
func (a *fakeAccount) SLoad(key evmcore.H256) evmcore.H256 {
	return a.storage[key]
}
func (a *fakeAccount) SStore(key, value evmcore.H256) {
	a.storage[key] = value
}

type fakeLookup struct {
	accounts map[evmcore.Address]AccountView
}

func (l *fakeLookup) AccountByAddress(addr evmcore.Address) (AccountView, bool) {
	a, ok := l.accounts[addr]
	return a, ok
}

func newExt(self *fakeAccount) *Ext {
	return &Ext{
		Self:   self,
		Lookup: &fakeLookup{accounts: map[evmcore.Address]AccountView{}},
		Origin: self.addr,
		Caller: self.addr,
	}
}

func push1(v byte) []byte { return []byte{byte(PUSH1), v} }

func TestVMAddReturnsSum(t *testing.T) {
	// PUSH1 2, PUSH1 3, ADD, PUSH1 0, MSTORE, PUSH1 32, PUSH1 0, RETURN
	code := evmcore.Bytes{
		byte(PUSH1), 2,
		byte(PUSH1), 3,
		byte(ADD),
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(RETURN),
	}
	self := newFakeAccount(evmcore.Address{1}, code, 0)
	m := New(code, newExt(self))
	res, verr := m.Run()
	if verr != nil {
		t.Fatalf("unexpected vm error: %v", verr)
	}
	if res.Kind != ResultReturn {
		t.Fatalf("expected ResultReturn, got %v", res.Kind)
	}
	word := new(evmcore.U256).SetBytes(res.Data)
	if word.Uint64() != 5 {
		t.Fatalf("expected 5, got %d", word.Uint64())
	}
}

func TestVMSubOperandOrder(t *testing.T) {
	// PUSH1 3, PUSH1 10, SUB => top(10)-second(3) = 7
	code := evmcore.Bytes{
		byte(PUSH1), 3,
		byte(PUSH1), 10,
		byte(SUB),
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(RETURN),
	}
	self := newFakeAccount(evmcore.Address{2}, code, 0)
	m := New(code, newExt(self))
	res, verr := m.Run()
	if verr != nil {
		t.Fatalf("unexpected vm error: %v", verr)
	}
	word := new(evmcore.U256).SetBytes(res.Data)
	if word.Uint64() != 7 {
		t.Fatalf("expected 10-3=7, got %d", word.Uint64())
	}
}

func TestVMSstoreSload(t *testing.T) {
	// PUSH1 9, PUSH1 0, SSTORE, PUSH1 0, SLOAD, PUSH1 0, MSTORE, PUSH1 32, PUSH1 0, RETURN
	code := evmcore.Bytes{
		byte(PUSH1), 9,
		byte(PUSH1), 0,
		byte(SSTORE),
		byte(PUSH1), 0,
		byte(SLOAD),
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(RETURN),
	}
	self := newFakeAccount(evmcore.Address{3}, code, 0)
	m := New(code, newExt(self))
	res, verr := m.Run()
	if verr != nil {
		t.Fatalf("unexpected vm error: %v", verr)
	}
	word := new(evmcore.U256).SetBytes(res.Data)
	if word.Uint64() != 9 {
		t.Fatalf("expected stored value 9 back, got %d", word.Uint64())
	}
}

func TestVMEndOfCodeReturnsOk(t *testing.T) {
	code := evmcore.Bytes{byte(PUSH1), 1, byte(POP)}
	self := newFakeAccount(evmcore.Address{4}, code, 0)
	m := New(code, newExt(self))
	res, verr := m.Run()
	if verr != nil {
		t.Fatalf("unexpected vm error: %v", verr)
	}
	if res.Kind != ResultOk {
		t.Fatalf("expected ResultOk, got %v", res.Kind)
	}
}

func TestVMJumpIsPermissive(t *testing.T) {
	// PUSH1 5, JUMP to offset 5, past the end of a 3-byte program: no
	// JUMPDEST validation is performed, so this just ends the run as if
	// the end of code had been reached, instead of raising an error.
	code := evmcore.Bytes{byte(PUSH1), 5, byte(JUMP)}
	self := newFakeAccount(evmcore.Address{5}, code, 0)
	m := New(code, newExt(self))
	res, verr := m.Run()
	if verr != nil {
		t.Fatalf("unexpected vm error: %v", verr)
	}
	if res.Kind != ResultOk {
		t.Fatalf("expected ResultOk from an out-of-range permissive jump, got %v", res.Kind)
	}
}

func TestVMJumpToValidDest(t *testing.T) {
	// PUSH1 4, JUMP, (skip) JUMPDEST, STOP
	code := evmcore.Bytes{
		byte(PUSH1), 4,
		byte(JUMP),
		byte(INVALID), // never reached
		byte(JUMPDEST),
		byte(STOP),
	}
	self := newFakeAccount(evmcore.Address{6}, code, 0)
	m := New(code, newExt(self))
	res, verr := m.Run()
	if verr != nil {
		t.Fatalf("unexpected vm error: %v", verr)
	}
	if res.Kind != ResultStop {
		t.Fatalf("expected ResultStop, got %v", res.Kind)
	}
}

func TestVMStackUnderflowAborts(t *testing.T) {
	code := evmcore.Bytes{byte(ADD)}
	self := newFakeAccount(evmcore.Address{7}, code, 0)
	m := New(code, newExt(self))
	_, verr := m.Run()
	if verr == nil || verr.Kind != ErrKindStackUnderflow {
		t.Fatalf("expected stack underflow error, got %v", verr)
	}
}
