package vm

import (
	"errors"

	"github.com/empower1/evmsim/internal/evmcore"
)

var (
	ErrNotExistedAddress    = errors.New("address does not exist")
	ErrNotExistedStorageKey = errors.New("storage key does not exist")
)

// AccountView is the slice of account state Ext needs, satisfied
// structurally by *account.Account without vm importing account.
type AccountView interface {
	GetAddress() evmcore.Address
	GetCode() evmcore.Bytes
	GetCodeHash() evmcore.H256
	GetBalance() uint64
	SLoad(key evmcore.H256) evmcore.H256
	SStore(key, value evmcore.H256)
}

// AccountLookup resolves other accounts by address for read-only queries
// (BALANCE, EXTCODESIZE-style lookups) issued by the executing contract.
type AccountLookup interface {
	AccountByAddress(addr evmcore.Address) (AccountView, bool)
}

// Ext is the bridge between a running contract and the world outside its
// own code and stack: the executing account's storage, the enclosing
// transaction's constants, and read-only visibility into other accounts.
type Ext struct {
	Self     AccountView
	Lookup   AccountLookup
	Origin   evmcore.Address // tx.From
	Caller   evmcore.Address // tx.From (no internal calls, so caller == origin)
	CallData evmcore.Bytes
	CallValue uint64
	GasPrice  uint64
}

const (
	ChainID  = 0
	GasLimit = 100
)

// Address returns the executing account's own address.
func (e *Ext) Address() evmcore.Address { return e.Self.GetAddress() }

// CodeSize returns the length of the executing account's code.
func (e *Ext) CodeSize() uint64 { return uint64(len(e.Self.GetCode())) }

// CodeSlice reads length bytes of the executing account's own code starting
// at offset, zero-padded past the end.
func (e *Ext) CodeSlice(offset, length uint64) evmcore.Bytes {
	return e.Self.GetCode().Slice(offset, length)
}

// CallDataSize returns the length of the incoming call data.
func (e *Ext) CallDataSize() uint64 { return uint64(len(e.CallData)) }

// CallDataSlice reads length bytes of call data starting at offset,
// zero-padded past the end.
func (e *Ext) CallDataSlice(offset, length uint64) evmcore.Bytes {
	return e.CallData.Slice(offset, length)
}

// SLoad reads a word from the executing account's own storage.
func (e *Ext) SLoad(key evmcore.H256) evmcore.H256 {
	return e.Self.SLoad(key)
}

// SStore writes a word to the executing account's own storage.
func (e *Ext) SStore(key, value evmcore.H256) {
	e.Self.SStore(key, value)
}

// Balance returns the balance of addr, which may be any existing account.
func (e *Ext) Balance(addr evmcore.Address) (uint64, error) {
	if addr == e.Self.GetAddress() {
		return e.Self.GetBalance(), nil
	}
	acc, ok := e.Lookup.AccountByAddress(addr)
	if !ok {
		return 0, ErrNotExistedAddress
	}
	return acc.GetBalance(), nil
}

// lookup resolves addr to an AccountView, checking the executing account
// itself before falling back to the cross-account Lookup.
func (e *Ext) lookup(addr evmcore.Address) (AccountView, bool) {
	if addr == e.Self.GetAddress() {
		return e.Self, true
	}
	return e.Lookup.AccountByAddress(addr)
}

// ExtCodeSize returns the length of addr's code.
func (e *Ext) ExtCodeSize(addr evmcore.Address) (uint64, error) {
	acc, ok := e.lookup(addr)
	if !ok {
		return 0, ErrNotExistedAddress
	}
	return uint64(len(acc.GetCode())), nil
}

// ExtCodeSlice reads length bytes of addr's code starting at offset,
// zero-padded past the end.
func (e *Ext) ExtCodeSlice(addr evmcore.Address, offset, length uint64) (evmcore.Bytes, error) {
	acc, ok := e.lookup(addr)
	if !ok {
		return nil, ErrNotExistedAddress
	}
	return acc.GetCode().Slice(offset, length), nil
}

// ExtCodeHash returns the keccak256 hash of addr's code.
func (e *Ext) ExtCodeHash(addr evmcore.Address) (evmcore.H256, error) {
	acc, ok := e.lookup(addr)
	if !ok {
		return evmcore.H256{}, ErrNotExistedAddress
	}
	return acc.GetCodeHash(), nil
}
