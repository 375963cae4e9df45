package account

import (
	"errors"
	"fmt"
	"math"

	"github.com/empower1/evmsim/internal/evmcore"
	"github.com/empower1/evmsim/internal/evmhash"
)

// InitialBalance is the balance every newly created account starts with.
const InitialBalance = 100

// Type classifies an account as an externally-owned account or a contract.
type Type int

const (
	EoA Type = iota
	Contract
)

func (t Type) String() string {
	if t == Contract {
		return "contract"
	}
	return "eoa"
}

// Sentinel errors raised by Account operations.
var (
	ErrNotEnoughBalance = errors.New("not enough balance")
	ErrBalanceOverflow  = errors.New("balance would overflow")
)

// Account is a world-state entry: an address, a human label, a balance, and
// - for contracts - code and storage. Invariant: Type == Contract iff
// len(Code) > 0, maintained by NewAccount and SetCode.
type Account struct {
	Address  evmcore.Address
	Name     string
	Type     Type
	Balance  uint64
	Code     evmcore.Bytes
	CodeHash evmcore.H256
	Storage  Storage
}

// New constructs an account at addr named name with the given code. An
// empty code produces an EoA; non-empty code produces a Contract. Balance
// starts at InitialBalance regardless of type.
func New(addr evmcore.Address, name string, code evmcore.Bytes) *Account {
	t := EoA
	if len(code) > 0 {
		t = Contract
	}
	return &Account{
		Address:  addr,
		Name:     name,
		Type:     t,
		Balance:  InitialBalance,
		Code:     code,
		CodeHash: evmhash.Keccak256H(code),
		Storage:  NewStorage(),
	}
}

// IsContract reports whether the account carries code.
func (a *Account) IsContract() bool { return a.Type == Contract }

// GetAddress, GetCode and GetBalance satisfy vm.AccountView so the VM can
// run against an Account without this package depending on vm.
func (a *Account) GetAddress() evmcore.Address  { return a.Address }
func (a *Account) GetCode() evmcore.Bytes       { return a.Code }
func (a *Account) GetCodeHash() evmcore.H256    { return a.CodeHash }
func (a *Account) GetBalance() uint64           { return a.Balance }

// AddBalance credits v to the account's balance.
func (a *Account) AddBalance(v uint64) error {
	if v > math.MaxUint64-a.Balance {
		return fmt.Errorf("%w: account %s", ErrBalanceOverflow, a.Address.Hex())
	}
	a.Balance += v
	return nil
}

// SubBalance debits v from the account's balance, failing if v exceeds it.
func (a *Account) SubBalance(v uint64) error {
	if v > a.Balance {
		return fmt.Errorf("%w: account %s has %d, needs %d", ErrNotEnoughBalance, a.Address.Hex(), a.Balance, v)
	}
	a.Balance -= v
	return nil
}

// SetCode replaces the account's code, recomputing its hash and type. This
// is meant to be called exactly once, at deploy time, with the bytes
// returned by the constructor's execution.
func (a *Account) SetCode(code evmcore.Bytes) {
	a.Code = code
	a.CodeHash = evmhash.Keccak256H(code)
	if len(code) > 0 {
		a.Type = Contract
	} else {
		a.Type = EoA
	}
}

// SLoad reads the account's storage at key, or the zero word if unset.
func (a *Account) SLoad(key evmcore.H256) evmcore.H256 {
	return a.Storage.Get(key)
}

// SStore writes value to the account's storage at key.
func (a *Account) SStore(key, value evmcore.H256) {
	a.Storage.Set(key, value)
}
