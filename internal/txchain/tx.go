// Package txchain holds the transaction and block types, and the pure
// classification rule that turns raw boundary inputs into a typed Tx.
package txchain

import (
	"strconv"
	"strings"

	"github.com/empower1/evmsim/internal/evmcore"
	"github.com/empower1/evmsim/internal/evmhash"
)

// GasPrice is the constant, unconsumed gas price exposed on every Tx.
const GasPrice = 10

// Type classifies a Tx by what it does, decided once at construction.
type Type int

const (
	EoaToEoa Type = iota
	DeployContract
	CallContract
)

func (t Type) String() string {
	switch t {
	case DeployContract:
		return "deploy"
	case CallContract:
		return "call"
	default:
		return "transfer"
	}
}

// Tx is an immutable, already-classified transaction record.
type Tx struct {
	From         evmcore.Address
	To           evmcore.Address
	Value        uint64
	Data         evmcore.Bytes
	GasPrice     uint64
	Type         Type
	ContractName string // set only when Type == DeployContract
}

// Resolver answers the lookups Classify needs: does a name/address already
// exist, and is it a contract? Satisfied by the world state without this
// package importing it.
type Resolver interface {
	ResolveByName(name string) (evmcore.Address, bool)
	AccountExists(addr evmcore.Address) bool
	IsContract(addr evmcore.Address) bool
}

// Classify builds a Tx from boundary inputs, resolving `to` against r:
//  1. a `0x`-prefixed `to` is an address literal; otherwise it's looked up
//     by name among existing accounts.
//  2. a resolved contract address makes this a CallContract.
//  3. a resolved EoA address makes this a EoaToEoa transfer.
//  4. an unresolved `to` makes this a DeployContract, naming the
//     account-to-be after the literal `to` text.
func Classify(r Resolver, from evmcore.Address, toText string, value uint64, data evmcore.Bytes) *Tx {
	var addr evmcore.Address
	resolved := false

	if strings.HasPrefix(toText, "0x") {
		if a, err := evmcore.HexToAddress(toText); err == nil && r.AccountExists(a) {
			addr = a
			resolved = true
		}
	} else if a, ok := r.ResolveByName(toText); ok {
		addr = a
		resolved = true
	}

	if !resolved {
		return &Tx{
			From:         from,
			To:           evmcore.ZeroAddress,
			Value:        value,
			Data:         data,
			GasPrice:     GasPrice,
			Type:         DeployContract,
			ContractName: toText,
		}
	}

	t := EoaToEoa
	if r.IsContract(addr) {
		t = CallContract
	}
	return &Tx{
		From:     from,
		To:       addr,
		Value:    value,
		Data:     data,
		GasPrice: GasPrice,
		Type:     t,
	}
}

// Hash returns keccak256(from || to || decimal(value)), the tx_hash wrapped
// into the Block that mines this Tx.
func (tx *Tx) Hash() evmcore.H256 {
	buf := make([]byte, 0, evmcore.AddressLength*2+20)
	buf = append(buf, tx.From.Bytes()...)
	buf = append(buf, tx.To.Bytes()...)
	buf = append(buf, []byte(strconv.FormatUint(tx.Value, 10))...)
	return evmhash.Keccak256H(buf)
}
