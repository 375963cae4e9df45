package txchain

import (
	"testing"

	"github.com/empower1/evmsim/internal/evmcore"
)

type fakeResolver struct {
	byName    map[string]evmcore.Address
	exists    map[evmcore.Address]bool
	contracts map[evmcore.Address]bool
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		byName:    map[string]evmcore.Address{},
		exists:    map[evmcore.Address]bool{},
		contracts: map[evmcore.Address]bool{},
	}
}

func (r *fakeResolver) ResolveByName(name string) (evmcore.Address, bool) {
	a, ok := r.byName[name]
	return a, ok
}

func (r *fakeResolver) AccountExists(addr evmcore.Address) bool { return r.exists[addr] }
func (r *fakeResolver) IsContract(addr evmcore.Address) bool    { return r.contracts[addr] }

func addrN(n byte) evmcore.Address {
	var a evmcore.Address
	a[19] = n
	return a
}

func TestClassifyEoaToEoa(t *testing.T) {
	r := newFakeResolver()
	bob := addrN(2)
	r.byName["bob"] = bob
	r.exists[bob] = true

	tx := Classify(r, addrN(1), "bob", 50, nil)
	if tx.Type != EoaToEoa {
		t.Fatalf("expected EoaToEoa, got %v", tx.Type)
	}
	if tx.To != bob {
		t.Fatalf("expected To=bob, got %v", tx.To)
	}
}

func TestClassifyCallContract(t *testing.T) {
	r := newFakeResolver()
	token := addrN(2)
	r.exists[token] = true
	r.contracts[token] = true

	tx := Classify(r, addrN(1), token.Hex(), 0, evmcore.Bytes{0x01})
	if tx.Type != CallContract {
		t.Fatalf("expected CallContract, got %v", tx.Type)
	}
}

func TestClassifyDeployUnknownName(t *testing.T) {
	r := newFakeResolver()
	tx := Classify(r, addrN(1), "token", 0, evmcore.Bytes{0xde, 0xad})
	if tx.Type != DeployContract {
		t.Fatalf("expected DeployContract, got %v", tx.Type)
	}
	if tx.ContractName != "token" {
		t.Fatalf("expected ContractName=token, got %q", tx.ContractName)
	}
	if !tx.To.IsZero() {
		t.Fatalf("expected zero To for deploy, got %v", tx.To)
	}
}

func TestClassifyDeployUnresolvedAddressLiteral(t *testing.T) {
	r := newFakeResolver()
	ghost := addrN(9)
	tx := Classify(r, addrN(1), ghost.Hex(), 0, nil)
	if tx.Type != DeployContract {
		t.Fatalf("expected DeployContract for unresolved address literal, got %v", tx.Type)
	}
}

func TestTxHashDeterministic(t *testing.T) {
	a := &Tx{From: addrN(1), To: addrN(2), Value: 100}
	b := &Tx{From: addrN(1), To: addrN(2), Value: 100}
	if a.Hash() != b.Hash() {
		t.Fatal("expected identical tx hashes for identical fields")
	}

	c := &Tx{From: addrN(1), To: addrN(2), Value: 101}
	if a.Hash() == c.Hash() {
		t.Fatal("expected different hashes for different values")
	}
}
