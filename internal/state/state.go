// Package state holds the world state: every account that exists, the
// append-only chain of blocks, and the TxSend dispatcher that turns a raw
// transaction into account mutations.
package state

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/empower1/evmsim/internal/account"
	"github.com/empower1/evmsim/internal/evmcore"
	"github.com/empower1/evmsim/internal/telemetry"
	"github.com/empower1/evmsim/internal/txchain"
	"github.com/empower1/evmsim/internal/vm"
)

// State is the simulator's single mutable world: accounts, the tx log, and
// the block chain it mines onto. Each accessor takes an internal lock, but
// TxSend releases it while a transaction is dispatched, so concurrent
// TxSend calls are not serialised against each other; callers serialise
// transactions themselves.
type State struct {
	mu sync.Mutex

	accounts map[evmcore.Address]*account.Account
	order    []evmcore.Address // creation order, for AccountList

	txs    []*txchain.Tx
	blocks []*txchain.Block

	addrs   account.AddressSource
	log     *zap.SugaredLogger
	metrics *telemetry.Metrics
}

// New returns an empty world state.
func New(addrs account.AddressSource, log *zap.SugaredLogger, metrics *telemetry.Metrics) *State {
	return &State{
		accounts: make(map[evmcore.Address]*account.Account),
		addrs:    addrs,
		log:      log,
		metrics:  metrics,
	}
}

// AccountAdd mints a fresh account named name with the given code (empty
// for an EoA) and adds it to the world.
func (s *State) AccountAdd(name string, code evmcore.Bytes) *account.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := s.addrs.NextAddress()
	acc := account.New(addr, name, code)
	s.accounts[addr] = acc
	s.order = append(s.order, addr)
	s.log.Debugf("account added: %s (%s) type=%s", name, addr.Hex(), acc.Type)
	return acc
}

// AccountList returns every account in creation order.
func (s *State) AccountList() []*account.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*account.Account, 0, len(s.order))
	for _, addr := range s.order {
		out = append(out, s.accounts[addr])
	}
	return out
}

// Account returns the account at addr, if any.
func (s *State) Account(addr evmcore.Address) (*account.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[addr]
	return acc, ok
}

// ResolveByName looks up an account by its human label. When more than one
// account shares a name, the most recently created one wins.
func (s *State) ResolveByName(name string) (evmcore.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		addr := s.order[i]
		if s.accounts[addr].Name == name {
			return addr, true
		}
	}
	return evmcore.Address{}, false
}

// AccountExists reports whether addr is a known account.
func (s *State) AccountExists(addr evmcore.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.accounts[addr]
	return ok
}

// IsContract reports whether addr names an existing contract account.
func (s *State) IsContract(addr evmcore.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[addr]
	return ok && acc.IsContract()
}

// AccountByAddress satisfies vm.AccountLookup for cross-account reads
// (BALANCE) issued from inside a running contract.
func (s *State) AccountByAddress(addr evmcore.Address) (vm.AccountView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[addr]
	if !ok {
		return nil, false
	}
	return acc, true
}

// Txs returns every transaction dispatched so far, oldest first.
func (s *State) Txs() []*txchain.Tx {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*txchain.Tx, len(s.txs))
	copy(out, s.txs)
	return out
}

// Blocks returns the chain mined so far, oldest first.
func (s *State) Blocks() []*txchain.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*txchain.Block, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// lastBlockHash returns the hash of the most recently mined block, or the
// zero hash if the chain is still empty.
func (s *State) lastBlockHash() [32]byte {
	if len(s.blocks) == 0 {
		return [32]byte{}
	}
	return s.blocks[len(s.blocks)-1].Hash
}

// TxSend runs a single transaction to completion: validate, reserve a slot
// in the tx log, dispatch it by type, then mine a block over it. A
// dispatch failure rolls back the tx-log reservation; a successful
// dispatch is always mined, even one that merely returns data.
func (s *State) TxSend(from evmcore.Address, toText string, value uint64, data evmcore.Bytes) (evmcore.Bytes, error) {
	s.metrics.TxTotal.Inc()
	s.mu.Lock()

	if _, ok := s.accounts[from]; !ok {
		s.mu.Unlock()
		s.metrics.TxFailedTotal.Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnknownFromAddress, from.Hex())
	}

	tx := txchain.Classify(s, from, toText, value, data)
	s.txs = append(s.txs, tx) // reserve
	reservedAt := len(s.txs) - 1
	s.mu.Unlock()

	result, err := s.dispatch(tx)
	if err != nil {
		s.mu.Lock()
		s.txs = s.txs[:reservedAt] // rollback the reservation
		s.mu.Unlock()
		s.metrics.TxFailedTotal.Inc()
		s.log.Warnf("tx dispatch failed: %v", err)
		return nil, err
	}

	s.mu.Lock()
	prev := s.lastBlockHash()
	block := txchain.NewBlock(uint64(len(s.blocks)+1), tx, prev)
	s.blocks = append(s.blocks, block)
	s.mu.Unlock()

	s.metrics.BlocksTotal.Inc()
	s.log.Infof("tx mined: type=%s from=%s block=%d", tx.Type, from.Hex(), block.Number)
	return result, nil
}

func (s *State) dispatch(tx *txchain.Tx) (evmcore.Bytes, error) {
	switch tx.Type {
	case txchain.EoaToEoa:
		return nil, s.dispatchTransfer(tx)
	case txchain.DeployContract:
		return s.dispatchDeploy(tx)
	case txchain.CallContract:
		return s.dispatchCall(tx)
	default:
		return nil, fmt.Errorf("unknown tx type %v", tx.Type)
	}
}

func (s *State) dispatchTransfer(tx *txchain.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.accounts[tx.From]
	to, ok := s.accounts[tx.To]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFromAddress, tx.To.Hex())
	}
	if err := from.SubBalance(tx.Value); err != nil {
		return err
	}
	return to.AddBalance(tx.Value)
}

func (s *State) dispatchDeploy(tx *txchain.Tx) (evmcore.Bytes, error) {
	acc := s.AccountAdd(tx.ContractName, tx.Data)

	ext := &vm.Ext{
		Self:      acc,
		Lookup:    s,
		Origin:    tx.From,
		Caller:    tx.From,
		CallData:  tx.Data,
		CallValue: tx.Value,
		GasPrice:  tx.GasPrice,
	}
	machine := vm.New(tx.Data, ext)
	res, verr := machine.Run()
	if verr != nil {
		s.metrics.VMErrorsTotal.Inc()
		return nil, fmt.Errorf("deploy %s: %w", tx.ContractName, verr)
	}
	if res.Kind == vm.ResultReturn {
		s.mu.Lock()
		acc.SetCode(res.Data)
		s.mu.Unlock()
	}
	return nil, nil
}

func (s *State) dispatchCall(tx *txchain.Tx) (evmcore.Bytes, error) {
	s.mu.Lock()
	acc, ok := s.accounts[tx.To]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownFromAddress, tx.To.Hex())
	}
	if !acc.IsContract() {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrCallOnEoa, tx.To.Hex())
	}
	code := acc.Code
	s.mu.Unlock()

	ext := &vm.Ext{
		Self:      acc,
		Lookup:    s,
		Origin:    tx.From,
		Caller:    tx.From,
		CallData:  tx.Data,
		CallValue: tx.Value,
		GasPrice:  tx.GasPrice,
	}
	machine := vm.New(code, ext)
	res, verr := machine.Run()
	if verr != nil {
		s.metrics.VMErrorsTotal.Inc()
		return nil, fmt.Errorf("call %s: %w", tx.To.Hex(), verr)
	}
	return res.Data, nil
}
