// Package simulator exposes the EthApi boundary: the small set of
// operations a REPL or RPC frontend needs, independent of how world state
// or the VM are implemented underneath.
package simulator

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/empower1/evmsim/internal/account"
	"github.com/empower1/evmsim/internal/evmcore"
	"github.com/empower1/evmsim/internal/state"
	"github.com/empower1/evmsim/internal/telemetry"
)

// ContractCallValue is the fixed value attached to every ContractCall,
// standing in for a caller-specified amount the boundary API doesn't
// expose.
const ContractCallValue = 20

// Sentinel errors surfaced across the EthApi boundary, matching the error
// taxonomy resolution/deploy/call failures are tagged with.
var (
	ErrNotExistedAddress  = errors.New("account does not exist")
	ErrNotExistedContract = errors.New("contract does not exist")
)

// resolveAddress resolves a boundary-level "name or address" argument the
// same way Tx classification resolves `to`: a `0x`-prefixed string is an
// address literal, otherwise it's looked up by name among existing
// accounts.
func (sim *Simulator) resolveAddress(nameOrAddr string) (evmcore.Address, bool) {
	if strings.HasPrefix(nameOrAddr, "0x") {
		a, err := evmcore.HexToAddress(nameOrAddr)
		if err != nil || !sim.state.AccountExists(a) {
			return evmcore.Address{}, false
		}
		return a, true
	}
	return sim.state.ResolveByName(nameOrAddr)
}

// AccountInfo is the read-only account view returned across the EthApi
// boundary.
type AccountInfo struct {
	Address evmcore.Address
	Name    string
	Type    string
	Balance uint64
}

// Simulator is the facade every frontend (REPL, RPC server, tests) drives.
type Simulator struct {
	state   *state.State
	log     *zap.SugaredLogger
	metrics *telemetry.Metrics
}

// New builds a Simulator with its own logger and metrics registry.
func New() (*Simulator, error) {
	log, err := telemetry.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	metrics := telemetry.NewMetrics(nil)
	st := state.New(account.NewAddressSource(), log, metrics)
	return &Simulator{state: st, log: log, metrics: metrics}, nil
}

// NewWithState builds a Simulator around a caller-supplied state, for
// deterministic tests that need a SequentialAddressSource.
func NewWithState(st *state.State, log *zap.SugaredLogger, metrics *telemetry.Metrics) *Simulator {
	return &Simulator{state: st, log: log, metrics: metrics}
}

// AccountAdd mints a new EoA named name.
func (sim *Simulator) AccountAdd(name string) AccountInfo {
	acc := sim.state.AccountAdd(name, nil)
	return toInfo(acc)
}

// AccountList returns every account known to the simulator, oldest first.
func (sim *Simulator) AccountList() []AccountInfo {
	accs := sim.state.AccountList()
	out := make([]AccountInfo, len(accs))
	for i, a := range accs {
		out[i] = toInfo(a)
	}
	return out
}

// AccountBalance resolves addrOrName (a name or a `0x`-prefixed address
// literal) and returns its balance.
func (sim *Simulator) AccountBalance(addrOrName string) (uint64, error) {
	addr, ok := sim.resolveAddress(addrOrName)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotExistedAddress, addrOrName)
	}
	acc, ok := sim.state.Account(addr)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotExistedAddress, addrOrName)
	}
	return acc.Balance, nil
}

// TxSend sends a transaction carrying value and no calldata from the account
// named or addressed by from to toNameOrAddress. Balances move only when
// toNameOrAddress resolves to an EoA: a contract target is called without a
// value transfer, and a name that resolves to no account is classified as a
// deploy, creating a new account under that name. Data returned by a called
// contract is not reported.
func (sim *Simulator) TxSend(from, toNameOrAddress string, value uint64) error {
	fromAddr, ok := sim.resolveAddress(from)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotExistedAddress, from)
	}
	_, err := sim.state.TxSend(fromAddr, toNameOrAddress, value, nil)
	return err
}

// ContractDeploy deploys code, naming the resulting contract
// contractName, on behalf of from (a name or address literal). When
// contractName already resolves to an existing account, the transaction is
// classified against that account (a call or a transfer of 0) and no new
// contract is created.
func (sim *Simulator) ContractDeploy(from, contractName string, code evmcore.Bytes) error {
	fromAddr, ok := sim.resolveAddress(from)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotExistedAddress, from)
	}
	_, err := sim.state.TxSend(fromAddr, contractName, 0, code)
	return err
}

// ContractCall invokes the contract named contractName with calldata, on
// behalf of from (a name or address literal), returning whatever the
// contract returns.
func (sim *Simulator) ContractCall(from, contractName string, calldata evmcore.Bytes) (evmcore.Bytes, error) {
	fromAddr, ok := sim.resolveAddress(from)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotExistedAddress, from)
	}
	contractAddr, _ := sim.resolveAddress(contractName) // zero address if unresolved
	if !sim.state.IsContract(contractAddr) {
		return nil, fmt.Errorf("%w: %q", ErrNotExistedContract, contractName)
	}
	return sim.state.TxSend(fromAddr, contractName, ContractCallValue, calldata)
}

// Metrics returns a point-in-time snapshot of the simulator's counters.
func (sim *Simulator) Metrics() telemetry.Snapshot {
	return sim.metrics.Snapshot()
}

func toInfo(a *account.Account) AccountInfo {
	return AccountInfo{
		Address: a.Address,
		Name:    a.Name,
		Type:    a.Type.String(),
		Balance: a.Balance,
	}
}
