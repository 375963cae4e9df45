package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/empower1/evmsim/internal/account"
	"github.com/empower1/evmsim/internal/evmcore"
	"github.com/empower1/evmsim/internal/telemetry"
	"github.com/empower1/evmsim/internal/txchain"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	return New(account.NewSequentialAddressSource(), zap.NewNop().Sugar(), telemetry.NewMetrics(nil))
}

func TestAccountAddAndList(t *testing.T) {
	s := newTestState(t)
	s.AccountAdd("alice", nil)
	s.AccountAdd("bob", nil)

	got := s.AccountList()
	assert.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].Name)
	assert.Equal(t, "bob", got[1].Name)
}

func TestResolveByNamePrefersNewest(t *testing.T) {
	s := newTestState(t)
	first := s.AccountAdd("dup", nil)
	second := s.AccountAdd("dup", nil)

	addr, ok := s.ResolveByName("dup")
	assert.True(t, ok, "expected dup to resolve")
	assert.Equal(t, second.Address, addr, "expected newest account to win")
	assert.NotEqual(t, first.Address, addr)
}

func TestTxSendTransferMovesBalance(t *testing.T) {
	s := newTestState(t)
	alice := s.AccountAdd("alice", nil)
	bob := s.AccountAdd("bob", nil)

	_, err := s.TxSend(alice.Address, "bob", 40, nil)
	assert.NoError(t, err)

	aliceAcc, _ := s.Account(alice.Address)
	bobAcc, _ := s.Account(bob.Address)
	assert.Equal(t, uint64(account.InitialBalance-40), aliceAcc.Balance)
	assert.Equal(t, uint64(account.InitialBalance+40), bobAcc.Balance)
	assert.Len(t, s.Blocks(), 1)
}

func TestTxSendInsufficientBalanceRollsBackReservation(t *testing.T) {
	s := newTestState(t)
	alice := s.AccountAdd("alice", nil)
	s.AccountAdd("bob", nil)

	_, err := s.TxSend(alice.Address, "bob", account.InitialBalance+1, nil)
	assert.Error(t, err, "expected insufficient balance error")
	assert.Empty(t, s.Txs(), "expected failed dispatch to roll back the tx reservation")
	assert.Empty(t, s.Blocks(), "expected no block mined on failed dispatch")
}

func TestTxSendDeployThenCall(t *testing.T) {
	s := newTestState(t)
	alice := s.AccountAdd("alice", nil)

	// Constructor deploys a single-byte STOP as the runtime code, so the
	// account is still a contract (non-empty code) after SetCode.
	ctor := evmcore.Bytes{
		byte(0x60), 0x00, // PUSH1 0x00 (STOP byte)
		byte(0x60), 0x00, // PUSH1 0 (memory offset)
		byte(0x53),       // MSTORE8
		byte(0x60), 0x01, // PUSH1 1 (length)
		byte(0x60), 0x00, // PUSH1 0 (offset)
		byte(0xf3), // RETURN
	}

	_, err := s.TxSend(alice.Address, "counter", 0, ctor)
	assert.NoError(t, err)

	accs := s.AccountList()
	var deployed *account.Account
	for _, a := range accs {
		if a.Name == "counter" {
			deployed = a
		}
	}
	assert.NotNil(t, deployed, "expected a counter contract account to exist after deploy")

	_, err = s.TxSend(alice.Address, "counter", 0, nil)
	assert.NoError(t, err)
	assert.Len(t, s.Blocks(), 2, "expected 2 mined blocks (deploy + call)")
}

// TestTxSendDeployAllowsDuplicateName mirrors the original's
// handle_tx_deploy_contract, which always calls account_add_inner with no
// existence check: account names are documented as not unique (spec §3), so
// the deploy dispatcher must accept a second contract under a name already in
// use, creating a second, separately addressed account rather than erroring.
// TxSend itself classifies a name that resolves to an existing contract as a
// call, so the second deploy is handed to the dispatcher directly.
func TestTxSendDeployAllowsDuplicateName(t *testing.T) {
	s := newTestState(t)
	alice := s.AccountAdd("alice", nil)

	ctor := evmcore.Bytes{byte(0x00)} // STOP

	_, err := s.TxSend(alice.Address, "dup", 0, ctor)
	assert.NoError(t, err)
	_, err = s.dispatchDeploy(&txchain.Tx{
		From:         alice.Address,
		Data:         ctor,
		GasPrice:     txchain.GasPrice,
		Type:         txchain.DeployContract,
		ContractName: "dup",
	})
	assert.NoError(t, err, "deploying a second contract under a reused name must not be rejected")

	var matches int
	for _, a := range s.AccountList() {
		if a.Name == "dup" {
			matches++
		}
	}
	assert.Equal(t, 2, matches, "expected two distinct accounts both named dup")
}

func TestBlockChainLinksHashes(t *testing.T) {
	s := newTestState(t)
	alice := s.AccountAdd("alice", nil)
	s.AccountAdd("bob", nil)

	_, err := s.TxSend(alice.Address, "bob", 1, nil)
	assert.NoError(t, err)
	_, err = s.TxSend(alice.Address, "bob", 1, nil)
	assert.NoError(t, err)

	blocks := s.Blocks()
	assert.Len(t, blocks, 2)
	assert.Equal(t, [32]byte{}, blocks[0].PrevHash, "expected genesis block to chain from the zero hash")
	assert.Equal(t, blocks[0].Hash, blocks[1].PrevHash, "expected second block to chain from the first block's hash")
}
