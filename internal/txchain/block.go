package txchain

import "github.com/empower1/evmsim/internal/evmhash"

// Block wraps a single mined Tx, linked to its predecessor by hash the way
// a real chain links headers: block_hash = keccak256(tx_hash || prev_hash).
// There is no batching; one Tx mines exactly one Block.
type Block struct {
	Number   uint64
	Tx       *Tx
	TxHash   [32]byte
	PrevHash [32]byte
	Hash     [32]byte
}

// NewBlock mines tx on top of prev, computing tx's hash and this block's
// hash. Pass the zero hash as prevHash for the first block in the chain.
func NewBlock(number uint64, tx *Tx, prevHash [32]byte) *Block {
	txHash := tx.Hash()
	b := &Block{
		Number:   number,
		Tx:       tx,
		TxHash:   [32]byte(txHash),
		PrevHash: prevHash,
	}
	b.Hash = evmhash.Keccak256(b.TxHash[:], b.PrevHash[:])
	return b
}
