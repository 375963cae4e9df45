// Package evmhash provides the keccak256 hashing used for account code
// hashes, transaction hashes, and block hashes throughout the simulator.
package evmhash

import (
	"golang.org/x/crypto/sha3"

	"github.com/empower1/evmsim/internal/evmcore"
)

// Keccak256 hashes the concatenation of data and returns the raw 32 bytes.
func Keccak256(data ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// Keccak256H is Keccak256 with the result wrapped as an evmcore.H256.
func Keccak256H(data ...[]byte) evmcore.H256 {
	return evmcore.H256(Keccak256(data...))
}
