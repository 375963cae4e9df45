package account

import "github.com/empower1/evmsim/internal/evmcore"

// Storage is a contract's per-account key-value store. Unread keys read as
// the zero word, matching EVM SLOAD semantics; there is no deletion, only
// overwriting a key with the zero word.
type Storage map[evmcore.H256]evmcore.H256

// NewStorage returns an empty storage map.
func NewStorage() Storage {
	return make(Storage)
}

// Get returns the value stored at key, or the zero word if key was never set.
func (s Storage) Get(key evmcore.H256) evmcore.H256 {
	return s[key]
}

// Set upserts key to value.
func (s Storage) Set(key, value evmcore.H256) {
	s[key] = value
}
