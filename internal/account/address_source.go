package account

import (
	"crypto/rand"

	"github.com/google/uuid"

	"github.com/empower1/evmsim/internal/evmcore"
)

// AddressSource mints fresh account addresses. A real chain derives
// addresses from key material; this simulator only needs uniqueness within
// one run, so a source is any supplier of 20 distinct bytes.
type AddressSource interface {
	NextAddress() evmcore.Address
}

// randomAddressSource mints addresses from a UUIDv4 plus four extra random
// bytes: all 20 bytes are random apart from the UUID's fixed version and
// variant bits, without requiring real key derivation.
type randomAddressSource struct{}

// NewAddressSource returns the default, randomized AddressSource.
func NewAddressSource() AddressSource {
	return randomAddressSource{}
}

func (randomAddressSource) NextAddress() evmcore.Address {
	id := uuid.New()
	var extra [4]byte
	_, _ = rand.Read(extra[:])

	var a evmcore.Address
	copy(a[:16], id[:])
	copy(a[16:], extra[:])
	return a
}

// SequentialAddressSource mints deterministic addresses 0x...0001, 0x...0002,
// ... for reproducible test fixtures.
type SequentialAddressSource struct {
	next uint64
}

// NewSequentialAddressSource returns an AddressSource starting at 1.
func NewSequentialAddressSource() *SequentialAddressSource {
	return &SequentialAddressSource{}
}

func (s *SequentialAddressSource) NextAddress() evmcore.Address {
	s.next++
	var a evmcore.Address
	a[12] = byte(s.next >> 56)
	a[13] = byte(s.next >> 48)
	a[14] = byte(s.next >> 40)
	a[15] = byte(s.next >> 32)
	a[16] = byte(s.next >> 24)
	a[17] = byte(s.next >> 16)
	a[18] = byte(s.next >> 8)
	a[19] = byte(s.next)
	return a
}
