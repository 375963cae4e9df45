// Package evmcore holds the primitive value types shared by every other
// package in the simulator: addresses, 256-bit words, storage words and
// byte strings.
package evmcore

import (
	"encoding/hex"
	"errors"
	"strings"
)

// AddressLength is the number of bytes in an Address.
const AddressLength = 20

// ErrInvalidAddress is returned when a hex string cannot be parsed as an
// Address of the expected length.
var ErrInvalidAddress = errors.New("invalid address")

// Address identifies an account. It carries no cryptographic meaning in
// this simulator - addresses are opaque 20-byte identifiers.
type Address [AddressLength]byte

// ZeroAddress is the all-zero address used as the `to` of deploy transactions.
var ZeroAddress = Address{}

// BytesToAddress right-aligns b into a 20-byte Address, truncating any
// excess leading bytes.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// HexToAddress parses a `0x`-prefixed, 40-hex-digit string into an Address.
func HexToAddress(s string) (Address, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s) != AddressLength*2 {
		return Address{}, ErrInvalidAddress
	}
	b, err := hex.DecodeString(strings.ToLower(s))
	if err != nil {
		return Address{}, ErrInvalidAddress
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

// Hex returns the canonical `0x` + 40 lowercase hex digit form.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string { return a.Hex() }

// Bytes returns the address's 20 raw bytes.
func (a Address) Bytes() []byte { return a[:] }

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool { return a == ZeroAddress }
