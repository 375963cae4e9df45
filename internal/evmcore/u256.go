package evmcore

import "github.com/holiman/uint256"

// U256 is an unsigned 256-bit word with wrapping (mod 2^256) arithmetic.
// The heavy lifting is delegated to holiman/uint256, the de facto standard
// 256-bit integer type across the Go Ethereum ecosystem.
type U256 = uint256.Int

// NewU256 returns a new zero-valued U256.
func NewU256() *U256 { return new(U256) }

// U256FromUint64 returns a U256 initialized from a native uint64.
func U256FromUint64(v uint64) *U256 { return new(U256).SetUint64(v) }

// H256Length is the number of bytes in an H256.
const H256Length = 32

// H256 is a 32-byte hash or storage word. It is in bijection with U256 via
// big-endian encoding: the low 20 bytes of that encoding also double as an
// Address (see H256.Address / AddressToH256).
type H256 [H256Length]byte

// ZeroH256 is the 32-byte zero word; unread storage slots read as this.
var ZeroH256 = H256{}

// BytesToH256 right-aligns b into a 32-byte H256.
func BytesToH256(b []byte) H256 {
	var h H256
	if len(b) > H256Length {
		b = b[len(b)-H256Length:]
	}
	copy(h[H256Length-len(b):], b)
	return h
}

// Bytes returns the word's 32 raw bytes.
func (h H256) Bytes() []byte { return h[:] }

func (h H256) Hex() string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, 2+H256Length*2)
	buf[0], buf[1] = '0', 'x'
	for i, b := range h {
		buf[2+i*2] = hextable[b>>4]
		buf[2+i*2+1] = hextable[b&0xf]
	}
	return string(buf)
}

func (h H256) String() string { return h.Hex() }

// U256 decodes h as a big-endian unsigned 256-bit integer.
func (h H256) U256() *U256 {
	return new(U256).SetBytes32(h[:])
}

// U256ToH256 big-endian-encodes u into a storage word.
func U256ToH256(u *U256) H256 {
	return H256(u.Bytes32())
}

// Address returns the low 20 bytes of h, per the U256<->Address bijection.
func (h H256) Address() Address {
	var a Address
	copy(a[:], h[H256Length-AddressLength:])
	return a
}

// AddressToH256 zero-extends a into a 32-byte word (high bytes zero).
func AddressToH256(a Address) H256 {
	var h H256
	copy(h[H256Length-AddressLength:], a[:])
	return h
}
