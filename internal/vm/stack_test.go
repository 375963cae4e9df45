package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/empower1/evmsim/internal/evmcore"
)

func u64(v uint64) *evmcore.U256 { return evmcore.U256FromUint64(v) }

func TestStackPushPop(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Push(u64(1)))
	require.NoError(t, s.Push(u64(2)))
	top, err := s.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), top.Uint64())
}

func TestStackUnderflow(t *testing.T) {
	s := NewStack()
	_, err := s.Pop()
	assert.Error(t, err, "expected underflow error on empty stack")
}

func TestStackOverflow(t *testing.T) {
	s := NewStack()
	for i := 0; i < MaxStackDepth; i++ {
		require.NoError(t, s.Push(u64(1)), "unexpected error at depth %d", i)
	}
	err := s.Push(u64(1))
	assert.Error(t, err, "expected overflow pushing past MaxStackDepth")
}

func TestStackDupSwap(t *testing.T) {
	s := NewStack()
	_ = s.Push(u64(10))
	_ = s.Push(u64(20))

	require.NoError(t, s.Dup(1))
	top, _ := s.Pop()
	assert.Equal(t, uint64(20), top.Uint64(), "expected dup of top to be 20")

	require.NoError(t, s.Swap(1))
	top, _ = s.Pop()
	assert.Equal(t, uint64(10), top.Uint64(), "expected swap to bring 10 to top")
}

func TestStackOp2Order(t *testing.T) {
	s := NewStack()
	_ = s.Push(u64(100)) // second from top after next push
	_ = s.Push(u64(7))   // top

	a, b, err := s.Op2()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), a.Uint64(), "expected a to be the top of stack")
	assert.Equal(t, uint64(100), b.Uint64(), "expected b to be second from top")
}
