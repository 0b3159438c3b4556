package ringbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainBuf_UsedTracksWrittenMinusConsumed(t *testing.T) {
	c := New(16)
	c.Write([]byte("hello world"))
	assert.EqualValues(t, 11, c.Used())

	c.Consume(5)
	assert.EqualValues(t, 6, c.Used())
}

func TestChainBuf_PeekBeyondUsedNeverBlocksAndTruncates(t *testing.T) {
	c := New(16)
	c.Write([]byte("abc"))

	got := c.Peek(100)
	require.Len(t, got, 3)
	assert.Equal(t, []byte("abc"), got)
}

func TestChainBuf_ZeroCopyPeekBoundedByChunk(t *testing.T) {
	c := New(16)
	c.Write(make([]byte, 40))

	got := c.ZeroCopyPeek(64)
	assert.LessOrEqual(t, len(got), 16)
	assert.Greater(t, len(got), 0)
}

func TestChainBuf_RoundTripScenario(t *testing.T) {
	c := New(16)
	c.Write(make([]byte, 40))
	assert.EqualValues(t, 40, c.Used())

	got := c.ZeroCopyPeek(64)
	assert.GreaterOrEqual(t, len(got), 1)
	assert.LessOrEqual(t, len(got), 16)

	c.Consume(40)
	assert.EqualValues(t, 0, c.Used())
}

func TestChainBuf_ReserveCommitRoundTrip(t *testing.T) {
	c := New(16)
	buf := c.Reserve(4)
	copy(buf, []byte{1, 2, 3, 4})
	c.Commit(buf, 4)

	assert.EqualValues(t, 4, c.Used())
	got := c.Peek(4)
	assert.Equal(t, []byte{1, 2, 3, 4}, got)
}

func TestChainBuf_MarkDeadFiresCallbackAndDrains(t *testing.T) {
	c := New(16)
	c.Write([]byte("pending"))

	fired := false
	c.OnError(func() { fired = true })
	c.MarkDead()

	assert.True(t, fired)
	assert.EqualValues(t, 0, c.Used())
}

func TestChainBuf_MultiChunkConsumeFreesInFIFOOrder(t *testing.T) {
	c := New(4)
	c.Write([]byte("0123456789")) // spans 3 chunks of size 4

	c.Consume(4)
	assert.EqualValues(t, 6, c.Used())
	rest := c.Peek(6)
	assert.Equal(t, []byte("456789"), rest)
}
