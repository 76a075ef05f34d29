package predict_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarchlab/cachesim/predict"
)

func TestPrefetcherNeedsARepeatedStride(t *testing.T) {
	p := predict.NewPrefetcher(1)

	p.Observe(0, 0x100, false)
	p.Observe(0, 0x140, false)
	assert.Equal(t, 0, p.Pending())

	p.Observe(0, 0x180, false)
	require.Equal(t, 1, p.Pending())

	addr, ok := p.Pop()
	require.True(t, ok)
	assert.Equal(t, uint64(0x1C0), addr)
	assert.Equal(t, uint64(1), p.Stats().Issued)
}

func TestPrefetcherHintForcesIssue(t *testing.T) {
	p := predict.NewPrefetcher(1)

	p.Observe(0, 0x100, false)
	p.Observe(0, 0x180, true)

	addr, ok := p.Pop()
	require.True(t, ok)
	assert.Equal(t, uint64(0x200), addr)
}

func TestPrefetcherIgnoresDownwardAccesses(t *testing.T) {
	p := predict.NewPrefetcher(1)

	p.Observe(0, 0x400, false)
	p.Observe(0, 0x100, false)
	p.Observe(0, 0x80, false)
	p.Observe(0, 0x80, false)

	assert.Equal(t, 0, p.Pending())
	assert.Equal(t, uint64(0), p.Stats().Issued)
}

func TestPrefetcherTracksPortsIndependently(t *testing.T) {
	p := predict.NewPrefetcher(2)

	// Interleaved streams with different strides each confirm on their own.
	p.Observe(0, 0x100, false)
	p.Observe(1, 0x1000, false)
	p.Observe(0, 0x140, false)
	p.Observe(1, 0x1080, false)
	p.Observe(0, 0x180, false)
	p.Observe(1, 0x1100, false)

	require.Equal(t, 2, p.Pending())

	addr, _ := p.Pop()
	assert.Equal(t, uint64(0x1C0), addr)
	addr, _ = p.Pop()
	assert.Equal(t, uint64(0x1180), addr)
}

func TestPrefetcherOverflowDropsOldest(t *testing.T) {
	p := predict.NewPrefetcher(1)

	p.Observe(0, 0x40, false)
	for i := 2; i <= 11; i++ {
		p.Observe(0, uint64(i)*0x40, false)
	}

	// Ten confirmed accesses issued ten targets into an 8-slot queue.
	assert.Equal(t, 8, p.Pending())
	assert.Equal(t, uint64(10), p.Stats().Issued)
	assert.Equal(t, uint64(2), p.Stats().Dropped)

	// The two oldest targets were overwritten.
	addr, ok := p.Pop()
	require.True(t, ok)
	assert.Equal(t, uint64(0x140), addr)
}

func TestPrefetcherReset(t *testing.T) {
	p := predict.NewPrefetcher(1)
	p.Observe(0, 0x40, false)
	p.Observe(0, 0x80, false)
	p.Observe(0, 0xC0, false)

	p.Reset()
	assert.Equal(t, 0, p.Pending())
	_, ok := p.Pop()
	assert.False(t, ok)
	assert.Equal(t, predict.PrefetcherStats{}, p.Stats())
}
