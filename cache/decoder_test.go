package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarchlab/cachesim/cache"
)

func newDecoder(t *testing.T, cfg cache.Config) *cache.AddressDecoder {
	t.Helper()
	dec, err := cache.NewAddressDecoder(cfg)
	require.NoError(t, err)
	return dec
}

func TestDecodeFieldWidths(t *testing.T) {
	// 16KB, 4-way, 64B blocks: 6 offset bits, 6 index bits, 20 tag bits.
	dec := newDecoder(t, cache.DefaultConfig())

	assert.Equal(t, 6, dec.OffsetBits())
	assert.Equal(t, 6, dec.IndexBits())
	assert.Equal(t, 20, dec.TagBits())
}

func TestDecodeIsLossless(t *testing.T) {
	dec := newDecoder(t, cache.DefaultConfig())

	addrs := []uint64{0, 0x1000, 0x1234, 0xDEADBEEC, 0xFFFFFFFF, 1<<32 - 64}
	for _, addr := range addrs {
		d := dec.Decode(addr)

		rebuilt := d.Tag<<12 | d.Index<<6 | d.Offset
		assert.Equal(t, addr, rebuilt, "address %#x", addr)
	}
}

func TestDecodeWordOffset(t *testing.T) {
	dec := newDecoder(t, cache.DefaultConfig())

	// 32-bit words: byte offset 12 is word 3 of its line.
	d := dec.Decode(0x100C)
	assert.Equal(t, uint64(0xC), d.Offset)
	assert.Equal(t, uint64(3), d.WordOffset)
}

func TestDecodeBankAssignment(t *testing.T) {
	cfg := cache.DefaultConfig()
	dec := newDecoder(t, cfg)

	// Two banks: the bank is the set index parity.
	assert.Equal(t, uint64(0), dec.Decode(0x0).Bank)
	assert.Equal(t, uint64(1), dec.Decode(0x40).Bank)
	assert.Equal(t, uint64(0), dec.Decode(0x80).Bank)
	assert.Equal(t, uint64(0), dec.Decode(0x1000).Bank)

	cfg.BankingEnabled = false
	unbanked := newDecoder(t, cfg)
	assert.Equal(t, uint64(0), unbanked.Decode(0x40).Bank)
}

func TestDecodeMasksToAddressWidth(t *testing.T) {
	dec := newDecoder(t, cache.DefaultConfig())

	// Bits above the 32-bit address width are ignored.
	assert.Equal(t, dec.Decode(0x1040), dec.Decode(1<<40|0x1040))
}

func TestLineAddress(t *testing.T) {
	dec := newDecoder(t, cache.DefaultConfig())

	assert.Equal(t, uint64(0x1000), dec.LineAddress(0x1000))
	assert.Equal(t, uint64(0x1000), dec.LineAddress(0x103F))
	assert.Equal(t, uint64(0x1040), dec.LineAddress(0x1040))
}
