// Package ecc implements a SECDED (single-error-correct, double-error-detect)
// Hamming code over a fixed-width data word.
//
// The codec is pure: Encode and Decode never touch shared state, so one Codec
// can serve every cache line of a simulation.
package ecc

import (
	"fmt"
	"math/bits"
)

// Codec encodes and decodes one data word against its parity bits.
//
// The code places data bits at the non-power-of-two positions of a 1-based
// codeword. Position-parity bit i covers every codeword position with bit i
// set, so the syndrome of a single flipped bit is its codeword position. One
// extra parity bit covers the whole codeword and separates single-bit errors
// (odd total parity) from double-bit errors (even total parity).
type Codec struct {
	dataWidth    int
	positionBits int

	// masks[i] selects the data bits covered by position-parity bit i.
	masks []uint64

	// posToData maps a codeword position to its data bit index, or -1 for
	// positions occupied by parity bits.
	posToData []int
}

// New creates a Codec for the given data width. Width must be a power of two
// between 8 and 64. The resulting code uses ceil(log2(width))+2 parity bits.
func New(dataWidth int) (*Codec, error) {
	if dataWidth < 8 || dataWidth > 64 || dataWidth&(dataWidth-1) != 0 {
		return nil, fmt.Errorf("ecc: unsupported data width %d", dataWidth)
	}

	m := 0
	for (1 << m) < dataWidth+m+1 {
		m++
	}

	c := &Codec{
		dataWidth:    dataWidth,
		positionBits: m,
		masks:        make([]uint64, m),
		posToData:    make([]int, dataWidth+m+1),
	}

	dataBit := 0
	for pos := 1; pos <= dataWidth+m; pos++ {
		if pos&(pos-1) == 0 {
			c.posToData[pos] = -1
			continue
		}

		c.posToData[pos] = dataBit
		for i := 0; i < m; i++ {
			if pos&(1<<i) != 0 {
				c.masks[i] |= 1 << dataBit
			}
		}
		dataBit++
	}

	return c, nil
}

// DataWidth returns the width of the words this codec protects.
func (c *Codec) DataWidth() int {
	return c.dataWidth
}

// ParityWidth returns the number of parity bits Encode produces.
func (c *Codec) ParityWidth() int {
	return c.positionBits + 1
}

// Encode computes the parity bits for a data word. The low ParityWidth()-1
// bits are the position parities; the top bit is the overall parity covering
// all data and parity bits.
func (c *Codec) Encode(word uint64) uint8 {
	word &= c.wordMask()

	var parity uint8
	for i, mask := range c.masks {
		parity |= uint8(bits.OnesCount64(word&mask)&1) << i
	}

	overall := (bits.OnesCount64(word) + bits.OnesCount8(parity)) & 1
	parity |= uint8(overall) << c.positionBits

	return parity
}

// Decode checks a word against its stored parity. If a single bit of the
// word or the parity flipped, the returned word is corrected and correctable
// is true. If two bits flipped, uncorrectable is true and the word is
// returned unmodified. The two flags are mutually exclusive.
func (c *Codec) Decode(word uint64, stored uint8) (corrected uint64, correctable, uncorrectable bool) {
	word &= c.wordMask()

	computed := c.Encode(word)
	posMask := uint8(1<<c.positionBits) - 1

	syndrome := (computed ^ stored) & posMask

	// The overall parity is recomputed over the stored position parities so
	// a flip in any stored parity bit is observed, not masked.
	recomputed := (bits.OnesCount64(word) + bits.OnesCount8(stored&posMask)) & 1
	overallSyndrome := uint8(recomputed) ^ (stored >> c.positionBits & 1)

	if syndrome == 0 && overallSyndrome == 0 {
		return word, false, false
	}

	if overallSyndrome == 1 {
		// Odd total parity: a single bit flipped somewhere in the codeword.
		pos := int(syndrome)
		if pos >= len(c.posToData) {
			// Syndrome points outside the codeword; more than two bits
			// must have flipped.
			return word, false, true
		}
		if pos != 0 && c.posToData[pos] >= 0 {
			word ^= 1 << c.posToData[pos]
		}
		// pos == 0 means the overall parity bit itself flipped; a parity
		// position needs no data correction. Either way the data is good.
		return word, true, false
	}

	// Even total parity with a nonzero syndrome: two bits flipped.
	return word, false, true
}

func (c *Codec) wordMask() uint64 {
	if c.dataWidth == 64 {
		return ^uint64(0)
	}
	return (1 << c.dataWidth) - 1
}
