package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/cachesim/ecc"
)

// TagDirectory owns the persistent per-set, per-way state of the cache: the
// Akita cache directory carries tag/valid/dirty bookkeeping and hit
// detection, and word/parity arenas beside it carry the line data and its
// SECDED parity. Lines are owned exclusively by their (set, way) slot and
// are never partially valid: allocation always evicts before installing.
type TagDirectory struct {
	dir   *akitacache.DirectoryImpl
	codec *ecc.Codec

	numSets      int
	ways         int
	wordsPerLine int

	// Indexed by setID*ways + wayID.
	words  [][]uint64
	parity [][]uint8
}

// NewTagDirectory builds the directory for the given geometry. codec may be
// nil when ECC is disabled.
func NewTagDirectory(cfg Config, codec *ecc.Codec) *TagDirectory {
	numSets := cfg.NumSets()
	totalBlocks := numSets * cfg.Ways

	d := &TagDirectory{
		dir: akitacache.NewDirectory(
			numSets,
			cfg.Ways,
			cfg.BlockSizeBytes,
			akitacache.NewLRUVictimFinder(),
		),
		codec:        codec,
		numSets:      numSets,
		ways:         cfg.Ways,
		wordsPerLine: cfg.WordsPerLine(),
		words:        make([][]uint64, totalBlocks),
		parity:       make([][]uint8, totalBlocks),
	}

	for i := 0; i < totalBlocks; i++ {
		d.words[i] = make([]uint64, d.wordsPerLine)
		d.parity[i] = make([]uint8, d.wordsPerLine)
	}

	return d
}

// Lookup scans the ways of the set holding lineAddr in increasing way order
// and returns the first valid way with a matching tag. Under the set
// invariant at most one way can match; a lower index always wins.
func (d *TagDirectory) Lookup(lineAddr uint64) (way int, ok bool) {
	block := d.dir.Lookup(0, lineAddr)
	if block == nil || !block.IsValid {
		return 0, false
	}
	return block.WayID, true
}

// FreeWay returns the lowest-index invalid way of a set, if any.
func (d *TagDirectory) FreeWay(set int) (way int, ok bool) {
	for w := 0; w < d.ways; w++ {
		if !d.block(set, w).IsValid {
			return w, true
		}
	}
	return 0, false
}

// Line reports the resident line of a slot.
func (d *TagDirectory) Line(set, way int) (lineAddr uint64, valid, dirty bool) {
	block := d.block(set, way)
	return block.Tag, block.IsValid, block.IsDirty
}

// ReadWord returns a stored word and its parity.
func (d *TagDirectory) ReadWord(set, way, word int) (uint64, uint8) {
	i := d.slot(set, way)
	return d.words[i][word], d.parity[i][word]
}

// WriteWord stores one word, re-encoding its parity when ECC is enabled.
func (d *TagDirectory) WriteWord(set, way, word int, value uint64) {
	i := d.slot(set, way)
	d.words[i][word] = value
	if d.codec != nil {
		d.parity[i][word] = d.codec.Encode(value)
	}
}

// LineWords returns a copy of the words of a slot, for writeback.
func (d *TagDirectory) LineWords(set, way int) []uint64 {
	out := make([]uint64, d.wordsPerLine)
	copy(out, d.words[d.slot(set, way)])
	return out
}

// MarkDirty flags a resident line as holding unwritten-back data.
func (d *TagDirectory) MarkDirty(set, way int) {
	d.block(set, way).IsDirty = true
}

// InstallLine overwrites a slot with a new line. The previous occupant, if
// any, must already have been evicted by the caller.
func (d *TagDirectory) InstallLine(set, way int, lineAddr uint64, line []uint64, dirty bool) {
	block := d.block(set, way)
	block.Tag = lineAddr
	block.IsValid = true
	block.IsDirty = dirty

	i := d.slot(set, way)
	copy(d.words[i], line)
	for w := len(line); w < d.wordsPerLine; w++ {
		d.words[i][w] = 0
	}
	if d.codec != nil {
		for w := 0; w < d.wordsPerLine; w++ {
			d.parity[i][w] = d.codec.Encode(d.words[i][w])
		}
	}
}

// Invalidate drops the line holding lineAddr without writeback.
func (d *TagDirectory) Invalidate(lineAddr uint64) {
	block := d.dir.Lookup(0, lineAddr)
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes every valid dirty line back through mem and invalidates all
// lines. It returns the number of writebacks performed.
func (d *TagDirectory) Flush(mem Memory) int {
	writebacks := 0
	sets := d.dir.GetSets()
	for s := range sets {
		for _, block := range sets[s].Blocks {
			if block.IsValid && block.IsDirty && mem != nil {
				mem.WritebackLine(block.Tag, d.LineWords(block.SetID, block.WayID))
				writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
	return writebacks
}

// InjectBitFlip flips one data bit of a stored word without updating its
// parity, corrupting the slot so the ECC path can be exercised.
func (d *TagDirectory) InjectBitFlip(set, way, word, bit int) {
	d.words[d.slot(set, way)][word] ^= 1 << bit
}

// Reset invalidates every line and zeroes the data arenas.
func (d *TagDirectory) Reset() {
	d.dir.Reset()
	for i := range d.words {
		clear(d.words[i])
		clear(d.parity[i])
	}
}

func (d *TagDirectory) block(set, way int) *akitacache.Block {
	sets := d.dir.GetSets()
	return sets[set].Blocks[way]
}

func (d *TagDirectory) slot(set, way int) int {
	return set*d.ways + way
}
