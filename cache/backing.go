package cache

// Memory is the collaborator that models the next level of the hierarchy.
// The controller calls FetchLine on read-miss allocation and WritebackLine
// on dirty eviction and on write-through writes. Only the interface contract
// is modeled here; a real hierarchy, a trace player or a test fake can stand
// behind it.
type Memory interface {
	// FetchLine returns the words of the line starting at lineAddr.
	FetchLine(lineAddr uint64) []uint64

	// WritebackLine stores words starting at addr. Full-line writebacks use
	// the line address; a bypassed no-allocate write forwards a single word
	// at its word address.
	WritebackLine(addr uint64, words []uint64)
}

// LineMemory is a sparse word-granular memory, usable as the backing store
// of a standalone simulation.
type LineMemory struct {
	wordSize     uint64
	wordsPerLine int
	words        map[uint64]uint64
}

// NewLineMemory creates a LineMemory matching the cache geometry.
func NewLineMemory(cfg Config) *LineMemory {
	return &LineMemory{
		wordSize:     uint64(cfg.WordSizeBytes()),
		wordsPerLine: cfg.WordsPerLine(),
		words:        make(map[uint64]uint64),
	}
}

// FetchLine returns the words of one line; untouched words read as zero.
func (m *LineMemory) FetchLine(lineAddr uint64) []uint64 {
	line := make([]uint64, m.wordsPerLine)
	for i := range line {
		line[i] = m.words[lineAddr+uint64(i)*m.wordSize]
	}
	return line
}

// WritebackLine stores words starting at addr.
func (m *LineMemory) WritebackLine(addr uint64, words []uint64) {
	for i, w := range words {
		m.words[addr+uint64(i)*m.wordSize] = w
	}
}

// WordAt reads one word directly, bypassing the cache model.
func (m *LineMemory) WordAt(addr uint64) uint64 {
	return m.words[addr]
}

// SetWord writes one word directly, bypassing the cache model.
func (m *LineMemory) SetWord(addr uint64, word uint64) {
	m.words[addr] = word
}
