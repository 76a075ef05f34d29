package predict

// windowSize is the number of recent addresses one classification looks at.
const windowSize = 16

// PatternClassifier watches the global access stream through a ring buffer
// of recent addresses and, each time the buffer wraps, reclassifies the
// stream as sequential or irregular. The verdict is observational only.
type PatternClassifier struct {
	window [windowSize]uint64
	pos    int
	active bool
}

// NewPatternClassifier creates a classifier with an empty window.
func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{}
}

// Observe records one address. When the write position wraps, the window is
// classified: strictly increasing consecutive addresses count as a
// sequential pattern and raise the active flag, anything else lowers it.
func (c *PatternClassifier) Observe(addr uint64) {
	c.window[c.pos] = addr
	c.pos++
	if c.pos < windowSize {
		return
	}
	c.pos = 0

	sequential := true
	for i := 1; i < windowSize; i++ {
		if c.window[i] <= c.window[i-1] {
			sequential = false
			break
		}
	}
	c.active = sequential
}

// Active reports the verdict of the most recent classification.
func (c *PatternClassifier) Active() bool {
	return c.active
}

// Reset clears the window and lowers the active flag.
func (c *PatternClassifier) Reset() {
	c.window = [windowSize]uint64{}
	c.pos = 0
	c.active = false
}
