// Package predict holds the speculative observers of the cache: way
// prediction, stride prefetching and access pattern classification. None of
// them affect hit or miss outcomes; they only watch the access stream and
// report.
package predict

// tableSize is the number of way predictor entries (10 index bits).
const tableSize = 1024

// WayPredictorStats tracks prediction accuracy. Only hits are scored;
// misses have no way to predict.
type WayPredictorStats struct {
	Predictions uint64 `json:"predictions"`
	Correct     uint64 `json:"correct"`
	Wrong       uint64 `json:"wrong"`
}

// Accuracy returns the correct prediction percentage.
func (s WayPredictorStats) Accuracy() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Predictions) * 100
}

// WayPredictor guesses which way an address will hit in, from a direct
// mapped table over the low line-address bits. The table starts out all
// zeros, so every entry initially predicts way 0.
type WayPredictor struct {
	table [tableSize]int
	shift uint
	stats WayPredictorStats
}

// NewWayPredictor creates a predictor whose table index starts above the
// given number of block offset bits.
func NewWayPredictor(offsetBits uint) *WayPredictor {
	return &WayPredictor{shift: offsetBits}
}

// Predict returns the predicted way for the address without touching any
// state.
func (p *WayPredictor) Predict(addr uint64) int {
	return p.table[p.index(addr)]
}

// Learn scores the prediction against the actual hit way, trains the table
// entry, and reports whether the prediction was correct. It must only be
// called for accesses that hit.
func (p *WayPredictor) Learn(addr uint64, hitWay int) bool {
	i := p.index(addr)
	correct := p.table[i] == hitWay
	p.table[i] = hitWay

	p.stats.Predictions++
	if correct {
		p.stats.Correct++
	} else {
		p.stats.Wrong++
	}

	return correct
}

// Stats returns the accuracy totals so far.
func (p *WayPredictor) Stats() WayPredictorStats {
	return p.stats
}

// Reset clears the table and the accuracy totals.
func (p *WayPredictor) Reset() {
	p.table = [tableSize]int{}
	p.stats = WayPredictorStats{}
}

func (p *WayPredictor) index(addr uint64) int {
	return int((addr >> p.shift) & (tableSize - 1))
}
