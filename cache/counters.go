package cache

// Counters are the monotonically increasing totals of one controller. They
// are reset only at construction (or an explicit Reset). Advance returns a
// value snapshot every cycle, so a snapshot can be recorded or diffed
// without racing the model.
type Counters struct {
	// Cycles is the number of Advance calls processed.
	Cycles uint64 `json:"cycles"`

	// Hits and Misses count granted accesses by outcome.
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`

	// Replacements counts allocations that overwrote a valid line;
	// DirtyEvictions counts the subset whose line was dirty and written
	// back.
	Replacements   uint64 `json:"replacements"`
	DirtyEvictions uint64 `json:"dirty_evictions"`

	// Prefetches counts addresses pushed into the prefetch queue.
	Prefetches uint64 `json:"prefetches"`

	// WayPredictCorrect and WayPredictWrong count hit accesses by whether
	// the way predictor named the hit way. Misses affect neither.
	WayPredictCorrect uint64 `json:"way_predict_correct"`
	WayPredictWrong   uint64 `json:"way_predict_wrong"`

	// ECCCorrected and ECCUncorrectable count error-correction events on
	// read hits.
	ECCCorrected     uint64 `json:"ecc_corrected"`
	ECCUncorrectable uint64 `json:"ecc_uncorrectable"`

	// LatencyCycles is the accumulated latency estimate: one cycle per hit
	// plus a fixed ten-cycle penalty per miss.
	LatencyCycles uint64 `json:"latency_cycles"`

	// BandwidthBytes accumulates one word per granted access.
	BandwidthBytes uint64 `json:"bandwidth_bytes"`
}

// Accesses returns the number of granted accesses.
func (c Counters) Accesses() uint64 {
	return c.Hits + c.Misses
}

// HitRate returns the hit percentage over all granted accesses.
func (c Counters) HitRate() float64 {
	if c.Accesses() == 0 {
		return 0
	}
	return float64(c.Hits) / float64(c.Accesses()) * 100
}

// MissRate returns the miss percentage over all granted accesses.
func (c Counters) MissRate() float64 {
	if c.Accesses() == 0 {
		return 0
	}
	return float64(c.Misses) / float64(c.Accesses()) * 100
}

// WayPredictAccuracy returns the way-prediction accuracy percentage over
// hit accesses.
func (c Counters) WayPredictAccuracy() float64 {
	total := c.WayPredictCorrect + c.WayPredictWrong
	if total == 0 {
		return 0
	}
	return float64(c.WayPredictCorrect) / float64(total) * 100
}
