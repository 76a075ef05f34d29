package cache

// A ReplacementEngine selects eviction victims for one cache and tracks the
// per-set state its policy needs. The engine is chosen once at construction
// and never switched at runtime.
type ReplacementEngine interface {
	// Tick advances per-cycle policy state. It is called exactly once per
	// clock step, before any access of that step is processed.
	Tick()

	// Victim returns the way the policy would evict from the set. It is
	// only consulted when no suitable invalid way exists in the set.
	Victim(set int) int

	// OnHit records an access to a resident way.
	OnHit(set, way int)

	// OnFill records the installation of a new line into a way.
	OnFill(set, way int)

	// Reset restores the construction-time state.
	Reset()
}

func newReplacementEngine(cfg Config) ReplacementEngine {
	switch cfg.Policy {
	case PolicyPLRU:
		return newTreePLRU(cfg.NumSets())
	case PolicyLRU:
		return newTrueLRU(cfg.NumSets(), cfg.Ways)
	case PolicyFIFO:
		return newFIFO(cfg.NumSets(), cfg.Ways)
	case PolicyRandom:
		return newRandomLFSR(cfg.Ways)
	default:
		panic("unknown replacement policy: " + string(cfg.Policy))
	}
}

// adjustForQoS applies the QoS partition mask to a selected victim. If the
// chosen way is disallowed, the scan moves upward without wrapping; if no
// allowed way exists at or above the chosen index, the last way is used
// regardless of the mask.
func adjustForQoS(way int, mask uint64, ways int) int {
	for w := way; w < ways; w++ {
		if mask&(1<<w) != 0 {
			return w
		}
	}
	return ways - 1
}

// treePLRU keeps a 3-bit tree per set for 4-way sets. On access the bits
// record the path to the accessed way (bit0 the half, bit1/bit2 the way
// within the left/right half); the victim walks the opposite path.
type treePLRU struct {
	state []uint8
}

func newTreePLRU(numSets int) *treePLRU {
	return &treePLRU{state: make([]uint8, numSets)}
}

func (p *treePLRU) Tick() {}

func (p *treePLRU) Victim(set int) int {
	s := p.state[set]
	if s&0b001 != 0 {
		// Right half was used last; evict from the left half.
		if s&0b010 != 0 {
			return 0
		}
		return 1
	}
	if s&0b100 != 0 {
		return 2
	}
	return 3
}

func (p *treePLRU) OnHit(set, way int) {
	s := p.state[set]
	switch way {
	case 0:
		s &^= 0b011
	case 1:
		s &^= 0b001
		s |= 0b010
	case 2:
		s |= 0b001
		s &^= 0b100
	case 3:
		s |= 0b101
	}
	p.state[set] = s
}

func (p *treePLRU) OnFill(set, way int) {
	p.OnHit(set, way)
}

func (p *treePLRU) Reset() {
	clear(p.state)
}

// trueLRU keeps a log2(ways)-bit counter per way and increments the accessed
// way's own counter on every hit and fill. The victim is the way with the
// minimum counter, lowest index winning ties.
//
// The counters wrap at their configured width, so this tracks access
// frequency since reset rather than textbook recency. That is the upstream
// behavior and is kept as-is.
type trueLRU struct {
	ways     int
	counters []uint8
	mask     uint8
}

func newTrueLRU(numSets, ways int) *trueLRU {
	return &trueLRU{
		ways:     ways,
		counters: make([]uint8, numSets*ways),
		mask:     uint8(widthMask(log2(ways))),
	}
}

func (l *trueLRU) Tick() {}

func (l *trueLRU) Victim(set int) int {
	base := set * l.ways
	victim := 0
	min := l.counters[base]
	for w := 1; w < l.ways; w++ {
		if l.counters[base+w] < min {
			min = l.counters[base+w]
			victim = w
		}
	}
	return victim
}

func (l *trueLRU) OnHit(set, way int) {
	i := set*l.ways + way
	l.counters[i] = (l.counters[i] + 1) & l.mask
}

func (l *trueLRU) OnFill(set, way int) {
	l.OnHit(set, way)
}

func (l *trueLRU) Reset() {
	clear(l.counters)
}

// fifoEngine stamps each way with the cycle of its allocation and evicts the
// way with the smallest stamp. Hits never change a stamp.
type fifoEngine struct {
	ways   int
	stamps []uint32
	cycle  uint32
}

func newFIFO(numSets, ways int) *fifoEngine {
	return &fifoEngine{
		ways:   ways,
		stamps: make([]uint32, numSets*ways),
	}
}

func (f *fifoEngine) Tick() {
	f.cycle++
}

func (f *fifoEngine) Victim(set int) int {
	base := set * f.ways
	victim := 0
	min := f.stamps[base]
	for w := 1; w < f.ways; w++ {
		if f.stamps[base+w] < min {
			min = f.stamps[base+w]
			victim = w
		}
	}
	return victim
}

func (f *fifoEngine) OnHit(set, way int) {}

func (f *fifoEngine) OnFill(set, way int) {
	f.stamps[set*f.ways+way] = f.cycle
}

func (f *fifoEngine) Reset() {
	clear(f.stamps)
	f.cycle = 0
}

// lfsrSeed and the feedback taps of the shared 16-bit Fibonacci LFSR that
// drives random victim selection.
const lfsrSeed uint16 = 0xACE1

// randomLFSR selects victims from one 16-bit LFSR shared across all sets,
// advanced exactly once per clock step. All ports of a cycle observe the
// same LFSR value.
type randomLFSR struct {
	wayMask uint16
	state   uint16
}

func newRandomLFSR(ways int) *randomLFSR {
	return &randomLFSR{
		wayMask: uint16(widthMask(log2(ways))),
		state:   lfsrSeed,
	}
}

func (r *randomLFSR) Tick() {
	// Feedback from taps 15, 13, 12, 10.
	bit := (r.state>>15 ^ r.state>>13 ^ r.state>>12 ^ r.state>>10) & 1
	r.state = r.state<<1 | bit
}

func (r *randomLFSR) Victim(set int) int {
	return int(r.state & r.wayMask)
}

func (r *randomLFSR) OnHit(set, way int) {}

func (r *randomLFSR) OnFill(set, way int) {}

func (r *randomLFSR) Reset() {
	r.state = lfsrSeed
}
