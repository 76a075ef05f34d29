package predict

// queueCap is the prefetch queue capacity. Overflow overwrites the oldest
// pending entry; prefetching is best effort and never reports an error.
const queueCap = 8

// PrefetcherStats tracks issued and overwritten prefetch targets.
type PrefetcherStats struct {
	Issued  uint64 `json:"issued"`
	Dropped uint64 `json:"dropped"`
}

type strideState struct {
	lastAddr   uint64
	lastStride uint64
	confirmed  bool
}

// Prefetcher watches the per-port access stream for constant upward strides
// and queues the next expected address once a stride repeats. A hint issues
// a prefetch even before the stride is confirmed. All ports share one
// bounded queue drained by the memory collaborator through Pop.
type Prefetcher struct {
	ports []strideState

	queue [queueCap]uint64
	head  int
	count int

	stats PrefetcherStats
}

// NewPrefetcher creates a prefetcher tracking the given number of ports.
func NewPrefetcher(numPorts int) *Prefetcher {
	return &Prefetcher{ports: make([]strideState, numPorts)}
}

// Observe feeds one granted access into the stride detector of its port.
// Downward or repeated addresses only reposition the tracker; they never
// issue a prefetch.
func (p *Prefetcher) Observe(port int, addr uint64, hint bool) {
	s := &p.ports[port]

	if addr > s.lastAddr {
		stride := addr - s.lastAddr
		if stride == s.lastStride {
			s.confirmed = true
		} else {
			s.lastStride = stride
			s.confirmed = false
		}
		if s.confirmed || hint {
			p.push(addr + s.lastStride)
			p.stats.Issued++
		}
	}

	s.lastAddr = addr
}

// Pop removes and returns the oldest pending prefetch target. It reports
// false when the queue is empty.
func (p *Prefetcher) Pop() (uint64, bool) {
	if p.count == 0 {
		return 0, false
	}
	addr := p.queue[p.head]
	p.head = (p.head + 1) % queueCap
	p.count--
	return addr, true
}

// Pending returns the number of queued prefetch targets.
func (p *Prefetcher) Pending() int {
	return p.count
}

// Stats returns the issue and drop totals so far.
func (p *Prefetcher) Stats() PrefetcherStats {
	return p.stats
}

// Reset clears all per-port trackers, the queue and the totals.
func (p *Prefetcher) Reset() {
	for i := range p.ports {
		p.ports[i] = strideState{}
	}
	p.head = 0
	p.count = 0
	p.stats = PrefetcherStats{}
}

func (p *Prefetcher) push(addr uint64) {
	if p.count == queueCap {
		// Full: overwrite the oldest entry.
		p.queue[p.head] = addr
		p.head = (p.head + 1) % queueCap
		p.stats.Dropped++
		return
	}
	p.queue[(p.head+p.count)%queueCap] = addr
	p.count++
}
