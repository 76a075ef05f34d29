package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTreePLRUVictimWalksOppositePath(t *testing.T) {
	tests := []struct {
		name     string
		accesses []int
		victim   int
	}{
		{"cold set", nil, 3},
		{"after way 0", []int{0}, 3},
		{"after way 3", []int{3}, 1},
		{"after 0,1,2", []int{0, 1, 2}, 0},
		{"after 2,3,0", []int{2, 3, 0}, 2},
		{"after 0,1,2,3", []int{0, 1, 2, 3}, 0},
		{"after 3,2,1,0", []int{3, 2, 1, 0}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTreePLRU(1)
			for _, way := range tt.accesses {
				p.OnHit(0, way)
			}
			assert.Equal(t, tt.victim, p.Victim(0))
		})
	}
}

func TestTreePLRUNeverEvictsRecentPair(t *testing.T) {
	p := newTreePLRU(1)

	// Pseudo-random access sequence; the victim must never be one of the
	// two most recently accessed distinct ways.
	sequence := []int{0, 2, 1, 3, 3, 0, 2, 2, 1, 0, 3, 1, 2, 0}

	var recent []int
	for _, way := range sequence {
		p.OnHit(0, way)

		if len(recent) == 0 || recent[len(recent)-1] != way {
			recent = append(recent, way)
		}
		if len(recent) > 2 {
			recent = recent[1:]
		}

		victim := p.Victim(0)
		for _, r := range recent {
			assert.NotEqual(t, r, victim, "sequence up to way %d", way)
		}
	}
}

func TestTrueLRUPicksMinimumCounter(t *testing.T) {
	l := newTrueLRU(1, 4)

	for way := 0; way < 4; way++ {
		l.OnFill(0, way)
	}

	// All counters equal; the lowest index wins the tie.
	assert.Equal(t, 0, l.Victim(0))

	l.OnHit(0, 0)
	l.OnHit(0, 1)
	assert.Equal(t, 2, l.Victim(0))

	l.OnHit(0, 2)
	l.OnHit(0, 3)
	assert.Equal(t, 0, l.Victim(0))
}

func TestTrueLRUCountersWrap(t *testing.T) {
	l := newTrueLRU(1, 4)

	for way := 0; way < 4; way++ {
		l.OnFill(0, way)
	}

	// Three more accesses wrap way 0's 2-bit counter back to zero, making
	// the most accessed way the victim again.
	l.OnHit(0, 0)
	l.OnHit(0, 0)
	l.OnHit(0, 0)
	assert.Equal(t, 0, l.Victim(0))
}

func TestFIFOEvictsOldestAllocation(t *testing.T) {
	f := newFIFO(1, 4)

	for way := 0; way < 4; way++ {
		f.Tick()
		f.OnFill(0, way)
	}

	assert.Equal(t, 0, f.Victim(0))

	// Hits never change the allocation order.
	f.Tick()
	f.OnHit(0, 0)
	f.OnHit(0, 0)
	assert.Equal(t, 0, f.Victim(0))

	f.Tick()
	f.OnFill(0, 0)
	assert.Equal(t, 1, f.Victim(0))
}

func TestRandomLFSRIsDeterministic(t *testing.T) {
	a := newRandomLFSR(4)
	b := newRandomLFSR(4)

	for i := 0; i < 100; i++ {
		a.Tick()
		b.Tick()
		assert.Equal(t, a.Victim(0), b.Victim(0), "step %d", i)
		assert.GreaterOrEqual(t, a.Victim(0), 0)
		assert.Less(t, a.Victim(0), 4)
	}

	a.Reset()
	a.Tick()
	b2 := newRandomLFSR(4)
	b2.Tick()
	assert.Equal(t, b2.Victim(0), a.Victim(0))
}

func TestRandomLFSRSharedAcrossSets(t *testing.T) {
	r := newRandomLFSR(4)
	r.Tick()

	// Every set observes the same LFSR value within one cycle.
	assert.Equal(t, r.Victim(0), r.Victim(17))
	assert.Equal(t, r.Victim(3), r.Victim(42))
}

func TestAdjustForQoS(t *testing.T) {
	tests := []struct {
		name   string
		way    int
		mask   uint64
		expect int
	}{
		{"allowed way unchanged", 1, 0b0010, 1},
		{"scan to next allowed", 1, 0b1100, 2},
		{"scan to top", 0, 0b1000, 3},
		{"none at or above", 2, 0b0001, 3},
		{"empty mask", 0, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, adjustForQoS(tt.way, tt.mask, 4))
		})
	}
}
