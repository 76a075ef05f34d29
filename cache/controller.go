package cache

import (
	"errors"
	"fmt"

	"github.com/sarchlab/cachesim/ecc"
	"github.com/sarchlab/cachesim/predict"
)

// Op is the operation of one request.
type Op int

// The request operations.
const (
	OpRead Op = iota
	OpWrite
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Latency contributions of the fixed estimate: one cycle per hit, a fixed
// ten-cycle penalty per miss. This is not a real memory latency model.
const (
	HitLatency  = 1
	MissPenalty = 10
)

// ErrInvalidRequest reports a malformed request. The check happens before
// arbitration; an invalid cycle never reaches cache state.
var ErrInvalidRequest = errors.New("invalid request")

// Request is the transient per-port input of one cycle.
type Request struct {
	// Port is the issuing client port.
	Port int
	// Op is read or write.
	Op Op
	// Address is the physical address.
	Address uint64
	// Data is the word to store (writes only).
	Data uint64
}

// Response is the transient per-port outcome of one cycle.
type Response struct {
	// Port echoes the request's port.
	Port int
	// Ready reports whether the port was granted. A port denied by a bank
	// conflict must resubmit the identical request on a later cycle.
	Ready bool
	// Hit and Miss report the lookup outcome of a granted access.
	Hit  bool
	Miss bool
	// Error reports an uncorrectable ECC error; the returned data is then
	// poisoned and the caller decides escalation.
	Error bool
	// Data is the word read (reads only).
	Data uint64
	// Latency is this access's contribution to the latency estimate.
	Latency uint64
	// Bandwidth is this access's contribution in bytes (one word).
	Bandwidth uint64
}

// CycleInput carries everything the controller consumes in one clock step.
type CycleInput struct {
	// Requests holds at most one request per client port.
	Requests []Request
	// PrefetchHint forces the prefetcher to issue even without a confirmed
	// stride.
	PrefetchHint bool
	// QoSMask restricts eviction targets to the set ways when QoS is
	// enabled.
	QoSMask uint64
	// LowPower switches the power controller to touched-ways-only mode.
	LowPower bool
}

// CycleOutput carries the results of one clock step.
type CycleOutput struct {
	// Responses correspond one-to-one, in order, to the input requests.
	Responses []Response
	// Counters is a snapshot of the running totals.
	Counters Counters
	// AdaptiveActive is the access-pattern classifier's current verdict.
	AdaptiveActive bool
	// CompressionActive is a disabled hook and always false.
	CompressionActive bool
	// ActiveWays is the power controller's per-way active mask.
	ActiveWays uint64
}

// Controller orchestrates one clock step: arbitration, address decode, hit
// detection, ECC check, the data path, replacement update and counters.
//
// The controller is not reentrant. Advance must be called sequentially, once
// per logical clock cycle; callers own the serialization.
type Controller struct {
	cfg Config

	dec   *AddressDecoder
	dir   *TagDirectory
	repl  ReplacementEngine
	arb   *PortArbiter
	power *PowerController
	codec *ecc.Codec
	mem   Memory

	// Optional observers; nil when disabled.
	wayPredictor *predict.WayPredictor
	prefetcher   *predict.Prefetcher
	classifier   *predict.PatternClassifier

	counters Counters
	addrMask uint64
}

// NewController validates the configuration and builds a controller around
// the given memory collaborator. It fails with a *ConfigError on an invalid
// parameter combination.
func NewController(cfg Config, mem Memory) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dec, err := NewAddressDecoder(cfg)
	if err != nil {
		return nil, err
	}

	var codec *ecc.Codec
	if cfg.ECCEnabled {
		codec, err = ecc.New(cfg.DataWidth)
		if err != nil {
			return nil, &ConfigError{"data_width", err.Error()}
		}
	}

	c := &Controller{
		cfg:      cfg,
		dec:      dec,
		dir:      NewTagDirectory(cfg, codec),
		repl:     newReplacementEngine(cfg),
		arb:      NewPortArbiter(cfg),
		power:    NewPowerController(cfg),
		codec:    codec,
		mem:      mem,
		addrMask: widthMask(cfg.AddressWidth),
	}

	if cfg.WayPredictEnabled {
		c.wayPredictor = predict.NewWayPredictor(uint(dec.OffsetBits()))
	}
	if cfg.PrefetchEnabled {
		c.prefetcher = predict.NewPrefetcher(cfg.ClientPorts)
	}
	if cfg.AIAdaptiveEnabled {
		c.classifier = predict.NewPatternClassifier()
	}

	return c, nil
}

// Config returns the construction-time configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Counters returns a snapshot of the running totals.
func (c *Controller) Counters() Counters {
	return c.snapshot()
}

// Advance processes one clock cycle. Requests are arbitrated, then granted
// ports are served in arbitration priority order (lowest port id first);
// that order also resolves same-cycle races on one set deterministically.
// The returned responses correspond one-to-one to the input requests.
func (c *Controller) Advance(in CycleInput) (*CycleOutput, error) {
	if err := c.validate(in.Requests); err != nil {
		return nil, err
	}

	c.counters.Cycles++
	c.repl.Tick()

	grants := c.arb.Grant(in.Requests, c.dec)

	responses := make([]Response, len(in.Requests))
	indexOfPort := make(map[int]int, len(in.Requests))
	for i, req := range in.Requests {
		indexOfPort[req.Port] = i
		responses[i] = Response{Port: req.Port}
	}

	var touched uint64

	for port := 0; port < c.cfg.ClientPorts; port++ {
		i, requested := indexOfPort[port]
		if !requested {
			continue
		}
		if grants&(1<<port) == 0 {
			// Bank conflict: backpressure, retry next cycle.
			continue
		}

		way := c.serve(in.Requests[i], in, &responses[i])
		if way >= 0 {
			touched |= 1 << way
		}
	}

	out := &CycleOutput{
		Responses:  responses,
		Counters:   c.snapshot(),
		ActiveWays: c.power.ActiveWays(in.LowPower, touched),
	}
	if c.classifier != nil {
		out.AdaptiveActive = c.classifier.Active()
	}

	return out, nil
}

// serve handles one granted access and returns the way it touched, or -1
// for a bypassed access.
func (c *Controller) serve(req Request, in CycleInput, resp *Response) int {
	resp.Ready = true
	resp.Bandwidth = uint64(c.cfg.WordSizeBytes())
	c.counters.BandwidthBytes += resp.Bandwidth

	dec := c.dec.Decode(req.Address)
	set := int(dec.Index)
	word := int(dec.WordOffset)
	lineAddr := c.dec.LineAddress(req.Address)

	if c.classifier != nil {
		c.classifier.Observe(req.Address)
	}
	if c.prefetcher != nil {
		c.prefetcher.Observe(req.Port, req.Address, in.PrefetchHint)
	}

	way, hit := c.dir.Lookup(lineAddr)

	if c.wayPredictor != nil && hit {
		c.wayPredictor.Learn(req.Address, way)
	}

	if hit {
		c.counters.Hits++
		resp.Hit = true
		resp.Latency = HitLatency
		c.counters.LatencyCycles += HitLatency

		c.serveHit(req, set, way, word, lineAddr, resp)
		c.repl.OnHit(set, way)

		return way
	}

	c.counters.Misses++
	resp.Miss = true
	resp.Latency = MissPenalty
	c.counters.LatencyCycles += MissPenalty

	if req.Op == OpWrite && !c.cfg.WriteBack && !c.cfg.WriteAllocate {
		// Write-through, no-write-allocate: the line is bypassed entirely
		// and the word passes straight through to memory.
		c.mem.WritebackLine(req.Address, []uint64{req.Data})
		return -1
	}

	return c.allocate(req, set, word, lineAddr, in.QoSMask, resp)
}

func (c *Controller) serveHit(req Request, set, way, word int, lineAddr uint64, resp *Response) {
	if req.Op == OpRead {
		stored, parity := c.dir.ReadWord(set, way, word)
		if c.codec == nil {
			resp.Data = stored
			return
		}

		corrected, correctable, uncorrectable := c.codec.Decode(stored, parity)
		resp.Data = corrected
		if correctable {
			c.counters.ECCCorrected++
		}
		if uncorrectable {
			c.counters.ECCUncorrectable++
			resp.Error = true
		}
		return
	}

	c.dir.WriteWord(set, way, word, req.Data)
	if c.cfg.WriteBack {
		c.dir.MarkDirty(set, way)
	} else {
		// Write-through: memory is notified synchronously, no dirty bit.
		c.mem.WritebackLine(lineAddr, c.dir.LineWords(set, way))
	}
}

func (c *Controller) allocate(req Request, set, word int, lineAddr uint64, mask uint64, resp *Response) int {
	way := c.chooseVictim(set, mask)

	if victimAddr, valid, dirty := c.dir.Line(set, way); valid {
		c.counters.Replacements++
		if dirty {
			c.mem.WritebackLine(victimAddr, c.dir.LineWords(set, way))
			c.counters.DirtyEvictions++
		}
	}

	if req.Op == OpRead {
		line := c.mem.FetchLine(lineAddr)
		c.dir.InstallLine(set, way, lineAddr, line, false)
		resp.Data, _ = c.dir.ReadWord(set, way, word)
	} else {
		line := make([]uint64, c.cfg.WordsPerLine())
		line[word] = req.Data
		c.dir.InstallLine(set, way, lineAddr, line, c.cfg.WriteBack)
		if !c.cfg.WriteBack {
			// Write-allocate under write-through still notifies memory.
			c.mem.WritebackLine(lineAddr, c.dir.LineWords(set, way))
		}
	}

	c.repl.OnFill(set, way)

	return way
}

// chooseVictim picks the way to allocate into: the lowest-index invalid way
// if one exists, otherwise the policy's victim. The QoS partition mask, when
// enabled, is applied after policy selection per the upward-scan rule.
func (c *Controller) chooseVictim(set int, mask uint64) int {
	if c.cfg.QoSEnabled {
		for w := 0; w < c.cfg.Ways; w++ {
			if mask&(1<<w) == 0 {
				continue
			}
			if _, valid, _ := c.dir.Line(set, w); !valid {
				return w
			}
		}
		return adjustForQoS(c.repl.Victim(set), mask, c.cfg.Ways)
	}

	if way, ok := c.dir.FreeWay(set); ok {
		return way
	}
	return c.repl.Victim(set)
}

// PopPrefetch hands the oldest pending prefetch target to the memory
// collaborator. It reports false when the queue is empty or prefetching is
// disabled.
func (c *Controller) PopPrefetch() (uint64, bool) {
	if c.prefetcher == nil {
		return 0, false
	}
	return c.prefetcher.Pop()
}

// Flush writes all dirty lines back and invalidates the whole cache.
func (c *Controller) Flush() int {
	return c.dir.Flush(c.mem)
}

// Invalidate drops the line holding addr without writeback.
func (c *Controller) Invalidate(addr uint64) {
	c.dir.Invalidate(c.dec.LineAddress(addr))
}

// Directory exposes the tag directory, mainly for fault injection and
// inspection by drivers and tests.
func (c *Controller) Directory() *TagDirectory {
	return c.dir
}

// Reset restores the construction-time state, including counters.
func (c *Controller) Reset() {
	c.dir.Reset()
	c.repl.Reset()
	c.counters = Counters{}
	if c.wayPredictor != nil {
		c.wayPredictor.Reset()
	}
	if c.prefetcher != nil {
		c.prefetcher.Reset()
	}
	if c.classifier != nil {
		c.classifier.Reset()
	}
}

func (c *Controller) validate(reqs []Request) error {
	if len(reqs) > c.cfg.ClientPorts {
		return fmt.Errorf("%w: %d requests for %d ports",
			ErrInvalidRequest, len(reqs), c.cfg.ClientPorts)
	}

	seen := make(map[int]bool, len(reqs))
	for _, req := range reqs {
		if req.Port < 0 || req.Port >= c.cfg.ClientPorts {
			return fmt.Errorf("%w: unsupported port id %d", ErrInvalidRequest, req.Port)
		}
		if seen[req.Port] {
			return fmt.Errorf("%w: port %d requested twice in one cycle",
				ErrInvalidRequest, req.Port)
		}
		seen[req.Port] = true

		if req.Op != OpRead && req.Op != OpWrite {
			return fmt.Errorf("%w: unknown operation %d on port %d",
				ErrInvalidRequest, int(req.Op), req.Port)
		}
		if req.Address&^c.addrMask != 0 {
			return fmt.Errorf("%w: address %#x exceeds %d-bit address space",
				ErrInvalidRequest, req.Address, c.cfg.AddressWidth)
		}
	}

	return nil
}

func (c *Controller) snapshot() Counters {
	s := c.counters
	if c.wayPredictor != nil {
		stats := c.wayPredictor.Stats()
		s.WayPredictCorrect = stats.Correct
		s.WayPredictWrong = stats.Wrong
	}
	if c.prefetcher != nil {
		s.Prefetches = c.prefetcher.Stats().Issued
	}
	return s
}
