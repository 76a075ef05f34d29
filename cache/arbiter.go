package cache

// PortArbiter resolves the requests of one cycle into a conflict-free grant
// set. Priority is fixed: the lowest port id wins.
//
// With banking enabled, a port is denied when a strictly higher-priority
// port already granted this cycle targets the same bank; the denied port
// sees ready=false and must resubmit the identical request next cycle. With
// banking disabled every requesting port is granted, even two ports racing
// on the same set; that race is resolved deterministically by processing
// grants in priority order within the step.
type PortArbiter struct {
	banking  bool
	numBanks int
	ports    int
}

// NewPortArbiter creates an arbiter for the configured port and bank counts.
func NewPortArbiter(cfg Config) *PortArbiter {
	return &PortArbiter{
		banking:  cfg.BankingEnabled,
		numBanks: cfg.NumBanks,
		ports:    cfg.ClientPorts,
	}
}

// Grant returns the grant bitmask for the cycle, indexed by port id.
// Requests must already be validated (one request per port at most).
func (a *PortArbiter) Grant(reqs []Request, dec *AddressDecoder) uint64 {
	byPort := make([]*Request, a.ports)
	for i := range reqs {
		byPort[reqs[i].Port] = &reqs[i]
	}

	var grants uint64
	bankTaken := make([]bool, a.numBanks)

	for port := 0; port < a.ports; port++ {
		req := byPort[port]
		if req == nil {
			continue
		}

		if a.banking {
			bank := dec.Decode(req.Address).Bank
			if bankTaken[bank] {
				continue
			}
			bankTaken[bank] = true
		}

		grants |= 1 << port
	}

	return grants
}
