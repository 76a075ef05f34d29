package cache

// PowerController derives the per-way active mask of one cycle. This is a
// logical signal only; no circuit timing is modeled.
type PowerController struct {
	allWays uint64
}

// NewPowerController creates a controller for the configured way count.
func NewPowerController(cfg Config) *PowerController {
	return &PowerController{allWays: widthMask(cfg.Ways)}
}

// ActiveWays returns the active-way mask. In normal mode every way is
// active. In low-power mode only the ways actually touched this cycle (the
// hit way, or the selected victim way on a miss, across all granted ports)
// report active.
func (p *PowerController) ActiveWays(lowPower bool, touched uint64) uint64 {
	if !lowPower {
		return p.allWays
	}
	return touched & p.allWays
}
