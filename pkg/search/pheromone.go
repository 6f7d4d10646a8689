package search

import (
	"math"

	"github.com/matzehuels/pathminer/pkg/network"
)

// pheromones reads and reinforces vertex pheromones with lazy evaporation:
// a vertex last written at iteration u and read at iteration t has the
// effective value max(tauMin, tau * (1-rho)^(t-u)). Powers of (1-rho) come
// from a lookup table rebuilt whenever the scheduled rho changes.
type pheromones struct {
	g      *network.Graph
	aco    ACOConfig
	tauMin float64
	tauMax float64
	rho    float64
	pow    []float64
}

func newPheromones(g *network.Graph, aco ACOConfig) *pheromones {
	p := &pheromones{
		g:      g,
		aco:    aco,
		tauMin: aco.TauMin,
		tauMax: 1 - aco.TauMin,
		pow:    make([]float64, aco.MaxIterations+2),
	}
	p.setRho(aco.Rho)
	return p
}

// setIteration applies the rho schedule for iteration t.
func (p *pheromones) setIteration(t int) {
	if rho := p.aco.RhoAt(t); rho != p.rho {
		p.setRho(rho)
	}
}

func (p *pheromones) setRho(rho float64) {
	p.rho = rho
	f := 1.0
	for i := range p.pow {
		p.pow[i] = f
		f *= 1 - rho
	}
}

func (p *pheromones) decay(elapsed int) float64 {
	if elapsed <= 0 {
		return 1
	}
	if elapsed < len(p.pow) {
		return p.pow[elapsed]
	}
	return math.Pow(1-p.rho, float64(elapsed))
}

// effective returns the evaporated pheromone of v as seen at iteration t.
func (p *pheromones) effective(v, t int) float64 {
	tau := p.g.Pheromone(v) * p.decay(t-p.g.LastUpdated(v))
	return max(p.tauMin, tau)
}

// reinforce evaporates and deposits amount on every vertex of s.
func (p *pheromones) reinforce(s *Subgraph, amount float64, t int) {
	for _, v := range s.Order() {
		tau := p.effective(v, t)*(1-p.rho) + amount
		p.g.SetPheromone(v, clamp(tau, p.tauMin, p.tauMax), t)
	}
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}
