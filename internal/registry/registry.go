// Package registry holds the static table of provider capability and cost
// profiles. Profiles are loaded once at startup and never mutated; the
// registry is shared read-only by the limiter, scorer, and router.
package registry

import (
	"math"

	relayerrors "github.com/orcaai/relay/pkg/errors"
)

// Profile describes one provider's cost, capacity, and quality
// characteristics. Immutable after registration.
type Profile struct {
	Name            string             `json:"name"`
	CostPer1KInput  float64            `json:"cost_per_1k_input"`
	CostPer1KOutput float64            `json:"cost_per_1k_output"`
	MaxTokens       int                `json:"max_tokens"`
	RateLimit       int                `json:"rate_limit"` // requests per 60s window
	QualityByTask   map[string]float64 `json:"quality_by_task"`
}

// Cost returns the dollar cost of a completed call, rounded to six decimal
// places.
func (p *Profile) Cost(inputTokens, outputTokens int) float64 {
	cost := float64(inputTokens)/1000*p.CostPer1KInput +
		float64(outputTokens)/1000*p.CostPer1KOutput
	return math.Round(cost*1e6) / 1e6
}

// Registry is the immutable provider table. Iteration order is
// registration order, which doubles as the deterministic tie-break for
// ranking.
type Registry struct {
	order    []string
	profiles map[string]*Profile
}

// New builds a registry from the given profiles, preserving their order.
func New(profiles []Profile) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, relayerrors.NewEmptyRegistryError()
	}

	r := &Registry{
		profiles: make(map[string]*Profile, len(profiles)),
	}
	for i := range profiles {
		p := profiles[i]
		if _, dup := r.profiles[p.Name]; dup {
			continue
		}
		r.order = append(r.order, p.Name)
		r.profiles[p.Name] = &p
	}
	return r, nil
}

// Get returns the profile for name, or an UnknownProvider error.
func (r *Registry) Get(name string) (*Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return nil, relayerrors.NewUnknownProviderError(name)
	}
	return p, nil
}

// All returns every registered profile in registration order.
func (r *Registry) All() []*Profile {
	out := make([]*Profile, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.profiles[name])
	}
	return out
}

// Names returns the registered provider names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	return len(r.order)
}
