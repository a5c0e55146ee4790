package providers

import (
	"fmt"

	"faceverify/internal/verification/models"
)

// Registry maintains the wired providers in registration order.
type Registry struct {
	providers map[models.MetricID]*Provider
	order     []models.MetricID
}

// NewRegistry creates a new empty registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[models.MetricID]*Provider),
	}
}

// Register adds a provider to the registry
func (r *Registry) Register(p *Provider) error {
	id := p.ID()
	if _, exists := r.providers[id]; exists {
		return fmt.Errorf("provider %s already registered", id)
	}
	r.providers[id] = p
	r.order = append(r.order, id)
	return nil
}

// All returns all registered providers in registration order
func (r *Registry) All() []*Provider {
	result := make([]*Provider, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.providers[id])
	}
	return result
}

// Missing lists the ensemble metrics that have no provider.
func (r *Registry) Missing() []models.MetricID {
	var missing []models.MetricID
	for _, m := range models.AllMetrics() {
		if _, ok := r.providers[m]; !ok {
			missing = append(missing, m)
		}
	}
	return missing
}
