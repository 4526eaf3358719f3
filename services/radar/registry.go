package radar

import (
	"fmt"

	"radar-scraping/lib/scraper"
)

// Registry maps target types to extraction strategies. Resolution
// happens once per job; adding a target type means registering one
// more strategy, the scheduler never changes.
type Registry struct {
	strategies map[scraper.TargetType]scraper.Strategy
}

func NewRegistry(strategies ...scraper.Strategy) (*Registry, error) {
	reg := &Registry{strategies: map[scraper.TargetType]scraper.Strategy{}}
	for _, strategy := range strategies {
		err := reg.Register(strategy)
		if err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (r *Registry) Register(strategy scraper.Strategy) error {
	target := strategy.Target()
	if !target.Valid() {
		return fmt.Errorf("strategy reports unknown target type %q", target)
	}
	if _, exists := r.strategies[target]; exists {
		return fmt.Errorf("duplicate strategy for target type %q", target)
	}
	r.strategies[target] = strategy
	return nil
}

// Resolve returns the strategy for a target type. A missing strategy is
// a configuration error, classified permanent by the scheduler.
func (r *Registry) Resolve(target scraper.TargetType) (scraper.Strategy, error) {
	strategy, ok := r.strategies[target]
	if !ok {
		return nil, fmt.Errorf("%w: no strategy for target type %q", ErrUnknownTarget, target)
	}
	return strategy, nil
}
