package generator

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ginjaninja78/ci-load-engine/internal/assembler"
	"github.com/ginjaninja78/ci-load-engine/internal/fieldcodec"
)

// Strategy names.
const (
	StrategyStandard     = "standard"
	StrategyLenientParts = "lenient-parts"
	StrategyStrictText   = "strict-text"
)

// Strategy is a customer-specific override of how an Entry is assembled.
type Strategy interface {
	Name() string
	// Configure adjusts the assembler options of one generation call.
	Configure(opts *assembler.Options)
}

type standardStrategy struct{}

func (standardStrategy) Name() string                { return StrategyStandard }
func (standardStrategy) Configure(*assembler.Options) {}

// lenientPartsStrategy truncates part and style numbers instead of
// rejecting the Entry. For customers whose catalog keys are longer than the
// target accepts.
type lenientPartsStrategy struct{}

func (lenientPartsStrategy) Name() string { return StrategyLenientParts }
func (lenientPartsStrategy) Configure(opts *assembler.Options) {
	opts.PartOverflow = fieldcodec.Truncate
}

// strictTextStrategy rejects lines whose text cannot be represented in
// ASCII instead of substituting the sentinel character.
type strictTextStrategy struct{}

func (strictTextStrategy) Name() string { return StrategyStrictText }
func (strictTextStrategy) Configure(opts *assembler.Options) {
	opts.Codec = fieldcodec.New(fieldcodec.TextFail)
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry maps strategy names to implementations and customers to
// strategies. Customers without an assignment use the standard strategy.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	customers  map[string]string
}

// NewRegistry creates a registry holding the standard strategy plus the
// given ones.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{
		strategies: map[string]Strategy{StrategyStandard: standardStrategy{}},
		customers:  make(map[string]string),
	}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

// DefaultRegistry holds every built-in strategy.
func DefaultRegistry() *Registry {
	return NewRegistry(lenientPartsStrategy{}, strictTextStrategy{})
}

// Register adds or replaces a strategy.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

// Lookup returns the strategy registered under name.
func (r *Registry) Lookup(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (known: %s)", name, strings.Join(r.namesLocked(), ", "))
	}
	return s, nil
}

// Assign routes a customer to a named strategy. Unknown names are rejected
// so that configuration mistakes surface at startup.
func (r *Registry) Assign(customer, name string) error {
	if _, err := r.Lookup(name); err != nil {
		return fmt.Errorf("customer %s: %w", customer, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[strings.TrimSpace(customer)] = name
	return nil
}

// For returns the strategy of a customer.
func (r *Registry) For(customer string) Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name, ok := r.customers[strings.TrimSpace(customer)]; ok {
		return r.strategies[name]
	}
	return r.strategies[StrategyStandard]
}

// Names lists the registered strategies in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
