package connectors

import (
	"fmt"
	"slices"
	"sync"

	"github.com/custodia-labs/bunker-search/internal/connectors/filesystem"
	"github.com/custodia-labs/bunker-search/internal/connectors/jsonl"
	"github.com/custodia-labs/bunker-search/internal/connectors/stackexchange"
	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
	"github.com/custodia-labs/bunker-search/internal/normalisers"
)

// Ensure Factory implements the interface.
var _ driven.AdapterFactory = (*Factory)(nil)

// Builder creates an adapter for a validated descriptor.
type Builder func(desc domain.SourceDescriptor, maxIndexedChars int) (driven.Adapter, error)

// Factory creates adapters from source descriptors.
type Factory struct {
	mu       sync.RWMutex
	builders map[domain.SourceKind]Builder
}

// NewFactory creates a factory with the built-in local source kinds.
// A nil registry selects normalisers.Default().
func NewFactory(registry driven.NormaliserRegistry) *Factory {
	if registry == nil {
		registry = normalisers.Default()
	}
	f := &Factory{builders: make(map[domain.SourceKind]Builder)}

	f.Register(domain.SourceKindFilesystem, func(desc domain.SourceDescriptor, maxChars int) (driven.Adapter, error) {
		return filesystem.New(desc, registry, maxChars), nil
	})
	f.Register(domain.SourceKindJSONL, func(desc domain.SourceDescriptor, maxChars int) (driven.Adapter, error) {
		return jsonl.New(desc, maxChars), nil
	})
	f.Register(domain.SourceKindStackExchange, func(desc domain.SourceDescriptor, maxChars int) (driven.Adapter, error) {
		return stackexchange.New(desc, maxChars), nil
	})
	return f
}

// Register adds or replaces the builder for a kind.
func (f *Factory) Register(kind domain.SourceKind, builder Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[kind] = builder
}

// Create validates the descriptor and builds its adapter.
func (f *Factory) Create(desc domain.SourceDescriptor, maxIndexedChars int) (driven.Adapter, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	builder, ok := f.builders[desc.Kind]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSourceKind, desc.Kind)
	}
	return builder(desc, maxIndexedChars)
}

// SupportedKinds returns the registered kinds in sorted order.
func (f *Factory) SupportedKinds() []domain.SourceKind {
	f.mu.RLock()
	defer f.mu.RUnlock()

	kinds := make([]domain.SourceKind, 0, len(f.builders))
	for kind := range f.builders {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}
