package label

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Factory builds a scheme from its opaque parameter map.
type Factory func(params map[string]any) (Scheme, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		"standard": func(p map[string]any) (Scheme, error) { return NewStandard(p) },
		"table":    func(p map[string]any) (Scheme, error) { return NewTable(p) },
	}
)

// Register adds a named scheme variant. Registering an existing name
// replaces it.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(strings.TrimSpace(name))] = f
}

// Names lists the registered scheme names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// New builds the scheme registered under name from params.
func New(name string, params map[string]any) (Scheme, error) {
	const op = "label.New"
	registryMu.RLock()
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q (known: %s)", op, ErrUnknownScheme, name, strings.Join(Names(), ", "))
	}
	s, err := f(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, name, err)
	}
	return s, nil
}
