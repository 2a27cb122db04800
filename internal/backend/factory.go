package backend

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Factory builds a Backend from its dependencies.
type Factory func(deps Deps) (Backend, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

func init() {
	Register("mock", func(deps Deps) (Backend, error) {
		return NewMockBackend(deps), nil
	})
	Register("android", func(deps Deps) (Backend, error) {
		return NewBridgeBackend("android", deps)
	})
	Register("ios", func(deps Deps) (Backend, error) {
		return NewBridgeBackend("ios", deps)
	})
}

// Register makes a backend available to New under name, replacing any
// previous registration.
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// New builds the backend registered under name.
func New(name string, deps Deps) (Backend, error) {
	factoriesMu.RLock()
	f, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownBackend, name, Names())
	}
	b, err := f(deps.withDefaults())
	if err != nil {
		return nil, fmt.Errorf("init %s backend: %w", name, err)
	}
	deps.withDefaults().Logger.Info("ad backend selected", zap.String("backend", b.Name()))
	return b, nil
}

// Names lists the registered backends in sorted order.
func Names() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
