package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/coreos/go-semver/semver"
)

// Provider boots engines of one flavor. Providers self-register at
// init time under the name a policy descriptor selects them by.
type Provider interface {
	Name() string
	Start(ctx context.Context, cfg Config) (Runtime, error)
}

// Runtime is a started engine. It creates isolation scopes; it never
// stops.
type Runtime interface {
	Provider() string
	Version() semver.Version
	NewScope(ctx context.Context, assemblyPath string) (Scope, error)
}

// Scope is one dependency isolation scope, keyed by assembly path.
// Classes activated from the same assembly share the scope; classes
// from different assemblies never observe each other's dependencies.
type Scope interface {
	AssemblyPath() string
	Constructor(ctx context.Context, typeName string) (Constructor, error)
}

// Method is one late-bound method on an activated instance.
type Method func(ctx context.Context, args ...any) (any, error)

// Product is what a constructor yields: the instance's method table
// and an optional cleanup hook run when the last reference drops.
type Product struct {
	Methods  map[string]Method
	Finalize func()
}

// Constructor instantiates one managed class inside its scope.
type Constructor func(ctx context.Context) (*Product, error)

var providers = struct {
	sync.RWMutex
	m map[string]Provider
}{m: make(map[string]Provider)}

// Register makes a provider available by name. Panics on a duplicate
// or empty name, like database/sql driver registration; providers
// register from init and a duplicate is a programming error.
func Register(p Provider) {
	providers.Lock()
	defer providers.Unlock()
	name := p.Name()
	if name == "" {
		panic("engine: Register provider with empty name")
	}
	if _, dup := providers.m[name]; dup {
		panic("engine: Register called twice for provider " + name)
	}
	providers.m[name] = p
}

// Lookup returns the provider registered under name.
func Lookup(name string) (Provider, bool) {
	providers.RLock()
	defer providers.RUnlock()
	p, ok := providers.m[name]
	return p, ok
}

// Providers returns the sorted names of registered providers.
func Providers() []string {
	providers.RLock()
	defer providers.RUnlock()
	names := make([]string, 0, len(providers.m))
	for name := range providers.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
