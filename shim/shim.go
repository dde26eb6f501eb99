package shim

import (
	"context"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	comhost "github.com/hostware/comhost"
	"github.com/hostware/comhost/activation"
	"github.com/hostware/comhost/clsidmap"
	"github.com/hostware/comhost/engine"
	"github.com/hostware/comhost/errors"
	"github.com/hostware/comhost/locator"
	"github.com/hostware/comhost/registry"
)

// Options configures a Shim.
type Options struct {
	// Path locates the shim binary. Empty means the running executable.
	Path string

	// Roots overrides the installation roots searched for resolution
	// libraries. Empty falls back to the locator's environment and
	// default roots.
	Roots []string

	// ManagedExtension overrides the extension used when deriving
	// assembly paths, ".dll" when empty.
	ManagedExtension string

	// Embedded injects the class manifest payload, the go:embed route.
	// Takes precedence over trailer records and disk siblings.
	Embedded []byte

	// Signed overrides shim signature detection.
	Signed *bool

	// Session overrides the engine session. Nil means the process-wide
	// session.
	Session *engine.Session

	// Loader overrides resolution library loading. Nil means a locator
	// over Roots.
	Loader activation.Loader

	// Store is the registration hive RegisterServer writes to.
	Store registry.Store

	// Metrics receives activation outcomes. Optional.
	Metrics *Metrics
}

// Shim is the in-process activation host for one shim binary. It owns
// manifest resolution, drives the negotiator, and exposes the four
// COM-mandated operations. A Shim is safe for concurrent use.
type Shim struct {
	opts       Options
	session    *engine.Session
	negotiator *activation.Negotiator

	mu          sync.Mutex
	resolved    bool
	manifest    *clsidmap.Manifest
	manifestErr error

	activations atomic.Int64
	failures    atomic.Int64
}

// New builds a Shim. The zero Options value serves the running
// executable with default roots and no registration store.
func New(opts Options) (*Shim, error) {
	if opts.Path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, errors.New(errors.OpManifest, errors.KindInvalidArg).
				Detail("shim path not set and executable path unavailable").
				Cause(err).
				Build()
		}
		opts.Path = exe
	}

	session := opts.Session
	if session == nil {
		session = engine.Default()
	}

	loader := opts.Loader
	if loader == nil {
		loader = locator.New(locator.Options{Roots: opts.Roots, Session: session})
	}

	req := activation.Request{ShimPath: opts.Path, ManagedExtension: opts.ManagedExtension}
	return &Shim{
		opts:       opts,
		session:    session,
		negotiator: activation.NewNegotiator(req, loader),
	}, nil
}

// Path returns the shim binary path activations derive from.
func (s *Shim) Path() string {
	return s.opts.Path
}

// Manifest resolves the class manifest, once. The manifest, or the
// failure to resolve one, is a property of the shim binary and stays
// fixed for the life of the Shim.
func (s *Shim) Manifest() (*clsidmap.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.resolved {
		s.manifest, s.manifestErr = clsidmap.Resolve(s.opts.Path, clsidmap.Options{
			Embedded: s.opts.Embedded,
			Signed:   s.opts.Signed,
		})
		s.resolved = true
		if s.manifestErr != nil {
			Logger().Warn("manifest resolution failed",
				zap.String("shim", s.opts.Path),
				zap.Error(s.manifestErr))
		} else {
			Logger().Info("manifest resolved",
				zap.String("shim", s.opts.Path),
				zap.String("source", s.manifest.Source().String()),
				zap.Int("classes", s.manifest.Len()))
		}
	}
	return s.manifest, s.manifestErr
}

// GetClassObject activates the class factory for clsid and validates it
// against iid. A CLSID absent from the manifest is rejected before any
// installation probing or engine work happens.
func (s *Shim) GetClassObject(ctx context.Context, clsid comhost.CLSID, iid comhost.IID) (comhost.ClassFactory, error) {
	factory, err := s.getClassObject(ctx, clsid, iid)

	s.activations.Add(1)
	if err != nil {
		s.failures.Add(1)
		Logger().Warn("activation failed",
			zap.String("clsid", clsid.String()),
			zap.String("iid", comhost.InterfaceName(iid)),
			zap.Error(err))
	} else {
		Logger().Info("class object created",
			zap.String("clsid", clsid.String()),
			zap.String("iid", comhost.InterfaceName(iid)))
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordActivation(err)
	}
	return factory, err
}

func (s *Shim) getClassObject(ctx context.Context, clsid comhost.CLSID, iid comhost.IID) (comhost.ClassFactory, error) {
	m, err := s.Manifest()
	if err != nil {
		return nil, err
	}
	entry, ok := m.Lookup(clsid)
	if !ok {
		return nil, errors.ClassNotAvailable(clsid.String())
	}

	factory, err := s.negotiator.Activate(ctx, entry, iid)
	if err != nil {
		return nil, err
	}
	if _, err := comhost.Query(factory, iid); err != nil {
		// The caller never sees the factory; give back its creation
		// reference.
		if u, ok := factory.(comhost.Unknown); ok {
			u.Release()
		}
		return nil, err
	}
	return factory, nil
}

// CanUnloadNow reports whether the host may be unloaded. It may not:
// engines never stop, so the answer is S_FALSE no matter how many
// objects or server locks are live.
func (s *Shim) CanUnloadNow() comhost.HRESULT {
	return comhost.S_FALSE
}

// ServerLockCount returns the live IClassFactory.LockServer count.
// Diagnostic only; unloading is refused regardless.
func (s *Shim) ServerLockCount() int64 {
	return s.session.Locks()
}

// RegisterServer writes the in-proc server shape for every manifest
// class into the configured store.
func (s *Shim) RegisterServer(ctx context.Context) error {
	store, err := s.store()
	if err != nil {
		return err
	}
	m, err := s.Manifest()
	if err != nil {
		return err
	}
	return registry.Install(ctx, store, s.opts.Path, m.Entries()...)
}

// UnregisterServer removes the registration shape for every manifest
// class from the configured store.
func (s *Shim) UnregisterServer(ctx context.Context) error {
	store, err := s.store()
	if err != nil {
		return err
	}
	m, err := s.Manifest()
	if err != nil {
		return err
	}
	return registry.Remove(ctx, store, m.Entries()...)
}

func (s *Shim) store() (registry.Store, error) {
	if s.opts.Store == nil {
		return nil, errors.New(errors.OpRegister, errors.KindRegistration).
			Detail("no registration store configured").
			Build()
	}
	return s.opts.Store, nil
}

// Stats is a point-in-time diagnostic snapshot of one Shim.
type Stats struct {
	ShimPath        string
	ManifestSource  string // empty until the manifest resolves
	ManifestClasses int
	Activations     int64
	Failures        int64
	Engine          engine.Stats
}

// Stats snapshots the shim. It never forces manifest resolution; an
// untouched shim reports an empty manifest source.
func (s *Shim) Stats() Stats {
	st := Stats{
		ShimPath:    s.opts.Path,
		Activations: s.activations.Load(),
		Failures:    s.failures.Load(),
		Engine:      s.session.Stats(),
	}
	s.mu.Lock()
	if s.resolved && s.manifestErr == nil {
		st.ManifestSource = s.manifest.Source().String()
		st.ManifestClasses = s.manifest.Len()
	}
	s.mu.Unlock()
	return st
}
