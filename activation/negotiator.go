package activation

import (
	"context"
	"sync"

	"go.uber.org/zap"

	comhost "github.com/hostware/comhost"
	"github.com/hostware/comhost/clsidmap"
	"github.com/hostware/comhost/errors"
)

// Loader yields the process-wide resolution library. *locator.Locator
// satisfies it.
type Loader interface {
	Load(ctx context.Context) (comhost.ResolutionLib, error)
}

// Negotiator performs the resolution-library handshake for one shim and
// caches its outcome. Loading, initialization, and delegate acquisition
// each happen at most once per process on the success path; a failure
// leaves no partial state behind, so the next activation repeats the
// step that failed.
type Negotiator struct {
	req    Request
	loader Loader

	mu          sync.Mutex
	lib         comhost.ResolutionLib
	initialized bool
	delegates   map[comhost.DelegateKind]comhost.ActivationDelegate
}

// NewNegotiator returns a negotiator for the given shim request.
func NewNegotiator(req Request, loader Loader) *Negotiator {
	return &Negotiator{
		req:       req,
		loader:    loader,
		delegates: make(map[comhost.DelegateKind]comhost.ActivationDelegate),
	}
}

// Request returns the shim request the negotiator was built for.
func (n *Negotiator) Request() Request {
	return n.req
}

// Delegate returns the runtime entry point for a delegate kind,
// negotiating with the resolution library on first use. Concurrent
// callers serialize; exactly one performs the handshake and the rest
// observe its cached result.
func (n *Negotiator) Delegate(ctx context.Context, kind comhost.DelegateKind) (comhost.ActivationDelegate, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if d, ok := n.delegates[kind]; ok {
		return d, nil
	}

	if n.lib == nil {
		lib, err := n.loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		n.lib = lib
	}

	if !n.initialized {
		cfg := n.req.RuntimeConfigPath()
		if err := n.lib.InitializeForConfig(ctx, cfg); err != nil {
			return nil, err
		}
		n.initialized = true
		Logger().Info("resolution library initialized",
			zap.String("config", cfg))
	}

	d, err := n.lib.GetRuntimeDelegate(ctx, kind)
	if err != nil {
		return nil, err
	}
	n.delegates[kind] = d
	Logger().Debug("runtime delegate acquired",
		zap.String("kind", kind.String()))
	return d, nil
}

// Activate produces a class factory for one manifest entry by driving
// the COM activation delegate.
func (n *Negotiator) Activate(ctx context.Context, entry clsidmap.Entry, iid comhost.IID) (comhost.ClassFactory, error) {
	d, err := n.Delegate(ctx, comhost.DelegateComActivation)
	if err != nil {
		return nil, err
	}
	return Invoke(ctx, d, n.req, entry, iid)
}

// Invoke runs one activation through a delegate. The context buffers
// are built from the manifest entry and the shim request; the factory
// the delegate deposits is handed back to the caller. A delegate that
// reports success without depositing a factory violates the activation
// protocol.
func Invoke(ctx context.Context, delegate comhost.ActivationDelegate, req Request, entry clsidmap.Entry, iid comhost.IID) (comhost.ClassFactory, error) {
	act := &comhost.ActivationContext{
		ClassID:      entry.CLSID,
		InterfaceID:  iid,
		AssemblyPath: []byte(req.AssemblyPathFor(entry.Assembly)),
		AssemblyName: []byte(entry.Assembly),
		TypeName:     []byte(entry.Type),
	}

	if err := delegate(ctx, act); err != nil {
		if errors.KindOf(err) != "" {
			return nil, err
		}
		return nil, errors.ActivationFailed("class "+entry.CLSID.String()+" activation failed", err)
	}
	if act.Factory == nil {
		return nil, errors.ActivationFailed("delegate returned no class factory for "+entry.CLSID.String(), nil)
	}

	Logger().Debug("class activated",
		zap.String("clsid", entry.CLSID.String()),
		zap.String("assembly", act.Path()),
		zap.String("type", act.Type()))
	return act.Factory, nil
}
