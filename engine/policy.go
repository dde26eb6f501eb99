package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	comhost "github.com/hostware/comhost"
	"github.com/hostware/comhost/errors"
)

// PolicyLib is the runtime-policy boundary: the second-stage library a
// resolution library drives to start or reuse the engine and hand out
// activation entry points. Initialize is idempotent once it has
// succeeded for a compatible configuration.
type PolicyLib interface {
	Initialize(ctx context.Context, cfg Config) error
	ActivationDelegate(ctx context.Context) (comhost.ActivationDelegate, error)
}

// Policy is the default PolicyLib. It binds a registered provider to a
// session and caches the activation delegate it mints.
type Policy struct {
	session  *Session
	provider Provider

	mu       sync.Mutex
	delegate comhost.ActivationDelegate
}

// NewPolicy creates a policy library over a session and provider.
func NewPolicy(session *Session, provider Provider) *Policy {
	return &Policy{session: session, provider: provider}
}

// Initialize starts the engine or validates cfg against the one
// already running.
func (p *Policy) Initialize(ctx context.Context, cfg Config) error {
	_, err := p.session.EnsureStarted(ctx, p.provider, cfg)
	return err
}

// ActivationDelegate returns the entry point that resolves a class
// factory for an activation request. The delegate is minted once and
// reused; it requires a successfully initialized engine.
func (p *Policy) ActivationDelegate(ctx context.Context) (comhost.ActivationDelegate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.delegate != nil {
		return p.delegate, nil
	}
	if _, ok := p.session.Runtime(); !ok {
		return nil, errors.InvalidState(errors.OpEngine, "activation delegate requested before initialize")
	}

	session := p.session
	p.delegate = func(ctx context.Context, act *comhost.ActivationContext) error {
		scope, err := session.Scope(ctx, act.Path())
		if err != nil {
			return err
		}
		ctor, err := scope.Constructor(ctx, act.Type())
		if err != nil {
			return err
		}
		act.Factory = newClassFactory(session, act.ClassID, ctor)

		Logger().Debug("activation delegate resolved factory",
			zap.String("class", act.ClassID.String()),
			zap.String("assembly", act.Path()),
			zap.String("type", act.Type()))
		return nil
	}
	return p.delegate, nil
}
