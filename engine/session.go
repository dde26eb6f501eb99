package engine

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hostware/comhost/errors"
	"github.com/hostware/comhost/object"
)

// Session owns the process-wide engine lifecycle. Exactly one start
// attempt ever runs: the first caller boots the engine and commits the
// outcome, success or failure, permanently. Later callers with a
// compatible configuration reuse the committed runtime; incompatible
// configurations fail with a version conflict and never disturb the
// running engine.
//
// A Session is injectable so tests and embedders can run private
// engines; production code shares Default().
type Session struct {
	mu      sync.Mutex
	started bool
	err     error
	runtime Runtime
	cfg     Config

	scopeMu sync.RWMutex
	scopes  map[string]Scope
	flight  singleflight.Group

	locks   int64
	lockMu  sync.Mutex
	objects *object.Table
}

// NewSession creates an idle session.
func NewSession() *Session {
	return &Session{
		scopes:  make(map[string]Scope),
		objects: object.NewTable(),
	}
}

var (
	defaultSession     *Session
	defaultSessionOnce sync.Once
)

// Default returns the process-wide session.
func Default() *Session {
	defaultSessionOnce.Do(func() {
		defaultSession = NewSession()
	})
	return defaultSession
}

// EnsureStarted returns the running engine, booting it on first call.
// The first caller's outcome is permanent: a successful start pins the
// engine for the process lifetime, a failed start is recorded and
// reported to every later caller. When the engine is already running,
// cfg must be satisfied by the live engine or the call fails with a
// version conflict.
func (s *Session) EnsureStarted(ctx context.Context, p Provider, cfg Config) (Runtime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		if s.err != nil {
			return nil, s.err
		}
		if s.cfg.Provider != cfg.Provider {
			return nil, errors.VersionConflict(
				"engine provider " + s.cfg.Provider + " already running, " + cfg.Provider + " requested")
		}
		if !cfg.Satisfies(s.cfg.Version) {
			return nil, errors.VersionConflict(
				"engine " + s.cfg.Version.String() + " already running, " +
					cfg.Requested.String() + " requested with rollForward " + cfg.RollForward.String())
		}
		return s.runtime, nil
	}

	Logger().Info("starting engine",
		zap.String("provider", cfg.Provider),
		zap.String("version", cfg.Version.String()))

	rt, err := p.Start(ctx, cfg)
	s.started = true
	if err != nil {
		s.err = errors.New(errors.OpEngine, errors.KindActivationFailed).
			Detail("engine %s %s failed to start; failure is permanent for this process", cfg.Provider, cfg.Version.String()).
			Cause(err).
			Build()
		Logger().Error("engine start failed", zap.Error(err))
		return nil, s.err
	}

	s.runtime = rt
	s.cfg = cfg
	return rt, nil
}

// Started reports whether a start attempt has committed, successful or
// not.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Config returns the committed engine configuration.
func (s *Session) Config() (Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.err != nil {
		return Config{}, false
	}
	return s.cfg, true
}

// Runtime returns the running engine.
func (s *Session) Runtime() (Runtime, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runtime == nil {
		return nil, false
	}
	return s.runtime, true
}

// Scope returns the isolation scope for an assembly path, creating it
// on first use. Concurrent first requests for the same path collapse to
// a single creation; the winner's scope is shared. A failed creation is
// not cached, the next activation retries.
func (s *Session) Scope(ctx context.Context, assemblyPath string) (Scope, error) {
	key := filepath.Clean(assemblyPath)

	s.scopeMu.RLock()
	sc, ok := s.scopes[key]
	s.scopeMu.RUnlock()
	if ok {
		return sc, nil
	}

	v, err, _ := s.flight.Do(key, func() (any, error) {
		s.scopeMu.RLock()
		sc, ok := s.scopes[key]
		s.scopeMu.RUnlock()
		if ok {
			return sc, nil
		}

		s.mu.Lock()
		rt := s.runtime
		s.mu.Unlock()
		if rt == nil {
			return nil, errors.InvalidState(errors.OpEngine, "scope requested before engine start")
		}

		Logger().Debug("creating isolation scope", zap.String("assembly", key))
		sc, err := rt.NewScope(ctx, key)
		if err != nil {
			return nil, err
		}

		s.scopeMu.Lock()
		s.scopes[key] = sc
		s.scopeMu.Unlock()
		return sc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Scope), nil
}

// Scopes returns the sorted assembly paths with live scopes.
func (s *Session) Scopes() []string {
	s.scopeMu.RLock()
	defer s.scopeMu.RUnlock()
	keys := make([]string, 0, len(s.scopes))
	for k := range s.scopes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Objects returns the session's live-object table.
func (s *Session) Objects() *object.Table {
	return s.objects
}

// LockServer adjusts the server lock count and returns the new count.
// Unlocking below zero fails without changing the count.
func (s *Session) LockServer(lock bool) (int64, error) {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if lock {
		s.locks++
		return s.locks, nil
	}
	if s.locks == 0 {
		return 0, errors.InvalidState(errors.OpObject, "server lock count underflow")
	}
	s.locks--
	return s.locks, nil
}

// Locks returns the current server lock count.
func (s *Session) Locks() int64 {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	return s.locks
}

// Stats is a diagnostic snapshot of the session.
type Stats struct {
	Started     bool
	Failed      bool
	Provider    string
	Version     string
	Scopes      []string
	LiveObjects int
	ServerLocks int64
}

// Stats returns a point-in-time snapshot for diagnostics.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	st := Stats{
		Started: s.started,
		Failed:  s.err != nil,
	}
	if s.started && s.err == nil {
		st.Provider = s.cfg.Provider
		st.Version = s.cfg.Version.String()
	}
	s.mu.Unlock()

	st.Scopes = s.Scopes()
	st.LiveObjects = s.objects.Len()
	st.ServerLocks = s.Locks()
	return st
}
