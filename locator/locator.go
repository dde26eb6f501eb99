package locator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/coreos/go-semver/semver"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	comhost "github.com/hostware/comhost"
	"github.com/hostware/comhost/engine"
	"github.com/hostware/comhost/errors"
)

const (
	// EnvRoot names additional installation roots, list-separated.
	// Roots given here take precedence over the built-in defaults.
	EnvRoot = "COMHOST_ROOT"

	// DescriptorName marks a resolution library install directory.
	DescriptorName = "fxr.json"

	// PolicyDescriptorName marks a framework version directory.
	PolicyDescriptorName = "hostpolicy.json"
)

// fxrSubdir is the resolution library area under an installation root.
var fxrSubdir = filepath.Join("host", "fxr")

func defaultRoots() []string {
	return []string{"/usr/local/share/comhost", "/usr/share/comhost"}
}

// Install describes one discovered resolution library installation.
type Install struct {
	Version semver.Version
	Dir     string // <root>/host/fxr/<version>
	Root    string // the installation root the install belongs to
}

// Loader turns a discovered installation into a usable resolution
// library. The default loader builds the in-process Library; tests
// substitute fakes.
type Loader interface {
	Load(ctx context.Context, install Install) (comhost.ResolutionLib, error)
}

// Options configures a Locator.
type Options struct {
	// Roots overrides installation root discovery entirely.
	Roots []string
	// Loader overrides how a discovered install is loaded.
	Loader Loader
	// Session is the engine session the default loader binds libraries
	// to. Nil means the process-wide session.
	Session *engine.Session
}

// Locator finds the newest installed resolution library and loads it
// once. Failed probes are not cached; the next call probes again.
type Locator struct {
	roots  []string
	loader Loader

	mu     sync.Mutex
	lib    comhost.ResolutionLib
	loaded Install
	flight singleflight.Group
}

// New creates a locator. Root precedence: Options.Roots, then the
// EnvRoot variable, then the built-in default locations.
func New(opts Options) *Locator {
	roots := opts.Roots
	if len(roots) == 0 {
		if env := os.Getenv(EnvRoot); env != "" {
			roots = filepath.SplitList(env)
		}
	}
	if len(roots) == 0 {
		roots = defaultRoots()
	}

	loader := opts.Loader
	if loader == nil {
		loader = descriptorLoader{session: opts.Session}
	}
	return &Locator{roots: roots, loader: loader}
}

// Roots returns the installation roots the locator probes.
func (l *Locator) Roots() []string {
	return append([]string(nil), l.roots...)
}

// Discover enumerates every valid resolution library installation under
// the roots, newest first. Unreadable roots and directories that are
// not valid installs are skipped.
func (l *Locator) Discover() []Install {
	var installs []Install
	for _, root := range l.roots {
		dir := filepath.Join(root, fxrSubdir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			v, err := semver.NewVersion(e.Name())
			if err != nil {
				continue
			}
			installDir := filepath.Join(dir, e.Name())
			if !validInstall(installDir, *v) {
				continue
			}
			installs = append(installs, Install{Version: *v, Dir: installDir, Root: root})
		}
	}
	sort.Slice(installs, func(i, j int) bool {
		return installs[j].Version.LessThan(installs[i].Version)
	})
	return installs
}

// fxrDescriptor is the install marker. A version field, when present,
// must match the directory name.
type fxrDescriptor struct {
	Version string `json:"version"`
}

func validInstall(dir string, v semver.Version) bool {
	data, err := os.ReadFile(filepath.Join(dir, DescriptorName))
	if err != nil {
		return false
	}
	var d fxrDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		Logger().Debug("skipping install with malformed descriptor",
			zap.String("dir", dir), zap.Error(err))
		return false
	}
	if d.Version != "" {
		dv, err := semver.NewVersion(d.Version)
		if err != nil || !equalVersion(*dv, v) {
			Logger().Debug("skipping install with mismatched descriptor version",
				zap.String("dir", dir), zap.String("descriptor", d.Version))
			return false
		}
	}
	return true
}

// Best returns the newest installation.
func (l *Locator) Best() (Install, error) {
	installs := l.Discover()
	if len(installs) == 0 {
		return Install{}, errors.ResolutionLibNotFound(
			"no installation under " + strings.Join(l.roots, ", "))
	}
	return installs[0], nil
}

// Load returns the process resolution library, loading the newest
// installation on first use. Concurrent first loads collapse to one;
// only a successful load is cached.
func (l *Locator) Load(ctx context.Context) (comhost.ResolutionLib, error) {
	l.mu.Lock()
	lib := l.lib
	l.mu.Unlock()
	if lib != nil {
		return lib, nil
	}

	v, err, _ := l.flight.Do("load", func() (any, error) {
		l.mu.Lock()
		if l.lib != nil {
			lib := l.lib
			l.mu.Unlock()
			return lib, nil
		}
		l.mu.Unlock()

		best, err := l.Best()
		if err != nil {
			return nil, err
		}
		lib, err := l.loader.Load(ctx, best)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.lib = lib
		l.loaded = best
		l.mu.Unlock()

		Logger().Info("resolution library loaded",
			zap.String("version", best.Version.String()),
			zap.String("dir", best.Dir))
		return lib, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(comhost.ResolutionLib), nil
}

// Loaded returns the cached installation, if a load has succeeded.
func (l *Locator) Loaded() (Install, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lib == nil {
		return Install{}, false
	}
	return l.loaded, true
}

// descriptorLoader builds the default in-process resolution library.
type descriptorLoader struct {
	session *engine.Session
}

func (d descriptorLoader) Load(ctx context.Context, install Install) (comhost.ResolutionLib, error) {
	return NewLibrary(install, d.session), nil
}

func equalVersion(a, b semver.Version) bool {
	return !a.LessThan(b) && !b.LessThan(a)
}
