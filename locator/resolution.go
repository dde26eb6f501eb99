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

	comhost "github.com/hostware/comhost"
	"github.com/hostware/comhost/engine"
	"github.com/hostware/comhost/errors"
)

// sharedSubdir is the framework area under an installation root.
const sharedSubdir = "shared"

// runtimeConfig mirrors the .runtimeconfig.json schema the resolution
// library consumes.
type runtimeConfig struct {
	RuntimeOptions struct {
		Framework struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"framework"`
		RollForward      string            `json:"rollForward"`
		ConfigProperties map[string]string `json:"configProperties"`
	} `json:"runtimeOptions"`
}

// policyDescriptor is the hostpolicy.json marker of one framework
// version; it names the engine provider that executes assemblies.
type policyDescriptor struct {
	Provider   string            `json:"provider"`
	Properties map[string]string `json:"properties"`
}

// resolved is one fully resolved framework request.
type resolved struct {
	framework string
	policy    *engine.Policy
	cfg       engine.Config
}

// Library is the default resolution library. It resolves runtime
// configs against the frameworks installed under its root and drives
// the policy library for delegate acquisition.
type Library struct {
	install Install
	session *engine.Session

	mu       sync.Mutex
	active   *resolved
	bindings map[string]*resolved
}

// NewLibrary creates a resolution library over one installation. A nil
// session binds to the process-wide engine session.
func NewLibrary(install Install, session *engine.Session) *Library {
	if session == nil {
		session = engine.Default()
	}
	return &Library{
		install:  install,
		session:  session,
		bindings: make(map[string]*resolved),
	}
}

// Install returns the installation the library was loaded from.
func (l *Library) Install() Install {
	return l.install
}

// InitializeForConfig resolves a runtime configuration to an installed
// framework version and its engine provider. The engine itself is not
// started here; that happens on delegate acquisition. Calling again
// re-resolves and replaces the active configuration.
func (l *Library) InitializeForConfig(ctx context.Context, runtimeConfigPath string) error {
	name, requested, rollForward, props, err := l.resolveConfig(runtimeConfigPath)
	if err != nil {
		return err
	}

	installed := l.installedVersions(name)
	if len(installed) == 0 {
		return errors.FrameworkMissing(
			"framework " + name + " is not installed under " + l.install.Root)
	}
	selected, ok := selectVersion(installed, requested, rollForward)
	if !ok {
		return errors.FrameworkMissing(
			"framework " + name + " has no installed version satisfying " +
				requested.String() + " with rollForward " + rollForward.String() +
				" (installed: " + versionList(installed) + ")")
	}

	pd, err := l.readPolicyDescriptor(name, selected)
	if err != nil {
		return err
	}
	provider, ok := engine.Lookup(pd.Provider)
	if !ok {
		return errors.Wrap(errors.OpResolve, errors.KindActivationFailed, nil,
			"engine provider "+pd.Provider+" is not linked into this host")
	}

	properties := make(map[string]string, len(pd.Properties)+len(props))
	for k, v := range pd.Properties {
		properties[k] = v
	}
	for k, v := range props {
		properties[k] = v
	}

	cfg := engine.Config{
		Provider:    pd.Provider,
		Version:     selected,
		Requested:   requested,
		RollForward: rollForward,
		Properties:  properties,
	}

	l.mu.Lock()
	key := name + "/" + selected.String()
	b, ok := l.bindings[key]
	if !ok {
		b = &resolved{
			framework: name,
			policy:    engine.NewPolicy(l.session, provider),
			cfg:       cfg,
		}
		l.bindings[key] = b
	}
	l.active = b
	l.mu.Unlock()

	Logger().Info("runtime config resolved",
		zap.String("framework", name),
		zap.String("version", selected.String()),
		zap.String("provider", pd.Provider),
		zap.String("rollForward", rollForward.String()))
	return nil
}

// GetRuntimeDelegate starts or reuses the engine for the active
// configuration and returns the activation entry point. Only the COM
// activation delegate kind is supported.
func (l *Library) GetRuntimeDelegate(ctx context.Context, kind comhost.DelegateKind) (comhost.ActivationDelegate, error) {
	if kind != comhost.DelegateComActivation {
		return nil, errors.Unsupported(errors.OpResolve, "delegate kind "+kind.String())
	}

	l.mu.Lock()
	b := l.active
	l.mu.Unlock()
	if b == nil {
		return nil, errors.InvalidState(errors.OpResolve,
			"get runtime delegate before initialize for config")
	}

	if err := b.policy.Initialize(ctx, b.cfg); err != nil {
		return nil, err
	}
	return b.policy.ActivationDelegate(ctx)
}

// resolveConfig reads the runtime config, or infers a framework when
// the file is absent and exactly one framework is installed.
func (l *Library) resolveConfig(path string) (string, semver.Version, engine.RollForward, map[string]string, error) {
	var zero semver.Version

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", zero, 0, nil, errors.InvalidConfig(path, "runtime config not readable", err)
		}
		names := l.installedFrameworks()
		switch len(names) {
		case 0:
			return "", zero, 0, nil, errors.FrameworkMissing(
				"no runtime config at " + path + " and no frameworks installed under " + l.install.Root)
		case 1:
			// Convention: a missing config binds to the single installed
			// framework at its newest version.
			return names[0], zero, engine.RollForwardLatestMajor, nil, nil
		default:
			return "", zero, 0, nil, errors.InvalidConfig(path,
				"no runtime config and multiple frameworks installed ("+strings.Join(names, ", ")+")", nil)
		}
	}

	var rc runtimeConfig
	if err := json.Unmarshal(data, &rc); err != nil {
		return "", zero, 0, nil, errors.InvalidConfig(path, "malformed runtime config", err)
	}

	opts := rc.RuntimeOptions
	if opts.Framework.Name == "" {
		return "", zero, 0, nil, errors.InvalidConfig(path, "runtimeOptions.framework.name missing", nil)
	}

	rollForward, err := engine.ParseRollForward(opts.RollForward)
	if err != nil {
		return "", zero, 0, nil, errors.InvalidConfig(path, err.Error(), nil)
	}

	requested := zero
	if opts.Framework.Version != "" {
		v, err := semver.NewVersion(opts.Framework.Version)
		if err != nil {
			return "", zero, 0, nil, errors.InvalidConfig(path,
				"framework version "+opts.Framework.Version+" is not a semantic version", err)
		}
		requested = *v
	} else {
		// No pinned version: take the newest installed.
		rollForward = engine.RollForwardLatestMajor
	}

	return opts.Framework.Name, requested, rollForward, opts.ConfigProperties, nil
}

// installedFrameworks lists framework names with at least one valid
// version directory.
func (l *Library) installedFrameworks() []string {
	entries, err := os.ReadDir(filepath.Join(l.install.Root, sharedSubdir))
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if len(l.installedVersions(e.Name())) > 0 {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// installedVersions lists the valid versions of one framework, in no
// particular order. A version directory is valid when it parses as a
// semantic version and carries a policy descriptor.
func (l *Library) installedVersions(name string) []semver.Version {
	dir := filepath.Join(l.install.Root, sharedSubdir, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var versions []semver.Version
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v, err := semver.NewVersion(e.Name())
		if err != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, e.Name(), PolicyDescriptorName)); err != nil {
			continue
		}
		versions = append(versions, *v)
	}
	return versions
}

func (l *Library) readPolicyDescriptor(name string, v semver.Version) (policyDescriptor, error) {
	path := filepath.Join(l.install.Root, sharedSubdir, name, v.String(), PolicyDescriptorName)
	var pd policyDescriptor
	data, err := os.ReadFile(path)
	if err != nil {
		return pd, errors.InvalidConfig(path, "policy descriptor not readable", err)
	}
	if err := json.Unmarshal(data, &pd); err != nil {
		return pd, errors.InvalidConfig(path, "malformed policy descriptor", err)
	}
	if pd.Provider == "" {
		return pd, errors.InvalidConfig(path, "policy descriptor names no provider", nil)
	}
	return pd, nil
}

// selectVersion picks the installed version satisfying the requested
// version under a roll-forward policy. Policies starting with "latest"
// take the highest satisfying version; the others take the nearest,
// with the patch level always rolled to the highest available within
// the chosen minor.
func selectVersion(installed []semver.Version, requested semver.Version, rf engine.RollForward) (semver.Version, bool) {
	sorted := make([]semver.Version, len(installed))
	copy(sorted, installed)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	atLeast := func(v semver.Version) bool { return !v.LessThan(requested) }
	sameMajor := func(v semver.Version) bool { return v.Major == requested.Major }

	var cands []semver.Version
	switch rf {
	case engine.RollForwardDisable:
		for _, v := range sorted {
			if equalVersion(v, requested) {
				return v, true
			}
		}
		return semver.Version{}, false

	case engine.RollForwardLatestPatch:
		cands = filterVersions(sorted, func(v semver.Version) bool {
			return sameMajor(v) && v.Minor == requested.Minor && atLeast(v)
		})

	case engine.RollForwardLatestMinor:
		cands = filterVersions(sorted, func(v semver.Version) bool {
			return sameMajor(v) && atLeast(v)
		})

	case engine.RollForwardLatestMajor:
		cands = filterVersions(sorted, atLeast)

	case engine.RollForwardMajor:
		cands = filterVersions(sorted, atLeast)
		cands = nearestMinor(cands)

	default: // minor
		cands = filterVersions(sorted, func(v semver.Version) bool {
			return sameMajor(v) && atLeast(v)
		})
		cands = nearestMinor(cands)
	}

	if len(cands) == 0 {
		return semver.Version{}, false
	}
	return cands[len(cands)-1], true
}

func filterVersions(sorted []semver.Version, keep func(semver.Version) bool) []semver.Version {
	var out []semver.Version
	for _, v := range sorted {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// nearestMinor narrows sorted candidates to the lowest major.minor
// group present, keeping its patch levels.
func nearestMinor(sorted []semver.Version) []semver.Version {
	if len(sorted) == 0 {
		return nil
	}
	head := sorted[0]
	return filterVersions(sorted, func(v semver.Version) bool {
		return v.Major == head.Major && v.Minor == head.Minor
	})
}

func versionList(versions []semver.Version) string {
	sorted := make([]semver.Version, len(versions))
	copy(sorted, versions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	parts := make([]string, len(sorted))
	for i, v := range sorted {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
