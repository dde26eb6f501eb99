package shim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	comhost "github.com/hostware/comhost"
	"github.com/hostware/comhost/engine"
	"github.com/hostware/comhost/errors"
	"github.com/hostware/comhost/registry"
)

var greeterCLSID = comhost.MustGUID("{B11C4E2A-8F3D-4A57-9E60-D2C51B7A84F9}")

const greeterAssembly = `package main

func NewGreeter() map[string]any {
	return map[string]any{
		"greet": func(name string) string { return "Hello, " + name },
	}
}
`

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

// buildFixture lays out a complete activation world: an app directory
// with the shim, its runtime config, and a goscript assembly, plus an
// installation root serving the goscript engine at 8.0.1.
func buildFixture(t *testing.T) Options {
	t.Helper()

	app := t.TempDir()
	shimPath := filepath.Join(app, "server.comhost")
	writeFile(t, shimPath, "shim binary placeholder")
	writeFile(t, filepath.Join(app, "server.runtimeconfig.json"),
		`{"runtimeOptions":{"framework":{"name":"goscript","version":"8.0.0"},"rollForward":"minor"}}`)
	writeFile(t, filepath.Join(app, "server.go"), greeterAssembly)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "host", "fxr", "8.0.1", "fxr.json"), `{"version":"8.0.1"}`)
	writeFile(t, filepath.Join(root, "shared", "goscript", "8.0.1", "hostpolicy.json"), `{"provider":"goscript"}`)

	manifest := fmt.Sprintf(`{%q: {"assembly":"server","type":"Server.Greeter","progid":"Server.Greeter"}}`,
		greeterCLSID.String())
	signed := false
	return Options{
		Path:             shimPath,
		Roots:            []string{root},
		ManagedExtension: ".go",
		Embedded:         []byte(manifest),
		Signed:           &signed,
		Session:          engine.NewSession(),
		Store:            registry.NewMemoryStore(),
	}
}

func newShim(t *testing.T, opts Options) *Shim {
	t.Helper()
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestShimActivationEndToEnd(t *testing.T) {
	opts := buildFixture(t)
	s := newShim(t, opts)
	ctx := context.Background()

	if st := s.Stats(); st.ManifestSource != "" || st.Activations != 0 {
		t.Fatalf("fresh stats = %+v, want untouched", st)
	}

	factory, err := s.GetClassObject(ctx, greeterCLSID, comhost.IID_IClassFactory)
	if err != nil {
		t.Fatalf("GetClassObject: %v", err)
	}

	v, err := factory.CreateInstance(ctx, nil, comhost.IID_IDispatch)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	d, ok := v.(comhost.Dispatch)
	if !ok {
		t.Fatalf("instance is %T, want Dispatch", v)
	}
	out, err := d.Invoke(ctx, "greet", "World")
	if err != nil {
		t.Fatalf("Invoke greet: %v", err)
	}
	if out != "Hello, World" {
		t.Fatalf("greet = %v, want Hello, World", out)
	}

	st := s.Stats()
	if st.ManifestSource != "embedded" || st.ManifestClasses != 1 {
		t.Errorf("manifest stats = %+v", st)
	}
	if st.Activations != 1 || st.Failures != 0 {
		t.Errorf("activations = %d failures = %d, want 1/0", st.Activations, st.Failures)
	}
	if !st.Engine.Started || st.Engine.Provider != "goscript" || st.Engine.Version != "8.0.1" {
		t.Errorf("engine stats = %+v, want started goscript 8.0.1", st.Engine)
	}
	assemblyPath := filepath.Join(filepath.Dir(opts.Path), "server.go")
	if len(st.Engine.Scopes) != 1 || st.Engine.Scopes[0] != assemblyPath {
		t.Errorf("scopes = %v, want [%s]", st.Engine.Scopes, assemblyPath)
	}

	// A second activation of the same class reuses the running engine
	// and the existing scope.
	if _, err := s.GetClassObject(ctx, greeterCLSID, comhost.IID_IUnknown); err != nil {
		t.Fatalf("second GetClassObject: %v", err)
	}
	if st := s.Stats(); len(st.Engine.Scopes) != 1 {
		t.Errorf("scopes after second activation = %v", st.Engine.Scopes)
	}

	if u, ok := v.(comhost.Unknown); ok {
		u.Release()
	}
}

type countingLoader struct {
	calls atomic.Int32
}

func (l *countingLoader) Load(ctx context.Context) (comhost.ResolutionLib, error) {
	l.calls.Add(1)
	return nil, errors.ResolutionLibNotFound("loader should not be consulted")
}

func TestShimCheapReject(t *testing.T) {
	opts := buildFixture(t)
	loader := &countingLoader{}
	opts.Loader = loader
	s := newShim(t, opts)

	unknown := comhost.MustGUID("{DEADBEEF-1111-2222-3333-444455556666}")
	_, err := s.GetClassObject(context.Background(), unknown, comhost.IID_IClassFactory)
	if !errors.IsKind(err, errors.KindClassNotAvailable) {
		t.Fatalf("err = %v, want class_not_available", err)
	}
	if got := loader.calls.Load(); got != 0 {
		t.Fatalf("loader consulted %d times for an unknown CLSID, want 0", got)
	}

	st := s.Stats()
	if st.Activations != 1 || st.Failures != 1 {
		t.Errorf("stats = %+v, want one failed activation", st)
	}
}

func TestShimManifestResolvedOnce(t *testing.T) {
	app := t.TempDir()
	shimPath := filepath.Join(app, "server.comhost")
	writeFile(t, shimPath, "shim binary placeholder")

	s := newShim(t, Options{
		Path:    shimPath,
		Session: engine.NewSession(),
		Loader:  &countingLoader{},
	})

	_, err := s.GetClassObject(context.Background(), greeterCLSID, comhost.IID_IClassFactory)
	if !errors.IsKind(err, errors.KindManifestNotFound) {
		t.Fatalf("err = %v, want manifest_not_found", err)
	}

	// A manifest appearing later changes nothing; discovery ran once.
	writeFile(t, filepath.Join(app, "server.clsidmap"),
		fmt.Sprintf(`{%q: {"assembly":"server","type":"Server.Greeter"}}`, greeterCLSID.String()))
	_, err = s.GetClassObject(context.Background(), greeterCLSID, comhost.IID_IClassFactory)
	if !errors.IsKind(err, errors.KindManifestNotFound) {
		t.Fatalf("err after manifest appeared = %v, want manifest_not_found still", err)
	}
}

func TestShimSignedFallbackDenied(t *testing.T) {
	app := t.TempDir()
	shimPath := filepath.Join(app, "server.comhost")
	writeFile(t, shimPath, "shim binary placeholder")
	writeFile(t, filepath.Join(app, "server.clsidmap"),
		fmt.Sprintf(`{%q: {"assembly":"server","type":"Server.Greeter"}}`, greeterCLSID.String()))

	signed := true
	s := newShim(t, Options{
		Path:    shimPath,
		Signed:  &signed,
		Session: engine.NewSession(),
		Loader:  &countingLoader{},
	})

	_, err := s.Manifest()
	if !errors.IsKind(err, errors.KindSignedFallbackDenied) {
		t.Fatalf("err = %v, want signed_fallback_denied", err)
	}
}

func TestShimFactoryInterfaceMismatch(t *testing.T) {
	opts := buildFixture(t)
	s := newShim(t, opts)

	_, err := s.GetClassObject(context.Background(), greeterCLSID, comhost.IID_IDispatch)
	if !errors.IsKind(err, errors.KindNoInterface) {
		t.Fatalf("err = %v, want no_interface", err)
	}

	st := s.Stats()
	if st.Failures != 1 {
		t.Errorf("failures = %d, want 1", st.Failures)
	}
	if st.Engine.LiveObjects != 0 {
		t.Errorf("live objects = %d after released factory, want 0", st.Engine.LiveObjects)
	}
}

func TestShimRegisterUnregister(t *testing.T) {
	opts := buildFixture(t)
	s := newShim(t, opts)
	ctx := context.Background()

	if err := s.RegisterServer(ctx); err != nil {
		t.Fatalf("RegisterServer: %v", err)
	}
	path, ok, err := registry.ServerPath(ctx, opts.Store, greeterCLSID)
	if err != nil || !ok {
		t.Fatalf("ServerPath: ok=%v err=%v", ok, err)
	}
	if path != opts.Path {
		t.Errorf("registered server = %q, want %q", path, opts.Path)
	}
	if _, ok, _ := opts.Store.Get(ctx, "Server.Greeter", ""); !ok {
		t.Error("progid key missing after RegisterServer")
	}

	if err := s.UnregisterServer(ctx); err != nil {
		t.Fatalf("UnregisterServer: %v", err)
	}
	keys, err := opts.Store.Keys(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Errorf("keys after UnregisterServer = %v, want none", keys)
	}
}

func TestShimRegisterWithoutStore(t *testing.T) {
	opts := buildFixture(t)
	opts.Store = nil
	s := newShim(t, opts)

	err := s.RegisterServer(context.Background())
	if !errors.IsKind(err, errors.KindRegistration) {
		t.Fatalf("err = %v, want registration", err)
	}
}

func TestShimLockAccounting(t *testing.T) {
	opts := buildFixture(t)
	s := newShim(t, opts)
	ctx := context.Background()

	factory, err := s.GetClassObject(ctx, greeterCLSID, comhost.IID_IClassFactory)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := factory.LockServer(true); err != nil {
			t.Fatalf("LockServer(true): %v", err)
		}
	}
	if got := s.ServerLockCount(); got != 2 {
		t.Fatalf("lock count = %d, want 2", got)
	}

	// Locks never change the unload answer.
	if hr := s.CanUnloadNow(); hr != comhost.S_FALSE {
		t.Fatalf("CanUnloadNow = %s, want S_FALSE", hr)
	}

	for i := 0; i < 2; i++ {
		if err := factory.LockServer(false); err != nil {
			t.Fatalf("LockServer(false): %v", err)
		}
	}
	if got := s.ServerLockCount(); got != 0 {
		t.Fatalf("lock count = %d, want 0", got)
	}
	if hr := s.CanUnloadNow(); hr != comhost.S_FALSE {
		t.Fatalf("CanUnloadNow with no locks = %s, want S_FALSE", hr)
	}
}
