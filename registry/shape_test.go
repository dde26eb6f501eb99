package registry

import (
	"context"
	"fmt"
	"testing"

	comhost "github.com/hostware/comhost"
	"github.com/hostware/comhost/clsidmap"
	"github.com/hostware/comhost/errors"
)

var (
	calcCLSID  = comhost.MustGUID("{6E8A5C21-3F7D-4B92-A1E0-9C54D2B7F368}")
	clockCLSID = comhost.MustGUID("{0B2D9F44-7A1C-4E83-B5D6-2F80C1A9E757}")
)

func testEntries() []clsidmap.Entry {
	return []clsidmap.Entry{
		{
			CLSID:    calcCLSID,
			Assembly: "Contoso.Server",
			Type:     "Contoso.Server.Calculator",
			ProgID:   "Contoso.Calculator",
		},
		{
			CLSID:    clockCLSID,
			Assembly: "Contoso.Server",
			Type:     "Contoso.Server.Clock",
		},
	}
}

func mustGet(t *testing.T, s Store, key, name string) string {
	t.Helper()
	data, ok, err := s.Get(context.Background(), key, name)
	if err != nil {
		t.Fatalf("Get %s %q: %v", key, name, err)
	}
	if !ok {
		t.Fatalf("Get %s %q: value absent", key, name)
	}
	return data
}

func TestInstallShape(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	const shimPath = "/apps/Contoso.Server.comhost.dll"
	if err := Install(ctx, s, shimPath, testEntries()...); err != nil {
		t.Fatalf("Install: %v", err)
	}

	calcKey := ClassKey(calcCLSID)
	if got := mustGet(t, s, calcKey, ""); got != "Contoso.Server.Calculator" {
		t.Errorf("class default = %q", got)
	}
	if got := mustGet(t, s, calcKey+`\InprocServer32`, ""); got != shimPath {
		t.Errorf("server path = %q, want %q", got, shimPath)
	}
	if got := mustGet(t, s, calcKey+`\InprocServer32`, "ThreadingModel"); got != "Both" {
		t.Errorf("threading model = %q, want Both", got)
	}

	// ProgID triple for the entry that has one.
	if got := mustGet(t, s, calcKey+`\ProgID`, ""); got != "Contoso.Calculator" {
		t.Errorf("ProgID subkey = %q", got)
	}
	if got := mustGet(t, s, `Contoso.Calculator`, ""); got != "Contoso.Server.Calculator" {
		t.Errorf("progid default = %q", got)
	}
	if got := mustGet(t, s, `Contoso.Calculator\CLSID`, ""); got != calcCLSID.String() {
		t.Errorf("progid CLSID = %q, want %s", got, calcCLSID)
	}

	// No ProgID keys for the entry without one.
	clockKey := ClassKey(clockCLSID)
	if _, ok, _ := s.Get(ctx, clockKey+`\ProgID`, ""); ok {
		t.Error("clock entry grew a ProgID subkey")
	}
}

func TestInstallOverwrites(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	entries := testEntries()
	if err := Install(ctx, s, "/old/server.comhost.dll", entries...); err != nil {
		t.Fatal(err)
	}
	if err := Install(ctx, s, "/new/server.comhost.dll", entries...); err != nil {
		t.Fatal(err)
	}

	path, ok, err := ServerPath(ctx, s, calcCLSID)
	if err != nil || !ok {
		t.Fatalf("ServerPath: ok=%v err=%v", ok, err)
	}
	if path != "/new/server.comhost.dll" {
		t.Fatalf("server path = %q after re-register", path)
	}
}

func TestInstallEmptyServerPath(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	err := Install(context.Background(), s, "", testEntries()...)
	if !errors.IsKind(err, errors.KindRegistration) {
		t.Fatalf("err = %v, want registration", err)
	}
}

func TestRemoveShape(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	entries := testEntries()
	if err := Install(ctx, s, "/apps/server.comhost.dll", entries...); err != nil {
		t.Fatal(err)
	}
	if err := Remove(ctx, s, entries...); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	keys, err := s.Keys(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Fatalf("keys after Remove = %v, want none", keys)
	}

	// Removing a registration that is not there is not an error.
	if err := Remove(ctx, s, entries...); err != nil {
		t.Fatalf("Remove absent: %v", err)
	}
}

func TestInstalledClasses(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if err := Install(ctx, s, "/apps/server.comhost.dll", testEntries()...); err != nil {
		t.Fatal(err)
	}

	classes, err := InstalledClasses(ctx, s)
	if err != nil {
		t.Fatalf("InstalledClasses: %v", err)
	}
	if len(classes) != 2 {
		t.Fatalf("classes = %v, want 2", classes)
	}
	// Sorted by braced form; the clock GUID sorts first.
	if classes[0] != clockCLSID || classes[1] != calcCLSID {
		t.Fatalf("classes = %v, want [%s %s]", classes, clockCLSID, calcCLSID)
	}
}

type failingStore struct {
	*MemoryStore
	setErr error
	delErr error
}

func (f *failingStore) Set(ctx context.Context, key, name, data string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.MemoryStore.Set(ctx, key, name, data)
}

func (f *failingStore) DeleteKey(ctx context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	return f.MemoryStore.DeleteKey(ctx, key)
}

func TestShapeErrorsCarryClass(t *testing.T) {
	ctx := context.Background()
	entries := testEntries()

	t.Run("install", func(t *testing.T) {
		s := &failingStore{MemoryStore: NewMemoryStore(), setErr: fmt.Errorf("disk full")}
		err := Install(ctx, s, "/apps/server.comhost.dll", entries...)
		if !errors.IsKind(err, errors.KindRegistration) {
			t.Fatalf("err = %v, want registration", err)
		}
		e, ok := err.(*errors.Error)
		if !ok || e.Class != calcCLSID.String() {
			t.Fatalf("err class = %v, want %s", err, calcCLSID)
		}
	})

	t.Run("remove", func(t *testing.T) {
		s := &failingStore{MemoryStore: NewMemoryStore(), delErr: fmt.Errorf("locked")}
		err := Remove(ctx, s, entries...)
		if !errors.IsKind(err, errors.KindRegistration) {
			t.Fatalf("err = %v, want registration", err)
		}
	})
}
