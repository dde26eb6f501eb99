package registry

import (
	"context"
	"path/filepath"
	"testing"
)

var storeFactories = []struct {
	name string
	open func(t *testing.T) Store
}{
	{"memory", func(t *testing.T) Store { return NewMemoryStore() }},
	{"sqlite", func(t *testing.T) Store {
		t.Helper()
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "hive.db"))
		if err != nil {
			t.Fatalf("open sqlite hive: %v", err)
		}
		return s
	}},
}

func TestStoreRoundTrip(t *testing.T) {
	for _, f := range storeFactories {
		t.Run(f.name, func(t *testing.T) {
			s := f.open(t)
			defer s.Close()
			ctx := context.Background()

			if err := s.Set(ctx, `CLSID\{X}`, "", "Widget"); err != nil {
				t.Fatalf("Set default: %v", err)
			}
			if err := s.Set(ctx, `CLSID\{X}`, "ThreadingModel", "Both"); err != nil {
				t.Fatalf("Set named: %v", err)
			}

			got, ok, err := s.Get(ctx, `CLSID\{X}`, "")
			if err != nil || !ok || got != "Widget" {
				t.Fatalf("Get default = (%q, %v, %v), want Widget", got, ok, err)
			}
			got, ok, err = s.Get(ctx, `CLSID\{X}`, "ThreadingModel")
			if err != nil || !ok || got != "Both" {
				t.Fatalf("Get named = (%q, %v, %v), want Both", got, ok, err)
			}

			if _, ok, err := s.Get(ctx, `CLSID\{X}`, "Missing"); err != nil || ok {
				t.Fatalf("Get missing value: ok=%v err=%v, want absent", ok, err)
			}
			if _, ok, err := s.Get(ctx, `CLSID\{Y}`, ""); err != nil || ok {
				t.Fatalf("Get missing key: ok=%v err=%v, want absent", ok, err)
			}

			// Overwrite in place.
			if err := s.Set(ctx, `CLSID\{X}`, "", "Gadget"); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			got, _, _ = s.Get(ctx, `CLSID\{X}`, "")
			if got != "Gadget" {
				t.Fatalf("after overwrite = %q, want Gadget", got)
			}
		})
	}
}

func TestStoreDeleteSubtree(t *testing.T) {
	for _, f := range storeFactories {
		t.Run(f.name, func(t *testing.T) {
			s := f.open(t)
			defer s.Close()
			ctx := context.Background()

			seed := []string{
				`CLSID\{X}`,
				`CLSID\{X}\InprocServer32`,
				`CLSID\{X}\ProgID`,
				`CLSID\{X2}`, // shares a string prefix, not a subtree member
			}
			for _, k := range seed {
				if err := s.Set(ctx, k, "", "v"); err != nil {
					t.Fatalf("Set %s: %v", k, err)
				}
			}

			if err := s.DeleteKey(ctx, `CLSID\{X}`); err != nil {
				t.Fatalf("DeleteKey: %v", err)
			}

			keys, err := s.Keys(ctx, "")
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			if len(keys) != 1 || keys[0] != `CLSID\{X2}` {
				t.Fatalf("surviving keys = %v, want only CLSID\\{X2}", keys)
			}

			// Deleting what is already gone stays silent.
			if err := s.DeleteKey(ctx, `CLSID\{X}`); err != nil {
				t.Fatalf("DeleteKey absent: %v", err)
			}
		})
	}
}

func TestStoreKeysAndValues(t *testing.T) {
	for _, f := range storeFactories {
		t.Run(f.name, func(t *testing.T) {
			s := f.open(t)
			defer s.Close()
			ctx := context.Background()

			if err := s.Set(ctx, `CLSID\{B}`, "", "b"); err != nil {
				t.Fatal(err)
			}
			if err := s.Set(ctx, `CLSID\{A}`, "Two", "2"); err != nil {
				t.Fatal(err)
			}
			if err := s.Set(ctx, `CLSID\{A}`, "", "a"); err != nil {
				t.Fatal(err)
			}
			if err := s.Set(ctx, `Contoso.Calc`, "", "progid"); err != nil {
				t.Fatal(err)
			}

			keys, err := s.Keys(ctx, `CLSID\`)
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			want := []string{`CLSID\{A}`, `CLSID\{B}`}
			if len(keys) != len(want) || keys[0] != want[0] || keys[1] != want[1] {
				t.Fatalf("Keys(CLSID\\) = %v, want %v", keys, want)
			}

			all, err := s.Keys(ctx, "")
			if err != nil {
				t.Fatalf("Keys(all): %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("Keys(\"\") = %v, want 3 keys", all)
			}

			values, err := s.Values(ctx, `CLSID\{A}`)
			if err != nil {
				t.Fatalf("Values: %v", err)
			}
			if len(values) != 2 || values[0].Name != "" || values[0].Data != "a" || values[1].Name != "Two" {
				t.Fatalf("Values = %v, want default first then Two", values)
			}

			if values, err := s.Values(ctx, `CLSID\{Z}`); err != nil || len(values) != 0 {
				t.Fatalf("Values of absent key = (%v, %v), want empty", values, err)
			}
		})
	}
}

func TestSQLiteStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hive.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set(ctx, `CLSID\{X}\InprocServer32`, "", "/apps/server.comhost.dll"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Close again is a no-op.
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, `CLSID\{X}\InprocServer32`, "")
	if err != nil || !ok || got != "/apps/server.comhost.dll" {
		t.Fatalf("Get after reopen = (%q, %v, %v)", got, ok, err)
	}
}

func TestSQLiteStoreEmptyPath(t *testing.T) {
	if _, err := NewSQLiteStore(""); err == nil {
		t.Fatal("NewSQLiteStore(\"\") succeeded, want error")
	}
}
