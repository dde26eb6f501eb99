package clsidmap

import (
	"testing"

	comhost "github.com/hostware/comhost"
	"github.com/hostware/comhost/errors"
)

const manifestPath = "/opt/app/server.clsidmap"

func TestParse(t *testing.T) {
	data := []byte(`{
		"{11111111-1111-1111-1111-111111111111}": {
			"assembly": "Server",
			"type": "Server.Widget",
			"progid": "Server.Widget.1"
		},
		"{22222222-2222-2222-2222-222222222222}": {
			"assembly": "Server",
			"type": "Server.Gadget"
		}
	}`)

	m, err := Parse(data, manifestPath)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}

	widget, ok := m.Lookup(comhost.MustGUID("{11111111-1111-1111-1111-111111111111}"))
	if !ok {
		t.Fatal("widget entry not found")
	}
	if widget.Assembly != "Server" || widget.Type != "Server.Widget" || widget.ProgID != "Server.Widget.1" {
		t.Errorf("widget entry = %+v", widget)
	}

	gadget, ok := m.Lookup(comhost.MustGUID("{22222222-2222-2222-2222-222222222222}"))
	if !ok {
		t.Fatal("gadget entry not found")
	}
	if gadget.ProgID != "" {
		t.Errorf("progid should be optional, got %q", gadget.ProgID)
	}
}

func TestParse_LookupIsCaseInsensitive(t *testing.T) {
	data := []byte(`{"{abcdefab-1111-2222-3333-444444444444}": {"assembly": "A", "type": "A.T"}}`)

	m, err := Parse(data, manifestPath)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// Key was stored lowercase; lookup with uppercase notation.
	if _, ok := m.Lookup(comhost.MustGUID("{ABCDEFAB-1111-2222-3333-444444444444}")); !ok {
		t.Error("lookup should normalize case")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "not json",
			data: `clsid=thing`,
		},
		{
			name: "top-level array",
			data: `[{"assembly": "A"}]`,
		},
		{
			name: "malformed guid key",
			data: `{"not-a-guid": {"assembly": "A", "type": "A.T"}}`,
		},
		{
			name: "duplicate key",
			data: `{
				"{11111111-1111-1111-1111-111111111111}": {"assembly": "A", "type": "A.T"},
				"{11111111-1111-1111-1111-111111111111}": {"assembly": "B", "type": "B.T"}
			}`,
		},
		{
			name: "duplicate key different case",
			data: `{
				"{aaaaaaaa-1111-1111-1111-111111111111}": {"assembly": "A", "type": "A.T"},
				"{AAAAAAAA-1111-1111-1111-111111111111}": {"assembly": "B", "type": "B.T"}
			}`,
		},
		{
			name: "duplicate key braced and plain",
			data: `{
				"{bbbbbbbb-1111-1111-1111-111111111111}": {"assembly": "A", "type": "A.T"},
				"bbbbbbbb-1111-1111-1111-111111111111": {"assembly": "B", "type": "B.T"}
			}`,
		},
		{
			name: "missing assembly",
			data: `{"{11111111-1111-1111-1111-111111111111}": {"type": "A.T"}}`,
		},
		{
			name: "missing type",
			data: `{"{11111111-1111-1111-1111-111111111111}": {"assembly": "A"}}`,
		},
		{
			name: "entry not an object",
			data: `{"{11111111-1111-1111-1111-111111111111}": "Server.Widget"}`,
		},
		{
			name: "trailing data",
			data: `{"{11111111-1111-1111-1111-111111111111}": {"assembly": "A", "type": "A.T"}} {}`,
		},
		{
			name: "truncated document",
			data: `{"{11111111-1111-1111-1111-111111111111}": {"assembly": "A", "type": "A.T"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), manifestPath)
			if err == nil {
				t.Fatal("Parse should fail")
			}
			if !errors.IsKind(err, errors.KindManifestParse) {
				t.Errorf("kind = %q, want manifest_parse (%v)", errors.KindOf(err), err)
			}
		})
	}
}

func TestParse_EmptyObject(t *testing.T) {
	m, err := Parse([]byte(`{}`), manifestPath)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
}

func TestManifest_EntriesSorted(t *testing.T) {
	data := []byte(`{
		"{33333333-3333-3333-3333-333333333333}": {"assembly": "C", "type": "C.T"},
		"{11111111-1111-1111-1111-111111111111}": {"assembly": "A", "type": "A.T"},
		"{22222222-2222-2222-2222-222222222222}": {"assembly": "B", "type": "B.T"}
	}`)

	m, err := Parse(data, manifestPath)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	entries := m.Entries()
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].CLSID.String() >= entries[i].CLSID.String() {
			t.Errorf("entries not sorted at %d: %s >= %s", i, entries[i-1].CLSID, entries[i].CLSID)
		}
	}
}

func TestParse_UnknownFieldsTolerated(t *testing.T) {
	data := []byte(`{"{11111111-1111-1111-1111-111111111111}": {"assembly": "A", "type": "A.T", "comment": "extra"}}`)

	if _, err := Parse(data, manifestPath); err != nil {
		t.Errorf("unknown entry fields should be tolerated: %v", err)
	}
}
