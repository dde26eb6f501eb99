package clsidmap

import (
	"sort"

	comhost "github.com/hostware/comhost"
)

// Source records where a manifest was discovered.
type Source int

const (
	SourceEmbedded Source = iota
	SourceDisk
)

func (s Source) String() string {
	switch s {
	case SourceEmbedded:
		return "embedded"
	case SourceDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Entry describes one activatable class.
type Entry struct {
	CLSID    comhost.CLSID
	Assembly string // assembly simple name, no extension
	Type     string // fully qualified managed type name
	ProgID   string // optional programmatic identifier
}

// Manifest is an immutable parsed class manifest. The zero value is
// not usable; manifests come from Parse or Resolve.
type Manifest struct {
	entries map[comhost.CLSID]Entry
	src     Source
	signed  bool
	path    string
}

// Lookup returns the entry for a CLSID. The manifest stores normalized
// GUIDs, so any notation accepted by ParseGUID finds its entry.
func (m *Manifest) Lookup(clsid comhost.CLSID) (Entry, bool) {
	e, ok := m.entries[clsid]
	return e, ok
}

// Entries returns all entries ordered by braced CLSID.
func (m *Manifest) Entries() []Entry {
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CLSID.String() < out[j].CLSID.String()
	})
	return out
}

// Len returns the number of classes in the manifest.
func (m *Manifest) Len() int {
	return len(m.entries)
}

// Source reports where the manifest was discovered.
func (m *Manifest) Source() Source {
	return m.src
}

// Signed reports whether the owning shim was detected as signed.
func (m *Manifest) Signed() bool {
	return m.signed
}

// Path returns the file the manifest was read from: the shim binary for
// embedded manifests, the sibling file for disk manifests.
func (m *Manifest) Path() string {
	return m.path
}
