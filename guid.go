package comhost

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GUID is a 128-bit COM identifier. CLSID and IID are the two roles a
// GUID plays in activation: class identity and interface identity.
type GUID uuid.UUID

// CLSID identifies a COM class.
type CLSID = GUID

// IID identifies a COM interface.
type IID = GUID

// Well-known interface identifiers.
var (
	IID_IUnknown      = MustGUID("{00000000-0000-0000-C000-000000000046}")
	IID_IClassFactory = MustGUID("{00000001-0000-0000-C000-000000000046}")
	IID_IDispatch     = MustGUID("{00020400-0000-0000-C000-000000000046}")
)

// ParseGUID parses a GUID in braced, plain, or hex form. Case is
// ignored; the result always renders in canonical braced uppercase.
func ParseGUID(s string) (GUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return GUID{}, fmt.Errorf("parse guid %q: %w", s, err)
	}
	return GUID(u), nil
}

// MustGUID parses a GUID and panics on failure. For package-level
// identifiers and tests.
func MustGUID(s string) GUID {
	g, err := ParseGUID(s)
	if err != nil {
		panic(err)
	}
	return g
}

// String returns the canonical braced uppercase form, the only form the
// host emits in manifests, registry shapes, and diagnostics.
func (g GUID) String() string {
	return "{" + strings.ToUpper(uuid.UUID(g).String()) + "}"
}

// IsZero reports whether g is the all-zero GUID.
func (g GUID) IsZero() bool {
	return g == GUID{}
}
