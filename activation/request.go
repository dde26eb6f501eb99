package activation

import (
	"path/filepath"
	"strings"
)

const (
	// ShimSuffix is the filename marker that separates the activation
	// shim from the managed assembly it fronts.
	ShimSuffix = ".comhost"

	// RuntimeConfigSuffix is appended to the shim base name to locate
	// the runtime configuration file.
	RuntimeConfigSuffix = ".runtimeconfig.json"

	// DefaultManagedExtension is the assembly extension used when a
	// request does not name one.
	DefaultManagedExtension = ".dll"
)

// binaryExtensions are the shim binary extensions stripped during base
// name derivation. Comparison is case-insensitive; COM hosts routinely
// live on case-insensitive filesystems.
var binaryExtensions = map[string]bool{
	".dll":   true,
	".exe":   true,
	".so":    true,
	".dylib": true,
}

// Request identifies the shim binary an activation originates from.
// All derived paths are siblings of ShimPath.
type Request struct {
	// ShimPath is the on-disk location of the shim binary.
	ShimPath string

	// ManagedExtension replaces DefaultManagedExtension when building
	// assembly paths. A missing leading dot is tolerated.
	ManagedExtension string
}

func (r Request) extension() string {
	ext := r.ManagedExtension
	if ext == "" {
		return DefaultManagedExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Base returns the shim path with the binary extension and the shim
// suffix removed: /apps/server.comhost.dll reduces to /apps/server.
func (r Request) Base() string {
	base := r.ShimPath
	if ext := filepath.Ext(base); binaryExtensions[strings.ToLower(ext)] {
		base = base[:len(base)-len(ext)]
	}
	if tail := len(base) - len(ShimSuffix); tail >= 0 && strings.EqualFold(base[tail:], ShimSuffix) {
		base = base[:tail]
	}
	return base
}

// RuntimeConfigPath returns the configuration file derived from the
// shim name, located next to the shim.
func (r Request) RuntimeConfigPath() string {
	return r.Base() + RuntimeConfigSuffix
}

// AssemblyPath returns the managed assembly paired with the shim
// itself: the base name plus the managed extension.
func (r Request) AssemblyPath() string {
	return r.Base() + r.extension()
}

// AssemblyName returns the simple name of the paired assembly, the
// base filename without any directory or extension.
func (r Request) AssemblyName() string {
	return filepath.Base(r.Base())
}

// AssemblyPathFor resolves a manifest assembly name to a path.
// Simple names gain the managed extension and resolve against the shim
// directory; absolute names are used as given. Assembly names often
// contain dots (Contoso.Server), so only an exact extension match
// suppresses the append.
func (r Request) AssemblyPathFor(assembly string) string {
	if assembly == "" {
		return r.AssemblyPath()
	}
	name := assembly
	if !strings.EqualFold(filepath.Ext(name), r.extension()) {
		name += r.extension()
	}
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(filepath.Dir(r.ShimPath), name)
}
