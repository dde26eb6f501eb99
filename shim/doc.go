// Package shim is the COM-facing surface of the activation host.
//
// A Shim binds one shim binary to the pipeline behind it: manifest
// resolution (clsidmap), resolution library loading (locator), runtime
// negotiation (activation), and the engine session. It exposes the
// four operations a COM in-proc server must provide, plus diagnostics.
//
// GetClassObject is the activation path. The manifest is consulted
// first and a CLSID the shim does not serve is rejected immediately,
// before any installation probing or engine work. CanUnloadNow always
// refuses: engines cannot be stopped or restarted, so the host stays
// resident once loaded. RegisterServer and UnregisterServer write the
// vanilla in-proc-server shape through a registry store.
//
// The package-level Dll* functions are ABI-shaped wrappers over a
// process-wide default Shim, returning HRESULTs the way the exported C
// entry points do. Hosts embedding the shim as a library use a Shim
// value directly and keep structured errors.
package shim
