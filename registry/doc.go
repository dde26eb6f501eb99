// Package registry persists COM class registrations.
//
// A Store is a registration hive: a flat set of (key, name, data)
// string values where keys are backslash-separated paths under a
// classes root and the empty name is the key's default value, the COM
// convention. Two hives are provided: an in-memory one for tests and
// transient hosts, and a SQLite-backed one for durable registration.
//
// Install and Remove translate manifest entries into the vanilla
// in-proc-server shape:
//
//	CLSID\{clsid}                 (default)      = type name
//	CLSID\{clsid}\InprocServer32  (default)      = shim path
//	                              ThreadingModel = Both
//
// plus the ProgID triple when the entry carries one. No managed-era
// fields (assembly, class, runtime version) are written; the shim
// itself is the server.
package registry
