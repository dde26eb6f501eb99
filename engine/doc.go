// Package engine manages the process-wide managed engine that executes
// activated classes.
//
// # Architecture
//
// The package splits into four layers:
//
//	Provider  - a pluggable engine backend (register with Register)
//	Runtime   - one started engine; creates isolation Scopes
//	Scope     - per-assembly-path dependency isolation; resolves Constructors
//	Session   - process-wide lifecycle: single start, scope cache, objects
//
// # Engine Lifecycle
//
//  1. A Policy receives a resolved Config and calls Session.EnsureStarted.
//  2. Exactly one start attempt runs; its outcome is permanent. Success
//     pins provider and version for the process, failure is reported to
//     every later caller.
//  3. Later compatible configurations reuse the running engine; an
//     incompatible provider or version fails with a version conflict and
//     leaves the engine untouched.
//
// Compatibility follows Config.Satisfies: same provider, then the
// version rule selected by the config's roll-forward policy.
//
// # Isolation Scopes
//
// Every assembly path gets its own Scope. Scopes never share mutable
// state: two assemblies depending on different versions of the same
// package each load their own copy. Scope creation for a path happens
// once; concurrent first requests collapse to a single winner and
// failed creations are retried on the next activation.
//
// # Backends
//
// Two providers register themselves on import:
//
//	goscript - source assemblies run on the yaegi interpreter
//	wasm     - compiled assemblies run on the wazero runtime
//
// A backend turns a type name into a Constructor; constructors return
// Products whose method tables back the late-bound Dispatch interface.
//
// # Thread Safety
//
// Session, Policy, and the registered providers are safe for concurrent
// use. Products are serialized by their owning scope where the backend
// requires it (the interpreter backend does, the wasm backend does not).
package engine
