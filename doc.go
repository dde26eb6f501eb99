// Package comhost provides an in-process COM activation host for
// managed class libraries.
//
// Given a CLSID, the host resolves the class manifest shipped with the
// shim binary, locates the newest runtime-resolution library on disk,
// negotiates an engine session through a runtime-policy library, and
// hands back an IClassFactory-compatible object whose instances live in
// an isolated dependency scope keyed by assembly path.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	comhost/             Root package with GUID, HRESULT, and activation contracts
//	├── shim/            High-level entry points (DllGetClassObject and friends)
//	├── clsidmap/        Class manifest discovery and parsing
//	├── locator/         Resolution library discovery and runtime config handling
//	├── engine/          Engine session, policy, providers, and isolation scopes
//	├── activation/      Negotiation protocol and the delegate-to-factory bridge
//	├── object/          Reference-counted live object table
//	├── registry/        Registration shapes over pluggable hive stores
//	└── errors/          Structured error types mapped to boundary HRESULTs
//
// # Quick Start
//
// Activate a class and call a method through late binding:
//
//	host, err := shim.New(shim.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	factory, err := host.GetClassObject(ctx, clsid, comhost.IID_IDispatch)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	obj, err := factory.CreateInstance(ctx, nil, comhost.IID_IDispatch)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := obj.(comhost.Dispatch).Invoke(ctx, "Greet", "World")
//	fmt.Println(result) // "Hello, World!"
//
// # Thread Safety
//
// Every exported entry point is safe for concurrent use. First-caller
// races (engine start, scope creation, manifest resolution) resolve to
// a single winner; losers observe the winner's committed result.
//
// # Unload Model
//
// The engine never unloads. Once a session starts it stays for the
// process lifetime, and CanUnloadNow always answers no. A failed first
// start is equally permanent: the failure is recorded and every later
// activation reports it. Restart the process to change engines.
package comhost
