// Package activation drives class activations through a loaded
// runtime-resolution library.
//
// A Request describes the shim binary on disk. From its path the
// package derives the runtime configuration file and the managed
// assembly paths that sit next to it: the shim marker and the binary
// extension are stripped from the filename, so /apps/server.comhost.dll
// pairs with /apps/server.runtimeconfig.json and /apps/server.dll.
//
// The Negotiator owns the handshake with the resolution library. On
// first use it loads the library, initializes it for the derived
// configuration, and requests the activation entry point; the returned
// delegate is cached per delegate kind for the life of the process.
// Failures along the way are reported to the caller and retried on the
// next activation, except engine start failures, which the engine
// session makes permanent on its own.
//
// Invoke is the bridge across the host/runtime boundary: it packs one
// manifest entry into an ActivationContext, runs the delegate, and
// unwraps the class factory the delegate deposited.
package activation
