// Package errors provides structured error types for the comhost library.
//
// Errors are categorized by Op (where in the activation pipeline the error
// occurred) and Kind (error category). The Error type includes the context
// needed to diagnose an activation failure: the CLSID involved, the file
// path probed, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.OpManifest, errors.KindManifestParse).
//		Path("/opt/app/server.clsidmap").
//		Detail("duplicate key %s", clsid).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ClassNotAvailable("{DA39A3EE-5E6B-5B0D-B255-BFEF95601890}")
//	err := errors.SignedFallbackDenied(shimPath)
//
// All errors implement the standard error interface and support errors.Is/As.
// The root package maps each Kind to the HRESULT reported across the COM
// boundary; the Kind, not the message text, is the stable contract.
package errors
