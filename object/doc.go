// Package object tracks live activated instances with COM reference
// counting semantics.
//
// Every instance an engine factory produces is inserted into a Table
// with an initial reference count of one. AddRef and Release adjust the
// count; the final Release invalidates the handle, recycles it, and
// runs the value's Finalize hook when present. Handle 0 is reserved and
// always invalid.
//
// Observers receive lifecycle events and back the host's live-object
// diagnostics. The table never blocks an activation on observer work;
// keep observer callbacks short.
package object
