// Package locator discovers installed runtime-resolution libraries and
// carries the default resolution library implementation.
//
// An installation root holds resolution library installs under
// host/fxr/<version>/ (marked by an fxr.json descriptor) and framework
// installs under shared/<framework>/<version>/ (marked by a
// hostpolicy.json descriptor naming the engine provider). The Locator
// probes the configured roots, picks the highest installed resolution
// library version, and loads it once per process; only successful loads
// are cached, so an installation appearing later is picked up by the
// next activation.
//
// The default resolution library resolves a .runtimeconfig.json into a
// framework name, a version selected under the config's roll-forward
// policy, and the engine provider the framework's hostpolicy descriptor
// names. Absent config files are legal when exactly one framework is
// installed; the newest version of that framework is used.
package locator
