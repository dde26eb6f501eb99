package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Op indicates where in the activation pipeline the error occurred
type Op string

const (
	OpManifest Op = "manifest" // clsidmap discovery and parsing
	OpLocate   Op = "locate"   // resolution library discovery
	OpResolve  Op = "resolve"  // runtime config and policy selection
	OpEngine   Op = "engine"   // engine session lifecycle
	OpActivate Op = "activate" // delegate invocation and factory creation
	OpRegister Op = "register" // registry shape installation
	OpObject   Op = "object"   // instance and interface handling
)

// Kind categorizes the error
type Kind string

const (
	KindManifestNotFound      Kind = "manifest_not_found"
	KindManifestParse         Kind = "manifest_parse"
	KindClassNotAvailable     Kind = "class_not_available"
	KindResolutionLibNotFound Kind = "resolution_lib_not_found"
	KindInvalidConfig         Kind = "invalid_config"
	KindFrameworkMissing      Kind = "framework_missing"
	KindVersionConflict       Kind = "version_conflict"
	KindActivationFailed      Kind = "activation_failed"
	KindSignedFallbackDenied  Kind = "signed_fallback_denied"
	KindNoInterface           Kind = "no_interface"
	KindNoAggregation         Kind = "no_aggregation"
	KindUnsupported           Kind = "unsupported"
	KindInvalidArg            Kind = "invalid_arg"
	KindInvalidState          Kind = "invalid_state"
	KindRegistration          Kind = "registration"
)

// Error is the structured error type used throughout the host
type Error struct {
	Cause  error
	Op     Op
	Kind   Kind
	Class  string // braced CLSID, when the failure is class-specific
	Path   string // file or directory involved, when known
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Op))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Class != "" {
		b.WriteString(": class ")
		b.WriteString(e.Class)
	}

	if e.Path != "" {
		if e.Class != "" {
			b.WriteString(", path ")
		} else {
			b.WriteString(": path ")
		}
		b.WriteString(e.Path)
	}

	if e.Detail != "" {
		if e.Class != "" || e.Path != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Kind always has to match;
// Op is compared only when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op != "" && e.Op != t.Op {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the Kind from an error chain, or "" if no structured
// error is present.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether the error chain contains a structured error of
// the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(op Op, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Op:   op,
			Kind: kind,
		},
	}
}

// Class sets the braced CLSID
func (b *Builder) Class(clsid string) *Builder {
	b.err.Class = clsid
	return b
}

// Path sets the file or directory path
func (b *Builder) Path(path string) *Builder {
	b.err.Path = path
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// ManifestNotFound reports that no class manifest could be discovered for
// the shim, embedded or on disk.
func ManifestNotFound(path string) *Error {
	return &Error{
		Op:     OpManifest,
		Kind:   KindManifestNotFound,
		Path:   path,
		Detail: "no class manifest found",
	}
}

// ManifestParse reports a malformed class manifest.
func ManifestParse(path, detail string, cause error) *Error {
	return &Error{
		Op:     OpManifest,
		Kind:   KindManifestParse,
		Path:   path,
		Detail: detail,
		Cause:  cause,
	}
}

// ClassNotAvailable reports a CLSID with no manifest entry.
func ClassNotAvailable(clsid string) *Error {
	return &Error{
		Op:    OpManifest,
		Kind:  KindClassNotAvailable,
		Class: clsid,
	}
}

// ResolutionLibNotFound reports that no usable resolution library
// installation exists under the probed roots.
func ResolutionLibNotFound(detail string) *Error {
	return &Error{
		Op:     OpLocate,
		Kind:   KindResolutionLibNotFound,
		Detail: detail,
	}
}

// InvalidConfig reports an unusable runtime configuration file.
func InvalidConfig(path, detail string, cause error) *Error {
	return &Error{
		Op:     OpResolve,
		Kind:   KindInvalidConfig,
		Path:   path,
		Detail: detail,
		Cause:  cause,
	}
}

// FrameworkMissing reports that no installed framework version satisfies
// the resolved runtime configuration.
func FrameworkMissing(detail string) *Error {
	return &Error{
		Op:     OpResolve,
		Kind:   KindFrameworkMissing,
		Detail: detail,
	}
}

// VersionConflict reports an engine configuration incompatible with the
// one already committed for this process.
func VersionConflict(detail string) *Error {
	return &Error{
		Op:     OpEngine,
		Kind:   KindVersionConflict,
		Detail: detail,
	}
}

// ActivationFailed reports a failure between delegate acquisition and
// factory construction.
func ActivationFailed(detail string, cause error) *Error {
	return &Error{
		Op:     OpActivate,
		Kind:   KindActivationFailed,
		Detail: detail,
		Cause:  cause,
	}
}

// SignedFallbackDenied reports a signed shim whose embedded manifest is
// missing; disk fallback is refused for signed binaries.
func SignedFallbackDenied(path string) *Error {
	return &Error{
		Op:     OpManifest,
		Kind:   KindSignedFallbackDenied,
		Path:   path,
		Detail: "shim is signed and carries no embedded manifest; on-disk fallback denied",
	}
}

// NoInterface reports a QueryInterface miss.
func NoInterface(iid string) *Error {
	return &Error{
		Op:     OpObject,
		Kind:   KindNoInterface,
		Detail: fmt.Sprintf("interface %s not supported", iid),
	}
}

// NoAggregation reports a CreateInstance call with a non-nil outer
// unknown; aggregation is not supported.
func NoAggregation(clsid string) *Error {
	return &Error{
		Op:     OpActivate,
		Kind:   KindNoAggregation,
		Class:  clsid,
		Detail: "aggregation is not supported",
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(op Op, what string) *Error {
	return &Error{
		Op:     op,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidArg creates an invalid argument error
func InvalidArg(op Op, detail string) *Error {
	return &Error{
		Op:     op,
		Kind:   KindInvalidArg,
		Detail: detail,
	}
}

// InvalidState creates an invalid state error, usually an out-of-order
// call against the negotiation protocol.
func InvalidState(op Op, detail string) *Error {
	return &Error{
		Op:     op,
		Kind:   KindInvalidState,
		Detail: detail,
	}
}

// Registration creates a registry installation error
func Registration(detail string, cause error) *Error {
	return &Error{
		Op:     OpRegister,
		Kind:   KindRegistration,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(op Op, kind Kind, cause error, detail string) *Error {
	return &Error{
		Op:     op,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
