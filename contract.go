package comhost

import "context"

// DelegateKind selects which runtime entry point a resolution library
// hands back. Only COM activation is implemented; the other kinds are
// reserved so the enumeration stays wire-compatible with the hosting
// layer that defined it.
type DelegateKind int

const (
	DelegateComActivation DelegateKind = iota
	DelegateLoadAssembly
	DelegateGetFunctionPointer
)

func (k DelegateKind) String() string {
	switch k {
	case DelegateComActivation:
		return "com_activation"
	case DelegateLoadAssembly:
		return "load_assembly"
	case DelegateGetFunctionPointer:
		return "get_function_pointer"
	default:
		return "unknown"
	}
}

// ResolutionLib is the contract of a loaded runtime-resolution library:
// exactly the two entry points the shim drives. InitializeForConfig
// parses the runtime configuration and selects a policy library;
// GetRuntimeDelegate starts (or reuses) the engine and returns the
// activation entry point. Implementations must tolerate repeated
// initialization with the same configuration.
type ResolutionLib interface {
	InitializeForConfig(ctx context.Context, runtimeConfigPath string) error
	GetRuntimeDelegate(ctx context.Context, kind DelegateKind) (ActivationDelegate, error)
}

// ActivationContext carries one class activation request across the
// host/runtime boundary. The byte-slice fields are the raw buffers
// handed to the runtime; they stay valid for the duration of the
// delegate call only. Factory is the out slot the delegate fills on
// success.
type ActivationContext struct {
	ClassID      CLSID
	InterfaceID  IID
	AssemblyPath []byte
	AssemblyName []byte
	TypeName     []byte

	Factory ClassFactory
}

// Path returns the assembly path buffer as a string.
func (c *ActivationContext) Path() string { return string(c.AssemblyPath) }

// Name returns the assembly name buffer as a string.
func (c *ActivationContext) Name() string { return string(c.AssemblyName) }

// Type returns the type name buffer as a string.
func (c *ActivationContext) Type() string { return string(c.TypeName) }

// ActivationDelegate is the runtime entry point that services class
// activations. A nil error with a nil Factory slot is a protocol
// violation and is reported as an activation failure by callers.
type ActivationDelegate func(ctx context.Context, act *ActivationContext) error

// Unknown is the base contract of every activated object (IUnknown).
// AddRef and Release return the resulting reference count; the object
// is dead after Release returns zero.
type Unknown interface {
	QueryInterface(iid IID) (any, error)
	AddRef() uint32
	Release() uint32
}

// ClassFactory is the IClassFactory contract. CreateInstance rejects
// aggregation (non-nil outer) and validates iid against the interface
// registry before constructing. LockServer adjusts the server lock
// count that keeps the host pinned; unloading is refused regardless,
// so the count is diagnostic.
type ClassFactory interface {
	CreateInstance(ctx context.Context, outer any, iid IID) (any, error)
	LockServer(lock bool) error
}

// Dispatch is late-bound method invocation, the IDispatch analog for
// engine-produced objects. Methods returns the invocable method names
// in sorted order.
type Dispatch interface {
	Invoke(ctx context.Context, method string, args ...any) (any, error)
	Methods() []string
}
