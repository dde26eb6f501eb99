package comhost

import (
	"reflect"
	"sort"
	"sync"

	"github.com/hostware/comhost/errors"
)

// The interface registry binds IIDs to verifiable Go contracts. A
// binding is either a static Go interface type or a late-bound method
// set checked against Dispatch objects. QueryInterface consults the
// registry, so an unregistered IID is simply not supported.
type ifaceEntry struct {
	name    string
	typ     reflect.Type // static interface type, nil for dispatch sets
	methods []string     // sorted dispatch method set, nil for static
}

var ifaceReg = struct {
	sync.RWMutex
	entries map[IID]*ifaceEntry
}{entries: make(map[IID]*ifaceEntry)}

// RegisterInterface binds iid to the Go interface type T. Objects
// satisfy the binding when their dynamic type implements T. Registering
// an already-bound IID fails.
func RegisterInterface[T any](iid IID, name string) error {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Interface {
		return errors.InvalidArg(errors.OpObject, "RegisterInterface requires an interface type, got "+typ.String())
	}
	return addInterface(iid, &ifaceEntry{name: name, typ: typ})
}

// RegisterDispatchInterface binds iid to a method set. Objects satisfy
// the binding when they implement Dispatch and expose every listed
// method.
func RegisterDispatchInterface(iid IID, name string, methods ...string) error {
	if len(methods) == 0 {
		return errors.InvalidArg(errors.OpObject, "RegisterDispatchInterface requires at least one method")
	}
	set := make([]string, len(methods))
	copy(set, methods)
	sort.Strings(set)
	return addInterface(iid, &ifaceEntry{name: name, methods: set})
}

func addInterface(iid IID, entry *ifaceEntry) error {
	if iid.IsZero() {
		return errors.InvalidArg(errors.OpObject, "zero IID")
	}
	ifaceReg.Lock()
	defer ifaceReg.Unlock()
	if _, dup := ifaceReg.entries[iid]; dup {
		return errors.InvalidArg(errors.OpObject, "interface "+iid.String()+" already registered")
	}
	ifaceReg.entries[iid] = entry
	return nil
}

// InterfaceName returns the registered name for an IID, or its braced
// form when unknown. Diagnostics only.
func InterfaceName(iid IID) string {
	switch iid {
	case IID_IUnknown:
		return "IUnknown"
	case IID_IClassFactory:
		return "IClassFactory"
	case IID_IDispatch:
		return "IDispatch"
	}
	ifaceReg.RLock()
	defer ifaceReg.RUnlock()
	if e, ok := ifaceReg.entries[iid]; ok {
		return e.name
	}
	return iid.String()
}

// Supports reports whether v satisfies the interface identified by iid.
// IUnknown is satisfied by any non-nil object.
func Supports(v any, iid IID) bool {
	if v == nil {
		return false
	}
	switch iid {
	case IID_IUnknown:
		return true
	case IID_IClassFactory:
		_, ok := v.(ClassFactory)
		return ok
	case IID_IDispatch:
		_, ok := v.(Dispatch)
		return ok
	}

	ifaceReg.RLock()
	entry, ok := ifaceReg.entries[iid]
	ifaceReg.RUnlock()
	if !ok {
		return false
	}

	if entry.typ != nil {
		return reflect.TypeOf(v).Implements(entry.typ)
	}

	d, ok := v.(Dispatch)
	if !ok {
		return false
	}
	have := d.Methods()
	set := make(map[string]bool, len(have))
	for _, m := range have {
		set[m] = true
	}
	for _, m := range entry.methods {
		if !set[m] {
			return false
		}
	}
	return true
}

// Query returns v when it satisfies iid, or a no-interface error. The
// same value comes back for every supported IID; Go interface values
// need no pointer adjustment.
func Query(v any, iid IID) (any, error) {
	if !Supports(v, iid) {
		return nil, errors.NoInterface(InterfaceName(iid))
	}
	return v, nil
}
