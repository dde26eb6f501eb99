package shim

import (
	"context"
	"sync"

	comhost "github.com/hostware/comhost"
	"github.com/hostware/comhost/errors"
)

// The package-level entry points mirror the exported C ABI of a COM
// in-proc server: HRESULT in, HRESULT out, one process-wide shim
// behind them. Configure installs options before first use; once any
// entry point has built the default shim its options are frozen.
var (
	defaultMu   sync.Mutex
	defaultOpts Options
	defaultShim *Shim
)

// Configure sets the options the package-level entry points use. It
// fails once the default shim exists.
func Configure(opts Options) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultShim != nil {
		return errors.InvalidState(errors.OpActivate, "default shim already in use")
	}
	defaultOpts = opts
	return nil
}

// Default returns the process-wide shim, building it on first use from
// the configured options.
func Default() (*Shim, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultShim == nil {
		s, err := New(defaultOpts)
		if err != nil {
			return nil, err
		}
		defaultShim = s
	}
	return defaultShim, nil
}

// DllGetClassObject activates the class factory for clsid, validates
// it against iid, and stores it in out.
func DllGetClassObject(clsid comhost.CLSID, iid comhost.IID, out *any) comhost.HRESULT {
	if out == nil {
		return comhost.E_POINTER
	}
	*out = nil

	s, err := Default()
	if err != nil {
		return comhost.ResultOf(err)
	}
	factory, err := s.GetClassObject(context.Background(), clsid, iid)
	if err != nil {
		return comhost.ResultOf(err)
	}
	*out = factory
	return comhost.S_OK
}

// DllCanUnloadNow reports whether the host may unload. Always S_FALSE.
func DllCanUnloadNow() comhost.HRESULT {
	return comhost.S_FALSE
}

// DllRegisterServer writes the registration shape for every manifest
// class.
func DllRegisterServer() comhost.HRESULT {
	s, err := Default()
	if err != nil {
		return comhost.ResultOf(err)
	}
	return comhost.ResultOf(s.RegisterServer(context.Background()))
}

// DllUnregisterServer removes the registration shape for every
// manifest class.
func DllUnregisterServer() comhost.HRESULT {
	s, err := Default()
	if err != nil {
		return comhost.ResultOf(err)
	}
	return comhost.ResultOf(s.UnregisterServer(context.Background()))
}
