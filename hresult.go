package comhost

import (
	"fmt"

	"github.com/hostware/comhost/errors"
)

// HRESULT is the 32-bit status code COM callers observe. The high bit
// set means failure; everything the host can go wrong with collapses to
// one of these at the boundary, while the structured error behind it
// keeps the full story.
type HRESULT uint32

// COM status codes.
const (
	S_OK    HRESULT = 0x00000000
	S_FALSE HRESULT = 0x00000001

	E_NOTIMPL      HRESULT = 0x80004001
	E_NOINTERFACE  HRESULT = 0x80004002
	E_POINTER      HRESULT = 0x80004003
	E_FAIL         HRESULT = 0x80004005
	E_UNEXPECTED   HRESULT = 0x8000FFFF
	E_ACCESSDENIED HRESULT = 0x80070005
	E_OUTOFMEMORY  HRESULT = 0x8007000E
	E_INVALIDARG   HRESULT = 0x80070057

	CLASS_E_NOAGGREGATION     HRESULT = 0x80040110
	CLASS_E_CLASSNOTAVAILABLE HRESULT = 0x80040111
	SELFREG_E_CLASS           HRESULT = 0x80040201
)

// Host facility status codes, matching the hosting layer's block.
const (
	InvalidArgFailure         HRESULT = 0x80008081
	CoreHostLibLoadFailure    HRESULT = 0x80008082
	CoreHostLibMissingFailure HRESULT = 0x80008083
	CoreHostEntryPointFailure HRESULT = 0x80008084
	InvalidConfigFile         HRESULT = 0x80008093
	FrameworkMissingFailure   HRESULT = 0x80008096
	FrameworkCompatFailure    HRESULT = 0x8000809C
	HostInvalidState          HRESULT = 0x800080A3
	HostIncompatibleConfig    HRESULT = 0x800080A5
)

// Failed reports whether the code is a failure.
func (hr HRESULT) Failed() bool {
	return hr&0x80000000 != 0
}

// Succeeded reports whether the code is a success.
func (hr HRESULT) Succeeded() bool {
	return !hr.Failed()
}

func (hr HRESULT) String() string {
	if name, ok := hresultNames[hr]; ok {
		return name
	}
	return fmt.Sprintf("0x%08X", uint32(hr))
}

var hresultNames = map[HRESULT]string{
	S_OK:                      "S_OK",
	S_FALSE:                   "S_FALSE",
	E_NOTIMPL:                 "E_NOTIMPL",
	E_NOINTERFACE:             "E_NOINTERFACE",
	E_POINTER:                 "E_POINTER",
	E_FAIL:                    "E_FAIL",
	E_UNEXPECTED:              "E_UNEXPECTED",
	E_ACCESSDENIED:            "E_ACCESSDENIED",
	E_OUTOFMEMORY:             "E_OUTOFMEMORY",
	E_INVALIDARG:              "E_INVALIDARG",
	CLASS_E_NOAGGREGATION:     "CLASS_E_NOAGGREGATION",
	CLASS_E_CLASSNOTAVAILABLE: "CLASS_E_CLASSNOTAVAILABLE",
	SELFREG_E_CLASS:           "SELFREG_E_CLASS",
	InvalidArgFailure:         "InvalidArgFailure",
	CoreHostLibLoadFailure:    "CoreHostLibLoadFailure",
	CoreHostLibMissingFailure: "CoreHostLibMissingFailure",
	CoreHostEntryPointFailure: "CoreHostEntryPointFailure",
	InvalidConfigFile:         "InvalidConfigFile",
	FrameworkMissingFailure:   "FrameworkMissingFailure",
	FrameworkCompatFailure:    "FrameworkCompatFailure",
	HostInvalidState:          "HostInvalidState",
	HostIncompatibleConfig:    "HostIncompatibleConfig",
}

// resultKinds maps each structured error kind to the HRESULT exposed
// across the COM boundary.
var resultKinds = map[errors.Kind]HRESULT{
	errors.KindManifestNotFound:      InvalidConfigFile,
	errors.KindManifestParse:         InvalidConfigFile,
	errors.KindClassNotAvailable:     CLASS_E_CLASSNOTAVAILABLE,
	errors.KindResolutionLibNotFound: CoreHostLibMissingFailure,
	errors.KindInvalidConfig:         InvalidConfigFile,
	errors.KindFrameworkMissing:      FrameworkMissingFailure,
	errors.KindVersionConflict:       HostIncompatibleConfig,
	errors.KindActivationFailed:      E_FAIL,
	errors.KindSignedFallbackDenied:  E_ACCESSDENIED,
	errors.KindNoInterface:           E_NOINTERFACE,
	errors.KindNoAggregation:         CLASS_E_NOAGGREGATION,
	errors.KindUnsupported:           E_NOTIMPL,
	errors.KindInvalidArg:            E_INVALIDARG,
	errors.KindInvalidState:          HostInvalidState,
	errors.KindRegistration:          SELFREG_E_CLASS,
}

// ResultOf maps an error to its boundary HRESULT. nil maps to S_OK;
// structured errors map by kind; anything else is E_FAIL.
func ResultOf(err error) HRESULT {
	if err == nil {
		return S_OK
	}
	if hr, ok := resultKinds[errors.KindOf(err)]; ok {
		return hr
	}
	return E_FAIL
}
