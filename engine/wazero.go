package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/coreos/go-semver/semver"
	"github.com/hostware/comhost/errors"
)

// WasmProvider is the provider name for the wazero binary backend.
const WasmProvider = "wasm"

func init() {
	Register(wasmProvider{})
}

// wasmProvider runs compiled wasm assemblies on wazero. Each scope
// owns a private wazero runtime, so sibling modules an assembly links
// against are instantiated per scope and never shared across
// assemblies.
type wasmProvider struct{}

func (wasmProvider) Name() string { return WasmProvider }

func (wasmProvider) Start(ctx context.Context, cfg Config) (Runtime, error) {
	return &wasmRuntime{version: cfg.Version}, nil
}

type wasmRuntime struct {
	version semver.Version
}

func (r *wasmRuntime) Provider() string        { return WasmProvider }
func (r *wasmRuntime) Version() semver.Version { return r.version }

func (r *wasmRuntime) NewScope(ctx context.Context, assemblyPath string) (Scope, error) {
	bin, err := os.ReadFile(assemblyPath)
	if err != nil {
		return nil, errors.ActivationFailed("assembly "+assemblyPath+" not readable", err)
	}

	rt := wazero.NewRuntime(ctx)
	compiled, err := rt.CompileModule(ctx, bin)
	if err != nil {
		rt.Close(ctx)
		return nil, errors.ActivationFailed("assembly "+assemblyPath+" failed to compile", err)
	}

	// Imported modules resolve to sibling <name>.wasm files, compiled
	// and instantiated into this scope's runtime. One level deep:
	// siblings may import already linked siblings but nothing new.
	dir := filepath.Dir(assemblyPath)
	linked := make(map[string]bool)
	for _, def := range compiled.ImportedFunctions() {
		mod, _, ok := def.Import()
		if !ok || linked[mod] {
			continue
		}
		if err := linkSibling(ctx, rt, dir, mod); err != nil {
			rt.Close(ctx)
			return nil, err
		}
		linked[mod] = true
	}

	Logger().Debug("wasm assembly compiled",
		zap.String("assembly", assemblyPath),
		zap.Int("linked", len(linked)))
	return &wasmScope{
		path:     assemblyPath,
		runtime:  rt,
		compiled: compiled,
	}, nil
}

func linkSibling(ctx context.Context, rt wazero.Runtime, dir, name string) error {
	data, err := os.ReadFile(filepath.Join(dir, name+".wasm"))
	if err != nil {
		return errors.ActivationFailed("imported module "+name+" not found beside assembly", err)
	}
	dep, err := rt.CompileModule(ctx, data)
	if err != nil {
		return errors.ActivationFailed("imported module "+name+" failed to compile", err)
	}
	if _, err := rt.InstantiateModule(ctx, dep, wazero.NewModuleConfig().WithName(name)); err != nil {
		return errors.ActivationFailed("imported module "+name+" failed to instantiate", err)
	}
	return nil
}

// wasmScope is one compiled assembly inside its private runtime.
// Instantiation is cheap; every activated object gets an anonymous
// instance of its own.
type wasmScope struct {
	path     string
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
}

func (s *wasmScope) AssemblyPath() string { return s.path }

// Constructor locates the export prefix for a type. A type
// Namespace.Counter maps to exports counter_<method>; the method table
// of each instance is built from those exports.
func (s *wasmScope) Constructor(ctx context.Context, typeName string) (Constructor, error) {
	base := typeName
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[i+1:]
	}
	prefix := strings.ToLower(base) + "_"

	names := make([]string, 0, 4)
	for name := range s.compiled.ExportedFunctions() {
		if strings.HasPrefix(name, prefix) && len(name) > len(prefix) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, errors.ActivationFailed(
			"type "+typeName+" not exported by "+s.path+" (no "+prefix+"* functions)", nil)
	}

	return func(ctx context.Context) (*Product, error) {
		mod, err := s.runtime.InstantiateModule(ctx, s.compiled, wazero.NewModuleConfig().WithName(""))
		if err != nil {
			return nil, errors.ActivationFailed("instantiation of "+s.path+" failed", err)
		}

		var mu sync.Mutex
		methods := make(map[string]Method, len(names))
		for _, name := range names {
			fn := mod.ExportedFunction(name)
			methods[strings.TrimPrefix(name, prefix)] = wasmMethod(fn, &mu)
		}
		return &Product{
			Methods: methods,
			Finalize: func() {
				mod.Close(context.Background())
			},
		}, nil
	}, nil
}

// wasmMethod wraps an exported function with the numeric wire
// convention: arguments and results are i32/i64/f32/f64 scalars.
func wasmMethod(fn api.Function, mu *sync.Mutex) Method {
	def := fn.Definition()
	params := def.ParamTypes()
	results := def.ResultTypes()

	return func(ctx context.Context, args ...any) (any, error) {
		if len(args) != len(params) {
			return nil, errors.InvalidArg(errors.OpObject,
				fmt.Sprintf("got %d args, want %d", len(args), len(params)))
		}

		raw := make([]uint64, len(args))
		for i, arg := range args {
			v, err := encodeValue(arg, params[i])
			if err != nil {
				return nil, errors.InvalidArg(errors.OpObject, fmt.Sprintf("arg %d: %v", i, err))
			}
			raw[i] = v
		}

		mu.Lock()
		out, err := fn.Call(ctx, raw...)
		mu.Unlock()
		if err != nil {
			return nil, errors.Wrap(errors.OpObject, errors.KindActivationFailed, err, "wasm call failed")
		}

		switch len(out) {
		case 0:
			return nil, nil
		case 1:
			return decodeValue(out[0], results[0]), nil
		default:
			vals := make([]any, len(out))
			for i, v := range out {
				vals[i] = decodeValue(v, results[i])
			}
			return vals, nil
		}
	}
}

func encodeValue(arg any, vt api.ValueType) (uint64, error) {
	switch vt {
	case api.ValueTypeI32:
		n, ok := argInt(arg)
		if !ok {
			return 0, fmt.Errorf("cannot use %T as i32", arg)
		}
		return api.EncodeI32(int32(n)), nil
	case api.ValueTypeI64:
		n, ok := argInt(arg)
		if !ok {
			return 0, fmt.Errorf("cannot use %T as i64", arg)
		}
		return api.EncodeI64(n), nil
	case api.ValueTypeF32:
		f, ok := argFloat(arg)
		if !ok {
			return 0, fmt.Errorf("cannot use %T as f32", arg)
		}
		return api.EncodeF32(float32(f)), nil
	case api.ValueTypeF64:
		f, ok := argFloat(arg)
		if !ok {
			return 0, fmt.Errorf("cannot use %T as f64", arg)
		}
		return api.EncodeF64(f), nil
	}
	return 0, fmt.Errorf("unsupported parameter type %v", vt)
}

func decodeValue(raw uint64, vt api.ValueType) any {
	switch vt {
	case api.ValueTypeI32:
		return api.DecodeI32(raw)
	case api.ValueTypeI64:
		return int64(raw)
	case api.ValueTypeF32:
		return api.DecodeF32(raw)
	case api.ValueTypeF64:
		return api.DecodeF64(raw)
	}
	return raw
}

func argInt(arg any) (int64, bool) {
	switch v := arg.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func argFloat(arg any) (float64, bool) {
	switch v := arg.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
