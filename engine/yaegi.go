package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"

	"github.com/coreos/go-semver/semver"
	"github.com/hostware/comhost/errors"
)

// GoScriptProvider is the provider name for the yaegi source backend.
const GoScriptProvider = "goscript"

func init() {
	Register(goProvider{})
}

// goProvider runs source assemblies on the yaegi interpreter. Each
// scope owns a private interpreter whose GOPATH is the assembly's
// directory, so two assemblies shipping different copies of the same
// package under src/ never see each other's code.
type goProvider struct{}

func (goProvider) Name() string { return GoScriptProvider }

func (goProvider) Start(ctx context.Context, cfg Config) (Runtime, error) {
	return &goRuntime{version: cfg.Version}, nil
}

type goRuntime struct {
	version semver.Version
}

func (r *goRuntime) Provider() string        { return GoScriptProvider }
func (r *goRuntime) Version() semver.Version { return r.version }

func (r *goRuntime) NewScope(ctx context.Context, assemblyPath string) (Scope, error) {
	src, err := os.ReadFile(assemblyPath)
	if err != nil {
		return nil, errors.ActivationFailed("assembly "+assemblyPath+" not readable", err)
	}

	i := interp.New(interp.Options{GoPath: filepath.Dir(assemblyPath)})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, errors.ActivationFailed("interpreter stdlib load failed", err)
	}

	s := &goScope{
		path:   assemblyPath,
		ns:     packageName(src),
		interp: i,
	}
	if err := s.eval(string(src)); err != nil {
		return nil, errors.ActivationFailed("assembly "+assemblyPath+" failed to load", err)
	}

	Logger().Debug("source assembly loaded",
		zap.String("assembly", assemblyPath),
		zap.String("package", s.ns))
	return s, nil
}

// goScope is one loaded source assembly. The interpreter is not safe
// for concurrent use, so every evaluation and every interpreted call
// runs under the scope mutex.
type goScope struct {
	path   string
	ns     string
	mu     sync.Mutex
	interp *interp.Interpreter
}

func (s *goScope) AssemblyPath() string { return s.path }

func (s *goScope) Constructor(ctx context.Context, typeName string) (Constructor, error) {
	base := typeName
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[i+1:]
	}

	var fn reflect.Value
	var err error
	for _, symbol := range []string{s.ns + ".New" + base, "New" + base} {
		fn, err = s.symbol(symbol)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, errors.ActivationFailed("type "+typeName+" has no constructor in "+s.path, err)
	}
	if fn.Kind() != reflect.Func {
		return nil, errors.ActivationFailed("constructor for "+typeName+" is not a function", nil)
	}

	return func(ctx context.Context) (*Product, error) {
		out, err := s.call(ctx, fn, nil)
		if err != nil {
			return nil, errors.ActivationFailed("constructor for "+typeName+" failed", err)
		}
		table, ok := out.(map[string]any)
		if !ok {
			return nil, errors.ActivationFailed(
				fmt.Sprintf("constructor for %s returned %T, want map[string]any", typeName, out), nil)
		}

		methods := make(map[string]Method, len(table))
		for name, impl := range table {
			v := reflect.ValueOf(impl)
			if v.Kind() != reflect.Func {
				return nil, errors.ActivationFailed(
					fmt.Sprintf("method %s of %s is %T, want a function", name, typeName, impl), nil)
			}
			methods[name] = s.method(v)
		}
		return &Product{Methods: methods}, nil
	}, nil
}

// method wraps an interpreted closure as a Method, converting arguments
// and splitting the trailing error result.
func (s *goScope) method(fn reflect.Value) Method {
	return func(ctx context.Context, args ...any) (any, error) {
		return s.call(ctx, fn, args)
	}
}

func (s *goScope) eval(src string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interpreter panic: %v", r)
		}
	}()
	_, err = s.interp.Eval(src)
	return err
}

func (s *goScope) symbol(name string) (v reflect.Value, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interpreter panic: %v", r)
		}
	}()
	return s.interp.Eval(name)
}

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// call invokes an interpreted function under the scope mutex. A leading
// context.Context parameter is filled from ctx; remaining arguments are
// converted to the parameter types. A trailing error result is split
// off, a single remaining value is returned as-is, multiple values come
// back as []any.
func (s *goScope) call(ctx context.Context, fn reflect.Value, args []any) (result any, err error) {
	t := fn.Type()

	in := make([]reflect.Value, 0, t.NumIn())
	params := t.NumIn()
	next := 0
	if params > 0 && t.In(0) == ctxType {
		in = append(in, reflect.ValueOf(ctx))
		next = 1
	}

	want := params - next
	variadic := t.IsVariadic()
	if variadic {
		want--
		if len(args) < want {
			return nil, errors.InvalidArg(errors.OpObject,
				fmt.Sprintf("got %d args, want at least %d", len(args), want))
		}
	} else if len(args) != want {
		return nil, errors.InvalidArg(errors.OpObject,
			fmt.Sprintf("got %d args, want %d", len(args), want))
	}

	for i, arg := range args {
		pi := next + i
		var pt reflect.Type
		if variadic && pi >= params-1 {
			pt = t.In(params - 1).Elem()
		} else {
			pt = t.In(pi)
		}
		v, convErr := convertArg(arg, pt)
		if convErr != nil {
			return nil, errors.InvalidArg(errors.OpObject,
				fmt.Sprintf("arg %d: %v", i, convErr))
		}
		in = append(in, v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = errors.Wrap(errors.OpObject, errors.KindActivationFailed,
				fmt.Errorf("%v", r), "interpreted call panicked")
		}
	}()

	out := fn.Call(in)
	return splitResults(out)
}

func convertArg(arg any, pt reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(pt), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(pt) {
		return v, nil
	}
	if v.Type().ConvertibleTo(pt) {
		return v.Convert(pt), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, pt)
}

func splitResults(out []reflect.Value) (any, error) {
	var err error
	if n := len(out); n > 0 && out[n-1].Type().Implements(errType) {
		if !out[n-1].IsNil() {
			err = out[n-1].Interface().(error)
		}
		out = out[:n-1]
	}
	switch len(out) {
	case 0:
		return nil, err
	case 1:
		return out[0].Interface(), err
	default:
		vals := make([]any, len(out))
		for i, v := range out {
			vals[i] = v.Interface()
		}
		return vals, err
	}
}

func packageName(src []byte) string {
	for _, line := range strings.Split(string(src), "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "package "); ok {
			if i := strings.IndexAny(rest, " \t/"); i >= 0 {
				rest = rest[:i]
			}
			if rest != "" {
				return rest
			}
		}
	}
	return "main"
}
