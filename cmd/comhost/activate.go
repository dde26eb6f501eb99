package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	comhost "github.com/hostware/comhost"
	"github.com/hostware/comhost/shim"
)

var activateCmd = &cobra.Command{
	Use:   "activate <clsid|progid> [method [args...]]",
	Short: "Activate a class and invoke a dispatch method",
	Long: `Activates one object of the named class and invokes a method on it.
The class may be named by its braced CLSID or by its ProgID. Without a
method, the object's invocable methods are listed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runActivate,
}

func runActivate(cmd *cobra.Command, args []string) error {
	s, _, err := newShim(cmd, false)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	clsid, err := resolveClass(s, args[0])
	if err != nil {
		return err
	}

	factory, err := s.GetClassObject(ctx, clsid, comhost.IID_IClassFactory)
	if err != nil {
		return err
	}
	defer releaseUnknown(factory)

	v, err := factory.CreateInstance(ctx, nil, comhost.IID_IDispatch)
	if err != nil {
		return err
	}
	defer releaseUnknown(v)

	d, ok := v.(comhost.Dispatch)
	if !ok {
		return fmt.Errorf("class %s produced a %T, not a dispatch object", clsid, v)
	}

	if len(args) == 1 {
		fmt.Printf("Methods of %s:\n", clsid)
		for _, name := range d.Methods() {
			fmt.Printf("  %s\n", name)
		}
		return nil
	}

	callArgs := make([]any, len(args[2:]))
	for i, raw := range args[2:] {
		callArgs[i] = parseArg(raw)
	}
	result, err := d.Invoke(ctx, args[1], callArgs...)
	if err != nil {
		return fmt.Errorf("call %s: %w", args[1], err)
	}
	fmt.Printf("Result: %v\n", result)
	return nil
}

// resolveClass accepts a braced CLSID or a ProgID from the manifest.
func resolveClass(s *shim.Shim, name string) (comhost.CLSID, error) {
	if clsid, err := comhost.ParseGUID(name); err == nil {
		return clsid, nil
	}
	m, err := s.Manifest()
	if err != nil {
		return comhost.CLSID{}, err
	}
	for _, e := range m.Entries() {
		if e.ProgID != "" && strings.EqualFold(e.ProgID, name) {
			return e.CLSID, nil
		}
	}
	return comhost.CLSID{}, fmt.Errorf("no class named %q in the manifest", name)
}

// parseArg converts a command-line argument to the closest Go value;
// the engine converts further to the method's parameter types.
func parseArg(s string) any {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(v)
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}
	return s
}

func releaseUnknown(v any) {
	if u, ok := v.(comhost.Unknown); ok {
		u.Release()
	}
}
