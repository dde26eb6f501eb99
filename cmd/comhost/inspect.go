package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hostware/comhost/activation"
	"github.com/hostware/comhost/locator"
	"github.com/hostware/comhost/registry"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the shim's manifest, derived paths, and installed runtimes",
	Args:  cobra.NoArgs,
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	req := activation.Request{ShimPath: cfg.Shim, ManagedExtension: cfg.Extension}
	fmt.Printf("Shim: %s\n", cfg.Shim)
	fmt.Printf("Runtime config: %s\n", req.RuntimeConfigPath())
	fmt.Printf("Default assembly: %s\n", req.AssemblyPath())

	s, _, err := newShim(cmd, false)
	if err != nil {
		return err
	}

	fmt.Printf("\nManifest:\n")
	m, err := s.Manifest()
	if err != nil {
		fmt.Printf("  unavailable: %v\n", err)
	} else {
		fmt.Printf("  source: %s", m.Source())
		if m.Path() != "" {
			fmt.Printf(" (%s)", m.Path())
		}
		fmt.Printf("\n  classes: %d\n", m.Len())
		for _, e := range m.Entries() {
			fmt.Printf("    %s  %s", e.CLSID, e.Type)
			if e.ProgID != "" {
				fmt.Printf("  [%s]", e.ProgID)
			}
			fmt.Printf("\n      assembly: %s\n", req.AssemblyPathFor(e.Assembly))
		}
	}

	fmt.Printf("\nInstalled runtimes:\n")
	loc := locator.New(locator.Options{Roots: cfg.Roots})
	installs := loc.Discover()
	if len(installs) == 0 {
		fmt.Printf("  none found under %v\n", loc.Roots())
	}
	best, bestErr := loc.Best()
	for _, in := range installs {
		marker := " "
		if bestErr == nil && in.Dir == best.Dir {
			marker = "*"
		}
		fmt.Printf("  %s %s  %s\n", marker, in.Version, in.Dir)
	}

	if _, statErr := os.Stat(cfg.Hive); statErr == nil {
		if err := printHive(cmd.Context(), cfg); err != nil {
			return err
		}
	}
	return nil
}

func printHive(ctx context.Context, cfg *Config) error {
	store, err := registry.NewSQLiteStore(cfg.Hive)
	if err != nil {
		return fmt.Errorf("failed to open hive %q: %w", cfg.Hive, err)
	}
	defer store.Close()

	classes, err := registry.InstalledClasses(ctx, store)
	if err != nil {
		return err
	}
	fmt.Printf("\nRegistered classes (%s):\n", cfg.Hive)
	if len(classes) == 0 {
		fmt.Printf("  none\n")
	}
	for _, clsid := range classes {
		path, _, err := registry.ServerPath(ctx, store, clsid)
		if err != nil {
			return err
		}
		fmt.Printf("  %s  %s\n", clsid, path)
	}
	return nil
}
