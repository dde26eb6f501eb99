package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hostware/comhost/activation"
	"github.com/hostware/comhost/engine"
	"github.com/hostware/comhost/locator"
	"github.com/hostware/comhost/registry"
	"github.com/hostware/comhost/shim"
)

var (
	configPath string
	shimPath   string
	roots      []string
	managedExt string
	hivePath   string
	signedFlag bool
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "comhost",
	Short: "COM activation shim toolkit",
	Long: `comhost inspects, registers, and drives COM class activation for
managed assemblies hosted in-process.

A shim binary carries (or sits next to) a .clsidmap manifest naming the
classes it can activate. Activation resolves the newest installed
resolution library under <root>/host/fxr/<version>, negotiates a runtime
per the assembly's runtimeconfig, and hands back class factories.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The console paints its own UI; keep the log quiet there
		// unless verbosity is asked for explicitly.
		level := zapcore.WarnLevel
		if verbose {
			level = zapcore.DebugLevel
		} else if cmd.Name() != consoleCmd.Name() {
			level = zapcore.InfoLevel
		}

		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		shim.SetLogger(logger.Named("shim"))
		activation.SetLogger(logger.Named("activation"))
		locator.SetLogger(logger.Named("locator"))
		engine.SetLogger(logger.Named("engine"))
		registry.SetLogger(logger.Named("registry"))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVarP(&shimPath, "shim", "s", "", "Path to the shim binary (default: this executable)")
	rootCmd.PersistentFlags().StringSliceVarP(&roots, "root", "r", nil, "Installation root(s) to probe (repeatable)")
	rootCmd.PersistentFlags().StringVar(&managedExt, "ext", "", "Managed assembly extension (default .dll)")
	rootCmd.PersistentFlags().StringVar(&hivePath, "hive", "", "Registration hive database path")
	rootCmd.PersistentFlags().BoolVar(&signedFlag, "signed", false, "Treat the shim as signed (denies disk manifest fallback)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(unregisterCmd)
	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(consoleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
