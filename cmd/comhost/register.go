package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Write the shim's classes into the registration hive",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

var unregisterCmd = &cobra.Command{
	Use:   "unregister",
	Short: "Remove the shim's classes from the registration hive",
	Args:  cobra.NoArgs,
	RunE:  runUnregister,
}

func runRegister(cmd *cobra.Command, args []string) error {
	s, store, err := newShim(cmd, true)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := s.RegisterServer(cmd.Context()); err != nil {
		return err
	}

	m, err := s.Manifest()
	if err != nil {
		return err
	}
	for _, e := range m.Entries() {
		fmt.Printf("registered %s", e.CLSID)
		if e.ProgID != "" {
			fmt.Printf(" (%s)", e.ProgID)
		}
		fmt.Printf("\n")
	}
	return nil
}

func runUnregister(cmd *cobra.Command, args []string) error {
	s, store, err := newShim(cmd, true)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := s.UnregisterServer(cmd.Context()); err != nil {
		return err
	}

	m, err := s.Manifest()
	if err != nil {
		return err
	}
	fmt.Printf("removed %d class registration(s)\n", m.Len())
	return nil
}
