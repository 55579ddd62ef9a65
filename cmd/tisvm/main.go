// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ezrec/tisvm/casing"
	"github.com/ezrec/tisvm/emulator"
	"github.com/ezrec/tisvm/exec"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tisvm: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "tisvm",
		Short:         "tisvm emulates a casing of TIS execution nodes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose mode")

	rootCmd.AddCommand(newAsmCmd())
	rootCmd.AddCommand(newRunCmd(&verbose))

	return rootCmd
}

func newAsmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "asm FILE",
		Short: "Compile an assembly source file and print the listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			state := exec.NewMachineState()
			err = exec.Compile(string(data), state)
			if err != nil {
				return fmt.Errorf("%v: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			for pc, in := range state.Instructions {
				fmt.Fprintf(out, "%3d: %v\n", pc, in)
			}

			return nil
		},
	}
}

func newRunCmd(verbose *bool) *cobra.Command {
	var ticks int
	var snapshot string

	runCmd := &cobra.Command{
		Use:   "run LAYOUT",
		Short: "Run a YAML casing layout for a number of ticks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			layout, err := emulator.LoadLayout(data)
			if err != nil {
				return fmt.Errorf("%v: %w", args[0], err)
			}

			emu := emulator.NewEmulator()
			emu.Verbose = *verbose

			err = emu.InstallLayout(layout, filepath.Dir(args[0]))
			if err != nil {
				return err
			}

			if ticks == 0 {
				ticks = layout.Ticks
			}
			if ticks == 0 {
				ticks = 1
			}

			emu.Enable()
			emu.Run(ticks)
			emu.Disable()

			out := cmd.OutOrStdout()
			for face := casing.Face(0); face < casing.FACE_COUNT; face++ {
				node := emu.Node(face)
				if node == nil {
					continue
				}
				state := node.Machine.State
				fmt.Fprintf(out, "%v: pc=%v acc=%v bak=%v last=%v\n",
					face, state.Pc, state.Acc, state.Bak, state.Last)
			}

			if len(snapshot) != 0 {
				var saved []byte
				saved, err = emu.Save()
				if err != nil {
					return err
				}
				err = os.WriteFile(snapshot, saved, 0o644)
				if err != nil {
					return err
				}
			}

			return nil
		},
	}
	runCmd.Flags().IntVarP(&ticks, "ticks", "t", 0, "ticks to run (default from layout)")
	runCmd.Flags().StringVarP(&snapshot, "snapshot", "s", "", "write a YAML snapshot after the run")

	return runCmd
}
