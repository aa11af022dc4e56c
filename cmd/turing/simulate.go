package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mathieusouflis/turing"
	"github.com/mathieusouflis/turing/internal/presentation/tui"
	"github.com/mathieusouflis/turing/pkg/domain"
	"github.com/mathieusouflis/turing/pkg/schema"
)

var simulateCmd = &cobra.Command{
	Use:     "simulate [file]",
	Aliases: []string{"sim"},
	Short:   "Run a definition locally and print every step",
	Long: `Simulates a machine without storing it.

The definition is read from a yaml or json file, or taken from a catalog
template with --template. Each executed transition prints the rule and the tape.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, appOptions{catalogOnly: true})
		if err != nil {
			return err
		}
		defer a.Close()

		def, err := simulationDefinition(cmd, a, args)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		runner := turing.NewRunner(out)
		runner.Renderer = tui.TapeRenderer(out)
		runner.MaxSteps, _ = cmd.Flags().GetUint64("max-steps")
		if runner.MaxSteps == 0 {
			runner.MaxSteps = a.cfg.MaxSteps
		}
		runner.Quiet, _ = cmd.Flags().GetBool("quiet")

		_, _, err = runner.Run(cmd.Context(), def)
		return err
	},
}

func simulationDefinition(cmd *cobra.Command, a *app, args []string) (domain.Definition, error) {
	name, _ := cmd.Flags().GetString("template")

	var def domain.Definition
	switch {
	case name != "" && len(args) > 0:
		return def, fmt.Errorf("use either a file or --template, not both")
	case name != "":
		t, err := a.catalog.Template(cmd.Context(), name)
		if err != nil {
			return def, err
		}
		def = t.Definition.Clone()
	case len(args) > 0:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return def, fmt.Errorf("read definition: %w", err)
		}
		if def, err = schema.ParseDefinition(data, filepath.Ext(args[0])); err != nil {
			return def, fmt.Errorf("%s: %w", args[0], err)
		}
	default:
		def = domain.DefaultDefinition()
	}

	if cmd.Flags().Changed("tape") {
		def.InitialTape, _ = cmd.Flags().GetString("tape")
	}
	if cmd.Flags().Changed("head") {
		def.InitialHead, _ = cmd.Flags().GetInt("head")
	}
	return def, schema.Validate(def)
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringP("template", "t", "", "Simulate a catalog template instead of a file")
	simulateCmd.Flags().Uint64P("max-steps", "n", 0, "Step budget (0 uses TURING_MAX_STEPS)")
	simulateCmd.Flags().String("tape", "", "Override the initial tape")
	simulateCmd.Flags().Int("head", 0, "Override the initial head position")
	simulateCmd.Flags().BoolP("quiet", "q", false, "Print only the final configuration")
}
