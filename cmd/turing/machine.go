package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mathieusouflis/turing"
	"github.com/mathieusouflis/turing/internal/presentation/graph"
	"github.com/mathieusouflis/turing/internal/presentation/tui"
	"github.com/mathieusouflis/turing/pkg/domain"
	"github.com/mathieusouflis/turing/pkg/schema"
)

var machineCmd = &cobra.Command{
	Use:     "machine",
	Aliases: []string{"m"},
	Short:   "Manage stored machines",
	Long: `Create, inspect, step, run, reset and remove machines in the configured store.

With the default memory store, machines are kept in .turing/machines so that
successive commands see each other's work.`,
}

var machineCreateCmd = &cobra.Command{
	Use:   "create [id]",
	Short: "Create a machine from a template or a definition file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, appOptions{persistent: true})
		if err != nil {
			return err
		}
		defer a.Close()

		req := turing.CreateRequest{}
		if len(args) == 1 {
			req.ID = args[0]
		}
		req.Name, _ = cmd.Flags().GetString("name")
		req.Template, _ = cmd.Flags().GetString("template")

		if path, _ := cmd.Flags().GetString("file"); path != "" {
			def, err := readDefinition(path)
			if err != nil {
				return err
			}
			req.Definition = &def
		}
		if cmd.Flags().Changed("tape") {
			tape, _ := cmd.Flags().GetString("tape")
			req.Tape = &tape
		}
		if cmd.Flags().Changed("head") {
			head, _ := cmd.Flags().GetInt("head")
			req.Head = &head
		}

		m, err := a.svc.Create(cmd.Context(), req)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created machine '%s'\n", m.ID)
		printMachine(out, m)
		return nil
	},
}

var machineLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all machines",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, appOptions{persistent: true})
		if err != nil {
			return err
		}
		defer a.Close()

		machines, err := a.svc.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list machines: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(machines) == 0 {
			fmt.Fprintln(out, "No machines found.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSTATE\tSTATUS\tSTEPS")
		for _, m := range machines {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", m.ID, m.Name, m.CurrentState, m.Status, m.Steps)
		}
		return tw.Flush()
	},
}

var machineInspectCmd = &cobra.Command{
	Use:   "inspect <id>",
	Short: "Print a machine as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, appOptions{persistent: true})
		if err != nil {
			return err
		}
		defer a.Close()

		m, err := a.svc.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	},
}

var machineStepCmd = &cobra.Command{
	Use:   "step <id>",
	Short: "Execute one transition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, appOptions{persistent: true})
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.svc.Step(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printMachine(out, res.Machine)
		if res.Halted {
			fmt.Fprintf(out, "halted: %s\n", res.Reason)
		}
		return nil
	},
}

var machineRunCmd = &cobra.Command{
	Use:   "run <id>",
	Short: "Run a machine until it halts or the step budget is spent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, appOptions{persistent: true})
		if err != nil {
			return err
		}
		defer a.Close()

		maxSteps, _ := cmd.Flags().GetUint64("max-steps")
		res, err := a.svc.Run(cmd.Context(), args[0], maxSteps)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printMachine(out, res.Machine)
		fmt.Fprintf(out, "halted: %s after %d steps (budget %d)\n", res.HaltReason, res.StepsExecuted, res.MaxSteps)
		return nil
	},
}

var machineResetCmd = &cobra.Command{
	Use:   "reset <id>",
	Short: "Rewind a machine to its initial state",
	Long: `Restores the tape and head, and puts the machine back in its initial state.
Without --content and --head the machine's initial tape is used.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, appOptions{persistent: true})
		if err != nil {
			return err
		}
		defer a.Close()

		var req turing.ResetRequest
		if cmd.Flags().Changed("content") {
			content, _ := cmd.Flags().GetString("content")
			req.Content = &content
		}
		if cmd.Flags().Changed("head") {
			head, _ := cmd.Flags().GetInt("head")
			req.Head = &head
		}

		m, err := a.svc.Reset(cmd.Context(), args[0], &req)
		if err != nil {
			return err
		}
		printMachine(cmd.OutOrStdout(), m)
		return nil
	},
}

var machineGraphCmd = &cobra.Command{
	Use:   "graph <id>",
	Short: "Print the machine's state graph as a Mermaid flowchart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, appOptions{persistent: true})
		if err != nil {
			return err
		}
		defer a.Close()

		m, err := a.svc.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(m.Definition, graph.OverlayFor(m)))
		return nil
	},
}

var machineRmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Remove one or more machines",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, appOptions{persistent: true})
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		var errs []error
		for _, id := range args {
			if err := a.svc.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("remove '%s': %w", id, err))
				continue
			}
			fmt.Fprintf(out, "Removed machine '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(machineCmd)
	machineCmd.AddCommand(machineCreateCmd, machineLsCmd, machineInspectCmd,
		machineStepCmd, machineRunCmd, machineResetCmd, machineGraphCmd, machineRmCmd)

	machineCreateCmd.Flags().StringP("template", "t", "", "Template to start from")
	machineCreateCmd.Flags().StringP("file", "f", "", "Definition file (yaml or json)")
	machineCreateCmd.Flags().String("name", "", "Display name")
	machineCreateCmd.Flags().String("tape", "", "Initial tape content")
	machineCreateCmd.Flags().Int("head", 0, "Initial head position")

	machineRunCmd.Flags().Uint64P("max-steps", "n", 0, "Step budget (0 uses the configured default)")

	machineResetCmd.Flags().String("content", "", "Tape content to reset to")
	machineResetCmd.Flags().Int("head", 0, "Head position to reset to")
}

// printMachine writes a one-line summary followed by the rendered tape.
func printMachine(w io.Writer, m *domain.Machine) {
	fmt.Fprintf(w, "%s  state=%s status=%s steps=%d\n", m.ID, m.CurrentState, m.Status, m.Steps)
	render := tui.TapeRenderer(w)
	fmt.Fprintln(w, render(domain.RestoreTape(m.Tape, m.Head), m.CurrentState))
}

func readDefinition(path string) (domain.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Definition{}, fmt.Errorf("read definition: %w", err)
	}
	// Validation happens in Create, after defaults fill the gaps.
	rec, err := schema.Unmarshal(data, filepath.Ext(path))
	if err != nil {
		return domain.Definition{}, fmt.Errorf("%s: %w", path, err)
	}
	def, err := schema.DecodeRecord(rec)
	if err != nil {
		return domain.Definition{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}
