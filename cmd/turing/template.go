package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mathieusouflis/turing/internal/presentation/graph"
	"github.com/mathieusouflis/turing/internal/presentation/tui"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Browse the template catalog",
	Long: `Lists and describes the templates machines can be created from.
The builtin templates are always available; --catalog adds a directory of
yaml or json template files.`,
}

var templateLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List template names",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, appOptions{catalogOnly: true})
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.catalog.Templates(cmd.Context())
		if err != nil {
			return fmt.Errorf("list templates: %w", err)
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Describe a template and its rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, appOptions{catalogOnly: true})
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.catalog.Template(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if mermaid, _ := cmd.Flags().GetBool("mermaid"); mermaid {
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(t.Definition, nil))
			return nil
		}

		markdown := tui.TemplateMarkdown(t)
		if raw, _ := cmd.Flags().GetBool("raw"); raw {
			fmt.Fprint(cmd.OutOrStdout(), markdown)
			return nil
		}
		rendered, err := tui.NewRenderer()(markdown)
		if err != nil {
			rendered = markdown
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateLsCmd, templateShowCmd)

	templateShowCmd.Flags().Bool("raw", false, "Print markdown without terminal styling")
	templateShowCmd.Flags().Bool("mermaid", false, "Print the state graph as a Mermaid flowchart")
}
