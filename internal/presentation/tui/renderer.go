package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/mathieusouflis/turing/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
// The style follows the terminal background.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// TemplateMarkdown describes a template as markdown: its summary and its rule table.
func TemplateMarkdown(t *domain.Template) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Name)
	if t.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", t.Description)
	}
	b.WriteString(DefinitionMarkdown(t.Definition))
	return b.String()
}

// DefinitionMarkdown renders the configuration and the rules of def.
func DefinitionMarkdown(def domain.Definition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- **Initial state:** `%s`\n", def.InitialState)
	fmt.Fprintf(&b, "- **Final states:** `%s`\n", strings.Join(def.FinalStates, "`, `"))
	fmt.Fprintf(&b, "- **Initial tape:** `%s` (head at %d)\n\n", def.InitialTape, def.InitialHead)

	b.WriteString("| State | Read | Write | Move | Next |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range def.Rules {
		fmt.Fprintf(&b, "| %s | `%s` | `%s` | %s | %s |\n", r.From, r.Read.String(), r.Write.String(), r.Move, r.To)
	}
	return b.String()
}
