package graph

import (
	"fmt"
	"strings"

	"github.com/mathieusouflis/turing/pkg/domain"
)

// Overlay contains live machine data to highlight on the diagram.
type Overlay struct {
	CurrentState string
	Status       domain.Status
}

// OverlayFor highlights where m currently is.
func OverlayFor(m *domain.Machine) *Overlay {
	return &Overlay{CurrentState: m.CurrentState, Status: m.Status}
}

// GenerateMermaid produces a Mermaid flowchart of the definition's state graph.
// It applies semantic styling:
// - Initial state: ((Circle))
// - Final state: (((Double circle)))
// - Default: [Rectangle]
//
// Rules sharing a (from, to) pair are merged into one edge whose label lists
// "read/write,move" triples. Rules shadowed by an earlier rule for the same
// (state, symbol) pair never fire and are left out.
func GenerateMermaid(def domain.Definition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	finals := make(map[string]bool, len(def.FinalStates))
	for _, f := range def.FinalStates {
		finals[f] = true
	}

	rules := effectiveRules(def)
	for _, state := range states(def, rules) {
		safeID := sanitizeMermaidID(state)

		opener, closer := "[", "]"
		switch {
		case finals[state]:
			opener, closer = "(((", ")))"
		case state == def.InitialState:
			opener, closer = "((", "))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escape(state), closer)
	}

	for _, e := range edges(rules) {
		fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n",
			sanitizeMermaidID(e.from), strings.Join(e.labels, "<br/>"), sanitizeMermaidID(e.to))
	}

	if overlay != nil && overlay.CurrentState != "" {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds.
		class := "current"
		switch overlay.Status {
		case domain.StatusAccepted:
			class = "accepted"
			sb.WriteString("    classDef accepted fill:#c8e6c9,stroke:#2e7d32,stroke-width:4px,color:#000;\n")
		case domain.StatusStuck:
			class = "stuck"
			sb.WriteString("    classDef stuck fill:#ffcdd2,stroke:#c62828,stroke-width:4px,color:#000;\n")
		default:
			sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		}
		fmt.Fprintf(&sb, "    class %s %s;\n", sanitizeMermaidID(overlay.CurrentState), class)
	}

	return sb.String()
}

type edge struct {
	from, to string
	labels   []string
}

// effectiveRules drops rules shadowed by an earlier rule for the same (state, symbol) pair.
func effectiveRules(def domain.Definition) []domain.Rule {
	type key struct {
		state  string
		symbol domain.Symbol
	}

	seen := make(map[key]bool, len(def.Rules))
	out := make([]domain.Rule, 0, len(def.Rules))
	for _, r := range def.Rules {
		k := key{r.From, r.Read}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

func edges(rules []domain.Rule) []*edge {
	type pair struct{ from, to string }

	byPair := make(map[pair]*edge)
	var out []*edge
	for _, r := range rules {
		p := pair{r.From, r.To}
		e, ok := byPair[p]
		if !ok {
			e = &edge{from: r.From, to: r.To}
			byPair[p] = e
			out = append(out, e)
		}
		e.labels = append(e.labels, escape(fmt.Sprintf("%s/%s,%s", r.Read, r.Write, r.Move)))
	}
	return out
}

// states lists every state in first-appearance order, starting with the initial state.
func states(def domain.Definition, rules []domain.Rule) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	add(def.InitialState)
	for _, r := range rules {
		add(r.From)
		add(r.To)
	}
	for _, f := range def.FinalStates {
		add(f)
	}
	return out
}

func escape(label string) string {
	return strings.ReplaceAll(label, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	// Mermaid reserves "end" as a keyword.
	if strings.EqualFold(s, "end") {
		s = "state_" + s
	}
	return s
}
