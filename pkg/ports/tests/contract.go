package tests

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/mathieusouflis/turing/pkg/domain"
	"github.com/mathieusouflis/turing/pkg/ports"
)

// TemplateCatalogContractTest is a reusable test suite that verifies if an adapter complies with ports.TemplateCatalog.
// expected maps every template name the catalog was seeded with to its definition.
func TemplateCatalogContractTest(t *testing.T, catalog ports.TemplateCatalog, expected map[string]domain.Definition) {
	t.Helper()
	ctx := context.Background()

	t.Run("Template_Success", func(t *testing.T) {
		for name, want := range expected {
			tmpl, err := catalog.Template(ctx, name)
			if err != nil {
				t.Fatalf("unexpected error getting template %s: %v", name, err)
			}
			if tmpl.Name != name {
				t.Errorf("name mismatch: got %q, want %q", tmpl.Name, name)
			}
			if tmpl.Definition.InitialState != want.InitialState {
				t.Errorf("initial state mismatch for %s: got %q, want %q", name, tmpl.Definition.InitialState, want.InitialState)
			}
			if len(tmpl.Definition.Rules) != len(want.Rules) {
				t.Errorf("rule count mismatch for %s: got %d, want %d", name, len(tmpl.Definition.Rules), len(want.Rules))
			}
		}
	})

	t.Run("Template_NotFound", func(t *testing.T) {
		_, err := catalog.Template(ctx, "non-existent-template")
		if !errors.Is(err, domain.ErrTemplateNotFound) {
			t.Errorf("expected ErrTemplateNotFound, got %v", err)
		}
	})

	t.Run("Templates", func(t *testing.T) {
		names, err := catalog.Templates(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing templates: %v", err)
		}

		if len(names) != len(expected) {
			t.Errorf("expected %d templates, got %d", len(expected), len(names))
		}
		if !sort.StringsAreSorted(names) {
			t.Errorf("template names must be sorted, got %v", names)
		}

		lookup := make(map[string]bool)
		for _, name := range names {
			lookup[name] = true
		}
		for name := range expected {
			if !lookup[name] {
				t.Errorf("template %s missing from list", name)
			}
		}
	})
}
