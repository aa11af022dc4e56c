package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/mathieusouflis/turing/pkg/domain"
)

// Catalog implements ports.TemplateCatalog from a fixed set of templates.
type Catalog struct {
	templates map[string]domain.Template
}

// NewCatalog creates a catalog holding the given templates.
// A later template with the same name replaces an earlier one.
func NewCatalog(templates ...domain.Template) *Catalog {
	c := &Catalog{templates: make(map[string]domain.Template, len(templates))}
	for _, t := range templates {
		c.templates[t.Name] = t
	}
	return c
}

// NewBuiltinCatalog creates a catalog with the builtin templates.
func NewBuiltinCatalog() *Catalog {
	return NewCatalog(domain.BuiltinTemplates()...)
}

// Template returns a copy of the named template.
func (c *Catalog) Template(_ context.Context, name string) (*domain.Template, error) {
	t, ok := c.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, name)
	}
	t.Definition = t.Definition.Clone()
	return &t, nil
}

// Templates returns all template names, sorted.
func (c *Catalog) Templates(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(c.templates))
	for name := range c.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
