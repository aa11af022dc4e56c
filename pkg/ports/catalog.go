package ports

import (
	"context"

	"github.com/mathieusouflis/turing/pkg/domain"
)

// TemplateCatalog serves reusable machine definitions by name.
type TemplateCatalog interface {
	// Template returns the named template.
	// Returns domain.ErrTemplateNotFound if it does not exist.
	Template(ctx context.Context, name string) (*domain.Template, error)

	// Templates lists the available template names, sorted.
	Templates(ctx context.Context) ([]string, error)
}
