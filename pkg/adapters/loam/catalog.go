// Package loam serves machine templates from a Loam vault: a directory of
// Markdown (frontmatter), YAML or JSON documents, one template per document.
package loam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"

	"github.com/mathieusouflis/turing/internal/logging"
	"github.com/mathieusouflis/turing/pkg/domain"
	"github.com/mathieusouflis/turing/pkg/ports"
	"github.com/mathieusouflis/turing/pkg/schema"
)

// Metadata is the raw document data; pkg/schema normalizes it.
type Metadata = map[string]any

// Catalog implements ports.TemplateCatalog over a Loam repository.
// Documents that fail validation are skipped with a warning when listing.
type Catalog struct {
	Repo     *loam.TypedRepository[Metadata]
	fallback ports.TemplateCatalog
	logger   *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithFallback serves templates from next when the vault does not define them.
func WithFallback(next ports.TemplateCatalog) Option {
	return func(c *Catalog) {
		c.fallback = next
	}
}

// WithLogger sets the logger used to report skipped documents.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a catalog over an existing typed repository.
func New(repo *loam.TypedRepository[Metadata], opts ...Option) *Catalog {
	c := &Catalog{Repo: repo, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open initializes a read-only Loam repository at dir.
func Open(dir string, opts ...Option) (*Catalog, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog path: %w", err)
	}
	// Strict mode keeps numbers as json.Number across serializers.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[Metadata](repo), opts...), nil
}

// Template returns the named template from the vault, then from the fallback.
func (c *Catalog) Template(ctx context.Context, name string) (*domain.Template, error) {
	index, err := c.index(ctx)
	if err != nil {
		return nil, err
	}
	if t, ok := index[name]; ok {
		return t, nil
	}
	if c.fallback != nil {
		return c.fallback.Template(ctx, name)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, name)
}

// Templates lists the vault's templates merged with the fallback's, sorted.
func (c *Catalog) Templates(ctx context.Context) ([]string, error) {
	index, err := c.index(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(index))
	names := make([]string, 0, len(index))
	for name := range index {
		seen[name] = struct{}{}
		names = append(names, name)
	}

	if c.fallback != nil {
		more, err := c.fallback.Templates(ctx)
		if err != nil {
			return nil, err
		}
		for _, name := range more {
			if _, dup := seen[name]; !dup {
				names = append(names, name)
			}
		}
	}

	sort.Strings(names)
	return names, nil
}

func (c *Catalog) index(ctx context.Context) (map[string]*domain.Template, error) {
	docs, err := c.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	out := make(map[string]*domain.Template, len(docs))
	origin := make(map[string]string, len(docs))
	for _, doc := range docs {
		t, err := schema.TemplateFromRecord(doc.Data, trimExtension(doc.ID))
		if err != nil {
			if errors.Is(err, domain.ErrInvalidDefinition) {
				c.logger.Warn("skipping invalid template", "document", doc.ID, "err", err)
				continue
			}
			return nil, err
		}
		if t.Description == "" {
			t.Description = strings.TrimSpace(doc.Content)
		}

		if prev, ok := origin[t.Name]; ok {
			return nil, fmt.Errorf("collision detected: template '%s' is defined in both '%s' and '%s'", t.Name, prev, doc.ID)
		}
		origin[t.Name] = doc.ID
		out[t.Name] = t
	}
	return out, nil
}

func trimExtension(id string) string {
	return filepath.ToSlash(strings.TrimSuffix(id, filepath.Ext(id)))
}
