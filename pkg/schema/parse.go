package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mathieusouflis/turing/pkg/domain"
)

// Unmarshal decodes a JSON or YAML document into a record.
// ext selects the format (".json", ".yaml", ".yml"); anything else is tried as YAML,
// which also accepts JSON.
func Unmarshal(data []byte, ext string) (map[string]any, error) {
	var rec map[string]any
	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDefinition, err)
		}
	default:
		if err := yaml.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDefinition, err)
		}
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: empty document", domain.ErrInvalidDefinition)
	}
	return rec, nil
}

// ParseDefinition decodes and validates a definition file.
func ParseDefinition(data []byte, ext string) (domain.Definition, error) {
	rec, err := Unmarshal(data, ext)
	if err != nil {
		return domain.Definition{}, err
	}
	def, err := DecodeRecord(rec)
	if err != nil {
		return domain.Definition{}, err
	}
	if err := Validate(def); err != nil {
		return domain.Definition{}, err
	}
	return def, nil
}

// TemplateFromRecord builds a validated template from a record.
// The template is named after the record's "name" key, or fallback when absent.
func TemplateFromRecord(rec map[string]any, fallback string) (*domain.Template, error) {
	def, err := DecodeRecord(rec)
	if err != nil {
		return nil, err
	}
	if err := Validate(def); err != nil {
		return nil, err
	}

	t := &domain.Template{Name: fallback, Definition: def}
	if name, ok := rec["name"].(string); ok && name != "" {
		t.Name = name
	}
	if desc, ok := rec["description"].(string); ok {
		t.Description = strings.TrimSpace(desc)
	}
	return t, nil
}

// ParseTemplateFile decodes a template file, naming it after the file when it has no name.
func ParseTemplateFile(path string, data []byte) (*domain.Template, error) {
	ext := filepath.Ext(path)
	rec, err := Unmarshal(data, ext)
	if err != nil {
		return nil, err
	}
	return TemplateFromRecord(rec, strings.TrimSuffix(filepath.Base(path), ext))
}
