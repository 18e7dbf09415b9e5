package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/loomworks/weft/pkg/domain"
	"github.com/loomworks/weft/pkg/template"
)

// TemplateSource reads template definitions from *.yaml files in a
// directory. The file stem is the template name unless the document
// carries its own.
type TemplateSource struct {
	BasePath string
}

// NewTemplateSource creates a source rooted at basePath. If basePath is
// empty, it defaults to ".weft/templates".
func NewTemplateSource(basePath string) *TemplateSource {
	if basePath == "" {
		basePath = filepath.Join(".weft", "templates")
	}
	return &TemplateSource{BasePath: basePath}
}

// List returns every parseable definition in the directory, sorted by name.
func (t *TemplateSource) List(_ context.Context) ([]template.Definition, error) {
	entries, err := os.ReadDir(t.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []template.Definition{}, nil
		}
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	var defs []template.Definition
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		def, err := t.read(filepath.Join(t.BasePath, entry.Name()))
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

// Get returns one definition by name.
func (t *TemplateSource) Get(_ context.Context, name string) (template.Definition, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(t.BasePath, name+ext)
		if _, err := os.Stat(path); err == nil {
			return t.read(path)
		}
	}
	return template.Definition{}, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, name)
}

func (t *TemplateSource) read(path string) (template.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return template.Definition{}, fmt.Errorf("failed to read template file: %w", err)
	}

	var def template.Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return template.Definition{}, fmt.Errorf("failed to parse template %s: %w", filepath.Base(path), err)
	}
	if def.Name == "" {
		base := filepath.Base(path)
		def.Name = base[:len(base)-len(filepath.Ext(base))]
	}
	if err := def.Validate(); err != nil {
		return template.Definition{}, err
	}
	return def, nil
}

func isYAML(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}
