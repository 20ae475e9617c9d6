// Package instructions assembles the guidance text sent with every remote
// transcription call from a YAML catalogue.
package instructions

import (
	_ "embed"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/amrsdek/MedMate-App/internal/model"
)

//go:embed prompts.yaml
var defaultCatalog []byte

// Catalog holds the instruction fragments.
type Catalog struct {
	Base        string                   `yaml:"base"`
	Handwritten string                   `yaml:"handwritten"`
	Categories  map[string]CategoryEntry `yaml:"categories"`
}

// CategoryEntry is the content-specific addendum for one category.
type CategoryEntry struct {
	Label string `yaml:"label"`
	Text  string `yaml:"text"`
}

// Parse decodes a catalogue document with a top-level "prompts" key.
func Parse(data []byte) (*Catalog, error) {
	var wrapper struct {
		Prompts Catalog `yaml:"prompts"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "instructions: parse catalog")
	}
	c := &wrapper.Prompts
	if strings.TrimSpace(c.Base) == "" {
		return nil, eris.New("instructions: catalog has no base prompt")
	}
	if len(c.Categories) == 0 {
		return nil, eris.New("instructions: catalog has no categories")
	}
	return c, nil
}

// LoadFile reads a catalogue from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "instructions: read catalog %s", path)
	}
	return Parse(data)
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalogue.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Parse(defaultCatalog)
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultCat
}

// ParseCategory validates a user-supplied category name against the catalogue.
func (c *Catalog) ParseCategory(s string) (model.Category, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if _, ok := c.Categories[key]; !ok {
		return "", eris.Errorf("instructions: unknown category %q (want one of %s)", s, strings.Join(c.CategoryNames(), ", "))
	}
	return model.Category(key), nil
}

// CategoryNames lists the known categories in sorted order.
func (c *Catalog) CategoryNames() []string {
	names := make([]string, 0, len(c.Categories))
	for k := range c.Categories {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Label returns the display label of a category.
func (c *Catalog) Label(cat model.Category) string {
	if e, ok := c.Categories[string(cat)]; ok && e.Label != "" {
		return e.Label
	}
	return string(cat)
}

// Build assembles the instructions: base rules, then the handwriting
// addendum if requested, then the category addendum.
func (c *Catalog) Build(cat model.Category, handwritten bool) model.Instructions {
	parts := []string{strings.TrimSpace(c.Base)}
	if handwritten && c.Handwritten != "" {
		parts = append(parts, strings.TrimSpace(c.Handwritten))
	}
	if e, ok := c.Categories[string(cat)]; ok {
		parts = append(parts, strings.TrimSpace(e.Text))
	}
	return model.Instructions{
		Category:    cat,
		Handwritten: handwritten,
		Text:        strings.Join(parts, "\n\n"),
	}
}
