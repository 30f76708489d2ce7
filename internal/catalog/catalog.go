// Package catalog loads the level lists, lesson sections and topic
// extraction policies the tutor flows are configured with.
package catalog

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/minerva/internal/topics"
)

//go:embed catalog.yaml
var defaultYAML []byte

// Policy names.
const (
	PolicyCurriculum = "curriculum"
	PolicyTeaching   = "teaching"
)

// document is the YAML layout of a catalog file.
type document struct {
	ExperienceLevels []string                     `yaml:"experience_levels"`
	TeachingLevels   []string                     `yaml:"teaching_levels"`
	TeachingSections []string                     `yaml:"teaching_sections"`
	Policies         map[string]topics.PolicySpec `yaml:"policies"`
}

// Catalog is an immutable, validated catalog.
type Catalog struct {
	experienceLevels []string
	teachingLevels   []string
	teachingSections []string
	policies         map[string]topics.Policy
}

// Default returns the built-in catalog. It panics if the embedded document
// is invalid, which the package tests rule out.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded default is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from path. Sections missing from the file keep
// their built-in values. An empty path returns the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", path, err)
	}
	slog.Info("catalog loaded",
		"path", path,
		"teaching_levels", len(c.teachingLevels),
		"policies", len(c.policies),
	)
	return c, nil
}

// Parse decodes data over the built-in catalog.
func Parse(data []byte) (*Catalog, error) {
	var base document
	if err := yaml.Unmarshal(defaultYAML, &base); err != nil {
		return nil, fmt.Errorf("decoding default catalog: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	if len(doc.ExperienceLevels) > 0 {
		base.ExperienceLevels = doc.ExperienceLevels
	}
	if len(doc.TeachingLevels) > 0 {
		base.TeachingLevels = doc.TeachingLevels
	}
	if len(doc.TeachingSections) > 0 {
		base.TeachingSections = doc.TeachingSections
	}
	for name, spec := range doc.Policies {
		base.Policies[strings.ToLower(strings.TrimSpace(name))] = spec
	}

	return build(base)
}

func build(doc document) (*Catalog, error) {
	c := &Catalog{
		experienceLevels: clean(doc.ExperienceLevels),
		teachingLevels:   clean(doc.TeachingLevels),
		teachingSections: clean(doc.TeachingSections),
		policies:         make(map[string]topics.Policy, len(doc.Policies)),
	}
	if len(c.experienceLevels) == 0 {
		return nil, fmt.Errorf("experience_levels must not be empty")
	}
	if len(c.teachingLevels) == 0 {
		return nil, fmt.Errorf("teaching_levels must not be empty")
	}

	for name, spec := range doc.Policies {
		name = strings.ToLower(strings.TrimSpace(name))
		p, err := spec.Compile(name)
		if err != nil {
			return nil, err
		}
		c.policies[name] = p
	}
	for _, required := range []string{PolicyCurriculum, PolicyTeaching} {
		if _, ok := c.policies[required]; !ok {
			return nil, fmt.Errorf("policy %q is required", required)
		}
	}
	return c, nil
}

// ExperienceLevels returns the experience levels in display order.
func (c *Catalog) ExperienceLevels() []string {
	return append([]string(nil), c.experienceLevels...)
}

// TeachingLevels returns the teaching levels in display order.
func (c *Catalog) TeachingLevels() []string {
	return append([]string(nil), c.teachingLevels...)
}

// TeachingSections returns the lesson section titles.
func (c *Catalog) TeachingSections() []string {
	return append([]string(nil), c.teachingSections...)
}

// Policy returns the named extraction policy.
func (c *Catalog) Policy(name string) (topics.Policy, bool) {
	p, ok := c.policies[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

func clean(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
