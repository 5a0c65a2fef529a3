package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/ulytau-insight/internal/adapter"
	"github.com/JakeFAU/ulytau-insight/internal/classify"
	"github.com/JakeFAU/ulytau-insight/internal/news"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog lists the sources to poll and the keyword lists that gate them.
type Catalog struct {
	Sources     []news.Source        `yaml:"sources"`
	Keywords    classify.Keywords    `yaml:"keywords"`
	PathFilters []adapter.PathFilter `yaml:"path_filters"`
}

// LoadCatalog reads the catalog at path, or the embedded default when path is empty.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultCatalog)
	}
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Validate requires at least one source, unique URLs and a region keyword list.
func (c Catalog) Validate() error {
	if len(c.Sources) == 0 {
		return errors.New("catalog has no sources")
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for i, src := range c.Sources {
		u := strings.TrimSpace(src.URL)
		if u == "" {
			return fmt.Errorf("catalog source %d (%q) has no url", i, src.Name)
		}
		if src.Kind == "" {
			return fmt.Errorf("catalog source %q has no type", src.Name)
		}
		if _, dup := seen[u]; dup {
			return fmt.Errorf("catalog source url %q listed twice", u)
		}
		seen[u] = struct{}{}
	}
	if len(c.Keywords.Region) == 0 {
		return errors.New("catalog keywords.region is empty")
	}
	return nil
}
