// Package sector provides the sector/state catalog used for reference-point
// fallback when the backend response carries no coordinates.
package sector

import (
	_ "embed"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed sectors.yaml
var embeddedCatalog []byte

// Entry is one catalog row.
type Entry struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

// Catalog maps normalized sector/state names to centroids.
type Catalog struct {
	entries map[string]Entry
	titler  cases.Caser
}

type catalogFile struct {
	Sectors []Entry `yaml:"sectors"`
}

// Load returns the embedded catalog, optionally overlaid with entries from
// a user-supplied YAML file.
func Load(overridePath string) (*Catalog, error) {
	c := &Catalog{
		entries: make(map[string]Entry),
		titler:  cases.Title(language.English),
	}

	if err := c.merge(embeddedCatalog); err != nil {
		return nil, eris.Wrap(err, "sector: parse embedded catalog")
	}

	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, eris.Wrapf(err, "sector: read catalog %s", overridePath)
		}
		if err := c.merge(data); err != nil {
			return nil, eris.Wrapf(err, "sector: parse catalog %s", overridePath)
		}
	}

	return c, nil
}

func (c *Catalog) merge(data []byte) error {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}
	for _, e := range file.Sectors {
		c.entries[normalize(e.Name)] = e
	}
	return nil
}

// Lookup finds a catalog entry by name, case-insensitively.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	e, ok := c.entries[normalize(name)]
	return e, ok
}

// DisplayName returns the canonical title-cased form of a sector name.
func (c *Catalog) DisplayName(name string) string {
	if e, ok := c.Lookup(name); ok {
		return e.Name
	}
	return c.titler.String(strings.TrimSpace(name))
}

// Names lists the catalog entries in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
