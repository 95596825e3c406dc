// Package brand resolves free-form restaurant names to known fast food
// chains for brand colours, logos and official deals pages.
package brand

import (
	_ "embed"
	"net/url"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/cheapeats/internal/classify"
)

// DefaultColor is used for restaurants that match no known chain.
const DefaultColor = "#6B7280"

// MinScore is the score a match must exceed to be accepted.
const MinScore = 60

//go:embed brands.yaml
var brandsYAML []byte

// Brand describes one chain.
type Brand struct {
	Name     string   `yaml:"name" json:"name"`
	Color    string   `yaml:"color" json:"color"`
	Logo     string   `yaml:"logo" json:"logo,omitempty"`
	DealsURL string   `yaml:"deals_url" json:"dealsUrl,omitempty"`
	Aliases  []string `yaml:"aliases" json:"-"`
}

// Catalog is an ordered set of brands. Earlier entries win score ties.
type Catalog struct {
	brands []Brand
}

// Parse decodes a YAML brand list.
func Parse(data []byte) (*Catalog, error) {
	var brands []Brand
	if err := yaml.Unmarshal(data, &brands); err != nil {
		return nil, eris.Wrap(err, "brand: parse catalog")
	}
	for i, b := range brands {
		if b.Name == "" {
			return nil, eris.Errorf("brand: entry %d has no name", i)
		}
		if len(b.Aliases) == 0 {
			brands[i].Aliases = []string{b.Name}
		}
	}
	return &Catalog{brands: brands}, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalog.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(brandsYAML)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Brands returns a copy of the catalog entries.
func (c *Catalog) Brands() []Brand {
	return append([]Brand(nil), c.brands...)
}

// Match finds the best scoring brand for name. ok is false when no alias
// scores above MinScore.
func (c *Catalog) Match(name string) (b Brand, score int, ok bool) {
	input := classify.Fold(name)
	if input == "" {
		return Brand{}, 0, false
	}
	best := -1
	for i, br := range c.brands {
		for _, alias := range br.Aliases {
			s := Score(input, alias)
			if s > score && s > MinScore {
				score = s
				best = i
			}
		}
	}
	if best < 0 {
		return Brand{}, 0, false
	}
	return c.brands[best], score, true
}

// Color returns the brand colour for name, or DefaultColor.
func (c *Catalog) Color(name string) string {
	if b, _, ok := c.Match(name); ok && b.Color != "" {
		return b.Color
	}
	return DefaultColor
}

// DealsURL returns the chain's official deals page, or a web search for the
// restaurant's deals when the chain is unknown.
func (c *Catalog) DealsURL(name string) string {
	if b, _, ok := c.Match(name); ok && b.DealsURL != "" {
		return b.DealsURL
	}
	return SearchURL(name)
}

// SearchURL is a web search link for "<name> deals".
func SearchURL(name string) string {
	return "https://www.google.com/search?q=" + url.QueryEscape(strings.TrimSpace(name)+" deals")
}
