package generate

import (
	_ "embed"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/cheapeats/internal/classify"
	"github.com/sells-group/cheapeats/internal/model"
	"github.com/sells-group/cheapeats/internal/price"
)

//go:embed templates.yaml
var templatesYAML []byte

// maxVariations bounds the extra passes Fallback makes over the templates.
const maxVariations = 3

// Template is one chain's canned deals.
type Template struct {
	Chain string         `yaml:"chain"`
	URL   string         `yaml:"url"`
	Deals []TemplateDeal `yaml:"deals"`
}

// TemplateDeal is a canned deal. Original may be blank.
type TemplateDeal struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	Original    string `yaml:"original"`
}

// ParseTemplates decodes a YAML template list.
func ParseTemplates(data []byte) ([]Template, error) {
	var out []Template
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "generate: parse templates")
	}
	for i, t := range out {
		if t.Chain == "" {
			return nil, eris.Errorf("generate: template %d has no chain", i)
		}
	}
	return out, nil
}

var (
	defaultOnce      sync.Once
	defaultTemplates []Template
)

// DefaultTemplates returns the embedded templates.
func DefaultTemplates() []Template {
	defaultOnce.Do(func() {
		t, err := ParseTemplates(templatesYAML)
		if err != nil {
			panic(err)
		}
		defaultTemplates = t
	})
	return defaultTemplates
}

// Fallback builds up to count candidates from templates: every template deal
// once, then reworded passes until count is reached or the variation passes
// run out. With fewer templates than count the result is simply shorter.
func Fallback(templates []Template, count int) []model.Candidate {
	var out []model.Candidate
	for _, t := range templates {
		for _, d := range t.Deals {
			out = append(out, templateCandidate(t, d.Title, d.Description, d.Price, d.Original))
		}
	}

	for v := 1; len(out) < count && v <= maxVariations; v++ {
		for _, t := range templates {
			for _, d := range t.Deals {
				if len(out) >= count {
					break
				}
				original := ""
				if d.Original != "" {
					original = varyPrice(d.Original, v)
				}
				out = append(out, templateCandidate(t,
					varyTitle(d.Title, v),
					varyDescription(d.Description, v),
					varyPrice(d.Price, v),
					original,
				))
			}
		}
	}

	if count >= 0 && len(out) > count {
		out = out[:count]
	}
	return out
}

func templateCandidate(t Template, title, description, dealPrice, original string) model.Candidate {
	c := model.Candidate{
		"restaurantName": t.Chain,
		"title":          title,
		"description":    description,
		"dealPrice":      dealPrice,
		"category":       string(classify.Category(t.Chain)),
		"sourceUrl":      t.URL,
	}
	if original != "" {
		c["originalPrice"] = original
	}
	return c
}

var (
	titleWords = [][]string{
		{"Deal", "Special", "Offer", "Promotion"},
		{"Limited Time", "Today Only", "Weekend", "Daily"},
		{"Save Big", "Best Value", "Hot Deal", "Flash Sale"},
	}
	descriptionPrefixes = []string{"", "Limited time: ", "Exclusive: ", "Best deal: "}
	descriptionSuffixes = []string{"", " - while supplies last", " - app only", " - dine-in or takeout"}
	priceOffsets        = []float64{0, -0.5, 0.5, -1.0, 1.0}
)

func varyTitle(title string, v int) string {
	switch v {
	case 1:
		return strings.Replace(title, "Deal", titleWords[0][1], 1)
	case 2:
		return titleWords[1][v%len(titleWords[1])] + " " + title
	default:
		return titleWords[2][v%len(titleWords[2])] + " - " + title
	}
}

func varyDescription(desc string, v int) string {
	return descriptionPrefixes[v%len(descriptionPrefixes)] + desc + descriptionSuffixes[v%len(descriptionSuffixes)]
}

// varyPrice nudges a dollar price, never below $0.99. Prices without a dollar
// amount are returned unchanged.
func varyPrice(p string, v int) string {
	if !strings.Contains(p, "$") || !strings.ContainsAny(p, "0123456789") {
		return p
	}
	amount := math.Max(0.99, price.Parse(p)+priceOffsets[v%len(priceOffsets)])
	return fmt.Sprintf("$%.2f", amount)
}
