// Package classify infers a deal's category, deal type and restrictions from
// its free text. Each classifier is an ordered table of (predicate, result)
// rules; the first match wins for single-valued tables and every match is
// collected for multi-valued ones.
package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fields holds the folded, lower-cased text fields that rules inspect.
type Fields struct {
	Restaurant  string
	Title       string
	Description string
	Price       string
}

// NewFields folds each input with Fold.
func NewFields(restaurant, title, description, price string) Fields {
	return Fields{
		Restaurant:  Fold(restaurant),
		Title:       Fold(title),
		Description: Fold(description),
		Price:       Fold(price),
	}
}

// content is the title and description joined by a space.
func (f Fields) content() string {
	return f.Title + " " + f.Description
}

// Predicate reports whether a rule applies to f.
type Predicate func(f Fields) bool

// Rule pairs a predicate with the result it yields.
type Rule[T any] struct {
	Name   string
	When   Predicate
	Result T
}

// Table is an ordered list of rules with a fallback result.
type Table[T any] struct {
	rules    []Rule[T]
	fallback T
}

// NewTable builds a table evaluated in the given order.
func NewTable[T any](fallback T, rules ...Rule[T]) Table[T] {
	return Table[T]{rules: rules, fallback: fallback}
}

// First returns the result of the first matching rule, or the fallback.
func (t Table[T]) First(f Fields) T {
	for _, r := range t.rules {
		if r.When(f) {
			return r.Result
		}
	}
	return t.fallback
}

// All returns the results of every matching rule in table order. The result
// is never nil.
func (t Table[T]) All(f Fields) []T {
	out := make([]T, 0, len(t.rules))
	for _, r := range t.rules {
		if r.When(f) {
			out = append(out, r.Result)
		}
	}
	return out
}

// Rules returns a copy of the table's rules in evaluation order.
func (t Table[T]) Rules() []Rule[T] {
	return append([]Rule[T](nil), t.rules...)
}

// Fallback returns the result used when no rule matches.
func (t Table[T]) Fallback() T {
	return t.fallback
}

var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lower-cases s, strips combining accents and normalises curly
// apostrophes so "Café" and "cafe" compare equal.
func Fold(s string) string {
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	folded = strings.NewReplacer("’", "'", "‘", "'").Replace(folded)
	return strings.ToLower(strings.TrimSpace(folded))
}

// Words splits folded text into letter/digit tokens. '%' and '$' are kept
// as part of tokens.
func Words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '%' && r != '$'
	})
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func hasWord(s string, words []string) bool {
	for _, tok := range Words(s) {
		for _, w := range words {
			if tok == w {
				return true
			}
		}
	}
	return false
}

// RestaurantHas matches when the restaurant name contains any needle.
func RestaurantHas(needles ...string) Predicate {
	return func(f Fields) bool { return containsAny(f.Restaurant, needles) }
}

// TitleHas matches when the title contains any needle.
func TitleHas(needles ...string) Predicate {
	return func(f Fields) bool { return containsAny(f.Title, needles) }
}

// TitleWord matches when the title has any of words as a whole token.
func TitleWord(words ...string) Predicate {
	return func(f Fields) bool { return hasWord(f.Title, words) }
}

// PriceHas matches when the price text contains any needle.
func PriceHas(needles ...string) Predicate {
	return func(f Fields) bool { return containsAny(f.Price, needles) }
}

// ContentHas matches when title or description contains any needle.
func ContentHas(needles ...string) Predicate {
	return func(f Fields) bool { return containsAny(f.content(), needles) }
}

// ContentWord matches when title or description has any of words as a whole
// token.
func ContentWord(words ...string) Predicate {
	return func(f Fields) bool { return hasWord(f.content(), words) }
}

// Any matches when at least one predicate does.
func Any(preds ...Predicate) Predicate {
	return func(f Fields) bool {
		for _, p := range preds {
			if p(f) {
				return true
			}
		}
		return false
	}
}

// All matches when every predicate does.
func All(preds ...Predicate) Predicate {
	return func(f Fields) bool {
		for _, p := range preds {
			if !p(f) {
				return false
			}
		}
		return true
	}
}
