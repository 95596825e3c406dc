// Package price parses loosely formatted currency strings and derives
// discount percentages from them.
package price

import (
	"math"
	"strconv"
	"strings"
)

// Parse extracts a number from a currency string such as "$6.99". Every
// character other than digits and '.' is discarded and the longest numeric
// prefix of the remainder is parsed. Text with no digits ("Free", "") yields 0.
//
// Mixed phrases are flattened, so "2 for $5" reads as 25.
func Parse(text string) float64 {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	s := numericPrefix(b.String())
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// numericPrefix trims s to digits with at most one decimal point, dropping a
// trailing point.
func numericPrefix(s string) string {
	seenDot := false
	end := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			if seenDot {
				break
			}
			seenDot = true
		}
		end = i + 1
	}
	s = strings.TrimSuffix(s[:end], ".")
	if strings.Trim(s, ".") == "" {
		return ""
	}
	return s
}

// DiscountPercent returns the whole-number percentage saved going from
// original to deal. A zero deal price against a positive original is 100.
// The result is nil when original is not positive; otherwise it is clamped
// to [0, 100].
func DiscountPercent(original, deal float64) *int {
	if math.IsNaN(original) || math.IsNaN(deal) || original <= 0 {
		return nil
	}
	if deal == 0 {
		return intPtr(100)
	}
	pct := int(math.Round((original - deal) / original * 100))
	return intPtr(min(max(pct, 0), 100))
}

// Discount parses both strings and applies DiscountPercent. It is nil unless
// both strings are non-blank and the original is at least the deal price.
func Discount(original, deal string) *int {
	if strings.TrimSpace(original) == "" || strings.TrimSpace(deal) == "" {
		return nil
	}
	o, d := Parse(original), Parse(deal)
	if o < d {
		return nil
	}
	return DiscountPercent(o, d)
}

func intPtr(v int) *int {
	return &v
}
