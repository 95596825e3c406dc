package brand

import (
	"math"
	"strings"

	"github.com/sells-group/cheapeats/internal/classify"
)

// fillerWords are dropped before the second containment check.
var fillerWords = map[string]bool{
	"the": true, "and": true, "&": true, "restaurant": true,
	"food": true, "drive": true, "in": true, "out": true,
}

// minPartial is the shortest string allowed to match by containment.
const minPartial = 3

// Score rates how well input names target on a 0-100 scale:
//
//	100  identical after folding
//	 90  one contains the other
//	 80  one contains the other once filler words are removed
//	0-70 share of words that overlap, scaled to 70
func Score(input, target string) int {
	input, target = classify.Fold(input), classify.Fold(target)
	if input == "" || target == "" {
		return 0
	}
	if input == target {
		return 100
	}
	if containsEither(input, target) {
		return 90
	}

	cleanInput, cleanTarget := stripFiller(input), stripFiller(target)
	if containsEither(cleanInput, cleanTarget) {
		return 80
	}

	inputWords, targetWords := significant(cleanInput), significant(cleanTarget)
	if len(inputWords) == 0 || len(targetWords) == 0 {
		return 0
	}
	matches := 0
	for _, w := range inputWords {
		for _, tw := range targetWords {
			if w == tw || containsEither(w, tw) {
				matches++
				break
			}
		}
	}
	if matches == 0 {
		return 0
	}
	ratio := float64(matches) / float64(max(len(inputWords), len(targetWords)))
	return int(math.Floor(ratio * 70))
}

func containsEither(a, b string) bool {
	if len(a) < minPartial || len(b) < minPartial {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// significant drops single-character words such as the "n" in "in n out".
func significant(s string) []string {
	var out []string
	for _, w := range strings.Fields(s) {
		if len(w) > 1 {
			out = append(out, w)
		}
	}
	return out
}

func stripFiller(s string) string {
	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if !fillerWords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}
