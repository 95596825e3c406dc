package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Origin identifies where a batch of candidates came from.
type Origin string

const (
	// OriginStore marks persisted, human-curated records (spreadsheet or database).
	OriginStore Origin = "store"
	// OriginGenerated marks records produced by the text-generation backend.
	OriginGenerated Origin = "generated"
)

// Candidate is a raw, loosely typed deal record prior to normalization. Keys
// follow the JSON field names of Deal.
type Candidate map[string]any

// String returns the trimmed string value for key, or "" when absent. Numbers
// and booleans are formatted.
func (c Candidate) String(key string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Float returns the numeric value for key. ok is false when the key is absent,
// empty, non-numeric or not finite.
func (c Candidate) Float(key string) (float64, bool) {
	v, present := c[key]
	if !present || v == nil {
		return 0, false
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Bool interprets key as a boolean. Strings are accepted when they spell
// "true" (case-insensitive); anything else is false.
func (c Candidate) Bool(key string) bool {
	switch t := c[key].(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true")
	default:
		return false
	}
}

// Has reports whether key carries a non-empty value.
func (c Candidate) Has(key string) bool {
	return c.String(key) != ""
}
