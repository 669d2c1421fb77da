package logic

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

/*
 * Value normalization.
 *
 * Answers often arrive as strings from form submission; normalizing both
 * sides of a comparison lets "25" greater_than 18 behave like
 * 25 greater_than 18 without per-operator special-casing. Applied
 * independently to the actual and expected value before every comparison.
 *
 * Rules:
 *   - nil stays nil
 *   - strings parsing fully as an integer become int64, else float64,
 *     else true/yes/on -> true and false/no/off -> false (case-insensitive),
 *     else unchanged
 *   - json.Number (decimal from rule decoding) becomes int64 or float64
 *   - time.Time becomes its RFC 3339 string form
 *   - lists, maps, booleans and plain numbers pass through unchanged
 *
 * Normalization is unconditional: both sides transform symmetrically, so
 * equality between two leading-zero strings ("02134") is preserved even
 * though each side individually becomes a number.
 */

// Normalize coerces a value to its canonical comparison form.
func Normalize(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return normalizeString(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case float32:
		return float64(v)
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return value
	}
}

func normalizeString(s string) any {
	numeric := strings.TrimSpace(s)
	if numeric != "" {
		if i, err := strconv.ParseInt(numeric, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(numeric, 64); err == nil {
			return f
		}
	}
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	return s
}
