package logic

import (
	"encoding/json"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

/*
 * Comparison operator registry.
 *
 * A closed table of named, pure functions over two normalized values.
 * New operators require a code change here; rule authors can never supply
 * code. Each function is total: type mismatches yield false, never an
 * error, so one malformed leaf cannot abort evaluation of a whole tree.
 *
 * Operators:
 *   - equals/not_equals: Equality with numeric tolerance across int/float
 *   - greater_than/less_than (+_or_equal): Ordered comparison, false on null
 *   - contains/not_contains, starts_with/ends_with: Substring tests on str()
 *   - in/not_in: Membership against a list value
 *   - is_empty/is_not_empty: Null, "", empty list/map; 0 and false are non-empty
 *   - matches_regex: Anchored-at-start match of expected pattern
 *   - between: Inclusive [lo, hi] pair test
 *
 * Why function-based: a registry map keeps dispatch out of the evaluator
 * and lets each operator be unit-tested in isolation.
 */

// CompareFunc applies one comparison to normalized (actual, expected) values.
type CompareFunc func(actual, expected any) bool

// Comparison operator names as persisted in rule JSON.
const (
	CmpEquals             = "equals"
	CmpNotEquals          = "not_equals"
	CmpGreaterThan        = "greater_than"
	CmpLessThan           = "less_than"
	CmpGreaterThanOrEqual = "greater_than_or_equal"
	CmpLessThanOrEqual    = "less_than_or_equal"
	CmpContains           = "contains"
	CmpNotContains        = "not_contains"
	CmpStartsWith         = "starts_with"
	CmpEndsWith           = "ends_with"
	CmpIn                 = "in"
	CmpNotIn              = "not_in"
	CmpIsEmpty            = "is_empty"
	CmpIsNotEmpty         = "is_not_empty"
	CmpMatchesRegex       = "matches_regex"
	CmpBetween            = "between"
)

var comparisons = map[string]CompareFunc{
	CmpEquals:    compareEqual,
	CmpNotEquals: func(a, b any) bool { return !compareEqual(a, b) },
	CmpGreaterThan: func(a, b any) bool {
		c, ok := compareOrder(a, b)
		return ok && c > 0
	},
	CmpLessThan: func(a, b any) bool {
		c, ok := compareOrder(a, b)
		return ok && c < 0
	},
	CmpGreaterThanOrEqual: func(a, b any) bool {
		c, ok := compareOrder(a, b)
		return ok && c >= 0
	},
	CmpLessThanOrEqual: func(a, b any) bool {
		c, ok := compareOrder(a, b)
		return ok && c <= 0
	},
	CmpContains:     compareContains,
	CmpNotContains:  func(a, b any) bool { return !compareContains(a, b) },
	CmpStartsWith:   compareStartsWith,
	CmpEndsWith:     compareEndsWith,
	CmpIn:           compareIn,
	CmpNotIn:        func(a, b any) bool { return !compareIn(a, b) },
	CmpIsEmpty:      func(a, _ any) bool { return isEmptyValue(a) },
	CmpIsNotEmpty:   func(a, _ any) bool { return !isEmptyValue(a) },
	CmpMatchesRegex: compareRegex,
	CmpBetween:      compareBetween,
}

// valueOptional holds the operators whose 'value' key is ignored.
var valueOptional = map[string]bool{
	CmpIsEmpty:    true,
	CmpIsNotEmpty: true,
}

// ComparisonNames returns the registry's operator names, sorted.
// Used by validation messages and the API's operator discovery endpoint.
func ComparisonNames() []string {
	names := make([]string, 0, len(comparisons))
	for name := range comparisons {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// compareEqual performs equality with numeric type mixing: 25, 25.0 and a
// normalized "25" all compare equal. Non-scalar values (lists from
// multi-select answers) fall back to deep equality.
func compareEqual(a, b any) bool {
	if na, nb, ok := asNumbers(a, b); ok {
		return na == nb
	}
	return reflect.DeepEqual(a, b)
}

// compareOrder performs three-way ordered comparison.
// Numbers compare numerically, strings lexicographically; anything else,
// including a null on either side, is unordered.
func compareOrder(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if na, nb, ok := asNumbers(a, b); ok {
		switch {
		case na < nb:
			return -1, true
		case na > nb:
			return 1, true
		default:
			return 0, true
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func compareContains(a, b any) bool {
	if a == nil {
		return false
	}
	sub, ok := b.(string)
	if !ok {
		return false
	}
	return strings.Contains(stringify(a), sub)
}

func compareStartsWith(a, b any) bool {
	if a == nil {
		return false
	}
	return strings.HasPrefix(stringify(a), stringify(b))
}

func compareEndsWith(a, b any) bool {
	if a == nil {
		return false
	}
	return strings.HasSuffix(stringify(a), stringify(b))
}

// compareIn checks membership of actual in the expected list using
// compareEqual semantics. Non-list expected values yield false.
func compareIn(a, b any) bool {
	list, ok := b.([]any)
	if !ok {
		return false
	}
	for _, elem := range list {
		if compareEqual(a, elem) {
			return true
		}
	}
	return false
}

// isEmptyValue treats null, "", empty list and empty map as empty.
// 0 and false are answers, not absence, so they count as non-empty.
func isEmptyValue(a any) bool {
	switch v := a.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

// compareRegex tests whether the expected pattern matches str(actual)
// starting at the beginning of the string. The pattern is compiled per
// call; an invalid pattern yields false rather than an error.
func compareRegex(a, b any) bool {
	if a == nil {
		return false
	}
	re, err := regexp.Compile(stringify(b))
	if err != nil {
		return false
	}
	loc := re.FindStringIndex(stringify(a))
	return loc != nil && loc[0] == 0
}

// compareBetween tests lo <= actual <= hi against a 2-element [lo, hi]
// pair, inclusive on both ends. Any other expected shape yields false.
func compareBetween(a, b any) bool {
	pair, ok := b.([]any)
	if !ok || len(pair) != 2 {
		return false
	}
	lower, ok := compareOrder(a, pair[0])
	if !ok || lower < 0 {
		return false
	}
	upper, ok := compareOrder(a, pair[1])
	return ok && upper <= 0
}

// asNumbers attempts to convert both values to float64 for numeric comparison.
func asNumbers(a, b any) (float64, float64, bool) {
	na, oka := toFloat64(a)
	nb, okb := toFloat64(b)
	return na, nb, oka && okb
}

// toFloat64 converts numeric types to float64. Handles int/int64/float64
// from callers and json.Number from rule decoding.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// stringify renders a value the way substring and prefix operators see it.
// Null renders as the empty string.
func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		if s {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(s, 10)
	case int:
		return strconv.Itoa(s)
	case json.Number:
		return s.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
