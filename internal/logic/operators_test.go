package logic

import "testing"

// Operator functions receive normalized values; tests call through the
// registry with pre-normalized inputs to pin each operator in isolation.
func TestComparisonOperators(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		actual   any
		expected any
		want     bool
	}{
		// equals / not_equals
		{"equals: same strings", CmpEquals, "yes", "yes", true},
		{"equals: different strings", CmpEquals, "yes", "no", false},
		{"equals: int and float mix", CmpEquals, int64(25), 25.0, true},
		{"equals: both nil", CmpEquals, nil, nil, true},
		{"equals: nil vs value", CmpEquals, nil, "x", false},
		{"equals: lists deep-compare", CmpEquals, []any{"a", "b"}, []any{"a", "b"}, true},
		{"equals: lists differ", CmpEquals, []any{"a"}, []any{"b"}, false},
		{"not_equals: different", CmpNotEquals, "a", "b", true},
		{"not_equals: same numbers", CmpNotEquals, int64(1), 1.0, false},

		// ordered comparisons
		{"greater_than: true", CmpGreaterThan, 25.0, int64(18), true},
		{"greater_than: equal is false", CmpGreaterThan, int64(18), int64(18), false},
		{"greater_than: nil actual", CmpGreaterThan, nil, int64(18), false},
		{"greater_than: nil expected", CmpGreaterThan, int64(18), nil, false},
		{"greater_than: strings lexicographic", CmpGreaterThan, "b", "a", true},
		{"greater_than: incomparable types", CmpGreaterThan, "abc", int64(1), false},
		{"less_than: true", CmpLessThan, int64(17), int64(18), true},
		{"greater_than_or_equal: equal", CmpGreaterThanOrEqual, int64(18), int64(18), true},
		{"less_than_or_equal: above", CmpLessThanOrEqual, int64(19), int64(18), false},

		// substring family
		{"contains: substring", CmpContains, "hello world", "world", true},
		{"contains: missing substring", CmpContains, "hello", "world", false},
		{"contains: nil actual", CmpContains, nil, "x", false},
		{"contains: non-string expected", CmpContains, "123", int64(2), false},
		{"not_contains: missing substring", CmpNotContains, "hello", "world", true},
		{"starts_with: prefix", CmpStartsWith, "formkeeper", "form", true},
		{"starts_with: number actual stringifies", CmpStartsWith, 12345.0, "123", true},
		{"starts_with: nil actual", CmpStartsWith, nil, "x", false},
		{"ends_with: suffix", CmpEndsWith, "report.csv", ".csv", true},
		{"ends_with: wrong suffix", CmpEndsWith, "report.csv", ".pdf", false},

		// membership
		{"in: member", CmpIn, "b", []any{"a", "b", "c"}, true},
		{"in: numeric member with type mix", CmpIn, int64(2), []any{1.0, 2.0}, true},
		{"in: not a member", CmpIn, "d", []any{"a", "b"}, false},
		{"in: expected not a list", CmpIn, "a", "abc", false},
		{"not_in: not a member", CmpNotIn, "d", []any{"a", "b"}, true},
		{"not_in: non-list guard negates to true", CmpNotIn, "a", "abc", true},

		// emptiness
		{"is_empty: nil", CmpIsEmpty, nil, nil, true},
		{"is_empty: empty string", CmpIsEmpty, "", nil, true},
		{"is_empty: empty list", CmpIsEmpty, []any{}, nil, true},
		{"is_empty: empty map", CmpIsEmpty, map[string]any{}, nil, true},
		{"is_empty: zero is not empty", CmpIsEmpty, int64(0), nil, false},
		{"is_empty: false is not empty", CmpIsEmpty, false, nil, false},
		{"is_not_empty: value", CmpIsNotEmpty, "x", nil, true},
		{"is_not_empty: nil", CmpIsNotEmpty, nil, nil, false},

		// regex
		{"matches_regex: anchored match", CmpMatchesRegex, "abc123", `[a-z]+\d+`, true},
		{"matches_regex: match not at start", CmpMatchesRegex, "xx123", `\d+$`, false},
		{"matches_regex: nil actual", CmpMatchesRegex, nil, ".*", false},
		{"matches_regex: invalid pattern", CmpMatchesRegex, "abc", "[", false},

		// between
		{"between: inside", CmpBetween, int64(40), []any{int64(18), int64(65)}, true},
		{"between: lower bound inclusive", CmpBetween, int64(18), []any{int64(18), int64(65)}, true},
		{"between: upper bound inclusive", CmpBetween, int64(65), []any{int64(18), int64(65)}, true},
		{"between: below", CmpBetween, int64(17), []any{int64(18), int64(65)}, false},
		{"between: above", CmpBetween, int64(66), []any{int64(18), int64(65)}, false},
		{"between: nil actual", CmpBetween, nil, []any{int64(1), int64(2)}, false},
		{"between: wrong arity", CmpBetween, int64(5), []any{int64(1)}, false},
		{"between: expected not a list", CmpBetween, int64(5), int64(1), false},
		{"between: string bounds with string actual", CmpBetween, "2024-06-01", []any{"2024-01-01", "2024-12-31"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, ok := comparisons[tt.op]
			if !ok {
				t.Fatalf("operator %q not in registry", tt.op)
			}
			if got := fn(tt.actual, tt.expected); got != tt.want {
				t.Errorf("%s(%v, %v) = %v, want %v", tt.op, tt.actual, tt.expected, got, tt.want)
			}
		})
	}
}

func TestComparisonNames(t *testing.T) {
	names := ComparisonNames()
	if len(names) != len(comparisons) {
		t.Fatalf("ComparisonNames() returned %d names, registry has %d", len(names), len(comparisons))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("names not sorted: %q before %q", names[i-1], names[i])
		}
	}
}

func TestRegistryIsClosed(t *testing.T) {
	if _, ok := comparisons["exec"]; ok {
		t.Error("registry must not contain non-comparison entries")
	}
	if _, ok := comparisons["nonexistent_op"]; ok {
		t.Error("unknown operator resolved unexpectedly")
	}
}
