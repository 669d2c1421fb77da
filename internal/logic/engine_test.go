package logic

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/formkeeper/formkeeper/internal/types"
)

func mustParse(t *testing.T, src string) *Node {
	t.Helper()
	rule, err := ParseRule([]byte(src))
	if err != nil {
		t.Fatalf("ParseRule(%s) error = %v, want nil", src, err)
	}
	return rule
}

func TestEvaluate_EmptyAND(t *testing.T) {
	rule := mustParse(t, `{"operator": "AND", "conditions": []}`)
	got, err := New(nil).Evaluate(rule)
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if !got {
		t.Errorf("empty AND = false, want true (identity element)")
	}
}

func TestEvaluate_EmptyOR(t *testing.T) {
	rule := mustParse(t, `{"operator": "OR", "conditions": []}`)
	got, err := New(nil).Evaluate(rule)
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if got {
		t.Errorf("empty OR = true, want false")
	}
}

func TestEvaluate_CaseInsensitiveOperator(t *testing.T) {
	rule := mustParse(t, `{"operator": "and", "conditions": [{"field": "x", "comparison": "equals", "value": 1}]}`)
	got, err := New(map[string]any{"x": 1}).Evaluate(rule)
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if !got {
		t.Errorf("lower-case 'and' not treated as logical operator")
	}
}

func TestEvaluate_NOTArity(t *testing.T) {
	tests := []struct {
		name    string
		rule    string
		wantErr bool
		want    bool
	}{
		{
			name: "exactly one condition negates",
			rule: `{"operator": "NOT", "conditions": [{"field": "x", "comparison": "equals", "value": "a"}]}`,
			want: true,
		},
		{
			name:    "zero conditions invalid",
			rule:    `{"operator": "NOT", "conditions": []}`,
			wantErr: true,
		},
		{
			name: "two conditions invalid",
			rule: `{"operator": "NOT", "conditions": [
				{"field": "x", "comparison": "is_empty"},
				{"field": "y", "comparison": "is_empty"}
			]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := mustParse(t, tt.rule)
			got, err := New(map[string]any{"x": "b"}).Evaluate(rule)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Evaluate() error = nil, want InvalidLogic")
				}
				if !errors.Is(err, types.ErrInvalidLogic) {
					t.Errorf("error = %v, want wrapped ErrInvalidLogic", err)
				}
				var evalErr *EvaluationError
				if !errors.As(err, &evalErr) {
					t.Errorf("error = %T, want *EvaluationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Evaluate() error = %v, want nil", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_MissingFieldNeverErrors(t *testing.T) {
	rule := mustParse(t, `{"field": "missing", "comparison": "equals", "value": "x"}`)
	got, err := New(map[string]any{}).Evaluate(rule)
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil (missing data is not an error)", err)
	}
	if got {
		t.Errorf("missing field equals = true, want false")
	}
}

func TestEvaluate_TypeCoercion(t *testing.T) {
	rule := mustParse(t, `{"field": "age", "comparison": "greater_than", "value": 18}`)
	got, err := New(map[string]any{"age": "25"}).Evaluate(rule)
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if !got {
		t.Errorf(`"25" greater_than 18 = false, want true (string coerced to number)`)
	}
}

func TestEvaluate_BetweenInclusive(t *testing.T) {
	rule := mustParse(t, `{"field": "age", "comparison": "between", "value": [18, 65]}`)

	tests := []struct {
		age  any
		want bool
	}{
		{17, false},
		{18, true},
		{40, true},
		{65, true},
		{66, false},
		{"18", true}, // string answer coerces
	}

	for _, tt := range tests {
		got, err := New(map[string]any{"age": tt.age}).Evaluate(rule)
		if err != nil {
			t.Fatalf("Evaluate(age=%v) error = %v, want nil", tt.age, err)
		}
		if got != tt.want {
			t.Errorf("between [18,65] with age=%v = %v, want %v", tt.age, got, tt.want)
		}
	}
}

func TestEvaluate_NestedLogic(t *testing.T) {
	// (age >= 18 AND country == "US") OR (age >= 21 AND country == "UK")
	rule := mustParse(t, `{
		"operator": "OR",
		"conditions": [
			{"operator": "AND", "conditions": [
				{"field": "age", "comparison": "greater_than_or_equal", "value": 18},
				{"field": "country", "comparison": "equals", "value": "US"}
			]},
			{"operator": "AND", "conditions": [
				{"field": "age", "comparison": "greater_than_or_equal", "value": 21},
				{"field": "country", "comparison": "equals", "value": "UK"}
			]}
		]
	}`)

	tests := []struct {
		age     int
		country string
		want    bool
	}{
		{19, "US", true},
		{19, "UK", false},
		{22, "UK", true},
		{17, "US", false},
	}

	for _, tt := range tests {
		responses := map[string]any{"age": tt.age, "country": tt.country}
		got, err := New(responses).Evaluate(rule)
		if err != nil {
			t.Fatalf("Evaluate(%v) error = %v, want nil", responses, err)
		}
		if got != tt.want {
			t.Errorf("age=%d country=%s = %v, want %v", tt.age, tt.country, got, tt.want)
		}
	}
}

func TestEvaluate_UnknownComparison(t *testing.T) {
	rule := mustParse(t, `{"field": "age", "comparison": "nonexistent_op", "value": 1}`)
	_, err := New(nil).Evaluate(rule)
	if err == nil {
		t.Fatal("Evaluate() error = nil, want InvalidLogic")
	}
	if !errors.Is(err, types.ErrUnknownComparison) {
		t.Errorf("error = %v, want wrapped ErrUnknownComparison", err)
	}
	if !errors.Is(err, types.ErrInvalidLogic) {
		t.Errorf("error = %v, want wrapped ErrInvalidLogic", err)
	}
}

func TestEvaluate_NumericFieldReference(t *testing.T) {
	// Field references arrive as strings or integers; both resolve against
	// string keys in the response map.
	rule := mustParse(t, `{"field": 123, "comparison": "equals", "value": "yes"}`)
	got, err := New(map[string]any{"123": "yes"}).Evaluate(rule)
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if !got {
		t.Errorf("integer field reference did not resolve against string key")
	}
}

func TestEvaluate_PayloadStringsAreData(t *testing.T) {
	// Strings that look like code are compared as plain strings, never executed.
	payloads := []string{
		`__import__('os').system('rm -rf /')`,
		`$(cat /etc/passwd)`,
		`{{7*7}}`,
		`'; DROP TABLE surveys; --`,
	}

	for _, payload := range payloads {
		rule := &Node{
			Kind:       KindComparison,
			Field:      "f",
			FieldSet:   true,
			Comparison: CmpEquals,
			Value:      payload,
			HasValue:   true,
		}
		got, err := New(map[string]any{"f": "other"}).Evaluate(rule)
		if err != nil {
			t.Fatalf("Evaluate(%q) error = %v, want nil", payload, err)
		}
		if got {
			t.Errorf("Evaluate(%q) = true, want false (plain string comparison)", payload)
		}
	}
}

func TestEvaluate_DefaultComparisonIsEquals(t *testing.T) {
	rule := mustParse(t, `{"field": "color", "value": "blue"}`)
	got, err := New(map[string]any{"color": "blue"}).Evaluate(rule)
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if !got {
		t.Errorf("omitted comparison did not default to equals")
	}
}

func TestEvaluate_DepthCap(t *testing.T) {
	// Build a NOT chain deeper than the cap from a maliciously deep
	// persisted rule.
	leaf := Field("x").IsEmpty()
	rule := leaf
	for i := 0; i < types.MaxLogicDepth+1; i++ {
		rule = Not(rule)
	}

	_, err := New(nil).Evaluate(rule)
	if err == nil {
		t.Fatal("Evaluate() error = nil, want depth failure")
	}
	if !errors.Is(err, types.ErrLogicTooDeep) {
		t.Errorf("error = %v, want wrapped ErrLogicTooDeep", err)
	}
	if !errors.Is(err, types.ErrInvalidLogic) {
		t.Errorf("error = %v, want wrapped ErrInvalidLogic", err)
	}
}

func TestEvaluate_NilNode(t *testing.T) {
	_, err := New(nil).Evaluate(nil)
	if err == nil {
		t.Fatal("Evaluate(nil) error = nil, want InvalidLogic")
	}
	if !errors.Is(err, types.ErrInvalidLogic) {
		t.Errorf("error = %v, want wrapped ErrInvalidLogic", err)
	}
}

func TestEvaluate_FieldCacheScopedToInstance(t *testing.T) {
	rule := mustParse(t, `{"field": "x", "comparison": "equals", "value": "a"}`)

	first, err := New(map[string]any{"x": "a"}).Evaluate(rule)
	if err != nil {
		t.Fatal(err)
	}
	second, err := New(map[string]any{"x": "b"}).Evaluate(rule)
	if err != nil {
		t.Fatal(err)
	}
	if !first || second {
		t.Errorf("fresh instances must not share cached field values: first=%v second=%v", first, second)
	}
}

// Property: NOT inverts its child for arbitrary leaf comparisons.
func TestProperty_NotNegation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("NOT(c) == !c for arbitrary equals leaves", prop.ForAll(
		func(answer int, expected int) bool {
			responses := map[string]any{"f": answer}
			leaf := Field("f").Equals(expected)

			direct, err1 := New(responses).Evaluate(leaf)
			negated, err2 := New(responses).Evaluate(Not(leaf))
			return err1 == nil && err2 == nil && negated == !direct
		},
		gen.IntRange(0, 5),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}

// Property: AND is conjunction and OR is disjunction over leaf results,
// with the empty-list identities (AND [] == true, OR [] == false).
func TestProperty_ConnectiveSemantics(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	leavesFor := func(outcomes []bool) []*Node {
		conds := make([]*Node, len(outcomes))
		for i, match := range outcomes {
			if match {
				conds[i] = Field("f").Equals(1)
			} else {
				conds[i] = Field("f").Equals(2)
			}
		}
		return conds
	}

	properties.Property("AND == all, OR == any", prop.ForAll(
		func(outcomes []bool) bool {
			responses := map[string]any{"f": 1}

			wantAll := true
			wantAny := false
			for _, match := range outcomes {
				wantAll = wantAll && match
				wantAny = wantAny || match
			}

			andResult, err1 := New(responses).Evaluate(And(leavesFor(outcomes)...))
			orResult, err2 := New(responses).Evaluate(Or(leavesFor(outcomes)...))
			return err1 == nil && err2 == nil && andResult == wantAll && orResult == wantAny
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}

// Property: evaluation never panics for arbitrary string answers against
// every registered operator; malformed pairings degrade to false.
func TestProperty_NoPanicOnArbitraryStrings(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	names := ComparisonNames()

	properties.Property("all operators total over string inputs", prop.ForAll(
		func(answer string, expected string, opIdx int) bool {
			rule := &Node{
				Kind:       KindComparison,
				Field:      "f",
				FieldSet:   true,
				Comparison: names[opIdx%len(names)],
				Value:      expected,
				HasValue:   true,
			}
			_, err := New(map[string]any{"f": answer}).Evaluate(rule)
			return err == nil
		},
		gen.AnyString(),
		gen.AnyString(),
		gen.IntRange(0, len(names)-1),
	))

	properties.TestingRun(t)
}
