package logic

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/formkeeper/formkeeper/internal/types"
)

func TestExplain_MatchesEvaluate(t *testing.T) {
	rule := mustParse(t, `{
		"operator": "OR",
		"conditions": [
			{"operator": "AND", "conditions": [
				{"field": "age", "comparison": "greater_than_or_equal", "value": 18},
				{"field": "country", "comparison": "equals", "value": "US"}
			]},
			{"field": "vip", "comparison": "equals", "value": true}
		]
	}`)

	responses := map[string]any{"age": 19, "country": "US", "vip": false}

	want, err := New(responses).Evaluate(rule)
	if err != nil {
		t.Fatal(err)
	}
	explained, err := New(responses).Explain(rule)
	if err != nil {
		t.Fatal(err)
	}
	if explained.Result != want {
		t.Errorf("Explain().Result = %v, Evaluate() = %v; must agree", explained.Result, want)
	}
}

func TestExplain_TraceShape(t *testing.T) {
	rule := mustParse(t, `{
		"operator": "AND",
		"conditions": [
			{"field": "age", "comparison": "greater_than", "value": 18}
		]
	}`)

	explained, err := New(map[string]any{"age": "25"}).Explain(rule)
	if err != nil {
		t.Fatal(err)
	}

	root := explained.Explanation
	if root.Type != "logical" || root.Operator != OpAnd {
		t.Errorf("root trace = %+v, want logical AND", root)
	}
	if len(root.Conditions) != 1 {
		t.Fatalf("root has %d child traces, want 1", len(root.Conditions))
	}

	leaf := root.Conditions[0]
	if leaf.Type != "comparison" || leaf.Field != "age" || leaf.Comparison != "greater_than" {
		t.Errorf("leaf trace = %+v, want comparison on age", leaf)
	}
	// The trace carries the resolved answer as submitted, before normalization.
	if leaf.Actual != "25" {
		t.Errorf("leaf.Actual = %v, want raw submitted value %q", leaf.Actual, "25")
	}
	if !leaf.Result || !root.Result {
		t.Errorf("trace results = leaf:%v root:%v, want both true", leaf.Result, root.Result)
	}
}

func TestExplain_EmptyConnectives(t *testing.T) {
	explained, err := New(nil).Explain(mustParse(t, `{"operator": "AND", "conditions": []}`))
	if err != nil {
		t.Fatal(err)
	}
	if !explained.Result {
		t.Error("empty AND explanation result = false, want true")
	}

	explained, err = New(nil).Explain(mustParse(t, `{"operator": "OR", "conditions": []}`))
	if err != nil {
		t.Fatal(err)
	}
	if explained.Result {
		t.Error("empty OR explanation result = true, want false")
	}
}

func TestExplain_NOTArityConsistentWithEvaluate(t *testing.T) {
	// Evaluate and Explain share one policy: NOT with arity != 1 is invalid.
	rule := mustParse(t, `{"operator": "NOT", "conditions": []}`)

	_, err := New(nil).Explain(rule)
	if err == nil {
		t.Fatal("Explain(NOT []) error = nil, want InvalidLogic")
	}
	if !errors.Is(err, types.ErrInvalidLogic) {
		t.Errorf("error = %v, want wrapped ErrInvalidLogic", err)
	}
}

func TestExplain_DefaultComparisonName(t *testing.T) {
	rule := mustParse(t, `{"field": "color", "value": "blue"}`)
	explained, err := New(map[string]any{"color": "blue"}).Explain(rule)
	if err != nil {
		t.Fatal(err)
	}
	if explained.Explanation.Comparison != CmpEquals {
		t.Errorf("omitted comparison reported as %q, want %q", explained.Explanation.Comparison, CmpEquals)
	}
}

// Property: Explain agrees with Evaluate over random small trees.
func TestProperty_ExplainAgreesWithEvaluate(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("Explain.Result == Evaluate", prop.ForAll(
		func(age int, wantCountry bool, negate bool) bool {
			country := "UK"
			if wantCountry {
				country = "US"
			}
			var rule *Node = And(
				Field("age").GreaterThanOrEqual(18),
				Field("country").Equals("US"),
			)
			if negate {
				rule = Not(rule)
			}
			responses := map[string]any{"age": age, "country": country}

			direct, err1 := New(responses).Evaluate(rule)
			explained, err2 := New(responses).Explain(rule)
			return err1 == nil && err2 == nil && explained.Result == direct
		},
		gen.IntRange(10, 30),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
