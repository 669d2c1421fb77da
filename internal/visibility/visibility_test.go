package visibility

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formkeeper/formkeeper/internal/logic"
	"github.com/formkeeper/formkeeper/internal/types"
)

func condition(t *testing.T, rule *logic.Node) types.RawJSON {
	t.Helper()
	data, err := json.Marshal(rule)
	require.NoError(t, err)
	return data
}

func surveyFixture(t *testing.T) ([]types.Field, []types.LogicRule) {
	t.Helper()

	fields := []types.Field{
		{ID: "has_pet", Required: true},
		{ID: "pet_name"},
		{ID: "pet_age"},
		{ID: "email", Required: true},
	}
	rules := []types.LogicRule{
		{
			ID:          "r-show-name",
			Action:      types.ActionShow,
			TargetField: "pet_name",
			Condition:   condition(t, logic.Field("has_pet").Equals("yes")),
		},
		{
			ID:          "r-require-name",
			Action:      types.ActionRequire,
			TargetField: "pet_name",
			Condition:   condition(t, logic.Field("has_pet").Equals("yes")),
		},
		{
			ID:          "r-hide-age",
			Action:      types.ActionHide,
			TargetField: "pet_age",
			Condition:   condition(t, logic.Field("has_pet").NotEquals("yes")),
		},
	}
	return fields, rules
}

func TestResolve_ShowAndRequire(t *testing.T) {
	fields, rules := surveyFixture(t)

	d := Resolve(fields, rules, map[string]any{"has_pet": "yes"})

	assert.True(t, d.Visible["pet_name"], "pet_name should be shown when has_pet=yes")
	assert.True(t, d.Required["pet_name"], "pet_name should become required when has_pet=yes")
	assert.True(t, d.Visible["pet_age"], "pet_age should stay visible when has_pet=yes")
	assert.Empty(t, d.RuleErrors)
}

func TestResolve_HideWhenConditionNotMet(t *testing.T) {
	fields, rules := surveyFixture(t)

	d := Resolve(fields, rules, map[string]any{"has_pet": "no"})

	assert.False(t, d.Visible["pet_name"], "show-rule condition unmet hides pet_name")
	assert.False(t, d.Visible["pet_age"], "hide-rule condition met hides pet_age")
	assert.False(t, d.Required["pet_name"], "hidden fields are never required")
}

func TestResolve_NoAnswersYet(t *testing.T) {
	fields, rules := surveyFixture(t)

	// Before any answers, has_pet is nil: equals "yes" is false, so the
	// conditional fields are hidden and only static fields are required.
	d := Resolve(fields, rules, map[string]any{})

	assert.False(t, d.Visible["pet_name"])
	assert.True(t, d.Required["has_pet"])
	assert.True(t, d.Required["email"])
	assert.False(t, d.Required["pet_name"])
}

func TestResolve_BrokenRuleIsIsolated(t *testing.T) {
	fields, rules := surveyFixture(t)
	rules = append(rules, types.LogicRule{
		ID:          "r-broken",
		Action:      types.ActionHide,
		TargetField: "email",
		Condition:   types.RawJSON(`{"operator": "NOT", "conditions": []}`),
	})

	d := Resolve(fields, rules, map[string]any{"has_pet": "yes"})

	require.Contains(t, d.RuleErrors, types.RuleID("r-broken"))
	assert.True(t, d.Visible["email"], "broken rule must default to condition-not-met")
	assert.True(t, d.Visible["pet_name"], "other rules still apply")
}

func TestResolve_SkipTo(t *testing.T) {
	fields, rules := surveyFixture(t)
	rules = append(rules, types.LogicRule{
		ID:          "r-skip",
		Action:      types.ActionSkipTo,
		TargetField: "email",
		Condition:   condition(t, logic.Field("has_pet").Equals("no")),
	})

	d := Resolve(fields, rules, map[string]any{"has_pet": "no"})
	assert.Equal(t, types.FieldID("email"), d.SkipTo)

	d = Resolve(fields, rules, map[string]any{"has_pet": "yes"})
	assert.Empty(t, d.SkipTo)
}

func TestMissingRequired(t *testing.T) {
	fields, rules := surveyFixture(t)

	tests := []struct {
		name      string
		responses map[string]any
		want      []types.FieldID
	}{
		{
			name:      "all required answered",
			responses: map[string]any{"has_pet": "no", "email": "a@b.co"},
			want:      nil,
		},
		{
			name:      "conditionally required field missing",
			responses: map[string]any{"has_pet": "yes", "email": "a@b.co"},
			want:      []types.FieldID{"pet_name"},
		},
		{
			name:      "empty string is unanswered",
			responses: map[string]any{"has_pet": "no", "email": ""},
			want:      []types.FieldID{"email"},
		},
		{
			name:      "zero is an answer",
			responses: map[string]any{"has_pet": "yes", "pet_name": 0, "email": "a@b.co"},
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MissingRequired(fields, rules, tt.responses)
			assert.Equal(t, tt.want, got)
		})
	}
}
