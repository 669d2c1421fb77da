// Package visibility composes logic rules into field-level display and
// requirement decisions for one survey.
//
// The logic engine returns only booleans; policy about which fields are
// visible or required lives here, on the caller side. Every field starts
// visible and keeps its own required flag; rules then toggle state:
//
//   - show:    target hidden unless the condition holds
//   - hide:    target hidden when the condition holds
//   - require: target additionally required when the condition holds
//   - skip_to: record the target as the forward jump point when the
//     condition holds
//
// A rule that fails to evaluate defaults to "condition not met" and is
// skipped — one bad rule must not take down a live survey.
package visibility

import (
	"encoding/json"

	"github.com/formkeeper/formkeeper/internal/logic"
	"github.com/formkeeper/formkeeper/internal/types"
)

// Decision is the resolved state for one survey given one response map.
type Decision struct {
	Visible  map[types.FieldID]bool
	Required map[types.FieldID]bool

	// SkipTo is the jump target of the last skip rule whose condition
	// held, or empty. The engine only decides the target; walking the
	// form forward is the rendering client's job.
	SkipTo types.FieldID

	// RuleErrors records rules that failed to parse or evaluate, by ID.
	// Failed rules contribute nothing to the decision.
	RuleErrors map[types.RuleID]error
}

// Resolve evaluates every rule against the response map and folds the
// results into per-field visibility and requirement. A fresh engine
// instance is constructed for the call; the rule trees are read-only.
func Resolve(fields []types.Field, rules []types.LogicRule, responses map[string]any) *Decision {
	d := &Decision{
		Visible:    make(map[types.FieldID]bool, len(fields)),
		Required:   make(map[types.FieldID]bool, len(fields)),
		RuleErrors: make(map[types.RuleID]error),
	}
	for _, f := range fields {
		d.Visible[f.ID] = true
		d.Required[f.ID] = f.Required
	}

	engine := logic.New(responses)

	for _, rule := range rules {
		cond, err := logic.ParseRule(rule.Condition)
		if err != nil {
			d.RuleErrors[rule.ID] = err
			continue
		}
		met, err := engine.Evaluate(cond)
		if err != nil {
			// Per-rule isolation: a structurally broken rule is recorded
			// and skipped, not propagated.
			d.RuleErrors[rule.ID] = err
			continue
		}

		switch rule.Action {
		case types.ActionShow:
			if !met {
				d.Visible[rule.TargetField] = false
			}
		case types.ActionHide:
			if met {
				d.Visible[rule.TargetField] = false
			}
		case types.ActionRequire:
			if met {
				d.Required[rule.TargetField] = true
			}
		case types.ActionSkipTo:
			if met {
				d.SkipTo = rule.TargetField
			}
		}
	}

	// Hidden fields are never required; a respondent cannot answer what
	// they cannot see.
	for id, visible := range d.Visible {
		if !visible {
			d.Required[id] = false
		}
	}

	return d
}

// MissingRequired returns the required, visible fields that have no
// answer (or an empty one) in the response map, in the order the fields
// were supplied. An empty result means the response may be completed.
func MissingRequired(fields []types.Field, rules []types.LogicRule, responses map[string]any) []types.FieldID {
	d := Resolve(fields, rules, responses)

	var missing []types.FieldID
	for _, f := range fields {
		if !d.Visible[f.ID] || !d.Required[f.ID] {
			continue
		}
		if isUnanswered(responses[string(f.ID)]) {
			missing = append(missing, f.ID)
		}
	}
	return missing
}

// isUnanswered mirrors the engine's emptiness semantics: nil, "" and
// empty collections count as unanswered; 0 and false are answers.
func isUnanswered(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return value == ""
	case []any:
		return len(value) == 0
	case map[string]any:
		return len(value) == 0
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(value, &decoded); err != nil {
			return true
		}
		return isUnanswered(decoded)
	default:
		return false
	}
}
