package logic

import (
	"fmt"
	"strings"

	"github.com/formkeeper/formkeeper/internal/types"
)

/*
 * Structural validation.
 *
 * Walks a rule tree without evaluating it and collects every problem
 * found, each annotated with a path into the tree (root.conditions[1]).
 * Survey-design tooling runs this before persisting a rule; the lint-rules
 * command runs it over every stored rule.
 */

// Validate checks a rule tree's structure and returns all errors found.
// An empty slice means the tree is well-formed. Never evaluates.
func Validate(rule *Node) []string {
	var errs []string
	validateNode(rule, "root", 0, &errs)
	return errs
}

// ValidateJSON parses a stored JSON rule and validates it. Decode-level
// shape errors (non-object node, non-list conditions) are reported the
// same way as structural ones.
func ValidateJSON(data []byte) []string {
	rule, err := ParseRule(data)
	if err != nil {
		return []string{fmt.Sprintf("root: %v", err)}
	}
	return Validate(rule)
}

func validateNode(n *Node, path string, depth int, errs *[]string) {
	if n == nil {
		*errs = append(*errs, fmt.Sprintf("%s: node must not be null", path))
		return
	}
	if depth > types.MaxLogicDepth {
		*errs = append(*errs, fmt.Sprintf("%s: nesting exceeds maximum depth of %d", path, types.MaxLogicDepth))
		return
	}

	if n.Kind == KindLogical {
		validateLogical(n, path, depth, errs)
		return
	}
	validateComparison(n, path, errs)
}

func validateLogical(n *Node, path string, depth int, errs *[]string) {
	if !n.HasConditions {
		*errs = append(*errs, fmt.Sprintf("%s: logical operator node must have 'conditions'", path))
		return
	}
	if n.Op == OpNot && len(n.Conditions) != 1 {
		*errs = append(*errs, fmt.Sprintf("%s: NOT operator requires exactly one condition", path))
	}
	for i, cond := range n.Conditions {
		validateNode(cond, fmt.Sprintf("%s.conditions[%d]", path, i), depth+1, errs)
	}
}

func validateComparison(n *Node, path string, errs *[]string) {
	if !n.FieldSet {
		*errs = append(*errs, fmt.Sprintf("%s: comparison node must have 'field'", path))
	}

	name := n.Comparison
	if name == "" {
		name = CmpEquals
	}
	if _, ok := comparisons[name]; !ok {
		*errs = append(*errs, fmt.Sprintf("%s: unknown comparison operator %q, valid: %s",
			path, name, strings.Join(ComparisonNames(), ", ")))
		return
	}

	if !valueOptional[name] && !n.HasValue {
		*errs = append(*errs, fmt.Sprintf("%s: comparison node should have 'value' for operator %q", path, name))
	}

	if name == CmpIn || name == CmpNotIn {
		if list, ok := n.Value.([]any); ok && len(list) > types.MaxInOperatorValues {
			*errs = append(*errs, fmt.Sprintf("%s: %q list exceeds %d values", path, name, types.MaxInOperatorValues))
		}
	}
}
