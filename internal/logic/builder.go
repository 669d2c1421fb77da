package logic

/*
 * Programmatic rule construction.
 *
 * A convenience layer producing the same Node shape the engine consumes:
 *
 *   rule := logic.Or(
 *       logic.And(
 *           logic.Field("age").GreaterThanOrEqual(18),
 *           logic.Field("country").Equals("US"),
 *       ),
 *       logic.Field("guardian_consent").Equals(true),
 *   )
 *
 * No validation happens at build time; run Validate before persisting.
 */

// And combines conditions so all must hold. Zero conditions build a node
// that evaluates true.
func And(conditions ...*Node) *Node {
	return logicalNode(OpAnd, conditions)
}

// Or combines conditions so at least one must hold. Zero conditions build
// a node that evaluates false.
func Or(conditions ...*Node) *Node {
	return logicalNode(OpOr, conditions)
}

// Not negates a single condition.
func Not(condition *Node) *Node {
	return logicalNode(OpNot, []*Node{condition})
}

func logicalNode(op LogicalOp, conditions []*Node) *Node {
	if conditions == nil {
		conditions = []*Node{}
	}
	return &Node{
		Kind:          KindLogical,
		Op:            op,
		Conditions:    conditions,
		HasConditions: true,
	}
}

// FieldRef starts a comparison against one field's answer.
// The reference accepts strings, integers or typed IDs, coerced to the
// string key used against the response map.
type FieldRef struct {
	key string
}

// Field begins building a comparison for the given field reference.
func Field(id any) FieldRef {
	return FieldRef{key: FieldKey(id)}
}

func (f FieldRef) compare(name string, value any) *Node {
	return &Node{
		Kind:       KindComparison,
		Field:      f.key,
		FieldSet:   true,
		Comparison: name,
		Value:      value,
		HasValue:   true,
	}
}

// Equals builds: answer == value.
func (f FieldRef) Equals(value any) *Node { return f.compare(CmpEquals, value) }

// NotEquals builds: answer != value.
func (f FieldRef) NotEquals(value any) *Node { return f.compare(CmpNotEquals, value) }

// GreaterThan builds: answer > value.
func (f FieldRef) GreaterThan(value any) *Node { return f.compare(CmpGreaterThan, value) }

// GreaterThanOrEqual builds: answer >= value.
func (f FieldRef) GreaterThanOrEqual(value any) *Node {
	return f.compare(CmpGreaterThanOrEqual, value)
}

// LessThan builds: answer < value.
func (f FieldRef) LessThan(value any) *Node { return f.compare(CmpLessThan, value) }

// LessThanOrEqual builds: answer <= value.
func (f FieldRef) LessThanOrEqual(value any) *Node {
	return f.compare(CmpLessThanOrEqual, value)
}

// Contains builds: value is a substring of str(answer).
func (f FieldRef) Contains(value any) *Node { return f.compare(CmpContains, value) }

// NotContains builds the negation of Contains.
func (f FieldRef) NotContains(value any) *Node { return f.compare(CmpNotContains, value) }

// StartsWith builds: str(answer) starts with str(value).
func (f FieldRef) StartsWith(value any) *Node { return f.compare(CmpStartsWith, value) }

// EndsWith builds: str(answer) ends with str(value).
func (f FieldRef) EndsWith(value any) *Node { return f.compare(CmpEndsWith, value) }

// In builds: answer is a member of values.
func (f FieldRef) In(values ...any) *Node { return f.compare(CmpIn, values) }

// NotIn builds the negation of In.
func (f FieldRef) NotIn(values ...any) *Node { return f.compare(CmpNotIn, values) }

// MatchesRegex builds: pattern matches str(answer) from the start.
func (f FieldRef) MatchesRegex(pattern string) *Node {
	return f.compare(CmpMatchesRegex, pattern)
}

// Between builds: lo <= answer <= hi, inclusive on both ends.
func (f FieldRef) Between(lo, hi any) *Node {
	return f.compare(CmpBetween, []any{lo, hi})
}

// IsEmpty builds: answer is null, "" or an empty list/map.
func (f FieldRef) IsEmpty() *Node {
	n := f.compare(CmpIsEmpty, nil)
	n.HasValue = false
	return n
}

// IsNotEmpty builds the negation of IsEmpty.
func (f FieldRef) IsNotEmpty() *Node {
	n := f.compare(CmpIsNotEmpty, nil)
	n.HasValue = false
	return n
}
