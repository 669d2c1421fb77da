// Package logic implements the conditional logic engine for dynamic surveys.
//
// A safe, extensible rule evaluation system that supports AND / OR / NOT
// connectives over a closed set of field comparisons. Rules arrive as JSON
// trees authored by survey-design tooling; every string inside a rule is
// data, never evaluated as code. The engine consumes a flat field-id ->
// answer map and produces a boolean, with optional per-node explanation
// and standalone structural validation. No I/O, no side effects.
package logic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/formkeeper/formkeeper/internal/types"
)

// Kind discriminates the two rule node variants. The stored JSON form has
// no explicit discriminator: a node is logical iff its "operator" value,
// case-insensitively, is AND, OR or NOT. That decision is made once at
// parse time, not re-sniffed on every visit.
type Kind int

const (
	KindLogical Kind = iota + 1
	KindComparison
)

// LogicalOp is a boolean connective. Canonical form is upper-case.
type LogicalOp string

const (
	OpAnd LogicalOp = "AND"
	OpOr  LogicalOp = "OR"
	OpNot LogicalOp = "NOT"
)

// Node is one vertex of a rule tree: either a logical connective over
// child conditions or a leaf comparing one field's answer to a literal.
// Trees are immutable during evaluation; the engine never mutates a node
// and never retains one beyond a single call.
type Node struct {
	Kind Kind

	// Logical nodes.
	Op         LogicalOp
	Conditions []*Node
	// HasConditions distinguishes an absent "conditions" key from an
	// empty list; validation reports the former, the latter is legal.
	HasConditions bool

	// Comparison nodes. Field is the response-map key, coerced to string.
	Field      string
	FieldSet   bool
	Comparison string
	Value      any
	// HasValue distinguishes an absent "value" key from an explicit null.
	HasValue bool
}

// ParseRule decodes a stored JSON rule tree into its Node form.
// Shape errors (non-object node, non-array conditions) surface here,
// wrapped in ErrInvalidLogic; semantic checks are Validate's job.
func ParseRule(data []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// UnmarshalJSON implements json.Unmarshaler, deciding the node kind from
// the operator value as described on Kind.
func (n *Node) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("%w: logic node must be a JSON object", types.ErrInvalidLogic)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidLogic, err)
	}

	var opName *string
	if raw, ok := keys["operator"]; ok && !isJSONNull(raw) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("%w: 'operator' must be a string", types.ErrInvalidLogic)
		}
		opName = &s
	}

	if op, ok := logicalOperator(opName); ok {
		n.Kind = KindLogical
		n.Op = op
		raw, present := keys["conditions"]
		if !present || isJSONNull(raw) {
			return nil
		}
		n.HasConditions = true
		var children []json.RawMessage
		if err := json.Unmarshal(raw, &children); err != nil {
			return fmt.Errorf("%w: 'conditions' must be a list for %s operator", types.ErrInvalidLogic, op)
		}
		n.Conditions = make([]*Node, 0, len(children))
		for i, c := range children {
			child := new(Node)
			if err := json.Unmarshal(c, child); err != nil {
				return fmt.Errorf("condition %d: %w", i, err)
			}
			n.Conditions = append(n.Conditions, child)
		}
		return nil
	}

	n.Kind = KindComparison
	if raw, ok := keys["field"]; ok && !isJSONNull(raw) {
		key, err := decodeFieldKey(raw)
		if err != nil {
			return err
		}
		n.Field = key
		n.FieldSet = true
	}
	if raw, ok := keys["comparison"]; ok && !isJSONNull(raw) {
		if err := json.Unmarshal(raw, &n.Comparison); err != nil {
			return fmt.Errorf("%w: 'comparison' must be a string", types.ErrInvalidLogic)
		}
	}
	if raw, ok := keys["value"]; ok {
		n.HasValue = true
		if !isJSONNull(raw) {
			var v any
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.UseNumber()
			if err := dec.Decode(&v); err != nil {
				return fmt.Errorf("%w: %v", types.ErrInvalidLogic, err)
			}
			n.Value = v
		}
	}
	return nil
}

func isJSONNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// MarshalJSON emits the persisted shape: logical nodes as
// {"operator", "conditions"}, comparisons as {"field", "comparison", "value"}.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n.Kind == KindLogical {
		conds := n.Conditions
		if conds == nil {
			conds = []*Node{}
		}
		return json.Marshal(struct {
			Operator   LogicalOp `json:"operator"`
			Conditions []*Node   `json:"conditions"`
		}{n.Op, conds})
	}
	out := map[string]any{
		"comparison": n.Comparison,
	}
	if n.Comparison == "" {
		out["comparison"] = CmpEquals
	}
	if n.FieldSet {
		out["field"] = n.Field
	}
	if n.HasValue {
		out["value"] = n.Value
	}
	return json.Marshal(out)
}

// logicalOperator canonicalizes an operator value, reporting whether it
// names a logical connective. Anything else means a comparison node.
func logicalOperator(op *string) (LogicalOp, bool) {
	if op == nil {
		return "", false
	}
	switch {
	case equalsFold(*op, "AND"):
		return OpAnd, true
	case equalsFold(*op, "OR"):
		return OpOr, true
	case equalsFold(*op, "NOT"):
		return OpNot, true
	}
	return "", false
}

func equalsFold(s, target string) bool {
	if len(s) != len(target) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c != target[i] {
			return false
		}
	}
	return true
}

// decodeFieldKey coerces a JSON field reference (string or number) to the
// string key used against the response map.
func decodeFieldKey(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&num); err == nil {
		return num.String(), nil
	}
	return "", fmt.Errorf("%w: field reference must be a string or number", types.ErrInvalidLogic)
}

// FieldKey coerces a programmatic field reference to its string form,
// matching how JSON field references decode.
func FieldKey(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case types.FieldID:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
