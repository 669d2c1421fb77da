package logic

import (
	"fmt"

	"github.com/formkeeper/formkeeper/internal/types"
)

// NodeTrace describes one node's evaluation: its type, inputs and result.
// Comparison traces carry the resolved actual value (pre-normalization)
// and the rule's expected value.
type NodeTrace struct {
	Type       string       `json:"type"` // "logical" or "comparison"
	Operator   LogicalOp    `json:"operator,omitempty"`
	Conditions []*NodeTrace `json:"conditions,omitempty"`

	Field      string `json:"field,omitempty"`
	Comparison string `json:"comparison,omitempty"`
	Actual     any    `json:"actual_value,omitempty"`
	Expected   any    `json:"expected_value,omitempty"`

	Result bool `json:"result"`
}

// ExplainResult pairs the overall boolean with the per-node trace.
type ExplainResult struct {
	Result      bool       `json:"result"`
	Explanation *NodeTrace `json:"explanation"`
}

// Explain evaluates a rule and returns a step-by-step trace, useful for
// debugging and for showing respondents why a field is shown or hidden.
//
// The trace is built by a second traversal independent of Evaluate — no
// shared mutable intermediate state, at the cost of walking the tree
// twice. Top-level Result always equals what Evaluate returns for the
// same rule and response map.
func (e *Engine) Explain(rule *Node) (*ExplainResult, error) {
	result, err := e.Evaluate(rule)
	if err != nil {
		return nil, err
	}
	trace, err := e.explainNode(rule, 0)
	if err != nil {
		return nil, &EvaluationError{Err: err}
	}
	return &ExplainResult{Result: result, Explanation: trace}, nil
}

func (e *Engine) explainNode(n *Node, depth int) (*NodeTrace, error) {
	if n == nil {
		return nil, fmt.Errorf("%w: logic node must not be null", types.ErrInvalidLogic)
	}
	if depth > types.MaxLogicDepth {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidLogic, types.ErrLogicTooDeep)
	}

	if n.Kind == KindLogical {
		return e.explainLogical(n, depth)
	}
	return e.explainComparison(n)
}

func (e *Engine) explainLogical(n *Node, depth int) (*NodeTrace, error) {
	if n.Op == OpNot && len(n.Conditions) != 1 {
		return nil, fmt.Errorf("%w: NOT operator requires exactly one condition, got %d",
			types.ErrInvalidLogic, len(n.Conditions))
	}

	children := make([]*NodeTrace, 0, len(n.Conditions))
	for _, cond := range n.Conditions {
		child, err := e.explainNode(cond, depth+1)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	var result bool
	switch n.Op {
	case OpAnd:
		result = true
		for _, c := range children {
			if !c.Result {
				result = false
				break
			}
		}
	case OpOr:
		for _, c := range children {
			if c.Result {
				result = true
				break
			}
		}
	case OpNot:
		result = !children[0].Result
	default:
		return nil, fmt.Errorf("%w: unknown logical operator %q", types.ErrInvalidLogic, n.Op)
	}

	return &NodeTrace{
		Type:       "logical",
		Operator:   n.Op,
		Conditions: children,
		Result:     result,
	}, nil
}

func (e *Engine) explainComparison(n *Node) (*NodeTrace, error) {
	result, err := e.evalComparison(n)
	if err != nil {
		return nil, err
	}

	name := n.Comparison
	if name == "" {
		name = CmpEquals
	}
	return &NodeTrace{
		Type:       "comparison",
		Field:      n.Field,
		Comparison: name,
		Actual:     e.fieldValue(n.Field),
		Expected:   n.Value,
		Result:     result,
	}, nil
}
