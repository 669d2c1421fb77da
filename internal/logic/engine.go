package logic

import (
	"fmt"

	"github.com/formkeeper/formkeeper/internal/types"
)

/*
 * Rule evaluation.
 *
 * Evaluates an immutable rule tree against one response map:
 *   - AND: true when every child is true; empty condition list is true
 *     (identity element, an explicit design choice)
 *   - OR: true when any child is true; empty condition list is false
 *   - NOT: negates its single child; any other arity is invalid
 *   - comparison leaf: resolve field -> normalize both sides -> registry lookup
 *
 * Failure policy: structural faults (bad shape, unknown comparison, wrong
 * NOT arity, excessive depth) surface as *EvaluationError wrapping
 * types.ErrInvalidLogic. Runtime faults inside a single comparison degrade
 * to false — availability over strictness, so a survey still renders with
 * one bad rule defaulting to "condition not met". Callers evaluating a
 * registry of rules should isolate failures per rule.
 *
 * Missing answers resolve to nil, never an error; they contribute a falsy
 * comparison outcome.
 */

// EvaluationError wraps any failure encountered while evaluating a rule.
// Unwrap exposes the cause, so errors.Is(err, types.ErrInvalidLogic)
// identifies structural problems.
type EvaluationError struct {
	Err error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("failed to evaluate logic: %v", e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// Engine evaluates logic rules against one response map.
//
// An Engine is cheap and single-use by design: the internal field cache is
// scoped to the instance's lifetime, so construct a fresh Engine per
// response map rather than reusing one across maps. Instances share no
// state; any number may run concurrently.
type Engine struct {
	responses  map[string]any
	fieldCache map[string]any
}

// New creates an engine over the given field-id -> answer map.
// A nil map behaves as empty.
func New(responses map[string]any) *Engine {
	if responses == nil {
		responses = map[string]any{}
	}
	return &Engine{
		responses:  responses,
		fieldCache: make(map[string]any),
	}
}

// Evaluate runs the rule tree to a boolean.
// The tree is read-only; no reference to it is retained after the call.
func (e *Engine) Evaluate(rule *Node) (bool, error) {
	result, err := e.evalNode(rule, 0)
	if err != nil {
		return false, &EvaluationError{Err: err}
	}
	return result, nil
}

func (e *Engine) evalNode(n *Node, depth int) (bool, error) {
	if n == nil {
		return false, fmt.Errorf("%w: logic node must not be null", types.ErrInvalidLogic)
	}
	if depth > types.MaxLogicDepth {
		return false, fmt.Errorf("%w: %w", types.ErrInvalidLogic, types.ErrLogicTooDeep)
	}

	if n.Kind == KindLogical {
		return e.evalLogical(n, depth)
	}
	return e.evalComparison(n)
}

func (e *Engine) evalLogical(n *Node, depth int) (bool, error) {
	switch n.Op {
	case OpAnd:
		for _, cond := range n.Conditions {
			ok, err := e.evalNode(cond, depth+1)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case OpOr:
		for _, cond := range n.Conditions {
			ok, err := e.evalNode(cond, depth+1)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case OpNot:
		if len(n.Conditions) != 1 {
			return false, fmt.Errorf("%w: NOT operator requires exactly one condition, got %d",
				types.ErrInvalidLogic, len(n.Conditions))
		}
		ok, err := e.evalNode(n.Conditions[0], depth+1)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}

	return false, fmt.Errorf("%w: unknown logical operator %q", types.ErrInvalidLogic, n.Op)
}

func (e *Engine) evalComparison(n *Node) (bool, error) {
	if !n.FieldSet {
		return false, fmt.Errorf("%w: comparison node must have 'field'", types.ErrInvalidLogic)
	}

	name := n.Comparison
	if name == "" {
		name = CmpEquals
	}
	fn, ok := comparisons[name]
	if !ok {
		return false, fmt.Errorf("%w: %w: %q", types.ErrInvalidLogic, types.ErrUnknownComparison, name)
	}

	actual := Normalize(e.fieldValue(n.Field))
	expected := Normalize(n.Value)
	return applyComparison(fn, actual, expected), nil
}

// fieldValue resolves a field reference against the response map.
// Absent keys resolve to nil. Resolved values are memoized for the
// lifetime of this engine instance.
func (e *Engine) fieldValue(key string) any {
	if v, ok := e.fieldCache[key]; ok {
		return v
	}
	v := e.responses[key]
	e.fieldCache[key] = v
	return v
}

// applyComparison runs one comparison function, downgrading any internal
// panic to false. Comparisons never propagate computation faults as
// evaluation failures.
func applyComparison(fn CompareFunc, actual, expected any) (result bool) {
	defer func() {
		if recover() != nil {
			result = false
		}
	}()
	return fn(actual, expected)
}
