package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/formkeeper/formkeeper/internal/core/db"
	"github.com/formkeeper/formkeeper/internal/types"
)

// LogicStore persists logic rules. Conditions are stored as the raw JSON
// trees the engine parses; the store never interprets them.
type LogicStore struct {
	q *db.Queries
}

// NewLogicStore creates a logic rule store over the named-query layer.
func NewLogicStore(q *db.Queries) *LogicStore {
	return &LogicStore{q: q}
}

// Create inserts a new rule.
func (s *LogicStore) Create(rule *types.LogicRule) error {
	_, err := s.q.Exec("create-logic-rule",
		rule.ID, rule.SurveyID, rule.Action, rule.TargetField,
		rule.Condition, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create logic rule: %w", err)
	}
	return nil
}

// Get retrieves one rule scoped to its survey.
func (s *LogicStore) Get(surveyID types.SurveyID, id types.RuleID) (*types.LogicRule, error) {
	var rule types.LogicRule
	err := s.q.Get("get-logic-rule", &rule, id, surveyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: logic rule %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get logic rule: %w", err)
	}
	return &rule, nil
}

// ListBySurvey returns a survey's rules in creation order.
func (s *LogicStore) ListBySurvey(surveyID types.SurveyID) ([]types.LogicRule, error) {
	var rules []types.LogicRule
	if err := s.q.Select("list-logic-rules", &rules, surveyID); err != nil {
		return nil, fmt.Errorf("failed to list logic rules: %w", err)
	}
	return rules, nil
}

// ListAll returns every persisted rule, for the lint command.
func (s *LogicStore) ListAll() ([]types.LogicRule, error) {
	var rules []types.LogicRule
	if err := s.q.Select("list-all-logic-rules", &rules); err != nil {
		return nil, fmt.Errorf("failed to list logic rules: %w", err)
	}
	return rules, nil
}

// Update replaces a rule's action, target and condition tree.
func (s *LogicStore) Update(rule *types.LogicRule) error {
	res, err := s.q.Exec("update-logic-rule",
		rule.Action, rule.TargetField, rule.Condition, rule.UpdatedAt,
		rule.ID, rule.SurveyID)
	if err != nil {
		return fmt.Errorf("failed to update logic rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: logic rule %s", types.ErrNotFound, rule.ID)
	}
	return nil
}

// Delete removes one rule.
func (s *LogicStore) Delete(surveyID types.SurveyID, id types.RuleID) error {
	res, err := s.q.Exec("delete-logic-rule", id, surveyID)
	if err != nil {
		return fmt.Errorf("failed to delete logic rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: logic rule %s", types.ErrNotFound, id)
	}
	return nil
}

// DeleteBySurvey removes all of a survey's rules.
func (s *LogicStore) DeleteBySurvey(surveyID types.SurveyID) error {
	if _, err := s.q.Exec("delete-logic-rules", surveyID); err != nil {
		return fmt.Errorf("failed to delete logic rules: %w", err)
	}
	return nil
}
