package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/formkeeper/formkeeper/internal/core/db"
	"github.com/formkeeper/formkeeper/internal/types"
)

// ResponseStore persists response sessions and their answers.
type ResponseStore struct {
	q *db.Queries
}

// NewResponseStore creates a response store over the named-query layer.
func NewResponseStore(q *db.Queries) *ResponseStore {
	return &ResponseStore{q: q}
}

// Create inserts a new in-progress response session.
func (s *ResponseStore) Create(r *types.SurveyResponse) error {
	_, err := s.q.Exec("create-response",
		r.ID, r.SurveyID, r.TenantID, r.RespondentKey, r.Status,
		r.IdempotencyKey, r.StartedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create response: %w", err)
	}
	return nil
}

// Get retrieves a response session by ID within a tenant.
func (s *ResponseStore) Get(tenantID string, id types.ResponseID) (*types.SurveyResponse, error) {
	var r types.SurveyResponse
	err := s.q.Get("get-response", &r, id, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: response %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get response: %w", err)
	}
	return &r, nil
}

// GetByIdempotencyKey looks up a prior session for the same start request.
// Returns nil without error when no session exists.
func (s *ResponseStore) GetByIdempotencyKey(surveyID types.SurveyID, key string) (*types.SurveyResponse, error) {
	var r types.SurveyResponse
	err := s.q.Get("get-response-by-idempotency-key", &r, surveyID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	return &r, nil
}

// CountCompleted returns how many completed submissions a respondent has
// made against a survey, for single-submission enforcement.
func (s *ResponseStore) CountCompleted(surveyID types.SurveyID, respondentKey string) (int, error) {
	var n int
	if err := s.q.Get("count-completed-responses", &n, surveyID, respondentKey); err != nil {
		return 0, fmt.Errorf("failed to count responses: %w", err)
	}
	return n, nil
}

// SaveAnswer upserts one field's answer and refreshes the session's
// activity timestamp.
func (s *ResponseStore) SaveAnswer(item *types.ResponseItem) error {
	_, err := s.q.Exec("save-answer",
		item.ResponseID, item.FieldID, item.Value, item.AnsweredAt)
	if err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}
	if _, err := s.q.Exec("touch-response", item.AnsweredAt, item.ResponseID); err != nil {
		return fmt.Errorf("failed to touch response: %w", err)
	}
	return nil
}

// Answers returns all stored answers for a session.
func (s *ResponseStore) Answers(id types.ResponseID) ([]types.ResponseItem, error) {
	var items []types.ResponseItem
	if err := s.q.Select("list-answers", &items, id); err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	return items, nil
}

// Complete marks an in-progress session completed. Returns
// ErrResponseNotEditable when the session already left in_progress.
func (s *ResponseStore) Complete(id types.ResponseID, now time.Time) error {
	res, err := s.q.Exec("complete-response", now, now, id)
	if err != nil {
		return fmt.Errorf("failed to complete response: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: response %s", types.ErrResponseNotEditable, id)
	}
	return nil
}

// AbandonStale marks in-progress sessions idle since the cutoff as
// abandoned. Returns the number of sessions transitioned.
func (s *ResponseStore) AbandonStale(now, cutoff time.Time) (int64, error) {
	res, err := s.q.Exec("abandon-stale-responses", now, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to abandon stale responses: %w", err)
	}
	return res.RowsAffected()
}

// RefreshStats recomputes and upserts the cached aggregate for one survey.
func (s *ResponseStore) RefreshStats(surveyID types.SurveyID, now time.Time) (*types.SurveyStats, error) {
	var counts []struct {
		Status types.ResponseStatus `db:"status"`
		N      int                  `db:"n"`
	}
	if err := s.q.Select("response-status-counts", &counts, surveyID); err != nil {
		return nil, fmt.Errorf("failed to count responses: %w", err)
	}

	stats := types.SurveyStats{SurveyID: surveyID, RefreshedAt: now}
	for _, c := range counts {
		stats.TotalResponses += c.N
		switch c.Status {
		case types.ResponseCompleted:
			stats.Completed = c.N
		case types.ResponseInProgress:
			stats.InProgress = c.N
		case types.ResponseAbandoned:
			stats.Abandoned = c.N
		}
	}
	if stats.TotalResponses > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.TotalResponses)
	}

	_, err := s.q.Exec("upsert-survey-stats",
		stats.SurveyID, stats.TotalResponses, stats.Completed,
		stats.InProgress, stats.Abandoned, stats.CompletionRate, stats.RefreshedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert survey stats: %w", err)
	}
	return &stats, nil
}

// Stats returns the cached aggregate for one survey.
func (s *ResponseStore) Stats(surveyID types.SurveyID) (*types.SurveyStats, error) {
	var stats types.SurveyStats
	err := s.q.Get("get-survey-stats", &stats, surveyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: stats for survey %s", types.ErrNotFound, surveyID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get survey stats: %w", err)
	}
	return &stats, nil
}
