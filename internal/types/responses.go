package types

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// ResponseStatus is the lifecycle state of a survey response session.
type ResponseStatus string

const (
	ResponseInProgress ResponseStatus = "in_progress"
	ResponseCompleted  ResponseStatus = "completed"
	ResponseAbandoned  ResponseStatus = "abandoned"
)

// AnswerValue represents a submitted answer as raw JSON.
// json.RawMessage wrapper preserves original bytes for schema-agnostic
// storage; the logic engine decodes at the evaluation boundary.
type AnswerValue json.RawMessage

// MarshalJSON implements json.Marshaler.
// Delegates to json.RawMessage to preserve original answer bytes unchanged.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.RawMessage(v).MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
// Delegates to json.RawMessage to capture raw bytes without parsing.
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	return (*json.RawMessage)(v).UnmarshalJSON(data)
}

// Value stores the answer as TEXT; an empty value becomes NULL.
func (v AnswerValue) Value() (driver.Value, error) {
	return RawJSON(v).Value()
}

// Scan implements sql.Scanner for the value column.
func (v *AnswerValue) Scan(src any) error {
	return scanJSONColumn((*[]byte)(v), src)
}

// SurveyResponse is one respondent's session against a survey version.
type SurveyResponse struct {
	ID             ResponseID     `db:"response_id" json:"id"`
	SurveyID       SurveyID       `db:"survey_id" json:"survey_id"`
	TenantID       string         `db:"tenant_id" json:"tenant_id"`
	RespondentKey  string         `db:"respondent_key" json:"respondent_key,omitempty"`
	Status         ResponseStatus `db:"status" json:"status"`
	IdempotencyKey string         `db:"idempotency_key" json:"-"`
	StartedAt      time.Time      `db:"started_at" json:"started_at"`
	CompletedAt    *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// Editable reports whether new answers may still be recorded.
func (r *SurveyResponse) Editable() bool {
	return r.Status == ResponseInProgress
}

// ResponseItem is one field's answer within a response session.
// The (response_id, field_id) pair is unique; saving again overwrites.
type ResponseItem struct {
	ResponseID ResponseID  `db:"response_id" json:"response_id"`
	FieldID    FieldID     `db:"field_id" json:"field_id"`
	Value      AnswerValue `db:"value" json:"value"`
	AnsweredAt time.Time   `db:"answered_at" json:"answered_at"`
}

// ResponseMapFromItems flattens stored items into the field-id -> value map
// the logic engine consumes. Values decode from their raw JSON form;
// undecodable values resolve to nil rather than failing the whole map.
func ResponseMapFromItems(items []ResponseItem) map[string]any {
	m := make(map[string]any, len(items))
	for _, item := range items {
		var v any
		if err := json.Unmarshal(item.Value, &v); err != nil {
			v = nil
		}
		m[string(item.FieldID)] = v
	}
	return m
}

// SurveyStats is the cached per-survey aggregate refreshed by the job runner.
type SurveyStats struct {
	SurveyID       SurveyID  `db:"survey_id" json:"survey_id"`
	TotalResponses int       `db:"total_responses" json:"total_responses"`
	Completed      int       `db:"completed" json:"completed"`
	InProgress     int       `db:"in_progress" json:"in_progress"`
	Abandoned      int       `db:"abandoned" json:"abandoned"`
	CompletionRate float64   `db:"completion_rate" json:"completion_rate"`
	RefreshedAt    time.Time `db:"refreshed_at" json:"refreshed_at"`
}
