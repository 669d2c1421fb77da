// Package types provides domain models shared across FormKeeper components.
//
// Zero-dependency design: surveys.go, responses.go and errors.go use only
// the standard library. ID utilities in ids.go import uuid but are isolated
// for selective inclusion.
//
// Separation from wire formats: API request/response shapes live in
// internal/core/api. This package contains hand-written types for concepts
// shared between the stores, the logic engine callers and the job runner.
package types

import (
	"time"
)

// SurveyID represents a UUIDv7 survey identifier.
// String alias enables type safety while maintaining JSON string serialization.
// UUIDv7 time-ordering ensures sequential IDs cluster in B-tree indexes.
type SurveyID string

// SectionID represents a UUIDv7 section identifier.
type SectionID string

// FieldID represents a UUIDv7 field identifier.
type FieldID string

// RuleID represents a UUIDv7 logic rule identifier.
type RuleID string

// ResponseID represents a UUIDv7 survey response identifier.
type ResponseID string

// SurveyStatus is the lifecycle state of a survey.
type SurveyStatus string

const (
	SurveyDraft     SurveyStatus = "draft"
	SurveyPublished SurveyStatus = "published"
	SurveyClosed    SurveyStatus = "closed"
	SurveyArchived  SurveyStatus = "archived"
)

// Survey is the top-level container for sections, fields and logic rules.
// Versioning is copy-on-write: publishing a new version replaces the whole
// definition, never mutates a live one.
type Survey struct {
	ID                 SurveyID     `db:"survey_id" json:"id"`
	TenantID           string       `db:"tenant_id" json:"tenant_id"`
	Title              string       `db:"title" json:"title"`
	Description        string       `db:"description" json:"description,omitempty"`
	Status             SurveyStatus `db:"status" json:"status"`
	Version            int          `db:"version" json:"version"`
	AllowMultiple      bool         `db:"allow_multiple" json:"allow_multiple_submissions"`
	AllowPartial       bool         `db:"allow_partial" json:"allow_partial_submissions"`
	SubmissionDeadline *time.Time   `db:"submission_deadline" json:"submission_deadline,omitempty"`
	Metadata           RawJSON      `db:"metadata" json:"metadata,omitempty"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updated_at"`
}

// AcceptingResponses reports whether submissions are currently allowed.
func (s *Survey) AcceptingResponses(now time.Time) bool {
	if s.Status != SurveyPublished {
		return false
	}
	if s.SubmissionDeadline != nil && now.After(*s.SubmissionDeadline) {
		return false
	}
	return true
}

// Section groups fields within a survey, ordered for display.
type Section struct {
	ID            SectionID `db:"section_id" json:"id"`
	SurveyID      SurveyID  `db:"survey_id" json:"survey_id"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description,omitempty"`
	Position      int       `db:"position" json:"position"`
	IsConditional bool      `db:"is_conditional" json:"is_conditional"`
}

// FieldType enumerates supported input kinds.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldTextarea    FieldType = "textarea"
	FieldNumber      FieldType = "number"
	FieldBoolean     FieldType = "boolean"
	FieldDate        FieldType = "date"
	FieldSelect      FieldType = "select"
	FieldMultiSelect FieldType = "multi_select"
	FieldEmail       FieldType = "email"
)

// Field is a single question in a survey section.
type Field struct {
	ID            FieldID   `db:"field_id" json:"id"`
	SectionID     SectionID `db:"section_id" json:"section_id"`
	SurveyID      SurveyID  `db:"survey_id" json:"survey_id"`
	Label         string    `db:"label" json:"label"`
	Type          FieldType `db:"field_type" json:"type"`
	Description   string    `db:"description" json:"description,omitempty"`
	Position      int       `db:"position" json:"position"`
	Required      bool      `db:"required" json:"required"`
	MinValue      *float64  `db:"min_value" json:"min_value,omitempty"`
	MaxValue      *float64  `db:"max_value" json:"max_value,omitempty"`
	MaxLength     *int      `db:"max_length" json:"max_length,omitempty"`
	IsConditional bool      `db:"is_conditional" json:"is_conditional"`
}

// FieldOption is one selectable choice for select/multi_select fields.
type FieldOption struct {
	FieldID  FieldID `db:"field_id" json:"field_id"`
	Value    string  `db:"value" json:"value"`
	Label    string  `db:"label" json:"label"`
	Position int     `db:"position" json:"position"`
}

// LogicAction is what a logic rule does to its target when its condition
// evaluates true.
type LogicAction string

const (
	ActionShow    LogicAction = "show"
	ActionHide    LogicAction = "hide"
	ActionRequire LogicAction = "require"
	ActionSkipTo  LogicAction = "skip_to"
)

// LogicRule binds a persisted condition tree to a target field or section.
// Condition is stored as raw JSON and parsed by internal/logic at the
// evaluation boundary; replacing logic means replacing the whole tree.
type LogicRule struct {
	ID          RuleID      `db:"rule_id" json:"id"`
	SurveyID    SurveyID    `db:"survey_id" json:"survey_id"`
	Action      LogicAction `db:"action" json:"action"`
	TargetField FieldID     `db:"target_field_id" json:"target_field_id"`
	Condition   RawJSON     `db:"condition" json:"condition"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// Resource limits enforced on persisted logic rules and submitted answers.
const (
	// MaxLogicDepth caps rule tree nesting to bound worst-case stack usage
	// against a maliciously deep persisted rule.
	MaxLogicDepth = 50

	// MaxInOperatorValues limits in/not_in lists to prevent quadratic
	// comparison cost per leaf.
	MaxInOperatorValues = 256

	// MaxAnswerSize limits a single submitted answer value.
	// 64KB allows long free-text answers; larger content belongs elsewhere.
	MaxAnswerSize = 64 * 1024

	// MaxAnswersPerRequest limits incremental answer batches.
	MaxAnswersPerRequest = 200
)
