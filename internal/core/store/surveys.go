// Package store implements persistence for surveys, logic rules and
// responses on top of the named-query layer in internal/core/db.
//
// All lookups are tenant-scoped: a survey ID from another tenant behaves
// exactly like a missing one.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/formkeeper/formkeeper/internal/core/db"
	"github.com/formkeeper/formkeeper/internal/types"
)

// SurveyStore persists surveys and their structure.
type SurveyStore struct {
	q *db.Queries
}

// NewSurveyStore creates a survey store over the named-query layer.
func NewSurveyStore(q *db.Queries) *SurveyStore {
	return &SurveyStore{q: q}
}

// Create inserts a new survey in draft state.
func (s *SurveyStore) Create(survey *types.Survey) error {
	_, err := s.q.Exec("create-survey",
		survey.ID, survey.TenantID, survey.Title, survey.Description,
		survey.Status, survey.Version, survey.AllowMultiple, survey.AllowPartial,
		survey.SubmissionDeadline, survey.Metadata,
		survey.CreatedAt, survey.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create survey: %w", err)
	}
	return nil
}

// Get retrieves a survey by ID within a tenant.
func (s *SurveyStore) Get(tenantID string, id types.SurveyID) (*types.Survey, error) {
	var survey types.Survey
	err := s.q.Get("get-survey", &survey, id, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: survey %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}
	return &survey, nil
}

// List returns all surveys for a tenant, newest first.
func (s *SurveyStore) List(tenantID string) ([]types.Survey, error) {
	var surveys []types.Survey
	if err := s.q.Select("list-surveys", &surveys, tenantID); err != nil {
		return nil, fmt.Errorf("failed to list surveys: %w", err)
	}
	return surveys, nil
}

// Update overwrites the mutable attributes of a survey.
func (s *SurveyStore) Update(survey *types.Survey) error {
	res, err := s.q.Exec("update-survey",
		survey.Title, survey.Description, survey.AllowMultiple, survey.AllowPartial,
		survey.SubmissionDeadline, survey.Metadata, survey.UpdatedAt,
		survey.ID, survey.TenantID)
	if err != nil {
		return fmt.Errorf("failed to update survey: %w", err)
	}
	return requireRow(res, survey.ID)
}

// SetStatus transitions a survey's lifecycle state and bumps its version.
func (s *SurveyStore) SetStatus(tenantID string, id types.SurveyID, status types.SurveyStatus, version int, now time.Time) error {
	res, err := s.q.Exec("set-survey-status", status, version, now, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to set survey status: %w", err)
	}
	return requireRow(res, id)
}

// Delete removes a survey and, through FK cascades, its structure, rules
// and responses.
func (s *SurveyStore) Delete(tenantID string, id types.SurveyID) error {
	res, err := s.q.Exec("delete-survey", id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete survey: %w", err)
	}
	return requireRow(res, id)
}

// ReplaceStructure swaps a draft survey's sections, fields and options for
// the supplied definition. Deletes run child-first so SQLite configurations
// without foreign_keys=on stay consistent too.
func (s *SurveyStore) ReplaceStructure(surveyID types.SurveyID, sections []types.Section, fields []types.Field, options []types.FieldOption) error {
	if _, err := s.q.Exec("delete-field-options", surveyID); err != nil {
		return fmt.Errorf("failed to clear field options: %w", err)
	}
	if _, err := s.q.Exec("delete-fields", surveyID); err != nil {
		return fmt.Errorf("failed to clear fields: %w", err)
	}
	if _, err := s.q.Exec("delete-sections", surveyID); err != nil {
		return fmt.Errorf("failed to clear sections: %w", err)
	}

	for _, sec := range sections {
		_, err := s.q.Exec("create-section",
			sec.ID, surveyID, sec.Title, sec.Description, sec.Position, sec.IsConditional)
		if err != nil {
			return fmt.Errorf("failed to create section %s: %w", sec.ID, err)
		}
	}
	for _, f := range fields {
		_, err := s.q.Exec("create-field",
			f.ID, f.SectionID, surveyID, f.Label, f.Type, f.Description,
			f.Position, f.Required, f.MinValue, f.MaxValue, f.MaxLength, f.IsConditional)
		if err != nil {
			return fmt.Errorf("failed to create field %s: %w", f.ID, err)
		}
	}
	for _, o := range options {
		_, err := s.q.Exec("create-field-option", o.FieldID, o.Value, o.Label, o.Position)
		if err != nil {
			return fmt.Errorf("failed to create option %s/%s: %w", o.FieldID, o.Value, err)
		}
	}
	return nil
}

// Sections returns a survey's sections in display order.
func (s *SurveyStore) Sections(surveyID types.SurveyID) ([]types.Section, error) {
	var sections []types.Section
	if err := s.q.Select("list-sections", &sections, surveyID); err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	return sections, nil
}

// Fields returns a survey's fields in display order.
func (s *SurveyStore) Fields(surveyID types.SurveyID) ([]types.Field, error) {
	var fields []types.Field
	if err := s.q.Select("list-fields", &fields, surveyID); err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	return fields, nil
}

// FieldOptions returns the options of every select field in the survey.
func (s *SurveyStore) FieldOptions(surveyID types.SurveyID) ([]types.FieldOption, error) {
	var options []types.FieldOption
	if err := s.q.Select("list-field-options", &options, surveyID); err != nil {
		return nil, fmt.Errorf("failed to list field options: %w", err)
	}
	return options, nil
}

// SetFieldConditional marks whether a field is targeted by any logic rule.
func (s *SurveyStore) SetFieldConditional(fieldID types.FieldID, conditional bool) error {
	_, err := s.q.Exec("set-field-conditional", conditional, fieldID)
	if err != nil {
		return fmt.Errorf("failed to flag field: %w", err)
	}
	return nil
}

// CloseExpired transitions published surveys past their deadline to closed.
// Returns the number of surveys closed.
func (s *SurveyStore) CloseExpired(now time.Time) (int64, error) {
	res, err := s.q.Exec("close-expired-surveys", now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to close expired surveys: %w", err)
	}
	return res.RowsAffected()
}

// PublishedIDs lists every published survey across tenants, for the
// stats refresh job.
func (s *SurveyStore) PublishedIDs() ([]types.SurveyID, error) {
	var ids []types.SurveyID
	if err := s.q.Select("list-published-survey-ids", &ids); err != nil {
		return nil, fmt.Errorf("failed to list published surveys: %w", err)
	}
	return ids, nil
}

// requireRow converts a zero-row write into ErrNotFound.
func requireRow(res sql.Result, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: survey %v", types.ErrNotFound, id)
	}
	return nil
}
