package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/formkeeper/formkeeper/internal/core/auth"
	"github.com/formkeeper/formkeeper/internal/types"
)

type surveyRequest struct {
	Title              string        `json:"title" binding:"required"`
	Description        string        `json:"description"`
	AllowMultiple      bool          `json:"allow_multiple_submissions"`
	AllowPartial       bool          `json:"allow_partial_submissions"`
	SubmissionDeadline *time.Time    `json:"submission_deadline"`
	Metadata           types.RawJSON `json:"metadata"`
}

type structureRequest struct {
	Sections []sectionRequest `json:"sections" binding:"required"`
}

type sectionRequest struct {
	Title       string         `json:"title" binding:"required"`
	Description string         `json:"description"`
	Fields      []fieldRequest `json:"fields"`
}

type fieldRequest struct {
	Label       string               `json:"label" binding:"required"`
	Type        types.FieldType      `json:"type" binding:"required"`
	Description string               `json:"description"`
	Required    bool                 `json:"required"`
	MinValue    *float64             `json:"min_value"`
	MaxValue    *float64             `json:"max_value"`
	MaxLength   *int                 `json:"max_length"`
	Options     []fieldOptionRequest `json:"options"`
}

type fieldOptionRequest struct {
	Value string `json:"value" binding:"required"`
	Label string `json:"label"`
}

// surveyDetail is the full read shape: survey plus structure and rules.
type surveyDetail struct {
	types.Survey
	Sections []types.Section     `json:"sections"`
	Fields   []types.Field       `json:"fields"`
	Options  []types.FieldOption `json:"field_options,omitempty"`
	Rules    []types.LogicRule   `json:"logic_rules,omitempty"`
}

func (s *Service) createSurvey(c *gin.Context) {
	var req surveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	now := time.Now().UTC()
	survey := &types.Survey{
		ID:                 types.NewSurveyID(),
		TenantID:           auth.TenantID(c),
		Title:              req.Title,
		Description:        req.Description,
		Status:             types.SurveyDraft,
		Version:            1,
		AllowMultiple:      req.AllowMultiple,
		AllowPartial:       req.AllowPartial,
		SubmissionDeadline: req.SubmissionDeadline,
		Metadata:           req.Metadata,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.surveys.Create(survey); err != nil {
		s.respondError(c, err)
		return
	}

	s.log.Info("survey created", "survey_id", survey.ID, "tenant_id", survey.TenantID)
	c.JSON(http.StatusCreated, survey)
}

func (s *Service) listSurveys(c *gin.Context) {
	surveys, err := s.surveys.List(auth.TenantID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"surveys": surveys})
}

func (s *Service) getSurvey(c *gin.Context) {
	survey, err := s.surveys.Get(auth.TenantID(c), types.SurveyID(c.Param("survey_id")))
	if err != nil {
		s.respondError(c, err)
		return
	}

	detail := surveyDetail{Survey: *survey}
	if detail.Sections, err = s.surveys.Sections(survey.ID); err != nil {
		s.respondError(c, err)
		return
	}
	if detail.Fields, err = s.surveys.Fields(survey.ID); err != nil {
		s.respondError(c, err)
		return
	}
	if detail.Options, err = s.surveys.FieldOptions(survey.ID); err != nil {
		s.respondError(c, err)
		return
	}
	if detail.Rules, err = s.rules.ListBySurvey(survey.ID); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Service) updateSurvey(c *gin.Context) {
	var req surveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	survey, err := s.surveys.Get(auth.TenantID(c), types.SurveyID(c.Param("survey_id")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if survey.Status == types.SurveyArchived {
		s.respondError(c, fmt.Errorf("%w: archived surveys are read-only", types.ErrInvalidSurveyState))
		return
	}

	survey.Title = req.Title
	survey.Description = req.Description
	survey.AllowMultiple = req.AllowMultiple
	survey.AllowPartial = req.AllowPartial
	survey.SubmissionDeadline = req.SubmissionDeadline
	survey.Metadata = req.Metadata
	survey.UpdatedAt = time.Now().UTC()

	if err := s.surveys.Update(survey); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, survey)
}

// replaceStructure swaps the whole section/field definition of a draft.
// Published surveys are immutable: respondents must see a stable form.
func (s *Service) replaceStructure(c *gin.Context) {
	var req structureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	survey, err := s.surveys.Get(auth.TenantID(c), types.SurveyID(c.Param("survey_id")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if survey.Status != types.SurveyDraft {
		s.respondError(c, fmt.Errorf("%w: structure can only change in draft, survey is %s", types.ErrInvalidSurveyState, survey.Status))
		return
	}

	var sections []types.Section
	var fields []types.Field
	var options []types.FieldOption
	for i, sec := range req.Sections {
		section := types.Section{
			ID:          types.NewSectionID(),
			SurveyID:    survey.ID,
			Title:       sec.Title,
			Description: sec.Description,
			Position:    i,
		}
		sections = append(sections, section)
		for j, f := range sec.Fields {
			field := types.Field{
				ID:          types.NewFieldID(),
				SectionID:   section.ID,
				SurveyID:    survey.ID,
				Label:       f.Label,
				Type:        f.Type,
				Description: f.Description,
				Position:    j,
				Required:    f.Required,
				MinValue:    f.MinValue,
				MaxValue:    f.MaxValue,
				MaxLength:   f.MaxLength,
			}
			fields = append(fields, field)
			for k, o := range f.Options {
				options = append(options, types.FieldOption{
					FieldID:  field.ID,
					Value:    o.Value,
					Label:    o.Label,
					Position: k,
				})
			}
		}
	}

	if err := s.surveys.ReplaceStructure(survey.ID, sections, fields, options); err != nil {
		s.respondError(c, err)
		return
	}

	s.log.Info("survey structure replaced", "survey_id", survey.ID, "sections", len(sections), "fields", len(fields))
	c.JSON(http.StatusOK, gin.H{"sections": sections, "fields": fields, "field_options": options})
}

func (s *Service) publishSurvey(c *gin.Context) {
	s.transition(c, types.SurveyPublished, map[types.SurveyStatus]bool{
		types.SurveyDraft:  true,
		types.SurveyClosed: true,
	})
}

func (s *Service) closeSurvey(c *gin.Context) {
	s.transition(c, types.SurveyClosed, map[types.SurveyStatus]bool{
		types.SurveyPublished: true,
	})
}

func (s *Service) archiveSurvey(c *gin.Context) {
	s.transition(c, types.SurveyArchived, map[types.SurveyStatus]bool{
		types.SurveyDraft:  true,
		types.SurveyClosed: true,
	})
}

// transition applies a lifecycle change when the current status allows it.
// Publishing bumps the version: respondents always see which definition
// they answered.
func (s *Service) transition(c *gin.Context, to types.SurveyStatus, from map[types.SurveyStatus]bool) {
	survey, err := s.surveys.Get(auth.TenantID(c), types.SurveyID(c.Param("survey_id")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !from[survey.Status] {
		s.respondError(c, fmt.Errorf("%w: cannot move %s survey to %s", types.ErrInvalidSurveyState, survey.Status, to))
		return
	}

	version := survey.Version
	if to == types.SurveyPublished {
		version++
	}
	now := time.Now().UTC()
	if err := s.surveys.SetStatus(survey.TenantID, survey.ID, to, version, now); err != nil {
		s.respondError(c, err)
		return
	}

	survey.Status = to
	survey.Version = version
	survey.UpdatedAt = now
	s.log.Info("survey status changed", "survey_id", survey.ID, "status", to, "version", version)
	c.JSON(http.StatusOK, survey)
}

func (s *Service) deleteSurvey(c *gin.Context) {
	id := types.SurveyID(c.Param("survey_id"))
	if err := s.surveys.Delete(auth.TenantID(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	s.log.Info("survey deleted", "survey_id", id)
	c.Status(http.StatusNoContent)
}

func (s *Service) surveyStats(c *gin.Context) {
	survey, err := s.surveys.Get(auth.TenantID(c), types.SurveyID(c.Param("survey_id")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	stats, err := s.responses.Stats(survey.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
