package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/formkeeper/formkeeper/internal/core/auth"
	"github.com/formkeeper/formkeeper/internal/types"
	"github.com/formkeeper/formkeeper/internal/visibility"
)

type startResponseRequest struct {
	RespondentKey  string `json:"respondent_key"`
	IdempotencyKey string `json:"idempotency_key"`
}

type saveAnswersRequest struct {
	Answers []answerRequest `json:"answers" binding:"required"`
}

type answerRequest struct {
	FieldID types.FieldID   `json:"field_id" binding:"required"`
	Value   json.RawMessage `json:"value"`
}

// visibilityView is the wire shape of a visibility decision.
type visibilityView struct {
	Visible    map[types.FieldID]bool  `json:"visible"`
	Required   map[types.FieldID]bool  `json:"required"`
	SkipTo     types.FieldID           `json:"skip_to,omitempty"`
	RuleErrors map[types.RuleID]string `json:"rule_errors,omitempty"`
}

func toVisibilityView(d *visibility.Decision) visibilityView {
	view := visibilityView{Visible: d.Visible, Required: d.Required, SkipTo: d.SkipTo}
	if len(d.RuleErrors) > 0 {
		view.RuleErrors = make(map[types.RuleID]string, len(d.RuleErrors))
		for id, err := range d.RuleErrors {
			view.RuleErrors[id] = err.Error()
		}
	}
	return view
}

// startResponse opens a response session against a published survey.
// An idempotency key makes retried start requests return the original
// session instead of opening a second one.
func (s *Service) startResponse(c *gin.Context) {
	var req startResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	survey, err := s.surveys.Get(auth.TenantID(c), types.SurveyID(c.Param("survey_id")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	now := time.Now().UTC()
	if !survey.AcceptingResponses(now) {
		s.respondError(c, fmt.Errorf("%w: survey is %s", types.ErrSurveyNotAcceptingResponses, survey.Status))
		return
	}

	if req.IdempotencyKey != "" {
		existing, err := s.responses.GetByIdempotencyKey(survey.ID, req.IdempotencyKey)
		if err != nil {
			s.respondError(c, err)
			return
		}
		if existing != nil {
			c.JSON(http.StatusOK, existing)
			return
		}
	}

	if !survey.AllowMultiple && req.RespondentKey != "" {
		n, err := s.responses.CountCompleted(survey.ID, req.RespondentKey)
		if err != nil {
			s.respondError(c, err)
			return
		}
		if n > 0 {
			s.respondError(c, fmt.Errorf("%w: respondent already completed this survey", types.ErrDuplicateSubmission))
			return
		}
	}

	response := &types.SurveyResponse{
		ID:             types.NewResponseID(),
		SurveyID:       survey.ID,
		TenantID:       survey.TenantID,
		RespondentKey:  req.RespondentKey,
		Status:         types.ResponseInProgress,
		IdempotencyKey: req.IdempotencyKey,
		StartedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.responses.Create(response); err != nil {
		s.respondError(c, err)
		return
	}

	decision, err := s.resolveVisibility(survey.ID, nil)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.log.Info("response started", "response_id", response.ID, "survey_id", survey.ID)
	c.JSON(http.StatusCreated, gin.H{"response": response, "visibility": decision})
}

// saveAnswers records a batch of answers and returns the visibility
// decision the answers produce, so clients can show and hide fields as
// the respondent progresses.
func (s *Service) saveAnswers(c *gin.Context) {
	var req saveAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if len(req.Answers) == 0 {
		badRequest(c, fmt.Errorf("answers must not be empty"))
		return
	}
	if len(req.Answers) > types.MaxAnswersPerRequest {
		badRequest(c, fmt.Errorf("at most %d answers per request, got %d", types.MaxAnswersPerRequest, len(req.Answers)))
		return
	}

	response, err := s.responses.Get(auth.TenantID(c), types.ResponseID(c.Param("response_id")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !response.Editable() {
		s.respondError(c, fmt.Errorf("%w: response is %s", types.ErrResponseNotEditable, response.Status))
		return
	}

	fields, err := s.surveys.Fields(response.SurveyID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	known := make(map[types.FieldID]bool, len(fields))
	for _, f := range fields {
		known[f.ID] = true
	}

	now := time.Now().UTC()
	for _, a := range req.Answers {
		if len(a.Value) > types.MaxAnswerSize {
			s.respondError(c, fmt.Errorf("%w: answer for %s is %d bytes", types.ErrAnswerTooLarge, a.FieldID, len(a.Value)))
			return
		}
		if !known[a.FieldID] {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("unknown field %q", a.FieldID)})
			return
		}
	}
	for _, a := range req.Answers {
		item := &types.ResponseItem{
			ResponseID: response.ID,
			FieldID:    a.FieldID,
			Value:      types.AnswerValue(a.Value),
			AnsweredAt: now,
		}
		if err := s.responses.SaveAnswer(item); err != nil {
			s.respondError(c, err)
			return
		}
	}

	decision, err := s.visibilityForResponse(response)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"visibility": decision})
}

// completeResponse finalizes a session. Unless the survey allows partial
// submissions, every required visible field must be answered.
func (s *Service) completeResponse(c *gin.Context) {
	response, err := s.responses.Get(auth.TenantID(c), types.ResponseID(c.Param("response_id")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !response.Editable() {
		s.respondError(c, fmt.Errorf("%w: response is %s", types.ErrResponseNotEditable, response.Status))
		return
	}

	survey, err := s.surveys.Get(response.TenantID, response.SurveyID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if !survey.AllowPartial {
		fields, rules, answers, err := s.responseInputs(response)
		if err != nil {
			s.respondError(c, err)
			return
		}
		if missing := visibility.MissingRequired(fields, rules, answers); len(missing) > 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":          types.ErrMissingRequiredFields.Error(),
				"missing_fields": missing,
			})
			return
		}
	}

	now := time.Now().UTC()
	if err := s.responses.Complete(response.ID, now); err != nil {
		s.respondError(c, err)
		return
	}

	response.Status = types.ResponseCompleted
	response.CompletedAt = &now
	response.UpdatedAt = now
	s.log.Info("response completed", "response_id", response.ID, "survey_id", response.SurveyID)
	c.JSON(http.StatusOK, response)
}

func (s *Service) getResponse(c *gin.Context) {
	response, err := s.responses.Get(auth.TenantID(c), types.ResponseID(c.Param("response_id")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	items, err := s.responses.Answers(response.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	decision, err := s.visibilityForResponse(response)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"response":   response,
		"answers":    items,
		"visibility": decision,
	})
}

func (s *Service) responseInputs(response *types.SurveyResponse) ([]types.Field, []types.LogicRule, map[string]any, error) {
	fields, err := s.surveys.Fields(response.SurveyID)
	if err != nil {
		return nil, nil, nil, err
	}
	rules, err := s.rules.ListBySurvey(response.SurveyID)
	if err != nil {
		return nil, nil, nil, err
	}
	items, err := s.responses.Answers(response.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	return fields, rules, types.ResponseMapFromItems(items), nil
}

func (s *Service) visibilityForResponse(response *types.SurveyResponse) (visibilityView, error) {
	fields, rules, answers, err := s.responseInputs(response)
	if err != nil {
		return visibilityView{}, err
	}
	return toVisibilityView(visibility.Resolve(fields, rules, answers)), nil
}

// resolveVisibility computes the decision for a survey with the given
// answer map, without an existing session.
func (s *Service) resolveVisibility(surveyID types.SurveyID, answers map[string]any) (visibilityView, error) {
	fields, err := s.surveys.Fields(surveyID)
	if err != nil {
		return visibilityView{}, err
	}
	rules, err := s.rules.ListBySurvey(surveyID)
	if err != nil {
		return visibilityView{}, err
	}
	return toVisibilityView(visibility.Resolve(fields, rules, answers)), nil
}
