package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/formkeeper/formkeeper/internal/core/auth"
	"github.com/formkeeper/formkeeper/internal/logic"
	"github.com/formkeeper/formkeeper/internal/types"
)

type ruleRequest struct {
	Action      types.LogicAction `json:"action" binding:"required"`
	TargetField types.FieldID     `json:"target_field_id" binding:"required"`
	Condition   types.RawJSON     `json:"condition" binding:"required"`
}

// createRule stores a new logic rule after structural validation.
// A rule that would not evaluate is rejected up front with the full
// list of path-annotated problems; evaluation-time failures still stay
// isolated per rule, but nothing structurally broken gets persisted.
func (s *Service) createRule(c *gin.Context) {
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	survey, err := s.surveys.Get(auth.TenantID(c), types.SurveyID(c.Param("survey_id")))
	if err != nil {
		s.respondError(c, err)
		return
	}

	if problems := logic.ValidateJSON(req.Condition); len(problems) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  types.ErrInvalidLogic.Error(),
			"errors": problems,
		})
		return
	}
	if !validAction(req.Action) {
		badRequest(c, fmt.Errorf("unknown action %q", req.Action))
		return
	}

	now := time.Now().UTC()
	rule := &types.LogicRule{
		ID:          types.NewRuleID(),
		SurveyID:    survey.ID,
		Action:      req.Action,
		TargetField: req.TargetField,
		Condition:   req.Condition,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.rules.Create(rule); err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.surveys.SetFieldConditional(rule.TargetField, true); err != nil {
		s.log.Warn("failed to flag conditional field", "field_id", rule.TargetField, "error", err)
	}

	s.log.Info("logic rule created", "rule_id", rule.ID, "survey_id", survey.ID, "action", rule.Action)
	c.JSON(http.StatusCreated, rule)
}

func (s *Service) listRules(c *gin.Context) {
	survey, err := s.surveys.Get(auth.TenantID(c), types.SurveyID(c.Param("survey_id")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	rules, err := s.rules.ListBySurvey(survey.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

func (s *Service) getRule(c *gin.Context) {
	survey, err := s.surveys.Get(auth.TenantID(c), types.SurveyID(c.Param("survey_id")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	rule, err := s.rules.Get(survey.ID, types.RuleID(c.Param("rule_id")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (s *Service) updateRule(c *gin.Context) {
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	survey, err := s.surveys.Get(auth.TenantID(c), types.SurveyID(c.Param("survey_id")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	rule, err := s.rules.Get(survey.ID, types.RuleID(c.Param("rule_id")))
	if err != nil {
		s.respondError(c, err)
		return
	}

	if problems := logic.ValidateJSON(req.Condition); len(problems) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  types.ErrInvalidLogic.Error(),
			"errors": problems,
		})
		return
	}
	if !validAction(req.Action) {
		badRequest(c, fmt.Errorf("unknown action %q", req.Action))
		return
	}

	rule.Action = req.Action
	rule.TargetField = req.TargetField
	rule.Condition = req.Condition
	rule.UpdatedAt = time.Now().UTC()
	if err := s.rules.Update(rule); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (s *Service) deleteRule(c *gin.Context) {
	survey, err := s.surveys.Get(auth.TenantID(c), types.SurveyID(c.Param("survey_id")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	ruleID := types.RuleID(c.Param("rule_id"))
	if err := s.rules.Delete(survey.ID, ruleID); err != nil {
		s.respondError(c, err)
		return
	}
	s.log.Info("logic rule deleted", "rule_id", ruleID, "survey_id", survey.ID)
	c.Status(http.StatusNoContent)
}

func validAction(a types.LogicAction) bool {
	switch a {
	case types.ActionShow, types.ActionHide, types.ActionRequire, types.ActionSkipTo:
		return true
	}
	return false
}
