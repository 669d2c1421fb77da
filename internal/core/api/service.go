// Package api implements the HTTP handlers of the FormKeeper survey API.
//
// Thin orchestration layer: handlers bind and validate the wire shapes,
// then delegate to the stores, the logic engine and the visibility
// resolver. All routes are tenant-scoped through the auth middleware.
package api

import (
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/formkeeper/formkeeper/internal/core/store"
)

// Service bundles the handler dependencies.
type Service struct {
	surveys   *store.SurveyStore
	rules     *store.LogicStore
	responses *store.ResponseStore
	log       *slog.Logger
}

// NewService creates the API service with its store dependencies.
func NewService(surveys *store.SurveyStore, rules *store.LogicStore, responses *store.ResponseStore, log *slog.Logger) (*Service, error) {
	if surveys == nil {
		return nil, fmt.Errorf("surveys store cannot be nil")
	}
	if rules == nil {
		return nil, fmt.Errorf("rules store cannot be nil")
	}
	if responses == nil {
		return nil, fmt.Errorf("responses store cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		surveys:   surveys,
		rules:     rules,
		responses: responses,
		log:       log.With("component", "api"),
	}, nil
}

// RegisterRoutes attaches all handlers to an authenticated route group.
func (s *Service) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/surveys", s.createSurvey)
	r.GET("/surveys", s.listSurveys)
	r.GET("/surveys/:survey_id", s.getSurvey)
	r.PUT("/surveys/:survey_id", s.updateSurvey)
	r.DELETE("/surveys/:survey_id", s.deleteSurvey)
	r.PUT("/surveys/:survey_id/structure", s.replaceStructure)
	r.POST("/surveys/:survey_id/publish", s.publishSurvey)
	r.POST("/surveys/:survey_id/close", s.closeSurvey)
	r.POST("/surveys/:survey_id/archive", s.archiveSurvey)
	r.GET("/surveys/:survey_id/stats", s.surveyStats)

	r.POST("/surveys/:survey_id/rules", s.createRule)
	r.GET("/surveys/:survey_id/rules", s.listRules)
	r.GET("/surveys/:survey_id/rules/:rule_id", s.getRule)
	r.PUT("/surveys/:survey_id/rules/:rule_id", s.updateRule)
	r.DELETE("/surveys/:survey_id/rules/:rule_id", s.deleteRule)

	r.POST("/logic/evaluate", s.evaluateLogic)
	r.POST("/logic/validate", s.validateLogic)

	r.POST("/surveys/:survey_id/responses", s.startResponse)
	r.GET("/responses/:response_id", s.getResponse)
	r.PUT("/responses/:response_id/answers", s.saveAnswers)
	r.POST("/responses/:response_id/complete", s.completeResponse)
}
