package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formkeeper/formkeeper/internal/logic"
)

type evaluateRequest struct {
	Condition json.RawMessage `json:"condition" binding:"required"`
	Responses map[string]any  `json:"responses"`
	Explain   bool            `json:"explain"`
}

type validateRequest struct {
	Condition json.RawMessage `json:"condition" binding:"required"`
}

// evaluateLogic runs one condition tree against an ad-hoc response map.
// Used by survey builders to preview rule behavior before saving.
func (s *Service) evaluateLogic(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	node, err := logic.ParseRule(req.Condition)
	if err != nil {
		s.respondError(c, err)
		return
	}

	engine := logic.New(req.Responses)
	if req.Explain {
		explained, err := engine.Explain(node)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, explained)
		return
	}

	result, err := engine.Evaluate(node)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// validateLogic reports every structural problem in a condition tree
// without evaluating it.
func (s *Service) validateLogic(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	problems := logic.ValidateJSON(req.Condition)
	c.JSON(http.StatusOK, gin.H{
		"valid":  len(problems) == 0,
		"errors": problems,
	})
}
