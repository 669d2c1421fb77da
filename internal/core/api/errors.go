package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formkeeper/formkeeper/internal/types"
)

// respondError maps domain sentinel errors onto HTTP statuses.
// Unknown errors become opaque 500s; the detail stays in the log.
func (s *Service) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, types.ErrInvalidLogic):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, types.ErrMissingRequiredFields):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, types.ErrAnswerTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, types.ErrSurveyNotAcceptingResponses),
		errors.Is(err, types.ErrResponseNotEditable),
		errors.Is(err, types.ErrDuplicateSubmission),
		errors.Is(err, types.ErrInvalidSurveyState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// badRequest reports a malformed request body or parameter.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
