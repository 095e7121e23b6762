package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/recurring-todo-api/internal/middleware"
	"github.com/noah-isme/recurring-todo-api/internal/models"
	appErrors "github.com/noah-isme/recurring-todo-api/pkg/errors"
	"github.com/noah-isme/recurring-todo-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// ownerFromContext resolves the authenticated owner, writing a 401 when absent.
func ownerFromContext(c *gin.Context) (string, bool) {
	owner := claimsFromContext(c).OwnerID()
	if owner == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return owner, true
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindQuery(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}
