package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/civic-complaints-api/internal/middleware"
	"github.com/noah-isme/civic-complaints-api/internal/models"
	appErrors "github.com/noah-isme/civic-complaints-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		return nil
	}
	return claims
}

func complaintIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid complaint id")
	}
	return id, nil
}
