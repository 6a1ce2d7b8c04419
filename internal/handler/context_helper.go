package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/gppalanpur/portal-api/internal/middleware"
	"github.com/gppalanpur/portal-api/internal/models"
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

// isPrivileged reports whether the session role can see unpublished or
// other users' data.
func isPrivileged(claims *models.JWTClaims) bool {
	if claims == nil {
		return false
	}
	switch claims.SelectedRole {
	case models.RoleAdmin, models.RolePrincipal, models.RoleHOD:
		return true
	}
	return false
}
