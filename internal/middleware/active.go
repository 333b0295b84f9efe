package middleware

import (
	"context"
	"errors"
	"net/http"

	"gigwallet/internal/domain"
	"gigwallet/internal/models"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// ActiveAccount rejects callers whose account is missing or deactivated. Use
// after AuthRequired.
func ActiveAccount(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		u, err := users.GetByID(c.Request.Context(), userID)
		if errors.Is(err, domain.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account not found"})
			return
		}
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Error("account lookup failed")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "account lookup failed"})
			return
		}
		if !u.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account is deactivated"})
			return
		}
		c.Next()
	}
}
