package handler

import (
	"errors"
	"net/http"
	"strconv"

	"gigwallet/internal/domain"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// respondError maps ledger and escrow errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var ife *domain.InsufficientFundsError
	switch {
	case errors.As(err, &ife):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     "insufficient funds",
			"ledger":    ife.Ledger,
			"required":  ife.Required.StringFixed(2),
			"available": ife.Available.StringFixed(2),
		})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidStateTransition), errors.Is(err, domain.ErrConflictingPayment):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrNoAcceptedBid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrStorage):
		log.WithError(err).WithField("path", c.FullPath()).Error("ledger storage failure")
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ledger temporarily unavailable, retry"})
	default:
		log.WithError(err).WithField("path", c.FullPath()).Error("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}
