package handler

import (
	"context"
	"net/http"

	"gigwallet/internal/service"

	"github.com/gin-gonic/gin"
)

type ReconcileRunner interface {
	Run(ctx context.Context) (*service.ReconcileReport, error)
}

type AdminHandler struct {
	reconciler ReconcileRunner
}

func NewAdminHandler(reconciler ReconcileRunner) *AdminHandler {
	return &AdminHandler{reconciler: reconciler}
}

// Reconcile runs a reconciliation pass on demand and returns the report.
func (h *AdminHandler) Reconcile(c *gin.Context) {
	report, err := h.reconciler.Run(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
