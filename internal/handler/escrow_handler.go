package handler

import (
	"net/http"

	"gigwallet/internal/domain"
	"gigwallet/internal/middleware"
	"gigwallet/internal/models"
	"gigwallet/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type EscrowHandler struct {
	escrow *service.EscrowService
}

func NewEscrowHandler(escrow *service.EscrowService) *EscrowHandler {
	return &EscrowHandler{escrow: escrow}
}

// Fund moves money from the caller's wallet into escrow for a project.
func (h *EscrowHandler) Fund(c *gin.Context) {
	var req struct {
		ProjectID uint            `json:"project_id" binding:"required"`
		PayeeID   uint            `json:"payee_id" binding:"required"`
		Amount    decimal.Decimal `json:"amount"`
		Type      string          `json:"type"`
		Method    string          `json:"method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.escrow.FundEscrow(c.Request.Context(), service.FundEscrowInput{
		PayerID:   middleware.GetUserID(c),
		ProjectID: req.ProjectID,
		PayeeID:   req.PayeeID,
		Amount:    req.Amount,
		Type:      req.Type,
		Method:    req.Method,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func canView(c *gin.Context, p *models.Payment) bool {
	uid := middleware.GetUserID(c)
	return p.FromUserID == uid || p.ToUserID == uid || middleware.GetRole(c) == domain.RoleAdmin
}

// Get returns a payment to either party or an admin.
func (h *EscrowHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	p, err := h.escrow.GetPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !canView(c, p) {
		respondError(c, domain.ErrForbidden)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Release pays out the escrow. Only the payer may call it.
func (h *EscrowHandler) Release(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	p, err := h.escrow.ReleasePayment(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Refund returns the escrow to the payer (admin route).
func (h *EscrowHandler) Refund(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason" binding:"max=255"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	p, err := h.escrow.RefundPayment(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListProject lists a project's payments visible to the caller.
func (h *EscrowHandler) ListProject(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	list, err := h.escrow.ListProjectPayments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	visible := make([]models.Payment, 0, len(list))
	for i := range list {
		if canView(c, &list[i]) {
			visible = append(visible, list[i])
		}
	}
	c.JSON(http.StatusOK, gin.H{"payments": visible})
}
