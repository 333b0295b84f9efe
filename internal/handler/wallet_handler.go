package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"gigwallet/internal/middleware"
	"gigwallet/internal/service"
	"gigwallet/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletHandler struct {
	wallets *service.WalletService
}

func NewWalletHandler(wallets *service.WalletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// GetWallet returns the caller's wallet, creating it on first access.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	w, err := h.wallets.GetOrCreateWallet(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *WalletHandler) ListTransactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	w, err := h.wallets.GetOrCreateWallet(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	list, err := h.wallets.ListTransactions(c.Request.Context(), w.ID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": list, "limit": limit, "offset": offset})
}

type moneyRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
}

// Deposit credits the caller's wallet. The method is recorded as a tag only.
func (h *WalletHandler) Deposit(c *gin.Context) {
	h.move(c, "deposit", payment.MethodCard)
}

// Withdraw debits the caller's wallet.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	h.move(c, "withdrawal", payment.MethodBankTransfer)
}

func (h *WalletHandler) move(c *gin.Context, kind string, defaultMethod payment.Method) {
	var req moneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	method := defaultMethod
	if req.Method != "" {
		m, err := payment.ParseMethod(req.Method)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		method = m
	}
	ctx := c.Request.Context()
	w, err := h.wallets.GetOrCreateWallet(ctx, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ref := fmt.Sprintf("%s:%s", kind, uuid.NewString())
	desc := fmt.Sprintf("%s via %s", kind, method)
	apply := h.wallets.Credit
	if kind == "withdrawal" {
		apply = h.wallets.Debit
	}
	tx, err := apply(ctx, w.ID, req.Amount, desc, ref)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}
