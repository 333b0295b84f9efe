package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gigwallet/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
	}{
		{&domain.InsufficientFundsError{Ledger: domain.LedgerBalance, Required: decimal.NewFromInt(150), Available: decimal.NewFromInt(100)}, http.StatusUnprocessableEntity},
		{domain.NotFound("payment", 3), http.StatusNotFound},
		{fmt.Errorf("%w: payment 3 is RELEASED", domain.ErrInvalidStateTransition), http.StatusConflict},
		{domain.ErrConflictingPayment, http.StatusConflict},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrInvalidAmount, http.StatusBadRequest},
		{domain.ErrNoAcceptedBid, http.StatusBadRequest},
		{&domain.StorageError{Op: "release payment", Err: errors.New("deadlock")}, http.StatusServiceUnavailable},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		respondError(c, tc.err)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		if tc.status == http.StatusServiceUnavailable {
			assert.Equal(t, "1", w.Header().Get("Retry-After"))
			assert.NotContains(t, w.Body.String(), "deadlock")
		}
	}
}

func TestInsufficientFundsBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	respondError(c, &domain.InsufficientFundsError{Ledger: domain.LedgerBalance, Required: decimal.NewFromInt(150), Available: decimal.NewFromInt(100)})
	assert.JSONEq(t, `{"error":"insufficient funds","ledger":"BALANCE","required":"150.00","available":"100.00"}`, w.Body.String())
}
