package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gigwallet/config"
	"gigwallet/internal/auth"
	"gigwallet/internal/database"
	"gigwallet/internal/domain"
	"gigwallet/internal/metrics"
	"gigwallet/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Env: "test"},
		JWT:    config.JWTConfig{AccessSecret: "router-secret", AccessExpiry: time.Hour, Issuer: "gigwallet"},
		Ledger: config.LedgerConfig{
			DefaultCurrency:    "USD",
			PlatformFeePercent: decimal.NewFromInt(5),
			TxTimeout:          5 * time.Second,
		},
		RateLimit: config.RateLimitConfig{Requests: 1000, Window: time.Minute},
		Reconcile: config.ReconcileConfig{BatchSize: 50},
	}
}

type harness struct {
	t      *testing.T
	cfg    *config.Config
	db     *gorm.DB
	engine *gin.Engine
}

func newHarness(t *testing.T) *harness {
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	cfg := testConfig()
	return &harness{t: t, cfg: cfg, db: db, engine: Setup(cfg, db, Deps{Metrics: metrics.New("test")})}
}

func (h *harness) user(name, role string) (*models.User, string) {
	u := &models.User{Username: name, Email: name + "@example.com", Role: role, IsActive: true}
	require.NoError(h.t, h.db.Create(u).Error)
	token, err := auth.GenerateAccessToken(&h.cfg.JWT, u.ID, role)
	require.NoError(h.t, err)
	return u, token
}

func (h *harness) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func decimalField(t *testing.T, m map[string]interface{}, key string) decimal.Decimal {
	t.Helper()
	s, ok := m[key].(string)
	require.True(t, ok, "%s is %T", key, m[key])
	return decimal.RequireFromString(s)
}

func TestEscrowLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)
	client, clientToken := h.user("client", domain.RoleClient)
	freelancer, freelancerToken := h.user("freelancer", domain.RoleFreelancer)
	_, adminToken := h.user("admin", domain.RoleAdmin)

	project := &models.Project{OwnerUserID: client.ID, Title: "API", Status: domain.ProjectStatusInProgress}
	require.NoError(t, h.db.Create(project).Error)
	require.NoError(t, h.db.Create(&models.Bid{ProjectID: project.ID, FreelancerID: freelancer.ID,
		Amount: decimal.NewFromInt(2000), Status: domain.BidStatusAccepted}).Error)

	w, _ := h.do(http.MethodPost, "/api/v1/me/wallet/deposit", clientToken, gin.H{"amount": "5000.00", "method": "CARD"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	fund := gin.H{"project_id": project.ID, "payee_id": freelancer.ID, "amount": "2000", "type": "MILESTONE"}
	w, body := h.do(http.MethodPost, "/api/v1/payments/escrow", clientToken, fund)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	paymentID := uint(body["id"].(float64))
	assert.True(t, decimalField(t, body, "fee").Equal(decimal.NewFromInt(100)))

	w, _ = h.do(http.MethodPost, "/api/v1/payments/escrow", clientToken, fund)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = h.do(http.MethodPost, fmt.Sprintf("/api/v1/payments/%d/release", paymentID), freelancerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = h.do(http.MethodPost, fmt.Sprintf("/api/v1/payments/%d/refund", paymentID), clientToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "refund is admin only")

	w, body = h.do(http.MethodPost, fmt.Sprintf("/api/v1/payments/%d/release", paymentID), clientToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.PaymentStatusReleased, body["status"])

	w, _ = h.do(http.MethodPost, fmt.Sprintf("/api/v1/payments/%d/refund", paymentID), adminToken, gin.H{"reason": "late"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body = h.do(http.MethodGet, "/api/v1/me/wallet", freelancerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decimalField(t, body, "balance").Equal(decimal.NewFromInt(1900)))
	assert.True(t, decimalField(t, body, "total_earned").Equal(decimal.NewFromInt(1900)))

	w, body = h.do(http.MethodGet, "/api/v1/me/wallet", clientToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decimalField(t, body, "balance").Equal(decimal.NewFromInt(3000)))
	assert.True(t, decimalField(t, body, "escrow_balance").IsZero())

	w, body = h.do(http.MethodGet, fmt.Sprintf("/api/v1/projects/%d/payments", project.ID), freelancerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["payments"], 1)

	w, body = h.do(http.MethodGet, "/api/v1/me/wallet/transactions?limit=10", clientToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["transactions"], 3)

	w, body = h.do(http.MethodPost, "/api/v1/admin/reconcile", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, body["discrepancies"])
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	h := newHarness(t)
	_, token := h.user("ada", domain.RoleFreelancer)

	w, _ := h.do(http.MethodPost, "/api/v1/me/wallet/deposit", token, gin.H{"amount": 100})
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := h.do(http.MethodPost, "/api/v1/me/wallet/withdraw", token, gin.H{"amount": "150"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "150.00", body["required"])
	assert.Equal(t, "100.00", body["available"])

	w, _ = h.do(http.MethodPost, "/api/v1/me/wallet/withdraw", token, gin.H{"amount": "-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = h.do(http.MethodPost, "/api/v1/me/wallet/deposit", token, gin.H{"amount": "10", "method": "PAYPAL"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthAndOperationalEndpoints(t *testing.T) {
	h := newHarness(t)

	w, _ := h.do(http.MethodGet, "/api/v1/me/wallet", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = h.do(http.MethodGet, "/api/v1/payments/abc", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	u, token := h.user("ghost", domain.RoleClient)
	require.NoError(t, h.db.Model(u).Update("is_active", false).Error)
	w, _ = h.do(http.MethodGet, "/api/v1/me/wallet", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = h.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = h.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}
