package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"gigwallet/internal/database"
	"gigwallet/internal/domain"
	"gigwallet/internal/models"
	"gigwallet/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection: concurrent units serialize on the pool. SQLite drops
	// FOR UPDATE, so these tests never exercise the row locks themselves.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type recordingNotifier struct {
	mu       sync.Mutex
	payments []models.Payment
}

func (n *recordingNotifier) PaymentUpdated(p *models.Payment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payments = append(n.payments, *p)
}

func (n *recordingNotifier) statuses() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.payments))
	for _, p := range n.payments {
		out = append(out, p.Status)
	}
	return out
}

type testEnv struct {
	db       *gorm.DB
	wallets  *WalletService
	escrow   *EscrowService
	notifier *recordingNotifier
	users    *repository.UserRepository
	projects *repository.ProjectRepository
	bids     *repository.BidRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	env := &testEnv{
		db:       db,
		notifier: &recordingNotifier{},
		users:    repository.NewUserRepository(db),
		projects: repository.NewProjectRepository(db),
		bids:     repository.NewBidRepository(db),
	}
	env.wallets = NewWalletService(db, WalletConfig{DefaultCurrency: "USD", TxTimeout: 5 * time.Second}, nil)
	env.escrow = NewEscrowService(db, env.wallets, env.users, env.projects, env.bids, env.notifier,
		EscrowConfig{FeePercent: dec("5"), TxTimeout: 5 * time.Second}, nil)
	return env
}

func (e *testEnv) user(t *testing.T, name, role string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Role: role, IsActive: true}
	require.NoError(t, e.users.Create(u))
	return u
}

// fundedWallet creates a wallet for userID holding balance.
func (e *testEnv) fundedWallet(t *testing.T, userID uint, balance string) *models.Wallet {
	t.Helper()
	ctx := context.Background()
	w, err := e.wallets.GetOrCreateWallet(ctx, userID)
	require.NoError(t, err)
	if b := dec(balance); b.IsPositive() {
		_, err = e.wallets.Credit(ctx, w.ID, b, "seed", "")
		require.NoError(t, err)
	}
	w, err = e.wallets.GetWalletByID(ctx, w.ID)
	require.NoError(t, err)
	return w
}

type marketplace struct {
	client     *models.User
	freelancer *models.User
	project    *models.Project
}

// market sets up a client owning a project whose accepted bid belongs to a
// freelancer, with the client's wallet holding balance.
func (e *testEnv) market(t *testing.T, balance string) marketplace {
	t.Helper()
	n := uuid.NewString()[:8]
	m := marketplace{
		client:     e.user(t, "client-"+n, domain.RoleClient),
		freelancer: e.user(t, "freelancer-"+n, domain.RoleFreelancer),
	}
	m.project = &models.Project{OwnerUserID: m.client.ID, Title: "Landing page", Status: domain.ProjectStatusInProgress}
	require.NoError(t, e.projects.Create(m.project))
	require.NoError(t, e.bids.Create(&models.Bid{
		ProjectID:    m.project.ID,
		FreelancerID: m.freelancer.ID,
		Amount:       dec(balance),
		Status:       domain.BidStatusAccepted,
	}))
	e.fundedWallet(t, m.client.ID, balance)
	return m
}

func (e *testEnv) walletOf(t *testing.T, userID uint) *models.Wallet {
	t.Helper()
	w, err := e.wallets.GetWallet(context.Background(), userID)
	require.NoError(t, err)
	return w
}

// total sums balance and escrow over every wallet.
func (e *testEnv) total(t *testing.T) decimal.Decimal {
	t.Helper()
	var list []models.Wallet
	require.NoError(t, e.db.Find(&list).Error)
	sum := decimal.Zero
	for _, w := range list {
		sum = sum.Add(w.Balance).Add(w.EscrowBalance)
	}
	return sum
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}
