package service

import (
	"context"
	"testing"
	"time"

	"gigwallet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileCleanLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.market(t, "5000")

	p, err := env.escrow.FundEscrow(ctx, fundInput(m, "2000"))
	require.NoError(t, err)
	_, err = env.escrow.ReleasePayment(ctx, m.client.ID, p.ID)
	require.NoError(t, err)
	_, err = env.wallets.Debit(ctx, env.walletOf(t, m.freelancer.ID).ID, dec("400"), "withdrawal", "")
	require.NoError(t, err)

	r := NewReconciler(env.db, 1, 5*time.Second, nil)
	report, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Wallets)
	assert.Empty(t, report.Discrepancies)
}

func TestReconcileFlagsTamperedBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	w := env.fundedWallet(t, 1, "100")

	require.NoError(t, env.db.Model(&models.Wallet{}).Where("id = ?", w.ID).Update("balance", dec("150")).Error)

	r := NewReconciler(env.db, 10, 5*time.Second, nil)
	found, err := r.ReconcileWallet(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "balance", found[0].Field)
	assertDecimal(t, "100", found[0].Expected)
	assertDecimal(t, "150", found[0].Actual)
}

func TestReplayDetectsBrokenChain(t *testing.T) {
	w := &models.Wallet{ID: 7, Balance: dec("70"), EscrowBalance: dec("30"), TotalEarned: dec("0")}
	history := []models.Transaction{
		{ID: 1, Type: "CREDIT", Ledger: "BALANCE", Amount: dec("100"), BalanceBefore: dec("0"), BalanceAfter: dec("100")},
		{ID: 2, Type: "ESCROW_HOLD", Ledger: "BALANCE", Amount: dec("30"), BalanceBefore: dec("90"), BalanceAfter: dec("70")},
	}

	found := Replay(w, history)
	fields := make([]string, 0, len(found))
	for _, d := range found {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"delta", "balance_before"}, fields)
	for _, d := range found {
		assert.EqualValues(t, 2, d.TransactionID)
	}
}
