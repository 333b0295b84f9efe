package service

import (
	"context"
	"fmt"
	"time"

	"gigwallet/internal/domain"
	"gigwallet/internal/metrics"
	"gigwallet/internal/models"
	"gigwallet/internal/repository"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Discrepancy is one disagreement between a wallet and its transaction log.
// TransactionID is zero for the final balance comparison.
type Discrepancy struct {
	WalletID      uint            `json:"wallet_id"`
	TransactionID uint            `json:"transaction_id,omitempty"`
	Field         string          `json:"field"`
	Expected      decimal.Decimal `json:"expected"`
	Actual        decimal.Decimal `json:"actual"`
}

func (d Discrepancy) String() string {
	return fmt.Sprintf("wallet %d tx %d %s: expected %s, got %s",
		d.WalletID, d.TransactionID, d.Field, d.Expected.StringFixed(2), d.Actual.StringFixed(2))
}

type ReconcileReport struct {
	Wallets       int           `json:"wallets"`
	Discrepancies []Discrepancy `json:"discrepancies"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
}

// Reconciler replays each wallet's transaction log and compares the result
// with the stored balances.
type Reconciler struct {
	db           *gorm.DB
	wallets      *repository.WalletRepository
	transactions *repository.TransactionRepository
	batchSize    int
	timeout      time.Duration
	metrics      *metrics.Metrics
}

func NewReconciler(db *gorm.DB, batchSize int, timeout time.Duration, m *metrics.Metrics) *Reconciler {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &Reconciler{
		db:           db,
		wallets:      repository.NewWalletRepository(db),
		transactions: repository.NewTransactionRepository(db),
		batchSize:    batchSize,
		timeout:      timeout,
		metrics:      m,
	}
}

// Run reconciles every wallet. Discrepancies are reported, never repaired.
func (r *Reconciler) Run(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{StartedAt: time.Now()}
	err := r.wallets.FindInBatches(ctx, r.batchSize, func(batch []models.Wallet) error {
		for _, w := range batch {
			found, err := r.ReconcileWallet(ctx, w.ID)
			if err != nil {
				return err
			}
			report.Wallets++
			report.Discrepancies = append(report.Discrepancies, found...)
		}
		return nil
	})
	report.FinishedAt = time.Now()
	err = storageErr("reconcile", err)
	r.metrics.ReconcileRun(len(report.Discrepancies), err)
	for _, d := range report.Discrepancies {
		log.WithFields(log.Fields{"wallet_id": d.WalletID, "transaction_id": d.TransactionID, "field": d.Field}).
			Error("ledger discrepancy: " + d.String())
	}
	if err != nil {
		return report, err
	}
	log.WithFields(log.Fields{
		"wallets":       report.Wallets,
		"discrepancies": len(report.Discrepancies),
		"duration":      report.FinishedAt.Sub(report.StartedAt).String(),
	}).Info("reconciliation finished")
	return report, nil
}

// ReconcileWallet holds the wallet lock while it reads the log so no mutation
// lands between the two reads.
func (r *Reconciler) ReconcileWallet(ctx context.Context, walletID uint) ([]Discrepancy, error) {
	ctx, cancel := unitContext(ctx, r.timeout)
	defer cancel()

	var out []Discrepancy
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := r.wallets.WithTx(tx).LockByID(ctx, walletID)
		if err != nil {
			return err
		}
		history, err := r.transactions.WithTx(tx).History(ctx, walletID)
		if err != nil {
			return err
		}
		out = Replay(w, history)
		return nil
	})
	if err != nil {
		return nil, storageErr("reconcile wallet", err)
	}
	return out, nil
}

// Replay recomputes balance, escrow and earnings from history and returns
// every point where the log or the wallet disagrees with the recomputation.
func Replay(w *models.Wallet, history []models.Transaction) []Discrepancy {
	var (
		out     []Discrepancy
		balance = decimal.Zero
		escrow  = decimal.Zero
		earned  = decimal.Zero
	)
	flag := func(txID uint, field string, expected, actual decimal.Decimal) {
		out = append(out, Discrepancy{WalletID: w.ID, TransactionID: txID, Field: field, Expected: expected, Actual: actual})
	}
	for _, t := range history {
		sign, ok := domain.LedgerDirection(t.Type, t.Ledger)
		if !ok {
			flag(t.ID, "type:"+t.Type+"/"+t.Ledger, decimal.Zero, t.Amount)
			continue
		}
		if delta := t.BalanceAfter.Sub(t.BalanceBefore); !delta.Equal(t.Amount.Mul(decimal.NewFromInt(int64(sign)))) {
			flag(t.ID, "delta", t.Amount.Mul(decimal.NewFromInt(int64(sign))), delta)
		}
		switch t.Ledger {
		case domain.LedgerBalance:
			if !t.BalanceBefore.Equal(balance) {
				flag(t.ID, "balance_before", balance, t.BalanceBefore)
			}
			balance = t.BalanceAfter
			switch t.Type {
			case domain.TxTypeEscrowHold:
				escrow = escrow.Add(t.Amount)
			case domain.TxTypeRefund:
				escrow = escrow.Sub(t.Amount)
			case domain.TxTypeEscrowRelease:
				earned = earned.Add(t.Amount)
			}
		case domain.LedgerEscrow:
			if !t.BalanceBefore.Equal(escrow) {
				flag(t.ID, "escrow_before", escrow, t.BalanceBefore)
			}
			escrow = t.BalanceAfter
		}
		if balance.IsNegative() {
			flag(t.ID, "balance_negative", decimal.Zero, balance)
		}
		if escrow.IsNegative() {
			flag(t.ID, "escrow_negative", decimal.Zero, escrow)
		}
	}
	if !w.Balance.Equal(balance) {
		flag(0, "balance", balance, w.Balance)
	}
	if !w.EscrowBalance.Equal(escrow) {
		flag(0, "escrow_balance", escrow, w.EscrowBalance)
	}
	if !w.TotalEarned.Equal(earned) {
		flag(0, "total_earned", earned, w.TotalEarned)
	}
	return out
}
