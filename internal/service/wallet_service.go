package service

import (
	"context"
	"time"

	"gigwallet/internal/domain"
	"gigwallet/internal/metrics"
	"gigwallet/internal/models"
	"gigwallet/internal/repository"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type WalletConfig struct {
	DefaultCurrency string
	TxTimeout       time.Duration
}

// WalletService owns every write to wallet balances. Each primitive is one
// atomic unit; called through a transaction-bound service it joins the outer
// unit as a savepoint.
type WalletService struct {
	db           *gorm.DB
	wallets      *repository.WalletRepository
	transactions *repository.TransactionRepository
	recorder     *TransactionRecorder
	cfg          WalletConfig
	metrics      *metrics.Metrics
	// nested copies leave logging and metrics to the outer unit.
	nested bool
}

func NewWalletService(db *gorm.DB, cfg WalletConfig, m *metrics.Metrics) *WalletService {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	txRepo := repository.NewTransactionRepository(db)
	return &WalletService{
		db:           db,
		wallets:      repository.NewWalletRepository(db),
		transactions: txRepo,
		recorder:     NewTransactionRecorder(txRepo),
		cfg:          cfg,
		metrics:      m,
	}
}

// WithTx returns a service whose primitives run inside tx.
func (s *WalletService) WithTx(tx *gorm.DB) *WalletService {
	return &WalletService{
		db:           tx,
		wallets:      s.wallets.WithTx(tx),
		transactions: s.transactions.WithTx(tx),
		recorder:     s.recorder.WithTx(tx),
		cfg:          s.cfg,
		metrics:      s.metrics,
		nested:       true,
	}
}

func (s *WalletService) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	w, err := s.wallets.GetByUserID(ctx, userID)
	return w, storageErr("get wallet", err)
}

func (s *WalletService) GetWalletByID(ctx context.Context, walletID uint) (*models.Wallet, error) {
	w, err := s.wallets.GetByID(ctx, walletID)
	return w, storageErr("get wallet", err)
}

// GetOrCreateWallet returns the user's wallet, creating an empty one in the
// default currency on first use.
func (s *WalletService) GetOrCreateWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	w := &models.Wallet{
		UserID:        userID,
		Balance:       decimal.Zero,
		EscrowBalance: decimal.Zero,
		TotalEarned:   decimal.Zero,
		Currency:      s.cfg.DefaultCurrency,
	}
	created, err := s.wallets.CreateIfAbsent(ctx, w)
	if err != nil {
		return nil, storageErr("get or create wallet", err)
	}
	entry := log.WithFields(log.Fields{"user_id": userID, "wallet_id": w.ID})
	if created {
		entry.Info("wallet created")
	} else {
		entry.Debug("wallet already exists")
	}
	return w, nil
}

// HasSufficientBalance is advisory. Mutators re-check under the row lock.
func (s *WalletService) HasSufficientBalance(ctx context.Context, walletID uint, amount decimal.Decimal) (bool, error) {
	w, err := s.GetWalletByID(ctx, walletID)
	if err != nil {
		return false, err
	}
	return w.Balance.GreaterThanOrEqual(amount), nil
}

func (s *WalletService) HasSufficientEscrowBalance(ctx context.Context, walletID uint, amount decimal.Decimal) (bool, error) {
	w, err := s.GetWalletByID(ctx, walletID)
	if err != nil {
		return false, err
	}
	return w.EscrowBalance.GreaterThanOrEqual(amount), nil
}

func (s *WalletService) ListTransactions(ctx context.Context, walletID uint, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.transactions.ListByWalletID(ctx, walletID, limit, offset)
	return list, storageErr("list transactions", err)
}

// Credit adds amount to the spendable balance.
func (s *WalletService) Credit(ctx context.Context, walletID uint, amount decimal.Decimal, description, referenceID string) (*models.Transaction, error) {
	return s.mutate(ctx, "credit", walletID, amount, func(w *models.Wallet) (entry, error) {
		before := w.Balance
		w.Balance = before.Add(amount)
		return entry{domain.TxTypeCredit, domain.LedgerBalance, before, w.Balance}, nil
	}, description, referenceID)
}

// Debit removes amount from the spendable balance.
func (s *WalletService) Debit(ctx context.Context, walletID uint, amount decimal.Decimal, description, referenceID string) (*models.Transaction, error) {
	return s.mutate(ctx, "debit", walletID, amount, func(w *models.Wallet) (entry, error) {
		if w.Balance.LessThan(amount) {
			return entry{}, insufficient(domain.LedgerBalance, amount, w.Balance)
		}
		before := w.Balance
		w.Balance = before.Sub(amount)
		return entry{domain.TxTypeDebit, domain.LedgerBalance, before, w.Balance}, nil
	}, description, referenceID)
}

// HoldEscrow moves amount from balance into escrow on the same wallet.
func (s *WalletService) HoldEscrow(ctx context.Context, walletID uint, amount decimal.Decimal, description, referenceID string) (*models.Transaction, error) {
	return s.mutate(ctx, "hold_escrow", walletID, amount, func(w *models.Wallet) (entry, error) {
		if w.Balance.LessThan(amount) {
			return entry{}, insufficient(domain.LedgerBalance, amount, w.Balance)
		}
		before := w.Balance
		w.Balance = before.Sub(amount)
		w.EscrowBalance = w.EscrowBalance.Add(amount)
		return entry{domain.TxTypeEscrowHold, domain.LedgerBalance, before, w.Balance}, nil
	}, description, referenceID)
}

// ReleaseEscrow drains amount from the payer's escrow. The row documents the
// escrow ledger. The payee side is CreditEarnings.
func (s *WalletService) ReleaseEscrow(ctx context.Context, walletID uint, amount decimal.Decimal, description, referenceID string) (*models.Transaction, error) {
	return s.mutate(ctx, "release_escrow", walletID, amount, func(w *models.Wallet) (entry, error) {
		if w.EscrowBalance.LessThan(amount) {
			return entry{}, insufficient(domain.LedgerEscrow, amount, w.EscrowBalance)
		}
		before := w.EscrowBalance
		w.EscrowBalance = before.Sub(amount)
		return entry{domain.TxTypeEscrowRelease, domain.LedgerEscrow, before, w.EscrowBalance}, nil
	}, description, referenceID)
}

// CreditEarnings credits released escrow to a payee and counts it as earned.
func (s *WalletService) CreditEarnings(ctx context.Context, walletID uint, amount decimal.Decimal, description, referenceID string) (*models.Transaction, error) {
	return s.mutate(ctx, "credit_earnings", walletID, amount, func(w *models.Wallet) (entry, error) {
		before := w.Balance
		w.Balance = before.Add(amount)
		w.TotalEarned = w.TotalEarned.Add(amount)
		return entry{domain.TxTypeEscrowRelease, domain.LedgerBalance, before, w.Balance}, nil
	}, description, referenceID)
}

// RefundEscrow returns amount from escrow to the spendable balance.
func (s *WalletService) RefundEscrow(ctx context.Context, walletID uint, amount decimal.Decimal, description, referenceID string) (*models.Transaction, error) {
	return s.mutate(ctx, "refund_escrow", walletID, amount, func(w *models.Wallet) (entry, error) {
		if w.EscrowBalance.LessThan(amount) {
			return entry{}, insufficient(domain.LedgerEscrow, amount, w.EscrowBalance)
		}
		before := w.Balance
		w.Balance = before.Add(amount)
		w.EscrowBalance = w.EscrowBalance.Sub(amount)
		return entry{domain.TxTypeRefund, domain.LedgerBalance, before, w.Balance}, nil
	}, description, referenceID)
}

type entry struct {
	txType string
	ledger string
	before decimal.Decimal
	after  decimal.Decimal
}

// validAmount accepts positive amounts in whole cents.
func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Round(2))
}

func insufficient(ledger string, required, available decimal.Decimal) error {
	return &domain.InsufficientFundsError{Ledger: ledger, Required: required, Available: available}
}

// mutate locks the wallet, applies fn to it, persists the balances and
// records the transaction, all in one unit.
func (s *WalletService) mutate(ctx context.Context, op string, walletID uint, amount decimal.Decimal,
	fn func(w *models.Wallet) (entry, error), description, referenceID string) (*models.Transaction, error) {
	start := time.Now()
	if !validAmount(amount) {
		s.observe(op, start, domain.ErrInvalidAmount)
		return nil, domain.ErrInvalidAmount
	}
	ctx, cancel := unitContext(ctx, s.cfg.TxTimeout)
	defer cancel()

	var out *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallets := s.wallets.WithTx(tx)
		w, err := wallets.LockByID(ctx, walletID)
		if err != nil {
			return err
		}
		e, err := fn(w)
		if err != nil {
			return err
		}
		if err := wallets.SaveBalances(ctx, w); err != nil {
			return err
		}
		out, err = s.recorder.WithTx(tx).Record(ctx, RecordInput{
			Wallet:        w,
			Type:          e.txType,
			Ledger:        e.ledger,
			Amount:        amount,
			BalanceBefore: e.before,
			BalanceAfter:  e.after,
			Description:   description,
			ReferenceID:   referenceID,
		})
		return err
	})
	err = storageErr(op, err)
	s.observe(op, start, err)
	fields := log.Fields{"op": op, "wallet_id": walletID, "amount": amount.StringFixed(2)}
	if err != nil {
		if !s.nested {
			log.WithFields(fields).WithError(err).Warn("ledger operation failed")
		}
		return nil, err
	}
	fields["tx_id"] = out.ID
	if s.nested {
		log.WithFields(fields).Debug("ledger operation staged")
	} else {
		log.WithFields(fields).Info("ledger operation applied")
	}
	return out, nil
}

func (s *WalletService) observe(op string, start time.Time, err error) {
	if !s.nested {
		s.metrics.ObserveLedgerOp(op, start, err)
	}
}
