package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gigwallet/internal/domain"
	"gigwallet/internal/metrics"
	"gigwallet/internal/models"
	"gigwallet/internal/repository"
	"gigwallet/pkg/payment"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UserDirectory, ProjectStore and BidStore are the marketplace collaborators
// the orchestrator validates against. The gorm repositories satisfy them.
type UserDirectory interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

type ProjectStore interface {
	GetByID(ctx context.Context, id uint) (*models.Project, error)
}

type BidStore interface {
	FindAcceptedBid(ctx context.Context, projectID uint) (*models.Bid, error)
}

// Notifier is told about a payment after its state change has committed.
type Notifier interface {
	PaymentUpdated(p *models.Payment)
}

type EscrowConfig struct {
	FeePercent decimal.Decimal
	TxTimeout  time.Duration
}

type FundEscrowInput struct {
	PayerID   uint
	ProjectID uint
	PayeeID   uint
	Amount    decimal.Decimal
	Type      string
	Method    string
}

type EscrowService struct {
	db       *gorm.DB
	payments *repository.PaymentRepository
	wallets  *WalletService
	users    UserDirectory
	projects ProjectStore
	bids     BidStore
	notifier Notifier
	cfg      EscrowConfig
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewEscrowService(db *gorm.DB, wallets *WalletService, users UserDirectory, projects ProjectStore, bids BidStore,
	notifier Notifier, cfg EscrowConfig, m *metrics.Metrics) *EscrowService {
	return &EscrowService{
		db:       db,
		payments: repository.NewPaymentRepository(db),
		wallets:  wallets,
		users:    users,
		projects: projects,
		bids:     bids,
		notifier: notifier,
		cfg:      cfg,
		metrics:  m,
		now:      time.Now,
	}
}

func paymentRef(id uint) string {
	return fmt.Sprintf("payment:%d", id)
}

// FundEscrow moves in.Amount from the payer's balance into escrow and opens
// an ESCROW_HOLD payment for the project.
func (s *EscrowService) FundEscrow(ctx context.Context, in FundEscrowInput) (*models.Payment, error) {
	start := time.Now()
	p, err := s.fundEscrow(ctx, in)
	s.metrics.ObserveLedgerOp("fund_escrow", start, err)
	if err != nil {
		log.WithFields(log.Fields{"payer_id": in.PayerID, "project_id": in.ProjectID, "payee_id": in.PayeeID}).
			WithError(err).Warn("fund escrow rejected")
		return nil, err
	}
	s.committed(p)
	return p, nil
}

func (s *EscrowService) fundEscrow(ctx context.Context, in FundEscrowInput) (*models.Payment, error) {
	if !validAmount(in.Amount) {
		return nil, domain.ErrInvalidAmount
	}
	if in.Type == "" {
		in.Type = domain.PaymentTypeMilestone
	}
	if !domain.IsValidPaymentType(in.Type) {
		return nil, fmt.Errorf("%w: payment type %q", domain.ErrInvalidInput, in.Type)
	}
	method, err := payment.ParseMethod(in.Method)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if in.PayerID == in.PayeeID {
		return nil, fmt.Errorf("%w: payer and payee are the same user", domain.ErrInvalidInput)
	}
	if _, err := s.users.GetByID(ctx, in.PayerID); err != nil {
		return nil, storageErr("fund escrow", err)
	}
	if _, err := s.users.GetByID(ctx, in.PayeeID); err != nil {
		return nil, storageErr("fund escrow", err)
	}
	project, err := s.projects.GetByID(ctx, in.ProjectID)
	if err != nil {
		return nil, storageErr("fund escrow", err)
	}
	if project.OwnerUserID != in.PayerID {
		return nil, fmt.Errorf("%w: project %d is not owned by user %d", domain.ErrForbidden, in.ProjectID, in.PayerID)
	}
	bid, err := s.bids.FindAcceptedBid(ctx, in.ProjectID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && bid.FreelancerID != in.PayeeID) {
		return nil, domain.ErrNoAcceptedBid
	}
	if err != nil {
		return nil, storageErr("fund escrow", err)
	}
	active, err := s.payments.HasActiveForProject(ctx, in.ProjectID)
	if err != nil {
		return nil, storageErr("fund escrow", err)
	}
	if active {
		return nil, domain.ErrConflictingPayment
	}
	payer, err := s.wallets.GetOrCreateWallet(ctx, in.PayerID)
	if err != nil {
		return nil, err
	}

	fee := domain.PlatformFee(in.Amount, s.cfg.FeePercent)
	ctx, cancel := unitContext(ctx, s.cfg.TxTimeout)
	defer cancel()

	var p *models.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The payer's wallet row serializes competing fundings of the project.
		if _, err := s.wallets.wallets.WithTx(tx).LockByID(ctx, payer.ID); err != nil {
			return err
		}
		payments := s.payments.WithTx(tx)
		active, err := payments.HasActiveForProject(ctx, in.ProjectID)
		if err != nil {
			return err
		}
		if active {
			return domain.ErrConflictingPayment
		}
		now := s.now()
		p = &models.Payment{
			ProjectID:      in.ProjectID,
			FromUserID:     in.PayerID,
			ToUserID:       in.PayeeID,
			Type:           in.Type,
			Status:         domain.PaymentStatusEscrowHold,
			Amount:         in.Amount,
			Fee:            fee,
			NetAmount:      in.Amount.Sub(fee),
			Method:         method.String(),
			IsEscrow:       true,
			EscrowFundedAt: &now,
		}
		if err := payments.Create(ctx, p); err != nil {
			return err
		}
		_, err = s.wallets.WithTx(tx).HoldEscrow(ctx, payer.ID, in.Amount,
			fmt.Sprintf("Escrow for project %d", in.ProjectID), paymentRef(p.ID))
		return err
	})
	if err != nil {
		return nil, storageErr("fund escrow", err)
	}
	return p, nil
}

// ReleasePayment pays the held escrow, less the platform fee, to the payee.
// Only the payer may release.
func (s *EscrowService) ReleasePayment(ctx context.Context, callerID, paymentID uint) (*models.Payment, error) {
	start := time.Now()
	p, err := s.releasePayment(ctx, callerID, paymentID)
	s.metrics.ObserveLedgerOp("release_payment", start, err)
	if err != nil {
		log.WithFields(log.Fields{"payment_id": paymentID, "caller_id": callerID}).WithError(err).Warn("release rejected")
		return nil, err
	}
	s.committed(p)
	return p, nil
}

func (s *EscrowService) releasePayment(ctx context.Context, callerID, paymentID uint) (*models.Payment, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, storageErr("release payment", err)
	}
	if err := checkRelease(p, callerID); err != nil {
		return nil, err
	}
	payer, err := s.wallets.GetWallet(ctx, p.FromUserID)
	if err != nil {
		return nil, err
	}
	payee, err := s.wallets.GetOrCreateWallet(ctx, p.ToUserID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := unitContext(ctx, s.cfg.TxTimeout)
	defer cancel()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payments := s.payments.WithTx(tx)
		locked, err := payments.LockByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := checkRelease(locked, callerID); err != nil {
			return err
		}
		if _, err := s.wallets.wallets.WithTx(tx).LockByIDs(ctx, payer.ID, payee.ID); err != nil {
			return err
		}
		ws := s.wallets.WithTx(tx)
		ref := paymentRef(locked.ID)
		if _, err := ws.ReleaseEscrow(ctx, payer.ID, locked.Amount,
			fmt.Sprintf("Escrow released for project %d", locked.ProjectID), ref); err != nil {
			return err
		}
		if locked.NetAmount.IsPositive() {
			if _, err := ws.CreditEarnings(ctx, payee.ID, locked.NetAmount,
				fmt.Sprintf("Payment for project %d", locked.ProjectID), ref); err != nil {
				return err
			}
		}
		now := s.now()
		locked.Status = domain.PaymentStatusReleased
		locked.EscrowReleasedAt = &now
		locked.CompletedAt = &now
		if err := payments.Update(ctx, locked); err != nil {
			return err
		}
		p = locked
		return nil
	})
	if err != nil {
		return nil, storageErr("release payment", err)
	}
	return p, nil
}

func checkRelease(p *models.Payment, callerID uint) error {
	if p.FromUserID != callerID {
		return fmt.Errorf("%w: only the payer can release payment %d", domain.ErrForbidden, p.ID)
	}
	if p.Status != domain.PaymentStatusEscrowHold {
		return fmt.Errorf("%w: payment %d is %s", domain.ErrInvalidStateTransition, p.ID, p.Status)
	}
	return nil
}

// RefundPayment returns the full held amount to the payer. No fee is kept.
func (s *EscrowService) RefundPayment(ctx context.Context, paymentID uint, reason string) (*models.Payment, error) {
	start := time.Now()
	p, err := s.refundPayment(ctx, paymentID, reason)
	s.metrics.ObserveLedgerOp("refund_payment", start, err)
	if err != nil {
		log.WithField("payment_id", paymentID).WithError(err).Warn("refund rejected")
		return nil, err
	}
	s.committed(p)
	return p, nil
}

func (s *EscrowService) refundPayment(ctx context.Context, paymentID uint, reason string) (*models.Payment, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, storageErr("refund payment", err)
	}
	if p.Status != domain.PaymentStatusEscrowHold {
		return nil, fmt.Errorf("%w: payment %d is %s", domain.ErrInvalidStateTransition, p.ID, p.Status)
	}
	payer, err := s.wallets.GetWallet(ctx, p.FromUserID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := unitContext(ctx, s.cfg.TxTimeout)
	defer cancel()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payments := s.payments.WithTx(tx)
		locked, err := payments.LockByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if locked.Status != domain.PaymentStatusEscrowHold {
			return fmt.Errorf("%w: payment %d is %s", domain.ErrInvalidStateTransition, locked.ID, locked.Status)
		}
		desc := fmt.Sprintf("Escrow refunded for project %d", locked.ProjectID)
		if reason != "" {
			desc += ": " + reason
		}
		if _, err := s.wallets.WithTx(tx).RefundEscrow(ctx, payer.ID, locked.Amount, desc, paymentRef(locked.ID)); err != nil {
			return err
		}
		now := s.now()
		locked.Status = domain.PaymentStatusRefunded
		locked.RefundReason = reason
		locked.CompletedAt = &now
		if err := payments.Update(ctx, locked); err != nil {
			return err
		}
		p = locked
		return nil
	})
	if err != nil {
		return nil, storageErr("refund payment", err)
	}
	return p, nil
}

func (s *EscrowService) GetPayment(ctx context.Context, id uint) (*models.Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	return p, storageErr("get payment", err)
}

func (s *EscrowService) ListProjectPayments(ctx context.Context, projectID uint) ([]models.Payment, error) {
	list, err := s.payments.ListByProjectID(ctx, projectID)
	return list, storageErr("list payments", err)
}

func (s *EscrowService) committed(p *models.Payment) {
	s.metrics.PaymentTransition(p.Status)
	log.WithFields(log.Fields{
		"payment_id": p.ID,
		"project_id": p.ProjectID,
		"status":     p.Status,
		"amount":     p.Amount.StringFixed(2),
	}).Info("payment updated")
	if s.notifier != nil {
		s.notifier.PaymentUpdated(p)
	}
}
