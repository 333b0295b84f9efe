package domain

const (
	RoleClient     = "CLIENT"
	RoleFreelancer = "FREELANCER"
	RoleAdmin      = "ADMIN"
)

// Transaction types. Every wallet mutation writes exactly one of these.
const (
	TxTypeCredit        = "CREDIT"
	TxTypeDebit         = "DEBIT"
	TxTypeEscrowHold    = "ESCROW_HOLD"
	TxTypeEscrowRelease = "ESCROW_RELEASE"
	TxTypeRefund        = "REFUND"
)

const (
	TxStatusPending   = "PENDING"
	TxStatusCompleted = "COMPLETED"
)

// Ledgers name the sub-balance a transaction's before/after values describe.
const (
	LedgerBalance = "BALANCE"
	LedgerEscrow  = "ESCROW"
)

const (
	PaymentTypeMilestone = "MILESTONE"
	PaymentTypeFinal     = "FINAL"
	PaymentTypeRefund    = "REFUND"
)

const (
	PaymentStatusPending    = "PENDING"
	PaymentStatusEscrowHold = "ESCROW_HOLD"
	PaymentStatusReleased   = "RELEASED"
	PaymentStatusRefunded   = "REFUNDED"
	PaymentStatusFailed     = "FAILED"
	PaymentStatusCompleted  = "COMPLETED"
)

// ActivePaymentStatuses block a second escrow funding for the same project.
var ActivePaymentStatuses = []string{
	PaymentStatusEscrowHold,
	PaymentStatusReleased,
	PaymentStatusCompleted,
}

const (
	ProjectStatusOpen       = "OPEN"
	ProjectStatusInProgress = "IN_PROGRESS"
	ProjectStatusCompleted  = "COMPLETED"
)

const (
	BidStatusPending  = "PENDING"
	BidStatusAccepted = "ACCEPTED"
	BidStatusRejected = "REJECTED"
)

// IsTerminalPaymentStatus reports whether a payment can no longer change.
func IsTerminalPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusReleased, PaymentStatusRefunded, PaymentStatusFailed:
		return true
	}
	return false
}

func IsValidPaymentType(t string) bool {
	switch t {
	case PaymentTypeMilestone, PaymentTypeFinal, PaymentTypeRefund:
		return true
	}
	return false
}
