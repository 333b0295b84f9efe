package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LedgerDirection returns the sign of BalanceAfter-BalanceBefore for a
// transaction of txType recorded against ledger. ok is false for pairs the
// ledger never writes.
func LedgerDirection(txType, ledger string) (sign int, ok bool) {
	switch ledger {
	case LedgerBalance:
		switch txType {
		case TxTypeCredit, TxTypeRefund, TxTypeEscrowRelease:
			return 1, true
		case TxTypeDebit, TxTypeEscrowHold:
			return -1, true
		}
	case LedgerEscrow:
		if txType == TxTypeEscrowRelease {
			return -1, true
		}
	}
	return 0, false
}

// PlatformFee is amount × percent / 100 rounded half-up to cents.
func PlatformFee(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred).Round(2)
}
