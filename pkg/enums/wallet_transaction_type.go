package enums

import "fmt"

// WalletTransactionType classifies entries in the append-only wallet ledger.
type WalletTransactionType string

const (
	WalletTransactionTypeEscrowRelease  WalletTransactionType = "escrow_release"
	WalletTransactionTypeEscrowRefund   WalletTransactionType = "escrow_refund"
	WalletTransactionTypeCommission     WalletTransactionType = "commission"
	WalletTransactionTypeReferralPayout WalletTransactionType = "referral_payout"
	WalletTransactionTypeWithdrawal     WalletTransactionType = "withdrawal"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTransactionTypeEscrowRelease,
	WalletTransactionTypeEscrowRefund,
	WalletTransactionTypeCommission,
	WalletTransactionTypeReferralPayout,
	WalletTransactionTypeWithdrawal,
}

// String implements fmt.Stringer.
func (w WalletTransactionType) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WalletTransactionType.
func (w WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// IsCredit reports whether the entry increases the wallet balance.
func (w WalletTransactionType) IsCredit() bool {
	return w != WalletTransactionTypeWithdrawal
}

// ParseWalletTransactionType converts raw input into a WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	for _, candidate := range validWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}
