package enums

import "fmt"

// LedgerEntryType categorizes a balance-changing ledger entry.
type LedgerEntryType string

const (
	// LedgerEntryTypePurchase credits an account after a paid order.
	LedgerEntryTypePurchase LedgerEntryType = "purchase"
	// LedgerEntryTypeUsage debits credits spent on platform features.
	LedgerEntryTypeUsage LedgerEntryType = "usage"
	// LedgerEntryTypeSettlement records operator-driven corrections.
	LedgerEntryTypeSettlement LedgerEntryType = "settlement"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryTypePurchase,
	LedgerEntryTypeUsage,
	LedgerEntryTypeSettlement,
}

// String implements fmt.Stringer.
func (t LedgerEntryType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known LedgerEntryType.
func (t LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEntryType converts raw input into a LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}
