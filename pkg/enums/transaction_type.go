package enums

import "fmt"

// TransactionType is the listing offer kind (sale, rent, or both).
type TransactionType string

const (
	TransactionTypeSale     TransactionType = "sale"
	TransactionTypeRent     TransactionType = "rent"
	TransactionTypeSaleRent TransactionType = "sale_rent"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeSale,
	TransactionTypeRent,
	TransactionTypeSaleRent,
}

// String implements fmt.Stringer.
func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is known.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw input into a TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
