package enums

// MedalTransactionType maps to the medal_transaction_type_enum enum in Postgres.
type MedalTransactionType string

const (
	MedalTransactionTypeEarn  MedalTransactionType = "earn"
	MedalTransactionTypeSpend MedalTransactionType = "spend"
)

// IsValid reports whether the value matches the canonical transaction type enum.
func (t MedalTransactionType) IsValid() bool {
	return t == MedalTransactionTypeEarn || t == MedalTransactionTypeSpend
}
