package enums

import "fmt"

// Currency represents supported monetary denominations for draw payments.
// Gacha payments are charged in yen only.
type Currency string

const (
	CurrencyJPY Currency = "jpy"
)

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	return c == CurrencyJPY
}

// ParseCurrency converts a raw string into a Currency.
func ParseCurrency(value string) (Currency, error) {
	if Currency(value) == CurrencyJPY {
		return CurrencyJPY, nil
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
