package enums

import "fmt"

// Rarity maps to the rarity_enum enum in Postgres.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

var validRarities = []Rarity{
	RarityCommon,
	RarityRare,
	RarityEpic,
	RarityLegendary,
}

// String implements fmt.Stringer.
func (r Rarity) String() string {
	return string(r)
}

// IsValid reports whether the value matches the canonical rarity enum.
func (r Rarity) IsValid() bool {
	for _, candidate := range validRarities {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRarity converts raw input into a Rarity.
func ParseRarity(value string) (Rarity, error) {
	for _, candidate := range validRarities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rarity %q", value)
}
