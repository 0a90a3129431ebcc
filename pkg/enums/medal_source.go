package enums

import "fmt"

// MedalSource maps to the medal_source_enum enum in Postgres. It records the
// reason medals were credited to a balance.
type MedalSource string

const (
	MedalSourceGacha      MedalSource = "gacha"
	MedalSourceBonus      MedalSource = "bonus"
	MedalSourceAdminGrant MedalSource = "admin_grant"
)

var validMedalSources = []MedalSource{
	MedalSourceGacha,
	MedalSourceBonus,
	MedalSourceAdminGrant,
}

// IsValid reports whether the value matches the canonical medal source enum.
func (s MedalSource) IsValid() bool {
	for _, candidate := range validMedalSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseMedalSource converts raw input into a MedalSource.
func ParseMedalSource(value string) (MedalSource, error) {
	for _, candidate := range validMedalSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid medal source %q", value)
}
