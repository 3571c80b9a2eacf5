package pricing

import "strings"

// Rarity classifies an item for multiplier selection
type Rarity string

const (
	// RarityNormal is a regular, reproducible item
	RarityNormal Rarity = "NORMAL"
	// RarityOOAK is a one-of-a-kind item
	RarityOOAK Rarity = "OOAK"
)

// ParseRarity maps a free-form label to a Rarity.
// Matching is case-insensitive; anything other than OOAK (including an empty
// label) is treated as NORMAL.
func ParseRarity(label string) Rarity {
	if strings.EqualFold(strings.TrimSpace(label), string(RarityOOAK)) {
		return RarityOOAK
	}
	return RarityNormal
}

// IsKnownRarityLabel reports whether label names one of the two rarity classes
func IsKnownRarityLabel(label string) bool {
	l := strings.TrimSpace(label)
	return strings.EqualFold(l, string(RarityOOAK)) || strings.EqualFold(l, string(RarityNormal))
}

// String returns the string representation of Rarity
func (r Rarity) String() string {
	return string(r)
}
