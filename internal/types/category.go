package types

import "strings"

type Category string

const (
	CategoryHousing        Category = "housing"
	CategoryFood           Category = "food"
	CategoryTransportation Category = "transportation"
	// CategoryOther only appears as a stored value; derivation never returns it.
	CategoryOther Category = "other"

	// CategoryAll is the search wildcard, not a storable category.
	CategoryAll Category = "All"
)

func ParseCategory(s string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryHousing:
		return CategoryHousing, true
	case CategoryFood:
		return CategoryFood, true
	case CategoryTransportation:
		return CategoryTransportation, true
	case CategoryOther:
		return CategoryOther, true
	}
	if strings.EqualFold(strings.TrimSpace(s), string(CategoryAll)) {
		return CategoryAll, true
	}
	return "", false
}

// Categorizer derives a display category from a record's stored fields.
// It is a pure function of the receiver's token lists and the record.
type Categorizer struct {
	FoodTokens      []string
	TransportTokens []string
}

func DefaultCategorizer() Categorizer {
	return Categorizer{
		FoodTokens:      []string{"food", "meal", "meals", "pantry", "nutrition", "groceries"},
		TransportTokens: []string{"transport", "transportation", "ride", "rides", "transit", "shuttle", "bus pass"},
	}
}

// Categorize resolves every record to exactly one of housing, food, or
// transportation. Priority: food signals, then transportation signals.
func (c Categorizer) Categorize(r *ResourceRecord) Category {
	if r == nil {
		return CategoryHousing
	}
	haystack := strings.ToLower(r.ProgramType + " " + r.Services)
	if r.Category == CategoryFood || containsAny(haystack, c.FoodTokens) {
		return CategoryFood
	}
	if r.Category == CategoryTransportation || containsAny(haystack, c.TransportTokens) {
		return CategoryTransportation
	}
	// Housing is the documented fallback: unclassified entries (including
	// stored category "other") must not vanish from any category view.
	return CategoryHousing
}

func containsAny(haystack string, tokens []string) bool {
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(tok)) {
			return true
		}
	}
	return false
}
