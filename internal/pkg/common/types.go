package common

import "strings"

// DefaultLocale is used when the client does not send a locale tag.
const DefaultLocale = "pt-BR"

// AllergenCheckRequest is the client payload for an allergen check.
// imageBase64 accepts either a pure base64 string or a data URL.
type AllergenCheckRequest struct {
	IngredientsText string   `json:"ingredientsText"`
	Allergens       []string `json:"allergens"`
	Locale          string   `json:"locale,omitempty"`
	ImageBase64     string   `json:"imageBase64,omitempty"`
}

// SafeAlternative is a substitute item suggested by the model, with a
// nutritional reason.
type SafeAlternative struct {
	Item string `json:"item"`
	Why  string `json:"why"`
}

// AllergenCheckResult is the structured result returned to the client.
// RawText is only set on the recovery-fallback path and preserves the
// model reply that could not be parsed.
type AllergenCheckResult struct {
	HasRisk          bool              `json:"hasRisk"`
	Matched          []string          `json:"matched"`
	Explanation      string            `json:"explanation"`
	Warning          string            `json:"warning"`
	SafeAlternatives []SafeAlternative `json:"safeAlternatives"`
	RawText          string            `json:"rawText,omitempty"`
}

// FormatAllergens joins allergen labels for prompt interpolation.
func FormatAllergens(allergens []string) string {
	return strings.Join(allergens, ", ")
}
