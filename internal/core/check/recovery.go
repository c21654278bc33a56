package check

import (
	"strings"

	"alercheck-api/internal/pkg/common"
)

// Fallback texts returned when the model reply cannot be interpreted.
const (
	fallbackExplanation = "Não foi possível interpretar a resposta do modelo local."
	fallbackWarning     = "Confira manualmente o rótulo/ingredientes (atenção à contaminação cruzada)."
)

// resultProbe mirrors AllergenCheckResult with pointer fields, so a reply
// that omits a required field is distinguishable from one that sets its zero
// value.
type resultProbe struct {
	HasRisk          *bool                    `json:"hasRisk"`
	Matched          []string                 `json:"matched"`
	Explanation      *string                  `json:"explanation"`
	Warning          string                   `json:"warning"`
	SafeAlternatives []common.SafeAlternative `json:"safeAlternatives"`
}

// Recover turns the raw model reply into a structured result. It never
// fails: a reply that cannot be parsed, or that misses a required field
// (hasRisk, matched, explanation), becomes the deterministic fallback with
// the original reply preserved in rawText.
//
// Models told to "respond with only JSON" still wrap the object in prose
// often enough that scanning for the outermost brace pair is worth it.
// Known limitation: a reply containing several independent brace-delimited
// blocks extracts the wrong span; the prompt only ever asks for one object.
func Recover(rawText string) *common.AllergenCheckResult {
	candidate := extractCandidate(strings.TrimSpace(rawText))

	probe, ok := parseResult(candidate)
	if !ok {
		// Second chance: some local models emit unquoted object keys.
		probe, ok = parseResult(common.QuoteJSONKeys(candidate))
	}
	if !ok || probe.HasRisk == nil || probe.Matched == nil || probe.Explanation == nil {
		return fallbackResult(rawText)
	}

	result := &common.AllergenCheckResult{
		HasRisk:          *probe.HasRisk,
		Matched:          probe.Matched,
		Explanation:      *probe.Explanation,
		Warning:          probe.Warning,
		SafeAlternatives: probe.SafeAlternatives,
	}
	if result.SafeAlternatives == nil {
		result.SafeAlternatives = []common.SafeAlternative{}
	}

	return result
}

// extractCandidate takes the substring spanning the first "{" and the last
// "}", or the whole text when no such pair exists.
func extractCandidate(rawText string) string {
	start := strings.Index(rawText, "{")
	end := strings.LastIndex(rawText, "}")
	if start >= 0 && end > start {
		return rawText[start : end+1]
	}
	return rawText
}

func parseResult(candidate string) (*resultProbe, bool) {
	if strings.TrimSpace(candidate) == "" {
		return nil, false
	}
	var probe resultProbe
	if err := common.ParseJSON(candidate, &probe); err != nil {
		return nil, false
	}
	return &probe, true
}

// fallbackResult is the degraded answer for an uninterpretable reply. The
// risk flag stays false; the caller can tell the cases apart via rawText.
func fallbackResult(rawText string) *common.AllergenCheckResult {
	return &common.AllergenCheckResult{
		HasRisk:          false,
		Matched:          []string{},
		Explanation:      fallbackExplanation,
		Warning:          fallbackWarning,
		SafeAlternatives: []common.SafeAlternative{},
		RawText:          rawText,
	}
}
