package check

import (
	"fmt"
	"regexp"
	"strings"

	"alercheck-api/internal/pkg/common"
)

// ingredientsPlaceholder stands in for the dish text when only a photo was
// sent; the prompt tells the model to read the visible food instead.
const ingredientsPlaceholder = "(vazio)"

const base64Marker = "base64,"

var separatorPattern = regexp.MustCompile(`[,;\n]+`)

var systemPreamble = strings.Join([]string{
	"Você é um assistente de segurança alimentar.",
	"Seja cuidadoso: não dê diagnóstico médico.",
	"Alergias são assunto sério: recomende cautela, leitura do rótulo e consulta profissional.",
	"Responda SOMENTE em JSON válido (sem markdown).",
}, " ")

const userPromptTemplate = `Idioma: %s

Alergias selecionadas pelo usuário:
%s

Texto do prato digitado pelo usuário:
%s

Se houver imagem, identifique os alimentos visíveis e SOME ao texto acima.
Depois:
1) Diga se há risco (hasRisk) com base nas alergias.
2) Liste em matched os itens/derivados que batem.
3) Explique brevemente em explanation.
4) warning deve mencionar contaminação cruzada e que não substitui orientação médica.
5) safeAlternatives deve ter pelo menos 3 itens, cada um com motivo nutricional (vitaminas/nutrientes).

Retorne APENAS JSON:
{
  "hasRisk": boolean,
  "matched": string[],
  "explanation": string,
  "warning": string,
  "safeAlternatives": { "item": string, "why": string }[]
}

IMPORTANTE: responda APENAS com o JSON. Nada antes, nada depois.`

// NormalizeIngredients turns free-form dish text into a canonical
// comma-joined list. Commas, semicolons and newlines all act as separators;
// empty tokens are dropped. Normalizing an already-normalized string returns
// it unchanged.
func NormalizeIngredients(text string) string {
	parts := separatorPattern.Split(text, -1)
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if token := strings.TrimSpace(part); token != "" {
			tokens = append(tokens, token)
		}
	}
	return strings.Join(tokens, ", ")
}

// ValidateRequest checks the request before any backend call. A check needs
// either dish text or a photo, and at least one selected allergen.
func ValidateRequest(req *common.AllergenCheckRequest) error {
	if NormalizeIngredients(req.IngredientsText) == "" && req.ImageBase64 == "" {
		return common.ErrMissingContent
	}
	if len(req.Allergens) == 0 {
		return common.ErrMissingAllergens
	}
	return nil
}

// ExtractImagePayload strips a data-URL prefix, returning the pure base64
// payload Ollama expects. Input without the marker is returned unchanged.
func ExtractImagePayload(raw string) string {
	if idx := strings.Index(raw, base64Marker); idx >= 0 {
		return raw[idx+len(base64Marker):]
	}
	return raw
}

// BuildPrompt assembles the full prompt for one check: safety preamble,
// locale, selected allergens, normalized dish text and the output-format
// instructions. Pure string assembly; only the placeholder substitution is
// conditional.
func BuildPrompt(req *common.AllergenCheckRequest) string {
	locale := req.Locale
	if locale == "" {
		locale = common.DefaultLocale
	}

	ingredients := NormalizeIngredients(req.IngredientsText)
	if ingredients == "" {
		ingredients = ingredientsPlaceholder
	}

	userPrompt := fmt.Sprintf(userPromptTemplate,
		locale,
		common.FormatAllergens(req.Allergens),
		ingredients,
	)

	return systemPreamble + "\n\n" + userPrompt
}

// SelectModel picks the model identifier for one check. The choice depends
// only on whether a photo is present.
func SelectModel(textModel, visionModel string, hasImage bool) string {
	if hasImage {
		return visionModel
	}
	return textModel
}
