package check

import (
	"strings"
	"testing"

	"alercheck-api/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIngredients(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "comma separated",
			input:    "a,b,c,d",
			expected: "a, b, c, d",
		},
		{
			name:     "mixed separators",
			input:    "a,b;c\nd",
			expected: "a, b, c, d",
		},
		{
			name:     "extra whitespace and blank lines",
			input:    "a, b , c\n\nd",
			expected: "a, b, c, d",
		},
		{
			name:     "semicolons only",
			input:    "a;b;c;d",
			expected: "a, b, c, d",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "only separators and whitespace",
			input:    " ,;\n ; ,",
			expected: "",
		},
		{
			name:     "single ingredient",
			input:    "  farinha de trigo  ",
			expected: "farinha de trigo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeIngredients(tt.input)
			assert.Equal(t, tt.expected, got)

			// Normalization must be idempotent.
			assert.Equal(t, got, NormalizeIngredients(got))
		})
	}
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     *common.AllergenCheckRequest
		wantErr error
	}{
		{
			name: "text and allergens",
			req: &common.AllergenCheckRequest{
				IngredientsText: "milk",
				Allergens:       []string{"Milk"},
			},
			wantErr: nil,
		},
		{
			name: "image only",
			req: &common.AllergenCheckRequest{
				Allergens:   []string{"Peanuts"},
				ImageBase64: "AAAA",
			},
			wantErr: nil,
		},
		{
			name: "no content",
			req: &common.AllergenCheckRequest{
				Allergens: []string{"Peanuts"},
			},
			wantErr: common.ErrMissingContent,
		},
		{
			name: "whitespace-only text counts as empty",
			req: &common.AllergenCheckRequest{
				IngredientsText: " ,;\n ",
				Allergens:       []string{"Peanuts"},
			},
			wantErr: common.ErrMissingContent,
		},
		{
			name: "no allergens",
			req: &common.AllergenCheckRequest{
				IngredientsText: "milk",
				Allergens:       []string{},
			},
			wantErr: common.ErrMissingAllergens,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.req)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err)
			assert.True(t, common.IsValidationError(err))
		})
	}
}

func TestExtractImagePayload(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "data url prefix",
			input:    "data:image/png;base64,AAAA",
			expected: "AAAA",
		},
		{
			name:     "already pure base64",
			input:    "AAAA",
			expected: "AAAA",
		},
		{
			name:     "jpeg data url",
			input:    "data:image/jpeg;base64,/9j/4AAQ",
			expected: "/9j/4AAQ",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractImagePayload(tt.input))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	req := &common.AllergenCheckRequest{
		IngredientsText: "peanuts; salt\nsugar",
		Allergens:       []string{"Peanuts", "Gluten"},
		Locale:          "en-US",
	}

	prompt := BuildPrompt(req)

	assert.Contains(t, prompt, "Idioma: en-US")
	assert.Contains(t, prompt, "Peanuts, Gluten")
	assert.Contains(t, prompt, "peanuts, salt, sugar")
	assert.Contains(t, prompt, "APENAS JSON")
	assert.Contains(t, prompt, "contaminação cruzada")
	assert.Contains(t, prompt, `"safeAlternatives"`)
	assert.NotContains(t, prompt, ingredientsPlaceholder)

	// The preamble always comes first.
	assert.True(t, strings.HasPrefix(prompt, "Você é um assistente de segurança alimentar."))
}

func TestBuildPromptDefaults(t *testing.T) {
	req := &common.AllergenCheckRequest{
		Allergens:   []string{"Leite"},
		ImageBase64: "AAAA",
	}

	prompt := BuildPrompt(req)

	assert.Contains(t, prompt, "Idioma: pt-BR")
	assert.Contains(t, prompt, ingredientsPlaceholder)
}

func TestBuildPromptDeterministic(t *testing.T) {
	req := &common.AllergenCheckRequest{
		IngredientsText: "peanuts, salt",
		Allergens:       []string{"Peanuts"},
	}

	assert.Equal(t, BuildPrompt(req), BuildPrompt(req))
}

func TestSelectModel(t *testing.T) {
	assert.Equal(t, "llava", SelectModel("llama3.2", "llava", true))
	assert.Equal(t, "llama3.2", SelectModel("llama3.2", "llava", false))
	assert.NotEqual(t, SelectModel("llama3.2", "llava", true), SelectModel("llama3.2", "llava", false))
}
