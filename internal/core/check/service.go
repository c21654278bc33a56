package check

import (
	"context"
	"fmt"

	"alercheck-api/internal/core/ai/cache"
	"alercheck-api/internal/core/ai/ollama"
	"alercheck-api/internal/core/image"
	"alercheck-api/internal/infrastructure/config"
	"alercheck-api/internal/pkg/common"

	"go.uber.org/zap"
)

// Service runs allergen checks: validate, build the prompt, call Ollama,
// recover a structured result. Everything is per-request; there is no state
// shared between checks beyond the result cache.
type Service struct {
	config   *config.Config
	client   *ollama.Client
	cache    cache.Store
	imageSvc *image.Service
}

// NewService creates the check service. store may be nil when the cache is
// disabled.
func NewService(cfg *config.Config, store cache.Store) *Service {
	return &Service{
		config:   cfg,
		client:   ollama.NewClient(&cfg.Ollama),
		cache:    store,
		imageSvc: image.NewService(cfg.Image.MaxSizeBytes),
	}
}

// Check performs one allergen check. Validation and transport failures are
// returned as errors. An uninterpretable model reply is not an error; it
// comes back as the recovery fallback result.
func (s *Service) Check(ctx context.Context, req *common.AllergenCheckRequest) (*common.AllergenCheckResult, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	payload := ""
	if req.ImageBase64 != "" {
		payload = ExtractImagePayload(req.ImageBase64)
		if err := s.imageSvc.ValidatePayload(payload); err != nil {
			return nil, common.NewValidationError(common.ErrCodeInvalidImage,
				fmt.Sprintf("imagem inválida: %v", err))
		}
	}

	prompt := BuildPrompt(req)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, prompt, payload); err == nil && cached != "" {
			common.LogInfo("allergen check served from cache",
				zap.Bool("has_image", payload != ""),
			)
			return Recover(cached), nil
		}
	}

	model := SelectModel(s.config.Ollama.Model, s.config.Ollama.VisionModel, payload != "")

	common.LogInfo("running allergen check",
		zap.String("model", model),
		zap.Int("allergens", len(req.Allergens)),
		zap.Bool("has_image", payload != ""),
	)

	var rawText string
	var err error
	if payload != "" {
		rawText, err = s.client.Chat(ctx, model, prompt, payload)
	} else {
		rawText, err = s.client.Generate(ctx, model, prompt)
	}
	if err != nil {
		return nil, err
	}

	result := Recover(rawText)
	if result.RawText != "" {
		common.LogWarn("model reply could not be parsed, returning fallback",
			zap.String("model", model),
			zap.Int("raw_length", len(result.RawText)),
		)
		return result, nil
	}

	// Only interpretable replies are cached; a garbled reply should get a
	// fresh chance on resubmit.
	if s.cache != nil {
		if err := s.cache.Set(ctx, prompt, payload, rawText); err != nil {
			common.LogWarn("failed to cache allergen check", zap.Error(err))
		}
	}

	common.LogInfo("allergen check completed",
		zap.String("model", model),
		zap.Bool("has_risk", result.HasRisk),
		zap.Int("matched", len(result.Matched)),
	)

	return result, nil
}

// Close releases the backend client.
func (s *Service) Close() error {
	return s.client.Close()
}
