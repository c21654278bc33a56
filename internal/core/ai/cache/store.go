package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"alercheck-api/internal/infrastructure/config"
)

// Store caches raw model replies keyed by prompt and image payload.
// Identical scans are common when users re-submit the same label photo.
type Store interface {
	Get(ctx context.Context, prompt, imageData string) (string, error)
	Set(ctx context.Context, prompt, imageData, value string) error
	Close() error
}

// NewStore creates the configured cache backend. Returns nil when the cache
// is disabled; callers treat a nil store as a pass-through.
func NewStore(cfg *config.Config) (Store, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}

	switch cfg.Cache.Backend {
	case "memory":
		return NewManager(cfg), nil
	case "redis":
		return NewRedisStore(&cfg.Cache)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}

func hashString(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// cacheKey builds a stable key from the prompt and the image payload. Image
// payloads are hashed so keys stay short and no base64 leaks into logs.
func cacheKey(prompt, imageData string) string {
	if imageData == "" {
		return fmt.Sprintf("text:%s", hashString(prompt))
	}
	return fmt.Sprintf("multimodal:%s:%s", hashString(prompt), hashString(imageData))
}
