package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Service validates base64 photo payloads before they are sent to the
// inference backend. The payload itself is forwarded unchanged.
type Service struct {
	maxSizeBytes int64
}

// NewService creates a payload validator with the given size limit.
func NewService(maxSizeBytes int64) *Service {
	return &Service{
		maxSizeBytes: maxSizeBytes,
	}
}

// ValidatePayload checks that pureBase64 decodes, fits the size limit and
// contains an image in a supported format.
func (s *Service) ValidatePayload(pureBase64 string) error {
	if pureBase64 == "" {
		return fmt.Errorf("image data is empty")
	}

	decoded, err := base64.StdEncoding.DecodeString(pureBase64)
	if err != nil {
		// Some camera pipelines strip the padding.
		decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(pureBase64, "="))
		if err != nil {
			return fmt.Errorf("failed to decode base64 data: %w", err)
		}
	}

	if int64(len(decoded)) > s.maxSizeBytes {
		return fmt.Errorf("image size exceeds maximum limit of %d bytes", s.maxSizeBytes)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(decoded))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	if !isSupportedFormat(format) {
		return fmt.Errorf("unsupported image format: %s", format)
	}

	return nil
}

func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"jpg":  true,
		"png":  true,
		"gif":  true,
		"webp": true,
	}
	return supportedFormats[format]
}
