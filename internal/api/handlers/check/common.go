package check

import (
	"encoding/base64"
	"strings"
)

// getImageType classifies the image payload for log fields; the payload
// itself is never logged.
func getImageType(image string) string {
	if image == "" {
		return "none"
	}
	if strings.HasPrefix(image, "data:image/") {
		parts := strings.Split(image, ";base64,")
		if len(parts) == 2 {
			return "base64_data_uri_" + strings.TrimPrefix(parts[0], "data:image/")
		}
		return "invalid_data_uri"
	}
	if _, err := base64.StdEncoding.DecodeString(image); err == nil {
		return "base64"
	}
	return "unknown_format"
}
