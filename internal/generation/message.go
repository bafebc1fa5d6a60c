package generation

import (
	"errors"
	"strings"

	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/redact"
)

// User-facing failure messages
const (
	MessageQuotaExceeded      = "Usage limit exceeded. Please wait a moment and try again."
	MessageServiceUnavailable = "The image service is temporarily unavailable. Please try again shortly."
	MessageMissingCredentials = "API key is missing. Please ensure STUDIO_LLM_GEMINI_API_KEY is set."
	MessageNoImage            = "No image was generated. Try again or use a different photo."
	MessageFallback           = "Failed to process image with AI."
)

// UserMessage converts a generation failure into the human-readable detail
// stored on a failed job. Quota exhaustion never exposes the service's own
// wording.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrQuotaExceeded):
		return MessageQuotaExceeded
	case errors.Is(err, ErrServiceUnavailable):
		return MessageServiceUnavailable
	case errors.Is(err, ErrMissingCredentials):
		return MessageMissingCredentials
	case errors.Is(err, ErrNoImage):
		return MessageNoImage
	}

	var te *TransportError
	if errors.As(err, &te) {
		if msg := strings.TrimSpace(te.Message); msg != "" {
			return redact.String(msg)
		}
	}

	return MessageFallback
}
