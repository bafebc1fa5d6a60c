package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/api/shared"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/auth"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/export"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/store"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/task"
)

// Upload errors
var (
	ErrNoFiles          = errors.New("no image files in request")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrUploadTooLarge   = errors.New("upload too large")
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors
	var maxBytes *http.MaxBytesError

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return http.StatusUnauthorized

	case errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrUnknownTool),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrJobInFlight),
		errors.Is(err, domain.ErrParentNotSucceeded),
		errors.Is(err, task.ErrNoOutput),
		errors.Is(err, export.ErrNothingToExport):
		return http.StatusConflict

	case errors.Is(err, ErrUploadTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrUnknownVariant),
		errors.Is(err, domain.ErrVariantsUnsupported),
		errors.Is(err, domain.ErrEmptyInput),
		errors.Is(err, task.ErrReferenceUnsupported),
		errors.Is(err, task.ErrSideInputUnsupported),
		errors.Is(err, store.ErrEmptyArtifact),
		errors.Is(err, shared.ErrEmptyBody),
		errors.Is(err, ErrNoFiles),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrStopped):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErrs validator.ValidationErrors
	var maxBytes *http.MaxBytesError

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid token"

	case errors.Is(err, domain.ErrJobNotFound):
		return "Job not found"
	case errors.Is(err, domain.ErrUnknownTool):
		return "Unknown tool"
	case errors.Is(err, store.ErrNotFound):
		return "Image not found"

	case errors.Is(err, domain.ErrJobInFlight):
		return "Job is still processing"
	case errors.Is(err, domain.ErrParentNotSucceeded):
		return "Variants can only be generated from a completed job"
	case errors.Is(err, task.ErrNoOutput):
		return "Job has no output yet"
	case errors.Is(err, export.ErrNothingToExport):
		return "No completed images to download"

	case errors.Is(err, ErrUploadTooLarge), errors.As(err, &maxBytes):
		return "Upload too large"
	case errors.Is(err, ErrUnsupportedImage):
		return "Only PNG, JPEG, GIF and WebP images are supported"
	case errors.Is(err, ErrNoFiles):
		return "No images provided"

	case errors.Is(err, domain.ErrUnknownVariant):
		return "Unknown variant kind"
	case errors.Is(err, domain.ErrVariantsUnsupported):
		return "This tool does not support variants"
	case errors.Is(err, task.ErrReferenceUnsupported):
		return "This tool does not use a style reference"
	case errors.Is(err, task.ErrSideInputUnsupported):
		return "This tool does not use a scene image"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.As(err, &validationErrs):
		return SanitizeValidationError(err)
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrEmptyInput),
		errors.Is(err, store.ErrEmptyArtifact):
		return "Invalid request"

	case errors.Is(err, task.ErrStopped):
		return "Service is shutting down"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err. A non-empty
// message overrides the derived one.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "Validation error"
	}

	fe := validationErrs[0]
	field := strings.ToLower(fe.Field())
	if msg := getValidationTagMessage(fe.Tag()); msg != "" {
		return fmt.Sprintf("Invalid %s: %s", field, msg)
	}
	return fmt.Sprintf("Invalid %s", field)
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "uuid":
		return "must be a UUID"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
