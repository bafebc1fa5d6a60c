package generation

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Retry causes, in the order they are checked.
type cause int

const (
	causeFatal cause = iota
	causeQuota
	causeUnavailable
)

var (
	// Markers only apply to failures that carry no structured status.
	quotaMarkers       = []string{"429", "resource_exhausted"}
	unavailableMarkers = []string{"503"}
)

// IsRetryable reports whether err is worth retrying with backoff.
func IsRetryable(err error) bool {
	return classify(err) != causeFatal
}

func classify(err error) cause {
	if err == nil {
		return causeFatal
	}

	// Cancellation and deadlines come from the caller, not the service.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return causeFatal
	}

	if errors.Is(err, ErrFatal) || errors.Is(err, ErrNoImage) || errors.Is(err, ErrMissingCredentials) {
		return causeFatal
	}

	// A structured status is authoritative; the message text is ignored.
	var te *TransportError
	if errors.As(err, &te) && (te.Code != 0 || te.Status != "") {
		switch {
		case te.Code == http.StatusTooManyRequests || strings.EqualFold(te.Status, "RESOURCE_EXHAUSTED"):
			return causeQuota
		case te.Code == http.StatusServiceUnavailable || strings.EqualFold(te.Status, "UNAVAILABLE"):
			return causeUnavailable
		}
		return causeFatal
	}

	msg := strings.ToLower(err.Error())
	if containsAny(msg, quotaMarkers) {
		return causeQuota
	}
	if containsAny(msg, unavailableMarkers) {
		return causeUnavailable
	}

	if errors.Is(err, ErrRetryable) {
		return causeUnavailable
	}

	return causeFatal
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
