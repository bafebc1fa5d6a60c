package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/config"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/generation"
	"google.golang.org/genai"
)

// Response modalities requested from image models.
var imageModalities = []string{string(genai.ModalityImage), string(genai.ModalityText)}

// Transport implements generation.Transport over the Gemini API.
type Transport struct {
	client *genai.Client
	logger *slog.Logger
}

// Option customizes the underlying genai client.
type Option func(*genai.ClientConfig)

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(cc *genai.ClientConfig) {
		cc.HTTPClient = c
	}
}

// NewTransport creates a transport for the configured model.
func NewTransport(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig, opts ...Option) (generation.Transport, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	logger = logger.With("component", "gemini_transport")

	if err := validateConfig(ctx, logger, cfg); err != nil {
		return nil, err
	}

	if cfg.GeminiAPIKey == "" {
		return missingKeyTransport{}, nil
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: cfg.APIVersion,
		},
	}
	for _, opt := range opts {
		opt(clientConfig)
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return &Transport{client: client, logger: logger}, nil
}

// Send performs one GenerateContent call.
func (t *Transport) Send(ctx context.Context, req generation.Request) (*generation.Response, error) {
	if len(req.Parts) == 0 {
		return nil, fmt.Errorf("%w: %w", generation.ErrFatal, ErrEmptyRequest)
	}

	parts := make([]*genai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.IsImage() {
			parts = append(parts, genai.NewPartFromBytes(p.Data, p.MIMEType))
		} else {
			parts = append(parts, genai.NewPartFromText(p.Text))
		}
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	t.logger.DebugContext(ctx, "calling GenerateContent",
		"model", req.Model,
		"parts", len(parts))

	resp, err := t.client.Models.GenerateContent(ctx, req.Model, contents, &genai.GenerateContentConfig{
		ResponseModalities: imageModalities,
	})
	if err != nil {
		return nil, translateError(err)
	}

	return convertResponse(resp), nil
}

func convertResponse(resp *genai.GenerateContentResponse) *generation.Response {
	out := &generation.Response{}
	if resp == nil {
		return out
	}

	for _, c := range resp.Candidates {
		var candidate generation.Candidate
		if c != nil && c.Content != nil {
			for _, p := range c.Content.Parts {
				if p == nil {
					continue
				}
				switch {
				case p.InlineData != nil:
					candidate.Parts = append(candidate.Parts, generation.ImagePart(p.InlineData.Data, p.InlineData.MIMEType))
				case p.Text != "":
					candidate.Parts = append(candidate.Parts, generation.TextPart(p.Text))
				}
			}
		}
		out.Candidates = append(out.Candidates, candidate)
	}
	return out
}

// translateError maps genai API errors onto generation.TransportError.
// Anything else (network failures, cancellation) is passed through.
func translateError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &generation.TransportError{Code: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &generation.TransportError{Code: apiErrPtr.Code, Status: apiErrPtr.Status, Message: apiErrPtr.Message}
	}
	return err
}

type missingKeyTransport struct{}

func (missingKeyTransport) Send(context.Context, generation.Request) (*generation.Response, error) {
	return nil, fmt.Errorf("%w: %w", generation.ErrFatal, generation.ErrMissingCredentials)
}
