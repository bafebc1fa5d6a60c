package generation

import (
	"context"
	"fmt"
)

// Part is one element of a generation request or response: either text or
// inline binary data with its MIME type.
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

// TextPart creates a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart creates an inline image part.
func ImagePart(data []byte, mimeType string) Part {
	return Part{Data: data, MIMEType: mimeType}
}

// IsImage reports whether the part carries binary data.
func (p Part) IsImage() bool {
	return len(p.Data) > 0
}

// Request is an opaque generation request. Parts are sent in order.
type Request struct {
	Model string
	Parts []Part
}

// Candidate is one result offered by the service. A nil Parts slice means the
// candidate came back without content.
type Candidate struct {
	Parts []Part
}

// Response is the service's reply to one Request.
type Response struct {
	Candidates []Candidate
}

// Image is the raw output of a successful generation.
type Image struct {
	Data     []byte
	MIMEType string
}

// ExtractImage validates resp and returns the first inline image of its first
// candidate. Any missing level is reported as ErrNoImage.
func ExtractImage(resp *Response) (*Image, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates in response", ErrNoImage)
	}

	candidate := resp.Candidates[0]
	if len(candidate.Parts) == 0 {
		return nil, fmt.Errorf("%w: no content parts in response", ErrNoImage)
	}

	for _, part := range candidate.Parts {
		if part.IsImage() {
			return &Image{Data: part.Data, MIMEType: part.MIMEType}, nil
		}
	}

	return nil, fmt.Errorf("%w: no image data found in the response", ErrNoImage)
}

// Transport performs one external generation call. Implementations return a
// *TransportError when the service answered with a failure status.
type Transport interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// Generator produces one image per request.
// This interface serves as a boundary between the application core and
// the external generation service.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Image, error)
}

// TransportError is a failure reported by the external service.
type TransportError struct {
	Code    int
	Status  string
	Message string
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != "" && e.Code != 0:
		return fmt.Sprintf("generation service error %d %s: %s", e.Code, e.Status, e.Message)
	case e.Code != 0:
		return fmt.Sprintf("generation service error %d: %s", e.Code, e.Message)
	default:
		return fmt.Sprintf("generation service error: %s", e.Message)
	}
}
