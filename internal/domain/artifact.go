package domain

// ArtifactRef is a read-only handle to bytes held by an artifact store.
// Jobs carry references, never the bytes themselves.
type ArtifactRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// IsZero reports whether the reference points at nothing.
func (r ArtifactRef) IsZero() bool {
	return r.ID == ""
}
