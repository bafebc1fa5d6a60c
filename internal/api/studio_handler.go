package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/api/shared"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/events"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/export"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/platform/logger"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/store"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/task"
)

// Multipart field names
const (
	FieldImages = "images"
	FieldImage  = "image"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

var acceptedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// StudioHandler serves the per-tool queue operations.
type StudioHandler struct {
	studio         *task.Studio
	store          store.ArtifactStore
	broadcaster    *events.Broadcaster
	maxUploadBytes int64
	heartbeat      time.Duration
	logger         *slog.Logger
}

// HandlerConfig holds the collaborators of a StudioHandler.
type HandlerConfig struct {
	Studio         *task.Studio
	Store          store.ArtifactStore
	Broadcaster    *events.Broadcaster
	MaxUploadBytes int64
	// Heartbeat is the interval of SSE keep-alive comments.
	Heartbeat time.Duration
}

// NewStudioHandler creates a StudioHandler.
func NewStudioHandler(cfg HandlerConfig, logger *slog.Logger) (*StudioHandler, error) {
	switch {
	case cfg.Studio == nil:
		return nil, errors.New("studio cannot be nil")
	case cfg.Store == nil:
		return nil, errors.New("artifact store cannot be nil")
	case cfg.Broadcaster == nil:
		return nil, errors.New("broadcaster cannot be nil")
	case logger == nil:
		return nil, errors.New("logger cannot be nil")
	case cfg.MaxUploadBytes <= 0:
		return nil, fmt.Errorf("max upload bytes must be positive, got %d", cfg.MaxUploadBytes)
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 15 * time.Second
	}

	return &StudioHandler{
		studio:         cfg.Studio,
		store:          cfg.Store,
		broadcaster:    cfg.Broadcaster,
		maxUploadBytes: cfg.MaxUploadBytes,
		heartbeat:      cfg.Heartbeat,
		logger:         logger.With("component", "studio_handler"),
	}, nil
}

// dispatcher resolves the {tool} path parameter, writing an error response
// when it is unknown.
func (h *StudioHandler) dispatcher(w http.ResponseWriter, r *http.Request) (*task.Dispatcher, bool) {
	tool, err := getPathTool(r)
	if err == nil {
		var d *task.Dispatcher
		if d, err = h.studio.Dispatcher(tool); err == nil {
			return d, true
		}
	}
	HandleAPIError(w, r, err, "")
	return nil, false
}

// ListTools handles GET /api/tools.
func (h *StudioHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	tools := make([]ToolResponse, 0, len(domain.Tools()))
	for _, tool := range domain.Tools() {
		tools = append(tools, toolResponse(tool))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tools)
}

// ListJobs handles GET /api/tools/{tool}/jobs.
func (h *StudioHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dispatcher(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, queueState(d))
}

func queueState(d *task.Dispatcher) JobListResponse {
	return JobListResponse{
		Tool:      d.Tool(),
		Jobs:      d.Jobs(),
		Stats:     d.Stats(),
		Reference: optionalID(d.Reference()),
		SideInput: d.SideInput(),
	}
}

// SubmitJobs handles POST /api/tools/{tool}/jobs with a multipart body of
// one or more images.
func (h *StudioHandler) SubmitJobs(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dispatcher(w, r)
	if !ok {
		return
	}
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	refs, err := h.storeUploads(w, r, FieldImages, "images[]")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	ids, err := d.Submit(r.Context(), refs)
	if err != nil {
		h.releaseAll(r.Context(), refs)
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("images submitted", "tool", d.Tool(), "count", len(ids))
	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitResponse{JobIDs: ids})
}

// ClearJobs handles DELETE /api/tools/{tool}/jobs.
func (h *StudioHandler) ClearJobs(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dispatcher(w, r)
	if !ok {
		return
	}
	if err := d.Clear(r.Context()); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Warn("queue cleared with release errors", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetJob handles GET /api/tools/{tool}/jobs/{id}.
func (h *StudioHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dispatcher(w, r)
	if !ok {
		return
	}
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	job, err := d.Job(id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, job)
}

// RetryJob handles POST /api/tools/{tool}/jobs/{id}/retry.
func (h *StudioHandler) RetryJob(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dispatcher(w, r)
	if !ok {
		return
	}
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := d.Retry(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	job, err := d.Job(id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, job)
}

// RetryFailed handles POST /api/tools/{tool}/jobs/retry-failed.
func (h *StudioHandler) RetryFailed(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dispatcher(w, r)
	if !ok {
		return
	}
	count := d.RetryAllFailed(r.Context())
	shared.RespondWithJSON(w, r, http.StatusAccepted, RetryFailedResponse{Count: count})
}

// SpawnVariants handles POST /api/tools/{tool}/jobs/{id}/variants.
func (h *StudioHandler) SpawnVariants(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dispatcher(w, r)
	if !ok {
		return
	}
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req VariantsRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, fmt.Errorf("%w: %w", domain.ErrValidation, err), "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	ids, err := d.SpawnVariants(r.Context(), id, req.Kinds)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitResponse{JobIDs: ids})
}

// GetOutput handles GET /api/tools/{tool}/jobs/{id}/output.
func (h *StudioHandler) GetOutput(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dispatcher(w, r)
	if !ok {
		return
	}
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	data, job, err := d.OutputBytes(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.Header().Set("Content-Type", job.Output.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", attachment(export.EntryName(job.Output.Name)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// SetReference handles PUT /api/tools/{tool}/reference. Marking the current
// reference again clears it.
func (h *StudioHandler) SetReference(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dispatcher(w, r)
	if !ok {
		return
	}

	var req ReferenceRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, fmt.Errorf("%w: %w", domain.ErrValidation, err), "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	id, err := uuid.Parse(req.JobID)
	if err != nil {
		HandleAPIError(w, r, fmt.Errorf("%w: job_id", domain.ErrInvalidID), "")
		return
	}

	ref, err := d.SetReference(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ReferenceResponse{Reference: optionalID(ref)})
}

// ClearReference handles DELETE /api/tools/{tool}/reference.
func (h *StudioHandler) ClearReference(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dispatcher(w, r)
	if !ok {
		return
	}
	if _, err := d.SetReference(r.Context(), uuid.Nil); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetScene handles PUT /api/tools/{tool}/scene with a multipart image.
func (h *StudioHandler) SetScene(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dispatcher(w, r)
	if !ok {
		return
	}
	if !d.Tool().RequiresSideInput() {
		HandleAPIError(w, r, task.ErrSideInputUnsupported, "")
		return
	}

	refs, err := h.storeUploads(w, r, FieldImage)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if len(refs) != 1 {
		h.releaseAll(r.Context(), refs)
		HandleAPIError(w, r, fmt.Errorf("%w: exactly one scene image expected", domain.ErrValidation), "Exactly one scene image expected")
		return
	}

	if err := d.SetSideInput(r.Context(), &refs[0]); err != nil {
		if errors.Is(err, task.ErrSideInputUnsupported) || errors.Is(err, domain.ErrValidation) {
			h.releaseAll(r.Context(), refs)
			HandleAPIError(w, r, err, "")
			return
		}
		logger.FromContextOrDefault(r.Context(), h.logger).Warn("previous scene release failed", "error", err)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, refs[0])
}

// ClearScene handles DELETE /api/tools/{tool}/scene.
func (h *StudioHandler) ClearScene(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dispatcher(w, r)
	if !ok {
		return
	}
	if err := d.SetSideInput(r.Context(), nil); err != nil {
		if errors.Is(err, task.ErrSideInputUnsupported) {
			HandleAPIError(w, r, err, "")
			return
		}
		logger.FromContextOrDefault(r.Context(), h.logger).Warn("scene release failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /api/tools/{tool}/export.
func (h *StudioHandler) Export(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dispatcher(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	n, err := export.Archive(r.Context(), d, &buf)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("archive exported", "tool", d.Tool(), "entries", n)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Content-Disposition", attachment(export.ArchiveName(d.Tool())))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}

// storeUploads reads every image in the named multipart fields and puts it
// into the artifact store. Nothing is left stored when an error is returned.
func (h *StudioHandler) storeUploads(w http.ResponseWriter, r *http.Request, fields ...string) ([]domain.ArtifactRef, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, fmt.Errorf("%w: %w", ErrUploadTooLarge, err)
		}
		return nil, fmt.Errorf("%w: invalid multipart body: %w", domain.ErrValidation, err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var files []*multipart.FileHeader
	for _, field := range fields {
		files = append(files, r.MultipartForm.File[field]...)
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	refs := make([]domain.ArtifactRef, 0, len(files))
	for _, fh := range files {
		ref, err := h.storeUpload(r.Context(), fh)
		if err != nil {
			h.releaseAll(r.Context(), refs)
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (h *StudioHandler) storeUpload(ctx context.Context, fh *multipart.FileHeader) (domain.ArtifactRef, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.ArtifactRef{}, fmt.Errorf("failed to open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.ArtifactRef{}, fmt.Errorf("failed to read upload %q: %w", fh.Filename, err)
	}
	if len(data) == 0 {
		return domain.ArtifactRef{}, fmt.Errorf("%w: %q is empty", domain.ErrEmptyInput, fh.Filename)
	}

	mimeType := http.DetectContentType(data)
	if !acceptedImageTypes[mimeType] {
		return domain.ArtifactRef{}, fmt.Errorf("%w: %q is %s", ErrUnsupportedImage, fh.Filename, mimeType)
	}

	return h.store.Put(ctx, fh.Filename, mimeType, data)
}

func (h *StudioHandler) releaseAll(ctx context.Context, refs []domain.ArtifactRef) {
	for _, ref := range refs {
		if err := h.store.Release(context.WithoutCancel(ctx), ref); err != nil {
			h.logger.Warn("failed to release upload", "artifact_id", ref.ID, "error", err)
		}
	}
}
