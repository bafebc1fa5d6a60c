package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/api"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/auth"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/events"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/imaging"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/mocks"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/platform/memory"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/prompt"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/task"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/testutils"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	*httptest.Server
	store     *memory.ArtifactStore
	generator *mocks.MockGenerator
}

type serverOption func(*api.RouterConfig)

func withTokens(tokens auth.TokenService) serverOption {
	return func(cfg *api.RouterConfig) {
		cfg.Tokens = tokens
	}
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	logger := testLogger()

	builder, err := prompt.NewBuilder("test-model")
	require.NoError(t, err)
	canon, err := imaging.NewCanonicalizer(32, 90)
	require.NoError(t, err)

	ts := &testServer{
		store:     memory.NewArtifactStore(),
		generator: mocks.NewEchoGenerator(),
	}

	broadcaster := events.NewBroadcaster(logger)
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(broadcaster)

	studio, err := task.NewStudio(task.Dependencies{
		Store:         ts.store,
		Generator:     ts.generator,
		Builder:       builder,
		Canonicalizer: canon,
		Emitter:       emitter,
	}, logger)
	require.NoError(t, err)
	require.NoError(t, studio.Start())

	handler, err := api.NewStudioHandler(api.HandlerConfig{
		Studio:         studio,
		Store:          ts.store,
		Broadcaster:    broadcaster,
		MaxUploadBytes: 1 << 20,
		Heartbeat:      50 * time.Millisecond,
	}, logger)
	require.NoError(t, err)

	cfg := api.RouterConfig{Handler: handler}
	for _, opt := range opts {
		opt(&cfg)
	}

	ts.Server = httptest.NewServer(api.NewRouter(cfg, logger))
	t.Cleanup(func() {
		ts.Close()
		studio.Stop()
	})
	return ts
}

type upload struct {
	field string
	name  string
	data  []byte
}

func multipartBody(t *testing.T, files ...upload) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (ts *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (ts *testServer) doJSON(t *testing.T, method, path string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return ts.do(t, method, path, body, "application/json")
}

func (ts *testServer) submit(t *testing.T, tool domain.Tool, names ...string) []uuid.UUID {
	t.Helper()
	files := make([]upload, 0, len(names))
	for _, name := range names {
		files = append(files, upload{field: api.FieldImages, name: name, data: testutils.PNG(t, 8, 8)})
	}
	body, ct := multipartBody(t, files...)
	resp := ts.do(t, http.MethodPost, "/api/tools/"+string(tool)+"/jobs", body, ct)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out api.SubmitResponse
	decode(t, resp, &out)
	require.Len(t, out.JobIDs, len(names))
	return out.JobIDs
}

func (ts *testServer) listJobs(t *testing.T, tool domain.Tool) api.JobListResponse {
	t.Helper()
	resp := ts.do(t, http.MethodGet, "/api/tools/"+string(tool)+"/jobs", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out api.JobListResponse
	decode(t, resp, &out)
	return out
}

func (ts *testServer) waitIdle(t *testing.T, tool domain.Tool) api.JobListResponse {
	t.Helper()
	var state api.JobListResponse
	require.Eventually(t, func() bool {
		resp, err := ts.Client().Get(ts.URL + "/api/tools/" + string(tool) + "/jobs")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var current api.JobListResponse
		if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&current) != nil {
			return false
		}
		state = current
		return state.Stats.Pending == 0 && state.Stats.Processing == 0
	}, 3*time.Second, 10*time.Millisecond)
	return state
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}
