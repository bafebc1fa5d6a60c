package api_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/api"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/api/middleware"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/api/shared"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/auth"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/config"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/generation"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.TraceHeader))

	var body api.HealthResponse
	decode(t, resp, &body)
	assert.Equal(t, "ok", body.Status)
}

func TestListTools(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/tools", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tools []api.ToolResponse
	decode(t, resp, &tools)
	require.Len(t, tools, len(domain.Tools()))
	for _, tool := range tools {
		assert.Equal(t, tool.Tool == domain.ToolEcommerce, len(tool.Variants) > 0, tool.Tool)
	}
}

func TestUnknownTool(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/tools/hats/jobs", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body shared.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, "Unknown tool", body.Error)
	assert.NotEmpty(t, body.TraceID)
}

func TestSubmitAndDownload(t *testing.T) {
	ts := newTestServer(t)

	ids := ts.submit(t, domain.ToolVariants, "bag.png", "shoe.png")
	state := ts.waitIdle(t, domain.ToolVariants)
	assert.Equal(t, 2, state.Stats.Completed)
	require.Len(t, state.Jobs, 2)
	assert.Equal(t, ids[0], state.Jobs[0].ID)
	assert.Equal(t, "bag_variant.jpg", state.Jobs[0].Output.Name)

	resp := ts.do(t, http.MethodGet, fmt.Sprintf("/api/tools/variants/jobs/%s/output", ids[0]), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "bag_variant.jpg")

	img, err := jpeg.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())

	resp = ts.do(t, http.MethodGet, "/api/tools/variants/jobs/"+ids[1].String(), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var job domain.Job
	decode(t, resp, &job)
	assert.Equal(t, domain.JobStatusSuccess, job.Status)
}

func TestSubmitRejectsBadUploads(t *testing.T) {
	ts := newTestServer(t)

	t.Run("not an image", func(t *testing.T) {
		body, ct := multipartBody(t,
			upload{field: api.FieldImages, name: "ok.png", data: testutils.PNG(t, 8, 8)},
			upload{field: api.FieldImages, name: "notes.txt", data: []byte("hello there")})
		resp := ts.do(t, http.MethodPost, "/api/tools/gloves/jobs", body, ct)
		assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
		assert.Equal(t, 0, ts.store.Len(), "accepted files are released on failure")
	})

	t.Run("no files", func(t *testing.T) {
		body, ct := multipartBody(t)
		resp := ts.do(t, http.MethodPost, "/api/tools/gloves/jobs", body, ct)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("not multipart", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/tools/gloves/jobs", strings.NewReader("{}"), "application/json")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("too large", func(t *testing.T) {
		big := append(testutils.PNG(t, 8, 8), bytes.Repeat([]byte{0}, 1<<20)...)
		body, ct := multipartBody(t, upload{field: api.FieldImages, name: "big.png", data: big})
		resp := ts.do(t, http.MethodPost, "/api/tools/gloves/jobs", body, ct)
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	})
}

func TestRetryEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.generator.SetErr(fmt.Errorf("%w: boom", generation.ErrQuotaExceeded))

	ids := ts.submit(t, domain.ToolGloves, "a.png")
	state := ts.waitIdle(t, domain.ToolGloves)
	require.Equal(t, domain.JobStatusError, state.Jobs[0].Status)
	assert.Equal(t, generation.MessageQuotaExceeded, state.Jobs[0].ErrorDetail)

	ts.generator.SetErr(nil)

	resp := ts.do(t, http.MethodPost, "/api/tools/gloves/jobs/retry-failed", nil, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var count api.RetryFailedResponse
	decode(t, resp, &count)
	assert.Equal(t, 1, count.Count)

	state = ts.waitIdle(t, domain.ToolGloves)
	assert.Equal(t, domain.JobStatusSuccess, state.Jobs[0].Status)

	resp = ts.do(t, http.MethodPost, "/api/tools/gloves/jobs/"+ids[0].String()+"/retry", nil, "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	ts.waitIdle(t, domain.ToolGloves)

	resp = ts.do(t, http.MethodPost, "/api/tools/gloves/jobs/"+uuid.NewString()+"/retry", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/tools/gloves/jobs/not-a-uuid/retry", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOutputBeforeSuccess(t *testing.T) {
	ts := newTestServer(t)
	ts.generator.SetErr(errors.New("nope"))

	ids := ts.submit(t, domain.ToolGloves, "a.png")
	ts.waitIdle(t, domain.ToolGloves)

	resp := ts.do(t, http.MethodGet, "/api/tools/gloves/jobs/"+ids[0].String()+"/output", nil, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestClearJobs(t *testing.T) {
	ts := newTestServer(t)

	ts.submit(t, domain.ToolGloves, "a.png", "b.png")
	ts.waitIdle(t, domain.ToolGloves)

	resp := ts.do(t, http.MethodDelete, "/api/tools/gloves/jobs", nil, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Empty(t, ts.listJobs(t, domain.ToolGloves).Jobs)
	require.Eventually(t, func() bool { return ts.store.Len() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestReferenceEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ids := ts.submit(t, domain.ToolGloves, "ref.png")
	ts.waitIdle(t, domain.ToolGloves)

	resp := ts.doJSON(t, http.MethodPut, "/api/tools/gloves/reference", api.ReferenceRequest{JobID: ids[0].String()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ref api.ReferenceResponse
	decode(t, resp, &ref)
	require.NotNil(t, ref.Reference)
	assert.Equal(t, ids[0], *ref.Reference)
	assert.Equal(t, ids[0], *ts.listJobs(t, domain.ToolGloves).Reference)

	// Marking the same job again toggles it off.
	resp = ts.doJSON(t, http.MethodPut, "/api/tools/gloves/reference", api.ReferenceRequest{JobID: ids[0].String()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &ref)
	assert.Nil(t, ref.Reference)

	resp = ts.doJSON(t, http.MethodPut, "/api/tools/gloves/reference", api.ReferenceRequest{JobID: "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.doJSON(t, http.MethodPut, "/api/tools/gloves/reference", api.ReferenceRequest{JobID: uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, "/api/tools/gloves/reference", nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.doJSON(t, http.MethodPut, "/api/tools/scene/reference", api.ReferenceRequest{JobID: ids[0].String()})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSceneEndpoints(t *testing.T) {
	ts := newTestServer(t)

	ts.submit(t, domain.ToolScene, "lamp.png")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, ts.listJobs(t, domain.ToolScene).Stats.Pending, "waits for a scene")

	body, ct := multipartBody(t, upload{field: api.FieldImage, name: "room.png", data: testutils.PNG(t, 8, 8)})
	resp := ts.do(t, http.MethodPut, "/api/tools/scene/scene", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	state := ts.waitIdle(t, domain.ToolScene)
	require.NotNil(t, state.SideInput)
	assert.Equal(t, "room.png", state.SideInput.Name)
	assert.Equal(t, "lamp_composed.jpg", state.Jobs[0].Output.Name)

	resp = ts.do(t, http.MethodDelete, "/api/tools/scene/scene", nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Nil(t, ts.listJobs(t, domain.ToolScene).SideInput)

	body, ct = multipartBody(t, upload{field: api.FieldImage, name: "room.png", data: testutils.PNG(t, 8, 8)})
	resp = ts.do(t, http.MethodPut, "/api/tools/gloves/scene", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVariantEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ids := ts.submit(t, domain.ToolEcommerce, "bag.png")
	ts.waitIdle(t, domain.ToolEcommerce)
	path := "/api/tools/ecommerce/jobs/" + ids[0].String() + "/variants"

	resp := ts.doJSON(t, http.MethodPost, path, api.VariantsRequest{Kinds: []string{"macro_detail", "Hand Held"}})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var out api.SubmitResponse
	decode(t, resp, &out)
	assert.Len(t, out.JobIDs, 2)

	state := ts.waitIdle(t, domain.ToolEcommerce)
	assert.Equal(t, 3, state.Stats.Completed)

	tests := []struct {
		name    string
		path    string
		payload any
		status  int
	}{
		{"empty kinds", path, api.VariantsRequest{Kinds: []string{}}, http.StatusBadRequest},
		{"unknown kind", path, api.VariantsRequest{Kinds: []string{"poster"}}, http.StatusBadRequest},
		{"unknown field", path, map[string]any{"kinds": []string{"context"}, "extra": 1}, http.StatusBadRequest},
		{"missing parent", "/api/tools/ecommerce/jobs/" + uuid.NewString() + "/variants", api.VariantsRequest{Kinds: []string{"context"}}, http.StatusNotFound},
		{"unsupported tool", "/api/tools/gloves/jobs/" + ids[0].String() + "/variants", api.VariantsRequest{Kinds: []string{"context"}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.doJSON(t, http.MethodPost, tt.path, tt.payload)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestExportEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/tools/gloves/export", nil, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	ts.submit(t, domain.ToolGloves, "a.png", "a.png")
	ts.waitIdle(t, domain.ToolGloves)

	resp = ts.do(t, http.MethodGet, "/api/tools/gloves/export", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "processed_gloves.zip")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a_glove.jpg", "a_glove_2.jpg"}, names)
}

func TestAuthentication(t *testing.T) {
	tokens, err := auth.NewTokenService(config.AuthConfig{
		JWTSecret:     "test-secret-that-is-long-enough-for-testing",
		TokenLifetime: time.Hour,
	})
	require.NoError(t, err)
	ts := newTestServer(t, withTokens(tokens))

	resp := ts.do(t, http.MethodGet, "/api/tools", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health stays public")

	token, err := tokens.GenerateToken(context.Background(), "tester")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"valid bearer", "Bearer " + token, "", http.StatusOK},
		{"lowercase scheme", "bearer " + token, "", http.StatusOK},
		{"query token", "", "?access_token=" + token, http.StatusOK},
		{"wrong scheme", "Basic " + token, "", http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/tools"+tt.query, nil)
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := ts.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/tools/gloves/jobs", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://studio.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
