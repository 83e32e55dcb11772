package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vocalless/vocalless/internal/api/handler"
	"github.com/vocalless/vocalless/internal/jobs"
	"github.com/vocalless/vocalless/pkg/models"
)

// stubStarter records which jobs were started instead of running anything.
type stubStarter struct {
	mu      sync.Mutex
	started []uuid.UUID
}

func (s *stubStarter) Start(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, id)
}

func (s *stubStarter) startedIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.started...)
}

func jobsRouter(store *jobs.Store, starter handler.Starter) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/jobs", handler.NewSubmitHandler(store, starter))
	r.Get("/api/v1/jobs", handler.NewListJobsHandler(store))
	r.Get("/api/v1/jobs/{jobID}", handler.NewStatusHandler(store))
	r.Post("/api/v1/jobs/{jobID}/cancel", handler.NewCancelHandler(store))
	return r
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "expected data envelope, got %s", w.Body.String())
	return data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %s", w.Body.String())
	return errObj
}

// ========================================
// Submit
// ========================================

func TestSubmit_CreatesAndStartsJob(t *testing.T) {
	store := jobs.NewStore()
	starter := &stubStarter{}
	router := jobsRouter(store, starter)

	body := `{"items": [{"url": "https://example.com/watch?v=abc"}], "produce_video": true}`
	req := httptest.NewRequest("POST", "/api/v1/jobs", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	data := decodeData(t, w)
	jobID, err := uuid.Parse(data["job_id"].(string))
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{jobID}, starter.startedIDs())

	job, err := store.Get(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, job.Status)
	assert.Equal(t, 1, job.TotalItems)
	assert.True(t, job.Options.ProduceVideo)
	assert.True(t, job.Options.SaveLocally, "save_locally defaults to true")
}

func TestSubmit_StripsPlaylistParams(t *testing.T) {
	store := jobs.NewStore()
	router := jobsRouter(store, &stubStarter{})

	body := `{"items": [{"url": "https://example.com/watch?v=abc&list=PLxyz&index=2"}]}`
	req := httptest.NewRequest("POST", "/api/v1/jobs", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	listed := store.List()
	require.Len(t, listed, 1)
	assert.NotContains(t, listed[0].Items[0].URL, "list=")
}

func TestSubmit_NoItems(t *testing.T) {
	store := jobs.NewStore()
	starter := &stubStarter{}
	router := jobsRouter(store, starter)

	req := httptest.NewRequest("POST", "/api/v1/jobs", strings.NewReader(`{"items": []}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, w)["code"])
	assert.Empty(t, store.List(), "no record created for rejected submission")
	assert.Empty(t, starter.startedIDs())
}

func TestSubmit_ItemWithoutSource(t *testing.T) {
	router := jobsRouter(jobs.NewStore(), &stubStarter{})

	req := httptest.NewRequest("POST", "/api/v1/jobs", strings.NewReader(`{"items": [{}]}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmit_ItemWithBothSources(t *testing.T) {
	router := jobsRouter(jobs.NewStore(), &stubStarter{})

	body := `{"items": [{"url": "https://example.com/a", "file": "b.mp3"}]}`
	req := httptest.NewRequest("POST", "/api/v1/jobs", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmit_InvalidJSON(t *testing.T) {
	router := jobsRouter(jobs.NewStore(), &stubStarter{})

	req := httptest.NewRequest("POST", "/api/v1/jobs", strings.NewReader(`not-json`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmit_SaveLocallyFalse(t *testing.T) {
	store := jobs.NewStore()
	router := jobsRouter(store, &stubStarter{})

	body := `{"items": [{"url": "https://example.com/a"}], "save_locally": false}`
	req := httptest.NewRequest("POST", "/api/v1/jobs", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	listed := store.List()
	require.Len(t, listed, 1)
	assert.False(t, listed[0].Options.SaveLocally)
}

// ========================================
// Status
// ========================================

func TestStatus_UnknownID(t *testing.T) {
	router := jobsRouter(jobs.NewStore(), &stubStarter{})

	req := httptest.NewRequest("GET", "/api/v1/jobs/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w)["code"])
}

func TestStatus_MalformedID(t *testing.T) {
	router := jobsRouter(jobs.NewStore(), &stubStarter{})

	req := httptest.NewRequest("GET", "/api/v1/jobs/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatus_QueuedJob(t *testing.T) {
	store := jobs.NewStore()
	router := jobsRouter(store, &stubStarter{})
	job := store.Create([]models.ItemSpec{{URL: "https://example.com/a"}}, models.JobOptions{SaveLocally: true})

	req := httptest.NewRequest("GET", "/api/v1/jobs/"+job.ID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "queued", data["status"])
	assert.Equal(t, float64(0), data["progress"])
	assert.Equal(t, "Queued", data["message"])
	assert.Equal(t, []any{}, data["results"])
}

func TestStatus_RunningJobReportsLiveProgress(t *testing.T) {
	store := jobs.NewStore()
	router := jobsRouter(store, &stubStarter{})
	job := store.Create([]models.ItemSpec{{URL: "https://example.com/a"}}, models.JobOptions{})

	// Halfway through an item whose average duration is 3 minutes.
	require.NoError(t, store.Update(job.ID, func(j *models.Job) {
		j.Status = models.JobStatusRunning
		j.CurrentIndex = 1
		j.ItemStartedAt = time.Now().Add(-90 * time.Second)
	}))

	req := httptest.NewRequest("GET", "/api/v1/jobs/"+job.ID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "running", data["status"])
	assert.InDelta(t, 50, data["progress"].(float64), 2)
}

func TestStatus_CompletedJobReportsFullProgress(t *testing.T) {
	store := jobs.NewStore()
	router := jobsRouter(store, &stubStarter{})
	job := store.Create([]models.ItemSpec{{URL: "https://example.com/a"}}, models.JobOptions{})

	require.NoError(t, store.Update(job.ID, func(j *models.Job) {
		j.Status = models.JobStatusCompleted
		j.Results = []models.ItemResult{{Source: "https://example.com/a", Success: true, Title: "a"}}
	}))

	req := httptest.NewRequest("GET", "/api/v1/jobs/"+job.ID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "completed", data["status"])
	assert.Equal(t, float64(100), data["progress"])
	assert.Len(t, data["results"].([]any), 1)
}

// ========================================
// Cancel
// ========================================

func TestCancel_FlagsJob(t *testing.T) {
	store := jobs.NewStore()
	router := jobsRouter(store, &stubStarter{})
	job := store.Create([]models.ItemSpec{{URL: "https://example.com/a"}}, models.JobOptions{})

	req := httptest.NewRequest("POST", "/api/v1/jobs/"+job.ID.String()+"/cancel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	got, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.True(t, got.CancelRequested)
}

func TestCancel_Idempotent(t *testing.T) {
	store := jobs.NewStore()
	router := jobsRouter(store, &stubStarter{})
	job := store.Create([]models.ItemSpec{{URL: "https://example.com/a"}}, models.JobOptions{})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/api/v1/jobs/"+job.ID.String()+"/cancel", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestCancel_UnknownID(t *testing.T) {
	router := jobsRouter(jobs.NewStore(), &stubStarter{})

	req := httptest.NewRequest("POST", "/api/v1/jobs/"+uuid.NewString()+"/cancel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancel_TerminalJobStillAcknowledged(t *testing.T) {
	store := jobs.NewStore()
	router := jobsRouter(store, &stubStarter{})
	job := store.Create([]models.ItemSpec{{URL: "https://example.com/a"}}, models.JobOptions{})
	require.NoError(t, store.Update(job.ID, func(j *models.Job) {
		j.Status = models.JobStatusCompleted
	}))

	req := httptest.NewRequest("POST", "/api/v1/jobs/"+job.ID.String()+"/cancel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

// ========================================
// List
// ========================================

func TestList_Empty(t *testing.T) {
	router := jobsRouter(jobs.NewStore(), &stubStarter{})

	req := httptest.NewRequest("GET", "/api/v1/jobs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(0), data["count"])
}

func TestList_ReturnsSummaries(t *testing.T) {
	store := jobs.NewStore()
	router := jobsRouter(store, &stubStarter{})
	store.Create([]models.ItemSpec{{URL: "https://example.com/a"}}, models.JobOptions{})
	store.Create([]models.ItemSpec{{URL: "https://example.com/b"}, {URL: "https://example.com/c"}}, models.JobOptions{})

	req := httptest.NewRequest("GET", "/api/v1/jobs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(2), data["count"])
	list := data["jobs"].([]any)
	require.Len(t, list, 2)
	first := list[0].(map[string]any)
	assert.Equal(t, "queued", first["status"])
}

// ========================================
// Upload
// ========================================

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUpload_StoresFile(t *testing.T) {
	dir := t.TempDir()
	h := handler.NewUploadHandler(dir)

	body, contentType := multipartBody(t, "file", "My Song.mp3", []byte("audio-bytes"))
	req := httptest.NewRequest("POST", "/api/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	stored := data["file"].(string)
	assert.True(t, strings.HasSuffix(stored, ".mp3"))
	assert.Contains(t, stored, "My_Song")
	assert.Equal(t, "My Song.mp3", data["filename"])

	saved, err := os.ReadFile(filepath.Join(dir, stored))
	require.NoError(t, err)
	assert.Equal(t, []byte("audio-bytes"), saved)
}

func TestUpload_RejectsUnsupportedFormat(t *testing.T) {
	h := handler.NewUploadHandler(t.TempDir())

	body, contentType := multipartBody(t, "file", "notes.txt", []byte("text"))
	req := httptest.NewRequest("POST", "/api/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNSUPPORTED_FORMAT", decodeError(t, w)["code"])
}

func TestUpload_MissingFileField(t *testing.T) {
	h := handler.NewUploadHandler(t.TempDir())

	body, contentType := multipartBody(t, "wrong_field", "a.mp3", []byte("x"))
	req := httptest.NewRequest("POST", "/api/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ========================================
// Files
// ========================================

func filesRouter(outputDir string) http.Handler {
	r := chi.NewRouter()
	r.Get("/output/*", handler.NewFilesHandler(outputDir))
	return r
}

func TestFiles_ServesArtifact(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "instrumentals"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "instrumentals", "track.mp3"), []byte("mp3-bytes"), 0o644))

	router := filesRouter(dir)
	req := httptest.NewRequest("GET", "/output/instrumentals/track.mp3", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mp3-bytes", w.Body.String())
	assert.Empty(t, w.Header().Get("Content-Disposition"))
}

func TestFiles_DownloadDisposition(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "track.mp3"), []byte("mp3"), 0o644))

	router := filesRouter(dir)
	req := httptest.NewRequest("GET", "/output/track.mp3?download=true", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), `attachment; filename="track.mp3"`)
}

func TestFiles_NotFound(t *testing.T) {
	router := filesRouter(t.TempDir())
	req := httptest.NewRequest("GET", "/output/absent.mp3", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFiles_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	router := filesRouter(dir)

	req := httptest.NewRequest("GET", "/output/..%2F..%2Fetc%2Fpasswd", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
