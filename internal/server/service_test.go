package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwalker7631/kyo-qa-tool/constants"
	"github.com/kwalker7631/kyo-qa-tool/internal/archive"
	"github.com/kwalker7631/kyo-qa-tool/internal/common"
	"github.com/kwalker7631/kyo-qa-tool/internal/job"
	"github.com/kwalker7631/kyo-qa-tool/internal/patterns"
)

type fakeLauncher struct {
	submitted [][]string
	id        uuid.UUID
	err       error
}

func (f *fakeLauncher) Submit(_ context.Context, paths []string) (uuid.UUID, error) {
	f.submitted = append(f.submitted, paths)
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return f.id, nil
}

func (f *fakeLauncher) Shutdown(context.Context) {}

func newTestService(t *testing.T, launcher *fakeLauncher) (*Service, *job.Store) {
	t.Helper()
	dir := t.TempDir()
	store := job.NewStore(0, nil)
	pstore, err := patterns.NewStore(filepath.Join(dir, "patterns.json"), nil)
	require.NoError(t, err)
	svc := New(Options{
		Config:   common.ServerConfig{MaxUploadBytes: 64 << 20},
		WorkDir:  dir,
		Launcher: launcher,
		Store:    store,
		Patterns: pstore,
		Resolver: archive.NewResolver(dir, nil),
	})
	return svc, store
}

// multipartBody builds an upload request body with an excel part and the
// given named document payloads.
func multipartBody(t *testing.T, withExcel bool, docs map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if withExcel {
		w, err := mw.CreateFormFile("excel", "template.xlsx")
		require.NoError(t, err)
		_, err = w.Write([]byte("xlsx bytes"))
		require.NoError(t, err)
	}
	for name, content := range docs {
		w, err := mw.CreateFormFile("pdfs[]", name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func zipBytes(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("pdf bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func doProcess(t *testing.T, svc *Service, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/process", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	svc.handleProcess(w, r)
	return w
}

func TestProcessMissingTemplate(t *testing.T) {
	svc, _ := newTestService(t, &fakeLauncher{id: uuid.New()})

	body, ct := multipartBody(t, false, map[string][]byte{"a.pdf": []byte("x")})
	w := doProcess(t, svc, body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessMissingDocuments(t *testing.T) {
	svc, _ := newTestService(t, &fakeLauncher{id: uuid.New()})

	body, ct := multipartBody(t, true, nil)
	w := doProcess(t, svc, body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessNoUsableDocuments(t *testing.T) {
	svc, _ := newTestService(t, &fakeLauncher{id: uuid.New()})

	body, ct := multipartBody(t, true, map[string][]byte{"notes.txt": []byte("x")})
	w := doProcess(t, svc, body, ct)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "no_documents", resp["error"])
}

func TestProcessStartsJob(t *testing.T) {
	launcher := &fakeLauncher{id: uuid.New()}
	svc, _ := newTestService(t, launcher)

	body, ct := multipartBody(t, true, map[string][]byte{"doc one.pdf": []byte("x")})
	w := doProcess(t, svc, body, ct)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "started", resp["status"])
	assert.Equal(t, launcher.id.String(), resp["job_id"])

	require.Len(t, launcher.submitted, 1)
	require.Len(t, launcher.submitted[0], 1)
	base := filepath.Base(launcher.submitted[0][0])
	assert.Equal(t, "doc_one.pdf", base, "uploaded filename sanitized")
	_, err := os.Stat(launcher.submitted[0][0])
	assert.NoError(t, err, "upload persisted into the workdir")
}

func TestProcessExpandsZipUpload(t *testing.T) {
	launcher := &fakeLauncher{id: uuid.New()}
	svc, _ := newTestService(t, launcher)

	body, ct := multipartBody(t, true, map[string][]byte{
		"bundle.zip": zipBytes(t, "x.pdf", "y.pdf", "skip.txt"),
	})
	w := doProcess(t, svc, body, ct)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, launcher.submitted, 1)
	assert.Len(t, launcher.submitted[0], 2, "zip expanded to its pdf entries")
}

func TestProcessZipWithoutPDFsRejected(t *testing.T) {
	launcher := &fakeLauncher{id: uuid.New()}
	svc, _ := newTestService(t, launcher)

	body, ct := multipartBody(t, true, map[string][]byte{
		"bundle.zip": zipBytes(t, "readme.txt"),
	})
	w := doProcess(t, svc, body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, launcher.submitted)
}

func TestStatusBeforeAnySubmission(t *testing.T) {
	svc, _ := newTestService(t, &fakeLauncher{})

	w := httptest.NewRecorder()
	svc.handleStatus(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestStatusMessageReconstruction(t *testing.T) {
	svc, store := newTestService(t, &fakeLauncher{})

	rec := store.Create(2)
	rec.SetStatus(constants.JobStatusProcessing)
	rec.AppendLog("Processing job started.")
	rec.RecordOutcome(job.Outcome{Filename: "a.pdf", Status: constants.OutcomeSuccess})
	rec.RecordOutcome(job.Outcome{Filename: "b.pdf", Status: constants.OutcomeReview, Reason: "password protected"})
	svc.setCurrentJob(rec.ID())

	w := httptest.NewRecorder()
	svc.handleStatus(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var messages []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &messages))

	types := make([]string, 0, len(messages))
	for _, m := range messages {
		types = append(types, m["type"].(string))
	}
	assert.Equal(t, []string{"log", "log", "progress", "file_complete", "file_complete", "review_item"}, types)

	progress := messages[2]
	assert.EqualValues(t, 2, progress["current"])
	assert.EqualValues(t, 2, progress["total"])

	review := messages[5]["data"].(map[string]any)
	assert.Equal(t, "b.pdf", review["filename"])
	assert.Equal(t, "password protected", review["reason"])

	// terminal marker appears once the job completes
	rec.SetStatus(constants.JobStatusComplete)
	w = httptest.NewRecorder()
	svc.handleStatus(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &messages))
	last := messages[len(messages)-1]
	assert.Equal(t, "finish", last["type"])
	assert.Equal(t, "Complete", last["status"])
}

func TestResultNotFoundUntilReportExists(t *testing.T) {
	svc, store := newTestService(t, &fakeLauncher{})

	w := httptest.NewRecorder()
	svc.handleResult(w, httptest.NewRequest(http.MethodGet, "/api/result", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	rec := store.Create(1)
	svc.setCurrentJob(rec.ID())
	w = httptest.NewRecorder()
	svc.handleResult(w, httptest.NewRequest(http.MethodGet, "/api/result", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	report := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, os.WriteFile(report, []byte("workbook"), 0o644))
	rec.SetReportPath(report)

	w = httptest.NewRecorder()
	svc.handleResult(w, httptest.NewRequest(http.MethodGet, "/api/result", nil))
	require.Equal(t, http.StatusOK, w.Code)
	data, _ := io.ReadAll(w.Body)
	assert.Equal(t, "workbook", string(data))
}

func TestPatternsRoundTripOverHTTP(t *testing.T) {
	svc, _ := newTestService(t, &fakeLauncher{})

	w := httptest.NewRecorder()
	svc.handleGetPatterns(w, httptest.NewRequest(http.MethodGet, "/api/patterns", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got patternsPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, patterns.DefaultModelPatterns, got.ModelPatterns)

	payload := `{"model_patterns": ["\\bXX-\\d+\\b"], "qa_patterns": ["\\bQA-\\d+\\b"]}`
	r := httptest.NewRequest(http.MethodPost, "/api/patterns", bytes.NewBufferString(payload))
	w = httptest.NewRecorder()
	svc.handleSavePatterns(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	svc.handleGetPatterns(w, httptest.NewRequest(http.MethodGet, "/api/patterns", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []string{`\bXX-\d+\b`}, got.ModelPatterns)
}

func TestPatternsInvalidWriteRejectedAtomically(t *testing.T) {
	svc, _ := newTestService(t, &fakeLauncher{})

	payload := `{"model_patterns": ["([bad"], "qa_patterns": []}`
	r := httptest.NewRequest(http.MethodPost, "/api/patterns", bytes.NewBufferString(payload))
	w := httptest.NewRecorder()
	svc.handleSavePatterns(w, r)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_pattern", resp["error"])

	// stored defaults untouched
	w = httptest.NewRecorder()
	svc.handleGetPatterns(w, httptest.NewRequest(http.MethodGet, "/api/patterns", nil))
	var got patternsPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, patterns.DefaultModelPatterns, got.ModelPatterns)
}

func TestPatternsMalformedJSON(t *testing.T) {
	svc, _ := newTestService(t, &fakeLauncher{})

	r := httptest.NewRequest(http.MethodPost, "/api/patterns", bytes.NewBufferString("{bad"))
	w := httptest.NewRecorder()
	svc.handleSavePatterns(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
