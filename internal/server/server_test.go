package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/forest-rights-tracker/internal/catalog"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/common"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/export"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/fields"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/ingest"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/pipeline"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/recommend"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/repository"
)

// textByPrefix returns OCR text keyed on the first bytes of the payload so
// tests pick a claim form by upload content.
type textByPrefix map[string]string

func (f textByPrefix) Extract(_ context.Context, doc entity.RawDocument) (entity.ExtractedText, error) {
	for prefix, text := range f {
		if strings.HasPrefix(string(doc.Bytes), prefix) {
			return entity.TextFromString(text), nil
		}
	}
	return entity.ExtractedText{}, common.NewAppError(common.CodeExtractionFailed, "no text", common.ErrExtractionFailed)
}

var forms = textByPrefix{
	"granted": "Name of Claimant: Ramesh Kumar\nVillage: Bhimpur\nArea: 2.5 hectares\nStatus: Granted",
	"pending": "Applicant: Sita Devi\nGram: Korba\nLand 4 acres\nStatus: under review",
}

type deps struct {
	proc     *pipeline.Processor
	ingestor *ingest.FSIngestor
	store    repository.Store
}

func newDeps(t *testing.T, maxBytes int64) deps {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	store := repository.NewMemoryStore(nil)
	proc := pipeline.NewProcessor(nil, forms, fields.NewExtractor(nil), store, recommend.NewEngine(recommend.Config{Limit: 5}, nil), cat)
	return deps{proc: proc, ingestor: ingest.NewFSIngestor(proc, maxBytes, nil), store: store}
}

func newHTTP(t *testing.T, maxBytes int64) (http.Handler, deps) {
	t.Helper()
	d := newDeps(t, maxBytes)
	srv := NewHTTPServer(d.proc, d.ingestor, d.store, export.NewService(d.store, d.store, nil), common.ServerConfig{}, maxBytes, nil)
	return srv.Handler(), d
}

func upload(t *testing.T, h http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func do(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
