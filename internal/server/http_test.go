package server

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestHTTP_UploadAndRecommend(t *testing.T) {
	h, _ := newHTTP(t, 0)

	rec := upload(t, h, "claim.pdf", "granted form bytes")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	claimID, _ := body["claim_id"].(string)
	require.NotEmpty(t, claimID)
	assert.Equal(t, false, body["deduplicated"])
	claim := body["claim"].(map[string]any)
	assert.Equal(t, "Ramesh Kumar", claim["fields"].(map[string]any)["claimant_name"].(map[string]any)["text"])

	again := upload(t, h, "copy.pdf", "granted form bytes")
	require.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, claimID, decode(t, again)["claim_id"])

	rec = do(h, http.MethodGet, "/claims/"+claimID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, claimID, decode(t, rec)["id"])

	rec = do(h, http.MethodPost, "/recommend/"+claimID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	recs := decode(t, rec)["recommendations"].([]any)
	require.NotEmpty(t, recs)
	assert.LessOrEqual(t, len(recs), 5)
	first := recs[0].(map[string]any)
	assert.Equal(t, 1.0, first["score"])
	assert.Equal(t, 1.0, first["rank"])

	rec = do(h, http.MethodGet, "/recommend/"+claimID+"/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["history"].([]any), len(recs))
}

func TestHTTP_UploadRejections(t *testing.T) {
	h, _ := newHTTP(t, 64)

	rec := upload(t, h, "notes.docx", "granted")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, "UNSUPPORTED_FORMAT", decode(t, rec)["code"])

	rec = upload(t, h, "big.png", "granted"+strings.Repeat("x", 100))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = upload(t, h, "blank.png", "nothing readable")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "EXTRACTION_FAILED", decode(t, rec)["code"])

	missing := do(h, http.MethodPost, "/upload")
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestHTTP_ListClaimsByStatus(t *testing.T) {
	h, _ := newHTTP(t, 0)
	require.Equal(t, http.StatusCreated, upload(t, h, "a.pdf", "granted a").Code)
	require.Equal(t, http.StatusCreated, upload(t, h, "b.jpg", "pending b").Code)

	rec := do(h, http.MethodGet, "/claims")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, decode(t, rec)["count"])

	rec = do(h, http.MethodGet, "/claims?status=pending")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 1.0, body["count"])
	c := body["claims"].([]any)[0].(map[string]any)
	assert.Equal(t, "Sita Devi", c["fields"].(map[string]any)["claimant_name"].(map[string]any)["text"])

	rec = do(h, http.MethodGet, "/claims?status=rejected")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decode(t, rec)["claims"])

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/claims?status=maybe").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/claims?limit=-1").Code)

	rec = do(h, http.MethodGet, "/claims?limit=1&offset=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decode(t, rec)["count"])
}

func TestHTTP_Map(t *testing.T) {
	h, _ := newHTTP(t, 0)

	rec := do(h, http.MethodGet, "/map")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	empty := decode(t, rec)
	assert.Equal(t, "FeatureCollection", empty["type"])
	assert.Equal(t, []any{}, empty["features"])

	require.Equal(t, http.StatusCreated, upload(t, h, "a.pdf", "granted a").Code)
	require.Equal(t, http.StatusCreated, upload(t, h, "b.jpg", "pending b").Code)

	rec = do(h, http.MethodGet, "/map?status=granted")
	require.Equal(t, http.StatusOK, rec.Code)
	features := decode(t, rec)["features"].([]any)
	require.Len(t, features, 1)
	f := features[0].(map[string]any)
	assert.Equal(t, "Feature", f["type"])
	assert.Equal(t, "Polygon", f["geometry"].(map[string]any)["type"])
	props := f["properties"].(map[string]any)
	assert.Equal(t, f["id"], props["id"])
	assert.Equal(t, "Ramesh Kumar", props["claimant_name"])
	assert.Equal(t, "Bhimpur", props["village"])
	assert.Equal(t, "granted", props["status"])
	assert.InDelta(t, 2.5, props["area_ha"], 1e-9)

	rec = do(h, http.MethodGet, "/map")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["features"].([]any), 2)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/map?status=maybe").Code)
}

func TestHTTP_NotFoundAndBadIDs(t *testing.T) {
	h, _ := newHTTP(t, 0)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/claims/"+uuid.NewString()).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/claims/not-a-uuid").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/recommend/"+uuid.NewString()).Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/recommend/"+uuid.NewString()+"/history").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/schemes/nope").Code)
}

func TestHTTP_SchemesAndHealth(t *testing.T) {
	h, _ := newHTTP(t, 0)

	rec := do(h, http.MethodGet, "/schemes")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["schemes"].([]any), 6)

	rec = do(h, http.MethodGet, "/schemes/legal_aid")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "legal_aid", decode(t, rec)["id"])

	rec = do(h, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestHTTP_Export(t *testing.T) {
	h, _ := newHTTP(t, 0)
	require.Equal(t, http.StatusCreated, upload(t, h, "a.pdf", "granted a").Code)

	rec := do(h, http.MethodGet, "/claims/export")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "claims.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Claims")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/claims/export?status=unknown").Code)
}
