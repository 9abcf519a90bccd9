package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/forest-rights-tracker/constants"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/common"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/export"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/ingest"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/pipeline"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/repository"
)

// multipartOverhead is allowed on top of the document size for form framing.
const multipartOverhead = 1 << 20

// HTTPServer exposes the claim pipeline as a JSON API.
type HTTPServer struct {
	proc     *pipeline.Processor
	ingestor ingest.Ingestor
	store    repository.Store
	exporter *export.Service
	cfg      common.ServerConfig
	maxBytes int64
	logger   *slog.Logger
	server   *http.Server
}

func NewHTTPServer(
	proc *pipeline.Processor,
	ingestor ingest.Ingestor,
	store repository.Store,
	exporter *export.Service,
	cfg common.ServerConfig,
	maxBytes int64,
	logger *slog.Logger,
) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = constants.MaxUploadBytes
	}
	return &HTTPServer{
		proc:     proc,
		ingestor: ingestor,
		store:    store,
		exporter: exporter,
		cfg:      cfg,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Handler builds the router.
func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", s.handleHealth)
	r.Post("/upload", s.handleUpload)
	r.Get("/claims", s.handleListClaims)
	r.Get("/claims/export", s.handleExport)
	r.Get("/claims/{id}", s.handleGetClaim)
	r.Get("/map", s.handleMap)
	r.Post("/recommend/{id}", s.handleRecommend)
	r.Get("/recommend/{id}/history", s.handleHistory)
	r.Get("/schemes", s.handleListSchemes)
	r.Get("/schemes/{id}", s.handleGetScheme)
	return r
}

// Start serves on addr and blocks until the server stops.
func (s *HTTPServer) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("http server listening", "addr", addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		s.respondError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"schemes": s.proc.Catalog().Len(),
	})
}

type uploadResponse struct {
	ClaimID      string   `json:"claim_id"`
	Filename     string   `json:"filename"`
	ContentHash  string   `json:"content_hash"`
	Deduplicated bool     `json:"deduplicated"`
	Warnings     []string `json:"warnings,omitempty"`
	Claim        any      `json:"claim,omitempty"`
}

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
			return
		}
		s.respondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	res, err := s.ingestor.IngestUpload(r.Context(), header.Filename, file)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	out := uploadResponse{
		ClaimID:      res.ClaimID,
		Filename:     res.Filename,
		ContentHash:  res.HashHex,
		Deduplicated: res.Deduplicated,
		Warnings:     res.Warnings,
	}
	if id, err := uuid.Parse(res.ClaimID); err == nil {
		if c, err := s.store.GetClaim(r.Context(), id); err == nil {
			out.Claim = c
		}
	}
	code := http.StatusCreated
	if res.Deduplicated {
		code = http.StatusOK
	}
	s.respondJSON(w, code, out)
}

func (s *HTTPServer) handleListClaims(w http.ResponseWriter, r *http.Request) {
	filter, err := claimFilter(r)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	claims, err := s.store.ListClaims(r.Context(), filter)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"claims": nonNil(claims), "count": len(claims)})
}

func (s *HTTPServer) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseClaimID(chi.URLParam(r, "id"))
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	c, err := s.store.GetClaim(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, c)
}

type feature struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

// handleMap returns the stored claims as a GeoJSON FeatureCollection.
func (s *HTTPServer) handleMap(w http.ResponseWriter, r *http.Request) {
	filter, err := claimFilter(r)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	claims, err := s.store.ListClaims(r.Context(), filter)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, 0, len(claims))}
	for _, c := range claims {
		geom := c.Geometry
		if len(geom) == 0 {
			geom = repository.PlaceholderGeometry
		}
		props := map[string]any{
			"id":            c.ID.String(),
			"claimant_name": c.Fields.ClaimantName(),
			"village":       c.Fields.Village(),
			"status":        nil,
			"area_ha":       nil,
		}
		if status, ok := c.Fields.Status(); ok {
			props["status"] = status
		}
		if area, ok := c.Fields.Area(); ok {
			props["area_ha"] = area
		}
		fc.Features = append(fc.Features, feature{Type: "Feature", ID: c.ID.String(), Geometry: geom, Properties: props})
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(fc)
}

func (s *HTTPServer) handleRecommend(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseClaimID(chi.URLParam(r, "id"))
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	recs, err := s.proc.Recommend(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"claim_id": id, "recommendations": nonNil(recs)})
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseClaimID(chi.URLParam(r, "id"))
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	recs, err := s.proc.History(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"claim_id": id, "history": nonNil(recs)})
}

func (s *HTTPServer) handleListSchemes(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"schemes": s.proc.Catalog().Schemes()})
}

func (s *HTTPServer) handleGetScheme(w http.ResponseWriter, r *http.Request) {
	scheme, ok := s.proc.Catalog().Lookup(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "scheme not found")
		return
	}
	s.respondJSON(w, http.StatusOK, scheme)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	cq, err := common.ParseClaimQuery(r.URL.Query().Get("status"), "", "")
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	data, err := s.exporter.ExportClaimsXLSX(r.Context(), cq.Status)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="claims.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func claimFilter(r *http.Request) (repository.ClaimFilter, error) {
	q := r.URL.Query()
	cq, err := common.ParseClaimQuery(q.Get("status"), q.Get("limit"), q.Get("offset"))
	if err != nil {
		return repository.ClaimFilter{}, err
	}
	return repository.ClaimFilter{Status: cq.Status, Limit: cq.Limit, Offset: cq.Offset}, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func (s *HTTPServer) respondAppError(w http.ResponseWriter, err error) {
	code := common.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		s.respondError(w, code, "internal error")
		return
	}
	s.respondJSON(w, code, map[string]string{"error": err.Error(), "code": common.ErrorCode(err)})
}

func (s *HTTPServer) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *HTTPServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// requestLogger logs one line per request through slog.
func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		reqID := middleware.GetReqID(r.Context())
		next.ServeHTTP(ww, r.WithContext(common.WithRequestID(r.Context(), reqID)))
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", reqID,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}
