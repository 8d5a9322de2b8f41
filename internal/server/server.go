package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/bazaarhub/integrations/internal/dispatch"
	"github.com/bazaarhub/integrations/internal/telemetry"
	"github.com/bazaarhub/integrations/pkg/integration"
	"github.com/bazaarhub/integrations/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultMaxUploadBytes bounds multipart uploads unless configured.
	DefaultMaxUploadBytes = 25 << 20

	maxJSONBytes = 1 << 20
)

// Server is the HTTP server for the integration gateway.
type Server struct {
	port           int
	maxUploadBytes int64
	dispatcher     *dispatch.Dispatcher
	store          *storage.Store
	logger         *otelzap.Logger
	metrics        *telemetry.Metrics
	gatherer       prometheus.Gatherer
	tracer         trace.Tracer
}

// Config holds server configuration.
type Config struct {
	Port           int
	MaxUploadBytes int64
}

// New creates a new server instance. gatherer backs the /metrics endpoint.
func New(cfg Config, dispatcher *dispatch.Dispatcher, store *storage.Store, logger *otelzap.Logger, metrics *telemetry.Metrics, gatherer prometheus.Gatherer) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Server{
		port:           cfg.Port,
		maxUploadBytes: cfg.MaxUploadBytes,
		dispatcher:     dispatcher,
		store:          store,
		logger:         logger,
		metrics:        metrics,
		gatherer:       gatherer,
		tracer:         otel.Tracer(telemetry.TracerName),
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /api/payments/checkout", s.handleDispatch(s.dispatcher.Checkout))
	mux.HandleFunc("POST /api/delivery/quote", s.handleDispatch(s.dispatcher.Quote))
	mux.HandleFunc("POST /api/delivery/quotes", s.handleDispatch(s.dispatcher.QuoteAll))

	mux.HandleFunc("POST /api/storage/upload", s.handleUpload)
	mux.HandleFunc("POST /api/storage/delete", s.handleDelete)
	mux.HandleFunc("DELETE /api/storage/object", s.handleDelete)
	// GET patterns also match HEAD.
	mux.HandleFunc("GET /api/storage/object", s.handleObject)

	return mux
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleDispatch(op func(context.Context, []byte) dispatch.Response) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBytes))
		if err != nil {
			s.writeError(w, r, integration.ValidationError("", "Invalid request payload").WithCause(err))
			return
		}
		s.writeResponse(w, op(r.Context(), body))
	}
}

type uploadResponse struct {
	Success bool   `json:"success"`
	Key     string `json:"key"`
	URL     string `json:"url"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "storage.upload")
	defer span.End()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, integration.ValidationError("file", "File exceeds the upload size limit").
				WithStatus(http.StatusRequestEntityTooLarge))
			return
		}
		s.writeError(w, r, integration.ValidationError("", "Invalid multipart payload").WithCause(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, integration.ValidationError("file", "file is required"))
		return
	}
	defer file.Close()

	fileName := r.FormValue("fileName")
	if fileName == "" {
		fileName = header.Filename
	}
	key, err := s.store.Resolver().UploadKey(r.FormValue("path"), fileName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("storage.key", key))

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, integration.ValidationError("file", "Unable to read file").WithCause(err))
		return
	}

	contentType := r.FormValue("contentType")
	if contentType == "" {
		contentType = header.Header.Get("Content-Type")
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(fileName))
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	start := time.Now()
	uploaded, err := s.store.Upload(ctx, key, data, contentType)
	if err != nil {
		s.recordStorage("upload", "error", start, err)
		s.writeError(w, r, err)
		return
	}
	s.recordStorage("upload", "success", start, nil)
	s.metrics.RecordUpload(len(data))

	s.writeJSON(w, http.StatusCreated, uploadResponse{Success: true, Key: uploaded.Key, URL: uploaded.URL})
}

type deleteRequest struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "storage.delete")
	defer span.End()

	var req deleteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes)).Decode(&req); err != nil {
		s.writeError(w, r, integration.ValidationError("", "Invalid request payload").WithCause(err))
		return
	}

	key, err := s.resolveKey(req.Key, req.URL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("storage.key", key))

	start := time.Now()
	if err := s.store.Delete(ctx, key); err != nil {
		s.recordStorage("delete", "error", start, err)
		s.writeError(w, r, err)
		return
	}
	s.recordStorage("delete", "success", start, nil)

	s.writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "storage.object")
	defer span.End()

	query := r.URL.Query()
	key, err := s.resolveKey(query.Get("key"), query.Get("url"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("storage.key", key))

	start := time.Now()
	if r.Method == http.MethodHead {
		meta, err := s.store.Head(ctx, key)
		if err != nil {
			s.recordStorage("head", "error", start, err)
			s.writeError(w, r, err)
			return
		}
		s.recordStorage("head", "success", start, nil)
		copyHeaders(w.Header(), s.store.Headers(meta))
		w.WriteHeader(http.StatusOK)
		return
	}

	obj, err := s.store.Fetch(ctx, key)
	if err != nil {
		s.recordStorage("fetch", "error", start, err)
		s.writeError(w, r, err)
		return
	}
	defer obj.Body.Close()
	s.recordStorage("fetch", "success", start, nil)

	copyHeaders(w.Header(), s.store.Headers(&obj.Meta))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		s.logger.Ctx(ctx).Warn("Object stream interrupted", zap.String("key", key), zap.Error(err))
	}
}

// resolveKey prefers an explicit key over a public URL.
func (s *Server) resolveKey(key, rawURL string) (string, error) {
	key = strings.TrimSpace(key)
	rawURL = strings.TrimSpace(rawURL)
	switch {
	case key != "":
		return storage.NormalizePath(key)
	case rawURL != "":
		return s.store.Resolver().KeyFromURL(rawURL)
	default:
		return "", integration.ValidationError("key", "key or url is required")
	}
}

func (s *Server) recordStorage(op, status string, start time.Time, err error) {
	s.metrics.RecordRequest("storage_"+op, "storage", status, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordError("storage", integration.KindOf(err))
	}
}

func (s *Server) writeResponse(w http.ResponseWriter, resp dispatch.Response) {
	s.writeJSON(w, resp.Status, resp.Body)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := integration.StatusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Ctx(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("kind", integration.KindOf(err)),
			zap.Error(err),
		)
	}
	s.writeResponse(w, dispatch.Failure(err))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func copyHeaders(dst, src http.Header) {
	for k, v := range src {
		dst[k] = v
	}
}
