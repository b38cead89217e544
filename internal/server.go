package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nocturnecity/image-formatter/pkg"
)

type Server struct {
	port           int
	logger         *StdLog
	server         *http.Server
	pool           *Pool
	timeout        time.Duration
	maxUploadBytes int64
	editorCfg      EditorConfig
	limits         SourceLimits
	storage        StorageConfig
	presets        *PresetCatalog
	renderer       Renderer
	blobs          *BlobStore
	sessions       *SessionRegistry
	store          ObjectStore
	cdn            *CDNClient
}

func NewHttpServer(cfg *Config, presets *PresetCatalog, store ObjectStore, logger *StdLog) *Server {
	s := &Server{
		port:           cfg.Server.Port,
		logger:         logger,
		timeout:        cfg.Server.Timeout,
		maxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		editorCfg:      cfg.EditorConfig(),
		limits:         cfg.SourceLimits(),
		storage:        cfg.Storage,
		presets:        presets,
		renderer:       NewRasterPipeline(logger.Named("raster")),
		blobs:          NewBlobStore(logger.Named("blobs"), DefaultBlobTTL),
		sessions:       NewSessionRegistry(logger.Named("sessions"), cfg.Server.SessionTTL),
		store:          store,
		pool:           NewPool(logger.Named("pool"), cfg.Server.Workers),
	}
	if cfg.CDN.BaseURL != "" {
		s.cdn = NewCDNClient(cfg.CDN.BaseURL, cfg.CDN.Timeout, logger.Named("cdn"))
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /sessions", s.route("create_session", s.createSessionHandler))
	mux.HandleFunc("GET /sessions/{id}", s.route("get_session", s.getSessionHandler))
	mux.HandleFunc("DELETE /sessions/{id}", s.route("delete_session", s.deleteSessionHandler))
	mux.HandleFunc("POST /sessions/{id}/edits", s.route("edit", s.editHandler))
	mux.HandleFunc("POST /sessions/{id}/variants", s.route("variant", s.variantHandler))
	mux.HandleFunc("POST /sessions/{id}/export", s.route("export", s.exportHandler))
	mux.HandleFunc("GET /blobs/{id}", s.route("blob", s.blobHandler))
	mux.HandleFunc("GET /presets", s.route("presets", s.presetsHandler))

	mux.HandleFunc("/healthz", s.healthzHandler)

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func (s *Server) Run() {
	registerMetrics()

	// Create a new HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  s.timeout, // set read timeout
		WriteTimeout: s.timeout, // set write timeout
	}

	s.server = server

	s.pool.Run()
	go func() {
		s.logger.Info("ListenAndServe() on port: %d", s.port)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.Stop(context.Background())
			s.logger.Fatal("ListenAndServe(): %v", err)
		}
	}()
}

func (s *Server) Stop(ctx context.Context) {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server Shutdown: %v", err)
		}
	}
	s.sessions.Shutdown()
	s.pool.ShutDown()
	s.blobs.Shutdown()
	s.logger.Info("Application stopped")
}

type routeCtxKey struct{}

func (s *Server) route(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestsTotal.WithLabelValues(name).Inc()
		h(w, r.WithContext(context.WithValue(r.Context(), routeCtxKey{}, name)))
	}
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	var (
		src *SourceImage
		err error
	)
	switch {
	case strings.HasPrefix(contentType, "image/"):
		src, err = s.sourceFromBody(w, r)
	case strings.HasPrefix(contentType, "application/json"):
		src, err = s.sourceFromStore(r)
	default:
		s.processHttpError(r, w, fmt.Errorf("invalid content type: %s", contentType), http.StatusUnsupportedMediaType)
		return
	}
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, errStoreUnavailable):
			status = http.StatusBadGateway
		case errors.Is(err, ErrInvalidInput):
			status = http.StatusRequestEntityTooLarge
		}
		s.processHttpError(r, w, err, status)
		return
	}

	editor, err := NewEditor(src, s.presets, s.renderer, s.blobs, s.logger, s.editorCfg)
	if err != nil {
		s.processHttpError(r, w, fmt.Errorf("error open session: %w", err), http.StatusUnprocessableEntity)
		return
	}
	s.sessions.Add(editor)
	s.logger.Debug("session %s opened for %s (%dx%d)", editor.ID(), src.Name, src.Width, src.Height)
	s.processHttpSuccess(r, w, http.StatusCreated, editor.Snapshot())
}

var errStoreUnavailable = errors.New("object store unavailable")

func (s *Server) sourceFromBody(w http.ResponseWriter, r *http.Request) (*SourceImage, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading request body: %w", err)
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "image"
	}
	return DecodeSource(name, r.URL.Query().Get("path"), data, s.limits)
}

func (s *Server) sourceFromStore(r *http.Request) (*SourceImage, error) {
	var req pkg.SourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("error unmarshal request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if s.store == nil {
		return nil, errStoreUnavailable
	}
	data, err := s.store.Download(r.Context(), req.Region, req.BucketName, req.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errStoreUnavailable, err)
	}
	name := req.Name
	if name == "" {
		name = path.Base(req.Key)
	}
	return DecodeSource(name, req.Key, data, s.limits)
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	editor, ok := s.editor(w, r)
	if !ok {
		return
	}
	s.processHttpSuccess(r, w, http.StatusOK, editor.Snapshot())
}

func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.PathValue("id")); err != nil {
		s.processHttpError(r, w, err, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	s.logger.Info("%s %s %d", r.Method, r.URL, http.StatusNoContent)
}

func (s *Server) editHandler(w http.ResponseWriter, r *http.Request) {
	editor, ok := s.editor(w, r)
	if !ok {
		return
	}
	var req pkg.EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.processHttpError(r, w, fmt.Errorf("error unmarshal request: %w", err), http.StatusBadRequest)
		return
	}
	if err := editor.Apply(req); err != nil {
		switch {
		case errors.Is(err, ErrPresetNotFound), errors.Is(err, ErrSessionClosed):
			s.processHttpError(r, w, err, http.StatusNotFound)
		default:
			s.processHttpError(r, w, err, http.StatusUnprocessableEntity)
		}
		return
	}
	s.processHttpSuccess(r, w, http.StatusOK, editor.Snapshot())
}

func (s *Server) variantHandler(w http.ResponseWriter, r *http.Request) {
	editor, ok := s.editor(w, r)
	if !ok {
		return
	}
	img := editor.Variant()
	resp := pkg.VariantResponse{
		Image:         img,
		FileName:      pkg.DownloadFileName(img.Name, img.WidthPx, img.HeightPx, img.Format),
		FormattedSize: SizeUnavailable,
	}
	if s.cdn != nil && img.SourcePath != "" {
		probe := s.cdn.ProbeSize(r.Context(), img)
		resp.TransformURL = probe.URL
		resp.FormattedSize = probe.Formatted
	}
	s.processHttpSuccess(r, w, http.StatusOK, resp)
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	editor, ok := s.editor(w, r)
	if !ok {
		return
	}
	var req pkg.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.processHttpError(r, w, fmt.Errorf("error unmarshal request: %w", err), http.StatusBadRequest)
		return
	}
	if req.BucketName == "" && s.storage.Bucket != "" {
		req.BucketName, req.Region = s.storage.Bucket, s.storage.Region
		if req.PathToSave == "" {
			req.PathToSave = path.Join(s.storage.Prefix, editor.ID())
		}
	}
	if err := req.Validate(); err != nil {
		s.processHttpError(r, w, fmt.Errorf("validation error: %w", err), http.StatusBadRequest)
		return
	}

	handler := NewExportHandler(req, editor, s.renderer, s.store, s.presets, s.logger.Named("export"))
	res, err := s.pool.Dispatch(r.Context(), handler)
	if err != nil {
		if req.BucketName != "" && s.store != nil {
			go handler.CleanupOnError(context.Background())
		}
		status := http.StatusInternalServerError
		if errors.Is(err, ErrPresetNotFound) {
			status = http.StatusNotFound
		}
		s.processHttpError(r, w, fmt.Errorf("failed to process image: %w", err), status)
		return
	}
	editor.FlushPreview()
	durationMs := float64(time.Since(start).Milliseconds())
	exportDurationWithQueueWait.Observe(durationMs)
	s.logger.Debug("EXPORT OBSERVED EXECUTION TIME FOR %s: %.2f sec", editor.ID(), durationMs/1000)
	s.processHttpSuccess(r, w, http.StatusOK, pkg.ExportResponse{Sizes: res})
}

func (s *Server) blobHandler(w http.ResponseWriter, r *http.Request) {
	data, mime, ok := s.blobs.Get(BlobURLPrefix + r.PathValue("id"))
	if !ok {
		s.processHttpError(r, w, fmt.Errorf("blob not found"), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("%s %s write blob: %v", r.Method, r.URL, err)
	}
}

func (s *Server) presetsHandler(w http.ResponseWriter, r *http.Request) {
	s.processHttpSuccess(r, w, http.StatusOK, pkg.PresetsResponse{
		Presets: s.presets.Search(r.URL.Query().Get("q")),
	})
}

func (s *Server) editor(w http.ResponseWriter, r *http.Request) (*Editor, bool) {
	editor, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		s.processHttpError(r, w, err, http.StatusNotFound)
		return nil, false
	}
	// Any request on a session counts as activity for idle expiry.
	editor.touch()
	return editor, true
}

func (s *Server) processHttpError(r *http.Request, w http.ResponseWriter, err error, status int) {
	s.logger.Error("%s %s error %v", r.Method, r.URL, err.Error())
	if route, ok := r.Context().Value(routeCtxKey{}).(string); ok {
		failedRequests.WithLabelValues(route).Inc()
	}
	response := pkg.ErrorResponse{
		Error: err.Error(),
	}
	if status >= 500 {
		response.Error = "Internal Server error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err = json.NewEncoder(w).Encode(response)
	if err != nil {
		s.logger.Error("%s %s encode error response: %v", r.Method, r.URL, err)
	}
}

func (s *Server) processHttpSuccess(r *http.Request, w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		s.logger.Error("%s %s encode response: %v", r.Method, r.URL, err)
		return
	}
	s.logger.Info("%s %s %d", r.Method, r.URL, status)
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	s.logger.Debug("%s %s %d", r.Method, r.URL, http.StatusOK)
}
