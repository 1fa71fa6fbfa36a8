package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/raysh454/mdinject/internal/app"
	"github.com/raysh454/mdinject/internal/document"
	"github.com/raysh454/mdinject/internal/injector"
	"github.com/raysh454/mdinject/internal/logging"
	"github.com/raysh454/mdinject/internal/registry"
	_ "github.com/raysh454/mdinject/internal/server/docs" // swagger docs
)

// maxLoggedBody caps how much of a request body ends up in the request log.
const maxLoggedBody = 2048

// Server is the HTTP + WebSocket API surface for mdinject.
type Server struct {
	cfg          Config
	orchestrator *app.Orchestrator
	router       chi.Router
	upgrader     websocket.Upgrader
	logger       logging.Logger
}

// NewServer creates a Server over an existing Orchestrator. The caller keeps
// ownership of the orchestrator.
func NewServer(cfg Config, orch *app.Orchestrator) (*Server, error) {
	if orch == nil {
		return nil, errors.New("orchestrator is nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("server")
	}

	s := &Server{
		cfg:          cfg,
		orchestrator: orch,
		router:       chi.NewRouter(),
		logger:       logger,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}

	s.routes()
	return s, nil
}

// Orchestrator returns the underlying orchestrator for advanced use (tests, etc.).
func (s *Server) Orchestrator() *app.Orchestrator {
	return s.orchestrator
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/pages", s.optionsHandler("GET, POST"))
	r.Options("/pages/{page}", s.optionsHandler("GET"))
	r.Options("/pages/{page}/html", s.optionsHandler("GET"))
	r.Options("/pages/{page}/inject", s.optionsHandler("POST"))
	r.Options("/pages/{page}/inject/batch", s.optionsHandler("POST"))
	r.Options("/pages/{page}/injections", s.optionsHandler("GET"))
	r.Options("/jobs", s.optionsHandler("GET"))
	r.Options("/jobs/{jobID}", s.optionsHandler("GET, DELETE"))
	r.Options("/ws/pages/{page}/inject", s.optionsHandler("GET"))

	// Pages
	r.Post("/pages", s.handleCreatePage)
	r.Get("/pages", s.handleListPages)
	r.Get("/pages/{page}", s.handleGetPage)
	r.Get("/pages/{page}/html", s.handleGetPageHTML)

	// Injections
	r.Post("/pages/{page}/inject", s.handleInject)
	r.Post("/pages/{page}/inject/batch", s.handleInjectBatch)
	r.Get("/pages/{page}/injections", s.handleListInjections)

	// Jobs over REST
	r.Get("/jobs", s.handleListJobs)
	r.Get("/jobs/{jobID}", s.handleGetJob)
	r.Delete("/jobs/{jobID}", s.handleCancelJob)

	// WebSockets for job progress
	r.Get("/ws/pages/{page}/inject", s.handleInjectWS)

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case len(s.cfg.AllowedOrigins) == 0:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && s.originAllowed(origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			logged := bodyBytes
			if len(logged) > maxLoggedBody {
				logged = logged[:maxLoggedBody]
			}
			fields = append(fields, logging.Field{Key: "body", Value: string(logged)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrPageNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrPageExists), errors.Is(err, injector.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, registry.ErrInvalidHTML),
		errors.Is(err, injector.ErrEmptyElementID),
		errors.Is(err, injector.ErrInvalidSourceURL):
		return http.StatusBadRequest
	case errors.Is(err, document.ErrElementNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, injector.ErrFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, what string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(what, logging.Field{Key: "error", Value: err})
	} else {
		s.logger.Warn(what, logging.Field{Key: "error", Value: err})
	}
	writeError(w, status, err.Error())
}

// --- HTTP handlers ---

// Pages

// handleCreatePage godoc
// @Summary Store a host page
// @Tags pages
// @Accept json
// @Produce json
// @Param body body CreatePageRequest true "page"
// @Success 201 {object} registry.Page
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /pages [post]
func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var body CreatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.HTML == "" {
		writeError(w, http.StatusBadRequest, "html is required")
		return
	}

	p, err := s.orchestrator.CreatePage(r.Context(), body.Slug, body.Name, body.BaseURL, body.HTML)
	if err != nil {
		s.fail(w, "creating page", err)
		return
	}
	s.logger.Info("created page", logging.Field{Key: "slug", Value: p.Slug})
	writeJSON(w, http.StatusCreated, p)
}

// handleListPages godoc
// @Summary List host pages
// @Tags pages
// @Produce json
// @Success 200 {array} registry.Page
// @Router /pages [get]
func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	ps, err := s.orchestrator.ListPages(r.Context())
	if err != nil {
		s.fail(w, "listing pages", err)
		return
	}
	if ps == nil {
		ps = []registry.Page{}
	}
	writeJSON(w, http.StatusOK, ps)
}

// handleGetPage godoc
// @Summary Get a page with its element ids
// @Tags pages
// @Produce json
// @Param page path string true "page slug or id"
// @Success 200 {object} PageResponse
// @Failure 404 {object} ErrorResponse
// @Router /pages/{page} [get]
func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	p, err := s.orchestrator.GetPage(r.Context(), chi.URLParam(r, "page"))
	if err != nil {
		s.fail(w, "getting page", err)
		return
	}
	resp := PageResponse{Page: *p}
	if doc, err := document.ParseString(p.HTML); err == nil {
		resp.ElementIDs = doc.IDs()
	}
	writeJSON(w, http.StatusOK, resp)
}

// PageResponse is a page together with the ids it can receive content into.
type PageResponse struct {
	registry.Page
	ElementIDs []string `json:"element_ids"`
}

// handleGetPageHTML godoc
// @Summary Render the current host document
// @Tags pages
// @Produce html
// @Param page path string true "page slug or id"
// @Success 200 {string} string
// @Failure 404 {object} ErrorResponse
// @Router /pages/{page}/html [get]
func (s *Server) handleGetPageHTML(w http.ResponseWriter, r *http.Request) {
	p, err := s.orchestrator.GetPage(r.Context(), chi.URLParam(r, "page"))
	if err != nil {
		s.fail(w, "getting page html", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, p.HTML)
}

// Injections

// handleInject godoc
// @Summary Inject rendered Markdown into a page element
// @Description Starts an injection job (202). With "wait" the injection runs inline (200).
// @Tags injections
// @Accept json
// @Produce json
// @Param page path string true "page slug or id"
// @Param body body InjectRequest true "injection"
// @Success 200 {object} injector.Result
// @Success 202 {object} app.Job
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /pages/{page}/inject [post]
func (s *Server) handleInject(w http.ResponseWriter, r *http.Request) {
	page := chi.URLParam(r, "page")

	var body InjectRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.ElementID == "" || body.SourceURL == "" {
		writeError(w, http.StatusBadRequest, "element_id and source_url are required")
		return
	}

	if body.Wait {
		res, err := s.orchestrator.InjectPage(r.Context(), page, body.ElementID, body.SourceURL)
		if err != nil {
			s.fail(w, "injecting", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	job, err := s.orchestrator.StartInjectJob(r.Context(), page, body.ElementID, body.SourceURL)
	if err != nil {
		s.fail(w, "starting inject job", err)
		return
	}
	s.logger.Info("started inject job", logging.Field{Key: "job_id", Value: job.ID})
	writeJSON(w, http.StatusAccepted, job)
}

// handleInjectBatch godoc
// @Summary Run several injections into one page
// @Tags injections
// @Accept json
// @Produce json
// @Param page path string true "page slug or id"
// @Param body body InjectBatchRequest true "items"
// @Success 200 {array} app.BatchResult
// @Failure 404 {object} ErrorResponse
// @Router /pages/{page}/inject/batch [post]
func (s *Server) handleInjectBatch(w http.ResponseWriter, r *http.Request) {
	var body InjectBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	reqs := make([]app.InjectRequest, 0, len(body.Items))
	for _, it := range body.Items {
		reqs = append(reqs, app.InjectRequest{ElementID: it.ElementID, SourceURL: it.SourceURL})
	}

	results, err := s.orchestrator.InjectBatch(r.Context(), chi.URLParam(r, "page"), reqs)
	if err != nil {
		s.fail(w, "injecting batch", err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// handleListInjections godoc
// @Summary Injection log of a page, newest first
// @Tags injections
// @Produce json
// @Param page path string true "page slug or id"
// @Param limit query int false "max entries" default(50)
// @Success 200 {array} registry.Injection
// @Failure 404 {object} ErrorResponse
// @Router /pages/{page}/injections [get]
func (s *Server) handleListInjections(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}
	items, err := s.orchestrator.ListInjections(r.Context(), chi.URLParam(r, "page"), limit)
	if err != nil {
		s.fail(w, "listing injections", err)
		return
	}
	if items == nil {
		items = []registry.Injection{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Jobs

// handleGetJob godoc
// @Summary Get a job
// @Tags jobs
// @Produce json
// @Param jobID path string true "job id"
// @Success 200 {object} app.Job
// @Failure 404 {object} ErrorResponse
// @Router /jobs/{jobID} [get]
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		s.logger.Warn("getting job: not found", logging.Field{Key: "job_id", Value: jobID})
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleCancelJob godoc
// @Summary Cancel a job
// @Tags jobs
// @Param jobID path string true "job id"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /jobs/{jobID} [delete]
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if s.orchestrator.GetJob(jobID) == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.orchestrator.CancelJob(jobID)
	s.logger.Info("canceled job", logging.Field{Key: "job_id", Value: jobID})
	w.WriteHeader(http.StatusNoContent)
}

// handleListJobs godoc
// @Summary List jobs
// @Tags jobs
// @Produce json
// @Success 200 {array} app.Job
// @Router /jobs [get]
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orchestrator.ListJobs())
}

// WebSockets

// handleInjectWS starts an injection job and streams its events. The query
// carries element and source.
func (s *Server) handleInjectWS(w http.ResponseWriter, r *http.Request) {
	page := chi.URLParam(r, "page")
	elementID := r.URL.Query().Get("element")
	source := r.URL.Query().Get("source")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err})
		return
	}
	defer conn.Close()

	job, err := s.orchestrator.StartInjectJob(r.Context(), page, elementID, source)
	if err != nil {
		s.logger.Warn("starting inject job", logging.Field{Key: "error", Value: err})
		_ = conn.WriteJSON(ErrorResponse{Error: err.Error()})
		return
	}

	s.logger.Info("started inject job", logging.Field{Key: "job_id", Value: job.ID})
	_ = conn.WriteJSON(job)

	for ev := range job.Events {
		if err := conn.WriteJSON(ev); err != nil {
			// Assume client disconnected; cancel job
			s.orchestrator.CancelJob(job.ID)
			return
		}
	}
}
