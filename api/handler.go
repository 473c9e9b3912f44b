// Package api serves the skill editor HTTP API: skill CRUD with validation
// and sandbox testing, import and export, and single turns of selection and
// execution.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/deepnoodle-ai/skillet"
	"github.com/deepnoodle-ai/skillet/sandbox"
	"github.com/deepnoodle-ai/skillet/slogger"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 4 << 20

// Tester runs candidate function code in isolation.
type Tester interface {
	Test(ctx context.Context, code string, params map[string]any) (*sandbox.Result, error)
}

var _ Tester = &sandbox.Harness{}

// Options configures a Handler.
type Options struct {
	Registry *skillet.Registry

	// Runner serves POST /api/turn. Nil disables the route.
	Runner *skillet.Runner

	// Tester vets created and updated skills before registration. Nil skips
	// sandbox testing.
	Tester Tester

	// CORSOrigins lists allowed origins; wildcards are permitted.
	CORSOrigins []string

	Logger slogger.Logger
	Now    func() time.Time
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	registry    *skillet.Registry
	runner      *skillet.Runner
	tester      Tester
	corsOrigins []string
	logger      slogger.Logger
	now         func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slogger.DefaultLogger
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	return &Handler{
		registry:    opts.Registry,
		runner:      opts.Runner,
		tester:      opts.Tester,
		corsOrigins: opts.CORSOrigins,
		logger:      opts.Logger,
		now:         opts.Now,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)

		r.Route("/skills", func(r chi.Router) {
			r.Get("/", h.listSkills)
			r.Post("/", h.createSkill)
			r.Post("/validate", h.validateSkill)
			r.Post("/test", h.testSkill)
			r.Get("/roles", h.listRoles)
			r.Get("/export", h.exportSkills)
			r.Post("/import", h.importSkills)
			r.Get("/{name}", h.getSkill)
			r.Put("/{name}", h.updateSkill)
			r.Delete("/{name}", h.deleteSkill)
		})

		if h.runner != nil {
			r.Post("/turn", h.runTurn)
		}
	})

	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  "ok",
		"skills":  h.registry.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorBody is the envelope of every failed request.
type errorBody struct {
	Success          bool     `json:"success"`
	Error            string   `json:"error"`
	ValidationErrors []string `json:"validation_errors,omitempty"`
	Reason           string   `json:"reason,omitempty"`
	Output           string   `json:"output,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// decodeBody reads a JSON body of at most MaxBodyBytes into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return false
	}
	return true
}
