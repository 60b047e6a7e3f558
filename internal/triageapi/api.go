// Package triageapi is the careline HTTP surface: triage assessment, session
// lookup and the read-only provider directory.
package triageapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/careline/internal/providers"
	"github.com/linnemanlabs/careline/internal/triage"
)

// Error codes that are not triage validation codes.
const (
	CodeInvalidRequest       = "invalid_request"
	CodeNotFound             = "not_found"
	CodeInternal             = "internal_error"
	CodeInvalidLimit         = "invalid_limit"
	CodeInvalidProviderID    = "invalid_provider_id"
	CodeDirectoryUnavailable = "directory_unavailable"
)

// maxSessionListLimit caps the limit query parameter on session listings.
const maxSessionListLimit = 100

// TriageService defines the business operations triageapi needs.
type TriageService interface {
	Assess(ctx context.Context, sub triage.Submission) (*triage.Outcome, error)
	Get(ctx context.Context, id string) (*triage.Session, bool, error)
	ListByPatient(ctx context.Context, patientID string, limit int) ([]*triage.Session, error)
}

// Options holds optional API settings.
type Options struct {
	// SessionListLimit is the default page size for patient session listings.
	SessionListLimit int

	// Middlewares wrap every /api/v1 route, e.g. authmw.BearerToken.
	Middlewares []func(http.Handler) http.Handler
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger    log.Logger
	svc       TriageService
	dir       providers.Directory
	listLimit int
	mws       []func(http.Handler) http.Handler
}

// New creates a new API handler. A nil directory serves the default listing.
func New(logger log.Logger, svc TriageService, dir providers.Directory, opts Options) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	if dir == nil {
		dir = providers.Default()
	}
	limit := opts.SessionListLimit
	if limit <= 0 {
		limit = triage.DefaultSessionListLimit
	}
	return &API{
		logger:    logger,
		svc:       svc,
		dir:       dir,
		listLimit: min(limit, maxSessionListLimit),
		mws:       opts.Middlewares,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(a.mws...)

		r.Post("/triage", a.handleAssess)
		r.Get("/triage/{id}", a.handleGetSession)
		r.Get("/patients/{patientID}/triage", a.handleListPatientSessions)

		r.Get("/providers", a.handleListProviders)
		r.Get("/providers/specialties", a.handleListSpecialties)
		r.Get("/providers/{id}", a.handleGetProvider)
	})
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing useful to do with an encode error once the header is out
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}
