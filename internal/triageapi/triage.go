package triageapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/careline/internal/triage"
)

// assessResponse is the assessment plus the session id when one was stored.
type assessResponse struct {
	triage.Assessment
	SessionID string `json:"sessionId,omitempty"`
}

type sessionList struct {
	Sessions []*triage.Session `json:"sessions"`
}

func (a *API) handleAssess(w http.ResponseWriter, r *http.Request) {
	span := trace.SpanFromContext(r.Context())

	var sub triage.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		span.SetAttributes(attribute.String("careline.triage.rejected", CodeInvalidRequest))
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "request body must be a JSON triage submission")
		return
	}

	out, err := a.svc.Assess(r.Context(), sub)
	if err != nil {
		if ve, ok := triage.AsValidationError(err); ok {
			writeError(w, http.StatusBadRequest, ve.Code, ve.Message)
			return
		}
		if errors.Is(err, triage.ErrServiceUnavailable) {
			a.logger.Warn(r.Context(), "triage unavailable", "error", err)
			writeError(w, http.StatusServiceUnavailable, triage.CodeServiceUnavailable,
				"triage is temporarily unavailable, retry the same request shortly")
			return
		}
		a.logger.Error(r.Context(), err, "triage failed")
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
		return
	}

	span.SetAttributes(
		attribute.String("careline.triage.urgency", string(out.Assessment.Urgency)),
		attribute.String("careline.triage.source", string(out.Source)),
	)
	w.Header().Set("X-Triage-Source", string(out.Source))
	writeJSON(w, http.StatusOK, assessResponse{Assessment: out.Assessment, SessionID: out.SessionID})
}

func (a *API) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("careline.triage.session_id", id))

	sess, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get triage session", "id", id)
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "triage session not found")
		return
	}

	span.SetAttributes(attribute.String("careline.triage.urgency", string(sess.Assessment.Urgency)))
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) handleListPatientSessions(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")

	limit := a.listLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSessionListLimit {
			writeError(w, http.StatusBadRequest, CodeInvalidLimit,
				"limit must be an integer between 1 and "+strconv.Itoa(maxSessionListLimit))
			return
		}
		limit = n
	}

	list, err := a.svc.ListByPatient(r.Context(), patientID, limit)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list triage sessions", "patient_id", patientID)
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
		return
	}
	if list == nil {
		list = []*triage.Session{}
	}

	trace.SpanFromContext(r.Context()).SetAttributes(attribute.Int("careline.triage.sessions", len(list)))
	writeJSON(w, http.StatusOK, sessionList{Sessions: list})
}
