package triageapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/careline/internal/providers"
)

type providerList struct {
	Providers []providers.Provider `json:"providers"`
}

type specialtyList struct {
	Specialties []string `json:"specialties"`
}

// listProviders writes the error response itself and returns ok=false on failure.
func (a *API) listProviders(w http.ResponseWriter, r *http.Request) ([]providers.Provider, bool) {
	list, err := a.dir.List(r.Context())
	if err == nil {
		return list, true
	}
	if errors.Is(err, providers.ErrUnavailable) {
		a.logger.Warn(r.Context(), "provider directory unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, CodeDirectoryUnavailable, "provider directory is temporarily unavailable")
		return nil, false
	}
	a.logger.Error(r.Context(), err, "failed to list providers")
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
	return nil, false
}

func (a *API) handleListProviders(w http.ResponseWriter, r *http.Request) {
	list, ok := a.listProviders(w, r)
	if !ok {
		return
	}
	q := providers.Query{
		Text:      r.URL.Query().Get("q"),
		Specialty: r.URL.Query().Get("specialty"),
	}
	writeJSON(w, http.StatusOK, providerList{Providers: providers.Filter(list, q)})
}

func (a *API) handleListSpecialties(w http.ResponseWriter, r *http.Request) {
	list, ok := a.listProviders(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, specialtyList{Specialties: providers.Specialties(list)})
}

func (a *API) handleGetProvider(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidProviderID, "provider id must be an integer")
		return
	}
	list, ok := a.listProviders(w, r)
	if !ok {
		return
	}
	p, found := providers.Find(list, id)
	if !found {
		writeError(w, http.StatusNotFound, CodeNotFound, "provider not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
