package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"movemovies/models"
	"movemovies/services/prefs"
)

type filterPrefs interface {
	Criteria() models.FilterCriteria
	SetCriteria(criteria models.FilterCriteria) (models.FilterCriteria, error)
}

var _ filterPrefs = (*prefs.Service)(nil)

type criteriaSession interface {
	ApplyCriteria(ctx context.Context, criteria models.FilterCriteria) models.FeedWindow
}

// FiltersHandler reads and replaces the discover filter criteria. A write
// restarts the feed under the new criteria.
type FiltersHandler struct {
	Prefs   filterPrefs
	Session criteriaSession
}

func NewFiltersHandler(prefs filterPrefs, session criteriaSession) *FiltersHandler {
	return &FiltersHandler{Prefs: prefs, Session: session}
}

type filtersResponse struct {
	Criteria models.FilterCriteria `json:"criteria"`
	Window   *models.FeedWindow    `json:"window,omitempty"`
}

func (h *FiltersHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, filtersResponse{Criteria: h.Prefs.Criteria()})
}

func (h *FiltersHandler) Put(w http.ResponseWriter, r *http.Request) {
	var criteria models.FilterCriteria
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&criteria); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	normalized, err := h.Prefs.SetCriteria(criteria)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	window := h.Session.ApplyCriteria(r.Context(), normalized)
	writeJSON(w, filtersResponse{Criteria: normalized, Window: &window})
}

func (h *FiltersHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
