package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"movemovies/models"
	"movemovies/services/feed"
)

type feedSession interface {
	Window() models.FeedWindow
	Advance(ctx context.Context, index int) (models.FeedWindow, error)
	ContinueSearching(ctx context.Context) models.FeedWindow
	Restart(ctx context.Context) models.FeedWindow
}

var _ feedSession = (*feed.Session)(nil)

// FeedHandler exposes the discover feed window and its scroll reports.
type FeedHandler struct {
	Session feedSession
}

func NewFeedHandler(session feedSession) *FeedHandler {
	return &FeedHandler{Session: session}
}

// Get returns the current window around the active index.
func (h *FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Session.Window())
}

// Advance accepts the client's settled scroll position and returns the
// updated window.
func (h *FeedHandler) Advance(w http.ResponseWriter, r *http.Request) {
	var payload models.FeedAdvance
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	window, err := h.Session.Advance(r.Context(), payload.Index)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, feed.ErrIndexOutOfRange) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, window)
}

// Continue lifts the page-budget throttle after the user opted to keep
// searching.
func (h *FeedHandler) Continue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Session.ContinueSearching(r.Context()))
}

// Restart rebuilds the queue from scratch under the current criteria.
func (h *FeedHandler) Restart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Session.Restart(r.Context()))
}

func (h *FeedHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
