package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"movemovies/models"
	"movemovies/services/ledger"
)

type ledgerService interface {
	Entries() []models.LedgerEntry
	Count() int
	Reset() error
	PurgeExpired() error
}

var _ ledgerService = (*ledger.Service)(nil)

type historySession interface {
	Restart(ctx context.Context) models.FeedWindow
}

// HistoryHandler exposes the seen/skip ledger: the browsable record of items
// the feed has already shown.
type HistoryHandler struct {
	Service ledgerService
	Session historySession
}

func NewHistoryHandler(service ledgerService, session historySession) *HistoryHandler {
	return &HistoryHandler{Service: service, Session: session}
}

type historyResponse struct {
	Total   int                  `json:"total"`
	Entries []models.LedgerEntry `json:"entries"`
}

// List returns ledger entries newest first, optionally narrowed by a title
// substring (?q=), a media type (?type=) or a genre id (?genre=).
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.PurgeExpired(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	mediaType := models.MediaType(strings.TrimSpace(r.URL.Query().Get("type")))
	genreParam := strings.TrimSpace(r.URL.Query().Get("genre"))

	var genreID int64
	if genreParam != "" {
		parsed, err := strconv.ParseInt(genreParam, 10, 64)
		if err != nil {
			http.Error(w, "genre must be a numeric id", http.StatusBadRequest)
			return
		}
		genreID = parsed
	}
	if mediaType != "" && !mediaType.Valid() {
		http.Error(w, "unknown media type", http.StatusBadRequest)
		return
	}

	entries := h.Service.Entries()
	filtered := make([]models.LedgerEntry, 0, len(entries))
	for _, entry := range entries {
		if query != "" && !strings.Contains(strings.ToLower(entry.Item.Title), query) {
			continue
		}
		if mediaType != "" && entry.Item.MediaType != mediaType {
			continue
		}
		if genreID != 0 && !hasGenre(entry.Item.GenreIDs, genreID) {
			continue
		}
		filtered = append(filtered, entry)
	}

	writeJSON(w, historyResponse{Total: h.Service.Count(), Entries: filtered})
}

// Reset wipes the ledger and restarts the feed so everything becomes
// eligible again.
func (h *HistoryHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Reset(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.Session.Restart(r.Context()))
}

func (h *HistoryHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func hasGenre(ids []int64, want int64) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}
