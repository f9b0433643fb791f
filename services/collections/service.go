package collections

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"movemovies/models"

	"github.com/sourcegraph/conc/pool"
)

var (
	ErrStorageDirRequired = errors.New("storage directory not provided")
	ErrUnknownKind        = errors.New("unknown collection kind")
)

// Kind selects one of the two user collections.
type Kind string

const (
	KindFavorites Kind = "favorites"
	KindWatched   Kind = "watched"
)

// Valid reports whether the kind names a known collection.
func (k Kind) Valid() bool {
	return k == KindFavorites || k == KindWatched
}

type detailFetcher interface {
	Details(ctx context.Context, mediaType models.MediaType, id int64, lang string) (models.CatalogDetail, error)
}

// Service manages the favorites and watched collections: deduplicated,
// insertion-ordered, each persisted as its own JSON record.
type Service struct {
	mu    sync.RWMutex
	paths map[Kind]string
	items map[Kind][]models.CatalogItem
}

// NewService creates a collections service storing data inside the provided
// directory. Corrupted records fall back to empty collections.
func NewService(storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create collections dir: %w", err)
	}

	svc := &Service{
		paths: map[Kind]string{
			KindFavorites: filepath.Join(storageDir, "favorites.json"),
			KindWatched:   filepath.Join(storageDir, "watched.json"),
		},
		items: map[Kind][]models.CatalogItem{},
	}
	for kind, path := range svc.paths {
		svc.items[kind] = loadCollection(path)
	}
	return svc, nil
}

func loadCollection(path string) []models.CatalogItem {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return nil
	}
	var items []models.CatalogItem
	if err := json.Unmarshal(data, &items); err != nil {
		log.Printf("[collections] corrupted record %s, starting empty: %v", filepath.Base(path), err)
		return nil
	}
	return dedupe(items)
}

func dedupe(items []models.CatalogItem) []models.CatalogItem {
	seen := make(map[int64]struct{}, len(items))
	out := make([]models.CatalogItem, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

// List returns a copy of a collection in insertion order.
func (s *Service) List(kind Kind) ([]models.CatalogItem, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CatalogItem, len(s.items[kind]))
	copy(out, s.items[kind])
	return out, nil
}

// Add appends an item to a collection unless its id is already present.
func (s *Service) Add(kind Kind, item models.CatalogItem) error {
	if !kind.Valid() {
		return ErrUnknownKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items[kind] {
		if existing.ID == item.ID {
			return nil
		}
	}

	updated := append(append([]models.CatalogItem{}, s.items[kind]...), item)
	if err := s.persistLocked(kind, updated); err != nil {
		return err
	}
	s.items[kind] = updated
	return nil
}

// Remove deletes an item from a collection by id, reporting whether it was
// present.
func (s *Service) Remove(kind Kind, id int64) (bool, error) {
	if !kind.Valid() {
		return false, ErrUnknownKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.items[kind]
	updated := make([]models.CatalogItem, 0, len(current))
	removed := false
	for _, item := range current {
		if item.ID == id {
			removed = true
			continue
		}
		updated = append(updated, item)
	}
	if !removed {
		return false, nil
	}

	if err := s.persistLocked(kind, updated); err != nil {
		return false, err
	}
	s.items[kind] = updated
	return true, nil
}

// Contains reports whether a collection holds the id.
func (s *Service) Contains(kind Kind, id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items[kind] {
		if item.ID == id {
			return true
		}
	}
	return false
}

// CollectedIDs returns the union of ids across both collections, the set the
// discover feed filters against.
func (s *Service) CollectedIDs() map[int64]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]struct{})
	for _, items := range s.items {
		for _, item := range items {
			out[item.ID] = struct{}{}
		}
	}
	return out
}

// RefreshLanguage re-fetches item metadata for both collections so they
// render in the new display language. A failed fetch keeps the stale item;
// insertion order is preserved.
func (s *Service) RefreshLanguage(ctx context.Context, fetcher detailFetcher) error {
	for _, kind := range []Kind{KindFavorites, KindWatched} {
		s.mu.RLock()
		snapshot := make([]models.CatalogItem, len(s.items[kind]))
		copy(snapshot, s.items[kind])
		s.mu.RUnlock()

		if len(snapshot) == 0 {
			continue
		}

		refreshed := make([]models.CatalogItem, len(snapshot))
		p := pool.New().WithMaxGoroutines(4)
		for i, item := range snapshot {
			p.Go(func() {
				refreshed[i] = item
				detail, err := fetcher.Details(ctx, item.MediaType, item.ID, "")
				if err != nil {
					return
				}
				refreshed[i] = detail.CatalogItem
			})
		}
		p.Wait()

		s.mu.Lock()
		// Items added or removed during the refresh win; only items still
		// present get their metadata swapped.
		byID := make(map[int64]models.CatalogItem, len(refreshed))
		for _, item := range refreshed {
			byID[item.ID] = item
		}
		current := s.items[kind]
		merged := make([]models.CatalogItem, 0, len(current))
		for _, item := range current {
			if updated, ok := byID[item.ID]; ok {
				merged = append(merged, updated)
			} else {
				merged = append(merged, item)
			}
		}
		err := s.persistLocked(kind, merged)
		if err == nil {
			s.items[kind] = merged
		}
		s.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) persistLocked(kind Kind, items []models.CatalogItem) error {
	if items == nil {
		items = []models.CatalogItem{}
	}
	if err := writeJSONFile(s.paths[kind], items); err != nil {
		return fmt.Errorf("persist %s: %w", kind, err)
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}
