package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"movemovies/models"
)

var ErrStorageDirRequired = errors.New("storage directory not provided")

// Preferences is the persisted user state that is not media history: the
// catalog credentials, the display language and the active filter criteria.
type Preferences struct {
	APIKey   string                `json:"apiKey"`
	Language string                `json:"language"`
	Criteria models.FilterCriteria `json:"criteria"`
}

// Service persists Preferences as a single JSON record.
type Service struct {
	mu    sync.RWMutex
	path  string
	prefs Preferences
}

// NewService loads preferences from the storage directory, seeding missing
// fields from the provided defaults. A corrupted record falls back to the
// defaults.
func NewService(storageDir, defaultKey, defaultLanguage string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create prefs dir: %w", err)
	}

	svc := &Service{path: filepath.Join(storageDir, "preferences.json")}
	svc.prefs = load(svc.path)
	if strings.TrimSpace(svc.prefs.APIKey) == "" {
		svc.prefs.APIKey = strings.TrimSpace(defaultKey)
	}
	if strings.TrimSpace(svc.prefs.Language) == "" {
		svc.prefs.Language = defaultLanguage
	}
	if svc.prefs.Language == "" {
		svc.prefs.Language = "en-US"
	}
	if !svc.prefs.Criteria.Type.Valid() {
		svc.prefs.Criteria = models.DefaultFilterCriteria()
	}
	svc.prefs.Criteria.Normalize()
	return svc, nil
}

func load(path string) Preferences {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return Preferences{}
	}
	var prefs Preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		log.Printf("[prefs] corrupted record, using defaults: %v", err)
		return Preferences{}
	}
	return prefs
}

// Get returns the current preferences.
func (s *Service) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// APIKey returns the stored catalog API key, empty when not configured.
func (s *Service) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.APIKey
}

// Language returns the stored display language.
func (s *Service) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Language
}

// Criteria returns the stored filter criteria.
func (s *Service) Criteria() models.FilterCriteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Criteria
}

// SetAPIKey persists a new catalog API key.
func (s *Service) SetAPIKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := s.prefs
	updated.APIKey = strings.TrimSpace(key)
	return s.commit(updated)
}

// SetLanguage persists a new display language.
func (s *Service) SetLanguage(language string) error {
	language = strings.TrimSpace(language)
	if language == "" {
		return errors.New("language is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := s.prefs
	updated.Language = language
	return s.commit(updated)
}

// SetCriteria normalizes and persists new filter criteria, returning the
// normalized form.
func (s *Service) SetCriteria(criteria models.FilterCriteria) (models.FilterCriteria, error) {
	criteria.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := s.prefs
	updated.Criteria = criteria
	if err := s.commit(updated); err != nil {
		return models.FilterCriteria{}, err
	}
	return criteria, nil
}

func (s *Service) commit(updated Preferences) error {
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(updated); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	s.prefs = updated
	return nil
}
