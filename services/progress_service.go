package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sync"
	"time"

	"binge-player/models"
	"binge-player/utils"
)

// ErrInvalidKey is returned for keys outside the progress key space.
var ErrInvalidKey = errors.New("invalid progress key")

var progressKeyRe = regexp.MustCompile(`^progress_.+_ep_\d+$`)

// progressState is the on-disk layout of the progress file
type progressState struct {
	Entries     map[string]string `json:"entries"`
	LastUpdated int64             `json:"lastUpdated"`
}

// ProgressService is a file-backed key-value store for watch progress.
// Writes replace the whole value; the last write wins.
type ProgressService struct {
	progressFile string
	state        progressState
	mutex        sync.RWMutex
}

// NewProgressService creates a new progress service
func NewProgressService(progressFile string) *ProgressService {
	service := &ProgressService{
		progressFile: progressFile,
		state:        progressState{Entries: map[string]string{}},
	}

	// Load existing progress if it exists
	service.loadState()
	return service
}

// Get returns the stored value for key.
func (s *ProgressService) Get(key string) (string, bool, error) {
	if !progressKeyRe.MatchString(key) {
		return "", false, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	value, ok := s.state.Entries[key]
	return value, ok, nil
}

// Set stores value under key and persists the file.
func (s *ProgressService) Set(key, value string) error {
	if !progressKeyRe.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.state.Entries[key] = value
	s.state.LastUpdated = time.Now().Unix()

	if err := utils.WriteJSON(s.progressFile, s.state); err != nil {
		log.Printf("Set: Error saving progress to file %s: %v", s.progressFile, err)
		return fmt.Errorf("write progress file: %w", err)
	}
	return nil
}

// GetRecord decodes the progress record stored under key.
func (s *ProgressService) GetRecord(key string) (models.ProgressRecord, bool, error) {
	var record models.ProgressRecord
	value, ok, err := s.Get(key)
	if err != nil || !ok {
		return record, ok, err
	}
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		return record, false, fmt.Errorf("decode progress %s: %w", key, err)
	}
	return record, true, nil
}

// PutRecord stores record under its canonical key.
func (s *ProgressService) PutRecord(record models.ProgressRecord) (string, error) {
	key := models.ProgressKey(record.SourceID, record.EpisodeNumber)
	if record.UpdatedAt == 0 {
		record.UpdatedAt = time.Now().Unix()
	}
	data, err := json.Marshal(record)
	if err != nil {
		return key, fmt.Errorf("encode progress: %w", err)
	}
	log.Printf("PutRecord: Saving %s at %.1fs", key, record.Position)
	return key, s.Set(key, string(data))
}

// loadState loads the progress entries from file
func (s *ProgressService) loadState() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !utils.FileExists(s.progressFile) {
		log.Printf("loadState: Progress file not found, starting empty: %s", s.progressFile)
		return
	}

	var state progressState
	if err := utils.ReadJSON(s.progressFile, &state); err != nil {
		log.Printf("loadState: Error reading progress file, starting empty: %v", err)
		return
	}
	if state.Entries == nil {
		state.Entries = map[string]string{}
	}
	s.state = state
	log.Printf("loadState: Loaded %d progress entries", len(s.state.Entries))
}
