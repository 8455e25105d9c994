package storage

import (
	"fmt"
	"sync"

	"rsvp-bot/internal/models"
)

// FollowUpFile persists the pending follow-up list so a restart does not
// drop re-prompts.
type FollowUpFile struct {
	mu   sync.Mutex
	file jsonFile
}

func NewFollowUpFile(filePath string) *FollowUpFile {
	return &FollowUpFile{file: jsonFile{path: filePath}}
}

// Load returns the stored entries, or none if the file does not exist yet.
func (f *FollowUpFile) Load() ([]models.FollowUp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var entries []models.FollowUp
	if !f.file.exists() {
		return entries, nil
	}
	if err := f.file.load(&entries); err != nil {
		return nil, fmt.Errorf("failed to load follow-ups: %w", err)
	}
	return entries, nil
}

// Save replaces the stored entries.
func (f *FollowUpFile) Save(entries []models.FollowUp) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if entries == nil {
		entries = []models.FollowUp{}
	}
	return f.file.save(entries)
}
