// Package storage persists routing state in JSON files under the data dir.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrTenantNotFound = errors.New("tenant not found")
)

type jsonFile struct {
	path string
}

// exists reports whether the file is present on disk.
func (f jsonFile) exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// load decodes the file into v. An empty file leaves v untouched.
func (f jsonFile) load(v any) error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return nil
}

// save writes v to a sibling temp file and renames it into place.
func (f jsonFile) save(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}
