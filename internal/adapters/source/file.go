// Package source provides record data source adapters.
// Clean Architecture: Adapters implementing ports.DataSource.
// Both sources fail softly: a missing, unreadable, or malformed source
// yields an error the index manager logs and skips - never a partial
// collection.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/0xcro3dile/licenserag-go/internal/domain/entities"
)

// FileSource reads records from a local JSON file containing an array of
// record objects.
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed data source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch returns all records from the file.
func (s *FileSource) Fetch(ctx context.Context) ([]entities.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading data file %s: %w", s.path, err)
	}

	var records []entities.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("data file %s must contain a JSON array of records: %w", s.path, err)
	}
	return records, nil
}

// Path returns the watched file path, for the source watcher.
func (s *FileSource) Path() string {
	return s.path
}
