package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/0xcro3dile/licenserag-go/internal/domain/entities"
)

// APISource fetches records from a remote endpoint that returns a JSON array.
type APISource struct {
	url    string
	client *http.Client
}

// NewAPISource creates an API-backed data source.
func NewAPISource(url string) *APISource {
	return &APISource{
		url: url,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch returns all records from the endpoint.
func (s *APISource) Fetch(ctx context.Context) ([]entities.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching data from %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("data API returned status %d", resp.StatusCode)
	}

	var records []entities.Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("data API must return a JSON array of records: %w", err)
	}
	return records, nil
}
