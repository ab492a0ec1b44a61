package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"

	"github.com/KMcClain23/WarriorMomma/internal/books"
)

// DefaultDatasetteDatabase is the database name used on the Datasette side.
const DefaultDatasetteDatabase = "warriormomma"

// DatasettePublisher pushes book rows to a remote Datasette instance using
// the datasette-insert plugin API. Rows use the same columns as the SQLite
// backend.
type DatasettePublisher struct {
	baseURL  string
	apiToken string
	database string
	client   *http.Client
}

// NewDatasettePublisher creates a new DatasettePublisher instance
func NewDatasettePublisher(baseURL, apiToken, database string, client *http.Client) *DatasettePublisher {
	if database == "" {
		database = DefaultDatasetteDatabase
	}
	if client == nil {
		client = &http.Client{}
	}
	return &DatasettePublisher{
		baseURL:  baseURL,
		apiToken: apiToken,
		database: database,
		client:   client,
	}
}

// Publish sends records to the given table.
func (c *DatasettePublisher) Publish(ctx context.Context, table string, recs []books.Record) error {
	if len(recs) == 0 {
		return nil
	}

	// Construct the API endpoint URL
	u, err := url.Parse(c.baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL %q", c.baseURL)
	}
	u.Path = path.Join(u.Path, "-/insert", c.database, table)

	rows := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		values, err := bookValues(rec)
		if err != nil {
			return err
		}
		row := make(map[string]any, len(bookColumns))
		for i, col := range bookColumns {
			row[col] = values[i]
		}
		rows = append(rows, row)
	}

	jsonData, err := json.Marshal(map[string]any{"rows": rows})
	if err != nil {
		return fmt.Errorf("failed to marshal JSON payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return fmt.Errorf("request failed with status %d", resp.StatusCode)
		}
		return fmt.Errorf("API error: %v", errResp)
	}

	return nil
}
