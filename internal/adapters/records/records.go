// Package records looks up read-only initiative metadata by record id. The
// data is displayed next to a session and never feeds the score.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/rice/pkg/metrics"
)

// Sentinel kinds for lookup failures.
var (
	ErrNotFound    = errors.New("record not found")
	ErrDisabled    = errors.New("record lookup disabled")
	ErrUnavailable = errors.New("record service unavailable")
)

// Initiative is the metadata of one experimentation record.
type Initiative struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Hypothesis  string `json:"hypothesis,omitempty"`
	OwnerName   string `json:"owner_name,omitempty"`
	MarketName  string `json:"market_name,omitempty"`
	PageName    string `json:"page_name,omitempty"`
	Context     string `json:"context,omitempty"`
	Description string `json:"description,omitempty"`
	MainKPIName string `json:"main_kpi_name,omitempty"`
	Scope       string `json:"scope,omitempty"`
	RecordLink  string `json:"record_link,omitempty"`
}

// Lookup resolves a record id to its initiative.
type Lookup interface {
	Lookup(ctx context.Context, recordID string) (Initiative, error)
}

// Disabled is the Lookup used when no records service is configured.
type Disabled struct{}

// Lookup implements Lookup.
func (Disabled) Lookup(context.Context, string) (Initiative, error) {
	metrics.RecordRecordLookup("disabled")
	return Initiative{}, ErrDisabled
}

// HTTPClient fetches GET {base}/records/{id}.
type HTTPClient struct {
	base   string
	client *http.Client
}

// NewHTTPClient returns a client for baseURL. A nil client gets one with
// the given timeout.
func NewHTTPClient(baseURL string, timeout time.Duration, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPClient{base: strings.TrimRight(baseURL, "/"), client: client}
}

// New picks the HTTP client when baseURL is set and Disabled otherwise.
func New(baseURL string, timeout time.Duration) Lookup {
	if strings.TrimSpace(baseURL) == "" {
		return Disabled{}
	}
	return NewHTTPClient(baseURL, timeout, nil)
}

// Lookup implements Lookup.
func (c *HTTPClient) Lookup(ctx context.Context, recordID string) (Initiative, error) {
	if strings.TrimSpace(recordID) == "" {
		metrics.RecordRecordLookup("not_found")
		return Initiative{}, fmt.Errorf("%w: empty record id", ErrNotFound)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/records/"+url.PathEscape(recordID), nil)
	if err != nil {
		return Initiative{}, fmt.Errorf("build record request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordRecordLookup("error")
		return Initiative{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.RecordRecordLookup("not_found")
		return Initiative{}, fmt.Errorf("%w: %s", ErrNotFound, recordID)
	case resp.StatusCode != http.StatusOK:
		metrics.RecordRecordLookup("error")
		return Initiative{}, fmt.Errorf("%w: records returned %s", ErrUnavailable, resp.Status)
	}

	var in Initiative
	if err := json.NewDecoder(resp.Body).Decode(&in); err != nil {
		metrics.RecordRecordLookup("error")
		return Initiative{}, fmt.Errorf("%w: decode record: %w", ErrUnavailable, err)
	}
	if in.ID == "" {
		in.ID = recordID
	}
	metrics.RecordRecordLookup("found")
	return in, nil
}
