// Package counter reads the current member count of a group from a
// read-only JSON HTTP source.
package counter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
)

var (
	ErrEmptyEntity  = errors.New("counter: entity id is empty")
	ErrBadStatus    = errors.New("counter: unexpected status")
	ErrMissingCount = errors.New("counter: count field missing")
	ErrInvalidCount = errors.New("counter: count is not a non-negative integer")
)

const (
	DefaultBaseURL    = "https://groups.roblox.com/v1/groups/"
	DefaultCountField = "memberCount"

	maxBody = 1 << 20
)

type Config struct {
	BaseURL    string
	CountField string
}

// Fetcher issues GET {BaseURL}{entityID} and extracts CountField.
type Fetcher struct {
	client *http.Client
	base   string
	field  string
}

func New(cfg Config, client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	field := strings.TrimSpace(cfg.CountField)
	if field == "" {
		field = DefaultCountField
	}
	return &Fetcher{client: client, base: base, field: field}
}

// Client returns the HTTP client requests go through.
func (f *Fetcher) Client() *http.Client { return f.client }

// Fetch returns the current count for entityID. All failures are returned as
// errors wrapping one of the package sentinels or the transport error.
func (f *Fetcher) Fetch(ctx context.Context, entityID string) (int64, error) {
	id := strings.TrimSpace(entityID)
	if id == "" {
		return 0, ErrEmptyEntity
	}
	u := f.base + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("counter: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("counter: get %s: %w", id, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return 0, fmt.Errorf("counter: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}
	return parseCount(body, f.field)
}

func parseCount(body []byte, field string) (int64, error) {
	var doc map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return 0, fmt.Errorf("%w: decode: %v", ErrMissingCount, err)
	}
	raw, ok := doc[field]
	if !ok || string(raw) == "null" {
		return 0, fmt.Errorf("%w: %q", ErrMissingCount, field)
	}
	raw = bytes.TrimSpace(raw)
	// json.Number also accepts quoted numbers; the source must send a bare number.
	if len(raw) == 0 || raw[0] == '"' {
		return 0, fmt.Errorf("%w: %s", ErrInvalidCount, raw)
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidCount, raw)
	}
	if n, err := num.Int64(); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%w: %d", ErrInvalidCount, n)
		}
		return n, nil
	}
	// Accept integral floats like 1.2e3. float64(MaxInt64) rounds up to 2^63,
	// which int64 can not hold, hence >=.
	fv, err := num.Float64()
	if err != nil || fv < 0 || fv != math.Trunc(fv) || fv >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidCount, num)
	}
	return int64(fv), nil
}
