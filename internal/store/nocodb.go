package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/logger"
	"golang.org/x/time/rate"

	"luckyenvelope/internal/models"
)

// UnexpectedStatusError is returned when the record store answers with a
// non-2xx status.
type UnexpectedStatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s %s -> %d body=%q", e.Method, e.URL, e.Code, e.Body)
}

// NocoDBConfig configures a NocoDB v2 table client.
type NocoDBConfig struct {
	// RecordsURL is the table's records endpoint,
	// e.g. https://host/api/v2/tables/<table>/records.
	RecordsURL string
	Token      string
	Timeout    time.Duration

	// RatePerSecond throttles outbound calls; zero disables throttling.
	RatePerSecond float64
	HTTPClient    *http.Client
}

// NocoDB talks to a NocoDB v2 table over REST.
type NocoDB struct {
	recordsURL string
	token      string
	http       *http.Client
	limiter    *rate.Limiter
}

// NewNocoDB returns a client for cfg.RecordsURL.
func NewNocoDB(cfg NocoDBConfig) (*NocoDB, error) {
	if cfg.RecordsURL == "" {
		return nil, fmt.Errorf("nocodb records url is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("nocodb token is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		burst := int(cfg.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return &NocoDB{
		recordsURL: strings.TrimRight(cfg.RecordsURL, "/"),
		token:      cfg.Token,
		http:       hc,
		limiter:    limiter,
	}, nil
}

type listResp struct {
	List     []models.Participant `json:"list"`
	PageInfo struct {
		TotalRows *int `json:"totalRows"`
	} `json:"pageInfo"`
}

// List implements Client.
func (c *NocoDB) List(ctx context.Context, q Query) (Page, error) {
	params := url.Values{}
	if len(q.Where) > 0 {
		params.Set("where", q.WhereClause())
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	u := c.recordsURL
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var out listResp
	if err := c.do(ctx, http.MethodGet, u, nil, &out); err != nil {
		return Page{}, err
	}
	page := Page{Records: out.List, Total: len(out.List)}
	if out.PageInfo.TotalRows != nil {
		page.Total = *out.PageInfo.TotalRows
	}
	return page, nil
}

// Patch implements Client. NocoDB v2 takes the id in the body.
func (c *NocoDB) Patch(ctx context.Context, id int64, fields Fields) error {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body[FieldID] = id
	return c.do(ctx, http.MethodPatch, c.recordsURL, body, nil)
}

func (c *NocoDB) do(ctx context.Context, method, u string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("xc-token", c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	logger.V(1).Infof("nocodb: %s %s -> %d (%s)", method, req.URL.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UnexpectedStatusError{Method: method, URL: req.URL.Path, Code: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
