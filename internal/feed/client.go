package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"insightbot/pkg/logx"
)

// Config points the client at the upstream API.
type Config struct {
	BaseURL string
	Limit   int
	Timeout time.Duration
}

// Client fetches the most recent insights, newest first.
type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
}

func NewClient(cfg Config, log logx.Logger) *Client {
	if cfg.Limit <= 0 {
		cfg.Limit = 6
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// Fetch returns up to Limit items sorted by publication time descending.
// An empty feed is a normal result; a transport error or non-2xx status
// is not and fails the whole run.
func (c *Client) Fetch(ctx context.Context) ([]Insight, error) {
	u, err := c.itemsURL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch insights: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch insights: unexpected status %s", resp.Status)
	}

	var items []Insight
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode insights: %w", err)
	}

	c.log.Debug("feed fetched", logx.Int("items", len(items)))
	return items, nil
}

func (c *Client) itemsURL() (string, error) {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	u, err := url.Parse(base + "/items")
	if err != nil {
		return "", fmt.Errorf("feed base url: %w", err)
	}
	q := u.Query()
	q.Set("sort", "publishedAt")
	q.Set("order", "desc")
	q.Set("limit", strconv.Itoa(c.cfg.Limit))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
