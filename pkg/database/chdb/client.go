package chdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrResponse wraps non-200 answers from the ClickHouse HTTP interface.
var ErrResponse = errors.New("clickhouse error")

// response is the JSON envelope the HTTP interface returns for FORMAT JSON
// queries.
type response struct {
	Data []json.RawMessage `json:"data"`
	Rows int               `json:"rows"`
}

// client talks to ClickHouse over its HTTP interface. Queries run with
// per-request timeouts; a context with its own deadline wins.
type client struct {
	log           logrus.FieldLogger
	httpClient    *http.Client
	baseURL       string
	debug         bool
	queryTimeout  time.Duration
	insertTimeout time.Duration
}

func newHTTPClient(log logrus.FieldLogger, cfg *Config) *client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     cfg.KeepAlive,
	}

	return &client{
		log:           log,
		httpClient:    &http.Client{Transport: transport},
		baseURL:       strings.TrimRight(cfg.URL, "/"),
		debug:         cfg.Debug,
		queryTimeout:  cfg.QueryTimeout,
		insertTimeout: cfg.InsertTimeout,
	}
}

// ping checks connectivity; the store calls it once at construction.
func (c *client) ping(ctx context.Context) error {
	if _, err := c.exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	return nil
}

// query runs a SELECT with FORMAT JSON and returns the raw row payloads.
func (c *client) query(ctx context.Context, sql string) ([]json.RawMessage, error) {
	body, err := c.do(ctx, sql+" FORMAT JSON", c.timeout(ctx, c.queryTimeout))
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}

	var result response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return result.Data, nil
}

// exec runs a statement and returns the raw response body.
func (c *client) exec(ctx context.Context, sql string) ([]byte, error) {
	body, err := c.do(ctx, sql, c.timeout(ctx, c.queryTimeout))
	if err != nil {
		return nil, fmt.Errorf("execution failed: %w", err)
	}

	return body, nil
}

// insertRows bulk-inserts pre-marshaled rows with JSONEachRow.
func (c *client) insertRows(ctx context.Context, table string, rows [][]byte) error {
	if len(rows) == 0 {
		return nil
	}

	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("INSERT INTO %s FORMAT JSONEachRow\n", table))

	for _, row := range rows {
		buf.Write(row)
		buf.WriteByte('\n')
	}

	if _, err := c.do(ctx, buf.String(), c.timeout(ctx, c.insertTimeout)); err != nil {
		return fmt.Errorf("bulk insert failed: %w", err)
	}

	return nil
}

func (c *client) do(ctx context.Context, query string, timeout time.Duration) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "text/plain")

	if c.debug {
		logQuery := query
		if len(query) > 1000 {
			logQuery = query[:1000] + "... (truncated)"
		}

		c.log.WithField("query", logQuery).Debug("Executing ClickHouse query")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.WithError(closeErr).Debug("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp struct {
			Exception string `json:"exception"`
		}

		if jsonErr := json.Unmarshal(body, &errorResp); jsonErr == nil && errorResp.Exception != "" {
			return nil, fmt.Errorf("%w (status %d): %s", ErrResponse, resp.StatusCode, errorResp.Exception)
		}

		return nil, fmt.Errorf("%w (status %d): %s", ErrResponse, resp.StatusCode, string(body))
	}

	return body, nil
}

func (c *client) timeout(ctx context.Context, fallback time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		return time.Until(deadline)
	}

	return fallback
}

func (c *client) close() {
	c.httpClient.CloseIdleConnections()
}
