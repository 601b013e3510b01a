package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ccastromar/sos-store-ops-system/internal/config"
	"github.com/ccastromar/sos-store-ops-system/internal/metrics"
)

// Client executes catalog operations against connected stores. It is
// agnostic to which platform backs a Connection; the operation's method,
// path and body templates plus the connection credentials are all it needs.
type Client struct {
	// DefaultTimeout bounds operations that do not set their own.
	DefaultTimeout time.Duration
	HTTP           *http.Client
}

func NewClient(defaultTimeout time.Duration) *Client {
	if defaultTimeout <= 0 {
		defaultTimeout = 10 * time.Second
	}
	return &Client{
		DefaultTimeout: defaultTimeout,
		HTTP:           &http.Client{},
	}
}

// Execute performs one operation against one connection with the given
// params. The connection is borrowed: never mutated here.
func (c *Client) Execute(ctx context.Context, op config.Operation, conn config.Connection, params map[string]string) (map[string]any, error) {
	if op.Platform != "" && op.Platform != "any" && op.Platform != conn.Platform {
		return nil, fmt.Errorf("operation %s targets %s but connection %s is %s",
			op.Name, op.Platform, conn.Name, conn.Platform)
	}

	path, err := RenderString(op.Path, params)
	if err != nil {
		return nil, fmt.Errorf("render path for %s: %w", op.Name, err)
	}
	url := strings.TrimRight(conn.BaseURL, "/") + path

	var reqBody io.Reader
	if op.Method != http.MethodGet {
		rendered, err := RenderMap(op.Body, params)
		if err != nil {
			return nil, fmt.Errorf("render body for %s: %w", op.Name, err)
		}
		payload, err := json.Marshal(rendered)
		if err != nil {
			return nil, fmt.Errorf("marshal body for %s: %w", op.Name, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	// Per-operation timeout wins over the client default; both stay bounded
	// by the caller's ctx.
	to := c.DefaultTimeout
	if op.TimeoutMs > 0 {
		to = time.Duration(op.TimeoutMs) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, to)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, op.Method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("new request for %s: %w", op.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	setAuth(req, conn)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		metrics.PlatformCalls.Inc(map[string]string{"operation": op.Name, "outcome": "error"})
		return nil, fmt.Errorf("execute %s: %w", op.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.PlatformCalls.Inc(map[string]string{"operation": op.Name, "outcome": "error"})
		return nil, fmt.Errorf("read response for %s: %w", op.Name, err)
	}

	if resp.StatusCode >= 300 {
		metrics.PlatformCalls.Inc(map[string]string{"operation": op.Name, "outcome": "error"})
		return nil, fmt.Errorf("%s: status %d: %s", op.Name, resp.StatusCode, string(body))
	}

	out := make(map[string]any)
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			metrics.PlatformCalls.Inc(map[string]string{"operation": op.Name, "outcome": "error"})
			return nil, fmt.Errorf("parse response for %s: %w", op.Name, err)
		}
	}

	metrics.PlatformCalls.Inc(map[string]string{"operation": op.Name, "outcome": "ok"})
	return out, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// setAuth picks the credential header convention of the connection's
// platform.
func setAuth(req *http.Request, conn config.Connection) {
	if conn.Token == "" {
		return
	}
	switch conn.Platform {
	case "shopify":
		req.Header.Set("X-Shopify-Access-Token", conn.Token)
	default:
		req.Header.Set("Authorization", "Bearer "+conn.Token)
	}
}
