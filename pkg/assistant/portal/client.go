package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/user/campuschat/pkg/assistant"
)

// Config holds connection settings for the campus portal backend.
type Config struct {
	BaseURL string
	Token   string
	// HeaderTimeout bounds the wait for response headers. The body of a
	// streamed response is bounded only by the request context.
	HeaderTimeout time.Duration
}

// Client implements assistant.Backend against POST /api/chat.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// New creates a portal client with the given configuration.
func New(config *Config) *Client {
	timeout := config.HeaderTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				ResponseHeaderTimeout: timeout,
				IdleConnTimeout:       90 * time.Second,
			},
		},
	}
}

// Chat sends a chat request and returns the finalized model message.
func (c *Client) Chat(ctx context.Context, req *assistant.ChatRequest, onDelta func(content string)) (*assistant.Message, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream, application/json")
		httpReq.Header.Set("Cache-Control", "no-cache")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}
	if c.config.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &assistant.TransportError{Err: err}
	}
	defer resp.Body.Close()

	return assistant.Decode(ctx, resp, onDelta)
}
