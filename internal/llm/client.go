package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"newsletter-finder/config"
)

// Answerer turns a prompt into the upstream service's free-form answer.
type Answerer interface {
	Answer(ctx context.Context, prompt string) (string, error)
}

// UpstreamError is returned for every failure talking to the inference service.
// StatusCode is zero when no HTTP response was received.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("inference service status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("inference service: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	cfg     config.UpstreamConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates an upstream client. A zero rate limit disables client-side throttling.
func NewClient(cfg config.UpstreamConfig) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Upstream client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	var limiter *rate.Limiter
	if cfg.RateLimitPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	}

	return &Client{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		limiter: limiter,
	}
}

// Answer sends prompt as a single user message and returns choices[0].message.content.
// There is no retry; the caller decides whether to ask again.
func (c *Client) Answer(ctx context.Context, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &UpstreamError{Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	jsonBody, err := json.Marshal(chatRequest{
		Model:    c.cfg.Model,
		Messages: []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", &UpstreamError{Err: fmt.Errorf("failed to marshal request payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", &UpstreamError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &UpstreamError{Err: fmt.Errorf("http request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Err: fmt.Errorf("received non-200 status code: %s", truncate(body, 512))}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to unmarshal api response: %w", err)}
	}
	if chatResp.Error != nil {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Err: fmt.Errorf("API returned error: %s", chatResp.Error.Message)}
	}
	if len(chatResp.Choices) == 0 {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Err: errors.New("no choices in response")}
	}

	content := chatResp.Choices[0].Message.Content
	if content == "" {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Err: errors.New("empty message content in response")}
	}
	return content, nil
}

// truncate keeps at most n bytes of b, backing off to a rune boundary.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	for n > 0 && !utf8.RuneStart(b[n]) {
		n--
	}
	return string(b[:n]) + "..."
}
