// Package remote queries a policy served over HTTP.
//
// Request:  POST {base_url}{path}  {"observation": [...]}
// Response: 200 {"action": [strategy, topic, difficulty, scaffolding, feedback, length]}
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/policy"
)

type Config struct {
	BaseURL   string
	Path      string
	APIKey    string
	Timeout   time.Duration
	InputSize int
}

type Policy struct {
	baseURL    string
	path       string
	apiKey     string
	timeout    time.Duration
	inputSize  int
	httpClient *http.Client
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "policy http error"
	}
	if e.Body == "" {
		return fmt.Sprintf("policy http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("policy http error: status=%d body=%s", e.StatusCode, e.Body)
}

func New(cfg Config) (*Policy, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("remote policy: base_url required")
	}
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = "/v1/predict"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Policy{
		baseURL:    baseURL,
		path:       path,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		timeout:    timeout,
		inputSize:  cfg.InputSize,
		httpClient: &http.Client{Transport: tr},
	}, nil
}

// NewWithHTTPClient is intended for tests; it avoids network access by using a custom RoundTripper.
func NewWithHTTPClient(cfg Config, httpClient *http.Client) (*Policy, error) {
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		p.httpClient = httpClient
	}
	return p, nil
}

func (p *Policy) Name() string { return "remote:" + p.baseURL }

func (p *Policy) InputSize() int { return p.inputSize }

type predictRequest struct {
	Observation []float64 `json:"observation"`
}

type predictResponse struct {
	Action []int `json:"action"`
}

func (p *Policy) Predict(ctx context.Context, obs []float64) (domain.ActionIndices, error) {
	var out domain.ActionIndices
	if p.inputSize > 0 && len(obs) != p.inputSize {
		return out, fmt.Errorf("%w: got %d want %d", policy.ErrInputSize, len(obs), p.inputSize)
	}

	var resp predictResponse
	if err := p.doJSON(ctx, predictRequest{Observation: obs}, &resp); err != nil {
		return out, err
	}
	if len(resp.Action) != domain.ActionHeads {
		return out, fmt.Errorf("%w: got %d heads want %d", policy.ErrInvalidAction, len(resp.Action), domain.ActionHeads)
	}
	copy(out[:], resp.Action)
	return out, nil
}

func (p *Policy) doJSON(ctx context.Context, body any, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+p.path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", policy.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		herr := &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %w", policy.ErrUnavailable, herr)
		}
		return herr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", policy.ErrInvalidAction, err)
	}
	return nil
}
