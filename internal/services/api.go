// RPC client for the CRM's /api/method endpoints
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// APIService calls whitelisted methods on the CRM site and exposes raw GET/POST for debugging.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *RateLimiter
}

// NewAPIService creates a new API service instance for the CRM site at baseURL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// WithRateLimiter paces every request through l.
func (a *APIService) WithRateLimiter(l *RateLimiter) *APIService {
	a.limiter = l
	return a
}

// BaseURL returns the site URL requests are sent to.
func (a *APIService) BaseURL() string {
	return a.baseURL
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// MethodPath returns the URL path of a whitelisted method.
func MethodPath(method string) string {
	return "/api/method/" + method
}

// Call invokes method with args as a JSON body and decodes the "message" field of the reply into out.
//
// out may be nil when the caller only cares about success. Non-2xx replies become a [*RemoteError].
func (a *APIService) Call(ctx context.Context, method string, args any, out any) error {
	if args == nil {
		args = struct{}{}
	}
	body, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to encode arguments for %s: %w", method, err)
	}

	resp, err := a.Post(ctx, MethodPath(method), body)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusTooManyRequests && a.limiter != nil {
			retryAfter, _ := strconv.Atoi(resp.Headers.Get("Retry-After"))
			a.limiter.RecordRateLimitError(retryAfter)
		}
		return newRemoteError(method, resp.StatusCode, resp.Body)
	}

	if out == nil {
		return nil
	}

	var envelope struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", method, err)
	}
	if len(envelope.Message) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Message, out); err != nil {
		return fmt.Errorf("%s: failed to decode message: %w", method, err)
	}
	return nil
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return a.do(req)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return a.do(req)
}

func (a *APIService) do(req *http.Request) (*APIResponse, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}
