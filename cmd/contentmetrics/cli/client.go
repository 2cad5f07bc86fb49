package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/contentmetrics/contentmetrics/internal/counts"
	"github.com/contentmetrics/contentmetrics/internal/widget"
)

// APIClient handles HTTP communication with the content metrics server.
type APIClient struct {
	BaseURL    string
	Token      string
	PluginID   string
	HTTPClient *http.Client
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error (%d)", e.StatusCode)
}

// NewClient creates a new APIClient from stored credentials. Non-empty
// arguments override the stored server and token.
func NewClient(server, token string) (*APIClient, error) {
	if server == "" || token == "" {
		tokenData, err := LoadToken()
		if err != nil {
			return nil, err
		}
		if server == "" {
			server = tokenData.Server
		}
		if token == "" {
			token = tokenData.Token
		}
	}
	c := NewClientWithURL(server)
	c.Token = token
	return c, nil
}

// NewClientWithURL creates a new APIClient with an explicit server URL (for login).
// The HTTP client sets no timeout; the server alone decides how long a count takes.
func NewClientWithURL(serverURL string) *APIClient {
	return &APIClient{
		BaseURL:    strings.TrimRight(serverURL, "/"),
		PluginID:   defaultPluginID,
		HTTPClient: &http.Client{},
	}
}

func (c *APIClient) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	target := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", target, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(respBody, apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// Login authenticates with email/password and returns a JWT token.
func (c *APIClient) Login(ctx context.Context, email, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}

	err := c.do(ctx, http.MethodPost, "/admin/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return "", err
	}

	if resp.Token == "" {
		return "", fmt.Errorf("server returned empty token")
	}
	return resp.Token, nil
}

// FetchCounts retrieves the per-content-type counts. It implements
// widget.Fetcher.
func (c *APIClient) FetchCounts(ctx context.Context) (*counts.Result, error) {
	result := counts.NewResult()
	if err := c.do(ctx, http.MethodGet, "/"+c.PluginID+"/count", nil, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ContentTypeItem is one entry of the content-types listing.
type ContentTypeItem struct {
	UID         string `json:"uid"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	UserDefined bool   `json:"user_defined"`
}

// ListContentTypes returns every registered content type.
func (c *APIClient) ListContentTypes(ctx context.Context) ([]ContentTypeItem, error) {
	var resp struct {
		ContentTypes []ContentTypeItem `json:"content_types"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/content-types", nil, &resp); err != nil {
		return nil, err
	}
	return resp.ContentTypes, nil
}

// ContentTypeDetail is one content type with its record breakdown.
type ContentTypeDetail struct {
	ContentTypeItem
	Counts struct {
		Locale    string `json:"locale,omitempty"`
		Total     int64  `json:"total"`
		Published int64  `json:"published"`
		Draft     int64  `json:"draft"`
	} `json:"counts"`
}

// GetContentType returns the record breakdown of one content type. An empty
// locale counts every locale.
func (c *APIClient) GetContentType(ctx context.Context, uid, locale string) (*ContentTypeDetail, error) {
	path := "/admin/content-types/" + url.PathEscape(uid)
	if locale != "" {
		path += "?" + url.Values{"locale": {locale}}.Encode()
	}
	var resp ContentTypeDetail
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListWidgets returns the widgets registered on the server.
func (c *APIClient) ListWidgets(ctx context.Context) ([]widget.Descriptor, error) {
	var resp struct {
		Widgets []widget.Descriptor `json:"widgets"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/widgets", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Widgets, nil
}

// Health queries the unauthenticated health endpoint.
func (c *APIClient) Health(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	var resp map[string]string
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
