package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stoik/trustlayer/internal/models"
)

const (
	TypeGoogle    = "google"
	TypeMicrosoft = "microsoft"

	defaultBaseURL = "http://localhost:8081"
)

// HTTPProvider talks to a provider API exposing
// GET {base}/{type}/threads/{thread_id}
type HTTPProvider struct {
	kind    string
	baseURL string
	client  *http.Client
}

// NewHTTPProvider creates a client for the given provider kind
func NewHTTPProvider(kind, baseURL string) *HTTPProvider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &HTTPProvider{
		kind:    kind,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewProvider creates a provider instance from configuration.
// providerType can be "google" or "microsoft" (defaults to "google").
func NewProvider(providerType, baseURL string) Provider {
	switch providerType {
	case TypeMicrosoft:
		return NewHTTPProvider(TypeMicrosoft, baseURL)
	case TypeGoogle:
		fallthrough
	default:
		return NewHTTPProvider(TypeGoogle, baseURL)
	}
}

func (p *HTTPProvider) Type() string { return p.kind }

// GetThread implements Provider.GetThread
func (p *HTTPProvider) GetThread(ctx context.Context, threadID string) (*models.StoredEmail, error) {
	u := fmt.Sprintf("%s/%s/threads/%s", p.baseURL, p.kind, url.PathEscape(threadID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var email models.StoredEmail
	if err := json.NewDecoder(resp.Body).Decode(&email); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if email.ThreadID == "" {
		email.ThreadID = threadID
	}
	return &email, nil
}
