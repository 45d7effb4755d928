package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ProvisionTimeout bounds a single start/stop call against the remote
// browser service.
const ProvisionTimeout = 30 * time.Second

// RemoteSession is the handle returned by the provisioning service for a
// started account session.
type RemoteSession struct {
	ID         string `json:"id"`
	AccountRef string `json:"accountRef"`
	Status     string `json:"status"`
	ConnectURL string `json:"connectUrl"`
}

// Provisioner starts and stops remote browser sessions for an account. The
// service is a black box; failures surface as provisioning errors.
type Provisioner interface {
	Start(ctx context.Context, accountRef string) (*RemoteSession, error)
	Stop(ctx context.Context, accountRef string) error
}

// ProvisionClient talks to the remote browser provisioning service over its
// JSON HTTP API.
type ProvisionClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewProvisionClient(baseURL, token string) *ProvisionClient {
	return &ProvisionClient{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: ProvisionTimeout},
	}
}

type startSessionRequest struct {
	AccountRef string `json:"accountRef"`
	TimeoutSec int    `json:"timeout,omitempty"`
}

func (c *ProvisionClient) Start(ctx context.Context, accountRef string) (*RemoteSession, error) {
	body, _ := json.Marshal(startSessionRequest{AccountRef: accountRef, TimeoutSec: int(ProvisionTimeout.Seconds())})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build start request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("start session for %s: %w", accountRef, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("start session for %s: status %d: %s", accountRef, resp.StatusCode, string(b))
	}

	var sess RemoteSession
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}
	if sess.ConnectURL == "" {
		return nil, fmt.Errorf("start session for %s: no connect url in response", accountRef)
	}
	if sess.AccountRef == "" {
		sess.AccountRef = accountRef
	}
	return &sess, nil
}

func (c *ProvisionClient) Stop(ctx context.Context, accountRef string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/sessions/"+accountRef+"/stop", nil)
	if err != nil {
		return fmt.Errorf("build stop request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("stop session for %s: %w", accountRef, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("stop session for %s: status %d", accountRef, resp.StatusCode)
	}
	return nil
}
