// Package bitable talks to the upstream tabular store that holds the user
// table. It owns the short-lived tenant access token the store requires and
// refreshes it proactively before expiry; the token never leaves this package.
package bitable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"bitable-auth/pkg/apierror"
)

// DefaultBaseURL is the production endpoint of the store's open API.
const DefaultBaseURL = "https://open.feishu.cn/open-apis"

// tokenLifetime keeps the cached tenant token 10 minutes short of its nominal
// 2-hour validity, so refresh happens before the store would reject it.
const tokenLifetime = 110 * time.Minute

type Client struct {
	baseURL   string
	appID     string
	appSecret string
	appToken  string
	tableID   string
	http      *http.Client
	now       func() time.Time

	// mu serializes the check-and-refresh of the cached token so concurrent
	// operations trigger at most one credential exchange per refresh window.
	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(baseURL string, appID string, appSecret string, appToken string, tableID string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL:   baseURL,
		appID:     appID,
		appSecret: appSecret,
		appToken:  appToken,
		tableID:   tableID,
		http:      cleanhttp.DefaultPooledClient(),
		now:       time.Now,
	}
}

type tenantTokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"`
}

// ensureAccessToken returns the cached tenant token, exchanging app
// credentials for a fresh one when the cache is empty or stale. A failed
// exchange is surfaced as UPSTREAM_AUTH; there is no retry here.
func (c *Client) ensureAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	body, err := json.Marshal(map[string]string{
		"app_id":     c.appID,
		"app_secret": c.appSecret,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/v3/tenant_access_token/internal/", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apierror.UpstreamAuth("credential exchange failed", err.Error())
	}
	defer resp.Body.Close()

	var parsed tenantTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", apierror.UpstreamAuth("credential exchange returned an unreadable body", err.Error())
	}

	if resp.StatusCode >= http.StatusMultipleChoices || parsed.Code != 0 {
		return "", apierror.UpstreamAuth("credential exchange rejected",
			fmt.Sprintf("code=%d msg=%s", parsed.Code, parsed.Msg))
	}

	c.accessToken = parsed.TenantAccessToken
	c.tokenExpiry = c.now().Add(tokenLifetime)

	return c.accessToken, nil
}

// do performs an authenticated request against the store and decodes the JSON
// body into out. It acquires a valid tenant token first.
func (c *Client) do(ctx context.Context, method string, rawURL string, payload any, out envelope) error {
	token, err := c.ensureAccessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("store response unreadable: %w", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices || out.status() != 0 {
		return fmt.Errorf("code=%d msg=%s", out.status(), out.message())
	}

	return nil
}

func (c *Client) recordsURL() string {
	return fmt.Sprintf("%s/bitable/v1/apps/%s/tables/%s/records", c.baseURL, c.appToken, c.tableID)
}

func (c *Client) recordURL(recordID string) string {
	return c.recordsURL() + "/" + url.PathEscape(recordID)
}
