// Package session is the client-side counterpart of the auth API: it holds
// the current authenticated identity and the session token for application
// code that consumes the service.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/hashicorp/go-cleanhttp"

	"bitable-auth/internal/model"
)

// Result is the outcome of a login or register attempt, with a message
// suitable for showing to the user.
type Result struct {
	Success bool
	Message string
}

type Manager struct {
	baseURL string
	http    *http.Client

	mu      sync.RWMutex
	user    *model.User
	token   string
	loading bool
}

func NewManager(baseURL string) *Manager {
	return &Manager{
		baseURL: baseURL,
		http:    cleanhttp.DefaultClient(),
		loading: true,
	}
}

// RestoreToken seeds the manager with a previously persisted session token,
// typically read from the auth cookie. Call Bootstrap afterwards to validate it.
func (m *Manager) RestoreToken(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
}

// CurrentUser returns the authenticated user, or ok=false when anonymous.
func (m *Manager) CurrentUser() (model.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.user == nil {
		return model.User{}, false
	}
	return *m.user, true
}

// Loading reports whether the initial Bootstrap has finished.
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Token returns the held session token, empty when logged out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// envelope mirrors the server's response shape; Data stays raw until the
// caller knows what to decode it into.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Bootstrap resolves the held token into a user via the who-am-I endpoint.
// Any failure -- network, invalid token, non-success response -- drops the
// token and leaves the manager anonymous. The loading flag always ends false.
func (m *Manager) Bootstrap(ctx context.Context) {
	defer func() {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
	}()

	token := m.Token()
	if token == "" {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/auth/me", nil)
	if err != nil {
		m.clear()
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var parsed envelope
	if err := m.send(req, &parsed); err != nil || !parsed.Success {
		m.clear()
		return
	}

	var user model.User
	if err := json.Unmarshal(parsed.Data, &user); err != nil {
		m.clear()
		return
	}

	m.mu.Lock()
	m.user = &user
	m.mu.Unlock()
}

// Login authenticates and, on success, stores the returned token and user.
// On failure the session state is left untouched and the server's message is
// returned to show to the user.
func (m *Manager) Login(ctx context.Context, identifier string, password string) Result {
	parsed, err := m.post(ctx, "/api/auth/login", model.LoginRequest{
		Identifier: identifier,
		Password:   password,
	})
	if err != nil {
		return Result{Success: false, Message: "login failed, please try again later"}
	}

	if !parsed.Success {
		return Result{Success: false, Message: parsed.Message}
	}

	var data model.LoginResult
	if err := json.Unmarshal(parsed.Data, &data); err != nil {
		return Result{Success: false, Message: "login failed, please try again later"}
	}

	m.mu.Lock()
	m.user = &data.User
	m.token = data.Token
	m.mu.Unlock()

	return Result{Success: true, Message: parsed.Message}
}

// Register creates an account. It never mutates session state; a successful
// registration still requires a separate Login.
func (m *Manager) Register(ctx context.Context, req model.RegisterRequest) Result {
	parsed, err := m.post(ctx, "/api/auth/register", req)
	if err != nil {
		return Result{Success: false, Message: "registration failed, please try again later"}
	}

	return Result{Success: parsed.Success, Message: parsed.Message}
}

// Logout tells the server best-effort and unconditionally clears local state,
// so the client ends up logged out even when the network call fails.
func (m *Manager) Logout(ctx context.Context) {
	// Best effort: local logout must not depend on the server.
	_, _ = m.post(ctx, "/api/auth/logout", nil)

	m.clear()
}

// Refresh re-validates the held token, reloading the current user.
func (m *Manager) Refresh(ctx context.Context) {
	m.mu.Lock()
	m.user = nil
	m.loading = true
	m.mu.Unlock()

	m.Bootstrap(ctx)
}

func (m *Manager) post(ctx context.Context, path string, payload any) (*envelope, error) {
	var body *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := m.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	var parsed envelope
	if err := m.send(req, &parsed); err != nil {
		return nil, err
	}

	return &parsed, nil
}

func (m *Manager) send(req *http.Request, out *envelope) error {
	resp, err := m.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return json.NewDecoder(resp.Body).Decode(out)
}

func (m *Manager) clear() {
	m.mu.Lock()
	m.user = nil
	m.token = ""
	m.mu.Unlock()
}
