//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"bitable-auth/internal/bitable"
	"bitable-auth/internal/config"
	"bitable-auth/internal/handler"
	"bitable-auth/internal/middleware"
	"bitable-auth/internal/router"
	"bitable-auth/internal/service"
	"bitable-auth/internal/token"
)

// tableServer is an in-memory stand-in for the upstream tabular store: it
// issues tenant tokens and keeps real rows, so registration and login flows
// run end to end without the real service.
type tableServer struct {
	mu        sync.Mutex
	exchanges int
	nextID    int
	rows      map[string]map[string]any // record_id -> fields
}

var filterPattern = regexp.MustCompile(`^CurrentValue\.\[(\w+)\] = "(.*)"$`)

func newTableServer(t *testing.T) (*tableServer, *httptest.Server) {
	t.Helper()

	table := &tableServer{rows: map[string]map[string]any{}}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/v3/tenant_access_token/internal/", func(w http.ResponseWriter, _ *http.Request) {
		table.mu.Lock()
		table.exchanges++
		token := fmt.Sprintf("tenant-%d", table.exchanges)
		table.mu.Unlock()

		writeJSON(w, map[string]any{
			"code": 0, "msg": "ok",
			"tenant_access_token": token,
			"expire":              7200,
		})
	})

	mux.HandleFunc("GET /bitable/v1/apps/app-token/tables/tbl-users/records", func(w http.ResponseWriter, r *http.Request) {
		table.mu.Lock()
		defer table.mu.Unlock()

		match := filterPattern.FindStringSubmatch(r.URL.Query().Get("filter"))
		items := []map[string]any{}
		if match != nil {
			field, value := match[1], match[2]
			for id, fields := range table.rows {
				if fields[field] == value {
					items = append(items, map[string]any{"record_id": id, "fields": fields})
				}
			}
		}

		writeJSON(w, map[string]any{
			"code": 0, "msg": "ok",
			"data": map[string]any{"items": items},
		})
	})

	mux.HandleFunc("POST /bitable/v1/apps/app-token/tables/tbl-users/records", func(w http.ResponseWriter, r *http.Request) {
		table.mu.Lock()
		defer table.mu.Unlock()

		var payload struct {
			Fields map[string]any `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSON(w, map[string]any{"code": 1, "msg": "bad payload"})
			return
		}

		table.nextID++
		id := fmt.Sprintf("rec-%d", table.nextID)
		table.rows[id] = payload.Fields

		writeJSON(w, map[string]any{
			"code": 0, "msg": "ok",
			"data": map[string]any{"record": map[string]any{"record_id": id, "fields": payload.Fields}},
		})
	})

	mux.HandleFunc("PUT /bitable/v1/apps/app-token/tables/tbl-users/records/{id}", func(w http.ResponseWriter, r *http.Request) {
		table.mu.Lock()
		defer table.mu.Unlock()

		id := r.PathValue("id")
		fields, exists := table.rows[id]
		if !exists {
			writeJSON(w, map[string]any{"code": 1254043, "msg": "record not found"})
			return
		}

		var payload struct {
			Fields map[string]any `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSON(w, map[string]any{"code": 1, "msg": "bad payload"})
			return
		}
		for key, value := range payload.Fields {
			fields[key] = value
		}

		writeJSON(w, map[string]any{
			"code": 0, "msg": "ok",
			"data": map[string]any{"record": map[string]any{"record_id": id, "fields": fields}},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return table, server
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// newAuthServer wires the full application stack against the fake table and
// returns it as an HTTP test server.
func newAuthServer(t *testing.T) (*tableServer, *httptest.Server) {
	t.Helper()

	table, upstream := newTableServer(t)

	cfg := &config.Config{
		ServerPort:      "8080",
		RequestTimeout:  30 * time.Second,
		JWTSecret:       "test-secret",
		SessionTTL:      168 * time.Hour,
		FeishuBaseURL:   upstream.URL,
		FeishuAppID:     "app-id",
		FeishuAppSecret: "app-secret",
		FeishuAppToken:  "app-token",
		FeishuTableID:   "tbl-users",
	}

	store := bitable.NewClient(cfg.FeishuBaseURL, cfg.FeishuAppID, cfg.FeishuAppSecret,
		cfg.FeishuAppToken, cfg.FeishuTableID)
	tokens := token.NewService(cfg.JWTSecret, cfg.SessionTTL)
	authService := service.NewAuthService(store, tokens)
	authMiddleware := middleware.NewAuthMiddleware(tokens)
	authHandler := handler.NewAuthHandler(authService, tokens, cfg.Production)

	server := httptest.NewServer(router.New(cfg, authMiddleware, authHandler))
	t.Cleanup(server.Close)

	return table, server
}
