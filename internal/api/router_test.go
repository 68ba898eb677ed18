package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/esalinasbarros/zmartboard/internal/app"
	iauth "github.com/esalinasbarros/zmartboard/internal/auth"
	"github.com/esalinasbarros/zmartboard/internal/database/testutil"
	"github.com/esalinasbarros/zmartboard/internal/models"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "test-secret",
		Issuer:         "zmartboard-test",
		AccessTokenTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("jwt service: %v", err)
	}

	cfg := &app.Config{}
	cfg.Monitoring.Prometheus.Enabled = true
	cfg.Monitoring.Prometheus.Endpoint = "/metrics"

	router, err := NewRouter(db, jwtSvc, cfg, nil)
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	return router, db
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for /health, got %d", w.Code)
	}

	// Protected endpoints without a token are rejected
	for _, path := range []string{"/api/auth/me", "/api/projects", "/api/users"} {
		w = doJSON(t, router, http.MethodGet, path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s without token, got %d", path, w.Code)
		}
	}

	w = doJSON(t, router, http.MethodGet, "/no/such/route", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown route, got %d", w.Code)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for /health, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for /metrics, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "zmartboard_api_latency_seconds") {
		t.Fatalf("metrics output missing latency series")
	}
}

func TestRouter_RegisterLoginProjectFlow(t *testing.T) {
	router, db := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret123!",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var code models.EmailVerification
	err := db.Where("email = ? AND verified = ?", "alice@example.com", false).
		Order("created_at DESC").
		First(&code).Error
	if err != nil {
		t.Fatalf("load verification code: %v", err)
	}

	w = doJSON(t, router, http.MethodPost, "/api/auth/verify-email", "", map[string]string{
		"email": "alice@example.com",
		"code":  code.Code,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("verify-email: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "secret123!",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var login struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if login.Data.AccessToken == "" {
		t.Fatalf("login response missing access token: %s", w.Body.String())
	}
	token := login.Data.AccessToken

	w = doJSON(t, router, http.MethodPost, "/api/projects", token, map[string]string{
		"title":       "Roadmap",
		"description": "Quarterly planning",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create project: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/projects", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list projects: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Roadmap") {
		t.Fatalf("project list missing created project: %s", w.Body.String())
	}
}
