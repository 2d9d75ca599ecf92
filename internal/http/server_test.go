package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pocketgrow/internal/api"
	"pocketgrow/internal/config"
	"pocketgrow/internal/core"
)

// fakeAPI is a minimal stand-in for the remote savings service.
func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
			return
		}
		role := "colleague"
		if strings.HasPrefix(req.Email, "admin") {
			role = "admin"
		}
		_, _ = w.Write([]byte(`{"data":{"token":"tok-1","user":{"_id":"u1","name":"Ada","email":"` + req.Email + `","role":"` + role + `"}}}`))
	})

	mux.HandleFunc("GET /contributions", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[
			{"_id":"c1","userId":"u1","amount":500,"date":"2024-01-01"},
			{"_id":"c2","userId":"u1","amount":700,"date":"2024-01-02"}
		]`))
	})

	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"_id":"u1","name":"Ada","email":"ada@example.com","role":"colleague","totalSavings":1200,"lastContribution":"2024-01-02"}]`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	remote := fakeAPI(t)

	client, err := api.NewClient(api.Options{BaseURL: remote.URL})
	if err != nil {
		t.Fatalf("api client: %v", err)
	}

	cfg := &config.Config{
		Port:         "0",
		APIBaseURL:   remote.URL,
		APITimeout:   5 * time.Second,
		PageSize:     6,
		CacheSize:    10,
		CacheTTL:     time.Minute,
		RateLimitRPM: 1000,
		LogLevel:     "error",
	}

	srv, err := NewServer(cfg, client, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func sessionFor(t *testing.T, role core.Role) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	setSessionCookie(rr, "tok-1", core.UserSummary{ID: "u1", Name: "Ada", Role: role})
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one session cookie, got %d", len(cookies))
	}
	return cookies[0]
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rr.Code)
	}
}

func TestIndexRedirectsByRole(t *testing.T) {
	srv := newTestServer(t)

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("anonymous index: status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionFor(t, core.RoleAdmin))
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Header().Get("Location") != "/admin" {
		t.Fatalf("admin index location = %q", rr.Header().Get("Location"))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionFor(t, core.RoleColleague))
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Header().Get("Location") != "/my-savings" {
		t.Fatalf("colleague index location = %q", rr.Header().Get("Location"))
	}
}

func TestLoginSetsSessionAndRedirects(t *testing.T) {
	srv := newTestServer(t)

	form := strings.NewReader("email=admin%40example.com&password=secret")
	req := httptest.NewRequest(http.MethodPost, "/login", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/admin" {
		t.Fatalf("login: status=%d location=%q body=%s", rr.Code, rr.Header().Get("Location"), rr.Body.String())
	}
	var found bool
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie && c.Value != "" {
			found = true
			if !c.HttpOnly {
				t.Fatalf("session cookie must be HttpOnly")
			}
		}
	}
	if !found {
		t.Fatalf("login did not set a session cookie")
	}
}

func TestLoginFailureRendersForm(t *testing.T) {
	srv := newTestServer(t)

	form := strings.NewReader("email=ada%40example.com&password=wrong")
	req := httptest.NewRequest(http.MethodPost, "/login", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Login failed") {
		t.Fatalf("login failure page missing message")
	}
}

func TestMySavingsRequiresSession(t *testing.T) {
	srv := newTestServer(t)

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/my-savings", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("anonymous my-savings: status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestMySavingsRendersLedger(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/my-savings", nil)
	req.AddCookie(sessionFor(t, core.RoleColleague))
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("my-savings status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "1200 FCFA") {
		t.Fatalf("page missing total, body:\n%s", body)
	}
	if !strings.Contains(body, "2024-01-01") || !strings.Contains(body, "2024-01-02") {
		t.Fatalf("page missing contribution rows")
	}
}

func TestAdminGuard(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(sessionFor(t, core.RoleColleague))
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/my-savings" {
		t.Fatalf("colleague reached admin: status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestAdminRendersUsersAndLedger(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(sessionFor(t, core.RoleAdmin))
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("admin status = %d, body:\n%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	if !strings.Contains(body, "ada@example.com") {
		t.Fatalf("admin page missing user summary")
	}
	if !strings.Contains(body, "1200 FCFA") {
		t.Fatalf("admin page missing server-computed total")
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(sessionFor(t, core.RoleColleague))
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if rr.Header().Get("Location") != "/login" {
		t.Fatalf("logout location = %q", rr.Header().Get("Location"))
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie && c.MaxAge >= 0 {
			t.Fatalf("logout did not expire the session cookie")
		}
	}
}
