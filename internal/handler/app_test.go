package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rosterly/rosterly/internal/auth"
	"github.com/rosterly/rosterly/internal/metrics"
	"github.com/rosterly/rosterly/internal/middleware"
	"github.com/rosterly/rosterly/internal/model"
	"github.com/rosterly/rosterly/internal/repository/sqlite"
	"github.com/rosterly/rosterly/internal/service"
	"github.com/rosterly/rosterly/internal/session"
	"github.com/rosterly/rosterly/internal/testutil"
	"github.com/rosterly/rosterly/internal/view"
)

// testApp runs the full router against an in-memory SQLite database and
// session store. Its client keeps cookies and does not follow redirects.
type testApp struct {
	t        *testing.T
	server   *httptest.Server
	client   *http.Client
	store    *sqlite.Store
	sessions *session.MemoryStore
	recorder *metrics.InMemoryRecorder
	base     *Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	logger := testutil.DiscardLogger()
	ctx := context.Background()

	store, err := sqlite.Open(ctx, ":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	hasher, err := auth.NewHasher(auth.Params{Time: 1, MemoryKB: 1024, Threads: 1})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}

	templates, err := view.New()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}

	recorder := metrics.NewInMemory()
	authService := service.NewAuthService(store, hasher, recorder)
	studentService := service.NewStudentService(store, 5, recorder)

	base := New(Config{Renderer: templates, Logger: logger, Students: studentService})
	sessions := session.NewMemoryStore()
	manager := session.NewManager(sessions, session.Config{
		CookieName: "rosterly_session",
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		TTL:        time.Hour,
	}, logger, base.InternalError)

	router := NewRouter(RouterConfig{
		Logger:   logger,
		Base:     base,
		Students: NewStudentHandler(base, studentService),
		Auth:     NewAuthHandler(base, authService, recorder),
		Health:   NewHealthHandler(store, sessions),
		Metrics:  NewMetricsHandler(recorder),
		Sessions: manager,
		Users:    authService,
		Recorder: recorder,
		Security: middleware.SecurityConfig{IsDevelopment: true, MaxRequestBodySize: 1 << 20},
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testApp{
		t:        t,
		server:   server,
		client:   client,
		store:    store,
		sessions: sessions,
		recorder: recorder,
		base:     base,
	}
}

type response struct {
	status   int
	location string
	header   http.Header
	body     string
}

func (a *testApp) do(req *http.Request) response {
	a.t.Helper()

	resp, err := a.client.Do(req)
	if err != nil {
		a.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		a.t.Fatalf("read body: %v", err)
	}
	return response{
		status:   resp.StatusCode,
		location: resp.Header.Get("Location"),
		header:   resp.Header,
		body:     string(body),
	}
}

func (a *testApp) get(path string) response {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	if err != nil {
		a.t.Fatalf("new request: %v", err)
	}
	return a.do(req)
}

func (a *testApp) post(path string, form url.Values) response {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		a.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req)
}

// login signs up a fresh account and logs the client in.
func (a *testApp) login(email string) {
	a.t.Helper()

	resp := a.post("/signup", url.Values{
		"email":                 {email},
		"password":              {"abc123"},
		"password_confirmation": {"abc123"},
	})
	if resp.status != http.StatusFound {
		a.t.Fatalf("signup status = %d, body: %s", resp.status, resp.body)
	}
	resp = a.post("/login", url.Values{"email": {email}, "password": {"abc123"}})
	if resp.status != http.StatusFound || resp.location != "/students" {
		a.t.Fatalf("login status = %d location = %q", resp.status, resp.location)
	}
	// Consume the login flash.
	a.get("/students")
}

// seed inserts students with increasing creation times.
func (a *testApp) seed(names ...string) []*model.Student {
	a.t.Helper()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*model.Student, 0, len(names))
	for i, name := range names {
		s := &model.Student{
			Name:      name,
			Age:       20 + i,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := a.store.CreateStudent(context.Background(), s); err != nil {
			a.t.Fatalf("seed %s: %v", name, err)
		}
		out = append(out, s)
	}
	return out
}

func (a *testApp) count() int {
	a.t.Helper()
	n, err := a.store.CountStudents(context.Background(), model.StudentFilter{})
	if err != nil {
		a.t.Fatalf("count: %v", err)
	}
	return n
}

func assertContains(t *testing.T, body string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q\n%s", want, body)
		}
	}
}

func assertNotContains(t *testing.T, body string, unwanted ...string) {
	t.Helper()
	for _, u := range unwanted {
		if strings.Contains(body, u) {
			t.Errorf("body unexpectedly contains %q", u)
		}
	}
}
