package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tahmid-khan/cvc-approximation/pkg/cache"
	"github.com/tahmid-khan/cvc-approximation/pkg/observability"
	"github.com/tahmid-khan/cvc-approximation/pkg/pipeline"
)

const cycle4 = "1 2\n2 3\n3 4\n4 1\n"

func newServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func post(t *testing.T, s http.Handler, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v (%q)", err, rec.Body.String())
	}
	return body
}

func TestCanonical(t *testing.T) {
	s := newServer(t, Config{})
	rec := post(t, s, "/v1/canonical?format=edges", cycle4)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if got, want := rec.Body.String(), "4\n4\n0 1\n0 3\n1 2\n2 3\n"; got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
	h := rec.Header()
	for k, want := range map[string]string{
		HeaderOrder:     "4",
		HeaderSize:      "4",
		HeaderMaxDegree: "2",
		HeaderAvgDegree: "2",
		HeaderCache:     "miss",
	} {
		if got := h.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if !strings.HasPrefix(h.Get(HeaderDensity), "0.666") {
		t.Errorf("%s = %q", HeaderDensity, h.Get(HeaderDensity))
	}
}

func TestCanonicalOptions(t *testing.T) {
	s := newServer(t, Config{})

	rec := post(t, s, "/v1/canonical?name=c4.edges&ordering=insertion", cycle4)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if got, want := rec.Body.String(), "4\n4\n0 1\n0 3\n1 2\n2 3\n"; got != want {
		t.Errorf("insertion body = %q, want %q", got, want)
	}

	mtx := "%%MatrixMarket matrix coordinate pattern symmetric\n3 3 2\n2 1\n3 2\n"
	rec = post(t, s, "/v1/canonical?name=p3.mtx", mtx)
	if rec.Code != http.StatusOK || rec.Header().Get(HeaderOrder) != "3" {
		t.Errorf("mtx status = %d, order %q, body %q", rec.Code, rec.Header().Get(HeaderOrder), rec.Body.String())
	}

	rec = post(t, s, "/v1/canonical?format=edges&max_order=3", cycle4)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("max_order status = %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != CodeRejected || !strings.HasPrefix(body.Message, "too large") {
		t.Errorf("body = %+v", body)
	}
}

func TestCanonicalErrors(t *testing.T) {
	s := newServer(t, Config{MaxBodySize: 64})

	tests := []struct {
		name   string
		target string
		body   string
		status int
		code   string
	}{
		{"unknown format", "/v1/canonical", cycle4, http.StatusUnprocessableEntity, "UNSUPPORTED_FORMAT"},
		{"bad format param", "/v1/canonical?format=csv", cycle4, http.StatusUnprocessableEntity, "UNSUPPORTED_FORMAT"},
		{"bad ordering", "/v1/canonical?format=edges&ordering=random", cycle4, http.StatusUnprocessableEntity, "INVALID_INPUT"},
		{"bad bound", "/v1/canonical?format=edges&min_order=x", cycle4, http.StatusUnprocessableEntity, "INVALID_INPUT"},
		{"inverted bounds", "/v1/canonical?format=edges&min_order=9&max_order=3", cycle4, http.StatusUnprocessableEntity, "INVALID_INPUT"},
		{"malformed", "/v1/canonical?format=mtx", "%%MatrixMarket matrix coordinate pattern general\nx y z\n", http.StatusUnprocessableEntity, "INVALID_FORMAT"},
		{"disconnected", "/v1/canonical?format=edges", "1 2\n3 4\n", http.StatusUnprocessableEntity, CodeRejected},
		{"too large body", "/v1/canonical?format=edges", strings.Repeat("1 2\n", 40), http.StatusRequestEntityTooLarge, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, s, tt.target, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%q)", rec.Code, tt.status, rec.Body.String())
			}
			if body := decodeError(t, rec); body.Code != tt.code || body.Message == "" {
				t.Errorf("body = %+v, want code %s", body, tt.code)
			}
		})
	}
}

func TestCanonicalParseOrderLimit(t *testing.T) {
	huge := "%%MatrixMarket matrix coordinate pattern general\n1000000000 1000000000 1\n1 2\n"
	rec := post(t, newServer(t, Config{}), "/v1/canonical?format=mtx", huge)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if body := decodeError(t, rec); body.Code != "INVALID_FORMAT" || !strings.Contains(body.Message, "order limit 65536") {
		t.Errorf("body = %+v", body)
	}

	small := "%%MatrixMarket matrix coordinate pattern symmetric\n8 8 1\n2 1\n"
	s := newServer(t, Config{MaxParseOrder: 4})
	if rec := post(t, s, "/v1/canonical?format=mtx", small); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("configured limit: status = %d", rec.Code)
	}
}

func TestCanonicalExplicitZeroMinOrder(t *testing.T) {
	s := newServer(t, Config{})

	rec := post(t, s, "/v1/canonical?format=edges", "1 1\n")
	if body := decodeError(t, rec); !strings.HasPrefix(body.Message, "too small") {
		t.Errorf("default rules: body = %+v", body)
	}

	rec = post(t, s, "/v1/canonical?format=edges&min_order=0", "1 1\n")
	if body := decodeError(t, rec); !strings.HasPrefix(body.Message, "no edges") {
		t.Errorf("min_order=0: body = %+v", body)
	}

	rec = post(t, s, "/v1/canonical?format=edges", "1 1\n")
	if body := decodeError(t, rec); !strings.HasPrefix(body.Message, "too small") {
		t.Errorf("defaults changed by an earlier request: body = %+v", body)
	}
}

func TestCanonicalCacheHit(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := newServer(t, Config{Runner: pipeline.NewRunner(fc, nil, nil)})

	first := post(t, s, "/v1/canonical?format=edges", cycle4)
	second := post(t, s, "/v1/canonical?format=edges", cycle4)
	if first.Header().Get(HeaderCache) != "miss" || second.Header().Get(HeaderCache) != "hit" {
		t.Errorf("cache headers = %q, %q", first.Header().Get(HeaderCache), second.Header().Get(HeaderCache))
	}
	if first.Body.String() != second.Body.String() {
		t.Error("cached body differs")
	}

	refreshed := post(t, s, "/v1/canonical?format=edges&refresh", cycle4)
	if refreshed.Header().Get(HeaderCache) != "miss" {
		t.Errorf("refresh should bypass the cache, got %q", refreshed.Header().Get(HeaderCache))
	}
}

func TestRenderDOT(t *testing.T) {
	s := newServer(t, Config{})
	rec := post(t, s, "/v1/render?format=edges&output=dot", "a b\nb c\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "graph G {") || !strings.Contains(body, `"0" -- "1";`) {
		t.Errorf("DOT = %q", body)
	}

	rec = post(t, s, "/v1/render?format=edges&output=png", "a b\n")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("png status = %d", rec.Code)
	}
}

func TestRenderSVG(t *testing.T) {
	s := newServer(t, Config{})
	rec := post(t, s, "/v1/render?format=edges", "a b\nb c\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "image/svg+xml" || !strings.Contains(rec.Body.String(), "<svg") {
		t.Errorf("content type %q, body %.80q", rec.Header().Get("Content-Type"), rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	s := newServer(t, Config{})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestMetrics(t *testing.T) {
	c := observability.NewCollector("test")
	s := newServer(t, Config{Collector: c})

	post(t, s, "/v1/canonical?format=edges", cycle4)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `test_http_requests_total{direction="in",host="example.com",status="200"} 1`) {
		t.Errorf("metrics missing request counter:\n%s", body)
	}
}

func TestMetricsAbsentWithoutCollector(t *testing.T) {
	s := newServer(t, Config{})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestNewInvalidOptions(t *testing.T) {
	_, err := New(Config{Options: pipeline.Options{Workers: -1}})
	if err == nil {
		t.Error("New should reject invalid options")
	}
}

func TestListenAndServeShutdown(t *testing.T) {
	s := newServer(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	if err := <-done; err != nil {
		t.Errorf("ListenAndServe = %v", err)
	}
}
