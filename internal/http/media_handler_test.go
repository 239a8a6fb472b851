package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Clark-Hu/moviemate/internal/config"
	"github.com/Clark-Hu/moviemate/internal/domain"
	"github.com/Clark-Hu/moviemate/internal/repository"
	"github.com/Clark-Hu/moviemate/internal/store"
)

func testConfig() config.Config {
	return config.Config{
		Port:               "0",
		CORSAllowedOrigins: []string{"*"},
		ReadTimeoutSecs:    15,
		WriteTimeoutSecs:   15,
		IdleTimeoutSecs:    60,
	}
}

func buildTestServer(tb testing.TB) *Server {
	tb.Helper()
	ctx := context.Background()

	st, err := store.OpenSQLite(ctx, store.MemoryPath, store.SQLiteOptions{BusyTimeout: time.Second})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(st.Close)
	if err := repository.MigrateSQLite(ctx, st.DB()); err != nil {
		tb.Fatalf("migrate: %v", err)
	}

	return New(testConfig(), st, repository.NewSQLite(st), zap.NewNop())
}

// failingStore fails every call with a storage error.
type failingStore struct{}

var errStorage = errors.New("connection reset")

func (failingStore) List(context.Context) ([]domain.Media, error) { return nil, errStorage }
func (failingStore) Get(context.Context, int64) (domain.Media, error) {
	return domain.Media{}, errStorage
}
func (failingStore) Create(context.Context, domain.MediaFields) (domain.Media, error) {
	return domain.Media{}, errStorage
}
func (failingStore) Update(context.Context, int64, domain.MediaFields) (domain.Media, error) {
	return domain.Media{}, errStorage
}
func (failingStore) Delete(context.Context, int64) (domain.Media, error) {
	return domain.Media{}, errStorage
}
func (failingStore) Count(context.Context) (int64, error) { return 0, errStorage }

type unhealthy struct{}

func (unhealthy) HealthCheck(context.Context) error { return errStorage }

func do(t testing.TB, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeMedia(t *testing.T, rec *httptest.ResponseRecorder) mediaResponse {
	t.Helper()
	var got mediaResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode media response %q: %v", rec.Body.String(), err)
	}
	return got
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var got errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode error response %q: %v", rec.Body.String(), err)
	}
	return got
}

func attachIDParam(req *http.Request, id string) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

func TestHandleRoot(t *testing.T) {
	srv := buildTestServer(t)
	rec := do(t, srv, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "MovieMate API is Live!") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestHandleCreateMedia(t *testing.T) {
	srv := buildTestServer(t)

	body := `{"title":"Dune","media_type":"Movie","status":"Wishlist","current_episode":12,"id":99}`
	rec := do(t, srv, http.MethodPost, "/media/", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/media/1" {
		t.Fatalf("Location = %q, want /media/1", loc)
	}

	got := decodeMedia(t, rec)
	if got.ID != 1 || got.Title != "Dune" || got.MediaType != "Movie" || got.Status != "Wishlist" {
		t.Fatalf("created = %+v", got)
	}
	if got.CurrentEpisode != 0 {
		t.Fatalf("current_episode = %d, want 0", got.CurrentEpisode)
	}
	if got.Rating != nil || got.Director != nil || got.TotalEpisodes != nil {
		t.Fatalf("optionals should be null: %+v", got)
	}

	var raw map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode raw: %v", err)
	}
	if v, ok := raw["rating"]; !ok || v != nil {
		t.Fatalf("rating should be serialized as null, got %v (present=%v)", v, ok)
	}
}

func TestHandleCreateMedia_DefaultStatus(t *testing.T) {
	srv := buildTestServer(t)
	rec := do(t, srv, http.MethodPost, "/media", `{"title":"Andor","media_type":"Series","status":"  ","total_episodes":12}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	got := decodeMedia(t, rec)
	if got.Status != domain.DefaultStatus {
		t.Fatalf("status = %q, want %q", got.Status, domain.DefaultStatus)
	}
	if got.TotalEpisodes == nil || *got.TotalEpisodes != 12 {
		t.Fatalf("total_episodes = %v, want 12", got.TotalEpisodes)
	}
}

func TestHandleCreateMedia_InvalidPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", "invalid json", http.StatusUnprocessableEntity},
		{"truncated json", `{"title":"Dune"`, http.StatusUnprocessableEntity},
		{"empty body", "", http.StatusUnprocessableEntity},
		{"missing fields", `{"title":"","media_type":""}`, http.StatusUnprocessableEntity},
		{"missing media type", `{"title":"Dune"}`, http.StatusUnprocessableEntity},
		{"wrong rating type", `{"title":"Dune","media_type":"Movie","rating":"five"}`, http.StatusUnprocessableEntity},
		{"wrong episodes type", `{"title":"Dune","media_type":"Movie","total_episodes":1.5}`, http.StatusUnprocessableEntity},
		{"null body", `null`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := buildTestServer(t)
			rec := do(t, srv, http.MethodPost, "/media", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if code := decodeError(t, rec).Code; code != "VALIDATION_ERROR" {
				t.Fatalf("code = %s, want VALIDATION_ERROR", code)
			}

			list := do(t, srv, http.MethodGet, "/media", "")
			if strings.TrimSpace(list.Body.String()) != "[]" {
				t.Fatalf("nothing should be stored, list = %s", list.Body.String())
			}
		})
	}
}

func TestHandleCreateMedia_TooLarge(t *testing.T) {
	srv := buildTestServer(t)
	review := strings.Repeat("a", maxRequestBody)
	body := `{"title":"Dune","media_type":"Movie","review":"` + review + `"}`
	rec := do(t, srv, http.MethodPost, "/media", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
}

func TestHandleListMedia(t *testing.T) {
	srv := buildTestServer(t)

	rec := do(t, srv, http.MethodGet, "/media", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("empty list = %d %s", rec.Code, rec.Body.String())
	}

	for _, title := range []string{"Heat", "Ronin"} {
		if rec := do(t, srv, http.MethodPost, "/media", `{"title":"`+title+`","media_type":"Movie"}`); rec.Code != http.StatusCreated {
			t.Fatalf("create %s: %d", title, rec.Code)
		}
	}

	rec = do(t, srv, http.MethodGet, "/media/", "")
	var items []mediaResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 2 || items[0].Title != "Heat" || items[1].Title != "Ronin" {
		t.Fatalf("list = %+v", items)
	}
}

func TestHandleGetMedia(t *testing.T) {
	srv := buildTestServer(t)
	do(t, srv, http.MethodPost, "/media", `{"title":"Fargo","media_type":"Series","platform":" Hulu "}`)

	rec := do(t, srv, http.MethodGet, "/media/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decodeMedia(t, rec)
	if got.Platform == nil || *got.Platform != "Hulu" {
		t.Fatalf("platform = %v, want trimmed Hulu", got.Platform)
	}

	if rec := do(t, srv, http.MethodGet, "/media/2", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", rec.Code)
	}
}

func TestHandleUpdateMedia(t *testing.T) {
	srv := buildTestServer(t)
	do(t, srv, http.MethodPost, "/media", `{"title":"Dune","media_type":"Movie","director":"Villeneuve","status":"Wishlist"}`)

	rec := do(t, srv, http.MethodPut, "/media/1", `{"title":"Dune","media_type":"Movie","status":"Completed","rating":4.5,"current_episode":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	got := decodeMedia(t, rec)
	if got.ID != 1 || got.Status != "Completed" || got.Rating == nil || *got.Rating != 4.5 {
		t.Fatalf("updated = %+v", got)
	}
	if got.CurrentEpisode != 0 {
		t.Fatalf("current_episode = %d, want unchanged 0", got.CurrentEpisode)
	}
	if got.Director != nil {
		t.Fatalf("director = %v, want cleared by full update", *got.Director)
	}
}

func TestHandleUpdateMedia_Errors(t *testing.T) {
	srv := buildTestServer(t)
	do(t, srv, http.MethodPost, "/media", `{"title":"Dune","media_type":"Movie"}`)

	tests := []struct {
		name string
		path string
		body string
		want int
		code string
	}{
		{"not found", "/media/42", `{"title":"X","media_type":"Movie"}`, http.StatusNotFound, "NOT_FOUND"},
		{"bad id", "/media/abc", `{"title":"X","media_type":"Movie"}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"zero id", "/media/0", `{"title":"X","media_type":"Movie"}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"invalid body", "/media/1", `{"title":""}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPut, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if code := decodeError(t, rec).Code; code != tt.code {
				t.Fatalf("code = %s, want %s", code, tt.code)
			}
		})
	}

	rec := do(t, srv, http.MethodGet, "/media/1", "")
	if got := decodeMedia(t, rec); got.Title != "Dune" {
		t.Fatalf("record mutated by failed updates: %+v", got)
	}
}

func TestHandleDeleteMedia(t *testing.T) {
	srv := buildTestServer(t)
	do(t, srv, http.MethodPost, "/media", `{"title":"Dune","media_type":"Movie"}`)

	rec := do(t, srv, http.MethodDelete, "/media/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Deleted successfully") {
		t.Fatalf("body = %s", rec.Body.String())
	}

	rec = do(t, srv, http.MethodDelete, "/media/1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
	if msg := decodeError(t, rec).Message; msg != "Media not found" {
		t.Fatalf("message = %q", msg)
	}

	if rec := do(t, srv, http.MethodGet, "/media/1", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", rec.Code)
	}
}

func TestHandleDeleteMedia_DirectCall(t *testing.T) {
	srv := buildTestServer(t)
	req := httptest.NewRequest(http.MethodDelete, "/media/7", nil)
	req = attachIDParam(req, "7")
	rec := httptest.NewRecorder()

	srv.handleDeleteMedia(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestStorageFailures(t *testing.T) {
	srv := New(testConfig(), unhealthy{}, &repository.Repository{Media: failingStore{}}, zap.NewNop())

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/media", ""},
		{http.MethodGet, "/media/1", ""},
		{http.MethodPost, "/media", `{"title":"Dune","media_type":"Movie"}`},
		{http.MethodPut, "/media/1", `{"title":"Dune","media_type":"Movie"}`},
		{http.MethodDelete, "/media/1", ""},
		{http.MethodGet, "/status", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, tt.body)
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", rec.Code)
			}
			if code := decodeError(t, rec).Code; code != "INTERNAL_ERROR" {
				t.Fatalf("code = %s, want INTERNAL_ERROR", code)
			}
		})
	}

	if rec := do(t, srv, http.MethodGet, "/healthz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("healthz = %d, want 503", rec.Code)
	}
}

func TestHandleHealthzAndStatus(t *testing.T) {
	srv := buildTestServer(t)

	if rec := do(t, srv, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d, want 200", rec.Code)
	}

	do(t, srv, http.MethodPost, "/media", `{"title":"Dune","media_type":"Movie"}`)
	rec := do(t, srv, http.MethodGet, "/status", "")
	var got statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if got.TotalMedia != 1 {
		t.Fatalf("total_media = %d, want 1", got.TotalMedia)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := buildTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/media", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("missing Access-Control-Allow-Origin header")
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPut) {
		t.Fatalf("Access-Control-Allow-Methods = %q", rec.Header().Get("Access-Control-Allow-Methods"))
	}
}
