package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ErickPolzin/Crud/internal/catalog"
	"github.com/ErickPolzin/Crud/internal/db"
	"github.com/ErickPolzin/Crud/internal/metrics"
	"github.com/ErickPolzin/Crud/internal/repo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

const duneJSON = `{"title":"Dune","author":"Herbert","isbn":"9780441013593","publicationYear":1965,"genre":"Sci-Fi"}`

type pageBody struct {
	Data       []db.Book          `json:"data"`
	Pagination catalog.Pagination `json:"pagination"`
}

func setupTestServer(t *testing.T, opts Options) (*Server, *db.DB) {
	dbOpts := db.DefaultOptions()
	dbOpts.LogLevel = logger.Silent
	database, err := db.Connect(db.DriverSQLite, ":memory:", dbOpts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database))

	log := zap.NewNop()
	svc := catalog.NewService(repo.NewBookRepository(database, log, 5*time.Second), nil, log)
	t.Cleanup(svc.Drain)

	if opts.Health == nil {
		opts.Health = database.Ping
	}
	return NewServer(svc, log, opts), database
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestBookLifecycle(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	w := do(t, srv, http.MethodPost, "/api/books", duneJSON)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[db.Book](t, w)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, fmt.Sprintf("/api/books/%d", created.ID), w.Header().Get("Location"))

	path := fmt.Sprintf("/api/books/%d", created.ID)

	w = do(t, srv, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[db.Book](t, w)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, 1965, got.PublicationYear)

	w = do(t, srv, http.MethodPut, path, strings.Replace(duneJSON, "1965", "1966", 1))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[db.Book](t, w)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 1966, updated.PublicationYear)

	w = do(t, srv, http.MethodGet, path, "")
	assert.Equal(t, 1966, decode[db.Book](t, w).PublicationYear)

	w = do(t, srv, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Book deleted successfully", decode[MessageResponse](t, w).Message)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		w = do(t, srv, method, path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, method)
		assert.Equal(t, "Book not found", decode[ErrorResponse](t, w).Message)
	}

	w = do(t, srv, http.MethodPut, path, duneJSON)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRejectsInvalidPayloads(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	tests := []struct {
		name    string
		body    string
		field   string
		message string
	}{
		{
			name:    "short isbn",
			body:    strings.Replace(duneJSON, "9780441013593", "123", 1),
			field:   "isbn",
			message: "isbn must be exactly 13 characters",
		},
		{
			name:    "missing title",
			body:    `{"author":"Herbert","isbn":"9780441013593","publicationYear":1965,"genre":"Sci-Fi"}`,
			field:   "title",
			message: "title is required",
		},
		{
			name:    "empty genre",
			body:    strings.Replace(duneJSON, "Sci-Fi", "", 1),
			field:   "genre",
			message: "genre must not be empty",
		},
		{
			name:    "year too early",
			body:    strings.Replace(duneJSON, "1965", "999", 1),
			field:   "publicationYear",
			message: "publicationYear must be greater than or equal to 1000",
		},
		{
			name:    "year not numeric",
			body:    strings.Replace(duneJSON, "1965", `"19x5"`, 1),
			field:   "publicationYear",
			message: "publicationYear must be an integer",
		},
		{
			name:    "fractional year",
			body:    strings.Replace(duneJSON, "1965", "1965.5", 1),
			field:   "publicationYear",
			message: "publicationYear must be an integer",
		},
		{
			name:    "year as bool",
			body:    strings.Replace(duneJSON, "1965", "true", 1),
			field:   "publicationYear",
			message: "publicationYear must be an integer",
		},
		{
			name:    "title as number",
			body:    strings.Replace(duneJSON, `"Dune"`, "42", 1),
			field:   "title",
			message: "title must be a string",
		},
		{
			name:    "malformed json",
			body:    `{"title":`,
			message: "request body must be valid JSON",
		},
		{
			name:    "array body",
			body:    `[]`,
			message: "request body must be a JSON object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, http.MethodPost, "/api/books", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			resp := decode[ErrorResponse](t, w)
			assert.Equal(t, tt.message, resp.Error)
			assert.Equal(t, tt.field, resp.Field)
			assert.Equal(t, catalog.KindValidation, resp.Kind)
		})
	}

	w := do(t, srv, http.MethodGet, "/api/books", "")
	assert.Empty(t, decode[pageBody](t, w).Data)
}

func TestCreateAcceptsFormStyleYear(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	for _, year := range []string{`"1965"`, `" 1965 "`, "1965.0", "1.965e3"} {
		t.Run(year, func(t *testing.T) {
			w := do(t, srv, http.MethodPost, "/api/books", strings.Replace(duneJSON, "1965", year, 1))
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			assert.Equal(t, 1965, decode[db.Book](t, w).PublicationYear)
		})
	}

	w := do(t, srv, http.MethodPut, "/api/books/1", strings.Replace(duneJSON, "1965", `"1966"`, 1))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1966, decode[db.Book](t, w).PublicationYear)
}

func TestCreateIgnoresClientIDAndCreatedAt(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	extras := []string{
		`"createdAt":"2024-01-01"`,
		`"createdAt":"2024-01-01 10:00:00"`,
		`"createdAt":12345`,
		`"id":"abc"`,
		`"id":999,"createdAt":{"when":"yesterday"}`,
	}
	for _, extra := range extras {
		t.Run(extra, func(t *testing.T) {
			body := strings.Replace(duneJSON, "{", "{"+extra+",", 1)
			w := do(t, srv, http.MethodPost, "/api/books", body)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

			created := decode[db.Book](t, w)
			assert.NotEqual(t, int64(999), created.ID)
			assert.Less(t, created.ID, int64(999))
			assert.Greater(t, created.CreatedAt.Year(), 2024)
		})
	}
}

func TestCreateRequiresJSONContentType(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/books", strings.NewReader(duneJSON))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestCreateRejectsOversizedBody(t *testing.T) {
	srv, _ := setupTestServer(t, Options{MaxBodyBytes: 64})

	w := do(t, srv, http.MethodPost, "/api/books", duneJSON+strings.Repeat(" ", 64))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
}

func TestUpdateValidatesBeforeLookup(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	w := do(t, srv, http.MethodPut, "/api/books/abc", `{"title":"Dune"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "author", decode[ErrorResponse](t, w).Field)

	w = do(t, srv, http.MethodPut, "/api/books/abc", duneJSON)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnparseableIDIsNotFound(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	for _, id := range []string{"abc", "0", "-4", "1.5", "99999999999999999999"} {
		w := do(t, srv, http.MethodGet, "/api/books/"+id, "")
		assert.Equal(t, http.StatusNotFound, w.Code, id)

		w = do(t, srv, http.MethodDelete, "/api/books/"+id, "")
		assert.Equal(t, http.StatusNotFound, w.Code, id)
	}
}

func TestListPagination(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	for i := 0; i < 3; i++ {
		body := strings.Replace(duneJSON, "Dune", fmt.Sprintf("Dune %d", i), 1)
		require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/books", body).Code)
	}

	w := do(t, srv, http.MethodGet, "/api/books?page=2&limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[pageBody](t, w)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Dune 2", page.Data[0].Title)
	assert.Equal(t, catalog.Pagination{Page: 2, Limit: 2, Total: 3, TotalPages: 2}, page.Pagination)

	w = do(t, srv, http.MethodGet, "/api/books?page=x&limit=", "")
	page = decode[pageBody](t, w)
	assert.Len(t, page.Data, 3)
	assert.Equal(t, catalog.Pagination{Page: 1, Limit: 10, Total: 3, TotalPages: 1}, page.Pagination)

	w = do(t, srv, http.MethodGet, "/api/books?page=2abc&limit=2", "")
	page = decode[pageBody](t, w)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Len(t, page.Data, 2)

	w = do(t, srv, http.MethodGet, "/api/books?page=9", "")
	page = decode[pageBody](t, w)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestStoreFailureIsGeneric(t *testing.T) {
	srv, database := setupTestServer(t, Options{})
	require.NoError(t, database.Close())

	w := do(t, srv, http.MethodGet, "/api/books", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, internalErrorMessage, resp.Error)
	assert.Equal(t, catalog.KindStore, resp.Kind)
	assert.NotEmpty(t, resp.RequestID)
	assert.NotContains(t, w.Body.String(), "closed")
}

func TestHealth(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})
	w := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestHealthReportsStoreFailure(t *testing.T) {
	srv, database := setupTestServer(t, Options{})
	require.NoError(t, database.Close())

	w := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv, _ := setupTestServer(t, Options{Metrics: metrics.New(reg)})

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/books", "").Code)
	require.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/books/7", "").Code)

	w := do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `books_http_requests_total{method="GET",route="/api/books/{id}",status="404"} 1`)
	assert.Contains(t, body, "books_http_request_duration_seconds")
}

func TestCORS(t *testing.T) {
	srv, _ := setupTestServer(t, Options{CORSOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/books", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-Id"))
}

func TestRateLimit(t *testing.T) {
	srv, _ := setupTestServer(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 2})

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000"))
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	rl := newRateLimiter(1, 1, time.Minute)
	now := time.Now()
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))

	now = now.Add(2 * time.Minute)
	assert.True(t, rl.allow("b"))

	rl.mu.Lock()
	_, kept := rl.clients["a"]
	rl.mu.Unlock()
	assert.False(t, kept)
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	var buf bytes.Buffer
	buf.WriteString(duneJSON)
	buf.WriteString(duneJSON)
	w := do(t, srv, http.MethodPost, "/api/books", buf.String())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "request body must contain a single JSON object", decode[ErrorResponse](t, w).Error)
}
