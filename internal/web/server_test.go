package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JonMunkholm/dartsearch/internal/catalog"
	"github.com/JonMunkholm/dartsearch/internal/config"
	"github.com/JonMunkholm/dartsearch/internal/core"
	"github.com/JonMunkholm/dartsearch/internal/core/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "Item,Description,Mfr Name,Sales Status\n" +
	"A12345-B,Steel Hex Bolt,Acme,Active\n" +
	"B200,Brass Nut,Bolt Co,\n" +
	"D400,Copper Pipe,Acme,Obsolete\n"

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	require.NoError(t, err)
	return cfg
}

type testServer struct {
	*Server
	history *history.MemoryRecorder
}

func newTestServer(t *testing.T, env map[string]string) *testServer {
	t.Helper()
	cfg := testConfig(t, env)
	rec := history.NewMemoryRecorder(cfg.History.Capacity)
	srv := NewServer(core.NewService(catalog.NewStore(), rec, cfg), cfg)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, history: rec}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (ts *testServer) load(t *testing.T) {
	t.Helper()
	rec := ts.do(uploadRequest(t, "parts.csv", sampleCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUpload(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(uploadRequest(t, "parts.csv", sampleCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(3), body["row_count"])
	assert.Equal(t, "parts.csv", body["file_name"])
	assert.Equal(t, `File "parts.csv" uploaded successfully! (3 rows loaded)`, body["message"])

	events, err := ts.history.Recent(t.Context(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, history.KindUpload, events[0].Kind)
	assert.Equal(t, "192.0.2.1", events[0].ClientIP)
}

func TestUpload_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		status   int
		code     string
	}{
		{"no file", "", "", http.StatusBadRequest, "FILE004"},
		{"wrong extension", "parts.pdf", "x", http.StatusBadRequest, "FILE006"},
		{"missing description", "parts.csv", "Item,Mfr Name\nA1,Acme\n", http.StatusBadRequest, "VAL004"},
		{"empty", "parts.csv", "", http.StatusBadRequest, "FILE005"},
		{"corrupt workbook", "parts.xlsx", "not a zip", http.StatusBadRequest, "FILE002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			rec := ts.do(uploadRequest(t, tt.filename, tt.content))

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestUpload_TooLarge(t *testing.T) {
	ts := newTestServer(t, map[string]string{"UPLOAD_MAX_FILE_SIZE": "32"})

	rec := ts.do(uploadRequest(t, "parts.csv", sampleCSV))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE001", decode(t, rec)["code"])
}

func TestUpload_KeepsPreviousDatasetOnError(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.load(t)

	rec := ts.do(uploadRequest(t, "bad.csv", "Item\nA1\n"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(jsonRequest(http.MethodPost, "/search", `{"keywords":"bolt"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])
}

func TestFilters(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/filters", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body, "filters")

	ts.load(t)
	rec = ts.do(httptest.NewRequest(http.MethodGet, "/filters", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool                `json:"success"`
		Filters map[string][]string `json:"filters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"Acme", "Bolt Co"}, resp.Filters["manufacturers"])
	assert.Equal(t, []string{"(blank)", "Active", "Obsolete"}, resp.Filters["sales_statuses"])
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		count   int
		message string
		noMatch bool
	}{
		{"keyword", `{"keywords":"bolt"}`, 1, "Found 1 result(s)", false},
		{"item number", `{"keywords":"a12345"}`, 1, "Found 1 result(s)", false},
		{"manufacturer alias", `{"filters":{"manufacturer":"Acme"}}`, 2, "Found 2 result(s)", false},
		{"blank status", `{"filters":{"sales_status":"(blank)"}}`, 1, "Found 1 result(s)", false},
		{"any of", `{"filters":{"sales_status":["Active","Obsolete"]}}`, 2, "Found 2 result(s)", false},
		{"filters then keywords", `{"keywords":"pipe","filters":{"manufacturer_name":"Bolt Co"}}`, 0, core.MessageNoMatch, true},
		{"nothing", `{}`, 0, core.MessageNoQuery, false},
		{"empty body", ``, 0, core.MessageNoQuery, false},
	}

	ts := newTestServer(t, nil)
	ts.load(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(jsonRequest(http.MethodPost, "/search", tt.body))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			body := decode(t, rec)
			assert.Equal(t, true, body["success"])
			assert.Equal(t, float64(tt.count), body["count"])
			assert.Equal(t, tt.message, body["message"])
			assert.Len(t, body["results"], tt.count)
			if tt.noMatch {
				assert.Equal(t, true, body["no_match"])
			} else {
				assert.NotContains(t, body, "no_match")
			}
		})
	}
}

func TestSearch_ListFiltersNarrowFacets(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.load(t)

	rec := ts.do(jsonRequest(http.MethodPost, "/search",
		`{"keywords":"","filters":{"manufacturer_name":["Bolt Co"],"sales_status":["(blank)","Obsolete"]}}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Count   int              `json:"count"`
		Results []catalog.Record `json:"results"`
		Facets  struct {
			Manufacturers []string `json:"manufacturers"`
			Statuses      []string `json:"sales_statuses"`
		} `json:"facets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "B200", resp.Results[0].ItemNo)
	assert.Equal(t, []string{"Bolt Co"}, resp.Facets.Manufacturers)
	assert.Equal(t, []string{catalog.BlankValue}, resp.Facets.Statuses)

	rec = ts.do(jsonRequest(http.MethodPost, "/search",
		`{"filters":{"manufacturer_name":["Acme","Bolt Co"]}}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decode(t, rec)["count"])
}

func TestSearch_Errors(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(jsonRequest(http.MethodPost, "/search", `{"keywords":"bolt"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "DATA001", decode(t, rec)["code"])

	ts.load(t)
	rec = ts.do(jsonRequest(http.MethodPost, "/search", `{"filters":{"sales_status":42}}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REQ001", decode(t, rec)["code"])
}

func TestExport(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.load(t)

	t.Run("xlsx", func(t *testing.T) {
		rec := ts.do(jsonRequest(http.MethodPost, "/export", `{"filters":{"manufacturer":"Acme"}}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, `attachment; filename="search_results.xlsx"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "2", rec.Header().Get("X-Result-Count"))

		records, err := catalog.Parse(bytes.NewReader(rec.Body.Bytes()), catalog.FormatXLSX)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "A12345-B", records[0].ItemNo)
	})

	t.Run("csv", func(t *testing.T) {
		rec := ts.do(jsonRequest(http.MethodPost, "/export", `{"keywords":"nut","format":"csv"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="search_results.csv"`, rec.Header().Get("Content-Disposition"))
		assert.True(t, strings.HasPrefix(rec.Body.String(), "Item No,Description,"), rec.Body.String())
	})

	t.Run("no match", func(t *testing.T) {
		rec := ts.do(jsonRequest(http.MethodPost, "/export", `{"keywords":"zzz"}`))
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, core.MessageNoMatch, body["message"])
		assert.Equal(t, float64(0), body["count"])
	})

	t.Run("no query", func(t *testing.T) {
		rec := ts.do(jsonRequest(http.MethodPost, "/export", `{}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "DATA002", decode(t, rec)["code"])
	})

	t.Run("bad format", func(t *testing.T) {
		rec := ts.do(jsonRequest(http.MethodPost, "/export", `{"keywords":"nut","format":"pdf"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "FILE006", decode(t, rec)["code"])
	})
}

func TestClear(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.load(t)

	rec := ts.do(jsonRequest(http.MethodPost, "/clear", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.MessageCleared, decode(t, rec)["message"])

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/filters", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	events, err := ts.history.Recent(t.Context(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, history.KindClear, events[0].Kind)
	assert.Equal(t, "parts.csv", events[0].FileName)
}

func TestHistory(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.load(t)
	ts.do(jsonRequest(http.MethodPost, "/clear", ""))

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/history?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Events []history.Event `json:"events"`
		Count  int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, history.KindClear, resp.Events[0].Kind)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/history?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory_LimitFollowsCapacity(t *testing.T) {
	ts := newTestServer(t, map[string]string{"HISTORY_CAPACITY": "150"})
	for i := 0; i < 120; i++ {
		require.NoError(t, ts.history.Record(t.Context(), history.Event{Kind: history.KindClear}))
	}

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/history?limit=500", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(120), decode(t, rec)["count"])

	ts = newTestServer(t, map[string]string{"HISTORY_CAPACITY": "5"})
	for i := 0; i < 5; i++ {
		require.NoError(t, ts.history.Record(t.Context(), history.Event{Kind: history.KindClear}))
	}
	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/history?limit=50", nil))
	assert.Equal(t, float64(5), decode(t, rec)["count"])
}

func TestPageAndStatic(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No file loaded")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, contentSecurityPolicy, rec.Header().Get("Content-Security-Policy"))

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["loaded"])
}

func TestCSPDisabled(t *testing.T) {
	ts := newTestServer(t, map[string]string{"SECURITY_ENABLE_CSP": "false"})
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestAPIKeyRequiredForUpload(t *testing.T) {
	ts := newTestServer(t, map[string]string{"REQUIRE_API_KEY": "true", "API_KEYS": "secret"})

	rec := ts.do(uploadRequest(t, "parts.csv", sampleCSV))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := uploadRequest(t, "parts.csv", sampleCSV)
	req.Header.Set("X-API-Key", "secret")
	rec = ts.do(req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Read routes stay open.
	rec = ts.do(jsonRequest(http.MethodPost, "/search", `{"keywords":"bolt"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadRateLimit(t *testing.T) {
	ts := newTestServer(t, map[string]string{"RATE_LIMIT_UPLOAD": "1"})

	rec := ts.do(uploadRequest(t, "parts.csv", sampleCSV))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(uploadRequest(t, "parts.csv", sampleCSV))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE001", decode(t, rec)["code"])
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestErrorHTMLForBrowsers(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(""))
	req.Header.Set("Accept", "text/html")
	rec := ts.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "DATA001")
}
