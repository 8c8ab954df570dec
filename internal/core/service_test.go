package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/dartsearch/internal/catalog"
	"github.com/JonMunkholm/dartsearch/internal/config"
	"github.com/JonMunkholm/dartsearch/internal/core/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "Item,Description,Mfr Name,Sales Status,Product Division\n" +
	"A12345-B,Steel Hex Bolt,Acme,Active,Fasteners\n" +
	"B200,Brass Nut,Bolt Co,,Fasteners\n" +
	"C300,,Acme,Active,Plumbing\n" +
	"D400,Copper Pipe,Acme,Obsolete,Plumbing\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(func(string) (string, bool) { return "", false })
	require.NoError(t, err)
	return cfg
}

func newTestService(t *testing.T) (*Service, *history.MemoryRecorder) {
	t.Helper()
	rec := history.NewMemoryRecorder(10)
	return NewService(catalog.NewStore(), rec, testConfig(t)), rec
}

func loadSample(t *testing.T, s *Service) *UploadResult {
	t.Helper()
	res, err := s.Upload(context.Background(), "parts.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	return res
}

func TestService_Upload(t *testing.T) {
	s, rec := newTestService(t)
	ctx := ContextWithClientIP(context.Background(), "192.0.2.7")

	res, err := s.Upload(ctx, "../../My Parts.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, "My_Parts.csv", res.FileName)
	assert.Equal(t, 3, res.RowCount)
	assert.Equal(t, 1, res.Skipped)
	assert.NotEmpty(t, res.UploadID)
	assert.NotEmpty(t, res.DatasetID)
	assert.Equal(t, `File "My_Parts.csv" uploaded successfully! (3 rows loaded)`, res.Message)

	st := s.Status()
	assert.True(t, st.Loaded)
	assert.Equal(t, 3, st.RowCount)

	events, err := rec.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, history.KindUpload, events[0].Kind)
	assert.Equal(t, res.UploadID, events[0].ID)
	assert.Equal(t, "192.0.2.7", events[0].ClientIP)
}

func TestService_UploadRejections(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		body     string
		target   error
	}{
		{"no name", "", sampleCSV, ErrNoFile},
		{"unsupported extension", "parts.xls", sampleCSV, ErrUnsupportedFile},
		{"no extension", "parts", sampleCSV, ErrUnsupportedFile},
		{"missing description", "parts.csv", "Item,Mfr Name\nA1,Acme\n", catalog.ErrMissingRequiredColumn},
		{"empty", "parts.csv", "", catalog.ErrEmptySource},
		{"corrupt workbook", "parts.xlsx", "definitely not a zip", ErrInvalidFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestService(t)
			loadSample(t, s)

			_, err := s.Upload(context.Background(), tt.filename, strings.NewReader(tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)

			// The previous dataset is untouched.
			assert.Equal(t, 3, s.Status().RowCount)
		})
	}
}

func TestService_UploadFailureIsRecorded(t *testing.T) {
	s, rec := newTestService(t)
	_, err := s.Upload(context.Background(), "bad.csv", strings.NewReader("Item\nA1\n"))
	require.Error(t, err)

	events, err := rec.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, history.KindFailed, events[0].Kind)
	assert.Contains(t, events[0].Message, "description")
}

func TestService_UploadTooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.Upload.MaxFileSize = 64
	s := NewService(catalog.NewStore(), nil, cfg)

	_, err := s.Upload(context.Background(), "big.csv", strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	exact := "Description\n" + strings.Repeat("x", 64-len("Description\n"))
	res, err := s.Upload(context.Background(), "exact.csv", strings.NewReader(exact))
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowCount)
}

// stutterReader returns (0, nil) before every real read.
type stutterReader struct {
	r      io.Reader
	paused bool
}

func (s *stutterReader) Read(p []byte) (int, error) {
	s.paused = !s.paused
	if s.paused {
		return 0, nil
	}
	return s.r.Read(p)
}

func TestGuardedReader_EmptyReadsPastLimit(t *testing.T) {
	g := &guardedReader{
		ctx:       context.Background(),
		r:         &stutterReader{r: strings.NewReader("abcdX")},
		remaining: 4,
	}
	_, err := io.ReadAll(g)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	g = &guardedReader{
		ctx:       context.Background(),
		r:         &stutterReader{r: strings.NewReader("abcd")},
		remaining: 4,
	}
	got, err := io.ReadAll(g)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(got))
}

func TestService_MissingColumnMessage(t *testing.T) {
	s, _ := newTestService(t)
	_, err := s.Upload(context.Background(), "parts.csv", strings.NewReader("Item,Mfr Name\nA1,Acme\n"))
	require.Error(t, err)

	msg := MapError(err)
	assert.Equal(t, "VAL004", msg.Code)
	assert.Contains(t, msg.Message, `"description"`)
}

func TestService_UploadCancelled(t *testing.T) {
	s, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Upload(ctx, "parts.csv", strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_UploadBusy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Upload.MaxConcurrent = 1
	cfg.Upload.MaxWaitTime = 20 * time.Millisecond
	s := NewService(catalog.NewStore(), nil, cfg)

	require.True(t, s.limiter.TryAcquire())
	defer s.limiter.Release()

	_, err := s.Upload(context.Background(), "parts.csv", strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, ErrTooManyUploads)
	assert.Equal(t, 1, s.UploadLimiterStatus().Active)
}

func TestService_NoDataset(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.Filters(ctx)
	assert.ErrorIs(t, err, catalog.ErrNoDataset)
	_, err = s.Search(ctx, Query{Keywords: "bolt"})
	assert.ErrorIs(t, err, catalog.ErrNoDataset)
	_, err = s.Export(ctx, Query{Keywords: "bolt"}, catalog.FormatXLSX, io.Discard)
	assert.ErrorIs(t, err, catalog.ErrNoDataset)
}

func TestService_Filters(t *testing.T) {
	s, _ := newTestService(t)
	loadSample(t, s)

	facets, err := s.Filters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Bolt Co"}, facets.Values(catalog.ManufacturerName))
	assert.Equal(t, []string{"(blank)", "Active", "Obsolete"}, facets.Values(catalog.SalesStatus))
}

func TestService_Search(t *testing.T) {
	s, _ := newTestService(t)
	loadSample(t, s)
	ctx := context.Background()

	tests := []struct {
		name    string
		q       Query
		items   []string
		message string
	}{
		{"keywords", Query{Keywords: "steel bolt"}, []string{"A12345-B"}, "Found 1 result(s)"},
		{"item number prefix", Query{Keywords: "A123"}, []string{"A12345-B"}, "Found 1 result(s)"},
		{"split across fields", Query{Keywords: "A123 bolt"}, nil, MessageNoMatch},
		{
			"filters only",
			Query{Filters: catalog.Constraints{catalog.ManufacturerName: catalog.Equals("Acme")}},
			[]string{"A12345-B", "D400"},
			"Found 2 result(s)",
		},
		{
			"filters then keywords",
			Query{Keywords: "pipe", Filters: catalog.Constraints{catalog.ProductDivision: catalog.Equals("Plumbing")}},
			[]string{"D400"},
			"Found 1 result(s)",
		},
		{
			"blank sentinel",
			Query{Filters: catalog.Constraints{catalog.SalesStatus: catalog.Equals(catalog.BlankValue)}},
			[]string{"B200"},
			"Found 1 result(s)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Search(ctx, tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.message, res.Message)
			assert.Equal(t, len(tt.items), res.Count)
			got := make([]string, 0, len(res.Records))
			for _, r := range res.Records {
				got = append(got, r.ItemNo)
			}
			if tt.items == nil {
				assert.Empty(t, got)
				assert.True(t, res.NoMatch)
			} else {
				assert.Equal(t, tt.items, got)
			}
		})
	}
}

func TestService_SearchNoQuery(t *testing.T) {
	s, _ := newTestService(t)
	loadSample(t, s)

	for _, q := range []Query{
		{},
		{Keywords: "   "},
		{Filters: catalog.Constraints{catalog.ManufacturerName: catalog.Equals("")}},
	} {
		res, err := s.Search(context.Background(), q)
		require.NoError(t, err)
		assert.True(t, res.NoQuery)
		assert.Equal(t, MessageNoQuery, res.Message)
		assert.NotNil(t, res.Records)
		assert.Empty(t, res.Records)
	}
}

func TestService_SearchFacetsNarrow(t *testing.T) {
	s, _ := newTestService(t)
	loadSample(t, s)

	res, err := s.Search(context.Background(), Query{Keywords: "pipe"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme"}, res.Facets.Values(catalog.ManufacturerName))
	assert.Equal(t, []string{"Obsolete"}, res.Facets.Values(catalog.SalesStatus))
}

func TestService_Export(t *testing.T) {
	s, _ := newTestService(t)
	loadSample(t, s)
	ctx := context.Background()

	var buf bytes.Buffer
	n, err := s.Export(ctx, Query{Keywords: "bolt"}, catalog.FormatXLSX, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := catalog.Parse(bytes.NewReader(buf.Bytes()), catalog.FormatXLSX)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Steel Hex Bolt", records[0].Description)

	buf.Reset()
	n, err = s.Export(ctx, Query{Keywords: "titanium"}, catalog.FormatCSV, &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, buf.Len())

	_, err = s.Export(ctx, Query{}, catalog.FormatCSV, &buf)
	assert.ErrorIs(t, err, ErrNoQuery)
}

func TestService_Clear(t *testing.T) {
	s, rec := newTestService(t)
	loadSample(t, s)
	ctx := context.Background()

	s.Clear(ctx)
	assert.False(t, s.Status().Loaded)
	_, err := s.Search(ctx, Query{Keywords: "bolt"})
	assert.ErrorIs(t, err, catalog.ErrNoDataset)

	events, err := s.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, history.KindClear, events[0].Kind)
	assert.Equal(t, "parts.csv", events[0].FileName)
	assert.Equal(t, 3, events[0].RowCount)

	all, err := rec.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestService_WaitForUploads(t *testing.T) {
	s, _ := newTestService(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.WaitForUploads(ctx))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"catalog.xlsx":            "catalog.xlsx",
		"  DART export.csv ":      "DART_export.csv",
		"../../etc/passwd":        "passwd",
		`C:\Users\kim\parts.xlsx`: "parts.xlsx",
		"résumé (final).xlsx":     "rsum_final.xlsx",
		".hidden.csv":             "hidden.csv",
		"":                        "",
		"/":                       "",
		"...":                     "",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "search_results.xlsx", ExportFilename(catalog.FormatXLSX))
	assert.Equal(t, "search_results.csv", ExportFilename(catalog.FormatCSV))
}
