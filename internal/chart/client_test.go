package chart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeSpec(t *testing.T, q url.Values) map[string]any {
	t.Helper()
	assert.Equal(t, "png", q.Get("format"))
	var spec map[string]any
	require.NoError(t, json.Unmarshal([]byte(q.Get("c")), &spec))
	return spec
}

func datasetValues(t *testing.T, spec map[string]any) []any {
	t.Helper()
	data := spec["data"].(map[string]any)
	ds := data["datasets"].([]any)[0].(map[string]any)
	return ds["data"].([]any)
}

func TestNewSpec_OmitsZeroSegments(t *testing.T) {
	cases := []struct {
		name           string
		passed, failed int
		want           []*int
	}{
		{"all passed", 10, 0, []*int{intp(10), nil}},
		{"all failed", 0, 4, []*int{nil, intp(4)}},
		{"mixed", 7, 3, []*int{intp(7), intp(3)}},
		{"nothing", 0, 0, []*int{nil, nil}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec := NewSpec(Input{Passed: tc.passed, Failed: tc.failed, CollectionName: "C"})
			assert.Equal(t, "doughnut", spec.Type)
			assert.Equal(t, "C", spec.Options.Title.Text)
			assert.Equal(t, tc.want, spec.Data.Datasets[0].Data)
			assert.Equal(t, []string{"Успешные тесты", "Проваленные тесты"}, spec.Data.Labels)
		})
	}
}

func TestRender_WritesImage(t *testing.T) {
	var query url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG fake"))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/chart"}, srv.Client(), zap.NewNop())
	path := filepath.Join(t.TempDir(), "nested", "chart.png")

	err := c.Render(context.Background(), Input{Passed: 10, Failed: 0, CollectionName: "Smoke"}, path)
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG fake", string(b))

	vals := datasetValues(t, decodeSpec(t, query))
	require.Len(t, vals, 2)
	assert.Equal(t, float64(10), vals[0])
	assert.Nil(t, vals[1], "zero segment must be sent as null")
}

func TestRender_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, srv.Client(), zap.NewNop())
	path := filepath.Join(t.TempDir(), "chart.png")

	err := c.Render(context.Background(), Input{Passed: 7, Failed: 3}, path)
	require.ErrorIs(t, err, ErrChartRenderFailed)
	assert.Contains(t, err.Error(), "500")
	assert.NoFileExists(t, path)
}

func TestURL_Options(t *testing.T) {
	c := NewClient(Config{BaseURL: "https://quickchart.io/chart", Width: 500, Height: 300, BackgroundColor: "white"}, nil, nil)
	u, err := c.URL(NewSpec(Input{Passed: 1}))
	require.NoError(t, err)
	assert.Contains(t, u, "https://quickchart.io/chart?")
	assert.Contains(t, u, "width=500")
	assert.Contains(t, u, "height=300")
	assert.Contains(t, u, "backgroundColor=white")
	assert.Contains(t, u, "format=png")
}

func intp(v int) *int { return &v }
