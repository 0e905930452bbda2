package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew_SetsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New("test", Config{Timeout: time.Second, UserAgent: "apirun/test"})
	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "apirun/test", got)
	assert.Equal(t, time.Second, c.Timeout)
}

func TestNew_DefaultTimeout(t *testing.T) {
	c := New("test", Config{})
	assert.Equal(t, 30*time.Second, c.Timeout)
}

func TestNew_SecretsKeptOutOfSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	const token = "123456:SECRET-BOT-TOKEN"
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New("telegram", Config{Timeout: time.Second, Secrets: []string{token}})
	resp, err := c.Post(srv.URL+"/bot"+token+"/sendMessage", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "/bot"+token+"/sendMessage", gotPath)

	spans := exp.GetSpans()
	require.NotEmpty(t, spans)
	sawURL := false
	for _, s := range spans {
		assert.NotContains(t, s.Name, token)
		for _, kv := range s.Attributes {
			v := kv.Value.Emit()
			assert.NotContains(t, v, token, "attribute %s", kv.Key)
			if strings.Contains(v, "/sendMessage") {
				sawURL = true
				assert.Contains(t, v, "/botredacted/sendMessage")
			}
		}
	}
	assert.True(t, sawURL)
}
