package httpclient

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Config struct {
	Timeout   time.Duration
	UserAgent string
	VerifyTLS bool
	// Secrets are replaced with "redacted" in the url seen by the tracing
	// layer. The request on the wire keeps them.
	Secrets []string
}

// New builds a traced client for one outbound dependency. name is used as the
// otel span name prefix.
func New(name string, cfg Config) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.VerifyTLS,
			MinVersion:         tls.VersionTLS12,
		},
	}

	var rt http.RoundTripper = transport
	if cfg.UserAgent != "" {
		rt = userAgent{next: rt, ua: cfg.UserAgent}
	}

	secrets := nonEmpty(cfg.Secrets)
	if len(secrets) > 0 {
		rt = restoreURL{next: rt}
	}
	rt = otelhttp.NewTransport(rt,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return name + " " + r.Method
		}),
	)
	if len(secrets) > 0 {
		rt = redactURL{next: rt, secrets: secrets}
	}

	return &http.Client{Timeout: timeout, Transport: rt}
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

const redactedMark = "redacted"

type realURLKey struct{}

// redactURL sits above otelhttp so span attributes are built from a url
// without secrets; restoreURL below it puts the real one back.
type redactURL struct {
	next    http.RoundTripper
	secrets []string
}

func (t redactURL) RoundTrip(r *http.Request) (*http.Response, error) {
	masked := *r.URL
	changed := false
	for _, s := range t.secrets {
		if strings.Contains(masked.Path, s) || strings.Contains(masked.RawQuery, s) {
			masked.Path = strings.ReplaceAll(masked.Path, s, redactedMark)
			masked.RawQuery = strings.ReplaceAll(masked.RawQuery, s, redactedMark)
			changed = true
		}
	}
	if !changed {
		return t.next.RoundTrip(r)
	}
	masked.RawPath = ""

	orig := r.URL
	r = r.Clone(context.WithValue(r.Context(), realURLKey{}, orig))
	r.URL = &masked
	return t.next.RoundTrip(r)
}

type restoreURL struct {
	next http.RoundTripper
}

func (t restoreURL) RoundTrip(r *http.Request) (*http.Response, error) {
	if orig, ok := r.Context().Value(realURLKey{}).(*url.URL); ok {
		r = r.Clone(r.Context())
		r.URL = orig
	}
	return t.next.RoundTrip(r)
}

type userAgent struct {
	next http.RoundTripper
	ua   string
}

func (u userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get("User-Agent") == "" {
		r = r.Clone(r.Context())
		r.Header.Set("User-Agent", u.ua)
	}
	return u.next.RoundTrip(r)
}
