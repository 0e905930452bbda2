package chart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/NordCoder/apirun/internal/obs"
	"go.uber.org/zap"
)

var ErrChartRenderFailed = errors.New("chart render failed")

type Config struct {
	BaseURL         string
	Format          string
	Width           int
	Height          int
	BackgroundColor string
}

type Client struct {
	httpc *http.Client
	cfg   Config
	log   *zap.Logger
}

func NewClient(cfg Config, httpc *http.Client, l *zap.Logger) *Client {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	if cfg.Format == "" {
		cfg.Format = "png"
	}
	return &Client{httpc: httpc, cfg: cfg, log: obs.Component(l, "chart.client")}
}

// URL encodes spec into a GET url for the chart service.
func (c *Client) URL(spec Spec) (string, error) {
	b, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("marshal chart spec: %w", err)
	}
	q := url.Values{}
	q.Set("c", string(b))
	q.Set("format", c.cfg.Format)
	if c.cfg.Width > 0 {
		q.Set("width", strconv.Itoa(c.cfg.Width))
	}
	if c.cfg.Height > 0 {
		q.Set("height", strconv.Itoa(c.cfg.Height))
	}
	if c.cfg.BackgroundColor != "" {
		q.Set("backgroundColor", c.cfg.BackgroundColor)
	}
	return c.cfg.BaseURL + "?" + q.Encode(), nil
}

// Render fetches the chart for in and writes it to path.
func (c *Client) Render(ctx context.Context, in Input, path string) error {
	u, err := c.URL(NewSpec(in))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChartRenderFailed, err)
	}
	log := obs.WithTrace(ctx, c.log).With(
		zap.String("collection", in.CollectionName),
		zap.Int("passed", in.Passed),
		zap.Int("failed", in.Failed),
	)
	log.Debug("chart url", zap.Int("url_len", len(u)))

	start := time.Now()
	img, err := c.fetch(ctx, u)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChartRenderFailed, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrChartRenderFailed, err)
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrChartRenderFailed, path, err)
	}
	log.Info("chart rendered", zap.String("path", path), zap.Int("bytes", len(img)), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("chart service status %d: %s", resp.StatusCode, msg)
	}
	img, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, fmt.Errorf("read chart body: %w", err)
	}
	if len(img) == 0 {
		return nil, errors.New("empty chart body")
	}
	return img, nil
}
