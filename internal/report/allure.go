package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/NordCoder/apirun/internal/obs"
	"go.uber.org/zap"
)

var (
	ErrGeneratorProcessFailed  = errors.New("report generator process failed")
	ErrGeneratorProcessWarning = errors.New("report generator wrote to stderr")
)

type Config struct {
	Bin        string
	ResultsDir string
	ReportDir  string
}

// Generator renders the allure results dir into a single-file html report.
type Generator struct {
	cfg Config
	log *zap.Logger
}

func NewGenerator(cfg Config, l *zap.Logger) *Generator {
	return &Generator{cfg: cfg, log: obs.Component(l, "report.allure")}
}

func (g *Generator) WithLogger(l *zap.Logger) *Generator {
	cp := *g
	cp.log = obs.Component(l, "report.allure")
	return &cp
}

// ArtifactPath is the report file produced by a successful Generate.
func (g *Generator) ArtifactPath() string {
	return filepath.Join(g.cfg.ReportDir, "index.html")
}

// Generate runs the generator and returns the report path. Any stderr output
// is treated as a failure, same as a non-zero exit.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	log := obs.WithTrace(ctx, g.log).With(
		zap.String("results_dir", g.cfg.ResultsDir),
		zap.String("report_dir", g.cfg.ReportDir),
	)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, g.cfg.Bin,
		"generate", "--single-file", g.cfg.ResultsDir, "--clean", "-o", g.cfg.ReportDir)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		log.Error("allure generate failed", zap.Error(err), zap.String("stderr", strings.TrimSpace(stderr.String())))
		return "", fmt.Errorf("%w: %v", ErrGeneratorProcessFailed, err)
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		log.Error("allure generate stderr", zap.String("stderr", msg))
		return "", fmt.Errorf("%w: %s", ErrGeneratorProcessWarning, msg)
	}

	path := g.ArtifactPath()
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: report not found: %v", ErrGeneratorProcessFailed, err)
	}
	log.Info("allure report generated",
		zap.String("path", path),
		zap.String("stdout", strings.TrimSpace(stdout.String())),
		zap.Duration("elapsed", time.Since(start)),
	)
	return path, nil
}
