package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/NordCoder/apirun/internal/domain/run"
	"github.com/NordCoder/apirun/internal/obs"
	"go.uber.org/zap"
)

type Config struct {
	Bin              string
	CollectionsDir   string
	DelayRequest     time.Duration
	Reporters        []string
	Environment      string
	AllureResultsDir string
	WorkDir          string
	KeepExport       bool
}

// Newman runs collections through the newman CLI. The json reporter is always
// enabled: its export is the only result channel read back.
type Newman struct {
	cfg    Config
	stdout io.Writer
	log    *zap.Logger
}

var _ Engine = (*Newman)(nil)

func NewNewman(cfg Config, l *zap.Logger) *Newman {
	return &Newman{cfg: cfg, stdout: os.Stdout, log: obs.Component(l, "engine.newman")}
}

// WithStdout redirects the cli reporter output.
func (n *Newman) WithStdout(w io.Writer) *Newman {
	cp := *n
	cp.stdout = w
	return &cp
}

func (n *Newman) WithLogger(l *zap.Logger) *Newman {
	cp := *n
	cp.log = obs.Component(l, "engine.newman")
	return &cp
}

// CollectionPath resolves a collection name to its file. Names are looked up
// in the collections dir only.
func (n *Newman) CollectionPath(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: invalid collection name %q", ErrEngineFailure, name)
	}
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	return filepath.Join(n.cfg.CollectionsDir, name), nil
}

// ExportPath is where the json reporter writes the summary of runID.
func (n *Newman) ExportPath(runID string) string {
	return filepath.Join(n.cfg.WorkDir, "newman-"+runID+".json")
}

func (n *Newman) args(collectionPath, exportPath string) []string {
	reporters := slices.Clone(n.cfg.Reporters)
	for _, r := range []string{"json", "allure"} {
		if !slices.Contains(reporters, r) {
			reporters = append(reporters, r)
		}
	}
	args := []string{
		"run", collectionPath,
		"--reporters", strings.Join(reporters, ","),
		"--reporter-json-export", exportPath,
		"--reporter-allure-export", n.cfg.AllureResultsDir,
		"--delay-request", strconv.FormatInt(n.cfg.DelayRequest.Milliseconds(), 10),
	}
	if n.cfg.Environment != "" {
		args = append(args, "--environment", n.cfg.Environment)
	}
	return args
}

// Run executes the collection and returns the decoded json export. newman
// exits non-zero when assertions fail, so the exit code alone does not decide
// the outcome: a readable export wins.
func (n *Newman) Run(ctx context.Context, collection, runID string) (*run.Raw, error) {
	colPath, err := n.CollectionPath(collection)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(colPath); err != nil {
		return nil, fmt.Errorf("%w: collection %s: %v", ErrEngineFailure, colPath, err)
	}
	if err := os.MkdirAll(n.cfg.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: work dir: %v", ErrEngineFailure, err)
	}
	export := n.ExportPath(runID)
	_ = os.Remove(export)

	log := obs.WithTrace(ctx, n.log).With(zap.String("collection", collection), zap.String("export", export))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, n.cfg.Bin, n.args(colPath, export)...)
	cmd.Stdout = n.stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	log.Info("newman started", zap.Strings("args", cmd.Args))
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineFailure, ctx.Err())
	}

	raw, readErr := readExport(export)
	if !n.cfg.KeepExport {
		_ = os.Remove(export)
	}
	if readErr != nil {
		if runErr != nil {
			log.Error("newman failed", zap.Error(runErr), zap.String("stderr", tail(stderr.String())), zap.Duration("elapsed", elapsed))
			return nil, fmt.Errorf("%w: %v: %s", ErrEngineFailure, runErr, tail(stderr.String()))
		}
		log.Error("newman export unreadable", zap.Error(readErr))
		return nil, fmt.Errorf("%w: %v", ErrEngineFailure, readErr)
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		log.Warn("newman exited non-zero", zap.Int("exit_code", exitErr.ExitCode()), zap.Duration("elapsed", elapsed))
	} else if runErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineFailure, runErr)
	} else {
		log.Info("newman finished", zap.Duration("elapsed", elapsed))
	}
	return raw, nil
}

func readExport(path string) (*run.Raw, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	var raw run.Raw
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	return &raw, nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 2048 {
		return "..." + s[len(s)-2048:]
	}
	return s
}
