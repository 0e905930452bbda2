package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const exportJSON = `{"collection":{"info":{"name":"Smoke"}},"run":{"stats":{"requests":{"total":5,"pending":0,"failed":0},"assertions":{"total":10,"pending":0,"failed":3}}}}`

// fakeNewman writes a script that records its args, prints to stdout, writes
// body to the --reporter-json-export path (unless body is empty) and exits
// with code.
func fakeNewman(t *testing.T, body string, code int) (bin, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes")
	}
	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args")
	bodyFile := filepath.Join(dir, "body.json")
	require.NoError(t, os.WriteFile(bodyFile, []byte(body), 0o644))

	script := `#!/bin/sh
echo "$@" > "` + argsFile + `"
echo "newman cli output"
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--reporter-json-export" ]; then out="$2"; fi
  shift
done
if [ -s "` + bodyFile + `" ]; then cp "` + bodyFile + `" "$out"; fi
echo "some warning" >&2
exit ` + strconv.Itoa(code) + `
`
	bin = filepath.Join(dir, "newman")
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin, argsFile
}

func newTestNewman(t *testing.T, bin string) (*Newman, *bytes.Buffer) {
	t.Helper()
	cols := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cols, "smoke.json"), []byte(`{}`), 0o644))
	var out bytes.Buffer
	n := NewNewman(Config{
		Bin:              bin,
		CollectionsDir:   cols,
		DelayRequest:     150 * time.Millisecond,
		Reporters:        []string{"cli"},
		AllureResultsDir: "./allure-results",
		WorkDir:          filepath.Join(t.TempDir(), "work"),
	}, zap.NewNop()).WithStdout(&out)
	return n, &out
}

func TestNewman_Run_OK(t *testing.T) {
	bin, argsFile := fakeNewman(t, exportJSON, 0)
	n, out := newTestNewman(t, bin)

	raw, err := n.Run(context.Background(), "smoke", "r1")
	require.NoError(t, err)
	require.NotNil(t, raw.Run)
	assert.Equal(t, 10, *raw.Run.Stats.Assertions.Total)
	assert.Equal(t, "Smoke", raw.Collection.Info.Name)
	assert.Contains(t, out.String(), "newman cli output")

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	got := strings.TrimSpace(string(args))
	assert.Contains(t, got, "run "+filepath.Join(n.cfg.CollectionsDir, "smoke.json"))
	assert.Contains(t, got, "--reporters cli,json,allure")
	assert.Contains(t, got, "--reporter-json-export "+n.ExportPath("r1"))
	assert.Contains(t, got, "--reporter-allure-export ./allure-results")
	assert.Contains(t, got, "--delay-request 150")
	assert.NotContains(t, got, "--environment")
}

func TestNewman_Run_FailedAssertionsExitNonZero(t *testing.T) {
	bin, _ := fakeNewman(t, exportJSON, 1)
	n, _ := newTestNewman(t, bin)

	raw, err := n.Run(context.Background(), "smoke.json", "r2")
	require.NoError(t, err)
	assert.Equal(t, 3, *raw.Run.Stats.Assertions.Failed)
}

func TestNewman_Run_NoExport(t *testing.T) {
	bin, _ := fakeNewman(t, "", 1)
	n, _ := newTestNewman(t, bin)

	_, err := n.Run(context.Background(), "smoke", "r3")
	require.ErrorIs(t, err, ErrEngineFailure)
	assert.Contains(t, err.Error(), "some warning")
}

func TestNewman_Run_GarbageExport(t *testing.T) {
	bin, _ := fakeNewman(t, "not json", 0)
	n, _ := newTestNewman(t, bin)

	_, err := n.Run(context.Background(), "smoke", "r4")
	require.ErrorIs(t, err, ErrEngineFailure)
}

func TestNewman_Run_MissingCollection(t *testing.T) {
	bin, argsFile := fakeNewman(t, exportJSON, 0)
	n, _ := newTestNewman(t, bin)

	_, err := n.Run(context.Background(), "absent", "r5")
	require.ErrorIs(t, err, ErrEngineFailure)
	assert.NoFileExists(t, argsFile, "engine must not be started")
}

func TestNewman_Run_MissingBinary(t *testing.T) {
	n, _ := newTestNewman(t, filepath.Join(t.TempDir(), "no-such-newman"))

	_, err := n.Run(context.Background(), "smoke", "r6")
	require.ErrorIs(t, err, ErrEngineFailure)
}

func TestNewman_CollectionPath(t *testing.T) {
	n := NewNewman(Config{CollectionsDir: "cols"}, nil)

	p, err := n.CollectionPath("api")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("cols", "api.json"), p)

	for _, bad := range []string{"", " ", "..", "../etc/passwd", "a/b"} {
		_, err := n.CollectionPath(bad)
		assert.ErrorIs(t, err, ErrEngineFailure, bad)
	}
}

func TestNewman_Args_Environment(t *testing.T) {
	n := NewNewman(Config{Reporters: []string{"cli", "json"}, Environment: "env.json", AllureResultsDir: "res"}, nil)
	args := n.args("c.json", "out.json")
	assert.Equal(t, "cli,json,allure", args[3])
	assert.Equal(t, []string{"--environment", "env.json"}, args[len(args)-2:])
}
