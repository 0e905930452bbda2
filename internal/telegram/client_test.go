package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type botCall struct {
	Method string
	JSON   map[string]any
	Form   map[string]string
	File   string
	Name   string
}

type fakeBot struct {
	mu    sync.Mutex
	calls []botCall
	reply func(method string) (int, string)
}

func (b *fakeBot) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		method := parts[len(parts)-1]
		require.Equal(t, "bottest-token", parts[len(parts)-2])

		call := botCall{Method: method}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			call.Form = map[string]string{}
			for k, v := range r.MultipartForm.Value {
				call.Form[k] = v[0]
			}
			for _, fhs := range r.MultipartForm.File {
				f, err := fhs[0].Open()
				require.NoError(t, err)
				b, _ := io.ReadAll(f)
				_ = f.Close()
				call.File = string(b)
				call.Name = fhs[0].Filename
			}
		} else {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&call.JSON))
		}

		b.mu.Lock()
		b.calls = append(b.calls, call)
		b.mu.Unlock()

		code, body := http.StatusOK, `{"ok":true,"result":{"message_id":77}}`
		if b.reply != nil {
			code, body = b.reply(method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = io.WriteString(w, body)
	})
}

func newTestClient(t *testing.T, bot *fakeBot, attempts int) *Client {
	t.Helper()
	srv := httptest.NewServer(bot.handler(t))
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIBase:       srv.URL + "/",
		Token:         "test-token",
		ChatID:        "-1001",
		RetryAttempts: attempts,
	}, srv.Client())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestClient_SendMessage(t *testing.T) {
	bot := &fakeBot{}
	c := newTestClient(t, bot, 1)

	id, err := c.SendMessage(context.Background(), "hello", true)
	require.NoError(t, err)
	assert.Equal(t, int64(77), id)

	require.Len(t, bot.calls, 1)
	call := bot.calls[0]
	assert.Equal(t, "sendMessage", call.Method)
	assert.Equal(t, "-1001", call.JSON["chat_id"])
	assert.Equal(t, "hello", call.JSON["text"])
	assert.Equal(t, true, call.JSON["disable_notification"])
}

func TestClient_EditMessage(t *testing.T) {
	bot := &fakeBot{}
	c := newTestClient(t, bot, 1)

	require.NoError(t, c.EditMessage(context.Background(), 12, "updated", false))

	require.Len(t, bot.calls, 1)
	call := bot.calls[0]
	assert.Equal(t, "editMessageText", call.Method)
	assert.Equal(t, float64(12), call.JSON["message_id"])
	assert.Equal(t, "updated", call.JSON["text"])
	assert.Equal(t, false, call.JSON["disable_notification"])
}

func TestClient_SendPhotoAndDocument(t *testing.T) {
	bot := &fakeBot{}
	c := newTestClient(t, bot, 1)

	photo := writeFile(t, "chart.png", "PNGDATA")
	report := writeFile(t, "index.html", "<html>report</html>")

	_, err := c.SendPhoto(context.Background(), photo, false)
	require.NoError(t, err)
	_, err = c.SendDocument(context.Background(), report, "caption text", true)
	require.NoError(t, err)

	require.Len(t, bot.calls, 2)
	assert.Equal(t, "sendPhoto", bot.calls[0].Method)
	assert.Equal(t, "PNGDATA", bot.calls[0].File)
	assert.Equal(t, "chart.png", bot.calls[0].Name)
	assert.Equal(t, "false", bot.calls[0].Form["disable_notification"])
	assert.Equal(t, "-1001", bot.calls[0].Form["chat_id"])

	assert.Equal(t, "sendDocument", bot.calls[1].Method)
	assert.Equal(t, "<html>report</html>", bot.calls[1].File)
	assert.Equal(t, "true", bot.calls[1].Form["disable_notification"])
	assert.Equal(t, "caption text", bot.calls[1].Form["caption"])
}

func TestClient_RejectedNotRetried(t *testing.T) {
	bot := &fakeBot{reply: func(string) (int, string) {
		return http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`
	}}
	c := newTestClient(t, bot, 3)

	_, err := c.SendMessage(context.Background(), "x", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotificationRejected))

	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, 400, rej.Code)
	assert.Equal(t, "Bad Request: chat not found", rej.Description)
	assert.Len(t, bot.calls, 1)
}

func TestClient_ServerErrorRetried(t *testing.T) {
	var n atomic.Int32
	bot := &fakeBot{reply: func(string) (int, string) {
		if n.Add(1) == 1 {
			return http.StatusBadGateway, `<html>bad gateway</html>`
		}
		return http.StatusOK, `{"ok":true,"result":{"message_id":5}}`
	}}
	c := newTestClient(t, bot, 2)

	id, err := c.SendMessage(context.Background(), "x", false)
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	assert.Len(t, bot.calls, 2)
}

func TestClient_MissingFile(t *testing.T) {
	bot := &fakeBot{}
	c := newTestClient(t, bot, 3)

	_, err := c.SendDocument(context.Background(), filepath.Join(t.TempDir(), "nope.html"), "", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, bot.calls)
}

func TestRedact(t *testing.T) {
	err := redact(errors.New(`Post "https://api/bot123:secret/sendMessage": EOF`), "123:secret")
	assert.NotContains(t, err.Error(), "secret")
	assert.Contains(t, err.Error(), "<token>")
}

func TestClient_FloodControlWaitsRetryAfter(t *testing.T) {
	var n atomic.Int32
	bot := &fakeBot{reply: func(string) (int, string) {
		if n.Add(1) == 1 {
			return http.StatusTooManyRequests,
				`{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 1","parameters":{"retry_after":1}}`
		}
		return http.StatusOK, `{"ok":true,"result":{"message_id":9}}`
	}}
	c := newTestClient(t, bot, 3)

	start := time.Now()
	id, err := c.SendMessage(context.Background(), "x", false)
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
	assert.Len(t, bot.calls, 2)
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestClient_FloodControlPastDeadline(t *testing.T) {
	bot := &fakeBot{reply: func(string) (int, string) {
		return http.StatusTooManyRequests,
			`{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 30","parameters":{"retry_after":30}}`
	}}
	c := newTestClient(t, bot, 3)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.SendMessage(ctx, "x", false)
	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, 30*time.Second, rej.RetryAfter())
	assert.Len(t, bot.calls, 1)
}
