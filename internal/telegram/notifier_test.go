package telegram

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/NordCoder/apirun/internal/domain/notification"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNotifier_ReportsDeliveries(t *testing.T) {
	bot := &fakeBot{reply: func(method string) (int, string) {
		if method == "sendPhoto" {
			return http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: IMAGE_PROCESS_FAILED"}`
		}
		return http.StatusOK, `{"ok":true,"result":{"message_id":9}}`
	}}
	n := NewNotifier(newTestClient(t, bot, 1), time.Second, zap.NewNop())
	ctx := context.Background()

	photo := n.SendPhoto(ctx, writeFile(t, "chart.png", "x"), true)
	assert.False(t, photo.OK)
	assert.Equal(t, notification.MethodPhoto, photo.Method)
	assert.Contains(t, photo.Error, "IMAGE_PROCESS_FAILED")
	assert.True(t, photo.Muted)
	assert.False(t, photo.SentAt.IsZero())

	doc := n.SendDocument(ctx, writeFile(t, "index.html", "x"), "", true)
	assert.True(t, doc.OK)
	assert.Equal(t, int64(9), doc.MessageID)

	msg := n.SendMessage(ctx, "text", true)
	assert.True(t, msg.OK)
	assert.Equal(t, int64(9), msg.MessageID)

	edit := n.EditMessage(ctx, 9, "new text", true)
	assert.True(t, edit.OK)
	assert.Equal(t, notification.MethodEdit, edit.Method)
	assert.Equal(t, int64(9), edit.MessageID)
}

func TestNotifier_TransportFailure(t *testing.T) {
	c := NewClient(Config{APIBase: "http://127.0.0.1:1", Token: "t", ChatID: "1", RetryAttempts: 1}, &http.Client{Timeout: time.Second})
	n := NewNotifier(c, time.Second, zap.NewNop())

	d := n.SendMessage(context.Background(), "text", false)
	assert.False(t, d.OK)
	assert.NotEmpty(t, d.Error)
	assert.Zero(t, d.MessageID)
}
