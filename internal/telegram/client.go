package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/NordCoder/apirun/internal/obs/retry"
	"go.uber.org/zap"
)

type Config struct {
	APIBase       string
	Token         string
	ChatID        string
	RetryAttempts int
}

// Client talks to the Bot API. Every call returns either a result or an error;
// the best-effort semantics live in Notifier.
type Client struct {
	httpc   *http.Client
	base    string
	token   string
	chatID  string
	attempt int

	log *zap.Logger
}

func NewClient(cfg Config, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &Client{
		httpc:   httpc,
		base:    strings.TrimRight(cfg.APIBase, "/"),
		token:   cfg.Token,
		chatID:  cfg.ChatID,
		attempt: cfg.RetryAttempts,
		log:     zap.L().With(zap.String("component", "telegram.client")),
	}
}

func (c *Client) WithLogger(l *zap.Logger) *Client {
	if l == nil {
		return c
	}
	cp := *c
	cp.log = l.With(zap.String("component", "telegram.client"))
	return &cp
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

type message struct {
	MessageID int64 `json:"message_id"`
}

func (c *Client) SendDocument(ctx context.Context, path, caption string, muted bool) (int64, error) {
	fields := c.fields(muted)
	if caption != "" {
		fields["caption"] = caption
	}
	return c.upload(ctx, "sendDocument", "document", path, fields)
}

func (c *Client) SendPhoto(ctx context.Context, path string, muted bool) (int64, error) {
	return c.upload(ctx, "sendPhoto", "photo", path, c.fields(muted))
}

func (c *Client) SendMessage(ctx context.Context, text string, muted bool) (int64, error) {
	var msg message
	err := c.postJSON(ctx, "sendMessage", map[string]any{
		"chat_id":              c.chatID,
		"text":                 text,
		"disable_notification": muted,
	}, &msg)
	return msg.MessageID, err
}

func (c *Client) EditMessage(ctx context.Context, messageID int64, text string, muted bool) error {
	// result is a Message or plain true for inline messages; nothing to keep
	return c.postJSON(ctx, "editMessageText", map[string]any{
		"chat_id":              c.chatID,
		"message_id":           messageID,
		"text":                 text,
		"disable_notification": muted,
	}, nil)
}

func (c *Client) fields(muted bool) map[string]string {
	return map[string]string{
		"chat_id":              c.chatID,
		"disable_notification": strconv.FormatBool(muted),
	}
}

func (c *Client) upload(ctx context.Context, method, field, path string, fields map[string]string) (int64, error) {
	var msg message
	err := retry.Do(ctx, func() error {
		body, contentType, err := multipartBody(fields, field, path)
		if err != nil {
			return retry.Permanent(err)
		}
		return c.do(ctx, method, body, contentType, &msg)
	}, retry.DefaultHTTPPolicy("telegram_"+method, c.attempt, c.log))
	return msg.MessageID, err
}

func (c *Client) postJSON(ctx context.Context, method string, payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}
	return retry.Do(ctx, func() error {
		return c.do(ctx, method, io.NopCloser(bytes.NewReader(b)), "application/json", out)
	}, retry.DefaultHTTPPolicy("telegram_"+method, c.attempt, c.log))
}

func (c *Client) do(ctx context.Context, method string, body io.ReadCloser, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), body)
	if err != nil {
		_ = body.Close()
		return &TransportError{Method: method, Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &TransportError{Method: method, Err: redact(err, c.token)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &TransportError{Method: method, Err: err}
	}

	var ar apiResponse
	if err := json.Unmarshal(raw, &ar); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &RejectedError{Method: method, Code: resp.StatusCode, Description: http.StatusText(resp.StatusCode)}
		}
		return &TransportError{Method: method, Err: fmt.Errorf("decode response: %w", err)}
	}
	if !ar.OK {
		rej := &RejectedError{Method: method, Code: ar.ErrorCode, Description: ar.Description}
		if rej.Code == 0 {
			rej.Code = resp.StatusCode
		}
		if ar.Parameters != nil {
			rej.RetryAfterSec = ar.Parameters.RetryAfter
		}
		return rej
	}

	if out != nil && len(ar.Result) > 0 {
		if err := json.Unmarshal(ar.Result, out); err != nil {
			return &TransportError{Method: method, Err: fmt.Errorf("decode result: %w", err)}
		}
	}
	c.log.Debug("telegram call ok", zap.String("method", method), zap.Int("status", resp.StatusCode))
	return nil
}

func (c *Client) endpoint(method string) string {
	return c.base + "/bot" + c.token + "/" + method
}

// redact keeps the bot token out of logged url errors.
func redact(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), token, "<token>"))
}
