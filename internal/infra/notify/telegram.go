package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra"
)

// ErrCircuitOpen is returned while the Telegram API is considered down.
var ErrCircuitOpen = errors.New("telegram: circuit open")

// Telegram sends messages through the Bot API sendMessage method.
type Telegram struct {
	apiURL     string
	token      string
	chatID     string
	httpClient *http.Client

	limiter *limiter
	breaker *breaker
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewTelegram creates a notifier. Telegram allows about one message per
// second per chat; bursts of fills are smoothed to that rate.
func NewTelegram(apiURL, token, chatID string) *Telegram {
	return &Telegram{
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		chatID: chatID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: newLimiter(3, 1),
		breaker: newBreaker("telegram", 5, 30*time.Second),
	}
}

// Notify strips terminal escapes from text and posts it to the chat.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	if err := t.limiter.wait(ctx); err != nil {
		return err
	}
	if !t.breaker.allow() {
		return ErrCircuitOpen
	}

	err := t.send(ctx, infra.StripANSI(text))
	if err != nil {
		t.breaker.failure()
		return err
	}
	t.breaker.success()
	return nil
}

func (t *Telegram) send(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: t.chatID, Text: text})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", infra.DefaultUserAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// the URL carries the bot token
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("telegram read: %w", err)
	}

	var r sendMessageResponse
	if jsonErr := json.Unmarshal(respBody, &r); jsonErr != nil || resp.StatusCode != http.StatusOK || !r.OK {
		slog.Debug("Telegram response", slog.Int("status", resp.StatusCode), slog.String("body", string(respBody)))
		if r.Description != "" {
			return fmt.Errorf("telegram: status %d: %s", resp.StatusCode, r.Description)
		}
		return fmt.Errorf("telegram: status %d", resp.StatusCode)
	}
	return nil
}
