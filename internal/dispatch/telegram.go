package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultTelegramAPI is the Bot API base URL.
const DefaultTelegramAPI = "https://api.telegram.org"

// telegramMaxText is the Bot API limit on message length, in characters.
const telegramMaxText = 4096

// TelegramSink posts messages through the Bot API sendMessage method.
type TelegramSink struct {
	token   string
	apiBase string
	client  *http.Client
}

// NewTelegramSink returns a sink for the bot identified by token. An empty
// apiBase uses the public API.
func NewTelegramSink(token, apiBase string) *TelegramSink {
	if apiBase == "" {
		apiBase = DefaultTelegramAPI
	}
	return &TelegramSink{
		token:   token,
		apiBase: strings.TrimSuffix(apiBase, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendTelegram sends text to chatID, splitting it at the API length limit.
func (s *TelegramSink) SendTelegram(ctx context.Context, chatID string, text []byte) error {
	if s.token == "" {
		return fmt.Errorf("telegram: bot token not configured")
	}
	for _, part := range splitText(string(text), telegramMaxText) {
		if err := s.send(ctx, chatID, part); err != nil {
			return err
		}
	}
	return nil
}

func (s *TelegramSink) send(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("telegram: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send to %s: %w", chatID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var r apiResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &r) == nil && r.Description != "" {
			return fmt.Errorf("telegram: send to %s: %d %s", chatID, resp.StatusCode, r.Description)
		}
		return fmt.Errorf("telegram: send to %s: status %d", chatID, resp.StatusCode)
	}
	return nil
}

// splitText cuts s into pieces of at most max runes, preferring to break
// after a newline.
func splitText(s string, max int) []string {
	if utf8.RuneCountInString(s) <= max {
		return []string{s}
	}
	var parts []string
	for utf8.RuneCountInString(s) > max {
		cut := byteOffset(s, max)
		if nl := strings.LastIndexByte(s[:cut], '\n'); nl > 0 {
			cut = nl + 1
		}
		parts = append(parts, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}

// byteOffset returns the byte index of the n-th rune in s.
func byteOffset(s string, n int) int {
	i := 0
	for pos := range s {
		if i == n {
			return pos
		}
		i++
	}
	return len(s)
}
