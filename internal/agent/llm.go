package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var ErrLLM = errors.New("llm request failed")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatClient produces generated text for a list of role/content messages.
type ChatClient interface {
	Chat(ctx context.Context, messages []Message, temperature float64) (string, error)
}

type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	HTTPReferer string
	Title       string
	MaxTokens   int
}

// LLMClient talks to an OpenRouter-compatible chat completions endpoint.
type LLMClient struct {
	cfg    LLMConfig
	client *http.Client
}

func NewLLMClient(cfg LLMConfig) *LLMClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 6000
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if !strings.HasSuffix(base, "/chat/completions") && !strings.HasSuffix(base, "/completions") {
		base += "/chat/completions"
	}
	cfg.BaseURL = base
	return &LLMClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatRequest struct {
	Model           string    `json:"model"`
	Messages        []Message `json:"messages"`
	Temperature     float64   `json:"temperature"`
	MaxOutputTokens int       `json:"max_output_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
			Text    string          `json:"text"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *LLMClient) Chat(ctx context.Context, messages []Message, temperature float64) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:           c.cfg.Model,
		Messages:        messages,
		Temperature:     temperature,
		MaxOutputTokens: c.cfg.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	var text string
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.cfg.MaxRetries)),
		ctx,
	)
	err = backoff.Retry(func() error {
		out, retryable, reqErr := c.once(ctx, payload)
		if reqErr != nil {
			if retryable {
				return reqErr
			}
			return backoff.Permanent(reqErr)
		}
		text = out
		return nil
	}, policy)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *LLMClient) once(ctx context.Context, payload []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if c.cfg.HTTPReferer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.HTTPReferer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("%w: %v", ErrLLM, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", true, fmt.Errorf("%w: %v", ErrLLM, err)
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return "", true, fmt.Errorf("%w: status %d: %s", ErrLLM, resp.StatusCode, truncate(string(body), 200))
	}
	if resp.StatusCode >= 400 {
		return "", false, fmt.Errorf("%w: status %d: %s", ErrLLM, resp.StatusCode, truncate(string(body), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false, fmt.Errorf("%w: decode: %v", ErrLLM, err)
	}
	text, ok := extractText(parsed)
	if !ok {
		return "", false, fmt.Errorf("%w: response did not contain text", ErrLLM)
	}
	return text, false, nil
}

// extractText tolerates both plain-string content and part-list content from
// providers that return [{"type":"text","text":...}, ...].
func extractText(resp chatResponse) (string, bool) {
	if len(resp.Choices) == 0 {
		return "", false
	}
	msg := resp.Choices[0].Message
	if len(msg.Content) > 0 {
		var asString string
		if err := json.Unmarshal(msg.Content, &asString); err == nil {
			return asString, true
		}
		var asParts []struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(msg.Content, &asParts); err == nil {
			parts := make([]string, 0, len(asParts))
			for _, p := range asParts {
				if p.Text != "" {
					parts = append(parts, p.Text)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, "\n"), true
			}
		}
	}
	if msg.Text != "" {
		return msg.Text, true
	}
	return "", false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
