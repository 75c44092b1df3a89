// Package openai talks to any OpenAI-compatible chat completions endpoint.
// The default base URL points at Groq.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/spigell/career-twin/internal/ai"
	"github.com/spigell/career-twin/internal/logger"
	"github.com/spigell/career-twin/internal/utils"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL      = "https://api.groq.com/openai/v1"
	DefaultModel        = "llama-3.3-70b-versatile"
	defaultTimeout      = 90 * time.Second
	defaultRetryWait    = time.Second
	defaultMaxLogLength = 200
)

type Options struct {
	BaseURL      string
	Model        string
	MaxRetries   int
	Timeout      time.Duration
	RetryWait    time.Duration
	MaxLogLength int
}

// Client implements ai.Generator over the chat completions API.
type Client struct {
	http      *resty.Client
	model     string
	maxLogLen int
	logger    *zap.Logger
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float32   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

func New(apiKey string, opts Options, log *zap.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai-compatible api key is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	wait := opts.RetryWait
	if wait <= 0 {
		wait = defaultRetryWait
	}

	retries := opts.MaxRetries - 1
	if retries < 0 {
		retries = 0
	}

	maxLogLen := opts.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(wait).
		SetRetryMaxWaitTime(20 * wait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{
		http:      client,
		model:     model,
		maxLogLen: maxLogLen,
		logger:    logger.WithCommonFields(log, "openai", model),
	}, nil
}

// Generate sends a chat completion with an optional system message and returns the first choice.
func (c *Client) Generate(ctx context.Context, req ai.Request) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	messages := make([]message, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, message{Role: "system", Content: system})
	}
	messages = append(messages, message{Role: "user", Content: prompt})

	c.logger.Debug("chat completion request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, c.maxLogLen)),
		zap.Float32("temperature", req.Temperature),
	)

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(completionRequest{
			Model:       c.model,
			Messages:    messages,
			Temperature: req.Temperature,
			MaxTokens:   req.Tokens(),
		}).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	body := resp.String()
	if resp.IsError() {
		reason := gjson.Get(body, "error.message").String()
		if reason == "" {
			reason = utils.TruncateForLog(body, c.maxLogLen)
		}
		return "", fmt.Errorf("chat completion: bad status %d: %s", resp.StatusCode(), reason)
	}

	content := strings.TrimSpace(gjson.Get(body, "choices.0.message.content").String())
	if content == "" {
		return "", errors.New("chat completion returned empty content")
	}

	c.logger.Debug("chat completion response",
		zap.Int("response_length", utf8.RuneCountInString(content)),
		zap.String("response_preview", utils.TruncateForLog(content, c.maxLogLen)),
		zap.Int64("total_tokens", gjson.Get(body, "usage.total_tokens").Int()),
	)

	return content, nil
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}
