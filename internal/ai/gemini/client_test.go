package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/spigell/career-twin/internal/ai"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeModels struct {
	mu       sync.Mutex
	queue    []fakeResponse
	configs  []*genai.GenerateContentConfig
	contents [][]*genai.Content

	embedModel  string
	embedConfig *genai.EmbedContentConfig
	embedResp   *genai.EmbedContentResponse
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.configs = append(f.configs, config)
	f.contents = append(f.contents, contents)

	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	next := f.queue[0]
	f.queue = f.queue[1:]
	return next.resp, next.err
}

func (f *fakeModels) EmbedContent(_ context.Context, model string, _ []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.embedModel = model
	f.embedConfig = config
	return f.embedResp, nil
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.queue = append(f.queue, fakeResponse{resp: resp, err: err})
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func noSleep(t *testing.T) {
	t.Helper()
	original := sleep
	sleep = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { sleep = original })
}

func TestGeneratorSendsSystemInstructionAndLimits(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse(`{"ok": true}`), nil)

	g := newGenerator(models, Options{Model: "gemini-pro"}, zap.NewNop())

	output, err := g.Generate(context.Background(), ai.Request{
		Prompt:      "Evaluate this answer",
		System:      "You are an interviewer",
		Temperature: 0.3,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != `{"ok": true}` {
		t.Fatalf("unexpected output: %q", output)
	}

	config := models.configs[0]
	if config.SystemInstruction == nil || config.SystemInstruction.Parts[0].Text != "You are an interviewer" {
		t.Fatalf("expected system instruction to be set")
	}

	if config.Temperature == nil || *config.Temperature != 0.3 {
		t.Fatalf("unexpected temperature: %v", config.Temperature)
	}

	if config.MaxOutputTokens != ai.DefaultMaxTokens {
		t.Fatalf("expected default max tokens, got %d", config.MaxOutputTokens)
	}

	if got := models.contents[0][0].Parts[0].Text; got != "Evaluate this answer" {
		t.Fatalf("unexpected prompt: %q", got)
	}
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	noSleep(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	models.enqueue(textResponse("retry ok"), nil)

	g := newGenerator(models, Options{Model: "gemini-pro", MaxRetries: 2}, zap.NewNop())

	output, err := g.Generate(context.Background(), ai.Request{Prompt: "message"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(models.configs) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.configs))
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	noSleep(t)

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(nil, tempErr)
	models.enqueue(nil, tempErr)

	g := newGenerator(models, Options{MaxRetries: 2}, zap.NewNop())

	if _, err := g.Generate(context.Background(), ai.Request{Prompt: "msg"}); err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	if len(models.configs) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.configs))
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	})

	g := newGenerator(models, Options{MaxRetries: 3}, zap.NewNop())

	if _, err := g.Generate(context.Background(), ai.Request{Prompt: "msg"}); err == nil {
		t.Fatal("expected error when quota delay too long")
	}

	if len(models.configs) != 1 {
		t.Fatalf("expected single call, got %d", len(models.configs))
	}
}

func TestGeneratorRejectsEmptyResponse(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse("   "), nil)

	g := newGenerator(models, Options{}, zap.NewNop())

	if _, err := g.Generate(context.Background(), ai.Request{Prompt: "msg"}); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestGeneratorEmbedRequestsFixedDimensions(t *testing.T) {
	models := &fakeModels{
		embedResp: &genai.EmbedContentResponse{
			Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.1, 0.2, 0.3}}},
		},
	}

	g := newGenerator(models, Options{}, zap.NewNop())

	vector, err := g.Embed(context.Background(), "Skills: Go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(vector) != 3 {
		t.Fatalf("unexpected vector: %v", vector)
	}

	if models.embedModel != defaultEmbeddingModel {
		t.Fatalf("unexpected embedding model %q", models.embedModel)
	}

	if dims := models.embedConfig.OutputDimensionality; dims == nil || *dims != ai.EmbeddingDimensions {
		t.Fatalf("expected output dimensionality %d", ai.EmbeddingDimensions)
	}
}

func TestQuotaDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message string
		expect  time.Duration
	}{
		{message: "retry after 60 seconds", expect: 60 * time.Second},
		{message: "Please retry in 2.5s.", expect: 2500 * time.Millisecond},
		{message: "quota exhausted", expect: 0},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			t.Parallel()
			if got := quotaDelay(tt.message); got != tt.expect {
				t.Fatalf("expected %s, got %s", tt.expect, got)
			}
		})
	}
}
