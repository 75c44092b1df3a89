package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/career-twin/internal/ai"
	"github.com/spigell/career-twin/internal/ai/gemini"
	"github.com/spigell/career-twin/internal/ai/openai"
	"github.com/spigell/career-twin/internal/interview"
	"github.com/spigell/career-twin/internal/resume"
	"github.com/spigell/career-twin/internal/secrets"
	"github.com/spigell/career-twin/internal/store"
	"go.uber.org/zap"
)

const (
	providerGemini = "gemini"
	providerOpenAI = "openai"

	embeddingsAuto   = "auto"
	embeddingsGemini = "gemini"
	embeddingsHash   = "hash"
)

// closers releases whatever buildPipeline opened, in reverse order.
type closers []func() error

func (c closers) close(log *zap.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			log.Warn("closing resource", zap.Error(err))
		}
	}
}

func buildPipeline(ctx context.Context, config *Config, log *zap.Logger) (*interview.Pipeline, func(), error) {
	var opened closers
	fail := func(err error) (*interview.Pipeline, func(), error) {
		opened.close(log)
		return nil, nil, err
	}

	generator, geminiClient, err := buildGenerator(ctx, config.AI, log)
	if err != nil {
		return fail(err)
	}

	embedder, err := buildEmbedder(ctx, config.AI, geminiClient, log)
	if err != nil {
		return fail(err)
	}

	index, closeIndex, err := buildIndex(config.Storage)
	if err != nil {
		return fail(err)
	}
	if closeIndex != nil {
		opened = append(opened, closeIndex)
	}

	records, closeLog, err := buildSessionLog(ctx, config.Storage)
	if err != nil {
		return fail(err)
	}
	if closeLog != nil {
		opened = append(opened, closeLog)
	}

	timeout := config.Interview.CallTimeout
	pipeline, err := interview.New(interview.Config{
		Counts:            config.Interview.Counts,
		CallTimeout:       timeout,
		MaxUploadSize:     config.Interview.MaxUploadSize,
		AllowedExtensions: config.Interview.AllowedExtensions,
	}, interview.Deps{
		Store:     store.NewMemory(),
		Log:       records,
		Index:     index,
		Generator: generator,
		Embedder:  embedder,
		Extractor: resume.Extractor{},
		Parser:    resume.NewParser(generator, timeout, log),
		Archive:   resume.NewDirArchive(config.Storage.ResumeDir),
		Logger:    log,
	})
	if err != nil {
		return fail(err)
	}

	log.Info("pipeline ready",
		zap.String("provider", config.AI.Provider),
		zap.String("index", config.Storage.Index),
		zap.String("session_log", config.Storage.SessionLog),
	)

	return pipeline, func() { opened.close(log) }, nil
}

// buildGenerator returns the configured generator. The Gemini client is also returned when
// it was created so the embedder can share it.
func buildGenerator(ctx context.Context, config *AIConfig, log *zap.Logger) (ai.Generator, *gemini.Generator, error) {
	switch strings.ToLower(config.Provider) {
	case providerGemini:
		client, err := newGeminiClient(ctx, config.Gemini, log)
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	case providerOpenAI, "":
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "openai api key",
			Value: config.OpenAI.APIKey,
			File:  config.OpenAI.APIKeyFile,
			Env:   "OPENAI_API_KEY",
		})
		if err != nil {
			return nil, nil, err
		}

		client, err := openai.New(apiKey, openai.Options{
			BaseURL:      config.OpenAI.BaseURL,
			Model:        config.OpenAI.Model,
			MaxRetries:   config.OpenAI.MaxRetries,
			Timeout:      config.OpenAI.Timeout,
			MaxLogLength: config.OpenAI.MaxLogLength,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown ai provider %q (expected %s or %s)", config.Provider, providerGemini, providerOpenAI)
	}
}

func newGeminiClient(ctx context.Context, config *GeminiConfig, log *zap.Logger) (*gemini.Generator, error) {
	apiKey, err := geminiKey(config)
	if err != nil {
		return nil, err
	}

	return gemini.NewGenerator(ctx, apiKey, gemini.Options{
		Model:          config.Model,
		EmbeddingModel: config.EmbeddingModel,
		MaxRetries:     config.MaxRetries,
		MaxLogLength:   config.MaxLogLength,
	}, log)
}

func geminiKey(config *GeminiConfig) (string, error) {
	return secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.APIKey,
		File:  config.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
}

func buildEmbedder(ctx context.Context, config *AIConfig, client *gemini.Generator, log *zap.Logger) (ai.Embedder, error) {
	mode := strings.ToLower(config.Embeddings)

	switch mode {
	case embeddingsHash:
		return ai.NewHashEmbedder(), nil
	case embeddingsGemini, embeddingsAuto, "":
		if client != nil {
			return client, nil
		}

		if _, err := geminiKey(config.Gemini); err != nil {
			if mode == embeddingsGemini {
				return nil, err
			}
			log.Info("no gemini key configured, profile embeddings use the hash embedder")
			return ai.NewHashEmbedder(), nil
		}

		return newGeminiClient(ctx, config.Gemini, log)
	default:
		return nil, fmt.Errorf("unknown embeddings mode %q (expected %s, %s or %s)", config.Embeddings, embeddingsAuto, embeddingsGemini, embeddingsHash)
	}
}

func buildIndex(config *StorageConfig) (interview.ProfileIndex, func() error, error) {
	switch strings.ToLower(config.Index) {
	case "memory", "":
		return store.NewMemoryIndex(), nil, nil
	case "pgvector":
		dsn, err := secrets.Load(secrets.Source{
			Name:  "postgres dsn",
			Value: config.Postgres.DSN,
			File:  config.Postgres.DSNFile,
			Env:   "DATABASE_URL",
		})
		if err != nil {
			return nil, nil, err
		}

		index, err := store.OpenPGVectorIndex(dsn, config.Collection)
		if err != nil {
			return nil, nil, err
		}
		return index, index.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown profile index %q (expected memory or pgvector)", config.Index)
	}
}

func buildSessionLog(ctx context.Context, config *StorageConfig) (interview.SessionLog, func() error, error) {
	switch strings.ToLower(config.SessionLog) {
	case "none":
		return nil, nil, nil
	case "sqlite", "":
		records, err := store.OpenSQLiteLog(config.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return records, records.Close, nil
	case "redis":
		password := ""
		if config.Redis.Password != "" || config.Redis.PasswordFile != "" {
			var err error
			password, err = secrets.Load(secrets.Source{
				Name:  "redis password",
				Value: config.Redis.Password,
				File:  config.Redis.PasswordFile,
			})
			if err != nil {
				return nil, nil, err
			}
		}

		records, err := store.NewRedisLog(ctx, store.RedisOptions{
			Addr:     config.Redis.Addr,
			Password: password,
			DB:       config.Redis.DB,
			Prefix:   config.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return records, records.Close, nil
	default:
		return nil, nil, errors.New("unknown session log " + config.SessionLog + " (expected sqlite, redis or none)")
	}
}
