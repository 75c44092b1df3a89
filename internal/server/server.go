// Package server exposes the interview pipeline over HTTP.
package server

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spigell/career-twin/internal/interview"
	"go.uber.org/zap"
)

// Service is the pipeline surface the handlers depend on.
type Service interface {
	CreateProfile(ctx context.Context, in interview.ProfileInput) (*interview.ResumeProfile, error)
	Profile(ctx context.Context, candidateID string) (*interview.ResumeProfile, error)
	SimilarProfiles(ctx context.Context, candidateID string, k int) ([]string, error)
	StartInterview(ctx context.Context, candidateID, role string, counts interview.Counts) (*interview.Session, error)
	SubmitAnswer(ctx context.Context, sessionID, questionID, text string) (interview.AnswerProgress, error)
	FollowUp(ctx context.Context, sessionID, questionID string) (interview.Question, error)
	CompleteInterview(ctx context.Context, sessionID string) (*interview.Report, error)
	Feedback(ctx context.Context, sessionID string) (*interview.Report, error)
	Progress(ctx context.Context, candidateID string) (interview.Progress, error)
	Roles() []string
}

type Config struct {
	AppName        string
	Version        string
	AllowedOrigins []string
	MaxUploadSize  int64
	RateLimit      int
	RateWindow     time.Duration
}

// New builds the fiber application with every route registered.
func New(cfg Config, svc Service, log *zap.Logger) *fiber.App {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "http"))

	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = interview.DefaultMaxUploadSize
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: true,
		// Parsed values outlive the request inside the pipeline's stores.
		Immutable: true,
		// Multipart framing on top of the largest accepted resume.
		BodyLimit:    int(cfg.MaxUploadSize) + 1<<20,
		ErrorHandler: errorHandler(log),
	})

	app.Use(requestLogger(log))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
	}))
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(healthcheck.New(healthcheck.Config{
		LivenessEndpoint: "/healthz",
	}))

	h := &handler{svc: svc, cfg: cfg, log: log}
	h.register(app)

	return app
}
