package server

import (
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/spigell/career-twin/internal/interview"
	"go.uber.org/zap"
)

type handler struct {
	svc Service
	cfg Config
	log *zap.Logger
}

func (h *handler) register(app *fiber.App) {
	app.Get("/", h.root)

	api := app.Group("/api", rateLimiter(h.cfg.RateLimit, h.cfg.RateWindow))

	api.Post("/profile/create", h.createProfile)
	api.Get("/profile/:id", h.profile)
	api.Get("/profile/:id/similar", h.similarProfiles)

	api.Post("/interview/start", h.startInterview)
	api.Post("/interview/answer", h.submitAnswer)
	api.Post("/interview/follow-up", h.followUp)
	api.Post("/interview/complete", h.completeInterview)

	api.Get("/feedback/:session_id", h.feedback)
	api.Get("/progress/:candidate_id", h.progress)
	api.Get("/roles", h.roles)
}

func (h *handler) root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"app":     h.cfg.AppName,
		"version": h.cfg.Version,
		"status":  "running",
	})
}

func (h *handler) createProfile(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return fmt.Errorf("%w: file is required", interview.ErrInvalidInput)
	}

	if file.Size > h.cfg.MaxUploadSize {
		return fmt.Errorf("%w: file is %d bytes, limit is %d", interview.ErrInvalidInput, file.Size, h.cfg.MaxUploadSize)
	}

	f, err := file.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.cfg.MaxUploadSize+1))
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	h.log.Debug("resume uploaded", zap.String("filename", file.Filename), zap.Int("bytes", len(data)))

	profile, err := h.svc.CreateProfile(c.UserContext(), interview.ProfileInput{
		Name:        c.FormValue("name"),
		TargetRoles: c.FormValue("target_roles"),
		Filename:    file.Filename,
		Data:        data,
	})
	if err != nil {
		return err
	}

	return success(c, fiber.StatusOK, "Profile created successfully", profile)
}

func (h *handler) profile(c *fiber.Ctx) error {
	profile, err := h.svc.Profile(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Profile found", profile)
}

func (h *handler) similarProfiles(c *fiber.Ctx) error {
	k := c.QueryInt("k", 5)
	ids, err := h.svc.SimilarProfiles(c.UserContext(), c.Params("id"), k)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Similar profiles", fiber.Map{"candidate_ids": ids})
}

type startRequest struct {
	CandidateID string `json:"candidate_id" form:"candidate_id"`
	Role        string `json:"role" form:"role"`
	HR          int    `json:"hr_count" form:"hr_count"`
	Technical   int    `json:"technical_count" form:"technical_count"`
	Behavioral  int    `json:"behavioral_count" form:"behavioral_count"`
}

func (h *handler) startInterview(c *fiber.Ctx) error {
	var req startRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.CandidateID) == "" {
		return fmt.Errorf("%w: candidate_id is required", interview.ErrInvalidInput)
	}

	session, err := h.svc.StartInterview(c.UserContext(), req.CandidateID, req.Role, interview.Counts{
		HR:         req.HR,
		Technical:  req.Technical,
		Behavioral: req.Behavioral,
	})
	if err != nil {
		return err
	}

	return success(c, fiber.StatusOK, "Interview started", fiber.Map{
		"session_id":      session.ID,
		"role":            session.Role,
		"questions":       session.Questions,
		"total_questions": len(session.Questions),
	})
}

type answerRequest struct {
	SessionID  string `json:"session_id" form:"session_id"`
	QuestionID string `json:"question_id" form:"question_id"`
	Answer     string `json:"answer" form:"answer"`
}

func (h *handler) submitAnswer(c *fiber.Ctx) error {
	var req answerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	progress, err := h.svc.SubmitAnswer(c.UserContext(), req.SessionID, req.QuestionID, req.Answer)
	if err != nil {
		return err
	}

	return success(c, fiber.StatusOK, "Answer submitted", progress)
}

func (h *handler) followUp(c *fiber.Ctx) error {
	var req answerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	question, err := h.svc.FollowUp(c.UserContext(), req.SessionID, req.QuestionID)
	if err != nil {
		return err
	}

	return success(c, fiber.StatusOK, "Follow-up generated", question)
}

type sessionRequest struct {
	SessionID string `json:"session_id" form:"session_id"`
}

func (h *handler) completeInterview(c *fiber.Ctx) error {
	var req sessionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	report, err := h.svc.CompleteInterview(c.UserContext(), req.SessionID)
	if err != nil {
		return err
	}

	return success(c, fiber.StatusOK, "Interview completed", report)
}

func (h *handler) feedback(c *fiber.Ctx) error {
	report, err := h.svc.Feedback(c.UserContext(), c.Params("session_id"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Feedback found", report)
}

func (h *handler) progress(c *fiber.Ctx) error {
	progress, err := h.svc.Progress(c.UserContext(), c.Params("candidate_id"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "Progress", progress)
}

func (h *handler) roles(c *fiber.Ctx) error {
	return success(c, fiber.StatusOK, "Roles", fiber.Map{"roles": h.svc.Roles()})
}

// parseBody accepts JSON, urlencoded and multipart bodies.
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fmt.Errorf("%w: %v", interview.ErrInvalidInput, err)
	}
	return nil
}
