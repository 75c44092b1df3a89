package interview

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spigell/career-twin/internal/ai"
	"github.com/spigell/career-twin/internal/logger"
	"go.uber.org/zap"
)

const (
	DefaultMaxUploadSize = 10 << 20
	defaultSimilarCount  = 5
	unknownName          = "Unknown"
)

// DefaultAllowedExtensions lists the resume formats accepted on upload.
var DefaultAllowedExtensions = []string{".pdf", ".txt", ".docx"}

var errAlreadyCompleted = errors.New("session already completed")

type Config struct {
	Counts            Counts
	CallTimeout       time.Duration
	MaxUploadSize     int64
	AllowedExtensions []string
}

// Deps are the collaborators of the pipeline. Log, Index, Embedder and Archive are optional.
type Deps struct {
	Store     Store
	Log       SessionLog
	Index     ProfileIndex
	Generator ai.Generator
	Embedder  ai.Embedder
	Extractor TextExtractor
	Parser    ResumeParser
	Archive   ResumeArchive
	Logger    *zap.Logger
}

// Pipeline drives a candidate from resume upload to feedback and progress.
type Pipeline struct {
	cfg         Config
	store       Store
	records     SessionLog
	index       ProfileIndex
	embedder    ai.Embedder
	extractor   TextExtractor
	parser      ResumeParser
	archive     ResumeArchive
	questions   *QuestionGenerator
	evaluator   *Evaluator
	synthesizer *Synthesizer
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if deps.Extractor == nil || deps.Parser == nil {
		return nil, errors.New("resume extractor and parser are required")
	}

	if cfg.Counts == (Counts{}) {
		cfg.Counts = DefaultCounts
	}
	cfg.CallTimeout = callTimeout(cfg.CallTimeout)
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = DefaultAllowedExtensions
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Pipeline{
		cfg:         cfg,
		store:       deps.Store,
		records:     deps.Log,
		index:       deps.Index,
		embedder:    deps.Embedder,
		extractor:   deps.Extractor,
		parser:      deps.Parser,
		archive:     deps.Archive,
		questions:   NewQuestionGenerator(deps.Generator, cfg.CallTimeout, log),
		evaluator:   NewEvaluator(deps.Generator, cfg.CallTimeout, log),
		synthesizer: NewSynthesizer(deps.Generator, cfg.CallTimeout, log),
		logger:      log,
		now:         time.Now,
		newID:       uuid.NewString,
	}, nil
}

// ProfileInput is a resume upload.
type ProfileInput struct {
	Name        string
	TargetRoles string
	Filename    string
	Data        []byte
}

// CreateProfile extracts, parses and indexes a resume. The profile becomes
// visible only once every step has finished.
func (p *Pipeline) CreateProfile(ctx context.Context, in ProfileInput) (*ResumeProfile, error) {
	if err := p.validateUpload(in.Filename, in.Data); err != nil {
		return nil, err
	}

	candidateID := p.newID()
	log := logger.ForSession(p.logger, "profile", "", candidateID)

	text, err := p.extractor.Extract(in.Filename, in.Data)
	if err != nil {
		return nil, err
	}
	log.Debug("resume text extracted", zap.Int("chars", len(text)))

	profile, err := p.parser.Parse(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("parse resume: %w", err)
	}

	profile.CandidateID = candidateID
	profile.RawText = text
	profile.CreatedAt = p.now()
	profile.TargetRoles = splitRoles(in.TargetRoles)
	profile.Name = firstNonEmpty(in.Name, profile.Name, unknownName)

	if p.archive != nil {
		if path, err := p.archive.Save(candidateID, filepath.Base(in.Filename), in.Data); err != nil {
			log.Warn("failed to archive resume", zap.Error(err))
		} else {
			log.Debug("resume archived", zap.String("path", path))
		}
	}

	p.indexProfile(ctx, log, profile)

	if err := p.store.PutProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("store profile: %w", err)
	}

	log.Info("profile created",
		zap.Int("skills", len(profile.Skills)),
		zap.Strings("target_roles", profile.TargetRoles),
	)

	return profile, nil
}

func (p *Pipeline) validateUpload(filename string, data []byte) error {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(p.cfg.AllowedExtensions, ext) {
		return fmt.Errorf("%w: file type %q is not allowed (allowed: %s)",
			ErrInvalidInput, ext, strings.Join(p.cfg.AllowedExtensions, ", "))
	}

	if int64(len(data)) > p.cfg.MaxUploadSize {
		return fmt.Errorf("%w: file is %d bytes, limit is %d", ErrInvalidInput, len(data), p.cfg.MaxUploadSize)
	}

	if len(data) == 0 {
		return fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}

	return nil
}

func (p *Pipeline) indexProfile(ctx context.Context, log *zap.Logger, profile *ResumeProfile) {
	if p.index == nil || p.embedder == nil {
		return
	}

	vector, err := p.embedder.Embed(ctx, profile.EmbeddingText())
	if err != nil {
		log.Warn("failed to embed profile", zap.Error(err))
		return
	}

	metadata := map[string]string{
		"name":   profile.Name,
		"skills": strings.Join(profile.Skills, ", "),
		"roles":  strings.Join(profile.TargetRoles, ", "),
	}

	if err := p.index.Upsert(ctx, profile.CandidateID, vector, metadata); err != nil {
		log.Warn("failed to index profile", zap.Error(err))
	}
}

func (p *Pipeline) Profile(ctx context.Context, candidateID string) (*ResumeProfile, error) {
	return p.store.Profile(ctx, candidateID)
}

// SimilarProfiles returns up to k candidate ids closest to the candidate, excluding itself.
func (p *Pipeline) SimilarProfiles(ctx context.Context, candidateID string, k int) ([]string, error) {
	profile, err := p.store.Profile(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	if k <= 0 {
		k = defaultSimilarCount
	}

	if p.index == nil || p.embedder == nil {
		return []string{}, nil
	}

	vector, err := p.embedder.Embed(ctx, profile.EmbeddingText())
	if err != nil {
		return nil, fmt.Errorf("embed profile: %w", err)
	}

	ids, err := p.index.Query(ctx, vector, k+1)
	if err != nil {
		return nil, fmt.Errorf("query profile index: %w", err)
	}

	similar := make([]string, 0, k)
	for _, id := range ids {
		if id == candidateID {
			continue
		}
		similar = append(similar, id)
		if len(similar) == k {
			break
		}
	}

	return similar, nil
}

// StartInterview generates questions for the role and publishes a new session.
// A zero counts value uses the configured defaults.
func (p *Pipeline) StartInterview(ctx context.Context, candidateID, role string, counts Counts) (*Session, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return nil, fmt.Errorf("%w: role is required", ErrInvalidInput)
	}
	if counts.HR < 0 || counts.Technical < 0 || counts.Behavioral < 0 {
		return nil, fmt.Errorf("%w: question counts must not be negative", ErrInvalidInput)
	}
	if counts == (Counts{}) {
		counts = p.cfg.Counts
	}

	profile, err := p.store.Profile(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:          p.newID(),
		CandidateID: candidateID,
		Role:        role,
		Answers:     []Answer{},
		Status:      StatusInProgress,
	}
	log := logger.ForSession(p.logger, "questions", session.ID, candidateID)

	session.Questions = p.questions.Generate(ctx, role, profile, counts)
	session.StartedAt = p.now()

	if err := p.store.PutSession(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	log.Info("interview started", zap.String("role", role), zap.Int("questions", len(session.Questions)))

	return session, nil
}

func (p *Pipeline) Session(ctx context.Context, sessionID string) (*Session, error) {
	return p.store.Session(ctx, sessionID)
}

// SubmitAnswer records the answer to one of the session's questions.
func (p *Pipeline) SubmitAnswer(ctx context.Context, sessionID, questionID, text string) (AnswerProgress, error) {
	var progress AnswerProgress

	session, err := p.store.UpdateSession(ctx, sessionID, func(s *Session) error {
		var err error
		progress, err = submitAnswer(s, questionID, text, p.now())
		return err
	})
	if err != nil {
		return AnswerProgress{}, err
	}

	logger.ForSession(p.logger, "answers", sessionID, session.CandidateID).Debug("answer recorded",
		zap.String("question_id", questionID),
		zap.Int("answered", progress.Answered),
		zap.Int("total", progress.Total),
	)

	return progress, nil
}

// FollowUp generates a probing question about an answered question. The session is not changed.
func (p *Pipeline) FollowUp(ctx context.Context, sessionID, questionID string) (Question, error) {
	session, err := p.store.Session(ctx, sessionID)
	if err != nil {
		return Question{}, err
	}

	question, ok := session.Question(questionID)
	if !ok {
		return Question{}, fmt.Errorf("question %q in session %q: %w", questionID, sessionID, ErrNotFound)
	}

	answer, ok := session.Answer(questionID)
	if !ok {
		return Question{}, fmt.Errorf("%w: question %q has no answer yet", ErrInvalidInput, questionID)
	}

	return p.questions.FollowUp(ctx, session.Role, question, answer), nil
}

// CompleteInterview scores the session, synthesizes feedback and marks the session
// completed. Completing an already completed session returns the stored report.
func (p *Pipeline) CompleteInterview(ctx context.Context, sessionID string) (*Report, error) {
	var report *Report

	session, err := p.store.UpdateSession(ctx, sessionID, func(s *Session) error {
		if s.Status == StatusCompleted {
			return errAlreadyCompleted
		}
		if len(s.Answers) == 0 {
			return ErrNoAnswers
		}

		r, err := p.assess(ctx, s)
		if err != nil {
			return err
		}

		completeSession(s, p.now())
		r.SessionID = s.ID

		if err := p.store.PutReport(ctx, r); err != nil {
			return fmt.Errorf("store report: %w", err)
		}

		report = r
		return nil
	})

	if errors.Is(err, errAlreadyCompleted) {
		return p.Feedback(ctx, sessionID)
	}
	if err != nil {
		return nil, err
	}

	log := logger.ForSession(p.logger, "completion", session.ID, session.CandidateID)

	if p.records != nil {
		if err := p.records.AppendSessionRecord(ctx, session.ID, SessionRecord{Session: session, Report: report.Clone()}); err != nil {
			log.Error("failed to append session record", zap.Error(err))
		}
	}

	log.Info("interview completed",
		zap.Int("answers", len(session.Answers)),
		zap.Float64("overall", report.Evaluation.Overall),
		zap.Float64("readiness", report.Readiness),
	)

	return report.Clone(), nil
}

// assess runs evaluation and feedback for a session that is about to be completed.
func (p *Pipeline) assess(ctx context.Context, s *Session) (*Report, error) {
	log := logger.ForSession(p.logger, "evaluation", s.ID, s.CandidateID)

	profile, err := p.store.Profile(ctx, s.CandidateID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	evaluation := p.evaluator.ScoreSession(ctx, s.Answers, profile, s.Role)
	readiness := Readiness(evaluation, profile, s.Role)
	log.Debug("session scored", zap.Float64("overall", evaluation.Overall), zap.Float64("readiness", readiness))

	report := p.synthesizer.Synthesize(ctx, s.CandidateID, s.Role, s.Answers, evaluation, profile)
	report.Readiness = readiness

	previous, err := p.previousReports(ctx, s.CandidateID, s.ID)
	if err != nil {
		return nil, err
	}
	comparison := CompareSessions(report, previous)
	report.Comparison = &comparison

	return report, nil
}

// previousReports returns the candidate's other reports, oldest first.
func (p *Pipeline) previousReports(ctx context.Context, candidateID, exclude string) ([]*Report, error) {
	sessions, err := p.store.CandidateSessions(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("load candidate sessions: %w", err)
	}

	reports := make([]*Report, 0, len(sessions))
	for _, s := range sessions {
		if s.ID == exclude || s.Status != StatusCompleted {
			continue
		}
		r, err := p.store.Report(ctx, s.ID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Timestamp.Before(reports[j].Timestamp)
	})

	return reports, nil
}

// Feedback returns the stored report of a session, falling back to the durable log.
func (p *Pipeline) Feedback(ctx context.Context, sessionID string) (*Report, error) {
	report, err := p.store.Report(ctx, sessionID)
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, ErrNotFound) || p.records == nil {
		return nil, err
	}

	record, found, lerr := p.records.LoadSessionRecord(ctx, sessionID)
	if lerr != nil {
		return nil, fmt.Errorf("load session record: %w", lerr)
	}
	if !found || record.Report == nil {
		return nil, err
	}

	return record.Report, nil
}

// Progress summarizes the candidate's completed sessions.
func (p *Pipeline) Progress(ctx context.Context, candidateID string) (Progress, error) {
	if _, err := p.store.Profile(ctx, candidateID); err != nil {
		return Progress{}, err
	}

	sessions, err := p.store.CandidateSessions(ctx, candidateID)
	if err != nil {
		return Progress{}, fmt.Errorf("load candidate sessions: %w", err)
	}

	reports := make(map[string]*Report, len(sessions))
	for _, s := range sessions {
		if s.Status != StatusCompleted {
			continue
		}
		r, err := p.Feedback(ctx, s.ID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return Progress{}, err
		}
		reports[s.ID] = r
	}

	return BuildProgress(candidateID, sessions, reports), nil
}

// Roles returns the role catalog.
func (p *Pipeline) Roles() []string {
	return slices.Clone(Roles)
}

func splitRoles(raw string) []string {
	roles := []string{}
	for _, role := range strings.Split(raw, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
