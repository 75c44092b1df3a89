package interview_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spigell/career-twin/internal/ai"
	"github.com/spigell/career-twin/internal/interview"
	"github.com/spigell/career-twin/internal/resume"
	"github.com/spigell/career-twin/internal/store"
	"go.uber.org/zap"
)

const (
	resumeReply = `{"name":"Jane Doe","skills":["Python","SQL"],"experience":[{"title":"Analyst","description":"Reports"}],"projects":[],"education":[]}`
	hrReply     = `[{"question":"Why data?","difficulty":"easy"}]`
	techReply   = `[{"question":"Explain GROUP BY","difficulty":"medium"},{"question":"What is an index?","difficulty":"hard"}]`
	behReply    = `[{"question":"Describe a conflict","difficulty":"medium"}]`
)

// fakeGenerator routes prompts to canned replies by substring. Evaluation and
// feedback requests fail unless a reply is set, exercising the fallbacks.
type fakeGenerator struct {
	mu         sync.Mutex
	evaluation string
	resume     string
}

func (g *fakeGenerator) Generate(_ context.Context, req ai.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case strings.Contains(req.Prompt, "Parse this resume"):
		if strings.Contains(req.Prompt, "Bob") {
			return `{"name":"Bob","skills":["Python","SQL","Excel"]}`, nil
		}
		return g.resume, nil
	case strings.Contains(req.Prompt, "HR interview questions"):
		return hrReply, nil
	case strings.Contains(req.Prompt, "technical interview questions"):
		return techReply, nil
	case strings.Contains(req.Prompt, "behavioral (STAR method)"):
		return behReply, nil
	case strings.Contains(req.Prompt, "Evaluate this interview answer") && g.evaluation != "":
		return g.evaluation, nil
	}
	return "", errors.New("service unavailable")
}

type fixture struct {
	pipeline *interview.Pipeline
	gen      *fakeGenerator
	log      *store.SQLiteLog
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	log, err := store.OpenSQLiteLog(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })

	gen := &fakeGenerator{resume: resumeReply}
	return fixture{pipeline: newPipeline(t, gen, store.NewMemory(), log), gen: gen, log: log}
}

func newPipeline(t *testing.T, gen ai.Generator, st interview.Store, log interview.SessionLog) *interview.Pipeline {
	t.Helper()

	p, err := interview.New(interview.Config{
		Counts: interview.Counts{HR: 1, Technical: 2, Behavioral: 1},
	}, interview.Deps{
		Store:     st,
		Log:       log,
		Index:     store.NewMemoryIndex(),
		Generator: gen,
		Embedder:  ai.NewHashEmbedder(),
		Extractor: resume.Extractor{},
		Parser:    resume.NewParser(gen, 0, zap.NewNop()),
		Archive:   resume.NewDirArchive(t.TempDir()),
		Logger:    zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func createProfile(t *testing.T, p *interview.Pipeline, text string) *interview.ResumeProfile {
	t.Helper()

	profile, err := p.CreateProfile(context.Background(), interview.ProfileInput{
		TargetRoles: "Data Analyst, ML Engineer ,",
		Filename:    "cv.txt",
		Data:        []byte(text),
	})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return profile
}

func TestPipelineEndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	p := f.pipeline

	profile := createProfile(t, p, "Jane Doe\nAnalyst")
	if profile.CandidateID == "" || profile.Name != "Jane Doe" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if len(profile.TargetRoles) != 2 || profile.TargetRoles[1] != "ML Engineer" {
		t.Fatalf("unexpected target roles: %v", profile.TargetRoles)
	}

	session, err := p.StartInterview(ctx, profile.CandidateID, "Data Analyst", interview.Counts{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(session.Questions) != 4 || session.Status != interview.StatusInProgress {
		t.Fatalf("unexpected session: %+v", session)
	}
	wantOrder := []interview.Category{interview.CategoryHR, interview.CategoryTechnical, interview.CategoryTechnical, interview.CategoryBehavioral}
	for i, q := range session.Questions {
		if q.Category != wantOrder[i] {
			t.Fatalf("question %d: expected %s, got %s", i, wantOrder[i], q.Category)
		}
	}

	progress, err := p.SubmitAnswer(ctx, session.ID, session.Questions[1].ID, "GROUP BY aggregates rows")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if progress.Answered != 1 || progress.Total != 4 || progress.AllAnswered {
		t.Fatalf("unexpected progress: %+v", progress)
	}

	followUp, err := p.FollowUp(ctx, session.ID, session.Questions[1].ID)
	if err != nil {
		t.Fatalf("follow-up: %v", err)
	}
	if followUp.Category != interview.CategoryFollowUp || followUp.Text == "" {
		t.Fatalf("unexpected follow-up: %+v", followUp)
	}

	report, err := p.CompleteInterview(ctx, session.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	ev := report.Evaluation
	if ev.Overall < 0 || ev.Overall > 100 {
		t.Fatalf("overall out of range: %v", ev.Overall)
	}
	if ev.Overall != 50 {
		t.Fatalf("failed evaluation should score neutral 50, got %v", ev.Overall)
	}
	if len(report.Strengths) == 0 && len(report.Weaknesses) == 0 {
		t.Fatalf("report should carry strengths or weaknesses: %+v", report)
	}
	if report.Readiness < ev.Overall || report.Readiness > 100 {
		t.Fatalf("readiness %v outside [overall, 100]", report.Readiness)
	}
	if report.Comparison == nil || !report.Comparison.IsFirst {
		t.Fatalf("first report should be marked first: %+v", report.Comparison)
	}

	completed, err := p.Session(ctx, session.ID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if completed.Status != interview.StatusCompleted || completed.CompletedAt == nil {
		t.Fatalf("session not completed: %+v", completed)
	}

	again, err := p.CompleteInterview(ctx, session.ID)
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if !again.Timestamp.Equal(report.Timestamp) || again.Evaluation != report.Evaluation {
		t.Fatalf("second completion should return the stored report")
	}

	still, _ := p.Session(ctx, session.ID)
	if !still.CompletedAt.Equal(*completed.CompletedAt) {
		t.Fatalf("second completion changed the completion time")
	}

	if _, err := p.SubmitAnswer(ctx, session.ID, session.Questions[0].ID, "late"); !errors.Is(err, interview.ErrSessionCompleted) {
		t.Fatalf("expected ErrSessionCompleted, got %v", err)
	}

	record, found, err := f.log.LoadSessionRecord(ctx, session.ID)
	if err != nil || !found {
		t.Fatalf("durable record missing: found=%v err=%v", found, err)
	}
	if record.Session.Status != interview.StatusCompleted || record.Report.Evaluation != report.Evaluation {
		t.Fatalf("unexpected durable record: %+v", record)
	}
}

func TestPipelineComparesAndTracksProgress(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	p := f.pipeline

	profile := createProfile(t, p, "Jane Doe")

	run := func(role, evaluation string) *interview.Report {
		t.Helper()

		f.gen.mu.Lock()
		f.gen.evaluation = evaluation
		f.gen.mu.Unlock()

		session, err := p.StartInterview(ctx, profile.CandidateID, role, interview.Counts{})
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if _, err := p.SubmitAnswer(ctx, session.ID, session.Questions[0].ID, "answer"); err != nil {
			t.Fatalf("answer: %v", err)
		}
		report, err := p.CompleteInterview(ctx, session.ID)
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		return report
	}

	run("Data Analyst", `{"communication_clarity":60,"technical_accuracy":60,"confidence":60,"relevance":60}`)
	second := run("ML Engineer", `{"communication_clarity":75,"technical_accuracy":75,"confidence":75,"relevance":75}`)

	cmp := second.Comparison
	if cmp == nil || cmp.IsFirst || cmp.Improvement != 15 || cmp.ImprovementPercent != 25 || cmp.Trend != interview.TrendImproving {
		t.Fatalf("unexpected comparison: %+v", cmp)
	}

	progress, err := p.Progress(ctx, profile.CandidateID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.TotalSessions != 2 || progress.CurrentReadiness != 67.5 {
		t.Fatalf("unexpected progress: %+v", progress)
	}
	if len(progress.RolesPracticed) != 2 || progress.RolesPracticed[0] != "Data Analyst" {
		t.Fatalf("unexpected roles: %v", progress.RolesPracticed)
	}
}

func TestPipelineFeedbackFallsBackToLog(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	profile := createProfile(t, f.pipeline, "Jane Doe")
	session, err := f.pipeline.StartInterview(ctx, profile.CandidateID, "Data Analyst", interview.Counts{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.pipeline.SubmitAnswer(ctx, session.ID, session.Questions[0].ID, "answer"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	report, err := f.pipeline.CompleteInterview(ctx, session.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	restarted := newPipeline(t, f.gen, store.NewMemory(), f.log)

	got, err := restarted.Feedback(ctx, session.ID)
	if err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if got.SessionID != session.ID || got.Evaluation != report.Evaluation {
		t.Fatalf("unexpected report from log: %+v", got)
	}

	if _, err := restarted.Feedback(ctx, "missing"); !errors.Is(err, interview.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPipelineErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := newFixture(t).pipeline
	profile := createProfile(t, p, "Jane Doe")

	session, err := p.StartInterview(ctx, profile.CandidateID, "Data Analyst", interview.Counts{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{
			name: "disallowed extension",
			call: func() error {
				_, err := p.CreateProfile(ctx, interview.ProfileInput{Filename: "cv.exe", Data: []byte("x")})
				return err
			},
			wantErr: interview.ErrInvalidInput,
		},
		{
			name: "nothing to extract",
			call: func() error {
				_, err := p.CreateProfile(ctx, interview.ProfileInput{Filename: "cv.txt", Data: []byte("   ")})
				return err
			},
			wantErr: interview.ErrExtraction,
		},
		{
			name:    "unknown profile",
			call:    func() error { _, err := p.Profile(ctx, "missing"); return err },
			wantErr: interview.ErrNotFound,
		},
		{
			name: "start for unknown candidate",
			call: func() error {
				_, err := p.StartInterview(ctx, "missing", "Data Analyst", interview.Counts{})
				return err
			},
			wantErr: interview.ErrNotFound,
		},
		{
			name: "start without role",
			call: func() error {
				_, err := p.StartInterview(ctx, profile.CandidateID, " ", interview.Counts{})
				return err
			},
			wantErr: interview.ErrInvalidInput,
		},
		{
			name: "answer unknown question",
			call: func() error {
				_, err := p.SubmitAnswer(ctx, session.ID, "missing", "text")
				return err
			},
			wantErr: interview.ErrNotFound,
		},
		{
			name: "answer unknown session",
			call: func() error {
				_, err := p.SubmitAnswer(ctx, "missing", session.Questions[0].ID, "text")
				return err
			},
			wantErr: interview.ErrNotFound,
		},
		{
			name: "follow-up before answer",
			call: func() error {
				_, err := p.FollowUp(ctx, session.ID, session.Questions[0].ID)
				return err
			},
			wantErr: interview.ErrInvalidInput,
		},
		{
			name:    "complete without answers",
			call:    func() error { _, err := p.CompleteInterview(ctx, session.ID); return err },
			wantErr: interview.ErrNoAnswers,
		},
		{
			name:    "complete unknown session",
			call:    func() error { _, err := p.CompleteInterview(ctx, "missing"); return err },
			wantErr: interview.ErrNotFound,
		},
		{
			name:    "progress for unknown candidate",
			call:    func() error { _, err := p.Progress(ctx, "missing"); return err },
			wantErr: interview.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	unchanged, _ := p.Session(ctx, session.ID)
	if len(unchanged.Answers) != 0 || unchanged.Status != interview.StatusInProgress {
		t.Fatalf("failed calls mutated the session: %+v", unchanged)
	}
}

func TestPipelineSimilarProfiles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := newFixture(t).pipeline

	jane := createProfile(t, p, "Jane Doe")
	bob := createProfile(t, p, "Bob")

	similar, err := p.SimilarProfiles(ctx, jane.CandidateID, 5)
	if err != nil {
		t.Fatalf("similar: %v", err)
	}
	if len(similar) != 1 || similar[0] != bob.CandidateID {
		t.Fatalf("expected only bob, got %v", similar)
	}
}

func TestPipelineRoles(t *testing.T) {
	t.Parallel()

	p := newFixture(t).pipeline
	roles := p.Roles()
	if len(roles) == 0 || roles[0] != "Software Engineer" {
		t.Fatalf("unexpected roles: %v", roles)
	}

	roles[0] = "changed"
	if p.Roles()[0] != "Software Engineer" {
		t.Fatalf("roles catalog must not be shared")
	}
}
