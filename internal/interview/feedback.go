package interview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/career-twin/internal/ai"
	"go.uber.org/zap"
)

const (
	feedbackTemperature = 0.7
	feedbackMaxTokens   = 2000
	strengthThreshold   = 70.0
)

type feedbackPayload struct {
	Strengths       []string            `json:"strengths"`
	Weaknesses      []string            `json:"weaknesses"`
	SkillGaps       []string            `json:"skill_gaps"`
	Recommendations []string            `json:"recommendations"`
	Roadmap         map[string][]string `json:"improvement_roadmap"`
}

// Synthesizer turns an evaluated transcript into a feedback report.
type Synthesizer struct {
	generator ai.Generator
	timeout   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewSynthesizer(generator ai.Generator, timeout time.Duration, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{
		generator: generator,
		timeout:   callTimeout(timeout),
		logger:    logger.With(zap.String("component", "feedback")),
		now:       time.Now,
	}
}

// Synthesize always returns a report. When the model response is unusable the
// report is derived from the evaluation by fixed rules.
func (s *Synthesizer) Synthesize(ctx context.Context, candidateID, role string, answers []Answer, evaluation Evaluation, profile *ResumeProfile) *Report {
	report := &Report{
		CandidateID: candidateID,
		Role:        role,
		Timestamp:   s.now(),
		Evaluation:  evaluation,
	}

	prompt := render(feedbackTemplate, map[string]string{
		"ROLE":          role,
		"OVERALL":       formatScore(evaluation.Overall),
		"COMMUNICATION": formatScore(evaluation.Communication),
		"TECHNICAL":     formatScore(evaluation.Technical),
		"CONFIDENCE":    formatScore(evaluation.Confidence),
		"RELEVANCE":     formatScore(evaluation.Relevance),
		"SKILLS":        strings.Join(profile.TopSkills(15), ", "),
		"TRANSCRIPT":    Transcript(answers),
	})

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.generator.Generate(callCtx, ai.Request{
		Prompt:      prompt,
		System:      feedbackSystem,
		Temperature: feedbackTemperature,
		MaxTokens:   feedbackMaxTokens,
	})
	if err != nil {
		s.logger.Warn("feedback generation failed, using rule-based report", zap.Error(err))
		applyFallback(report)
		return report
	}

	var payload feedbackPayload
	if err := ai.Decode(raw, &payload); err != nil {
		s.logger.Warn("feedback response unusable, using rule-based report", zap.Error(err))
		applyFallback(report)
		return report
	}

	report.Strengths = nonNil(payload.Strengths)
	report.Weaknesses = nonNil(payload.Weaknesses)
	report.SkillGaps = nonNil(payload.SkillGaps)
	report.Recommendations = nonNil(payload.Recommendations)
	report.Roadmap = payload.Roadmap
	if report.Roadmap == nil {
		report.Roadmap = map[string][]string{}
	}

	return report
}

// Transcript renders answers as "Q: ...\nA: ..." blocks separated by a blank line.
func Transcript(answers []Answer) string {
	blocks := make([]string, 0, len(answers))
	for _, a := range answers {
		blocks = append(blocks, "Q: "+a.Question+"\nA: "+a.Text)
	}
	return strings.Join(blocks, "\n\n")
}

func applyFallback(report *Report) {
	var strengths, weaknesses []string

	axes := []struct {
		score    float64
		strength string
		weakness string
	}{
		{report.Evaluation.Communication, "Clear and articulate communication", "Need to improve communication clarity"},
		{report.Evaluation.Technical, "Strong technical knowledge", "Need to strengthen technical fundamentals"},
		{report.Evaluation.Confidence, "Confident presentation", "Need to build more confidence in responses"},
	}
	for _, axis := range axes {
		if axis.score >= strengthThreshold {
			strengths = append(strengths, axis.strength)
		} else {
			weaknesses = append(weaknesses, axis.weakness)
		}
	}

	if len(strengths) == 0 {
		strengths = []string{"Shows potential for growth"}
	}
	if len(weaknesses) == 0 {
		weaknesses = []string{"Continue practicing interview skills"}
	}

	report.Strengths = strengths
	report.Weaknesses = weaknesses
	report.SkillGaps = []string{"Practice more technical interviews", "Study role-specific concepts"}
	report.Recommendations = []string{
		"Practice mock interviews regularly",
		"Review technical concepts for the role",
		"Work on communication skills",
	}
	report.Roadmap = map[string][]string{
		"week_1":   {"Daily interview practice", "Review technical concepts"},
		"week_2_3": {"Mock interviews with peers", "Build portfolio projects"},
		"month_1":  {"Apply learnings", "Track improvement"},
	}
}

// CompareSessions relates current to the most recent of previous, which is ordered oldest first.
func CompareSessions(current *Report, previous []*Report) Comparison {
	if len(previous) == 0 {
		return Comparison{IsFirst: true}
	}

	prev := previous[len(previous)-1].Evaluation.Overall
	cur := current.Evaluation.Overall
	improvement := cur - prev

	percent := 0.0
	if prev > 0 {
		percent = round2(improvement / prev * 100)
	}

	trend := TrendStable
	switch {
	case improvement > 0:
		trend = TrendImproving
	case improvement < 0:
		trend = TrendDeclining
	}

	return Comparison{
		PreviousScore:      prev,
		CurrentScore:       cur,
		Improvement:        round2(improvement),
		ImprovementPercent: percent,
		Trend:              trend,
	}
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
