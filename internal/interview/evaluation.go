package interview

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spigell/career-twin/internal/ai"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	evaluationTemperature = 0.3
	neutralScore          = 50.0

	weightCommunication = 0.25
	weightTechnical     = 0.35
	weightConfidence    = 0.20
	weightRelevance     = 0.20
)

var errMissingScore = errors.New("missing or non-numeric score")

// NeutralScores is the result for an answer whose evaluation could not be used.
var NeutralScores = Scores{
	Communication: neutralScore,
	Technical:     neutralScore,
	Confidence:    neutralScore,
	Relevance:     neutralScore,
}

// Evaluator scores answers with the generation collaborator.
type Evaluator struct {
	generator ai.Generator
	timeout   time.Duration
	logger    *zap.Logger
}

func NewEvaluator(generator ai.Generator, timeout time.Duration, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		generator: generator,
		timeout:   callTimeout(timeout),
		logger:    logger.With(zap.String("component", "evaluation")),
	}
}

// ScoreAnswer rates one answer on the four rubric axes, clamped to [0,100].
// Any failure yields NeutralScores.
func (e *Evaluator) ScoreAnswer(ctx context.Context, answer Answer, profile *ResumeProfile, role string) Scores {
	prompt := render(evaluationTemplate, map[string]string{
		"CATEGORY": string(answer.Category),
		"QUESTION": answer.Question,
		"ANSWER":   answer.Text,
		"ROLE":     role,
		"SKILLS":   strings.Join(profile.TopSkills(10), ", "),
	})

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.generator.Generate(callCtx, ai.Request{
		Prompt:      prompt,
		System:      evaluationSystem,
		Temperature: evaluationTemperature,
	})
	if err != nil {
		e.logger.Warn("answer evaluation failed, using neutral scores",
			zap.String("question_id", answer.QuestionID),
			zap.Error(err),
		)
		return NeutralScores
	}

	scores, err := parseScores(raw)
	if err != nil {
		e.logger.Warn("answer evaluation unusable, using neutral scores",
			zap.String("question_id", answer.QuestionID),
			zap.Error(err),
		)
		return NeutralScores
	}

	return scores
}

// ScoreSession scores every answer concurrently and aggregates them.
// An empty answer list scores zero on every axis.
func (e *Evaluator) ScoreSession(ctx context.Context, answers []Answer, profile *ResumeProfile, role string) Evaluation {
	if len(answers) == 0 {
		return Evaluation{}
	}

	scores := make([]Scores, len(answers))

	group, gctx := errgroup.WithContext(ctx)
	for i, answer := range answers {
		group.Go(func() error {
			scores[i] = e.ScoreAnswer(gctx, answer, profile, role)
			return nil
		})
	}
	_ = group.Wait()

	return AverageScores(scores)
}

// AverageScores averages the per-answer scores and derives the weighted overall score.
func AverageScores(scores []Scores) Evaluation {
	if len(scores) == 0 {
		return Evaluation{}
	}

	var sum Scores
	for _, s := range scores {
		sum.Communication += s.Communication
		sum.Technical += s.Technical
		sum.Confidence += s.Confidence
		sum.Relevance += s.Relevance
	}

	n := float64(len(scores))
	avg := Scores{
		Communication: sum.Communication / n,
		Technical:     sum.Technical / n,
		Confidence:    sum.Confidence / n,
		Relevance:     sum.Relevance / n,
	}

	overall := avg.Communication*weightCommunication +
		avg.Technical*weightTechnical +
		avg.Confidence*weightConfidence +
		avg.Relevance*weightRelevance

	return Evaluation{
		Communication: round2(avg.Communication),
		Technical:     round2(avg.Technical),
		Confidence:    round2(avg.Confidence),
		Relevance:     round2(avg.Relevance),
		Overall:       round2(overall),
	}
}

// Readiness blends the evaluation with skill overlap and experience into a score in [0,100].
func Readiness(evaluation Evaluation, profile *ResumeProfile, role string) float64 {
	var skills []string
	var experience int
	if profile != nil {
		skills = profile.Skills
		experience = len(profile.Experience)
	}

	experienceBonus := math.Min(5, float64(experience)*1.5)
	readiness := math.Min(100, evaluation.Overall+SkillBonus(skills, role)+experienceBonus)

	return round2(readiness)
}

// SkillBonus awards up to 10 points for the share of the role's required skills found
// as substrings of the candidate's skills, ignoring case.
func SkillBonus(candidateSkills []string, role string) float64 {
	required := RequiredSkills(role)
	if len(required) == 0 {
		return defaultSkillBonus
	}

	lowered := make([]string, len(candidateSkills))
	for i, s := range candidateSkills {
		lowered[i] = strings.ToLower(s)
	}

	matches := 0
	for _, req := range required {
		for _, skill := range lowered {
			if strings.Contains(skill, req) {
				matches++
				break
			}
		}
	}

	return round2(float64(matches) / float64(len(required)) * 10)
}

func parseScores(raw string) (Scores, error) {
	data, err := ai.ParseObject(raw)
	if err != nil {
		return Scores{}, err
	}

	values := make(map[string]float64, 4)
	for _, key := range []string{"communication_clarity", "technical_accuracy", "confidence", "relevance"} {
		v := ai.CoerceFloat(data[key])
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Scores{}, fmt.Errorf("%w: %s", errMissingScore, key)
		}
		values[key] = clamp(v, 0, 100)
	}

	return Scores{
		Communication: values["communication_clarity"],
		Technical:     values["technical_accuracy"],
		Confidence:    values["confidence"],
		Relevance:     values["relevance"],
	}, nil
}
