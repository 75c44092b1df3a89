package interview

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spigell/career-twin/internal/ai"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	questionTemperature = 0.8
	followUpTemperature = 0.7
	followUpFallback    = "Can you elaborate on that point?"
)

// cannedQuestions are used when a category's generation call cannot be parsed.
var cannedQuestions = map[Category]string{
	CategoryHR:         "Tell me about yourself",
	CategoryTechnical:  "Explain your most complex project",
	CategoryBehavioral: "Tell me about a time you faced conflict in a team",
}

type questionItem struct {
	Question   string `json:"question"`
	Difficulty string `json:"difficulty"`
}

// QuestionGenerator produces role and resume conditioned questions.
type QuestionGenerator struct {
	generator ai.Generator
	timeout   time.Duration
	logger    *zap.Logger
	newID     func() string
}

func NewQuestionGenerator(generator ai.Generator, timeout time.Duration, logger *zap.Logger) *QuestionGenerator {
	return &QuestionGenerator{
		generator: generator,
		timeout:   callTimeout(timeout),
		logger:    logger.With(zap.String("component", "questions")),
		newID:     uuid.NewString,
	}
}

// Generate issues one call per category concurrently and returns the questions
// ordered hr, technical, behavioral, each category truncated to its count.
// A category whose response cannot be used contributes one canned question.
func (g *QuestionGenerator) Generate(ctx context.Context, role string, profile *ResumeProfile, counts Counts) []Question {
	plan := []struct {
		category Category
		count    int
	}{
		{CategoryHR, counts.HR},
		{CategoryTechnical, counts.Technical},
		{CategoryBehavioral, counts.Behavioral},
	}

	background := candidateContext(role, profile)
	batches := make([][]Question, len(plan))

	group, gctx := errgroup.WithContext(ctx)
	for i, step := range plan {
		if step.count <= 0 {
			continue
		}
		group.Go(func() error {
			batches[i] = g.category(gctx, step.category, step.count, role, background, profile)
			return nil
		})
	}
	_ = group.Wait()

	questions := make([]Question, 0, counts.Total())
	for _, batch := range batches {
		questions = append(questions, batch...)
	}

	return questions
}

func (g *QuestionGenerator) category(ctx context.Context, category Category, count int, role, background string, profile *ResumeProfile) []Question {
	instruction, guidance := categoryPrompt(category, count, role, profile)
	prompt := render(questionsTemplate, map[string]string{
		"INSTRUCTION": instruction,
		"CONTEXT":     background,
		"GUIDANCE":    guidance,
	})

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.generator.Generate(callCtx, ai.Request{Prompt: prompt, Temperature: questionTemperature})
	if err != nil {
		g.logger.Warn("question generation failed, using canned question",
			zap.String("category", string(category)),
			zap.Error(err),
		)
		return []Question{g.canned(category)}
	}

	items, err := parseQuestionItems(raw)
	if err != nil {
		g.logger.Warn("question response unusable, using canned question",
			zap.String("category", string(category)),
			zap.Error(err),
		)
		return []Question{g.canned(category)}
	}

	if len(items) > count {
		items = items[:count]
	}

	questions := make([]Question, 0, len(items))
	for _, item := range items {
		questions = append(questions, Question{
			ID:         g.newID(),
			Text:       item.Question,
			Category:   category,
			Difficulty: ParseDifficulty(item.Difficulty),
		})
	}

	return questions
}

// FollowUp asks one probing question about an answer. It never fails.
func (g *QuestionGenerator) FollowUp(ctx context.Context, role string, question Question, answer Answer) Question {
	prompt := render(followUpTemplate, map[string]string{
		"ROLE":     role,
		"QUESTION": question.Text,
		"ANSWER":   answer.Text,
	})

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	followUp := Question{
		ID:         g.newID(),
		Text:       followUpFallback,
		Category:   CategoryFollowUp,
		Difficulty: DifficultyMedium,
	}

	raw, err := g.generator.Generate(callCtx, ai.Request{Prompt: prompt, Temperature: followUpTemperature})
	if err != nil {
		g.logger.Warn("follow-up generation failed, using fallback", zap.Error(err))
		return followUp
	}

	var item questionItem
	if err := ai.Decode(raw, &item); err != nil || strings.TrimSpace(item.Question) == "" {
		g.logger.Warn("follow-up response unusable, using fallback", zap.Error(err))
		return followUp
	}

	followUp.Text = strings.TrimSpace(item.Question)
	followUp.Difficulty = ParseDifficulty(item.Difficulty)
	return followUp
}

func (g *QuestionGenerator) canned(category Category) Question {
	return Question{
		ID:         g.newID(),
		Text:       cannedQuestions[category],
		Category:   category,
		Difficulty: DifficultyMedium,
	}
}

// parseQuestionItems accepts a bare array, an object wrapping it under "questions",
// or a single question object.
func parseQuestionItems(raw string) ([]questionItem, error) {
	var items []questionItem

	if obj, err := ai.ParseObject(raw); err == nil {
		if _, single := obj["question"]; single {
			var item questionItem
			if err := ai.Decode(raw, &item); err != nil {
				return nil, err
			}
			items = []questionItem{item}
		} else {
			var wrapped struct {
				Questions []questionItem `json:"questions"`
			}
			if err := ai.Decode(raw, &wrapped); err != nil {
				return nil, err
			}
			items = wrapped.Questions
		}
	} else if err := ai.Decode(raw, &items); err != nil {
		return nil, err
	}

	usable := items[:0]
	for _, item := range items {
		item.Question = strings.TrimSpace(item.Question)
		if item.Question != "" {
			usable = append(usable, item)
		}
	}

	if len(usable) == 0 {
		return nil, fmt.Errorf("%w: no questions in response", ai.ErrMalformed)
	}

	return usable, nil
}

func candidateContext(role string, profile *ResumeProfile) string {
	var skills []string
	var experience int
	var projects []string
	if profile != nil {
		skills = profile.Skills
		experience = len(profile.Experience)
		for _, p := range profile.Projects {
			if len(projects) == 3 {
				break
			}
			projects = append(projects, p.Text("name"))
		}
	}

	return strings.Join([]string{
		"Role: " + role,
		"Candidate Skills: " + strings.Join(skills, ", "),
		"Experience Level: " + strconv.Itoa(experience) + " positions",
		"Recent Projects: " + strings.Join(projects, ", "),
	}, "\n")
}

func categoryPrompt(category Category, count int, role string, profile *ResumeProfile) (string, string) {
	switch category {
	case CategoryTechnical:
		return fmt.Sprintf("Generate %d technical interview questions for a %s position.", count, role),
			fmt.Sprintf("Focus on technologies they know: %s\nMix difficulty levels.", strings.Join(profile.TopSkills(10), ", "))
	case CategoryBehavioral:
		return fmt.Sprintf("Generate %d behavioral (STAR method) interview questions for a %s position.", count, role),
			"Make them scenario-based and relevant to the role."
	default:
		return fmt.Sprintf("Generate %d HR interview questions for a %s position.", count, role),
			"Make questions relevant to their background."
	}
}
