package resume

import (
	"context"
	_ "embed"
	"regexp"
	"strings"
	"time"

	"github.com/spigell/career-twin/internal/ai"
	"github.com/spigell/career-twin/internal/interview"
	"github.com/spigell/career-twin/internal/utils"
	"go.uber.org/zap"
)

const parseTemperature = 0.3

var (
	//go:embed prompts/parse_system.md
	parseSystem string
	//go:embed prompts/parse.md
	parseTemplate string

	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`[\+]?[(]?[0-9]{1,4}[)]?[-\s\.]?[(]?[0-9]{1,4}[)]?[-\s\.]?[0-9]{1,4}[-\s\.]?[0-9]{1,9}`)
)

var _ interview.ResumeParser = (*Parser)(nil)

type parsedResume struct {
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Phone      string            `json:"phone"`
	Skills     []string          `json:"skills"`
	Experience []interview.Entry `json:"experience"`
	Education  []interview.Entry `json:"education"`
	Projects   []interview.Entry `json:"projects"`
	Summary    string            `json:"summary"`
}

// Parser structures resume text with the generator and falls back to
// pattern-based contact extraction when the response is unusable.
type Parser struct {
	generator ai.Generator
	timeout   time.Duration
	maxLogLen int
	logger    *zap.Logger
}

func NewParser(generator ai.Generator, timeout time.Duration, logger *zap.Logger) *Parser {
	if timeout <= 0 {
		timeout = interview.DefaultCallTimeout
	}
	return &Parser{
		generator: generator,
		timeout:   timeout,
		maxLogLen: 200,
		logger:    logger.With(zap.String("component", "resume")),
	}
}

// Parse never fails on model errors; they degrade to the fallback profile.
func (p *Parser) Parse(ctx context.Context, text string) (*interview.ResumeProfile, error) {
	prompt := strings.TrimSpace(strings.ReplaceAll(parseTemplate, "{{RESUME}}", text))

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	raw, err := p.generator.Generate(callCtx, ai.Request{
		Prompt:      prompt,
		System:      parseSystem,
		Temperature: parseTemperature,
	})
	if err != nil {
		p.logger.Warn("resume parsing failed, using contact extraction", zap.Error(err))
		return Fallback(text), nil
	}

	var parsed parsedResume
	if err := ai.Decode(raw, &parsed); err != nil {
		p.logger.Warn("resume response unusable, using contact extraction",
			zap.String("response", utils.TruncateForLog(raw, p.maxLogLen)),
			zap.Error(err),
		)
		return Fallback(text), nil
	}

	profile := &interview.ResumeProfile{
		Name:       strings.TrimSpace(parsed.Name),
		Email:      strings.TrimSpace(parsed.Email),
		Phone:      strings.TrimSpace(parsed.Phone),
		Skills:     cleanSkills(parsed.Skills),
		Experience: nonNilEntries(parsed.Experience),
		Education:  nonNilEntries(parsed.Education),
		Projects:   nonNilEntries(parsed.Projects),
		Summary:    strings.TrimSpace(parsed.Summary),
	}

	p.logger.Debug("resume parsed",
		zap.Int("skills", len(profile.Skills)),
		zap.Int("experience", len(profile.Experience)),
		zap.Int("projects", len(profile.Projects)),
	)

	return profile, nil
}

// Fallback builds a profile from the first line as name and the first email and
// phone found in the text. All lists are empty.
func Fallback(text string) *interview.ResumeProfile {
	text = strings.TrimSpace(text)

	name, _, _ := strings.Cut(text, "\n")

	return &interview.ResumeProfile{
		Name:       strings.TrimSpace(name),
		Email:      emailPattern.FindString(text),
		Phone:      strings.TrimSpace(phonePattern.FindString(text)),
		Skills:     []string{},
		Experience: []interview.Entry{},
		Education:  []interview.Entry{},
		Projects:   []interview.Entry{},
	}
}

func cleanSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func nonNilEntries(entries []interview.Entry) []interview.Entry {
	out := make([]interview.Entry, 0, len(entries))
	for _, e := range entries {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}
