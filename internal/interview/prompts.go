package interview

import (
	_ "embed"
	"strings"
)

var (
	//go:embed prompts/questions.md
	questionsTemplate string
	//go:embed prompts/follow_up.md
	followUpTemplate string
	//go:embed prompts/evaluation_system.md
	evaluationSystem string
	//go:embed prompts/evaluation.md
	evaluationTemplate string
	//go:embed prompts/feedback_system.md
	feedbackSystem string
	//go:embed prompts/feedback.md
	feedbackTemplate string
)

// render replaces {{KEY}} placeholders in template.
func render(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(template))
}
