package interview

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const expiringTimeout = 5 * time.Millisecond

func TestScoreAnswerTimesOut(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	answer := Answer{QuestionID: "q1", Question: "Explain joins", Category: CategoryTechnical, Text: "Inner joins match rows"}

	got := NewEvaluator(stallingGenerator{}, expiringTimeout, zap.New(core)).
		ScoreAnswer(context.Background(), answer, testProfile, "Data Analyst")

	if got != NeutralScores {
		t.Fatalf("expected neutral scores, got %+v", got)
	}
	if logs.FilterMessageSnippet("using neutral scores").Len() != 1 {
		t.Fatalf("expected one fallback warning, got %d", logs.Len())
	}
}

func TestGenerateTimesOut(t *testing.T) {
	t.Parallel()

	qg := NewQuestionGenerator(stallingGenerator{}, expiringTimeout, zap.NewNop())
	questions := qg.Generate(context.Background(), "Data Analyst", testProfile, DefaultCounts)

	want := []struct {
		category Category
		text     string
	}{
		{CategoryHR, "Tell me about yourself"},
		{CategoryTechnical, "Explain your most complex project"},
		{CategoryBehavioral, "Tell me about a time you faced conflict in a team"},
	}

	if len(questions) != len(want) {
		t.Fatalf("expected one canned question per category, got %+v", questions)
	}
	for i, w := range want {
		if questions[i].Category != w.category || questions[i].Text != w.text {
			t.Fatalf("question %d: expected %s %q, got %+v", i, w.category, w.text, questions[i])
		}
	}
}

func TestSynthesizeTimesOut(t *testing.T) {
	t.Parallel()

	evaluation := Evaluation{Communication: 90, Technical: 40, Confidence: 75}
	report := NewSynthesizer(stallingGenerator{}, expiringTimeout, zap.NewNop()).
		Synthesize(context.Background(), "c1", "Data Analyst", transcriptAnswers, evaluation, testProfile)

	wantStrengths := []string{"Clear and articulate communication", "Confident presentation"}
	if len(report.Strengths) != len(wantStrengths) {
		t.Fatalf("expected rule-based strengths %v, got %v", wantStrengths, report.Strengths)
	}
	for i := range wantStrengths {
		if report.Strengths[i] != wantStrengths[i] {
			t.Fatalf("expected rule-based strengths %v, got %v", wantStrengths, report.Strengths)
		}
	}
	if len(report.Weaknesses) != 1 || report.Weaknesses[0] != "Need to strengthen technical fundamentals" {
		t.Fatalf("unexpected weaknesses: %v", report.Weaknesses)
	}
	if len(report.Roadmap["week_1"]) == 0 {
		t.Fatalf("expected rule-based roadmap, got %v", report.Roadmap)
	}
	if report.Evaluation != evaluation {
		t.Fatalf("evaluation should be kept, got %+v", report.Evaluation)
	}
}
