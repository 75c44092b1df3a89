package interview

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

var transcriptAnswers = []Answer{
	{QuestionID: "q1", Question: "Tell me about yourself", Text: "I analyse data"},
	{QuestionID: "q2", Question: "Explain joins", Text: "Joins combine tables"},
}

func TestTranscript(t *testing.T) {
	t.Parallel()

	want := "Q: Tell me about yourself\nA: I analyse data\n\nQ: Explain joins\nA: Joins combine tables"
	if got := Transcript(transcriptAnswers); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSynthesizeUsesModelResponse(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{rules: []rule{{
		marker: "Analyze this interview performance",
		reply: "```json\n" + `{
			"strengths": ["Structured answers"],
			"weaknesses": ["Shallow SQL"],
			"recommendations": ["Practice window functions"],
			"improvement_roadmap": {"week_1": ["Study joins"]}
		}` + "\n```",
	}}}

	s := NewSynthesizer(gen, time.Second, zap.NewNop())
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	ev := Evaluation{Communication: 80, Technical: 60, Confidence: 75, Relevance: 70, Overall: 70.25}
	report := s.Synthesize(context.Background(), "c1", "Data Analyst", transcriptAnswers, ev, testProfile)

	if report.CandidateID != "c1" || report.Role != "Data Analyst" || !report.Timestamp.Equal(fixed) {
		t.Fatalf("unexpected report header: %+v", report)
	}
	if report.Evaluation != ev {
		t.Fatalf("report must carry the evaluation, got %+v", report.Evaluation)
	}
	if !reflect.DeepEqual(report.Strengths, []string{"Structured answers"}) {
		t.Fatalf("unexpected strengths: %v", report.Strengths)
	}
	if report.SkillGaps == nil || len(report.SkillGaps) != 0 {
		t.Fatalf("missing skill gaps should be an empty list, got %#v", report.SkillGaps)
	}
	if !reflect.DeepEqual(report.Roadmap, map[string][]string{"week_1": {"Study joins"}}) {
		t.Fatalf("unexpected roadmap: %v", report.Roadmap)
	}

	req := gen.calls()[0]
	if req.Temperature != feedbackTemperature || req.MaxTokens != feedbackMaxTokens {
		t.Fatalf("unexpected request limits: %+v", req)
	}
	for _, fragment := range []string{
		"Overall Score: 70.25/100",
		"Candidate Skills: Python, SQL, Tableau",
		"Q: Explain joins\nA: Joins combine tables",
	} {
		if !strings.Contains(req.Prompt, fragment) {
			t.Fatalf("prompt misses %q:\n%s", fragment, req.Prompt)
		}
	}
}

func TestSynthesizeFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		evaluation     Evaluation
		wantStrengths  []string
		wantWeaknesses []string
	}{
		{
			name:           "mixed",
			evaluation:     Evaluation{Communication: 70, Technical: 69.99, Confidence: 85},
			wantStrengths:  []string{"Clear and articulate communication", "Confident presentation"},
			wantWeaknesses: []string{"Need to strengthen technical fundamentals"},
		},
		{
			name:           "all weak",
			evaluation:     Evaluation{},
			wantStrengths:  []string{"Shows potential for growth"},
			wantWeaknesses: []string{"Need to improve communication clarity", "Need to strengthen technical fundamentals", "Need to build more confidence in responses"},
		},
		{
			name:           "all strong",
			evaluation:     Evaluation{Communication: 90, Technical: 90, Confidence: 90},
			wantStrengths:  []string{"Clear and articulate communication", "Strong technical knowledge", "Confident presentation"},
			wantWeaknesses: []string{"Continue practicing interview skills"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gen := &scriptedGenerator{rules: []rule{{marker: "Analyze", reply: "I think the candidate did well."}}}
			report := NewSynthesizer(gen, time.Second, zap.NewNop()).
				Synthesize(context.Background(), "c1", "Data Analyst", transcriptAnswers, tt.evaluation, nil)

			if !reflect.DeepEqual(report.Strengths, tt.wantStrengths) {
				t.Fatalf("strengths: expected %v, got %v", tt.wantStrengths, report.Strengths)
			}
			if !reflect.DeepEqual(report.Weaknesses, tt.wantWeaknesses) {
				t.Fatalf("weaknesses: expected %v, got %v", tt.wantWeaknesses, report.Weaknesses)
			}
			if len(report.SkillGaps) != 2 || len(report.Recommendations) != 3 {
				t.Fatalf("expected template gaps and recommendations, got %v / %v", report.SkillGaps, report.Recommendations)
			}
			for _, horizon := range []string{"week_1", "week_2_3", "month_1"} {
				if len(report.Roadmap[horizon]) == 0 {
					t.Fatalf("roadmap misses %s: %v", horizon, report.Roadmap)
				}
			}
		})
	}
}

func TestCompareSessions(t *testing.T) {
	t.Parallel()

	withOverall := func(v float64) *Report {
		return &Report{Evaluation: Evaluation{Overall: v}}
	}

	tests := []struct {
		name     string
		current  float64
		previous []*Report
		want     Comparison
	}{
		{
			name:    "first session",
			current: 75,
			want:    Comparison{IsFirst: true},
		},
		{
			name:     "improving",
			current:  75,
			previous: []*Report{withOverall(60)},
			want:     Comparison{PreviousScore: 60, CurrentScore: 75, Improvement: 15, ImprovementPercent: 25, Trend: TrendImproving},
		},
		{
			name:     "compares with most recent only",
			current:  50,
			previous: []*Report{withOverall(90), withOverall(40)},
			want:     Comparison{PreviousScore: 40, CurrentScore: 50, Improvement: 10, ImprovementPercent: 25, Trend: TrendImproving},
		},
		{
			name:     "declining",
			current:  60,
			previous: []*Report{withOverall(80)},
			want:     Comparison{PreviousScore: 80, CurrentScore: 60, Improvement: -20, ImprovementPercent: -25, Trend: TrendDeclining},
		},
		{
			name:     "stable",
			current:  70,
			previous: []*Report{withOverall(70)},
			want:     Comparison{PreviousScore: 70, CurrentScore: 70, Trend: TrendStable},
		},
		{
			name:     "previous zero",
			current:  30,
			previous: []*Report{withOverall(0)},
			want:     Comparison{CurrentScore: 30, Improvement: 30, Trend: TrendImproving},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := CompareSessions(withOverall(tt.current), tt.previous)
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
