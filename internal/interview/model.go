package interview

import (
	"math"
	"strings"
	"time"

	"github.com/spigell/career-twin/internal/ai"
)

type Category string

const (
	CategoryHR         Category = "hr"
	CategoryTechnical  Category = "technical"
	CategoryBehavioral Category = "behavioral"
	CategoryFollowUp   Category = "follow_up"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty maps free-form model output onto a known difficulty, defaulting to medium.
func ParseDifficulty(s string) Difficulty {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d
	default:
		return DifficultyMedium
	}
}

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Entry is a free-form experience, education or project record.
type Entry map[string]any

// Text returns the value under key as trimmed text.
func (e Entry) Text(key string) string {
	if e == nil {
		return ""
	}
	return ai.CoerceString(e[key])
}

// ResumeProfile is the parsed resume of one candidate. It is never mutated after publication.
type ResumeProfile struct {
	CandidateID string    `json:"candidate_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Skills      []string  `json:"skills"`
	Experience  []Entry   `json:"experience"`
	Education   []Entry   `json:"education"`
	Projects    []Entry   `json:"projects"`
	Summary     string    `json:"summary,omitempty"`
	RawText     string    `json:"-"`
	TargetRoles []string  `json:"target_roles"`
	CreatedAt   time.Time `json:"created_at"`
}

// TopSkills returns at most n skills in resume order.
func (p *ResumeProfile) TopSkills(n int) []string {
	if p == nil {
		return nil
	}
	if len(p.Skills) <= n {
		return p.Skills
	}
	return p.Skills[:n]
}

// EmbeddingText is the text that represents the profile in the similarity index.
func (p *ResumeProfile) EmbeddingText() string {
	experience := make([]string, 0, len(p.Experience))
	for _, e := range p.Experience {
		if d := e.Text("description"); d != "" {
			experience = append(experience, d)
		}
	}

	projects := make([]string, 0, len(p.Projects))
	for _, e := range p.Projects {
		if d := e.Text("description"); d != "" {
			projects = append(projects, d)
		}
	}

	return strings.Join([]string{
		"Skills: " + strings.Join(p.Skills, ", "),
		"Summary: " + p.Summary,
		"Experience: " + strings.Join(experience, " "),
		"Projects: " + strings.Join(projects, " "),
	}, "\n")
}

type Question struct {
	ID         string     `json:"question_id"`
	Text       string     `json:"question"`
	Category   Category   `json:"category"`
	Difficulty Difficulty `json:"difficulty"`
}

type Answer struct {
	QuestionID  string    `json:"question_id"`
	Question    string    `json:"question"`
	Category    Category  `json:"category"`
	Text        string    `json:"answer"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Session is one interview run for a candidate and role.
// Questions are fixed at creation and answers only grow.
type Session struct {
	ID          string     `json:"session_id"`
	CandidateID string     `json:"candidate_id"`
	Role        string     `json:"role"`
	Questions   []Question `json:"questions"`
	Answers     []Answer   `json:"answers"`
	Status      Status     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (s *Session) Question(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

func (s *Session) Answer(questionID string) (Answer, bool) {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return Answer{}, false
}

// Clone returns a deep copy safe to mutate.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Questions = append([]Question(nil), s.Questions...)
	c.Answers = append([]Answer(nil), s.Answers...)
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

// Counts is the number of questions requested per category.
type Counts struct {
	HR         int `json:"hr" mapstructure:"hr"`
	Technical  int `json:"technical" mapstructure:"technical"`
	Behavioral int `json:"behavioral" mapstructure:"behavioral"`
}

var DefaultCounts = Counts{HR: 3, Technical: 4, Behavioral: 3}

func (c Counts) Total() int {
	return c.HR + c.Technical + c.Behavioral
}

// Scores are the raw rubric scores of a single answer.
type Scores struct {
	Communication float64 `json:"communication_clarity"`
	Technical     float64 `json:"technical_accuracy"`
	Confidence    float64 `json:"confidence"`
	Relevance     float64 `json:"relevance"`
}

// Evaluation is the session-level score. Every field is within [0,100].
type Evaluation struct {
	Communication float64 `json:"communication_clarity"`
	Technical     float64 `json:"technical_accuracy"`
	Confidence    float64 `json:"confidence_score"`
	Relevance     float64 `json:"relevance_score"`
	Overall       float64 `json:"overall_score"`
}

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// Comparison relates a report to the candidate's previous one.
type Comparison struct {
	IsFirst            bool    `json:"is_first_session"`
	PreviousScore      float64 `json:"previous_score,omitempty"`
	CurrentScore       float64 `json:"current_score,omitempty"`
	Improvement        float64 `json:"improvement"`
	ImprovementPercent float64 `json:"improvement_percentage"`
	Trend              Trend   `json:"trend,omitempty"`
}

// Report is the feedback produced when a session completes. It owns the session's evaluation.
type Report struct {
	SessionID       string              `json:"session_id"`
	CandidateID     string              `json:"candidate_id"`
	Role            string              `json:"role"`
	Timestamp       time.Time           `json:"timestamp"`
	Evaluation      Evaluation          `json:"evaluation"`
	Readiness       float64             `json:"readiness_score"`
	Strengths       []string            `json:"strengths"`
	Weaknesses      []string            `json:"weaknesses"`
	SkillGaps       []string            `json:"skill_gaps"`
	Recommendations []string            `json:"recommendations"`
	Roadmap         map[string][]string `json:"improvement_roadmap"`
	Comparison      *Comparison         `json:"comparison,omitempty"`
}

// Clone returns a deep copy safe to mutate.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	c := *r
	c.Strengths = append([]string(nil), r.Strengths...)
	c.Weaknesses = append([]string(nil), r.Weaknesses...)
	c.SkillGaps = append([]string(nil), r.SkillGaps...)
	c.Recommendations = append([]string(nil), r.Recommendations...)
	if r.Roadmap != nil {
		c.Roadmap = make(map[string][]string, len(r.Roadmap))
		for k, v := range r.Roadmap {
			c.Roadmap[k] = append([]string(nil), v...)
		}
	}
	if r.Comparison != nil {
		cmp := *r.Comparison
		c.Comparison = &cmp
	}
	return &c
}

// SessionRecord is the write-once snapshot kept in the durable log.
type SessionRecord struct {
	Session *Session `json:"session"`
	Report  *Report  `json:"report"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// DefaultCallTimeout bounds a single collaborator call when none is configured.
const DefaultCallTimeout = 60 * time.Second

func callTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultCallTimeout
	}
	return d
}
