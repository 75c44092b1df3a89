package interview

import (
	"sort"
	"time"
)

// ProgressEntry is one completed session in a candidate's history.
type ProgressEntry struct {
	SessionID     string    `json:"session_id"`
	Date          time.Time `json:"date"`
	Role          string    `json:"role"`
	Overall       float64   `json:"overall_score"`
	Communication float64   `json:"communication"`
	Technical     float64   `json:"technical"`
	Confidence    float64   `json:"confidence"`
}

// Progress is derived on demand and never stored.
type Progress struct {
	CandidateID      string          `json:"candidate_id"`
	TotalSessions    int             `json:"total_sessions"`
	CurrentReadiness float64         `json:"current_readiness_score"`
	History          []ProgressEntry `json:"session_history"`
	RolesPracticed   []string        `json:"roles_practiced"`
}

const readinessWindow = 3

// BuildProgress collects the candidate's completed sessions that have a report,
// oldest first, and averages the overall score of the latest three.
func BuildProgress(candidateID string, sessions []*Session, reports map[string]*Report) Progress {
	progress := Progress{
		CandidateID:    candidateID,
		History:        []ProgressEntry{},
		RolesPracticed: []string{},
	}

	for _, s := range sessions {
		if s == nil || s.CandidateID != candidateID || s.Status != StatusCompleted || s.CompletedAt == nil {
			continue
		}
		report, ok := reports[s.ID]
		if !ok || report == nil {
			continue
		}
		progress.History = append(progress.History, ProgressEntry{
			SessionID:     s.ID,
			Date:          *s.CompletedAt,
			Role:          s.Role,
			Overall:       report.Evaluation.Overall,
			Communication: report.Evaluation.Communication,
			Technical:     report.Evaluation.Technical,
			Confidence:    report.Evaluation.Confidence,
		})
	}

	sort.SliceStable(progress.History, func(i, j int) bool {
		return progress.History[i].Date.Before(progress.History[j].Date)
	})

	progress.TotalSessions = len(progress.History)
	if progress.TotalSessions == 0 {
		return progress
	}

	window := progress.History
	if len(window) > readinessWindow {
		window = window[len(window)-readinessWindow:]
	}

	var sum float64
	for _, e := range window {
		sum += e.Overall
	}
	progress.CurrentReadiness = round2(sum / float64(len(window)))

	seen := make(map[string]struct{})
	for _, e := range progress.History {
		if _, ok := seen[e.Role]; ok {
			continue
		}
		seen[e.Role] = struct{}{}
		progress.RolesPracticed = append(progress.RolesPracticed, e.Role)
	}

	return progress
}
