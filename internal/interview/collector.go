package interview

import (
	"fmt"
	"strings"
	"time"
)

// AnswerProgress reports how far a session has got after an answer.
type AnswerProgress struct {
	Answered    int  `json:"answered"`
	Total       int  `json:"total"`
	AllAnswered bool `json:"all_answered"`
}

// submitAnswer appends an answer to the session. It leaves the session untouched on error.
func submitAnswer(s *Session, questionID, text string, now time.Time) (AnswerProgress, error) {
	if s.Status == StatusCompleted {
		return AnswerProgress{}, ErrSessionCompleted
	}

	question, ok := s.Question(questionID)
	if !ok {
		return AnswerProgress{}, fmt.Errorf("question %q in session %q: %w", questionID, s.ID, ErrNotFound)
	}

	if strings.TrimSpace(text) == "" {
		return AnswerProgress{}, fmt.Errorf("%w: answer is empty", ErrInvalidInput)
	}

	if _, answered := s.Answer(questionID); answered {
		return AnswerProgress{}, fmt.Errorf("question %q: %w", questionID, ErrDuplicateAnswer)
	}

	s.Answers = append(s.Answers, Answer{
		QuestionID:  question.ID,
		Question:    question.Text,
		Category:    question.Category,
		Text:        text,
		SubmittedAt: now,
	})

	return answerProgress(s), nil
}

func answerProgress(s *Session) AnswerProgress {
	return AnswerProgress{
		Answered:    len(s.Answers),
		Total:       len(s.Questions),
		AllAnswered: len(s.Answers) >= len(s.Questions),
	}
}

// completeSession marks the session completed. It reports false when the session
// was already completed, in which case the original completion time is kept.
func completeSession(s *Session, now time.Time) bool {
	if s.Status == StatusCompleted {
		return false
	}

	s.Status = StatusCompleted
	s.CompletedAt = &now
	return true
}
