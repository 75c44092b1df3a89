package interview

import "errors"

var (
	// ErrNotFound is returned for unknown profile, session or question ids.
	ErrNotFound = errors.New("not found")
	// ErrExtraction is returned when no text can be recovered from an uploaded document.
	ErrExtraction = errors.New("no text could be extracted from the document")
	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateAnswer is returned when a question already has an answer.
	ErrDuplicateAnswer = errors.New("question already answered")
	// ErrSessionCompleted is returned when answering a completed session.
	ErrSessionCompleted = errors.New("session already completed")
	// ErrNoAnswers is returned when completing a session without answers.
	ErrNoAnswers = errors.New("session has no answers")
)
