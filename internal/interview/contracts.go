package interview

import "context"

// Store owns profiles, sessions and reports. Implementations must serialize
// UpdateSession calls per session id and hand out copies, never shared pointers.
type Store interface {
	PutProfile(ctx context.Context, profile *ResumeProfile) error
	Profile(ctx context.Context, candidateID string) (*ResumeProfile, error)

	PutSession(ctx context.Context, session *Session) error
	Session(ctx context.Context, sessionID string) (*Session, error)
	// UpdateSession applies fn to a copy of the session under the session lock and
	// commits the copy only when fn succeeds.
	UpdateSession(ctx context.Context, sessionID string, fn func(*Session) error) (*Session, error)
	CandidateSessions(ctx context.Context, candidateID string) ([]*Session, error)

	PutReport(ctx context.Context, report *Report) error
	Report(ctx context.Context, sessionID string) (*Report, error)
}

// SessionLog is the write-once audit log of completed sessions.
type SessionLog interface {
	AppendSessionRecord(ctx context.Context, sessionID string, record SessionRecord) error
	// LoadSessionRecord reports found=false when nothing was logged for the id.
	LoadSessionRecord(ctx context.Context, sessionID string) (record *SessionRecord, found bool, err error)
}

// ProfileIndex stores profile vectors for similarity lookups.
type ProfileIndex interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
	Query(ctx context.Context, vector []float32, k int) ([]string, error)
}

// TextExtractor recovers plain text from an uploaded document.
// It returns an error wrapping ErrExtraction when nothing is recoverable.
type TextExtractor interface {
	Extract(filename string, data []byte) (string, error)
}

// ResumeParser turns resume text into a profile. CandidateID and CreatedAt are left unset.
type ResumeParser interface {
	Parse(ctx context.Context, text string) (*ResumeProfile, error)
}

// ResumeArchive keeps the original upload.
type ResumeArchive interface {
	Save(candidateID, filename string, data []byte) (string, error)
}
