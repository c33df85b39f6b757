package audit

import "context"

type ListOpts struct {
	Q      string // substring match on title
	Limit  int
	Offset int
}

type SessionListOpts struct {
	TemplateID string
	UserID     string
	Status     string // optional: in_progress|finalized
	Limit      int
	Offset     int
}

// Store persists templates and sessions. Navigation and response
// mutations load the session, delegate to the Session methods, and
// write the session back; every mutation is rejected once a session is
// finalized.
type Store interface {
	PutTemplate(t Template) error
	GetTemplate(id string) (Template, error)
	ListTemplates(ctx context.Context, opts ListOpts) ([]TemplateSummary, error)

	NewSession(templateID, userID string) (Session, error)
	GetSession(id string) (Session, error)
	ListSessions(ctx context.Context, opts SessionListOpts) ([]Session, error)

	SaveResponses(sessionID string, patches map[string]ResponsePatch) (Session, error)
	Advance(sessionID string) (Session, bool, error) // bool: end of checklist reached
	Retreat(sessionID string) (Session, error)
	JumpToSection(sessionID string, section int) (Session, error)
	JumpToQuestion(sessionID string, question int) (Session, error)
	SetPaused(sessionID string, paused bool) (Session, error)
	SyncElapsed(sessionID string, elapsedSec int64) (Session, error)
	Finalize(sessionID string, elapsedSec int64) (Session, error)
}
