package audit

import (
	"errors"
	"fmt"
)

// Question types known to the scoring engine. Anything else is scored
// like an informational field.
const (
	TypePassFail  = "pass_fail"
	TypeYesNo     = "yes_no"
	TypeYesNoNA   = "yes_no_na"
	TypeScale5    = "scale_1_5"
	TypeScale10   = "scale_1_10"
	TypeText      = "text"
	TypeTextArea  = "textarea"
	TypeNumeric   = "numeric"
	TypeSignature = "signature"
)

// Session lifecycle.
const (
	StatusInProgress = "in_progress"
	StatusFinalized  = "finalized"
)

type Question struct {
	ID               string  `json:"id"`
	Text             string  `json:"text"`
	Type             string  `json:"type"`
	Weight           float64 `json:"weight"` // 0 = informational, never moves the score
	Required         bool    `json:"required"`
	EvidenceRequired bool    `json:"evidence_required,omitempty"`
	RiskLevel        string  `json:"risk_level,omitempty"` // informational tag, not scored
}

type Section struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Template is the static checklist definition a session runs against.
// It is supplied by the template provider and treated as read-only.
type Template struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Sections  []Section `json:"sections"`
	CreatedAt int64     `json:"created_at,omitempty"`
}

func (t Template) TotalQuestions() int {
	n := 0
	for _, s := range t.Sections {
		n += len(s.Questions)
	}
	return n
}

// Validate enforces the one structural invariant the engine relies on:
// question identifiers are unique across the whole template, not just
// within a section.
func (t Template) Validate() error {
	if t.ID == "" {
		return errors.New("template id required")
	}
	seen := map[string]struct{}{}
	for _, s := range t.Sections {
		for _, q := range s.Questions {
			if q.ID == "" {
				return fmt.Errorf("section %q has a question without an id", s.ID)
			}
			if _, dup := seen[q.ID]; dup {
				return fmt.Errorf("duplicate question id %q", q.ID)
			}
			seen[q.ID] = struct{}{}
			if q.Weight < 0 {
				return fmt.Errorf("question %q has negative weight", q.ID)
			}
		}
	}
	return nil
}

// Response is everything captured for one question. A record exists
// iff the user interacted with the question at least once; Value may
// still be nil when the record only carries notes, photos or a flag.
type Response struct {
	Value     interface{} `json:"value"`            // token, number or string per question type
	Notes     string      `json:"notes,omitempty"`
	Photos    []string    `json:"photos,omitempty"` // opaque evidence keys, never inspected
	Signature string      `json:"signature,omitempty"`
	Flagged   bool        `json:"flagged,omitempty"`
	UpdatedAt int64       `json:"updated_at"`
}

// Session is one in-progress run of a template: the response map, the
// cursor into the checklist, and the timing state.
type Session struct {
	ID          string              `json:"id"`
	TemplateID  string              `json:"template_id"`
	UserID      string              `json:"user_id"`
	Status      string              `json:"status"` // in_progress|finalized
	Section     int                 `json:"section"`
	Question    int                 `json:"question"`
	Responses   map[string]Response `json:"responses"`
	ElapsedSec  int64               `json:"elapsed_sec"`
	Paused      bool                `json:"paused"`
	StartedAt   int64               `json:"started_at"`
	FinalizedAt int64               `json:"finalized_at,omitempty"`
	Result      *Result             `json:"result,omitempty"`
}

type Finding struct {
	QuestionText string `json:"question_text"`
	SectionTitle string `json:"section_title"`
}

// Result is the immutable end-of-session report.
type Result struct {
	Score          int       `json:"score"` // 0-100
	Passed         bool      `json:"passed"`
	AnsweredCount  int       `json:"answered_count"`
	TotalQuestions int       `json:"total_questions"`
	DurationSec    int64     `json:"duration_sec"`
	PhotoCount     int       `json:"photo_count"` // responses with >=1 photo, not total files
	Findings       []Finding `json:"findings"`
}

type TemplateSummary struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	SectionCount  int    `json:"section_count"`
	QuestionCount int    `json:"question_count"`
	CreatedAt     int64  `json:"created_at,omitempty"`
}
