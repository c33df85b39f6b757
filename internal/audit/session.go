package audit

import (
	"encoding/json"
	"math"
	"time"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub003/internal/scoring"
)

var engine = scoring.NewEngine()

// ResponsePatch is a field-level merge into a stored Response. Absent
// fields keep their stored values. Value uses the raw JSON so that an
// explicit null clears the answer while an omitted field leaves it
// alone.
type ResponsePatch struct {
	Value     json.RawMessage `json:"value,omitempty"`
	Notes     *string         `json:"notes,omitempty"`
	Photos    []string        `json:"photos,omitempty"`
	Signature *string         `json:"signature,omitempty"`
	Flagged   *bool           `json:"flagged,omitempty"`
}

func (r Response) apply(p ResponsePatch, now int64) Response {
	if len(p.Value) > 0 {
		var v interface{}
		if json.Unmarshal(p.Value, &v) == nil {
			r.Value = v
		}
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	if p.Photos != nil {
		r.Photos = p.Photos
	}
	if p.Signature != nil {
		r.Signature = *p.Signature
	}
	if p.Flagged != nil {
		r.Flagged = *p.Flagged
	}
	r.UpdatedAt = now
	return r
}

// ApplyResponses upserts patches into the session's response map,
// creating records as needed and refreshing each touched timestamp.
// The session stores whatever values it is given; shape enforcement
// against the question type happens in the scoring layer.
func (s *Session) ApplyResponses(patches map[string]ResponsePatch) {
	if s.Responses == nil {
		s.Responses = map[string]Response{}
	}
	now := time.Now().Unix()
	for qid, p := range patches {
		s.Responses[qid] = s.Responses[qid].apply(p, now)
	}
}

// --- Navigation ---

// Advance moves the cursor to the next question, crossing into the
// next section at a boundary. On the last question of the last section
// it leaves the cursor in place and returns true: the session is ready
// to finalize. Empty templates and out-of-range cursors degrade to a
// no-op.
func (s *Session) Advance(t Template) (complete bool) {
	if s.Section < 0 || s.Section >= len(t.Sections) {
		return false
	}
	if s.Question < len(t.Sections[s.Section].Questions)-1 {
		s.Question++
		return false
	}
	if s.Section < len(t.Sections)-1 {
		s.Section++
		s.Question = 0
		return false
	}
	return true
}

// Retreat moves the cursor to the previous question, landing on the
// last question of the prior section at a boundary. At (0,0) it is a
// no-op.
func (s *Session) Retreat(t Template) {
	if s.Section < 0 || s.Section >= len(t.Sections) {
		return
	}
	if s.Question > 0 {
		s.Question--
		return
	}
	if s.Section == 0 {
		return
	}
	s.Section--
	s.Question = 0
	if n := len(t.Sections[s.Section].Questions); n > 0 {
		s.Question = n - 1
	}
}

// JumpToSection points the cursor at the first question of the given
// section. Out-of-range indexes are rejected as no-ops.
func (s *Session) JumpToSection(t Template, idx int) {
	if idx < 0 || idx >= len(t.Sections) {
		return
	}
	s.Section = idx
	s.Question = 0
}

// JumpToQuestion moves within the current section only.
func (s *Session) JumpToQuestion(t Template, idx int) {
	if s.Section < 0 || s.Section >= len(t.Sections) {
		return
	}
	if idx < 0 || idx >= len(t.Sections[s.Section].Questions) {
		return
	}
	s.Question = idx
}

// --- Derived metrics ---

type Progress struct {
	Answered int     `json:"answered"`
	Total    int     `json:"total"`
	Percent  float64 `json:"percent"`
}

func (s *Session) Progress(t Template) Progress {
	p := Progress{Total: t.TotalQuestions()}
	for _, sec := range t.Sections {
		for _, q := range sec.Questions {
			if r, ok := s.Responses[q.ID]; ok && scoring.IsAnswered(q.Type, r.Value) {
				p.Answered++
			}
		}
	}
	if p.Total > 0 {
		p.Percent = 100 * float64(p.Answered) / float64(p.Total)
	}
	return p
}

// SectionComplete reports whether every question in the section has an
// answer. Vacuously true for a section with no questions.
func (s *Session) SectionComplete(t Template, idx int) bool {
	if idx < 0 || idx >= len(t.Sections) {
		return false
	}
	for _, q := range t.Sections[idx].Questions {
		r, ok := s.Responses[q.ID]
		if !ok || !scoring.IsAnswered(q.Type, r.Value) {
			return false
		}
	}
	return true
}

// --- Scoring and finalization ---

// Summarize computes the weighted compliance score plus the report
// counts. Unanswered questions are excluded from both sides of the
// ratio, so a partially completed session is scored only on what was
// answered; callers needing a full-completion guarantee must compare
// AnsweredCount against TotalQuestions before trusting the score.
func Summarize(t Template, responses map[string]Response, elapsedSec int64) Result {
	res := Result{
		TotalQuestions: t.TotalQuestions(),
		DurationSec:    elapsedSec,
		Findings:       []Finding{},
	}
	var totalWeight, achievedWeight float64
	for _, sec := range t.Sections {
		for _, q := range sec.Questions {
			r, ok := responses[q.ID]
			if !ok {
				continue
			}
			if len(r.Photos) > 0 {
				res.PhotoCount++
			}
			sr := engine.Score(scoring.Q{Type: q.Type, Weight: q.Weight}, r.Value)
			if !sr.Answered {
				continue
			}
			res.AnsweredCount++
			totalWeight += sr.Weight
			achievedWeight += sr.Achieved
			if sr.Negative {
				res.Findings = append(res.Findings, Finding{
					QuestionText: q.Text,
					SectionTitle: sec.Title,
				})
			}
		}
	}
	if totalWeight > 0 {
		res.Score = int(math.Round(100 * achievedWeight / totalWeight))
	}
	res.Passed = scoring.Passed(res.Score)
	return res
}

// Finalize scores the session and seals it; the stores reject any
// further mutation once Status is finalized.
func (s *Session) Finalize(t Template) Result {
	r := Summarize(t, s.Responses, s.ElapsedSec)
	s.Result = &r
	s.Status = StatusFinalized
	s.FinalizedAt = time.Now().Unix()
	return r
}
