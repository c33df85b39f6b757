package http

import (
	"encoding/json"
	"net/http"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub003/internal/audit"
	syncx "github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub003/internal/sync"

	"github.com/go-chi/chi/v5"
)

func CreateSessionHandler(store audit.Store, timers *audit.TimerRegistry, events *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TemplateID string `json:"template_id"`
			UserID     string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.TemplateID == "" || req.UserID == "" {
			http.Error(w, "template_id and user_id required", 400)
			return
		}
		s, err := store.NewSession(req.TemplateID, req.UserID)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		timers.Start(s.ID, 0)
		if events != nil {
			data, _ := json.Marshal(map[string]string{"template_id": s.TemplateID, "user_id": s.UserID})
			_ = events.Append(r.Context(), syncx.Event{
				Type:     syncx.EventSessionStarted,
				Key:      s.ID,
				DataJSON: string(data),
			})
		}
		_ = json.NewEncoder(w).Encode(s)
	}
}

func GetSessionHandler(store audit.Store, timers *audit.TimerRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		s, err := store.GetSession(id)
		if err != nil {
			http.Error(w, err.Error(), 404)
			return
		}
		// overlay the live counter; the stored value only catches up on
		// pause/finalize
		if t, ok := timers.Get(id); ok {
			s.ElapsedSec = t.Elapsed()
		}
		_ = json.NewEncoder(w).Encode(s)
	}
}

func ListSessionsHandler(store audit.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		opts := audit.SessionListOpts{
			TemplateID: q.Get("template_id"),
			UserID:     q.Get("user_id"),
			Status:     q.Get("status"),
			Limit:      atoiOr(q.Get("limit"), 50),
			Offset:     atoiOr(q.Get("offset"), 0),
		}
		out, err := store.ListSessions(r.Context(), opts)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}

// SaveResponsesHandler merges field-level patches, keyed by question
// id, into the session's stored responses.
func SaveResponsesHandler(store audit.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		var patches map[string]audit.ResponsePatch
		if err := json.NewDecoder(r.Body).Decode(&patches); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		s, err := store.SaveResponses(id, patches)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		_ = json.NewEncoder(w).Encode(s)
	}
}

func AdvanceHandler(store audit.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		s, complete, err := store.Advance(id)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		_ = json.NewEncoder(w).Encode(struct {
			audit.Session
			Complete bool `json:"complete"`
		}{s, complete})
	}
}

func RetreatHandler(store audit.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		s, err := store.Retreat(id)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		_ = json.NewEncoder(w).Encode(s)
	}
}

// JumpHandler accepts a section jump, optionally a question jump within
// the current section. Out-of-range targets leave the cursor where it
// was.
func JumpHandler(store audit.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		var req struct {
			Section  *int `json:"section,omitempty"`
			Question *int `json:"question,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		var (
			s   audit.Session
			err error
		)
		switch {
		case req.Section != nil:
			s, err = store.JumpToSection(id, *req.Section)
		case req.Question != nil:
			s, err = store.JumpToQuestion(id, *req.Question)
		default:
			http.Error(w, "section or question required", 400)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		_ = json.NewEncoder(w).Encode(s)
	}
}

func PauseHandler(store audit.Store, timers *audit.TimerRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		if t, ok := timers.Get(id); ok {
			t.Pause()
			if _, err := store.SyncElapsed(id, t.Elapsed()); err != nil {
				http.Error(w, err.Error(), 400)
				return
			}
		}
		s, err := store.SetPaused(id, true)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		_ = json.NewEncoder(w).Encode(s)
	}
}

func ResumeHandler(store audit.Store, timers *audit.TimerRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		if t, ok := timers.Get(id); ok {
			t.Resume()
		} else {
			// process restarted mid-session: pick up from the stored count
			if s, err := store.GetSession(id); err == nil && s.Status == audit.StatusInProgress {
				timers.Start(id, s.ElapsedSec)
			}
		}
		s, err := store.SetPaused(id, false)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		_ = json.NewEncoder(w).Encode(s)
	}
}

// ProgressHandler reports answered/total counts, percent and the
// formatted elapsed clock for the session header.
func ProgressHandler(store audit.Store, timers *audit.TimerRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		s, err := store.GetSession(id)
		if err != nil {
			http.Error(w, err.Error(), 404)
			return
		}
		t, err := store.GetTemplate(s.TemplateID)
		if err != nil {
			http.Error(w, err.Error(), 404)
			return
		}
		elapsed := s.ElapsedSec
		if lt, ok := timers.Get(id); ok {
			elapsed = lt.Elapsed()
		}
		p := s.Progress(t)
		complete := make([]bool, len(t.Sections))
		for i := range t.Sections {
			complete[i] = s.SectionComplete(t, i)
		}
		_ = json.NewEncoder(w).Encode(struct {
			audit.Progress
			ElapsedSec       int64  `json:"elapsed_sec"`
			Elapsed          string `json:"elapsed"`
			SectionsComplete []bool `json:"sections_complete"`
		}{p, elapsed, audit.FormatElapsed(elapsed), complete})
	}
}

// FinalizeHandler stops the session's timer, seals the session with
// its result, and appends a SessionFinalized event for downstream
// consumers.
func FinalizeHandler(store audit.Store, timers *audit.TimerRegistry, events *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		elapsed, ok := timers.Stop(id)
		if !ok {
			if s, err := store.GetSession(id); err == nil {
				elapsed = s.ElapsedSec
			}
		}
		s, err := store.Finalize(id, elapsed)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		if events != nil {
			data, _ := json.Marshal(s.Result)
			_ = events.Append(r.Context(), syncx.Event{
				Type:     syncx.EventSessionFinalized,
				Key:      s.ID,
				DataJSON: string(data),
			})
		}
		_ = json.NewEncoder(w).Encode(s)
	}
}
