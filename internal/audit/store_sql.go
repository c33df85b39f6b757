package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SQLStore persists templates and sessions as rows with JSON payload
// columns, against SQLite or Postgres.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) PutTemplate(t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	sj, err := json.Marshal(t.Sections)
	if err != nil {
		return err
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().Unix()
	}
	_, err = s.db.Exec(`INSERT INTO audit_templates (id,title,sections_json,created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, sections_json=EXCLUDED.sections_json`,
		t.ID, t.Title, string(sj), t.CreatedAt)
	return err
}

func (s *SQLStore) GetTemplate(id string) (Template, error) {
	row := s.db.QueryRow(`SELECT id,title,sections_json,created_at FROM audit_templates WHERE id=$1`, id)
	var t Template
	var sj string
	if err := row.Scan(&t.ID, &t.Title, &sj, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Template{}, ErrTemplateNotFound
		}
		return Template{}, err
	}
	if err := json.Unmarshal([]byte(sj), &t.Sections); err != nil {
		return Template{}, err
	}
	return t, nil
}

func (s *SQLStore) ListTemplates(ctx context.Context, opts ListOpts) ([]TemplateSummary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,title,sections_json,created_at FROM audit_templates
		 WHERE ($1 = '' OR lower(title) LIKE '%' || lower($1) || '%')
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		opts.Q, limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []TemplateSummary{}
	for rows.Next() {
		var t Template
		var sj string
		if err := rows.Scan(&t.ID, &t.Title, &sj, &t.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(sj), &t.Sections); err != nil {
			return nil, err
		}
		out = append(out, TemplateSummary{
			ID:            t.ID,
			Title:         t.Title,
			SectionCount:  len(t.Sections),
			QuestionCount: t.TotalQuestions(),
			CreatedAt:     t.CreatedAt,
		})
	}
	return out, rows.Err()
}

func (s *SQLStore) NewSession(templateID, userID string) (Session, error) {
	var exist int
	if err := s.db.QueryRow(`SELECT 1 FROM audit_templates WHERE id=$1`, templateID).Scan(&exist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrTemplateNotFound
		}
		return Session{}, err
	}
	sess := Session{
		ID:         uuid.NewString(),
		TemplateID: templateID,
		UserID:     userID,
		Status:     StatusInProgress,
		Responses:  map[string]Response{},
		StartedAt:  time.Now().Unix(),
	}
	rj, _ := json.Marshal(sess.Responses)
	_, err := s.db.Exec(`INSERT INTO audit_sessions
		(id,template_id,user_id,status,section_idx,question_idx,responses_json,elapsed_sec,paused,started_at)
		VALUES ($1,$2,$3,$4,0,0,$5,0,0,$6)`,
		sess.ID, sess.TemplateID, sess.UserID, sess.Status, string(rj), sess.StartedAt)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *SQLStore) GetSession(id string) (Session, error) {
	return s.scanSession(s.db.QueryRow(
		`SELECT id,template_id,user_id,status,section_idx,question_idx,responses_json,
		        elapsed_sec,paused,started_at,finalized_at,result_json
		 FROM audit_sessions WHERE id=$1`, id))
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func (s *SQLStore) scanSession(row rowScanner) (Session, error) {
	var sess Session
	var rj string
	var paused int
	var finalizedAt sql.NullInt64
	var resultJSON sql.NullString
	err := row.Scan(&sess.ID, &sess.TemplateID, &sess.UserID, &sess.Status,
		&sess.Section, &sess.Question, &rj, &sess.ElapsedSec, &paused,
		&sess.StartedAt, &finalizedAt, &resultJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	sess.Paused = paused != 0
	sess.FinalizedAt = finalizedAt.Int64
	if err := json.Unmarshal([]byte(rj), &sess.Responses); err != nil {
		sess.Responses = map[string]Response{}
	}
	if resultJSON.Valid && resultJSON.String != "" {
		var r Result
		if json.Unmarshal([]byte(resultJSON.String), &r) == nil {
			sess.Result = &r
		}
	}
	return sess, nil
}

func (s *SQLStore) ListSessions(ctx context.Context, opts SessionListOpts) ([]Session, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,template_id,user_id,status,section_idx,question_idx,responses_json,
		        elapsed_sec,paused,started_at,finalized_at,result_json
		 FROM audit_sessions
		 WHERE ($1 = '' OR template_id = $1)
		   AND ($2 = '' OR user_id = $2)
		   AND ($3 = '' OR status = $3)
		 ORDER BY started_at DESC LIMIT $4 OFFSET $5`,
		opts.TemplateID, opts.UserID, opts.Status, limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Session{}
	for rows.Next() {
		sess, err := s.scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// mutate is the single read-modify-write path for session mutation;
// every mutation re-checks the finalized guard against the stored row.
func (s *SQLStore) mutate(sessionID string, fn func(*Session, Template) error) (Session, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return Session{}, err
	}
	if sess.Status == StatusFinalized {
		return Session{}, ErrSessionFinalized
	}
	t, err := s.GetTemplate(sess.TemplateID)
	if err != nil {
		return Session{}, err
	}
	if err := fn(&sess, t); err != nil {
		return Session{}, err
	}

	rj, _ := json.Marshal(sess.Responses)
	paused := 0
	if sess.Paused {
		paused = 1
	}
	var resultJSON interface{}
	if sess.Result != nil {
		buf, _ := json.Marshal(sess.Result)
		resultJSON = string(buf)
	}
	var finalizedAt interface{}
	if sess.FinalizedAt != 0 {
		finalizedAt = sess.FinalizedAt
	}
	_, err = s.db.Exec(`UPDATE audit_sessions SET
		status=$1, section_idx=$2, question_idx=$3, responses_json=$4,
		elapsed_sec=$5, paused=$6, finalized_at=$7, result_json=$8
		WHERE id=$9`,
		sess.Status, sess.Section, sess.Question, string(rj),
		sess.ElapsedSec, paused, finalizedAt, resultJSON, sess.ID)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *SQLStore) SaveResponses(sessionID string, patches map[string]ResponsePatch) (Session, error) {
	return s.mutate(sessionID, func(sess *Session, _ Template) error {
		sess.ApplyResponses(patches)
		return nil
	})
}

func (s *SQLStore) Advance(sessionID string) (Session, bool, error) {
	complete := false
	sess, err := s.mutate(sessionID, func(sess *Session, t Template) error {
		complete = sess.Advance(t)
		return nil
	})
	return sess, complete, err
}

func (s *SQLStore) Retreat(sessionID string) (Session, error) {
	return s.mutate(sessionID, func(sess *Session, t Template) error {
		sess.Retreat(t)
		return nil
	})
}

func (s *SQLStore) JumpToSection(sessionID string, section int) (Session, error) {
	return s.mutate(sessionID, func(sess *Session, t Template) error {
		sess.JumpToSection(t, section)
		return nil
	})
}

func (s *SQLStore) JumpToQuestion(sessionID string, question int) (Session, error) {
	return s.mutate(sessionID, func(sess *Session, t Template) error {
		sess.JumpToQuestion(t, question)
		return nil
	})
}

func (s *SQLStore) SetPaused(sessionID string, paused bool) (Session, error) {
	return s.mutate(sessionID, func(sess *Session, _ Template) error {
		sess.Paused = paused
		return nil
	})
}

func (s *SQLStore) SyncElapsed(sessionID string, elapsedSec int64) (Session, error) {
	return s.mutate(sessionID, func(sess *Session, _ Template) error {
		sess.ElapsedSec = elapsedSec
		return nil
	})
}

func (s *SQLStore) Finalize(sessionID string, elapsedSec int64) (Session, error) {
	return s.mutate(sessionID, func(sess *Session, t Template) error {
		sess.ElapsedSec = elapsedSec
		sess.Finalize(t)
		return nil
	})
}
