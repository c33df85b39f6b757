package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub003/internal/audit"

	"github.com/go-chi/chi/v5"
)

func testRouter(t *testing.T) (chi.Router, audit.Store, *audit.TimerRegistry) {
	t.Helper()
	store := audit.NewInMemoryStore()
	timers := audit.NewTimerRegistry(context.Background())
	t.Cleanup(timers.StopAll)

	r := chi.NewRouter()
	r.Post("/templates", PutTemplateHandler(store))
	r.Get("/templates/{templateID}", GetTemplateHandler(store))
	r.Get("/templates", ListTemplatesHandler(store))
	r.Post("/sessions", CreateSessionHandler(store, timers, nil))
	r.Get("/sessions/{sessionID}", GetSessionHandler(store, timers))
	r.Post("/sessions/{sessionID}/responses", SaveResponsesHandler(store))
	r.Post("/sessions/{sessionID}/advance", AdvanceHandler(store))
	r.Post("/sessions/{sessionID}/retreat", RetreatHandler(store))
	r.Post("/sessions/{sessionID}/jump", JumpHandler(store))
	r.Post("/sessions/{sessionID}/pause", PauseHandler(store, timers))
	r.Post("/sessions/{sessionID}/resume", ResumeHandler(store, timers))
	r.Get("/sessions/{sessionID}/progress", ProgressHandler(store, timers))
	r.Post("/sessions/{sessionID}/finalize", FinalizeHandler(store, timers, nil))
	return r, store, timers
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(buf)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if out != nil && w.Code < 300 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, w.Body.String())
		}
	}
	return w
}

func testTemplate() audit.Template {
	return audit.Template{
		ID:    "tpl-http",
		Title: "Cold storage audit",
		Sections: []audit.Section{
			{ID: "s1", Title: "Temperature", Questions: []audit.Question{
				{ID: "q1", Text: "Freezer below -18C?", Type: audit.TypePassFail, Weight: 2},
				{ID: "q2", Text: "Door seals intact?", Type: audit.TypeYesNo, Weight: 2},
			}},
		},
	}
}

func TestSessionFlowOverHTTP(t *testing.T) {
	r, _, timers := testRouter(t)

	if w := doJSON(t, r, "POST", "/templates", testTemplate(), nil); w.Code != 200 {
		t.Fatalf("put template: %d %s", w.Code, w.Body.String())
	}

	var sess audit.Session
	w := doJSON(t, r, "POST", "/sessions",
		map[string]string{"template_id": "tpl-http", "user_id": "inspector-1"}, &sess)
	if w.Code != 200 || sess.ID == "" {
		t.Fatalf("create session: %d %s", w.Code, w.Body.String())
	}
	if _, ok := timers.Get(sess.ID); !ok {
		t.Fatal("session timer not started")
	}

	w = doJSON(t, r, "POST", "/sessions/"+sess.ID+"/responses",
		map[string]interface{}{
			"q1": map[string]interface{}{"value": "pass"},
			"q2": map[string]interface{}{"value": "no", "notes": "gasket split"},
		}, &sess)
	if w.Code != 200 || len(sess.Responses) != 2 {
		t.Fatalf("save responses: %d %s", w.Code, w.Body.String())
	}

	var adv struct {
		audit.Session
		Complete bool `json:"complete"`
	}
	doJSON(t, r, "POST", "/sessions/"+sess.ID+"/advance", nil, &adv)
	if adv.Complete || adv.Question != 1 {
		t.Fatalf("advance: %+v", adv)
	}
	doJSON(t, r, "POST", "/sessions/"+sess.ID+"/advance", nil, &adv)
	if !adv.Complete {
		t.Fatal("second advance should signal completion")
	}

	var prog struct {
		Answered int    `json:"answered"`
		Total    int    `json:"total"`
		Elapsed  string `json:"elapsed"`
	}
	doJSON(t, r, "GET", "/sessions/"+sess.ID+"/progress", nil, &prog)
	if prog.Answered != 2 || prog.Total != 2 {
		t.Fatalf("progress: %+v", prog)
	}
	if !strings.Contains(prog.Elapsed, ":") {
		t.Fatalf("elapsed clock: %q", prog.Elapsed)
	}

	var final audit.Session
	w = doJSON(t, r, "POST", "/sessions/"+sess.ID+"/finalize", nil, &final)
	if w.Code != 200 || final.Result == nil {
		t.Fatalf("finalize: %d %s", w.Code, w.Body.String())
	}
	if final.Result.Score != 50 || final.Result.Passed {
		t.Fatalf("result: %+v", final.Result)
	}
	if len(final.Result.Findings) != 1 {
		t.Fatalf("findings: %+v", final.Result.Findings)
	}
	if _, ok := timers.Get(sess.ID); ok {
		t.Fatal("timer survived finalize")
	}

	// finalized session rejects further mutation
	if w := doJSON(t, r, "POST", "/sessions/"+sess.ID+"/responses",
		map[string]interface{}{"q1": map[string]interface{}{"value": "fail"}}, nil); w.Code != 400 {
		t.Fatalf("mutation after finalize: %d", w.Code)
	}
}

func TestPauseResumeOverHTTP(t *testing.T) {
	r, _, timers := testRouter(t)
	doJSON(t, r, "POST", "/templates", testTemplate(), nil)

	var sess audit.Session
	doJSON(t, r, "POST", "/sessions",
		map[string]string{"template_id": "tpl-http", "user_id": "u"}, &sess)

	tm, _ := timers.Get(sess.ID)
	tm.Tick()
	tm.Tick()

	var paused audit.Session
	doJSON(t, r, "POST", "/sessions/"+sess.ID+"/pause", nil, &paused)
	if !paused.Paused || paused.ElapsedSec != 2 {
		t.Fatalf("paused session: %+v", paused)
	}
	tm.Tick() // fires while paused, must not count
	if tm.Elapsed() != 2 {
		t.Fatalf("tick while paused counted: %d", tm.Elapsed())
	}

	var resumed audit.Session
	doJSON(t, r, "POST", "/sessions/"+sess.ID+"/resume", nil, &resumed)
	if resumed.Paused {
		t.Fatalf("resumed session: %+v", resumed)
	}
	tm.Tick()
	if tm.Elapsed() != 3 {
		t.Fatalf("elapsed after resume: %d", tm.Elapsed())
	}
}

func TestJumpHandlerValidation(t *testing.T) {
	r, _, _ := testRouter(t)
	doJSON(t, r, "POST", "/templates", testTemplate(), nil)

	var sess audit.Session
	doJSON(t, r, "POST", "/sessions",
		map[string]string{"template_id": "tpl-http", "user_id": "u"}, &sess)

	// out-of-range section jump: 200 with unchanged cursor
	var after audit.Session
	w := doJSON(t, r, "POST", "/sessions/"+sess.ID+"/jump",
		map[string]int{"section": 9}, &after)
	if w.Code != 200 || after.Section != 0 {
		t.Fatalf("oob jump: %d %+v", w.Code, after)
	}

	// neither field present
	if w := doJSON(t, r, "POST", "/sessions/"+sess.ID+"/jump",
		map[string]string{}, nil); w.Code != 400 {
		t.Fatalf("empty jump: %d", w.Code)
	}

	w = doJSON(t, r, "POST", "/sessions/"+sess.ID+"/jump",
		map[string]int{"question": 1}, &after)
	if w.Code != 200 || after.Question != 1 {
		t.Fatalf("question jump: %d %+v", w.Code, after)
	}
}

func TestTemplateValidationOverHTTP(t *testing.T) {
	r, _, _ := testRouter(t)
	bad := testTemplate()
	bad.Sections[0].Questions[1].ID = "q1" // duplicate
	if w := doJSON(t, r, "POST", "/templates", bad, nil); w.Code != 400 {
		t.Fatalf("duplicate ids accepted: %d", w.Code)
	}
	if w := doJSON(t, r, "GET", "/templates/nope", nil, nil); w.Code != 404 {
		t.Fatalf("missing template: %d", w.Code)
	}
}
