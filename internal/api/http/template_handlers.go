package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub003/internal/audit"

	"github.com/go-chi/chi/v5"
)

func PutTemplateHandler(store audit.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var t audit.Template
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if err := store.PutTemplate(t); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		_ = json.NewEncoder(w).Encode(t)
	}
}

func GetTemplateHandler(store audit.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "templateID")
		t, err := store.GetTemplate(id)
		if err != nil {
			http.Error(w, err.Error(), 404)
			return
		}
		_ = json.NewEncoder(w).Encode(t)
	}
}

func ListTemplatesHandler(store audit.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := audit.ListOpts{
			Q:      r.URL.Query().Get("q"),
			Limit:  atoiOr(r.URL.Query().Get("limit"), 50),
			Offset: atoiOr(r.URL.Query().Get("offset"), 0),
		}
		out, err := store.ListTemplates(r.Context(), opts)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
