package http

import (
	"encoding/json"
	"io"
	"net/http"
	"path"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub003/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// MountEvidence wires the evidence routes on the given (already
// authenticated) router. Uploads return an opaque key the client puts
// into a response's photos list or signature field; content is never
// inspected here.
func MountEvidence(r chi.Router, bs storage.BlobStore) {
	r.Post("/", UploadEvidenceHandler(bs))
	r.Get("/{key}", GetEvidenceHandler(bs))
	r.Get("/{key}/url", SignedURLHandler(bs))
}

func UploadEvidenceHandler(bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file field required", 400)
			return
		}
		defer f.Close()

		key := uuid.NewString() + path.Ext(hdr.Filename)
		ct := hdr.Header.Get("Content-Type")
		stored, err := bs.Put(r.Context(), key, f, hdr.Size, ct)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"key": stored})
	}
}

func GetEvidenceHandler(bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		rc, err := bs.Get(r.Context(), key)
		if err != nil {
			http.Error(w, "not found", 404)
			return
		}
		defer rc.Close()
		_, _ = io.Copy(w, rc)
	}
}

func SignedURLHandler(bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		u, err := bs.SignedURL(r.Context(), key)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"url": u})
	}
}
