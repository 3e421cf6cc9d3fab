// Package api exposes the document services over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/documentqaflow/internal/events"
	"github.com/Lllllllleong/documentqaflow/internal/models"
	"github.com/Lllllllleong/documentqaflow/internal/services"
)

// maxBodyBytes bounds JSON request bodies; none of them carries document content.
const maxBodyBytes = 1 << 20

// Handler serves the document routes from one Runtime.
type Handler struct {
	rt *services.Runtime
}

func NewHandler(rt *services.Runtime) *Handler {
	return &Handler{rt: rt}
}

func (h *Handler) UploadURL(w http.ResponseWriter, r *http.Request) {
	var req models.UploadURLRequest
	if !decodeBody(w, r, &req) {
		return
	}
	grant, err := h.rt.Ingestion.RequestUpload(r.Context(), req.UserID, req.Filename)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.UploadURLResponse{UploadURL: grant.URL, FileID: grant.ID.Key})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.rt.List.List(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ListResponse{Files: docs})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.rt.Status.Summary(r.Context(), q.Get("user_id"), q.Get("file_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.rt.Query.Ask(r.Context(), services.QueryRequest{
		DocumentID: req.FileID,
		Question:   req.Question,
		OwnerID:    req.UserID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ChatResponse{Answer: res.Answer})
}

// Process is the push-style trigger: the key arrives percent-encoded and is
// decoded before the pipeline sees it.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	var req models.ProcessRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Key == "" {
		writeError(w, &services.ValidationError{Field: "key"})
		return
	}
	key, err := events.DecodeKey(req.Key)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	bucket := req.Bucket
	if bucket == "" {
		bucket = h.rt.Processor.UploadBucket()
	}

	res, err := h.rt.Processor.Process(r.Context(), bucket, key)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := models.ProcessResponse{
		Status:     res.Status,
		DocumentID: res.ID.Key,
		OwnerID:    res.ID.OwnerID,
		Recorded:   res.Recorded,
		Skipped:    res.Skipped,
	}
	if res.Cause != nil {
		resp.Error = res.Cause.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeErrorMessage(w, http.StatusNotFound, "Not Found")
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeErrorMessage(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, services.ErrValidation) {
		status = http.StatusBadRequest
	} else {
		slog.Error("Request failed", "error", err)
	}
	writeErrorMessage(w, status, err.Error())
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
