package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(CORS, Instrument)
	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)
	return r
}

// DocumentRoutes serves /upload-url, /list and /summary.
func (h *Handler) DocumentRoutes() http.Handler {
	r := newRouter()
	h.mountDocuments(r)
	return r
}

// ChatRoutes serves the chat endpoint at both / and /chat, so the handler can
// be deployed on its own URL.
func (h *Handler) ChatRoutes() http.Handler {
	r := newRouter()
	r.Post("/", h.Chat)
	r.Post("/chat", h.Chat)
	return r
}

// Routes serves every route plus /process, /healthz and /metrics.
func (h *Handler) Routes() http.Handler {
	r := newRouter()
	h.mountDocuments(r)
	r.Post("/chat", h.Chat)
	r.Post("/process", h.Process)
	r.Get("/healthz", h.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func (h *Handler) mountDocuments(r chi.Router) {
	r.Post("/upload-url", h.UploadURL)
	r.Get("/list", h.List)
	r.Get("/summary", h.Summary)
}
