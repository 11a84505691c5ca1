package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/askdocs/askdocs/internal/core/domain"
	"github.com/askdocs/askdocs/internal/core/ports"
)

// TrafficConfig bounds concurrent load before a request reaches the
// pipeline.
type TrafficConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	InFlightWait   time.Duration
}

type Router struct {
	answerer ports.QueryAnswerer
	docs     ports.DocumentStore
	log      *slog.Logger

	traffic        TrafficConfig
	metricsHandler http.Handler
	instrument     func(http.Handler) http.Handler
}

type RouterOption func(*Router)

func WithTraffic(cfg TrafficConfig) RouterOption {
	return func(rt *Router) { rt.traffic = cfg }
}

func WithMetricsHandler(h http.Handler) RouterOption {
	return func(rt *Router) { rt.metricsHandler = h }
}

// WithInstrumentation wraps the routed handler, below traffic control, so
// rejected requests are still counted.
func WithInstrumentation(wrap func(http.Handler) http.Handler) RouterOption {
	return func(rt *Router) { rt.instrument = wrap }
}

func NewRouter(answerer ports.QueryAnswerer, docs ports.DocumentStore, log *slog.Logger, opts ...RouterOption) *Router {
	rt := &Router{
		answerer: answerer,
		docs:     docs,
		log:      log,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/query", rt.query)
	mux.HandleFunc("/v1/query/stream", rt.queryStream)
	mux.HandleFunc("/v1/documents", rt.listDocuments)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	if rt.metricsHandler != nil {
		mux.Handle("/metrics", rt.metricsHandler)
	}

	var handler http.Handler = mux
	if rt.instrument != nil {
		handler = rt.instrument(handler)
	}
	if rt.traffic.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.traffic.MaxInFlight, rt.traffic.InFlightWait)
	}
	if rt.traffic.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.traffic.RateLimitRPS, rt.traffic.RateLimitBurst)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	req, ok := rt.decodeQueryRequest(w, r)
	if !ok {
		return
	}

	resp, err := rt.answerer.Answer(r.Context(), req)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) queryStream(w http.ResponseWriter, r *http.Request) {
	req, ok := rt.decodeQueryRequest(w, r)
	if !ok {
		return
	}

	stream, err := newSSEWriter(w)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	resp, err := rt.answerer.AnswerStream(r.Context(), req, func(chunk string) error {
		return stream.sendEvent("delta", map[string]string{"text": chunk})
	})
	if err != nil {
		// Headers are already out: deliver the failure on the stream.
		_ = stream.sendEvent("error", map[string]string{
			"error":      err.Error(),
			"suggestion": domain.Suggestion(err),
		})
		return
	}
	_ = stream.sendEvent("done", resp)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}

	docs, err := rt.docs.ListByUser(r.Context(), userID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) decodeQueryRequest(w http.ResponseWriter, r *http.Request) (domain.QueryRequest, bool) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return domain.QueryRequest{}, false
	}

	var req domain.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return domain.QueryRequest{}, false
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return domain.QueryRequest{}, false
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return domain.QueryRequest{}, false
	}
	return req, true
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		rt.log.Error("request failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}

	body := map[string]string{"error": err.Error()}
	if suggestion := domain.Suggestion(err); suggestion != "" {
		body["suggestion"] = suggestion
	}
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "60")
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
