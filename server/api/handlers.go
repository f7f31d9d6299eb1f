package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/compose-network/courier/x/transport"
)

// StatsFunc contributes extra fields to the /stats response.
type StatsFunc func() map[string]any

// Handler serves health, readiness and the topic/service graph of a transport.
type Handler struct {
	inspector transport.Inspector
	log       zerolog.Logger
	started   time.Time
	ready     func() bool
	stats     StatsFunc
}

type HandlerOption func(*Handler)

// WithReadiness overrides the readiness check, which defaults to always ready.
func WithReadiness(ready func() bool) HandlerOption {
	return func(h *Handler) { h.ready = ready }
}

// WithStats adds fields to /stats.
func WithStats(fn StatsFunc) HandlerOption {
	return func(h *Handler) { h.stats = fn }
}

func NewHandler(inspector transport.Inspector, log zerolog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		inspector: inspector,
		log:       log.With().Str("component", "api-handler").Logger(),
		started:   time.Now(),
		ready:     func() bool { return true },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterMux mounts the handler routes on r.
func (h *Handler) RegisterMux(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/stats", h.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/topics", h.handleTopics).Methods(http.MethodGet)
	r.HandleFunc("/topics/{name}", h.handleTopic).Methods(http.MethodGet)
	r.HandleFunc("/services", h.handleServices).Methods(http.MethodGet)
	r.HandleFunc("/services/{name}", h.handleService).Methods(http.MethodGet)
}

func (h *Handler) uptime() string {
	return time.Since(h.started).Round(time.Second).String()
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": h.uptime(),
	})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if !h.ready() {
		h.log.Debug().Str("remote_addr", r.RemoteAddr).Msg("Readiness check failed")
		WriteError(w, r, http.StatusServiceUnavailable, "not_ready", "transport is not ready", nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (h *Handler) handleStats(w http.ResponseWriter, _ *http.Request) {
	topics := h.inspector.Topics()
	services := h.inspector.Services()

	var publishers, subscribers, instances int
	for _, t := range topics {
		publishers += t.Publishers
		subscribers += t.Subscribers
	}
	for _, s := range services {
		instances += len(s.Instances)
	}

	out := map[string]any{
		"uptime":            h.uptime(),
		"topics":            len(topics),
		"publishers":        publishers,
		"subscribers":       subscribers,
		"services":          len(services),
		"service_instances": instances,
	}
	if h.stats != nil {
		for k, v := range h.stats() {
			out[k] = v
		}
	}
	WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleTopics(w http.ResponseWriter, _ *http.Request) {
	topics := h.inspector.Topics()
	if topics == nil {
		topics = []transport.TopicInfo{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"topics": topics})
}

func (h *Handler) handleTopic(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	for _, t := range h.inspector.Topics() {
		if t.Name == name {
			WriteJSON(w, http.StatusOK, t)
			return
		}
	}
	WriteError(w, r, http.StatusNotFound, "topic_not_found", "unknown topic", map[string]string{"topic": name})
}

func (h *Handler) handleServices(w http.ResponseWriter, _ *http.Request) {
	services := h.inspector.Services()
	if services == nil {
		services = []transport.ServiceInfo{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"services": services})
}

func (h *Handler) handleService(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	for _, s := range h.inspector.Services() {
		if s.Name == name {
			WriteJSON(w, http.StatusOK, s)
			return
		}
	}
	WriteError(w, r, http.StatusNotFound, "service_not_found", "unknown service", map[string]string{"service": name})
}
