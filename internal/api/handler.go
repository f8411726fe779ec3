// Package api exposes agents and conversations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/nworb999/stable-genius/internal/agent"
	"github.com/nworb999/stable-genius/internal/conversation"
	"github.com/nworb999/stable-genius/internal/events"
	"github.com/nworb999/stable-genius/internal/psyche"
	"github.com/nworb999/stable-genius/internal/relation"
	"github.com/nworb999/stable-genius/internal/store"
)

// Handler holds dependencies for HTTP handlers. bus and graph are optional;
// their endpoints degrade when the backend is not configured.
type Handler struct {
	agents *agent.Manager
	arena  *conversation.Arena
	psyche store.PsycheStore
	bus    *events.Bus
	graph  *relation.Graph
	logger *zap.Logger
}

// NewHandler creates a new API handler. bus and graph may be nil.
func NewHandler(agents *agent.Manager, arena *conversation.Arena, ps store.PsycheStore,
	bus *events.Bus, graph *relation.Graph, logger *zap.Logger) *Handler {
	return &Handler{agents: agents, arena: arena, psyche: ps, bus: bus, graph: graph, logger: logger}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)

		r.Get("/agents", h.listAgents)
		r.Post("/agents", h.createAgent)
		r.Get("/agents/{name}", h.getAgent)
		r.Post("/agents/{name}/message", h.messageAgent)
		r.Post("/agents/{name}/reset", h.resetAgent)
		r.Get("/agents/{name}/relationships", h.agentRelationships)
		r.Get("/agents/{name}/events", h.streamEvents)

		r.Get("/conversations", h.listConversations)
		r.Post("/conversations", h.startConversation)
		r.Get("/conversations/{id}", h.getConversation)
		r.Post("/conversations/{id}/stop", h.stopConversation)
		r.Delete("/conversations/{id}", h.removeConversation)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "stable-genius"})
}

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	names, err := h.psyche.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

type createAgentRequest struct {
	Name        string `json:"name"`
	Personality string `json:"personality"`
}

func (h *Handler) createAgent(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	a, err := h.agents.Get(r.Context(), req.Name, req.Personality)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	psy, err := a.Psyche(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, psy)
}

func (h *Handler) getAgent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	psy, err := h.psyche.Load(r.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, psy)
}

type messageRequest struct {
	Message string `json:"message"`
	Sender  string `json:"sender,omitempty"`
}

func (h *Handler) messageAgent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	a, ok := h.agents.Lookup(name)
	if !ok {
		// Agents are addressable once their psyche exists, even across restarts.
		if _, err := h.psyche.Load(r.Context(), name); err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
			return
		}
		var err error
		a, err = h.agents.Get(r.Context(), name, "")
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}

	turn, err := a.Receive(r.Context(), req.Message, req.Sender)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func (h *Handler) resetAgent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	a, ok := h.agents.Lookup(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	if err := a.Reset(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// agentRelationships lists the agent's familiarity edges. The Neo4j graph
// answers when configured; otherwise the psyche, which is the source of
// truth, serves the same shape.
func (h *Handler) agentRelationships(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if h.graph != nil {
		edges, err := h.graph.Edges(r.Context(), name)
		if err == nil {
			if edges == nil {
				edges = []*relation.Edge{}
			}
			writeJSON(w, http.StatusOK, edges)
			return
		}
		h.logger.Warn("relation graph query failed, answering from psyche", zap.Error(err))
	}

	psy, err := h.psyche.Load(r.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	edges := make([]*relation.Edge, 0, len(psy.Relationships))
	for peer, rel := range psy.Relationships {
		edges = append(edges, &relation.Edge{
			From:        psyche.Key(name),
			To:          psyche.Key(peer),
			Familiarity: rel.Familiarity,
		})
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].To < edges[j].To })
	writeJSON(w, http.StatusOK, edges)
}

// streamEvents tails the agent's pipeline event stream as server-sent
// events until the client disconnects.
func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "event streaming not configured"})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range h.bus.Subscribe(r.Context(), chi.URLParam(r, "name")) {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}

func (h *Handler) listConversations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.arena.List())
}

type startConversationRequest struct {
	AgentA       string `json:"agent_a"`
	PersonalityA string `json:"personality_a,omitempty"`
	AgentB       string `json:"agent_b"`
	PersonalityB string `json:"personality_b,omitempty"`
	Opener       string `json:"opener"`
	Rounds       int    `json:"rounds"`
}

func (h *Handler) startConversation(w http.ResponseWriter, r *http.Request) {
	var req startConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.AgentA == "" || req.AgentB == "" || req.Opener == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "agent_a, agent_b and opener are required"})
		return
	}
	if req.Rounds <= 0 {
		req.Rounds = 6
	}

	a, err := h.agents.Get(r.Context(), req.AgentA, req.PersonalityA)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	b, err := h.agents.Get(r.Context(), req.AgentB, req.PersonalityB)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	// Runs beyond the request lifetime; detach from the request context.
	conv := h.arena.Start(context.Background(), a, b, req.Opener, req.Rounds)
	writeJSON(w, http.StatusCreated, conv.Snapshot())
}

func (h *Handler) getConversation(w http.ResponseWriter, r *http.Request) {
	snap, err := h.arena.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) stopConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.arena.Stop(chi.URLParam(r, "id")); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

func (h *Handler) removeConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.arena.Remove(chi.URLParam(r, "id")); err != nil {
		status := http.StatusNotFound
		if !errors.Is(err, conversation.ErrConversationNotFound) {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
