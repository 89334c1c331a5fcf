package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ragline/ragline/internal/core/domain"
)

type agentRequest struct {
	Name             string        `json:"name"`
	Description      string        `json:"description"`
	RoleSystemPrompt string        `json:"role_system_prompt"`
	Model            string        `json:"model"`
	Temperature      float64       `json:"temperature"`
	MaxTokens        int           `json:"max_tokens"`
	ResponseFormat   string        `json:"response_format"`
	SelectionRules   []domain.Rule `json:"selection_rules"`
}

func (req *agentRequest) toDomain() *domain.Agent {
	return &domain.Agent{
		Name:             req.Name,
		Description:      req.Description,
		RoleSystemPrompt: req.RoleSystemPrompt,
		Model:            req.Model,
		Temperature:      req.Temperature,
		MaxTokens:        req.MaxTokens,
		ResponseFormat:   req.ResponseFormat,
		SelectionRules:   req.SelectionRules,
	}
}

func (rt *Router) agents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.createAgent(w, r)
	case http.MethodGet:
		rt.listAgents(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (rt *Router) createAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	agent := req.toDomain()
	if err := rt.registry.Create(r.Context(), agent); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, agent)
}

func (rt *Router) listAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := rt.registry.ListByID(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

func (rt *Router) agentByID(w http.ResponseWriter, r *http.Request) {
	rawID := strings.TrimPrefix(r.URL.Path, "/v1/agents/")
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "agent id must be a positive integer")
		return
	}

	switch r.Method {
	case http.MethodGet:
		agent, err := rt.registry.GetByID(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, agent)
	case http.MethodPut:
		var req agentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		agent := req.toDomain()
		agent.ID = id
		if err := rt.registry.Update(r.Context(), agent); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, agent)
	case http.MethodDelete:
		if err := rt.registry.Delete(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
