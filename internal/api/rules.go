package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mossburn/greenhouse-core/internal/automation"
)

// handleListRules returns all explicit control rules.
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.deps.Rules.List(r.Context())
	if err != nil {
		s.logger.Error("list rules failed", "error", err)
		writeInternalError(w, "failed to list rules")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

// handleGetRule returns a single rule by ID.
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rule, err := s.deps.Rules.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, automation.ErrRuleNotFound) {
			writeNotFound(w, "rule not found")
			return
		}
		s.logger.Error("get rule failed", "error", err)
		writeInternalError(w, "failed to get rule")
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// handleCreateRule creates an explicit sensor-to-actuator control rule.
// An explicit rule takes precedence over a device's own sensor binding
// for the same pair.
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var rule automation.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if err := rule.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidationError, err.Error())
		return
	}

	if err := s.deps.Rules.Create(r.Context(), &rule); err != nil {
		if errors.Is(err, automation.ErrRuleExists) {
			writeConflict(w, "a rule for this sensor/actuator pair already exists")
			return
		}
		s.logger.Error("create rule failed", "error", err)
		writeInternalError(w, "failed to create rule")
		return
	}

	s.logger.Info("rule created", "sensor", rule.SensorName, "actuator", rule.ActuatorName, "logic", rule.ControlLogic)
	writeJSON(w, http.StatusCreated, rule)
}

// handleUpdateRule replaces a rule's parameters.
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := s.deps.Rules.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, automation.ErrRuleNotFound) {
			writeNotFound(w, "rule not found")
			return
		}
		s.logger.Error("get rule for update failed", "error", err)
		writeInternalError(w, "failed to update rule")
		return
	}

	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id

	if err := existing.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidationError, err.Error())
		return
	}

	if err := s.deps.Rules.Update(r.Context(), existing); err != nil {
		if errors.Is(err, automation.ErrRuleNotFound) {
			writeNotFound(w, "rule not found")
			return
		}
		s.logger.Error("update rule failed", "error", err)
		writeInternalError(w, "failed to update rule")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteRule removes a rule by ID.
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.deps.Rules.Delete(r.Context(), id); err != nil {
		if errors.Is(err, automation.ErrRuleNotFound) {
			writeNotFound(w, "rule not found")
			return
		}
		s.logger.Error("delete rule failed", "error", err)
		writeInternalError(w, "failed to delete rule")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
