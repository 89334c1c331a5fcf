package domain

import (
	"errors"
	"strings"
	"time"
)

const (
	ResponseFormatJSON = "json_object"
	ResponseFormatText = "text"
)

// Agent is a named configuration of role instructions and model parameters.
// Behavior differs only in configuration, not algorithm, so there is one
// concrete type rather than a hierarchy.
type Agent struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	RoleSystemPrompt string    `json:"role_system_prompt"`
	Model            string    `json:"model"`
	Temperature      float64   `json:"temperature"`
	MaxTokens        int       `json:"max_tokens"`
	ResponseFormat   string    `json:"response_format"`
	SelectionRules   []Rule    `json:"selection_rules"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Validate enforces the bounds agents must satisfy before being stored.
func (a *Agent) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return WrapError(ErrInvalidParameter, "validate agent", errors.New("name is required"))
	}
	if strings.TrimSpace(a.RoleSystemPrompt) == "" {
		return WrapError(ErrInvalidParameter, "validate agent", errors.New("role_system_prompt is required"))
	}
	if strings.TrimSpace(a.Model) == "" {
		return WrapError(ErrInvalidParameter, "validate agent", errors.New("model is required"))
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		return WrapError(ErrInvalidParameter, "validate agent", errors.New("temperature must be within [0, 2]"))
	}
	if a.MaxTokens <= 0 {
		return WrapError(ErrInvalidParameter, "validate agent", errors.New("max_tokens must be positive"))
	}
	switch a.ResponseFormat {
	case ResponseFormatJSON, ResponseFormatText:
	default:
		return WrapError(ErrInvalidParameter, "validate agent", errors.New("response_format must be json_object or text"))
	}
	for i := range a.SelectionRules {
		if err := a.SelectionRules[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
