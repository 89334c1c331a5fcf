// Package synthesis turns a selected agent, the user query and the retrieved
// fragments into a grounded, structured answer.
package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ragline/ragline/internal/core/domain"
	"github.com/ragline/ragline/internal/core/ports"
)

type Synthesizer struct {
	completer ports.ChatCompleter
}

func New(completer ports.ChatCompleter) *Synthesizer {
	return &Synthesizer{completer: completer}
}

// structuredAnswer is the response schema JSON-mode agents must follow.
type structuredAnswer struct {
	Main      string   `json:"main"`
	NextSteps []string `json:"next_steps"`
}

// Synthesize invokes the provider with the agent's own model, temperature and
// output budget. No value comes from a global default. An empty fragment list
// still produces an answer, grounded on the fixed no-documents block.
func (s *Synthesizer) Synthesize(
	ctx context.Context,
	agent domain.Agent,
	query string,
	fragments []domain.RetrievedFragment,
) (*domain.Answer, error) {
	req := ports.ChatRequest{
		Model:          agent.Model,
		Temperature:    agent.Temperature,
		MaxTokens:      agent.MaxTokens,
		ResponseFormat: agent.ResponseFormat,
		Messages:       buildMessages(agent, query, fragments),
	}

	raw, err := s.completer.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("complete chat: %w", err)
	}

	answer, err := parseAnswer(agent, raw)
	if err != nil {
		// Keep the raw output for diagnosis; it is never shown to the
		// user as the answer.
		slog.Error("synthesis output failed schema parse",
			"agent", agent.Name,
			"model", agent.Model,
			"raw_output", raw,
		)
		return nil, err
	}

	answer.SelectedAgentID = agent.ID
	answer.Sources = fragments
	return answer, nil
}

func parseAnswer(agent domain.Agent, raw string) (*domain.Answer, error) {
	if agent.ResponseFormat == domain.ResponseFormatText {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return nil, domain.WrapError(domain.ErrSynthesisFormat, "parse answer",
				fmt.Errorf("provider returned empty output"))
		}
		return &domain.Answer{Main: trimmed}, nil
	}

	var parsed structuredAnswer
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, domain.WrapError(domain.ErrSynthesisFormat, "parse answer", err)
	}
	if strings.TrimSpace(parsed.Main) == "" {
		return nil, domain.WrapError(domain.ErrSynthesisFormat, "parse answer",
			fmt.Errorf("response is missing the 'main' field"))
	}
	return &domain.Answer{Main: parsed.Main, NextSteps: parsed.NextSteps}, nil
}
