// Package seed provisions the default agent registry on first start. The
// built-in seed ships two agents, one per document category; an operator can
// replace it with a YAML file of their own.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ragline/ragline/internal/core/domain"
	"github.com/ragline/ragline/internal/core/ports"
)

const defaultSeed = `
agents:
  - name: documentation
    description: Answers questions grounded in product documentation.
    role_system_prompt: |
      You are a support specialist for this product. Answer strictly from the
      retrieved documentation fragments. If the documents do not cover the
      question, say so explicitly instead of guessing.
      Respond in compact JSON with keys 'main' and 'next_steps'.
    model: gpt-4o
    temperature: 0.2
    max_tokens: 1500
    response_format: json_object
    selection_rules:
      - op: doc_type_in
        values: [documentation]
  - name: course
    description: Guides learners through course materials.
    role_system_prompt: |
      You are a course tutor. Answer using only the retrieved course
      fragments, reference the module a fragment came from when you can, and
      keep the tone encouraging.
      Respond in compact JSON with keys 'main' and 'next_steps'.
    model: gpt-4o
    temperature: 0.4
    max_tokens: 1500
    response_format: json_object
    selection_rules:
      - op: any_of
        rules:
          - op: doc_type_in
            values: [course]
          - op: query_contains_any
            values: [lesson, module, course, enroll]
`

type seedFile struct {
	Agents []seedAgent `yaml:"agents"`
}

type seedAgent struct {
	Name             string     `yaml:"name"`
	Description      string     `yaml:"description"`
	RoleSystemPrompt string     `yaml:"role_system_prompt"`
	Model            string     `yaml:"model"`
	Temperature      float64    `yaml:"temperature"`
	MaxTokens        int        `yaml:"max_tokens"`
	ResponseFormat   string     `yaml:"response_format"`
	SelectionRules   []seedRule `yaml:"selection_rules"`
}

type seedRule struct {
	Op     string     `yaml:"op"`
	Values []string   `yaml:"values"`
	Rules  []seedRule `yaml:"rules"`
}

// Apply seeds the registry with default agents when it is empty. A populated
// registry is never touched: operator edits survive restarts.
func Apply(ctx context.Context, registry ports.AgentRegistry, path string) error {
	count, err := registry.Count(ctx)
	if err != nil {
		return fmt.Errorf("count agents: %w", err)
	}
	if count > 0 {
		slog.Debug("agent registry already populated", "agents", count)
		return nil
	}

	agents, err := loadAgents(path)
	if err != nil {
		return err
	}

	for i := range agents {
		if err := registry.Create(ctx, &agents[i]); err != nil {
			return fmt.Errorf("seed agent %q: %w", agents[i].Name, err)
		}
		slog.Info("seeded agent", "agent", agents[i].Name, "id", agents[i].ID)
	}
	return nil
}

func loadAgents(path string) ([]domain.Agent, error) {
	raw := []byte(defaultSeed)
	if path != "" {
		fileRaw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
		raw = fileRaw
	}

	var parsed seedFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse seed yaml: %w", err)
	}
	if len(parsed.Agents) == 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "load seed",
			fmt.Errorf("seed defines no agents"))
	}

	agents := make([]domain.Agent, 0, len(parsed.Agents))
	for _, sa := range parsed.Agents {
		agent := domain.Agent{
			Name:             sa.Name,
			Description:      sa.Description,
			RoleSystemPrompt: sa.RoleSystemPrompt,
			Model:            sa.Model,
			Temperature:      sa.Temperature,
			MaxTokens:        sa.MaxTokens,
			ResponseFormat:   sa.ResponseFormat,
			SelectionRules:   convertRules(sa.SelectionRules),
		}
		if err := agent.Validate(); err != nil {
			return nil, fmt.Errorf("seed agent %q: %w", sa.Name, err)
		}
		agents = append(agents, agent)
	}
	return agents, nil
}

func convertRules(rules []seedRule) []domain.Rule {
	if len(rules) == 0 {
		return nil
	}
	out := make([]domain.Rule, 0, len(rules))
	for _, rule := range rules {
		out = append(out, domain.Rule{
			Op:     domain.RuleOp(rule.Op),
			Values: rule.Values,
			Rules:  convertRules(rule.Rules),
		})
	}
	return out
}
