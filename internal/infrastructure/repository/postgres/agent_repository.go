package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ragline/ragline/internal/core/domain"
)

type AgentRepository struct {
	db *sql.DB
}

func NewAgentRepository(db *sql.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

func (r *AgentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083102)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS agents (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	role_system_prompt TEXT NOT NULL,
	model TEXT NOT NULL,
	temperature DOUBLE PRECISION NOT NULL,
	max_tokens INT NOT NULL,
	response_format TEXT NOT NULL,
	selection_rules JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *AgentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	if err := agent.Validate(); err != nil {
		return err
	}
	rulesJSON, err := json.Marshal(agent.SelectionRules)
	if err != nil {
		return fmt.Errorf("marshal selection rules: %w", err)
	}

	now := time.Now().UTC()
	agent.CreatedAt = now
	agent.UpdatedAt = now

	row := r.db.QueryRowContext(ctx, `
INSERT INTO agents (
	name, description, role_system_prompt, model, temperature, max_tokens, response_format, selection_rules, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id
`,
		agent.Name, agent.Description, agent.RoleSystemPrompt, agent.Model, agent.Temperature,
		agent.MaxTokens, agent.ResponseFormat, rulesJSON, agent.CreatedAt, agent.UpdatedAt,
	)
	if err := row.Scan(&agent.ID); err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

func (r *AgentRepository) GetByID(ctx context.Context, id int64) (*domain.Agent, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, description, role_system_prompt, model, temperature, max_tokens, response_format, selection_rules, created_at, updated_at
FROM agents
WHERE id = $1
`, id)

	agent, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAgentNotFound, "get agent",
				fmt.Errorf("id %d", id))
		}
		return nil, fmt.Errorf("scan agent: %w", err)
	}
	return agent, nil
}

// ListByID returns every agent ordered by ascending id. Selection depends on
// this ordering for its deterministic tie-break.
func (r *AgentRepository) ListByID(ctx context.Context) ([]domain.Agent, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, description, role_system_prompt, model, temperature, max_tokens, response_format, selection_rules, created_at, updated_at
FROM agents
ORDER BY id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer rows.Close()

	var agents []domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, *agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}
	return agents, nil
}

func (r *AgentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	if err := agent.Validate(); err != nil {
		return err
	}
	rulesJSON, err := json.Marshal(agent.SelectionRules)
	if err != nil {
		return fmt.Errorf("marshal selection rules: %w", err)
	}

	agent.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
UPDATE agents
SET name = $2, description = $3, role_system_prompt = $4, model = $5, temperature = $6,
	max_tokens = $7, response_format = $8, selection_rules = $9, updated_at = $10
WHERE id = $1
`,
		agent.ID, agent.Name, agent.Description, agent.RoleSystemPrompt, agent.Model,
		agent.Temperature, agent.MaxTokens, agent.ResponseFormat, rulesJSON, agent.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrAgentNotFound, "update agent",
			fmt.Errorf("id %d", agent.ID))
	}
	return nil
}

func (r *AgentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrAgentNotFound, "delete agent",
			fmt.Errorf("id %d", id))
	}
	return nil
}

func (r *AgentRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count agents: %w", err)
	}
	return count, nil
}

func scanAgent(row rowScanner) (*domain.Agent, error) {
	var agent domain.Agent
	var rulesRaw []byte

	err := row.Scan(
		&agent.ID, &agent.Name, &agent.Description, &agent.RoleSystemPrompt, &agent.Model,
		&agent.Temperature, &agent.MaxTokens, &agent.ResponseFormat, &rulesRaw,
		&agent.CreatedAt, &agent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(rulesRaw) > 0 {
		if err := json.Unmarshal(rulesRaw, &agent.SelectionRules); err != nil {
			return nil, fmt.Errorf("unmarshal selection rules: %w", err)
		}
	}
	return &agent, nil
}
