// Package selection picks exactly one agent per request by evaluating each
// agent's declarative rules against retrieved-fragment metadata and the query.
package selection

import (
	"errors"
	"log/slog"

	"github.com/ragline/ragline/internal/core/domain"
)

// Match reports which agent was selected and the rule that matched it.
type Match struct {
	Agent       domain.Agent
	MatchedRule domain.Rule
}

// Select evaluates every agent's selection rules against the retrieval result
// set and the query. An agent matches when at least one of its rules evaluates
// true. Zero matches fail with ErrNoAgentMatched: there is no implicit default
// agent. When several agents match, the agent whose matching rule constrains
// the most leaf predicates wins; ties fall to the lowest agent id, so the
// choice is reproducible across repeated calls.
func Select(agents []domain.Agent, fragments []domain.RetrievedFragment, query string) (*Match, error) {
	if len(agents) == 0 {
		return nil, domain.WrapError(domain.ErrNoAgentMatched, "select agent",
			errors.New("no agents configured in registry"))
	}

	input := domain.RuleInput{
		DocTypes: domain.DocTypes(fragments),
		Query:    query,
	}

	var best *Match
	bestSpecificity := -1
	for _, agent := range agents {
		rule, ok := bestMatchingRule(agent.SelectionRules, input)
		if !ok {
			continue
		}
		specificity := rule.Specificity()
		if specificity > bestSpecificity || (specificity == bestSpecificity && agent.ID < best.Agent.ID) {
			best = &Match{Agent: agent, MatchedRule: rule}
			bestSpecificity = specificity
		}
	}

	if best == nil {
		slog.Warn("no selection rules matched", "agents", len(agents), "doc_types", input.DocTypes)
		return nil, domain.WrapError(domain.ErrNoAgentMatched, "select agent",
			errors.New("configure a matching rule for at least one agent"))
	}

	slog.Debug("selected agent", "agent", best.Agent.Name, "specificity", bestSpecificity)
	return best, nil
}

// bestMatchingRule returns the most specific of the agent's rules that
// evaluates true.
func bestMatchingRule(rules []domain.Rule, input domain.RuleInput) (domain.Rule, bool) {
	var best domain.Rule
	bestSpecificity := -1
	for _, rule := range rules {
		if !rule.Eval(input) {
			continue
		}
		if s := rule.Specificity(); s > bestSpecificity {
			best = rule
			bestSpecificity = s
		}
	}
	return best, bestSpecificity >= 0
}
