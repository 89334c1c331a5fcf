package selection

import (
	"testing"

	"github.com/ragline/ragline/internal/core/domain"
)

func docTypeRule(types ...string) domain.Rule {
	return domain.Rule{Op: domain.OpDocTypeIn, Values: types}
}

func fragments(docTypes ...string) []domain.RetrievedFragment {
	out := make([]domain.RetrievedFragment, 0, len(docTypes))
	for _, dt := range docTypes {
		out = append(out, domain.RetrievedFragment{DocType: dt})
	}
	return out
}

func TestSelectMutuallyExclusiveRulesDeterministic(t *testing.T) {
	agents := []domain.Agent{
		{ID: 1, Name: "policy", SelectionRules: []domain.Rule{docTypeRule("policy")}},
		{ID: 2, Name: "course", SelectionRules: []domain.Rule{docTypeRule("course")}},
	}

	for i := 0; i < 10; i++ {
		match, err := Select(agents, fragments("policy"), "anything")
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if match.Agent.Name != "policy" {
			t.Fatalf("run %d: expected policy agent, got %s", i, match.Agent.Name)
		}
	}
}

func TestSelectZeroMatchesNeverFallsBack(t *testing.T) {
	agents := []domain.Agent{
		{ID: 1, Name: "policy", SelectionRules: []domain.Rule{docTypeRule("policy")}},
		{ID: 2, Name: "course", SelectionRules: []domain.Rule{docTypeRule("course")}},
	}

	match, err := Select(agents, fragments("marketing"), "unrelated query")
	if err == nil {
		t.Fatalf("expected error, got match %+v", match)
	}
	if !domain.IsKind(err, domain.ErrNoAgentMatched) {
		t.Fatalf("expected ErrNoAgentMatched, got %v", err)
	}
}

func TestSelectEmptyRegistryFails(t *testing.T) {
	_, err := Select(nil, fragments("policy"), "q")
	if !domain.IsKind(err, domain.ErrNoAgentMatched) {
		t.Fatalf("expected ErrNoAgentMatched, got %v", err)
	}
}

func TestSelectMostSpecificRuleWins(t *testing.T) {
	broad := domain.Agent{ID: 1, Name: "broad", SelectionRules: []domain.Rule{docTypeRule("policy")}}
	narrow := domain.Agent{ID: 2, Name: "narrow", SelectionRules: []domain.Rule{{
		Op: domain.OpAllOf,
		Rules: []domain.Rule{
			docTypeRule("policy"),
			{Op: domain.OpQueryContainsAny, Values: []string{"retention"}},
		},
	}}}

	match, err := Select([]domain.Agent{broad, narrow}, fragments("policy"), "what is the retention policy?")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if match.Agent.Name != "narrow" {
		t.Fatalf("expected most specific rule to win, got %s", match.Agent.Name)
	}
	if match.MatchedRule.Specificity() != 2 {
		t.Fatalf("expected matched rule specificity 2, got %d", match.MatchedRule.Specificity())
	}
}

func TestSelectTieBrokenByLowestAgentID(t *testing.T) {
	a := domain.Agent{ID: 7, Name: "seven", SelectionRules: []domain.Rule{docTypeRule("policy")}}
	b := domain.Agent{ID: 3, Name: "three", SelectionRules: []domain.Rule{docTypeRule("policy")}}

	// Registry order intentionally lists the higher id first.
	match, err := Select([]domain.Agent{a, b}, fragments("policy"), "q")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if match.Agent.ID != 3 {
		t.Fatalf("expected lowest id to win the tie, got %d", match.Agent.ID)
	}
}

func TestSelectQueryKeywordRules(t *testing.T) {
	agents := []domain.Agent{
		{ID: 1, Name: "kw", SelectionRules: []domain.Rule{
			{Op: domain.OpQueryContainsAll, Values: []string{"setup", "Classifier"}},
		}},
	}

	if _, err := Select(agents, nil, "how do I SETUP a classifier?"); err != nil {
		t.Fatalf("expected case-insensitive keyword match, got %v", err)
	}
	if _, err := Select(agents, nil, "how do I setup scanning?"); !domain.IsKind(err, domain.ErrNoAgentMatched) {
		t.Fatalf("expected ErrNoAgentMatched when one keyword is absent, got %v", err)
	}
}

func TestSelectDoesNotMutateInputs(t *testing.T) {
	agents := []domain.Agent{
		{ID: 1, Name: "policy", SelectionRules: []domain.Rule{docTypeRule("policy")}},
	}
	frags := fragments("policy", "course")

	if _, err := Select(agents, frags, "q"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if agents[0].Name != "policy" || len(agents[0].SelectionRules) != 1 {
		t.Fatalf("agent mutated during selection")
	}
	if frags[0].DocType != "policy" || frags[1].DocType != "course" {
		t.Fatalf("fragments mutated during selection")
	}
}
