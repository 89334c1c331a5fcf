package domain

import (
	"errors"
	"strings"
)

type RuleOp string

const (
	// Leaf predicates.
	OpDocTypeIn        RuleOp = "doc_type_in"
	OpQueryContainsAny RuleOp = "query_contains_any"
	OpQueryContainsAll RuleOp = "query_contains_all"

	// Combinators.
	OpAllOf RuleOp = "all_of"
	OpAnyOf RuleOp = "any_of"
)

// Rule is a declarative predicate over retrieved-document metadata and the
// query text. Leaves carry Values; combinators carry Rules. Evaluation is pure:
// no rule ever mutates agent or document state.
type Rule struct {
	Op     RuleOp   `json:"op"`
	Values []string `json:"values,omitempty"`
	Rules  []Rule   `json:"rules,omitempty"`
}

// RuleInput is the evaluation context: the normalized doc types of the
// retrieved fragments and the raw query text.
type RuleInput struct {
	DocTypes []string
	Query    string
}

func (r Rule) Validate() error {
	switch r.Op {
	case OpDocTypeIn, OpQueryContainsAny, OpQueryContainsAll:
		if len(r.Values) == 0 {
			return WrapError(ErrInvalidParameter, "validate rule", errors.New(string(r.Op)+" requires values"))
		}
		if len(r.Rules) != 0 {
			return WrapError(ErrInvalidParameter, "validate rule", errors.New(string(r.Op)+" must not carry sub-rules"))
		}
	case OpAllOf, OpAnyOf:
		if len(r.Rules) == 0 {
			return WrapError(ErrInvalidParameter, "validate rule", errors.New(string(r.Op)+" requires sub-rules"))
		}
		if len(r.Values) != 0 {
			return WrapError(ErrInvalidParameter, "validate rule", errors.New(string(r.Op)+" must not carry values"))
		}
		for _, sub := range r.Rules {
			if err := sub.Validate(); err != nil {
				return err
			}
		}
	default:
		return WrapError(ErrInvalidParameter, "validate rule", errors.New("unknown rule op: "+string(r.Op)))
	}
	return nil
}

// Eval interprets the rule against the input. Matching is case-insensitive for
// both doc types and query keywords.
func (r Rule) Eval(in RuleInput) bool {
	switch r.Op {
	case OpDocTypeIn:
		allowed := make(map[string]struct{}, len(r.Values))
		for _, v := range r.Values {
			allowed[strings.ToLower(v)] = struct{}{}
		}
		for _, dt := range in.DocTypes {
			if _, ok := allowed[strings.ToLower(dt)]; ok {
				return true
			}
		}
		return false
	case OpQueryContainsAny:
		query := strings.ToLower(in.Query)
		for _, kw := range r.Values {
			if kw != "" && strings.Contains(query, strings.ToLower(kw)) {
				return true
			}
		}
		return false
	case OpQueryContainsAll:
		query := strings.ToLower(in.Query)
		for _, kw := range r.Values {
			if kw == "" || !strings.Contains(query, strings.ToLower(kw)) {
				return false
			}
		}
		return true
	case OpAllOf:
		for _, sub := range r.Rules {
			if !sub.Eval(in) {
				return false
			}
		}
		return len(r.Rules) > 0
	case OpAnyOf:
		for _, sub := range r.Rules {
			if sub.Eval(in) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Specificity counts the leaf predicates a rule constrains. Used as the
// deterministic precedence when several agents match.
func (r Rule) Specificity() int {
	switch r.Op {
	case OpAllOf, OpAnyOf:
		total := 0
		for _, sub := range r.Rules {
			total += sub.Specificity()
		}
		return total
	default:
		return 1
	}
}
