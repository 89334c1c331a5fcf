package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrConfiguration        = errors.New("configuration error")
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	ErrNoAgentMatched       = errors.New("no agent matched selection rules")
	ErrSynthesisFormat      = errors.New("synthesis response format error")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrAgentNotFound        = errors.New("agent not found")
	ErrTemporary            = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
