package httpadapter

import (
	"net/http"

	"github.com/ragline/ragline/internal/core/domain"
)

// mapErrorToHTTPStatus translates domain error kinds into transport status
// codes. No agent matching the query is a client-resolvable condition (fix
// the registry rules), not a server fault.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidParameter):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound),
		domain.IsKind(err, domain.ErrAgentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrNoAgentMatched):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrSynthesisFormat):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrRetrievalUnavailable),
		domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
