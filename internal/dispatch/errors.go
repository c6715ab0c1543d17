package dispatch

import (
	"errors"
	"net/http"

	"github.com/manash/iconforge/pkg/models"
)

// Kind is the normalized category of a dispatch failure.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNoProviders   Kind = "no_providers"
	KindUnavailable   Kind = "unavailable"
	KindQuota         Kind = "quota"
	KindAuth          Kind = "auth"
	KindBilling       Kind = "billing"
	KindContentPolicy Kind = "content_policy"
	KindGeneric       Kind = "generic"
)

// StatusCode maps a kind to the HTTP status the API answers with.
func (k Kind) StatusCode() int {
	switch k {
	case KindValidation, KindUnavailable, KindContentPolicy:
		return http.StatusBadRequest
	case KindNoProviders:
		return http.StatusServiceUnavailable
	case KindQuota:
		return http.StatusTooManyRequests
	case KindAuth:
		return http.StatusUnauthorized
	case KindBilling:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// Error is every failure Generate returns. Message is user-facing.
// Available lists the configured providers at the time of the call.
type Error struct {
	Kind      Kind
	Message   string
	Provider  models.ProviderType
	Model     string
	Available []models.ProviderType
	Err       error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a dispatch error of kind k.
func IsKind(err error, k Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == k
}
