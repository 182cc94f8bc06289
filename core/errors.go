package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Authentication Related Errors
var (
	ErrEmailNotVerified   = errors.New("Email no verificado")    // 401 Unauthorized
	ErrInvalidCredentials = errors.New("Credenciales inválidas") // 401 Unauthorized
)

// Session errors
var (
	ErrMissingToken   = errors.New("token de sesión requerido")  // 401
	ErrInvalidToken   = errors.New("token de sesión inválido")   // 401
	ErrSessionExpired = errors.New("sesión expirada")            // 401
	ErrSessionRevoked = errors.New("sesión cerrada")             // 401
	ErrSigning        = errors.New("no se pudo firmar el token") // 500
	ErrEmptySubject   = errors.New("subject is required")
)

// External service errors
var (
	ErrExternalService = errors.New("error en servicio externo")                    // 502 unless the adapter says otherwise
	ErrExternalTimeout = errors.New("tiempo de espera agotado en servicio externo") // 504
)

// Config errors (server-side configuration)
var (
	ErrIdentityRequired    = errors.New("identity provider is required") // 500
	ErrObjectStoreRequired = errors.New("object store is required")      // 500
	ErrCredentialsRequired = errors.New("credential store is required")  // 500
	ErrHTTPAdapterRequired = errors.New("adapter is required")           // 500
	ErrSecretRequired      = errors.New("secret is required")            // 500
	ErrSecretTooShort      = errors.New("secret too short")              // 500
)

const internalMessage = "error interno del servidor"

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when request input does not satisfy its schema.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, ", ")
}

// ExternalError carries a failure reported by a downstream service.
//
// Status is the HTTP status the adapter considers appropriate for the
// failure; Message is safe to show to clients.
type ExternalError struct {
	Service string
	Code    string
	Status  int
	Message string
	Err     error
}

func (e *ExternalError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrExternalService.Error()
}

func (e *ExternalError) Unwrap() error { return e.Err }

func (e *ExternalError) Is(target error) bool { return target == ErrExternalService }

// APIError is the single structured shape written to clients on failure.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

// StatusCode maps an error to the HTTP status it should be reported with.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var validation *ValidationError
	var external *ExternalError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest

	case errors.Is(err, ErrExternalTimeout):
		return http.StatusGatewayTimeout

	case errors.As(err, &external):
		if external.Status >= 400 {
			return external.Status
		}
		return http.StatusBadGateway

	case errors.Is(err, ErrEmailNotVerified),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrMissingToken),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrSessionExpired),
		errors.Is(err, ErrSessionRevoked):
		return http.StatusUnauthorized

	default:
		return http.StatusInternalServerError
	}
}

// Normalize converts any error into an APIError tagged with the
// human-readable label of the operation that failed.
func Normalize(err error, operation string) *APIError {
	var api *APIError
	if errors.As(err, &api) {
		return api
	}

	status := StatusCode(err)
	out := &APIError{Status: status}

	var validation *ValidationError
	var external *ExternalError
	msg := internalMessage
	switch {
	case errors.As(err, &validation):
		msg = validation.Error()
		out.Details = validation.Fields
	case errors.Is(err, ErrExternalTimeout):
		msg = ErrExternalTimeout.Error()
	case errors.As(err, &external):
		msg = external.Error()
	case status < http.StatusInternalServerError:
		msg = rootMessage(err)
	}

	out.Message = fmt.Sprintf("Error en %s: %s", operation, msg)
	return out
}

// rootMessage returns the message of the innermost known sentinel so that
// wrapping context added with %w does not leak to clients.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		ErrEmailNotVerified,
		ErrInvalidCredentials,
		ErrMissingToken,
		ErrInvalidToken,
		ErrSessionExpired,
		ErrSessionRevoked,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
