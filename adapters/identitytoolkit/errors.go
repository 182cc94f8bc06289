package identitytoolkit

import (
	"errors"
	"net/http"
	"strings"

	"github.com/lborres/technopark/core"
	"google.golang.org/api/googleapi"
)

const serviceName = "identity"

type errorMapping struct {
	status  int
	message string
	err     error
}

// Error codes returned by the identity toolkit REST API in error.message.
var errorMappings = map[string]errorMapping{
	"EMAIL_NOT_FOUND":                {http.StatusUnauthorized, "Credenciales inválidas", core.ErrInvalidCredentials},
	"INVALID_PASSWORD":               {http.StatusUnauthorized, "Credenciales inválidas", core.ErrInvalidCredentials},
	"INVALID_LOGIN_CREDENTIALS":      {http.StatusUnauthorized, "Credenciales inválidas", core.ErrInvalidCredentials},
	"INVALID_EMAIL":                  {http.StatusBadRequest, "Correo electrónico inválido", nil},
	"EMAIL_EXISTS":                   {http.StatusConflict, "El correo ya está registrado", nil},
	"WEAK_PASSWORD":                  {http.StatusBadRequest, "La contraseña es demasiado débil", nil},
	"INVALID_OOB_CODE":               {http.StatusBadRequest, "Código de acción inválido", nil},
	"EXPIRED_OOB_CODE":               {http.StatusBadRequest, "Código de acción expirado", nil},
	"USER_DISABLED":                  {http.StatusForbidden, "Usuario deshabilitado", nil},
	"USER_NOT_FOUND":                 {http.StatusNotFound, "Usuario no encontrado", nil},
	"TOO_MANY_ATTEMPTS_TRY_LATER":    {http.StatusTooManyRequests, "Demasiados intentos, intenta más tarde", nil},
	"INVALID_ID_TOKEN":               {http.StatusUnauthorized, "Token del proveedor inválido", core.ErrInvalidToken},
	"TOKEN_EXPIRED":                  {http.StatusUnauthorized, "Token del proveedor expirado", core.ErrSessionExpired},
	"CREDENTIAL_TOO_OLD_LOGIN_AGAIN": {http.StatusUnauthorized, "Token del proveedor expirado", core.ErrSessionExpired},
}

// resetMappings overrides errorMappings when requesting a reset email. There
// an unknown address is a missing user, not a failed sign in.
var resetMappings = map[string]errorMapping{
	"EMAIL_NOT_FOUND": {http.StatusNotFound, "Usuario no encontrado", nil},
}

// errorCode extracts the identity toolkit code from a Google API error.
// Some codes carry a detail after the code, e.g. "WEAK_PASSWORD : Password
// should be at least 6 characters".
func errorCode(err error) (string, bool) {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return "", false
	}
	code, _, _ := strings.Cut(strings.TrimSpace(gerr.Message), " ")
	return code, true
}

// codedError builds the mapped error for a known code.
func codedError(code string) error {
	m := errorMappings[code]
	return &core.ExternalError{Service: serviceName, Code: code, Status: m.status, Message: m.message, Err: m.err}
}

// mapError turns an identity toolkit failure into a core.ExternalError.
// Transport failures keep their cause so deadline errors stay detectable.
func mapError(err error) error {
	return mapErrorWith(err, nil)
}

// mapErrorWith is mapError with per-call overrides consulted first.
func mapErrorWith(err error, overrides map[string]errorMapping) error {
	if err == nil {
		return nil
	}

	code, ok := errorCode(err)
	if !ok {
		return &core.ExternalError{
			Service: serviceName,
			Status:  http.StatusBadGateway,
			Message: "Servicio de identidad no disponible",
			Err:     err,
		}
	}

	m, found := overrides[code]
	if !found {
		m, found = errorMappings[code]
	}
	if found {
		cause := err
		if m.err != nil {
			cause = m.err
		}
		return &core.ExternalError{
			Service: serviceName,
			Code:    code,
			Status:  m.status,
			Message: m.message,
			Err:     cause,
		}
	}

	return &core.ExternalError{
		Service: serviceName,
		Code:    code,
		Status:  http.StatusBadGateway,
		Message: "error en servicio de identidad",
		Err:     err,
	}
}
