package services

import (
	"fmt"
	"sort"

	"github.com/lborres/technopark/core"
)

// BaseEndpoints returns the framework-agnostic route table for the auth
// surface. Paths are relative to the configured base path; adapters bind
// their own handlers by operation id.
func BaseEndpoints() []core.Endpoint {
	return []core.Endpoint{
		{
			Path:   "/login",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: core.OpLogin,
				Description: "Sign in with email and password and receive a session cookie",
				Label:       "inicio de sesión",
			},
		},
		{
			Path:   "/register",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: core.OpRegister,
				Description: "Create an account, send the verification email and store the profile",
				Label:       "registro de usuario",
			},
		},
		{
			Path:   "/logout",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: core.OpLogout,
				Description: "Revoke the current session and clear the cookie",
				Label:       "cierre de sesión",
			},
		},
		{
			Path:   "/verify-auth",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: core.OpVerifyAuth,
				Description: "Report whether a token is currently valid",
				Label:       "verificar autenticación",
			},
		},
		{
			Path:   "/verify-action/:mode",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: core.OpVerifyAction,
				Description: "Apply an email verification or password reset action link",
				Label:       "verificar acción",
			},
		},
		{
			Path:   "/forgot-password",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: core.OpForgotPassword,
				Description: "Send a password reset email",
				Label:       "envio de correo de restablecimiento de contraseña",
			},
		},
		{
			Path:   "/reset-password/:oobCode",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: core.OpResetPassword,
				Description: "Confirm a password reset code with the new password",
				Label:       "validar restablecimiento de contraseña",
			},
		},
		{
			Path:   "/session",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: core.OpGetSession,
				Description: "Get the current session claims",
				Label:       "consultar sesión",
				Protected:   true,
			},
		},
	}
}

// EndpointRegistry holds the route table keyed by "METHOD:PATH" and rejects
// duplicates.
type EndpointRegistry struct {
	endpoints map[string]*core.Endpoint
}

// NewEndpointRegistry creates a registry with the base endpoints registered.
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		endpoints: make(map[string]*core.Endpoint),
	}
	for _, ep := range BaseEndpoints() {
		ep := ep
		reg.endpoints[endpointKey(&ep)] = &ep
	}
	return reg
}

func endpointKey(ep *core.Endpoint) string {
	return fmt.Sprintf("%s:%s", ep.Method, ep.Path)
}

// RegisterPlugin adds extra endpoints. If any of them conflicts with a
// registered endpoint or with another in the same batch, none are added.
func (r *EndpointRegistry) RegisterPlugin(endpoints []core.Endpoint) error {
	seen := make(map[string]bool, len(endpoints))
	for i := range endpoints {
		key := endpointKey(&endpoints[i])
		if _, exists := r.endpoints[key]; exists {
			return fmt.Errorf("plugin endpoint conflict: %s %s already registered", endpoints[i].Method, endpoints[i].Path)
		}
		if seen[key] {
			return fmt.Errorf("plugin contains duplicate endpoint: %s %s", endpoints[i].Method, endpoints[i].Path)
		}
		seen[key] = true
	}

	for i := range endpoints {
		ep := endpoints[i]
		r.endpoints[endpointKey(&ep)] = &ep
	}
	return nil
}

// Lookup returns the endpoint with the given operation id.
func (r *EndpointRegistry) Lookup(operationID string) (*core.Endpoint, bool) {
	for _, ep := range r.endpoints {
		if ep.Metadata.OperationID == operationID {
			return ep, true
		}
	}
	return nil, false
}

// Endpoints returns all registered endpoints ordered by path then method.
func (r *EndpointRegistry) Endpoints() []*core.Endpoint {
	result := make([]*core.Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		result = append(result, ep)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Path != result[j].Path {
			return result[i].Path < result[j].Path
		}
		return result[i].Method < result[j].Method
	})
	return result
}
