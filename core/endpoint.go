package core

import "time"

// EndpointProvider provides a list of endpoints to register dynamically
type EndpointProvider interface {
	Endpoints() []*Endpoint
}

type Endpoint struct {
	Path     string
	Method   string
	Metadata EndpointMetadata
}

type EndpointMetadata struct {
	OperationID string
	Description string
	// Label names the operation in normalized error messages.
	Label     string
	Protected bool
}

// RouteConfig carries what an HTTP adapter needs to mount the endpoints.
type RouteConfig struct {
	BasePath      string
	Environment   Environment
	SessionMaxAge time.Duration
	Endpoints     EndpointProvider
}

// Operation IDs shared by the endpoint table and HTTP adapters.
const (
	OpLogin          = "login"
	OpRegister       = "register"
	OpLogout         = "logout"
	OpVerifyAuth     = "verifyAuth"
	OpVerifyAction   = "verifyAction"
	OpForgotPassword = "forgotPassword"
	OpResetPassword  = "resetPassword"
	OpGetSession     = "getSession"
)
