package fiber

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/lborres/technopark/core"
	"go.uber.org/zap"
)

var ErrNoEndpoints = errors.New("fiber adapter: route config has no endpoints")

type Adapter struct {
	app     *fiber.App
	logger  *zap.Logger
	cookies *CookieWriter
}

var _ core.HTTPAdapter = (*Adapter)(nil)

// New returns an adapter that mounts the auth routes on app. A nil logger
// disables adapter logging.
func New(app *fiber.App, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		app:     app,
		logger:  logger.Named("http"),
		cookies: NewCookieWriter(core.EnvDevelopment, 0),
	}
}

type handlerFactory func(h core.AuthHandler, label string) fiber.Handler

func (a *Adapter) factories() map[string]handlerFactory {
	return map[string]handlerFactory{
		core.OpLogin:          a.login,
		core.OpRegister:       a.register,
		core.OpLogout:         a.logout,
		core.OpVerifyAuth:     a.verifyAuth,
		core.OpVerifyAction:   a.verifyAction,
		core.OpForgotPassword: a.forgotPassword,
		core.OpResetPassword:  a.resetPassword,
		core.OpGetSession:     a.session,
	}
}

// RegisterRoutes mounts every endpoint of the route table under the base
// path. Protected endpoints are wrapped with RequireAuth.
func (a *Adapter) RegisterRoutes(handler core.AuthHandler, routes core.RouteConfig) error {
	if routes.Endpoints == nil {
		return ErrNoEndpoints
	}
	a.cookies = NewCookieWriter(routes.Environment, routes.SessionMaxAge)

	factories := a.factories()
	api := a.app.Group(routes.BasePath)

	for _, ep := range routes.Endpoints.Endpoints() {
		factory, ok := factories[ep.Metadata.OperationID]
		if !ok {
			return fmt.Errorf("fiber adapter: no handler for operation %q", ep.Metadata.OperationID)
		}

		label := ep.Metadata.Label
		h := factory(handler, label)
		if ep.Metadata.Protected {
			api.Add([]string{ep.Method}, ep.Path, RequireAuth(handler, label, a.logger), h)
		} else {
			api.Add([]string{ep.Method}, ep.Path, h)
		}

		a.logger.Debug("route registered",
			zap.String("method", ep.Method),
			zap.String("path", routes.BasePath+ep.Path),
			zap.Bool("protected", ep.Metadata.Protected),
		)
	}

	return nil
}
