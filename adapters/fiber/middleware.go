package fiber

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/lborres/technopark/core"
	"go.uber.org/zap"
)

const localsSession = "session"

// RequireAuth verifies the session token from the cookie or a Bearer header
// and stores the claims in the request locals for downstream handlers.
func RequireAuth(h core.AuthHandler, label string, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c fiber.Ctx) error {
		claims, err := h.Authenticate(c.Context(), extractToken(c))
		if err != nil {
			return writeError(c, logger, err, label)
		}

		c.Locals(localsSession, claims)
		return c.Next()
	}
}

// SessionFromContext returns the claims stored by RequireAuth.
func SessionFromContext(c fiber.Ctx) (*core.SessionClaims, bool) {
	claims, ok := c.Locals(localsSession).(*core.SessionClaims)
	return claims, ok && claims != nil
}

// extractToken reads the session cookie, falling back to a Bearer header.
func extractToken(c fiber.Ctx) string {
	if token := c.Cookies(SessionCookieName); token != "" {
		return token
	}

	authHeader := c.Get(fiber.HeaderAuthorization)
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// RequestLogger logs one line per request. Client errors log at warn and
// server errors at error.
func RequestLogger(logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		id := c.GetRespHeader(fiber.HeaderXRequestID)
		if id == "" {
			id = c.Get(fiber.HeaderXRequestID)
		}
		if id != "" {
			fields = append(fields, zap.String("request_id", id))
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			logger.Error("request", append(fields, zap.Error(err))...)
		case status >= fiber.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
		return err
	}
}
