package fiber

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/lborres/technopark/core"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "token"

const defaultCookieMaxAge = 24 * time.Hour

// CookieWriter attaches and expires the session cookie.
type CookieWriter struct {
	secure   bool
	sameSite string
	maxAge   int
}

// NewCookieWriter hardens the cookie in production: secure and SameSite=None
// so the frontend on another origin can send it. Elsewhere it is Lax and not
// secure so it works over plain http.
func NewCookieWriter(env core.Environment, maxAge time.Duration) *CookieWriter {
	if maxAge <= 0 {
		maxAge = defaultCookieMaxAge
	}
	w := &CookieWriter{
		sameSite: fiber.CookieSameSiteLaxMode,
		maxAge:   int(maxAge / time.Second),
	}
	if env.IsProduction() {
		w.secure = true
		w.sameSite = fiber.CookieSameSiteNoneMode
	}
	return w
}

// Attach sets the session cookie. It is readable by scripts so the
// frontend can detect a session.
func (w *CookieWriter) Attach(c fiber.Ctx, token string) {
	c.Cookie(w.cookie(token, w.maxAge, time.Time{}))
}

// Expire overwrites the session cookie with an empty value and an epoch
// expiry. fasthttp never writes a zero Max-Age, so Expires carries it.
func (w *CookieWriter) Expire(c fiber.Ctx) {
	c.Cookie(w.cookie("", 0, time.Unix(0, 0)))
}

func (w *CookieWriter) cookie(value string, maxAge int, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expires,
		Secure:   w.secure,
		HTTPOnly: false,
		SameSite: w.sameSite,
	}
}
