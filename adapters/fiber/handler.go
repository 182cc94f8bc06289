package fiber

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/lborres/technopark/core"
	"go.uber.org/zap"
)

const (
	msgLogoutOK        = "Sesión cerrada exitosamente"
	msgRegisterOK      = "Usuario registrado exitosamente, se ha enviado un correo de verificación"
	msgVerifyActionOK  = "acción completada"
	msgForgotOK        = "correo de restablecimiento enviado"
	msgResetPasswordOK = "Contraseña restablecida correctamente"
)

// envelope is the success response shape.
type envelope struct {
	Status int `json:"status"`
	Data   any `json:"data"`
}

func send(c fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(envelope{Status: status, Data: data})
}

func invalidField(field, msg string) error {
	return &core.ValidationError{Fields: []core.FieldError{{Field: field, Message: msg}}}
}

func invalidBody() error {
	return invalidField("body", "Cuerpo de la solicitud inválido")
}

// writeError normalizes err into the wire error shape tagged with label.
func writeError(c fiber.Ctx, logger *zap.Logger, err error, label string) error {
	apiErr := core.Normalize(err, label)

	fields := []zap.Field{
		zap.String("operation", label),
		zap.Int("status", apiErr.Status),
		zap.Error(err),
	}
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Error("request failed", fields...)
	} else {
		logger.Warn("request rejected", fields...)
	}

	return c.Status(apiErr.Status).JSON(apiErr)
}

func (a *Adapter) fail(c fiber.Ctx, err error, label string) error {
	return writeError(c, a.logger, err, label)
}

func (a *Adapter) login(h core.AuthHandler, label string) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input core.LoginInput
		if err := c.Bind().Body(&input); err != nil {
			return a.fail(c, invalidBody(), label)
		}

		result, err := h.Login(c.Context(), input)
		if err != nil {
			return a.fail(c, err, label)
		}

		a.cookies.Attach(c, result.Token)
		return send(c, http.StatusOK, result.Identity)
	}
}

func (a *Adapter) logout(h core.AuthHandler, _ string) fiber.Handler {
	return func(c fiber.Ctx) error {
		if token := c.Cookies(SessionCookieName); token != "" {
			if err := h.Logout(c.Context(), token); err != nil {
				a.logger.Warn("logout failed", zap.Error(err))
			}
			a.cookies.Expire(c)
		}
		return send(c, http.StatusOK, msgLogoutOK)
	}
}

// registerRequest is the JSON form of a registration. The photo is base64,
// optionally as a data URL.
type registerRequest struct {
	Email          string               `json:"email"`
	Password       string               `json:"password"`
	Username       string               `json:"username"`
	Phone          string               `json:"phone"`
	Description    string               `json:"description"`
	SocialNetworks []core.SocialNetwork `json:"socialNetworks"`
	Photo          string               `json:"photo"`
	PhotoType      string               `json:"photoType"`
}

func (a *Adapter) register(h core.AuthHandler, label string) fiber.Handler {
	return func(c fiber.Ctx) error {
		input, err := parseRegister(c)
		if err != nil {
			return a.fail(c, err, label)
		}

		if err := h.Register(c.Context(), *input); err != nil {
			return a.fail(c, err, label)
		}
		return send(c, http.StatusOK, msgRegisterOK)
	}
}

func parseRegister(c fiber.Ctx) (*core.RegisterInput, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return parseRegisterMultipart(c)
	}

	var req registerRequest
	if err := c.Bind().Body(&req); err != nil {
		return nil, invalidBody()
	}
	photo, err := decodePhoto(req.Photo, req.PhotoType)
	if err != nil {
		return nil, err
	}
	return &core.RegisterInput{
		Email:          req.Email,
		Password:       req.Password,
		Username:       req.Username,
		Phone:          req.Phone,
		Description:    req.Description,
		SocialNetworks: req.SocialNetworks,
		Photo:          photo,
	}, nil
}

func parseRegisterMultipart(c fiber.Ctx) (*core.RegisterInput, error) {
	input := &core.RegisterInput{
		Email:       c.FormValue("email"),
		Password:    c.FormValue("password"),
		Username:    c.FormValue("username"),
		Phone:       c.FormValue("phone"),
		Description: c.FormValue("description"),
	}

	if raw := c.FormValue("socialNetworks"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &input.SocialNetworks); err != nil {
			return nil, invalidField("socialNetworks", "Redes sociales inválidas")
		}
	}

	fh, err := c.FormFile("photo")
	if err != nil {
		// The photo part is optional.
		return input, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, invalidField("photo", "Foto inválida")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, invalidField("photo", "Foto inválida")
	}
	contentType := fh.Header.Get(fiber.HeaderContentType)
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	input.Photo = &core.Photo{Data: data, ContentType: contentType}
	return input, nil
}

// decodePhoto accepts raw base64 or a data URL. An empty string is no photo.
func decodePhoto(encoded, contentType string) (*core.Photo, error) {
	if encoded == "" {
		return nil, nil
	}

	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return nil, invalidField("photo", "Foto inválida")
		}
		if contentType == "" {
			contentType = strings.TrimSuffix(meta, ";base64")
		}
		encoded = payload
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, invalidField("photo", "Foto inválida")
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &core.Photo{Data: data, ContentType: contentType}, nil
}

func (a *Adapter) verifyAuth(h core.AuthHandler, label string) fiber.Handler {
	return func(c fiber.Ctx) error {
		var body struct {
			Token string `json:"token"`
		}
		// An empty body falls back to the cookie. A malformed one is rejected.
		if len(c.Body()) > 0 {
			if err := c.Bind().Body(&body); err != nil {
				return a.fail(c, invalidBody(), label)
			}
		}
		token := body.Token
		if token == "" {
			token = c.Cookies(SessionCookieName)
		}

		valid, err := h.VerifyAuth(c.Context(), token)
		if err != nil {
			return a.fail(c, err, label)
		}
		if !valid {
			return send(c, http.StatusBadRequest, false)
		}
		return send(c, http.StatusOK, true)
	}
}

func (a *Adapter) verifyAction(h core.AuthHandler, label string) fiber.Handler {
	return func(c fiber.Ctx) error {
		input := core.VerifyActionInput{Mode: core.VerificationMode(c.Params("mode"))}

		if input.Mode == core.ModeVerifyEmail {
			input.ActionCode = c.Query("oobCode")
		} else {
			var body struct {
				OobCode  string `json:"oobCode"`
				Password string `json:"password"`
			}
			if err := c.Bind().Body(&body); err != nil {
				return a.fail(c, invalidBody(), label)
			}
			input.OobCode = body.OobCode
			input.Password = body.Password
		}

		if err := h.VerifyAction(c.Context(), input); err != nil {
			return a.fail(c, err, label)
		}
		return send(c, http.StatusOK, msgVerifyActionOK)
	}
}

func (a *Adapter) forgotPassword(h core.AuthHandler, label string) fiber.Handler {
	return func(c fiber.Ctx) error {
		var body struct {
			Email string `json:"email"`
		}
		if err := c.Bind().Body(&body); err != nil {
			return a.fail(c, invalidBody(), label)
		}

		if err := h.ForgotPassword(c.Context(), body.Email); err != nil {
			return a.fail(c, err, label)
		}
		return send(c, http.StatusOK, msgForgotOK)
	}
}

func (a *Adapter) resetPassword(h core.AuthHandler, label string) fiber.Handler {
	return func(c fiber.Ctx) error {
		var body struct {
			Password string `json:"password"`
		}
		if err := c.Bind().Body(&body); err != nil {
			return a.fail(c, invalidBody(), label)
		}

		if err := h.ResetPassword(c.Context(), c.Params("oobCode"), body.Password); err != nil {
			return a.fail(c, err, label)
		}
		return send(c, http.StatusOK, msgResetPasswordOK)
	}
}

func (a *Adapter) session(_ core.AuthHandler, label string) fiber.Handler {
	return func(c fiber.Ctx) error {
		claims, ok := SessionFromContext(c)
		if !ok {
			return a.fail(c, core.ErrMissingToken, label)
		}
		return send(c, http.StatusOK, fiber.Map{
			"subject":   claims.Subject,
			"expiresAt": claims.ExpiresAt,
		})
	}
}
