package fiber

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/lborres/technopark/core"
	"github.com/lborres/technopark/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAuthHandler is a test fake implementing core.AuthHandler
type mockAuthHandler struct {
	loginInput  core.LoginInput
	loginResult *core.LoginResult
	loginErr    error

	registerCalled bool
	registerInput  core.RegisterInput
	registerErr    error

	logoutCalled bool
	logoutToken  string

	verifyAuthToken string
	verifyAuthValid bool
	verifyAuthErr   error

	verifyActionInput core.VerifyActionInput
	verifyActionErr   error

	forgotEmail string
	forgotErr   error

	resetCode     string
	resetPassword string
	resetErr      error

	authToken  string
	authClaims *core.SessionClaims
	authErr    error
}

func (m *mockAuthHandler) Login(_ context.Context, input core.LoginInput) (*core.LoginResult, error) {
	m.loginInput = input
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.loginResult, nil
}

func (m *mockAuthHandler) Register(_ context.Context, input core.RegisterInput) error {
	m.registerCalled = true
	m.registerInput = input
	return m.registerErr
}

func (m *mockAuthHandler) Logout(_ context.Context, token string) error {
	m.logoutCalled = true
	m.logoutToken = token
	return nil
}

func (m *mockAuthHandler) VerifyAuth(_ context.Context, token string) (bool, error) {
	m.verifyAuthToken = token
	return m.verifyAuthValid, m.verifyAuthErr
}

func (m *mockAuthHandler) VerifyAction(_ context.Context, input core.VerifyActionInput) error {
	m.verifyActionInput = input
	return m.verifyActionErr
}

func (m *mockAuthHandler) ForgotPassword(_ context.Context, email string) error {
	m.forgotEmail = email
	return m.forgotErr
}

func (m *mockAuthHandler) ResetPassword(_ context.Context, oobCode, password string) error {
	m.resetCode = oobCode
	m.resetPassword = password
	return m.resetErr
}

func (m *mockAuthHandler) Authenticate(_ context.Context, token string) (*core.SessionClaims, error) {
	m.authToken = token
	if token == "" {
		return nil, core.ErrMissingToken
	}
	if m.authErr != nil {
		return nil, m.authErr
	}
	return m.authClaims, nil
}

func newTestApp(t *testing.T, mock *mockAuthHandler, env core.Environment) *fiber.App {
	t.Helper()
	app := fiber.New()
	err := New(app, nil).RegisterRoutes(mock, core.RouteConfig{
		BasePath:      "/api/auth",
		Environment:   env,
		SessionMaxAge: 24 * time.Hour,
		Endpoints:     services.NewEndpointRegistry(),
	})
	require.NoError(t, err)
	return app
}

type response struct {
	status    int
	body      map[string]any
	setCookie string
}

func do(t *testing.T, app *fiber.App, req *http.Request) response {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := response{status: resp.StatusCode, setCookie: resp.Header.Get(fiber.HeaderSetCookie)}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.body), "body: %s", raw)
	}
	return out
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

// Requirement: Login attaches the session cookie and returns the identity.
func TestLogin(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		loginErr    error
		wantStatus  int
		wantMessage string
		wantCookie  bool
	}{
		{
			name:       "success sets cookie",
			body:       `{"email":"alice@example.com","password":"secret1"}`,
			wantStatus: http.StatusOK,
			wantCookie: true,
		},
		{
			name:        "unverified email is unauthorized",
			body:        `{"email":"alice@example.com","password":"secret1"}`,
			loginErr:    core.ErrEmailNotVerified,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Error en inicio de sesión: Email no verificado",
		},
		{
			name:        "bad credentials surface the identity message",
			body:        `{"email":"alice@example.com","password":"secret1"}`,
			loginErr:    &core.ExternalError{Status: http.StatusUnauthorized, Message: "Credenciales inválidas", Err: core.ErrInvalidCredentials},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Error en inicio de sesión: Credenciales inválidas",
		},
		{
			name:        "timeout is a gateway timeout",
			body:        `{"email":"alice@example.com","password":"secret1"}`,
			loginErr:    core.ErrExternalTimeout,
			wantStatus:  http.StatusGatewayTimeout,
			wantMessage: "Error en inicio de sesión: tiempo de espera agotado en servicio externo",
		},
		{
			name:       "malformed body is a bad request",
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			mock := &mockAuthHandler{
				loginErr: test.loginErr,
				loginResult: &core.LoginResult{
					Identity: &core.Identity{UID: "uid-1", Email: "alice@example.com", EmailVerified: true},
					Token:    "signed-token",
				},
			}
			app := newTestApp(t, mock, core.EnvDevelopment)

			// Act
			got := do(t, app, jsonRequest(http.MethodPost, "/api/auth/login", test.body))

			// Assert
			assert.Equal(t, test.wantStatus, got.status)
			assert.Equal(t, float64(test.wantStatus), got.body["status"])
			if test.wantMessage != "" {
				assert.Equal(t, test.wantMessage, got.body["message"])
			}
			if !test.wantCookie {
				assert.Empty(t, got.setCookie, "no cookie may be set on failure")
				return
			}
			assert.Contains(t, got.setCookie, "token=signed-token")
			data, ok := got.body["data"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "alice@example.com", data["email"])
			assert.Equal(t, "alice@example.com", mock.loginInput.Email)
		})
	}
}

// Requirement: Cookie attributes follow the environment.
func TestSessionCookieAttributes(t *testing.T) {
	tests := []struct {
		name         string
		env          core.Environment
		wantSameSite string
		wantSecure   bool
	}{
		{name: "production is secure and cross-site", env: core.EnvProduction, wantSameSite: "samesite=none", wantSecure: true},
		{name: "development is lax over http", env: core.EnvDevelopment, wantSameSite: "samesite=lax"},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			mock := &mockAuthHandler{loginResult: &core.LoginResult{Identity: &core.Identity{}, Token: "tok"}}
			app := newTestApp(t, mock, test.env)

			got := do(t, app, jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"a@b.co","password":"secret1"}`))

			cookie := strings.ToLower(got.setCookie)
			assert.Contains(t, cookie, "max-age=86400")
			assert.Contains(t, cookie, "path=/")
			assert.Contains(t, cookie, test.wantSameSite)
			assert.NotContains(t, cookie, "httponly")
			assert.Equal(t, test.wantSecure, strings.Contains(cookie, "secure"))
		})
	}
}

// Requirement: Logout always succeeds and expires a present cookie.
func TestLogout(t *testing.T) {
	t.Run("with cookie", func(t *testing.T) {
		mock := &mockAuthHandler{}
		app := newTestApp(t, mock, core.EnvDevelopment)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tok"})

		got := do(t, app, req)

		assert.Equal(t, http.StatusOK, got.status)
		assert.Equal(t, msgLogoutOK, got.body["data"])
		assert.True(t, mock.logoutCalled)
		assert.Equal(t, "tok", mock.logoutToken)
		assert.Contains(t, got.setCookie, "token=;")
		assert.Contains(t, strings.ToLower(got.setCookie), "expires=thu, 01 jan 1970 00:00:00 gmt")
		assert.NotContains(t, strings.ToLower(got.setCookie), "max-age", "expiry is carried by Expires alone")
	})

	t.Run("without cookie", func(t *testing.T) {
		mock := &mockAuthHandler{}
		app := newTestApp(t, mock, core.EnvDevelopment)

		got := do(t, app, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

		assert.Equal(t, http.StatusOK, got.status)
		assert.Equal(t, msgLogoutOK, got.body["data"])
		assert.False(t, mock.logoutCalled)
	})
}

// Requirement: Register accepts a JSON body with a base64 photo.
func TestRegister_JSON(t *testing.T) {
	// Arrange
	mock := &mockAuthHandler{}
	app := newTestApp(t, mock, core.EnvDevelopment)
	photo := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	body := `{"email":"alice@example.com","password":"secret1","username":"alice","phone":"3001234567",` +
		`"description":"robotics fan","socialNetworks":[{"type":"github","url":"https://github.com/alice"}],` +
		`"photo":"data:image/png;base64,` + photo + `"}`

	// Act
	got := do(t, app, jsonRequest(http.MethodPost, "/api/auth/register", body))

	// Assert
	assert.Equal(t, http.StatusOK, got.status)
	assert.Equal(t, msgRegisterOK, got.body["data"])
	require.True(t, mock.registerCalled)
	assert.Equal(t, "alice", mock.registerInput.Username)
	require.Len(t, mock.registerInput.SocialNetworks, 1)
	require.NotNil(t, mock.registerInput.Photo)
	assert.Equal(t, []byte("png-bytes"), mock.registerInput.Photo.Data)
	assert.Equal(t, "image/png", mock.registerInput.Photo.ContentType)
}

func TestRegister_Multipart(t *testing.T) {
	// Arrange
	mock := &mockAuthHandler{}
	app := newTestApp(t, mock, core.EnvDevelopment)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("email", "alice@example.com"))
	require.NoError(t, w.WriteField("password", "secret1"))
	require.NoError(t, w.WriteField("username", "alice"))
	require.NoError(t, w.WriteField("socialNetworks", `[{"type":"x","url":"https://x.com/alice"}]`))
	part, err := w.CreateFormFile("photo", "me.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())

	// Act
	got := do(t, app, req)

	// Assert
	assert.Equal(t, http.StatusOK, got.status)
	assert.Equal(t, "alice@example.com", mock.registerInput.Email)
	require.Len(t, mock.registerInput.SocialNetworks, 1)
	assert.Equal(t, "https://x.com/alice", mock.registerInput.SocialNetworks[0].URL)
	require.NotNil(t, mock.registerInput.Photo)
	assert.Equal(t, []byte("jpeg-bytes"), mock.registerInput.Photo.Data)
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		registerErr error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "invalid base64 photo",
			body:        `{"email":"alice@example.com","photo":"%%%"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Error en registro de usuario: Foto inválida",
		},
		{
			name:        "validation details are returned",
			body:        `{"email":"alice@example.com"}`,
			registerErr: &core.ValidationError{Fields: []core.FieldError{{Field: "username", Message: "El nombre debe tener al menos 3 caracteres"}}},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Error en registro de usuario: El nombre debe tener al menos 3 caracteres",
		},
		{
			name:        "downstream failure is normalized",
			body:        `{"email":"alice@example.com"}`,
			registerErr: &core.ExternalError{Service: "objectstore", Message: "no se pudo subir la foto"},
			wantStatus:  http.StatusBadGateway,
			wantMessage: "Error en registro de usuario: no se pudo subir la foto",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			mock := &mockAuthHandler{registerErr: test.registerErr}
			app := newTestApp(t, mock, core.EnvDevelopment)

			got := do(t, app, jsonRequest(http.MethodPost, "/api/auth/register", test.body))

			assert.Equal(t, test.wantStatus, got.status)
			assert.Equal(t, test.wantMessage, got.body["message"])
		})
	}
}

// Requirement: verify-auth answers true with 200 and false with 400.
func TestVerifyAuth(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		cookie     string
		valid      bool
		err        error
		wantStatus int
		wantData   any
		wantToken  string
	}{
		{name: "valid body token", body: `{"token":"t1"}`, valid: true, wantStatus: http.StatusOK, wantData: true, wantToken: "t1"},
		{name: "invalid token", body: `{"token":"t1"}`, wantStatus: http.StatusBadRequest, wantData: false, wantToken: "t1"},
		{name: "falls back to cookie", cookie: "c1", valid: true, wantStatus: http.StatusOK, wantData: true, wantToken: "c1"},
		{name: "introspection failure", body: `{"token":"t1"}`, err: &core.ExternalError{Message: "down"}, wantStatus: http.StatusBadGateway, wantToken: "t1"},
		{name: "malformed body is rejected before the cookie", body: `{"token":`, cookie: "c1", valid: true, wantStatus: http.StatusBadRequest},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			mock := &mockAuthHandler{verifyAuthValid: test.valid, verifyAuthErr: test.err}
			app := newTestApp(t, mock, core.EnvDevelopment)
			req := jsonRequest(http.MethodPost, "/api/auth/verify-auth", test.body)
			if test.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: test.cookie})
			}

			got := do(t, app, req)

			assert.Equal(t, test.wantStatus, got.status)
			assert.Equal(t, test.wantToken, mock.verifyAuthToken)
			if test.wantData != nil {
				assert.Equal(t, test.wantData, got.body["data"])
			}
			if test.wantStatus == http.StatusBadRequest && test.wantData == nil {
				assert.Equal(t, "Error en verificar autenticación: Cuerpo de la solicitud inválido", got.body["message"])
			}
		})
	}
}

// Requirement: verifyEmail reads the action code from the link, never the body.
func TestVerifyAction(t *testing.T) {
	t.Run("verifyEmail uses the query code", func(t *testing.T) {
		mock := &mockAuthHandler{}
		app := newTestApp(t, mock, core.EnvDevelopment)

		got := do(t, app, jsonRequest(http.MethodPost, "/api/auth/verify-action/verifyEmail?oobCode=link-code",
			`{"oobCode":"body-code","password":"newpass1"}`))

		assert.Equal(t, http.StatusOK, got.status)
		assert.Equal(t, msgVerifyActionOK, got.body["data"])
		assert.Equal(t, core.VerifyActionInput{Mode: core.ModeVerifyEmail, ActionCode: "link-code"}, mock.verifyActionInput)
	})

	t.Run("other modes use the body", func(t *testing.T) {
		mock := &mockAuthHandler{}
		app := newTestApp(t, mock, core.EnvDevelopment)

		got := do(t, app, jsonRequest(http.MethodPost, "/api/auth/verify-action/resetPassword?oobCode=link-code",
			`{"oobCode":"body-code","password":"newpass1"}`))

		assert.Equal(t, http.StatusOK, got.status)
		assert.Equal(t, core.VerifyActionInput{Mode: core.ModeResetPassword, OobCode: "body-code", Password: "newpass1"}, mock.verifyActionInput)
	})

	t.Run("failure is labelled", func(t *testing.T) {
		mock := &mockAuthHandler{verifyActionErr: &core.ExternalError{Status: http.StatusBadRequest, Message: "Código de acción inválido"}}
		app := newTestApp(t, mock, core.EnvDevelopment)

		got := do(t, app, jsonRequest(http.MethodPost, "/api/auth/verify-action/verifyEmail?oobCode=x", ""))

		assert.Equal(t, http.StatusBadRequest, got.status)
		assert.Equal(t, "Error en verificar acción: Código de acción inválido", got.body["message"])
	})
}

func TestForgotAndResetPassword(t *testing.T) {
	mock := &mockAuthHandler{}
	app := newTestApp(t, mock, core.EnvDevelopment)

	got := do(t, app, jsonRequest(http.MethodPost, "/api/auth/forgot-password", `{"email":"alice@example.com"}`))
	assert.Equal(t, http.StatusOK, got.status)
	assert.Equal(t, msgForgotOK, got.body["data"])
	assert.Equal(t, "alice@example.com", mock.forgotEmail)

	got = do(t, app, jsonRequest(http.MethodPost, "/api/auth/reset-password/code-123", `{"password":"newpass1"}`))
	assert.Equal(t, http.StatusOK, got.status)
	assert.Equal(t, msgResetPasswordOK, got.body["data"])
	assert.Equal(t, "code-123", mock.resetCode)
	assert.Equal(t, "newpass1", mock.resetPassword)

	mock.forgotErr = &core.ValidationError{Fields: []core.FieldError{{Field: "email", Message: "Correo electrónico inválido"}}}
	got = do(t, app, jsonRequest(http.MethodPost, "/api/auth/forgot-password", `{"email":"nope"}`))
	assert.Equal(t, http.StatusBadRequest, got.status)
	assert.Equal(t, "Error en envio de correo de restablecimiento de contraseña: Correo electrónico inválido", got.body["message"])
}

// Requirement: The session route requires a valid token from cookie or Bearer header.
func TestSessionRoute(t *testing.T) {
	expires := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		cookie     string
		bearer     string
		authErr    error
		wantStatus int
		wantToken  string
	}{
		{name: "missing token", wantStatus: http.StatusUnauthorized},
		{name: "cookie token", cookie: "c1", wantStatus: http.StatusOK, wantToken: "c1"},
		{name: "bearer token", bearer: "b1", wantStatus: http.StatusOK, wantToken: "b1"},
		{name: "revoked token", cookie: "c1", authErr: core.ErrSessionRevoked, wantStatus: http.StatusUnauthorized, wantToken: "c1"},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			mock := &mockAuthHandler{
				authErr:    test.authErr,
				authClaims: &core.SessionClaims{Subject: "alice@example.com", ExpiresAt: expires},
			}
			app := newTestApp(t, mock, core.EnvDevelopment)
			req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
			if test.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: test.cookie})
			}
			if test.bearer != "" {
				req.Header.Set(fiber.HeaderAuthorization, "Bearer "+test.bearer)
			}

			got := do(t, app, req)

			assert.Equal(t, test.wantStatus, got.status)
			assert.Equal(t, test.wantToken, mock.authToken)
			if test.wantStatus != http.StatusOK {
				assert.True(t, strings.HasPrefix(got.body["message"].(string), "Error en consultar sesión: "))
				return
			}
			data := got.body["data"].(map[string]any)
			assert.Equal(t, "alice@example.com", data["subject"])
		})
	}
}

func TestRegisterRoutes_NoEndpoints(t *testing.T) {
	err := New(fiber.New(), nil).RegisterRoutes(&mockAuthHandler{}, core.RouteConfig{})
	assert.ErrorIs(t, err, ErrNoEndpoints)
}
