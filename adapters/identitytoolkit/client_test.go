package identitytoolkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lborres/technopark/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// fakeToolkit serves the relying party endpoints the client uses. Handlers
// are keyed by the trailing path segment, e.g. "verifyPassword".
type fakeToolkit struct {
	mu       sync.Mutex
	handlers map[string]func(req map[string]any) (int, any)
	requests map[string][]map[string]any
}

func newFakeToolkit() *fakeToolkit {
	return &fakeToolkit{
		handlers: make(map[string]func(map[string]any) (int, any)),
		requests: make(map[string][]map[string]any),
	}
}

func (f *fakeToolkit) on(method string, h func(req map[string]any) (int, any)) {
	f.handlers[method] = h
}

func (f *fakeToolkit) received(method string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[method]
}

func (f *fakeToolkit) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	var req map[string]any
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	f.requests[method] = append(f.requests[method], req)
	f.mu.Unlock()

	h, ok := f.handlers[method]
	if !ok {
		http.Error(w, "unexpected method "+method, http.StatusNotImplemented)
		return
	}
	status, body := h(req)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func apiError(code string) (int, any) {
	return http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"code":    400,
			"message": code,
			"errors":  []any{map[string]any{"message": code, "domain": "global", "reason": "invalid"}},
		},
	}
}

func ok(body any) (int, any) {
	return http.StatusOK, body
}

func newTestClient(t *testing.T, fake *fakeToolkit) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := New(context.Background(), "test-key", nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return client
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrAPIKeyRequired)
}

// Requirement: VerifyCredentials returns the identity with its verification flag.
func TestVerifyCredentials(t *testing.T) {
	tests := []struct {
		name         string
		verified     bool
		signInError  string
		wantVerified bool
		wantErr      error
		wantStatus   int
	}{
		{name: "verified account", verified: true, wantVerified: true},
		{name: "unverified account", verified: false},
		{name: "wrong password", signInError: "INVALID_PASSWORD", wantErr: core.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized},
		{name: "unknown email", signInError: "EMAIL_NOT_FOUND", wantErr: core.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized},
		{name: "new credentials error code", signInError: "INVALID_LOGIN_CREDENTIALS", wantErr: core.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized},
		{name: "throttled", signInError: "TOO_MANY_ATTEMPTS_TRY_LATER : Access disabled", wantErr: core.ErrExternalService, wantStatus: http.StatusTooManyRequests},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			fake := newFakeToolkit()
			fake.on("verifyPassword", func(map[string]any) (int, any) {
				if test.signInError != "" {
					return apiError(test.signInError)
				}
				return ok(map[string]any{
					"localId":     "uid-1",
					"email":       "alice@example.com",
					"displayName": "alice",
					"idToken":     "id-token-1",
				})
			})
			fake.on("getAccountInfo", func(map[string]any) (int, any) {
				return ok(map[string]any{"users": []any{map[string]any{
					"localId":       "uid-1",
					"email":         "alice@example.com",
					"emailVerified": test.verified,
				}}})
			})
			client := newTestClient(t, fake)

			// Act
			identity, err := client.VerifyCredentials(context.Background(), "alice@example.com", "secret1")

			// Assert
			if test.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, test.wantErr), "got %v", err)
				assert.Equal(t, test.wantStatus, core.StatusCode(err))
				assert.Nil(t, identity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "uid-1", identity.UID)
			assert.Equal(t, "alice", identity.DisplayName)
			assert.Equal(t, test.wantVerified, identity.EmailVerified)

			signIn := fake.received("verifyPassword")[0]
			assert.Equal(t, "alice@example.com", signIn["email"])
			assert.Equal(t, true, signIn["returnSecureToken"])
			assert.Equal(t, "id-token-1", fake.received("getAccountInfo")[0]["idToken"])
		})
	}
}

// Requirement: RegisterAccount returns a ref carrying an ID token for follow-up calls.
func TestRegisterAccount(t *testing.T) {
	t.Run("token from sign up", func(t *testing.T) {
		fake := newFakeToolkit()
		fake.on("signupNewUser", func(req map[string]any) (int, any) {
			return ok(map[string]any{"localId": "uid-9", "email": req["email"], "idToken": "id-token-9"})
		})
		client := newTestClient(t, fake)

		ref, err := client.RegisterAccount(context.Background(), "bob@example.com", "secret1", "bob")

		require.NoError(t, err)
		assert.Equal(t, &core.IdentityRef{UID: "uid-9", Email: "bob@example.com", DisplayName: "bob", IDToken: "id-token-9"}, ref)
		assert.Equal(t, "bob", fake.received("signupNewUser")[0]["displayName"])
		assert.Empty(t, fake.received("verifyPassword"))
	})

	t.Run("falls back to sign in for the token", func(t *testing.T) {
		fake := newFakeToolkit()
		fake.on("signupNewUser", func(map[string]any) (int, any) {
			return ok(map[string]any{"localId": "uid-9"})
		})
		fake.on("verifyPassword", func(map[string]any) (int, any) {
			return ok(map[string]any{"localId": "uid-9", "idToken": "id-token-late"})
		})
		client := newTestClient(t, fake)

		ref, err := client.RegisterAccount(context.Background(), "bob@example.com", "secret1", "bob")

		require.NoError(t, err)
		assert.Equal(t, "id-token-late", ref.IDToken)
		assert.Equal(t, "bob@example.com", ref.Email)
	})

	t.Run("duplicate email", func(t *testing.T) {
		fake := newFakeToolkit()
		fake.on("signupNewUser", func(map[string]any) (int, any) { return apiError("EMAIL_EXISTS") })
		client := newTestClient(t, fake)

		_, err := client.RegisterAccount(context.Background(), "bob@example.com", "secret1", "bob")

		var extErr *core.ExternalError
		require.True(t, errors.As(err, &extErr))
		assert.Equal(t, "EMAIL_EXISTS", extErr.Code)
		assert.Equal(t, http.StatusConflict, extErr.Status)
	})
}

func TestOobCodeRequests(t *testing.T) {
	fake := newFakeToolkit()
	fake.on("getOobConfirmationCode", func(req map[string]any) (int, any) {
		return ok(map[string]any{"email": req["email"]})
	})
	client := newTestClient(t, fake)

	require.NoError(t, client.SendEmailVerification(context.Background(), &core.IdentityRef{IDToken: "id-token-1"}))
	require.NoError(t, client.SendEmailResetPassword(context.Background(), "alice@example.com"))

	reqs := fake.received("getOobConfirmationCode")
	require.Len(t, reqs, 2)
	assert.Equal(t, requestVerifyEmail, reqs[0]["requestType"])
	assert.Equal(t, "id-token-1", reqs[0]["idToken"])
	assert.Equal(t, requestPasswordReset, reqs[1]["requestType"])
	assert.Equal(t, "alice@example.com", reqs[1]["email"])
}

// Requirement: An unknown address on a reset request is a missing user, while
// sign in keeps reporting invalid credentials.
func TestSendEmailResetPassword_UnknownEmail(t *testing.T) {
	// Arrange
	fake := newFakeToolkit()
	fake.on("getOobConfirmationCode", func(map[string]any) (int, any) {
		return apiError("EMAIL_NOT_FOUND")
	})
	fake.on("verifyPassword", func(map[string]any) (int, any) {
		return apiError("EMAIL_NOT_FOUND")
	})
	client := newTestClient(t, fake)

	// Act
	resetErr := client.SendEmailResetPassword(context.Background(), "ghost@example.com")
	_, loginErr := client.VerifyCredentials(context.Background(), "ghost@example.com", "secret1")

	// Assert
	assert.Equal(t, http.StatusNotFound, core.StatusCode(resetErr))
	assert.Equal(t,
		"Error en envio de correo de restablecimiento de contraseña: Usuario no encontrado",
		core.Normalize(resetErr, "envio de correo de restablecimiento de contraseña").Message,
	)
	assert.False(t, errors.Is(resetErr, core.ErrInvalidCredentials))

	assert.Equal(t, http.StatusUnauthorized, core.StatusCode(loginErr))
	assert.True(t, errors.Is(loginErr, core.ErrInvalidCredentials))
}

func TestValidateCodes(t *testing.T) {
	fake := newFakeToolkit()
	fake.on("setAccountInfo", func(req map[string]any) (int, any) {
		if req["oobCode"] != "good" {
			return apiError("INVALID_OOB_CODE")
		}
		return ok(map[string]any{"email": "alice@example.com", "emailVerified": true})
	})
	fake.on("resetPassword", func(req map[string]any) (int, any) {
		if req["oobCode"] != "good" {
			return apiError("EXPIRED_OOB_CODE")
		}
		return ok(map[string]any{"email": "alice@example.com"})
	})
	client := newTestClient(t, fake)

	assert.NoError(t, client.ValidateEmailVerification(context.Background(), "good"))
	err := client.ValidateEmailVerification(context.Background(), "bad")
	assert.Equal(t, http.StatusBadRequest, core.StatusCode(err))

	email, err := client.ValidateResetPassword(context.Background(), "good", "newpass1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)
	assert.Equal(t, "newpass1", fake.received("resetPassword")[0]["newPassword"])

	_, err = client.ValidateResetPassword(context.Background(), "bad", "newpass1")
	var extErr *core.ExternalError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, "Código de acción expirado", extErr.Message)
}

func TestDeleteAccount(t *testing.T) {
	fake := newFakeToolkit()
	fake.on("deleteAccount", func(map[string]any) (int, any) { return ok(map[string]any{}) })
	client := newTestClient(t, fake)

	require.NoError(t, client.DeleteAccount(context.Background(), &core.IdentityRef{UID: "uid-1", IDToken: "id-token-1"}))
	assert.Equal(t, "id-token-1", fake.received("deleteAccount")[0]["idToken"])
}

// Requirement: IntrospectToken reports rejected tokens as invalid, not as errors.
func TestIntrospectToken(t *testing.T) {
	tests := []struct {
		name      string
		respond   func() (int, any)
		wantValid bool
		wantErr   bool
	}{
		{
			name:      "valid",
			respond:   func() (int, any) { return ok(map[string]any{"users": []any{map[string]any{"email": "alice@example.com"}}}) },
			wantValid: true,
		},
		{
			name:    "disabled user",
			respond: func() (int, any) { return ok(map[string]any{"users": []any{map[string]any{"disabled": true}}}) },
		},
		{
			name:    "no users",
			respond: func() (int, any) { return ok(map[string]any{}) },
		},
		{
			name:    "invalid token",
			respond: func() (int, any) { return apiError("INVALID_ID_TOKEN") },
		},
		{
			name:    "expired token",
			respond: func() (int, any) { return apiError("TOKEN_EXPIRED") },
		},
		{
			name: "server failure",
			respond: func() (int, any) {
				return http.StatusInternalServerError, map[string]any{"error": map[string]any{"code": 500, "message": "BACKEND_ERROR"}}
			},
			wantErr: true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fake := newFakeToolkit()
			fake.on("getAccountInfo", func(map[string]any) (int, any) { return test.respond() })
			client := newTestClient(t, fake)

			status, err := client.IntrospectToken(context.Background(), "id-token")

			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.wantValid, status.Valid)
		})
	}
}

// Requirement: A transport deadline stays detectable through the mapped error.
func TestDeadlineIsPreserved(t *testing.T) {
	fake := newFakeToolkit()
	fake.on("verifyPassword", func(map[string]any) (int, any) {
		time.Sleep(200 * time.Millisecond)
		return ok(map[string]any{})
	})
	client := newTestClient(t, fake)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.VerifyCredentials(ctx, "alice@example.com", "secret1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), fmt.Sprintf("got %v", err))
}
