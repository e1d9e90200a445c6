package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/projecthub-api/internal/dto"
)

func signupAndLogin(t *testing.T, env *testEnv, email string) (dto.UserDTO, string, *httptest.ResponseRecorder) {
	t.Helper()

	w := env.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":        email,
		"display_name": "New User",
		"password":     "supersecret",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp loginResponse
	decode(t, w, &resp)
	require.NotEmpty(t, resp.AccessToken)
	return resp.User, resp.AccessToken, w
}

func TestAuthHandler_SignupLoginMe(t *testing.T) {
	env := setupTestEnv(t)

	user, token, _ := signupAndLogin(t, env, "New.User@Example.com")
	assert.Equal(t, "new.user@example.com", user.Email)
	assert.Equal(t, "New User", user.DisplayName)

	w := env.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me dto.UserDTO
	decode(t, w, &me)
	assert.Equal(t, user.ID, me.ID)
}

func TestAuthHandler_SignupRejectsDuplicateEmail(t *testing.T) {
	env := setupTestEnv(t)
	signupAndLogin(t, env, "dup@example.com")

	w := env.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":        "DUP@example.com",
		"display_name": "Again",
		"password":     "supersecret",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "EMAIL_TAKEN", errorCode(t, w))
}

func TestAuthHandler_SignupValidation(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"malformed json", "{"},
		{"missing password", map[string]string{"email": "a@example.com", "display_name": "A"}},
		{"short password", map[string]string{"email": "a@example.com", "display_name": "A", "password": "short"}},
		{"bad email", map[string]string{"email": "nope", "display_name": "A", "password": "supersecret"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/auth/signup", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestAuthHandler_LoginWrongPassword(t *testing.T) {
	env := setupTestEnv(t)
	signupAndLogin(t, env, "user@example.com")

	w := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "user@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w))
}

func TestAuthHandler_SessionCookie(t *testing.T) {
	env := setupTestEnv(t)
	_, _, loginResp := signupAndLogin(t, env, "cookie@example.com")

	cookies := loginResp.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAuthHandler_LogoutRevokesToken(t *testing.T) {
	env := setupTestEnv(t)
	_, token, _ := signupAndLogin(t, env, "bye@example.com")

	w := env.do(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_REVOKED", errorCode(t, w))
}

func TestAuthHandler_RequiresAuthentication(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodGet, "/api/auth/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
