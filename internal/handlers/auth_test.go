package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wizone/it-support-api/internal/dto"
	apierrors "github.com/wizone/it-support-api/internal/errors"
	"github.com/wizone/it-support-api/internal/models"
)

func TestAuthHandler_LoginAndMe(t *testing.T) {
	env := setupAPITestEnv(t)
	env.createUser(t, "maria", models.RoleManager)

	cookies := env.login(t, "maria")

	w := env.request(t, http.MethodGet, "/api/auth/me", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	response := decode[struct {
		User dto.UserDTO `json:"user"`
	}](t, w)
	assert.Equal(t, "maria", response.User.Username)
	assert.Equal(t, models.RoleManager, response.User.Role)
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	env := setupAPITestEnv(t)
	env.createUser(t, "maria", models.RoleManager)

	w := env.request(t, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "maria",
		"password": "wrong-password",
	}, nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apierrors.ErrCodeInvalidCredentials, errorCode(t, w))
}

func TestAuthHandler_Login_DisabledAccount(t *testing.T) {
	env := setupAPITestEnv(t)
	user := env.createUser(t, "gone", models.RoleEngineer)
	require.NoError(t, env.db.Model(user).Update("is_active", false).Error)

	w := env.request(t, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "gone",
		"password": testPassword,
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Me_Unauthenticated(t *testing.T) {
	env := setupAPITestEnv(t)

	w := env.request(t, http.MethodGet, "/api/auth/me", nil, nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apierrors.ErrCodeUnauthorized, errorCode(t, w))
}

func TestAuthHandler_Logout(t *testing.T) {
	env := setupAPITestEnv(t)
	env.createUser(t, "maria", models.RoleManager)
	cookies := env.login(t, "maria")

	w := env.request(t, http.MethodPost, "/api/auth/logout", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodGet, "/api/auth/me", nil, w.Result().Cookies())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_BearerToken(t *testing.T) {
	env := setupAPITestEnv(t)
	env.createUser(t, "field", models.RoleFieldEngineer)

	w := env.request(t, http.MethodPost, "/api/auth/token", map[string]string{
		"username": "field",
		"password": testPassword,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	issued := decode[struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
	}](t, w)
	assert.Equal(t, "Bearer", issued.TokenType)
	require.NotEmpty(t, issued.Token)

	w = env.requestWithToken(t, http.MethodGet, "/api/auth/me", issued.Token)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.requestWithToken(t, http.MethodGet, "/api/auth/me", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserHandler_CreateUser(t *testing.T) {
	env := setupAPITestEnv(t)
	env.createUser(t, "root", models.RoleAdmin)
	env.createUser(t, "maria", models.RoleManager)
	admin := env.login(t, "root")

	payload := map[string]string{
		"username": "newbie",
		"email":    "newbie@wizone.test",
		"password": testPassword,
		"role":     "field_engineer",
	}
	w := env.request(t, http.MethodPost, "/api/users", payload, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, models.RoleFieldEngineer, decode[dto.UserDTO](t, w).Role)

	w = env.request(t, http.MethodPost, "/api/users", payload, admin)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apierrors.ErrCodeConflict, errorCode(t, w))

	payload["username"] = "short"
	payload["email"] = "short@wizone.test"
	payload["password"] = "abc"
	w = env.request(t, http.MethodPost, "/api/users", payload, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, http.MethodPost, "/api/users", payload, env.login(t, "maria"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUserHandler_ListFieldEngineers(t *testing.T) {
	env := setupAPITestEnv(t)
	env.createUser(t, "maria", models.RoleManager)
	env.createUser(t, "jane", models.RoleFieldEngineer)
	env.createUser(t, "bob", models.RoleEngineer)

	w := env.request(t, http.MethodGet, "/api/field-engineers", nil, env.login(t, "bob"))
	require.Equal(t, http.StatusOK, w.Code)

	response := decode[struct {
		Users []dto.UserDTO `json:"users"`
	}](t, w)
	require.Len(t, response.Users, 1)
	assert.Equal(t, "jane", response.Users[0].Username)

	w = env.request(t, http.MethodGet, "/api/users", nil, env.login(t, "bob"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodGet, "/api/users?role=engineer", nil, env.login(t, "maria"))
	require.Equal(t, http.StatusOK, w.Code)
	response = decode[struct {
		Users []dto.UserDTO `json:"users"`
	}](t, w)
	require.Len(t, response.Users, 1)
	assert.Equal(t, "bob", response.Users[0].Username)
}
