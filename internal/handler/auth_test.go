package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/middleware"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/utils"
)

const testSecret = "test-secret"

type memUsers struct {
	mu    sync.Mutex
	users map[uint64]model.User
}

func (m *memUsers) Create(_ context.Context, name, email, password, role string, cost int) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	id := uint64(len(m.users) + 1)
	m.users[id] = model.User{ID: id, Name: name, Email: email, PasswordHash: hash, Role: role, IsActive: true}
	return id, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

type memTokens struct {
	mu      sync.Mutex
	owner   map[string]uint64
	revoked map[string]bool
}

func (m *memTokens) StoreRefresh(_ context.Context, userID uint64, hash string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owner[hash] = userID
	return nil
}

func (m *memTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.owner[hash]
	if !ok || m.revoked[hash] {
		return 0, repository.ErrTokenInvalid
	}
	return id, nil
}

func (m *memTokens) RevokeByHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.owner[hash]; !ok || m.revoked[hash] {
		return repository.ErrTokenInvalid
	}
	m.revoked[hash] = true
	return nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h, id := range m.owner {
		if id == userID {
			m.revoked[h] = true
		}
	}
	return nil
}

func authRoutes(t *testing.T) (*AuthHandler, *memTokens, func(method, path, body, bearer string) (int, []byte)) {
	t.Helper()
	users := &memUsers{users: map[uint64]model.User{}}
	tokens := &memTokens{owner: map[string]uint64{}, revoked: map[string]bool{}}
	h := NewAuthHandler(config.Config{JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}, users, tokens)

	e := newEcho()
	g := e.Group("/v1/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/refresh-access", h.RefreshAccess)
	g.POST("/logout", h.Logout)
	e.GET("/v1/me", h.Me, middleware.JWTAuth(testSecret))

	call := func(method, path, body, bearer string) (int, []byte) {
		req := newJSONRequest(method, path, body)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		rec := serve(e, req)
		return rec.Code, rec.Body.Bytes()
	}
	return h, tokens, call
}

func decodeAuth(t *testing.T, body []byte) authResp {
	t.Helper()
	var out authResp
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestRegisterAlwaysCreatesUserRole(t *testing.T) {
	_, _, call := authRoutes(t)

	code, body := call(http.MethodPost, "/v1/auth/register",
		`{"name":"Ana","email":" Ana@Example.com ","password":"secret123","role":"ADMIN"}`, "")
	require.Equal(t, http.StatusCreated, code, string(body))
	resp := decodeAuth(t, body)
	assert.Equal(t, model.RoleUser, resp.User.Role)
	assert.Equal(t, "ana@example.com", resp.User.Email)

	_, role, err := utils.ParseAccessToken(testSecret, resp.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, role)

	code, _ = call(http.MethodPost, "/v1/auth/register", `{"name":"Ana","email":"ana@example.com","password":"secret123"}`, "")
	assert.Equal(t, http.StatusConflict, code)
}

func TestRegisterValidation(t *testing.T) {
	_, _, call := authRoutes(t)
	for _, body := range []string{
		`{"email":"a@example.com","password":"secret123"}`,
		`{"name":"A","email":"not-an-email","password":"secret123"}`,
		`{"name":"A","email":"a@example.com","password":"123"}`,
		`{"name":"   ","email":"a@example.com","password":"secret123"}`,
	} {
		code, _ := call(http.MethodPost, "/v1/auth/register", body, "")
		assert.Equal(t, http.StatusBadRequest, code, body)
	}
}

func TestLoginAndMe(t *testing.T) {
	_, _, call := authRoutes(t)
	code, _ := call(http.MethodPost, "/v1/auth/register", `{"name":"Ana","email":"ana@example.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, code)

	code, _ = call(http.MethodPost, "/v1/auth/login", `{"email":"ana@example.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = call(http.MethodPost, "/v1/auth/login", `{"email":"nobody@example.com","password":"secret123"}`, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := call(http.MethodPost, "/v1/auth/login", `{"email":"ANA@example.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusOK, code)
	resp := decodeAuth(t, body)

	code, body = call(http.MethodGet, "/v1/me", "", resp.Access.Token)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"name":"Ana"`)

	code, _ = call(http.MethodGet, "/v1/me", "", "garbage")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRefreshRotatesToken(t *testing.T) {
	_, _, call := authRoutes(t)
	_, body := call(http.MethodPost, "/v1/auth/register", `{"name":"Ana","email":"ana@example.com","password":"secret123"}`, "")
	first := decodeAuth(t, body).Refresh.Token

	code, body := call(http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"`+first+`"}`, "")
	require.Equal(t, http.StatusOK, code)
	second := decodeAuth(t, body).Refresh.Token
	assert.NotEqual(t, first, second)

	code, _ = call(http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"`+first+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = call(http.MethodPost, "/v1/auth/refresh-access", `{"refresh_token":"`+second+`"}`, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"access"`)
}

func TestLogout(t *testing.T) {
	_, tokens, call := authRoutes(t)
	_, body := call(http.MethodPost, "/v1/auth/register", `{"name":"Ana","email":"ana@example.com","password":"secret123"}`, "")
	resp := decodeAuth(t, body)

	code, _ := call(http.MethodPost, "/v1/auth/logout", "", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(http.MethodPost, "/v1/auth/logout", "", resp.Access.Token)
	assert.Equal(t, http.StatusNoContent, code)
	assert.True(t, tokens.revoked[utils.HashRefreshRaw(resp.Refresh.Token)])

	code, _ = call(http.MethodPost, "/v1/auth/logout", `{"refresh_token":"`+resp.Refresh.Token+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, code)
}
