package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/utils"
)

const authTimeout = 5 * time.Second

// UserStore is the account storage the auth endpoints need.
type UserStore interface {
	Create(ctx context.Context, name, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore keeps hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

type registerReq struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// issue creates an access and refresh pair for u and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    toUserPart(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}

func authFailed(c echo.Context, op string, err error) error {
	c.Logger().Errorj(log.JSON{"op": op, "error": err.Error()})
	return errorJSON(c, http.StatusInternalServerError, "internal", op+" failed")
}

// Register creates a USER account and returns tokens immediately.  The role
// is never taken from the request; admins are promoted out of band.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = repository.NormalizeEmail(req.Email)
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, model.RoleUser, h.Cfg.BcryptCost)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return errorJSON(c, http.StatusConflict, "conflict", "email already registered")
	case errors.Is(err, utils.ErrPasswordTooLong):
		return errorJSON(c, http.StatusBadRequest, "validation_error", "password must be at most 72 bytes")
	}
	if err != nil {
		return authFailed(c, "create user", err)
	}
	resp, err := h.issue(ctx, model.User{ID: uid, Name: req.Name, Email: req.Email, Role: model.RoleUser})
	if err != nil {
		return authFailed(c, "issue tokens", err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, repository.NormalizeEmail(req.Email))
	if errors.Is(err, repository.ErrUserNotFound) {
		utils.VerifyPassword("", req.Password)
		return errorJSON(c, http.StatusUnauthorized, "unauthenticated", "invalid credentials")
	}
	if err != nil {
		return authFailed(c, "load user", err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return errorJSON(c, http.StatusUnauthorized, "unauthenticated", "invalid credentials")
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return authFailed(c, "issue tokens", err)
	}
	return c.JSON(http.StatusOK, resp)
}

func refreshToken(c echo.Context) (string, bool) {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return "", false
	}
	raw := strings.TrimSpace(req.RefreshToken)
	return raw, raw != ""
}

// Refresh validates the refresh token by hash, revokes it and issues a new
// pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw, ok := refreshToken(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "validation_error", "refresh_token required")
	}
	hash := utils.HashRefreshRaw(raw)

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, "unauthenticated", "invalid refresh")
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); errors.Is(err, repository.ErrTokenInvalid) {
		return errorJSON(c, http.StatusUnauthorized, "unauthenticated", "invalid refresh")
	} else if err != nil {
		return authFailed(c, "revoke refresh", err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return errorJSON(c, http.StatusUnauthorized, "unauthenticated", "invalid refresh")
	}
	if err != nil {
		return authFailed(c, "load user", err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return authFailed(c, "issue tokens", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// RefreshAccess returns a new access token without rotating the refresh
// token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	raw, ok := refreshToken(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "validation_error", "refresh_token required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, utils.HashRefreshRaw(raw))
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, "unauthenticated", "invalid refresh")
	}
	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return errorJSON(c, http.StatusUnauthorized, "unauthenticated", "invalid refresh")
	}
	if err != nil {
		return authFailed(c, "load user", err)
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authFailed(c, "issue access", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"access": tokenPart{Token: access.Token, Expires: access.Exp}})
}

// Logout revokes the refresh token in the body, or every refresh token of
// the bearer when the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
	var uid uint64
	if raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer "); ok {
		if id, _, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimSpace(raw)); err == nil {
			uid = id
		}
	}
	refresh, _ := refreshToken(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	switch {
	case refresh != "":
		err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(refresh))
		if errors.Is(err, repository.ErrTokenInvalid) {
			return errorJSON(c, http.StatusUnauthorized, "unauthenticated", "invalid refresh token")
		}
		if err != nil {
			return authFailed(c, "logout", err)
		}
	case uid != 0:
		if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
			return authFailed(c, "logout", err)
		}
	default:
		return errorJSON(c, http.StatusBadRequest, "validation_error", "provide Authorization header or refresh_token")
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, _ := currentUser(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrUserNotFound) {
		return errorJSON(c, http.StatusNotFound, "not_found", "user not found")
	}
	if err != nil {
		return authFailed(c, "load user", err)
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}
