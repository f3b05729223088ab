package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/crew-booking/internal/config"
	"github.com/iliyamo/crew-booking/internal/model"
	"github.com/iliyamo/crew-booking/internal/repository"
	"github.com/iliyamo/crew-booking/internal/service"
	"github.com/iliyamo/crew-booking/internal/utils"
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, p *model.Person) error
	GetByEmail(ctx context.Context, email string) (*model.Person, error)
	GetPerson(ctx context.Context, id uint64) (*model.Person, error)
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	RotateRefresh(ctx context.Context, oldHash, newHash string, exp time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
	Log    *zap.Logger
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Log: log}
}

type registerReq struct {
	Name             string  `json:"name"              validate:"required"`
	Email            string  `json:"email"             validate:"required,email"`
	Password         string  `json:"password"          validate:"required,min=6"`
	UserType         string  `json:"user_type"         validate:"required,usertype"`
	RoleCategory     string  `json:"role_category"     validate:"rolecategory"`
	Contact          string  `json:"contact"           validate:"required"`
	EmergencyContact *string `json:"emergency_contact"`
}

type loginReq struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    *model.Person `json:"user"`
	Access  tokenPart     `json:"access"`
	Refresh tokenPart     `json:"refresh"`
}

// Register creates an account and returns a token pair.  The role category
// must suit the user type: performers and engineers need one of their own
// categories, coordinators have none.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	ut := model.UserType(req.UserType)
	rc := model.RoleCategory(strings.TrimSpace(req.RoleCategory))
	if !ut.Allows(rc) {
		msg := "not allowed for " + string(ut)
		if rc == model.RoleNone {
			msg = "is required for " + string(ut)
		}
		return writeError(c, h.Log, service.ValidationError("Validation failed",
			service.FieldError{Field: "role_category", Message: msg}))
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return writeError(c, h.Log, service.ValidationError("Validation failed",
				service.FieldError{Field: "password", Message: "must be at most 72 bytes"}))
		}
		return writeError(c, h.Log, err)
	}

	ctx := c.Request().Context()
	p := &model.Person{
		Name:             strings.TrimSpace(req.Name),
		Email:            strings.TrimSpace(req.Email),
		PasswordHash:     hash,
		UserType:         ut,
		RoleCategory:     rc,
		Contact:          strings.TrimSpace(req.Contact),
		EmergencyContact: req.EmergencyContact,
	}
	if err := h.Users.CreateUser(ctx, p); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return writeError(c, h.Log, service.ConflictError("User already exists"))
		}
		return writeError(c, h.Log, err)
	}

	resp, err := h.issue(ctx, p)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.Log.Info("user registered", zap.Uint64("user_id", p.ID), zap.String("user_type", string(p.UserType)))
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	ctx := c.Request().Context()

	p, err := h.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return writeError(c, h.Log, service.AuthenticationError("Invalid credentials"))
		}
		return writeError(c, h.Log, err)
	}
	if !utils.VerifyPassword(p.PasswordHash, req.Password) {
		return writeError(c, h.Log, service.AuthenticationError("Invalid credentials"))
	}

	resp, err := h.issue(ctx, p)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh exchanges a refresh token for a new pair.  The old token is
// revoked in the same step, so each refresh token works once.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	ctx := c.Request().Context()

	next, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	oldHash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))
	userID, err := h.Tokens.RotateRefresh(ctx, oldHash, utils.HashRefreshRaw(next.Raw), next.Exp)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return writeError(c, h.Log, service.AuthenticationError("Invalid refresh token"))
		}
		return writeError(c, h.Log, err)
	}

	p, err := h.Users.GetPerson(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return writeError(c, h.Log, service.AuthenticationError("Invalid refresh token"))
		}
		return writeError(c, h.Log, err)
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, p, h.Cfg.AccessTTLMin)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, authResp{
		User:    p,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: next.Raw, Expires: next.Exp},
	})
}

// Logout revokes the refresh token in the body.  Unknown or already revoked
// tokens are accepted so the call is idempotent.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return writeError(c, h.Log, err)
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))
	if err := h.Tokens.RevokeByHash(c.Request().Context(), hash); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll revokes every refresh token of the authenticated caller.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, service.AuthenticationError("unauthorized"))
	}
	if err := h.Tokens.RevokeAllForUser(c.Request().Context(), uid); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated caller's account.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, h.Log, service.AuthenticationError("unauthorized"))
	}
	p, err := h.Users.GetPerson(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return writeError(c, h.Log, service.NotFoundError("User not found"))
		}
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": p})
}

func (h *AuthHandler) issue(ctx context.Context, p *model.Person) (*authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, p, h.Cfg.AccessTTLMin)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return nil, err
	}
	if err := h.Tokens.StoreRefresh(ctx, p.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, err
	}
	return &authResp{
		User:    p,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}
