package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/daycare-center/internal/model"
	"github.com/iliyamo/daycare-center/internal/service"
)

// AuthHandler serves registration, login, token refresh and logout.
type AuthHandler struct {
	Accounts *service.AccountService
	Auth     *service.AuthService
}

func NewAuthHandler(accounts *service.AccountService, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Accounts: accounts, Auth: auth}
}

type registerReq struct {
	Username string              `json:"username"`
	Password string              `json:"password"`
	Name     string              `json:"name"`
	Role     string              `json:"role"` // parent | nutritionist
	Phone    string              `json:"phone"`
	Child    *model.ClaimedChild `json:"child"`
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

// Register creates an unapproved account.  No tokens are issued: the
// account cannot log in until staff approves it.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "username/password required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	acc, err := h.Accounts.Register(ctx, service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Role:     model.Role(strings.ToLower(strings.TrimSpace(req.Role))),
		Phone:    req.Phone,
		Child:    req.Child,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, acc)
}

// Login returns the account together with an access/refresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "username/password required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	sess, err := h.Auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

// Refresh rotates the presented refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	sess, err := h.Auth.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

// Logout revokes the refresh token in the body.  Unknown tokens are
// accepted silently.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, strings.TrimSpace(req.RefreshToken)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
