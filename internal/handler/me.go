package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/daycare-center/internal/linker"
	"github.com/iliyamo/daycare-center/internal/middleware"
	"github.com/iliyamo/daycare-center/internal/model"
	"github.com/iliyamo/daycare-center/internal/service"
)

// MeHandler serves the authenticated caller's own profile.
type MeHandler struct {
	Accounts *service.AccountService
	Content  *service.ContentService
}

func NewMeHandler(accounts *service.AccountService, content *service.ContentService) *MeHandler {
	return &MeHandler{Accounts: accounts, Content: content}
}

type profileReq struct {
	Name  *string             `json:"name"`
	Phone *string             `json:"phone"`
	Child *model.ClaimedChild `json:"child"`
}

type passwordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *MeHandler) Get(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	acc, err := h.Accounts.Profile(ctx, p.ID, p.Role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, acc)
}

// Update edits name, phone and the claimed child.  A parent whose new
// claim matches an unlinked registered child is linked in the same call.
func (h *MeHandler) Update(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	acc, err := h.Accounts.UpdateProfile(ctx, p.ID, p.Role, linker.ProfileUpdate{
		Name:  req.Name,
		Phone: req.Phone,
		Child: req.Child,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, acc)
}

func (h *MeHandler) ChangePassword(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req passwordReq
	if err := c.Bind(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		return badRequest(c, "currentPassword/newPassword required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Accounts.ChangePassword(ctx, p.ID, p.Role, req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Posts lists posts including board entries addressed to the caller.
func (h *MeHandler) Posts(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, h.Content.Posts(p.ID, p.Role))
}
