package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/daycare-center/internal/model"
	"github.com/iliyamo/daycare-center/internal/service"
)

// AccountsHandler is the admin surface over parent/staff accounts and
// teacher profiles.
type AccountsHandler struct {
	Accounts *service.AccountService
}

func NewAccountsHandler(accounts *service.AccountService) *AccountsHandler {
	return &AccountsHandler{Accounts: accounts}
}

type createAccountReq struct {
	Username string              `json:"username"`
	Password string              `json:"password"`
	Name     string              `json:"name"`
	Role     model.Role          `json:"role"`
	Phone    string              `json:"phone"`
	ClassID  string              `json:"classId"`
	Approved bool                `json:"approved"`
	Child    *model.ClaimedChild `json:"child"`
}

type createTeacherReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	ClassID  string `json:"classId"`
	Approved bool   `json:"approved"`
	PhotoURL string `json:"photoUrl"`
}

type approvalReq struct {
	Approved *bool `json:"approved"`
}

type resetPasswordReq struct {
	Password string `json:"password"`
}

// ---- accounts ----

func (h *AccountsHandler) ListUsers(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Accounts.ListAccounts())
}

func (h *AccountsHandler) CreateUser(c echo.Context) error {
	var req createAccountReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	acc, err := h.Accounts.CreateAccount(ctx, model.NewAccount{
		Username: strings.TrimSpace(req.Username),
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
		Child:    req.Child,
		Phone:    req.Phone,
		ClassID:  req.ClassID,
		Approved: req.Approved,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, acc)
}

func (h *AccountsHandler) UpdateUser(c echo.Context) error {
	var patch model.AccountPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	acc, err := h.Accounts.UpdateAccount(ctx, c.Param("id"), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, acc)
}

func (h *AccountsHandler) SetUserApproval(c echo.Context) error {
	var req approvalReq
	if err := c.Bind(&req); err != nil || req.Approved == nil {
		return badRequest(c, "approved required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	acc, err := h.Accounts.SetApproval(ctx, c.Param("id"), *req.Approved)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, acc)
}

func (h *AccountsHandler) ResetUserPassword(c echo.Context) error {
	return h.resetPassword(c, false)
}

func (h *AccountsHandler) DeleteUser(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Accounts.DeleteAccount(ctx, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- teachers ----

func (h *AccountsHandler) ListTeachers(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Accounts.ListTeachers())
}

func (h *AccountsHandler) CreateTeacher(c echo.Context) error {
	var req createTeacherReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Accounts.AddTeacher(ctx, model.NewTeacher{
		Name:     req.Name,
		Username: strings.TrimSpace(req.Username),
		Password: req.Password,
		Phone:    req.Phone,
		ClassID:  req.ClassID,
		Approved: req.Approved,
		PhotoURL: req.PhotoURL,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *AccountsHandler) UpdateTeacher(c echo.Context) error {
	var patch model.TeacherPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Accounts.UpdateTeacher(ctx, c.Param("id"), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *AccountsHandler) SetTeacherApproval(c echo.Context) error {
	var req approvalReq
	if err := c.Bind(&req); err != nil || req.Approved == nil {
		return badRequest(c, "approved required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Accounts.SetTeacherApproval(ctx, c.Param("id"), *req.Approved)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *AccountsHandler) ResetTeacherPassword(c echo.Context) error {
	return h.resetPassword(c, true)
}

func (h *AccountsHandler) DeleteTeacher(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Accounts.DeleteTeacher(ctx, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AccountsHandler) resetPassword(c echo.Context, teacher bool) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil || req.Password == "" {
		return badRequest(c, "password required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Accounts.ResetPassword(ctx, c.Param("id"), teacher, req.Password); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
