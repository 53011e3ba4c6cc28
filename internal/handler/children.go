package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/daycare-center/internal/model"
	"github.com/iliyamo/daycare-center/internal/service"
)

// ChildrenHandler serves the registered children roster and the link
// reconciliation trigger.
type ChildrenHandler struct {
	Accounts *service.AccountService
}

func NewChildrenHandler(accounts *service.AccountService) *ChildrenHandler {
	return &ChildrenHandler{Accounts: accounts}
}

type matchResp struct {
	Matched bool   `json:"matched"`
	ClassID string `json:"classId,omitempty"`
}

// Match lets the registration form preview the class a claim resolves
// to.  Only the class is disclosed; roster ids never leave this route.
func (h *ChildrenHandler) Match(c echo.Context) error {
	name := strings.TrimSpace(c.QueryParam("name"))
	birth := strings.TrimSpace(c.QueryParam("birthDate"))
	if name == "" || birth == "" {
		return badRequest(c, "name/birthDate required")
	}
	child, ok := h.Accounts.MatchChild(name, birth)
	if !ok {
		return c.JSON(http.StatusOK, matchResp{})
	}
	return c.JSON(http.StatusOK, matchResp{Matched: true, ClassID: child.ClassID})
}

func (h *ChildrenHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Accounts.ListRegisteredChildren())
}

func (h *ChildrenHandler) Create(c echo.Context) error {
	var req model.RegisteredChild
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	child, err := h.Accounts.AddRegisteredChild(ctx, model.RegisteredChild{
		Name:      req.Name,
		BirthDate: req.BirthDate,
		ClassID:   req.ClassID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, child)
}

func (h *ChildrenHandler) Update(c echo.Context) error {
	var patch model.RegisteredChildPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	child, err := h.Accounts.UpdateRegisteredChild(ctx, c.Param("id"), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, child)
}

func (h *ChildrenHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Accounts.DeleteRegisteredChild(ctx, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Reconcile runs a full link pass and reports how many links were made.
func (h *ChildrenHandler) Reconcile(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	return c.JSON(http.StatusOK, echo.Map{"linked": h.Accounts.ReconcileLinks(ctx)})
}
