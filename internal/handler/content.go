package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/daycare-center/internal/middleware"
	"github.com/iliyamo/daycare-center/internal/model"
	"github.com/iliyamo/daycare-center/internal/service"
)

// ContentHandler serves posts, album photos, classes and site settings.
// Public reads never include board entries addressed to a parent.
type ContentHandler struct {
	Content *service.ContentService
}

func NewContentHandler(content *service.ContentService) *ContentHandler {
	return &ContentHandler{Content: content}
}

var errMenuOnly = echo.Map{"error": "nutritionists may only manage menu posts"}

// ---- public reads ----

func (h *ContentHandler) Posts(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Content.Posts("", ""))
}

func (h *ContentHandler) AlbumPhotos(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Content.AlbumPhotos())
}

func (h *ContentHandler) Classes(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Content.Classes())
}

func (h *ContentHandler) SiteSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Content.SiteSettings())
}

// ---- posts ----

func (h *ContentHandler) CreatePost(c echo.Context) error {
	p, _ := middleware.CurrentPrincipal(c)
	var req model.Post
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if p.Role == model.RoleNutritionist && req.Type != model.PostMenu {
		return c.JSON(http.StatusForbidden, errMenuOnly)
	}
	if req.Author == "" {
		req.Author = p.Name
	}
	req.ID, req.Date = 0, ""

	ctx, cancel := reqCtx(c)
	defer cancel()

	post, err := h.Content.AddPost(ctx, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, post)
}

func (h *ContentHandler) UpdatePost(c echo.Context) error {
	id, ok := int64Param(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var patch model.PostPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid body")
	}
	if allowed, err := h.menuGuard(c, id); !allowed {
		return err
	}
	p, _ := middleware.CurrentPrincipal(c)
	if p.Role == model.RoleNutritionist && patch.Type != nil && *patch.Type != model.PostMenu {
		return c.JSON(http.StatusForbidden, errMenuOnly)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	post, err := h.Content.UpdatePost(ctx, id, patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, post)
}

func (h *ContentHandler) DeletePost(c echo.Context) error {
	id, ok := int64Param(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if allowed, err := h.menuGuard(c, id); !allowed {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Content.DeletePost(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// menuGuard reports whether the caller may modify post id.  When it may
// not, the response has already been written and err is its result.
func (h *ContentHandler) menuGuard(c echo.Context, id int64) (allowed bool, err error) {
	p, _ := middleware.CurrentPrincipal(c)
	if p.Role != model.RoleNutritionist {
		return true, nil
	}
	post, err := h.Content.Post(id)
	if err != nil {
		return false, respondError(c, err)
	}
	if post.Type != model.PostMenu {
		return false, c.JSON(http.StatusForbidden, errMenuOnly)
	}
	return true, nil
}

// ---- album photos ----

func (h *ContentHandler) CreateAlbumPhoto(c echo.Context) error {
	var req model.AlbumPhoto
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.ID, req.Date = 0, ""

	ctx, cancel := reqCtx(c)
	defer cancel()

	photo, err := h.Content.AddAlbumPhoto(ctx, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, photo)
}

func (h *ContentHandler) DeleteAlbumPhoto(c echo.Context) error {
	id, ok := int64Param(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Content.DeleteAlbumPhoto(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- classes ----

func (h *ContentHandler) CreateClass(c echo.Context) error {
	var req model.ClassData
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	class, err := h.Content.AddClass(ctx, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, class)
}

func (h *ContentHandler) UpdateClass(c echo.Context) error {
	var patch model.ClassPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	class, err := h.Content.UpdateClass(ctx, c.Param("id"), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, class)
}

func (h *ContentHandler) DeleteClass(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Content.DeleteClass(ctx, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- site settings ----

// UpdateSiteSettings replaces the whole settings document.
func (h *ContentHandler) UpdateSiteSettings(c echo.Context) error {
	var req model.SiteSettings
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	return c.JSON(http.StatusOK, h.Content.UpdateSiteSettings(ctx, req))
}
