package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/daycare-center/internal/model"
)

// Principal is the authenticated caller as seen by handlers.
type Principal struct {
	ID   string
	Role model.Role
	Name string
}

// CurrentPrincipal reads what JWTAuth stored.  ok is false on routes
// that are not behind JWTAuth.
func CurrentPrincipal(c echo.Context) (Principal, bool) {
	id, _ := c.Get(CtxUserID).(string)
	role, _ := c.Get(CtxRole).(string)
	if id == "" || role == "" {
		return Principal{}, false
	}
	name, _ := c.Get(CtxName).(string)
	return Principal{ID: id, Role: model.Role(role), Name: name}, true
}
