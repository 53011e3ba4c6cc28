package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/daycare-center/internal/model"
	"github.com/iliyamo/daycare-center/internal/utils"
)

const testSecret = "mw-secret"

func whoami(c echo.Context) error {
	p, ok := CurrentPrincipal(c)
	if !ok {
		return c.NoContent(http.StatusTeapot)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": p.ID, "role": p.Role, "name": p.Name})
}

func serve(t *testing.T, h echo.HandlerFunc, token string, mws ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/x", h, mws...)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, id string, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, id, string(role), "김보육", 5)
	require.NoError(t, err)
	return tok.Token
}

func TestJWTAuth(t *testing.T) {
	rec := serve(t, whoami, token(t, "7", model.RoleParent), JWTAuth(testSecret))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"7","role":"parent","name":"김보육"}`, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(t, whoami, "", JWTAuth(testSecret)).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, whoami, "garbage", JWTAuth(testSecret)).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, whoami, token(t, "7", model.RoleParent), JWTAuth("other")).Code)
}

func TestCurrentPrincipal_WithoutAuth(t *testing.T) {
	assert.Equal(t, http.StatusTeapot, serve(t, whoami, "").Code)
}

func TestRequireRole(t *testing.T) {
	staff := []echo.MiddlewareFunc{JWTAuth(testSecret), RequireRole(model.RoleAdmin, model.RoleTeacher)}

	assert.Equal(t, http.StatusOK, serve(t, whoami, token(t, "1", model.RoleAdmin), staff...).Code)
	assert.Equal(t, http.StatusOK, serve(t, whoami, token(t, "t1", model.RoleTeacher), staff...).Code)
	assert.Equal(t, http.StatusForbidden, serve(t, whoami, token(t, "2", model.RoleParent), staff...).Code)
	assert.Equal(t, http.StatusForbidden, serve(t, whoami, "", RequireRole(model.RoleAdmin)).Code)
}
