package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/daycare-center/internal/middleware"
	"github.com/iliyamo/daycare-center/internal/repository"
	"github.com/iliyamo/daycare-center/internal/service"
)

func TestRespondError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrNotApproved, http.StatusForbidden},
		{service.ErrInvalidRefresh, http.StatusUnauthorized},
		{service.ErrRoleNotAllowed, http.StatusForbidden},
		{repository.ErrUsernameTaken, http.StatusConflict},
		{fmt.Errorf("delete: %w", repository.ErrNotFound), http.StatusNotFound},
		{&repository.ValidationError{Field: "name", Reason: "required"}, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	e := echo.New()
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		assert.NoError(t, respondError(c, tc.err))
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
	}
}

func TestRespondError_RecordsUnhandledErrorForRequestLog(t *testing.T) {
	e := echo.New()
	cause := fmt.Errorf("disk on fire")

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.NoError(t, respondError(c, cause))
	assert.Equal(t, cause, c.Get(middleware.CtxError))

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.NoError(t, respondError(c, repository.ErrNotFound))
	assert.Nil(t, c.Get(middleware.CtxError))
}

func TestInt64Param(t *testing.T) {
	e := echo.New()
	for raw, want := range map[string]bool{"12": true, "0": false, "-1": false, "abc": false} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues(raw)
		_, ok := int64Param(c, "id")
		assert.Equal(t, want, ok, raw)
	}
}
