package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/daycare-center/internal/model"
	"github.com/iliyamo/daycare-center/internal/repository"
	"github.com/iliyamo/daycare-center/internal/utils"
)

func newAuth(t *testing.T) (*AuthService, *fixture) {
	t.Helper()
	f := newFixture(t)
	auth := NewAuthService(f.svc, repository.NewMemoryTokenRepo(), TokenConfig{
		JWTSecret:      "jwt-test",
		AccessTTLMin:   5,
		RefreshTTLDays: 1,
	}, zap.NewNop())
	return auth, f
}

func TestAuthService_LoginIssuesTokens(t *testing.T) {
	auth, _ := newAuth(t)

	sess, err := auth.Login(context.Background(), "admin", "123")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.RefreshToken)

	claims, err := utils.ParseAccessToken("jwt-test", sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "1", claims["sub"])
	assert.Equal(t, "admin", claims["role"])
}

func TestAuthService_LoginErrorsPassThrough(t *testing.T) {
	auth, _ := newAuth(t)

	_, err := auth.Login(context.Background(), "admin", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_RefreshRotates(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()
	first, err := auth.Login(ctx, "admin", "123")
	require.NoError(t, err)

	second, err := auth.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, "1", second.Account.ID)

	_, err = auth.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh, "a rotated token cannot be reused")
}

func TestAuthService_RefreshTeacherAndRevokedApproval(t *testing.T) {
	auth, f := newAuth(t)
	ctx := context.Background()
	tch, err := f.svc.AddTeacher(ctx, model.NewTeacher{Username: "teacher1", Password: "pw", Approved: true})
	require.NoError(t, err)

	sess, err := auth.Login(ctx, "teacher1", "pw")
	require.NoError(t, err)
	assert.Equal(t, model.RoleTeacher, sess.Account.Role)

	_, err = f.svc.SetTeacherApproval(ctx, tch.ID, false)
	require.NoError(t, err)
	_, err = auth.Refresh(ctx, sess.RefreshToken)
	assert.ErrorIs(t, err, ErrNotApproved)
}

func TestAuthService_Logout(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()
	sess, err := auth.Login(ctx, "admin", "123")
	require.NoError(t, err)

	require.NoError(t, auth.Logout(ctx, sess.RefreshToken))
	_, err = auth.Refresh(ctx, sess.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	assert.NoError(t, auth.Logout(ctx, ""))
	_, err = auth.Refresh(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}
