package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/daycare-center/internal/model"
	"github.com/iliyamo/daycare-center/internal/repository"
	"github.com/iliyamo/daycare-center/internal/utils"
)

// TokenStore persists refresh token hashes.
type TokenStore interface {
	StoreRefresh(ctx context.Context, tokenHash string, sess repository.RefreshSession, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (repository.RefreshSession, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
}

// TokenConfig holds the signing secret and token lifetimes.
type TokenConfig struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
}

// Session is what a successful login or refresh returns to the client.
type Session struct {
	Account      model.Account `json:"user"`
	AccessToken  string        `json:"access_token"`
	AccessExp    time.Time     `json:"access_expires_at"`
	RefreshToken string        `json:"refresh_token"`
	RefreshExp   time.Time     `json:"refresh_expires_at"`
}

// AuthService issues and rotates tokens around AccountService.Login.
type AuthService struct {
	accounts *AccountService
	tokens   TokenStore
	cfg      TokenConfig
	log      *zap.Logger
}

func NewAuthService(accounts *AccountService, tokens TokenStore, cfg TokenConfig, log *zap.Logger) *AuthService {
	return &AuthService{accounts: accounts, tokens: tokens, cfg: cfg, log: log}
}

// Login verifies credentials and opens a session.
func (a *AuthService) Login(ctx context.Context, username, password string) (Session, error) {
	acc, isTeacher, err := a.accounts.Login(ctx, username, password)
	if err != nil {
		return Session{}, err
	}
	return a.issue(ctx, acc, isTeacher)
}

// Refresh rotates a refresh token: the presented token is revoked and a
// new pair is issued.  Accounts deleted or unapproved since login cannot
// refresh.
func (a *AuthService) Refresh(ctx context.Context, raw string) (Session, error) {
	if raw == "" {
		return Session{}, ErrInvalidRefresh
	}
	hash := utils.HashRefreshRaw(raw)
	sess, err := a.tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return Session{}, ErrInvalidRefresh
	}
	if err != nil {
		return Session{}, err
	}
	if err := a.tokens.RevokeByHash(ctx, hash); err != nil {
		return Session{}, err
	}

	role := model.RoleParent
	if sess.Teacher {
		role = model.RoleTeacher
	}
	acc, err := a.accounts.Profile(ctx, sess.AccountID, role)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidRefresh
	}
	if err != nil {
		return Session{}, err
	}
	if !acc.Approved && acc.Role != model.RoleAdmin {
		return Session{}, ErrNotApproved
	}
	return a.issue(ctx, acc, sess.Teacher)
}

// Logout revokes a refresh token.  Unknown tokens are ignored.
func (a *AuthService) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	return a.tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw))
}

func (a *AuthService) issue(ctx context.Context, acc model.Account, isTeacher bool) (Session, error) {
	at, err := utils.NewAccessToken(a.cfg.JWTSecret, acc.ID, string(acc.Role), acc.Name, a.cfg.AccessTTLMin)
	if err != nil {
		return Session{}, err
	}
	rt, err := utils.NewRefreshToken(a.cfg.RefreshTTLDays)
	if err != nil {
		return Session{}, err
	}
	sess := repository.RefreshSession{AccountID: acc.ID, Teacher: isTeacher}
	if err := a.tokens.StoreRefresh(ctx, utils.HashRefreshRaw(rt.Raw), sess, rt.Exp); err != nil {
		a.log.Error("store refresh token failed", zap.String("account_id", acc.ID), zap.Error(err))
		return Session{}, err
	}
	return Session{
		Account:      acc,
		AccessToken:  at.Token,
		AccessExp:    at.Exp,
		RefreshToken: rt.Raw,
		RefreshExp:   rt.Exp,
	}, nil
}
