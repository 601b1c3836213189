// Package users holds registration, profile management and login.
package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/auth"
	"github.com/ariefcatur/go-shop-api/internal/model"
	"github.com/ariefcatur/go-shop-api/internal/store"
)

type Service struct {
	db     store.DB
	tokens *auth.Tokens
	log    *zap.Logger
	now    func() time.Time
}

func NewService(db store.DB, tokens *auth.Tokens, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, tokens: tokens, log: log, now: func() time.Time { return time.Now().UTC() }}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func (s *Service) create(ctx context.Context, in RegisterInput, role model.Role) (model.User, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return model.User{}, apperr.Wrap(apperr.Internal, "An error occurred while registering.", err)
	}
	now := s.now()
	u := model.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.Users().Create(ctx, &u); err != nil {
		return model.User{}, err
	}
	s.log.Info("user created", zap.String("user_id", u.ID), zap.String("role", string(role)))
	return u, nil
}

// Register creates a Customer account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	return s.create(ctx, in, model.RoleCustomer)
}

// SeedAdmin creates the given admin unless an admin already exists. It
// reports whether a user was created.
func (s *Service) SeedAdmin(ctx context.Context, in RegisterInput) (bool, error) {
	exists, err := s.db.Users().HasRole(ctx, model.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	if exists {
		return false, nil
	}
	if _, err := s.create(ctx, in, model.RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.User, error) {
	return s.db.Users().Get(ctx, id)
}

func (s *Service) List(ctx context.Context, page model.PageRequest) (model.Page[model.User], error) {
	page = page.Normalize()
	items, total, err := s.db.Users().List(ctx, page)
	if err != nil {
		return model.Page[model.User]{}, err
	}
	return model.NewPage(items, total, page), nil
}

func (s *Service) Update(ctx context.Context, id string, patch model.UserPatch) (model.User, error) {
	if patch.Email != nil {
		e := normalizeEmail(*patch.Email)
		patch.Email = &e
	}
	if patch.Name != nil {
		n := strings.TrimSpace(*patch.Name)
		patch.Name = &n
	}
	return s.db.Users().Update(ctx, id, patch)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.db.Users().Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("user deleted", zap.String("user_id", id))
	return nil
}

func (s *Service) Login(ctx context.Context, email, password string) (auth.TokenPair, error) {
	u, err := s.db.Users().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return auth.TokenPair{}, err
	}
	if !auth.ComparePassword(u.PasswordHash, password) {
		return auth.TokenPair{}, apperr.New(apperr.Unauthenticated, "Invalid credentials")
	}
	pair, err := s.tokens.Issue(u)
	if err != nil {
		return auth.TokenPair{}, apperr.Wrap(apperr.Internal, "An error occurred while logging in.", err)
	}
	return pair, nil
}

// Refresh exchanges a valid refresh token for a new access token. The user
// is reloaded so a deleted account or a changed role takes effect.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return auth.TokenPair{}, apperr.Wrap(apperr.Unauthenticated, "Invalid refresh token", err)
	}
	u, err := s.db.Users().Get(ctx, claims.ID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return auth.TokenPair{}, apperr.New(apperr.Unauthenticated, "Invalid refresh token")
		}
		return auth.TokenPair{}, err
	}
	access, err := s.tokens.IssueAccess(u)
	if err != nil {
		return auth.TokenPair{}, apperr.Wrap(apperr.Internal, "An error occurred while refreshing the token.", err)
	}
	return auth.TokenPair{AccessToken: access}, nil
}
