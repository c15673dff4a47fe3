// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes the store (MongoDB or SQLite)
//
// Services take repository INTERFACES, never a concrete *mongo.DB or
// *sqlite.DB. server.go decides which store backs them; the tests (see
// account_test.go and post_test.go) pass in-memory fakes.
//
// RETURN DOMAIN ERRORS:
// Services return apperror values (NotFound, Conflict, InvalidCredentials,
// ValidationFailed), never HTTP status codes. The handler translates.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/blog-api/internal/apperror"
	"github.com/sakif/blog-api/internal/auth"
	"github.com/sakif/blog-api/internal/model"
	"github.com/sakif/blog-api/internal/repository"
)

// AccountService handles signup, login and the account listing.
//
// DEPENDENCIES (injected via NewAccountService):
//   - users      repository.UserRepository → the Account Directory
//   - tokens     *auth.TokenService        → the Token Issuer
//   - passwords  auth.PasswordPolicy       → plaintext or bcrypt, per PASSWORD_MODE
//   - logger     *slog.Logger
type AccountService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords auth.PasswordPolicy
	logger    *slog.Logger
}

// NewAccountService creates an AccountService with all required dependencies.
func NewAccountService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords auth.PasswordPolicy,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// LoginResult bundles the issued token with the account it was issued for,
// so the handler can answer in one step.
type LoginResult struct {
	Token string
	User  *model.User
}

// Signup creates a new account.
//
// THE EXISTENCE CHECK IS NOT ENOUGH ON ITS OWN:
// Two signups for the same name can both see Exists == false. Both stores
// also enforce uniqueness (unique index / UNIQUE column) and report the
// loser as apperror.ErrConflict, so the outcome is the same either way.
//
// Usernames are compared exactly. Only surrounding whitespace is rejected
// as "empty"; the stored name is what the client sent.
func (s *AccountService) Signup(ctx context.Context, username, password, role string) (*model.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	exists, err := s.users.Exists(ctx, username)
	if err != nil {
		s.logger.Error("failed to check account",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/account: checking %q: %w", username, err)
	}
	if exists {
		return nil, apperror.Conflict("user", username)
	}

	stored, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/account: hashing password: %w", err)
	}

	user := &model.User{
		Username: username,
		Password: stored,
		Role:     role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create account",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/account: creating %q: %w", username, err)
	}

	s.logger.Info("account created",
		slog.String("id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login checks the credentials and issues a token embedding {id, role}.
//
// An unknown username and a wrong password both come back as
// apperror.InvalidCredentials, so a caller cannot probe which names exist.
func (s *AccountService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		s.logger.Error("failed to look up account",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/account: finding %q: %w", username, err)
	}

	if err := s.passwords.Verify(user.Password, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/account: verifying password: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("service/account: issuing token for %s: %w", user.ID, err)
	}

	s.logger.Info("account logged in", slog.String("id", user.ID))
	return &LoginResult{Token: token, User: user}, nil
}

// ListAccounts returns every stored account, passwords included.
// It backs the unauthenticated GET / dump.
func (s *AccountService) ListAccounts(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		s.logger.Error("failed to list accounts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/account: listing: %w", err)
	}
	return users, nil
}
