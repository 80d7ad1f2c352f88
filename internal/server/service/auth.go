package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"chatter/internal/server/database"

	"golang.org/x/crypto/bcrypt"
)

// UserRepository persists credentials.
type UserRepository interface {
	CreateUser(ctx context.Context, user *database.User) error
	GetUserByUsername(ctx context.Context, username string) (*database.User, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(username string) (string, error)
}

// AuthService handles registration and login.
type AuthService struct {
	users  UserRepository
	tokens TokenIssuer
	cost   int
}

// NewAuthService creates a new auth service.
func NewAuthService(users UserRepository, tokens TokenIssuer) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
	}
}

// Register creates a user and returns a fresh session token.
func (s *AuthService) Register(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", ErrMissingCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &database.User{Username: username, PasswordHash: string(hash)}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrUserExists) {
			return "", ErrUsernameTaken
		}
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(username)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user registered", "username", username)
	return token, nil
}

// Login checks the password against the stored hash and returns a fresh
// session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", ErrMissingCredentials
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(username)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}
