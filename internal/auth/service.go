package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"moneta/internal/core"
	"moneta/internal/storage"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 6
)

// Session is returned on successful register or login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      core.User
}

type Service struct {
	users  storage.UserStore
	tokens *Tokens
	cost   int
}

func NewService(users storage.UserStore, tokens *Tokens) *Service {
	return &Service{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

func (s *Service) Register(ctx context.Context, username, email, password string) (Session, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := validateRegistration(username, email, password); err != nil {
		return Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, core.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return Session{}, err
	}

	slog.InfoContext(ctx, "User registered", "user_id", u.ID, "username", u.Username)
	return s.session(u)
}

// Login never reveals whether the username exists.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	u, err := s.users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Login failed", "username", username, "reason", "unknown user")
		return Session{}, core.Unauthorizedf("invalid username or password")
	}
	if err != nil {
		return Session{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		slog.WarnContext(ctx, "Login failed", "username", username, "reason", "bad password")
		return Session{}, core.Unauthorizedf("invalid username or password")
	}

	slog.InfoContext(ctx, "User logged in", "user_id", u.ID)
	return s.session(u)
}

// Tokens exposes the token verifier used by Middleware.
func (s *Service) Tokens() *Tokens {
	return s.tokens
}

func (s *Service) session(u core.User) (Session, error) {
	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	u.PasswordHash = ""
	return Session{Token: token, ExpiresAt: exp, User: u}, nil
}

func validateRegistration(username, email, password string) error {
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return core.Validationf("username must be between %d and %d characters", minUsernameLen, maxUsernameLen)
	}
	if email == "" {
		return core.Validationf("email is required")
	}
	if at := strings.Index(email, "@"); at <= 0 || at == len(email)-1 {
		return core.Validationf("email must be valid")
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return core.Validationf("password must be at least %d characters", minPasswordLen)
	}
	return nil
}
