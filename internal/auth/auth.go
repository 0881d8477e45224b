package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/apperr"
)

type UserStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	Create(ctx context.Context, nu NewUser) (*User, error)
	List(ctx context.Context) ([]User, error)
}

type Service struct {
	store  UserStore
	tokens *TokenService
}

func NewService(store UserStore, tokens *TokenService) *Service {
	return &Service{store: store, tokens: tokens}
}

var ErrInvalidCredentials = errors.New("invalid credentials")

// Account is what register and login hand back to the client.
type Account struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Token    string `json:"token"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Account, error) {
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, apperr.Validation("username, email and password are required", "Missing fields")
	}
	user, err := s.store.Create(ctx, NewUser{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     NormalizeRole(req.Role),
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return nil, &apperr.Error{
				Kind:    apperr.KindConflict,
				Message: "Username or email already exists",
				Details: []string{"Duplicate username/email"},
				Err:     err,
			}
		}
		return nil, apperr.Internal("Registration failed", err)
	}
	return s.account(user, "Registration failed")
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*Account, error) {
	if req.UsernameOrEmail == "" || req.Password == "" {
		return nil, apperr.Validation("usernameOrEmail and password required", "Missing fields")
	}
	user, err := s.store.GetByIdentifier(ctx, req.UsernameOrEmail)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, invalidCredentials()
		}
		return nil, apperr.Internal("Login failed", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, invalidCredentials()
	}
	return s.account(user, "Login failed")
}

func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to list users", err)
	}
	return users, nil
}

func (s *Service) account(user *User, failMsg string) (*Account, error) {
	token, err := s.tokens.Issue(user.Principal())
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	return &Account{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		Token:    token,
	}, nil
}

func invalidCredentials() error {
	return &apperr.Error{Kind: apperr.KindUnauthenticated, Message: "Invalid credentials", Err: ErrInvalidCredentials}
}
