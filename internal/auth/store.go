package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("username or email already exists")
)

// pqUniqueViolation is the SQLSTATE for unique_violation.
const pqUniqueViolation = "23505"

type NewUser struct {
	Username string
	Email    string
	Password string
	Role     Role
}

type Store struct {
	db   *sql.DB
	cost int
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, cost: bcrypt.DefaultCost}
}

const userColumns = `id, username, email, password_hash, role, created_at`

// GetByIdentifier looks a user up by username or email.
func (s *Store) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $1 LIMIT 1`
	row := s.db.QueryRowContext(ctx, q, identifier)
	u := &User{}
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

func (s *Store) Exists(ctx context.Context, username, email string) (bool, error) {
	const q = `SELECT 1 FROM users WHERE username = $1 OR email = $2 LIMIT 1`
	var one int
	if err := s.db.QueryRowContext(ctx, q, username, email).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check user uniqueness: %w", err)
	}
	return true, nil
}

// Create hashes the password and inserts the user. It returns
// ErrDuplicateUser when the username or email is taken, including when a
// concurrent insert wins the race past the Exists check.
func (s *Store) Create(ctx context.Context, nu NewUser) (*User, error) {
	exists, err := s.Exists(ctx, nu.Username, nu.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateUser
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	const q = `
		INSERT INTO users (username, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns
	u := &User{}
	if err := s.db.QueryRowContext(ctx, q, nu.Username, nu.Email, string(hash), NormalizeRole(string(nu.Role)), time.Now().UTC()).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *Store) List(ctx context.Context) ([]User, error) {
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	res := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		res = append(res, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return res, nil
}

type usersFile struct {
	Users []struct {
		Username string `yaml:"username"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
		Role     string `yaml:"role"`
	} `yaml:"users"`
}

// UserCreator is the subset of a user store needed for seeding.
type UserCreator interface {
	Create(ctx context.Context, nu NewUser) (*User, error)
}

// SeedFromFile creates the accounts listed in a YAML file. Accounts that
// already exist are left untouched.
func SeedFromFile(ctx context.Context, store UserCreator, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read users file: %w", err)
	}
	var uf usersFile
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return 0, fmt.Errorf("parse users file: %w", err)
	}
	created := 0
	for _, u := range uf.Users {
		if strings.TrimSpace(u.Username) == "" || strings.TrimSpace(u.Email) == "" || u.Password == "" {
			continue
		}
		_, err := store.Create(ctx, NewUser{
			Username: u.Username,
			Email:    u.Email,
			Password: u.Password,
			Role:     NormalizeRole(u.Role),
		})
		if errors.Is(err, ErrDuplicateUser) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed user %q: %w", u.Username, err)
		}
		created++
	}
	return created, nil
}
