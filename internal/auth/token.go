package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMalformed    = errors.New("token malformed")
	ErrSignatureMismatch = errors.New("token signature mismatch")
	ErrTokenExpired      = errors.New("token expired")
)

type Claims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs p with secret using HS256. The token expires at now+ttl.
func IssueToken(p Principal, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		UserID:   p.ID,
		Username: p.Username,
		Role:     p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(secret)
}

// VerifyToken checks the signature, then the payload shape, then expiry
// against now. A token is still valid at its exact expiry instant.
func VerifyToken(tokenStr string, secret []byte, now time.Time) (Principal, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Principal{}, fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
		}
		return Principal{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	if claims.ExpiresAt == nil {
		return Principal{}, fmt.Errorf("%w: missing exp", ErrTokenMalformed)
	}
	if claims.UserID <= 0 || claims.Username == "" || !claims.Role.Valid() {
		return Principal{}, fmt.Errorf("%w: incomplete identity", ErrTokenMalformed)
	}
	if now.After(claims.ExpiresAt.Time) {
		return Principal{}, ErrTokenExpired
	}
	return Principal{ID: claims.UserID, Username: claims.Username, Role: claims.Role}, nil
}

type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

// TokenService binds the signing configuration and a clock to
// IssueToken/VerifyToken. It holds no mutable state.
type TokenService struct {
	secret  []byte
	ttl     time.Duration
	nowFunc func() time.Time
}

func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("token TTL must be > 0")
	}
	return &TokenService{
		secret:  []byte(cfg.Secret),
		ttl:     cfg.TTL,
		nowFunc: time.Now,
	}, nil
}

func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

func (s *TokenService) Issue(p Principal) (string, error) {
	return IssueToken(p, s.secret, s.ttl, s.nowFunc().UTC())
}

func (s *TokenService) Verify(token string) (Principal, error) {
	return s.VerifyAt(token, s.nowFunc())
}

func (s *TokenService) VerifyAt(token string, now time.Time) (Principal, error) {
	return VerifyToken(token, s.secret, now)
}
