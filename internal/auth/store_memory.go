package auth

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MemoryStore keeps users in process memory. It backs the "memory" storage
// mode and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]User
	cost   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[int64]User), cost: bcrypt.DefaultCost}
}

func (s *MemoryStore) GetByIdentifier(_ context.Context, identifier string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == identifier || u.Email == identifier {
			u := u
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemoryStore) Create(_ context.Context, nu NewUser) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == nu.Username || u.Email == nu.Email {
			return nil, ErrDuplicateUser
		}
	}
	s.nextID++
	u := User{
		ID:           s.nextID,
		Username:     nu.Username,
		Email:        nu.Email,
		PasswordHash: string(hash),
		Role:         NormalizeRole(string(nu.Role)),
		CreatedAt:    time.Now().UTC(),
	}
	s.users[u.ID] = u
	return &u, nil
}

func (s *MemoryStore) List(_ context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]User, 0, len(s.users))
	for _, u := range s.users {
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// Contact returns the username and email of user id.
func (s *MemoryStore) Contact(_ context.Context, id int64) (string, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return "", "", ErrUserNotFound
	}
	return u.Username, u.Email, nil
}
