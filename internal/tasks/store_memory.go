package tasks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// ContactLookup resolves an owner id to the username and email shown on
// each task.
type ContactLookup interface {
	Contact(ctx context.Context, id int64) (username, email string, err error)
}

// MemoryStore is an in-process Repository used by the "memory" storage
// mode and by tests.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	rows    map[int64]Task
	owners  ContactLookup
	nowFunc func() time.Time
}

func NewMemoryStore(owners ContactLookup) *MemoryStore {
	return &MemoryStore{
		rows:    make(map[int64]Task),
		owners:  owners,
		nowFunc: time.Now,
	}
}

// joined fills in owner details; ok is false when the owner is gone, which
// mirrors the inner join of the SQL store.
func (s *MemoryStore) joined(ctx context.Context, t Task) (Task, bool) {
	username, email, err := s.owners.Contact(ctx, t.UserID)
	if err != nil {
		return Task{}, false
	}
	t.Username, t.Email = username, email
	return t, true
}

func (s *MemoryStore) List(ctx context.Context, f ListFilter) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(f.Search)
	res := []Task{}
	for _, t := range s.rows {
		if f.OwnerID != 0 && t.UserID != f.OwnerID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Title != "" && !strings.EqualFold(t.Title, f.Title) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		jt, ok := s.joined(ctx, t)
		if !ok {
			continue
		}
		res = append(res, jt)
	}

	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	if f.SortBy.Valid() {
		sort.SliceStable(res, func(i, j int) bool {
			if f.Desc {
				return less(res[j], res[i], f.SortBy)
			}
			return less(res[i], res[j], f.SortBy)
		})
	}
	return res, nil
}

func less(a, b Task, field SortField) bool {
	switch field {
	case SortTitle:
		return a.Title < b.Title
	case SortStatus:
		return a.Status < b.Status
	case SortCreatedAt:
		return a.CreatedAt.Before(b.CreatedAt)
	default:
		return a.UpdatedAt.Before(b.UpdatedAt)
	}
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (*Task, error) {
	s.mu.RLock()
	t, ok := s.rows[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	jt, ok := s.joined(ctx, t)
	if !ok {
		return nil, ErrNotFound
	}
	return &jt, nil
}

func (s *MemoryStore) Create(_ context.Context, ownerID int64, nt NewTask) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := s.nowFunc().UTC()
	s.rows[s.nextID] = Task{
		ID:          s.nextID,
		Title:       nt.Title,
		Description: nt.Description,
		Status:      nt.Status,
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return s.nextID, nil
}

func (s *MemoryStore) Update(_ context.Context, id int64, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	if !ok {
		return ErrNotFound
	}
	next := t
	if p.Title != nil {
		next.Title = *p.Title
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Status != nil {
		next.Status = *p.Status
	}
	if next == t {
		return nil
	}
	next.UpdatedAt = s.nowFunc().UTC()
	s.rows[id] = next
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *MemoryStore) Stats(_ context.Context, ownerID int64) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st Stats
	for _, t := range s.rows {
		if ownerID != 0 && t.UserID != ownerID {
			continue
		}
		st.Total++
		switch t.Status {
		case StatusToDo:
			st.ToDo++
		case StatusInProgress:
			st.InProgress++
		case StatusCompleted:
			st.Completed++
		}
	}
	return st, nil
}
