package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrNotFound = errors.New("task not found")

// Repository is the persistence contract of the access controller. Single
// statements are assumed atomic; no locking happens above this interface.
type Repository interface {
	List(ctx context.Context, f ListFilter) ([]Task, error)
	Get(ctx context.Context, id int64) (*Task, error)
	Create(ctx context.Context, ownerID int64, nt NewTask) (int64, error)
	Update(ctx context.Context, id int64, p Patch) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context, ownerID int64) (Stats, error)
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const taskSelect = `
	SELECT t.id, t.title, t.description, t.status, t.user_id, t.created_at, t.updated_at,
	       u.username, u.email
	FROM tasks t
	JOIN users u ON u.id = t.user_id`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row scanner) (*Task, error) {
	var t Task
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.UserID,
		&t.CreatedAt, &t.UpdatedAt, &t.Username, &t.Email); err != nil {
		return nil, err
	}
	return &t, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *Store) List(ctx context.Context, f ListFilter) ([]Task, error) {
	clauses := []string{"1=1"}
	args := []interface{}{}
	idx := 1
	if f.OwnerID != 0 {
		clauses = append(clauses, "t.user_id = $"+itoa(idx))
		args = append(args, f.OwnerID)
		idx++
	}
	if f.Status != "" {
		clauses = append(clauses, "t.status = $"+itoa(idx))
		args = append(args, string(f.Status))
		idx++
	}
	if f.Title != "" {
		clauses = append(clauses, "LOWER(t.title) = $"+itoa(idx))
		args = append(args, strings.ToLower(f.Title))
		idx++
	}
	if f.Search != "" {
		p := "$" + itoa(idx)
		clauses = append(clauses, "(LOWER(t.title) LIKE "+p+" OR LOWER(t.description) LIKE "+p+")")
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(f.Search))+"%")
		idx++
	}

	order := " ORDER BY t.id DESC"
	if f.SortBy.Valid() {
		dir := "ASC"
		if f.Desc {
			dir = "DESC"
		}
		order = " ORDER BY t." + string(f.SortBy) + " " + dir
	}

	query := taskSelect + " WHERE " + strings.Join(clauses, " AND ") + order
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	res := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		res = append(res, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return res, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, taskSelect+" WHERE t.id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) Create(ctx context.Context, ownerID int64, nt NewTask) (int64, error) {
	const q = `
		INSERT INTO tasks (user_id, title, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id
	`
	var id int64
	if err := s.db.QueryRowContext(ctx, q, ownerID, nt.Title, nt.Description, string(nt.Status), time.Now().UTC()).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	return id, nil
}

// Update writes the non-nil fields of p. updated_at moves only when a value
// actually changes, so repeating the same patch leaves the row untouched.
func (s *Store) Update(ctx context.Context, id int64, p Patch) error {
	sets := []string{}
	changed := []string{}
	args := []interface{}{}
	idx := 1
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = $"+itoa(idx))
		changed = append(changed, col+" IS DISTINCT FROM $"+itoa(idx))
		args = append(args, v)
		idx++
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = $"+itoa(idx))
	args = append(args, time.Now().UTC(), id)
	query := "UPDATE tasks SET " + strings.Join(sets, ", ") +
		" WHERE id = $" + itoa(idx+1) + " AND (" + strings.Join(changed, " OR ") + ")"
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Stats(ctx context.Context, ownerID int64) (Stats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'To Do'),
		       COUNT(*) FILTER (WHERE status = 'In Progress'),
		       COUNT(*) FILTER (WHERE status = 'Completed')
		FROM tasks`
	args := []interface{}{}
	if ownerID != 0 {
		query += " WHERE user_id = $1"
		args = append(args, ownerID)
	}
	var st Stats
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&st.Total, &st.ToDo, &st.InProgress, &st.Completed); err != nil {
		return Stats{}, fmt.Errorf("task stats: %w", err)
	}
	return st, nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
