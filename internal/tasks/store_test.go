package tasks

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

var taskCols = []string{"id", "title", "description", "status", "user_id", "created_at", "updated_at", "username", "email"}

func TestStoreListOwnerScopeDefaultOrder(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE 1=1 AND t.user_id = $1 ORDER BY t.id DESC`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow(9, "b", "", "To Do", 7, now, now, "alice", "alice@example.com").
			AddRow(4, "a", "", "Completed", 7, now, now, "alice", "alice@example.com"))

	got, err := s.List(context.Background(), ListFilter{OwnerID: 7})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 2 || got[0].ID != 9 || got[1].Status != StatusCompleted || got[0].Email != "alice@example.com" {
		t.Fatalf("unexpected tasks: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestStoreListAllFilters(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(
		`WHERE 1=1 AND t.status = $1 AND LOWER(t.title) = $2 AND (LOWER(t.title) LIKE $3 OR LOWER(t.description) LIKE $3) ORDER BY t.updated_at DESC`)).
		WithArgs("In Progress", "weekly sync", `%50\% off\_sale%`).
		WillReturnRows(sqlmock.NewRows(taskCols))

	got, err := s.List(context.Background(), ListFilter{
		Status: StatusInProgress,
		Title:  "Weekly Sync",
		Search: "50% OFF_sale",
		SortBy: SortUpdatedAt,
		Desc:   true,
	})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE t.id = $1`)).WithArgs(int64(5)).WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), 5)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreCreate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`INSERT INTO tasks`).
		WithArgs(int64(3), "Title", "Desc", "To Do", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	id, err := s.Create(context.Background(), 3, NewTask{Title: "Title", Description: "Desc", Status: StatusToDo})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if id != 11 {
		t.Fatalf("expected id 11, got %d", id)
	}
}

func TestStoreUpdateOnlySuppliedFields(t *testing.T) {
	s, mock := newMockStore(t)
	title := "New title"
	status := StatusCompleted
	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE tasks SET title = $1, status = $2, updated_at = $3 WHERE id = $4 AND (title IS DISTINCT FROM $1 OR status IS DISTINCT FROM $2)`)).
		WithArgs("New title", "Completed", sqlmock.AnyArg(), int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.Update(context.Background(), 8, Patch{Title: &title, Status: &status}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestStoreUpdateEmptyPatchIsNoop(t *testing.T) {
	s, mock := newMockStore(t)
	if err := s.Update(context.Background(), 8, Patch{}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected no statements, got %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tasks WHERE id = $1`)).WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tasks WHERE id = $1`)).WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.Delete(context.Background(), 2); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := s.Delete(context.Background(), 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreStats(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM tasks WHERE user_id = \$1`).WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"total", "todo", "inprogress", "completed"}).AddRow(5, 2, 2, 1))
	mock.ExpectQuery(`FROM tasks$`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "todo", "inprogress", "completed"}).AddRow(9, 3, 3, 3))

	st, err := s.Stats(context.Background(), 4)
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if st != (Stats{Total: 5, ToDo: 2, InProgress: 2, Completed: 1}) {
		t.Fatalf("unexpected stats: %+v", st)
	}
	st, err = s.Stats(context.Background(), 0)
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if st.Total != 9 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}
