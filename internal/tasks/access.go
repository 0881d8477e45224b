package tasks

import (
	"context"
	"errors"
	"strings"

	"taskhub/internal/apperr"
	"taskhub/internal/auth"
)

// Controller applies ownership rules around every task operation. Callers
// must already have authenticated the principal.
//
// For operations on a single task the order is fixed: body validation,
// then lookup (NotFound), then the ownership decision (Forbidden), then the
// write. NotFound and Forbidden are deliberately distinguishable.
type Controller struct {
	repo Repository
}

func NewController(repo Repository) *Controller {
	return &Controller{repo: repo}
}

// List returns the caller's tasks, or every task for an admin.
func (c *Controller) List(ctx context.Context, p auth.Principal, q Query) ([]Task, error) {
	f := ListFilter{
		Status: Status(q.Status),
		Search: q.Search,
		Title:  q.Title,
	}
	if !p.IsAdmin() {
		f.OwnerID = p.ID
	}
	if sf := SortField(q.SortBy); sf.Valid() {
		f.SortBy = sf
		f.Desc = strings.EqualFold(q.Order, "desc")
	}
	tasks, err := c.repo.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal("Failed to get tasks", err)
	}
	return tasks, nil
}

func (c *Controller) Get(ctx context.Context, p auth.Principal, id int64) (*Task, error) {
	return c.load(ctx, p, id, "Failed to get task")
}

func (c *Controller) Create(ctx context.Context, p auth.Principal, in CreateInput) (*Task, error) {
	if errs := validateCreate(in); len(errs) > 0 {
		return nil, apperr.Validation("Validation failed", errs...)
	}
	id, err := c.repo.Create(ctx, p.ID, NewTask{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
	})
	if err != nil {
		return nil, apperr.Internal("Failed to create task", err)
	}
	return c.reload(ctx, id, "Failed to create task")
}

func (c *Controller) Update(ctx context.Context, p auth.Principal, id int64, patch Patch) (*Task, error) {
	if errs := validatePatch(patch); len(errs) > 0 {
		return nil, apperr.Validation("Validation failed", errs...)
	}
	if _, err := c.load(ctx, p, id, "Failed to update task"); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, apperr.NoChange("No fields to update")
	}
	if err := c.repo.Update(ctx, id, patch); err != nil {
		return nil, c.writeErr(err, "Failed to update task")
	}
	return c.reload(ctx, id, "Failed to update task")
}

func (c *Controller) UpdateStatus(ctx context.Context, p auth.Principal, id int64, status Status) (*Task, error) {
	if !status.Valid() {
		return nil, apperr.Validation("Invalid status")
	}
	if _, err := c.load(ctx, p, id, "Failed to update task status"); err != nil {
		return nil, err
	}
	if err := c.repo.Update(ctx, id, Patch{Status: &status}); err != nil {
		return nil, c.writeErr(err, "Failed to update task status")
	}
	return c.reload(ctx, id, "Failed to update task status")
}

// Delete removes the task and returns the snapshot taken before removal.
func (c *Controller) Delete(ctx context.Context, p auth.Principal, id int64) (*Task, error) {
	t, err := c.load(ctx, p, id, "Failed to delete task")
	if err != nil {
		return nil, err
	}
	if err := c.repo.Delete(ctx, id); err != nil {
		return nil, c.writeErr(err, "Failed to delete task")
	}
	return t, nil
}

// Stats counts tasks per status, scoped like List.
func (c *Controller) Stats(ctx context.Context, p auth.Principal) (Stats, error) {
	var owner int64
	if !p.IsAdmin() {
		owner = p.ID
	}
	st, err := c.repo.Stats(ctx, owner)
	if err != nil {
		return Stats{}, apperr.Internal("Failed to get stats", err)
	}
	return st, nil
}

func (c *Controller) load(ctx context.Context, p auth.Principal, id int64, failMsg string) (*Task, error) {
	t, err := c.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("Task not found")
		}
		return nil, apperr.Internal(failMsg, err)
	}
	if auth.Authorize(p, t.UserID) == auth.Deny {
		return nil, apperr.Forbidden("Forbidden")
	}
	return t, nil
}

func (c *Controller) reload(ctx context.Context, id int64, failMsg string) (*Task, error) {
	t, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, c.writeErr(err, failMsg)
	}
	return t, nil
}

// writeErr maps a task that vanished between lookup and write to NotFound.
func (c *Controller) writeErr(err error, failMsg string) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("Task not found")
	}
	return apperr.Internal(failMsg, err)
}
