// Package engine merges three sources of truth into the entity store: the
// user's own optimistic mutations, the authoritative responses confirming or
// rejecting them, and broadcast events describing other users' edits. The
// engine is the sole writer of the store; every mutation entry point runs to
// completion under one mutex, so dense positions and unique ids hold at every
// observable point between events.
package engine

import (
	"context"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"boardsync/domain"
	"boardsync/store"
)

// Service is the ordered-CRUD service of record. Every mutating call returns
// the full canonical entity so the engine can replace-in-place without
// field-level merging.
type Service interface {
	ListBoards(ctx context.Context) ([]domain.Board, error)
	GetBoard(ctx context.Context, boardID string) (domain.Board, error)
	CreateBoard(ctx context.Context, title, backgroundImage string) (domain.Board, error)
	DeleteBoard(ctx context.Context, boardID string) error
	AddMember(ctx context.Context, boardID, email string) (domain.Board, error)
	RemoveMember(ctx context.Context, boardID, userID string) error

	ListColumns(ctx context.Context, boardID string) ([]domain.Column, error)
	CreateColumn(ctx context.Context, boardID, title string) (domain.Column, error)
	UpdateColumn(ctx context.Context, columnID, title string) (domain.Column, error)
	DeleteColumn(ctx context.Context, columnID string) error
	ReorderColumns(ctx context.Context, boardID string, orderedIDs []string) ([]domain.Column, error)

	ListTasks(ctx context.Context, boardID, cursor string, limit int) ([]domain.Task, string, error)
	CreateTask(ctx context.Context, columnID, title, description string) (domain.Task, error)
	UpdateTask(ctx context.Context, taskID string, patch domain.TaskPatch) (domain.Task, error)
	MoveTask(ctx context.Context, taskID, columnID string, position int) (domain.Task, error)
	ReorderTasks(ctx context.Context, columnID string, orderedIDs []string) ([]domain.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
	AssignUser(ctx context.Context, taskID, userID string) (domain.Task, error)
	UnassignUser(ctx context.Context, taskID, userID string) (domain.Task, error)
	AddChecklistItem(ctx context.Context, taskID, title string) (domain.ChecklistItem, error)
	UpdateChecklistItem(ctx context.Context, itemID string, completed bool) (domain.ChecklistItem, error)

	ListActivities(ctx context.Context, boardID, cursor string, limit int) ([]domain.Activity, string, error)
	LogActivity(ctx context.Context, boardID, taskID, action string) (domain.Activity, error)
	AddComment(ctx context.Context, taskID, content string) (domain.Activity, error)
}

// Engine reconciles optimistic, authoritative and broadcast state.
type Engine struct {
	mu     sync.Mutex
	store  *store.Store
	svc    Service
	logger *log.Logger
	userID string

	pendingMu sync.Mutex
	pending   int
}

// New creates an engine writing to st on behalf of userID.
func New(st *store.Store, svc Service, userID string, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Engine{store: st, svc: svc, logger: logger, userID: userID}
}

// Store exposes the read side for views. Views must never mutate through it
// other than via Subscribe.
func (e *Engine) Store() *store.Store { return e.store }

// PendingOps reports how many optimistic operations are awaiting their
// authoritative outcome.
func (e *Engine) PendingOps() int {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	return e.pending
}

func (e *Engine) opStarted() {
	e.pendingMu.Lock()
	e.pending++
	e.pendingMu.Unlock()
}

func (e *Engine) opFinished() {
	e.pendingMu.Lock()
	e.pending--
	e.pendingMu.Unlock()
}

// LoadBoard pulls the board, its columns and all task pages into the store.
func (e *Engine) LoadBoard(ctx context.Context, boardID string) error {
	board, err := e.svc.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}
	columns, err := e.svc.ListColumns(ctx, boardID)
	if err != nil {
		return err
	}
	var tasks []domain.Task
	cursor := ""
	for {
		page, next, err := e.svc.ListTasks(ctx, boardID, cursor, 0)
		if err != nil {
			return err
		}
		tasks = append(tasks, page...)
		if next == "" {
			break
		}
		cursor = next
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.UpsertBoard(board)
	for _, c := range columns {
		e.store.UpsertColumn(c)
	}
	for _, t := range tasks {
		e.store.UpsertTask(t)
	}
	return nil
}

// LoadBoards pulls the boards visible to the current user.
func (e *Engine) LoadBoards(ctx context.Context) error {
	boards, err := e.svc.ListBoards(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, b := range boards {
		e.store.UpsertBoard(b)
	}
	return nil
}

// LoadActivities fetches one page of the board's activity feed and returns
// the cursor for the next page, empty when exhausted.
func (e *Engine) LoadActivities(ctx context.Context, boardID, cursor string, limit int) (string, error) {
	activities, next, err := e.svc.ListActivities(ctx, boardID, cursor, limit)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range activities {
		e.store.UpsertActivity(a)
	}
	return next, nil
}

// AddComment posts a comment on a task and stores the confirmed comment
// activity. Comments are not applied optimistically; the feed only ever shows
// entries the server accepted. A concurrent deletion of the task removes the
// stale task instead.
func (e *Engine) AddComment(ctx context.Context, taskID, content string) (domain.Activity, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Activity{}, &domain.ValidationError{Field: "content", Msg: "must not be empty"}
	}

	activity, err := e.svc.AddComment(ctx, taskID, content)
	if err != nil {
		if domain.IsNotFound(err) {
			e.mu.Lock()
			e.handleStaleTask(taskID)
			e.mu.Unlock()
		}
		return domain.Activity{}, err
	}

	e.mu.Lock()
	e.store.UpsertActivity(activity)
	e.mu.Unlock()
	return activity, nil
}

// logActivity records a best-effort history entry. Failures never roll back
// the mutation they describe.
func (e *Engine) logActivity(ctx context.Context, boardID, taskID, action string) {
	activity, err := e.svc.LogActivity(ctx, boardID, taskID, action)
	if err != nil {
		e.logger.Warnf("activity log write failed for board %s: %v", boardID, err)
		return
	}
	e.mu.Lock()
	e.store.UpsertActivity(activity)
	e.mu.Unlock()
}

// boardIDForColumn resolves the owning board of a column, best-effort.
func (e *Engine) boardIDForColumn(columnID string) string {
	if c, ok := e.store.GetColumn(columnID); ok {
		return c.BoardID
	}
	return ""
}
