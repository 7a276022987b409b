package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"boardsync/domain"
	"boardsync/sequence"
)

func idsOf(tasks []domain.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

// applyTaskPositions writes the 0..N-1 positions implied by the ordered id
// list, moving every task into columnID. Caller holds e.mu.
func (e *Engine) applyTaskPositions(orderedIDs []string, columnID string) {
	positions := sequence.ReassignPositions(orderedIDs)
	for id, pos := range positions {
		t, ok := e.store.GetTask(id)
		if !ok {
			continue
		}
		t.Position = pos
		t.ColumnID = columnID
		e.store.UpsertTask(t)
	}
}

// handleStaleTask removes a task the server no longer knows about and closes
// the position gap it leaves behind. Caller holds e.mu.
func (e *Engine) handleStaleTask(taskID string) {
	t, ok := e.store.GetTask(taskID)
	if !ok {
		return
	}
	e.store.RemoveTask(taskID)
	remaining := idsOf(e.store.TasksInColumn(t.ColumnID))
	e.applyTaskPositions(sequence.Remove(remaining, taskID), t.ColumnID)
}

// CreateTask applies an optimistic placeholder with a temporary id appended
// to the column, then replaces it with the server's canonical task. A failed
// create discards the placeholder entirely.
func (e *Engine) CreateTask(ctx context.Context, columnID, title, description string) (domain.Task, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Task{}, &domain.ValidationError{Field: "title", Msg: "must not be empty"}
	}

	opID := uuid.NewString()
	tempID := uuid.NewString()

	e.opStarted()
	defer e.opFinished()

	e.mu.Lock()
	siblings := e.store.TasksInColumn(columnID)
	placeholder := domain.Task{
		ID:            tempID,
		ColumnID:      columnID,
		Title:         title,
		Description:   description,
		Position:      len(siblings),
		Priority:      domain.PriorityMedium,
		AssignedUsers: []string{},
		Checklists:    []domain.ChecklistItem{},
		CreatedAt:     time.Now().UTC(),
	}
	e.store.SnapshotTasks(opID, tempID)
	e.store.UpsertTask(placeholder)
	e.mu.Unlock()

	task, err := e.svc.CreateTask(ctx, columnID, title, description)

	e.mu.Lock()
	if err != nil {
		e.store.Restore(opID)
		e.mu.Unlock()
		return domain.Task{}, err
	}
	e.store.RemoveTask(tempID)
	e.store.UpsertTask(task)
	e.store.Discard(opID)
	e.mu.Unlock()

	if boardID := e.boardIDForColumn(columnID); boardID != "" {
		e.logActivity(ctx, boardID, task.ID, fmt.Sprintf("created task %q", title))
	}
	return task, nil
}

// UpdateTask applies the patch optimistically and replaces the task with the
// server's canonical copy on confirmation. On failure the pre-mutation
// snapshot is restored; a concurrent deletion removes the stale task instead.
func (e *Engine) UpdateTask(ctx context.Context, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	opID := uuid.NewString()

	e.opStarted()
	defer e.opFinished()

	e.mu.Lock()
	task, ok := e.store.GetTask(taskID)
	if !ok {
		e.mu.Unlock()
		return domain.Task{}, &domain.NotFoundError{Kind: "task", ID: taskID}
	}
	e.store.SnapshotTasks(opID, taskID)
	patch.Apply(&task)
	e.store.UpsertTask(task)
	e.mu.Unlock()

	confirmed, err := e.svc.UpdateTask(ctx, taskID, patch)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.store.Restore(opID)
		if domain.IsNotFound(err) {
			e.handleStaleTask(taskID)
		}
		return domain.Task{}, err
	}
	e.store.UpsertTask(confirmed)
	e.store.Discard(opID)
	return confirmed, nil
}

// DeleteTask removes the task locally at once and issues the delete. There is
// no rollback path: a failed delete is reported to the caller, who may
// re-fetch if inconsistency is suspected.
func (e *Engine) DeleteTask(ctx context.Context, taskID string) error {
	e.mu.Lock()
	task, ok := e.store.GetTask(taskID)
	if !ok {
		e.mu.Unlock()
		return &domain.NotFoundError{Kind: "task", ID: taskID}
	}
	e.handleStaleTask(taskID)
	e.mu.Unlock()

	if err := e.svc.DeleteTask(ctx, taskID); err != nil {
		if domain.IsNotFound(err) {
			// Already gone server-side; the local removal stands.
			return nil
		}
		e.logger.Warnf("delete of task %s failed after local removal: %v", taskID, err)
		return err
	}

	if boardID := e.boardIDForColumn(task.ColumnID); boardID != "" {
		e.logActivity(ctx, boardID, "", fmt.Sprintf("deleted task %q", task.Title))
	}
	return nil
}

// MoveTask moves a task to toColumnID at toIndex as a single operation.
func (e *Engine) MoveTask(ctx context.Context, taskID, toColumnID string, toIndex int) error {
	return e.CommitMoveTask(ctx, uuid.NewString(), taskID, toColumnID, toIndex)
}

// VisualMoveTask reflects a cross-column drag live: the task moves to the
// end of the destination column and both columns are resequenced locally, so
// the board stays dense mid-gesture. No request is issued until commit. Every
// sibling touched is snapshotted under opID before mutation, and snapshots
// keep their first capture, so a gesture sweeping through several columns
// still rolls back to the true pre-gesture state.
func (e *Engine) VisualMoveTask(opID, taskID, toColumnID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	task, ok := e.store.GetTask(taskID)
	if !ok || task.ColumnID == toColumnID {
		return
	}
	fromIDs := idsOf(e.store.TasksInColumn(task.ColumnID))
	toIDs := idsOf(e.store.TasksInColumn(toColumnID))
	e.store.SnapshotTasks(opID, append(append(fromIDs, toIDs...), taskID)...)
	newFrom, newTo := sequence.MoveAcrossGroups(fromIDs, toIDs, taskID, len(toIDs))
	e.applyTaskPositions(newFrom, task.ColumnID)
	e.applyTaskPositions(newTo, toColumnID)
}

// CancelGesture rolls back any visual mutations captured under opID.
func (e *Engine) CancelGesture(opID string) {
	e.mu.Lock()
	e.store.Restore(opID)
	e.mu.Unlock()
}

// CommitMoveTask sequences the move captured under opID and issues exactly
// one move request. Moving within the same group to the same index is a
// no-op. On failure every optimistically shifted sibling is restored.
func (e *Engine) CommitMoveTask(ctx context.Context, opID, taskID, toColumnID string, toIndex int) error {
	e.opStarted()
	defer e.opFinished()

	e.mu.Lock()
	task, ok := e.store.GetTask(taskID)
	if !ok {
		e.store.Restore(opID)
		e.mu.Unlock()
		return &domain.NotFoundError{Kind: "task", ID: taskID}
	}

	curIDs := idsOf(e.store.TasksInColumn(task.ColumnID))
	// The in-place no-op check only holds when nothing was captured under
	// opID. After a visual move the store already shows the destination, so
	// the landing index matching is no evidence the service saw the move.
	if task.ColumnID == toColumnID && sequence.IndexOf(curIDs, taskID) == toIndex && !e.store.HasSnapshot(opID) {
		e.store.Discard(opID)
		e.mu.Unlock()
		return nil
	}

	toIDs := idsOf(e.store.TasksInColumn(toColumnID))
	e.store.SnapshotTasks(opID, append(append([]string{taskID}, curIDs...), toIDs...)...)

	var newOrder []string
	if task.ColumnID == toColumnID {
		newOrder = sequence.InsertAt(curIDs, taskID, toIndex)
		e.applyTaskPositions(newOrder, toColumnID)
	} else {
		newFrom, newTo := sequence.MoveAcrossGroups(curIDs, toIDs, taskID, toIndex)
		e.applyTaskPositions(newFrom, task.ColumnID)
		e.applyTaskPositions(newTo, toColumnID)
		newOrder = newTo
	}
	position := sequence.IndexOf(newOrder, taskID)
	e.mu.Unlock()

	moved, err := e.svc.MoveTask(ctx, taskID, toColumnID, position)

	e.mu.Lock()
	if err != nil {
		e.store.Restore(opID)
		if domain.IsNotFound(err) {
			e.handleStaleTask(taskID)
		}
		e.mu.Unlock()
		return err
	}
	e.store.UpsertTask(moved)
	e.store.Discard(opID)
	e.mu.Unlock()

	if boardID := e.boardIDForColumn(toColumnID); boardID != "" {
		e.logActivity(ctx, boardID, taskID, fmt.Sprintf("moved task %q", task.Title))
	}
	return nil
}

// ReorderTasks reorders a column to the given id order as a single operation.
func (e *Engine) ReorderTasks(ctx context.Context, columnID string, orderedIDs []string) error {
	return e.CommitReorderTasks(ctx, uuid.NewString(), columnID, orderedIDs)
}

// CommitReorderTasks applies the new sibling order optimistically and issues
// exactly one reorder request carrying that id order.
func (e *Engine) CommitReorderTasks(ctx context.Context, opID, columnID string, orderedIDs []string) error {
	e.opStarted()
	defer e.opFinished()

	e.mu.Lock()
	current := idsOf(e.store.TasksInColumn(columnID))
	if equalIDs(current, orderedIDs) {
		e.store.Discard(opID)
		e.mu.Unlock()
		return nil
	}
	e.store.SnapshotTasks(opID, current...)
	e.applyTaskPositions(orderedIDs, columnID)
	e.mu.Unlock()

	confirmed, err := e.svc.ReorderTasks(ctx, columnID, orderedIDs)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.store.Restore(opID)
		return err
	}
	for _, t := range confirmed {
		e.store.UpsertTask(t)
	}
	e.store.Discard(opID)
	return nil
}

// AssignUser optimistically adds the user to the task's assignee set. The
// server enforces that assignees are board members; a rejection restores the
// previous set within the same round trip.
func (e *Engine) AssignUser(ctx context.Context, taskID, userID string) error {
	opID := uuid.NewString()

	e.opStarted()
	defer e.opFinished()

	e.mu.Lock()
	task, ok := e.store.GetTask(taskID)
	if !ok {
		e.mu.Unlock()
		return &domain.NotFoundError{Kind: "task", ID: taskID}
	}
	if task.Assigned(userID) {
		e.mu.Unlock()
		return nil
	}
	e.store.SnapshotTasks(opID, taskID)
	task.AssignedUsers = append(task.AssignedUsers, userID)
	e.store.UpsertTask(task)
	e.mu.Unlock()

	confirmed, err := e.svc.AssignUser(ctx, taskID, userID)

	e.mu.Lock()
	if err != nil {
		e.store.Restore(opID)
		if domain.IsNotFound(err) {
			e.handleStaleTask(taskID)
		}
		e.mu.Unlock()
		return err
	}
	e.store.UpsertTask(confirmed)
	e.store.Discard(opID)
	e.mu.Unlock()

	if boardID := e.boardIDForColumn(task.ColumnID); boardID != "" {
		e.logActivity(ctx, boardID, taskID, "assigned user to task")
	}
	return nil
}

// UnassignUser optimistically removes the user from the assignee set.
func (e *Engine) UnassignUser(ctx context.Context, taskID, userID string) error {
	opID := uuid.NewString()

	e.opStarted()
	defer e.opFinished()

	e.mu.Lock()
	task, ok := e.store.GetTask(taskID)
	if !ok {
		e.mu.Unlock()
		return &domain.NotFoundError{Kind: "task", ID: taskID}
	}
	if !task.Assigned(userID) {
		e.mu.Unlock()
		return nil
	}
	e.store.SnapshotTasks(opID, taskID)
	kept := task.AssignedUsers[:0]
	for _, id := range task.AssignedUsers {
		if id != userID {
			kept = append(kept, id)
		}
	}
	task.AssignedUsers = kept
	e.store.UpsertTask(task)
	e.mu.Unlock()

	confirmed, err := e.svc.UnassignUser(ctx, taskID, userID)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.store.Restore(opID)
		if domain.IsNotFound(err) {
			e.handleStaleTask(taskID)
		}
		return err
	}
	e.store.UpsertTask(confirmed)
	e.store.Discard(opID)
	return nil
}

// AddChecklistItem creates the item server-side first, then attaches it; the
// item does not exist locally until confirmed.
func (e *Engine) AddChecklistItem(ctx context.Context, taskID, title string) error {
	item, err := e.svc.AddChecklistItem(ctx, taskID, title)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	task, ok := e.store.GetTask(taskID)
	if !ok {
		return nil
	}
	for _, existing := range task.Checklists {
		if existing.ID == item.ID {
			return nil
		}
	}
	task.Checklists = append(task.Checklists, item)
	e.store.UpsertTask(task)
	return nil
}

// ToggleChecklistItem flips the item's completed flag optimistically.
func (e *Engine) ToggleChecklistItem(ctx context.Context, taskID, itemID string) error {
	opID := uuid.NewString()

	e.opStarted()
	defer e.opFinished()

	e.mu.Lock()
	task, ok := e.store.GetTask(taskID)
	if !ok {
		e.mu.Unlock()
		return &domain.NotFoundError{Kind: "task", ID: taskID}
	}
	var completed bool
	found := false
	for i := range task.Checklists {
		if task.Checklists[i].ID == itemID {
			task.Checklists[i].Completed = !task.Checklists[i].Completed
			completed = task.Checklists[i].Completed
			found = true
			break
		}
	}
	if !found {
		e.mu.Unlock()
		return &domain.NotFoundError{Kind: "checklist item", ID: itemID}
	}
	e.store.SnapshotTasks(opID, taskID)
	e.store.UpsertTask(task)
	e.mu.Unlock()

	_, err := e.svc.UpdateChecklistItem(ctx, itemID, completed)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.store.Restore(opID)
		return err
	}
	e.store.Discard(opID)
	return nil
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
