package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"boardsync/domain"
	"boardsync/sequence"
)

func columnIDs(columns []domain.Column) []string {
	ids := make([]string, len(columns))
	for i, c := range columns {
		ids[i] = c.ID
	}
	return ids
}

// applyColumnPositions writes the 0..N-1 positions implied by the ordered id
// list. Caller holds e.mu.
func (e *Engine) applyColumnPositions(orderedIDs []string) {
	positions := sequence.ReassignPositions(orderedIDs)
	for id, pos := range positions {
		c, ok := e.store.GetColumn(id)
		if !ok {
			continue
		}
		c.Position = pos
		e.store.UpsertColumn(c)
	}
}

// CreateColumn creates the column server-side first and appends it on
// confirmation; column creation is not applied optimistically.
func (e *Engine) CreateColumn(ctx context.Context, boardID, title string) (domain.Column, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Column{}, &domain.ValidationError{Field: "title", Msg: "must not be empty"}
	}
	column, err := e.svc.CreateColumn(ctx, boardID, title)
	if err != nil {
		return domain.Column{}, err
	}
	e.mu.Lock()
	e.store.UpsertColumn(column)
	e.mu.Unlock()
	e.logActivity(ctx, boardID, "", fmt.Sprintf("created column %q", title))
	return column, nil
}

// RenameColumn applies the title optimistically and restores it on failure.
func (e *Engine) RenameColumn(ctx context.Context, columnID, title string) error {
	opID := uuid.NewString()

	e.opStarted()
	defer e.opFinished()

	e.mu.Lock()
	column, ok := e.store.GetColumn(columnID)
	if !ok {
		e.mu.Unlock()
		return &domain.NotFoundError{Kind: "column", ID: columnID}
	}
	e.store.SnapshotColumns(opID, columnID)
	column.Title = title
	e.store.UpsertColumn(column)
	e.mu.Unlock()

	confirmed, err := e.svc.UpdateColumn(ctx, columnID, title)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.store.Restore(opID)
		if domain.IsNotFound(err) {
			e.store.RemoveColumn(columnID)
		}
		return err
	}
	e.store.UpsertColumn(confirmed)
	e.store.Discard(opID)
	return nil
}

// DeleteColumn removes the column (and its tasks, cascade) locally at once
// and issues the delete. No rollback path, as for task deletes.
func (e *Engine) DeleteColumn(ctx context.Context, columnID string) error {
	e.mu.Lock()
	column, ok := e.store.GetColumn(columnID)
	if !ok {
		e.mu.Unlock()
		return &domain.NotFoundError{Kind: "column", ID: columnID}
	}
	e.store.RemoveColumn(columnID)
	remaining := columnIDs(e.store.ColumnsInBoard(column.BoardID))
	e.applyColumnPositions(remaining)
	e.mu.Unlock()

	if err := e.svc.DeleteColumn(ctx, columnID); err != nil {
		if domain.IsNotFound(err) {
			return nil
		}
		e.logger.Warnf("delete of column %s failed after local removal: %v", columnID, err)
		return err
	}
	e.logActivity(ctx, column.BoardID, "", fmt.Sprintf("deleted column %q", column.Title))
	return nil
}

// MoveColumn reorders the board's columns so that activeID lands at overID's
// slot, drag-and-drop style, and issues exactly one reorder request.
func (e *Engine) MoveColumn(ctx context.Context, activeID, overID string) error {
	e.mu.Lock()
	column, ok := e.store.GetColumn(activeID)
	if !ok {
		e.mu.Unlock()
		return &domain.NotFoundError{Kind: "column", ID: activeID}
	}
	ids := columnIDs(e.store.ColumnsInBoard(column.BoardID))
	from := sequence.IndexOf(ids, activeID)
	to := sequence.IndexOf(ids, overID)
	e.mu.Unlock()
	if from == -1 || to == -1 || from == to {
		return nil
	}
	return e.CommitReorderColumns(ctx, uuid.NewString(), column.BoardID, sequence.ArrayMove(ids, from, to))
}

// CommitReorderColumns applies the new column order optimistically and issues
// one reorder request carrying that id order.
func (e *Engine) CommitReorderColumns(ctx context.Context, opID, boardID string, orderedIDs []string) error {
	e.opStarted()
	defer e.opFinished()

	e.mu.Lock()
	current := columnIDs(e.store.ColumnsInBoard(boardID))
	if equalIDs(current, orderedIDs) {
		e.store.Discard(opID)
		e.mu.Unlock()
		return nil
	}
	e.store.SnapshotColumns(opID, current...)
	e.applyColumnPositions(orderedIDs)
	e.mu.Unlock()

	confirmed, err := e.svc.ReorderColumns(ctx, boardID, orderedIDs)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.store.Restore(opID)
		return err
	}
	for _, c := range confirmed {
		e.store.UpsertColumn(c)
	}
	e.store.Discard(opID)
	return nil
}

// CreateBoard creates a board server-side first; no optimistic placeholder.
func (e *Engine) CreateBoard(ctx context.Context, title, backgroundImage string) (domain.Board, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Board{}, &domain.ValidationError{Field: "title", Msg: "must not be empty"}
	}
	board, err := e.svc.CreateBoard(ctx, title, backgroundImage)
	if err != nil {
		return domain.Board{}, err
	}
	e.mu.Lock()
	e.store.UpsertBoard(board)
	e.mu.Unlock()
	return board, nil
}

// DeleteBoard is owner-gated and not optimistic: the board disappears locally
// only after the server confirms.
func (e *Engine) DeleteBoard(ctx context.Context, boardID string) error {
	e.mu.Lock()
	board, ok := e.store.GetBoard(boardID)
	e.mu.Unlock()
	if ok && board.OwnerID != "" && board.OwnerID != e.userID {
		return &domain.AuthorizationError{Msg: "only the board owner can delete it"}
	}
	if err := e.svc.DeleteBoard(ctx, boardID); err != nil {
		return err
	}
	e.mu.Lock()
	e.store.RemoveBoard(boardID)
	e.mu.Unlock()
	return nil
}

// AddMember is owner-gated and not optimistic; the canonical board returned
// by the server replaces the local one wholesale.
func (e *Engine) AddMember(ctx context.Context, boardID, email string) error {
	e.mu.Lock()
	board, ok := e.store.GetBoard(boardID)
	e.mu.Unlock()
	if ok && board.OwnerID != "" && board.OwnerID != e.userID {
		return &domain.AuthorizationError{Msg: "only the board owner can manage members"}
	}
	confirmed, err := e.svc.AddMember(ctx, boardID, email)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.store.UpsertBoard(confirmed)
	e.mu.Unlock()
	e.logActivity(ctx, boardID, "", fmt.Sprintf("added member %s", email))
	return nil
}

// RemoveMember is owner-gated and not optimistic.
func (e *Engine) RemoveMember(ctx context.Context, boardID, userID string) error {
	e.mu.Lock()
	board, ok := e.store.GetBoard(boardID)
	e.mu.Unlock()
	if !ok {
		return &domain.NotFoundError{Kind: "board", ID: boardID}
	}
	if board.OwnerID != "" && board.OwnerID != e.userID {
		return &domain.AuthorizationError{Msg: "only the board owner can manage members"}
	}
	if userID == board.OwnerID {
		return &domain.ValidationError{Field: "userId", Msg: "owner cannot be removed from the board"}
	}
	if err := e.svc.RemoveMember(ctx, boardID, userID); err != nil {
		return err
	}
	e.mu.Lock()
	e.store.UpsertBoard(boardWithoutMember(board, userID))
	e.mu.Unlock()
	return nil
}

func boardWithoutMember(b domain.Board, userID string) domain.Board {
	members := make([]string, 0, len(b.Members))
	for _, id := range b.Members {
		if id != userID {
			members = append(members, id)
		}
	}
	b.Members = members
	kept := make([]domain.BoardMember, 0, len(b.BoardMembers))
	for _, m := range b.BoardMembers {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	b.BoardMembers = kept
	return b
}
