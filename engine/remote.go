package engine

import (
	"github.com/bytedance/sonic"

	"boardsync/domain"
)

// HandleEvent applies one broadcast event from the realtime channel. Events
// are applied in arrival order under the same mutex that serializes local
// optimistic mutations, so the two streams never interleave mid-update.
//
// Echoes of the local user's own actions collapse into the same entity slot:
// a create whose id already exists overwrites idempotently instead of
// duplicating, and update/move echoes are plain idempotent upserts. Remote
// moves never splice into the local visual order; views derive order purely
// from each task's authoritative position field.
func (e *Engine) HandleEvent(ev domain.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev.Name {
	case domain.TaskCreated, domain.TaskUpdated:
		var task domain.Task
		if err := sonic.Unmarshal(ev.Data, &task); err != nil {
			e.logger.Errorf("parse %s: %v", ev.Name, err)
			return
		}
		e.store.UpsertTask(task)

	case domain.TaskMoved:
		var data domain.TaskMovedData
		if err := sonic.Unmarshal(ev.Data, &data); err != nil {
			e.logger.Errorf("parse %s: %v", ev.Name, err)
			return
		}
		e.store.UpsertTask(data.Task)

	case domain.TaskDeleted:
		var data domain.TaskDeletedData
		if err := sonic.Unmarshal(ev.Data, &data); err != nil {
			e.logger.Errorf("parse %s: %v", ev.Name, err)
			return
		}
		e.store.RemoveTask(data.TaskID)

	case domain.ColumnCreated, domain.ColumnUpdated:
		var column domain.Column
		if err := sonic.Unmarshal(ev.Data, &column); err != nil {
			e.logger.Errorf("parse %s: %v", ev.Name, err)
			return
		}
		e.store.UpsertColumn(column)

	case domain.ColumnDeleted:
		var data domain.ColumnDeletedData
		if err := sonic.Unmarshal(ev.Data, &data); err != nil {
			e.logger.Errorf("parse %s: %v", ev.Name, err)
			return
		}
		e.store.RemoveColumn(data.ColumnID)

	case domain.ColumnsOrdered:
		var data domain.ColumnsOrderedData
		if err := sonic.Unmarshal(ev.Data, &data); err != nil {
			e.logger.Errorf("parse %s: %v", ev.Name, err)
			return
		}
		for _, c := range data.Columns {
			e.store.UpsertColumn(c)
		}

	case domain.MemberAdded:
		var data domain.MemberAddedData
		if err := sonic.Unmarshal(ev.Data, &data); err != nil {
			e.logger.Errorf("parse %s: %v", ev.Name, err)
			return
		}
		e.applyMemberAdded(ev.BoardID, data.Member)

	case domain.MemberRemoved:
		var data domain.MemberRemovedData
		if err := sonic.Unmarshal(ev.Data, &data); err != nil {
			e.logger.Errorf("parse %s: %v", ev.Name, err)
			return
		}
		board, ok := e.store.GetBoard(ev.BoardID)
		if !ok {
			return
		}
		e.store.UpsertBoard(boardWithoutMember(board, data.UserID))

	case domain.BoardDeleted:
		var data domain.BoardDeletedData
		if err := sonic.Unmarshal(ev.Data, &data); err != nil {
			e.logger.Errorf("parse %s: %v", ev.Name, err)
			return
		}
		id := data.BoardID
		if id == "" {
			id = ev.BoardID
		}
		e.store.RemoveBoard(id)

	default:
		e.logger.Debugf("ignoring unknown event %q", ev.Name)
	}
}

// applyMemberAdded goes through the standard board upsert path so membership
// deltas obey the same dedup and ordering guarantees as entity updates.
// Caller holds e.mu.
func (e *Engine) applyMemberAdded(boardID string, member domain.BoardMember) {
	board, ok := e.store.GetBoard(boardID)
	if !ok {
		return
	}
	for _, m := range board.BoardMembers {
		if m.UserID == member.UserID {
			return
		}
	}
	board.BoardMembers = append(board.BoardMembers, member)
	if !board.HasMember(member.UserID) {
		board.Members = append(board.Members, member.UserID)
	}
	e.store.UpsertBoard(board)
}
