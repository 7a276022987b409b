package domain

import "encoding/json"

// Broadcast event names emitted by the service of record after each confirmed
// mutation. Delivery is at-least-once; handlers must be idempotent.
const (
	TaskCreated    = "task:created"
	TaskUpdated    = "task:updated"
	TaskMoved      = "task:moved"
	TaskDeleted    = "task:deleted"
	MemberAdded    = "board:member_added"
	MemberRemoved  = "board:member_removed"
	BoardDeleted   = "board:deleted"
	ColumnCreated  = "column:created"
	ColumnUpdated  = "column:updated"
	ColumnDeleted  = "column:deleted"
	ColumnsOrdered = "column:reordered"
)

// Event is the wire envelope for a single board-room broadcast.
type Event struct {
	Name    string          `json:"event"`
	BoardID string          `json:"boardId"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type TaskMovedData struct {
	TaskID string `json:"taskId"`
	Task   Task   `json:"task"`
}

type TaskDeletedData struct {
	TaskID string `json:"taskId"`
}

type MemberAddedData struct {
	Member BoardMember `json:"member"`
}

type MemberRemovedData struct {
	UserID string `json:"userId"`
}

type BoardDeletedData struct {
	BoardID string `json:"boardId"`
}

type ColumnDeletedData struct {
	ColumnID string `json:"columnId"`
}

type ColumnsOrderedData struct {
	Columns []Column `json:"columns"`
}
