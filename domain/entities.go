package domain

import "time"

// Priority orders tasks by urgency.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// ActivityType distinguishes history entries from user comments.
type ActivityType string

const (
	ActivityHistory ActivityType = "HISTORY"
	ActivityComment ActivityType = "COMMENT"
)

// User is a registered account referenced by boards and assignments.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// BoardMember links a user to a board.
type BoardMember struct {
	ID      string `json:"id"`
	UserID  string `json:"userId"`
	BoardID string `json:"boardId"`
	User    *User  `json:"user,omitempty"`
}

// Board is the top-level shared workspace. OwnerID is always present in
// Members; the server enforces visibility, the client mirrors it.
type Board struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	OwnerID         string        `json:"ownerId"`
	Members         []string      `json:"members"`
	BoardMembers    []BoardMember `json:"boardMembers,omitempty"`
	BackgroundImage string        `json:"backgroundImage,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// HasMember reports whether userID is a member of the board.
func (b Board) HasMember(userID string) bool {
	for _, id := range b.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// Column is an ordered lane within a board. Position is dense and zero-based
// within BoardID.
type Column struct {
	ID       string `json:"id"`
	BoardID  string `json:"boardId"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// ChecklistItem is owned exclusively by its task.
type ChecklistItem struct {
	ID        string `json:"id"`
	TaskID    string `json:"taskId"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Task is the draggable unit of work. Position is dense and zero-based within
// ColumnID. AssignedUsers must stay a subset of the owning board's membership.
type Task struct {
	ID            string          `json:"id"`
	ColumnID      string          `json:"columnId"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Position      int             `json:"position"`
	Priority      Priority        `json:"priority"`
	Completed     bool            `json:"completed"`
	AssignedUsers []string        `json:"assignedUsers"`
	Checklists    []ChecklistItem `json:"checklists"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Assigned reports whether userID is assigned to the task.
func (t Task) Assigned(userID string) bool {
	for _, id := range t.AssignedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// Activity is an append-only history or comment entry. TaskID is empty for
// board-level entries and survives task deletion.
type Activity struct {
	ID        string       `json:"id"`
	BoardID   string       `json:"boardId"`
	TaskID    string       `json:"taskId,omitempty"`
	UserID    string       `json:"userId"`
	Type      ActivityType `json:"type"`
	Action    string       `json:"action"`
	Timestamp time.Time    `json:"timestamp"`
}

// TaskPatch carries the optional fields of a task update. Nil fields are left
// untouched by the server.
type TaskPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Completed   *bool     `json:"completed,omitempty"`
}

// Apply copies the set fields of the patch onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}
