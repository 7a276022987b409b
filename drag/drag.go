// Package drag turns a stream of pointer hover targets into exactly one
// committed move. While a gesture is live the dragged card is reflected
// visually in whichever column the pointer is over; nothing is sent to the
// service until the gesture ends.
package drag

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"boardsync/domain"
	"boardsync/engine"
	"boardsync/sequence"
)

// State is the controller's gesture state.
type State int

const (
	Idle State = iota
	DraggingTask
	DraggingColumn
)

// Target identifies what the pointer is currently over. TaskID set means the
// pointer is over that card and the drop would insert before it. TaskID empty
// means the pointer is over the column's body, which appends.
type Target struct {
	ColumnID string
	TaskID   string
}

// Controller drives one drag gesture at a time.
type Controller struct {
	eng *engine.Engine

	mu    sync.Mutex
	state State

	// task gesture
	opID           string
	taskID         string
	originColumnID string
	originIndex    int
	hovered        bool
	hoverColumnID  string
	hoverIndex     int

	// column gesture
	columnID     string
	overColumnID string
}

// New creates a controller committing through eng.
func New(eng *engine.Engine) *Controller {
	return &Controller{eng: eng}
}

// State reports the current gesture state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StartTask begins dragging a card. Starting while another gesture is live
// cancels the previous gesture first.
func (c *Controller) StartTask(taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortLocked()

	task, ok := c.eng.Store().GetTask(taskID)
	if !ok {
		return &domain.NotFoundError{Kind: "task", ID: taskID}
	}
	siblings := c.eng.Store().TasksInColumn(task.ColumnID)
	ids := make([]string, len(siblings))
	for i, t := range siblings {
		ids[i] = t.ID
	}

	c.state = DraggingTask
	c.opID = uuid.NewString()
	c.taskID = taskID
	c.originColumnID = task.ColumnID
	c.originIndex = sequence.IndexOf(ids, taskID)
	c.hovered = false
	return nil
}

// StartColumn begins dragging a whole column.
func (c *Controller) StartColumn(columnID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortLocked()

	if _, ok := c.eng.Store().GetColumn(columnID); !ok {
		return &domain.NotFoundError{Kind: "column", ID: columnID}
	}
	c.state = DraggingColumn
	c.columnID = columnID
	c.overColumnID = ""
	return nil
}

// Over records the current hover target. For a task gesture over a foreign
// column the card is reflected there immediately; the insertion index is only
// remembered, positions are not touched until the drop.
func (c *Controller) Over(target Target) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case DraggingTask:
		c.overTaskLocked(target)
	case DraggingColumn:
		if target.ColumnID == "" {
			return
		}
		if target.ColumnID == c.columnID {
			// Back over the dragged column itself: no intent, forget any
			// earlier target so the drop is a no-op.
			c.overColumnID = ""
			return
		}
		c.overColumnID = target.ColumnID
	}
}

func (c *Controller) overTaskLocked(target Target) {
	if target.ColumnID == "" {
		return
	}
	if target.TaskID == c.taskID {
		// Back over the dragged card itself: forget the last hovered target
		// so the drop cancels instead of committing it.
		c.hovered = false
		return
	}

	task, ok := c.eng.Store().GetTask(c.taskID)
	if !ok {
		return
	}
	if task.ColumnID != target.ColumnID {
		c.eng.VisualMoveTask(c.opID, c.taskID, target.ColumnID)
	}

	// Index over the column's cards with the dragged card taken out, so a
	// drop inserts before the hovered card regardless of travel direction.
	var ids []string
	for _, t := range c.eng.Store().TasksInColumn(target.ColumnID) {
		if t.ID == c.taskID {
			continue
		}
		ids = append(ids, t.ID)
	}

	index := len(ids)
	if target.TaskID != "" {
		if i := sequence.IndexOf(ids, target.TaskID); i >= 0 {
			index = i
		}
	}

	c.hovered = true
	c.hoverColumnID = target.ColumnID
	c.hoverIndex = index
}

// End finishes the gesture. A drop that would leave the board unchanged
// cancels instead of committing, so no request is issued.
func (c *Controller) End(ctx context.Context) error {
	c.mu.Lock()
	state := c.state
	opID, taskID := c.opID, c.taskID
	hovered, hoverColumnID, hoverIndex := c.hovered, c.hoverColumnID, c.hoverIndex
	noChange := !hovered || (hoverColumnID == c.originColumnID && hoverIndex == c.originIndex)
	columnID, overColumnID := c.columnID, c.overColumnID
	c.resetLocked()
	c.mu.Unlock()

	switch state {
	case DraggingTask:
		if noChange {
			c.eng.CancelGesture(opID)
			return nil
		}
		return c.eng.CommitMoveTask(ctx, opID, taskID, hoverColumnID, hoverIndex)
	case DraggingColumn:
		if overColumnID == "" {
			return nil
		}
		return c.eng.MoveColumn(ctx, columnID, overColumnID)
	default:
		return nil
	}
}

// Cancel aborts the gesture and restores the pre-drag state.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortLocked()
}

func (c *Controller) abortLocked() {
	if c.state == DraggingTask {
		c.eng.CancelGesture(c.opID)
	}
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.state = Idle
	c.opID = ""
	c.taskID = ""
	c.originColumnID = ""
	c.originIndex = 0
	c.hovered = false
	c.hoverColumnID = ""
	c.hoverIndex = 0
	c.columnID = ""
	c.overColumnID = ""
}
