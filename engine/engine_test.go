package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"boardsync/domain"
	"boardsync/store"
)

// fakeService is an in-memory stand-in for the CRUD service of record. It
// keeps its own authoritative state so confirmations return canonical
// entities, and records calls so tests can assert on request counts.
type fakeService struct {
	mu sync.Mutex

	boards  map[string]domain.Board
	columns map[string]domain.Column
	tasks   map[string]domain.Task

	nextID int

	moveCalls     []moveCall
	reorderCalls  []reorderCall
	activityCalls int
	commentCalls  int

	failMove     error
	failCreate   error
	failUpdate   error
	failReorder  error
	failAssign   error
	failActivity error
	failComment  error
}

type moveCall struct {
	taskID   string
	columnID string
	position int
}

type reorderCall struct {
	columnID string
	ids      []string
}

func newFakeService() *fakeService {
	return &fakeService{
		boards:  map[string]domain.Board{},
		columns: map[string]domain.Column{},
		tasks:   map[string]domain.Task{},
	}
}

func (f *fakeService) genID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeService) ListBoards(ctx context.Context) ([]domain.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Board, 0, len(f.boards))
	for _, b := range f.boards {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeService) GetBoard(ctx context.Context, boardID string) (domain.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.boards[boardID]
	if !ok {
		return domain.Board{}, &domain.NotFoundError{Kind: "board", ID: boardID}
	}
	return b, nil
}

func (f *fakeService) CreateBoard(ctx context.Context, title, backgroundImage string) (domain.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := domain.Board{ID: f.genID("board"), Title: title, BackgroundImage: backgroundImage, Members: []string{}}
	f.boards[b.ID] = b
	return b, nil
}

func (f *fakeService) DeleteBoard(ctx context.Context, boardID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.boards, boardID)
	return nil
}

func (f *fakeService) AddMember(ctx context.Context, boardID, email string) (domain.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.boards[boardID]
	userID := "user-" + email
	b.Members = append(b.Members, userID)
	b.BoardMembers = append(b.BoardMembers, domain.BoardMember{ID: f.genID("bm"), UserID: userID, BoardID: boardID})
	f.boards[boardID] = b
	return b, nil
}

func (f *fakeService) RemoveMember(ctx context.Context, boardID, userID string) error {
	return nil
}

func (f *fakeService) ListColumns(ctx context.Context, boardID string) ([]domain.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Column, 0, len(f.columns))
	for _, c := range f.columns {
		if c.BoardID == boardID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeService) CreateColumn(ctx context.Context, boardID, title string) (domain.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	position := 0
	for _, c := range f.columns {
		if c.BoardID == boardID {
			position++
		}
	}
	c := domain.Column{ID: f.genID("col"), BoardID: boardID, Title: title, Position: position}
	f.columns[c.ID] = c
	return c, nil
}

func (f *fakeService) UpdateColumn(ctx context.Context, columnID, title string) (domain.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.columns[columnID]
	if !ok {
		return domain.Column{}, &domain.NotFoundError{Kind: "column", ID: columnID}
	}
	c.Title = title
	f.columns[columnID] = c
	return c, nil
}

func (f *fakeService) DeleteColumn(ctx context.Context, columnID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.columns, columnID)
	return nil
}

func (f *fakeService) ReorderColumns(ctx context.Context, boardID string, orderedIDs []string) ([]domain.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Column, 0, len(orderedIDs))
	for i, id := range orderedIDs {
		c := f.columns[id]
		c.Position = i
		f.columns[id] = c
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeService) ListTasks(ctx context.Context, boardID, cursor string, limit int) ([]domain.Task, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	return out, "", nil
}

func (f *fakeService) CreateTask(ctx context.Context, columnID, title, description string) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return domain.Task{}, f.failCreate
	}
	position := 0
	for _, t := range f.tasks {
		if t.ColumnID == columnID {
			position++
		}
	}
	t := domain.Task{
		ID:            f.genID("task"),
		ColumnID:      columnID,
		Title:         title,
		Description:   description,
		Position:      position,
		Priority:      domain.PriorityMedium,
		AssignedUsers: []string{},
		Checklists:    []domain.ChecklistItem{},
		CreatedAt:     time.Unix(1700000000, 0).UTC(),
	}
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeService) UpdateTask(ctx context.Context, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate != nil {
		return domain.Task{}, f.failUpdate
	}
	t, ok := f.tasks[taskID]
	if !ok {
		return domain.Task{}, &domain.NotFoundError{Kind: "task", ID: taskID}
	}
	patch.Apply(&t)
	f.tasks[taskID] = t
	return t, nil
}

func (f *fakeService) MoveTask(ctx context.Context, taskID, columnID string, position int) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moveCalls = append(f.moveCalls, moveCall{taskID: taskID, columnID: columnID, position: position})
	if f.failMove != nil {
		return domain.Task{}, f.failMove
	}
	t, ok := f.tasks[taskID]
	if !ok {
		return domain.Task{}, &domain.NotFoundError{Kind: "task", ID: taskID}
	}
	t.ColumnID = columnID
	t.Position = position
	f.tasks[taskID] = t
	return t, nil
}

func (f *fakeService) ReorderTasks(ctx context.Context, columnID string, orderedIDs []string) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reorderCalls = append(f.reorderCalls, reorderCall{columnID: columnID, ids: append([]string(nil), orderedIDs...)})
	if f.failReorder != nil {
		return nil, f.failReorder
	}
	out := make([]domain.Task, 0, len(orderedIDs))
	for i, id := range orderedIDs {
		t := f.tasks[id]
		t.Position = i
		f.tasks[id] = t
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeService) DeleteTask(ctx context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, taskID)
	return nil
}

func (f *fakeService) AssignUser(ctx context.Context, taskID, userID string) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAssign != nil {
		return domain.Task{}, f.failAssign
	}
	t := f.tasks[taskID]
	t.AssignedUsers = append(t.AssignedUsers, userID)
	f.tasks[taskID] = t
	return t, nil
}

func (f *fakeService) UnassignUser(ctx context.Context, taskID, userID string) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tasks[taskID]
	kept := make([]string, 0, len(t.AssignedUsers))
	for _, id := range t.AssignedUsers {
		if id != userID {
			kept = append(kept, id)
		}
	}
	t.AssignedUsers = kept
	f.tasks[taskID] = t
	return t, nil
}

func (f *fakeService) AddChecklistItem(ctx context.Context, taskID, title string) (domain.ChecklistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := domain.ChecklistItem{ID: f.genID("check"), TaskID: taskID, Title: title}
	t := f.tasks[taskID]
	t.Checklists = append(t.Checklists, item)
	f.tasks[taskID] = t
	return item, nil
}

func (f *fakeService) UpdateChecklistItem(ctx context.Context, itemID string, completed bool) (domain.ChecklistItem, error) {
	return domain.ChecklistItem{ID: itemID, Completed: completed}, nil
}

func (f *fakeService) ListActivities(ctx context.Context, boardID, cursor string, limit int) ([]domain.Activity, string, error) {
	return nil, "", nil
}

func (f *fakeService) LogActivity(ctx context.Context, boardID, taskID, action string) (domain.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activityCalls++
	if f.failActivity != nil {
		return domain.Activity{}, f.failActivity
	}
	return domain.Activity{
		ID:      f.genID("act"),
		BoardID: boardID,
		TaskID:  taskID,
		UserID:  "user1",
		Type:    domain.ActivityHistory,
		Action:  action,
	}, nil
}

func (f *fakeService) AddComment(ctx context.Context, taskID, content string) (domain.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commentCalls++
	if f.failComment != nil {
		return domain.Activity{}, f.failComment
	}
	task, ok := f.tasks[taskID]
	if !ok {
		return domain.Activity{}, &domain.NotFoundError{Kind: "task", ID: taskID}
	}
	column := f.columns[task.ColumnID]
	return domain.Activity{
		ID:      f.genID("act"),
		BoardID: column.BoardID,
		TaskID:  taskID,
		UserID:  "user1",
		Type:    domain.ActivityComment,
		Action:  content,
	}, nil
}

// seedColumn installs a column and n tasks in both the fake service and the
// engine's store, mirroring a completed LoadBoard.
func seedColumn(f *fakeService, e *Engine, boardID, columnID string, taskIDs ...string) {
	f.mu.Lock()
	f.columns[columnID] = domain.Column{ID: columnID, BoardID: boardID, Title: columnID}
	f.mu.Unlock()
	e.Store().UpsertColumn(domain.Column{ID: columnID, BoardID: boardID, Title: columnID})
	for i, id := range taskIDs {
		t := domain.Task{
			ID:            id,
			ColumnID:      columnID,
			Title:         "task " + id,
			Position:      i,
			Priority:      domain.PriorityMedium,
			AssignedUsers: []string{},
			Checklists:    []domain.ChecklistItem{},
			CreatedAt:     time.Unix(1700000000, 0).UTC(),
		}
		f.mu.Lock()
		f.tasks[id] = t
		f.mu.Unlock()
		e.Store().UpsertTask(t)
	}
}

func newTestEngine() (*Engine, *fakeService) {
	f := newFakeService()
	e := New(store.New(), f, "user1", nil)
	return e, f
}
