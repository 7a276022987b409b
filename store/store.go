// Package store holds the client's in-memory mirror of server-authoritative
// state. It is mutated only through the reconciliation engine; views subscribe
// for change notifications but the store keeps no references into rendering.
package store

import (
	"reflect"
	"sort"
	"sync"

	"boardsync/domain"
)

// Kind names an entity collection.
type Kind string

const (
	KindBoard    Kind = "board"
	KindColumn   Kind = "column"
	KindTask     Kind = "task"
	KindActivity Kind = "activity"
)

// Change describes a single store mutation delivered to subscribers.
type Change struct {
	Kind    Kind
	ID      string
	Removed bool
}

// snapshot records pre-mutation copies of entities for one in-flight
// operation. A nil pointer means the entity was absent when captured.
type snapshot struct {
	tasks   map[string]*domain.Task
	columns map[string]*domain.Column
}

// Store is the authoritative-mirror entity store.
type Store struct {
	mu         sync.RWMutex
	boards     map[string]domain.Board
	columns    map[string]domain.Column
	tasks      map[string]domain.Task
	activities map[string]domain.Activity

	snapshots map[string]*snapshot

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		boards:     make(map[string]domain.Board),
		columns:    make(map[string]domain.Column),
		tasks:      make(map[string]domain.Task),
		activities: make(map[string]domain.Activity),
		snapshots:  make(map[string]*snapshot),
		subs:       make(map[int]func(Change)),
	}
}

// Subscribe registers a change listener and returns its cancel func.
// Listeners are invoked synchronously after each effective mutation.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(ch Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(ch)
	}
}

func cloneTask(t domain.Task) domain.Task {
	out := t
	out.AssignedUsers = append([]string(nil), t.AssignedUsers...)
	out.Checklists = append([]domain.ChecklistItem(nil), t.Checklists...)
	return out
}

func cloneBoard(b domain.Board) domain.Board {
	out := b
	out.Members = append([]string(nil), b.Members...)
	out.BoardMembers = append([]domain.BoardMember(nil), b.BoardMembers...)
	return out
}

// GetTask returns a copy of the task, if present.
func (s *Store) GetTask(id string) (domain.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, false
	}
	return cloneTask(t), true
}

// GetColumn returns a copy of the column, if present.
func (s *Store) GetColumn(id string) (domain.Column, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.columns[id]
	return c, ok
}

// GetBoard returns a copy of the board, if present.
func (s *Store) GetBoard(id string) (domain.Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boards[id]
	if !ok {
		return domain.Board{}, false
	}
	return cloneBoard(b), true
}

// UpsertTask inserts or replaces a task. Re-applying an identical value is a
// no-op: the store content is unchanged and subscribers are not notified.
func (s *Store) UpsertTask(t domain.Task) {
	s.mu.Lock()
	if existing, ok := s.tasks[t.ID]; ok && reflect.DeepEqual(existing, t) {
		s.mu.Unlock()
		return
	}
	s.tasks[t.ID] = cloneTask(t)
	s.mu.Unlock()
	s.notify(Change{Kind: KindTask, ID: t.ID})
}

// RemoveTask deletes a task if present.
func (s *Store) RemoveTask(id string) {
	s.mu.Lock()
	if _, ok := s.tasks[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.tasks, id)
	s.mu.Unlock()
	s.notify(Change{Kind: KindTask, ID: id, Removed: true})
}

// UpsertColumn inserts or replaces a column, idempotently.
func (s *Store) UpsertColumn(c domain.Column) {
	s.mu.Lock()
	if existing, ok := s.columns[c.ID]; ok && existing == c {
		s.mu.Unlock()
		return
	}
	s.columns[c.ID] = c
	s.mu.Unlock()
	s.notify(Change{Kind: KindColumn, ID: c.ID})
}

// RemoveColumn deletes a column and, owning cascade, every task in it.
func (s *Store) RemoveColumn(id string) {
	s.mu.Lock()
	if _, ok := s.columns[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.columns, id)
	var cascaded []string
	for tid, t := range s.tasks {
		if t.ColumnID == id {
			delete(s.tasks, tid)
			cascaded = append(cascaded, tid)
		}
	}
	s.mu.Unlock()
	for _, tid := range cascaded {
		s.notify(Change{Kind: KindTask, ID: tid, Removed: true})
	}
	s.notify(Change{Kind: KindColumn, ID: id, Removed: true})
}

// UpsertBoard inserts or replaces a board, idempotently.
func (s *Store) UpsertBoard(b domain.Board) {
	s.mu.Lock()
	if existing, ok := s.boards[b.ID]; ok && reflect.DeepEqual(existing, b) {
		s.mu.Unlock()
		return
	}
	s.boards[b.ID] = cloneBoard(b)
	s.mu.Unlock()
	s.notify(Change{Kind: KindBoard, ID: b.ID})
}

// RemoveBoard deletes a board and cascades through its columns and tasks.
func (s *Store) RemoveBoard(id string) {
	s.mu.Lock()
	if _, ok := s.boards[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.boards, id)
	var columnIDs []string
	for cid, c := range s.columns {
		if c.BoardID == id {
			columnIDs = append(columnIDs, cid)
		}
	}
	s.mu.Unlock()
	for _, cid := range columnIDs {
		s.RemoveColumn(cid)
	}
	s.notify(Change{Kind: KindBoard, ID: id, Removed: true})
}

// UpsertActivity appends an activity entry, idempotently by id.
func (s *Store) UpsertActivity(a domain.Activity) {
	s.mu.Lock()
	if existing, ok := s.activities[a.ID]; ok && existing == a {
		s.mu.Unlock()
		return
	}
	s.activities[a.ID] = a
	s.mu.Unlock()
	s.notify(Change{Kind: KindActivity, ID: a.ID})
}

// TasksInColumn returns the column's tasks ordered purely by their
// authoritative position field, ascending. Ties (possible transiently while
// an optimistic move is in flight) fall back to creation time, then id.
func (s *Store) TasksInColumn(columnID string) []domain.Task {
	s.mu.RLock()
	out := make([]domain.Task, 0, 8)
	for _, t := range s.tasks {
		if t.ColumnID == columnID {
			out = append(out, cloneTask(t))
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ColumnsInBoard returns the board's columns ordered by position.
func (s *Store) ColumnsInBoard(boardID string) []domain.Column {
	s.mu.RLock()
	out := make([]domain.Column, 0, 8)
	for _, c := range s.columns {
		if c.BoardID == boardID {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Boards returns all boards ordered by creation time.
func (s *Store) Boards() []domain.Board {
	s.mu.RLock()
	out := make([]domain.Board, 0, len(s.boards))
	for _, b := range s.boards {
		out = append(out, cloneBoard(b))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ActivitiesForBoard returns the board's activity feed, newest first.
func (s *Store) ActivitiesForBoard(boardID string) []domain.Activity {
	s.mu.RLock()
	out := make([]domain.Activity, 0, 16)
	for _, a := range s.activities {
		if a.BoardID == boardID {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) snapshotFor(opID string) *snapshot {
	snap, ok := s.snapshots[opID]
	if !ok {
		snap = &snapshot{
			tasks:   make(map[string]*domain.Task),
			columns: make(map[string]*domain.Column),
		}
		s.snapshots[opID] = snap
	}
	return snap
}

// SnapshotTasks captures the current value (or absence) of each task under
// opID. The first capture per (opID, id) wins, so repeated calls during one
// gesture preserve the true pre-mutation state.
func (s *Store) SnapshotTasks(opID string, ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshotFor(opID)
	for _, id := range ids {
		if _, done := snap.tasks[id]; done {
			continue
		}
		if t, ok := s.tasks[id]; ok {
			c := cloneTask(t)
			snap.tasks[id] = &c
		} else {
			snap.tasks[id] = nil
		}
	}
}

// SnapshotColumns captures the current value (or absence) of each column
// under opID, first capture wins.
func (s *Store) SnapshotColumns(opID string, ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshotFor(opID)
	for _, id := range ids {
		if _, done := snap.columns[id]; done {
			continue
		}
		if c, ok := s.columns[id]; ok {
			cc := c
			snap.columns[id] = &cc
		} else {
			snap.columns[id] = nil
		}
	}
}

// Restore rolls every entity captured under opID back to its snapshotted
// state and clears the snapshot. Entities that were absent are removed again.
func (s *Store) Restore(opID string) {
	s.mu.Lock()
	snap, ok := s.snapshots[opID]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.snapshots, opID)
	var changes []Change
	for id, t := range snap.tasks {
		if t == nil {
			if _, present := s.tasks[id]; present {
				delete(s.tasks, id)
				changes = append(changes, Change{Kind: KindTask, ID: id, Removed: true})
			}
			continue
		}
		if existing, present := s.tasks[id]; !present || !reflect.DeepEqual(existing, *t) {
			s.tasks[id] = cloneTask(*t)
			changes = append(changes, Change{Kind: KindTask, ID: id})
		}
	}
	for id, c := range snap.columns {
		if c == nil {
			if _, present := s.columns[id]; present {
				delete(s.columns, id)
				changes = append(changes, Change{Kind: KindColumn, ID: id, Removed: true})
			}
			continue
		}
		if existing, present := s.columns[id]; !present || existing != *c {
			s.columns[id] = *c
			changes = append(changes, Change{Kind: KindColumn, ID: id})
		}
	}
	s.mu.Unlock()
	for _, ch := range changes {
		s.notify(ch)
	}
}

// HasSnapshot reports whether any entity state was captured under opID.
func (s *Store) HasSnapshot(opID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.snapshots[opID]
	return ok
}

// Discard drops the snapshot for a confirmed operation.
func (s *Store) Discard(opID string) {
	s.mu.Lock()
	delete(s.snapshots, opID)
	s.mu.Unlock()
}
