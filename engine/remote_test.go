package engine

import (
	"encoding/json"
	"testing"
	"time"

	"boardsync/domain"
)

func marshalTask(t domain.Task) (json.RawMessage, error) {
	return json.Marshal(t)
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func remoteTask(id, columnID string, pos int) domain.Task {
	return domain.Task{
		ID:            id,
		ColumnID:      columnID,
		Title:         "remote " + id,
		Position:      pos,
		Priority:      domain.PriorityLow,
		AssignedUsers: []string{},
		Checklists:    []domain.ChecklistItem{},
		CreatedAt:     time.Unix(1700000000, 0).UTC(),
	}
}

func TestRemoteTaskCreatedInsertsOnce(t *testing.T) {
	e, f := newTestEngine()
	seedColumn(f, e, "b1", "c1", "t1")

	ev := domain.Event{Name: domain.TaskCreated, BoardID: "b1", Data: mustMarshal(t, remoteTask("r1", "c1", 1))}
	e.HandleEvent(ev)
	// At-least-once delivery: a duplicate must be idempotent.
	e.HandleEvent(ev)

	got := idsOf(e.Store().TasksInColumn("c1"))
	if !equalIDs(got, []string{"t1", "r1"}) {
		t.Fatalf("unexpected tasks %v", got)
	}
}

func TestRemoteMoveOrdersByAuthoritativePosition(t *testing.T) {
	e, f := newTestEngine()
	seedColumn(f, e, "b1", "c1", "t1", "t2", "t3")

	// Another user moved t3 to the top; the broadcast carries canonical
	// positions, and the local view re-derives order purely from them.
	for id, pos := range map[string]int{"t3": 0, "t1": 1, "t2": 2} {
		task, _ := e.Store().GetTask(id)
		task.Position = pos
		e.HandleEvent(domain.Event{
			Name:    domain.TaskMoved,
			BoardID: "b1",
			Data:    mustMarshal(t, domain.TaskMovedData{TaskID: id, Task: task}),
		})
	}

	got := idsOf(e.Store().TasksInColumn("c1"))
	if !equalIDs(got, []string{"t3", "t1", "t2"}) {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestRemoteTaskDeleted(t *testing.T) {
	e, f := newTestEngine()
	seedColumn(f, e, "b1", "c1", "t1", "t2")

	e.HandleEvent(domain.Event{
		Name:    domain.TaskDeleted,
		BoardID: "b1",
		Data:    mustMarshal(t, domain.TaskDeletedData{TaskID: "t1"}),
	})
	if _, ok := e.Store().GetTask("t1"); ok {
		t.Fatal("deleted task still present")
	}
}

func TestRemoteMemberAddedDedups(t *testing.T) {
	e, _ := newTestEngine()
	e.Store().UpsertBoard(domain.Board{ID: "b1", Title: "board", OwnerID: "user1", Members: []string{"user1"}})

	member := domain.BoardMember{ID: "bm1", UserID: "user2", BoardID: "b1"}
	ev := domain.Event{Name: domain.MemberAdded, BoardID: "b1", Data: mustMarshal(t, domain.MemberAddedData{Member: member})}
	e.HandleEvent(ev)
	e.HandleEvent(ev)

	board, _ := e.Store().GetBoard("b1")
	if len(board.Members) != 2 {
		t.Fatalf("expected 2 members, got %v", board.Members)
	}
	if len(board.BoardMembers) != 1 {
		t.Fatalf("expected 1 member record, got %d", len(board.BoardMembers))
	}
}

func TestRemoteMemberRemoved(t *testing.T) {
	e, _ := newTestEngine()
	e.Store().UpsertBoard(domain.Board{
		ID:      "b1",
		OwnerID: "user1",
		Members: []string{"user1", "user2"},
		BoardMembers: []domain.BoardMember{
			{ID: "bm1", UserID: "user1", BoardID: "b1"},
			{ID: "bm2", UserID: "user2", BoardID: "b1"},
		},
	})

	e.HandleEvent(domain.Event{
		Name:    domain.MemberRemoved,
		BoardID: "b1",
		Data:    mustMarshal(t, domain.MemberRemovedData{UserID: "user2"}),
	})

	board, _ := e.Store().GetBoard("b1")
	if board.HasMember("user2") {
		t.Fatal("removed member still present")
	}
	if len(board.BoardMembers) != 1 {
		t.Fatalf("member record not removed: %d", len(board.BoardMembers))
	}
}

func TestRemoteBoardDeletedCascades(t *testing.T) {
	e, f := newTestEngine()
	e.Store().UpsertBoard(domain.Board{ID: "b1", OwnerID: "user1", Members: []string{"user1"}})
	seedColumn(f, e, "b1", "c1", "t1")

	e.HandleEvent(domain.Event{
		Name:    domain.BoardDeleted,
		BoardID: "b1",
		Data:    mustMarshal(t, domain.BoardDeletedData{BoardID: "b1"}),
	})

	if _, ok := e.Store().GetBoard("b1"); ok {
		t.Fatal("board still present")
	}
	if _, ok := e.Store().GetColumn("c1"); ok {
		t.Fatal("column should cascade with board")
	}
	if _, ok := e.Store().GetTask("t1"); ok {
		t.Fatal("task should cascade with board")
	}
}

func TestRemoteColumnsReordered(t *testing.T) {
	e, _ := newTestEngine()
	e.Store().UpsertColumn(domain.Column{ID: "c1", BoardID: "b1", Position: 0})
	e.Store().UpsertColumn(domain.Column{ID: "c2", BoardID: "b1", Position: 1})

	e.HandleEvent(domain.Event{
		Name:    domain.ColumnsOrdered,
		BoardID: "b1",
		Data: mustMarshal(t, domain.ColumnsOrderedData{Columns: []domain.Column{
			{ID: "c2", BoardID: "b1", Position: 0},
			{ID: "c1", BoardID: "b1", Position: 1},
		}}),
	})

	cols := e.Store().ColumnsInBoard("b1")
	if cols[0].ID != "c2" || cols[1].ID != "c1" {
		t.Fatalf("unexpected column order %s,%s", cols[0].ID, cols[1].ID)
	}
}

func TestUnknownEventIgnored(t *testing.T) {
	e, _ := newTestEngine()
	e.HandleEvent(domain.Event{Name: "task:sparkled", BoardID: "b1"})
}
