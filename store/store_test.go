package store

import (
	"reflect"
	"testing"
	"time"

	"boardsync/domain"
)

func task(id, columnID string, pos int) domain.Task {
	return domain.Task{
		ID:            id,
		ColumnID:      columnID,
		Title:         "task " + id,
		Position:      pos,
		Priority:      domain.PriorityMedium,
		AssignedUsers: []string{},
		Checklists:    []domain.ChecklistItem{},
		CreatedAt:     time.Unix(1700000000, 0).UTC(),
	}
}

func TestUpsertIdempotent(t *testing.T) {
	s := New()
	var notified int
	defer s.Subscribe(func(Change) { notified++ })()

	tk := task("t1", "c1", 0)
	s.UpsertTask(tk)
	s.UpsertTask(tk)

	if notified != 1 {
		t.Fatalf("expected 1 notification, got %d", notified)
	}
	got, ok := s.GetTask("t1")
	if !ok {
		t.Fatal("task missing")
	}
	if !reflect.DeepEqual(got, tk) {
		t.Fatalf("expected %+v, got %+v", tk, got)
	}
	if len(s.TasksInColumn("c1")) != 1 {
		t.Fatalf("expected exactly one task in column")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	tk := task("t1", "c1", 0)
	tk.AssignedUsers = []string{"u1"}
	s.UpsertTask(tk)

	got, _ := s.GetTask("t1")
	got.AssignedUsers[0] = "mutated"

	again, _ := s.GetTask("t1")
	if again.AssignedUsers[0] != "u1" {
		t.Fatal("store content mutated through returned copy")
	}
}

func TestTasksInColumnSortedByPosition(t *testing.T) {
	s := New()
	s.UpsertTask(task("t2", "c1", 1))
	s.UpsertTask(task("t3", "c1", 2))
	s.UpsertTask(task("t1", "c1", 0))
	s.UpsertTask(task("x", "c2", 0))

	got := s.TasksInColumn("c1")
	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	if !reflect.DeepEqual(ids, []string{"t1", "t2", "t3"}) {
		t.Fatalf("unexpected order %v", ids)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s := New()
	before := task("t1", "c1", 0)
	s.UpsertTask(before)

	s.SnapshotTasks("op1", "t1")

	moved := before
	moved.ColumnID = "c2"
	moved.Position = 3
	s.UpsertTask(moved)

	s.Restore("op1")

	got, ok := s.GetTask("t1")
	if !ok {
		t.Fatal("task missing after restore")
	}
	if !reflect.DeepEqual(got, before) {
		t.Fatalf("restore not byte-identical: expected %+v, got %+v", before, got)
	}
}

func TestSnapshotFirstCaptureWins(t *testing.T) {
	s := New()
	before := task("t1", "c1", 0)
	s.UpsertTask(before)

	s.SnapshotTasks("op1", "t1")
	mid := before
	mid.ColumnID = "c2"
	s.UpsertTask(mid)
	// Second capture during the same gesture must not overwrite the original.
	s.SnapshotTasks("op1", "t1")

	s.Restore("op1")
	got, _ := s.GetTask("t1")
	if got.ColumnID != "c1" {
		t.Fatalf("expected pre-gesture column c1, got %s", got.ColumnID)
	}
}

func TestRestoreRemovesEntitiesAbsentAtCapture(t *testing.T) {
	s := New()
	s.SnapshotTasks("op1", "ghost")
	s.UpsertTask(task("ghost", "c1", 0))
	s.Restore("op1")
	if _, ok := s.GetTask("ghost"); ok {
		t.Fatal("entity absent at capture should be removed by restore")
	}
}

func TestConcurrentOpsKeepSeparateSnapshots(t *testing.T) {
	s := New()
	s.UpsertTask(task("t1", "c1", 0))
	s.UpsertTask(task("t2", "c1", 1))

	s.SnapshotTasks("opA", "t1")
	s.SnapshotTasks("opB", "t2")

	a := task("t1", "c1", 5)
	s.UpsertTask(a)
	b := task("t2", "c1", 7)
	s.UpsertTask(b)

	s.Restore("opA")

	t1, _ := s.GetTask("t1")
	t2, _ := s.GetTask("t2")
	if t1.Position != 0 {
		t.Fatalf("opA restore failed, position %d", t1.Position)
	}
	if t2.Position != 7 {
		t.Fatalf("opA restore clobbered opB's entity, position %d", t2.Position)
	}

	s.Restore("opB")
	t2, _ = s.GetTask("t2")
	if t2.Position != 1 {
		t.Fatalf("opB restore failed, position %d", t2.Position)
	}
}

func TestRemoveColumnCascadesTasks(t *testing.T) {
	s := New()
	s.UpsertColumn(domain.Column{ID: "c1", BoardID: "b1", Title: "To Do"})
	s.UpsertTask(task("t1", "c1", 0))
	s.UpsertTask(task("t2", "c2", 0))

	s.RemoveColumn("c1")

	if _, ok := s.GetTask("t1"); ok {
		t.Fatal("task in deleted column should be gone")
	}
	if _, ok := s.GetTask("t2"); !ok {
		t.Fatal("task in other column should survive")
	}
}

func TestActivitiesNewestFirst(t *testing.T) {
	s := New()
	base := time.Unix(1700000000, 0).UTC()
	s.UpsertActivity(domain.Activity{ID: "a1", BoardID: "b1", Timestamp: base})
	s.UpsertActivity(domain.Activity{ID: "a2", BoardID: "b1", Timestamp: base.Add(time.Minute)})

	got := s.ActivitiesForBoard("b1")
	if len(got) != 2 || got[0].ID != "a2" {
		t.Fatalf("expected newest first, got %+v", got)
	}
}
