package sequence

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestReassignPositionsDense(t *testing.T) {
	positions := ReassignPositions([]string{"c", "a", "b"})
	want := map[string]int{"c": 0, "a": 1, "b": 2}
	if !reflect.DeepEqual(positions, want) {
		t.Fatalf("expected %v, got %v", want, positions)
	}
}

func TestInsertAt(t *testing.T) {
	cases := []struct {
		name  string
		sibs  []string
		id    string
		index int
		want  []string
	}{
		{"front", []string{"a", "b"}, "x", 0, []string{"x", "a", "b"}},
		{"middle", []string{"a", "b"}, "x", 1, []string{"a", "x", "b"}},
		{"end", []string{"a", "b"}, "x", 2, []string{"a", "b", "x"}},
		{"past end appends", []string{"a", "b"}, "x", 9, []string{"a", "b", "x"}},
		{"negative clamps to front", []string{"a", "b"}, "x", -1, []string{"x", "a", "b"}},
		{"already present moves", []string{"a", "x", "b"}, "x", 0, []string{"x", "a", "b"}},
		{"same index is no-op", []string{"a", "x", "b"}, "x", 1, []string{"a", "x", "b"}},
		{"empty group", nil, "x", 0, []string{"x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := InsertAt(tc.sibs, tc.id, tc.index)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestMoveAcrossGroups(t *testing.T) {
	from, to := MoveAcrossGroups([]string{"t1", "t2", "t3"}, []string{"u1", "u2"}, "t2", 1)
	if !reflect.DeepEqual(from, []string{"t1", "t3"}) {
		t.Fatalf("unexpected origin group %v", from)
	}
	if !reflect.DeepEqual(to, []string{"u1", "t2", "u2"}) {
		t.Fatalf("unexpected destination group %v", to)
	}

	fromPos := ReassignPositions(from)
	toPos := ReassignPositions(to)
	if fromPos["t1"] != 0 || fromPos["t3"] != 1 {
		t.Fatalf("origin positions not contiguous: %v", fromPos)
	}
	if toPos["u1"] != 0 || toPos["t2"] != 1 || toPos["u2"] != 2 {
		t.Fatalf("destination positions not contiguous: %v", toPos)
	}
}

func TestArrayMove(t *testing.T) {
	got := ArrayMove([]string{"t1", "t2", "t3"}, 2, 0)
	if !reflect.DeepEqual(got, []string{"t3", "t1", "t2"}) {
		t.Fatalf("unexpected order %v", got)
	}
	got = ArrayMove([]string{"t1", "t2"}, 5, 0)
	if !reflect.DeepEqual(got, []string{"t1", "t2"}) {
		t.Fatalf("out-of-range move should be a no-op, got %v", got)
	}
}

// Random insert/move/remove sequences must keep positions exactly 0..N-1.
func TestPositionsStayDenseUnderRandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	group := []string{"a", "b", "c", "d"}
	pool := []string{"e", "f", "g", "h"}
	for i := 0; i < 500; i++ {
		switch rng.Intn(3) {
		case 0:
			if len(pool) > 0 {
				id := pool[0]
				pool = pool[1:]
				group = InsertAt(group, id, rng.Intn(len(group)+1))
			}
		case 1:
			if len(group) > 0 {
				id := group[rng.Intn(len(group))]
				group = Remove(group, id)
				pool = append(pool, id)
			}
		case 2:
			if len(group) > 1 {
				group = ArrayMove(group, rng.Intn(len(group)), rng.Intn(len(group)))
			}
		}
		positions := ReassignPositions(group)
		if len(positions) != len(group) {
			t.Fatalf("duplicate ids after op %d: %v", i, group)
		}
		seen := make([]bool, len(group))
		for id, pos := range positions {
			if pos < 0 || pos >= len(group) {
				t.Fatalf("position %d for %s out of range after op %d", pos, id, i)
			}
			if seen[pos] {
				t.Fatalf("duplicate position %d after op %d", pos, i)
			}
			seen[pos] = true
		}
	}
}
