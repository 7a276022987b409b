// Package sequence maintains the dense zero-based ordering of sibling
// entities: tasks within a column and columns within a board. Positions are
// always recomputed for the whole sibling group; partial patching is avoided
// so interleaved reorders cannot drift.
package sequence

// ReassignPositions assigns 0..N-1 to the ids in list order. This is the
// single authority for sibling ordering.
func ReassignPositions(ids []string) map[string]int {
	positions := make(map[string]int, len(ids))
	for i, id := range ids {
		positions[id] = i
	}
	return positions
}

// InsertAt returns a new ordered list with id inserted at index. An index past
// the end appends; a negative index inserts at the front. If id is already
// present it is removed from its current slot first, so inserting at the
// current index is a no-op.
func InsertAt(siblingIDs []string, id string, index int) []string {
	base := Remove(siblingIDs, id)
	if index < 0 {
		index = 0
	}
	if index > len(base) {
		index = len(base)
	}
	out := make([]string, 0, len(base)+1)
	out = append(out, base[:index]...)
	out = append(out, id)
	out = append(out, base[index:]...)
	return out
}

// Remove returns a new list with id removed. The vacated slot is closed, so a
// subsequent ReassignPositions yields a contiguous sequence.
func Remove(siblingIDs []string, id string) []string {
	out := make([]string, 0, len(siblingIDs))
	for _, sid := range siblingIDs {
		if sid != id {
			out = append(out, sid)
		}
	}
	return out
}

// MoveAcrossGroups removes id from its origin group and inserts it into the
// destination group at toIndex, returning both new orderings. The caller must
// update the moved entity's parent reference together with the positions
// derived from the returned lists.
func MoveAcrossGroups(fromSiblingIDs, toSiblingIDs []string, id string, toIndex int) (from, to []string) {
	from = Remove(fromSiblingIDs, id)
	to = InsertAt(Remove(toSiblingIDs, id), id, toIndex)
	return from, to
}

// IndexOf returns the current index of id, or -1.
func IndexOf(siblingIDs []string, id string) int {
	for i, sid := range siblingIDs {
		if sid == id {
			return i
		}
	}
	return -1
}

// ArrayMove returns a new list with the element at fromIndex moved to toIndex,
// matching drag-and-drop reorder semantics. Out-of-range indexes leave the
// list unchanged.
func ArrayMove(ids []string, fromIndex, toIndex int) []string {
	if fromIndex < 0 || fromIndex >= len(ids) || toIndex < 0 || toIndex >= len(ids) {
		return append([]string(nil), ids...)
	}
	out := make([]string, 0, len(ids))
	out = append(out, ids[:fromIndex]...)
	out = append(out, ids[fromIndex+1:]...)
	return InsertAt(out, ids[fromIndex], toIndex)
}
