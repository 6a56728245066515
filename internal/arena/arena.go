// Package arena implements the DSM's fixed-capacity value pool: a bounded
// set of cell slots, a free list for reclaimed slots, and a mark-sweep pass
// that reclaims unreachable slots when the free list runs dry. The arena
// only tracks indices, mark bits, and free-list chaining; callers store the
// actual payload in a parallel slice indexed by Ref.
package arena

// Ref identifies a live cell within an Arena. The zero Ref is never valid;
// valid refs are 1-based so a Ref can double as an "empty" sentinel.
type Ref int32

// Arena is a fixed-capacity pool of slots, indexed by Ref.
type Arena struct {
	marked   []bool
	next     []int32 // free-list chain, parallel to marked
	freeHead int32   // 1-based index of first free cell, 0 means empty
	grown    int     // count of slots ever handed out via initial growth
}

// New returns an Arena with room for up to capacity live cells.
func New(capacity int) *Arena {
	return &Arena{marked: make([]bool, capacity), next: make([]int32, capacity)}
}

// Len returns the arena's fixed capacity.
func (a *Arena) Len() int { return len(a.marked) }

// ErrOutOfSpace is returned by Alloc when no cell is free even after a
// mark-sweep pass.
type ErrOutOfSpace struct{}

func (ErrOutOfSpace) Error() string { return "arena: out of space" }

// Mark sets the mark bit on ref's cell. Safe to call redundantly.
func (a *Arena) Mark(ref Ref) {
	if ref > 0 {
		a.marked[ref-1] = true
	}
}

// Collect runs a mark-sweep pass: it calls mark to let the caller mark every
// reachable cell (via Mark calls on roots), then frees every cell that
// ended up unmarked. Cells already on the free list stay free. Returns the
// number of cells freed by the sweep.
func (a *Arena) Collect(mark func(a *Arena)) int {
	mark(a)
	onFree := make([]bool, len(a.marked))
	for cur := a.freeHead; cur != 0; cur = a.next[cur-1] {
		onFree[cur-1] = true
	}
	freed := 0
	for i := range a.marked {
		if a.marked[i] {
			a.marked[i] = false
			continue
		}
		if onFree[i] {
			continue
		}
		a.pushFree(Ref(i + 1))
		freed++
	}
	return freed
}

func (a *Arena) pushFree(ref Ref) {
	a.next[ref-1] = a.freeHead
	a.freeHead = int32(ref)
}

// Alloc returns a fresh cell reference following the DSM allocation order:
// hand out never-used slots first, then the free list, then attempt a
// mark-sweep via collect and retry the free list once. It returns
// ErrOutOfSpace if the free list is still empty after the sweep. init is
// called on the returned ref's slot whenever a value is handed back, so
// callers can reset per-cell payload state kept outside the arena.
func (a *Arena) Alloc(collect func(a *Arena), init func(Ref)) (Ref, error) {
	if a.grown < len(a.marked) {
		ref := Ref(a.grown + 1)
		a.grown++
		init(ref)
		return ref, nil
	}
	if ref, ok := a.popFree(); ok {
		init(ref)
		return ref, nil
	}
	a.Collect(collect)
	if ref, ok := a.popFree(); ok {
		init(ref)
		return ref, nil
	}
	return 0, ErrOutOfSpace{}
}

func (a *Arena) popFree() (Ref, bool) {
	if a.freeHead == 0 {
		return 0, false
	}
	ref := Ref(a.freeHead)
	a.freeHead = a.next[ref-1]
	return ref, true
}
