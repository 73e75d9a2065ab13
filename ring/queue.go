package ring

import "fmt"

// DefaultRetireDelay is the number of draw passes a retired slot waits before
// it is reused. The GPU is assumed to lag the CPU by at most two frames.
const DefaultRetireDelay = 3

// Cursors is a snapshot of the four queue boundaries.
type Cursors struct {
	FirstActive  int
	FirstNew     int
	FirstFree    int
	FirstRetired int
}

// Counts is the number of slots in each region.
type Counts struct {
	Active  int // uploaded and drawn
	New     int // written on the CPU, not yet uploaded
	Free    int
	Retired int // expired, possibly still read by an in-flight draw
}

// Queue partitions a fixed slot table into retired, active, new and free
// regions that follow each other around the ring in that order:
//
//	firstRetired -> firstActive -> firstNew -> firstFree -> firstRetired
//
// The table holds capacity+1 slots. The extra slot keeps a full queue
// (firstFree one behind firstRetired) distinct from an empty one.
type Queue struct {
	size int

	firstActive  int
	firstNew     int
	firstFree    int
	firstRetired int

	spawnTime   []float32
	retiredPass []uint64

	RetireDelay uint64
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	size := capacity + 1
	return &Queue{
		size:        size,
		spawnTime:   make([]float32, size),
		retiredPass: make([]uint64, size),
		RetireDelay: DefaultRetireDelay,
	}
}

// Size is the number of slots in the table, one more than Capacity.
func (q *Queue) Size() int { return q.size }

func (q *Queue) Capacity() int { return q.size - 1 }

// TryAllocate claims the first free slot and stamps it with the spawn time.
// It reports false, leaving every cursor untouched, when the queue is full.
func (q *Queue) TryAllocate(now float32) (int, bool) {
	next := Advance(q.firstFree, 1, q.size)
	if next == q.firstRetired {
		return 0, false
	}
	slot := q.firstFree
	q.spawnTime[slot] = now
	q.firstFree = next
	return slot, true
}

// RetireExpired moves uploaded particles whose age reached duration into the
// retired region, oldest first, and stamps them with the draw pass. Slots still
// waiting for upload are never retired.
func (q *Queue) RetireExpired(now, duration float32, pass uint64) int {
	retired := 0
	for q.firstActive != q.firstNew {
		age := now - q.spawnTime[q.firstActive]
		if age < duration {
			break
		}
		q.retiredPass[q.firstActive] = pass
		q.firstActive = Advance(q.firstActive, 1, q.size)
		retired++
	}
	return retired
}

// FreeRetired returns retired slots to the free region once RetireDelay draw
// passes have elapsed since they were retired.
func (q *Queue) FreeRetired(pass uint64) int {
	freed := 0
	for q.firstRetired != q.firstActive {
		stamp := q.retiredPass[q.firstRetired]
		if pass < stamp || pass-stamp < q.RetireDelay {
			break
		}
		q.firstRetired = Advance(q.firstRetired, 1, q.size)
		freed++
	}
	return freed
}

// Pending returns the slots written since the last Publish.
func (q *Queue) Pending() (Span, Span) {
	return SplitAtWrap(q.firstNew, q.firstFree, q.size)
}

// Publish returns the pending slots and marks them uploaded.
func (q *Queue) Publish() (Span, Span) {
	first, second := q.Pending()
	q.firstNew = q.firstFree
	return first, second
}

// Drawable returns the slots a draw covers: active plus anything just published.
func (q *Queue) Drawable() (Span, Span) {
	return SplitAtWrap(q.firstActive, q.firstFree, q.size)
}

// Empty reports that no particle is alive or waiting for upload.
func (q *Queue) Empty() bool { return q.firstActive == q.firstFree }

// Settled reports that no retired slot is waiting for the GPU.
func (q *Queue) Settled() bool { return q.firstRetired == q.firstActive }

// SpawnTime returns the spawn time recorded for a slot.
func (q *Queue) SpawnTime(slot int) float32 { return q.spawnTime[slot] }

// RetiredPass returns the draw pass a retired slot was stamped with.
func (q *Queue) RetiredPass(slot int) uint64 { return q.retiredPass[slot] }

func (q *Queue) Cursors() Cursors {
	return Cursors{
		FirstActive:  q.firstActive,
		FirstNew:     q.firstNew,
		FirstFree:    q.firstFree,
		FirstRetired: q.firstRetired,
	}
}

func (q *Queue) Counts() Counts {
	c := Counts{
		Retired: Distance(q.firstRetired, q.firstActive, q.size),
		Active:  Distance(q.firstActive, q.firstNew, q.size),
		New:     Distance(q.firstNew, q.firstFree, q.size),
	}
	c.Free = q.Capacity() - c.Retired - c.Active - c.New
	return c
}

// Reset empties the queue.
func (q *Queue) Reset() {
	q.firstActive, q.firstNew, q.firstFree, q.firstRetired = 0, 0, 0, 0
	for i := range q.spawnTime {
		q.spawnTime[i] = 0
		q.retiredPass[i] = 0
	}
}

// Validate checks the cursor ordering invariant. The four regions must tile
// the ring exactly once, and at least one slot must stay free.
func (q *Queue) Validate() error {
	for name, c := range map[string]int{
		"firstActive":  q.firstActive,
		"firstNew":     q.firstNew,
		"firstFree":    q.firstFree,
		"firstRetired": q.firstRetired,
	} {
		if c < 0 || c >= q.size {
			return fmt.Errorf("ring: %s=%d out of range [0,%d)", name, c, q.size)
		}
	}

	r := Distance(q.firstRetired, q.firstActive, q.size)
	a := Distance(q.firstActive, q.firstNew, q.size)
	n := Distance(q.firstNew, q.firstFree, q.size)
	f := Distance(q.firstFree, q.firstRetired, q.size)
	sum := r + a + n + f
	if sum == 0 {
		return nil
	}
	if sum != q.size {
		return fmt.Errorf("ring: regions overlap (retired=%d active=%d new=%d free=%d, size=%d) at %+v",
			r, a, n, f, q.size, q.Cursors())
	}
	if f == 0 {
		return fmt.Errorf("ring: free region consumed the sentinel slot at %+v", q.Cursors())
	}
	return nil
}
