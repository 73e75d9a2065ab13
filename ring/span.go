// Package ring implements the circular slot allocator behind a streaming
// particle buffer.
package ring

// Span is a half-open slot range [Start, End) that never wraps.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int { return s.End - s.Start }

func (s Span) Empty() bool { return s.End <= s.Start }

// Advance moves index i forward by n slots on a ring of the given size.
func Advance(i, n, size int) int {
	return (i + n) % size
}

// Distance counts the slots walked going forward from "from" to "to".
func Distance(from, to, size int) int {
	return (to - from + size) % size
}

// SplitAtWrap turns the cyclic range [from, to) into at most two linear spans.
// The second span is empty unless the range crosses the end of the ring.
func SplitAtWrap(from, to, size int) (Span, Span) {
	if from <= to {
		return Span{from, to}, Span{}
	}
	return Span{from, size}, Span{0, to}
}
