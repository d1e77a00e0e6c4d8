package diff

import "time"

type opKind int

const (
	opEqual opKind = iota
	opDelete
	opInsert
	opReplace
)

// op is one aligned span. Indexes refer to the full old and new sequences.
type op struct {
	kind     opKind
	oldIndex int
	oldLen   int
	newIndex int
	newLen   int
}

// recorder collects spans from the search. Consecutive spans of the same kind
// are merged, and every run of deletions and insertions between two equal
// spans becomes a single replace.
type recorder struct {
	ops []op
	eq  *op
	del *op
	ins *op
}

func (r *recorder) equal(oldIndex, newIndex, n int) {
	r.flushEdits()
	if r.eq != nil {
		r.eq.oldLen += n
		r.eq.newLen += n
		return
	}
	r.eq = &op{kind: opEqual, oldIndex: oldIndex, oldLen: n, newIndex: newIndex, newLen: n}
}

func (r *recorder) delete(oldIndex, n, newIndex int) {
	r.flushEqual()
	if r.del != nil {
		r.del.oldLen += n
		return
	}
	r.del = &op{kind: opDelete, oldIndex: oldIndex, oldLen: n, newIndex: newIndex}
}

func (r *recorder) insert(oldIndex, newIndex, n int) {
	r.flushEqual()
	if r.ins != nil {
		r.ins.newLen += n
		return
	}
	r.ins = &op{kind: opInsert, oldIndex: oldIndex, newIndex: newIndex, newLen: n}
}

func (r *recorder) flushEqual() {
	if r.eq != nil {
		r.ops = append(r.ops, *r.eq)
		r.eq = nil
	}
}

func (r *recorder) flushEdits() {
	switch {
	case r.del != nil && r.ins != nil:
		r.ops = append(r.ops, op{
			kind:     opReplace,
			oldIndex: r.del.oldIndex,
			oldLen:   r.del.oldLen,
			newIndex: r.ins.newIndex,
			newLen:   r.ins.newLen,
		})
	case r.del != nil:
		r.ops = append(r.ops, *r.del)
	case r.ins != nil:
		r.ops = append(r.ops, *r.ins)
	}
	r.del, r.ins = nil, nil
}

func (r *recorder) finish() []op {
	r.flushEqual()
	r.flushEdits()
	return r.ops
}

// vector stores the furthest x reached on each diagonal k, k may be negative.
type vector struct {
	offset int
	v      []int
}

func newVector(maxD int) *vector {
	return &vector{offset: maxD, v: make([]int, 2*maxD+2)}
}

func (v *vector) get(k int) int    { return v.v[v.offset+k] }
func (v *vector) set(k int, x int) { v.v[v.offset+k] = x }

func maxD(n, m int) int {
	return (n+m+1)/2 + 1
}

type myers[T comparable] struct {
	old, new []T
	vf, vb   *vector
	deadline time.Time
	rec      *recorder
}

// alignment runs the linear-space Myers search over old and new. Once the
// deadline passes, every region that is still unresolved is reported as a
// whole replacement. A zero deadline never expires.
func alignment[T comparable](old, new []T, deadline time.Time) []op {
	d := maxD(len(old), len(new))
	m := &myers[T]{
		old:      old,
		new:      new,
		vf:       newVector(d),
		vb:       newVector(d),
		deadline: deadline,
		rec:      &recorder{},
	}
	m.conquer(0, len(old), 0, len(new))
	return m.rec.finish()
}

func (m *myers[T]) expired() bool {
	return !m.deadline.IsZero() && time.Now().After(m.deadline)
}

func (m *myers[T]) conquer(oldStart, oldEnd, newStart, newEnd int) {
	prefix := commonPrefix(m.old[oldStart:oldEnd], m.new[newStart:newEnd])
	if prefix > 0 {
		m.rec.equal(oldStart, newStart, prefix)
	}
	oldStart += prefix
	newStart += prefix

	suffix := commonSuffix(m.old[oldStart:oldEnd], m.new[newStart:newEnd])
	oldEnd -= suffix
	newEnd -= suffix

	switch {
	case oldStart == oldEnd && newStart == newEnd:
	case newStart == newEnd:
		m.rec.delete(oldStart, oldEnd-oldStart, newStart)
	case oldStart == oldEnd:
		m.rec.insert(oldStart, newStart, newEnd-newStart)
	default:
		x, y, ok := m.middleSnake(oldStart, oldEnd, newStart, newEnd)
		if ok && splits(x, y, oldStart, oldEnd, newStart, newEnd) {
			m.conquer(oldStart, x, newStart, y)
			m.conquer(x, oldEnd, y, newEnd)
		} else {
			m.rec.delete(oldStart, oldEnd-oldStart, newStart)
			m.rec.insert(oldStart, newStart, newEnd-newStart)
		}
	}

	if suffix > 0 {
		m.rec.equal(oldEnd, newEnd, suffix)
	}
}

// splits reports whether (x, y) lies inside the box and is not one of its
// corners, so that both halves are strictly smaller than the whole.
func splits(x, y, oldStart, oldEnd, newStart, newEnd int) bool {
	if x < oldStart || x > oldEnd || y < newStart || y > newEnd {
		return false
	}
	if x == oldStart && y == newStart {
		return false
	}
	return !(x == oldEnd && y == newEnd)
}

// middleSnake searches forward from the top-left and backward from the
// bottom-right corner of the box until the two paths overlap, returning the
// absolute start of the overlapping snake.
func (m *myers[T]) middleSnake(oldStart, oldEnd, newStart, newEnd int) (int, int, bool) {
	n := oldEnd - oldStart
	mm := newEnd - newStart
	delta := n - mm
	odd := delta&1 == 1

	m.vf.set(1, 0)
	m.vb.set(1, 0)

	for d := 0; d < maxD(n, mm); d++ {
		if m.expired() {
			break
		}

		for k := d; k >= -d; k -= 2 {
			var x int
			if k == -d || (k != d && m.vf.get(k-1) < m.vf.get(k+1)) {
				x = m.vf.get(k + 1)
			} else {
				x = m.vf.get(k-1) + 1
			}
			y := x - k
			x0, y0 := x, y
			if x < n && y >= 0 && y < mm {
				x += commonPrefix(m.old[oldStart+x:oldEnd], m.new[newStart+y:newEnd])
			}
			m.vf.set(k, x)

			if odd && abs(k-delta) <= d-1 && m.vf.get(k)+m.vb.get(-(k-delta)) >= n {
				return x0 + oldStart, y0 + newStart, true
			}
		}

		for k := d; k >= -d; k -= 2 {
			var x int
			if k == -d || (k != d && m.vb.get(k-1) < m.vb.get(k+1)) {
				x = m.vb.get(k + 1)
			} else {
				x = m.vb.get(k-1) + 1
			}
			y := x - k
			if x < n && y >= 0 && y < mm {
				s := commonSuffix(m.old[oldStart:oldStart+n-x], m.new[newStart:newStart+mm-y])
				x += s
				y += s
			}
			m.vb.set(k, x)

			if !odd && abs(k-delta) <= d && m.vb.get(k)+m.vf.get(-(k-delta)) >= n {
				return n - x + oldStart, mm - y + newStart, true
			}
		}
	}

	return 0, 0, false
}

func commonPrefix[T comparable](a, b []T) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

func commonSuffix[T comparable](a, b []T) int {
	n := min(len(a), len(b))
	for i := 1; i <= n; i++ {
		if a[len(a)-i] != b[len(b)-i] {
			return i - 1
		}
	}
	return n
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
