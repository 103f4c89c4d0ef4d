package corepg

// Cursor is an iterator into a View, carrying the owning Stream and an
// absolute offset (spec.md §3's "Cursor / SafeIterator"). Unlike the
// C++ original's weak-reference chunk pointer, a Go Cursor simply
// re-resolves its chunk from the stream on each dereference — the
// stream is never concurrently mutated from another goroutine (see
// spec.md §5's single-producer invariant), so there is no dangling
// pointer to guard against, only expiry via trimming.
type Cursor struct {
	stream *Stream
	offset int64
}

// Offset returns the cursor's absolute stream offset.
func (c Cursor) Offset() int64 { return c.offset }

// IsValid reports whether the cursor's stream still exists and its
// offset has not been trimmed away.
func (c Cursor) IsValid() bool {
	return c.stream != nil && !c.stream.isExpired(c.offset)
}

// Deref returns the byte at the cursor's position. It fails with
// ExpiredView if the position has been trimmed, or is past the
// current end of stream.
func (c Cursor) Deref() (byte, error) {
	if c.stream == nil {
		return 0, newError(KindExpiredView, "cursor has no stream")
	}
	if c.stream.isExpired(c.offset) {
		return 0, newError(KindExpiredView, "cursor at offset %d has been trimmed away", c.offset)
	}
	b, ok := c.stream.byteAt(c.offset)
	if !ok {
		return 0, newError(KindExpiredView, "cursor at offset %d is past available data", c.offset)
	}
	return b, nil
}

// Advance returns a new Cursor n bytes further along the same stream.
// Arithmetic beyond bounds is legal to construct but dereferences to
// an error, matching spec.md §3's "Arithmetic beyond bounds yields an
// iterator that dereferences to an error."
func (c Cursor) Advance(n int64) Cursor {
	return Cursor{stream: c.stream, offset: c.offset + n}
}

// Equal compares two cursors. Cursors from distinct streams are never
// equal and comparing them is not an error here (Go equality is total);
// callers that need the C++ original's InvalidIterator behavior should
// use CompareStrict.
func (c Cursor) Equal(other Cursor) bool {
	return c.stream == other.stream && c.offset == other.offset
}

// CompareStrict compares two cursors from the same stream, returning
// -1, 0, or 1. It fails with InvalidIterator if the cursors belong to
// different chains (spec.md §3).
func (c Cursor) CompareStrict(other Cursor) (int, error) {
	if c.stream != other.stream {
		return 0, newError(KindInvalidIterator, "cannot compare cursors from distinct streams")
	}
	switch {
	case c.offset < other.offset:
		return -1, nil
	case c.offset > other.offset:
		return 1, nil
	default:
		return 0, nil
	}
}

// View is a half-open [begin, end?) interval over a Stream; end may be
// unset, meaning "up to current end-of-stream" (spec.md §3).
type View struct {
	stream *Stream
	begin  int64
	end    int64
	hasEnd bool
}

// IsValid reports whether the view's stream still exists and begin
// has not been trimmed away.
func (v *View) IsValid() bool {
	return v.stream != nil && !v.stream.isExpired(v.begin)
}

// Begin returns a Cursor at the view's start.
func (v *View) Begin() Cursor { return Cursor{stream: v.stream, offset: v.begin} }

// End returns a Cursor one past the view's last byte: either the
// bound end offset, or the stream's current end-of-stream offset if
// the view is open-ended.
func (v *View) End() Cursor {
	if v.hasEnd {
		return Cursor{stream: v.stream, offset: v.end}
	}
	return Cursor{stream: v.stream, offset: v.stream.endOffset()}
}

// Size returns the number of bytes currently visible through the
// view. For an open-ended view this tracks the stream's live end and
// so can grow as more data is appended.
func (v *View) Size() int64 {
	end := v.End().offset
	if end <= v.begin {
		return 0
	}
	return end - v.begin
}

// IsEmpty reports whether the view currently has zero visible bytes.
func (v *View) IsEmpty() bool { return v.Size() == 0 }

// Bytes copies out the bytes currently visible through the view. This
// is a convenience for small views (tests, literal matching); large
// zero-copy consumers should use FirstBlock/NextBlock instead.
func (v *View) Bytes() []byte {
	n := v.Size()
	if n == 0 {
		return nil
	}
	out := make([]byte, 0, n)
	end := v.begin + n
	for off := v.begin; off < end; off++ {
		b, ok := v.stream.byteAt(off)
		if !ok {
			break
		}
		out = append(out, b)
	}
	return out
}

// Sub returns a sub-view [begin, end) of the current view, both
// absolute offsets within the parent's range.
func (v *View) Sub(begin, end int64) *View {
	return &View{stream: v.stream, begin: begin, end: end, hasEnd: true}
}

// SubFrom returns a sub-view [offsetTo, end-of-view).
func (v *View) SubFrom(offsetTo int64) *View {
	if v.hasEnd {
		return &View{stream: v.stream, begin: offsetTo, end: v.end, hasEnd: true}
	}
	return &View{stream: v.stream, begin: offsetTo, hasEnd: false}
}

// StartsWith reports whether the view begins with the given bytes.
func (v *View) StartsWith(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	if int64(len(b)) > v.Size() {
		return false
	}
	for i, want := range b {
		got, ok := v.stream.byteAt(v.begin + int64(i))
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Find searches for needle starting at start (or the view's begin, if
// start is the zero Cursor). It returns (true, position-of-match) on
// success. On failure it returns (false, position) where position is
// the earliest offset at which a *partial* prefix of needle begins, so
// a resumed parser (after more data arrives) need not rescan from
// start — matching spec.md §4.2.
func (v *View) Find(needle []byte, start Cursor) (bool, Cursor) {
	if len(needle) == 0 {
		return true, start.orDefault(v.Begin())
	}

	begin := start.orDefault(v.Begin()).offset
	end := v.End().offset

	partialAt := int64(-1)
	for pos := begin; pos < end; pos++ {
		matched := 0
		for matched < len(needle) && pos+int64(matched) < end {
			b, ok := v.stream.byteAt(pos + int64(matched))
			if !ok || b != needle[matched] {
				break
			}
			matched++
		}
		if matched == len(needle) {
			return true, Cursor{stream: v.stream, offset: pos}
		}
		if matched > 0 && partialAt < 0 {
			partialAt = pos
		}
	}

	if partialAt < 0 {
		partialAt = end
	}
	return false, Cursor{stream: v.stream, offset: partialAt}
}

// orDefault returns c if it has a stream set, otherwise def. It lets
// Find accept a zero-value Cursor to mean "search from the view's
// begin."
func (c Cursor) orDefault(def Cursor) Cursor {
	if c.stream == nil {
		return def
	}
	return c
}

// Block exposes one contiguous chunk of a view's underlying storage
// for zero-copy consumers, per spec.md §6's "sole contract that
// generated code depends on for zero-copy reads."
type Block struct {
	Data     []byte
	Offset   int64
	IsFirst  bool
	IsLast   bool
	nextSeek *chunk
}

// FirstBlock returns the first underlying chunk visible through the
// view, or (Block{}, false) if the view is empty.
func (v *View) FirstBlock() (Block, bool) {
	if v.IsEmpty() {
		return Block{}, false
	}
	c := v.stream.chunkAt(v.begin)
	if c == nil {
		return Block{}, false
	}
	return v.blockFromChunk(c, v.begin), true
}

// NextBlock returns the chunk following the one behind cur, or
// (Block{}, false) if cur was the view's last block.
func (v *View) NextBlock(cur Block) (Block, bool) {
	if cur.IsLast || cur.nextSeek == nil {
		return Block{}, false
	}
	return v.blockFromChunk(cur.nextSeek, cur.nextSeek.offset), true
}

func (v *View) blockFromChunk(c *chunk, from int64) Block {
	endOff := v.End().offset
	data := c.data[from-c.offset:]
	isLast := c.next == nil || endOff <= c.end()
	if isLast && endOff < c.end() {
		data = c.data[from-c.offset : endOff-c.offset]
	}

	b := Block{
		Data:    data,
		Offset:  from,
		IsFirst: from == v.begin,
		IsLast:  isLast,
	}
	if !isLast {
		b.nextSeek = c.next
	}
	return b
}
