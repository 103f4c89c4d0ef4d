// Package corepg implements the parser-generation core shared by
// HILTI-style intermediate representations and Spicy-style protocol
// grammars: an append-only byte Stream, a bounded View/Cursor over it,
// cooperative Fiber suspension for "need more input", a Production
// graph with a Grammar that computes LL(1) tables, a GrammarBuilder
// translating a resolved unit description into that graph, and a Sink
// that reassembles arbitrary-offset writes for connected parsers.
//
// The package intentionally stops at the parser-generation core: code
// generation to a target host language, the surface Spicy parser, and
// build tooling are out of scope (see SPEC_FULL.md §1).
package corepg

import "fmt"

// smallBufferSize is the default inline-buffer threshold used when
// coalescing small appends into a single chunk. It is a Config field
// (see config.go), not a hard-coded constant, so hosts can tune it.
const smallBufferSize = 128

// chunk is one contiguous byte span inside a Stream's chain. offset is
// absolute from the stream's logical origin and is never renumbered,
// even after trim — trimming changes which offsets remain reachable,
// not their numbering (spec.md §4.1).
type chunk struct {
	data   []byte
	offset int64
	next   *chunk
	frozen bool
}

func (c *chunk) size() int64 { return int64(len(c.data)) }
func (c *chunk) end() int64  { return c.offset + c.size() }

// Stream is a finite, ordered sequence of bytes represented as a
// singly-linked chain of chunks, per spec.md §3. It is owned by a
// single producer; Views are lightweight, shareable read handles.
type Stream struct {
	head   *chunk
	tail   *chunk
	frozen bool

	// smallBufferSize mirrors Config.SmallBufferSize at construction
	// time; see NewStream.
	smallBufferSize int
}

// NewStream returns an empty, unfrozen Stream using the default
// small-buffer coalescing threshold.
func NewStream() *Stream {
	return &Stream{smallBufferSize: smallBufferSize}
}

// NewStreamWithConfig returns an empty, unfrozen Stream whose
// coalescing threshold is taken from cfg.
func NewStreamWithConfig(cfg Config) *Stream {
	s := &Stream{smallBufferSize: cfg.SmallBufferSize}
	if s.smallBufferSize <= 0 {
		s.smallBufferSize = smallBufferSize
	}
	return s
}

// NewStreamFromBytes returns a Stream pre-populated with data, still
// unfrozen.
func NewStreamFromBytes(data []byte) *Stream {
	s := NewStream()
	_ = s.Append(data)
	return s
}

// IsFrozen reports whether the stream has been frozen via Freeze.
func (s *Stream) IsFrozen() bool { return s.frozen }

// Size returns the total number of live bytes in the stream (from the
// earliest non-trimmed chunk to the current end).
func (s *Stream) Size() int64 {
	var n int64
	for c := s.head; c != nil; c = c.next {
		n += c.size()
	}
	return n
}

// NumberOfChunks returns the number of chunks currently in the chain.
func (s *Stream) NumberOfChunks() int {
	n := 0
	for c := s.head; c != nil; c = c.next {
		n++
	}
	return n
}

// HeadOffset returns the absolute offset of the first live byte, or
// the stream's current end offset if the stream is empty.
func (s *Stream) HeadOffset() int64 {
	if s.head != nil {
		return s.head.offset
	}
	return s.endOffset()
}

// endOffset returns the absolute offset one past the last live byte.
func (s *Stream) endOffset() int64 {
	if s.tail != nil {
		return s.tail.end()
	}
	return 0
}

// Append adds data to the end of the stream. Adjacent small chunks are
// coalesced into a single inline buffer up to smallBufferSize, per the
// coalescing policy in spec.md §4.1. Append fails with a Frozen error
// once the stream has been frozen.
func (s *Stream) Append(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if s.frozen {
		return newError(KindFrozen, "cannot append to a frozen stream")
	}

	if s.tail != nil && !s.tail.frozen && len(s.tail.data)+len(data) <= s.smallBufferSize {
		s.tail.data = append(s.tail.data, data...)
		return nil
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	nc := &chunk{data: buf, offset: s.endOffset()}
	if s.tail == nil {
		s.head = nc
		s.tail = nc
	} else {
		s.tail.next = nc
		s.tail = nc
	}
	return nil
}

// AppendView appends the bytes visible through v. It is a convenience
// wrapper around Append(v.Bytes()).
func (s *Stream) AppendView(v *View) error {
	return s.Append(v.Bytes())
}

// Trim discards everything strictly before position. Cursors that
// referred to trimmed bytes subsequently dereference to ExpiredView
// (spec.md §3 invariant (c)).
func (s *Stream) Trim(position int64) {
	for s.head != nil && s.head.end() <= position {
		if s.head == s.tail {
			// Keep an empty placeholder chunk so the chain's
			// offset bookkeeping survives trimming everything.
			s.head = &chunk{offset: position}
			s.tail = s.head
			return
		}
		s.head = s.head.next
	}

	if s.head != nil && s.head.offset < position && position < s.head.end() {
		cut := position - s.head.offset
		s.head.data = s.head.data[cut:]
		s.head.offset = position
	}
}

// Freeze marks the stream as frozen: no further bytes may be appended.
// Freeze is idempotent (spec.md §8).
func (s *Stream) Freeze() {
	s.frozen = true
	for c := s.head; c != nil; c = c.next {
		c.frozen = true
	}
}

// Unfreeze clears the frozen flag, re-enabling Append.
func (s *Stream) Unfreeze() {
	s.frozen = false
	for c := s.head; c != nil; c = c.next {
		c.frozen = false
	}
}

// View returns a View over the stream's entire live range, with an
// open (unbound) end tracking current end-of-stream.
func (s *Stream) View() *View {
	return &View{
		stream: s,
		begin:  s.HeadOffset(),
		hasEnd: false,
	}
}

// ViewAt returns a bounded View over [begin, end).
func (s *Stream) ViewAt(begin, end int64) *View {
	return &View{stream: s, begin: begin, end: end, hasEnd: true}
}

// Cursor returns a Cursor positioned at the given absolute offset.
func (s *Stream) Cursor(offset int64) Cursor {
	return Cursor{stream: s, offset: offset}
}

func (s *Stream) String() string {
	return fmt.Sprintf("Stream(size=%d, chunks=%d, frozen=%v)", s.Size(), s.NumberOfChunks(), s.frozen)
}

// chunkAt returns the chunk containing offset, or nil if offset falls
// outside any live chunk (trimmed away, or past end-of-stream).
func (s *Stream) chunkAt(offset int64) *chunk {
	for c := s.head; c != nil; c = c.next {
		if offset >= c.offset && offset < c.end() {
			return c
		}
	}
	return nil
}

// byteAt returns the byte at offset and true, or (0, false) if offset
// is not currently live.
func (s *Stream) byteAt(offset int64) (byte, bool) {
	c := s.chunkAt(offset)
	if c == nil {
		return 0, false
	}
	return c.data[offset-c.offset], true
}

// isExpired reports whether offset has been trimmed away: it is
// earlier than the current head offset.
func (s *Stream) isExpired(offset int64) bool {
	return offset < s.HeadOffset()
}
