package corepg

import "testing"

func TestStreamAppendAndSize(t *testing.T) {
	s := NewStream()
	if err := s.Append([]byte("hello")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append([]byte(" world")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got, want := s.Size(), int64(len("hello world")); got != want {
		t.Fatalf("Size() = %d, want %d", got, want)
	}
	// Small appends below the coalescing threshold merge into one chunk.
	if got := s.NumberOfChunks(); got != 1 {
		t.Fatalf("NumberOfChunks() = %d, want 1", got)
	}
}

func TestStreamCoalescingThreshold(t *testing.T) {
	s := NewStreamWithConfig(NewConfig(WithSmallBufferSize(4)))
	_ = s.Append([]byte("ab"))
	_ = s.Append([]byte("cd"))
	_ = s.Append([]byte("ef")) // pushes combined size past 4, new chunk
	if got := s.NumberOfChunks(); got != 2 {
		t.Fatalf("NumberOfChunks() = %d, want 2", got)
	}
}

func TestStreamAppendAfterFreezeFails(t *testing.T) {
	s := NewStream()
	s.Freeze()
	if err := s.Append([]byte("x")); err == nil {
		t.Fatal("expected error appending to frozen stream")
	} else if e, ok := err.(*Error); !ok || e.Kind != KindFrozen {
		t.Fatalf("expected KindFrozen, got %v", err)
	}
}

func TestStreamFreezeIdempotent(t *testing.T) {
	s := NewStreamFromBytes([]byte("abc"))
	s.Freeze()
	s.Freeze()
	if !s.IsFrozen() {
		t.Fatal("expected stream to remain frozen")
	}
}

func TestStreamTrim(t *testing.T) {
	s := NewStreamFromBytes([]byte("abcdefgh"))
	s.Trim(3)
	if got := s.HeadOffset(); got != 3 {
		t.Fatalf("HeadOffset() = %d, want 3", got)
	}
	if got := s.Size(); got != 5 {
		t.Fatalf("Size() = %d, want 5", got)
	}

	cur := s.Cursor(1)
	if _, err := cur.Deref(); err == nil {
		t.Fatal("expected ExpiredView for trimmed offset")
	}

	cur2 := s.Cursor(3)
	b, err := cur2.Deref()
	if err != nil {
		t.Fatalf("Deref: %v", err)
	}
	if b != 'd' {
		t.Fatalf("Deref() = %q, want 'd'", b)
	}
}

func TestStreamTrimEntireChain(t *testing.T) {
	s := NewStreamFromBytes([]byte("abc"))
	s.Trim(3)
	if got := s.Size(); got != 0 {
		t.Fatalf("Size() = %d, want 0", got)
	}
	if got := s.HeadOffset(); got != 3 {
		t.Fatalf("HeadOffset() = %d, want 3", got)
	}
	// Appending after trimming to the end keeps absolute offsets
	// monotonic rather than resetting to 0.
	_ = s.Append([]byte("d"))
	if got := s.endOffset(); got != 4 {
		t.Fatalf("endOffset() = %d, want 4", got)
	}
}
