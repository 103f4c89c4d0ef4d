package corepg

import (
	"bytes"
	"testing"
)

func TestViewBytesAndStartsWith(t *testing.T) {
	s := NewStreamFromBytes([]byte("the quick brown fox"))
	v := s.View()

	if got := v.Size(); got != 19 {
		t.Fatalf("Size() = %d, want 19", got)
	}
	if !v.StartsWith([]byte("the quick")) {
		t.Fatal("expected view to start with prefix")
	}
	if v.StartsWith([]byte("quick")) {
		t.Fatal("did not expect view to start with non-prefix")
	}
	if !bytes.Equal(v.Bytes(), []byte("the quick brown fox")) {
		t.Fatalf("Bytes() = %q", v.Bytes())
	}
}

func TestViewSubAndSubFrom(t *testing.T) {
	s := NewStreamFromBytes([]byte("0123456789"))
	v := s.View()

	sub := v.Sub(2, 5)
	if !bytes.Equal(sub.Bytes(), []byte("234")) {
		t.Fatalf("Sub Bytes() = %q", sub.Bytes())
	}

	tail := v.SubFrom(7)
	if !bytes.Equal(tail.Bytes(), []byte("789")) {
		t.Fatalf("SubFrom Bytes() = %q", tail.Bytes())
	}
}

func TestViewFindMatch(t *testing.T) {
	s := NewStreamFromBytes([]byte("abcXYZdef"))
	v := s.View()

	found, cur := v.Find([]byte("XYZ"), Cursor{})
	if !found {
		t.Fatal("expected to find needle")
	}
	if cur.Offset() != 3 {
		t.Fatalf("match offset = %d, want 3", cur.Offset())
	}
}

func TestViewFindPartialPrefixOnFailure(t *testing.T) {
	s := NewStreamFromBytes([]byte("aaXY"))
	v := s.View()

	found, cur := v.Find([]byte("XYZ"), Cursor{})
	if found {
		t.Fatal("expected no full match")
	}
	// "XY" at offset 2 is a partial prefix of "XYZ"; Find should report
	// that position rather than the scan's end, so a resumed search
	// doesn't have to rescan bytes it already ruled out.
	if cur.Offset() != 2 {
		t.Fatalf("partial-match offset = %d, want 2", cur.Offset())
	}
}

func TestViewOpenEndedGrowsWithAppend(t *testing.T) {
	s := NewStream()
	_ = s.Append([]byte("abc"))
	v := s.View()
	if got := v.Size(); got != 3 {
		t.Fatalf("Size() = %d, want 3", got)
	}
	_ = s.Append([]byte("def"))
	if got := v.Size(); got != 6 {
		t.Fatalf("Size() after append = %d, want 6", got)
	}
}

func TestViewBlockIteration(t *testing.T) {
	s := NewStreamWithConfig(NewConfig(WithSmallBufferSize(4)))
	_ = s.Append([]byte("AAAA"))
	_ = s.Append([]byte("BBBB"))
	v := s.View()

	blk, ok := v.FirstBlock()
	if !ok {
		t.Fatal("expected a first block")
	}
	if !blk.IsFirst {
		t.Fatal("expected IsFirst on first block")
	}
	if !bytes.Equal(blk.Data, []byte("AAAA")) {
		t.Fatalf("first block data = %q", blk.Data)
	}

	next, ok := v.NextBlock(blk)
	if !ok {
		t.Fatal("expected a second block")
	}
	if !next.IsLast {
		t.Fatal("expected IsLast on second block")
	}
	if !bytes.Equal(next.Data, []byte("BBBB")) {
		t.Fatalf("second block data = %q", next.Data)
	}

	if _, ok := v.NextBlock(next); ok {
		t.Fatal("did not expect a third block")
	}
}

func TestCursorCompareStrictCrossStream(t *testing.T) {
	s1 := NewStreamFromBytes([]byte("abc"))
	s2 := NewStreamFromBytes([]byte("abc"))

	_, err := s1.Cursor(0).CompareStrict(s2.Cursor(0))
	if err == nil {
		t.Fatal("expected InvalidIterator comparing cursors from distinct streams")
	}
	if e, ok := err.(*Error); !ok || e.Kind != KindInvalidIterator {
		t.Fatalf("expected KindInvalidIterator, got %v", err)
	}
}
