package corepg

import "testing"

type funcFilter func([]byte) ([]byte, error)

func (f funcFilter) Apply(data []byte) ([]byte, error) { return f(data) }

func u64(v uint64) *uint64 { return &v }

func TestSinkInOrderDelivery(t *testing.T) {
	s := NewSink(Config{})
	var gotSeq uint64
	var got []byte
	s.Connect(ConsumerHooks{OnData: func(seq uint64, data []byte) {
		gotSeq = seq
		got = append(got, data...)
	}})

	if err := s.Write([]byte("hello"), u64(0), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("delivered data = %q", got)
	}
	if gotSeq != 0 {
		t.Fatalf("delivered seq = %d, want 0", gotSeq)
	}
}

func TestSinkOutOfOrderReassembly(t *testing.T) {
	s := NewSink(Config{})
	var order []byte
	s.Connect(ConsumerHooks{OnData: func(seq uint64, data []byte) {
		order = append(order, data...)
	}})

	if err := s.Write([]byte("World"), u64(5), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(order) != 0 {
		t.Fatalf("expected no delivery before the gap is filled, got %q", order)
	}

	if err := s.Write([]byte("Hello"), u64(0), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if string(order) != "HelloWorld" {
		t.Fatalf("reassembled data = %q, want HelloWorld", order)
	}
}

func TestSinkGapReportedThenFilled(t *testing.T) {
	s := NewSink(Config{})
	var gaps []uint64
	var delivered []string
	s.Connect(ConsumerHooks{
		OnGap:  func(seq, length uint64) { gaps = append(gaps, seq) },
		OnData: func(seq uint64, data []byte) { delivered = append(delivered, string(data)) },
	})

	s.Gap(0, 5)
	if err := s.Write([]byte("World"), u64(5), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if len(gaps) != 1 || gaps[0] != 0 {
		t.Fatalf("gaps = %v, want [0]", gaps)
	}
	if len(delivered) != 1 || delivered[0] != "World" {
		t.Fatalf("delivered = %v, want [World]", delivered)
	}
}

func TestSinkOverlapKeepsFirstWrite(t *testing.T) {
	s := NewSink(Config{})
	var overlaps [][2]string
	var delivered []string
	s.Connect(ConsumerHooks{
		OnOverlap: func(seq uint64, oldData, newData []byte) {
			overlaps = append(overlaps, [2]string{string(oldData), string(newData)})
		},
		OnData: func(seq uint64, data []byte) { delivered = append(delivered, string(data)) },
	})

	// Buffered out of order, past the still-open gap at [0,10).
	if err := s.Write([]byte("WORLD"), u64(10), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// Overlaps [12,15) of the still-buffered WORLD chunk.
	if err := s.Write([]byte("XYZ"), u64(12), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(overlaps) != 1 {
		t.Fatalf("overlaps = %v, want exactly one report", overlaps)
	}
	if overlaps[0][0] != "RLD" || overlaps[0][1] != "XYZ" {
		t.Fatalf("overlap report = %v, want old=RLD new=XYZ", overlaps[0])
	}

	// Fill the gap; the first write's bytes must have been kept.
	if err := s.Write([]byte("0123456789"), u64(0), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := ""
	for _, d := range delivered {
		got += d
	}
	if got != "0123456789WORLD" {
		t.Fatalf("reassembled data = %q, want 0123456789WORLD (first write wins)", got)
	}
}

func TestSinkSkipReportsSkippedAndDeliversAfter(t *testing.T) {
	s := NewSink(Config{})
	var skipped []uint64
	var delivered []string
	s.Connect(ConsumerHooks{
		OnSkipped: func(seq uint64) { skipped = append(skipped, seq) },
		OnData:    func(seq uint64, data []byte) { delivered = append(delivered, string(data)) },
	})

	if err := s.Write([]byte("World"), u64(5), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	s.Skip(5)

	if len(skipped) != 1 || skipped[0] != 0 {
		t.Fatalf("skipped = %v, want [0]", skipped)
	}
	if len(delivered) != 1 || delivered[0] != "World" {
		t.Fatalf("delivered = %v, want [World]", delivered)
	}
}

func TestSinkTrimIsIdempotent(t *testing.T) {
	s := NewSink(Config{})
	s.Connect(ConsumerHooks{})

	if err := s.Write([]byte("Hello"), u64(0), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	s.Trim(3)
	s.Trim(1) // already trimmed past; must be a no-op, not a regression

	if s.Size() != 5 {
		t.Fatalf("Size() = %d, want 5", s.Size())
	}
}

func TestSinkCloseReportsUndeliveredAndFiresOnEOD(t *testing.T) {
	s := NewSink(Config{})
	var undelivered []string
	eodCalled := false
	s.Connect(ConsumerHooks{
		OnUndelivered: func(seq uint64, data []byte) { undelivered = append(undelivered, string(data)) },
		OnEOD:         func() { eodCalled = true },
	})

	if err := s.Write([]byte("Tail"), u64(10), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !eodCalled {
		t.Fatal("expected OnEOD to fire on Close")
	}
	if len(undelivered) != 1 || undelivered[0] != "Tail" {
		t.Fatalf("undelivered = %v, want [Tail]: it sat past a gap that was never filled", undelivered)
	}
	if s.State() != "Closed" {
		t.Fatalf("State() = %q, want Closed", s.State())
	}
}

func TestSinkWriteAfterCloseErrors(t *testing.T) {
	s := NewSink(Config{})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	err := s.Write([]byte("x"), nil, nil)
	if err == nil {
		t.Fatal("expected an error writing to a closed sink")
	}
	if e, ok := err.(*Error); !ok || e.Kind != KindSinkError {
		t.Fatalf("expected KindSinkError, got %v", err)
	}
}

func TestSinkCloseIsIdempotent(t *testing.T) {
	s := NewSink(Config{})
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestSinkSetInitialSequenceNumberBeforeActivity(t *testing.T) {
	s := NewSink(Config{})
	if err := s.SetInitialSequenceNumber(1000); err != nil {
		t.Fatalf("SetInitialSequenceNumber: %v", err)
	}
	if got := s.SequenceNumber(); got != 1000 {
		t.Fatalf("SequenceNumber() = %d, want 1000", got)
	}
}

func TestSinkSetInitialSequenceNumberErrorsAfterActivity(t *testing.T) {
	s := NewSink(Config{})
	s.Gap(0, 1)

	err := s.SetInitialSequenceNumber(100)
	if err == nil {
		t.Fatal("expected an error setting the initial sequence number after activity")
	}
	if e, ok := err.(*Error); !ok || e.Kind != KindSinkError {
		t.Fatalf("expected KindSinkError, got %v", err)
	}
}

func TestSinkConnectFilterRejectsAfterData(t *testing.T) {
	s := NewSink(Config{})
	if err := s.Write([]byte("x"), u64(0), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	err := s.ConnectFilter(funcFilter(func(d []byte) ([]byte, error) { return d, nil }))
	if err == nil {
		t.Fatal("expected an error connecting a filter after data has been forwarded")
	}
}

func TestSinkFilterChainAppliesInConnectionOrder(t *testing.T) {
	s := NewSink(Config{})
	upper := funcFilter(func(d []byte) ([]byte, error) {
		out := make([]byte, len(d))
		for i, c := range d {
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			out[i] = c
		}
		return out, nil
	})
	prefix := funcFilter(func(d []byte) ([]byte, error) {
		return append([]byte(">>"), d...), nil
	})
	if err := s.ConnectFilter(upper); err != nil {
		t.Fatalf("ConnectFilter: %v", err)
	}
	if err := s.ConnectFilter(prefix); err != nil {
		t.Fatalf("ConnectFilter: %v", err)
	}

	var got string
	s.Connect(ConsumerHooks{OnData: func(seq uint64, data []byte) { got = string(data) }})
	if err := s.Write([]byte("hi"), u64(0), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got != ">>HI" {
		t.Fatalf("filtered data = %q, want >>HI", got)
	}
}

func TestSinkConnectMIMEType(t *testing.T) {
	const mt = "application/x-corepg-test"
	connected := false
	RegisterMIMEHandler(mt, func() ConsumerHooks {
		return ConsumerHooks{OnData: func(seq uint64, data []byte) { connected = true }}
	})

	s := NewSink(Config{})
	ids := s.ConnectMIMEType(mt, 0)
	if len(ids) != 1 {
		t.Fatalf("ConnectMIMEType returned %d ids, want 1", len(ids))
	}

	if err := s.Write([]byte("x"), u64(0), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !connected {
		t.Fatal("expected the MIME-registered consumer's OnData to fire")
	}
}

func TestSinkDisconnectStopsDelivery(t *testing.T) {
	s := NewSink(Config{})
	calls := 0
	id := s.Connect(ConsumerHooks{OnData: func(seq uint64, data []byte) { calls++ }})
	s.Disconnect(id)

	if err := s.Write([]byte("x"), u64(0), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if calls != 0 {
		t.Fatalf("calls = %d, want 0 after Disconnect", calls)
	}
}

// Scenario 5 (spec.md §8): a consumer parsing Root -> "HELLO" attached
// via ConnectGrammar gets a real fiber-driven parse, not just a byte
// callback — out-of-order writes reassemble to "HELLO" and the parse
// completes with no gap ever reported.
func TestSinkConnectGrammarReassemblesAndParses(t *testing.T) {
	s := NewSink(Config{})
	_, r := s.ConnectGrammar(helloGrammar(t))

	if err := s.Write([]byte("LLO"), u64(2), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if r.Done() {
		t.Fatal("did not expect completion before the gap at [0,2) is filled")
	}
	if err := s.Write([]byte("HE"), u64(0), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if !r.HasResult() {
		t.Fatalf("expected the parse to complete successfully, err = %v", r.Err())
	}
	if res := r.Result().(*ParseResult); res.Offset != 5 {
		t.Fatalf("Offset = %d, want 5", res.Offset)
	}
}

// Scenario 6: the same grammar, but a gap that's skipped over rather
// than filled reassembles to "HELO" — one byte short of "HELLO" — and
// the consumer's fiber raises a literal-mismatch ParseError instead of
// completing.
func TestSinkConnectGrammarSkipProducesParseError(t *testing.T) {
	s := NewSink(Config{})
	var gaps []uint64
	s.Connect(ConsumerHooks{OnGap: func(seq, length uint64) { gaps = append(gaps, seq) }})
	_, r := s.ConnectGrammar(helloGrammar(t))

	if err := s.Write([]byte("HE"), u64(0), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write([]byte("LO"), u64(3), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(gaps) != 1 || gaps[0] != 2 {
		t.Fatalf("gaps = %v, want [2]", gaps)
	}
	if r.Done() {
		t.Fatal("did not expect completion: the bytes past the gap are still unreachable")
	}

	s.Skip(3)
	if !r.Done() {
		t.Fatal("expected the skip to unstick delivery and let the fiber observe the mismatch")
	}
	if r.HasResult() {
		t.Fatal("expected a ParseError: \"HELO\" mismatches \"HELLO\" at its fourth byte")
	}
	e, ok := r.Err().(*Error)
	if !ok || e.Kind != KindParseError {
		t.Fatalf("expected KindParseError, got %v", r.Err())
	}
}

func TestSinkStateTransitions(t *testing.T) {
	s := NewSink(Config{})
	if s.State() != "New" {
		t.Fatalf("State() = %q, want New", s.State())
	}
	s.Connect(ConsumerHooks{})
	if s.State() != "Active" {
		t.Fatalf("State() = %q, want Active", s.State())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.State() != "Closed" {
		t.Fatalf("State() = %q, want Closed", s.State())
	}
}
