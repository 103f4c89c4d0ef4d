package corepg

import "testing"

func helloGrammar(t *testing.T) *Grammar {
	t.Helper()
	root := NewCtor("Root", []byte("HELLO"))
	g := NewGrammar("hello")
	if err := g.SetRoot(root); err != nil {
		t.Fatalf("SetRoot: %v", err)
	}
	if err := g.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return g
}

// Scenario 1 (spec.md §8): Root -> "HELLO" against a frozen stream
// already holding "HELLO WORLD" parses to offset 5.
func TestParseGrammarSimpleLiteral(t *testing.T) {
	g := helloGrammar(t)
	stream := NewStreamFromBytes([]byte("HELLO WORLD"))
	stream.Freeze()
	view := stream.View()

	r := NewResumable(func(h *Handle) (any, error) {
		return ParseGrammar(h, view, g, Location{})
	})
	r.Run()

	if !r.HasResult() {
		t.Fatalf("expected a result, err = %v", r.Err())
	}
	res := r.Result().(*ParseResult)
	if res.Offset != 5 {
		t.Fatalf("Offset = %d, want 5", res.Offset)
	}
}

// Scenario 2: feeding "HEL" then "LO" on an unfrozen stream makes the
// fiber yield after the partial literal and resume to the same final
// state as scenario 1.
func TestParseGrammarStreamingSuspend(t *testing.T) {
	g := helloGrammar(t)
	stream := NewStream()
	view := stream.View()

	r := NewResumable(func(h *Handle) (any, error) {
		return ParseGrammar(h, view, g, Location{})
	})

	_ = stream.Append([]byte("HEL"))
	r.Run()
	if r.Done() {
		t.Fatal("expected the fiber to yield: only 3 of 5 needed bytes are visible")
	}

	_ = stream.Append([]byte("LO"))
	r.Resume()
	if !r.HasResult() {
		t.Fatalf("expected completion after the second feed, err = %v", r.Err())
	}
	if res := r.Result().(*ParseResult); res.Offset != 5 {
		t.Fatalf("Offset = %d, want 5", res.Offset)
	}
}

// Scenario 3: Root -> "A" "X" | "B" "Y". "AX" and "BY" both parse;
// "AY" fails with a ParseError at the second literal.
func buildAXBYGrammar(t *testing.T) *Grammar {
	t.Helper()
	ax := NewSequence("AX", []Production{NewCtor("A", []byte("A")), NewCtor("X", []byte("X"))})
	by := NewSequence("BY", []Production{NewCtor("B", []byte("B")), NewCtor("Y", []byte("Y"))})
	root := NewLookAhead("Root", ax, by, 0)

	g := NewGrammar("altern")
	if err := g.SetRoot(root); err != nil {
		t.Fatalf("SetRoot: %v", err)
	}
	if err := g.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return g
}

func runToCompletion(t *testing.T, g *Grammar, input string) (*ParseResult, error) {
	t.Helper()
	stream := NewStreamFromBytes([]byte(input))
	stream.Freeze()
	view := stream.View()

	r := NewResumable(func(h *Handle) (any, error) {
		return ParseGrammar(h, view, g, Location{})
	})
	r.Run()
	if !r.Done() {
		t.Fatal("expected completion against a frozen, fully-populated stream")
	}
	if r.HasResult() {
		return r.Result().(*ParseResult), nil
	}
	return nil, r.Err()
}

func TestParseGrammarLL1AlternationMatches(t *testing.T) {
	g := buildAXBYGrammar(t)

	if res, err := runToCompletion(t, g, "AX"); err != nil || res.Offset != 2 {
		t.Fatalf("AX: res=%v err=%v", res, err)
	}
	if res, err := runToCompletion(t, g, "BY"); err != nil || res.Offset != 2 {
		t.Fatalf("BY: res=%v err=%v", res, err)
	}
}

func TestParseGrammarLL1AlternationMismatch(t *testing.T) {
	g := buildAXBYGrammar(t)

	_, err := runToCompletion(t, g, "AY")
	if err == nil {
		t.Fatal("expected a ParseError for \"AY\": look-ahead picks the A branch, then Y fails to match X")
	}
	e, ok := err.(*Error)
	if !ok || e.Kind != KindParseError {
		t.Fatalf("expected KindParseError, got %v", err)
	}
}
