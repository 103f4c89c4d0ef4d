package corepg

import "fmt"

// ParseResult is what a grammar-driven parse returns once it completes
// without error: the absolute stream offset the cursor reached.
type ParseResult struct {
	Offset int64
}

// ParseGrammar drives g's finalized root production against v,
// suspending fiber h on WaitForInput/WaitForInputOrEod whenever more
// bytes are needed than v currently makes visible, per spec.md §4.8.
// It is the primitive Sink.ConnectGrammar uses to give each connected
// consumer a real parsing fiber (spec.md §4.7) instead of an opaque
// byte-delivery callback.
//
// This is a deliberately small interpreter, not a code generator: it
// covers the terminal and combinator shapes needed to drive a literal
// grammar end to end (Epsilon, Ctor, Sequence, LookAhead choosing
// between two literal-led alternatives) rather than the full
// production graph a generated unit parser would handle for
// containers, switches, and nested units — that generated-parser
// surface is out of scope per SPEC_FULL.md §1.
func ParseGrammar(h *Handle, v *View, g *Grammar, loc Location) (*ParseResult, error) {
	if !g.Finalized() {
		return nil, newError(KindGrammarError, "cannot parse with an unfinalized grammar")
	}
	end, err := driveProduction(h, v, v.begin, g.Root(), loc)
	if err != nil {
		return nil, err
	}
	return &ParseResult{Offset: end}, nil
}

// driveProduction parses p against v starting at the absolute offset
// pos, returning the offset just past what it consumed.
func driveProduction(h *Handle, v *View, pos int64, p Production, loc Location) (int64, error) {
	switch prod := p.follow().(type) {
	case *EpsilonProduction:
		return pos, nil

	case *CtorProduction:
		value := prod.Value()
		rest := v.SubFrom(pos)
		// Compared byte by byte, waiting for one more byte at a time,
		// rather than the whole literal up front: a mismatch on an
		// early byte is then a ParseError as soon as that byte arrives,
		// instead of only once the full literal's length has arrived
		// (or the stream has frozen short of it).
		for i, want := range value {
			if err := rest.WaitForInput(h, int64(i)+1, fmt.Sprintf("expecting %q", value), loc); err != nil {
				return pos, err
			}
			got, err := rest.Begin().Advance(int64(i)).Deref()
			if err != nil {
				return pos, err
			}
			if got != want {
				return pos, parseErrorf(loc, "literal mismatch: expected %q at offset %d", value, pos)
			}
		}
		return pos + int64(len(value)), nil

	case *SequenceProduction:
		for _, item := range prod.items {
			next, err := driveProduction(h, v, pos, item, loc)
			if err != nil {
				return pos, err
			}
			pos = next
		}
		return pos, nil

	case *LookAheadProduction:
		return driveLookAhead(h, v, pos, prod, loc)

	default:
		return pos, parseErrorf(loc, "production %q (%T) is not supported by this runtime driver", p.Symbol(), p)
	}
}

// driveLookAhead resolves a LookAheadProduction's two alternatives by
// peeking one byte and comparing it against each alternative's leading
// literal, per spec.md §4.6's look-ahead selection. At end of data it
// takes the first alternative that is eod-ok; when the peeked byte
// matches neither alternative's leading literal it takes the
// alternative DefaultAlternative names. If neither applies, it raises
// a ParseError. Grammar.Finalize does not check that a default exists.
func driveLookAhead(h *Handle, v *View, pos int64, prod *LookAheadProduction, loc Location) (int64, error) {
	rest := v.SubFrom(pos)
	if !rest.WaitForInputOrEod(h, 1) {
		switch {
		case prod.alt0.follow().IsEodOk():
			return driveProduction(h, v, pos, prod.alt0, loc)
		case prod.alt1.follow().IsEodOk():
			return driveProduction(h, v, pos, prod.alt1, loc)
		default:
			return pos, parseErrorf(loc, "unexpected end of data choosing between %q and %q",
				prod.alt0.follow().Symbol(), prod.alt1.follow().Symbol())
		}
	}

	peek := rest.Bytes()[0]
	b0, ok0 := firstLiteralByte(prod.alt0)
	b1, ok1 := firstLiteralByte(prod.alt1)

	switch {
	case ok0 && peek == b0:
		return driveProduction(h, v, pos, prod.alt0, loc)
	case ok1 && peek == b1:
		return driveProduction(h, v, pos, prod.alt1, loc)
	case prod.DefaultAlternative() == 1:
		return driveProduction(h, v, pos, prod.alt0, loc)
	case prod.DefaultAlternative() == 2:
		return driveProduction(h, v, pos, prod.alt1, loc)
	default:
		return pos, parseErrorf(loc, "no alternative of %q matches byte 0x%02x at offset %d", prod.Symbol(), peek, pos)
	}
}

// firstLiteralByte returns the first byte a production would match,
// resolving through a non-empty Ctor or a Sequence's first item, or
// (0, false) if p doesn't lead with a statically known literal.
func firstLiteralByte(p Production) (byte, bool) {
	switch prod := p.follow().(type) {
	case *CtorProduction:
		if len(prod.Value()) == 0 {
			return 0, false
		}
		return prod.Value()[0], true
	case *SequenceProduction:
		if len(prod.items) == 0 {
			return 0, false
		}
		return firstLiteralByte(prod.items[0])
	default:
		return 0, false
	}
}
