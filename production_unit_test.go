package corepg

import "testing"

func TestUnitProductionUnresolved(t *testing.T) {
	p := NewUnit("ref", "Record", nil)
	if p.UnitSymbol() != "Record" {
		t.Fatalf("UnitSymbol() = %q, want Record", p.UnitSymbol())
	}
	if p.IsNullable() || p.IsEodOk() {
		t.Fatal("an unresolved Unit reference must report false for both")
	}
	if p.RHSs() != nil {
		t.Fatal("an unresolved Unit reference has no RHSs")
	}
	if _, ok := p.BytesConsumed(); ok {
		t.Fatal("an unresolved Unit reference's width is unknown")
	}
}

func TestUnitProductionResolved(t *testing.T) {
	root := NewCtor("body", []byte("AB"))
	p := NewUnit("ref", "Record", nil)
	p.SetRoot(root)

	if p.IsNullable() {
		t.Fatal("expected not nullable: body is a non-empty Ctor")
	}
	n, ok := p.BytesConsumed()
	if !ok || n != 2 {
		t.Fatalf("BytesConsumed() = %d,%v want 2,true", n, ok)
	}
	if len(p.RHSs()) != 1 {
		t.Fatalf("RHSs() len = %d, want 1", len(p.RHSs()))
	}
}

func TestEnclosureProductionIsTransparent(t *testing.T) {
	body := NewCtor("magic", []byte("GIF8"))
	p := NewEnclosure("sync", body)

	if p.Body() != body {
		t.Fatal("Body() did not return the wrapped production")
	}
	if p.IsNullable() {
		t.Fatal("Enclosure must defer IsNullable to its body")
	}
	n, ok := p.BytesConsumed()
	if !ok || n != 4 {
		t.Fatalf("BytesConsumed() = %d,%v want 4,true (deferred to body)", n, ok)
	}
}

func TestSkipProductionKnownWidth(t *testing.T) {
	p := NewSkip("pad", 4, true)
	if p.IsNullable() {
		t.Fatal("a 4-byte skip is not nullable")
	}
	if p.IsEodOk() {
		t.Fatal("a known-width skip cannot match at eod")
	}
	n, ok := p.BytesConsumed()
	if !ok || n != 4 {
		t.Fatalf("BytesConsumed() = %d,%v want 4,true", n, ok)
	}
}

func TestSkipProductionZeroWidthIsNullable(t *testing.T) {
	p := NewSkip("noop", 0, true)
	if !p.IsNullable() {
		t.Fatal("a zero-width known skip must be nullable")
	}
}

func TestSkipProductionUnknownWidth(t *testing.T) {
	p := NewSkip("rest", 0, false)
	if !p.IsEodOk() {
		t.Fatal("an unknown-width skip (skip-to-eod) must be eod-ok")
	}
	if _, ok := p.BytesConsumed(); ok {
		t.Fatal("an unknown-width skip has no static BytesConsumed")
	}
}
