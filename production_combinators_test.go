package corepg

import "testing"

func TestSequenceProduction(t *testing.T) {
	tag := NewVariable("tag", VarInteger, nil)
	magic := NewCtor("magic", []byte("GI"))
	seq := NewSequence("header", []Production{magic, tag})

	if seq.IsNullable() {
		t.Fatal("a sequence with a non-nullable item must not be nullable")
	}
	if seq.IsEodOk() {
		t.Fatal("a non-empty sequence is not eod-ok")
	}
	if _, ok := seq.BytesConsumed(); ok {
		t.Fatal("sequence containing a Variable has unknown width")
	}
}

func TestEmptySequenceIsNullable(t *testing.T) {
	seq := NewSequence("empty", nil)
	if !seq.IsNullable() {
		t.Fatal("an empty sequence must be nullable")
	}
	if !seq.IsEodOk() {
		t.Fatal("an empty sequence must be eod-ok")
	}
	n, ok := seq.BytesConsumed()
	if !ok || n != 0 {
		t.Fatalf("BytesConsumed() = %d,%v want 0,true", n, ok)
	}
}

func TestSequenceBytesConsumedSumsFixedWidthItems(t *testing.T) {
	a := NewCtor("a", []byte("AB"))
	b := NewCtor("b", []byte("CDE"))
	seq := NewSequence("ab", []Production{a, b})
	n, ok := seq.BytesConsumed()
	if !ok || n != 5 {
		t.Fatalf("BytesConsumed() = %d,%v want 5,true", n, ok)
	}
}

func TestLookAheadProduction(t *testing.T) {
	alt0 := NewCtor("yes", []byte("Y"))
	alt1 := NewEpsilon("no")
	la := NewLookAhead("choice", alt0, alt1, 2)

	if !la.IsEodOk() {
		t.Fatal("expected eod-ok since alt1 (epsilon) is eod-ok")
	}
	if !la.IsNullable() {
		t.Fatal("expected nullable since alt1 (epsilon) is nullable")
	}
	if got := la.DefaultAlternative(); got != 2 {
		t.Fatalf("DefaultAlternative() = %d, want 2", got)
	}
	a0, a1 := la.Alternatives()
	if a0 != alt0 || a1 != alt1 {
		t.Fatal("Alternatives() did not return the original branches")
	}

	la.SetLookAheads([]Production{alt0}, []Production{alt1})
	t0, t1 := la.LookAheads()
	if len(t0) != 1 || len(t1) != 1 {
		t.Fatal("LookAheads() did not round-trip SetLookAheads")
	}
}

func TestSwitchProduction(t *testing.T) {
	caseA := NewCtor("a", []byte("A"))
	caseB := NewCtor("b", []byte("B"))
	def := NewEpsilon("default")
	sw := NewSwitch("choice", &Expr{Label: "self.kind"}, []string{"1", "2"}, []Production{caseA, caseB}, def)

	if !sw.IsEodOk() {
		t.Fatal("expected eod-ok since default (epsilon) is eod-ok")
	}
	if len(sw.RHSs()) != 3 {
		t.Fatalf("RHSs() len = %d, want 3 (2 cases + default)", len(sw.RHSs()))
	}
	if _, ok := sw.BytesConsumed(); ok {
		t.Fatal("Switch width is never statically known")
	}
}

func TestSwitchProductionNoDefaultNotEodOk(t *testing.T) {
	caseA := NewCtor("a", []byte("A"))
	sw := NewSwitch("choice", &Expr{Label: "self.kind"}, []string{"1"}, []Production{caseA}, nil)
	if sw.IsEodOk() {
		t.Fatal("expected not eod-ok: no default, and the only case consumes bytes")
	}
	if len(sw.RHSs()) != 1 {
		t.Fatalf("RHSs() len = %d, want 1 (no default)", len(sw.RHSs()))
	}
}

func TestBlockProductionUnconditional(t *testing.T) {
	items := []Production{NewCtor("a", []byte("A")), NewCtor("b", []byte("B"))}
	blk := NewBlock("both", items, nil, nil)

	if blk.IsEodOk() {
		t.Fatal("a non-empty block is not eod-ok")
	}
	n, ok := blk.BytesConsumed()
	if !ok || n != 2 {
		t.Fatalf("BytesConsumed() = %d,%v want 2,true", n, ok)
	}
	if len(blk.RHSs()) != 1 {
		t.Fatalf("RHSs() len = %d, want 1 (unconditional)", len(blk.RHSs()))
	}
}

func TestBlockProductionConditional(t *testing.T) {
	items := []Production{NewCtor("a", []byte("A"))}
	elseItems := []Production{NewEpsilon("else")}
	blk := NewBlock("maybe", items, &Expr{Label: "self.flag"}, elseItems)

	if _, ok := blk.BytesConsumed(); ok {
		t.Fatal("a conditional block's width is never statically known")
	}
	if len(blk.RHSs()) != 2 {
		t.Fatalf("RHSs() len = %d, want 2 (then/else)", len(blk.RHSs()))
	}
}
