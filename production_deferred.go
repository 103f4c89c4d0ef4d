package corepg

import "fmt"

// DeferredProduction is a placeholder standing in for a production
// that isn't known yet at the point it must be referenced — the
// recursive-unit and forward-reference case spec.md §4.4/§9 calls out:
// "a unit's grammar may need to reference itself, or a unit declared
// later in the same file, before that grammar exists." GrammarBuilder
// allocates one per pending reference, then calls Resolve once the
// real production is built.
//
// IsTerminal, IsNullable, IsEodOk, RHSs and BytesConsumed panic if
// called before Resolve; Symbol, Meta, String and follow do not. That
// mirrors the source's assertion that a
// Deferred must never be queried for grammar shape while still
// unresolved; Grammar.Finalize only visits Deferred nodes after the
// builder has fully resolved them.
type DeferredProduction struct {
	symbol   string
	resolved Production
	meta     *Meta
}

// NewDeferred returns an unresolved Deferred placeholder with the
// given symbol.
func NewDeferred(symbol string) *DeferredProduction {
	return &DeferredProduction{symbol: symbol, meta: &Meta{}}
}

// Resolve binds the placeholder to its real production. Field and
// container bookkeeping set on the Deferred before resolution is
// copied onto the target's Meta wherever the target has none of its
// own, so it is not lost and is visible via the resolved production's
// Meta; values the target already has are kept.
func (p *DeferredProduction) Resolve(target Production) {
	p.resolved = target
	tm := target.Meta()
	if tm.Field() == nil && p.meta.Field() != nil {
		target.Meta().SetField(p.meta.field, p.meta.isFieldProduction)
	}
	if tm.Container() == nil && p.meta.Container() != nil {
		target.Meta().SetContainer(p.meta.container)
	}
}

// IsResolved reports whether Resolve has been called.
func (p *DeferredProduction) IsResolved() bool { return p.resolved != nil }

// Resolved returns the bound target, or nil if not yet resolved.
func (p *DeferredProduction) Resolved() Production { return p.resolved }

func (p *DeferredProduction) Symbol() string { return p.symbol }

func (p *DeferredProduction) IsTerminal() bool {
	p.mustResolve()
	return p.resolved.follow().IsTerminal()
}
func (p *DeferredProduction) IsNullable() bool {
	p.mustResolve()
	return p.resolved.follow().IsNullable()
}
func (p *DeferredProduction) IsEodOk() bool {
	p.mustResolve()
	return p.resolved.follow().IsEodOk()
}
func (p *DeferredProduction) RHSs() [][]Production {
	p.mustResolve()
	return p.resolved.follow().RHSs()
}
func (p *DeferredProduction) BytesConsumed() (int64, bool) {
	p.mustResolve()
	return p.resolved.follow().BytesConsumed()
}
func (p *DeferredProduction) Meta() *Meta {
	if p.resolved != nil {
		return p.resolved.follow().Meta()
	}
	return p.meta
}

// follow resolves through the Deferred chain, which may be more than
// one link deep if a Deferred was resolved to another Deferred.
func (p *DeferredProduction) follow() Production {
	if p.resolved == nil {
		return p
	}
	return p.resolved.follow()
}

func (p *DeferredProduction) String() string {
	if p.resolved == nil {
		return fmt.Sprintf("%-30s -> <unresolved deferred>", p.symbol)
	}
	return fmt.Sprintf("%-30s -> deferred(%s)", p.symbol, p.resolved.follow().Symbol())
}

func (p *DeferredProduction) mustResolve() {
	if p.resolved == nil {
		panic(fmt.Sprintf("corepg: Deferred %q queried before Resolve", p.symbol))
	}
}
