package corepg

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// GrammarBuilder turns already-resolved unit declarations into
// finalized Grammars, per spec.md §4.5. It is the bridge between the
// external unit-description surface (unitdecl.go) and the Production
// graph the rest of the package operates on.
//
// Builds are cached per unit id and deduplicated with singleflight:
// concurrent requests to build the same unit (a common pattern when
// several goroutines start parsing the same protocol at once) share
// one construction instead of racing to build it twice.
type GrammarBuilder struct {
	uniquer *Uniquer
	group   singleflight.Group

	mu    sync.Mutex
	built map[string]*Grammar
}

// NewGrammarBuilder returns an empty builder.
func NewGrammarBuilder() *GrammarBuilder {
	return &GrammarBuilder{uniquer: NewUniquer(), built: make(map[string]*Grammar)}
}

// Build returns the finalized Grammar for u, building and caching it
// if this is the first request for u.ID.
func (b *GrammarBuilder) Build(u *UnitDecl) (*Grammar, error) {
	v, err, _ := b.group.Do(u.ID, func() (any, error) {
		if g, ok := b.lookupBuilt(u.ID); ok {
			return g, nil
		}

		g := NewGrammar(u.ID)
		pending := make(map[string]*DeferredProduction)

		root, err := b.buildUnit(g, u, pending)
		if err != nil {
			return nil, err
		}
		if err := g.SetRoot(root); err != nil {
			return nil, err
		}
		if err := g.Finalize(); err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.built[u.ID] = g
		b.mu.Unlock()
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Grammar), nil
}

func (b *GrammarBuilder) lookupBuilt(id string) (*Grammar, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.built[id]
	return g, ok
}

// buildUnit compiles u's fields into a Sequence production, guarding
// against recursive self-reference (directly or through a chain of
// sub-units) by handing out a Deferred placeholder immediately and
// resolving it once the fields are built, per spec.md §4.4's
// forward-reference pattern.
func (b *GrammarBuilder) buildUnit(g *Grammar, u *UnitDecl, pending map[string]*DeferredProduction) (Production, error) {
	if d, ok := pending[u.ID]; ok {
		return d, nil
	}

	d := NewDeferred(b.uniquer.Unique("unit." + u.ID))
	pending[u.ID] = d

	items := make([]Production, 0, len(u.Fields))
	for _, f := range u.Fields {
		fp, err := b.buildField(g, f, pending)
		if err != nil {
			return nil, err
		}
		items = append(items, fp)
	}

	seq := NewSequence(b.uniquer.Unique(u.ID), items)
	g.Resolve(d, seq)
	delete(pending, u.ID)
	return d, nil
}

// buildField dispatches a single field to the Production variant that
// implements its parse shape, per spec.md §4.5 step 2, then records
// the field/container metadata used by Grammar.WriteTo and by a host
// driver mapping parse results back to fields.
func (b *GrammarBuilder) buildField(g *Grammar, f *Field, pending map[string]*DeferredProduction) (Production, error) {
	sym := b.uniquer.Unique(f.ID)

	var base Production
	var err error

	switch {
	case len(f.Switch) > 0:
		base, err = b.buildSwitch(g, f, sym, pending)
	case len(f.LookAheadSwitch) > 0:
		base, err = b.buildLookAheadChain(g, f, sym, pending)
	case f.Type == ParseVector:
		base, err = b.buildLoop(g, f, sym, pending)
	case f.Type == ParseUnit:
		base, err = b.buildUnitReference(g, f, sym, pending)
	case f.Ctor != nil:
		base = NewCtor(sym, f.Ctor)
	case f.Type == ParseInteger:
		base = NewVariable(sym, VarInteger, f.Attrs.Size)
	case f.Type == ParseAddress:
		base = NewVariable(sym, VarAddress, f.Attrs.Size)
	case f.Type == ParseReal:
		base = NewVariable(sym, VarReal, f.Attrs.Size)
	case f.Type == ParseBytes:
		base = NewVariable(sym, VarBytesOfLength, f.Attrs.Size)
	default:
		err = newError(KindGrammarError, "field %s: unrecognized parse type", f.ID)
	}
	if err != nil {
		return nil, err
	}

	base.Meta().SetField(f, true)
	return base, nil
}

// buildUnitReference resolves a ParseUnit field. A unit already
// finalized as its own top-level Grammar is referenced by a Unit
// production pointing at that grammar's root, so siblings sharing a
// sub-unit type don't each duplicate its productions; a unit still
// under construction in this same Build call (direct or mutual
// recursion) reuses the pending Deferred; otherwise the sub-unit is
// inlined into this grammar.
func (b *GrammarBuilder) buildUnitReference(g *Grammar, f *Field, sym string, pending map[string]*DeferredProduction) (Production, error) {
	if cached, ok := b.lookupBuilt(f.Unit.ID); ok {
		return NewUnit(sym, f.Unit.ID, cached.Root()), nil
	}
	if d, ok := pending[f.Unit.ID]; ok {
		return d, nil
	}
	return b.buildUnit(g, f.Unit, pending)
}

func (b *GrammarBuilder) buildLoop(g *Grammar, f *Field, sym string, pending map[string]*DeferredProduction) (Production, error) {
	item, err := b.buildField(g, f.Item, pending)
	if err != nil {
		return nil, err
	}
	item.Meta().SetContainer(f)

	switch f.Attrs.Loop() {
	case LoopCount:
		return NewCounter(sym, f.Attrs.Count, item), nil

	case LoopForEach:
		until := f.Attrs.Until
		untilIncluding := false
		if until == nil && f.Attrs.UntilIncluding != nil {
			until = f.Attrs.UntilIncluding
			untilIncluding = true
		}
		return NewForEach(sym, item, until, untilIncluding, f.Attrs.Eod), nil

	case LoopWhile:
		// &while, &parse-at, and &parse-from all hand the stop
		// decision to the container's runtime loop rather than to
		// LL(1) look-ahead, exactly like &until/&eod: the original
		// compiles every one of these into a plain iterate-to-eod
		// ForEach (grammar-builder.cc's productionForLoop).
		if f.Attrs.While != nil {
			return NewForEachWhile(sym, item, f.Attrs.While), nil
		}
		seek := f.Attrs.ParseAt
		if seek == nil {
			seek = f.Attrs.ParseFrom
		}
		return NewForEachSeeking(sym, item, seek), nil

	default:
		// No loop attribute: a plain Spicy container parses until its
		// source is exhausted, which has no fixed arity. Left-factor
		// that into the LL(1)-legal pair L -> item L | epsilon, with
		// the tail produced via a Deferred so the recursive reference
		// to L itself is well-formed.
		tail := NewDeferred(b.uniquer.Unique(sym + ".tail"))
		eps := NewEpsilon(b.uniquer.Unique(sym + ".done"))
		more := NewSequence(b.uniquer.Unique(sym+".more"), []Production{item, tail})
		la := NewLookAhead(sym, more, eps, 2)
		g.Resolve(tail, la)
		return la, nil
	}
}

func (b *GrammarBuilder) buildSwitch(g *Grammar, f *Field, sym string, pending map[string]*DeferredProduction) (Production, error) {
	var cases []Production
	var labels []string
	var def Production

	for _, c := range f.Switch {
		cp, err := b.buildField(g, c.Field, pending)
		if err != nil {
			return nil, err
		}
		if len(c.Values) == 0 {
			def = cp
			continue
		}
		labels = append(labels, c.Field.ID)
		cases = append(cases, cp)
	}

	return NewSwitch(sym, f.SwitchExpr, labels, cases, def), nil
}

// buildLookAheadChain compiles a look-ahead-driven set of cases into
// a right-associative chain of binary LookAhead nodes, since
// LookAheadProduction (mirroring the source) models only a choice
// between two alternatives, per spec.md §4.5 step 4.
func (b *GrammarBuilder) buildLookAheadChain(g *Grammar, f *Field, sym string, pending map[string]*DeferredProduction) (Production, error) {
	cases := f.LookAheadSwitch
	if len(cases) == 0 {
		return NewEpsilon(sym), nil
	}

	prods := make([]Production, len(cases))
	for i, c := range cases {
		p, err := b.buildField(g, c.Field, pending)
		if err != nil {
			return nil, err
		}
		prods[i] = p
	}

	acc := prods[len(prods)-1]
	for i := len(prods) - 2; i >= 0; i-- {
		chainSym := sym
		if i > 0 {
			chainSym = b.uniquer.Unique(fmt.Sprintf("%s.alt%d", sym, i))
		}
		acc = NewLookAhead(chainSym, prods[i], acc, 0)
	}
	return acc, nil
}
