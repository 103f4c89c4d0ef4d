package corepg

import "fmt"

// Meta is metadata the GrammarBuilder attaches to a Production,
// recording the unit field it corresponds to, whether the production
// is that field's parsing entry point, and — for productions nested
// inside a container's body — the enclosing container field, per
// spec.md §3/§4.4.
//
// Field and Container are represented by *Field rather than a richer
// AST node because the full Spicy unit AST is out of scope (see
// SPEC_FULL.md §1); Field is the minimal resolved-unit surface defined
// in unitdecl.go.
type Meta struct {
	field             *Field
	isFieldProduction bool
	container         *Field
}

// Field returns the unit field associated with the production, if any.
func (m *Meta) Field() *Field { return m.field }

// IsFieldProduction reports whether this production is the top-level
// parsing entry point for its field, as opposed to a nested production
// further down the parse tree.
func (m *Meta) IsFieldProduction() bool { return m.field != nil && m.isFieldProduction }

// Container returns the container field this production's body is
// nested inside, if it is itself a container item.
func (m *Meta) Container() *Field { return m.container }

// SetField records the unit field a production corresponds to.
func (m *Meta) SetField(f *Field, isFieldProduction bool) {
	m.field = f
	m.isFieldProduction = isFieldProduction
}

// SetContainer records the container field a production's body is
// nested inside.
func (m *Meta) SetContainer(f *Field) {
	m.container = f
}

// clone returns a shallow copy of m, or an empty Meta when m is nil.
func (m *Meta) clone() *Meta {
	if m == nil {
		return &Meta{}
	}
	cp := *m
	return &cp
}

// Production is a tagged-variant node of a grammar, identified by a
// unique symbol within the Grammar it belongs (or will belong) to, per
// spec.md §3/§4.4. The variants Epsilon, Ctor, Variable, Sequence,
// LookAhead, Switch, Counter, ForEach, Unit, Enclosure, Skip, Deferred
// and Block implement this interface; see production_terminal.go,
// production_combinators.go, production_loop.go, production_unit.go,
// and production_deferred.go. There is no While variant: a loop driven
// by look-ahead is built from a LookAhead whose alternatives are
// Epsilon and item-then-self (see GrammarBuilder.buildLoop).
type Production interface {
	// Symbol returns the production's unique symbol.
	Symbol() string

	// IsTerminal reports whether the production represents a
	// terminal (Epsilon, Ctor, Variable, Skip).
	IsTerminal() bool

	// IsNullable reports whether it is possible to derive the
	// production to an Epsilon production. This is an approximation
	// prior to Grammar.Finalize; the authoritative answer afterward
	// comes from Grammar.Nullable.
	IsNullable() bool

	// IsEodOk reports whether running out of data while parsing this
	// production should not be considered an error.
	IsEodOk() bool

	// RHSs returns the list of right-hand-side alternatives for this
	// production; each alternative is itself a sequence of
	// Productions. Terminals return nil.
	RHSs() [][]Production

	// BytesConsumed returns the statically known number of bytes this
	// production consumes while parsing, and true — or (0, false) if
	// the size cannot be determined statically.
	BytesConsumed() (int64, bool)

	// Meta returns the production's metadata block.
	Meta() *Meta

	// follow returns the production a Deferred placeholder stands in
	// for, once resolved; for every other variant it returns the
	// receiver itself. Every accessor in this package calls follow()
	// first so callers never need to special-case Deferred (spec.md
	// §4.4).
	follow() Production

	// String returns a one-line, human-readable rendering used by
	// Grammar's printed form (spec.md §6).
	String() string
}

// TerminalProduction is implemented by the Epsilon, Ctor and Variable
// variants and exposes their stable look-ahead token identity, per
// spec.md §6. Skip is terminal but does not implement it, so TokenIDOf
// returns NoTokenID for a Skip. Ctor productions with equal literal
// values get equal IDs, in any grammar. The ID is assigned by
// Grammar.Finalize; before Finalize runs, TokenID returns NoTokenID.
type TerminalProduction interface {
	Production
	TokenID() TokenID
}

// TokenIDOf returns p's look-ahead token ID, resolving through any
// Deferred chain first. It returns NoTokenID for non-terminal
// productions, or for a terminal production before Grammar.Finalize
// has assigned it one.
func TokenIDOf(p Production) TokenID {
	if p == nil {
		return NoTokenID
	}
	if tp, ok := p.follow().(TerminalProduction); ok {
		return tp.TokenID()
	}
	return NoTokenID
}

// Follow exposes follow() for callers outside the package that hold a
// Production and want to resolve through a Deferred chain (for
// example, a host driver inspecting a finalized Grammar).
func Follow(p Production) Production {
	if p == nil {
		return nil
	}
	return p.follow()
}

// Set is a deterministic, symbol-ordered collection of Productions,
// mirroring spicy::detail::codegen::production::Set (an std::set keyed
// by symbol comparison).
type Set struct {
	order []string
	items map[string]Production
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{items: make(map[string]Production)}
}

// Add inserts p into the set if its symbol is not already present.
func (s *Set) Add(p Production) {
	sym := p.Symbol()
	if _, ok := s.items[sym]; ok {
		return
	}
	s.items[sym] = p
	s.order = append(s.order, sym)
}

// Contains reports whether a production with p's symbol is in the set.
func (s *Set) Contains(p Production) bool {
	_, ok := s.items[p.Symbol()]
	return ok
}

// Len returns the number of productions in the set.
func (s *Set) Len() int { return len(s.order) }

// Slice returns the set's productions in symbol order.
func (s *Set) Slice() []Production {
	out := make([]Production, 0, len(s.order))
	sorted := append([]string(nil), s.order...)
	insertionSort(sorted)
	for _, sym := range sorted {
		out = append(out, s.items[sym])
	}
	return out
}

// insertionSort sorts small string slices without pulling in
// sort.Strings purely for a handful of symbols at a time; production
// sets inside a single non-terminal's RHS are small by construction.
func insertionSort(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// rhssNullable reports whether at least one RHS alternative in rhss is
// entirely nullable, or rhss itself is empty — mirroring
// production::isNullable(rhss) in the original source.
func rhssNullable(rhss [][]Production) bool {
	if len(rhss) == 0 {
		return true
	}
	for _, rhs := range rhss {
		all := true
		for _, p := range rhs {
			if !p.follow().IsNullable() {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func fmtMeta(m *Meta) string {
	if m == nil || m.Field() == nil {
		return ""
	}
	star := ""
	if m.IsFieldProduction() {
		star = "(*)"
	}
	s := fmt.Sprintf(" [field: %s%s]", m.Field().ID, star)
	if m.Container() != nil {
		s += fmt.Sprintf(" [container: %s]", m.Container().ID)
	}
	return s
}
