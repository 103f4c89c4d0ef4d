package corepg

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Grammar is a named collection of Productions rooted at one entry
// point, together with the NULLABLE/FIRST/FOLLOW tables and
// look-ahead assignments Finalize computes over them, per spec.md §4.
type Grammar struct {
	name string

	root Production
	prods map[string]Production // symbol -> follow()-resolved production
	nterms []string             // non-terminal symbols, declaration order

	resolvedMapping map[string]string // Deferred symbol -> resolved target symbol

	nullable map[string]bool
	first    map[string]map[string]struct{}
	follow   map[string]map[string]struct{}

	lookAheadsInUse map[TokenID]struct{}
	tokens          *TokenRegistry

	finalized bool
}

// NewGrammar returns an empty, unrooted grammar named name. name is
// used only for diagnostics (error messages, WriteTo's header).
func NewGrammar(name string) *Grammar {
	return &Grammar{
		name:            name,
		prods:           make(map[string]Production),
		resolvedMapping: make(map[string]string),
		nullable:        make(map[string]bool),
		first:           make(map[string]map[string]struct{}),
		follow:          make(map[string]map[string]struct{}),
		lookAheadsInUse: make(map[TokenID]struct{}),
		tokens:          NewTokenRegistry(),
	}
}

// Name returns the grammar's name.
func (g *Grammar) Name() string { return g.name }

// Root returns the grammar's root production, or nil if SetRoot
// hasn't been called.
func (g *Grammar) Root() Production { return g.root }

// NTerms returns the grammar's non-terminal symbols, in the order
// they were first added.
func (g *Grammar) NTerms() []string { return append([]string(nil), g.nterms...) }

// Production looks up a production by symbol, after Deferred
// resolution. The second return is false if no such production has
// been added.
func (g *Grammar) Production(symbol string) (Production, bool) {
	p, ok := g.prods[symbol]
	return p, ok
}

// ShareTokens opts g and other into a shared, process-wide token
// registry, per spec.md §9's design note on cross-grammar literal
// identity.
func (g *Grammar) ShareTokens(other *Grammar) {
	shared := sharedGlobalTokenRegistry()
	g.tokens = shared
	other.tokens = shared
}

// SetRoot installs p as the grammar's root production. It may be
// called only once, and p must carry a non-empty symbol.
func (g *Grammar) SetRoot(p Production) error {
	if g.root != nil {
		return newError(KindGrammarError, "root production is already set")
	}
	if p.Symbol() == "" {
		return newError(KindGrammarError, "root production must have a symbol")
	}
	g.addProduction(p)
	g.root = p
	return nil
}

// Resolve binds the Deferred placeholder d to target, now that the
// production it stood in for exists, per spec.md §4.4.
func (g *Grammar) Resolve(d *DeferredProduction, target Production) {
	g.resolvedMapping[d.Symbol()] = target.Symbol()
	d.Resolve(target)
	g.addProduction(target)
}

// Resolved returns the production a Deferred was bound to, looking
// it up through the grammar's resolved-mapping table rather than the
// placeholder's own pointer (used by tests and diagnostics that only
// have a symbol).
func (g *Grammar) Resolved(d *DeferredProduction) (Production, error) {
	sym, ok := g.resolvedMapping[d.Symbol()]
	if !ok {
		return nil, newError(KindGrammarError, "unknown reference: %s", d.Symbol())
	}
	p, ok := g.prods[sym]
	if !ok {
		return nil, newError(KindGrammarError, "unknown reference: %s", d.Symbol())
	}
	return p, nil
}

func (g *Grammar) addProduction(p Production) {
	if p.Symbol() == "" {
		return
	}
	if _, ok := p.(*DeferredProduction); ok {
		return
	}
	if _, ok := g.prods[p.Symbol()]; ok {
		return
	}

	g.prods[p.Symbol()] = Follow(p)

	if !p.IsTerminal() {
		g.nterms = append(g.nterms, p.Symbol())
		for _, rhs := range p.RHSs() {
			for _, r := range rhs {
				g.addProduction(r)
			}
		}
	}
}

// rhss returns p's RHS alternatives with every element resolved
// through follow(), so callers never need to special-case Deferred.
func (g *Grammar) rhss(p Production) [][]Production {
	var out [][]Production
	for _, rhs := range p.RHSs() {
		nrhs := make([]Production, len(rhs))
		for i, r := range rhs {
			nrhs[i] = Follow(r)
		}
		out = append(out, nrhs)
	}
	return out
}

// Finalize computes the grammar's LL(1) tables and validates it, per
// spec.md §4.6. It must be called exactly once, after every Deferred
// reachable from the root has been resolved.
func (g *Grammar) Finalize() error {
	if g.root == nil {
		return newError(KindGrammarError, "grammar does not have a root production")
	}
	start := time.Now()
	g.simplify()
	g.assignTokenIDs()
	if err := g.computeTables(); err != nil {
		return err
	}
	g.finalized = true
	DefaultLogger().With("component", "grammar").Debug("grammar finalized",
		"grammar", g.name, "nterms", len(g.nterms), "elapsed", time.Since(start))
	return nil
}

// Finalized reports whether Finalize has completed successfully.
func (g *Grammar) Finalized() bool { return g.finalized }

func (g *Grammar) simplify() {
	changed := true
	for changed {
		changed = false
		closure := g.computeClosure(Follow(g.root))

		for sym, p := range g.prods {
			if closure.Contains(p) {
				continue
			}
			delete(g.prods, sym)
			g.nterms = removeString(g.nterms, sym)
			changed = true
		}
	}
}

func (g *Grammar) closureRecurse(c *Set, p Production) {
	if p.Symbol() == "" || c.Contains(p) {
		return
	}
	c.Add(p)

	if p.IsTerminal() {
		return
	}

	for _, rhs := range g.rhss(p) {
		for _, r := range rhs {
			g.closureRecurse(c, r)
		}
	}
}

func (g *Grammar) computeClosure(p Production) *Set {
	c := NewSet()
	g.closureRecurse(c, p)
	return c
}

func removeString(s []string, target string) []string {
	out := s[:0]
	for _, v := range s {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

func addToTable(tbl map[string]map[string]struct{}, dst string, src map[string]struct{}, changed bool) bool {
	set, ok := tbl[dst]
	if !ok {
		set = make(map[string]struct{})
		tbl[dst] = set
	}
	before := len(set)
	for k := range src {
		set[k] = struct{}{}
	}
	if len(set) != before {
		changed = true
	}
	return changed
}

func (g *Grammar) isNullable(p Production) bool {
	if _, ok := p.(*EpsilonProduction); ok {
		return true
	}
	if p.IsTerminal() {
		return false
	}
	return g.nullable[p.Symbol()]
}

func (g *Grammar) isNullableRange(rhs []Production) bool {
	for _, p := range rhs {
		if !g.isNullable(p) {
			return false
		}
	}
	return true
}

func (g *Grammar) getFirst(p Production) map[string]struct{} {
	if _, ok := p.(*EpsilonProduction); ok {
		return map[string]struct{}{}
	}
	if p.IsTerminal() {
		return map[string]struct{}{p.Symbol(): {}}
	}
	return g.first[p.Symbol()]
}

// assignTokenIDs gives every terminal production reachable from the
// root, other than Skip, a stable TokenID via the grammar's token
// registry, per spec.md §6. A Ctor is keyed on its literal value, so
// equal literals share an ID; Epsilon and Variable are keyed on their
// printed form, which includes their symbol. It runs after simplify so
// only productions actually part of the finalized grammar get
// registered.
func (g *Grammar) assignTokenIDs() {
	for _, p := range g.prods {
		if !p.IsTerminal() {
			continue
		}
		if ts, ok := p.(interface{ setTokenID(TokenID) }); ok {
			key := p.String()
			if c, ok := p.(*CtorProduction); ok {
				key = fmt.Sprintf("ctor %q", c.Value())
			}
			ts.setTokenID(g.tokens.IDFor(key))
		}
	}
}

// computeTables runs the NULLABLE/FIRST/FOLLOW fixed-point
// computation (Appel & Ginsburg's algorithm 3.13), assigns look-ahead
// token sets to every LookAhead production, and validates the result.
func (g *Grammar) computeTables() error {
	for _, sym := range g.nterms {
		g.nullable[sym] = false
		g.first[sym] = map[string]struct{}{}
		g.follow[sym] = map[string]struct{}{}
	}

	for {
		changed := false

		for _, sym := range g.nterms {
			p := g.prods[sym]

			for _, rhs := range g.rhss(p) {
				if g.isNullableRange(rhs) && !g.nullable[sym] {
					g.nullable[sym] = true
					changed = true
				}

				for i, r := range rhs {
					if g.isNullableRange(rhs[:i]) {
						changed = addToTable(g.first, sym, g.getFirst(r), changed)
					}

					if r.IsTerminal() {
						continue
					}

					next := i + 1
					if g.isNullableRange(rhs[next:]) {
						changed = addToTable(g.follow, r.Symbol(), g.follow[sym], changed)
					}

					for j := next; j < len(rhs); j++ {
						if g.isNullableRange(rhs[next:j]) {
							changed = addToTable(g.follow, r.Symbol(), g.getFirst(rhs[j]), changed)
						}
					}
				}
			}
		}

		if !changed {
			break
		}
	}

	for _, sym := range g.nterms {
		p := g.prods[sym]

		lap, ok := p.(*LookAheadProduction)
		if !ok {
			continue
		}

		alt0, alt1 := lap.Alternatives()

		v0, err := g.lookAheadsForProduction(alt0, lap)
		if err != nil {
			continue
		}
		v1, err := g.lookAheadsForProduction(alt1, lap)
		if err != nil {
			continue
		}

		lap.SetLookAheads(v0.Slice(), v1.Slice())
		g.markLookAheadsInUse(v0, v1)
	}

	return g.check()
}

// markLookAheadsInUse records the TokenID of every terminal production
// across sets in the grammar's token-ID-in-use set.
func (g *Grammar) markLookAheadsInUse(sets ...*Set) {
	for _, v := range sets {
		for _, x := range v.Slice() {
			g.lookAheadsInUse[TokenIDOf(x)] = struct{}{}
		}
	}
}

// lookAheadsForProduction returns the set of terminal productions
// that can legally appear next when choosing to derive p, combining
// FIRST(p) with FOLLOW(parent) when p is nullable. It errors if that
// set would include a non-terminal (an LL(1) violation).
func (g *Grammar) lookAheadsForProduction(p, parent Production) (*Set, error) {
	p = Follow(p)

	laheads := map[string]struct{}{}
	for term := range g.getFirst(p) {
		laheads[term] = struct{}{}
	}

	if parent != nil && g.isNullable(p) {
		for term := range g.follow[parent.Symbol()] {
			laheads[term] = struct{}{}
		}
	}

	result := NewSet()
	for s := range laheads {
		prod, ok := g.prods[s]
		if !ok {
			return nil, newError(KindGrammarError, "look-ahead refers to unknown symbol %s", s)
		}
		if !prod.IsTerminal() {
			return nil, newError(KindGrammarError, "%s: look-ahead cannot depend on non-terminal", g.productionLocation(prod))
		}
		result.Add(prod)
	}

	return result, nil
}

// HasLookAheadLiterals reports whether choosing to derive p (inside
// parent) is disambiguated by at least one literal (Ctor) token,
// rather than purely structural terminals (end-of-data, typed
// variables without a fixed encoding).
func (g *Grammar) HasLookAheadLiterals(p, parent Production) bool {
	tokens, err := g.lookAheadsForProduction(p, parent)
	if err != nil || tokens.Len() == 0 {
		return false
	}
	for _, t := range tokens.Slice() {
		if _, ok := t.(*CtorProduction); ok {
			return true
		}
	}
	return false
}

func (g *Grammar) check() error {
	for _, sym := range g.nterms {
		p := g.prods[sym]
		lap, ok := p.(*LookAheadProduction)
		if !ok {
			continue
		}

		t0, t1 := lap.LookAheads()
		if err := g.checkLookAheadPair(lap, t0, t1); err != nil {
			return err
		}
	}

	return nil
}

// checkLookAheadPair validates an LL(1) two-alternative look-ahead
// assignment for a LookAheadProduction: at least one alternative's
// token set must be non-empty, the two sets must not intersect, and
// every token must be a terminal — per spec.md §4.6 Step D.
func (g *Grammar) checkLookAheadPair(lap Production, t0, t1 []Production) error {
	syms1 := map[string]struct{}{}
	for _, p := range t0 {
		syms1[Follow(p).Symbol()] = struct{}{}
	}
	syms2 := map[string]struct{}{}
	for _, p := range t1 {
		syms2[Follow(p).Symbol()] = struct{}{}
	}

	if len(syms1) == 0 && len(syms2) == 0 {
		return newError(KindGrammarError, "no look-ahead symbol for either alternative in %s", g.productionLocation(lap))
	}

	var isect []string
	for s := range syms1 {
		if _, ok := syms2[s]; ok {
			isect = append(isect, s)
		}
	}
	if len(isect) > 0 {
		sort.Strings(isect)
		return newError(KindGrammarError, "%s is ambiguous for look-ahead symbol(s) { %s }", g.productionLocation(lap), joinStrings(isect, ", "))
	}

	for _, q := range append(append([]Production(nil), t0...), t1...) {
		if !q.IsTerminal() {
			return newError(KindGrammarError, "%s: look-ahead cannot depend on non-terminal", g.productionLocation(lap))
		}
	}

	return nil
}

func (g *Grammar) productionLocation(p Production) string {
	if g.name != "" {
		return fmt.Sprintf("grammar %s, production %s", g.name, p.Symbol())
	}
	return fmt.Sprintf("production %s", p.Symbol())
}

func joinStrings(s []string, sep string) string {
	out := ""
	for i, v := range s {
		if i > 0 {
			out += sep
		}
		out += v
	}
	return out
}

// WriteTo renders the grammar's printed form, per spec.md §6: every
// reachable production keyed by symbol, the Deferred resolution
// table, and — when verbose — the NULLABLE/FIRST/FOLLOW tables.
func (g *Grammar) WriteTo(w io.Writer, verbose bool) (int64, error) {
	var total int64

	write := func(format string, args ...any) error {
		n, err := fmt.Fprintf(w, format, args...)
		total += int64(n)
		return err
	}

	rootSymbol := ""
	if g.root != nil {
		rootSymbol = Follow(g.root).Symbol()
	}

	if err := write("=== Grammar %s\n", g.name); err != nil {
		return total, err
	}

	symbols := make([]string, 0, len(g.prods))
	for sym := range g.prods {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		marker := "   "
		if sym == rootSymbol {
			marker = "(*)"
		}
		if err := write(" %s %s\n", marker, g.prods[sym].String()); err != nil {
			return total, err
		}
	}

	resolvedKeys := make([]string, 0, len(g.resolvedMapping))
	for r := range g.resolvedMapping {
		resolvedKeys = append(resolvedKeys, r)
	}
	sort.Strings(resolvedKeys)
	for _, r := range resolvedKeys {
		if err := write("     %15s: -> %s\n", r, g.resolvedMapping[r]); err != nil {
			return total, err
		}
	}

	if !verbose {
		if err := write("\n"); err != nil {
			return total, err
		}
		return total, nil
	}

	if err := write("\n  -- Epsilon:\n"); err != nil {
		return total, err
	}
	for _, sym := range g.nterms {
		if err := write("     %s = %v\n", sym, g.nullable[sym]); err != nil {
			return total, err
		}
	}

	if err := write("\n  -- First_1:\n"); err != nil {
		return total, err
	}
	for _, sym := range g.nterms {
		if err := write("     %s = { %s }\n", sym, joinStrings(sortedKeys(g.first[sym]), ", ")); err != nil {
			return total, err
		}
	}

	if err := write("\n  -- Follow:\n"); err != nil {
		return total, err
	}
	for _, sym := range g.nterms {
		if err := write("     %s = { %s }\n", sym, joinStrings(sortedKeys(g.follow[sym]), ", ")); err != nil {
			return total, err
		}
	}

	return total, write("\n")
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// String renders the grammar's non-verbose printed form.
func (g *Grammar) String() string {
	var b strings.Builder
	_, _ = g.WriteTo(&b, false)
	return b.String()
}
