package corepg

import "fmt"

// UnitProduction recurses into the root production of another unit's
// grammar, per spec.md §3/§4.5 step 2's ParseUnit dispatch. The
// referenced unit's own Grammar is built and finalized independently
// (GrammarBuilder's per-unit cache, spec.md §4.5 step 1); this node
// holds a pointer to that grammar's root production and returns it as
// its single right-hand side, so Grammar.Finalize walks it like any
// other non-terminal. unitSymbol records the referenced unit's id.
type UnitProduction struct {
	symbol     string
	unitSymbol string
	root       Production // resolved lazily once the referenced grammar is built
	meta       *Meta
}

// NewUnit returns a Unit production referencing the grammar rooted at
// unitSymbol. root may be nil initially and filled in later via
// SetRoot once the referenced unit's grammar has been built (units
// may reference each other recursively or out of declaration order).
func NewUnit(symbol, unitSymbol string, root Production) *UnitProduction {
	return &UnitProduction{symbol: symbol, unitSymbol: unitSymbol, root: root, meta: &Meta{}}
}

// UnitSymbol returns the id of the referenced unit.
func (p *UnitProduction) UnitSymbol() string { return p.unitSymbol }

// SetRoot records the referenced unit's resolved root production.
func (p *UnitProduction) SetRoot(root Production) { p.root = root }

func (p *UnitProduction) Symbol() string   { return p.symbol }
func (p *UnitProduction) IsTerminal() bool { return false }
func (p *UnitProduction) IsNullable() bool {
	if p.root == nil {
		return false
	}
	return p.root.follow().IsNullable()
}
func (p *UnitProduction) IsEodOk() bool {
	if p.root == nil {
		return false
	}
	return p.root.follow().IsEodOk()
}
func (p *UnitProduction) RHSs() [][]Production {
	if p.root == nil {
		return nil
	}
	return [][]Production{{p.root}}
}
func (p *UnitProduction) BytesConsumed() (int64, bool) {
	if p.root == nil {
		return 0, false
	}
	return p.root.follow().BytesConsumed()
}
func (p *UnitProduction) Meta() *Meta        { return p.meta }
func (p *UnitProduction) follow() Production { return p }
func (p *UnitProduction) String() string {
	return fmt.Sprintf("%-30s -> unit<%s>%s", p.symbol, p.unitSymbol, fmtMeta(p.meta))
}

// EnclosureProduction wraps a body production with runtime
// bookkeeping that doesn't affect its grammar shape — synchronization
// points, confirm/reject hooks, &parse-at/&parse-from source swaps —
// per spec.md §3's "a production whose body is delimited by runtime
// bookkeeping invisible to the grammar's structure." Every RHS/nullable
// /eod/bytes query simply defers to Body, so Enclosure is transparent
// to the LL(1) construction; only the printed form marks its presence.
type EnclosureProduction struct {
	symbol string
	body   Production
	meta   *Meta
}

// NewEnclosure returns an Enclosure production wrapping body.
func NewEnclosure(symbol string, body Production) *EnclosureProduction {
	return &EnclosureProduction{symbol: symbol, body: body, meta: &Meta{}}
}

// Body returns the wrapped production.
func (p *EnclosureProduction) Body() Production { return p.body }

func (p *EnclosureProduction) Symbol() string               { return p.symbol }
func (p *EnclosureProduction) IsTerminal() bool              { return false }
func (p *EnclosureProduction) IsNullable() bool              { return p.body.follow().IsNullable() }
func (p *EnclosureProduction) IsEodOk() bool                 { return p.body.follow().IsEodOk() }
func (p *EnclosureProduction) RHSs() [][]Production          { return [][]Production{{p.body}} }
func (p *EnclosureProduction) BytesConsumed() (int64, bool)  { return p.body.follow().BytesConsumed() }
func (p *EnclosureProduction) Meta() *Meta                   { return p.meta }
func (p *EnclosureProduction) follow() Production            { return p }
func (p *EnclosureProduction) String() string {
	return fmt.Sprintf("%-30s -> enclosure(%s)%s", p.symbol, p.body.follow().Symbol(), fmtMeta(p.meta))
}

// SkipProduction consumes and discards bytes without producing a
// value, per spec.md §3 — the grammar-level shape behind Spicy's
// anonymous "skip" fields. Width is the statically-known byte count
// when one is known (a fixed &size), else (0, false).
//
// Skip intentionally does not implement TerminalProduction: spec.md
// §6's token_id() identifies a literal value for look-ahead
// disambiguation, and a skip has none to offer — it discards whatever
// bytes are there rather than matching a specific one.
type SkipProduction struct {
	symbol string
	width  int64
	known  bool
	meta   *Meta
}

// NewSkip returns a Skip production. Pass known=false when the
// skipped width isn't statically determinable (e.g. skip-to-eod).
func NewSkip(symbol string, width int64, known bool) *SkipProduction {
	return &SkipProduction{symbol: symbol, width: width, known: known, meta: &Meta{}}
}

func (p *SkipProduction) Symbol() string      { return p.symbol }
func (p *SkipProduction) IsTerminal() bool    { return true }
func (p *SkipProduction) IsNullable() bool    { return p.known && p.width == 0 }
func (p *SkipProduction) IsEodOk() bool       { return !p.known }
func (p *SkipProduction) RHSs() [][]Production { return nil }
func (p *SkipProduction) BytesConsumed() (int64, bool) {
	if !p.known {
		return 0, false
	}
	return p.width, true
}
func (p *SkipProduction) Meta() *Meta        { return p.meta }
func (p *SkipProduction) follow() Production { return p }
func (p *SkipProduction) String() string {
	if p.known {
		return fmt.Sprintf("%-30s -> skip(%d bytes)%s", p.symbol, p.width, fmtMeta(p.meta))
	}
	return fmt.Sprintf("%-30s -> skip(to eod)%s", p.symbol, fmtMeta(p.meta))
}
