package corepg

import (
	"fmt"
	"strings"
)

// SequenceProduction is an ordered concatenation of productions, per
// spec.md §3.
type SequenceProduction struct {
	symbol string
	items  []Production
	meta   *Meta
}

// NewSequence returns a Sequence production over items, in order.
func NewSequence(symbol string, items []Production) *SequenceProduction {
	return &SequenceProduction{symbol: symbol, items: items, meta: &Meta{}}
}

func (p *SequenceProduction) Symbol() string      { return p.symbol }
func (p *SequenceProduction) IsTerminal() bool    { return false }
func (p *SequenceProduction) IsNullable() bool    { return rhssNullable(p.RHSs()) }
func (p *SequenceProduction) IsEodOk() bool       { return len(p.items) == 0 }
func (p *SequenceProduction) RHSs() [][]Production { return [][]Production{p.items} }
func (p *SequenceProduction) BytesConsumed() (int64, bool) {
	var total int64
	for _, it := range p.items {
		n, ok := it.follow().BytesConsumed()
		if !ok {
			return 0, false
		}
		total += n
	}
	return total, true
}
func (p *SequenceProduction) Meta() *Meta        { return p.meta }
func (p *SequenceProduction) follow() Production { return p }
func (p *SequenceProduction) String() string {
	syms := make([]string, len(p.items))
	for i, it := range p.items {
		syms[i] = it.follow().Symbol()
	}
	return fmt.Sprintf("%-30s -> %s%s", p.symbol, strings.Join(syms, " "), fmtMeta(p.meta))
}

// LookAheadProduction is an LL(1) alternation chosen by the next
// token, per spec.md §3. Before Grammar.Finalize runs, its look-ahead
// token sets are empty; Finalize populates them via SetLookAheads.
type LookAheadProduction struct {
	symbol      string
	alt0, alt1  Production
	defaultFlag int // 0 = no default, 1 = alt0 is default, 2 = alt1 is default
	meta        *Meta

	tokens0, tokens1 []Production // assigned by Grammar.Finalize
}

// NewLookAhead returns a LookAhead choosing between alt0 and alt1.
// defaultAlt is 0 (no default), 1, or 2, selecting which alternative
// to take when look-ahead is absent but the production is nullable.
func NewLookAhead(symbol string, alt0, alt1 Production, defaultAlt int) *LookAheadProduction {
	return &LookAheadProduction{symbol: symbol, alt0: alt0, alt1: alt1, defaultFlag: defaultAlt, meta: &Meta{}}
}

// Alternatives returns the two branches of the alternation.
func (p *LookAheadProduction) Alternatives() (Production, Production) { return p.alt0, p.alt1 }

// DefaultAlternative returns which branch (0 none, 1, or 2) is taken
// when look-ahead doesn't resolve the choice but one branch is
// nullable.
func (p *LookAheadProduction) DefaultAlternative() int { return p.defaultFlag }

// SetLookAheads records the two branches' computed look-ahead token
// sets; called by Grammar.Finalize's Step C.
func (p *LookAheadProduction) SetLookAheads(tokens0, tokens1 []Production) {
	p.tokens0, p.tokens1 = tokens0, tokens1
}

// LookAheads returns the two branches' token sets, valid only after
// Grammar.Finalize has run.
func (p *LookAheadProduction) LookAheads() ([]Production, []Production) {
	return p.tokens0, p.tokens1
}

func (p *LookAheadProduction) Symbol() string   { return p.symbol }
func (p *LookAheadProduction) IsTerminal() bool { return false }
func (p *LookAheadProduction) IsNullable() bool { return rhssNullable(p.RHSs()) }
func (p *LookAheadProduction) IsEodOk() bool {
	return p.alt0.follow().IsEodOk() || p.alt1.follow().IsEodOk()
}
func (p *LookAheadProduction) RHSs() [][]Production {
	return [][]Production{{p.alt0}, {p.alt1}}
}
func (p *LookAheadProduction) BytesConsumed() (int64, bool) { return 0, false }
func (p *LookAheadProduction) Meta() *Meta                  { return p.meta }
func (p *LookAheadProduction) follow() Production           { return p }
func (p *LookAheadProduction) String() string {
	return fmt.Sprintf("%-30s -> %s | %s%s", p.symbol, p.alt0.follow().Symbol(), p.alt1.follow().Symbol(), fmtMeta(p.meta))
}

// SwitchProduction is a value-driven alternation, per spec.md §3.
type SwitchProduction struct {
	symbol     string
	expr       *Expr
	cases      []Production
	caseLabels []string
	defaultAlt Production
	meta       *Meta
}

// NewSwitch returns a Switch dispatching on expr across cases (each
// paired with a human-readable label for the printed form), falling
// back to defaultAlt (which may be nil) when no case matches.
func NewSwitch(symbol string, expr *Expr, caseLabels []string, cases []Production, defaultAlt Production) *SwitchProduction {
	return &SwitchProduction{symbol: symbol, expr: expr, cases: cases, caseLabels: caseLabels, defaultAlt: defaultAlt, meta: &Meta{}}
}

func (p *SwitchProduction) Symbol() string   { return p.symbol }
func (p *SwitchProduction) IsTerminal() bool { return false }
func (p *SwitchProduction) IsNullable() bool { return rhssNullable(p.RHSs()) }
func (p *SwitchProduction) IsEodOk() bool {
	if p.defaultAlt != nil && p.defaultAlt.follow().IsEodOk() {
		return true
	}
	for _, c := range p.cases {
		if c.follow().IsEodOk() {
			return true
		}
	}
	return false
}
func (p *SwitchProduction) RHSs() [][]Production {
	rhss := make([][]Production, 0, len(p.cases)+1)
	for _, c := range p.cases {
		rhss = append(rhss, []Production{c})
	}
	if p.defaultAlt != nil {
		rhss = append(rhss, []Production{p.defaultAlt})
	}
	return rhss
}
func (p *SwitchProduction) BytesConsumed() (int64, bool) { return 0, false }
func (p *SwitchProduction) Meta() *Meta                  { return p.meta }
func (p *SwitchProduction) follow() Production           { return p }
func (p *SwitchProduction) String() string {
	return fmt.Sprintf("%-30s -> switch(%s) { %d cases }%s", p.symbol, p.expr.String(), len(p.cases), fmtMeta(p.meta))
}

// BlockProduction is an ordered group with an optional predicate, per
// spec.md §3: when Condition is non-nil, either Items or ElseItems is
// taken depending on its (host-evaluated) truth value.
type BlockProduction struct {
	symbol    string
	items     []Production
	condition *Expr
	elseItems []Production
	meta      *Meta
}

// NewBlock returns a Block over items, optionally gated by condition
// with an else branch.
func NewBlock(symbol string, items []Production, condition *Expr, elseItems []Production) *BlockProduction {
	return &BlockProduction{symbol: symbol, items: items, condition: condition, elseItems: elseItems, meta: &Meta{}}
}

func (p *BlockProduction) Symbol() string   { return p.symbol }
func (p *BlockProduction) IsTerminal() bool { return false }
func (p *BlockProduction) IsNullable() bool { return rhssNullable(p.RHSs()) }
func (p *BlockProduction) IsEodOk() bool    { return len(p.items) == 0 }
func (p *BlockProduction) RHSs() [][]Production {
	if p.condition == nil {
		return [][]Production{p.items}
	}
	return [][]Production{p.items, p.elseItems}
}
func (p *BlockProduction) BytesConsumed() (int64, bool) {
	if p.condition != nil {
		return 0, false
	}
	var total int64
	for _, it := range p.items {
		n, ok := it.follow().BytesConsumed()
		if !ok {
			return 0, false
		}
		total += n
	}
	return total, true
}
func (p *BlockProduction) Meta() *Meta        { return p.meta }
func (p *BlockProduction) follow() Production { return p }
func (p *BlockProduction) String() string {
	if p.condition == nil {
		return fmt.Sprintf("%-30s -> block(%d items)%s", p.symbol, len(p.items), fmtMeta(p.meta))
	}
	return fmt.Sprintf("%-30s -> if (%s) block(%d) else block(%d)%s",
		p.symbol, p.condition.String(), len(p.items), len(p.elseItems), fmtMeta(p.meta))
}
