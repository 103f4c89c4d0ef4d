package corepg

import "fmt"

// CounterProduction repeats Item exactly Count times (&count), per
// spec.md §3/§4.5.
type CounterProduction struct {
	symbol string
	count  *Expr
	item   Production
	meta   *Meta
}

// NewCounter returns a Counter production repeating item count times.
func NewCounter(symbol string, count *Expr, item Production) *CounterProduction {
	return &CounterProduction{symbol: symbol, count: count, item: item, meta: &Meta{}}
}

// Count returns the repetition-count expression.
func (p *CounterProduction) Count() *Expr { return p.count }

// Item returns the repeated production.
func (p *CounterProduction) Item() Production { return p.item }

func (p *CounterProduction) Symbol() string   { return p.symbol }
func (p *CounterProduction) IsTerminal() bool { return false }

// IsNullable is true because a &count of 0 is a valid runtime value
// even though it isn't visible in the static production shape.
func (p *CounterProduction) IsNullable() bool { return true }
func (p *CounterProduction) IsEodOk() bool    { return false }
func (p *CounterProduction) RHSs() [][]Production {
	return [][]Production{{p.item}, {}}
}
func (p *CounterProduction) BytesConsumed() (int64, bool) { return 0, false }
func (p *CounterProduction) Meta() *Meta                  { return p.meta }
func (p *CounterProduction) follow() Production           { return p }
func (p *CounterProduction) String() string {
	return fmt.Sprintf("%-30s -> counter(%s) %s%s", p.symbol, p.count.String(), p.item.follow().Symbol(), fmtMeta(p.meta))
}

// ForEachProduction repeats Item until an external stop condition —
// a byte-size limit (&size), &until, &until-including, &while, a
// &parse-at/&parse-from repositioning, or plain end-of-data (&eod) —
// rather than a counted or LL(1)-look-ahead-driven one. The container
// parsing loop evaluates whichever stop condition is present; the
// grammar itself treats every variant alike (repeats Item or stops),
// per original_source/spicy/toolchain/src/compiler/codegen/grammar-builder.cc's
// productionForLoop: "&while | &until | &until-including | &eod ->
// just iterate until EOD, [driver] will evaluate the corresponding
// stop condition as necessary."
type ForEachProduction struct {
	symbol         string
	item           Production
	until          *Expr // &until or &until-including, nil if neither
	untilIncluding bool
	cond           *Expr // &while condition, nil if not &while-driven
	seeking        *Expr // &parse-at / &parse-from position, nil if neither
	eodOk          bool
	meta           *Meta
}

// NewForEach returns a ForEach production repeating item until the
// stop condition implied by until/untilIncluding/eodOk.
func NewForEach(symbol string, item Production, until *Expr, untilIncluding, eodOk bool) *ForEachProduction {
	return &ForEachProduction{symbol: symbol, item: item, until: until, untilIncluding: untilIncluding, eodOk: eodOk, meta: &Meta{}}
}

// NewForEachWhile returns a ForEach production that repeats item while
// cond evaluates true (&while), evaluated by the container loop rather
// than by LL(1) look-ahead.
func NewForEachWhile(symbol string, item Production, cond *Expr) *ForEachProduction {
	return &ForEachProduction{symbol: symbol, item: item, cond: cond, eodOk: true, meta: &Meta{}}
}

// NewForEachSeeking returns a ForEach production driven by a
// &parse-at/&parse-from cursor repositioning expression rather than a
// fixed count or a stop condition on the parsed bytes themselves.
func NewForEachSeeking(symbol string, item Production, seeking *Expr) *ForEachProduction {
	return &ForEachProduction{symbol: symbol, item: item, seeking: seeking, eodOk: true, meta: &Meta{}}
}

// Item returns the repeated production.
func (p *ForEachProduction) Item() Production { return p.item }

// Until returns the &until/&until-including expression, or nil.
func (p *ForEachProduction) Until() *Expr { return p.until }

// UntilIncluding reports whether the stop element itself is retained
// in the parsed result (&until-including semantics).
func (p *ForEachProduction) UntilIncluding() bool { return p.untilIncluding }

// Condition returns the &while expression, or nil.
func (p *ForEachProduction) Condition() *Expr { return p.cond }

// Seeking returns the &parse-at/&parse-from expression, or nil.
func (p *ForEachProduction) Seeking() *Expr { return p.seeking }

func (p *ForEachProduction) Symbol() string  { return p.symbol }
func (p *ForEachProduction) IsTerminal() bool { return false }
func (p *ForEachProduction) IsNullable() bool { return true }
func (p *ForEachProduction) IsEodOk() bool    { return p.eodOk }
func (p *ForEachProduction) RHSs() [][]Production {
	return [][]Production{{p.item}, {}}
}
func (p *ForEachProduction) BytesConsumed() (int64, bool) { return 0, false }
func (p *ForEachProduction) Meta() *Meta                  { return p.meta }
func (p *ForEachProduction) follow() Production           { return p }
func (p *ForEachProduction) String() string {
	switch {
	case p.cond != nil:
		return fmt.Sprintf("%-30s -> foreach %s while(%s)%s", p.symbol, p.item.follow().Symbol(), p.cond.String(), fmtMeta(p.meta))
	case p.seeking != nil:
		return fmt.Sprintf("%-30s -> foreach %s seek(%s)%s", p.symbol, p.item.follow().Symbol(), p.seeking.String(), fmtMeta(p.meta))
	case p.until != nil && p.untilIncluding:
		return fmt.Sprintf("%-30s -> foreach %s until-including(%s)%s", p.symbol, p.item.follow().Symbol(), p.until.String(), fmtMeta(p.meta))
	case p.until != nil:
		return fmt.Sprintf("%-30s -> foreach %s until(%s)%s", p.symbol, p.item.follow().Symbol(), p.until.String(), fmtMeta(p.meta))
	default:
		return fmt.Sprintf("%-30s -> foreach %s eod=%v%s", p.symbol, p.item.follow().Symbol(), p.eodOk, fmtMeta(p.meta))
	}
}
