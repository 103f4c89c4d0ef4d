package corepg

import "fmt"

// Epsilon is the empty match: nullable, terminal-ish, per spec.md §3.
// A grammar has at most conceptually many Epsilon nodes but they all
// behave identically, so EpsilonProduction carries only a symbol.
type EpsilonProduction struct {
	symbol  string
	meta    *Meta
	tokenID TokenID
}

// NewEpsilon returns an Epsilon production with the given symbol.
func NewEpsilon(symbol string) *EpsilonProduction {
	return &EpsilonProduction{symbol: symbol, meta: &Meta{}}
}

func (p *EpsilonProduction) Symbol() string               { return p.symbol }
func (p *EpsilonProduction) IsTerminal() bool              { return true }
func (p *EpsilonProduction) IsNullable() bool              { return true }
func (p *EpsilonProduction) IsEodOk() bool                 { return true }
func (p *EpsilonProduction) RHSs() [][]Production          { return nil }
func (p *EpsilonProduction) BytesConsumed() (int64, bool)  { return 0, true }
func (p *EpsilonProduction) Meta() *Meta                   { return p.meta }
func (p *EpsilonProduction) follow() Production            { return p }
func (p *EpsilonProduction) String() string {
	return fmt.Sprintf("%-30s -> epsilon", p.symbol)
}

// TokenID returns the stable look-ahead token identifier
// Grammar.Finalize assigned this production, or NoTokenID before
// Finalize has run, per spec.md §6.
func (p *EpsilonProduction) TokenID() TokenID     { return p.tokenID }
func (p *EpsilonProduction) setTokenID(id TokenID) { p.tokenID = id }

// CtorProduction is a literal constant (bytes) that must appear
// verbatim, per spec.md §3.
type CtorProduction struct {
	symbol  string
	value   []byte
	meta    *Meta
	tokenID TokenID
}

// NewCtor returns a Ctor production matching value verbatim.
func NewCtor(symbol string, value []byte) *CtorProduction {
	return &CtorProduction{symbol: symbol, value: append([]byte(nil), value...), meta: &Meta{}}
}

// Value returns the literal bytes this production must match.
func (p *CtorProduction) Value() []byte { return p.value }

func (p *CtorProduction) Symbol() string              { return p.symbol }
func (p *CtorProduction) IsTerminal() bool             { return true }
func (p *CtorProduction) IsNullable() bool             { return len(p.value) == 0 }
func (p *CtorProduction) IsEodOk() bool                { return false }
func (p *CtorProduction) RHSs() [][]Production         { return nil }
func (p *CtorProduction) BytesConsumed() (int64, bool) { return int64(len(p.value)), true }
func (p *CtorProduction) Meta() *Meta                  { return p.meta }
func (p *CtorProduction) follow() Production           { return p }
func (p *CtorProduction) String() string {
	return fmt.Sprintf("%-30s -> %q%s", p.symbol, p.value, fmtMeta(p.meta))
}

// TokenID returns the stable look-ahead token identifier
// Grammar.Finalize assigned this literal, or NoTokenID before
// Finalize has run, per spec.md §6.
func (p *CtorProduction) TokenID() TokenID     { return p.tokenID }
func (p *CtorProduction) setTokenID(id TokenID) { p.tokenID = id }

// VariableKind distinguishes the runtime decoders a Variable
// production dispatches to, per spec.md §3's "typed terminal whose
// value is produced by the runtime decoder for that type."
type VariableKind int

const (
	VarInteger VariableKind = iota
	VarAddress
	VarReal
	VarBytesOfLength
)

// VariableProduction is a typed terminal whose value the runtime
// decoder for its type produces, per spec.md §3.
type VariableProduction struct {
	symbol  string
	kind    VariableKind
	size    *Expr // byte length, when statically known as an expression
	meta    *Meta
	tokenID TokenID
}

// NewVariable returns a Variable production of the given kind. size
// may be nil if the decoder's width is implicit in its kind (e.g. a
// fixed-width integer).
func NewVariable(symbol string, kind VariableKind, size *Expr) *VariableProduction {
	return &VariableProduction{symbol: symbol, kind: kind, size: size, meta: &Meta{}}
}

// Kind returns the decoder kind this production dispatches to.
func (p *VariableProduction) Kind() VariableKind { return p.kind }

func (p *VariableProduction) Symbol() string      { return p.symbol }
func (p *VariableProduction) IsTerminal() bool    { return true }
func (p *VariableProduction) IsNullable() bool    { return false }
func (p *VariableProduction) IsEodOk() bool       { return false }
func (p *VariableProduction) RHSs() [][]Production { return nil }
func (p *VariableProduction) BytesConsumed() (int64, bool) {
	return 0, false
}
func (p *VariableProduction) Meta() *Meta        { return p.meta }
func (p *VariableProduction) follow() Production { return p }
func (p *VariableProduction) String() string {
	return fmt.Sprintf("%-30s -> <variable kind=%d size=%s>%s", p.symbol, p.kind, p.size.String(), fmtMeta(p.meta))
}

// TokenID returns the stable look-ahead token identifier
// Grammar.Finalize assigned this production, or NoTokenID before
// Finalize has run, per spec.md §6.
func (p *VariableProduction) TokenID() TokenID     { return p.tokenID }
func (p *VariableProduction) setTokenID(id TokenID) { p.tokenID = id }
