package corepg

// WaitForInput blocks the calling fiber until v has at least min bytes
// visible, yielding on h each time more input is needed, per spec.md
// §4.8. If the underlying stream freezes before min bytes arrive, it
// raises a MissingData error carrying errMsg, loc, and the byte count
// that was actually available — the "available = view.size()" detail
// spec.md §4.8 and §6 both call out for parser error reporting.
func (v *View) WaitForInput(h *Handle, min int64, errMsg string, loc Location) error {
	if v.WaitForInputOrEod(h, min) {
		return nil
	}
	avail := v.Size()
	plural := "s"
	if avail == 1 {
		plural = ""
	}
	e := newError(KindMissingData, "%s (%d byte%s available)", errMsg, avail, plural)
	e.Location = loc
	e.Offset = v.begin
	e.Available = avail
	return e
}

// WaitForInputOrEod blocks until v has at least min bytes visible or
// the underlying stream is frozen, whichever comes first, returning
// false in the latter case instead of raising — spec.md §4.8's
// non-throwing counterpart to WaitForInput.
func (v *View) WaitForInputOrEod(h *Handle, min int64) bool {
	for min > v.Size() {
		if !v.waitForMoreOrEod(h) {
			return false
		}
	}
	return true
}

// AtEod reports whether v is exhausted: empty, with the underlying
// stream frozen so no further bytes can ever arrive. If v is currently
// empty but the stream is still open, AtEod suspends until either a
// byte arrives or the stream freezes, per spec.md §4.8 ("true iff view
// is empty and underlying stream is frozen") — a premature "not at
// eod" read here would be wrong the instant more data shows up.
func (v *View) AtEod(h *Handle) bool {
	if v.Size() > 0 {
		return false
	}
	if v.stream.IsFrozen() {
		return true
	}
	return !v.waitForMoreOrEod(h)
}

// waitForMoreOrEod yields h until v's visible size changes or the
// stream freezes, returning false only in the latter case with no
// growth having occurred — mirroring the original's inner
// waitForInputOrEod loop (one suspend, then re-check).
func (v *View) waitForMoreOrEod(h *Handle) bool {
	before := v.Size()
	for before == v.Size() {
		if v.stream.IsFrozen() {
			return false
		}
		h.Yield()
	}
	return true
}

// parseErrorf builds a ParseError at loc, the general-purpose sibling
// of the MissingData error WaitForInput raises: used by a driver when
// a literal fails to match or a field's constraint is violated rather
// than when input is simply missing.
func parseErrorf(loc Location, format string, args ...any) *Error {
	e := newError(KindParseError, format, args...)
	e.Location = loc
	return e
}
