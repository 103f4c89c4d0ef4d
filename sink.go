package corepg

import (
	"container/list"
	"sync"

	"github.com/google/uuid"
)

// ConsumerID identifies a consumer connected to a Sink.
type ConsumerID = uuid.UUID

// ReassemblerPolicy selects how a Sink resolves overlapping writes.
// First is the only policy implemented, per spec.md §9/SPEC_FULL.md
// §6's Open Question decision: bytes written again over a range that
// is still buffered are discarded and reported via OnOverlap rather
// than replacing what was written first. Bytes written again at a
// position already delivered are discarded without an OnOverlap
// report, since delivered chunks are no longer buffered.
type ReassemblerPolicy int

const (
	PolicyFirst ReassemblerPolicy = iota
)

// ConsumerHooks is the callback surface a Sink drives as reassembled
// data becomes available. Every field is optional; a nil hook is
// simply not called. This stands in for the generated unit parser the
// original sink feeds bytes into — the host registers hooks instead of
// a full HILTI parser, since that machinery is out of scope (see
// SPEC_FULL.md §1).
type ConsumerHooks struct {
	// OnData delivers in-order reassembled bytes starting at the
	// absolute sequence number seq.
	OnData func(seq uint64, data []byte)
	// OnGap reports a run of length bytes at seq that will never
	// arrive, once the reassembler has no choice but to skip past it
	// to keep delivering later data.
	OnGap func(seq, length uint64)
	// OnOverlap reports bytes written a second time at seq over a
	// range that is still buffered, whether or not they differ;
	// newData is discarded under the First policy.
	OnOverlap func(seq uint64, oldData, newData []byte)
	// OnSkipped reports an explicit Skip call jumping the delivery
	// cursor forward; seq is the cursor's position before the jump,
	// where the skipped range begins.
	OnSkipped func(seq uint64)
	// OnUndelivered reports buffered data that Close is discarding
	// without ever having reached OnData, because it sat past a gap
	// that was never filled in.
	OnUndelivered func(seq uint64, data []byte)
	// OnEOD is called once, when the sink closes.
	OnEOD func()
}

// Filter transforms bytes written to a Sink before they enter its
// sequence space, per spec.md §9's filter-chain design note. Multiple
// filters connected to the same Sink chain in the order they were
// connected (SPEC_FULL.md §6's Open Question decision).
type Filter interface {
	Apply(data []byte) ([]byte, error)
}

type sinkState int

const (
	sinkNew sinkState = iota
	sinkActive
	sinkClosing
	sinkClosed
)

type sinkChunk struct {
	data         []byte // nil means a gap
	rseq, rupper uint64
}

// Sink reassembles out-of-order byte ranges written under absolute
// sequence numbers into an ordered stream, delivered to connected
// consumers as contiguous runs become available, per spec.md §5.
type Sink struct {
	mu sync.Mutex

	state sinkState

	consumers     map[ConsumerID]ConsumerHooks
	consumerOrder []ConsumerID

	filters []Filter

	policy   ReassemblerPolicy
	autoTrim bool

	size       uint64
	initialSeq uint64
	curRseq    uint64 // sequence of next byte to deliver, relative to initialSeq
	trimRseq   uint64 // sequence up to which buffered data has been trimmed
	writeRseq  uint64 // highest rupper seen so far, for seq-less Write calls

	chunks *list.List // *sinkChunk, ordered by rseq, non-overlapping

	fibers *FiberContext

	log *Logger
}

// NewSink returns a new, unconnected Sink using cfg's auto-trim
// default.
func NewSink(cfg Config) *Sink {
	return &Sink{
		state:      sinkNew,
		consumers:  make(map[ConsumerID]ConsumerHooks),
		autoTrim:   cfg.SinkAutoTrim,
		initialSeq: cfg.SinkInitialSequence,
		chunks:     list.New(),
		fibers:     NewFiberContext(cfg),
		log:        DefaultLogger().With("component", "sink"),
	}
}

// Connect registers hooks as a consumer of reassembled data and
// returns its ConsumerID.
func (s *Sink) Connect(hooks ConsumerHooks) ConsumerID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	s.consumers[id] = hooks
	s.consumerOrder = append(s.consumerOrder, id)
	if s.state == sinkNew {
		s.state = sinkActive
	}
	return id
}

// ConnectGrammar attaches a consumer with its own parsing fiber over
// g, started immediately against an empty, non-frozen input stream,
// per spec.md §4.7 ("attach a consumer with its own parsing fiber...
// started immediately with an empty, non-frozen input stream"). Each
// run of reassembled bytes the sink delivers is appended to that
// stream and the fiber resumed; Close's final eod call freezes the
// stream and resumes once more so the fiber can observe end of data.
// The returned Resumable surfaces the eventual parse result — or a
// ParseError, for example a literal mismatch — exactly the way any
// other fiber-driven parse does (see driver.go's ParseGrammar).
func (s *Sink) ConnectGrammar(g *Grammar) (ConsumerID, *Resumable) {
	stream := NewStream()
	view := stream.View()

	r := s.fibers.NewResumable(func(h *Handle) (any, error) {
		return ParseGrammar(h, view, g, Location{})
	})
	r.Run()

	// The fiber is deliberately not returned to the pool on completion
	// here: a caller inspecting r.Result()/r.Err() after the consumer
	// finishes must keep seeing that consumer's own outcome, and
	// FiberContext.NewResumable resets a pooled fiber when it hands it
	// out again — releasing it the moment this consumer is done would
	// let a later consumer overwrite whatever r still points at.
	// Nothing in Sink, Disconnect included, returns this fiber to the
	// pool.
	id := s.Connect(ConsumerHooks{
		OnData: func(seq uint64, data []byte) {
			if r.Done() {
				return
			}
			_ = stream.Append(data)
			r.Resume()
		},
		OnEOD: func() {
			if r.Done() {
				return
			}
			stream.Freeze()
			r.Resume()
		},
	})
	return id, r
}

// Disconnect removes a consumer; it receives no further callbacks.
func (s *Sink) Disconnect(id ConsumerID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.consumers, id)
	for i, c := range s.consumerOrder {
		if c == id {
			s.consumerOrder = append(s.consumerOrder[:i], s.consumerOrder[i+1:]...)
			break
		}
	}
}

// ConnectFilter appends f to the sink's filter chain. It must be
// called before any data has been written.
func (s *Sink) ConnectFilter(f Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.size > 0 {
		return newError(KindSinkError, "cannot connect filter after data has been forwarded already")
	}
	s.filters = append(s.filters, f)
	return nil
}

var (
	mimeRegistryMu sync.Mutex
	mimeRegistry   = map[string][]func() ConsumerHooks{}
)

// RegisterMIMEHandler registers a consumer factory for a MIME type,
// for later use by ConnectMIMEType. Scope (spec.md §5's "public units
// as well as units with the same scope") is accepted by
// ConnectMIMEType for API parity but not used to filter candidates:
// the scope-qualified visibility rules depend on HILTI's module/unit
// resolution, which is out of scope (SPEC_FULL.md §1).
func RegisterMIMEHandler(mimeType string, factory func() ConsumerHooks) {
	mimeRegistryMu.Lock()
	defer mimeRegistryMu.Unlock()
	mimeRegistry[mimeType] = append(mimeRegistry[mimeType], factory)
}

// ConnectMIMEType connects a fresh consumer instance for every
// factory registered under mt via RegisterMIMEHandler, returning their
// ConsumerIDs.
func (s *Sink) ConnectMIMEType(mt string, scope uint64) []ConsumerID {
	mimeRegistryMu.Lock()
	factories := append([]func() ConsumerHooks(nil), mimeRegistry[mt]...)
	mimeRegistryMu.Unlock()

	ids := make([]ConsumerID, 0, len(factories))
	for _, f := range factories {
		ids = append(ids, s.Connect(f()))
	}
	return ids
}

// SequenceNumber returns the absolute sequence number of the next
// byte the sink expects to deliver.
func (s *Sink) SequenceNumber() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aseq(s.curRseq)
}

// SetAutoTrim enables or disables trimming delivered data
// automatically as it's consumed.
func (s *Sink) SetAutoTrim(enable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoTrim = enable
}

// SetInitialSequenceNumber associates seq with the first byte of
// input. It must be called before any data (or gap) has been seen.
func (s *Sink) SetInitialSequenceNumber(seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.haveInput() {
		return newError(KindSinkError, "sink cannot update initial sequence number after activity has already been seen")
	}
	s.initialSeq = seq
	return nil
}

// SetPolicy sets the sink's reassembler policy.
func (s *Sink) SetPolicy(p ReassemblerPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = p
}

// Size returns the number of bytes written into the sink so far.
func (s *Sink) Size() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// State reports the sink's current lifecycle state: New, Active,
// Closing, or Closed.
func (s *Sink) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case sinkActive:
		return "Active"
	case sinkClosing:
		return "Closing"
	case sinkClosed:
		return "Closed"
	default:
		return "New"
	}
}

func (s *Sink) rseq(seq uint64) uint64 { return seq - s.initialSeq }
func (s *Sink) aseq(rseq uint64) uint64 { return s.initialSeq + rseq }
func (s *Sink) haveInput() bool         { return s.curRseq != 0 || s.chunks.Len() > 0 }

// Write forwards data to all connected consumers, reassembling it at
// an absolute sequence number. A nil seq defaults to the end of
// current input; a nil length defaults to len(data).
func (s *Sink) Write(data []byte, seq, length *uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == sinkClosed {
		return newError(KindSinkError, "sink is closed")
	}

	for _, f := range s.filters {
		filtered, err := f.Apply(data)
		if err != nil {
			return newError(KindSinkError, "filter failed: %v", err)
		}
		data = filtered
	}

	n := uint64(len(data))
	if length != nil {
		n = *length
	}

	var rs uint64
	if seq != nil {
		rs = s.rseq(*seq)
	} else {
		rs = s.writeRseq
	}
	ru := rs + n

	s.size += n
	s.insertChunk(data, rs, ru)
	if ru > s.writeRseq {
		s.writeRseq = ru
	}
	s.tryDeliver()
	return nil
}

// Gap reports a run of length bytes at the absolute sequence number
// seq that the sink should treat as a hole in the stream.
func (s *Sink) Gap(seq, length uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs := s.rseq(seq)
	ru := rs + length
	s.insertChunk(nil, rs, ru)
	if ru > s.writeRseq {
		s.writeRseq = ru
	}
	s.tryDeliver()
}

// Skip jumps the delivery cursor forward to the absolute sequence
// number seq, reporting anything that was never delivered in between
// via OnSkipped rather than OnGap.
func (s *Sink) Skip(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs := s.rseq(seq)
	if rs <= s.curRseq {
		return
	}

	s.reportSkipped(s.curRseq)
	s.dropChunksBefore(rs)
	s.curRseq = rs
	s.tryDeliver()
}

// Trim discards buffered data up to the absolute sequence number seq;
// it is safe to call repeatedly or with a seq already trimmed past.
func (s *Sink) Trim(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs := s.rseq(seq)
	if rs <= s.trimRseq {
		return
	}
	s.trimRseq = rs
	s.dropChunksBefore(rs)
}

// Close disconnects all consumers. Any data still buffered past an
// unfilled gap is reported via OnUndelivered, then every consumer gets
// one last eod chance, in connection order, one at a time: the core
// never introduces concurrency of its own (spec.md §5), and a unit's
// fiber-driven eod handling behind OnEOD is not safe to re-enter from
// more than one goroutine at once.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.state == sinkClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = sinkClosing
	s.log.Debug("closing", "consumers", len(s.consumerOrder), "size", s.size)

	for e := s.chunks.Front(); e != nil; e = e.Next() {
		c := e.Value.(*sinkChunk)
		if c.data != nil {
			s.reportUndelivered(c.rseq, c.data)
		}
	}
	s.chunks.Init()

	hooks := make([]ConsumerHooks, 0, len(s.consumerOrder))
	for _, id := range s.consumerOrder {
		hooks = append(hooks, s.consumers[id])
	}
	s.state = sinkClosed
	s.mu.Unlock()

	for _, h := range hooks {
		if h.OnEOD != nil {
			h.OnEOD()
		}
	}
	return nil
}

// insertChunk merges [rseq, rupper) into the chunk list under the
// First policy: bytes already covering part of the range win, and any
// conflicting new bytes there are reported via OnOverlap instead of
// stored. Gaps (data == nil) never override real data either.
func (s *Sink) insertChunk(data []byte, rseq, rupper uint64) {
	if rupper <= s.trimRseq {
		return
	}
	if rseq < s.trimRseq {
		if data != nil {
			data = data[s.trimRseq-rseq:]
		}
		rseq = s.trimRseq
	}

	segStart := rseq
	e := s.chunks.Front()

	for segStart < rupper {
		for e != nil && e.Value.(*sinkChunk).rupper <= segStart {
			e = e.Next()
		}

		if e == nil {
			s.insertBefore(data, rseq, segStart, rupper, nil)
			return
		}

		c := e.Value.(*sinkChunk)
		if c.rseq >= rupper {
			s.insertBefore(data, rseq, segStart, rupper, e)
			return
		}

		if segStart < c.rseq {
			s.insertBefore(data, rseq, segStart, c.rseq, e)
			segStart = c.rseq
			continue
		}

		overlapEnd := rupper
		if c.rupper < overlapEnd {
			overlapEnd = c.rupper
		}
		if data != nil && c.data != nil {
			newSub := subslice(data, rseq, segStart, overlapEnd)
			oldSub := subslice(c.data, c.rseq, segStart, overlapEnd)
			s.reportOverlap(segStart, oldSub, newSub)
		}
		segStart = overlapEnd
		if segStart >= c.rupper {
			e = e.Next()
		}
	}
}

// insertBefore inserts the sub-range [from, to) of the logical range
// starting at origin (with origin's data, if any) as a new chunk
// immediately before at (or at the back of the list if at is nil).
func (s *Sink) insertBefore(data []byte, origin, from, to uint64, at *list.Element) {
	var d []byte
	if data != nil {
		d = subslice(data, origin, from, to)
	}
	nc := &sinkChunk{data: d, rseq: from, rupper: to}
	if at == nil {
		s.chunks.PushBack(nc)
	} else {
		s.chunks.InsertBefore(nc, at)
	}
}

func subslice(data []byte, origin, from, to uint64) []byte {
	return data[from-origin : to-origin]
}

// dropChunksBefore discards or truncates buffered chunks so nothing
// before rseq remains.
func (s *Sink) dropChunksBefore(rseq uint64) {
	for e := s.chunks.Front(); e != nil; {
		c := e.Value.(*sinkChunk)
		next := e.Next()
		switch {
		case c.rupper <= rseq:
			s.chunks.Remove(e)
		case c.rseq < rseq:
			if c.data != nil {
				c.data = c.data[rseq-c.rseq:]
			}
			c.rseq = rseq
		}
		e = next
	}
}

// tryDeliver hands off every contiguous run starting at curRseq to
// connected consumers, stopping at the first gap in sequence space
// that isn't itself a recorded Gap chunk.
func (s *Sink) tryDeliver() {
	for {
		e := s.chunks.Front()
		if e == nil {
			return
		}
		c := e.Value.(*sinkChunk)
		if c.rseq > s.curRseq {
			return
		}

		start := c.rseq
		if s.curRseq > start {
			start = s.curRseq
		}
		if start >= c.rupper {
			// Entirely at or before the delivery cursor: nothing left.
			s.chunks.Remove(e)
			continue
		}

		if c.data == nil {
			s.reportGap(start, c.rupper-start)
		} else {
			s.deliver(start, c.data[start-c.rseq:])
		}

		s.curRseq = c.rupper
		s.chunks.Remove(e)

		if s.autoTrim {
			s.trimRseq = s.curRseq
			s.dropChunksBefore(s.curRseq)
		}
	}
}

func (s *Sink) deliver(rseq uint64, data []byte) {
	seq := s.aseq(rseq)
	for _, id := range s.consumerOrder {
		if h := s.consumers[id].OnData; h != nil {
			h(seq, data)
		}
	}
}

func (s *Sink) reportGap(rseq, length uint64) {
	seq := s.aseq(rseq)
	s.log.Debug("gap", "seq", seq, "length", length)
	for _, id := range s.consumerOrder {
		if h := s.consumers[id].OnGap; h != nil {
			h(seq, length)
		}
	}
}

func (s *Sink) reportOverlap(rseq uint64, oldData, newData []byte) {
	seq := s.aseq(rseq)
	s.log.Debug("overlap", "seq", seq, "old_len", len(oldData), "new_len", len(newData))
	for _, id := range s.consumerOrder {
		if h := s.consumers[id].OnOverlap; h != nil {
			h(seq, oldData, newData)
		}
	}
}

func (s *Sink) reportSkipped(rseq uint64) {
	seq := s.aseq(rseq)
	for _, id := range s.consumerOrder {
		if h := s.consumers[id].OnSkipped; h != nil {
			h(seq)
		}
	}
}

func (s *Sink) reportUndelivered(rseq uint64, data []byte) {
	seq := s.aseq(rseq)
	for _, id := range s.consumerOrder {
		if h := s.consumers[id].OnUndelivered; h != nil {
			h(seq, data)
		}
	}
}
