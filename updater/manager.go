// Package updater implements the set-reconciliation updater: a per-peer
// session state machine that polls neighbors, estimates symmetric-difference
// size, exchanges IBLTs, fetches missing content, and admits it into the
// local store.
package updater

import (
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"
	"golang.org/x/sync/errgroup"

	"github.com/covenantmesh/covnode/contentstore"
	"github.com/covenantmesh/covnode/iblt"
	"github.com/covenantmesh/covnode/relaywire"
)

// logClosure defers formatting of a trace-level log line until the logger
// has decided it will actually be emitted, so spew.Sdump never runs on a
// hot path when trace logging is disabled.
type logClosure func() string

func (c logClosure) String() string { return c() }

func newLogClosure(f func() string) logClosure { return logClosure(f) }

// Disconnecter is implemented by transports that want the manager's
// timeout policy to be able to sever a peer outright rather than merely
// dropping local session state. It is optional: a Transport that doesn't
// implement it simply never gets disconnect calls.
type Disconnecter interface {
	Disconnect(peerID string)
}

// Config configures a Manager. Every field MUST be non-nil; New returns
// ErrNilConfig otherwise.
type Config struct {
	// Store is the read/write facade onto locally held content.
	Store contentstore.Store

	// Transport delivers outbound messages to peers.
	Transport Transport

	// Tracker expires stuck per-peer expectations.
	Tracker *Tracker

	// Metrics are the counters the manager increments as it runs.
	Metrics *Metrics

	// PollTick is the interval between timeout-tracker checks. Defaults
	// to DefaultPollTick if zero.
	PollTick time.Duration

	// InboundBufferSize bounds the manager's inbound event channel,
	// standing in for the transport's configured back-pressure. Defaults
	// to 100 if zero.
	InboundBufferSize int
}

func (cfg *Config) validate() error {
	if cfg.Store == nil || cfg.Transport == nil || cfg.Tracker == nil || cfg.Metrics == nil {
		return ErrNilConfig
	}
	return nil
}

// Manager is the set-reconciliation updater: one dispatch goroutine serializes
// every per-peer session transition, fed by a bounded inbound event channel.
// A second goroutine turns the configured poll interval into tick events on
// that same channel. The store is the only resource shared with the rest of
// the system; the manager's session map is private to the dispatch
// goroutine.
type Manager struct {
	started  int32
	shutdown int32

	cfg *Config

	inbound  chan *Event
	sessions map[string]*session

	quit chan struct{}
	eg   *errgroup.Group

	// selfID identifies this manager to collaborators that route
	// messages directly between two in-process managers without a real
	// network (tests, or a same-process transport).
	selfID string
}

// New constructs a Manager from cfg. It does not start any goroutines; call
// Start for that.
func New(cfg *Config) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.PollTick == 0 {
		cfg.PollTick = DefaultPollTick
	}
	bufSize := cfg.InboundBufferSize
	if bufSize == 0 {
		bufSize = 100
	}

	return &Manager{
		cfg:      cfg,
		inbound:  make(chan *Event, bufSize),
		sessions: make(map[string]*session),
		quit:     make(chan struct{}),
	}, nil
}

// Start launches the manager's two supervisor goroutines: the dispatch loop
// and the tick feeder.
func (m *Manager) Start() error {
	if !atomic.CompareAndSwapInt32(&m.started, 0, 1) {
		return nil
	}

	var eg errgroup.Group
	eg.Go(m.tickLoop)
	eg.Go(m.dispatchLoop)
	m.eg = &eg

	return nil
}

// Stop signals both supervisor goroutines to exit and waits for them.
func (m *Manager) Stop() error {
	if !atomic.CompareAndSwapInt32(&m.shutdown, 0, 1) {
		return nil
	}

	close(m.quit)
	if m.eg == nil {
		return nil
	}
	return m.eg.Wait()
}

// PeerConnected notifies the manager that peerID is newly reachable.
func (m *Manager) PeerConnected(peerID string) {
	m.send(&Event{Kind: EventPeerConnected, PeerID: peerID})
}

// PeerDisconnected notifies the manager that peerID has gone away.
func (m *Manager) PeerDisconnected(peerID string) {
	m.send(&Event{Kind: EventPeerDisconnected, PeerID: peerID})
}

// HandleMessage delivers an inbound relay protocol message from peerID.
func (m *Manager) HandleMessage(peerID string, msg relaywire.Message) {
	m.send(&Event{Kind: EventMessage, PeerID: peerID, Msg: msg})
}

func (m *Manager) send(ev *Event) {
	select {
	case m.inbound <- ev:
	case <-m.quit:
	}
}

func (m *Manager) tickLoop() error {
	ticker := time.NewTicker(m.cfg.PollTick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.send(&Event{Kind: EventTick})
		case <-m.quit:
			return nil
		}
	}
}

func (m *Manager) dispatchLoop() error {
	for {
		select {
		case ev := <-m.inbound:
			m.handleEvent(ev)
		case <-m.quit:
			return nil
		}
	}
}

func (m *Manager) handleEvent(ev *Event) {
	switch ev.Kind {
	case EventPeerConnected:
		m.handlePeerConnected(ev.PeerID)
	case EventPeerDisconnected:
		m.handlePeerDisconnected(ev.PeerID)
	case EventMessage:
		m.handleMessage(ev.PeerID, ev.Msg)
	case EventTick:
		m.handleTick()
	}
}

func (m *Manager) sessionFor(peerID string) *session {
	sess, ok := m.sessions[peerID]
	if !ok {
		sess = &session{state: StateIdle}
		m.sessions[peerID] = sess
	}
	return sess
}

// handlePeerConnected implements transition 1: snapshot our keyset, send a
// PollContent, and record the expectation.
func (m *Manager) handlePeerConnected(peerID string) {
	tip, ok := m.cfg.Store.Tip()
	if !ok {
		log.Debugf("peer %v connected with no tip known yet, deferring poll", peerID)
		return
	}

	sketch := m.cfg.Store.Sketch()
	nkeys := m.cfg.Store.NumKeys()

	sess := m.sessionFor(peerID)
	sess.state = StatePollAsked
	sess.ourPoll = &savedPoll{tip: tip, sketch: sketch, size: nkeys}

	sketchBytes, err := sketch.MarshalBinary()
	if err != nil {
		log.Errorf("marshal sketch for %v: %v", peerID, err)
		return
	}

	msg := &relaywire.PollContent{Tip: tip, Sketch: sketchBytes, Size: nkeys}
	if err := m.cfg.Transport.Send(peerID, msg); err != nil {
		log.Errorf("send poll_content to %v: %v", peerID, err)
		return
	}

	m.cfg.Tracker.Expect(peerID, CategoryPollContent, 1, time.Now())
	m.cfg.Metrics.PollsSent.Inc()
}

// handlePeerDisconnected implements transition 2.
func (m *Manager) handlePeerDisconnected(peerID string) {
	delete(m.sessions, peerID)
	m.cfg.Tracker.DropPeer(peerID)
}

func (m *Manager) handleMessage(peerID string, msg relaywire.Message) {
	log.Tracef("received message from %v: %v", peerID, newLogClosure(func() string {
		return spew.Sdump(msg)
	}))

	switch msg := msg.(type) {
	case *relaywire.PollContent:
		m.handlePollContent(peerID, msg)
	case *relaywire.IBLT:
		m.handleIBLT(peerID, msg)
	case *relaywire.Get:
		m.handleGet(peerID, msg)
	case *relaywire.Content:
		m.handleContent(peerID, msg)
	default:
		log.Warnf("ignoring unrecognized message from %v", peerID)
	}
}

// handlePollContent implements transition 3.
func (m *Manager) handlePollContent(peerID string, msg *relaywire.PollContent) {
	sess, hadSession := m.sessions[peerID]
	if !hadSession || sess.ourPoll == nil {
		// Initial inbound request from the peer: start our own poll.
		m.handlePeerConnected(peerID)
		return
	}

	m.cfg.Tracker.Clear(peerID, CategoryPollContent)

	ourTip, ok := m.cfg.Store.Tip()
	if !ok || ourTip != sess.ourPoll.tip || ourTip != msg.Tip {
		sess.state = StateIdle
		sess.ourPoll = nil
		return
	}

	var remoteSketch iblt.Sketch
	if err := remoteSketch.UnmarshalBinary(msg.Sketch); err != nil {
		log.Errorf("unmarshal sketch from %v: %v", peerID, err)
		return
	}

	diff := iblt.EstimateDiffSize(sess.ourPoll.sketch, sess.ourPoll.size, &remoteSketch, msg.Size)
	size := chooseIBLTSize(diff)

	table, err := m.cfg.Store.IBLT(size)
	if err != nil {
		log.Errorf("build iblt for %v: %v", peerID, err)
		return
	}
	tableBytes, err := table.MarshalBinary()
	if err != nil {
		log.Errorf("marshal iblt for %v: %v", peerID, err)
		return
	}

	if err := m.cfg.Transport.Send(peerID, &relaywire.IBLT{Tip: ourTip, Table: tableBytes}); err != nil {
		log.Errorf("send iblt to %v: %v", peerID, err)
		return
	}

	sess.state = StateIBLTExchanging
	m.cfg.Tracker.Expect(peerID, CategoryIBLT, 1, time.Now())
	m.cfg.Metrics.IBLTsSent.Inc()
}

// handleIBLT implements transition 4.
func (m *Manager) handleIBLT(peerID string, msg *relaywire.IBLT) {
	m.cfg.Tracker.Clear(peerID, CategoryIBLT)

	ourTip, ok := m.cfg.Store.Tip()
	if !ok || ourTip != msg.Tip {
		return
	}

	var remoteTable iblt.IBLT
	if err := remoteTable.UnmarshalBinary(msg.Table); err != nil {
		log.Errorf("unmarshal iblt from %v: %v", peerID, err)
		return
	}

	localTable, err := m.cfg.Store.IBLT(remoteTable.Len())
	if err != nil {
		log.Errorf("build local iblt for %v: %v", peerID, err)
		return
	}

	diff, err := remoteTable.Subtract(localTable)
	if err != nil {
		log.Errorf("subtract iblt for %v: %v", peerID, err)
		return
	}

	entries, ok := diff.Decode()
	if !ok {
		log.Debugf("iblt decode failed for %v, abandoning round", peerID)
		m.cfg.Metrics.DecodeFailures.Inc()
		return
	}

	var ids [][32]byte
	for _, e := range entries {
		if e.Sign > 0 {
			ids = append(ids, e.Key.Digest)
		}
	}
	if len(ids) == 0 {
		return
	}

	if err := m.cfg.Transport.Send(peerID, &relaywire.Get{IDs: ids}); err != nil {
		log.Errorf("send get to %v: %v", peerID, err)
		return
	}

	sess := m.sessionFor(peerID)
	sess.state = StateFetching
	m.cfg.Tracker.Expect(peerID, CategoryContent, len(ids), time.Now())
}

// handleContent implements transition 5.
func (m *Manager) handleContent(peerID string, msg *relaywire.Content) {
	remaining := m.cfg.Tracker.Decrement(peerID, CategoryContent)

	if err := m.cfg.Store.AddContent(msg.Content); err != nil {
		log.Debugf("add_content from %v rejected: %v", peerID, err)
		m.cfg.Metrics.ContentRejected.Inc()
	} else {
		m.cfg.Metrics.ContentAdded.Inc()
	}

	if remaining == 0 {
		if err := m.cfg.Store.TruncateToLimit(); err != nil {
			panic(err)
		}
		if sess, ok := m.sessions[peerID]; ok {
			sess.state = StateIdle
		}
	}
}

// handleGet implements transition 6.
func (m *Manager) handleGet(peerID string, msg *relaywire.Get) {
	for _, id := range msg.IDs {
		content, ok := m.cfg.Store.GetContent(id)
		if !ok {
			continue
		}
		if err := m.cfg.Transport.Send(peerID, &relaywire.Content{Content: content}); err != nil {
			log.Errorf("send content to %v: %v", peerID, err)
			return
		}
	}
}

// handleTick implements transition 7.
func (m *Manager) handleTick() {
	expired := m.cfg.Tracker.CheckExpired(time.Now())
	for _, e := range expired {
		log.Debugf("expectation %v for %v expired", e.Category, e.PeerID)
		delete(m.sessions, e.PeerID)
		m.cfg.Metrics.PeersTimedOut.Inc()

		if d, ok := m.cfg.Transport.(Disconnecter); ok {
			d.Disconnect(e.PeerID)
		}
	}
}
