// Package focus implements the edge-crossing state machines: Primary runs
// on the host whose physical input is shared, Secondary on the host
// receiving it. Both are driven synchronously from the interceptor's or the
// session reader's callback thread, matching the concurrency model's
// confinement of state transitions to a single thread.
package focus

import (
	"log"
	"sync/atomic"

	"mouseshare/internal/event"
	"mouseshare/internal/topology"
	"mouseshare/internal/transport"
)

// PrimaryState is the primary-side focus state.
type PrimaryState int32

const (
	StateLocal PrimaryState = iota
	StateRemote
)

func (s PrimaryState) String() string {
	if s == StateRemote {
		return "REMOTE"
	}
	return "LOCAL"
}

// VKScrollLock and VKF8 are the default panic-release and user-toggle
// virtual key codes, matching the Windows VK_SCROLL / VK_F8 values the
// interceptor and injector already speak in.
const (
	VKScrollLock uint32 = 0x91
	VKF8         uint32 = 0x77
)

// Primary drives the LOCAL/REMOTE state machine described in §4.6. It owns
// no resources beyond its state and counters, and consults the topology
// only under the topology mutex (topology.Topology.NeighborAt already does
// this internally).
type Primary struct {
	state atomic.Int32

	topo          *topology.Topology
	session       atomic.Pointer[transport.Session]
	screenW       int32
	screenH       int32
	defaultEdge   event.Edge
	userToggleKey uint32

	setSuppress func(bool)
	warpCursor  func(x, y int32)

	logger *log.Logger
}

// NewPrimary constructs a Primary focus controller. setSuppress and
// warpCursor are the interceptor's corresponding methods, injected rather
// than imported directly so focus has no compile-time dependency on a
// concrete platform interceptor (mirroring how the session reader feeds the
// secondary controller through a callback, per the design notes' note on
// breaking the Session/FocusController cycle).
func NewPrimary(topo *topology.Topology, screenW, screenH int32, defaultEdge event.Edge, userToggleKey uint32, setSuppress func(bool), warpCursor func(x, y int32), logger *log.Logger) *Primary {
	if logger == nil {
		logger = log.Default()
	}
	return &Primary{
		topo: topo, screenW: screenW, screenH: screenH,
		defaultEdge: defaultEdge, userToggleKey: userToggleKey,
		setSuppress: setSuppress, warpCursor: warpCursor, logger: logger,
	}
}

// State returns the current focus state.
func (p *Primary) State() PrimaryState { return PrimaryState(p.state.Load()) }

// SetSession installs (or clears, with nil) the active session. Called by
// the network thread when a connection is accepted or lost.
func (p *Primary) SetSession(s *transport.Session) {
	p.session.Store(s)
	if s == nil && p.State() == StateRemote {
		p.revertToLocal()
	}
}

func (p *Primary) sessionOpen() (*transport.Session, bool) {
	s := p.session.Load()
	if s == nil || s.State() != transport.StateOpen {
		return nil, false
	}
	return s, true
}

// atEdge classifies a cursor position against the local screen rectangle.
// LEFT/RIGHT are checked before TOP/BOTTOM so a corner prefers the
// horizontal edge, per the documented tie-break.
func atEdge(absX, absY, w, h int32) event.Edge {
	switch {
	case absX <= 0:
		return event.EdgeLeft
	case absX >= w-1:
		return event.EdgeRight
	case absY <= 0:
		return event.EdgeTop
	case absY >= h-1:
		return event.EdgeBottom
	default:
		return event.EdgeNone
	}
}

func perpendicularCoord(edge event.Edge, absX, absY int32) int32 {
	if edge == event.EdgeLeft || edge == event.EdgeRight {
		return absY
	}
	return absX
}

// recoverCallback guards one invocation of a hook-thread callback: a panic
// here must not crash the interceptor's hook thread, matching the teacher's
// recoverMiddleware pattern.
func (p *Primary) recoverCallback(which string) {
	if r := recover(); r != nil {
		p.logger.Printf("focus: PANIC RECOV in %s: %v", which, r)
	}
}

// OnMove handles a mouse-move callback from the interceptor.
func (p *Primary) OnMove(absX, absY, dx, dy int32) {
	defer p.recoverCallback("OnMove")
	if p.State() == StateRemote {
		p.send(event.MouseMove(absX, absY, dx, dy))
		return
	}

	session, open := p.sessionOpen()
	if !open {
		return
	}
	edge := atEdge(absX, absY, p.screenW, p.screenH)
	if edge == event.EdgeNone {
		return
	}
	perp := perpendicularCoord(edge, absX, absY)
	if _, ok := p.topo.NeighborAt(edge, perp); !ok {
		return
	}

	p.state.Store(int32(StateRemote))
	p.setSuppress(true)
	if err := session.Send(event.SwitchScreen(edge.Opposite(), perp)); err != nil {
		p.logger.Printf("focus: switch send failed: %v", err)
		p.revertToLocal()
		return
	}
	p.warpCursor(p.screenW/2, p.screenH/2)
}

// OnButton handles a mouse-button callback.
func (p *Primary) OnButton(b event.Button, pressed bool) {
	defer p.recoverCallback("OnButton")
	if p.State() == StateRemote {
		p.send(event.MouseButton(b, pressed))
	}
}

// OnScroll handles a scroll-wheel callback.
func (p *Primary) OnScroll(dx, dy int32) {
	defer p.recoverCallback("OnScroll")
	if p.State() == StateRemote {
		p.send(event.MouseScroll(dx, dy))
	}
}

// OnKey handles a key callback, including the panic-release and
// user-toggle keys, which are evaluated regardless of the emergency-key
// forwarding decision C1 makes separately.
func (p *Primary) OnKey(vk, scan, flags uint32, pressed bool) {
	defer p.recoverCallback("OnKey")
	if vk == VKScrollLock && pressed {
		p.revertToLocal()
		return
	}
	if vk == p.userToggleKey && pressed {
		p.toggleViaHotkey()
		return
	}
	if p.State() == StateRemote {
		p.send(event.Key(vk, scan, flags, pressed))
	}
}

// toggleViaHotkey flips focus manually. Per the REDESIGN FLAGS decision,
// this is a no-op if no session is OPEN — the original source's
// inconsistency here is deliberately not reproduced.
func (p *Primary) toggleViaHotkey() {
	session, open := p.sessionOpen()
	if !open {
		return
	}
	if p.State() == StateRemote {
		p.revertToLocal()
		return
	}

	p.state.Store(int32(StateRemote))
	p.setSuppress(true)
	mid := p.screenH / 2
	if p.defaultEdge == event.EdgeTop || p.defaultEdge == event.EdgeBottom {
		mid = p.screenW / 2
	}
	if err := session.Send(event.SwitchScreen(p.defaultEdge.Opposite(), mid)); err != nil {
		p.logger.Printf("focus: toggle switch send failed: %v", err)
		p.revertToLocal()
		return
	}
	p.warpCursor(p.screenW/2, p.screenH/2)
}

// revertToLocal forces LOCAL and then drops suppress. It is called from the
// interception thread, from SetSession(nil) on the network thread, and from
// App Glue's manual toggle; the two stores below are separate atomic
// operations and no lock is held around them.
func (p *Primary) revertToLocal() {
	p.state.Store(int32(StateLocal))
	p.setSuppress(false)
}

func (p *Primary) send(e event.Event) {
	session, open := p.sessionOpen()
	if !open {
		return
	}
	if err := session.Send(e); err != nil {
		p.logger.Printf("focus: send failed, reverting to LOCAL: %v", err)
		p.revertToLocal()
	}
}
