package focus

import (
	"log"
	"sync"
	"sync/atomic"

	"mouseshare/internal/event"
)

// SecondaryState is the secondary-side focus state.
type SecondaryState int32

const (
	StateIdle SecondaryState = iota
	StateActive
)

func (s SecondaryState) String() string {
	if s == StateActive {
		return "ACTIVE"
	}
	return "IDLE"
}

// Injector is the subset of the input injector C2 the secondary controller
// drives. Accepting an interface here, rather than a concrete type, keeps
// focus decoupled from the platform-specific injector implementation.
type Injector interface {
	MoveAbsolute(x, y int32)
	Button(b event.Button, pressed bool)
	Scroll(dx, dy int32)
	Key(vk, scan, flags uint32, pressed bool)
}

// Secondary drives the IDLE/ACTIVE state machine described in §4.6. Its
// cursor/entry-edge/sender-dimension fields are mutated only from the
// session reader's callback thread and are guarded by mu; App Glue's status
// reporting reads only the atomic state, through State.
type Secondary struct {
	state atomic.Int32

	mu        sync.Mutex
	cursorX   int32
	cursorY   int32
	entryEdge event.Edge
	senderW   int32
	senderH   int32

	localW int32
	localH int32

	injector Injector
	logger   *log.Logger
}

// NewSecondary constructs a Secondary focus controller for a screen of the
// given dimensions.
func NewSecondary(localW, localH int32, injector Injector) *Secondary {
	return &Secondary{
		localW: localW, localH: localH, injector: injector,
		senderW: localW, senderH: localH, logger: log.Default(),
	}
}

// recoverCallback guards one invocation of a session-reader-thread callback:
// a panic here must not crash the goroutine driving App Glue's read loop,
// matching the teacher's recoverMiddleware pattern.
func (s *Secondary) recoverCallback(which string) {
	if r := recover(); r != nil {
		s.logger.Printf("focus: PANIC RECOV in %s: %v", which, r)
	}
}

// State returns the current focus state.
func (s *Secondary) State() SecondaryState { return SecondaryState(s.state.Load()) }

// scale implements the integer coordinate scaling §4.6 specifies:
// pos * local / sender.
func scale(pos, senderDim, localDim int32) int32 {
	if senderDim == 0 {
		return 0
	}
	return pos * localDim / senderDim
}

func (s *Secondary) senderDimFor(edge event.Edge) int32 {
	if edge == event.EdgeLeft || edge == event.EdgeRight {
		return s.senderH
	}
	return s.senderW
}

func (s *Secondary) localDimFor(edge event.Edge) int32 {
	if edge == event.EdgeLeft || edge == event.EdgeRight {
		return s.localH
	}
	return s.localW
}

// OnSwitchScreen handles a SwitchScreen frame, entering ACTIVE just inside
// the named edge.
func (s *Secondary) OnSwitchScreen(edge event.Edge, position int32) {
	defer s.recoverCallback("OnSwitchScreen")

	s.mu.Lock()
	perp := scale(position, s.senderDimFor(edge), s.localDimFor(edge))
	s.entryEdge = edge
	switch edge {
	case event.EdgeLeft:
		s.cursorX, s.cursorY = 0, perp
	case event.EdgeRight:
		s.cursorX, s.cursorY = s.localW-1, perp
	case event.EdgeTop:
		s.cursorX, s.cursorY = perp, 0
	case event.EdgeBottom:
		s.cursorX, s.cursorY = perp, s.localH-1
	}
	x, y := s.cursorX, s.cursorY
	s.mu.Unlock()

	s.state.Store(int32(StateActive))
	s.injector.MoveAbsolute(x, y)
}

func clamp(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (s *Secondary) onEntryEdgeLocked() bool {
	switch s.entryEdge {
	case event.EdgeLeft:
		return s.cursorX <= 0
	case event.EdgeRight:
		return s.cursorX >= s.localW-1
	case event.EdgeTop:
		return s.cursorY <= 0
	case event.EdgeBottom:
		return s.cursorY >= s.localH-1
	default:
		return false
	}
}

// OnMouseMove handles a MouseMove frame while ACTIVE, applying the delta,
// clamping to screen, and returning to IDLE if the cursor lands back on the
// entry edge.
func (s *Secondary) OnMouseMove(dx, dy int32) {
	defer s.recoverCallback("OnMouseMove")
	if s.State() != StateActive {
		return
	}

	s.mu.Lock()
	s.cursorX = clamp(s.cursorX+dx, 0, s.localW-1)
	s.cursorY = clamp(s.cursorY+dy, 0, s.localH-1)
	x, y := s.cursorX, s.cursorY
	backToIdle := s.onEntryEdgeLocked()
	if backToIdle {
		x, y = s.localW/2, s.localH/2
		s.cursorX, s.cursorY = x, y
	}
	s.mu.Unlock()

	s.injector.MoveAbsolute(x, y)
	if backToIdle {
		s.state.Store(int32(StateIdle))
	}
}

// OnButton applies a MouseButton frame iff ACTIVE; dropped otherwise
// because it is stale (the user is on the primary).
func (s *Secondary) OnButton(b event.Button, pressed bool) {
	defer s.recoverCallback("OnButton")
	if s.State() == StateActive {
		s.injector.Button(b, pressed)
	}
}

// OnScroll applies a MouseScroll frame iff ACTIVE.
func (s *Secondary) OnScroll(dx, dy int32) {
	defer s.recoverCallback("OnScroll")
	if s.State() == StateActive {
		s.injector.Scroll(dx, dy)
	}
}

// OnKey applies a Key frame iff ACTIVE.
func (s *Secondary) OnKey(vk, scan, flags uint32, pressed bool) {
	defer s.recoverCallback("OnKey")
	if s.State() == StateActive {
		s.injector.Key(vk, scan, flags, pressed)
	}
}

// OnScreenInfo updates the stored sender dimensions used by scale.
func (s *Secondary) OnScreenInfo(w, h int32) {
	defer s.recoverCallback("OnScreenInfo")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.senderW, s.senderH = w, h
}

// Reset forces IDLE, the secondary-side half of §7's recoverable-session
// policy ("close session, reset focus to LOCAL/IDLE, release suppress").
// App Glue calls this on every session disconnect so a session that drops
// while ACTIVE (e.g. idle-timeout mid-drag) doesn't leave the controller
// reporting/behaving as ACTIVE with no session left to correct it.
func (s *Secondary) Reset() {
	s.state.Store(int32(StateIdle))
}
