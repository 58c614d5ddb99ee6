// Package topology tracks the live set of discovered peers and their
// virtual-layout rectangles. It owns the single mutex the rest of the
// system calls the "topology mutex": held only for a lookup, insertion, or
// reap, never across I/O, per the documented lock order (topology before
// send, never the reverse).
package topology

import (
	"sort"
	"sync"
	"time"

	"mouseshare/internal/event"
)

// PeerRecord describes one host on the LAN, local or remote.
type PeerRecord struct {
	ID          string
	Name        string
	IP          string
	Port        int
	ScreenW     int32
	ScreenH     int32
	IsPrimary   bool
	LastSeen    time.Time
	IsConnected bool
	LayoutX     int32
	LayoutY     int32
}

// Topology is the id -> PeerRecord map plus the local peer's own record.
// The local peer is always present and never expires.
type Topology struct {
	mu      sync.Mutex
	localID string
	peers   map[string]PeerRecord
}

// New creates a Topology seeded with the local peer's own record, at the
// layout position that record carries (the zero value places it at the
// origin of the shared virtual-layout space).
func New(local PeerRecord) *Topology {
	local.IsConnected = true
	local.LastSeen = time.Time{}
	t := &Topology{
		localID: local.ID,
		peers:   make(map[string]PeerRecord),
	}
	t.peers[local.ID] = local
	return t
}

// Upsert inserts or refreshes a remote peer. A brand-new peer is placed
// immediately to the right of the current rightmost peer in virtual-layout
// coordinates; an existing peer keeps its layout position and its
// IsConnected flag, refreshing only the attributes the discovery packet
// actually describes (screen size, name, last-seen). IsConnected is never
// taken from the incoming record: discovery packets always carry
// IsConnected false (a peer has no way to know its own session state from
// the broadcast loop alone), and only SetConnected — driven by an actual
// session accept/connect/close — may change it, so a routine re-broadcast
// from an already-connected peer must not undo that.
func (t *Topology) Upsert(p PeerRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.peers[p.ID]; ok {
		p.LayoutX = existing.LayoutX
		p.LayoutY = existing.LayoutY
		p.IsConnected = existing.IsConnected
		t.peers[p.ID] = p
		return
	}

	p.LayoutX, p.LayoutY = t.nextSlotLocked()
	t.peers[p.ID] = p
}

// nextSlotLocked computes the position immediately right of the rightmost
// known peer (local included). Caller must hold mu.
func (t *Topology) nextSlotLocked() (int32, int32) {
	var rightmostX, y int32
	first := true
	for _, p := range t.peers {
		edge := p.LayoutX + p.ScreenW
		if first || edge > rightmostX {
			rightmostX = edge
			y = p.LayoutY
			first = false
		}
	}
	return rightmostX, y
}

// SetConnected updates a peer's connection flag, used when the session
// transport transitions OPEN/CLOSED.
func (t *Topology) SetConnected(id string, connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.peers[id]; ok {
		p.IsConnected = connected
		t.peers[id] = p
	}
}

// Reap removes remote peers not heard from in the last expiry duration,
// relative to now. The local peer is exempt. Returns the ids removed.
func (t *Topology) Reap(now time.Time, expiry time.Duration) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []string
	for id, p := range t.peers {
		if id == t.localID {
			continue
		}
		if now.Sub(p.LastSeen) > expiry {
			delete(t.peers, id)
			removed = append(removed, id)
		}
	}
	return removed
}

// Get returns a single peer by id.
func (t *Topology) Get(id string) (PeerRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[id]
	return p, ok
}

// Local returns the local peer's own record.
func (t *Topology) Local() PeerRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peers[t.localID]
}

// SetLocalScreen updates the local peer's advertised screen size.
func (t *Topology) SetLocalScreen(w, h int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	local := t.peers[t.localID]
	local.ScreenW, local.ScreenH = w, h
	t.peers[t.localID] = local
}

// All returns a snapshot of every peer, local included.
func (t *Topology) All() []PeerRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]PeerRecord, 0, len(t.peers))
	for _, p := range t.peers {
		out = append(out, p)
	}
	return out
}

// NeighborAt finds a connected peer whose rectangle is flush with the local
// rectangle on the given exit edge, and whose perpendicular extent contains
// perpCoord (the cursor's coordinate along that edge, in local-layout
// pixels). Ties between two ambiguously-flush peers (a layout the spec
// treats as a configuration error to avoid) are broken by ascending peer
// id, so repeated calls against the same topology always pick the same
// peer rather than riding Go's per-call-randomized map iteration order.
func (t *Topology) NeighborAt(edge event.Edge, perpCoord int32) (PeerRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	local := t.peers[t.localID]
	ids := make([]string, 0, len(t.peers))
	for id := range t.peers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if id == t.localID {
			continue
		}
		p := t.peers[id]
		if !p.IsConnected {
			continue
		}
		if flush(local, p, edge) && withinPerpendicularExtent(local, p, edge, perpCoord) {
			return p, true
		}
	}
	return PeerRecord{}, false
}

// flush reports whether peer p's rectangle touches local's rectangle on the
// given edge, in general (layout_x, layout_y) coordinates — not assuming
// either rectangle sits at the origin.
func flush(local, p PeerRecord, edge event.Edge) bool {
	switch edge {
	case event.EdgeRight:
		return p.LayoutX == local.LayoutX+local.ScreenW
	case event.EdgeLeft:
		return p.LayoutX+p.ScreenW == local.LayoutX
	case event.EdgeBottom:
		return p.LayoutY == local.LayoutY+local.ScreenH
	case event.EdgeTop:
		return p.LayoutY+p.ScreenH == local.LayoutY
	default:
		return false
	}
}

// withinPerpendicularExtent reports whether the cursor's perpendicular
// coordinate (already expressed in local-layout pixels) falls within peer
// p's extent along the axis perpendicular to edge.
func withinPerpendicularExtent(local, p PeerRecord, edge event.Edge, perpCoordLocal int32) bool {
	switch edge {
	case event.EdgeRight, event.EdgeLeft:
		abs := local.LayoutY + perpCoordLocal
		return p.LayoutY <= abs && abs < p.LayoutY+p.ScreenH
	case event.EdgeTop, event.EdgeBottom:
		abs := local.LayoutX + perpCoordLocal
		return p.LayoutX <= abs && abs < p.LayoutX+p.ScreenW
	default:
		return false
	}
}
