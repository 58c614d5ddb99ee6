package topology

import (
	"testing"
	"time"

	"mouseshare/internal/event"
)

func newTestTopology() *Topology {
	return New(PeerRecord{ID: "local", Name: "local", ScreenW: 1920, ScreenH: 1080})
}

func TestNeighborAtFindsFlushConnectedPeer(t *testing.T) {
	topo := newTestTopology()
	topo.Upsert(PeerRecord{
		ID: "peer", Name: "peer", ScreenW: 1920, ScreenH: 1080,
		LayoutX: 1920, LayoutY: 0, IsConnected: true, LastSeen: time.Now(),
	})

	p, ok := topo.NeighborAt(event.EdgeRight, 500)
	if !ok {
		t.Fatal("expected a neighbor on the right")
	}
	if p.ID != "peer" {
		t.Errorf("got peer %q, want %q", p.ID, "peer")
	}
}

func TestNeighborAtNoPeerRemainsLocal(t *testing.T) {
	topo := newTestTopology()
	if _, ok := topo.NeighborAt(event.EdgeRight, 500); ok {
		t.Fatal("expected no neighbor in an empty topology")
	}
}

func TestNeighborAtIgnoresDisconnectedPeer(t *testing.T) {
	topo := newTestTopology()
	topo.Upsert(PeerRecord{
		ID: "peer", ScreenW: 1920, ScreenH: 1080,
		LayoutX: 1920, LayoutY: 0, IsConnected: false, LastSeen: time.Now(),
	})
	if _, ok := topo.NeighborAt(event.EdgeRight, 500); ok {
		t.Fatal("expected disconnected peer to be ignored")
	}
}

func TestNeighborAtHonorsNonZeroLocalLayout(t *testing.T) {
	topo := New(PeerRecord{ID: "local", ScreenW: 1920, ScreenH: 1080, LayoutX: 1920, LayoutY: 0})
	topo.Upsert(PeerRecord{
		ID: "peer", ScreenW: 1920, ScreenH: 1080,
		LayoutX: 3840, LayoutY: 0, IsConnected: true, LastSeen: time.Now(),
	})
	if _, ok := topo.NeighborAt(event.EdgeRight, 500); !ok {
		t.Fatal("expected the general (layout_x, layout_y) formula to find the neighbor even with a non-zero local origin")
	}
}

func TestReapRemovesStalePeerButNotLocal(t *testing.T) {
	topo := newTestTopology()
	base := time.Now()
	topo.Upsert(PeerRecord{ID: "B", LastSeen: base})

	removed := topo.Reap(base.Add(10001*time.Millisecond), 10000*time.Millisecond)
	if len(removed) != 1 || removed[0] != "B" {
		t.Fatalf("expected B to be reaped, got %v", removed)
	}
	if _, ok := topo.Get("local"); !ok {
		t.Fatal("local peer must never expire")
	}
	if _, ok := topo.Get("B"); ok {
		t.Fatal("B should have been removed")
	}
}

func TestUpsertPlacesNewPeerRightOfRightmost(t *testing.T) {
	topo := newTestTopology()
	topo.Upsert(PeerRecord{ID: "A", ScreenW: 1920, ScreenH: 1080, LastSeen: time.Now()})
	a, _ := topo.Get("A")
	if a.LayoutX != 1920 {
		t.Errorf("first peer LayoutX = %d, want 1920 (right of local)", a.LayoutX)
	}

	topo.Upsert(PeerRecord{ID: "C", ScreenW: 800, ScreenH: 600, LastSeen: time.Now()})
	c, _ := topo.Get("C")
	if c.LayoutX != 1920+1920 {
		t.Errorf("second peer LayoutX = %d, want %d (right of A)", c.LayoutX, 1920+1920)
	}
}

func TestUpsertKeepsLayoutOnRefresh(t *testing.T) {
	topo := newTestTopology()
	topo.Upsert(PeerRecord{ID: "A", ScreenW: 1920, ScreenH: 1080, LastSeen: time.Now()})
	a1, _ := topo.Get("A")

	topo.Upsert(PeerRecord{ID: "A", ScreenW: 1920, ScreenH: 1080, LastSeen: time.Now().Add(time.Second)})
	a2, _ := topo.Get("A")

	if a1.LayoutX != a2.LayoutX || a1.LayoutY != a2.LayoutY {
		t.Error("refreshing an existing peer must not move its layout position")
	}
}

func TestUpsertKeepsConnectedOnRefresh(t *testing.T) {
	topo := newTestTopology()
	topo.Upsert(PeerRecord{ID: "A", ScreenW: 1920, ScreenH: 1080, LastSeen: time.Now()})
	topo.SetConnected("A", true)

	// A routine re-broadcast from the same peer always carries
	// IsConnected: false; Upsert must not let that undo a session-driven
	// SetConnected(true).
	topo.Upsert(PeerRecord{ID: "A", ScreenW: 1920, ScreenH: 1080, LastSeen: time.Now().Add(3 * time.Second), IsConnected: false})

	a, _ := topo.Get("A")
	if !a.IsConnected {
		t.Error("a discovery refresh must not clear IsConnected set by an active session")
	}
}
