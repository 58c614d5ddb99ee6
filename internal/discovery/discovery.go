package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/google/uuid"

	"mouseshare/internal/errs"
	"mouseshare/internal/topology"
)

// Discovery owns the single UDP socket used for both broadcasting presence
// and listening for peers, per the one-socket contract in §4.5.
type Discovery struct {
	conn *net.UDPConn
	port int

	topo      *topology.Topology
	localID   uuid.UUID
	localName string

	logger *log.Logger
}

// New creates a Discovery bound to the given port but does not yet open the
// socket; call Start to bind and run the broadcast/receive/reap loops.
func New(topo *topology.Topology, port int, localName string, localID uuid.UUID, logger *log.Logger) *Discovery {
	if logger == nil {
		logger = log.Default()
	}
	return &Discovery{topo: topo, port: port, localID: localID, localName: localName, logger: logger}
}

// Start binds the discovery socket with SO_BROADCAST and SO_REUSEADDR and
// launches the broadcast, receive, and reap loops. It blocks until ctx is
// canceled, at which point it closes the socket and returns.
func (d *Discovery) Start(ctx context.Context, interval, expiry time.Duration) error {
	conn, err := bindBroadcastSocket(d.port)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrDiscoveryBind, err)
	}
	d.conn = conn
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	done := make(chan struct{})
	go func() { d.broadcastLoop(ctx, interval); close(done) }()
	go d.reapLoop(ctx, expiry)
	d.receiveLoop(ctx)
	<-done
	return nil
}

func (d *Discovery) broadcastLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		d.broadcastOnce()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *Discovery) broadcastOnce() {
	local := d.topo.Local()
	pkt := Packet{
		Type:      PacketType,
		Port:      uint16(local.Port),
		ScreenW:   local.ScreenW,
		ScreenH:   local.ScreenH,
		IsPrimary: local.IsPrimary,
		Name:      d.localName,
		ID:        d.localID,
	}
	addr := &net.UDPAddr{IP: net.IPv4bcast, Port: d.port}
	if _, err := d.conn.WriteToUDP(Encode(pkt), addr); err != nil {
		d.logger.Printf("discovery: broadcast failed: %v", err)
	}
}

func (d *Discovery) receiveLoop(ctx context.Context) {
	buf := make([]byte, 1024)
	for {
		if ctx.Err() != nil {
			return
		}
		n, addr, err := d.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		d.handlePacket(buf[:n], addr)
	}
}

func (d *Discovery) handlePacket(data []byte, addr *net.UDPAddr) {
	pkt, err := Decode(data)
	if err != nil {
		return // lacking magic, or too short: silently dropped per §4.5
	}
	if pkt.ID == d.localID {
		return // self-packet
	}

	d.topo.Upsert(topology.PeerRecord{
		ID:          pkt.ID.String(),
		Name:        pkt.Name,
		IP:          addr.IP.String(),
		Port:        int(pkt.Port),
		ScreenW:     pkt.ScreenW,
		ScreenH:     pkt.ScreenH,
		IsPrimary:   pkt.IsPrimary,
		LastSeen:    time.Now(),
		IsConnected: false,
	})
}

func (d *Discovery) reapLoop(ctx context.Context, expiry time.Duration) {
	ticker := time.NewTicker(expiry / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range d.topo.Reap(time.Now(), expiry) {
				d.logger.Printf("discovery: peer %s expired", id)
			}
		}
	}
}
