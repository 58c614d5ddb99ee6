// MouseShare shares one keyboard and pointing device across a primary and a
// secondary host on a local network, switching control when the cursor
// crosses a screen edge abutting a peer's display.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"mouseshare/internal/config"
	"mouseshare/internal/discovery"
	"mouseshare/internal/errs"
	"mouseshare/internal/event"
	"mouseshare/internal/focus"
	"mouseshare/internal/injector"
	"mouseshare/internal/interceptor"
	"mouseshare/internal/osutils"
	"mouseshare/internal/protocol"
	"mouseshare/internal/topology"
	"mouseshare/internal/transport"
	"mouseshare/internal/tray"
)

const appName = "MouseShare"

var (
	version  = "1.0.0"
	showVer  = flag.Bool("version", false, "Show version")
	role     = flag.String("role", "", "Role override: primary or secondary")
	edgeFlag = flag.String("edge", "", "Default switch edge override: left, right, top, bottom")
	target   = flag.String("target", "", "Secondary: primary host to connect to, host[:port]")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("%s version %s\n", appName, version)
		return
	}

	cfgMgr, err := config.NewManager(appName)
	if err != nil {
		log.Fatalf("[main] config init: %v", err)
	}
	if err := cfgMgr.Load(); err != nil {
		log.Fatalf("[main] config load: %v", err)
	}
	applyFlagOverrides(cfgMgr)

	cfg := cfgMgr.Get()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[main] invalid config: %v", err)
	}

	if runtime.GOOS == "windows" && !osutils.IsAdmin() {
		log.Println("[main] warning: not running elevated; input capture hooks may be silently ignored by UAC-protected windows")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(cfgMgr)
	if err != nil {
		log.Fatalf("[main] startup: %v", err)
	}

	t := tray.New(fmt.Sprintf("%s (%s)", appName, cfg.Role))
	a.tray = t
	t.AddMenuItem("Switch now", func() { a.manualToggle() })
	t.AddSeparator()
	t.AddMenuItem("Quit", func() {
		cancel()
		t.Stop()
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[main] signal received, shutting down")
		cancel()
		t.Stop()
	}()

	go a.run(ctx)

	log.Printf("[main] %s running as %s. Press Ctrl+C to stop.", appName, cfg.Role)
	t.Run()

	a.shutdown()
}

func applyFlagOverrides(cfgMgr *config.Manager) {
	cfg := cfgMgr.Get()
	if *role != "" {
		cfg.Role = config.Role(strings.ToLower(*role))
	}
	if *edgeFlag != "" {
		cfg.SwitchEdge = strings.ToLower(*edgeFlag)
	}
	if *target != "" {
		cfg.SecondaryTarget = *target
	}
	cfgMgr.Set(cfg)
}

// app holds every long-lived component App Glue wires together. Exactly one
// of primary/secondary is non-nil, matching the role the config names.
type app struct {
	cfgMgr *config.Manager
	cfg    *config.Config

	interceptor *interceptor.Interceptor // primary only
	inj         *injector.Injector       // secondary only

	topo *topology.Topology
	disc *discovery.Discovery

	primary   *focus.Primary
	secondary *focus.Secondary

	tray *tray.Tray

	logger *log.Logger

	screenW, screenH int32
}

func newApp(cfgMgr *config.Manager) (*app, error) {
	cfg := cfgMgr.Get()
	logger := log.New(os.Stderr, "[app] ", log.LstdFlags)

	hostID, err := uuid.Parse(cfg.HostID)
	if err != nil {
		return nil, fmt.Errorf("parse host_id: %w", err)
	}

	a := &app{cfgMgr: cfgMgr, cfg: cfg, logger: logger}

	switch cfg.Role {
	case config.RolePrimary:
		w, h, err := injector.LocalScreenSize()
		if err != nil {
			return nil, err
		}
		a.screenW, a.screenH = w, h

		a.interceptor = interceptor.New(cfg.UserToggleKey)

		local := topology.PeerRecord{
			ID: hostID.String(), Name: cfg.DisplayName, Port: cfg.Port,
			ScreenW: w, ScreenH: h, IsPrimary: true,
		}
		a.topo = topology.New(local)

		a.primary = focus.NewPrimary(a.topo, w, h, parseEdge(cfg.SwitchEdge), cfg.UserToggleKey,
			a.interceptor.SetSuppress, a.interceptor.WarpCursor, log.New(os.Stderr, "[focus] ", log.LstdFlags))

		a.interceptor.OnMove(a.primary.OnMove)
		a.interceptor.OnButton(a.primary.OnButton)
		a.interceptor.OnScroll(a.primary.OnScroll)
		a.interceptor.OnKey(a.primary.OnKey)

	case config.RoleSecondary:
		inj, err := injector.New()
		if err != nil {
			return nil, err
		}
		a.inj = inj
		w, h := inj.ScreenSize()
		a.screenW, a.screenH = w, h

		local := topology.PeerRecord{
			ID: hostID.String(), Name: cfg.DisplayName, Port: cfg.Port,
			ScreenW: w, ScreenH: h, IsPrimary: false,
		}
		a.topo = topology.New(local)
		a.secondary = focus.NewSecondary(w, h, inj)

	default:
		return nil, fmt.Errorf("%w: unknown role %q", errs.ErrConfig, cfg.Role)
	}

	a.disc = discovery.New(a.topo, cfg.DiscoveryPort, cfg.DisplayName, hostID, log.New(os.Stderr, "[discovery] ", log.LstdFlags))

	return a, nil
}

func parseEdge(s string) event.Edge {
	switch strings.ToLower(s) {
	case "left":
		return event.EdgeLeft
	case "top":
		return event.EdgeTop
	case "bottom":
		return event.EdgeBottom
	default:
		return event.EdgeRight
	}
}

// run drives the app until ctx is canceled: discovery, and the
// role-specific session loop (accept-serve for the primary, connect-retry
// for the secondary).
func (a *app) run(ctx context.Context) {
	go func() {
		if err := a.disc.Start(ctx, 3*time.Second, time.Duration(a.cfg.PeerExpiry)*time.Millisecond); err != nil {
			// errs.ErrDiscoveryBind is Fatal: a failed discovery socket bind
			// can never recover by itself, since nothing else in the process
			// retries the bind.
			if errs.Fatal(err) {
				a.logger.Fatalf("discovery: %v", err)
			}
			a.logger.Printf("discovery: %v", err)
		}
	}()

	switch a.cfg.Role {
	case config.RolePrimary:
		a.runPrimary(ctx)
	case config.RoleSecondary:
		a.runSecondary(ctx)
	}
}

func (a *app) runPrimary(ctx context.Context) {
	// errs.Fatal(ErrHookInstall) is always true: without the hook, a primary
	// has no capture at all, so there is nothing left to recover into.
	if err := a.interceptor.Start(); err != nil {
		a.logger.Fatalf("interceptor start: %v", err)
	}
	x, y := a.interceptor.CursorPos()
	a.interceptor.SetLastPos(x, y)

	ln, err := transport.Listen(a.cfg.Port)
	if err != nil {
		a.logger.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for ctx.Err() == nil {
		sess, err := transport.Accept(ln)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errs.Fatal(err) {
				a.logger.Fatalf("accept: %v", err)
			}
			if !errs.Recoverable(err) {
				a.logger.Printf("accept: unrecognized error kind, retrying anyway: %v", err)
			} else {
				a.logger.Printf("accept: %v", err)
			}
			continue
		}
		a.logger.Println("primary: secondary connected")
		a.primary.SetSession(sess)
		peerID := a.markPeerConnected(sess.RemoteIP(), true)
		a.setStatus()

		if err := sess.Send(event.ScreenInfo(a.screenW, a.screenH)); err != nil {
			a.logger.Printf("send screen info: %v", err)
		}

		sessCtx, sessCancel := context.WithCancel(ctx)
		go sess.Maintain(sessCtx, time.Duration(a.cfg.KeepaliveInterval)*time.Millisecond, time.Duration(a.cfg.IdleTimeout)*time.Millisecond,
			func(err error) { a.logger.Printf("session: %v", err) })

		a.drainLoop(ctx, sess)
		sessCancel()
		a.primary.SetSession(nil)
		if peerID != "" {
			a.topo.SetConnected(peerID, false)
		}
		a.setStatus()
		a.logger.Println("primary: secondary disconnected")
	}
}

// markPeerConnected matches ip against the topology's discovered peers and
// flips IsConnected, returning the matched peer's id (empty if no peer at
// that address has been discovered yet). This is how topology.NeighborAt
// ever sees a connected neighbor: discovery upserts peers with
// IsConnected=false, and only an actual accepted/connected session may
// promote one to true.
func (a *app) markPeerConnected(ip string, connected bool) string {
	for _, p := range a.topo.All() {
		if p.IP == ip {
			a.topo.SetConnected(p.ID, connected)
			return p.ID
		}
	}
	a.logger.Printf("no discovered peer at %s yet; edge-crossing to it will not arm until discovery catches up", ip)
	return ""
}

// drainLoop keeps the primary's session read side pumped so inbound
// keepalive frames refresh last_recv; the primary otherwise never expects
// application events from the secondary.
func (a *app) drainLoop(ctx context.Context, sess *transport.Session) {
	for ctx.Err() == nil && sess.State() == transport.StateOpen {
		_, err := sess.RecvFrame(time.Now().Add(1 * time.Second))
		if err != nil && err != transport.ErrTimeout && err != protocol.ErrUnknownType {
			return
		}
	}
}

func (a *app) runSecondary(ctx context.Context) {
	host, port := splitTarget(a.cfg.SecondaryTarget, a.cfg.Port)
	reconnect := time.Duration(a.cfg.ReconnectInterval) * time.Millisecond

	for ctx.Err() == nil {
		sess, err := transport.Connect(ctx, host, port, 5*time.Second)
		if err != nil {
			if errs.Fatal(err) {
				a.logger.Fatalf("connect to %s:%d failed: %v", host, port, err)
			}
			if !errs.Recoverable(err) {
				a.logger.Printf("connect to %s:%d: unrecognized error kind, retrying anyway: %v", host, port, err)
			} else {
				a.logger.Printf("connect to %s:%d failed: %v", host, port, err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnect):
			}
			continue
		}
		a.logger.Printf("secondary: connected to %s:%d", host, port)
		peerID := a.markPeerConnected(sess.RemoteIP(), true)
		a.setStatus()

		sessCtx, sessCancel := context.WithCancel(ctx)
		go sess.Maintain(sessCtx, time.Duration(a.cfg.KeepaliveInterval)*time.Millisecond, time.Duration(a.cfg.IdleTimeout)*time.Millisecond,
			func(err error) { a.logger.Printf("session: %v", err) })

		a.readLoop(ctx, sess)
		sessCancel()
		sess.Close()
		a.secondary.Reset()
		if peerID != "" {
			a.topo.SetConnected(peerID, false)
		}
		a.setStatus()
		a.logger.Println("secondary: disconnected, will retry")

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnect):
		}
	}
}

func (a *app) readLoop(ctx context.Context, sess *transport.Session) {
	for ctx.Err() == nil && sess.State() == transport.StateOpen {
		e, err := sess.RecvFrame(time.Now().Add(1 * time.Second))
		if err != nil {
			if err == transport.ErrTimeout {
				continue
			}
			if err == protocol.ErrUnknownType {
				a.logger.Printf("recv: skipping frame: %v", err)
				continue
			}
			// Recoverable per §7: close the session, reset focus, release
			// suppress, retry — which is exactly what the caller's
			// sessCancel/SetConnected(false)/reconnect-loop sequence below
			// does once readLoop returns.
			if errs.Fatal(err) {
				a.logger.Fatalf("recv: %v", err)
			}
			a.logger.Printf("recv: %v", err)
			return
		}
		a.dispatch(e)
	}
}

func (a *app) dispatch(e event.Event) {
	switch e.Type {
	case event.TypeMouseMove:
		a.secondary.OnMouseMove(e.DX, e.DY)
	case event.TypeMouseButton:
		a.secondary.OnButton(e.Button, e.Pressed)
	case event.TypeMouseScroll:
		a.secondary.OnScroll(e.DX, e.DY)
	case event.TypeKey:
		a.secondary.OnKey(e.VK, e.Scan, e.Flags, e.Pressed)
	case event.TypeScreenInfo:
		a.secondary.OnScreenInfo(e.Width, e.Height)
	case event.TypeSwitchScreen:
		a.secondary.OnSwitchScreen(e.SwitchEdge, e.Position)
	case event.TypeKeepalive:
		// liveness only; Session already bumped last_recv.
	}
}

func splitTarget(target string, defaultPort int) (string, int) {
	idx := strings.LastIndex(target, ":")
	if idx < 0 {
		return target, defaultPort
	}
	var port int
	if _, err := fmt.Sscanf(target[idx+1:], "%d", &port); err != nil || port == 0 {
		return target, defaultPort
	}
	return target[:idx], port
}

// manualToggle drives the manual switch menu item and the user_toggle_key
// path on the primary; it is a no-op on the secondary, which has no
// equivalent user-initiated transition.
func (a *app) manualToggle() {
	if a.primary == nil {
		return
	}
	a.primary.OnKey(a.cfg.UserToggleKey, 0, 0, true)
	a.setStatus()
}

func (a *app) setStatus() {
	if a.tray == nil {
		return
	}
	switch a.cfg.Role {
	case config.RolePrimary:
		a.tray.SetStatus(fmt.Sprintf("%s: %s", appName, a.primary.State()))
	case config.RoleSecondary:
		a.tray.SetStatus(fmt.Sprintf("%s: %s", appName, a.secondary.State()))
	}
}

func (a *app) shutdown() {
	if a.interceptor != nil {
		a.interceptor.Stop()
	}
	if err := a.cfgMgr.Save(); err != nil {
		a.logger.Printf("save config: %v", err)
	}
	log.Println("[main] shutdown complete")
}
