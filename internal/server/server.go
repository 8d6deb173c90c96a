// Package server is the composition root (analogous to the teacher's
// cmd/chunkymonkey/main.go wiring a GameLogic + shardserver + clientConn
// accept loop into one process): it loads config, starts the admin surface,
// drives the asset loader into the live asset registry, starts one world
// executor per configured world, and accepts connections, handing each one
// to a netio.Session wired with this server's collaborators.
package server

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/chunkrealm/coreserver/internal/admin"
	"github.com/chunkrealm/coreserver/internal/assetsync"
	"github.com/chunkrealm/coreserver/internal/config"
	"github.com/chunkrealm/coreserver/internal/netio"
	"github.com/chunkrealm/coreserver/internal/proto"
	"github.com/chunkrealm/coreserver/internal/stats"
	"github.com/chunkrealm/coreserver/internal/worldexec"
	"github.com/chunkrealm/coreserver/internal/worldtime"
)

// worldTickInterval is the world executor's tick period, matching the
// teacher's 20 ticks/second game loop convention.
const worldTickInterval = 50 * time.Millisecond

func toWorldTimeConfig(wc config.WorldConfig) worldtime.Config {
	return worldtime.Config{
		DayLengthTicks:   wc.DayLengthTicks,
		NightLengthTicks: wc.NightLengthTicks,
		Dilation:         wc.Dilation,
	}
}

// Server owns every long-lived subsystem of one coreserver process.
type Server struct {
	Cfg  *config.EnvConfigStore
	Auth netio.AuthClient
	Log  *logrus.Entry

	recorder *stats.Recorder
	admin    *admin.Server

	worlds      map[string]*worldexec.World
	defaultName string

	assets *assetRegistry

	mu       sync.RWMutex
	sessions map[uuid.UUID]*netio.Session
}

// New builds a Server from cfg. Auth must be supplied by the caller; the
// core has no concrete identity-provider implementation of its own (§6).
func New(cfg *config.EnvConfigStore, auth netio.AuthClient) *Server {
	s := &Server{
		Cfg:      cfg,
		Auth:     auth,
		Log:      logrus.WithField("component", "server"),
		recorder: stats.NewRecorder(),
		worlds:   make(map[string]*worldexec.World),
		assets:   newAssetRegistry(),
		sessions: make(map[uuid.UUID]*netio.Session),
	}

	for _, wc := range cfg.Worlds {
		if s.defaultName == "" {
			s.defaultName = wc.Name
		}
		s.worlds[wc.Name] = worldexec.New(wc.Name, toWorldTimeConfig(wc), &worldBroadcaster{server: s, world: wc.Name})
	}

	s.admin = admin.New(cfg.AdminListenAddress, stats.NewCollector(s.recorder))
	return s
}

// Run starts every subsystem and blocks until ctx is cancelled or a
// subsystem fails fatally (§5: the per-process supervision analogous to
// the teacher's main() goroutine group, generalized with errgroup the way
// orbas1-Synnergy's cmd/synnergy/main.go supervises its own long-running
// services).
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for name, w := range s.worlds {
		w := w
		name := name
		g.Go(func() error {
			w.Run(ctx, worldTickInterval)
			s.Log.WithField("world", name).Info("world executor stopped")
			return nil
		})
	}

	g.Go(func() error {
		return s.admin.ListenAndServe()
	})
	g.Go(func() error {
		<-ctx.Done()
		return s.admin.Shutdown(context.Background())
	})

	var loader *assetsync.FSLoader
	if s.Cfg.AssetDir != "" {
		l, err := assetsync.NewFSLoader(s.Cfg.AssetDir, logrus.StandardLogger())
		if err != nil {
			s.Log.WithError(err).Warn("asset loader unavailable, continuing without hot-reloaded assets")
		} else {
			loader = l
			g.Go(func() error {
				s.runAssetLoop(ctx, loader)
				return nil
			})
		}
	}

	ln, err := net.Listen("tcp", s.Cfg.BindAddress)
	if err != nil {
		return err
	}
	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})
	g.Go(func() error {
		return s.acceptLoop(ctx, ln)
	})

	err = g.Wait()
	if loader != nil {
		loader.Close()
	}
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	cfg := netio.DefaultConfig()
	cfg.ProtocolFingerprint = s.Cfg.ProtocolFingerprint
	cfg.HandshakeTimeout = s.Cfg.HandshakeTimeout
	cfg.KeepAliveInterval = s.Cfg.KeepAliveInterval
	cfg.KeepAliveTimeout = s.Cfg.KeepAliveTimeout
	sess := netio.New(conn, cfg)
	sess.Auth = s.Auth
	sess.Recorder = s.recorder
	sess.Handlers = s.handlers()

	err := sess.Run(ctx, s.onAuthenticated)
	s.removeSession(sess)
	if err != nil {
		s.Log.WithError(err).WithField("remote", conn.RemoteAddr()).Debug("session ended")
	}
}

// onAuthenticated sends the handshake tail (§6 step 5) and registers the
// session for broadcast fan-out against its assigned world.
func (s *Server) onAuthenticated(sess *netio.Session) error {
	sess.World = s.defaultName
	s.addSession(sess)

	w, ok := s.worlds[s.defaultName]
	if !ok {
		return nil
	}
	sess.Send(w.Time.UpdateTimeSettingsPacket())
	sess.Send(w.Time.UpdateTimePacket())

	for _, p := range s.assets.initPackets() {
		sess.Send(p)
	}
	return nil
}

func (s *Server) addSession(sess *netio.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Identity().UUID] = sess
}

func (s *Server) removeSession(sess *netio.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess.Identity().UUID)
}

// handlers returns the in-game packet dispatch table. BlockDamage (§4.2) is
// a server-to-client notification produced by BlockHealth/FragileBlock, not
// a packet clients send, so there is no inbound handler for it here; chunk
// mutation instead enters through ApplyBlockDamage/ApplyBlockRepair below,
// the concrete callback §1's data flow describes ("dispatched to C4/C5
// mutators ... via a callback") for the out-of-scope CommandDispatcher (§6).
func (s *Server) handlers() map[int32]netio.Handler {
	return map[int32]netio.Handler{}
}

// ApplyBlockDamage forwards an already-authorized damage request (§6:
// CommandDispatcher "delivers already-authorized mutation requests to the
// owning world's executor") to the named world's BlockHealth mutator. It is
// the production call site the out-of-scope command/interaction dispatcher
// is meant to invoke; the core itself never parses the command grammar that
// decides when to call it.
func (s *Server) ApplyBlockDamage(world string, pos proto.BlockPos, amount float32) {
	w, ok := s.worlds[world]
	if !ok {
		return
	}
	w.ApplyBlockDamage(pos, amount, time.Now())
}

// ApplyBlockRepair is ApplyBlockDamage's counterpart for BlockHealth.Repair.
func (s *Server) ApplyBlockRepair(world string, pos proto.BlockPos, amount float32) {
	w, ok := s.worlds[world]
	if !ok {
		return
	}
	w.ApplyBlockRepair(pos, amount)
}

// MarkContainerDirty forwards an already-authorized container-state change
// (a container placed, opened, or broken) to the named world, so the next
// tick broadcasts a ContainerState notification (§3, §4.2). Same
// CommandDispatcher boundary as ApplyBlockDamage.
func (s *Server) MarkContainerDirty(world string, pos proto.BlockPos) {
	w, ok := s.worlds[world]
	if !ok {
		return
	}
	w.MarkContainerDirty(pos)
}

type worldBroadcaster struct {
	server *Server
	world  string
}

func (b *worldBroadcaster) Broadcast(p proto.Packet) {
	b.server.mu.RLock()
	defer b.server.mu.RUnlock()
	for _, sess := range b.server.sessions {
		if b.world != "" && sess.World != b.world {
			continue
		}
		sess.Send(p)
	}
}
