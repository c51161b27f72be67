// Package kvserver owns the UDP socket and glues the wire codec, the
// at-most-once cache, the bounded store and the request dispatcher into the
// event loop described in spec section 4.6: for each datagram, decode ->
// dedup-lookup -> dispatch -> encode -> send.
package kvserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"runtime"
	"sync"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/kuiwang02/kvstore/internal/dedup"
	"github.com/kuiwang02/kvstore/internal/store"
	"github.com/kuiwang02/kvstore/internal/wire"
)

// readDeadline bounds how long ReadFromUDP blocks between checks of the
// shutdown channel; it does not affect client-observed latency.
const readDeadline = 200 * time.Millisecond

// ErrShutdown is returned by Run when the server stopped because it received
// a Shutdown command, as opposed to a socket error.
var ErrShutdown = errors.New("kvserver: shutdown requested")

// Config configures a Server.
type Config struct {
	// Addr is the UDP address to bind, e.g. "0.0.0.0:16401".
	Addr string
	// Limits bounds the store's admission control.
	Limits store.Limits
	// Workers is the worker pool size; each worker decodes and handles
	// datagrams concurrently. Zero selects runtime.NumCPU()*4.
	Workers int
	// ShedOverload enables the optional TemporarySystemOverload backpressure
	// path (spec 4.7); disabled by default.
	ShedOverload      bool
	ShedHighWaterMark int64
}

// Server owns one UDP socket and the components wired to serve it.
type Server struct {
	conn *net.UDPConn
	pool pond.Pool

	store      *store.Store
	cache      *dedup.Cache
	dispatcher *Dispatcher
	shedder    *OverloadShedder

	log *slog.Logger

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// New binds a UDP socket at cfg.Addr and wires the store, cache and
// dispatcher. It does not start serving; call Run for that.
func New(cfg Config, log *slog.Logger) (*Server, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("kvserver: resolve addr %q: %w", cfg.Addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("kvserver: bind %q: %w", cfg.Addr, err)
	}

	var shedder *OverloadShedder
	if cfg.ShedOverload {
		shedder = NewOverloadShedder(cfg.ShedHighWaterMark)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() * 4
	}

	st := store.New(cfg.Limits)
	return &Server{
		conn:       conn,
		pool:       pond.NewPool(workers),
		store:      st,
		cache:      dedup.New(),
		dispatcher: NewDispatcher(st, shedder),
		shedder:    shedder,
		log:        log,
		shutdownCh: make(chan struct{}),
	}, nil
}

// Addr returns the socket's bound local address.
func (s *Server) Addr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Run reads datagrams until a Shutdown command is processed (returns
// ErrShutdown), the socket is closed from outside (returns nil), or setting
// the read deadline fails (returns that error). Other read errors are logged
// and the loop continues. It blocks until then; call it from its own
// goroutine or as the main loop. The worker pool is stopped as Run returns.
func (s *Server) Run() error {
	defer s.pool.StopAndWait()

	buf := make([]byte, wire.MaxFrameSize)
	for {
		select {
		case <-s.shutdownCh:
			return ErrShutdown
		default:
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return fmt.Errorf("kvserver: set read deadline: %w", err)
		}

		n, peer, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warn("udp read error", "error", err)
			continue
		}

		frame := append([]byte(nil), buf[:n]...)
		s.pool.Submit(func() {
			s.handleDatagram(frame, peer)
		})
	}
}

// Close closes the socket and stops the cache sweeper. Run's ReadFromUDP
// will then return net.ErrClosed, and Run stops the worker pool on return.
func (s *Server) Close() error {
	s.cache.Close()
	return s.conn.Close()
}

func (s *Server) handleDatagram(frame []byte, peer *net.UDPAddr) {
	messageID, payload, err := wire.DecodeFrame(frame)
	if err != nil {
		reason := "invalid_framing"
		if errors.Is(err, wire.ErrInvalidChecksumWire) {
			reason = "invalid_checksum"
		}
		droppedDatagramsTotal.WithLabelValues(reason).Inc()
		s.log.Debug("dropping datagram", "reason", reason, "peer", peer)
		return
	}

	if cached, ok := s.cache.Lookup(messageID); ok {
		cacheHitsTotal.Inc()
		s.sendResponse(peer, messageID, cached)
		return
	}

	req, decodeErrCode := wire.DecodeRequest(payload)

	var resp wire.Response
	var shutdown bool
	if decodeErrCode != wire.Success {
		resp = wire.Response{ErrCode: decodeErrCode}
	} else {
		requestsTotal.WithLabelValues(req.Command.String()).Inc()
		if s.shedder != nil {
			leave := s.shedder.Enter()
			resp, shutdown = s.dispatcher.Dispatch(req)
			leave()
		} else {
			resp, shutdown = s.dispatcher.Dispatch(req)
		}
	}

	responsesTotal.WithLabelValues(resp.ErrCode.String()).Inc()
	s.cache.Insert(messageID, resp)
	s.sendResponse(peer, messageID, resp)

	if shutdown {
		s.log.Info("shutdown command received, terminating")
		s.requestShutdown()
	}
}

func (s *Server) sendResponse(peer *net.UDPAddr, id wire.MessageID, resp wire.Response) {
	frame := wire.EncodeFrame(id, wire.EncodeResponse(resp))
	if _, err := s.conn.WriteToUDP(frame, peer); err != nil {
		s.log.Warn("failed to send response", "peer", peer, "error", err)
	}
}

func (s *Server) requestShutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}
