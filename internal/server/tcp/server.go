package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/rocketscienceinc/gomoku-backend/internal/registry"
)

// maxLineSize bounds one protocol line, and with it the per-connection read
// buffer.
const maxLineSize = 1 << 20 // 1 MiB

// sessionRegistry is the shared session state the transport drives. All
// cross-connection coordination lives behind it.
type sessionRegistry interface {
	Add(wire registry.Wire) *registry.Conn
	Identify(connID int64, playerName string) ([]string, error)
	CreateRoom(connID int64) (string, error)
	JoinRoom(connID int64, roomID string) (int, error)
	Board(connID int64) (string, error)
	Place(ctx context.Context, connID int64, row, col int) (*registry.PlaceResult, error)
	Drop(connID int64)
}

// Server accepts game connections and runs one protocol handler per
// connection.
type Server struct {
	logger   *slog.Logger
	registry sessionRegistry
	handlers map[string]func(ctx context.Context, conn *registry.Conn, arg string) error

	mu    sync.Mutex
	conns map[int64]*registry.Conn
}

func New(logger *slog.Logger, sessions sessionRegistry) *Server {
	server := &Server{
		logger:   logger.With("component", "tcp"),
		registry: sessions,
		handlers: make(map[string]func(context.Context, *registry.Conn, string) error),
		conns:    make(map[int64]*registry.Conn),
	}

	server.handlers["player"] = server.handleIdentify
	server.handlers["new"] = server.handleNewRoom
	server.handlers["join"] = server.handleJoin
	server.handlers["update"] = server.handleUpdate
	server.handlers["place"] = server.handlePlace

	return server
}

// Start - listens on the given port and serves until the context is
// canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", port, err)
	}

	return that.Serve(ctx, listener)
}

// Serve - runs the accept loop on an existing listener. Context cancellation
// closes the listener and every live connection; no in-flight draining
// beyond the current line.
func (that *Server) Serve(ctx context.Context, listener net.Listener) error {
	log := that.logger.With("addr", listener.Addr().String())
	log.Info("game server listening")

	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			log.Error("failed to close listener", "error", err)
		}
		that.closeAll()
	}()

	for {
		netConn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}

		go that.handleConnection(ctx, netConn)
	}
}

// handleConnection - the per-connection read loop. Every failure here is
// contained: it ends this connection and never another handler or the
// listener.
func (that *Server) handleConnection(ctx context.Context, netConn net.Conn) {
	conn := that.registry.Add(netConn)
	log := that.logger.With("conn_id", conn.ID(), "remote", netConn.RemoteAddr().String())

	that.track(conn)

	defer func() {
		if r := recover(); r != nil {
			log.Error("recovered from handler panic", "panic", r)
		}

		that.registry.Drop(conn.ID())
		that.untrack(conn)

		if err := conn.Close(); err != nil {
			log.Debug("failed to close connection", "error", err)
		}

		log.Info("connection closed")
	}()

	log.Info("connection accepted")

	scanner := bufio.NewScanner(netConn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		if err := that.processLine(ctx, conn, line); err != nil {
			log.Error("error processing command", "line", line, "error", err)
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Debug("read loop ended", "error", err)
	}
}

// processLine - parses one command line and dispatches it. Unknown verbs get
// the generic "none" reply and keep the connection open: the client is not
// trusted to send commands in any particular order.
func (that *Server) processLine(ctx context.Context, conn *registry.Conn, line string) error {
	verb, arg := parseCommand(line)

	handler, ok := that.handlers[verb]
	if !ok {
		return conn.Send(replyNone)
	}

	return handler(ctx, conn, arg)
}

// parseCommand - splits a line into its command verb and argument. Bare
// commands ("new", "update") carry no argument; the rest are
// "<verb>: <arg>".
func parseCommand(line string) (string, string) {
	verb, arg, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}

	return verb, strings.TrimSpace(arg)
}

func (that *Server) track(conn *registry.Conn) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.conns[conn.ID()] = conn
}

func (that *Server) untrack(conn *registry.Conn) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.conns, conn.ID())
}

func (that *Server) closeAll() {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, conn := range that.conns {
		if err := conn.Close(); err != nil {
			that.logger.Debug("failed to close connection on shutdown", "conn_id", conn.ID(), "error", err)
		}
	}
}
