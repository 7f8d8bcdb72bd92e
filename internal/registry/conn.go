package registry

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// pushWriteTimeout bounds how long a send may sit in a peer's full socket
// buffer before it is dropped.
const pushWriteTimeout = 5 * time.Second

// Wire is the write side of one client socket. net.Conn satisfies it; tests
// substitute an in-memory recorder.
type Wire interface {
	io.Writer
	io.Closer
	SetWriteDeadline(t time.Time) error
}

// Conn wraps one live connection's outbound half. Replies and pushes from
// different goroutines are serialized by its mutex so lines never interleave.
type Conn struct {
	id     int64
	logger *slog.Logger

	mu     sync.Mutex
	wire   Wire
	closed bool
}

func newConn(id int64, wire Wire, logger *slog.Logger) *Conn {
	return &Conn{
		id:     id,
		wire:   wire,
		logger: logger.With("conn_id", id),
	}
}

func (that *Conn) ID() int64 {
	return that.id
}

// Send - writes one newline-terminated protocol line.
func (that *Conn) Send(line string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return fmt.Errorf("connection %d is closed", that.id)
	}

	if err := that.wire.SetWriteDeadline(time.Now().Add(pushWriteTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if _, err := io.WriteString(that.wire, line+"\n"); err != nil {
		return fmt.Errorf("failed to write line: %w", err)
	}

	return nil
}

// Push - best-effort asynchronous notification. A dead or slow peer must
// never crash or block the handler that triggered the fan-out, so failures
// are only logged.
func (that *Conn) Push(line string) {
	if err := that.Send(line); err != nil {
		that.logger.Debug("push dropped", "line", line, "error", err)
	}
}

func (that *Conn) Close() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return nil
	}
	that.closed = true

	if err := that.wire.Close(); err != nil {
		return fmt.Errorf("failed to close wire: %w", err)
	}

	return nil
}
