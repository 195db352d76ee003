package channel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/logger"
)

const (
	defaultWriteTimeout   = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 16 << 20
	responseBuffer        = 16
)

// Options tunes a Conn. Zero values take defaults.
type Options struct {
	WriteTimeout   time.Duration
	PongWait       time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
}

func (o Options) withDefaults() Options {
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.PongWait {
		o.PingInterval = o.PongWait * 9 / 10
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = defaultMaxMessageSize
	}
	return o
}

// Conn is one candidate's duplex channel. A read pump keeps draining the
// socket so pongs are handled while the caller is busy elsewhere. Send and
// Close are safe for concurrent use. Receive must be called from a single
// goroutine.
type Conn struct {
	ws     *websocket.Conn
	opts   Options
	logger *zap.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}

	responses chan Response
	// readErr is set before readDone is closed.
	readErr  error
	readDone chan struct{}
}

func New(ws *websocket.Conn, opts Options, log *zap.Logger) *Conn {
	c := &Conn{
		ws:     ws,
		opts:   opts.withDefaults(),
		logger: logger.OrNop(log),
		done:      make(chan struct{}),
		responses: make(chan Response, responseBuffer),
		readDone:  make(chan struct{}),
	}

	ws.SetReadLimit(c.opts.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	go c.readPump()
	go c.pingLoop()

	return c
}

func (c *Conn) Send(_ context.Context, msg Message) error {
	select {
	case <-c.done:
		return ErrClosed
	case <-c.readDone:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	if err := c.ws.WriteJSON(msg); err != nil {
		return mapError(err)
	}
	return nil
}

// Receive blocks until the next candidate response. Frames of other kinds and
// malformed frames are skipped by the read pump.
func (c *Conn) Receive(ctx context.Context) (Response, error) {
	select {
	case resp := <-c.responses:
		return resp, nil
	default:
	}

	select {
	case resp := <-c.responses:
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-c.done:
		return Response{}, ErrClosed
	case <-c.readDone:
		// Responses read before the failure are still delivered.
		select {
		case resp := <-c.responses:
			return resp, nil
		default:
		}
		return Response{}, c.readErr
	}
}

// Close sends a normal close frame and releases the connection. Only the
// first call has an effect.
func (c *Conn) Close(reason string) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.opts.WriteTimeout))
		c.writeMu.Unlock()

		err = c.ws.Close()
	})
	return err
}

func (c *Conn) readPump() {
	defer close(c.readDone)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.readErr = mapError(err)
			if !errors.Is(c.readErr, ErrClosed) {
				c.logger.Debug("read failed", zap.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))

		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			c.logger.Debug("skipping malformed frame", zap.Error(err))
			continue
		}
		if resp.Type != TypeResponse {
			c.logger.Debug("skipping frame", zap.String("type", resp.Type))
			continue
		}

		select {
		case c.responses <- resp:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-c.readDone:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

// mapError folds every way the peer can go away into ErrClosed. A read
// timeout means pongs stopped arriving.
func mapError(err error) error {
	var (
		closeErr *websocket.CloseError
		netErr   net.Error
	)
	switch {
	case errors.As(err, &closeErr),
		errors.Is(err, websocket.ErrCloseSent),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.As(err, &netErr) && netErr.Timeout():
		return ErrClosed
	}
	return err
}
