// Package wsfeed is a websocket transport for the scene feed: it dials the feed server,
// dispatches every message to a feed.Sink and writes queued intents back. Lost
// connections are redialled with exponential backoff until Close.
package wsfeed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Faultbox/gridview/internal/config"
	"github.com/Faultbox/gridview/internal/feed"
	"github.com/Faultbox/gridview/internal/logger"
)

// outboxSize bounds the intents waiting for the writer.
const outboxSize = 64

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("wsfeed: client closed")

// Stats counts traffic since the client was created.
type Stats struct {
	Connects int64
	Messages int64
	Invalid  int64
	Sent     int64
	Dropped  int64
}

// Client keeps one websocket session to the feed server alive.
type Client struct {
	url  string
	cfg  config.FeedConfig
	sink feed.Sink

	dialer websocket.Dialer
	outbox chan []byte

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup

	connected atomic.Bool
	connects  atomic.Int64
	messages  atomic.Int64
	invalid   atomic.Int64
	sent      atomic.Int64
	dropped   atomic.Int64

	log *zap.Logger
}

// New creates a client for cfg.URL delivering into sink. Nothing is dialled until Start.
func New(cfg config.FeedConfig, sink feed.Sink) *Client {
	return &Client{
		url:    cfg.URL,
		cfg:    cfg,
		sink:   sink,
		dialer: websocket.Dialer{HandshakeTimeout: cfg.ConnectTimeout},
		outbox: make(chan []byte, outboxSize),
		log:    logger.Named("wsfeed"),
	}
}

// Start launches the connection loop.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.cancel != nil {
		return nil
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.run(ctx)
	return nil
}

// Connected reports whether a session is currently open.
func (c *Client) Connected() bool { return c.connected.Load() }

// Stats returns the traffic counters.
func (c *Client) Stats() Stats {
	return Stats{
		Connects: c.connects.Load(),
		Messages: c.messages.Load(),
		Invalid:  c.invalid.Load(),
		Sent:     c.sent.Load(),
		Dropped:  c.dropped.Load(),
	}
}

// SendIntent queues an intent for the server. It never blocks; intents are dropped
// while disconnected or when the queue is full.
func (c *Client) SendIntent(i feed.Intent) {
	if !c.connected.Load() {
		c.dropped.Add(1)
		return
	}
	raw, err := feed.EncodeIntent(i)
	if err != nil {
		c.dropped.Add(1)
		c.log.Warn("intent encode failed", zap.Error(err))
		return
	}
	select {
	case c.outbox <- raw:
	default:
		c.dropped.Add(1)
	}
}

// Close stops the client and waits for its goroutines.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel := c.cancel
	conn := c.conn
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	c.wg.Wait()
}

func (c *Client) run(ctx context.Context) {
	defer c.wg.Done()
	for ctx.Err() == nil {
		conn, err := c.dial(ctx)
		if err != nil {
			return
		}
		c.session(ctx, conn)
	}
}

// dial retries until a connection is made or ctx ends. The backoff starts over for
// every lost session.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 0
	if c.cfg.MaxBackoff > 0 {
		b.MaxInterval = c.cfg.MaxBackoff
	}

	op := func() (*websocket.Conn, error) {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil && ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return conn, err
	}
	notify := func(err error, wait time.Duration) {
		c.log.Info("feed dial failed, retrying", zap.String("url", c.url), zap.Duration("wait", wait), zap.Error(err))
	}
	return backoff.RetryNotifyWithData(op, backoff.WithContext(b, ctx), notify)
}

// session reads until the connection fails. Intents are written from a second
// goroutine, so gorilla's one-reader one-writer rule holds.
func (c *Client) session(ctx context.Context, conn *websocket.Conn) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	c.connects.Add(1)
	c.connected.Store(true)
	c.log.Info("feed connected", zap.String("url", c.url))

	done := make(chan struct{})
	c.wg.Add(1)
	go c.write(ctx, conn, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Warn("feed connection lost", zap.Error(err))
			}
			break
		}
		c.messages.Add(1)
		if err := feed.Dispatch(c.sink, data); err != nil {
			c.invalid.Add(1)
			c.log.Debug("feed message rejected", zap.Error(err))
		}
	}

	c.connected.Store(false)
	close(done)
	conn.Close()
	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
}

func (c *Client) write(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case raw := <-c.outbox:
			if d := c.cfg.ConnectTimeout; d > 0 {
				conn.SetWriteDeadline(time.Now().Add(d))
			}
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				c.dropped.Add(1)
				c.log.Warn("intent write failed", zap.Error(err))
				conn.Close()
				return
			}
			c.sent.Add(1)
		}
	}
}

var _ feed.IntentSink = (*Client)(nil)
