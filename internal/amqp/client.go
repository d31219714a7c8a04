package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "pairledger/internal/log"

	"github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/singleflight"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures          = 5
	openTimeout          = 30 * time.Second
	publishTimeout       = 5 * time.Second
	maxBackoff           = 30 * time.Second
	maxReconnectAttempts = 3
)

var errNotConnected = errors.New("connection closed")

// ErrClientClosed is returned once Close has been called.
var ErrClientClosed = errors.New("amqp client closed")

// Client publishes ledger events on one channel and consumes them on
// channels of their own, so a publish-side reconnect never strands a
// consumer: it resumes on the new connection.
type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	closed  bool

	reconnects singleflight.Group

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		channel.Close()
		conn.Close()
		return ErrClientClosed
	}
	c.conn, c.channel = conn, channel
	return nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// routing key is the queue name on a direct exchange
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// reconnect restores the connection and the publish channel. Concurrent
// callers share one attempt, and a connection that is already healthy again
// is left alone.
func (c *Client) reconnect(ctx context.Context) error {
	_, err, _ := c.reconnects.Do("reconnect", func() (any, error) {
		return nil, c.restore(ctx)
	})
	return err
}

func (c *Client) restore(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	conn, channel := c.conn, c.channel
	c.mu.Unlock()

	if conn != nil && !conn.IsClosed() {
		if channel != nil && !channel.IsClosed() {
			return nil
		}
		// only the publish channel died
		if err := c.reopenChannel(conn); err == nil {
			return nil
		}
	}
	c.closeConn()

	var err error
	for attempt := 0; attempt < maxReconnectAttempts; attempt++ {
		if err = c.connect(); err == nil {
			slog.InfoContext(ctx, "Reconnected to AMQP broker",
				applog.FieldComponent, applog.ComponentAMQP,
				"attempt", attempt+1)
			return nil
		}
		if errors.Is(err, ErrClientClosed) {
			return err
		}
		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "AMQP reconnect failed",
			applog.FieldComponent, applog.ComponentAMQP,
			"attempt", attempt+1,
			"retry_in", wait,
			applog.FieldError, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("reconnect after %d attempts: %w", maxReconnectAttempts, err)
}

func (c *Client) reopenChannel(conn *amqp091.Connection) error {
	channel, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn != conn {
		channel.Close()
		return errNotConnected
	}
	c.channel = channel
	return nil
}

// connection returns a live connection, reconnecting when the current one
// is gone.
func (c *Client) connection(ctx context.Context) (*amqp091.Connection, error) {
	c.mu.Lock()
	conn, closed := c.conn, c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClientClosed
	}
	if conn != nil && !conn.IsClosed() {
		return conn, nil
	}

	if err := c.reconnect(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, errNotConnected
	}
	return c.conn, nil
}

// PublishEvent publishes a ledger event with persistent delivery. Connection
// errors trigger one reconnect and retry; repeated failures open the circuit
// so callers stop waiting on a dead broker.
func (c *Client) PublishEvent(ctx context.Context, ev *LedgerEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("circuit breaker is open, skipping %s event", ev.Type)
	}

	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = c.publish(ctx, body)
	if err != nil && isConnectionError(err) {
		if rerr := c.reconnect(ctx); rerr == nil {
			err = c.publish(ctx, body)
		} else {
			err = errors.Join(err, rerr)
		}
	}
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	slog.InfoContext(ctx, "Published ledger event",
		applog.FieldComponent, applog.ComponentAMQP,
		applog.FieldEventType, ev.Type,
		"entity_id", ev.EntityID,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil || ch.IsClosed() {
		return errNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// ConsumeEvents delivers events to handler until ctx is done or the client
// is closed. Undecodable messages are dropped; handler errors requeue the
// message. A lost channel or connection is re-established with backoff and
// consumption resumes.
func (c *Client) ConsumeEvents(ctx context.Context, handler func(*LedgerEvent) error) error {
	return consumeLoop(ctx, c.openConsumer, handler, exponentialBackoff)
}

// deliverySource opens a consumer and returns its deliveries and a release
// func for the channel behind them.
type deliverySource func(ctx context.Context) (<-chan amqp091.Delivery, func(), error)

var errDeliveriesClosed = errors.New("message channel closed")

// openConsumer starts consuming on a dedicated channel of the live
// connection.
func (c *Client) openConsumer(ctx context.Context) (<-chan amqp091.Delivery, func(), error) {
	conn, err := c.connection(ctx)
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open consumer channel: %w", err)
	}
	if err := setup(ch, c.exchangeName, c.queueName); err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("start consuming: %w", err)
	}
	return msgs, func() { ch.Close() }, nil
}

func consumeLoop(ctx context.Context, open deliverySource, handler func(*LedgerEvent) error, backoff func(int) time.Duration) error {
	attempt := 0
	for {
		msgs, release, err := open(ctx)
		if err == nil {
			attempt = 0
			slog.InfoContext(ctx, "Started consuming ledger events",
				applog.FieldComponent, applog.ComponentAMQP)
			err = drain(ctx, msgs, handler)
			release()
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctxErr)
			return ctxErr
		}
		if errors.Is(err, ErrClientClosed) {
			return err
		}

		wait := backoff(attempt)
		attempt++
		slog.WarnContext(ctx, "Ledger event consumer interrupted, resuming",
			applog.FieldComponent, applog.ComponentAMQP,
			"retry_in", wait,
			applog.FieldError, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// drain handles deliveries until msgs closes or ctx is done.
func drain(ctx context.Context, msgs <-chan amqp091.Delivery, handler func(*LedgerEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errDeliveriesClosed
			}

			msg, err := LedgerEventFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal message", applog.FieldError, err)
				delivery.Nack(false, false)
				continue
			}

			if err := handler(msg); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message",
					applog.FieldError, err,
					applog.FieldEventType, msg.Type,
					"entity_id", msg.EntityID)
				delivery.Nack(false, true)
				continue
			}
			delivery.Ack(false)
		}
	}
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		c.mu.Lock()
		since := time.Since(c.lastFailure)
		c.mu.Unlock()
		if since > openTimeout {
			// let one publish try the broker
			atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

// exponentialBackoff returns 1s, 2s, 4s... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) || errors.Is(err, errNotConnected) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Close shuts the connection down. Running consumers return ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
