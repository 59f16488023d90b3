package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the fanout exchange every instance binds to.
const DefaultExchange = "mesa.changes"

const (
	amqpMinBackoff = 500 * time.Millisecond
	amqpMaxBackoff = 30 * time.Second
)

// AMQP publishes changes to a RabbitMQ fanout exchange. Each instance owns a
// server-named, exclusive, auto-delete queue bound to that exchange. A lost
// connection is redialled with a capped backoff and the exchange, queue and
// binding are declared again.
type AMQP struct {
	*hub
	exchange string
	dial     amqpDialer
	backoff  time.Duration

	mu   sync.Mutex // guards link and serialises publishes
	link amqpLink

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// amqpLink is one live broker connection with its channels declared.
type amqpLink interface {
	publish(ctx context.Context, exchange string, msg amqp.Publishing) error
	deliveries() <-chan amqp.Delivery
	lost() <-chan *amqp.Error
	close() error
}

type amqpDialer func(exchange string) (amqpLink, error)

// DialAMQP connects, declares the exchange and starts consuming.
func DialAMQP(url, exchange string, workers int, log *slog.Logger) (*AMQP, error) {
	return newAMQP(exchange, workers, log, amqpMinBackoff, func(exchange string) (amqpLink, error) {
		return dialAMQPSession(url, exchange)
	})
}

func newAMQP(exchange string, workers int, log *slog.Logger, backoff time.Duration, dial amqpDialer) (*AMQP, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	link, err := dial(exchange)
	if err != nil {
		return nil, err
	}

	a := &AMQP{
		hub:      newHub(workers, log),
		exchange: exchange,
		dial:     dial,
		backoff:  backoff,
		link:     link,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go a.run(link)
	return a, nil
}

func (a *AMQP) Publish(ctx context.Context, c Change) error {
	if a.isClosed() {
		return ErrClosed
	}
	c = stamp(c)
	body, err := json.Marshal(c)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	err = a.link.publish(ctx, a.exchange, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   c.At,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("notify: amqp publish: %w", err)
	}
	return nil
}

func (a *AMQP) Close() error {
	if a.isClosed() {
		return nil
	}
	a.stopOnce.Do(func() { close(a.stop) })
	<-a.done

	a.mu.Lock()
	err := a.link.close()
	a.mu.Unlock()

	a.close()
	return err
}

// ─── Consume loop ────────────────────────────────────────────────────────────

func (a *AMQP) run(link amqpLink) {
	defer close(a.done)
	for {
		reason := a.consume(link)
		if a.stopping() {
			return
		}
		a.log.Warn("amqp connection lost, reconnecting", "exchange", a.exchange, "error", reason)
		_ = link.close()

		if link = a.redial(); link == nil {
			return
		}
		a.log.Info("amqp connection restored", "exchange", a.exchange)
	}
}

// consume dispatches deliveries until the link drops or Close is called.
func (a *AMQP) consume(link amqpLink) error {
	in, lost := link.deliveries(), link.lost()
	for {
		select {
		case <-a.stop:
			return nil
		case err, ok := <-lost:
			if ok && err != nil {
				return err
			}
			return errors.New("connection closed")
		case d, ok := <-in:
			if !ok {
				return errors.New("delivery channel closed")
			}
			a.handle(d.Body)
		}
	}
}

func (a *AMQP) handle(body []byte) {
	var c Change
	if err := json.Unmarshal(body, &c); err != nil || c.Collection == "" {
		a.log.Warn("discarding malformed change", "exchange", a.exchange, "error", err)
		return
	}
	a.dispatch(c)
}

// redial retries until a link comes up or Close is called, which returns nil.
func (a *AMQP) redial() amqpLink {
	wait := a.backoff
	for {
		select {
		case <-a.stop:
			return nil
		case <-time.After(wait):
		}

		link, err := a.dial(a.exchange)
		if err == nil {
			a.mu.Lock()
			a.link = link
			a.mu.Unlock()
			return link
		}
		a.log.Warn("amqp redial failed", "exchange", a.exchange, "error", err, "backoff", wait)
		if wait *= 2; wait > amqpMaxBackoff {
			wait = amqpMaxBackoff
		}
	}
}

func (a *AMQP) stopping() bool {
	select {
	case <-a.stop:
		return true
	default:
		return false
	}
}

// ─── Broker session ──────────────────────────────────────────────────────────

type amqpSession struct {
	conn   *amqp.Connection
	pub    *amqp.Channel
	in     <-chan amqp.Delivery
	closed chan *amqp.Error
}

func dialAMQPSession(url, exchange string) (*amqpSession, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("notify: amqp dial: %w", err)
	}

	s := &amqpSession{conn: conn, closed: conn.NotifyClose(make(chan *amqp.Error, 1))}
	if err := s.setup(exchange); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *amqpSession) setup(exchange string) error {
	var err error
	if s.pub, err = s.conn.Channel(); err != nil {
		return fmt.Errorf("notify: amqp publish channel: %w", err)
	}
	if err = s.pub.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("notify: declare exchange %s: %w", exchange, err)
	}

	sub, err := s.conn.Channel()
	if err != nil {
		return fmt.Errorf("notify: amqp consume channel: %w", err)
	}
	q, err := sub.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("notify: declare queue: %w", err)
	}
	if err = sub.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return fmt.Errorf("notify: bind queue: %w", err)
	}
	if s.in, err = sub.Consume(q.Name, "", true, true, false, false, nil); err != nil {
		return fmt.Errorf("notify: consume %s: %w", q.Name, err)
	}
	return nil
}

func (s *amqpSession) publish(ctx context.Context, exchange string, msg amqp.Publishing) error {
	return s.pub.PublishWithContext(ctx, exchange, "", false, false, msg)
}

func (s *amqpSession) deliveries() <-chan amqp.Delivery { return s.in }
func (s *amqpSession) lost() <-chan *amqp.Error        { return s.closed }

func (s *amqpSession) close() error {
	if err := s.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	return nil
}
