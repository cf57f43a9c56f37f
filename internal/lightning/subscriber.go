package lightning

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/sangaman/lightninggem/internal/logging"
)

// Handler processes one settlement event. The subscriber never calls it
// concurrently: the next event is read only after the handler returns, since
// overlapping invocations would race on the single current-gem record.
type Handler func(ctx context.Context, settlement *Settlement)

// Subscriber maintains the single long-lived subscription to the node's
// settlement stream. When the stream ends or fails it marks itself down and
// returns; it never retries on its own. The timeout monitor observes the
// down state and restarts it on its next tick, and invoice issuance is
// refused while down.
type Subscriber struct {
	node    Node
	handler Handler
	logger  logging.Logger

	mu      sync.Mutex
	alive   bool
	running bool
}

// ErrAlreadySubscribed is returned by Run when a subscription loop is
// already active.
var ErrAlreadySubscribed = errors.New("already subscribed")

func NewSubscriber(node Node, handler Handler, logger logging.Logger) *Subscriber {
	return &Subscriber{
		node:    node,
		handler: handler,
		logger:  logger.With("module", "subscriber"),
	}
}

// Alive reports whether the settlement stream is currently established.
func (s *Subscriber) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// Running reports whether a subscription loop is active, established or not.
// The timeout monitor starts a new Run only when this is false.
func (s *Subscriber) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Subscriber) setAlive(alive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = alive
}

// Run subscribes and delivers settlement events in arrival order until the
// stream terminates. The returned error is nil on a clean stream end. Only
// one Run may be active at a time.
func (s *Subscriber) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadySubscribed
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	stream, err := s.node.SubscribeSettlements(ctx)
	if err != nil {
		s.logger.Error(ctx, "subscribing to settlements failed", "error", err)
		return err
	}

	s.setAlive(true)
	defer s.setAlive(false)
	s.logger.Info(ctx, "subscribed to settlement stream")

	for {
		settlement, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Warn(ctx, "settlement stream ended")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error(ctx, "settlement stream failed", "error", err)
			return err
		}
		s.handler(ctx, settlement)
	}
}
