package realtime

import (
	"context"
	"iter"
	"sync"

	"go.uber.org/zap"

	"github.com/d60-Lab/chatsync/pkg/logger"
)

// Loader returns the complete current result set.
type Loader[T any] func(ctx context.Context) ([]T, error)

// Subscription yields full snapshots. When the consumer falls behind, a
// pending snapshot is replaced by the newer one.
type Subscription[T any] struct {
	topic  string
	ch     chan []T
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// Subscribe delivers the current snapshot immediately and a fresh one after
// every change published on topic, until Close is called or ctx ends.
func Subscribe[T any](ctx context.Context, b *Broker, topic string, load Loader[T]) (*Subscription[T], error) {
	ps, err := b.subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}

	first, err := load(ctx)
	if err != nil {
		_ = ps.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &Subscription[T]{
		topic:  topic,
		ch:     make(chan []T, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.ch <- first

	events := ps.Channel()
	go func() {
		defer close(s.done)
		defer close(s.ch)
		defer ps.Close()

		for {
			select {
			case <-runCtx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				snap, err := load(runCtx)
				if err != nil {
					if runCtx.Err() != nil {
						return
					}
					logger.Warn("reload snapshot failed", zap.String("topic", topic), zap.Error(err))
					continue
				}
				s.push(snap)
			}
		}
	}()
	return s, nil
}

func (s *Subscription[T]) push(snap []T) {
	for {
		select {
		case s.ch <- snap:
			return
		default:
		}
		// drop the stale snapshot
		select {
		case <-s.ch:
		default:
		}
	}
}

// C is closed after Close.
func (s *Subscription[T]) C() <-chan []T { return s.ch }

// All ranges over snapshots until the subscription ends.
func (s *Subscription[T]) All() iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		for snap := range s.ch {
			if !yield(snap) {
				return
			}
		}
	}
}

// Topic is the change topic this subscription listens on.
func (s *Subscription[T]) Topic() string { return s.topic }

// Close releases the pub/sub connection. Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once the subscription has stopped.
func (s *Subscription[T]) Done() <-chan struct{} { return s.done }
