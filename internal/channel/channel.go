// Package channel fans tick batches out from the simulation loop to the
// goroutines that record and stream them.
package channel

// Receiver is the read side of a subscription.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// subscription is a buffered channel owned by a Hub.
type subscription[T any] struct {
	ch chan T
	// lossless subscriptions block the publisher instead of dropping.
	lossless bool
}

func newSubscription[T any](size int, lossless bool) *subscription[T] {
	return &subscription[T]{ch: make(chan T, size), lossless: lossless}
}

// deliver reports false when v was dropped.
func (s *subscription[T]) deliver(v T) bool {
	if s.lossless {
		s.ch <- v
		return true
	}
	select {
	case s.ch <- v:
		return true
	default:
		return false
	}
}

func (s *subscription[T]) Receive() <-chan T { return s.ch }

func (s *subscription[T]) Len() int { return len(s.ch) }
