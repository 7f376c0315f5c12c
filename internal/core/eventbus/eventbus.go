// Package eventbus fans typed chain events out to every subscriber: the
// handoff between the block stream producer (C7) and the strategy loop
// consumer (C8), per SPEC_FULL.md §4.6.
package eventbus

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/core/types"
)

// Kind tags which payload field of an Event is populated.
type Kind int

const (
	KindBlock Kind = iota
	KindPendingTx
	KindLog
)

// NewBlock carries one newly observed block's number and EIP-1559 fee data.
type NewBlock struct {
	BlockNumber uint64
	BaseFee     *big.Int
	NextBaseFee *big.Int
}

// Event is a tagged union of Block, PendingTx, and Log variants — the Go
// analogue of the original's Rust enum, done as a struct with a Kind tag
// and one populated payload pointer rather than three overlapping fields.
type Event struct {
	Kind      Kind
	Block     *NewBlock
	PendingTx *types.Transaction
	Log       *types.Log
}

// BlockEvent wraps a NewBlock as an Event.
func BlockEvent(b NewBlock) Event { return Event{Kind: KindBlock, Block: &b} }

// PendingTxEvent wraps a pending transaction as an Event.
func PendingTxEvent(tx *types.Transaction) Event {
	return Event{Kind: KindPendingTx, PendingTx: tx}
}

// LogEvent wraps a log as an Event.
func LogEvent(l types.Log) Event { return Event{Kind: KindLog, Log: &l} }

type subscriber struct {
	ch    chan Event
	lagCh chan struct{}
}

// Bus is a stateless, bounded-capacity multi-producer multi-consumer
// fan-out: every subscriber gets its own buffered channel. A slow
// subscriber does not block others — on overflow the oldest undelivered
// event for that subscriber is dropped and a lag signal is raised.
type Bus struct {
	mu          sync.Mutex
	subscribers map[int]*subscriber
	nextID      int
	capacity    int
}

// New returns a Bus whose per-subscriber channels have the given capacity.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 512
	}
	return &Bus{subscribers: make(map[int]*subscriber), capacity: capacity}
}

// Subscription is a handle returned by Subscribe.
type Subscription struct {
	id  int
	bus *Bus
	sub *subscriber
}

// Events returns the channel this subscription receives events on.
func (s *Subscription) Events() <-chan Event { return s.sub.ch }

// Lagged returns a channel that receives a signal whenever this
// subscriber's buffer overflowed and an event was dropped. The subscriber
// must drain it to avoid blocking on repeated overflows (it is itself
// buffered, so a burst of drops coalesces into ready-to-read signals).
func (s *Subscription) Lagged() <-chan struct{} { return s.sub.lagCh }

// Unsubscribe removes the subscription and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if _, ok := s.bus.subscribers[s.id]; ok {
		delete(s.bus.subscribers, s.id)
		close(s.sub.ch)
	}
}

// Subscribe registers a new subscriber and returns its handle.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	sub := &subscriber{
		ch:    make(chan Event, b.capacity),
		lagCh: make(chan struct{}, 1),
	}
	b.subscribers[id] = sub
	return &Subscription{id: id, bus: b, sub: sub}
}

// Publish fans evt out to every current subscriber, non-blocking. A full
// subscriber channel drops its oldest entry to make room rather than
// stall the publisher.
func (b *Bus) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscribers {
		select {
		case sub.ch <- evt:
			continue
		default:
		}

		// Buffer full: drop the oldest entry and retry once.
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- evt:
		default:
		}

		select {
		case sub.lagCh <- struct{}{}:
		default:
		}
	}
}

// SubscriberCount returns the number of currently active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
