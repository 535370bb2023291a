package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"proptx/server/internal/payment"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Handler processes one settlement
type Handler func(payment.Settlement) error

// SettlementQueue is an in-memory queue of provider settlements waiting to
// be reconciled
type SettlementQueue struct {
	items    chan payment.Settlement
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	workers  sync.WaitGroup
	logger   *logrus.Logger
	handlers []Handler
}

// NewSettlementQueue creates a new settlement queue with the specified buffer size
func NewSettlementQueue(bufferSize int, logger *logrus.Logger) *SettlementQueue {
	return &SettlementQueue{
		items:    make(chan payment.Settlement, bufferSize),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]Handler, 0),
	}
}

// Push adds a settlement to the queue
func (q *SettlementQueue) Push(s payment.Settlement) error {
	// The read lock is held across the send so Close cannot close the
	// channel underneath it.
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	// Non-blocking send to prevent deadlocks
	select {
	case q.items <- s:
		q.logger.WithField("tx_ref", s.TxRef).Debug("Pushed settlement to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler function that will be called for each settlement
func (q *SettlementQueue) Subscribe(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start launches workers that consume the queue until it is closed
func (q *SettlementQueue) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.workers.Add(1)
		go q.process()
	}
}

// process drains the queue; it returns once Close has been called and the
// buffered settlements are handled
func (q *SettlementQueue) process() {
	defer q.workers.Done()
	for s := range q.items {
		q.dispatch(s)
	}
}

// dispatch sends the settlement to all subscribed handlers
func (q *SettlementQueue) dispatch(s payment.Settlement) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(s); err != nil {
			q.logger.WithError(err).WithField("tx_ref", s.TxRef).Error("Handler failed to process settlement")
		}
	}
}

// Close stops accepting settlements. Workers finish what is buffered.
func (q *SettlementQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.items)
	return nil
}

// Wait blocks until every worker has exited
func (q *SettlementQueue) Wait() {
	q.workers.Wait()
}

// Len returns the current number of settlements in the queue
func (q *SettlementQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *SettlementQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
