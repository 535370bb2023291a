package queue

import (
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"proptx/server/internal/payment"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestNewSettlementQueue(t *testing.T) {
	q := NewSettlementQueue(10, testLogger())
	assert.NotNil(t, q)
	assert.Equal(t, 10, q.maxSize)
	assert.False(t, q.IsClosed())
}

func TestSettlementQueue_Push(t *testing.T) {
	q := NewSettlementQueue(2, testLogger())

	// Test successful push
	s := payment.Settlement{TxRef: "BKG-1", Status: payment.StatusSuccessful}
	err := q.Push(s)
	assert.NoError(t, err)
	assert.Equal(t, 1, q.Len())

	// Test queue full
	_ = q.Push(s)
	err = q.Push(s)
	assert.Equal(t, ErrQueueFull, err)

	// Test closed queue
	q.Close()
	err = q.Push(s)
	assert.Equal(t, ErrQueueClosed, err)
}

func TestSettlementQueue_Subscribe(t *testing.T) {
	q := NewSettlementQueue(10, testLogger())

	var processed []string
	var mu sync.Mutex

	q.Subscribe(func(s payment.Settlement) error {
		mu.Lock()
		processed = append(processed, s.TxRef)
		mu.Unlock()
		return nil
	})

	q.Start(1)

	assert.NoError(t, q.Push(payment.Settlement{TxRef: "BKG-1"}))
	assert.NoError(t, q.Push(payment.Settlement{TxRef: "INV-2"}))

	// Close drains the buffer before the workers exit
	q.Close()
	q.Wait()

	mu.Lock()
	assert.Equal(t, []string{"BKG-1", "INV-2"}, processed)
	mu.Unlock()
}

func TestSettlementQueue_Close(t *testing.T) {
	q := NewSettlementQueue(10, testLogger())

	// Test first close
	err := q.Close()
	assert.NoError(t, err)
	assert.True(t, q.IsClosed())

	// Test second close (should be no-op)
	err = q.Close()
	assert.NoError(t, err)
}

func TestSettlementQueue_Dispatch(t *testing.T) {
	q := NewSettlementQueue(10, testLogger())

	var wg sync.WaitGroup
	handled := 0
	var mu sync.Mutex

	// Add multiple handlers
	for i := 0; i < 3; i++ {
		wg.Add(1)
		q.Subscribe(func(s payment.Settlement) error {
			mu.Lock()
			handled++
			mu.Unlock()
			wg.Done()
			return nil
		})
	}

	q.Start(4)
	assert.NoError(t, q.Push(payment.Settlement{TxRef: "BKG-9"}))

	// Wait for all handlers
	wg.Wait()

	// Every handler sees the settlement exactly once
	mu.Lock()
	assert.Equal(t, 3, handled)
	mu.Unlock()

	q.Close()
	q.Wait()
}
