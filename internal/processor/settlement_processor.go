package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"proptx/server/config"
	"proptx/server/internal/apperror"
	"proptx/server/internal/payment"
	"proptx/server/internal/queue"
	"proptx/server/internal/reconcile"
)

// Reconciler applies a settlement
type Reconciler interface {
	Apply(ctx context.Context, s payment.Settlement) (*reconcile.Outcome, error)
}

// SettlementProcessor reconciles settlements taken from the webhook queue
type SettlementProcessor struct {
	reconciler Reconciler
	logger     *logrus.Logger
	config     *config.Config
	queue      *queue.SettlementQueue
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewSettlementProcessor creates a new settlement processor instance
func NewSettlementProcessor(reconciler Reconciler, q *queue.SettlementQueue, cfg *config.Config, logger *logrus.Logger) *SettlementProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &SettlementProcessor{
		reconciler: reconciler,
		queue:      q,
		config:     cfg,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start subscribes to the queue and launches its workers
func (p *SettlementProcessor) Start() {
	p.queue.Subscribe(func(s payment.Settlement) error {
		_, err := p.process(s)
		return err
	})
	p.queue.Start(p.config.Webhooks.ProcessorCount)
}

// Stop closes the queue, waits for buffered settlements to be reconciled
// and then cancels in-flight retries
func (p *SettlementProcessor) Stop() {
	p.queue.Close()
	p.queue.Wait()
	p.cancel()
}

// process reconciles one settlement, retrying infrastructure failures.
// Classified domain errors are permanent and returned at once.
func (p *SettlementProcessor) process(s payment.Settlement) (*reconcile.Outcome, error) {
	retries := p.config.Webhooks.MaxRetries
	delay := time.Duration(p.config.Webhooks.RetryDelay) * time.Second

	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			p.logger.WithField("tx_ref", s.TxRef).Infof("Retrying settlement, attempt %d of %d", attempt, retries)
			select {
			case <-time.After(delay):
			case <-p.ctx.Done():
				return nil, fmt.Errorf("settlement %s abandoned: %w", s.TxRef, p.ctx.Err())
			}
		}

		var out *reconcile.Outcome
		out, err = p.reconciler.Apply(p.ctx, s)
		if err == nil {
			p.logger.WithFields(logrus.Fields{
				"tx_ref": s.TxRef,
				"result": out.Result,
			}).Info("Processed settlement")
			return out, nil
		}
		if apperror.KindOf(err) != apperror.KindInternal {
			p.logger.WithError(err).WithField("tx_ref", s.TxRef).Warn("Settlement rejected")
			return nil, err
		}

		p.logger.WithError(err).WithField("tx_ref", s.TxRef).Error("Settlement processing failed")
	}

	return nil, fmt.Errorf("failed to process settlement after %d attempts: %w", retries, err)
}
