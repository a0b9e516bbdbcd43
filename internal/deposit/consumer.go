package deposit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/muhvmmv/Tyche-Betting/internal/ledger"
	"github.com/muhvmmv/Tyche-Betting/internal/metrics"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Consumer applies payment confirmations from the payments topic. An offset is
// committed only after its payment was credited, found to be a duplicate, or
// rejected as malformed; store failures are retried in place.
type Consumer struct {
	reader  messageReader
	service *Service
	metrics *metrics.Metrics
	log     *slog.Logger

	backoff    time.Duration
	maxBackoff time.Duration
}

func NewConsumer(reader messageReader, service *Service, m *metrics.Metrics, log *slog.Logger) *Consumer {
	return &Consumer{
		reader:     reader,
		service:    service,
		metrics:    m,
		log:        log,
		backoff:    500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warn("kafka fetch failed", "error", err)
			c.metrics.PaymentMessage("read_error")
			if !sleep(ctx, c.backoff) {
				return nil
			}
			continue
		}

		if !c.handle(ctx, msg) {
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warn("kafka commit failed", "offset", msg.Offset, "error", err)
		}
	}
}

// handle returns false only when ctx ended before the message was applied.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) bool {
	var p Payment
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		c.log.Error("undecodable payment message", "offset", msg.Offset, "error", err)
		c.metrics.PaymentMessage("invalid")
		return true
	}

	wait := c.backoff
	for {
		_, err := c.service.Confirm(ctx, p)
		switch {
		case err == nil:
			c.metrics.PaymentMessage("confirmed")
			return true
		case errors.Is(err, ErrDuplicate):
			c.metrics.PaymentMessage("duplicate")
			return true
		case errors.Is(err, ErrInvalidPayment), errors.Is(err, ledger.ErrInvalidAmount):
			c.log.Error("rejected payment message", "offset", msg.Offset, "payment_id", p.ExternalPaymentID, "error", err)
			c.metrics.PaymentMessage("invalid")
			return true
		}

		c.log.Warn("payment confirmation failed, retrying", "payment_id", p.ExternalPaymentID, "retry_in", wait, "error", err)
		c.metrics.PaymentMessage("retry")
		if !sleep(ctx, wait) {
			return false
		}
		wait = min(wait*2, c.maxBackoff)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
