package consumer

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/example/staffmatch/internal/eligibility/domain"
)

const (
	streamName = "STAFFING"

	// DefaultBookingSubject carries booking-aggregate events keyed by booking id.
	DefaultBookingSubject = "staffing.bookings"
	// DefaultCarerSubject carries carer-aggregate events keyed by carer id.
	DefaultCarerSubject = "staffing.carers"
	// DefaultQueueGroup is the consumer group shared by service instances.
	DefaultQueueGroup = "view-maintenance"
)

// Processor applies one raw event payload to the projections.
type Processor interface {
	Process(ctx context.Context, data []byte) error
}

// Config names the subjects and queue group for the two subscriptions.
type Config struct {
	BookingSubject string
	CarerSubject   string
	QueueGroup     string
}

// Consumer subscribes the booking and carer processors to their JetStream
// subjects. Ordering holds per subject partition key only; the two streams are
// never ordered relative to each other.
type Consumer struct {
	js       nats.JetStreamContext
	bookings Processor
	carers   Processor
	logger   *zap.Logger
	cfg      Config
	tracer   trace.Tracer
}

// New constructs the consumer.
func New(js nats.JetStreamContext, bookings, carers Processor, logger *zap.Logger, cfg Config) *Consumer {
	if cfg.BookingSubject == "" {
		cfg.BookingSubject = DefaultBookingSubject
	}
	if cfg.CarerSubject == "" {
		cfg.CarerSubject = DefaultCarerSubject
	}
	if cfg.QueueGroup == "" {
		cfg.QueueGroup = DefaultQueueGroup
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		js:       js,
		bookings: bookings,
		carers:   carers,
		logger:   logger,
		cfg:      cfg,
		tracer:   otel.Tracer("eligibility.consumer"),
	}
}

// EnsureStream creates or validates the stream holding both event subjects.
func EnsureStream(js nats.JetStreamContext) error {
	if _, err := js.StreamInfo(streamName); err != nil {
		if errors.Is(err, nats.ErrStreamNotFound) {
			_, addErr := js.AddStream(&nats.StreamConfig{
				Name:      streamName,
				Subjects:  []string{"staffing.>"},
				Retention: nats.LimitsPolicy,
				Storage:   nats.FileStorage,
				Replicas:  1,
			})
			return addErr
		}
		return err
	}
	return nil
}

// Start opens both queue subscriptions and returns an unsubscribe function.
func (c *Consumer) Start(ctx context.Context) (func(), error) {
	bookingSub, err := c.js.QueueSubscribe(c.cfg.BookingSubject, c.cfg.QueueGroup,
		c.handler(ctx, "bookings", c.bookings), nats.ManualAck())
	if err != nil {
		return nil, err
	}
	carerSub, err := c.js.QueueSubscribe(c.cfg.CarerSubject, c.cfg.QueueGroup,
		c.handler(ctx, "carers", c.carers), nats.ManualAck())
	if err != nil {
		_ = bookingSub.Unsubscribe()
		return nil, err
	}
	c.logger.Info("consuming event streams",
		zap.String("bookings", c.cfg.BookingSubject),
		zap.String("carers", c.cfg.CarerSubject),
		zap.String("queue_group", c.cfg.QueueGroup))
	return func() {
		_ = bookingSub.Unsubscribe()
		_ = carerSub.Unsubscribe()
	}, nil
}

// handler maps processing outcomes onto the delivery protocol: applied or
// benign race => Ack, poison payload => Term, store fault => Nak so the
// consumer group redelivers.
func (c *Consumer) handler(ctx context.Context, stream string, proc Processor) nats.MsgHandler {
	return func(msg *nats.Msg) {
		spanCtx, span := c.tracer.Start(ctx, "eligibility.process")
		defer span.End()

		err := proc.Process(spanCtx, msg.Data)
		switch {
		case err == nil:
			_ = msg.Ack()
		case errors.Is(err, domain.ErrBadPayload), errors.Is(err, domain.ErrUnknownEventType):
			c.logger.Warn("discarding poison event",
				zap.String("stream", stream), zap.Error(err))
			_ = msg.Term()
		default:
			c.logger.Error("event processing failed",
				zap.String("stream", stream), zap.Error(err))
			_ = msg.Nak()
		}
	}
}
