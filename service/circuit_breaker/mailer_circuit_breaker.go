package circuit_breaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"chirp/mailer"
)

// MailerCircuitBreaker shields registration from a flapping SMTP relay.
// While the breaker is open, sends fail fast and the caller treats the
// email as undelivered; users can ask for a resend later.
type MailerCircuitBreaker struct {
	circuitBreaker *gobreaker.CircuitBreaker
	mailer         mailer.Mailer
	tracer         trace.Tracer
}

func NewMailerCircuitBreaker(m mailer.Mailer, tracer trace.Tracer, logger *zap.Logger) *MailerCircuitBreaker {
	return &MailerCircuitBreaker{
		circuitBreaker: newCircuitBreaker(logger),
		mailer:         m,
		tracer:         tracer,
	}
}

func newCircuitBreaker(logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(
		gobreaker.Settings{
			Name:        "Mailer",
			MaxRequests: 1,
			Timeout:     5 * time.Second,
			Interval:    0,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 0
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn("circuit breaker state change",
					zap.String("name", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		},
	)
}

func (cb *MailerCircuitBreaker) SendVerification(ctx context.Context, to string, link string) error {
	cbCtx, span := cb.tracer.Start(ctx, "MailerCircuitBreaker.SendVerification")
	defer span.End()

	_, err := cb.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, cb.mailer.SendVerification(cbCtx, to, link)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
