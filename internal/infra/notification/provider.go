package notification

import (
	"context"
	"log/slog"
	"time"

	"identity/config"
	deliverycontext "identity/internal/delivery/context"
	"identity/internal/domain/service"
	"identity/internal/errors"
	"identity/internal/infra/metrics"

	"go.uber.org/fx"
)

// NotifierParams holds dependencies for the Notifier, injected by Fx
type NotifierParams struct {
	fx.In

	Lc      fx.Lifecycle
	Ctx     context.Context
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

// NewNotifier creates the Notifier selected by mail.provider, wrapped with
// the delivery timeout and metrics.
func NewNotifier(params NotifierParams) (service.Notifier, error) {
	cfg := params.Config.Mail
	logger := params.Logger

	if cfg == nil || cfg.Provider == "" || cfg.Provider == config.MailProviderLog {
		logger.Warn("Mail provider not configured, messages will only be logged")

		return newInstrumentedNotifier(NewLogNotifier(logger), config.MailProviderLog, 0, params.Metrics, logger), nil
	}

	var notifier service.Notifier

	switch cfg.Provider {
	case config.MailProviderSMTP:
		smtp, err := NewSMTPNotifier(cfg, logger)
		if err != nil {
			return nil, err
		}
		notifier = smtp

	case config.MailProviderPubSub:
		if params.Config.PubSub == nil {
			return nil, errors.New("pubsub config is required for pubsub mail provider")
		}

		publisher, err := NewPubSubNotifier(params.Ctx, params.Config.PubSub, logger)
		if err != nil {
			return nil, err
		}
		params.Lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				logger.Info("Closing Pub/Sub notifier")

				return publisher.Close()
			},
		})
		notifier = publisher

	default:
		return nil, errors.Errorf("unknown mail provider: %s", cfg.Provider)
	}

	return newInstrumentedNotifier(notifier, cfg.Provider, cfg.DeliveryTimeout, params.Metrics, logger), nil
}

// instrumentedNotifier bounds each send and records its outcome.
type instrumentedNotifier struct {
	next     service.Notifier
	provider string
	timeout  time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func newInstrumentedNotifier(
	next service.Notifier,
	provider string,
	timeout time.Duration,
	m *metrics.Metrics,
	logger *slog.Logger,
) *instrumentedNotifier {
	return &instrumentedNotifier{
		next:     next,
		provider: provider,
		timeout:  timeout,
		metrics:  m,
		logger:   logger,
	}
}

func (n *instrumentedNotifier) Send(ctx context.Context, msg *service.Message) error {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	start := time.Now()
	err := n.next.Send(ctx, msg)
	if err != nil {
		n.metrics.ObserveDelivery(n.provider, metrics.ResultFailure)
		deliverycontext.LoggerOrDefault(ctx, n.logger).ErrorContext(ctx, "Message delivery failed",
			slog.String("provider", n.provider),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err),
		)

		return err
	}

	n.metrics.ObserveDelivery(n.provider, metrics.ResultSuccess)

	return nil
}

// Module provides the notification FX module
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(NewNotifier),
)
