package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"identity/config"
	deliverycontext "identity/internal/delivery/context"
	"identity/internal/domain/service"
	"identity/internal/errors"

	"cloud.google.com/go/pubsub/v2"
	pubsubpb "cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
)

// MailEvent is the Pub/Sub payload consumed by the mail relay.
type MailEvent struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"htmlBody"`
}

// PubSubNotifier hands messages to a relay through a Pub/Sub topic.
type PubSubNotifier struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	logger    *slog.Logger
}

// NewPubSubNotifier connects to the configured project and checks that the topic exists.
func NewPubSubNotifier(ctx context.Context, cfg *config.PubSubConfig, logger *slog.Logger) (*PubSubNotifier, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	notifier, err := newPubSubNotifier(ctx, client, cfg.ProjectID, cfg.TopicID, logger)
	if err != nil {
		client.Close()

		return nil, err
	}

	return notifier, nil
}

func newPubSubNotifier(ctx context.Context, client *pubsub.Client, projectID, topicID string, logger *slog.Logger) (*PubSubNotifier, error) {
	topicPath := fmt.Sprintf("projects/%s/topics/%s", projectID, topicID)
	if _, err := client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: topicPath}); err != nil {
		return nil, errors.Wrapf(err, "failed to get topic %s", topicID)
	}

	logger.Info("Pub/Sub notifier initialized",
		slog.String("project_id", projectID),
		slog.String("topic_id", topicID),
	)

	return &PubSubNotifier{
		client:    client,
		publisher: client.Publisher(topicID),
		logger:    logger,
	}, nil
}

// Send publishes the message and waits for the server ack.
func (n *PubSubNotifier) Send(ctx context.Context, msg *service.Message) error {
	data, err := json.Marshal(MailEvent{To: msg.To, Subject: msg.Subject, HTMLBody: msg.HTMLBody})
	if err != nil {
		return errors.WithStack(err)
	}

	attributes := map[string]string{"type": "mail"}
	if requestID := deliverycontext.RequestID(ctx); requestID != "" {
		attributes["request_id"] = requestID
	}

	result := n.publisher.Publish(ctx, &pubsub.Message{Data: data, Attributes: attributes})

	serverID, err := result.Get(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to publish mail event")
	}

	deliverycontext.LoggerOrDefault(ctx, n.logger).Debug("Mail event published",
		slog.String("server_id", serverID),
	)

	return nil
}

// Close flushes pending publishes and releases the client.
func (n *PubSubNotifier) Close() error {
	if n.publisher != nil {
		n.publisher.Stop()
	}
	if n.client != nil {
		return errors.WithStack(n.client.Close())
	}

	return nil
}
