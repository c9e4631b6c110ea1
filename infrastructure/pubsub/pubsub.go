package pubsub

import (
	"context"
	"errors"
	"sync"

	"downloader/domain/dto"
	"downloader/infrastructure/events"
	"downloader/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

var ErrNoClient = errors.New("pubsub client not configured")

// NewPubSub returns nil, nil when no project is configured.
func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, nil
	}
	return pubsub.NewClient(ctx, projectID)
}

// DownloadEventPublisher publishes download status events to a Google Cloud Pub/Sub topic.
type DownloadEventPublisher struct {
	client    *pubsub.Client
	topicName string

	once  sync.Once
	topic *pubsub.Topic
	err   error
}

func NewDownloadEventPublisher(client *pubsub.Client, topicName string) *DownloadEventPublisher {
	return &DownloadEventPublisher{client: client, topicName: topicName}
}

func (p *DownloadEventPublisher) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	p.once.Do(func() {
		topic := p.client.Topic(p.topicName)
		exists, err := topic.Exists(ctx)
		if err != nil {
			p.err = err
			return
		}
		if !exists {
			logger.GetLogger().WithField("topic", p.topicName).Info("Topic doesn't exist - creating it")
			if topic, err = p.client.CreateTopic(ctx, p.topicName); err != nil {
				p.err = err
				return
			}
		}
		p.topic = topic
	})
	return p.topic, p.err
}

func (p *DownloadEventPublisher) Publish(ctx context.Context, evt dto.DownloadStatusEvent) error {
	if p.client == nil {
		return ErrNoClient
	}
	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return err
	}
	payload, attrs, err := events.Encode(evt)
	if err != nil {
		return err
	}
	serverID, err := topic.Publish(ctx, &pubsub.Message{Data: payload, Attributes: attrs}).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("server ID", serverID).Debug("Message published")
	return nil
}

func (p *DownloadEventPublisher) Stop() {
	if p.topic != nil {
		p.topic.Stop()
	}
}
