package servicebus

import (
	"context"
	"errors"

	"downloader/domain/dto"
	"downloader/infrastructure/events"
	"downloader/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

var ErrNoSender = errors.New("service bus sender not configured")

// NewServiceBus authenticates with the default Azure credential chain.
// An empty namespace returns nil, nil.
func NewServiceBus(_ context.Context, namespace string) (*azservicebus.Client, error) {
	if namespace == "" {
		return nil, nil
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azservicebus.NewClient(namespace, cred, nil)
}

type messageSender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// DownloadEventSender publishes download status events to an Azure Service Bus queue.
type DownloadEventSender struct {
	sender messageSender
}

func NewDownloadEventSender(client *azservicebus.Client, queue string) (*DownloadEventSender, error) {
	if client == nil {
		return &DownloadEventSender{}, nil
	}
	sender, err := client.NewSender(queue, nil)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return nil, err
	}
	return &DownloadEventSender{sender: sender}, nil
}

func (s *DownloadEventSender) Publish(ctx context.Context, evt dto.DownloadStatusEvent) error {
	if s.sender == nil {
		return ErrNoSender
	}
	payload, attrs, err := events.Encode(evt)
	if err != nil {
		return err
	}
	props := make(map[string]any, len(attrs))
	for k, v := range attrs {
		props[k] = v
	}
	subject := evt.Type
	contentType := "application/json"
	msg := &azservicebus.Message{
		Body:                  payload,
		Subject:               &subject,
		ContentType:           &contentType,
		ApplicationProperties: props,
	}
	if err := s.sender.SendMessage(ctx, msg, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}

func (s *DownloadEventSender) Close(ctx context.Context) {
	if s.sender == nil {
		return
	}
	if err := s.sender.Close(ctx); err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while closing sender.")
	}
}
