package workflows

import (
	"context"
	"time"

	"github.com/inngest/inngestgo"
	"github.com/sirupsen/logrus"
	"github.com/tallbag/gutinvoice/internal/config"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
)

// EventTaskFailed is emitted for every dead-lettered task
const EventTaskFailed = "gutinvoice/task.failed"

type eventSender interface {
	Send(ctx context.Context, evt any) (string, error)
}

// InngestClient publishes ledger events to Inngest
type InngestClient struct {
	client eventSender
	logger *logrus.Logger
}

// NewInngestClient creates a new Inngest event client
func NewInngestClient(cfg *config.Config, logger *logrus.Logger) (*InngestClient, error) {
	if cfg.Inngest.EventKey == "" && !cfg.Inngest.Dev {
		return nil, ierr.NewError("INNGEST_EVENT_KEY not configured").Mark(ierr.ErrValidation)
	}

	opts := inngestgo.ClientOpts{
		AppID: cfg.Inngest.AppID,
		Dev:   &cfg.Inngest.Dev,
	}
	if cfg.Inngest.EventKey != "" {
		opts.EventKey = &cfg.Inngest.EventKey
	}
	if cfg.Inngest.SigningKey != "" {
		opts.SigningKey = &cfg.Inngest.SigningKey
	}

	client, err := inngestgo.NewClient(opts)
	if err != nil {
		return nil, ierr.WithError(err).WithMessage("error creating Inngest client").Mark(ierr.ErrDependency)
	}

	return &InngestClient{
		client: client,
		logger: logger,
	}, nil
}

// Publish sends one event
func (c *InngestClient) Publish(ctx context.Context, name string, data map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	id, err := c.client.Send(ctx, inngestgo.Event{
		Name:      name,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return ierr.WithError(err).
			WithMessagef("error sending %s event", name).
			Mark(ierr.ErrDependency)
	}

	c.logger.WithFields(logrus.Fields{
		"event":    name,
		"event_id": id,
	}).Debug("Event published")
	return nil
}

// LogPublisher logs events when no event bus is configured
type LogPublisher struct {
	logger *logrus.Logger
}

// NewLogPublisher creates a new log publisher
func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event
func (p *LogPublisher) Publish(ctx context.Context, name string, data map[string]any) error {
	p.logger.WithFields(logrus.Fields{
		"event": name,
		"data":  data,
	}).Info("Event")
	return nil
}
