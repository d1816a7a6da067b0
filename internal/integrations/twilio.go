package integrations

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/tallbag/gutinvoice/internal/config"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
	"github.com/tallbag/gutinvoice/internal/httpclient"
	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

const (
	twilioAPIBase  = "https://api.twilio.com"
	whatsappPrefix = "whatsapp:"
)

// messageCreator is the part of the Twilio REST API the messenger uses
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioMessenger sends and receives WhatsApp messages through Twilio
type TwilioMessenger struct {
	api        messageCreator
	http       *httpclient.Client
	validator  twclient.RequestValidator
	cfg        config.TwilioConfig
	logger     *logrus.Logger
	retryDelay time.Duration
}

// NewTwilioMessenger creates a messenger for the configured account
func NewTwilioMessenger(cfg config.TwilioConfig, logger *logrus.Logger) *TwilioMessenger {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newTwilioMessenger(rest.Api, cfg, logger)
}

func newTwilioMessenger(api messageCreator, cfg config.TwilioConfig, logger *logrus.Logger) *TwilioMessenger {
	return &TwilioMessenger{
		api: api,
		http: httpclient.New(httpclient.ClientConfig{
			Timeout:    30 * time.Second,
			MaxRetries: cfg.MaxRetries,
		}, logger),
		validator:  twclient.NewRequestValidator(cfg.AuthToken),
		cfg:        cfg,
		logger:     logger,
		retryDelay: 500 * time.Millisecond,
	}
}

// SendText sends a plain WhatsApp message
func (m *TwilioMessenger) SendText(ctx context.Context, to, body string) error {
	params := &openapi.CreateMessageParams{}
	params.SetFrom(whatsappAddress(m.cfg.WhatsAppNumber))
	params.SetTo(whatsappAddress(to))
	params.SetBody(body)
	return m.send(ctx, params)
}

// SendDocument sends a message with a document attached by URL
func (m *TwilioMessenger) SendDocument(ctx context.Context, to, body, mediaURL string) error {
	params := &openapi.CreateMessageParams{}
	params.SetFrom(whatsappAddress(m.cfg.WhatsAppNumber))
	params.SetTo(whatsappAddress(to))
	params.SetBody(body)
	params.SetMediaUrl([]string{mediaURL})
	return m.send(ctx, params)
}

func (m *TwilioMessenger) send(ctx context.Context, params *openapi.CreateMessageParams) error {
	var sid string
	op := func() error {
		msg, err := m.api.CreateMessage(params)
		if err != nil {
			var restErr *twclient.TwilioRestError
			if ierr.As(err, &restErr) && restErr.Status >= 400 && restErr.Status < 500 && restErr.Status != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}
		if msg != nil && msg.Sid != nil {
			sid = *msg.Sid
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.retryDelay
	retries := uint64(0)
	if m.cfg.MaxRetries > 0 {
		retries = uint64(m.cfg.MaxRetries)
	}

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx)); err != nil {
		m.logger.WithFields(logrus.Fields{
			"to":    deref(params.To),
			"error": err.Error(),
		}).Error("WhatsApp message failed")
		return ierr.WithError(err).
			WithMessage("twilio send").
			Mark(ierr.ErrDelivery)
	}

	m.logger.WithFields(logrus.Fields{
		"to":  deref(params.To),
		"sid": sid,
	}).Info("WhatsApp message sent")
	return nil
}

// DownloadMedia fetches an inbound media item with the account credentials
func (m *TwilioMessenger) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	if strings.HasPrefix(mediaURL, "/") {
		mediaURL = twilioAPIBase + mediaURL
	}
	resp, err := m.http.Send(ctx, &httpclient.Request{
		Method:   http.MethodGet,
		URL:      mediaURL,
		Username: m.cfg.AccountSID,
		Password: m.cfg.AuthToken,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("media download").
			WithHint("❌ Could not download the voice note. Please send it again.").
			Mark(ierr.ErrTranscription)
	}

	m.logger.WithFields(logrus.Fields{
		"size":         len(resp.Body),
		"content_type": resp.Headers.Get("Content-Type"),
	}).Info("Media downloaded")
	return resp.Body, nil
}

// ValidateSignature checks the X-Twilio-Signature of an inbound webhook
func (m *TwilioMessenger) ValidateSignature(url string, params map[string]string, signature string) bool {
	return m.validator.Validate(url, params, signature)
}

func whatsappAddress(number string) string {
	if strings.HasPrefix(number, whatsappPrefix) {
		return number
	}
	return whatsappPrefix + number
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
