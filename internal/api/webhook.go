package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tallbag/gutinvoice/internal/models"
	"github.com/tallbag/gutinvoice/internal/services"
	"github.com/tallbag/gutinvoice/internal/workflows"
)

const (
	emptyTwiML     = "<Response></Response>"
	sellerLockWait = 30 * time.Second
)

// Webhook accepts a Twilio WhatsApp message, queues it and answers with
// empty TwiML right away. Replies are sent through the REST API.
func (api *API) Webhook(c *gin.Context) {
	var msg models.InboundMessage
	if err := c.ShouldBind(&msg); err != nil {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid webhook payload", []models.ErrorDetail{
			{Field: "form", Issue: err.Error()},
		}))
		return
	}

	if api.cfg.Twilio.ValidateHooks && api.signature != nil {
		params := make(map[string]string, len(c.Request.PostForm))
		for key := range c.Request.PostForm {
			params[key] = c.Request.PostForm.Get(key)
		}
		if !api.signature.ValidateSignature(api.webhookURL(), params, c.GetHeader("X-Twilio-Signature")) {
			api.logger.WithField("from", msg.From).Warn("Webhook signature rejected")
			c.JSON(http.StatusForbidden, models.NewUnauthorizedError("Invalid signature"))
			return
		}
	}

	msg.ReceivedAt = api.now()
	ctx := c.Request.Context()
	if msg.SID != "" && !api.firstDelivery(ctx, msg.SID) {
		api.logger.WithField("sid", msg.SID).Info("Duplicate webhook delivery ignored")
		api.twiml(c)
		return
	}

	err := api.runner.Submit(workflows.Task{
		Name: "message",
		Key:  msg.From,
		Run: func(ctx context.Context) error {
			return api.process(ctx, &msg)
		},
		OnFailure: func(ctx context.Context, kind workflows.FailureKind) {
			if err := api.messenger.SendText(ctx, msg.From, services.TimeoutMessage()); err != nil {
				api.logger.WithError(err).Warn("Failure notice not delivered")
			}
		},
	})
	if err != nil {
		api.logger.WithFields(logrus.Fields{
			"sid":   msg.SID,
			"from":  msg.From,
			"error": err.Error(),
		}).Error("Message not queued")
	}
	api.twiml(c)
}

func (api *API) twiml(c *gin.Context) {
	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(emptyTwiML))
}

func (api *API) webhookURL() string {
	if api.cfg.Twilio.WebhookURL != "" {
		return api.cfg.Twilio.WebhookURL
	}
	return api.cfg.Server.BaseURL + "/webhook"
}

// firstDelivery reports whether sid has not been seen before. Redis is used
// when available, the process-local set otherwise.
func (api *API) firstDelivery(ctx context.Context, sid string) bool {
	ttl := api.cfg.Redis.DedupTTL
	if api.redis != nil {
		first, err := api.redis.MarkMessageSeen(ctx, sid, ttl)
		if err == nil {
			return first
		}
		api.logger.WithError(err).Warn("Redis dedupe unavailable, using local set")
	}
	return api.dedupe.markSeen(sid, ttl, api.now())
}

// process runs one message under the seller lock. Without Redis, or when
// the lock cannot be taken, the message is handled anyway.
func (api *API) process(ctx context.Context, msg *models.InboundMessage) error {
	if api.redis != nil {
		lock, err := api.redis.LockSeller(ctx, msg.From, api.cfg.Redis.LockTTL, api.lockWait)
		if err != nil {
			api.logger.WithFields(logrus.Fields{
				"from":  msg.From,
				"error": err.Error(),
			}).Warn("Seller lock not obtained, continuing")
		} else {
			defer func() {
				if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
					api.logger.WithError(err).Warn("Seller lock release failed")
				}
			}()
		}
	}
	return api.bot.HandleMessage(ctx, msg)
}

type memoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func newMemoryDeduper() *memoryDeduper {
	return &memoryDeduper{seen: make(map[string]time.Time)}
}

func (d *memoryDeduper) markSeen(sid string, ttl time.Duration, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if expires, ok := d.seen[sid]; ok && now.Before(expires) {
		return false
	}
	if len(d.seen) > 10_000 {
		for key, expires := range d.seen {
			if !now.Before(expires) {
				delete(d.seen, key)
			}
		}
	}
	d.seen[sid] = now.Add(ttl)
	return true
}
