package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tallbag/gutinvoice/internal/config"
	"github.com/tallbag/gutinvoice/internal/database"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
	"github.com/tallbag/gutinvoice/internal/ledger"
	"github.com/tallbag/gutinvoice/internal/models"
	"github.com/tallbag/gutinvoice/internal/services"
	"github.com/tallbag/gutinvoice/internal/validator"
	"github.com/tallbag/gutinvoice/internal/workflows"
)

// MessageHandler processes one inbound message
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *models.InboundMessage) error
}

// TaskSubmitter queues background work
type TaskSubmitter interface {
	Submit(task workflows.Task) error
}

// SignatureValidator checks inbound webhook signatures
type SignatureValidator interface {
	ValidateSignature(url string, params map[string]string, signature string) bool
}

// HealthChecker is a dependency with a health probe
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps groups the collaborators of the API
type Deps struct {
	Bot       MessageHandler
	Runner    TaskSubmitter
	Messenger services.Messenger
	Signature SignatureValidator
	Sellers   services.SellerStore
	Store     ledger.Store
	Invoices  *services.InvoiceService
	Redis     *database.Redis
	DB        HealthChecker
}

// API holds every HTTP handler
type API struct {
	cfg        *config.Config
	bot        MessageHandler
	runner     TaskSubmitter
	messenger  services.Messenger
	signature  SignatureValidator
	sellers    services.SellerStore
	store      ledger.Store
	invoices   *services.InvoiceService
	aggregator *ledger.Aggregator
	redis      *database.Redis
	db         HealthChecker
	dedupe     *memoryDeduper
	lockWait   time.Duration
	logger     *logrus.Logger
	now        func() time.Time
}

// NewAPI creates a new API
func NewAPI(cfg *config.Config, deps Deps, logger *logrus.Logger) *API {
	return &API{
		cfg:        cfg,
		bot:        deps.Bot,
		runner:     deps.Runner,
		messenger:  deps.Messenger,
		signature:  deps.Signature,
		sellers:    deps.Sellers,
		store:      deps.Store,
		invoices:   deps.Invoices,
		aggregator: ledger.NewAggregator(deps.Store, logger),
		redis:      deps.Redis,
		db:         deps.DB,
		dedupe:     newMemoryDeduper(),
		lockWait:   sellerLockWait,
		logger:     logger,
		now:        time.Now,
	}
}

// AdminAuthMiddleware rejects requests without the admin API key
func (api *API) AdminAuthMiddleware() gin.HandlerFunc {
	expected := sha256.Sum256([]byte(api.cfg.Admin.APIKey))
	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if api.cfg.Admin.APIKey == "" || key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewUnauthorizedError("API key required"))
			return
		}
		got := sha256.Sum256([]byte(key))
		if subtle.ConstantTimeCompare(got[:], expected[:]) != 1 {
			api.logger.WithField("client_ip", c.ClientIP()).Warn("Invalid admin API key")
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewUnauthorizedError("Invalid API key"))
			return
		}
		c.Next()
	}
}

// GetSeller returns a seller profile
func (api *API) GetSeller(c *gin.Context) {
	seller, ok := api.lookupSeller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, seller)
}

// ListInvoices returns every record of a seller period
func (api *API) ListInvoices(c *gin.Context) {
	seller, ok := api.lookupSeller(c)
	if !ok {
		return
	}
	period, ok := api.period(c)
	if !ok {
		return
	}

	records, err := api.store.ListByPeriod(c.Request.Context(), seller.Phone, period)
	if err != nil {
		api.logger.WithError(err).Error("Error listing invoices")
		c.JSON(http.StatusInternalServerError, models.NewInternalError("Error retrieving invoices"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"seller_phone": seller.Phone,
		"period":       period.Suffix(),
		"items":        records,
		"total":        len(records),
	})
}

// GetReport returns the monthly reconciliation as JSON
func (api *API) GetReport(c *gin.Context) {
	seller, ok := api.lookupSeller(c)
	if !ok {
		return
	}
	period, ok := api.period(c)
	if !ok {
		return
	}

	report, err := api.aggregator.Monthly(c.Request.Context(), seller, period)
	if err != nil {
		api.logger.WithError(err).Error("Error building report")
		c.JSON(http.StatusInternalServerError, models.NewInternalError("Error building report"))
		return
	}
	c.JSON(http.StatusOK, report)
}

// CancellationRequest is the body of a cancellation
type CancellationRequest struct {
	InvoiceNumber string `json:"invoice_number" validate:"required,max=40"`
	Reason        string `json:"reason" validate:"max=200"`
}

// CreateCancellation cancels an invoice and delivers its credit note to
// the seller
func (api *API) CreateCancellation(c *gin.Context) {
	seller, ok := api.lookupSeller(c)
	if !ok {
		return
	}

	var req CancellationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid request format", []models.ErrorDetail{
			{Field: "body", Issue: err.Error()},
		}))
		return
	}
	if err := validator.ValidateRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid request", validator.FieldErrors(err)))
		return
	}

	result, err := api.invoices.Cancel(c.Request.Context(), seller, req.InvoiceNumber, req.Reason)
	if err != nil && result == nil {
		api.logger.WithError(err).Error("Error cancelling invoice")
		c.JSON(ierr.HTTPStatusFromErr(err), models.NewInternalError("Error cancelling invoice"))
		return
	}
	if err != nil {
		// the ledger is updated, only delivery failed
		api.logger.WithError(err).Warn("Credit note delivery failed")
	}

	switch result.Outcome {
	case ledger.OutcomeCancelled:
		c.JSON(http.StatusCreated, result)
	case ledger.OutcomeNotFound:
		c.JSON(http.StatusNotFound, models.NewNotFoundError("No invoice matches "+result.Fragment))
	default:
		c.JSON(http.StatusConflict, result)
	}
}

// ListDeadLetters returns the newest failed tasks
func (api *API) ListDeadLetters(c *gin.Context) {
	if api.redis == nil {
		c.JSON(http.StatusServiceUnavailable, models.NewUnavailableError("Redis not configured"))
		return
	}
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	letters, err := api.redis.DeadLetters(c.Request.Context(), limit)
	if err != nil {
		api.logger.WithError(err).Error("Error reading dead letters")
		c.JSON(http.StatusServiceUnavailable, models.NewUnavailableError("Error reading dead letters"))
		return
	}
	items := make([]workflows.DeadLetter, 0, len(letters))
	for _, raw := range letters {
		var letter workflows.DeadLetter
		if err := json.Unmarshal([]byte(raw), &letter); err == nil {
			items = append(items, letter)
		}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (api *API) lookupSeller(c *gin.Context) (*models.Seller, bool) {
	phone := normalizePhone(c.Param("phone"))
	seller, err := api.sellers.GetByPhone(c.Request.Context(), phone)
	if err != nil {
		if ierr.IsNotFound(err) {
			c.JSON(http.StatusNotFound, models.NewNotFoundError("Seller not found"))
			return nil, false
		}
		api.logger.WithError(err).Error("Error getting seller")
		c.JSON(http.StatusServiceUnavailable, models.NewUnavailableError("Error retrieving seller"))
		return nil, false
	}
	return seller, true
}

func (api *API) period(c *gin.Context) (ledger.Period, bool) {
	var args []string
	if month := c.Query("month"); month != "" {
		args = append(args, month)
		if year := c.Query("year"); year != "" {
			args = append(args, year)
		}
	}
	period, err := ledger.ParsePeriod(args, api.now())
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid period", []models.ErrorDetail{
			{Field: "month", Issue: err.Error()},
		}))
		return ledger.Period{}, false
	}
	return period, true
}

// normalizePhone accepts "919876543210", "+919876543210" or the full
// "whatsapp:+919876543210" address
func normalizePhone(raw string) string {
	return "whatsapp:+" + models.CleanPhone(raw)
}
