package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tallbag/gutinvoice/internal/config"
	"github.com/tallbag/gutinvoice/internal/database"
	"github.com/tallbag/gutinvoice/internal/ledger"
	"github.com/tallbag/gutinvoice/internal/models"
	"github.com/tallbag/gutinvoice/internal/services"
	"github.com/tallbag/gutinvoice/internal/workflows"
)

const (
	testPhone = "whatsapp:+919876543210"
	adminKey  = "admin-secret"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type recordingBot struct {
	mu       sync.Mutex
	messages []models.InboundMessage
}

func (b *recordingBot) HandleMessage(ctx context.Context, msg *models.InboundMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, *msg)
	return nil
}

type inlineRunner struct {
	err error
}

func (r *inlineRunner) Submit(task workflows.Task) error {
	if r.err != nil {
		if task.OnFailure != nil {
			task.OnFailure(context.Background(), workflows.FailureQueueFull)
		}
		return r.err
	}
	return task.Run(context.Background())
}

type textMessenger struct {
	mu   sync.Mutex
	sent []string
}

func (m *textMessenger) SendText(ctx context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, body)
	return nil
}

func (m *textMessenger) SendDocument(ctx context.Context, to, body, mediaURL string) error {
	return m.SendText(ctx, to, body)
}

func (m *textMessenger) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	return nil, nil
}

type staticSignature bool

func (s staticSignature) ValidateSignature(string, map[string]string, string) bool {
	return bool(s)
}

type testServer struct {
	api       *API
	router    *gin.Engine
	cfg       *config.Config
	bot       *recordingBot
	runner    *inlineRunner
	messenger *textMessenger
	sellers   *services.MemorySellerStore
	store     *ledger.MemoryStore
}

func newTestServer(t *testing.T, rdb *database.Redis) *testServer {
	t.Helper()
	logger := quietLogger()
	cfg := &config.Config{
		Server:  config.ServerConfig{Env: "test", BaseURL: "https://bot.example.com"},
		Redis:   config.RedisConfig{LockTTL: time.Minute, DedupTTL: time.Hour},
		Storage: config.StorageConfig{Path: t.TempDir()},
		Admin:   config.AdminConfig{APIKey: adminKey},
		Twilio:  config.TwilioConfig{AccountSID: "AC1", AuthToken: "token"},
		Sarvam:  config.SarvamConfig{APIKey: "sk"},
		Claude:  config.ClaudeConfig{APIKey: "ck"},
	}

	ts := &testServer{
		cfg:       cfg,
		bot:       &recordingBot{},
		runner:    &inlineRunner{},
		messenger: &textMessenger{},
		sellers:   services.NewMemorySellerStore(),
		store:     ledger.NewMemoryStore(),
	}
	invoices := services.NewInvoiceService(services.InvoiceDeps{
		Store:     ts.store,
		Generator: services.NewDocumentGenerator(logger, false),
		Files:     services.NewStorageService(nil, cfg.Storage.Path, cfg.Server.BaseURL, logger),
		Messenger: ts.messenger,
	}, logger)

	deps := Deps{
		Bot:       ts.bot,
		Runner:    ts.runner,
		Messenger: ts.messenger,
		Signature: staticSignature(false),
		Sellers:   ts.sellers,
		Store:     ts.store,
		Invoices:  invoices,
	}
	if rdb != nil {
		deps.Redis = rdb
	}
	ts.api = NewAPI(cfg, deps, logger)
	ts.api.lockWait = 0
	ts.router = NewRouter(ts.api)
	return ts
}

func newTestRedis(t *testing.T) (*database.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return database.NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func webhookRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func adminRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", adminKey)
	return req
}

func voiceForm(sid string) url.Values {
	return url.Values{
		"MessageSid":        {sid},
		"From":              {testPhone},
		"To":                {"whatsapp:+14155238886"},
		"NumMedia":          {"1"},
		"MediaUrl0":         {"https://api.twilio.com/2010-04-01/Accounts/AC1/Messages/MM1/Media/ME1"},
		"MediaContentType0": {"audio/ogg"},
	}
}

func TestWebhookQueuesMessage(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(webhookRequest(voiceForm("SM1")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, emptyTwiML, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/xml")

	require.Len(t, ts.bot.messages, 1)
	msg := ts.bot.messages[0]
	assert.Equal(t, testPhone, msg.From)
	assert.True(t, msg.HasAudio())
	assert.False(t, msg.ReceivedAt.IsZero())
}

func TestWebhookDeduplicatesLocally(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(webhookRequest(voiceForm("SM1")))
	ts.do(webhookRequest(voiceForm("SM1")))
	ts.do(webhookRequest(voiceForm("SM2")))
	assert.Len(t, ts.bot.messages, 2)
}

func TestWebhookDeduplicatesWithRedis(t *testing.T) {
	rdb, mr := newTestRedis(t)
	ts := newTestServer(t, rdb)
	ts.do(webhookRequest(voiceForm("SM1")))

	// a second instance shares the Redis set
	other := newTestServer(t, rdb)
	rec := other.do(webhookRequest(voiceForm("SM1")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, ts.bot.messages, 1)
	assert.Empty(t, other.bot.messages)
	assert.True(t, mr.Exists("gutinvoice:msg:SM1"))
}

func TestWebhookProceedsWhenSellerLocked(t *testing.T) {
	rdb, _ := newTestRedis(t)
	ts := newTestServer(t, rdb)

	held, err := rdb.LockSeller(context.Background(), testPhone, time.Minute, 0)
	require.NoError(t, err)
	defer held.Release(context.Background())

	ts.do(webhookRequest(voiceForm("SM9")))
	assert.Len(t, ts.bot.messages, 1)
}

func TestWebhookRejectsMissingFrom(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(webhookRequest(url.Values{"Body": {"hi"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ts.bot.messages)
}

func TestWebhookSignature(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.cfg.Twilio.ValidateHooks = true

	rec := ts.do(webhookRequest(voiceForm("SM1")))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, ts.bot.messages)

	ts.api.signature = staticSignature(true)
	rec = ts.do(webhookRequest(voiceForm("SM1")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, ts.bot.messages, 1)
}

func TestWebhookQueueFullStillAnswers(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.runner.err = workflows.ErrQueueFull

	rec := ts.do(webhookRequest(voiceForm("SM1")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, ts.bot.messages)
	assert.Equal(t, []string{services.TimeoutMessage()}, ts.messenger.sent)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])

	ts.cfg.Claude.APIKey = ""
	rec = ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "missing_config", body["status"])
	assert.Equal(t, false, body["checks"].(map[string]any)["CLAUDE_API_KEY"])
}

func TestHome(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Every Invoice has a Voice")
}

func TestAdminAuth(t *testing.T) {
	ts := newTestServer(t, nil)
	require.NoError(t, ts.sellers.Save(context.Background(), &models.Seller{Phone: testPhone, BusinessName: "Tejesh Traders"}))

	req := httptest.NewRequest(http.MethodGet, "/v1/sellers/919876543210", nil)
	assert.Equal(t, http.StatusUnauthorized, ts.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/sellers/919876543210", nil)
	req.Header.Set("X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, ts.do(req).Code)

	rec := ts.do(adminRequest(http.MethodGet, "/v1/sellers/919876543210", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tejesh Traders")

	rec = ts.do(adminRequest(http.MethodGet, "/v1/sellers/910000000000", ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func seedInvoice(t *testing.T, ts *testServer) (*models.Seller, *models.InvoiceRecord) {
	t.Helper()
	ctx := context.Background()
	seller := &models.Seller{
		Phone: testPhone, BusinessName: "Tejesh Traders", Address: "Hyderabad",
		GSTIN: "36ABCDE1234F1Z5", OnboardingStep: models.OnboardingComplete,
	}
	require.NoError(t, ts.sellers.Save(ctx, seller))

	value := decimal.NewFromInt(1000)
	tax := decimal.NewFromInt(90)
	rec := &models.InvoiceRecord{
		DocumentType: models.DocumentTypeTaxInvoice,
		CustomerName: "Suresh",
		Items: []models.LineItem{{
			SNo: 1, Description: "Iron rods", Quantity: decimal.NewFromInt(1),
			Unit: "Nos", Rate: value, Amount: value,
		}},
		TaxableValue: value,
		CGSTRate:     decimal.NewFromInt(9),
		CGSTAmount:   tax,
		SGSTRate:     decimal.NewFromInt(9),
		SGSTAmount:   tax,
		TotalAmount:  decimal.NewFromInt(1180),
	}
	require.NoError(t, ledger.NewAllocator(ts.store, quietLogger()).Issue(ctx, seller, rec))
	return seller, rec
}

func TestCreateCancellation(t *testing.T) {
	ts := newTestServer(t, nil)
	_, rec := seedInvoice(t, ts)
	bare := strings.TrimPrefix(rec.InvoiceNumber, "TEJ")

	resp := ts.do(adminRequest(http.MethodPost, "/v1/sellers/919876543210/cancellations",
		`{"invoice_number":"`+bare+`","reason":"duplicate"}`))
	require.Equal(t, http.StatusCreated, resp.Code)

	var result ledger.CancelResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Equal(t, ledger.OutcomeCancelled, result.Outcome)
	assert.Equal(t, "CN-"+rec.InvoiceNumber, result.CreditNote.InvoiceNumber)
	assert.True(t, decimal.NewFromInt(1180).Equal(result.CreditNote.TotalAmount))

	resp = ts.do(adminRequest(http.MethodPost, "/v1/sellers/919876543210/cancellations",
		`{"invoice_number":"`+rec.InvoiceNumber+`"}`))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), string(ledger.OutcomeAlreadyCancelled))

	resp = ts.do(adminRequest(http.MethodPost, "/v1/sellers/919876543210/cancellations",
		`{"invoice_number":"XYZ999-011999"}`))
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.do(adminRequest(http.MethodPost, "/v1/sellers/919876543210/cancellations", `{"reason":"x"}`))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "InvoiceNumber")
}

func TestListInvoicesAndReport(t *testing.T) {
	ts := newTestServer(t, nil)
	_, rec := seedInvoice(t, ts)
	month := rec.PeriodMonth
	year := rec.PeriodYear
	query := "?month=" + time.Month(month).String() + "&year=" + strconv.Itoa(year)

	resp := ts.do(adminRequest(http.MethodGet, "/v1/sellers/919876543210/invoices"+query, ""))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), rec.InvoiceNumber)

	resp = ts.do(adminRequest(http.MethodGet, "/v1/sellers/919876543210/reports"+query, ""))
	require.Equal(t, http.StatusOK, resp.Code)
	var report models.MonthlyReport
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Summary.TotalInvoices)
	assert.True(t, decimal.NewFromInt(180).Equal(report.Summary.NetTax))

	resp = ts.do(adminRequest(http.MethodGet, "/v1/sellers/919876543210/reports?month=smarch", ""))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListDeadLetters(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := ts.do(adminRequest(http.MethodGet, "/v1/deadletters", ""))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	rdb, _ := newTestRedis(t)
	ts = newTestServer(t, rdb)
	sink := workflows.NewDeadLetterSink(rdb, nil, quietLogger())
	sink.Record(context.Background(), workflows.DeadLetter{Task: "message", Key: testPhone, Kind: workflows.FailureTimeout, Error: "context deadline exceeded"})

	resp = ts.do(adminRequest(http.MethodGet, "/v1/deadletters", ""))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"kind":"timeout"`)
}

func TestMemoryDeduperExpires(t *testing.T) {
	d := newMemoryDeduper()
	now := time.Now()
	assert.True(t, d.markSeen("SM1", time.Minute, now))
	assert.False(t, d.markSeen("SM1", time.Minute, now.Add(30*time.Second)))
	assert.True(t, d.markSeen("SM1", time.Minute, now.Add(2*time.Minute)))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, testPhone, normalizePhone("919876543210"))
	assert.Equal(t, testPhone, normalizePhone("+919876543210"))
	assert.Equal(t, testPhone, normalizePhone(testPhone))
}
