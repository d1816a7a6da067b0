package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the HTTP router
func NewRouter(api *API) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(api.logger))
	router.Use(gin.Recovery())

	if api.cfg.IsDevelopment() {
		router.Use(func(c *gin.Context) {
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key")
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
			c.Next()
		})
	}

	router.GET("/", api.Home)
	router.GET("/health", api.Health)
	router.POST("/webhook", api.Webhook)

	if !api.cfg.HasSupabase() {
		router.Static("/files", api.cfg.Storage.Path)
	}

	v1 := router.Group("/v1")
	v1.Use(api.AdminAuthMiddleware())
	{
		v1.GET("/sellers/:phone", api.GetSeller)
		v1.GET("/sellers/:phone/invoices", api.ListInvoices)
		v1.GET("/sellers/:phone/reports", api.GetReport)
		v1.POST("/sellers/:phone/cancellations", api.CreateCancellation)
		v1.GET("/deadletters", api.ListDeadLetters)
	}

	return router
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		}).Debug("Request handled")
	}
}

// Health reports configuration presence and dependency health
func (api *API) Health(c *gin.Context) {
	checks := map[string]bool{
		"TWILIO_ACCOUNT_SID": api.cfg.Twilio.AccountSID != "",
		"TWILIO_AUTH_TOKEN":  api.cfg.Twilio.AuthToken != "",
		"SARVAM_API_KEY":     api.cfg.Sarvam.APIKey != "",
		"CLAUDE_API_KEY":     api.cfg.Claude.APIKey != "",
	}
	status, code := "healthy", http.StatusOK
	for _, ok := range checks {
		if !ok {
			status, code = "missing_config", http.StatusInternalServerError
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	deps := gin.H{
		"database": probe(ctx, api.db, "memory"),
		"redis":    "disabled",
	}
	if api.redis != nil {
		deps["redis"] = probe(ctx, api.redis, "disabled")
	}
	if deps["database"] != "ok" && deps["database"] != "memory" && code == http.StatusOK {
		status, code = "degraded", http.StatusInternalServerError
	}

	c.JSON(code, gin.H{
		"status":       status,
		"checks":       checks,
		"dependencies": deps,
		"timestamp":    api.now().UTC().Format(time.RFC3339),
	})
}

func probe(ctx context.Context, dep HealthChecker, absent string) string {
	if dep == nil {
		return absent
	}
	if err := dep.HealthCheck(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

// Home serves the landing page
func (api *API) Home(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(homeHTML))
}

const homeHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>GutInvoice - Every Invoice has a Voice</title>
<style>
body{margin:0;font-family:Helvetica,Arial,sans-serif;background:#F5F5F5;color:#1A1A2E}
header{background:#028090;color:#fff;padding:48px 24px;text-align:center}
h1{margin:0 0 8px;font-size:40px}
main{max-width:720px;margin:0 auto;padding:32px 24px;line-height:1.6}
.card{background:#fff;border:1px solid #B2DFE5;border-radius:8px;padding:20px;margin-bottom:16px}
footer{text-align:center;color:#666;font-size:13px;padding:24px}
</style>
</head>
<body>
<header>
<h1>🎙️ GutInvoice</h1>
<p>Every Invoice has a Voice</p>
</header>
<main>
<div class="card"><strong>Speak.</strong> Send a WhatsApp voice note in English, Telugu or Hindi with your invoice details.</div>
<div class="card"><strong>Receive.</strong> Get a GST compliant Tax Invoice, Bill of Supply or Invoice as a PDF in about 30 seconds.</div>
<div class="card"><strong>File.</strong> Type <em>report</em> for a monthly tax liability summary ready for GSTR-1.</div>
</main>
<footer>Developed by Tallbag Advisory and Tech Solutions Private Limited</footer>
</body>
</html>
`
