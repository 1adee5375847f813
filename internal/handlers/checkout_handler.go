package handlers

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/waffleclaw/xray/internal/checkout"
	"github.com/waffleclaw/xray/internal/research"
	"github.com/waffleclaw/xray/internal/session"
	"github.com/waffleclaw/xray/internal/validation"
)

// HandlerConfig groups dependencies for the kiosk's HTTP surface.
type HandlerConfig struct {
	Service       *checkout.Service
	Generator     research.Generator
	WebhookSecret string
}

// RegisterRoutes registers the checkout, webhook, and results routes.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()

	r.POST("/checkout", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.ResearchRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		resp, err := cfg.Service.CreateCheckout(ctx, toParams(req))
		if err != nil {
			log.Printf("[checkout] create failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "checkout_failed"})
			return
		}
		c.JSON(http.StatusOK, resp)
	})

	r.GET("/checkout/:id/status", func(c *gin.Context) {
		sess, err := cfg.Service.Status(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
				return
			}
			log.Printf("[status] lookup failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "status_lookup_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":          sess.ID,
			"status":      sess.Status,
			"bolt11":      sess.Bolt11,
			"amount_sats": sess.AmountSats,
		})
	})

	r.GET("/results/:id", func(c *gin.Context) {
		sess, err := cfg.Service.Status(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
				return
			}
			log.Printf("[results] lookup failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "results_lookup_failed"})
			return
		}
		// The report is visible only once the session is complete.
		if sess.Status == session.StatusComplete && sess.ResultHTML != "" {
			c.JSON(http.StatusOK, gin.H{"status": session.StatusComplete, "html": sess.ResultHTML})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": sess.Status})
	})

	r.POST("/payment-webhook", func(c *gin.Context) {
		if !authorized(c, cfg.WebhookSecret) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var ev validation.WebhookEvent
		if err := c.ShouldBindJSON(&ev); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}

		// From here on the notifier always gets a 200: surfacing errors
		// would trigger its retry policy and re-run the state machine.
		err := cfg.Service.HandlePaymentEvent(c.Request.Context(), checkout.PaymentEvent{
			Type:        ev.Type,
			PaymentHash: ev.PaymentHash,
		})
		if err != nil {
			log.Printf("[webhook] handling failed: %v", err)
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// Direct, payment-bypassing variant for deployments where checkout is
	// delegated to an external widget.
	r.POST("/research", func(c *gin.Context) {
		var req validation.ResearchRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		html, err := cfg.Generator.Generate(c.Request.Context(), toParams(req))
		if err != nil {
			log.Printf("[research] generation failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"html": html})
	})
}

// authorized compares the bearer token with the configured secret in
// constant time. An unset secret rejects everything rather than matching
// an empty token.
func authorized(c *gin.Context, secret string) bool {
	if secret == "" {
		return false
	}
	auth := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(auth) < len(prefix) || auth[:len(prefix)] != prefix {
		return false
	}
	token := auth[len(prefix):]
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

func toParams(req validation.ResearchRequest) research.Params {
	return research.Params{
		Mode:     req.Mode,
		Query:    req.Query,
		Handle:   req.Handle,
		Side1:    req.Side1,
		Side2:    req.Side2,
		Topics:   req.Topics,
		Question: req.Question,
	}
}
