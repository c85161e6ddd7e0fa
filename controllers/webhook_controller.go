package controllers

import (
	"net/http"

	"github.com/BenyD/DineEasy-sub000/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WebhookController struct {
	Stripe     services.StripeAPI
	Reconciler *services.WebhookService
	Logger     *zap.Logger
}

func NewWebhookController(stripeAPI services.StripeAPI, reconciler *services.WebhookService, logger *zap.Logger) *WebhookController {
	return &WebhookController{Stripe: stripeAPI, Reconciler: reconciler, Logger: logger}
}

// StripeWebhook verifies the event signature and hands it to the
// reconciler. An invalid signature is rejected here, at the transport
// boundary; handler errors still return 200 so the gateway does not retry
// events we have already judged unactionable.
func (wc *WebhookController) StripeWebhook(c *gin.Context) {
	event, err := wc.Stripe.ParseWebhook(c.Request)
	if err != nil {
		wc.Logger.Warn("Webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	wc.Reconciler.HandleEvent(c.Request.Context(), event)
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
