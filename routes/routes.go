package routes

import (
	"github.com/BenyD/DineEasy-sub000/controllers"
	"github.com/BenyD/DineEasy-sub000/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, qc *controllers.QRController, wc *controllers.WebhookController, staffAPIKey string) {
	qr := r.Group("/qr")
	qr.POST("/payments/intent", qc.CreatePaymentIntent)
	qr.POST("/orders/cash", qc.CreateCashOrder)
	qr.POST("/payments/:id/confirm", qc.ConfirmPayment)
	qr.POST("/payments/:id/failed", qc.ReportFailedPayment)
	qr.GET("/orders/:id", qc.GetOrderDetails)

	staff := qr.Group("")
	staff.Use(middleware.StaffAuth(staffAPIKey))
	staff.POST("/orders/:id/cash/complete", qc.CompleteCashOrder)

	// Stripe webhook (no auth; signature-verified in the controller)
	r.POST("/stripe/webhook", wc.StripeWebhook)
}
