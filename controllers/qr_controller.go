package controllers

import (
	"net/http"

	"github.com/BenyD/DineEasy-sub000/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type QRController struct {
	Service *services.QRPaymentService
	Logger  *zap.Logger
}

func NewQRController(service *services.QRPaymentService, logger *zap.Logger) *QRController {
	return &QRController{Service: service, Logger: logger}
}

// CreatePaymentIntent starts the card flow: order + hosted checkout session.
func (qc *QRController) CreatePaymentIntent(c *gin.Context) {
	var payload services.QRPaymentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, svcErr := qc.Service.CreateQRPaymentIntent(c.Request.Context(), &payload)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateCashOrder creates an order settled in cash at the table.
func (qc *QRController) CreateCashOrder(c *gin.Context) {
	var payload services.QRPaymentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, svcErr := qc.Service.CreateCashOrder(c.Request.Context(), &payload)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, result)
}

// CompleteCashOrder marks a cash payment as collected (staff action).
func (qc *QRController) CompleteCashOrder(c *gin.Context) {
	orderID, ok := qc.orderIDParam(c)
	if !ok {
		return
	}
	if svcErr := qc.Service.CompleteCashOrder(c.Request.Context(), orderID); svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ConfirmPayment verifies a returning customer's session with the gateway.
func (qc *QRController) ConfirmPayment(c *gin.Context) {
	orderID, ok := qc.orderIDParam(c)
	if !ok {
		return
	}
	message, svcErr := qc.Service.ConfirmQRPayment(c.Request.Context(), orderID)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

// GetOrderDetails serves the post-checkout status page.
func (qc *QRController) GetOrderDetails(c *gin.Context) {
	orderID, ok := qc.orderIDParam(c)
	if !ok {
		return
	}
	details, svcErr := qc.Service.GetQROrderDetails(c.Request.Context(), orderID)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": details})
}

// ReportFailedPayment is the direct entry to the failure-cleanup path.
func (qc *QRController) ReportFailedPayment(c *gin.Context) {
	orderID, ok := qc.orderIDParam(c)
	if !ok {
		return
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if svcErr := qc.Service.HandleFailedPayment(c.Request.Context(), orderID, body.Message); svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (qc *QRController) orderIDParam(c *gin.Context) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return uuid.Nil, false
	}
	return orderID, true
}
