package services

import (
	"net/http"

	"github.com/stripe/stripe-go/v80"
)

// Stable error taxonomy surfaced by the classifier.
const (
	PaymentErrCard           = "card_error"
	PaymentErrValidation     = "validation_error"
	PaymentErrAuthentication = "authentication_error"
	PaymentErrRateLimit      = "rate_limit_error"
	PaymentErrIdempotency    = "idempotency_error"
	PaymentErrInvalidRequest = "invalid_request_error"
	PaymentErrAPI            = "api_error"
)

// PaymentErrorInfo is the classified view of a gateway error: a stable type,
// the raw gateway codes for logs, a retryable flag, and the sentence shown
// to the customer.
type PaymentErrorInfo struct {
	Type        string
	Code        string
	DeclineCode string
	Message     string
	Retryable   bool
	UserMessage string
}

// ClassifyPaymentError maps a gateway error into the stable taxonomy. It
// never panics; anything unrecognized degrades to the generic API bucket.
func ClassifyPaymentError(err error) PaymentErrorInfo {
	if err == nil {
		return PaymentErrorInfo{
			Type:        PaymentErrAPI,
			Retryable:   true,
			UserMessage: "Payment could not be processed. Please try again.",
		}
	}

	stripeErr, ok := err.(*stripe.Error)
	if !ok {
		return PaymentErrorInfo{
			Type:        PaymentErrAPI,
			Message:     err.Error(),
			Retryable:   true,
			UserMessage: "Payment could not be processed. Please try again.",
		}
	}

	info := PaymentErrorInfo{
		Code:    string(stripeErr.Code),
		Message: stripeErr.Msg,
	}

	// Rate limits are reported by status code rather than a distinct type.
	if stripeErr.HTTPStatusCode == http.StatusTooManyRequests || stripeErr.Code == "rate_limit" {
		info.Type = PaymentErrRateLimit
		info.Retryable = true
		info.UserMessage = "Payment service is busy. Please try again in a moment."
		return info
	}

	switch string(stripeErr.Type) {
	case "card_error":
		return classifyCardError(stripeErr, info)
	case "validation_error":
		info.Type = PaymentErrValidation
		info.Retryable = false
		info.UserMessage = "The payment details could not be validated. Please check your card details and try again."
	case "authentication_error":
		info.Type = PaymentErrAuthentication
		info.Retryable = false
		info.UserMessage = "Payment processing is misconfigured for this restaurant. Please pay at the counter."
	case "idempotency_error":
		info.Type = PaymentErrIdempotency
		info.Retryable = false
		info.UserMessage = "This payment request was already submitted. Please check your order status before retrying."
	case "invalid_request_error":
		info.Type = PaymentErrInvalidRequest
		info.Retryable = false
		info.UserMessage = "The payment request was invalid. Please pay at the counter."
	default:
		info.Type = PaymentErrAPI
		info.Retryable = true
		info.UserMessage = "Payment could not be processed. Please try again."
	}
	return info
}

func classifyCardError(stripeErr *stripe.Error, info PaymentErrorInfo) PaymentErrorInfo {
	info.Type = PaymentErrCard
	info.DeclineCode = string(stripeErr.DeclineCode)

	switch string(stripeErr.DeclineCode) {
	case "insufficient_funds":
		info.Retryable = false
		info.UserMessage = "Your card has insufficient funds. Please use a different card."
	case "generic_decline":
		info.Retryable = false
		info.UserMessage = "Your card was declined. Please use a different card."
	case "expired_card":
		info.Retryable = false
		info.UserMessage = "Your card has expired. Please use a different card."
	case "incorrect_cvc":
		info.Retryable = true
		info.UserMessage = "The security code you entered is incorrect. Please try again."
	case "processing_error":
		info.Retryable = true
		info.UserMessage = "A temporary error occurred while processing your card. Please try again."
	case "authentication_required":
		info.Retryable = true
		info.UserMessage = "Your bank requires additional authentication. Please complete the verification and try again."
	default:
		switch string(stripeErr.Code) {
		case "expired_card":
			info.Retryable = false
			info.UserMessage = "Your card has expired. Please use a different card."
		case "incorrect_cvc":
			info.Retryable = true
			info.UserMessage = "The security code you entered is incorrect. Please try again."
		case "processing_error":
			info.Retryable = true
			info.UserMessage = "A temporary error occurred while processing your card. Please try again."
		default:
			info.Retryable = false
			info.UserMessage = "Your card was declined. Please use a different card."
		}
	}
	return info
}
