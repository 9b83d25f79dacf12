package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quartermaster/booking-backend/internal/config"
	"github.com/quartermaster/booking-backend/internal/models"
)

// StripeService executes refunds against the Stripe API. Charges are
// created by the storefront; this service only ever moves money back.
type StripeService struct {
	config *config.StripeConfig
	logger *logrus.Logger
	client *http.Client
}

// NewStripeService creates a new StripeService
func NewStripeService(cfg *config.StripeConfig, logger *logrus.Logger) *StripeService {
	return &StripeService{
		config: cfg,
		logger: logger,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// StripeRefundResponse is the subset of Stripe's refund object we read
type StripeRefundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
	Error  *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Enabled reports whether a secret key is configured. Without one, refunds
// are recorded locally but no gateway call is made.
func (s *StripeService) Enabled() bool {
	return s.config.SecretKey != ""
}

// RefundPayment creates a refund for a payment intent. A non-succeeded
// response is treated as a hard failure so callers can abort their
// transaction.
func (s *StripeService) RefundPayment(paymentIntentID string, amountCents int64) (*StripeRefundResponse, error) {
	form := url.Values{}
	form.Set("payment_intent", paymentIntentID)
	form.Set("amount", strconv.FormatInt(amountCents, 10))

	req, err := http.NewRequest(http.MethodPost, s.config.APIURL+"/refunds", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build refund request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	s.logger.WithFields(logrus.Fields{
		"payment_intent_id": paymentIntentID,
		"amount_cents":      amountCents,
	}).Info("Requesting Stripe refund")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: stripe refund request failed: %v", models.ErrExternalService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read stripe response: %v", models.ErrExternalService, err)
	}

	var refund StripeRefundResponse
	if err := json.Unmarshal(body, &refund); err != nil {
		return nil, fmt.Errorf("%w: failed to parse stripe response: %v", models.ErrExternalService, err)
	}

	if resp.StatusCode != http.StatusOK {
		message := "unknown error"
		if refund.Error != nil {
			message = refund.Error.Message
		}
		return nil, fmt.Errorf("%w: stripe refund rejected: %s", models.ErrExternalService, message)
	}
	if refund.Status != "succeeded" && refund.Status != "pending" {
		return nil, fmt.Errorf("%w: stripe refund status %q", models.ErrExternalService, refund.Status)
	}

	s.logger.WithFields(logrus.Fields{
		"refund_id": refund.ID,
		"status":    refund.Status,
	}).Info("Stripe refund accepted")

	return &refund, nil
}
