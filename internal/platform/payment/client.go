package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	cfgpkg "github.com/taskbench/backend/pkg/config"
)

// Gateway is the thin adapter to the external payment processor. Two call
// shapes exist: a user-confirmed payment intent yielding a redirect URL, and
// an off-session charge against a previously saved payment method.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, req *CreateIntentRequest) (*PaymentIntent, error)
	CreateOffsessionCharge(ctx context.Context, req *OffsessionChargeRequest) (*Charge, error)
}

type CreateIntentRequest struct {
	Amount         string
	Currency       string
	ReturnURL      string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

type OffsessionChargeRequest struct {
	Amount          string
	Currency        string
	PaymentMethodID string
	Description     string
	Metadata        map[string]string
	IdempotencyKey  string
}

type PaymentIntent struct {
	ID              string
	Status          string
	ConfirmationURL string
}

type Charge struct {
	ID     string
	Status string
}

// Client talks to the processor's HTTP+JSON API using basic auth and an
// idempotency key per request.
type Client struct {
	baseURL string
	shopID  string
	secret  string
	http    *http.Client
	log     *zap.SugaredLogger
}

func NewClient(cfg *cfgpkg.Config, log *zap.SugaredLogger) Gateway {
	return &Client{
		baseURL: cfg.Payment.BaseURL,
		shopID:  cfg.Payment.ShopID,
		secret:  cfg.Payment.SecretKey,
		http:    &http.Client{Timeout: cfg.Payment.Timeout()},
		log:     log,
	}
}

type amountBody struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type confirmationBody struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type paymentBody struct {
	Amount            amountBody        `json:"amount"`
	Capture           bool              `json:"capture"`
	Description       string            `json:"description,omitempty"`
	Confirmation      *confirmationBody `json:"confirmation,omitempty"`
	SavePaymentMethod bool              `json:"save_payment_method,omitempty"`
	PaymentMethodID   string            `json:"payment_method_id,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

type paymentResponse struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Confirmation *confirmationBody `json:"confirmation"`
	Description  string            `json:"description"`
}

type errorResponse struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (c *Client) CreatePaymentIntent(ctx context.Context, req *CreateIntentRequest) (*PaymentIntent, error) {
	body := &paymentBody{
		Amount:            amountBody{Value: req.Amount, Currency: req.Currency},
		Capture:           true,
		Description:       req.Description,
		Confirmation:      &confirmationBody{Type: "redirect", ReturnURL: req.ReturnURL},
		SavePaymentMethod: true,
		Metadata:          req.Metadata,
	}
	res, err := c.post(ctx, "/payments", req.IdempotencyKey, body)
	if err != nil {
		return nil, err
	}
	intent := &PaymentIntent{ID: res.ID, Status: res.Status}
	if res.Confirmation != nil {
		intent.ConfirmationURL = res.Confirmation.ConfirmationURL
	}
	return intent, nil
}

func (c *Client) CreateOffsessionCharge(ctx context.Context, req *OffsessionChargeRequest) (*Charge, error) {
	body := &paymentBody{
		Amount:          amountBody{Value: req.Amount, Currency: req.Currency},
		Capture:         true,
		Description:     req.Description,
		PaymentMethodID: req.PaymentMethodID,
		Metadata:        req.Metadata,
	}
	res, err := c.post(ctx, "/payments", req.IdempotencyKey, body)
	if err != nil {
		return nil, err
	}
	return &Charge{ID: res.ID, Status: res.Status}, nil
}

func (c *Client) post(ctx context.Context, path, idempotencyKey string, body *paymentBody) (*paymentResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build payment request: %w", err)
	}
	httpReq.SetBasicAuth(c.shopID, c.secret)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotence-Key", idempotencyKey)

	httpRes, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment request failed: %w", err)
	}
	defer httpRes.Body.Close()

	resBody, err := io.ReadAll(httpRes.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read payment response: %w", err)
	}

	if httpRes.StatusCode < 200 || httpRes.StatusCode >= 300 {
		var procErr errorResponse
		if json.Unmarshal(resBody, &procErr) == nil && procErr.Description != "" {
			return nil, fmt.Errorf("processor rejected request: %s (%s)", procErr.Description, procErr.Code)
		}
		return nil, fmt.Errorf("processor returned status %d", httpRes.StatusCode)
	}

	var res paymentResponse
	if err := json.Unmarshal(resBody, &res); err != nil {
		return nil, fmt.Errorf("failed to decode payment response: %w", err)
	}
	if res.ID == "" {
		return nil, fmt.Errorf("processor response has no payment id")
	}
	return &res, nil
}
