package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/errors"
)

// ZiinaConfig holds the API credentials and redirect endpoints.
type ZiinaConfig struct {
	BaseURL    string
	APIKey     string
	SuccessURL string
	CancelURL  string
}

// ZiinaClient implements Gateway against the Ziina payment intent API.
// Amounts cross this boundary as integer fils.
type ZiinaClient struct {
	cfg  ZiinaConfig
	http *http.Client
}

var _ Gateway = (*ZiinaClient)(nil)

// NewZiinaClient creates a Ziina client.
func NewZiinaClient(cfg ZiinaConfig) *ZiinaClient {
	return &ZiinaClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

type ziinaIntent struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	RedirectURL string `json:"redirect_url"`
}

// CreateIntent creates a payment intent referencing an already-persisted
// marketplace order. The customer completes payment on the returned redirect
// URL; a later poll or webhook settles the outcome.
func (c *ZiinaClient) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	fils, err := AEDToFils(req.Amount)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"amount":        fils,
		"currency_code": "AED",
		"message":       "Order " + req.Reference,
		"success_url":   c.cfg.SuccessURL,
		"cancel_url":    c.cfg.CancelURL,
	}
	if req.SuccessURL != "" {
		payload["success_url"] = req.SuccessURL
	}
	if req.CancelURL != "" {
		payload["cancel_url"] = req.CancelURL
	}

	var out ziinaIntent
	if err := c.do(ctx, http.MethodPost, "/api/payment_intent", payload, &out); err != nil {
		return nil, err
	}

	return &Intent{
		ExternalID:  out.ID,
		RedirectURL: out.RedirectURL,
		Status:      mapZiinaStatus(out.Status),
	}, nil
}

// Capture fetches the current state of a payment intent. Ziina settles
// asynchronously, so this is a status poll rather than a charge.
func (c *ZiinaClient) Capture(ctx context.Context, externalID string) (*CaptureResult, error) {
	var out ziinaIntent
	if err := c.do(ctx, http.MethodGet, "/api/payment_intent/"+externalID, nil, &out); err != nil {
		return nil, err
	}

	return &CaptureResult{
		ExternalID: out.ID,
		Status:     mapZiinaStatus(out.Status),
		Amount:     FilsToAED(out.Amount),
	}, nil
}

func mapZiinaStatus(s string) string {
	switch s {
	case "completed":
		return StatusCompleted
	case "failed", "canceled", "cancelled":
		return StatusFailed
	default:
		return StatusCreated
	}
}

func (c *ZiinaClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return &GatewayError{Gateway: "ziina", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &GatewayError{
			Gateway: "ziina",
			Message: fmt.Sprintf("%s returned %d: %s", path, resp.StatusCode, apiErr.Message),
		}
	}

	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "decode response")
}
