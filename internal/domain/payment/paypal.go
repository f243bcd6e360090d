package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// PayPalConfig holds the REST API credentials and endpoint.
type PayPalConfig struct {
	BaseURL  string
	ClientID string
	Secret   string
	Currency string
}

// PayPalClient implements Gateway against the PayPal Orders v2 API.
type PayPalClient struct {
	cfg  PayPalConfig
	http *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

var _ Gateway = (*PayPalClient)(nil)

// NewPayPalClient creates a PayPal client. Currency defaults to AED.
func NewPayPalClient(cfg PayPalConfig) *PayPalClient {
	if cfg.Currency == "" {
		cfg.Currency = "AED"
	}
	return &PayPalClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// token returns a cached OAuth2 access token, refreshing when expired.
func (c *PayPalClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/oauth2/token",
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", errors.Wrap(err, "build token request")
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &GatewayError{Gateway: "paypal", Message: "token request failed", Err: err}
	}
	defer resp.Body.Close()

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", errors.Wrap(err, "decode token response")
	}
	if resp.StatusCode != http.StatusOK || body.AccessToken == "" {
		return "", &GatewayError{Gateway: "paypal", Message: fmt.Sprintf("token request returned %d", resp.StatusCode)}
	}

	c.accessToken = body.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn-60) * time.Second)
	return c.accessToken, nil
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// CreateIntent creates a PayPal order for the given amount. No marketplace
// order exists at this point; the buyer still has to approve on PayPal's page.
func (c *PayPalClient) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"amount": paypalAmount{
				CurrencyCode: c.cfg.Currency,
				Value:        req.Amount.StringFixed(2),
			},
		}},
	}

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Links  []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := c.post(ctx, "/v2/checkout/orders", payload, &out); err != nil {
		return nil, err
	}

	intent := &Intent{ExternalID: out.ID, Status: out.Status}
	for _, l := range out.Links {
		if l.Rel == "approve" {
			intent.RedirectURL = l.Href
		}
	}
	return intent, nil
}

// Capture captures an approved PayPal order. Funds move here; the caller only
// persists the marketplace order when the returned status is completed.
func (c *PayPalClient) Capture(ctx context.Context, externalID string) (*CaptureResult, error) {
	var out struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					Amount paypalAmount `json:"amount"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	if err := c.post(ctx, "/v2/checkout/orders/"+externalID+"/capture", struct{}{}, &out); err != nil {
		return nil, err
	}

	res := &CaptureResult{ExternalID: out.ID, Status: mapPayPalStatus(out.Status)}
	if len(out.PurchaseUnits) > 0 && len(out.PurchaseUnits[0].Payments.Captures) > 0 {
		amount, err := decimal.NewFromString(out.PurchaseUnits[0].Payments.Captures[0].Amount.Value)
		if err != nil {
			return nil, errors.Wrap(err, "parse captured amount")
		}
		res.Amount = amount
	}
	return res, nil
}

func mapPayPalStatus(s string) string {
	switch s {
	case "COMPLETED":
		return StatusCompleted
	case "CREATED", "SAVED", "APPROVED", "PAYER_ACTION_REQUIRED":
		return StatusCreated
	default:
		return StatusFailed
	}
}

func (c *PayPalClient) post(ctx context.Context, path string, payload, out any) error {
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := c.http.Do(req)
	if err != nil {
		return &GatewayError{Gateway: "paypal", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &GatewayError{
			Gateway: "paypal",
			Message: fmt.Sprintf("%s returned %d: %s", path, resp.StatusCode, apiErr.Message),
		}
	}

	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "decode response")
}
