package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL  = "https://api.flutterwave.com/v3"
	DefaultCurrency = "NGN"

	// StatusSuccessful is the provider's status for a settled charge.
	StatusSuccessful = "successful"
)

var ErrProviderRejected = errors.New("payment provider rejected the request")

// Settlement is the provider's view of one charge
type Settlement struct {
	ID       int64           `json:"id"`
	TxRef    string          `json:"tx_ref"`
	Status   string          `json:"status"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Successful reports whether the charge settled.
func (s Settlement) Successful() bool {
	return s.Status == StatusSuccessful
}

// Checkout describes a hosted payment page request
type Checkout struct {
	TxRef         string
	Amount        decimal.Decimal
	Currency      string
	RedirectURL   string
	CustomerEmail string
	CustomerName  string
}

// Client talks to the Flutterwave v3 API
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new provider client. An empty baseURL uses the
// production API.
func NewClient(baseURL, secretKey string, logger *logrus.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Verify fetches the settlement of a provider transaction id.
func (c *Client) Verify(ctx context.Context, transactionID string) (*Settlement, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, fmt.Errorf("%w: no transaction id", ErrProviderRejected)
	}

	endpoint := fmt.Sprintf("%s/transactions/%s/verify", c.baseURL, url.PathEscape(transactionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var s Settlement
	if err := c.do(req, &s); err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"transaction_id": transactionID,
		"tx_ref":         s.TxRef,
		"status":         s.Status,
	}).Info("Verified payment")
	return &s, nil
}

// Initiate creates a hosted payment page and returns its link.
func (c *Client) Initiate(ctx context.Context, co Checkout) (string, error) {
	currency := co.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	body, err := json.Marshal(map[string]interface{}{
		"tx_ref":       co.TxRef,
		"amount":       co.Amount.StringFixed(2),
		"currency":     currency,
		"redirect_url": co.RedirectURL,
		"customer": map[string]string{
			"email": co.CustomerEmail,
			"name":  co.CustomerName,
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var data struct {
		Link string `json:"link"`
	}
	if err := c.do(req, &data); err != nil {
		return "", err
	}
	if data.Link == "" {
		return "", fmt.Errorf("%w: no payment link returned", ErrProviderRejected)
	}
	return data.Link, nil
}

func (c *Client) do(req *http.Request, data interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payment provider request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode provider response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || env.Status != "success" {
		return fmt.Errorf("%w: HTTP %d: %s", ErrProviderRejected, resp.StatusCode, env.Message)
	}
	if err := json.Unmarshal(env.Data, data); err != nil {
		return fmt.Errorf("failed to decode provider data: %w", err)
	}
	return nil
}
