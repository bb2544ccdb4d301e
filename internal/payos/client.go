package payos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	DefaultBaseURL = "https://api-merchant.payos.vn"
	codeSuccess    = "00"
	maxRetries     = 3
	initialDelay   = 500 * time.Millisecond
)

type Config struct {
	ClientID    string
	APIKey      string
	ChecksumKey string
	BaseURL     string
	Timeout     time.Duration
}

// Client est un client minimal de l'API marchand payOS (v2)
type Client struct {
	clientID    string
	apiKey      string
	checksumKey string
	baseURL     string
	http        *http.Client
	retryDelay  time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		clientID:    cfg.ClientID,
		apiKey:      cfg.APIKey,
		checksumKey: cfg.ChecksumKey,
		baseURL:     cfg.BaseURL,
		http:        &http.Client{Timeout: cfg.Timeout},
		retryDelay:  initialDelay,
	}
}

type Item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

type PaymentRequest struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	BuyerEmail  string `json:"buyerEmail,omitempty"`
	Items       []Item `json:"items,omitempty"`
	CancelURL   string `json:"cancelUrl"`
	ReturnURL   string `json:"returnUrl"`
	ExpiredAt   int64  `json:"expiredAt,omitempty"`
	Signature   string `json:"signature"`
}

type PaymentLink struct {
	Bin           string `json:"bin"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
	OrderCode     int64  `json:"orderCode"`
	Currency      string `json:"currency"`
	PaymentLinkID string `json:"paymentLinkId"`
	Status        string `json:"status"`
	ExpiredAt     int64  `json:"expiredAt"`
	CheckoutURL   string `json:"checkoutUrl"`
	QRCode        string `json:"qrCode"`
}

type PaymentLinkInfo struct {
	ID                 string `json:"id"`
	OrderCode          int64  `json:"orderCode"`
	Amount             int64  `json:"amount"`
	AmountPaid         int64  `json:"amountPaid"`
	AmountRemaining    int64  `json:"amountRemaining"`
	Status             string `json:"status"`
	CreatedAt          string `json:"createdAt"`
	CancellationReason string `json:"cancellationReason"`
	CanceledAt         string `json:"canceledAt"`
}

type envelope struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

// APIError est une réponse payOS avec un code différent de "00"
type APIError struct {
	HTTPStatus int
	Code       string
	Desc       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payos: %s (code %s, http %d)", e.Desc, e.Code, e.HTTPStatus)
}

// CreatePaymentLink crée un lien de paiement. La signature est calculée ici.
// Pas de nouvel essai : un second appel avec le même orderCode serait refusé.
func (c *Client) CreatePaymentLink(ctx context.Context, req PaymentRequest) (*PaymentLink, json.RawMessage, error) {
	req.Signature = PaymentRequestSignature(c.checksumKey, req.Amount, req.OrderCode, req.Description, req.CancelURL, req.ReturnURL)
	body, err := json.Marshal(req)
	if err != nil {
		return nil, nil, fmt.Errorf("payos: marshal request: %w", err)
	}
	data, err := c.do(ctx, http.MethodPost, "/v2/payment-requests", body)
	if err != nil {
		return nil, nil, err
	}
	var link PaymentLink
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, nil, fmt.Errorf("payos: decode payment link: %w", err)
	}
	return &link, data, nil
}

// GetPaymentLink lit l'état d'un lien. Lecture idempotente, relancée sur 429 / 5xx.
func (c *Client) GetPaymentLink(ctx context.Context, orderCode int64) (*PaymentLinkInfo, json.RawMessage, error) {
	path := "/v2/payment-requests/" + strconv.FormatInt(orderCode, 10)

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay << (attempt - 1)):
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}
		data, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			lastErr = err
			if retryable(err) {
				continue
			}
			return nil, nil, err
		}
		var info PaymentLinkInfo
		if err := json.Unmarshal(data, &info); err != nil {
			return nil, nil, fmt.Errorf("payos: decode payment info: %w", err)
		}
		return &info, data, nil
	}
	return nil, nil, fmt.Errorf("payos: max retries (%d) exceeded: %w", maxRetries, lastErr)
}

func retryable(err error) bool {
	apiErr, ok := err.(*APIError)
	if !ok {
		return true // erreur réseau
	}
	return apiErr.HTTPStatus == http.StatusTooManyRequests || apiErr.HTTPStatus >= 500
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("payos: create request: %w", err)
	}
	httpReq.Header.Set("x-client-id", c.clientID)
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payos: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("payos: read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &APIError{HTTPStatus: resp.StatusCode, Desc: string(respBody)}
		}
		return nil, fmt.Errorf("payos: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || env.Code != codeSuccess {
		return nil, &APIError{HTTPStatus: resp.StatusCode, Code: env.Code, Desc: env.Desc}
	}
	return env.Data, nil
}
