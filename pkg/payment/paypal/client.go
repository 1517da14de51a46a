package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Client represents a PayPal REST API client
type Client struct {
	config     Config
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a new PayPal client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// CreateOrder creates a PayPal order with intent CAPTURE. The returned
// order carries the buyer approval link.
func (c *Client) CreateOrder(ctx context.Context, amount MoneyAmount, referenceID, description string) (*Order, error) {
	req := CreateOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []PurchaseUnit{
			{
				ReferenceID: referenceID,
				Description: description,
				Amount:      amount,
			},
		},
		PaymentSource: &PaymentSource{
			PayPal: &PayPalSource{
				ExperienceContext: ExperienceContext{
					ReturnURL: c.config.ReturnURL,
					CancelURL: c.config.CancelURL,
				},
			},
		},
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/v2/checkout/orders", req)
	if err != nil {
		return nil, err
	}

	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return &order, nil
}

// CaptureOrder captures an approved PayPal order
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Order, error) {
	endpoint := fmt.Sprintf("/v2/checkout/orders/%s/capture", orderID)

	body, err := c.doRequest(ctx, http.MethodPost, endpoint, struct{}{})
	if err != nil {
		return nil, err
	}

	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal capture result: %w", err)
	}
	return &order, nil
}

// GetOrder retrieves a PayPal order by id
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/v2/checkout/orders/"+orderID, nil)
	if err != nil {
		return nil, err
	}

	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return &order, nil
}

// token returns a valid OAuth2 access token, fetching a new one via the
// client-credentials grant when the cached token is absent or expired.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.config.ClientID, c.config.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token request returned %d", ErrUnauthorized, resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("failed to unmarshal token response: %w", err)
	}

	c.accessToken = tok.AccessToken
	// renew one minute early to avoid using a token at the expiry edge
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn-60) * time.Second)
	return c.accessToken, nil
}

// doRequest performs a JSON HTTP request to the PayPal API
func (c *Client) doRequest(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, error) {
	accessToken, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, errResp.Message)
		case errResp.Name == "ORDER_NOT_APPROVED" || hasIssue(errResp, "ORDER_NOT_APPROVED"):
			return nil, fmt.Errorf("%w: %s", ErrOrderNotApproved, errResp.Message)
		case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
			return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, errResp.Message)
		default:
			return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, errResp.Message)
		}
	}

	return body, nil
}

func hasIssue(errResp ErrorResponse, issue string) bool {
	for _, d := range errResp.Details {
		if d.Issue == issue {
			return true
		}
	}
	return false
}
