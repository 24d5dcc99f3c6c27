package dispatch

import (
	"bounty-server/internal/observability"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// CashfreeClient performs UPI payouts through the Cashfree payout API.
// Authorization tokens are cached and refreshed on demand.
type CashfreeClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	logger       *observability.Logger
	httpClient   *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewCashfreeClient creates a new Cashfree payout client
func NewCashfreeClient(baseURL, clientID, clientSecret string, logger *observability.Logger) *CashfreeClient {
	return &CashfreeClient{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type cashfreeAuthResponse struct {
	Status string `json:"status"`
	Data   struct {
		Token  string `json:"token"`
		Expiry int64  `json:"expiry"`
	} `json:"data"`
}

// authorize fetches a bearer token, reusing the cached one until it expires
func (c *CashfreeClient) authorize(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payout/v1/authorize", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create authorize request: %w", err)
	}
	req.Header.Set("X-Client-Id", c.clientID)
	req.Header.Set("X-Client-Secret", c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to authorize with cashfree: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read authorize response: %w", err)
	}

	var authResp cashfreeAuthResponse
	if err := json.Unmarshal(body, &authResp); err != nil {
		return "", fmt.Errorf("failed to decode authorize response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || authResp.Data.Token == "" {
		return "", fmt.Errorf("cashfree authorization rejected with status %d", resp.StatusCode)
	}

	c.token = authResp.Data.Token
	// Tokens are valid for roughly ten minutes; refresh a minute early
	c.tokenExpiry = time.Now().Add(9 * time.Minute)
	return c.token, nil
}

type cashfreeTransferRequest struct {
	Amount       string              `json:"amount"`
	TransferID   string              `json:"transferId"`
	TransferMode string              `json:"transferMode"`
	BeneDetails  cashfreeBeneDetails `json:"beneDetails"`
}

type cashfreeBeneDetails struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	VPA     string `json:"vpa"`
	Email   string `json:"email"`
	Address string `json:"address1"`
}

// TransferCash sends a direct UPI transfer. A non-success provider response
// comes back as Result{Success: false}; only transport failures return an
// error so callers can tell retryable from definitive outcomes.
func (c *CashfreeClient) TransferCash(ctx context.Context, params TransferParams) (Result, error) {
	token, err := c.authorize(ctx)
	if err != nil {
		return Result{}, err
	}

	transferReq := cashfreeTransferRequest{
		Amount:       fmt.Sprintf("%d", params.Amount),
		TransferID:   params.TransferID,
		TransferMode: "upi",
		BeneDetails: cashfreeBeneDetails{
			Name:    params.Name,
			Phone:   params.Phone,
			VPA:     params.UPIID,
			Email:   "payouts@bounty.local",
			Address: "NA",
		},
	}

	payload, err := json.Marshal(transferReq)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal transfer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payout/v1/directTransfer", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to send transfer request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read transfer response: %w", err)
	}

	response := make(map[string]interface{})
	if err := json.Unmarshal(body, &response); err != nil {
		response = map[string]interface{}{"raw": string(body)}
	}

	status, _ := response["status"].(string)
	success := resp.StatusCode == http.StatusOK && status == "SUCCESS"
	if !success {
		c.logger.Warn(ctx, fmt.Sprintf("cashfree transfer %s rejected with status %d", params.TransferID, resp.StatusCode))
	}

	return Result{Success: success, Response: response}, nil
}
