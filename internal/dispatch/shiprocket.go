package dispatch

import (
	"bounty-server/internal/observability"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ShiprocketClient creates gift shipments through the Shiprocket order API
type ShiprocketClient struct {
	baseURL    string
	token      string
	logger     *observability.Logger
	httpClient *http.Client
}

// NewShiprocketClient creates a new Shiprocket client
func NewShiprocketClient(baseURL, token string, logger *observability.Logger) *ShiprocketClient {
	return &ShiprocketClient{
		baseURL: baseURL,
		token:   token,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type shiprocketOrderRequest struct {
	OrderID           string                `json:"order_id"`
	OrderDate         string                `json:"order_date"`
	BillingName       string                `json:"billing_customer_name"`
	BillingAddress    string                `json:"billing_address"`
	BillingPhone      string                `json:"billing_phone"`
	ShippingIsBilling bool                  `json:"shipping_is_billing"`
	OrderItems        []shiprocketOrderItem `json:"order_items"`
	PaymentMethod     string                `json:"payment_method"`
	SubTotal          int64                 `json:"sub_total"`
}

type shiprocketOrderItem struct {
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	Units        int    `json:"units"`
	SellingPrice int64  `json:"selling_price"`
}

// CreateShipment creates a prepaid shipment order for a gift reward. Like
// TransferCash, provider rejections come back as Result{Success: false} and
// only transport failures return an error.
func (c *ShiprocketClient) CreateShipment(ctx context.Context, params ShipmentParams) (Result, error) {
	orderReq := shiprocketOrderRequest{
		OrderID:           params.OrderID,
		OrderDate:         time.Now().UTC().Format("2006-01-02 15:04"),
		BillingName:       params.Name,
		BillingAddress:    params.Address,
		BillingPhone:      params.Phone,
		ShippingIsBilling: true,
		OrderItems: []shiprocketOrderItem{
			{
				Name:         params.ItemName,
				SKU:          params.ItemSKU,
				Units:        1,
				SellingPrice: params.DeclaredValue,
			},
		},
		PaymentMethod: "Prepaid",
		SubTotal:      params.DeclaredValue,
	}

	payload, err := json.Marshal(orderReq)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal shipment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/external/orders/create/adhoc", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create shipment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to send shipment request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read shipment response: %w", err)
	}

	response := make(map[string]interface{})
	if err := json.Unmarshal(body, &response); err != nil {
		response = map[string]interface{}{"raw": string(body)}
	}

	success := resp.StatusCode == http.StatusOK && response["order_id"] != nil
	if !success {
		c.logger.Warn(ctx, fmt.Sprintf("shiprocket order %s rejected with status %d", params.OrderID, resp.StatusCode))
	}

	return Result{Success: success, Response: response}, nil
}
