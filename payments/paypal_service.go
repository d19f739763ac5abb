package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	config "github.com/hoangtv2204/tour_booking/configs"
)

type PayPalClient struct {
	APIBase      string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

// NewPayPalClient reads the PayPal credentials from the environment. The HTTP
// client timeout bounds every gateway round-trip so a hung provider call cannot
// hold a request (and its locks) open indefinitely.
func NewPayPalClient() *PayPalClient {
	return &PayPalClient{
		APIBase:      config.Config("PAYPAL_API_BASE_URL"),
		ClientID:     config.Config("PAYPAL_CLIENT_ID"),
		ClientSecret: config.Config("PAYPAL_CLIENT_SECRET"),
		HTTPClient:   &http.Client{Timeout: 20 * time.Second},
	}
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

func (r *orderResponse) toOrder() *Order {
	order := &Order{ID: r.ID, Status: r.Status}
	for _, link := range r.Links {
		if link.Rel == "approve" {
			order.ApproveURL = link.Href
			break
		}
	}
	return order
}

func (p *PayPalClient) getAccessToken(ctx context.Context) (string, error) {
	reqBody := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/v1/oauth2/token", p.APIBase), reqBody)
	if err != nil {
		return "", err
	}

	req.SetBasicAuth(p.ClientID, p.ClientSecret)
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to get access token, status: %s", resp.Status)
	}

	var tokenResp accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}

	return tokenResp.AccessToken, nil
}

func (p *PayPalClient) CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error) {
	accessToken, err := p.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	totalStr := fmt.Sprintf("%.2f", params.Total)

	paypalItems := make([]map[string]interface{}, 0, len(params.Items))
	for _, item := range params.Items {
		paypalItems = append(paypalItems, map[string]interface{}{
			"name": item.Name,
			"unit_amount": map[string]string{
				"currency_code": params.Currency,
				"value":         fmt.Sprintf("%.2f", item.UnitAmount),
			},
			"quantity": strconv.Itoa(item.Quantity),
		})
	}

	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"amount": map[string]interface{}{
					"currency_code": params.Currency,
					"value":         totalStr,
					"breakdown": map[string]interface{}{
						"item_total": map[string]string{
							"currency_code": params.Currency,
							"value":         totalStr,
						},
					},
				},
				"items": paypalItems,
			},
		},
		"application_context": map[string]string{
			"brand_name":   "My Travel App",
			"landing_page": "LOGIN",
			"user_action":  "PAY_NOW",
			"return_url":   params.ReturnURL,
			"cancel_url":   params.CancelURL,
		},
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/v2/checkout/orders", p.APIBase), bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to create order: %s", string(respBody))
	}

	var order orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, err
	}
	return order.toOrder(), nil
}

func (p *PayPalClient) CaptureOrder(ctx context.Context, orderID string) (*Order, error) {
	accessToken, err := p.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/v2/checkout/orders/%s/capture", p.APIBase, orderID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to capture order: %s", string(respBody))
	}

	var order orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, err
	}
	return order.toOrder(), nil
}
