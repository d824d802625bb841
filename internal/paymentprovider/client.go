// Package paymentprovider клиент HTTP API платёжного провайдера AbacatePay.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/festiva/festiva/internal/models"
)

// Client клиент API провайдера. Ключ и адрес передаются явно при создании.
type Client struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент AbacatePay.
func NewClient(apiURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	url := c.apiURL + path
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do выполняет запрос и декодирует успешный ответ в out.
// Ответ вне диапазона 2xx превращается в *models.ProviderError.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &models.ProviderError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}

// CreateBilling создаёт одноразовый счёт и возвращает его id и ссылку на оплату.
func (c *Client) CreateBilling(ctx context.Context, reqParams CreateBillingRequest) (*Billing, error) {
	const op = "paymentprovider.CreateBilling"

	req, err := c.newRequest(ctx, http.MethodPost, "/billing/create", reqParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var env billingEnvelope
	if err := c.do(req, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	billing := env.Billing
	if env.Data != nil {
		if env.Data.ID != "" {
			billing.ID = env.Data.ID
		}
		if env.Data.URL != "" {
			billing.URL = env.Data.URL
		}
		if env.Data.Status != "" {
			billing.Status = env.Data.Status
		}
	}
	if billing.ID == "" {
		return nil, fmt.Errorf("%s: %w", op, &models.ProviderError{
			StatusCode: http.StatusOK,
			Message:    "response without billing id",
		})
	}
	return &billing, nil
}

// ListBillings возвращает все счета аккаунта.
func (c *Client) ListBillings(ctx context.Context) ([]Billing, error) {
	const op = "paymentprovider.ListBillings"

	req, err := c.newRequest(ctx, http.MethodGet, "/billing/list", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var env billingListEnvelope
	if err := c.do(req, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return env.Data, nil
}
