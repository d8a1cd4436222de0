package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

var ErrTimeout = errors.New("gateway timeout")

type IntentRequest struct {
	PartnerCode string `json:"partner_code"`
	RequestID   string `json:"request_id"` // PaymentRequestID。コールバックでechoされる
	OrderNumber string `json:"order_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Method      string `json:"method"`
	Signature   string `json:"signature"`
}

type IntentResponse struct {
	ResultCode  int    `json:"result_code"`
	Message     string `json:"message"`
	CheckoutURL string `json:"pay_url"`
	QRCodeURL   string `json:"qr_code_url"`
}

type Client struct {
	endpoint    string
	partnerCode string
	secret      string
	httpClient  *http.Client
}

func NewClient(endpoint, partnerCode, secret string, timeout time.Duration) *Client {
	return &Client{
		endpoint:    endpoint,
		partnerCode: partnerCode,
		secret:      secret,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// CreateIntent は決済インテントを作る外部呼び出し。タイムアウトはErrTimeout。
func (c *Client) CreateIntent(ctx context.Context, requestID, orderNumber string, amount int64, currency, method string) (IntentResponse, error) {
	req := IntentRequest{
		PartnerCode: c.partnerCode,
		RequestID:   requestID,
		OrderNumber: orderNumber,
		Amount:      amount,
		Currency:    currency,
		Method:      method,
	}
	req.Signature = Sign(c.secret, map[string]string{
		"partner_code": req.PartnerCode,
		"request_id":   req.RequestID,
		"order_id":     req.OrderNumber,
		"amount":       strconv.FormatInt(req.Amount, 10),
		"currency":     req.Currency,
	})

	body, err := json.Marshal(req)
	if err != nil {
		return IntentResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return IntentResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return IntentResponse{}, ErrTimeout
		}
		return IntentResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return IntentResponse{}, fmt.Errorf("gateway status %d", resp.StatusCode)
	}

	var out IntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return IntentResponse{}, err
	}
	if out.ResultCode != 0 {
		return IntentResponse{}, fmt.Errorf("gateway rejected: %d %s", out.ResultCode, out.Message)
	}
	return out, nil
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	var t timeout
	return errors.As(err, &t) && t.Timeout()
}
