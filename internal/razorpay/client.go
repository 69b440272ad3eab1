package razorpay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	StatusCaptured   = "captured"
	StatusAuthorized = "authorized"
)

type Client struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// Payment is the subset of the payments API entity the verifier needs.
type Payment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Method   string `json:"method"`
	Email    string `json:"email"`
}

// Settled reports whether the provider holds the funds.
func (p *Payment) Settled() bool {
	return p.Status == StatusCaptured || p.Status == StatusAuthorized
}

// APIError is returned when Razorpay answers with a non-2xx status.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Razorpay API returned %d: %s", e.StatusCode, e.Description)
}

func NewClient(keyID, keySecret, baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// FetchPayment reads the authoritative payment entity. Transport failures are
// returned wrapped; provider refusals come back as *APIError.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	pid := strings.TrimSpace(paymentID)
	if pid == "" {
		return nil, fmt.Errorf("payment id is empty")
	}
	fullURL := c.baseURL + "/v1/payments/" + url.PathEscape(pid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ResumeTheek-Verifier")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get razorpay payment: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		description := "Access Denied"
		if err := json.Unmarshal(rawBody, &errResp); err == nil && errResp.Error.Description != "" {
			description = errResp.Error.Description
		}
		if c.log != nil {
			c.log.Warn("razorpay payment lookup refused", "status", resp.StatusCode, "payment_id", pid, "body", truncateBody(rawBody))
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Description: description}
	}

	var payment Payment
	if err := json.Unmarshal(rawBody, &payment); err != nil {
		return nil, fmt.Errorf("decode payment response: %w (body=%s)", err, truncateBody(rawBody))
	}
	return &payment, nil
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
