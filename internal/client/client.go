// Package client talks to the quota service and keeps a local cache of what
// the server reported.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/digkill/resumegate/internal/clientcache"
	"github.com/digkill/resumegate/internal/models"
)

// ErrCheckoutRequired is returned for every 402 answer; callers should start checkout.
var ErrCheckoutRequired = errors.New("checkout required")

// APIError is any other non-2xx answer.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *clientcache.Cache
}

func New(baseURL string, cache *clientcache.Cache, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if cache == nil {
		cache = clientcache.New()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
	}
}

func (c *Client) Cache() *clientcache.Cache {
	return c.cache
}

type VerifyInput struct {
	Identifier  string             `json:"identifier"`
	PaymentID   string             `json:"paymentId"`
	OrderID     string             `json:"orderId,omitempty"`
	Signature   string             `json:"signature,omitempty"`
	PackageType models.PackageType `json:"packageType"`
}

type VerifyResult struct {
	Success     bool               `json:"success"`
	Credits     int                `json:"credits"`
	PackageType models.PackageType `json:"packageType"`
}

func (c *Client) Verify(ctx context.Context, in VerifyInput) (*VerifyResult, error) {
	var out VerifyResult
	if err := c.post(ctx, "/api/verify", in, &out); err != nil {
		return nil, err
	}
	c.cache.MarkPaid(in.Identifier, out.Credits)
	return &out, c.cache.Save()
}

type generateBody struct {
	Identifier string         `json:"identifier"`
	UserData   models.Profile `json:"userData"`
	Feedback   string         `json:"feedback,omitempty"`
}

// Generate requests a document. On success the cached credit count follows
// the server's remainingCredits.
func (c *Client) Generate(ctx context.Context, identifier string, profile models.Profile, feedback string) (*models.DocumentResult, error) {
	var doc models.DocumentResult
	err := c.post(ctx, "/api/generate", generateBody{Identifier: identifier, UserData: profile, Feedback: feedback}, &doc)
	if errors.Is(err, ErrCheckoutRequired) {
		c.cache.Forget(identifier)
		if saveErr := c.cache.Save(); saveErr != nil {
			return nil, errors.Join(err, saveErr)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	remaining, _ := c.cache.Credits(identifier)
	if doc.RemainingCredits != nil {
		remaining = *doc.RemainingCredits
	}
	c.cache.MarkPaid(identifier, remaining)
	c.cache.SetDraft(profile)
	return &doc, c.cache.Save()
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		if resp.StatusCode == http.StatusPaymentRequired {
			return fmt.Errorf("%w: %s", ErrCheckoutRequired, msg)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
