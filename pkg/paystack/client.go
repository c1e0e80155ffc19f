package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/cashier/pkg/cashier"
)

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 4 << 20

// Client calls the Paystack REST API. It implements cashier.Gateway.
// Business failures come back as a *cashier.Response with Status false;
// only transport and decoding problems are errors.
type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

var _ cashier.Gateway = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default client, for custom transports and
// tests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// New creates a client from cfg.
func New(cfg Config, opts ...ClientOption) (*Client, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingSecretKey
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		secretKey:  cfg.SecretKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) CreateCustomer(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return c.do(ctx, http.MethodPost, "/customer", nil, p)
}

// FetchCustomer accepts a customer code, id or email.
func (c *Client) FetchCustomer(ctx context.Context, code string) (*cashier.Response, error) {
	return c.do(ctx, http.MethodGet, "/customer/"+url.PathEscape(code), nil, nil)
}

func (c *Client) CreateSubscription(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return c.do(ctx, http.MethodPost, "/subscription", nil, p)
}

func (c *Client) EnableSubscription(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return c.do(ctx, http.MethodPost, "/subscription/enable", nil, p)
}

func (c *Client) DisableSubscription(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return c.do(ctx, http.MethodPost, "/subscription/disable", nil, p)
}

func (c *Client) ListCustomerSubscriptions(ctx context.Context, customerID string) (*cashier.Response, error) {
	return c.do(ctx, http.MethodGet, "/subscription", cashier.Payload{"customer": customerID}, nil)
}

func (c *Client) Charge(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return c.do(ctx, http.MethodPost, "/charge", nil, p)
}

func (c *Client) ChargeAuthorization(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return c.do(ctx, http.MethodPost, "/transaction/charge_authorization", nil, p)
}

// MakePaymentRequest initializes a hosted checkout; the response carries
// the authorization_url to redirect the customer to.
func (c *Client) MakePaymentRequest(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return c.do(ctx, http.MethodPost, "/transaction/initialize", nil, p)
}

func (c *Client) Refund(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return c.do(ctx, http.MethodPost, "/refund", nil, p)
}

func (c *Client) CheckAuthorization(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return c.do(ctx, http.MethodPost, "/transaction/check_authorization", nil, p)
}

func (c *Client) DeactivateAuthorization(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return c.do(ctx, http.MethodPost, "/customer/deactivate_authorization", nil, p)
}

func (c *Client) CreateInvoice(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return c.do(ctx, http.MethodPost, "/paymentrequest", nil, p)
}

func (c *Client) FetchInvoices(ctx context.Context, params cashier.Payload) (*cashier.Response, error) {
	return c.do(ctx, http.MethodGet, "/paymentrequest", params, nil)
}

func (c *Client) FindInvoice(ctx context.Context, id string) (*cashier.Response, error) {
	return c.do(ctx, http.MethodGet, "/paymentrequest/"+url.PathEscape(id), nil, nil)
}

func (c *Client) UpdateInvoice(ctx context.Context, id string, p cashier.Payload) (*cashier.Response, error) {
	return c.do(ctx, http.MethodPut, "/paymentrequest/"+url.PathEscape(id), nil, p)
}

func (c *Client) VerifyInvoice(ctx context.Context, code string) (*cashier.Response, error) {
	return c.do(ctx, http.MethodGet, "/paymentrequest/verify/"+url.PathEscape(code), nil, nil)
}

// NotifyInvoice emails the invoice to the customer again.
func (c *Client) NotifyInvoice(ctx context.Context, id string) (*cashier.Response, error) {
	return c.do(ctx, http.MethodPost, "/paymentrequest/notify/"+url.PathEscape(id), nil, nil)
}

func (c *Client) FinalizeInvoice(ctx context.Context, id string) (*cashier.Response, error) {
	return c.do(ctx, http.MethodPost, "/paymentrequest/finalize/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ArchiveInvoice(ctx context.Context, id string) (*cashier.Response, error) {
	return c.do(ctx, http.MethodPost, "/paymentrequest/archive/"+url.PathEscape(id), nil, nil)
}

func (c *Client) CreatePlan(ctx context.Context, p cashier.Payload) (*cashier.Response, error) {
	return c.do(ctx, http.MethodPost, "/plan", nil, p)
}

func (c *Client) do(ctx context.Context, method, path string, query, body cashier.Payload) (*cashier.Response, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + encodeQuery(query)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Join(ErrRequestFailed, fmt.Errorf("marshal %s %s: %w", method, path, err))
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, errors.Join(ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Join(ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Join(ErrRequestFailed, err)
	}

	var out cashier.Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %s %s returned status %d: %s", ErrUnexpectedResponse, method, path, resp.StatusCode, snippet(raw))
	}
	return &out, nil
}

func encodeQuery(q cashier.Payload) string {
	v := url.Values{}
	for k, val := range q {
		v.Set(k, fmt.Sprint(val))
	}
	return v.Encode()
}

func snippet(b []byte) string {
	s := strings.ReplaceAll(string(b), "\n", " ")
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
