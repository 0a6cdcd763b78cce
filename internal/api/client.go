// Package api is a typed client for the App Store Server API.
//
// The client is a thin request/response layer: it mints a bearer token per
// request, serializes JSON bodies, and maps non-2xx responses to APIError.
// It never retries and never decodes Signed* payloads - verification belongs
// to the appstore package.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/storekit-community/appstore-server-go/internal/appstore"
)

const (
	// ProductionURL is the App Store Server API production host.
	ProductionURL = "https://api.storekit.itunes.apple.com"

	// SandboxURL is the App Store Server API sandbox host.
	SandboxURL = "https://api.storekit-sandbox.itunes.apple.com"
)

const userAgent = "appstore-server-go/1"

// maxResponseBodySize bounds API response bodies read into memory.
const maxResponseBodySize = 10 << 20

// ClientConfig configures a Client.
type ClientConfig struct {

	// SigningKeyPEM is the App Store Connect API private key.
	SigningKeyPEM []byte

	// KeyID is the private key's ID from App Store Connect.
	KeyID string

	// IssuerID is the issuer ID from the Keys page in App Store Connect.
	IssuerID string

	// BundleID is the app's bundle identifier.
	BundleID string

	// Environment selects the production or sandbox host. Must be Sandbox
	// or Production.
	Environment appstore.Environment

	// HTTPClient overrides the default client (30s timeout).
	HTTPClient *http.Client

	// BaseURL overrides the environment-derived host, for testing.
	BaseURL string
}

// Client calls the App Store Server API. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     *TokenGenerator
}

// NewClient validates the configuration and builds a client.
func NewClient(cfg ClientConfig) (*Client, error) {
	tokens, err := NewTokenGenerator(cfg.SigningKeyPEM, cfg.KeyID, cfg.IssuerID, cfg.BundleID)
	if err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		switch cfg.Environment {
		case appstore.EnvironmentProduction:
			baseURL = ProductionURL
		case appstore.EnvironmentSandbox:
			baseURL = SandboxURL
		default:
			return nil, fmt.Errorf("environment must be Sandbox or Production, got %q", cfg.Environment)
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		tokens:     tokens,
	}, nil
}

// do executes one API request. out may be nil for endpoints with no
// response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	token, err := c.tokens.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate bearer token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}

		// best effort decode of the error body
		var payload errorPayload
		if err := json.Unmarshal(respBody, &payload); err == nil {
			apiErr.ErrorCode = payload.ErrorCode
			apiErr.Message = payload.ErrorMessage
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// GetTransactionInfo fetches the signed transaction for a transaction ID.
func (c *Client) GetTransactionInfo(ctx context.Context, transactionID string) (*TransactionInfoResponse, error) {
	var out TransactionInfoResponse
	path := "/inApps/v1/transactions/" + url.PathEscape(transactionID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTransactionHistory fetches one page of a customer's transaction
// history. revision is empty for the first page.
func (c *Client) GetTransactionHistory(ctx context.Context, transactionID, revision string, req TransactionHistoryRequest) (*HistoryResponse, error) {
	query := url.Values{}
	if revision != "" {
		query.Set("revision", revision)
	}
	if req.StartDate != 0 {
		query.Set("startDate", strconv.FormatInt(req.StartDate, 10))
	}
	if req.EndDate != 0 {
		query.Set("endDate", strconv.FormatInt(req.EndDate, 10))
	}
	for _, id := range req.ProductIDs {
		query.Add("productId", id)
	}
	for _, pt := range req.ProductTypes {
		query.Add("productType", string(pt))
	}
	if req.Sort != "" {
		query.Set("sort", string(req.Sort))
	}
	for _, group := range req.SubscriptionGroupIdentifiers {
		query.Add("subscriptionGroupIdentifier", group)
	}
	if req.InAppOwnershipType != "" {
		query.Set("inAppOwnershipType", string(req.InAppOwnershipType))
	}
	if req.Revoked != nil {
		query.Set("revoked", strconv.FormatBool(*req.Revoked))
	}

	var out HistoryResponse
	path := "/inApps/v1/history/" + url.PathEscape(transactionID)
	if err := c.do(ctx, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAllSubscriptionStatuses fetches the status of every auto-renewable
// subscription belonging to the customer. status filters are optional.
func (c *Client) GetAllSubscriptionStatuses(ctx context.Context, transactionID string, status []appstore.SubscriptionStatus) (*StatusResponse, error) {
	query := url.Values{}
	for _, s := range status {
		query.Add("status", strconv.FormatInt(int64(s), 10))
	}

	var out StatusResponse
	path := "/inApps/v1/subscriptions/" + url.PathEscape(transactionID)
	if err := c.do(ctx, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LookUpOrderID fetches the signed transactions behind a customer order ID.
func (c *Client) LookUpOrderID(ctx context.Context, orderID string) (*OrderLookupResponse, error) {
	var out OrderLookupResponse
	path := "/inApps/v1/lookup/" + url.PathEscape(orderID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRefundHistory fetches one page of a customer's refunded purchases.
func (c *Client) GetRefundHistory(ctx context.Context, transactionID, revision string) (*RefundHistoryResponse, error) {
	query := url.Values{}
	if revision != "" {
		query.Set("revision", revision)
	}

	var out RefundHistoryResponse
	path := "/inApps/v2/refund/lookup/" + url.PathEscape(transactionID)
	if err := c.do(ctx, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetNotificationHistory fetches one page of notification history.
// paginationToken is empty for the first page.
func (c *Client) GetNotificationHistory(ctx context.Context, paginationToken string, req NotificationHistoryRequest) (*NotificationHistoryResponse, error) {
	query := url.Values{}
	if paginationToken != "" {
		query.Set("paginationToken", paginationToken)
	}

	var out NotificationHistoryResponse
	if err := c.do(ctx, http.MethodPost, "/inApps/v1/notifications/history", query, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestTestNotification asks the store to send a test notification to the
// registered server URL.
func (c *Client) RequestTestNotification(ctx context.Context) (*SendTestNotificationResponse, error) {
	var out SendTestNotificationResponse
	if err := c.do(ctx, http.MethodPost, "/inApps/v1/notifications/test", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTestNotificationStatus fetches the delivery outcome of a previously
// requested test notification.
func (c *Client) GetTestNotificationStatus(ctx context.Context, testNotificationToken string) (*CheckTestNotificationResponse, error) {
	var out CheckTestNotificationResponse
	path := "/inApps/v1/notifications/test/" + url.PathEscape(testNotificationToken)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExtendSubscriptionRenewalDate extends a single customer's subscription
// renewal date.
func (c *Client) ExtendSubscriptionRenewalDate(ctx context.Context, originalTransactionID string, req ExtendRenewalDateRequest) (*ExtendRenewalDateResponse, error) {
	var out ExtendRenewalDateResponse
	path := "/inApps/v1/subscriptions/extend/" + url.PathEscape(originalTransactionID)
	if err := c.do(ctx, http.MethodPut, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExtendRenewalDateForAllActiveSubscribers extends the renewal date for all
// eligible active subscribers of a product.
func (c *Client) ExtendRenewalDateForAllActiveSubscribers(ctx context.Context, req MassExtendRenewalDateRequest) (*MassExtendRenewalDateResponse, error) {
	var out MassExtendRenewalDateResponse
	if err := c.do(ctx, http.MethodPost, "/inApps/v1/subscriptions/extend/mass", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStatusOfSubscriptionRenewalDateExtensions checks the progress of a mass
// renewal-date extension request.
func (c *Client) GetStatusOfSubscriptionRenewalDateExtensions(ctx context.Context, requestIdentifier, productID string) (*MassExtendRenewalDateStatusResponse, error) {
	var out MassExtendRenewalDateStatusResponse
	path := "/inApps/v1/subscriptions/extend/mass/" + url.PathEscape(productID) + "/" + url.PathEscape(requestIdentifier)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendConsumptionData answers a CONSUMPTION_REQUEST notification with
// consumption information. The endpoint returns no body.
func (c *Client) SendConsumptionData(ctx context.Context, transactionID string, req ConsumptionRequest) error {
	path := "/inApps/v1/transactions/consumption/" + url.PathEscape(transactionID)
	return c.do(ctx, http.MethodPut, path, nil, req, nil)
}
