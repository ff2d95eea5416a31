package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrAuthFailed means the credential exchange was rejected. Not
	// retried automatically; surfaced to the caller.
	ErrAuthFailed = errors.New("mpesa: credential exchange failed")

	// ErrRequestFailed means a gateway call failed in transport or was
	// rejected with a non-success response.
	ErrRequestFailed = errors.New("mpesa: gateway request failed")
)

// timestampLayout is Daraja's yyyyMMddHHmmss format.
const timestampLayout = "20060102150405"

// Config holds Daraja credentials and endpoints.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	BaseURL        string

	// Timeout bounds every gateway call. Defaults to 30s.
	Timeout time.Duration
}

// Client talks to the Safaricom Daraja API: credential exchange, STK
// push payment prompts, and C2B URL registration. The synchronous STK
// push response only confirms the prompt was dispatched; the payment
// outcome arrives later on the callback URL.
type Client struct {
	cfg        Config
	httpClient *http.Client

	// now is swapped in tests to pin the password timestamp.
	now func() time.Time
}

// NewClient creates a Daraja client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// AccessToken exchanges the configured consumer key and secret for a
// short-lived bearer token.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	url := c.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrAuthFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrAuthFailed, resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("%w: parsing response: %v", ErrAuthFailed, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuthFailed)
	}

	return token.AccessToken, nil
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse is the synchronous acknowledgement of a payment
// prompt. CheckoutRequestID is the correlation id the asynchronous
// callback will carry.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// STKPush prompts the payer's device for the given amount. The password
// embeds the current timestamp, so it is recomputed on every call.
func (c *Client) STKPush(ctx context.Context, token, phoneNumber string, amount int64) (*STKPushResponse, error) {
	timestamp := c.now().Format(timestampLayout)

	payload := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          stkPassword(c.cfg.ShortCode, c.cfg.Passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            phoneNumber,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phoneNumber,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  "trend-wear",
		TransactionDesc:   "Fashion",
	}

	var result STKPushResponse
	if err := c.post(ctx, token, "/mpesa/stkpush/v1/processrequest", payload, &result); err != nil {
		return nil, err
	}

	if result.ResponseCode != "0" {
		return nil, fmt.Errorf("%w: response code %s: %s",
			ErrRequestFailed, result.ResponseCode, result.ResponseDescription)
	}

	return &result, nil
}

type registerURLRequest struct {
	ShortCode       string `json:"ShortCode"`
	ResponseType    string `json:"ResponseType"`
	ConfirmationURL string `json:"ConfirmationURL"`
	ValidationURL   string `json:"ValidationURL"`
}

// RegisterC2BURLs registers the confirmation and validation URLs with
// the gateway. Sandbox convenience; production registration is a one-off.
func (c *Client) RegisterC2BURLs(ctx context.Context, token string) error {
	payload := registerURLRequest{
		ShortCode:       c.cfg.ShortCode,
		ResponseType:    "Complete",
		ConfirmationURL: c.cfg.CallbackURL,
		ValidationURL:   c.cfg.CallbackURL,
	}
	return c.post(ctx, token, "/mpesa/c2b/v1/registerurl", payload, &struct{}{})
}

func (c *Client) post(ctx context.Context, token, path string, payload, result any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshaling payload: %v", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrRequestFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: parsing response: %v", ErrRequestFailed, err)
	}

	return nil
}

// stkPassword derives the per-request STK push password:
// base64(shortcode + passkey + timestamp).
func stkPassword(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}
